package controllers

import (
	"context"
	"net/http"

	"github.com/Team-Roomin/Roomin/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContextKey string

const (
	UserIDKey   = ContextKey("userID")
	UserRoleKey = ContextKey("userRole")
)

// WithUser stores the authenticated user id and role on ctx.
func WithUser(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UserRoleKey, role)
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}

// currentUserID returns the authenticated user, writing a 401 when absent.
func currentUserID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "User ID missing in context")
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "Invalid user in token")
		return primitive.NilObjectID, false
	}
	return id, true
}

func isAdmin(r *http.Request) bool {
	return RoleFromContext(r.Context()) == models.RoleAdmin
}
