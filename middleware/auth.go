package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Team-Roomin/Roomin/controllers"
	"github.com/Team-Roomin/Roomin/logger"
	"github.com/Team-Roomin/Roomin/models"
	"github.com/Team-Roomin/Roomin/repository"
	"github.com/Team-Roomin/Roomin/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	AccessTokenCookie  = controllers.AccessTokenCookie
	RefreshTokenCookie = controllers.RefreshTokenCookie
	SessionCookie      = controllers.SessionCookie
)

// SessionLookup resolves an OAuth session id to a user id.
type SessionLookup interface {
	SessionUser(ctx context.Context, sessionID string) (string, error)
}

type Authenticator struct {
	tokens   *utils.TokenManager
	sessions SessionLookup
	users    repository.UserStore
}

func NewAuthenticator(tokens *utils.TokenManager, sessions SessionLookup, users repository.UserStore) *Authenticator {
	return &Authenticator{tokens: tokens, sessions: sessions, users: users}
}

// AuthMiddleware accepts a bearer token or accessToken cookie and falls back to the
// Google sign-in session cookie.
func (a *Authenticator) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.WithContext(r.Context())

		token, malformed := bearerToken(r)
		if malformed {
			log.Debug("invalid Authorization header format", zap.String("method", r.Method), zap.String("path", r.URL.Path))
			controllers.WriteError(w, http.StatusUnauthorized, "Invalid Authorization header format")
			return
		}

		if token != "" {
			claims, err := a.tokens.ValidateAccessToken(token)
			if err == nil {
				next.ServeHTTP(w, r.WithContext(controllers.WithUser(r.Context(), claims.UserID, claims.Role)))
				return
			}
			log.Debug("access token rejected", zap.Error(err))
		}

		if user, ok := a.fromSession(r); ok {
			next.ServeHTTP(w, r.WithContext(controllers.WithUser(r.Context(), user.ID.Hex(), user.Role)))
			return
		}

		if token == "" {
			controllers.WriteError(w, http.StatusUnauthorized, "Unauthorized request")
			return
		}
		controllers.WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
	})
}

func (a *Authenticator) fromSession(r *http.Request) (*models.User, bool) {
	if a.sessions == nil {
		return nil, false
	}
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	userID, err := a.sessions.SessionUser(r.Context(), cookie.Value)
	if err != nil {
		return nil, false
	}
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, false
	}
	user, err := a.users.FindByID(r.Context(), id)
	if err != nil {
		logger.WithContext(r.Context()).Warn("oauth session user lookup failed", zap.Error(err))
		return nil, false
	}
	return user, true
}

// bearerToken reads the Authorization header, then the access token cookie.
func bearerToken(r *http.Request) (token string, malformed bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", true
		}
		return parts[1], false
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value, false
	}
	return "", false
}

// RequireRole rejects authenticated users whose role is not listed.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed[controllers.RoleFromContext(r.Context())] {
				controllers.WriteError(w, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
