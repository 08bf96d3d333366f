package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Team-Roomin/Roomin/logger"
	"github.com/Team-Roomin/Roomin/models"
	"github.com/Team-Roomin/Roomin/repository"
	"github.com/Team-Roomin/Roomin/utils"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func WriteJSON(w http.ResponseWriter, status int, resp models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, models.APIResponse{Success: false, Message: message})
}

func writeOK(w http.ResponseWriter, message string, data interface{}) {
	WriteJSON(w, http.StatusOK, models.APIResponse{Success: true, Message: message, Data: data})
}

func writeCreated(w http.ResponseWriter, message string, data interface{}) {
	WriteJSON(w, http.StatusCreated, models.APIResponse{Success: true, Message: message, Data: data})
}

func writeValidationError(w http.ResponseWriter, err error) {
	WriteJSON(w, http.StatusBadRequest, models.APIResponse{
		Success: false,
		Message: "Validation failed",
		Errors:  utils.FormatValidationErrors(err),
	})
}

// writeStoreError maps repository sentinels to 404/409 and logs anything else as a 500.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, notFound, failure string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		WriteError(w, http.StatusNotFound, notFound)
	case errors.Is(err, repository.ErrDuplicate):
		WriteError(w, http.StatusConflict, "Resource already exists")
	default:
		logger.WithContext(r.Context()).Error(failure, zap.String("path", r.URL.Path), zap.Error(err))
		WriteError(w, http.StatusInternalServerError, failure)
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// pathObjectID parses the {name} route variable as an ObjectID, writing a 400 when invalid.
func pathObjectID(w http.ResponseWriter, r *http.Request, name, label string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)[name])
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid "+label+" ID")
		return primitive.NilObjectID, false
	}
	return id, true
}

func muxVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

// pageParams reads page and limit, defaulting to 1 and def and capping limit at maxPageLimit.
func pageParams(r *http.Request, def int64) (int64, int64) {
	q := r.URL.Query()
	page, err := strconv.ParseInt(q.Get("page"), 10, 64)
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.ParseInt(q.Get("limit"), 10, 64)
	if err != nil || limit < 1 {
		limit = def
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func intParam(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
