package middleware

import (
	"context"
	"net/http"

	"github.com/Team-Roomin/Roomin/logger"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestID injects a correlation identifier into the context and headers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)
		ctx := context.WithValue(r.Context(), logger.RequestIDKey{}, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
