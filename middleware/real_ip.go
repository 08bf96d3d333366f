package middleware

import (
	"net/http"

	"github.com/Team-Roomin/Roomin/utils"
)

// RealIP resolves the client address once per request. Rate limiting, view
// counting and the access log read it back with utils.ClientIP.
func RealIP(trusted utils.TrustedProxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := utils.WithClientIP(r.Context(), trusted.Resolve(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
