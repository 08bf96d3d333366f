package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Team-Roomin/Roomin/controllers"
	"github.com/Team-Roomin/Roomin/logger"
	"github.com/Team-Roomin/Roomin/utils"
	"go.uber.org/zap"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit limits requests per client IP. Limiter errors let the request through.
func RateLimit(l Limiter, retryAfter time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r)
			ok, err := l.Allow(r.Context(), ip)
			if err != nil {
				logger.WithContext(r.Context()).Warn("rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
				controllers.WriteError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
