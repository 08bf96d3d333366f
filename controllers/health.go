package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/Team-Roomin/Roomin/logger"
	"github.com/Team-Roomin/Roomin/models"
	"go.uber.org/zap"
)

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

type HealthController struct {
	Checks  map[string]HealthCheck
	Timeout time.Duration
}

func (hc *HealthController) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timeout := hc.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		names := make([]string, 0, len(hc.Checks))
		for name := range hc.Checks {
			names = append(names, name)
		}
		sort.Strings(names)

		status := http.StatusOK
		results := make(map[string]string, len(names))
		for _, name := range names {
			if err := hc.Checks[name](ctx); err != nil {
				logger.WithContext(r.Context()).Warn("health check failed", zap.String("dependency", name), zap.Error(err))
				results[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "up"
		}

		message := "Server is healthy"
		if status != http.StatusOK {
			message = "Server is degraded"
		}
		WriteJSON(w, status, models.APIResponse{Success: status == http.StatusOK, Message: message, Data: results})
	}
}
