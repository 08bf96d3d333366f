package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Team-Roomin/Roomin/cache"
	"github.com/Team-Roomin/Roomin/controllers"
	"github.com/Team-Roomin/Roomin/logger"
	"github.com/Team-Roomin/Roomin/models"
	"github.com/Team-Roomin/Roomin/repository"
	"github.com/Team-Roomin/Roomin/utils"
	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"
)

type fakeSessions map[string]string

func (f fakeSessions) SessionUser(_ context.Context, id string) (string, error) {
	if uid, ok := f[id]; ok {
		return uid, nil
	}
	return "", cache.ErrSessionNotFound
}

type fakeUsers struct {
	repository.UserStore
	users map[primitive.ObjectID]*models.User
}

func (f *fakeUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	uid, _ := r.Context().Value(controllers.UserIDKey).(string)
	w.Header().Set("X-User", uid)
	w.Header().Set("X-Role", controllers.RoleFromContext(r.Context()))
	w.WriteHeader(http.StatusOK)
}

func newAuth(t *testing.T) (*Authenticator, *utils.TokenManager, *models.User) {
	t.Helper()
	tm := utils.NewTokenManager("access", "refresh", time.Minute, time.Hour)
	google := &models.User{ID: primitive.NewObjectID(), Role: models.RoleOwner}
	users := &fakeUsers{users: map[primitive.ObjectID]*models.User{google.ID: google}}
	sessions := fakeSessions{"sess-1": google.ID.Hex()}
	return NewAuthenticator(tm, sessions, users), tm, google
}

func TestAuthMiddleware(t *testing.T) {
	auth, tm, google := newAuth(t)
	handler := auth.AuthMiddleware(http.HandlerFunc(echoUser))

	access, _ := tm.GenerateAccessToken("64b7f0c2a1b2c3d4e5f60718", "a@b.c", "alice", models.RoleUser)
	refresh, _ := tm.GenerateRefreshToken("64b7f0c2a1b2c3d4e5f60718")

	tests := []struct {
		name     string
		prepare  func(r *http.Request)
		wantCode int
		wantUser string
		wantRole string
	}{
		{
			name:     "bearer token",
			prepare:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+access) },
			wantCode: http.StatusOK,
			wantUser: "64b7f0c2a1b2c3d4e5f60718",
			wantRole: models.RoleUser,
		},
		{
			name:     "cookie token",
			prepare:  func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: access}) },
			wantCode: http.StatusOK,
			wantUser: "64b7f0c2a1b2c3d4e5f60718",
			wantRole: models.RoleUser,
		},
		{
			name:     "malformed header",
			prepare:  func(r *http.Request) { r.Header.Set("Authorization", "Token abc") },
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "refresh token is not an access token",
			prepare:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+refresh) },
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "no credentials",
			prepare:  func(r *http.Request) {},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "oauth session fallback",
			prepare:  func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "sess-1"}) },
			wantCode: http.StatusOK,
			wantUser: google.ID.Hex(),
			wantRole: models.RoleOwner,
		},
		{
			name: "bad token but valid session",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer garbage")
				r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "sess-1"})
			},
			wantCode: http.StatusOK,
			wantUser: google.ID.Hex(),
		},
		{
			name:     "unknown session",
			prepare:  func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "nope"}) },
			wantCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/properties/bookmarks", nil)
			tt.prepare(req)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.wantCode, rr.Body.String())
			}
			if tt.wantUser != "" && rr.Header().Get("X-User") != tt.wantUser {
				t.Fatalf("user = %q, want %q", rr.Header().Get("X-User"), tt.wantUser)
			}
			if tt.wantRole != "" && rr.Header().Get("X-Role") != tt.wantRole {
				t.Fatalf("role = %q, want %q", rr.Header().Get("X-Role"), tt.wantRole)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(models.RoleAdmin)(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/stats", nil)
	req = req.WithContext(controllers.WithUser(req.Context(), "u1", models.RoleOwner))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for owner, got %d", rr.Code)
	}

	req = req.WithContext(controllers.WithUser(req.Context(), "u2", models.RoleAdmin))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rr.Code)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(logger.RequestIDKey{}).(string)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if seen == "" || rr.Header().Get(requestIDHeader) != seen {
		t.Fatalf("generated id not propagated: ctx=%q header=%q", seen, rr.Header().Get(requestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "fixed-id")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if seen != "fixed-id" || rr.Header().Get(requestIDHeader) != "fixed-id" {
		t.Fatalf("incoming id not kept: %q", seen)
	}
}

func TestAccessLoggerPassesThrough(t *testing.T) {
	handler := Logger(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("status not forwarded: %d", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	limiter := cache.NewRateLimiter(rdb, "login", 2, time.Minute)
	handler := RateLimit(limiter, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/server/login", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
		if i == 2 && rr.Header().Get("Retry-After") != "60" {
			t.Fatalf("expected Retry-After 60, got %q", rr.Header().Get("Retry-After"))
		}
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	handler := RateLimit(failingLimiter{}, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/server/register", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected request to pass when limiter fails, got %d", rr.Code)
	}
}

func TestHTTPMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := NewHTTPMetrics(registry)
	if err != nil {
		t.Fatalf("NewHTTPMetrics: %v", err)
	}

	router := mux.NewRouter()
	router.Use(metrics.Handler)
	router.HandleFunc("/api/properties/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/properties/abc", nil))

	labels := prometheus.Labels{"method": http.MethodGet, "route": "/api/properties/{id}", "status": "201"}
	if got := testutil.ToFloat64(metrics.Requests.With(labels)); got != 1 {
		t.Fatalf("expected request counter 1, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.InFlight); got != 0 {
		t.Fatalf("expected in-flight gauge 0, got %f", got)
	}

	if _, err := NewHTTPMetrics(registry); err != nil {
		t.Fatalf("re-registering should be tolerated: %v", err)
	}
}
