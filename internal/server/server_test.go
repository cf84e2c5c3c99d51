package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/chorewheel/internal/config"
	"github.com/dukerupert/chorewheel/internal/database"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.JWTSecret = "server-test-secret-0123456789"
	if mutate != nil {
		mutate(cfg)
	}
	return New(db, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
}

func TestMetricsExposed(t *testing.T) {
	srv := newTestServer(t, nil)
	router := srv.Router()

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "chorewheel_http_requests_total") {
		t.Error("request counter not exposed")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t, nil)
	router := srv.Router()

	for _, target := range []string{"/api/auth/me", "/api/households", "/api/chores?household_id=1", "/ws?household_id=1"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want 401", target, rec.Code)
		}
	}
}

func TestSignInRateLimited(t *testing.T) {
	srv := newTestServer(t, nil)
	router := srv.Router()

	var last int
	for i := 0; i < authRateLimit+1; i++ {
		req := httptest.NewRequest("POST", "/api/auth/signin", strings.NewReader(`{"email":"a@example.com","password":"nope"}`))
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		last = rec.Code
		if i < authRateLimit && rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i+1, rec.Code)
		}
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status after limit = %d, want 429", last)
	}
}

func TestPushSchedulerOnlyWithKeys(t *testing.T) {
	if newTestServer(t, nil).PushScheduler() != nil {
		t.Error("scheduler created without VAPID keys")
	}

	srv := newTestServer(t, func(c *config.Config) {
		c.VAPIDPublicKey = "pub"
		c.VAPIDPrivateKey = "priv"
	})
	if srv.PushScheduler() == nil {
		t.Error("scheduler missing with VAPID keys")
	}
}
