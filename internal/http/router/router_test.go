package router

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/fieldserve/pingate/internal/domain"
	"github.com/fieldserve/pingate/internal/http/handler"
	"github.com/fieldserve/pingate/internal/security"
	"github.com/fieldserve/pingate/internal/service"
)

type noopSessionRepo struct{}

func (noopSessionRepo) Create(*domain.Session) error { return nil }
func (noopSessionRepo) FindActiveByTokenHash(string) (*domain.Session, error) {
	return nil, errors.New("not found")
}
func (noopSessionRepo) RevokeByTokenHash(string) error { return nil }
func (noopSessionRepo) CleanupExpired() (int64, error) { return 0, nil }

type noopAttemptRepo struct{}

func (noopAttemptRepo) Create(*domain.PinAttempt) error                     { return nil }
func (noopAttemptRepo) ListRecent(string, int) ([]domain.PinAttempt, error) { return nil, nil }

func newRouterForTest(t *testing.T, ready func(ctx context.Context) error) http.Handler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.DiscardHandler)
	svc := service.NewPinService(
		string(hash),
		service.LockoutPolicy{AttemptCeiling: 3, FailureWindow: time.Minute, LockoutDuration: 5 * time.Minute},
		service.NewLocalLockoutStore(),
		noopSessionRepo{},
		noopAttemptRepo{},
		security.NewJWTManager("iss", "aud", "abcdefghijklmnopqrstuvwxyz123456"),
		"test-pepper-0123456789",
		time.Hour,
		logger,
	)
	cookies := security.NewCookieManager("", false, "lax")
	return New(Dependencies{
		Logger:     logger,
		PinHandler: handler.NewPinHandler(svc, cookies, time.Hour),
		Ready:      ready,
	})
}

func TestHealthEndpoints(t *testing.T) {
	r := newRouterForTest(t, nil)

	for _, path := range []string{"/health/live", "/health/ready"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s = %d, want 200", path, w.Code)
		}
	}
}

func TestReadyProbeReportsBackendFailure(t *testing.T) {
	r := newRouterForTest(t, func(context.Context) error { return errors.New("db down") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready = %d, want 503", w.Code)
	}
}

func TestAuthRoutesMounted(t *testing.T) {
	r := newRouterForTest(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/pin-status", nil)
	req.Header.Set("X-Client-Key", "router-test")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("pin-status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown route = %d, want 404", w.Code)
	}
}
