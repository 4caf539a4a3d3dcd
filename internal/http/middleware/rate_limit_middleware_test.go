package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fieldserve/pingate/internal/security"
)

type stubLimiter struct {
	allow bool
	retry time.Duration
	err   error
}

func (s *stubLimiter) Allow(context.Context, string, int, time.Duration) (bool, time.Duration, error) {
	return s.allow, s.retry, s.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func doRequest(t *testing.T, rl *RateLimiter, remoteAddr string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/validate-pin", nil)
	req.RemoteAddr = remoteAddr
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	rl.Middleware()(okHandler()).ServeHTTP(w, req)
	return w
}

func TestLocalFixedWindowLimiterBlocksAfterLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	for i := 0; i < 2; i++ {
		if w := doRequest(t, rl, "10.0.0.1:1234", nil); w.Code != http.StatusOK {
			t.Fatalf("expected request %d allowed, got %d", i+1, w.Code)
		}
	}
	w := doRequest(t, rl, "10.0.0.1:1234", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	// A different client key keeps its own budget.
	if w := doRequest(t, rl, "10.0.0.2:1234", nil); w.Code != http.StatusOK {
		t.Fatalf("expected other address allowed, got %d", w.Code)
	}
}

func TestFailureModes(t *testing.T) {
	open := NewRateLimiterWith(&stubLimiter{err: errors.New("backend down")}, 1, time.Minute, FailOpen, "pin", nil, nil)
	if w := doRequest(t, open, "10.0.0.1:1", nil); w.Code != http.StatusOK {
		t.Fatalf("fail_open should allow, got %d", w.Code)
	}

	closed := NewRateLimiterWith(&stubLimiter{err: errors.New("backend down")}, 1, time.Minute, FailClosed, "pin", nil, nil)
	if w := doRequest(t, closed, "10.0.0.1:1", nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("fail_closed should reject, got %d", w.Code)
	}
}

func TestClientKeyOrIPKeyFunc(t *testing.T) {
	jwtMgr := security.NewJWTManager("iss", "aud", "abcdefghijklmnopqrstuvwxyz123456")
	keyFunc := ClientKeyOrIPKeyFunc(jwtMgr)

	req := httptest.NewRequest(http.MethodPost, "/auth/validate-pin", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if got := keyFunc(req); got != "10.0.0.1" {
		t.Fatalf("expected IP fallback, got %q", got)
	}

	req.Header.Set(ClientKeyHeader, "device-7")
	if got := keyFunc(req); got != "ck:device-7" {
		t.Fatalf("expected header key, got %q", got)
	}

	req.Header.Del(ClientKeyHeader)
	token, err := jwtMgr.SignSessionToken("sess-1", "device-9", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: token})
	if got := keyFunc(req); got != "ck:device-9" {
		t.Fatalf("expected cookie-derived key, got %q", got)
	}
}

func TestBypassEvaluatorSkipsLimiter(t *testing.T) {
	bypass := NewRequestBypassEvaluator(RequestBypassConfig{TrustedCIDRs: []string{"192.168.0.0/16"}})
	rl := NewRateLimiterWith(&stubLimiter{allow: false, retry: time.Second}, 1, time.Minute, FailClosed, "pin", nil, bypass)

	if w := doRequest(t, rl, "192.168.1.5:1234", nil); w.Code != http.StatusOK {
		t.Fatalf("expected trusted CIDR bypass, got %d", w.Code)
	}
	if w := doRequest(t, rl, "10.0.0.1:1234", nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected untrusted address limited, got %d", w.Code)
	}
}

func TestBypassEvaluatorProbePaths(t *testing.T) {
	bypass := NewRequestBypassEvaluator(RequestBypassConfig{EnableInternalProbeBypass: true})
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	if ok, reason := bypass(req); !ok || reason != "internal_probe_path" {
		t.Fatalf("expected probe bypass, got ok=%v reason=%q", ok, reason)
	}
	req = httptest.NewRequest(http.MethodGet, "/auth/pin-status", nil)
	if ok, _ := bypass(req); ok {
		t.Fatal("expected non-probe path to not bypass")
	}
}

func TestBypassEvaluatorNilWhenUnconfigured(t *testing.T) {
	if ev := NewRequestBypassEvaluator(RequestBypassConfig{}); ev != nil {
		t.Fatal("expected nil evaluator with empty config")
	}
}
