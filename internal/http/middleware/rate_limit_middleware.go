package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fieldserve/pingate/internal/http/response"
	"github.com/fieldserve/pingate/internal/security"
)

// ClientKeyHeader lets clients present a stable identity for attempt
// budgeting, independent of their network address.
const ClientKeyHeader = "X-Client-Key"

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

type FailureMode string

const (
	FailOpen   FailureMode = "fail_open"
	FailClosed FailureMode = "fail_closed"
)

type fixedWindow struct {
	count       int
	windowStart time.Time
}

type localFixedWindowLimiter struct {
	mu      sync.Mutex
	store   map[string]*fixedWindow
	cleanup time.Time
}

type RateLimiter struct {
	limiter Limiter
	limit   int
	window  time.Duration
	mode    FailureMode
	scope   string
	keyFunc func(r *http.Request) string
	bypass  BypassEvaluator
}

func NewLocalFixedWindowLimiter() Limiter {
	return &localFixedWindowLimiter{
		store:   make(map[string]*fixedWindow),
		cleanup: time.Now().Add(time.Minute),
	}
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return NewRateLimiterWith(NewLocalFixedWindowLimiter(), limit, window, FailClosed, "local", nil, nil)
}

func NewRateLimiterWith(
	limiter Limiter,
	limit int,
	window time.Duration,
	mode FailureMode,
	scope string,
	keyFunc func(r *http.Request) string,
	bypass BypassEvaluator,
) *RateLimiter {
	if scope == "" {
		scope = "pin"
	}
	if keyFunc == nil {
		keyFunc = clientIPKey
	}
	return &RateLimiter{
		limiter: limiter,
		limit:   limit,
		window:  window,
		mode:    mode,
		scope:   scope,
		keyFunc: keyFunc,
		bypass:  bypass,
	}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.bypass != nil {
				if ok, reason := rl.bypass(r); ok {
					slog.Debug("rate limit bypassed", "scope", rl.scope, "reason", reason)
					next.ServeHTTP(w, r)
					return
				}
			}
			key := rl.keyFunc(r)
			if key == "" {
				key = clientIPKey(r)
			}
			allowed, retryAfter, err := rl.limiter.Allow(r.Context(), key, rl.limit, rl.window)
			if err != nil {
				if rl.mode == FailOpen {
					slog.Warn("rate limiter backend unavailable, allowing request",
						"scope", rl.scope,
						"mode", string(rl.mode),
						"error", err.Error(),
					)
					next.ServeHTTP(w, r)
					return
				}
				w.Header().Set("Retry-After", retryAfterHeader(rl.window))
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", retryAfterHeader(retryAfter))
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientKeyOrIPKeyFunc keys requests by the X-Client-Key header, then by the
// client key baked into a valid session cookie, then by remote IP.
func ClientKeyOrIPKeyFunc(jwtMgr *security.JWTManager) func(r *http.Request) string {
	return func(r *http.Request) string {
		if key := strings.TrimSpace(r.Header.Get(ClientKeyHeader)); key != "" {
			return "ck:" + key
		}
		if jwtMgr != nil {
			if raw := security.GetCookie(r, security.SessionCookieName); raw != "" {
				if claims, err := jwtMgr.ParseSessionToken(raw); err == nil && claims.ClientKey != "" {
					return "ck:" + claims.ClientKey
				}
			}
		}
		return clientIPKey(r)
	}
}

func (rl *localFixedWindowLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.After(rl.cleanup) {
		for k, v := range rl.store {
			if now.Sub(v.windowStart) > 2*window {
				delete(rl.store, k)
			}
		}
		rl.cleanup = now.Add(window)
	}

	entry, ok := rl.store[key]
	if !ok || now.Sub(entry.windowStart) >= window {
		rl.store[key] = &fixedWindow{count: 1, windowStart: now}
		return true, 0, nil
	}
	if entry.count >= limit {
		retryAfter := window - now.Sub(entry.windowStart)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return false, retryAfter, nil
	}
	entry.count++
	return true, 0, nil
}

func clientIPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func retryAfterHeader(d time.Duration) string {
	if d <= 0 {
		return "1"
	}
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return fmt.Sprintf("%d", seconds)
}
