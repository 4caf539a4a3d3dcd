package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// ErrorScopeHeader marks a request whose failures the caller handles itself.
// Expected failures (a wrong PIN is one) arrive with "local" and are logged
// at debug instead of warn.
const ErrorScopeHeader = "X-Error-Scope"

func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", chimiddleware.GetReqID(r.Context()),
			}
			switch {
			case ww.Status() >= 500:
				logger.Error("request", attrs...)
			case ww.Status() >= 400 && !localErrorScope(r):
				logger.Warn("request", attrs...)
			default:
				logger.Debug("request", attrs...)
			}
		})
	}
}

func localErrorScope(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get(ErrorScopeHeader)), "local")
}
