package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/fieldserve/pingate/internal/http/handler"
	"github.com/fieldserve/pingate/internal/http/middleware"
	"github.com/fieldserve/pingate/internal/http/response"
)

type Dependencies struct {
	Logger         *slog.Logger
	PinHandler     *handler.PinHandler
	PinRateLimiter *middleware.RateLimiter
	// Ready reports backend health for the readiness probe. nil means always
	// ready.
	Ready func(ctx context.Context) error
}

func New(dep Dependencies) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if dep.Logger != nil {
		r.Use(middleware.RequestLogger(dep.Logger))
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Ready != nil {
			if err := dep.Ready(r.Context()); err != nil {
				response.Error(w, r, http.StatusServiceUnavailable, "NOT_READY", "dependencies unavailable", nil)
				return
			}
		}
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/pin-status", dep.PinHandler.Status)
		r.Get("/session", dep.PinHandler.Session)
		r.Get("/pin-attempts", dep.PinHandler.Attempts)
		r.Post("/logout", dep.PinHandler.Logout)
		validate := r.With()
		if dep.PinRateLimiter != nil {
			validate = r.With(dep.PinRateLimiter.Middleware())
		}
		validate.Post("/validate-pin", dep.PinHandler.Validate)
	})

	return r
}
