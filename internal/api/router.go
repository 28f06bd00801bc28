package api

import (
	"log/slog"

	"github.com/ashureev/careerbot/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter returns a chi router with the global middleware stack and the
// /health heartbeat installed.
func NewRouter(allowedOrigins []string, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(allowedOrigins))
	return r
}
