package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/careerbot/internal/identity"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestLogger logs one line per request once the handler returns.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			logger.Debug("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote_ip", identity.IPFromRequest(r),
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}
