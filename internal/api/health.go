package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Pinger checks a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports process and dependency health.
type HealthHandler struct {
	db       Pinger
	sessions func() int
	started  time.Time
}

// NewHealthHandler creates a HealthHandler. db may be nil when no transcript store is configured.
func NewHealthHandler(db Pinger, sessions func() int) *HealthHandler {
	return &HealthHandler{db: db, sessions: sessions, started: time.Now()}
}

// RegisterHealth registers the detailed health route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/api/health", h.Health)
}

// Health returns 200 when every configured dependency answers, 503 otherwise.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{
		"status":     "ok",
		"uptime_sec": int64(time.Since(h.started).Seconds()),
		"transcript": "disabled",
	}
	if h.sessions != nil {
		body["sessions"] = h.sessions()
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["transcript"] = "unreachable"
		} else {
			body["transcript"] = "ok"
		}
	}
	JSON(w, status, body)
}
