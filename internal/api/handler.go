// Package api provides HTTP handlers for the careerbot API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ashureev/careerbot/internal/dispatch"
	"github.com/ashureev/careerbot/internal/domain"
	"github.com/ashureev/careerbot/internal/identity"
	"github.com/go-chi/chi/v5"
)

const maxMessageBytes = 16 << 10

// ResultLister returns a user's completed inventories, newest first.
type ResultLister interface {
	ListResults(ctx context.Context, userID string, limit int) ([]domain.InventoryResult, error)
}

// Handler serves the conversation endpoints for web users.
type Handler struct {
	conv    dispatch.Conversation
	results ResultLister
	logger  *slog.Logger
}

// NewHandler creates a Handler. results may be nil when no transcript store is configured.
func NewHandler(conv dispatch.Conversation, results ResultLister, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{conv: conv, results: results, logger: logger}
}

// RegisterRoutes registers the conversation routes. The identity middleware
// must run before them.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/start", h.Start)
		r.Post("/messages", h.Message)
		r.Get("/results", h.Results)
	})
}

type messageRequest struct {
	Message string `json:"message"`
}

type repliesResponse struct {
	Replies []domain.Reply `json:"replies"`
}

// Start resets the caller's session and returns the menu.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	replies, err := h.conv.Start(r.Context(), userID)
	if err != nil {
		h.fail(w, userID, "start", err)
		return
	}
	JSON(w, http.StatusOK, repliesResponse{Replies: replies})
}

// Message handles one user message.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req messageRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err := dec.Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	replies, err := h.conv.Handle(r.Context(), userID, req.Message)
	if err != nil {
		h.fail(w, userID, "message", err)
		return
	}
	JSON(w, http.StatusOK, repliesResponse{Replies: replies})
}

// Results lists the caller's completed inventories.
func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.results == nil {
		Error(w, http.StatusNotFound, "results are not recorded on this server")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	results, err := h.results.ListResults(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("Failed to list results", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list results")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) fail(w http.ResponseWriter, userID, op string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		h.logger.Warn("Request ended before session was available", "user_id", userID, "op", op, "error", err)
		Error(w, http.StatusServiceUnavailable, "session busy, try again")
		return
	}
	h.logger.Error("Conversation failed", "user_id", userID, "op", op, "error", err)
	Error(w, http.StatusInternalServerError, "failed to handle message")
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
