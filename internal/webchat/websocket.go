package webchat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/ashureev/careerbot/internal/dispatch"
	"github.com/ashureev/careerbot/internal/domain"
	"github.com/ashureev/careerbot/internal/identity"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	writeTimeout    = 10 * time.Second
	maxMessageBytes = 16 << 10
)

// Frame is the JSON envelope in both directions.
type Frame struct {
	Type     string `json:"type"`
	Content  string `json:"content,omitempty"`
	Markdown bool   `json:"markdown,omitempty"`
}

// Handler upgrades /ws/chat requests and runs the chat loop.
type Handler struct {
	conv           dispatch.Conversation
	conns          *ConnManager
	allowedOrigins []string
	isDev          bool
	logger         *slog.Logger
}

// NewHandler creates a new WebSocket chat handler.
func NewHandler(conv dispatch.Conversation, conns *ConnManager, allowedOrigins []string, isDev bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		conv:           conv,
		conns:          conns,
		allowedOrigins: allowedOrigins,
		isDev:          isDev,
		logger:         logger,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	h.logger.Info("WebSocket connection request", "user_id", userID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	ws.SetReadLimit(maxMessageBytes)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	h.conns.Register(userID, ws)
	defer h.conns.Unregister(userID, ws)

	h.readLoop(r.Context(), ws, userID)
	h.logger.Info("Web chat session ended", "user_id", userID)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(h.allowedOrigins, "*") || slices.Contains(h.allowedOrigins, origin) {
		return true
	}
	h.logger.Warn("WebSocket origin rejected", "origin", origin)
	return false
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, userID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				h.logger.Debug("WebSocket closed by client", "user_id", userID)
			} else if ctx.Err() == nil {
				h.logger.Debug("WebSocket read ended", "error", err, "user_id", userID)
			}
			return
		}
		if h.conns.GetActive(userID) != ws {
			h.logger.Debug("Dropping frame from replaced connection", "user_id", userID)
			return
		}

		var in Frame
		if err := json.Unmarshal(data, &in); err != nil {
			if err := h.write(ctx, ws, Frame{Type: "error", Content: "malformed frame"}); err != nil {
				return
			}
			continue
		}

		var out []Frame
		switch in.Type {
		case "ping":
			out = []Frame{{Type: "pong"}}
		case "start":
			out = h.converse(ctx, userID, func() ([]Frame, error) {
				replies, err := h.conv.Start(ctx, userID)
				return toFrames(replies), err
			})
		case "message":
			out = h.converse(ctx, userID, func() ([]Frame, error) {
				replies, err := h.conv.Handle(ctx, userID, in.Content)
				return toFrames(replies), err
			})
		default:
			out = []Frame{{Type: "error", Content: "unknown frame type"}}
		}

		for _, f := range out {
			if err := h.write(ctx, ws, f); err != nil {
				h.logger.Debug("WebSocket write failed", "error", err, "user_id", userID)
				return
			}
		}
	}
}

// converse runs fn and logs a failure; nothing is sent when it fails.
func (h *Handler) converse(ctx context.Context, userID string, fn func() ([]Frame, error)) []Frame {
	frames, err := fn()
	if err != nil {
		if ctx.Err() == nil {
			h.logger.Error("Conversation failed", "user_id", userID, "error", err)
		}
		return nil
	}
	return frames
}

func (h *Handler) write(ctx context.Context, ws *websocket.Conn, f Frame) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, f)
}

func toFrames(replies []domain.Reply) []Frame {
	frames := make([]Frame, 0, len(replies))
	for _, r := range replies {
		frames = append(frames, Frame{Type: "reply", Content: r.Text, Markdown: r.Markdown})
	}
	return frames
}
