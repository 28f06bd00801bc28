// Package chat keeps the bounded history of chat-mode sessions and builds
// the request sent to the text-generation service.
package chat

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ashureev/careerbot/internal/agent"
	"github.com/ashureev/careerbot/internal/domain"
)

// DefaultHistoryLimit is the number of turns kept before a new user turn is sent.
const DefaultHistoryLimit = 10

// DefaultSystemPrompt steers the assistant toward clarifying questions.
const DefaultSystemPrompt = "You are a thoughtful career assistant AI." +
	" Ask several clarifying questions before making any career suggestions." +
	" Your goal is to understand the user well before giving advice."

// Completer produces the assistant's reply for an ordered conversation.
type Completer interface {
	Complete(ctx context.Context, userID string, turns []domain.Turn) (string, error)
}

// Manager runs chat turns.
type Manager struct {
	completer    Completer
	limit        int
	systemPrompt string
	logger       *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithHistoryLimit sets how many turns are kept when a user turn is added.
func WithHistoryLimit(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.limit = n
		}
	}
}

// WithSystemPrompt replaces the default system instruction.
func WithSystemPrompt(prompt string) Option {
	return func(m *Manager) {
		if prompt != "" {
			m.systemPrompt = prompt
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager that sends conversations to c.
func NewManager(c Completer, opts ...Option) *Manager {
	m := &Manager{
		completer:    c,
		limit:        DefaultHistoryLimit,
		systemPrompt: DefaultSystemPrompt,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HistoryLimit returns the configured window size.
func (m *Manager) HistoryLimit() int {
	return m.limit
}

// Turn appends text as a user turn, trims the history to the window, asks
// the completer for a reply and appends it. The reply is not followed by a
// second trim, so the history can hold limit+1 turns between messages.
//
// A completer failure never escapes: the reply is a diagnostic, the user
// turn stays in the history and no assistant turn is added.
func (m *Manager) Turn(ctx context.Context, userID string, st domain.ChatState, text string) (domain.ChatState, string) {
	history := make([]domain.Turn, 0, len(st.History)+2)
	history = append(history, st.History...)
	history = append(history, domain.Turn{Role: domain.RoleUser, Text: text})
	if len(history) > m.limit {
		history = history[len(history)-m.limit:]
	}

	turns := make([]domain.Turn, 0, len(history)+1)
	turns = append(turns, domain.Turn{Role: domain.RoleSystem, Text: m.systemPrompt})
	turns = append(turns, history...)

	reply, err := m.completer.Complete(ctx, userID, turns)
	if err != nil {
		m.logger.Warn("Chat turn failed", "user_id", userID, "history", len(history), "error", err)
		// The diagnostic stays out of the history; the next request carries two user turns in a row.
		return domain.ChatState{History: history}, Diagnostic(err)
	}

	history = append(history, domain.Turn{Role: domain.RoleAssistant, Text: reply})
	return domain.ChatState{History: history}, reply
}

// Diagnostic turns a completer error into the text shown to the user.
func Diagnostic(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "⚠️ Error: the assistant took too long to answer. Please try again."
	case errors.Is(err, context.Canceled):
		return "⚠️ Error: the request was cancelled."
	case errors.Is(err, agent.ErrEmptyCompletion):
		return "⚠️ Error: the assistant returned an empty answer. Please rephrase and try again."
	default:
		return "⚠️ Error: the assistant is unavailable right now. Please try again later."
	}
}
