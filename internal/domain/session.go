// Package domain contains core domain types for the career assistant.
package domain

import (
	"maps"
	"time"
)

// Mode identifies the interaction state a Session is in.
type Mode int

const (
	// ModeChoice waits for the user to pick chat, riasec or motivation.
	ModeChoice Mode = iota
	// ModeChat forwards every message to the text-generation service.
	ModeChat
	// ModeInventory runs a yes/no question sequence.
	ModeInventory
)

func (m Mode) String() string {
	switch m {
	case ModeChoice:
		return "choice"
	case ModeChat:
		return "chat"
	case ModeInventory:
		return "inventory"
	default:
		return "unknown"
	}
}

// State is the mode-specific part of a Session. The set of implementations
// is closed: ChoiceState, ChatState and InventoryState.
type State interface {
	Mode() Mode
	cloneState() State
}

// ChoiceState is the initial state. It carries no data.
type ChoiceState struct{}

// Mode implements State.
func (ChoiceState) Mode() Mode { return ModeChoice }

func (s ChoiceState) cloneState() State { return s }

// ChatState holds the bounded conversation history of a chat session.
type ChatState struct {
	History []Turn
}

// Mode implements State.
func (ChatState) Mode() Mode { return ModeChat }

func (s ChatState) cloneState() State {
	history := make([]Turn, len(s.History))
	copy(history, s.History)
	return ChatState{History: history}
}

// InventoryState tracks progress through a question bank.
// Scores only holds categories that received at least one "yes".
type InventoryState struct {
	Kind     InventoryKind
	Progress int
	Scores   map[string]int
}

// Mode implements State.
func (InventoryState) Mode() Mode { return ModeInventory }

func (s InventoryState) cloneState() State {
	scores := make(map[string]int, len(s.Scores))
	maps.Copy(scores, s.Scores)
	return InventoryState{Kind: s.Kind, Progress: s.Progress, Scores: scores}
}

// Session is the per-user conversation state.
type Session struct {
	UserID    string
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession returns a Session in Choice mode.
func NewSession(userID string, now time.Time) *Session {
	return &Session{
		UserID:    userID,
		State:     ChoiceState{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Mode returns the mode of the current state. A nil state counts as Choice.
func (s *Session) Mode() Mode {
	if s.State == nil {
		return ModeChoice
	}
	return s.State.Mode()
}

// Reset puts the session back into Choice mode.
func (s *Session) Reset() {
	s.State = ChoiceState{}
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	if s.State != nil {
		c.State = s.State.cloneState()
	}
	return &c
}
