// Package dispatch routes each user message through the session state machine.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/careerbot/internal/chat"
	"github.com/ashureev/careerbot/internal/domain"
	"github.com/ashureev/careerbot/internal/quiz"
	"github.com/ashureev/careerbot/internal/session"
)

// Conversation is what transports talk to.
type Conversation interface {
	// Start resets the user to the menu.
	Start(ctx context.Context, userID string) ([]domain.Reply, error)
	// Handle processes one text message and returns the replies in send order.
	Handle(ctx context.Context, userID, text string) ([]domain.Reply, error)
}

// Recorder receives an audit trail of the conversation.
type Recorder interface {
	RecordEvent(ctx context.Context, ev domain.ConversationEvent) error
	RecordResult(ctx context.Context, res domain.InventoryResult) error
}

type noopRecorder struct{}

func (noopRecorder) RecordEvent(context.Context, domain.ConversationEvent) error { return nil }
func (noopRecorder) RecordResult(context.Context, domain.InventoryResult) error { return nil }

// Dispatcher implements Conversation on top of a session store.
type Dispatcher struct {
	store    session.Store
	engine   *quiz.Engine
	chat     *chat.Manager
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

var _ Conversation = (*Dispatcher)(nil)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRecorder sets where events and results are written.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// New creates a Dispatcher.
func New(store session.Store, engine *quiz.Engine, chatMgr *chat.Manager, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		engine:   engine,
		chat:     chatMgr,
		recorder: noopRecorder{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start resets the session to the menu whatever its state.
func (d *Dispatcher) Start(ctx context.Context, userID string) ([]domain.Reply, error) {
	var from domain.Mode
	err := d.store.Update(ctx, userID, func(s *domain.Session) error {
		from = s.Mode()
		s.Reset()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	replies := []domain.Reply{domain.Markdown(menuText)}
	d.logger.Info("Session started", "user_id", userID, "from", from.String())
	d.recordEvents(ctx, userID, "/start", from, domain.ModeChoice, replies)
	return replies, nil
}

// Handle routes text according to the user's current mode.
func (d *Dispatcher) Handle(ctx context.Context, userID, text string) ([]domain.Reply, error) {
	input := strings.TrimSpace(text)

	var (
		replies  []domain.Reply
		result   *domain.InventoryResult
		from, to domain.Mode
	)
	err := d.store.Update(ctx, userID, func(s *domain.Session) error {
		from = s.Mode()
		replies, result = d.step(ctx, s, input)
		to = s.Mode()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("handle message: %w", err)
	}

	d.logger.Info("Message handled",
		"user_id", userID,
		"mode", from.String(),
		"transition", from.String()+"->"+to.String(),
		"replies", len(replies),
	)
	d.recordEvents(ctx, userID, input, from, to, replies)
	if result != nil {
		if err := d.recorder.RecordResult(ctx, *result); err != nil {
			d.logger.Warn("Failed to record inventory result", "user_id", userID, "error", err)
		}
	}
	return replies, nil
}

// step mutates s and returns the replies plus a result when an inventory finished.
func (d *Dispatcher) step(ctx context.Context, s *domain.Session, input string) ([]domain.Reply, *domain.InventoryResult) {
	switch st := s.State.(type) {
	case domain.ChoiceState:
		return d.choose(s, input), nil
	case domain.ChatState:
		next, reply := d.chat.Turn(ctx, s.UserID, st, input)
		s.State = next
		return []domain.Reply{domain.Plain(reply)}, nil
	case domain.InventoryState:
		return d.answer(s, st, input)
	default:
		d.logger.Error("Session in unknown state, resetting", "user_id", s.UserID)
		s.Reset()
		return []domain.Reply{domain.Markdown(choicePrompt)}, nil
	}
}

func (d *Dispatcher) choose(s *domain.Session, input string) []domain.Reply {
	choice := strings.ToLower(input)
	switch choice {
	case "chat":
		s.State = domain.ChatState{}
		return []domain.Reply{domain.Plain(chatAckText)}
	case domain.InventoryPersonality.Keyword(), domain.InventoryMotivation.Keyword():
		kind, err := domain.ParseInventoryKind(choice)
		if err != nil {
			return []domain.Reply{domain.Markdown(choicePrompt)}
		}
		st, q, err := d.engine.Start(kind)
		if err != nil {
			d.logger.Error("Failed to start inventory", "user_id", s.UserID, "kind", kind.String(), "error", err)
			return []domain.Reply{domain.Markdown(choicePrompt)}
		}
		s.State = st
		return []domain.Reply{domain.Plain(q.Prompt)}
	default:
		return []domain.Reply{domain.Markdown(choicePrompt)}
	}
}

func (d *Dispatcher) answer(s *domain.Session, st domain.InventoryState, input string) ([]domain.Reply, *domain.InventoryResult) {
	var yes bool
	switch strings.ToLower(input) {
	case "yes":
		yes = true
	case "no":
	default:
		return []domain.Reply{domain.Plain(yesNoPrompt)}, nil
	}

	step, err := d.engine.Answer(st, yes)
	if err != nil {
		d.logger.Error("Inventory state invalid, resetting", "user_id", s.UserID, "error", err)
		s.Reset()
		return []domain.Reply{domain.Markdown(choicePrompt)}, nil
	}
	if !step.Done {
		s.State = step.State
		return []domain.Reply{domain.Plain(step.Next.Prompt)}, nil
	}

	s.Reset()
	title := st.Kind.String()
	if b, err := d.engine.Bank(st.Kind); err == nil && b.Title != "" {
		title = b.Title
	}

	var summary domain.Reply
	if len(step.Top) == 0 {
		summary = domain.Plain(fmt.Sprintf(noResultFormat, title))
	} else {
		summary = domain.Markdown(fmt.Sprintf(completedFormat, title, strings.Join(step.Top, ", ")))
	}
	result := &domain.InventoryResult{
		UserID:      s.UserID,
		Kind:        st.Kind,
		Top:         step.Top,
		Scores:      step.State.Scores,
		CompletedAt: d.now(),
	}
	return []domain.Reply{summary, domain.Markdown(continuePrompt)}, result
}

func (d *Dispatcher) recordEvents(ctx context.Context, userID, input string, from, to domain.Mode, replies []domain.Reply) {
	now := d.now()
	transport := transportOf(userID)
	events := make([]domain.ConversationEvent, 0, len(replies)+1)
	events = append(events, domain.ConversationEvent{
		UserID:    userID,
		Transport: transport,
		Direction: domain.DirectionInbound,
		Mode:      from.String(),
		Text:      input,
		CreatedAt: now,
	})
	for _, r := range replies {
		events = append(events, domain.ConversationEvent{
			UserID:    userID,
			Transport: transport,
			Direction: domain.DirectionOutbound,
			Mode:      to.String(),
			Text:      r.Text,
			CreatedAt: now,
		})
	}
	for _, ev := range events {
		if err := d.recorder.RecordEvent(ctx, ev); err != nil {
			d.logger.Warn("Failed to record conversation event", "user_id", userID, "error", err)
			return
		}
	}
}

// transportOf returns the prefix of a transport-scoped user id ("tg:42" -> "tg").
func transportOf(userID string) string {
	if i := strings.IndexByte(userID, ':'); i > 0 {
		return userID[:i]
	}
	return "unknown"
}
