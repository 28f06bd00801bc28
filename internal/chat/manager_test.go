package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ashureev/careerbot/internal/agent"
	"github.com/ashureev/careerbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	replies []string
	errs    []error
	calls   [][]domain.Turn
}

func (f *fakeCompleter) Complete(_ context.Context, _ string, turns []domain.Turn) (string, error) {
	i := len(f.calls)
	f.calls = append(f.calls, append([]domain.Turn(nil), turns...))
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return fmt.Sprintf("reply %d", i), nil
}

func TestTurnPrependsSystemPrompt(t *testing.T) {
	c := &fakeCompleter{replies: []string{"What do you study?"}}
	m := NewManager(c)

	st, reply := m.Turn(context.Background(), "tg:1", domain.ChatState{}, "I need advice")
	assert.Equal(t, "What do you study?", reply)

	require.Len(t, c.calls, 1)
	sent := c.calls[0]
	require.Len(t, sent, 2)
	assert.Equal(t, domain.Turn{Role: domain.RoleSystem, Text: DefaultSystemPrompt}, sent[0])
	assert.Equal(t, domain.Turn{Role: domain.RoleUser, Text: "I need advice"}, sent[1])

	assert.Equal(t, []domain.Turn{
		{Role: domain.RoleUser, Text: "I need advice"},
		{Role: domain.RoleAssistant, Text: "What do you study?"},
	}, st.History)
}

func TestTurnWindowAndTransientEleven(t *testing.T) {
	c := &fakeCompleter{}
	m := NewManager(c)

	st := domain.ChatState{}
	for i := range 8 {
		st, _ = m.Turn(context.Background(), "tg:1", st, fmt.Sprintf("msg %d", i))
		// Window is applied to user turn + previous history, then the reply is appended.
		assert.LessOrEqual(t, len(st.History), DefaultHistoryLimit+1)

		sent := c.calls[len(c.calls)-1]
		assert.LessOrEqual(t, len(sent)-1, DefaultHistoryLimit, "payload history above the window")
		assert.Equal(t, domain.RoleSystem, sent[0].Role)
	}
	assert.Len(t, st.History, DefaultHistoryLimit+1)

	// Oldest turns were dropped first.
	last := c.calls[len(c.calls)-1]
	assert.Equal(t, "msg 7", last[len(last)-1].Text)
	assert.Equal(t, domain.RoleAssistant, st.History[len(st.History)-1].Role)
	assert.Equal(t, "reply 2", st.History[0].Text)
}

func TestTurnFailureKeepsUserTurn(t *testing.T) {
	c := &fakeCompleter{errs: []error{fmt.Errorf("wrapped: %w", context.DeadlineExceeded)}}
	m := NewManager(c)

	st, reply := m.Turn(context.Background(), "tg:1", domain.ChatState{}, "hello?")
	assert.Contains(t, reply, "⚠️ Error")
	assert.Equal(t, []domain.Turn{{Role: domain.RoleUser, Text: "hello?"}}, st.History)

	// The next turn succeeds normally and sees the earlier user turn.
	st, reply = m.Turn(context.Background(), "tg:1", st, "still there?")
	assert.Equal(t, "reply 1", reply)
	require.Len(t, st.History, 3)
	assert.Equal(t, "hello?", st.History[0].Text)
	assert.Equal(t, "still there?", st.History[1].Text)

	require.Len(t, c.calls, 2)
	assert.Equal(t, []domain.Turn{
		{Role: domain.RoleSystem, Text: DefaultSystemPrompt},
		{Role: domain.RoleUser, Text: "hello?"},
		{Role: domain.RoleUser, Text: "still there?"},
	}, c.calls[1])
	for _, turn := range st.History {
		assert.NotContains(t, turn.Text, "⚠️ Error")
	}
}

func TestTurnDoesNotMutateInput(t *testing.T) {
	c := &fakeCompleter{}
	m := NewManager(c)

	in := domain.ChatState{History: make([]domain.Turn, 0, 16)}
	in.History = append(in.History, domain.Turn{Role: domain.RoleUser, Text: "a"})
	_, _ = m.Turn(context.Background(), "tg:1", in, "b")
	assert.Len(t, in.History, 1)
}

func TestOptions(t *testing.T) {
	m := NewManager(&fakeCompleter{}, WithHistoryLimit(4), WithSystemPrompt("be brief"), WithHistoryLimit(0))
	assert.Equal(t, 4, m.HistoryLimit())
	assert.Equal(t, "be brief", m.systemPrompt)
}

func TestDiagnostic(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, "took too long"},
		{context.Canceled, "cancelled"},
		{agent.ErrEmptyCompletion, "empty answer"},
		{errors.New("401"), "unavailable"},
	}
	for _, tt := range tests {
		assert.Contains(t, Diagnostic(tt.err), tt.want)
	}
}
