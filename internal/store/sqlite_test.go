package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/careerbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "data", "careerbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func countEvents(t *testing.T, s *SQLiteStore, userID string) int {
	t.Helper()
	var n int
	err := s.db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM conversation_events WHERE user_id = ?`, userID).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestNewSQLiteCreatesSchema(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
	// Schema creation is idempotent.
	require.NoError(t, s.initSchema())
}

func TestRecordAndListResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordResult(ctx, domain.InventoryResult{
		UserID:      "tg:1",
		Kind:        domain.InventoryPersonality,
		Top:         []string{"Social", "Investigative"},
		Scores:      map[string]int{"Social": 2, "Investigative": 1},
		CompletedAt: base,
	}))
	require.NoError(t, s.RecordResult(ctx, domain.InventoryResult{
		UserID:      "tg:1",
		Kind:        domain.InventoryMotivation,
		CompletedAt: base.Add(time.Minute),
	}))
	require.NoError(t, s.RecordResult(ctx, domain.InventoryResult{
		UserID: "tg:2",
		Kind:   domain.InventoryMotivation,
		Top:    []string{"Autonomy"},
	}))

	got, err := s.ListResults(ctx, "tg:1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, domain.InventoryMotivation, got[0].Kind)
	assert.Empty(t, got[0].Top)
	assert.Empty(t, got[0].Scores)
	assert.NotEmpty(t, got[0].ID)

	assert.Equal(t, domain.InventoryPersonality, got[1].Kind)
	assert.Equal(t, []string{"Social", "Investigative"}, got[1].Top)
	assert.Equal(t, map[string]int{"Social": 2, "Investigative": 1}, got[1].Scores)
	assert.True(t, base.Equal(got[1].CompletedAt))

	limited, err := s.ListResults(ctx, "tg:1", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, got[0].ID, limited[0].ID)

	none, err := s.ListResults(ctx, "tg:404", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func TestRecordEventAndCleanup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	for i, age := range []time.Duration{48 * time.Hour, 2 * time.Hour, 0} {
		require.NoError(t, s.RecordEvent(ctx, domain.ConversationEvent{
			UserID:    "tg:1",
			Transport: "tg",
			Direction: domain.DirectionInbound,
			Mode:      "chat",
			Text:      fmt.Sprintf("message %d", i),
			CreatedAt: now.Add(-age),
		}))
	}
	// Zero timestamp is stamped with the store clock.
	require.NoError(t, s.RecordEvent(ctx, domain.ConversationEvent{
		UserID:    "tg:1",
		Transport: "tg",
		Direction: domain.DirectionOutbound,
		Mode:      "chat",
		Text:      "reply",
	}))
	assert.Equal(t, 4, countEvents(t, s, "tg:1"))

	removed, err := s.CleanupEvents(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 3, countEvents(t, s, "tg:1"))
}

func TestRecordEventDuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ev := domain.ConversationEvent{ID: "fixed", UserID: "tg:1", Transport: "tg", Direction: domain.DirectionInbound, Mode: "choice", Text: "hi"}
	require.NoError(t, s.RecordEvent(ctx, ev))
	assert.Error(t, s.RecordEvent(ctx, ev))
}

func TestWithBusyRetry(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := withBusyRetry(ctx, "test", func() error {
		calls++
		if calls < 2 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	plain := errors.New("constraint failed")
	err = withBusyRetry(ctx, "test", func() error {
		calls++
		return plain
	})
	assert.ErrorIs(t, err, plain)
	assert.Equal(t, 1, calls)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err = withBusyRetry(cancelled, "test", func() error {
		return errors.New("SQLITE_BUSY")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsConflict(t *testing.T) {
	assert.False(t, isConflict(nil))
	assert.True(t, isConflict(errors.New("SQLITE_BUSY")))
	assert.True(t, isConflict(fmt.Errorf("exec: %w", errors.New("database is locked"))))
	assert.False(t, isConflict(errors.New("no such table")))
}
