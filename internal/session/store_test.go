package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/careerbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestGetOrCreateDefaultsToChoice(t *testing.T) {
	s := NewMemoryStore(4)

	sess, err := s.GetOrCreate(context.Background(), "tg:1")
	require.NoError(t, err)
	assert.Equal(t, "tg:1", sess.UserID)
	assert.Equal(t, domain.ModeChoice, sess.Mode())
	assert.Equal(t, 1, s.Len())
}

func TestGetOrCreateReturnsCopy(t *testing.T) {
	s := NewMemoryStore(4)
	ctx := context.Background()

	sess, err := s.GetOrCreate(ctx, "tg:1")
	require.NoError(t, err)
	sess.State = domain.ChatState{}

	again, err := s.GetOrCreate(ctx, "tg:1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeChoice, again.Mode())
}

func TestPutOverwrites(t *testing.T) {
	s := NewMemoryStore(4)
	ctx := context.Background()

	sess := domain.NewSession("tg:1", time.Now())
	sess.State = domain.InventoryState{Kind: domain.InventoryMotivation, Progress: 3, Scores: map[string]int{"Autonomy": 1}}
	require.NoError(t, s.Put(ctx, sess))
	require.NoError(t, s.Put(ctx, sess))

	got, err := s.GetOrCreate(ctx, "tg:1")
	require.NoError(t, err)
	inv, ok := got.State.(domain.InventoryState)
	require.True(t, ok)
	assert.Equal(t, 3, inv.Progress)
	assert.Equal(t, 1, s.Len())
}

func TestUpdateDiscardsOnError(t *testing.T) {
	s := NewMemoryStore(4)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Update(ctx, "tg:1", func(sess *domain.Session) error {
		sess.State = domain.ChatState{}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GetOrCreate(ctx, "tg:1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeChoice, got.Mode())
}

func TestUpdateSerializesSameUser(t *testing.T) {
	s := NewMemoryStore(4)
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(ctx, "tg:1", func(sess *domain.Session) error {
				chat, _ := sess.State.(domain.ChatState)
				chat.History = append(chat.History, domain.Turn{Role: domain.RoleUser, Text: "x"})
				sess.State = chat
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetOrCreate(ctx, "tg:1")
	require.NoError(t, err)
	assert.Len(t, got.State.(domain.ChatState).History, workers)
}

func TestUpdateDoesNotBlockOtherUsers(t *testing.T) {
	s := NewMemoryStore(1) // same shard for everyone
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Update(ctx, "slow", func(*domain.Session) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	fastCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, s.Update(fastCtx, "fast", func(*domain.Session) error { return nil }))

	// The slow user's own second update waits for the lock and honours ctx.
	waitCtx, cancelWait := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancelWait()
	err := s.Update(waitCtx, "slow", func(*domain.Session) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-done)
}

func TestEvictIdle(t *testing.T) {
	s := NewMemoryStore(4)
	ctx := context.Background()
	now := time.Now()
	s.now = func() time.Time { return now }

	for i := range 3 {
		_, err := s.GetOrCreate(ctx, "user-"+strconv.Itoa(i))
		require.NoError(t, err)
	}
	now = now.Add(time.Hour)
	_, err := s.GetOrCreate(ctx, "user-0")
	require.NoError(t, err)

	evicted := s.EvictIdle(30 * time.Minute)
	assert.Equal(t, 2, evicted)
	assert.Equal(t, 1, s.Len())
}

func TestEvictIdleSkipsLockedSessions(t *testing.T) {
	s := NewMemoryStore(4)
	ctx := context.Background()
	now := time.Now()
	s.now = func() time.Time { return now }

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Update(ctx, "busy", func(*domain.Session) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	now = now.Add(time.Hour)
	assert.Equal(t, 0, s.EvictIdle(time.Minute))

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, s.Len())
}

func TestJanitorStopsWithContext(t *testing.T) {
	s := NewMemoryStore(4)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := s.GetOrCreate(ctx, "user")
	require.NoError(t, err)

	s.StartJanitor(ctx, time.Nanosecond, 5*time.Millisecond, nil)
	require.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
}

func TestJanitorDisabled(t *testing.T) {
	s := NewMemoryStore(4)
	s.StartJanitor(context.Background(), 0, time.Millisecond, nil)
}
