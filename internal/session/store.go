// Package session keeps per-user conversation state in process memory.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/ashureev/careerbot/internal/domain"
	"github.com/cespare/xxhash/v2"
)

const defaultShards = 32

// Store owns every Session. Implementations serialize access per user.
type Store interface {
	// GetOrCreate returns a copy of the user's session, creating a
	// Choice-mode session on first contact.
	GetOrCreate(ctx context.Context, userID string) (*domain.Session, error)

	// Put overwrites the user's session.
	Put(ctx context.Context, s *domain.Session) error

	// Update runs fn on a copy of the user's session while holding that
	// user's lock. The copy is stored only when fn returns nil.
	Update(ctx context.Context, userID string, fn func(*domain.Session) error) error

	// Delete drops the user's session.
	Delete(userID string)

	// Len reports the number of sessions held.
	Len() int
}

// entry guards one session. lock is a one-slot channel so waiting for it
// can be abandoned when the caller's context ends.
type entry struct {
	lock     chan struct{}
	session  *domain.Session
	lastUsed time.Time
}

func newEntry(userID string, now time.Time) *entry {
	return &entry{
		lock:     make(chan struct{}, 1),
		session:  domain.NewSession(userID, now),
		lastUsed: now,
	}
}

func (e *entry) acquire(ctx context.Context) error {
	select {
	case e.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *entry) tryAcquire() bool {
	select {
	case e.lock <- struct{}{}:
		return true
	default:
		return false
	}
}

func (e *entry) release() {
	<-e.lock
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// MemoryStore is a sharded in-memory Store. The shard lock only covers map
// access; a slow Update for one user never blocks another user.
type MemoryStore struct {
	shards []*shard
	now    func() time.Time
}

// NewMemoryStore creates a store with n shards (32 when n <= 0).
func NewMemoryStore(n int) *MemoryStore {
	if n <= 0 {
		n = defaultShards
	}
	s := &MemoryStore{
		shards: make([]*shard, n),
		now:    time.Now,
	}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return s
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) shardFor(userID string) *shard {
	return s.shards[xxhash.Sum64String(userID)%uint64(len(s.shards))]
}

func (s *MemoryStore) entryFor(userID string) *entry {
	sh := s.shardFor(userID)

	sh.mu.RLock()
	e, ok := sh.entries[userID]
	sh.mu.RUnlock()
	if ok {
		return e
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok := sh.entries[userID]; ok {
		return e
	}
	e = newEntry(userID, s.now())
	sh.entries[userID] = e
	return e
}

// lockEntry acquires the user's entry lock. The janitor may remove an idle
// entry between lookup and acquisition; lockEntry retries with a fresh entry
// so callers never write into an orphan.
func (s *MemoryStore) lockEntry(ctx context.Context, userID string) (*entry, error) {
	for {
		e := s.entryFor(userID)
		if err := e.acquire(ctx); err != nil {
			return nil, err
		}
		sh := s.shardFor(userID)
		sh.mu.RLock()
		current := sh.entries[userID]
		sh.mu.RUnlock()
		if current == e {
			return e, nil
		}
		e.release()
	}
}

// GetOrCreate implements Store.
func (s *MemoryStore) GetOrCreate(ctx context.Context, userID string) (*domain.Session, error) {
	e, err := s.lockEntry(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer e.release()
	e.lastUsed = s.now()
	return e.session.Clone(), nil
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, sess *domain.Session) error {
	e, err := s.lockEntry(ctx, sess.UserID)
	if err != nil {
		return err
	}
	defer e.release()
	now := s.now()
	stored := sess.Clone()
	stored.UpdatedAt = now
	e.session = stored
	e.lastUsed = now
	return nil
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, userID string, fn func(*domain.Session) error) error {
	e, err := s.lockEntry(ctx, userID)
	if err != nil {
		return err
	}
	defer e.release()

	working := e.session.Clone()
	if err := fn(working); err != nil {
		e.lastUsed = s.now()
		return err
	}
	now := s.now()
	working.UserID = userID
	working.UpdatedAt = now
	e.session = working
	e.lastUsed = now
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(userID string) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	delete(sh.entries, userID)
	sh.mu.Unlock()
}

// Len implements Store.
func (s *MemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}
