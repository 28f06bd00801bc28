package session

import (
	"context"
	"log/slog"
	"time"
)

// EvictIdle removes sessions unused for longer than ttl. Sessions whose lock
// is held are skipped and reconsidered on the next sweep.
func (s *MemoryStore) EvictIdle(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)
	evicted := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for userID, e := range sh.entries {
			if !e.tryAcquire() {
				continue
			}
			if e.lastUsed.Before(cutoff) {
				delete(sh.entries, userID)
				evicted++
			}
			e.release()
		}
		sh.mu.Unlock()
	}
	return evicted
}

// StartJanitor sweeps idle sessions every interval until ctx ends.
// A ttl <= 0 disables eviction and no goroutine is started.
func (s *MemoryStore) StartJanitor(ctx context.Context, ttl, interval time.Duration, logger *slog.Logger) {
	if ttl <= 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = ttl / 2
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		logger.Info("Session janitor started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if n := s.EvictIdle(ttl); n > 0 {
					logger.Info("Session janitor evicted idle sessions", "count", n, "remaining", s.Len())
				}
			case <-ctx.Done():
				logger.Info("Session janitor shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
