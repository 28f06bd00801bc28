package store

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

const (
	busyRetries   = 3
	busyBaseDelay = 100 * time.Millisecond
)

// isConflict reports whether err is SQLITE_BUSY or "database is locked".
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// withBusyRetry runs fn, retrying lock conflicts with exponential backoff
// (100ms, 200ms).
func withBusyRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for i := 0; i < busyRetries; i++ {
		if err = fn(); err == nil || !isConflict(err) {
			return err
		}
		if i == busyRetries-1 {
			break
		}
		delay := busyBaseDelay * time.Duration(1<<i)
		slog.Debug("SQLite busy, retrying", "op", op, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
