package store

import (
	"context"
	"log/slog"
	"time"
)

// StartRetention deletes events older than retention every interval until
// ctx is done. It is a no-op when retention is not positive.
func StartRetention(ctx context.Context, repo Repository, retention, interval time.Duration, logger *slog.Logger) {
	if retention <= 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := repo.CleanupEvents(ctx, retention)
				if err != nil {
					logger.Error("Transcript cleanup failed", "error", err)
					continue
				}
				if n > 0 {
					logger.Info("Transcript cleanup removed events", "count", n)
				}
			}
		}
	}()
}
