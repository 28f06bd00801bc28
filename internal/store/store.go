// Package store persists the conversation transcript and inventory results.
package store

import (
	"context"
	"time"

	"github.com/ashureev/careerbot/internal/domain"
)

// Repository is the transcript store. Sessions are never rebuilt from it.
type Repository interface {
	// RecordEvent appends one inbound or outbound message.
	RecordEvent(ctx context.Context, ev domain.ConversationEvent) error

	// RecordResult stores a completed inventory.
	RecordResult(ctx context.Context, res domain.InventoryResult) error

	// ListResults returns the user's most recent results, newest first.
	ListResults(ctx context.Context, userID string, limit int) ([]domain.InventoryResult, error)

	// CleanupEvents removes events older than the retention window.
	CleanupEvents(ctx context.Context, olderThan time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
