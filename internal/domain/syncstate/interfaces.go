package syncstate

import (
	"context"
	"time"
)

// Repository persists the sync metadata singleton.
type Repository interface {
	// Get returns the zero Metadata when no sync has ever run.
	Get(ctx context.Context) (Metadata, error)
	// MarkStarted sets sync_in_progress, creating the row if absent.
	MarkStarted(ctx context.Context) error
	// MarkFinished clears sync_in_progress. A non-nil completedAt becomes
	// the new last_sync_time.
	MarkFinished(ctx context.Context, completedAt *time.Time) error
}
