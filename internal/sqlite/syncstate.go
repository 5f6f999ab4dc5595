package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/traceback/internal/domain/syncstate"
)

// SyncStateRepository implements syncstate.Repository for SQLite
type SyncStateRepository struct {
	db *DB
}

// NewSyncStateRepository creates a new SyncStateRepository
func NewSyncStateRepository(db *DB) *SyncStateRepository {
	return &SyncStateRepository{db: db}
}

// Get reads the singleton row, or the zero value when it does not exist
func (r *SyncStateRepository) Get(ctx context.Context) (syncstate.Metadata, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return syncstate.Metadata{}, err
	}
	defer release()

	var (
		md         syncstate.Metadata
		last       sql.NullInt64
		inProgress int
		updated    int64
	)
	err = r.db.QueryRowContext(ctx,
		`SELECT last_sync_time, sync_in_progress, updated_at FROM sync_metadata WHERE id = 1`,
	).Scan(&last, &inProgress, &updated)
	if err == sql.ErrNoRows {
		return syncstate.Metadata{}, nil
	}
	if err != nil {
		return syncstate.Metadata{}, fmt.Errorf("failed to get sync metadata: %w", err)
	}

	if last.Valid {
		t := time.Unix(last.Int64, 0).UTC()
		md.LastSyncTime = &t
	}
	md.SyncInProgress = inProgress != 0
	md.UpdatedAt = time.Unix(0, updated).UTC()
	return md, nil
}

// MarkStarted sets sync_in_progress
func (r *SyncStateRepository) MarkStarted(ctx context.Context) error {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sync_metadata (id, last_sync_time, sync_in_progress, updated_at)
		VALUES (1, NULL, 1, ?)
		ON CONFLICT(id) DO UPDATE SET sync_in_progress = 1, updated_at = excluded.updated_at
	`, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to mark sync started: %w", err)
	}
	return nil
}

// MarkFinished clears sync_in_progress and, when completedAt is set,
// records it as the last sync time
func (r *SyncStateRepository) MarkFinished(ctx context.Context, completedAt *time.Time) error {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	var last any
	if completedAt != nil {
		last = completedAt.Unix()
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sync_metadata (id, last_sync_time, sync_in_progress, updated_at)
		VALUES (1, ?, 0, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_sync_time = COALESCE(excluded.last_sync_time, sync_metadata.last_sync_time),
			sync_in_progress = 0,
			updated_at = excluded.updated_at
	`, last, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to mark sync finished: %w", err)
	}
	return nil
}
