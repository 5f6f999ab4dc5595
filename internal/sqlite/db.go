package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/sync/semaphore"
	_ "modernc.org/sqlite"

	"github.com/rpggio/traceback/internal/repository"
)

// DB wraps a SQLite database connection. Every repository call holds the
// store lock for its duration.
type DB struct {
	*sql.DB
	lock *semaphore.Weighted
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &DB{DB: db, lock: semaphore.NewWeighted(1)}, nil
}

// acquire takes the store lock. The returned func releases it.
func (db *DB) acquire(ctx context.Context) (func(), error) {
	if err := db.lock.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrLockUnavailable, err)
	}
	return func() { db.lock.Release(1) }, nil
}

// withTx runs fn in a transaction while holding the store lock.
func (db *DB) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	release, err := db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
