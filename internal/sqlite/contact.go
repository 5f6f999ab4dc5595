package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ContactRepository implements contact.Repository for SQLite
type ContactRepository struct {
	db *DB
}

// NewContactRepository creates a new ContactRepository
func NewContactRepository(db *DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Upsert finds the contact with this name and email, creating it if needed.
// A nil email only matches contacts without one.
func (r *ContactRepository) Upsert(ctx context.Context, name string, email *string) (string, error) {
	var id string
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UnixNano()
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM contacts WHERE name = ? AND email IS ?`, name, email,
		).Scan(&id)
		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx, `UPDATE contacts SET updated_at = ? WHERE id = ?`, now, id); err != nil {
				return fmt.Errorf("failed to touch contact: %w", err)
			}
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to look up contact: %w", err)
		}

		id = uuid.NewString()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO contacts (id, name, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			id, name, email, now, now,
		); err != nil {
			return writeError("create contact", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}
