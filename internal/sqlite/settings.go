package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/traceback/internal/domain/settings"
	"github.com/rpggio/traceback/internal/repository"
)

// SettingsRepository implements settings.Repository for SQLite
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the value stored for key
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	var value string
	err = r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting: %w", err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UnixNano())
	if err != nil {
		return writeError("set setting", err)
	}
	return nil
}

// All returns every stored setting
func (r *SettingsRepository) All(ctx context.Context) (map[string]string, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	all := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		all[k] = v
	}
	return all, rows.Err()
}

// WorkDomainRepository implements settings.WorkDomainRepository for SQLite
type WorkDomainRepository struct {
	db *DB
}

// NewWorkDomainRepository creates a new WorkDomainRepository
func NewWorkDomainRepository(db *DB) *WorkDomainRepository {
	return &WorkDomainRepository{db: db}
}

// Add stores a work domain
func (r *WorkDomainRepository) Add(ctx context.Context, wd *settings.WorkDomain) error {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO work_domains (id, domain, created_at) VALUES (?, ?, ?)`,
		wd.ID, wd.Domain, wd.CreatedAt.UnixNano(),
	)
	if err != nil {
		return writeError("add work domain", err)
	}
	return nil
}

// List returns work domains ordered by domain
func (r *WorkDomainRepository) List(ctx context.Context) ([]settings.WorkDomain, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := r.db.QueryContext(ctx, `SELECT id, domain, created_at FROM work_domains ORDER BY domain`)
	if err != nil {
		return nil, fmt.Errorf("failed to list work domains: %w", err)
	}
	defer rows.Close()

	var domains []settings.WorkDomain
	for rows.Next() {
		var (
			wd      settings.WorkDomain
			created int64
		)
		if err := rows.Scan(&wd.ID, &wd.Domain, &created); err != nil {
			return nil, fmt.Errorf("failed to scan work domain: %w", err)
		}
		wd.CreatedAt = time.Unix(0, created).UTC()
		domains = append(domains, wd)
	}
	return domains, rows.Err()
}

// Remove deletes a work domain by name
func (r *WorkDomainRepository) Remove(ctx context.Context, domain string) error {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	result, err := r.db.ExecContext(ctx, `DELETE FROM work_domains WHERE domain = ?`, domain)
	if err != nil {
		return writeError("remove work domain", err)
	}
	return requireAffected(result, "remove work domain")
}
