package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rpggio/traceback/internal/domain/settings"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS contacts (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    UNIQUE(name, email)
);
CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(email) WHERE email IS NOT NULL;

CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    color TEXT,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    event_type TEXT NOT NULL CHECK(event_type IN ('calendar', 'version_control', 'browser_history')),
    title TEXT NOT NULL,
    start_date INTEGER NOT NULL,
    end_date INTEGER NOT NULL,
    external_id TEXT NOT NULL,
    external_link TEXT,
    payload TEXT,
    project_id TEXT,
    organizer_id TEXT,
    repository_path TEXT,
    domain TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE SET NULL,
    FOREIGN KEY (organizer_id) REFERENCES contacts(id) ON DELETE SET NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_events_external_id ON events(event_type, external_id);
CREATE INDEX IF NOT EXISTS idx_events_start_date ON events(start_date);
CREATE INDEX IF NOT EXISTS idx_events_type_date ON events(event_type, start_date DESC);
CREATE INDEX IF NOT EXISTS idx_events_project_id ON events(project_id) WHERE project_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_events_organizer ON events(organizer_id) WHERE organizer_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_events_repository_path ON events(repository_path) WHERE repository_path IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_events_domain ON events(domain) WHERE domain IS NOT NULL;

CREATE TABLE IF NOT EXISTS sync_metadata (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    last_sync_time INTEGER,
    sync_in_progress INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS project_rules (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    rule_type TEXT NOT NULL,
    match_value TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
    UNIQUE(rule_type, match_value)
);
CREATE INDEX IF NOT EXISTS idx_project_rules_project_id ON project_rules(project_id);

CREATE TABLE IF NOT EXISTS work_domains (
    id TEXT PRIMARY KEY,
    domain TEXT NOT NULL UNIQUE,
    created_at INTEGER NOT NULL
);
`

// RunMigrations creates the schema. The default work domains are seeded
// once, by the migration that creates the schema.
func (db *DB) RunMigrations() error {
	ctx := context.Background()
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var version int
		if err := tx.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		if version >= schemaVersion {
			return nil
		}

		if _, err := tx.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		now := time.Now().UnixNano()
		for _, d := range settings.DefaultWorkDomains {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO work_domains (id, domain, created_at) VALUES (?, ?, ?)`,
				uuid.NewString(), d, now,
			); err != nil {
				return fmt.Errorf("failed to seed work domains: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		return nil
	})
}

// SeedSettings stores each default whose key has no value yet.
func (db *DB) SeedSettings(ctx context.Context, defaults map[string]string) error {
	release, err := db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	now := time.Now().UnixNano()
	for key, value := range defaults {
		if value == "" {
			continue
		}
		if _, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO settings (key, value, updated_at) VALUES (?, ?, ?)`,
			key, value, now,
		); err != nil {
			return fmt.Errorf("failed to seed setting %s: %w", key, err)
		}
	}
	return nil
}
