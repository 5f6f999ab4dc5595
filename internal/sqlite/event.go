package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rpggio/traceback/internal/domain/event"
	"github.com/rpggio/traceback/internal/domain/project"
	"github.com/rpggio/traceback/internal/repository"
)

const eventColumns = `id, event_type, title, start_date, end_date, external_id, external_link,
	payload, project_id, organizer_id, repository_path, domain, created_at, updated_at`

// EventRepository implements event.Repository for SQLite
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Upsert inserts ev or updates the stored event with the same type and
// external id. The stored id and created_at are never changed.
func (r *EventRepository) Upsert(ctx context.Context, ev *event.Event) (event.UpsertResult, error) {
	payload, err := event.MarshalPayload(ev.Payload)
	if err != nil {
		return event.UpsertResult{}, err
	}

	var res event.UpsertResult
	err = r.db.withTx(ctx, func(tx *sql.Tx) error {
		var existing string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM events WHERE event_type = ? AND external_id = ?`,
			ev.Type, ev.ExternalID,
		).Scan(&existing)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			res.WasNew = true
		case err != nil:
			return fmt.Errorf("failed to look up event: %w", err)
		}

		id := existing
		if id == "" {
			id = ev.ID
		}
		if id == "" {
			id = uuid.NewString()
		}
		now := time.Now().UnixNano()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO events (`+eventColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(event_type, external_id) DO UPDATE SET
				title = excluded.title,
				start_date = excluded.start_date,
				end_date = excluded.end_date,
				external_link = excluded.external_link,
				payload = excluded.payload,
				project_id = excluded.project_id,
				organizer_id = excluded.organizer_id,
				repository_path = excluded.repository_path,
				domain = excluded.domain,
				updated_at = MAX(excluded.updated_at, events.updated_at + 1)
		`,
			id, ev.Type, ev.Title, ev.StartDate.Unix(), ev.EndDate.Unix(), ev.ExternalID, ev.ExternalLink,
			nullIfEmpty(payload), ev.ProjectID, ev.OrganizerID, ev.RepositoryPath, ev.Domain, now, now,
		)
		if err != nil {
			return writeError("upsert event", err)
		}

		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM events WHERE event_type = ? AND external_id = ?`,
			ev.Type, ev.ExternalID,
		).Scan(&res.ID); err != nil {
			return fmt.Errorf("failed to read back event id: %w", err)
		}
		return nil
	})
	if err != nil {
		return event.UpsertResult{}, err
	}
	return res, nil
}

// Get retrieves an event by ID
func (r *EventRepository) Get(ctx context.Context, id string) (*event.Event, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return ev, nil
}

// List returns events ordered by start date. Unless a project is given,
// browser events are limited to work domains; with none configured no
// browser events are returned.
func (r *EventRepository) List(ctx context.Context, opts event.ListOptions) ([]event.Event, error) {
	var (
		conds []string
		args  []any
	)
	if opts.From != nil {
		conds = append(conds, "start_date >= ?")
		args = append(args, opts.From.Unix())
	}
	if opts.To != nil {
		conds = append(conds, "end_date <= ?")
		args = append(args, opts.To.Unix())
	}
	if opts.ProjectID != "" {
		conds = append(conds, "project_id = ?")
		args = append(args, opts.ProjectID)
	} else {
		conds = append(conds, "(event_type != 'browser_history' OR domain IN (SELECT domain FROM work_domains))")
	}
	if len(opts.Types) > 0 {
		marks := make([]string, len(opts.Types))
		for i, t := range opts.Types {
			marks[i] = "?"
			args = append(args, t)
		}
		conds = append(conds, "event_type IN ("+strings.Join(marks, ", ")+")")
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY start_date ASC, rowid ASC`
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}

	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

// AssignProject sets or clears the project of one event.
func (r *EventRepository) AssignProject(ctx context.Context, eventID string, projectID *string) error {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET project_id = ?, updated_at = MAX(?, updated_at + 1) WHERE id = ?`,
		projectID, time.Now().UnixNano(), eventID,
	)
	if err != nil {
		return writeError("assign project", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to assign project: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DiscoveredRepositoryPaths lists the distinct repository paths of
// version-control events.
func (r *EventRepository) DiscoveredRepositoryPaths(ctx context.Context) ([]string, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT repository_path FROM events
		WHERE event_type = 'version_control' AND repository_path IS NOT NULL
		ORDER BY repository_path
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list repository paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan repository path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Clear removes all events, contacts and sync metadata. Projects, rules,
// settings and work domains are kept.
func (r *EventRepository) Clear(ctx context.Context) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM events`,
			`DELETE FROM contacts`,
			`DELETE FROM sync_metadata`,
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to clear event data: %w", err)
			}
		}
		return nil
	})
}

// ApplyRule assigns rule.ProjectID to every event the rule matches and
// returns how many rows were updated. Unknown rule types match nothing.
func (r *EventRepository) ApplyRule(ctx context.Context, rule project.Rule) (int64, error) {
	var (
		query string
		arg   any = rule.MatchValue
	)
	switch rule.RuleType {
	case project.RuleTypeOrganizer:
		query = `UPDATE events SET project_id = ?, updated_at = MAX(?, updated_at + 1)
			WHERE event_type = 'calendar'
			AND organizer_id IN (SELECT id FROM contacts WHERE name = ?)`
	case project.RuleTypeTitlePattern:
		query = `UPDATE events SET project_id = ?, updated_at = MAX(?, updated_at + 1)
			WHERE event_type = 'calendar'
			AND instr(lower(title), lower(?)) > 0`
	case project.RuleTypeRepository:
		query = `UPDATE events SET project_id = ?, updated_at = MAX(?, updated_at + 1)
			WHERE event_type IN ('version_control', 'browser_history')
			AND repository_path = ?`
	case project.RuleTypeURLPattern:
		query = `UPDATE events SET project_id = ?, updated_at = MAX(?, updated_at + 1)
			WHERE event_type = 'browser_history'
			AND json_extract(payload, '$.url') LIKE ?`
		arg = LikePattern(rule.MatchValue)
	case project.RuleTypeDomain:
		query = `UPDATE events SET project_id = ?, updated_at = MAX(?, updated_at + 1)
			WHERE event_type = 'browser_history'
			AND domain = ?`
	default:
		return 0, nil
	}

	release, err := r.db.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	result, err := r.db.ExecContext(ctx, query, rule.ProjectID, time.Now().UnixNano(), arg)
	if err != nil {
		return 0, writeError("apply rule", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to apply rule: %w", err)
	}
	return n, nil
}

// LikePattern turns a glob into a LIKE pattern: '*' becomes '%' and '?'
// becomes '_'. Existing '%' and '_' keep their LIKE meaning.
func LikePattern(glob string) string {
	return strings.NewReplacer("*", "%", "?", "_").Replace(glob)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*event.Event, error) {
	var (
		ev                                    event.Event
		start, end, created, updated          int64
		link, payload, proj, org, repo, domain sql.NullString
	)
	if err := row.Scan(
		&ev.ID, &ev.Type, &ev.Title, &start, &end, &ev.ExternalID, &link,
		&payload, &proj, &org, &repo, &domain, &created, &updated,
	); err != nil {
		return nil, err
	}

	ev.StartDate = time.Unix(start, 0).UTC()
	ev.EndDate = time.Unix(end, 0).UTC()
	ev.CreatedAt = time.Unix(0, created).UTC()
	ev.UpdatedAt = time.Unix(0, updated).UTC()
	ev.ExternalLink = stringPtr(link)
	ev.ProjectID = stringPtr(proj)
	ev.OrganizerID = stringPtr(org)
	ev.RepositoryPath = stringPtr(repo)
	ev.Domain = stringPtr(domain)

	if payload.Valid {
		p, err := event.UnmarshalPayload(ev.Type, payload.String)
		if err != nil {
			return nil, err
		}
		ev.Payload = p
	}
	return &ev, nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
