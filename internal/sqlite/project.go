package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/traceback/internal/domain/project"
	"github.com/rpggio/traceback/internal/repository"
)

// ProjectRepository implements project.Repository for SQLite
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create creates a new project
func (r *ProjectRepository) Create(ctx context.Context, proj *project.Project) error {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	query := `
		INSERT INTO projects (id, name, color, created_at)
		VALUES (?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		proj.ID,
		proj.Name,
		proj.Color,
		proj.CreatedAt.UnixNano(),
	)
	if err != nil {
		return writeError("create project", err)
	}
	return nil
}

// Get retrieves a project by ID
func (r *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	query := `
		SELECT id, name, color, created_at
		FROM projects
		WHERE id = ?
	`

	var (
		proj    project.Project
		color   sql.NullString
		created int64
	)
	err = r.db.QueryRowContext(ctx, query, id).Scan(
		&proj.ID,
		&proj.Name,
		&color,
		&created,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	proj.Color = stringPtr(color)
	proj.CreatedAt = time.Unix(0, created).UTC()
	return &proj, nil
}

// List returns all projects by name with event and rule counts
func (r *ProjectRepository) List(ctx context.Context) ([]project.ProjectSummary, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	query := `
		SELECT
			p.id,
			p.name,
			p.color,
			p.created_at,
			(SELECT COUNT(*) FROM events e WHERE e.project_id = p.id) AS event_count,
			(SELECT COUNT(*) FROM project_rules pr WHERE pr.project_id = p.id) AS rule_count
		FROM projects p
		ORDER BY p.name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var summaries []project.ProjectSummary
	for rows.Next() {
		var (
			summary project.ProjectSummary
			color   sql.NullString
			created int64
		)
		err := rows.Scan(
			&summary.ID,
			&summary.Name,
			&color,
			&created,
			&summary.EventCount,
			&summary.RuleCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project summary: %w", err)
		}
		summary.Color = stringPtr(color)
		summary.CreatedAt = time.Unix(0, created).UTC()
		summaries = append(summaries, summary)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}

	return summaries, nil
}

// Update renames or recolors a project
func (r *ProjectRepository) Update(ctx context.Context, proj *project.Project) error {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	result, err := r.db.ExecContext(ctx,
		`UPDATE projects SET name = ?, color = ? WHERE id = ?`,
		proj.Name, proj.Color, proj.ID,
	)
	if err != nil {
		return writeError("update project", err)
	}
	return requireAffected(result, "update project")
}

// Delete removes a project. Its events become unassigned and its rules are
// removed by the schema's foreign keys.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return writeError("delete project", err)
	}
	return requireAffected(result, "delete project")
}

func requireAffected(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
