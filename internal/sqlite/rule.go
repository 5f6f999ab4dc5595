package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/traceback/internal/domain/project"
	"github.com/rpggio/traceback/internal/repository"
)

// RuleRepository implements project.RuleRepository for SQLite
type RuleRepository struct {
	db *DB
}

// NewRuleRepository creates a new RuleRepository
func NewRuleRepository(db *DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// Create stores a new rule
func (r *RuleRepository) Create(ctx context.Context, rule *project.Rule) error {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO project_rules (id, project_id, rule_type, match_value, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, rule.ID, rule.ProjectID, rule.RuleType, rule.MatchValue, rule.CreatedAt.UnixNano())
	if err != nil {
		return writeError("create rule", err)
	}
	return nil
}

// Get retrieves a rule by ID
func (r *RuleRepository) Get(ctx context.Context, id string) (*project.Rule, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	row := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, rule_type, match_value, created_at
		FROM project_rules WHERE id = ?
	`, id)
	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// List returns rules in application order: creation time, then insertion order.
func (r *RuleRepository) List(ctx context.Context) ([]project.Rule, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, rule_type, match_value, created_at
		FROM project_rules
		ORDER BY created_at ASC, rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []project.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

// Update rewrites a rule's project, type and match value
func (r *RuleRepository) Update(ctx context.Context, rule *project.Rule) error {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	result, err := r.db.ExecContext(ctx, `
		UPDATE project_rules SET project_id = ?, rule_type = ?, match_value = ?
		WHERE id = ?
	`, rule.ProjectID, rule.RuleType, rule.MatchValue, rule.ID)
	if err != nil {
		return writeError("update rule", err)
	}
	return requireAffected(result, "update rule")
}

// Delete removes a rule
func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	result, err := r.db.ExecContext(ctx, `DELETE FROM project_rules WHERE id = ?`, id)
	if err != nil {
		return writeError("delete rule", err)
	}
	return requireAffected(result, "delete rule")
}

func scanRule(row rowScanner) (*project.Rule, error) {
	var (
		rule    project.Rule
		created int64
	)
	if err := row.Scan(&rule.ID, &rule.ProjectID, &rule.RuleType, &rule.MatchValue, &created); err != nil {
		return nil, err
	}
	rule.CreatedAt = time.Unix(0, created).UTC()
	return &rule, nil
}
