package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/traceback/internal/repository"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Service handles project and rule operations.
type Service struct {
	repo   Repository
	rules  RuleRepository
	logger *slog.Logger
}

// NewService creates a new project service.
func NewService(repo Repository, rules RuleRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, rules: rules, logger: logger}
}

// CreateRequest defines project creation inputs.
type CreateRequest struct {
	Name  string
	Color *string
}

// UpdateRequest defines project update inputs. Nil fields are left unchanged.
type UpdateRequest struct {
	ID    string
	Name  *string
	Color *string
}

// Create creates a new project.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	color, err := normalizeColor(req.Color)
	if err != nil {
		return nil, err
	}

	proj := &Project{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     color,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, proj); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.logger.Info("project created", "project_id", proj.ID, "name", proj.Name)
	return proj, nil
}

// Get fetches a project by ID.
func (s *Service) Get(ctx context.Context, id string) (*Project, error) {
	proj, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return proj, nil
}

// List returns project summaries.
func (s *Service) List(ctx context.Context) ([]ProjectSummary, error) {
	return s.repo.List(ctx)
}

// Update renames or recolors a project.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*Project, error) {
	proj, err := s.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		proj.Name = name
	}
	if req.Color != nil {
		color, err := normalizeColor(req.Color)
		if err != nil {
			return nil, err
		}
		proj.Color = color
	}

	if err := s.repo.Update(ctx, proj); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrDuplicateName
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("updating project: %w", err)
	}
	return proj, nil
}

// Delete removes a project. Its events are kept and become unassigned;
// its rules are removed.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("deleting project: %w", err)
	}
	s.logger.Info("project deleted", "project_id", id)
	return nil
}

// CreateRuleRequest defines rule creation inputs.
type CreateRuleRequest struct {
	ProjectID  string
	RuleType   RuleType
	MatchValue string
}

// UpdateRuleRequest defines rule update inputs. Nil fields are left unchanged.
type UpdateRuleRequest struct {
	ID         string
	ProjectID  *string
	RuleType   *RuleType
	MatchValue *string
}

// CreateRule adds a classification rule for a project.
func (s *Service) CreateRule(ctx context.Context, req CreateRuleRequest) (*Rule, error) {
	rule := &Rule{
		ID:         uuid.NewString(),
		ProjectID:  req.ProjectID,
		RuleType:   req.RuleType,
		MatchValue: strings.TrimSpace(req.MatchValue),
		CreatedAt:  time.Now().UTC(),
	}
	if err := validateRule(rule); err != nil {
		return nil, err
	}

	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, mapRuleError("creating rule", err)
	}
	return rule, nil
}

// GetRule fetches a rule by ID.
func (s *Service) GetRule(ctx context.Context, id string) (*Rule, error) {
	rule, err := s.rules.Get(ctx, id)
	if err != nil {
		return nil, mapRuleError("getting rule", err)
	}
	return rule, nil
}

// ListRules returns all rules in the order they are applied.
func (s *Service) ListRules(ctx context.Context) ([]Rule, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	return rules, nil
}

// UpdateRule changes a rule in place. Its position in application order is kept.
func (s *Service) UpdateRule(ctx context.Context, req UpdateRuleRequest) (*Rule, error) {
	rule, err := s.GetRule(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if req.ProjectID != nil {
		rule.ProjectID = *req.ProjectID
	}
	if req.RuleType != nil {
		rule.RuleType = *req.RuleType
	}
	if req.MatchValue != nil {
		rule.MatchValue = strings.TrimSpace(*req.MatchValue)
	}
	if err := validateRule(rule); err != nil {
		return nil, err
	}

	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, mapRuleError("updating rule", err)
	}
	return rule, nil
}

// DeleteRule removes a rule. Assignments it already made are kept.
func (s *Service) DeleteRule(ctx context.Context, id string) error {
	if err := s.rules.Delete(ctx, id); err != nil {
		return mapRuleError("deleting rule", err)
	}
	return nil
}

func validateRule(rule *Rule) error {
	if strings.TrimSpace(rule.ProjectID) == "" {
		return fmt.Errorf("%w: project_id is required", ErrInvalidInput)
	}
	if !rule.RuleType.Valid() {
		return fmt.Errorf("%w: unknown rule type %q", ErrInvalidInput, rule.RuleType)
	}
	if rule.MatchValue == "" {
		return fmt.Errorf("%w: match_value is required", ErrInvalidInput)
	}
	return nil
}

func mapRuleError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrRuleNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrDuplicateRule
	case errors.Is(err, repository.ErrForeignKeyViolation):
		return ErrProjectNotFound
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func normalizeColor(color *string) (*string, error) {
	if color == nil {
		return nil, nil
	}
	c := strings.TrimSpace(*color)
	if c == "" {
		return nil, nil
	}
	if !colorPattern.MatchString(c) {
		return nil, fmt.Errorf("%w: color must look like #rrggbb", ErrInvalidInput)
	}
	c = strings.ToLower(c)
	return &c, nil
}
