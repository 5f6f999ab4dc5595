package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/traceback/internal/repository"
)

// Service handles event operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new event service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// Validate checks that ev can be stored.
func Validate(ev *Event) error {
	if ev == nil {
		return ErrInvalidInput
	}
	if !ev.Type.Valid() {
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, ev.Type)
	}
	if strings.TrimSpace(ev.ExternalID) == "" {
		return fmt.Errorf("%w: missing external id", ErrInvalidInput)
	}
	if ev.EndDate.Before(ev.StartDate) {
		return fmt.Errorf("%w: end before start", ErrInvalidInput)
	}
	if ev.Payload != nil && ev.Payload.EventType() != ev.Type {
		return fmt.Errorf("%w: %s payload on %s event", ErrInvalidPayload, ev.Payload.EventType(), ev.Type)
	}
	return nil
}

// Ingest validates and upserts an event keyed on (type, external id).
func (s *Service) Ingest(ctx context.Context, ev *Event) (UpsertResult, error) {
	if err := Validate(ev); err != nil {
		return UpsertResult{}, err
	}
	ev.StartDate = ev.StartDate.Truncate(time.Second)
	ev.EndDate = ev.EndDate.Truncate(time.Second)

	res, err := s.repo.Upsert(ctx, ev)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upserting event: %w", err)
	}
	return res, nil
}

// Get fetches an event by ID.
func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	ev, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("getting event: %w", err)
	}
	return ev, nil
}

// List returns stored events. Browser events are limited to work domains.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Event, error) {
	if opts.From != nil && opts.To != nil && opts.To.Before(*opts.From) {
		return nil, fmt.Errorf("%w: range end before start", ErrInvalidInput)
	}
	events, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

// AssignProject sets or clears the project of one event.
func (s *Service) AssignProject(ctx context.Context, eventID string, projectID *string) error {
	if projectID != nil && strings.TrimSpace(*projectID) == "" {
		projectID = nil
	}
	err := s.repo.AssignProject(ctx, eventID, projectID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrEventNotFound
	default:
		return fmt.Errorf("assigning project: %w", err)
	}
}

// DiscoveredRepositoryPaths lists repository paths seen in version-control events.
func (s *Service) DiscoveredRepositoryPaths(ctx context.Context) ([]string, error) {
	paths, err := s.repo.DiscoveredRepositoryPaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing repository paths: %w", err)
	}
	return paths, nil
}

// Reset removes all events, contacts and sync state.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("clearing events: %w", err)
	}
	s.logger.Info("event store cleared")
	return nil
}
