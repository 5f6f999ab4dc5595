package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rpggio/traceback/internal/domain/event"
	"github.com/rpggio/traceback/internal/domain/project"
	"github.com/rpggio/traceback/internal/domain/settings"
	"github.com/rpggio/traceback/internal/domain/syncstate"
)

// EventRepository is a mock for event.Repository.
type EventRepository struct {
	mock.Mock
}

func (m *EventRepository) Upsert(ctx context.Context, ev *event.Event) (event.UpsertResult, error) {
	args := m.Called(ctx, ev)
	return args.Get(0).(event.UpsertResult), args.Error(1)
}

func (m *EventRepository) Get(ctx context.Context, id string) (*event.Event, error) {
	args := m.Called(ctx, id)
	if ev, ok := args.Get(0).(*event.Event); ok {
		return ev, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EventRepository) List(ctx context.Context, opts event.ListOptions) ([]event.Event, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]event.Event); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EventRepository) AssignProject(ctx context.Context, eventID string, projectID *string) error {
	args := m.Called(ctx, eventID, projectID)
	return args.Error(0)
}

func (m *EventRepository) DiscoveredRepositoryPaths(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if paths, ok := args.Get(0).([]string); ok {
		return paths, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EventRepository) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// ContactRepository is a mock for contact.Repository.
type ContactRepository struct {
	mock.Mock
}

func (m *ContactRepository) Upsert(ctx context.Context, name string, email *string) (string, error) {
	args := m.Called(ctx, name, email)
	return args.String(0), args.Error(1)
}

// ProjectRepository is a mock for project.Repository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Create(ctx context.Context, proj *project.Project) error {
	args := m.Called(ctx, proj)
	return args.Error(0)
}

func (m *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	args := m.Called(ctx, id)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) List(ctx context.Context) ([]project.ProjectSummary, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]project.ProjectSummary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) Update(ctx context.Context, proj *project.Project) error {
	args := m.Called(ctx, proj)
	return args.Error(0)
}

func (m *ProjectRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// RuleRepository is a mock for project.RuleRepository.
type RuleRepository struct {
	mock.Mock
}

func (m *RuleRepository) Create(ctx context.Context, rule *project.Rule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *RuleRepository) Get(ctx context.Context, id string) (*project.Rule, error) {
	args := m.Called(ctx, id)
	if rule, ok := args.Get(0).(*project.Rule); ok {
		return rule, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RuleRepository) List(ctx context.Context) ([]project.Rule, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]project.Rule); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RuleRepository) Update(ctx context.Context, rule *project.Rule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *RuleRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// RuleApplier is a mock for classify.Applier.
type RuleApplier struct {
	mock.Mock
}

func (m *RuleApplier) ApplyRule(ctx context.Context, rule project.Rule) (int64, error) {
	args := m.Called(ctx, rule)
	return args.Get(0).(int64), args.Error(1)
}

// SettingsRepository is a mock for settings.Repository.
type SettingsRepository struct {
	mock.Mock
}

func (m *SettingsRepository) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *SettingsRepository) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *SettingsRepository) All(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	if all, ok := args.Get(0).(map[string]string); ok {
		return all, args.Error(1)
	}
	return nil, args.Error(1)
}

// WorkDomainRepository is a mock for settings.WorkDomainRepository.
type WorkDomainRepository struct {
	mock.Mock
}

func (m *WorkDomainRepository) Add(ctx context.Context, wd *settings.WorkDomain) error {
	args := m.Called(ctx, wd)
	return args.Error(0)
}

func (m *WorkDomainRepository) List(ctx context.Context) ([]settings.WorkDomain, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]settings.WorkDomain); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *WorkDomainRepository) Remove(ctx context.Context, domain string) error {
	args := m.Called(ctx, domain)
	return args.Error(0)
}

// SyncStateRepository is a mock for syncstate.Repository.
type SyncStateRepository struct {
	mock.Mock
}

func (m *SyncStateRepository) Get(ctx context.Context) (syncstate.Metadata, error) {
	args := m.Called(ctx)
	return args.Get(0).(syncstate.Metadata), args.Error(1)
}

func (m *SyncStateRepository) MarkStarted(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *SyncStateRepository) MarkFinished(ctx context.Context, completedAt *time.Time) error {
	args := m.Called(ctx, completedAt)
	return args.Error(0)
}
