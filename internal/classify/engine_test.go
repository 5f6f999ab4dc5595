package classify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/traceback/internal/classify"
	"github.com/rpggio/traceback/internal/domain/event"
	"github.com/rpggio/traceback/internal/domain/project"
	"github.com/rpggio/traceback/internal/repository/mocks"
	"github.com/rpggio/traceback/internal/sqlite"
)

func TestEngine_AppliesInOrderAndSums(t *testing.T) {
	ctx := context.Background()
	first := project.Rule{ID: "r1", ProjectID: "p1", RuleType: project.RuleTypeDomain, MatchValue: "github.com"}
	second := project.Rule{ID: "r2", ProjectID: "p2", RuleType: project.RuleTypeRepository, MatchValue: "acme/app"}

	rules := &mocks.RuleRepository{}
	rules.On("List", ctx).Return([]project.Rule{first, second}, nil)

	var order []string
	store := &mocks.RuleApplier{}
	store.On("ApplyRule", ctx, first).Return(int64(3), nil).Run(func(mock.Arguments) { order = append(order, "r1") })
	store.On("ApplyRule", ctx, second).Return(int64(2), nil).Run(func(mock.Arguments) { order = append(order, "r2") })

	n, err := classify.NewEngine(rules, store, nil).Apply(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 5, n)
	require.Equal(t, []string{"r1", "r2"}, order)
	store.AssertExpectations(t)
}

func TestEngine_SkipsUnknownRuleType(t *testing.T) {
	ctx := context.Background()
	known := project.Rule{ID: "r1", ProjectID: "p1", RuleType: project.RuleTypeTitlePattern, MatchValue: "standup"}

	rules := &mocks.RuleRepository{}
	rules.On("List", ctx).Return([]project.Rule{
		{ID: "old", ProjectID: "p1", RuleType: "priority", MatchValue: "high"},
		known,
	}, nil)
	store := &mocks.RuleApplier{}
	store.On("ApplyRule", ctx, known).Return(int64(1), nil)

	n, err := classify.NewEngine(rules, store, nil).Apply(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	store.AssertNumberOfCalls(t, "ApplyRule", 1)
}

func TestEngine_StopsOnStoreError(t *testing.T) {
	ctx := context.Background()
	rule := project.Rule{ID: "r1", ProjectID: "p1", RuleType: project.RuleTypeDomain, MatchValue: "github.com"}
	boom := errors.New("disk full")

	rules := &mocks.RuleRepository{}
	rules.On("List", ctx).Return([]project.Rule{rule}, nil)
	store := &mocks.RuleApplier{}
	store.On("ApplyRule", ctx, rule).Return(int64(0), boom)

	_, err := classify.NewEngine(rules, store, nil).Apply(ctx)
	require.ErrorIs(t, err, boom)
}

func TestEngine_LastRuleWins(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())

	projects := sqlite.NewProjectRepository(db)
	rules := sqlite.NewRuleRepository(db)
	events := sqlite.NewEventRepository(db)
	at := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	require.NoError(t, projects.Create(ctx, &project.Project{ID: "p1", Name: "Web", CreatedAt: at}))
	require.NoError(t, projects.Create(ctx, &project.Project{ID: "p2", Name: "App", CreatedAt: at}))

	url := "https://github.com/acme/app/pull/9"
	repoPath := "acme/app"
	domain := "github.com"
	res, err := events.Upsert(ctx, &event.Event{
		Type: event.TypeBrowserHistory, Title: url, StartDate: at, EndDate: at,
		ExternalID: "browser-1", ExternalLink: &url, RepositoryPath: &repoPath, Domain: &domain,
		Payload: &event.BrowserPayload{URL: url, Domain: domain, RepositoryPath: &repoPath},
	})
	require.NoError(t, err)

	require.NoError(t, rules.Create(ctx, &project.Rule{ID: "r1", ProjectID: "p1", RuleType: project.RuleTypeDomain, MatchValue: "github.com", CreatedAt: at}))
	require.NoError(t, rules.Create(ctx, &project.Rule{ID: "r2", ProjectID: "p2", RuleType: project.RuleTypeRepository, MatchValue: "acme/app", CreatedAt: at.Add(time.Second)}))

	n, err := classify.NewEngine(rules, events, nil).Apply(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	got, err := events.Get(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, "p2", *got.ProjectID)
}
