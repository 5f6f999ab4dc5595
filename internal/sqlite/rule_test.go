package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/traceback/internal/domain/event"
	"github.com/rpggio/traceback/internal/domain/project"
	"github.com/rpggio/traceback/internal/repository"
)

func TestRuleRepository_CRUDAndOrder(t *testing.T) {
	db := NewTestDB(t)
	projects := NewProjectRepository(db)
	rules := NewRuleRepository(db)
	ctx := context.Background()
	at := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)

	require.NoError(t, projects.Create(ctx, &project.Project{ID: "p1", Name: "A", CreatedAt: at}))

	require.NoError(t, rules.Create(ctx, &project.Rule{ID: "r2", ProjectID: "p1", RuleType: project.RuleTypeDomain, MatchValue: "b.com", CreatedAt: at}))
	require.NoError(t, rules.Create(ctx, &project.Rule{ID: "r1", ProjectID: "p1", RuleType: project.RuleTypeDomain, MatchValue: "a.com", CreatedAt: at}))
	require.NoError(t, rules.Create(ctx, &project.Rule{ID: "r0", ProjectID: "p1", RuleType: project.RuleTypeDomain, MatchValue: "c.com", CreatedAt: at.Add(-time.Hour)}))

	list, err := rules.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"r0", "r2", "r1"}, []string{list[0].ID, list[1].ID, list[2].ID})

	err = rules.Create(ctx, &project.Rule{ID: "dup", ProjectID: "p1", RuleType: project.RuleTypeDomain, MatchValue: "a.com", CreatedAt: at})
	require.ErrorIs(t, err, repository.ErrConflict)

	err = rules.Create(ctx, &project.Rule{ID: "orphan", ProjectID: "missing", RuleType: project.RuleTypeDomain, MatchValue: "z.com", CreatedAt: at})
	require.ErrorIs(t, err, repository.ErrForeignKeyViolation)

	rule, err := rules.Get(ctx, "r1")
	require.NoError(t, err)
	rule.MatchValue = "a.org"
	require.NoError(t, rules.Update(ctx, rule))
	rule, err = rules.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "a.org", rule.MatchValue)

	require.NoError(t, rules.Delete(ctx, "r1"))
	_, err = rules.Get(ctx, "r1")
	require.Equal(t, repository.ErrNotFound, err)
}

func TestApplyRule_Domain(t *testing.T) {
	db := NewTestDB(t)
	projects := NewProjectRepository(db)
	events := NewEventRepository(db)
	ctx := context.Background()
	at := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)

	require.NoError(t, projects.Create(ctx, &project.Project{ID: "p1", Name: "Code", CreatedAt: at}))
	gh, err := events.Upsert(ctx, browserEvent("https://github.com/acme/app", "github.com", at))
	require.NoError(t, err)
	other, err := events.Upsert(ctx, browserEvent("https://linear.app/acme", "linear.app", at))
	require.NoError(t, err)

	n, err := events.ApplyRule(ctx, project.Rule{ProjectID: "p1", RuleType: project.RuleTypeDomain, MatchValue: "github.com"})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	got, err := events.Get(ctx, gh.ID)
	require.NoError(t, err)
	require.Equal(t, "p1", *got.ProjectID)

	got, err = events.Get(ctx, other.ID)
	require.NoError(t, err)
	require.Nil(t, got.ProjectID)
}

func TestApplyRule_EachType(t *testing.T) {
	db := NewTestDB(t)
	projects := NewProjectRepository(db)
	events := NewEventRepository(db)
	contacts := NewContactRepository(db)
	ctx := context.Background()
	at := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)

	require.NoError(t, projects.Create(ctx, &project.Project{ID: "p1", Name: "Code", CreatedAt: at}))

	ada, err := contacts.Upsert(ctx, "Ada", nil)
	require.NoError(t, err)
	meeting := calendarEvent("m1", "Weekly SYNC with team", at)
	meeting.OrganizerID = &ada
	_, err = events.Upsert(ctx, meeting)
	require.NoError(t, err)

	_, err = events.Upsert(ctx, &event.Event{
		Type: event.TypeVersionControl, Title: "commit", StartDate: at, EndDate: at, ExternalID: "r:1",
		RepositoryPath: strPtr("acme/app"),
		Payload:        &event.VersionControlPayload{RepositoryID: "r", ActivityType: "commit"},
	})
	require.NoError(t, err)
	pr := browserEvent("https://github.com/acme/app/pull/7", "github.com", at)
	pr.RepositoryPath = strPtr("acme/app")
	_, err = events.Upsert(ctx, pr)
	require.NoError(t, err)

	cases := []struct {
		rule project.Rule
		want int64
	}{
		{project.Rule{RuleType: project.RuleTypeOrganizer, MatchValue: "Ada"}, 1},
		{project.Rule{RuleType: project.RuleTypeOrganizer, MatchValue: "Grace"}, 0},
		{project.Rule{RuleType: project.RuleTypeTitlePattern, MatchValue: "sync"}, 1},
		{project.Rule{RuleType: project.RuleTypeTitlePattern, MatchValue: "retro"}, 0},
		{project.Rule{RuleType: project.RuleTypeRepository, MatchValue: "acme/app"}, 2},
		{project.Rule{RuleType: project.RuleTypeURLPattern, MatchValue: "https://github.com/*/pull/?"}, 1},
		{project.Rule{RuleType: project.RuleTypeURLPattern, MatchValue: "https://gitlab.com/*"}, 0},
		{project.Rule{RuleType: "priority", MatchValue: "x"}, 0},
	}
	for _, tc := range cases {
		tc.rule.ProjectID = "p1"
		n, err := events.ApplyRule(ctx, tc.rule)
		require.NoError(t, err)
		require.Equal(t, tc.want, n, "%s %s", tc.rule.RuleType, tc.rule.MatchValue)
	}
}

func TestLikePattern(t *testing.T) {
	require.Equal(t, "https://github.com/%/pull/_", LikePattern("https://github.com/*/pull/?"))
	require.Equal(t, "%docs%", LikePattern("%docs%"))
}
