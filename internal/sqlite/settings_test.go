package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/traceback/internal/domain/settings"
	"github.com/rpggio/traceback/internal/repository"
)

func TestSettingsRepository(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSettingsRepository(db)
	ctx := context.Background()

	_, err := repo.Get(ctx, settings.KeyRepositoryRoot)
	require.Equal(t, repository.ErrNotFound, err)

	require.NoError(t, repo.Set(ctx, settings.KeyRepositoryRoot, "/src"))
	require.NoError(t, repo.Set(ctx, settings.KeyRepositoryRoot, "/code"))
	require.NoError(t, repo.Set(ctx, settings.KeyGitHubOrgs, `["acme"]`))

	value, err := repo.Get(ctx, settings.KeyRepositoryRoot)
	require.NoError(t, err)
	require.Equal(t, "/code", value)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		settings.KeyRepositoryRoot: "/code",
		settings.KeyGitHubOrgs:     `["acme"]`,
	}, all)
}

func TestWorkDomainRepository(t *testing.T) {
	db := NewTestDB(t)
	repo := NewWorkDomainRepository(db)
	ctx := context.Background()

	seeded, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, seeded, len(settings.DefaultWorkDomains))
	require.Equal(t, "developer.mozilla.org", seeded[0].Domain)

	require.NoError(t, repo.Add(ctx, &settings.WorkDomain{ID: uuid.NewString(), Domain: "acme.atlassian.net", CreatedAt: time.Now()}))
	err = repo.Add(ctx, &settings.WorkDomain{ID: uuid.NewString(), Domain: "github.com", CreatedAt: time.Now()})
	require.ErrorIs(t, err, repository.ErrConflict)

	require.NoError(t, repo.Remove(ctx, "acme.atlassian.net"))
	require.Equal(t, repository.ErrNotFound, repo.Remove(ctx, "acme.atlassian.net"))
}
