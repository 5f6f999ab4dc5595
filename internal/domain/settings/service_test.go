package settings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/traceback/internal/domain/settings"
	"github.com/rpggio/traceback/internal/repository"
	"github.com/rpggio/traceback/internal/repository/mocks"
)

func TestSettingsService_SetValidatesOrgs(t *testing.T) {
	ctx := context.Background()

	repo := &mocks.SettingsRepository{}
	repo.On("Set", ctx, settings.KeyGitHubOrgs, `["acme"]`).Return(nil)

	svc := settings.NewService(repo, &mocks.WorkDomainRepository{}, nil)
	require.NoError(t, svc.Set(ctx, settings.KeyGitHubOrgs, `["acme"]`))

	for _, bad := range []string{`acme`, `["-acme"]`, `["acme","acme"]`, `[1]`} {
		require.ErrorIs(t, svc.Set(ctx, settings.KeyGitHubOrgs, bad), settings.ErrValidation, bad)
	}
	require.ErrorIs(t, svc.Set(ctx, " ", "x"), settings.ErrValidation)
	repo.AssertNumberOfCalls(t, "Set", 1)
}

func TestSettingsService_Orgs(t *testing.T) {
	ctx := context.Background()

	repo := &mocks.SettingsRepository{}
	repo.On("Get", ctx, settings.KeyGitHubOrgs).Return(`["acme","initech"]`, nil)
	repo.On("Set", ctx, settings.KeyGitHubOrgs, `["acme","initech","globex"]`).Return(nil).Once()
	repo.On("Set", ctx, settings.KeyGitHubOrgs, `["initech"]`).Return(nil).Once()

	svc := settings.NewService(repo, &mocks.WorkDomainRepository{}, nil)

	orgs, err := svc.AddOrg(ctx, " globex ")
	require.NoError(t, err)
	require.Equal(t, []string{"acme", "initech", "globex"}, orgs)

	orgs, err = svc.RemoveOrg(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, []string{"initech"}, orgs)

	_, err = svc.AddOrg(ctx, "acme")
	require.ErrorIs(t, err, settings.ErrValidation)
	repo.AssertExpectations(t)
}

func TestSettingsService_MissingOrgsIsEmpty(t *testing.T) {
	ctx := context.Background()

	repo := &mocks.SettingsRepository{}
	repo.On("Get", ctx, settings.KeyGitHubOrgs).Return("", repository.ErrNotFound)

	svc := settings.NewService(repo, &mocks.WorkDomainRepository{}, nil)
	orgs, err := svc.Orgs(ctx)
	require.NoError(t, err)
	require.Empty(t, orgs)
}

func TestSettingsService_PathsExpandHome(t *testing.T) {
	ctx := context.Background()
	t.Setenv("HOME", "/home/dev")

	repo := &mocks.SettingsRepository{}
	repo.On("Get", ctx, settings.KeyRepositoryRoot).Return("~/Development", nil)
	repo.On("Get", ctx, settings.KeyBrowserProfilePath).Return("", repository.ErrNotFound)

	svc := settings.NewService(repo, &mocks.WorkDomainRepository{}, nil)
	root, err := svc.RepositoryRoot(ctx)
	require.NoError(t, err)
	require.Equal(t, "/home/dev/Development", root)

	profile, err := svc.BrowserProfilePath(ctx)
	require.NoError(t, err)
	require.Empty(t, profile)
}

func TestSettingsService_WorkDomains(t *testing.T) {
	ctx := context.Background()

	domains := &mocks.WorkDomainRepository{}
	domains.On("Add", ctx, mock.MatchedBy(func(wd *settings.WorkDomain) bool {
		return wd.Domain == "jira.example.com"
	})).Return(nil).Once()
	domains.On("Add", ctx, mock.Anything).Return(repository.ErrConflict).Once()
	domains.On("Remove", ctx, "gone.example.com").Return(repository.ErrNotFound)

	svc := settings.NewService(&mocks.SettingsRepository{}, domains, nil)

	wd, err := svc.AddWorkDomain(ctx, "https://JIRA.example.com/browse/X-1")
	require.NoError(t, err)
	require.Equal(t, "jira.example.com", wd.Domain)

	_, err = svc.AddWorkDomain(ctx, "jira.example.com")
	require.ErrorIs(t, err, settings.ErrDuplicateWorkDomain)

	require.ErrorIs(t, svc.RemoveWorkDomain(ctx, "gone.example.com"), settings.ErrWorkDomainNotFound)

	_, err = svc.AddWorkDomain(ctx, "   ")
	require.ErrorIs(t, err, settings.ErrValidation)
}
