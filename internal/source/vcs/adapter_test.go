package vcs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/traceback/internal/source"
	"github.com/rpggio/traceback/internal/source/vcs"
)

type staticRoot string

func (r staticRoot) RepositoryRoot(context.Context) (string, error) { return string(r), nil }

type failingRoot struct{}

func (failingRoot) RepositoryRoot(context.Context) (string, error) {
	return "", errors.New("settings unavailable")
}

const (
	hashA = "1111111111111111111111111111111111111111"
	hashB = "2222222222222222222222222222222222222222"
)

func initRepo(t *testing.T, dir, origin string, headLog ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	if origin != "" {
		_, err = repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{origin}})
		require.NoError(t, err)
	}
	if len(headLog) > 0 {
		logs := filepath.Join(dir, ".git", "logs")
		require.NoError(t, os.MkdirAll(logs, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(logs, "HEAD"), []byte(strings.Join(headLog, "\n")+"\n"), 0o644))
	}
}

func logLine(old, new string, at time.Time, msg string) string {
	return old + " " + new + " Dev <dev@example.com> " + strconv.FormatInt(at.Unix(), 10) + " +0000\t" + msg
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	initRepo(t, filepath.Join(root, "react"), "https://github.com/facebook/react.git")
	initRepo(t, filepath.Join(root, "group", "scratch"), "")
	initRepo(t, filepath.Join(root, "a", "b", "c", "too-deep"), "")
	initRepo(t, filepath.Join(root, "node_modules", "dep"), "")
	initRepo(t, filepath.Join(root, ".hidden", "secret"), "")

	repos, err := vcs.Discover(root, vcs.DefaultMaxDepth, nil, nil)
	require.NoError(t, err)
	require.Len(t, repos, 2)

	byName := map[string]vcs.Repository{}
	for _, r := range repos {
		byName[r.Name] = r
	}

	react := byName["react"]
	require.NotNil(t, react.OriginURL)
	require.Equal(t, "https://github.com/facebook/react.git", *react.OriginURL)
	require.Len(t, react.ID, 32)
	require.False(t, strings.HasPrefix(react.ID, "local-"))

	scratch := byName["scratch"]
	require.Nil(t, scratch.OriginURL)
	require.True(t, strings.HasPrefix(scratch.ID, "local-"))
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := vcs.Discover(filepath.Join(t.TempDir(), "missing"), 2, nil, nil)
	require.ErrorIs(t, err, source.ErrSourceUnavailable)
}

func TestAdapterActivities(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	initRepo(t, filepath.Join(root, "app"), "git@github.com:acme/app.git",
		logLine(hashA, hashB, base.Add(-48*time.Hour), "commit: too old"),
		logLine(hashA, hashB, base.Add(time.Hour), "checkout: moving from main to feature/x"),
		logLine(hashA, hashB, base.Add(2*time.Hour), "fetch: fast-forward"),
		logLine(hashA, hashB, base.Add(3*time.Hour), "commit: add parser"),
	)

	adapter := vcs.NewAdapter(staticRoot(root), 2, nil)
	repos, err := adapter.Repositories(context.Background())
	require.NoError(t, err)
	require.Len(t, repos, 1)

	acts, err := adapter.Activities(repos[0], base)
	require.NoError(t, err)
	require.Len(t, acts, 2)

	require.Equal(t, vcs.KindCheckout, acts[0].Kind)
	require.Equal(t, "Switched to feature/x (from main)", acts[0].Title)
	require.NotNil(t, acts[0].RefName)
	require.Equal(t, "feature/x", *acts[0].RefName)
	require.Equal(t, hashB, *acts[0].CommitHash)
	require.Equal(t, repos[0].ID, acts[0].RepositoryID)

	require.Equal(t, vcs.KindCommit, acts[1].Kind)
	require.Equal(t, "add parser", acts[1].Title)
}

func TestAdapterFetchWindow(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	initRepo(t, filepath.Join(root, "app"), "",
		logLine(hashA, hashB, base.Add(time.Hour), "commit: inside"),
		logLine(hashA, hashB, base.Add(48*time.Hour), "commit: after"),
	)

	adapter := vcs.NewAdapter(staticRoot(root), 2, nil)
	acts, err := adapter.Fetch(context.Background(), source.Window{Start: base, End: base.Add(24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, acts, 1)
	require.Equal(t, "inside", acts[0].Title)
}

func TestAdapterUnavailableRoot(t *testing.T) {
	_, err := vcs.NewAdapter(failingRoot{}, 2, nil).Repositories(context.Background())
	require.ErrorIs(t, err, source.ErrSourceUnavailable)

	_, err = vcs.NewAdapter(staticRoot(""), 2, nil).Repositories(context.Background())
	require.ErrorIs(t, err, source.ErrSourceUnavailable)
}
