package browser_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/rpggio/traceback/internal/source"
	"github.com/rpggio/traceback/internal/source/browser"
)

type visitRow struct {
	url   string
	title any
	at    time.Time
}

func writePlaces(t *testing.T, dir string, visits []visitRow) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, browser.PlacesFile)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE moz_places (id INTEGER PRIMARY KEY, url TEXT, title TEXT, visit_count INTEGER);
		CREATE TABLE moz_historyvisits (id INTEGER PRIMARY KEY, place_id INTEGER, visit_date INTEGER);
	`)
	require.NoError(t, err)

	for i, v := range visits {
		_, err := db.Exec(`INSERT INTO moz_places (id, url, title, visit_count) VALUES (?, ?, ?, ?)`, i+1, v.url, v.title, i+1)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO moz_historyvisits (place_id, visit_date) VALUES (?, ?)`, i+1, v.at.UnixMicro())
		require.NoError(t, err)
	}
	return path
}

func TestVisits(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	dir := filepath.Join(t.TempDir(), "abc.default-release")
	writePlaces(t, dir, []visitRow{
		{"https://github.com/acme/app/pull/7", "PR 7", base.Add(time.Hour)},
		{"https://docs.google.com/document/d/1", nil, base.Add(2*time.Hour + 1500*time.Microsecond)},
		{"http://localhost:3000/", "dev", base.Add(time.Hour)},
		{"https://example.com/login?next=/", "login", base.Add(time.Hour)},
		{"https://example.com/cb?access_token=abc", "token", base.Add(time.Hour)},
		{"https://github.com/acme/app", "outside", base.Add(-time.Hour)},
	})

	visits, err := browser.History{}.Visits(context.Background(), dir, source.Window{Start: base, End: base.Add(24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, visits, 2)

	require.Equal(t, "https://docs.google.com/document/d/1", visits[0].URL)
	require.Nil(t, visits[0].Title)
	require.Equal(t, base.Add(2*time.Hour+1500*time.Microsecond), visits[0].VisitTime)

	require.Equal(t, "https://github.com/acme/app/pull/7", visits[1].URL)
	require.NotNil(t, visits[1].Title)
	require.Equal(t, "PR 7", *visits[1].Title)
	require.EqualValues(t, 1, visits[1].VisitCount)
}

func TestVisitsNotPlacesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.sqlite")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE unrelated (id INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = browser.History{}.Visits(context.Background(), path, source.Window{End: time.Now()})
	require.ErrorIs(t, err, source.ErrSourceUnavailable)
}

func TestVisitsMissingFile(t *testing.T) {
	_, err := browser.History{}.Visits(context.Background(), filepath.Join(t.TempDir(), "nope"), source.Window{End: time.Now()})
	require.ErrorIs(t, err, source.ErrSourceUnavailable)
}

func TestDetectProfile(t *testing.T) {
	home := t.TempDir()
	profiles := filepath.Join(home, ".mozilla", "firefox")
	writePlaces(t, filepath.Join(profiles, "aaa.default"), nil)
	writePlaces(t, filepath.Join(profiles, "bbb.default-release"), nil)
	require.NoError(t, os.MkdirAll(filepath.Join(profiles, "ccc.default-nightly"), 0o755))

	got, err := browser.DetectProfile(home)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(profiles, "bbb.default-release"), got)

	_, err = browser.DetectProfile(t.TempDir())
	require.ErrorIs(t, err, browser.ErrNoProfile)
}

type profileSetting string

func (p profileSetting) BrowserProfilePath(context.Context) (string, error) { return string(p), nil }

func TestAdapterFallsBackToDetection(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, ".mozilla", "firefox", "x.default-release")
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	writePlaces(t, dir, []visitRow{{"https://linear.app/acme/issue/A-1", "A-1", base}})

	adapter := browser.NewAdapter(profileSetting(""), nil).WithHome(home)
	path, err := adapter.ProfilePath(context.Background())
	require.NoError(t, err)
	require.Equal(t, dir, path)

	visits, err := adapter.Fetch(context.Background(), source.Window{Start: base.Add(-time.Minute), End: base.Add(time.Minute)})
	require.NoError(t, err)
	require.Len(t, visits, 1)
}

func TestAdapterNoProfile(t *testing.T) {
	adapter := browser.NewAdapter(profileSetting(""), nil).WithHome(t.TempDir())
	_, err := adapter.Fetch(context.Background(), source.Window{End: time.Now()})
	require.ErrorIs(t, err, source.ErrSourceUnavailable)
}
