// Package browser reads page visits from a Firefox-family places.sqlite
// history database.
package browser

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rpggio/traceback/internal/source"
)

// PlacesFile is the history database inside a profile directory.
const PlacesFile = "places.sqlite"

// Visit is a single page visit.
type Visit struct {
	URL        string
	Title      *string
	VisitTime  time.Time
	VisitCount int64
}

// Denylist holds URL LIKE patterns that are never read from history.
var Denylist = []string{
	"chrome://%",
	"about:%",
	"moz-extension://%",

	"http://localhost%",
	"https://localhost%",
	"http://127.0.0.1%",
	"https://127.0.0.1%",
	"%.local/%",

	"%/auth/%",
	"%/oauth/%",
	"%/login%",
	"%/signin%",
	"%/sso/%",
	"%/saml/%",
	"%/authorize%",
	"%/callback%",

	"%access_token=%",
	"%id_token=%",
	"%refresh_token=%",
	"%api_key=%",
	"%apikey=%",
	"%secret=%",
	"%password=%",
	"%session_id=%",

	"%/password/%",
	"%/security/%",
	"%/2fa/%",
	"%/mfa/%",

	"%/checkout%",
	"%/payment%",
	"%/billing%",

	"%/admin/%",
	"%/wp-admin/%",

	"%mail.google.com/mail/u/%/#%",
	"%outlook.live.com/mail/%/inbox/id/%",
}

var visitsQuery = buildVisitsQuery()

func buildVisitsQuery() string {
	var b strings.Builder
	b.WriteString(`
		SELECT p.url, p.title, v.visit_date, COALESCE(p.visit_count, 0)
		FROM moz_places p
		INNER JOIN moz_historyvisits v ON p.id = v.place_id
		WHERE v.visit_date >= ? AND v.visit_date <= ?`)
	for range Denylist {
		b.WriteString("\n\t\tAND p.url NOT LIKE ?")
	}
	b.WriteString("\n\t\tORDER BY v.visit_date DESC")
	return b.String()
}

// History reads visits from a places database.
type History struct{}

// ResolvePlaces accepts a profile directory or a places.sqlite path.
func ResolvePlaces(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: browser history %s: %v", source.ErrSourceUnavailable, path, err)
	}
	if info.IsDir() {
		path = filepath.Join(path, PlacesFile)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: browser history %s: %v", source.ErrSourceUnavailable, path, err)
		}
	}
	return path, nil
}

// Visits returns visits within window, newest first. The database is opened
// read-only and immutable so a running browser's lock does not block it.
func (History) Visits(ctx context.Context, path string, window source.Window) ([]Visit, error) {
	places, err := ResolvePlaces(path)
	if err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=1", places)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening browser history: %v", source.ErrSourceUnavailable, err)
	}
	defer db.Close()

	var name string
	err = db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'moz_places'`).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s has no moz_places table", source.ErrSourceUnavailable, places)
		}
		return nil, fmt.Errorf("%w: reading browser history schema: %v", source.ErrSourceUnavailable, err)
	}

	args := make([]any, 0, len(Denylist)+2)
	args = append(args, window.Start.UnixMicro(), window.End.UnixMicro())
	for _, pattern := range Denylist {
		args = append(args, pattern)
	}

	rows, err := db.QueryContext(ctx, visitsQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying browser history: %v", source.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		var (
			v      Visit
			title  sql.NullString
			micros int64
		)
		if err := rows.Scan(&v.URL, &title, &micros, &v.VisitCount); err != nil {
			continue
		}
		if title.Valid {
			v.Title = &title.String
		}
		v.VisitTime = time.UnixMicro(micros).UTC()
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return visits, fmt.Errorf("%w: reading browser history: %v", source.ErrParse, err)
	}
	return visits, nil
}
