package normalize_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/traceback/internal/domain/event"
	"github.com/rpggio/traceback/internal/normalize"
	"github.com/rpggio/traceback/internal/source/browser"
	"github.com/rpggio/traceback/internal/source/calendar"
	"github.com/rpggio/traceback/internal/source/vcs"
)

func ptr(s string) *string { return &s }

func TestRepositoryPath(t *testing.T) {
	cases := map[string]*string{
		"https://github.com/facebook/react.git":      ptr("facebook/react"),
		"git@gitlab.com:group/subgroup/project.git":  ptr("group/subgroup/project"),
		"git@github.com:facebook/react.git":          ptr("facebook/react"),
		"https://gitlab.com/gitlab-org/gitlab-foss":  ptr("gitlab-org/gitlab-foss"),
		"https://bitbucket.org/atlassian/jira.git":   ptr("atlassian/jira"),
		"ssh://git@example.com:2222/team/tool.git":   ptr("team/tool"),
		"https://github.com/facebook/react/issues/1": ptr("facebook/react"),
		"https://example.com/a/b.git":                nil,
		"not-a-url":                                  nil,
		"":                                           nil,
	}
	for in, want := range cases {
		require.Equal(t, want, normalize.RepositoryPath(in), in)
	}
}

func TestURLRepositoryPath(t *testing.T) {
	cases := map[string]*string{
		"https://github.com/facebook/react/issues/123":           ptr("facebook/react"),
		"https://gitlab.com/gitlab-org/gitlab":                   ptr("gitlab-org/gitlab"),
		"https://bitbucket.org/atlassian/jira/pull-requests/1":   ptr("atlassian/jira"),
		"https://gitlab.com/a/b/c/merge_requests/4":              ptr("a/b/c"),
		"https://github.com/acme/app?tab=readme":                 ptr("acme/app"),
		"https://github.com/acme":                                nil,
		"https://github.com/":                                    nil,
		"https://github.com/pulls":                               nil,
		"https://example.com/acme/app":                           nil,
		"https://gist.github.com/someone/0123456789abcdef/raw":   ptr("someone/0123456789abcdef/raw"),
	}
	for in, want := range cases {
		require.Equal(t, want, normalize.URLRepositoryPath(in), in)
	}
}

func TestDomain(t *testing.T) {
	require.Equal(t, "docs.google.com", normalize.Domain("https://docs.google.com/document/d/1"))
	require.Equal(t, "localhost:3000", normalize.Domain("http://localhost:3000"))
	require.Equal(t, "about:blank", normalize.Domain("about:blank"))
}

func TestNotes(t *testing.T) {
	require.Nil(t, normalize.Notes(nil))
	require.Nil(t, normalize.Notes(ptr(" \n\t\n  ")))

	got := normalize.Notes(ptr("\n\nAgenda   \n\n\n\n- item one\t\n- item two\n\n\n"))
	require.NotNil(t, got)
	require.Equal(t, "Agenda\n\n- item one\n- item two", *got)
}

func TestTruncateURL(t *testing.T) {
	short := "https://example.com/a"
	require.Equal(t, short, normalize.TruncateURL(short))

	long := "https://example.com/" + strings.Repeat("x", 100)
	got := normalize.TruncateURL(long)
	require.Len(t, got, 80)
	require.True(t, strings.HasSuffix(got, "..."))

	exact := "https://example.com/" + strings.Repeat("y", 60)
	require.Len(t, exact, 80)
	require.Equal(t, exact, normalize.TruncateURL(exact))
}

func TestCalendar(t *testing.T) {
	start := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	ev, err := normalize.Calendar(calendar.Record{
		ExternalID:    "uid-1",
		Title:         "Standup",
		Start:         start,
		End:           start.Add(15 * time.Minute),
		Notes:         "line\n\n\n",
		Attendees:     []string{"Ada", "Grace"},
		OrganizerName: "Ada",
	}, ptr("contact-1"))
	require.NoError(t, err)
	require.Equal(t, event.TypeCalendar, ev.Type)
	require.Equal(t, "uid-1", ev.ExternalID)
	require.Equal(t, "contact-1", *ev.OrganizerID)
	require.Nil(t, ev.ExternalLink)

	payload, ok := ev.Payload.(*event.CalendarPayload)
	require.True(t, ok)
	require.Equal(t, "line", *payload.Notes)
	require.Nil(t, payload.Location)
	require.Equal(t, []string{"Ada", "Grace"}, payload.Attendees)
	require.NoError(t, event.Validate(ev))

	_, err = normalize.Calendar(calendar.Record{Title: "no id", Start: start}, nil)
	require.ErrorIs(t, err, normalize.ErrIncomplete)
}

func TestVersionControl(t *testing.T) {
	at := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)
	ref := "feature/x"
	ev := normalize.VersionControl(vcs.Activity{
		RepositoryID:   "abc",
		RepositoryName: "app",
		Kind:           vcs.KindCheckout,
		Timestamp:      at,
		RefName:        &ref,
		Title:          "Switched to feature/x (from main)",
	}, vcs.Repository{ID: "abc", Name: "app", OriginURL: ptr("git@github.com:acme/app.git")})

	require.Equal(t, event.TypeVersionControl, ev.Type)
	require.Equal(t, "abc:2024-03-01T13:00:00Z", ev.ExternalID)
	require.Equal(t, at, ev.StartDate)
	require.Equal(t, at, ev.EndDate)
	require.Equal(t, "acme/app", *ev.RepositoryPath)

	payload := ev.Payload.(*event.VersionControlPayload)
	require.Equal(t, "checkout", payload.ActivityType)
	require.Equal(t, "feature/x", *payload.RefName)
	require.NoError(t, event.Validate(ev))
}

func TestBrowser(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 0, 0, 123000, time.UTC)
	long := "https://github.com/acme/app/blob/main/" + strings.Repeat("d/", 40) + "file.go"
	ev := normalize.Browser(browser.Visit{URL: long, VisitTime: at, VisitCount: 3})

	require.Equal(t, event.TypeBrowserHistory, ev.Type)
	require.Equal(t, normalize.TruncateURL(long), ev.Title)
	require.Equal(t, long, *ev.ExternalLink)
	require.Equal(t, "github.com", *ev.Domain)
	require.Equal(t, "acme/app", *ev.RepositoryPath)
	require.True(t, strings.HasPrefix(ev.ExternalID, "browser-"))
	require.Len(t, ev.ExternalID, len("browser-")+32)

	titled := normalize.Browser(browser.Visit{URL: long, Title: ptr("file.go"), VisitTime: at})
	require.Equal(t, "file.go", titled.Title)
	require.Equal(t, ev.ExternalID, titled.ExternalID)

	later := normalize.Browser(browser.Visit{URL: long, VisitTime: at.Add(time.Microsecond)})
	require.NotEqual(t, ev.ExternalID, later.ExternalID)
}

func TestIncludeVisit(t *testing.T) {
	discovered := []string{"acme/app"}
	orgs := []string{"widgets"}

	require.True(t, normalize.IncludeVisit(nil, discovered, orgs))
	require.True(t, normalize.IncludeVisit(ptr("acme/app"), discovered, orgs))
	require.True(t, normalize.IncludeVisit(ptr("widgets/ui"), discovered, orgs))
	require.False(t, normalize.IncludeVisit(ptr("widgetsco/ui"), discovered, orgs))
	require.False(t, normalize.IncludeVisit(ptr("facebook/react"), discovered, orgs))
	require.False(t, normalize.IncludeVisit(ptr("acme/app"), nil, nil))
}
