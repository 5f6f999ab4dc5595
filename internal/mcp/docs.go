package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `traceback collects work activity from the calendar, local git repositories and browser history into one event timeline, and groups it into projects.

Core concepts:
- Event: one activity item (a meeting, a checkout or commit, a page visit). Re-syncing updates events in place.
- Project: a named group of events. Events are assigned by hand or by rules.
- Rule: (project, rule_type, match_value). Rules run in creation order after every sync; the last match wins.
- Work domain: browser events only appear in listings when their domain is allow-listed.

Typical workflow:
1) get_sync_status to see when data was last synced.
2) sync_now (wait=true for a blocking run) to pull new activity.
3) list_events with from/to to read the timeline.
4) create_project + create_rule to classify recurring work, then apply_rules.

Docs:
- traceback://docs/concepts
- traceback://docs/rules
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "traceback://docs/concepts",
		Name:        "docs_concepts",
		Title:       "traceback concepts",
		Description: "Sources, sync windows and how events are stored.",
		Content: `# Concepts

## Sources

- calendar: events from ICS files or URLs, or Google Calendar. Recurring events are expanded inside the sync window.
- version_control: reference-log entries of git repositories under the repository_root setting, classified as checkout, commit, merge, rebase, pull, reset or other.
- browser_history: visits from the browser profile at browser_profile_path. Authentication, payment and admin pages are never read.

## Sync window

The first sync reads the last 90 days. Later syncs read from the previous sync time to now.

## Storage

Events are unique by (event_type, external_id). A re-sync updates title, dates and payload but keeps the creation time. Project assignments are recomputed from rules after every sync, so manual assignments on events a rule matches are overwritten.

## Browser filtering

GitHub pages are kept only when they belong to a discovered repository or a configured organization (list_orgs). Listings show browser events only for work domains.
`,
	},
	{
		URI:         "traceback://docs/rules",
		Name:        "docs_rules",
		Title:       "Classification rules",
		Description: "Rule types, pattern syntax and evaluation order.",
		Content: `# Rules

| rule_type | matches |
|---|---|
| organizer | calendar events whose organizer contact has exactly this name |
| title_pattern | calendar events whose title contains match_value, case-insensitive |
| repository | version-control and browser events whose repository_path equals match_value |
| url_pattern | browser events whose URL matches the pattern; * matches any run of characters and ? one character |
| domain | browser events on exactly this domain |

Rules run in creation order. When two rules match the same event the later rule wins.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
