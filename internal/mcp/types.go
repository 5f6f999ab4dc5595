package mcp

import (
	"time"

	"github.com/rpggio/traceback/internal/domain/event"
	"github.com/rpggio/traceback/internal/domain/project"
	"github.com/rpggio/traceback/internal/ingest"
)

type SyncNowParams struct {
	// Wait blocks until the run ends and returns its result.
	Wait bool `json:"wait,omitempty"`
}

type SyncNowResponse struct {
	Started bool           `json:"started"`
	Phase   ingest.Phase   `json:"phase"`
	Result  *ingest.Result `json:"result,omitempty"`
}

type CancelSyncResponse struct {
	Cancelled bool `json:"cancelled"`
}

type ListEventsParams struct {
	From      string       `json:"from,omitempty"`
	To        string       `json:"to,omitempty"`
	ProjectID string       `json:"project_id,omitempty"`
	Types     []event.Type `json:"types,omitempty"`
	Limit     int          `json:"limit,omitempty"`
	Offset    int          `json:"offset,omitempty"`
}

type EventResponse struct {
	ID             string        `json:"id"`
	Type           event.Type    `json:"event_type"`
	Title          string        `json:"title"`
	StartDate      time.Time     `json:"start_date"`
	EndDate        time.Time     `json:"end_date"`
	ExternalLink   string        `json:"external_link,omitempty"`
	ProjectID      string        `json:"project_id,omitempty"`
	OrganizerID    string        `json:"organizer_id,omitempty"`
	RepositoryPath string        `json:"repository_path,omitempty"`
	Domain         string        `json:"domain,omitempty"`
	Payload        event.Payload `json:"payload,omitempty"`
}

type AssignEventParams struct {
	EventID string `json:"event_id"`
	// ProjectID clears the assignment when empty.
	ProjectID string `json:"project_id,omitempty"`
}

type CreateProjectParams struct {
	Name  string  `json:"name"`
	Color *string `json:"color,omitempty"`
}

type UpdateProjectParams struct {
	ID    string  `json:"id"`
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

type IDParams struct {
	ID string `json:"id"`
}

type ListRulesParams struct {
	ProjectID string `json:"project_id,omitempty"`
}

type CreateRuleParams struct {
	ProjectID  string           `json:"project_id"`
	RuleType   project.RuleType `json:"rule_type"`
	MatchValue string           `json:"match_value"`
}

type UpdateRuleParams struct {
	ID         string            `json:"id"`
	ProjectID  *string           `json:"project_id,omitempty"`
	RuleType   *project.RuleType `json:"rule_type,omitempty"`
	MatchValue *string           `json:"match_value,omitempty"`
}

type ApplyRulesResponse struct {
	Affected int64 `json:"affected"`
}

type OrgParams struct {
	Name string `json:"name"`
}

type OrgsResponse struct {
	Orgs []string `json:"orgs"`
}

type WorkDomainParams struct {
	Domain string `json:"domain"`
}

type GetSettingParams struct {
	// Key selects one setting; all settings are returned when empty.
	Key string `json:"key,omitempty"`
}

type SetSettingParams struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type ResetDatabaseParams struct {
	Confirm bool `json:"confirm"`
}

type StatusResponse struct {
	Deleted bool `json:"deleted,omitempty"`
	Reset   bool `json:"reset,omitempty"`
}

func toEventResponse(ev event.Event) EventResponse {
	return EventResponse{
		ID:             ev.ID,
		Type:           ev.Type,
		Title:          ev.Title,
		StartDate:      ev.StartDate,
		EndDate:        ev.EndDate,
		ExternalLink:   stringValue(ev.ExternalLink),
		ProjectID:      stringValue(ev.ProjectID),
		OrganizerID:    stringValue(ev.OrganizerID),
		RepositoryPath: stringValue(ev.RepositoryPath),
		Domain:         stringValue(ev.Domain),
		Payload:        ev.Payload,
	}
}
