package event

import "time"

// Type identifies the source an event was ingested from.
type Type string

const (
	TypeCalendar       Type = "calendar"
	TypeVersionControl Type = "version_control"
	TypeBrowserHistory Type = "browser_history"
)

// Valid reports whether t is a known event type.
func (t Type) Valid() bool {
	switch t {
	case TypeCalendar, TypeVersionControl, TypeBrowserHistory:
		return true
	default:
		return false
	}
}

// Event is a normalized activity record from any source.
type Event struct {
	ID             string    `json:"id"`
	Type           Type      `json:"event_type"`
	Title          string    `json:"title"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	ExternalID     string    `json:"external_id"`
	ExternalLink   *string   `json:"external_link,omitempty"`
	Payload        Payload   `json:"payload,omitempty"`
	ProjectID      *string   `json:"project_id,omitempty"`
	OrganizerID    *string   `json:"organizer_id,omitempty"`
	RepositoryPath *string   `json:"repository_path,omitempty"`
	Domain         *string   `json:"domain,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UpsertResult reports the outcome of a single upsert.
type UpsertResult struct {
	ID     string
	WasNew bool
}
