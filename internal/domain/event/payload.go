package event

import (
	"encoding/json"
	"fmt"
)

// Payload is the source-specific part of an event. Exactly one variant
// exists per event Type.
type Payload interface {
	EventType() Type
}

// CalendarPayload carries calendar-specific fields.
type CalendarPayload struct {
	Location  *string  `json:"location,omitempty"`
	Notes     *string  `json:"notes,omitempty"`
	IsAllDay  bool     `json:"is_all_day"`
	Organizer *string  `json:"organizer,omitempty"`
	Attendees []string `json:"attendees,omitempty"`
}

func (*CalendarPayload) EventType() Type { return TypeCalendar }

// VersionControlPayload carries reference-log activity fields.
type VersionControlPayload struct {
	RepositoryID   string  `json:"repository_id"`
	RepositoryName string  `json:"repository_name"`
	ActivityType   string  `json:"activity_type"`
	RefName        *string `json:"ref_name,omitempty"`
	CommitHash     *string `json:"commit_hash,omitempty"`
	RepositoryPath *string `json:"repository_path,omitempty"`
	OriginURL      *string `json:"origin_url,omitempty"`
}

func (*VersionControlPayload) EventType() Type { return TypeVersionControl }

// BrowserPayload carries browsing-history fields.
type BrowserPayload struct {
	URL            string  `json:"url"`
	Domain         string  `json:"domain"`
	PageTitle      *string `json:"page_title,omitempty"`
	VisitCount     int64   `json:"visit_count"`
	RepositoryPath *string `json:"repository_path,omitempty"`
}

func (*BrowserPayload) EventType() Type { return TypeBrowserHistory }

// MarshalPayload serializes p for storage. A nil payload is stored as "".
func MarshalPayload(p Payload) (string, error) {
	if p == nil {
		return "", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return string(data), nil
}

// UnmarshalPayload decodes a stored payload into the variant for t.
func UnmarshalPayload(t Type, raw string) (Payload, error) {
	if raw == "" {
		return nil, nil
	}

	var p Payload
	switch t {
	case TypeCalendar:
		p = &CalendarPayload{}
	case TypeVersionControl:
		p = &VersionControlPayload{}
	case TypeBrowserHistory:
		p = &BrowserPayload{}
	default:
		return nil, fmt.Errorf("%w: unknown event type %q", ErrInvalidPayload, t)
	}

	if err := json.Unmarshal([]byte(raw), p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return p, nil
}
