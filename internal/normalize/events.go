package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rpggio/traceback/internal/domain/event"
	"github.com/rpggio/traceback/internal/source/browser"
	"github.com/rpggio/traceback/internal/source/calendar"
	"github.com/rpggio/traceback/internal/source/vcs"
)

// ErrIncomplete is returned for records missing fields every event needs.
var ErrIncomplete = errors.New("incomplete record")

// Calendar builds a calendar event. organizerID is the stored contact for
// the record's organizer, if any.
func Calendar(rec calendar.Record, organizerID *string) (*event.Event, error) {
	if rec.ExternalID == "" {
		return nil, fmt.Errorf("%w: calendar record without id", ErrIncomplete)
	}
	if rec.Start.IsZero() {
		return nil, fmt.Errorf("%w: calendar record %s without start", ErrIncomplete, rec.ExternalID)
	}
	end := rec.End
	if end.Before(rec.Start) {
		end = rec.Start
	}

	payload := &event.CalendarPayload{
		Location:  optional(rec.Location),
		Notes:     Notes(optional(rec.Notes)),
		IsAllDay:  rec.AllDay,
		Organizer: optional(rec.OrganizerName),
	}
	if len(rec.Attendees) > 0 {
		payload.Attendees = append([]string(nil), rec.Attendees...)
	}

	return &event.Event{
		Type:        event.TypeCalendar,
		Title:       rec.Title,
		StartDate:   rec.Start.UTC(),
		EndDate:     end.UTC(),
		ExternalID:  rec.ExternalID,
		Payload:     payload,
		OrganizerID: organizerID,
	}, nil
}

// VersionControl builds an instantaneous event for a reference-log activity.
func VersionControl(act vcs.Activity, repo vcs.Repository) *event.Event {
	var repoPath *string
	if repo.OriginURL != nil {
		repoPath = RemoteRepositoryPath(*repo.OriginURL)
	}
	at := act.Timestamp.UTC()

	return &event.Event{
		Type:       event.TypeVersionControl,
		Title:      act.Title,
		StartDate:  at,
		EndDate:    at,
		ExternalID: VersionControlExternalID(act.RepositoryID, at),
		Payload: &event.VersionControlPayload{
			RepositoryID:   act.RepositoryID,
			RepositoryName: act.RepositoryName,
			ActivityType:   string(act.Kind),
			RefName:        act.RefName,
			CommitHash:     act.CommitHash,
			RepositoryPath: repoPath,
			OriginURL:      repo.OriginURL,
		},
		RepositoryPath: repoPath,
	}
}

// Browser builds an instantaneous event for a page visit.
func Browser(v browser.Visit) *event.Event {
	domain := Domain(v.URL)
	repoPath := URLRepositoryPath(v.URL)
	at := v.VisitTime.UTC()

	title := TruncateURL(v.URL)
	if v.Title != nil && strings.TrimSpace(*v.Title) != "" {
		title = *v.Title
	}
	link := v.URL

	return &event.Event{
		Type:         event.TypeBrowserHistory,
		Title:        title,
		StartDate:    at,
		EndDate:      at,
		ExternalID:   BrowserExternalID(v.URL, v.VisitTime),
		ExternalLink: &link,
		Payload: &event.BrowserPayload{
			URL:            v.URL,
			Domain:         domain,
			PageTitle:      v.Title,
			VisitCount:     v.VisitCount,
			RepositoryPath: repoPath,
		},
		RepositoryPath: repoPath,
		Domain:         &domain,
	}
}

// IncludeVisit reports whether a visit should be stored. Visits that point
// into a repository are kept only for discovered repositories or configured
// organizations.
func IncludeVisit(repoPath *string, discovered []string, orgs []string) bool {
	if repoPath == nil {
		return true
	}
	for _, d := range discovered {
		if d == *repoPath {
			return true
		}
	}
	for _, org := range orgs {
		if org != "" && strings.HasPrefix(*repoPath, org+"/") {
			return true
		}
	}
	return false
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
