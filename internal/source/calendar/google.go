package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/rpggio/traceback/internal/source"
)

// GoogleProvider reads the user's primary Google calendar. Access is granted
// by an OAuth token file obtained out of band.
type GoogleProvider struct {
	credentialsPath string
	tokenPath       string
	calendarID      string
	logger          *slog.Logger
}

// NewGoogleProvider creates a provider from an OAuth client credentials file
// and a saved token file.
func NewGoogleProvider(credentialsPath, tokenPath string, logger *slog.Logger) *GoogleProvider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GoogleProvider{
		credentialsPath: credentialsPath,
		tokenPath:       tokenPath,
		calendarID:      "primary",
		logger:          logger,
	}
}

func (p *GoogleProvider) Status(context.Context) (Authorization, error) {
	_, err := p.token()
	switch {
	case err == nil:
		return FullAccess, nil
	case errors.Is(err, fs.ErrNotExist):
		return NotDetermined, nil
	default:
		p.logger.Warn("google token unreadable", "path", p.tokenPath, "error", err)
		return Denied, nil
	}
}

// Request cannot prompt interactively; it re-reads the token file so a
// token saved since the last check is picked up.
func (p *GoogleProvider) Request(ctx context.Context) (Authorization, error) {
	status, err := p.Status(ctx)
	if err != nil || status == NotDetermined {
		return Denied, err
	}
	return status, nil
}

func (p *GoogleProvider) Events(ctx context.Context, window source.Window) ([]Record, error) {
	svc, err := p.service(ctx)
	if err != nil {
		return nil, err
	}

	var out []Record
	call := svc.Events.List(p.calendarID).
		TimeMin(window.Start.Format(time.RFC3339)).
		TimeMax(window.End.Format(time.RFC3339)).
		SingleEvents(true).
		ShowDeleted(false).
		OrderBy("startTime").
		MaxResults(250)

	err = call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			rec, err := googleRecord(item)
			if err != nil {
				p.logger.Debug("dropping google event", "id", item.Id, "error", err)
				continue
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing google events: %v", source.ErrSourceUnavailable, err)
	}
	return out, nil
}

func (p *GoogleProvider) service(ctx context.Context) (*gcal.Service, error) {
	creds, err := os.ReadFile(p.credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading google credentials: %v", source.ErrSourceUnavailable, err)
	}
	cfg, err := google.ConfigFromJSON(creds, gcal.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("%w: google credentials: %v", source.ErrParse, err)
	}
	tok, err := p.token()
	if err != nil {
		return nil, fmt.Errorf("%w: google token: %v", source.ErrPermissionDenied, err)
	}
	svc, err := gcal.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("%w: google calendar client: %v", source.ErrSourceUnavailable, err)
	}
	return svc, nil
}

func (p *GoogleProvider) token() (*oauth2.Token, error) {
	if p.tokenPath == "" {
		return nil, fs.ErrNotExist
	}
	data, err := os.ReadFile(p.tokenPath)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func googleRecord(item *gcal.Event) (Record, error) {
	if item.Status == "cancelled" {
		return Record{}, errors.New("cancelled")
	}
	start, allDay, err := googleTime(item.Start)
	if err != nil {
		return Record{}, fmt.Errorf("start: %w", err)
	}
	end, _, err := googleTime(item.End)
	if err != nil {
		end = start
	}

	rec := Record{
		ExternalID: item.Id,
		Title:      item.Summary,
		Start:      start,
		End:        end,
		AllDay:     allDay,
		Location:   item.Location,
		Notes:      item.Description,
	}
	if item.Organizer != nil {
		rec.OrganizerName = item.Organizer.DisplayName
		rec.OrganizerEmail = item.Organizer.Email
		if rec.OrganizerName == "" {
			rec.OrganizerName = item.Organizer.Email
		}
	}
	for _, a := range item.Attendees {
		name := strings.TrimSpace(a.DisplayName)
		if name == "" {
			name = a.Email
		}
		if name != "" {
			rec.Attendees = append(rec.Attendees, name)
		}
	}
	return rec, nil
}

func googleTime(dt *gcal.EventDateTime) (time.Time, bool, error) {
	if dt == nil {
		return time.Time{}, false, fmt.Errorf("%w: missing time", source.ErrParse)
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("%w: %v", source.ErrParse, err)
		}
		return t, false, nil
	}
	t, err := time.ParseInLocation("2006-01-02", dt.Date, time.Local)
	if err != nil {
		return time.Time{}, true, fmt.Errorf("%w: %v", source.ErrParse, err)
	}
	return t, true, nil
}
