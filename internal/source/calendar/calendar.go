// Package calendar reads calendar events from an authorized provider.
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/traceback/internal/source"
)

// Authorization is the host's answer to a calendar access request.
type Authorization string

const (
	FullAccess    Authorization = "full_access"
	Denied        Authorization = "denied"
	Restricted    Authorization = "restricted"
	NotDetermined Authorization = "not_determined"
)

// Record is one calendar event overlapping the requested window.
type Record struct {
	ExternalID     string
	Title          string
	Start          time.Time
	End            time.Time
	AllDay         bool
	Location       string
	Notes          string
	Attendees      []string
	OrganizerName  string
	OrganizerEmail string
}

// Authorizer queries and requests calendar access.
type Authorizer interface {
	Status(ctx context.Context) (Authorization, error)
	// Request may block until the host answers.
	Request(ctx context.Context) (Authorization, error)
}

// Provider returns events overlapping a window.
type Provider interface {
	Events(ctx context.Context, window source.Window) ([]Record, error)
}

// Adapter gates a Provider behind a one-time authorization.
type Adapter struct {
	auth     Authorizer
	provider Provider
	logger   *slog.Logger
}

// NewAdapter creates a calendar adapter.
func NewAdapter(auth Authorizer, provider Provider, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{auth: auth, provider: provider, logger: logger}
}

// Authorize ensures access has been granted, prompting once if undecided.
// There is no timeout on the prompt; only ctx ends the wait.
func (a *Adapter) Authorize(ctx context.Context) error {
	status, err := a.auth.Status(ctx)
	if err != nil {
		return fmt.Errorf("checking calendar access: %w", err)
	}
	if status == NotDetermined {
		a.logger.Info("requesting calendar access")
		status, err = a.auth.Request(ctx)
		if err != nil {
			return fmt.Errorf("requesting calendar access: %w", err)
		}
	}
	if status != FullAccess {
		return fmt.Errorf("%w: calendar access is %s", source.ErrPermissionDenied, status)
	}
	return nil
}

// Fetch authorizes and returns events overlapping window in provider order.
// Records without an id are dropped.
func (a *Adapter) Fetch(ctx context.Context, window source.Window) ([]Record, error) {
	if err := a.Authorize(ctx); err != nil {
		return nil, err
	}
	records, err := a.provider.Events(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("fetching calendar events: %w", err)
	}

	out := records[:0]
	for _, rec := range records {
		if rec.ExternalID == "" {
			a.logger.Debug("dropping calendar event without id", "title", rec.Title)
			continue
		}
		if !window.Overlaps(rec.Start, rec.End) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
