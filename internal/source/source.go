// Package source holds the types shared by the activity source adapters.
package source

import (
	"errors"
	"time"
)

var (
	// ErrPermissionDenied indicates the host refused access to a source.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrSourceUnavailable indicates missing configuration or an unreachable
	// external file or path.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrParse indicates a malformed timestamp, URL or record.
	ErrParse = errors.New("parse error")
)

// Name identifies an activity source.
type Name string

const (
	Calendar       Name = "calendar"
	VersionControl Name = "version_control"
	BrowserHistory Name = "browser_history"
)

// Window is the [Start, End] range queried during one sync pass.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, inclusive.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Overlaps reports whether [start, end] intersects the window.
func (w Window) Overlaps(start, end time.Time) bool {
	if end.Before(start) {
		end = start
	}
	return !end.Before(w.Start) && !start.After(w.End)
}
