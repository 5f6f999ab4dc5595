package event

import "time"

// ListOptions filters stored events.
type ListOptions struct {
	From      *time.Time
	To        *time.Time
	ProjectID string
	Types     []Type
	Limit     int
	Offset    int
}
