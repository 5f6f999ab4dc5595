package event

import "context"

// Repository provides persistence for events.
type Repository interface {
	Upsert(ctx context.Context, ev *Event) (UpsertResult, error)
	Get(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, opts ListOptions) ([]Event, error)
	AssignProject(ctx context.Context, eventID string, projectID *string) error
	DiscoveredRepositoryPaths(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}
