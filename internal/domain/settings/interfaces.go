package settings

import "context"

// Repository provides persistence for key/value settings.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
}

// WorkDomainRepository provides persistence for the work-domain allow-list.
type WorkDomainRepository interface {
	Add(ctx context.Context, wd *WorkDomain) error
	List(ctx context.Context) ([]WorkDomain, error)
	Remove(ctx context.Context, domain string) error
}
