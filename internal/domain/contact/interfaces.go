package contact

import "context"

// Repository provides persistence for contacts.
type Repository interface {
	// Upsert returns the id of the contact with this name and email,
	// creating it if needed.
	Upsert(ctx context.Context, name string, email *string) (string, error)
}
