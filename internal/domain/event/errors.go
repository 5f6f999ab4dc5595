package event

import "errors"

var (
	// ErrEventNotFound indicates the event doesn't exist.
	ErrEventNotFound = errors.New("event not found")
	// ErrInvalidPayload indicates a payload that does not match its event type.
	ErrInvalidPayload = errors.New("invalid event payload")
	// ErrInvalidInput indicates an event that cannot be stored.
	ErrInvalidInput = errors.New("invalid event input")
)
