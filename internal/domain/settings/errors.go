package settings

import "errors"

var (
	// ErrValidation indicates a malformed setting value.
	ErrValidation = errors.New("invalid setting value")
	// ErrSettingNotFound indicates the key has no stored value.
	ErrSettingNotFound = errors.New("setting not found")
	// ErrWorkDomainNotFound indicates the work domain doesn't exist.
	ErrWorkDomainNotFound = errors.New("work domain not found")
	// ErrDuplicateWorkDomain indicates the domain is already allow-listed.
	ErrDuplicateWorkDomain = errors.New("work domain already exists")
)
