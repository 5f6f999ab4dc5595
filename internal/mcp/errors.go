package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/traceback/internal/domain/event"
	"github.com/rpggio/traceback/internal/domain/project"
	"github.com/rpggio/traceback/internal/domain/settings"
	"github.com/rpggio/traceback/internal/ingest"
	"github.com/rpggio/traceback/internal/repository"
	"github.com/rpggio/traceback/internal/source"
)

// API error codes.
const (
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeSourceUnavailable = "SOURCE_UNAVAILABLE"
	CodeParseError        = "PARSE_ERROR"
	CodeStoreError        = "STORE_ERROR"
	CodeValidationError   = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeSyncInProgress    = "SYNC_IN_PROGRESS"
	CodeMethodNotFound    = "METHOD_NOT_FOUND"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// MapError maps domain errors to API error codes. It returns nil for errors
// it does not recognize.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	msg := err.Error()
	switch {
	case errors.Is(err, errUnknownMethod):
		return &APIError{Code: CodeMethodNotFound, Message: msg, RecoveryHint: "List tools to see supported methods"}
	case errors.Is(err, ingest.ErrSyncInProgress):
		return &APIError{Code: CodeSyncInProgress, Message: msg, RecoveryHint: "Wait for the running sync or call cancel_sync"}
	case errors.Is(err, source.ErrPermissionDenied):
		return &APIError{Code: CodePermissionDenied, Message: msg, RecoveryHint: "Grant access to the source and sync again"}
	case errors.Is(err, source.ErrSourceUnavailable):
		return &APIError{Code: CodeSourceUnavailable, Message: msg, RecoveryHint: "Check the configured paths and calendar sources"}
	case errors.Is(err, source.ErrParse):
		return &APIError{Code: CodeParseError, Message: msg}
	case errors.Is(err, event.ErrEventNotFound),
		errors.Is(err, project.ErrProjectNotFound),
		errors.Is(err, project.ErrRuleNotFound),
		errors.Is(err, settings.ErrSettingNotFound),
		errors.Is(err, settings.ErrWorkDomainNotFound),
		errors.Is(err, repository.ErrNotFound):
		return &APIError{Code: CodeNotFound, Message: msg, RecoveryHint: "Check ID spelling"}
	case errors.Is(err, repository.ErrForeignKeyViolation):
		return &APIError{Code: CodeNotFound, Message: msg, RecoveryHint: "The referenced project does not exist"}
	case errors.Is(err, project.ErrDuplicateName),
		errors.Is(err, project.ErrDuplicateRule),
		errors.Is(err, settings.ErrDuplicateWorkDomain),
		errors.Is(err, repository.ErrConflict):
		return &APIError{Code: CodeConflict, Message: msg}
	case errors.Is(err, settings.ErrValidation),
		errors.Is(err, project.ErrInvalidInput),
		errors.Is(err, event.ErrInvalidPayload),
		errors.Is(err, event.ErrInvalidInput),
		errors.Is(err, repository.ErrInvalidInput),
		errors.Is(err, errInvalidParams):
		return &APIError{Code: CodeValidationError, Message: msg}
	case repository.IsStoreError(err):
		return &APIError{Code: CodeStoreError, Message: msg, RecoveryHint: "Retry shortly"}
	default:
		return nil
	}
}
