package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rpggio/traceback/internal/repository"
)

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// writeError classifies a failed write into a store sentinel.
func writeError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrLockUnavailable):
		return err
	case isUniqueViolation(err):
		return fmt.Errorf("failed to %s: %w", op, repository.ErrConflict)
	case isForeignKeyViolation(err):
		return fmt.Errorf("failed to %s: %w", op, repository.ErrForeignKeyViolation)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}
