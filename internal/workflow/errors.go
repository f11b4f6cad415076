package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Validation failures detected before any mutation occurs. All four are
// caller errors; storage failures propagate wrapped and unclassified.
var (
	ErrPeriodNotFound   = errors.New("period not found")
	ErrInvalidStage     = errors.New("invalid stage")
	ErrNoOpRequest      = errors.New("no-op request")
	ErrAlreadyCompleted = errors.New("period already completed")
)

// Wrap tags an error message with one of the sentinel errors above so callers
// can classify it with errors.Is.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsCallerError reports whether an error represents an invalid request rather
// than an infrastructure failure.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrPeriodNotFound) ||
		errors.Is(err, ErrInvalidStage) ||
		errors.Is(err, ErrNoOpRequest) ||
		errors.Is(err, ErrAlreadyCompleted)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "workflow failure"
	}
	return strings.Join(parts, ": ")
}
