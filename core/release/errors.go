package release

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthRequired is returned for writes without an identity.
	ErrAuthRequired = errors.New("authentication required")
	// ErrNotFound is returned when the caller owns no release with the given id.
	ErrNotFound = errors.New("release not found")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("invalid release data")
	// ErrTakedownNotAllowed is returned when the current status does not permit the takedown action.
	ErrTakedownNotAllowed = errors.New("takedown not allowed in current status")
	// ErrCancelWindowClosed is returned when a takedown is cancelled outside its reversal window.
	ErrCancelWindowClosed = errors.New("takedown can no longer be cancelled")
	// ErrInvalidTransition is returned for status changes the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrOperationFailed wraps backing store failures.
	ErrOperationFailed = errors.New("could not complete operation")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func storeFailure(err error) error {
	return fmt.Errorf("%w: %w", ErrOperationFailed, err)
}
