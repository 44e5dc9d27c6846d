package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors of the service layer. Handlers and the consumer map them
// to HTTP statuses and acknowledgement decisions with errors.Is.
var (
	// ErrNotFound marks lookups of rows that do not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition marks status changes outside the transition table.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInsufficientStock marks a deduction that would drive stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrTransient marks infrastructure failures worth retrying. The
	// consumer nacks such deliveries with requeue; everything else
	// dead-letters.
	ErrTransient = errors.New("transient failure")
)

// NotFound wraps ErrNotFound with the resource kind and id.
func NotFound(resource string, id int64) error {
	return fmt.Errorf("%s %d: %w", resource, id, ErrNotFound)
}

// InvalidTransition wraps ErrInvalidTransition with the attempted edge.
func InvalidTransition(from, to string) error {
	return fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidTransition)
}

// Transient tags err as retryable while keeping the original cause
// inspectable with errors.Is and errors.As.
func Transient(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}
