package lottery

import (
	"errors"
	"fmt"
)

// Failure taxonomy. Every operation fails fast: a violated precondition
// aborts the call with no partial state change, and nothing is retried
// internally.
var (
	// ErrUnauthorized indicates the caller is not the lottery operator.
	ErrUnauthorized = errors.New("caller is not the lottery operator")

	// ErrInvalidState indicates the round lifecycle does not permit the
	// operation (wrong phase, lottery closed, round still active, ...).
	ErrInvalidState = errors.New("operation not allowed in current state")

	// ErrInvalidInput indicates malformed caller input: numbers out of
	// range or a payment that does not equal the ticket price.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotReady indicates the entropy reference block has not been
	// reached yet; the caller should retry after more blocks are mined.
	ErrNotReady = errors.New("entropy reference block not yet available")
)

// NewValidationError wraps ErrInvalidInput with field context.
func NewValidationError(field, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, reason)
}

// NewStateError wraps ErrInvalidState with the violated precondition.
func NewStateError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, reason)
}

// IsUnauthorized reports whether err is an authorization failure.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// IsInvalidState reports whether err is a lifecycle precondition failure.
func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }

// IsInvalidInput reports whether err is a validation failure.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsNotReady reports whether err is a not-yet-reached height condition.
func IsNotReady(err error) bool { return errors.Is(err, ErrNotReady) }
