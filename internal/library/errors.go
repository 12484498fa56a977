package library

import (
	"errors"
	"fmt"
)

// ErrNotFound signals that the requested association does not exist for
// the calling user. It is distinct from a validation rejection so the
// HTTP layer can answer 404 instead of 400.
var ErrNotFound = errors.New("user book not found")

// ValidationError rejects malformed or out-of-range input with a
// human-readable reason. It is never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErr(reason string) error {
	return &ValidationError{Reason: reason}
}

// upstreamErr normalizes store and provider failures. The original cause
// stays wrapped for internal logging but is never shown to callers.
func upstreamErr(op string, err error) error {
	return fmt.Errorf("%s: unexpected error: %w", op, err)
}
