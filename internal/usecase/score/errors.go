package score

import (
	"errors"
	"fmt"
)

// ErrDuplicateSubmission is returned when a submission with the same
// fingerprint already has an attempt chain in flight or inside the dedup
// window.
var ErrDuplicateSubmission = errors.New("duplicate submission")

// UnavailableError signals that scoring could not be completed after the
// retry budget was spent or the circuit breaker rejected the call. Callers
// should fall back to self-review instead of surfacing a hard failure.
type UnavailableError struct {
	// Attempts is the number of attempts made before giving up. Zero when
	// the circuit breaker rejected the call outright.
	Attempts int

	// Err is the final provider or breaker error.
	Err error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("scoring unavailable after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err indicates that scoring is temporarily
// unavailable and the caller should offer self-review.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
