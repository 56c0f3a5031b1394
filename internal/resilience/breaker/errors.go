package breaker

import (
	"errors"
	"fmt"
	"time"
)

// OpenError is returned when a call is rejected because the circuit is open.
// It is the breaker's designed fail-fast signal, not a failure of the guarded
// operation, and it never counts against the breaker itself.
type OpenError struct {
	// Breaker is the name of the circuit breaker that rejected the call.
	Breaker string

	// RetryAfter is how long until the circuit allows a recovery probe.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open: retry after %s", e.Breaker, e.RetryAfter)
}

// IsOpenError reports whether err (or any error it wraps) is a circuit-open
// rejection.
func IsOpenError(err error) bool {
	var oe *OpenError
	return errors.As(err, &oe)
}
