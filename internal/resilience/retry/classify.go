package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"

	"prepmate/internal/resilience/breaker"
)

// transientMarkers are message fragments that indicate a transient provider
// condition when no structured error type is available. Provider SDK errors
// frequently arrive as opaque strings.
var transientMarkers = []string{
	"timeout",
	"timed out",
	"temporar",
	"connection reset",
	"connection refused",
	"rate limit",
	"too many requests",
	"service unavailable",
	"overloaded",
	"network",
}

// IsTransient determines if an error is worth retrying. It is the default
// ShouldRetry classifier.
//
// Retryable: network timeouts, connection-level syscall errors, HTTP 5xx,
// 429, and 408, and errors whose message indicates a transient condition.
// Never retryable: context cancellation, circuit-open rejections (the breaker
// already decided to fail fast), and anything else, which covers validation
// and auth errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// An open breaker is a deliberate fail-fast signal; retrying against it
	// would just spin until the open timeout elapses.
	if breaker.IsOpenError(err) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode >= 500 && httpErr.StatusCode < 600 {
			return true
		}
		if httpErr.StatusCode == http.StatusTooManyRequests {
			return true
		}
		if httpErr.StatusCode == http.StatusRequestTimeout {
			return true
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}
