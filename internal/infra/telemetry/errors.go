package telemetry

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Common webhook error types used by the webhook sink

// RateLimitError represents a 429 rate limit error from the webhook endpoint.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// ClientError represents a 4xx client error from the webhook endpoint.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return e.Message
}

// ServerError represents a 5xx server error from the webhook endpoint.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

// IsPermanent reports whether the error will not succeed on retry. The event
// buffer drops batches faster when the sink reports a permanent failure via
// its retry accounting, so client errors other than 429 are permanent.
func IsPermanent(err error) bool {
	var clientErr *ClientError
	return errors.As(err, &clientErr)
}

// extractRetryAfter parses the Retry-After header of a 429 response.
// Defaults to 5 seconds when the header is missing or malformed.
func extractRetryAfter(resp *http.Response) time.Duration {
	const defaultRetryAfter = 5 * time.Second

	header := resp.Header.Get("Retry-After")
	if header == "" {
		return defaultRetryAfter
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}
