// Package telemetry provides sinks that deliver buffered resilience events
// to monitoring destinations. It defines the Sink interface which allows
// different destinations (HTTP webhook, Sentry, logs) to be used
// interchangeably through dependency injection.
//
// The package includes a webhook sink guarded by its own circuit breaker and
// rate limiter, a Sentry sink for error monitoring, a log sink for local
// development, and a no-op sink for when telemetry is disabled.
package telemetry

import (
	"context"

	"prepmate/internal/resilience/eventbuffer"
)

// Sink delivers batches of resilience events to a monitoring destination.
// Implementations should handle rate limiting and transport errors
// internally; a returned error tells the event buffer to requeue the batch.
type Sink interface {
	// Name identifies the sink for logging.
	Name() string

	// Deliver sends a batch of events. The signature matches
	// eventbuffer.FlushHandler so a sink's Deliver method can be installed
	// directly as a flush handler.
	Deliver(ctx context.Context, events []eventbuffer.Event) error
}
