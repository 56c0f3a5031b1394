package telemetry

import (
	"context"

	"prepmate/internal/resilience/eventbuffer"
)

// NoOpSink is a no-operation implementation of the Sink interface.
// It is used when telemetry is disabled to avoid nil checks in the code.
// This follows the Null Object pattern.
type NoOpSink struct{}

// NewNoOpSink creates a new NoOpSink instance.
func NewNoOpSink() *NoOpSink {
	return &NoOpSink{}
}

// Name implements Sink.
func (*NoOpSink) Name() string {
	return "noop"
}

// Deliver does nothing and returns nil immediately.
func (*NoOpSink) Deliver(context.Context, []eventbuffer.Event) error {
	return nil
}
