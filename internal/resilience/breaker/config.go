package breaker

import (
	"time"

	"prepmate/internal/resilience"
)

// Config holds the configuration for a circuit breaker.
type Config struct {
	// Name identifies the guarded dependency for logging, metrics, and events.
	Name string

	// FailureThreshold is the number of failures in the closed state required
	// to open the circuit.
	// Default: 5
	FailureThreshold int

	// SuccessThreshold is the number of consecutive successes in the half-open
	// state required to close the circuit again.
	// Default: 1 (a single successful probe closes the circuit)
	SuccessThreshold int

	// Timeout is how long the circuit stays open before the next call is
	// allowed through as a recovery probe.
	// Default: 30 seconds
	Timeout time.Duration

	// TimeWindow bounds how long a failure streak is remembered in the closed
	// state. If more than TimeWindow elapses between two failures, the failure
	// count restarts from the newer one. Zero disables the window (failures
	// accumulate until a success resets them).
	TimeWindow time.Duration

	// ErrorFilter decides whether an error counts against the circuit.
	// Errors for which it returns false (e.g., caller-side validation errors)
	// propagate to the caller but do not move the state machine.
	// Nil means every error counts.
	ErrorFilter func(error) bool

	// EventBufferSize is the capacity of the state-change event channel.
	// Default: 16
	EventBufferSize int

	// Clock provides time operations for testing.
	// Default: resilience.SystemClock
	Clock resilience.Clock

	// Metrics records state and transition metrics.
	// Default: NoOpMetrics
	Metrics Metrics
}

// DefaultConfig returns a default configuration for circuit breakers.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Timeout:          30 * time.Second,
		TimeWindow:       time.Minute,
	}
}

// ScoringAPIConfig returns configuration tuned for the LLM scoring provider.
// The provider is slow to recover from overload, so the open timeout is long
// and two successful probes are required before fully trusting it again.
func ScoringAPIConfig() Config {
	return Config{
		Name:             "scoring-api",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          60 * time.Second,
		TimeWindow:       2 * time.Minute,
	}
}

// withDefaults fills in zero-valued fields.
func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.EventBufferSize <= 0 {
		c.EventBufferSize = 16
	}
	if c.Clock == nil {
		c.Clock = &resilience.SystemClock{}
	}
	if c.Metrics == nil {
		c.Metrics = &NoOpMetrics{}
	}
	return c
}
