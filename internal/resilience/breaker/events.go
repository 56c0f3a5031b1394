package breaker

import "time"

// StateChangeEvent describes a single state transition of a circuit breaker.
// Events are delivered over a buffered channel so that slow consumers can
// never block or panic into the breaker's critical path.
type StateChangeEvent struct {
	// Breaker is the name of the circuit breaker that transitioned.
	Breaker string `json:"breaker"`

	// From is the state before the transition.
	From State `json:"from"`

	// To is the state after the transition.
	To State `json:"to"`

	// Failures is the failure count at the moment of the transition,
	// before counters were reset.
	Failures int `json:"failures"`

	// Successes is the success count at the moment of the transition,
	// before counters were reset.
	Successes int `json:"successes"`

	// At is the transition time.
	At time.Time `json:"at"`
}

// Metrics records breaker observability signals. Implementations must be
// safe for concurrent use.
type Metrics interface {
	// RecordState records the current state of a named breaker.
	RecordState(name string, state State)

	// RecordTransition records a completed state transition.
	RecordTransition(name string, from, to State)

	// RecordRejection records a call rejected because the circuit was open.
	RecordRejection(name string)
}

// NoOpMetrics is a Metrics implementation that discards all recordings.
type NoOpMetrics struct{}

// RecordState implements Metrics.
func (*NoOpMetrics) RecordState(string, State) {}

// RecordTransition implements Metrics.
func (*NoOpMetrics) RecordTransition(string, State, State) {}

// RecordRejection implements Metrics.
func (*NoOpMetrics) RecordRejection(string) {}
