// Package breaker implements a per-dependency circuit breaker for outbound
// calls to external services such as the LLM scoring provider.
//
// The breaker is a three-state machine (closed, open, half-open) shared by all
// concurrent callers guarding the same dependency. All state is protected by a
// single mutex so that concurrent failures can never race two inconsistent
// open transitions.
package breaker

import (
	"log/slog"
	"sync"
	"time"
)

// State represents the current state of the circuit breaker.
type State int

const (
	// StateClosed indicates normal operation: calls are executed and
	// failures are counted.
	StateClosed State = iota

	// StateOpen indicates the circuit has tripped: calls are rejected
	// immediately with an OpenError until the open timeout elapses.
	StateOpen

	// StateHalfOpen indicates the circuit is probing recovery: calls are
	// allowed through, and successes close the circuit while any failure
	// reopens it.
	StateHalfOpen
)

// String returns a string representation of the circuit state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker guards one external dependency. Construct one instance per guarded
// dependency and share it across callers; there is no global registry.
type Breaker struct {
	config Config
	events chan StateChangeEvent

	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	lastSuccessTime time.Time
	nextAttemptTime time.Time
}

// New creates a circuit breaker with the given configuration.
// Zero-valued config fields are replaced with defaults.
func New(cfg Config) *Breaker {
	cfg = cfg.withDefaults()

	b := &Breaker{
		config: cfg,
		events: make(chan StateChangeEvent, cfg.EventBufferSize),
		state:  StateClosed,
	}

	cfg.Metrics.RecordState(cfg.Name, StateClosed)

	return b
}

// Name returns the name of the guarded dependency.
func (b *Breaker) Name() string {
	return b.config.Name
}

// Events returns the channel on which state transitions are published.
// The channel is buffered; if no consumer keeps up, events are dropped rather
// than blocking the breaker.
func (b *Breaker) Events() <-chan StateChangeEvent {
	return b.events
}

// Execute runs the given operation through the circuit breaker.
//
// If the circuit is open and the open timeout has not elapsed, the operation
// is not invoked and an *OpenError carrying the remaining wait is returned.
// Otherwise the operation runs and its outcome updates the state machine:
// nil results count as successes, errors count as failures unless the
// configured ErrorFilter excludes them. Filtered errors propagate unchanged
// without moving the state machine.
func (b *Breaker) Execute(op func() (any, error)) (any, error) {
	if err := b.acquire(); err != nil {
		return nil, err
	}

	result, err := op()
	b.record(err)
	return result, err
}

// IsAvailable reports whether a call would currently be allowed through.
//
// Like Execute, it promotes an expired open circuit to half-open, so a true
// result means the next call is a recovery probe at worst.
func (b *Breaker) IsAvailable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return true
	}

	now := b.config.Clock.Now()
	if now.Before(b.nextAttemptTime) {
		return false
	}

	b.transitionLocked(StateHalfOpen, now)
	return true
}

// State returns the current state of the circuit breaker.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats is a point-in-time snapshot of the breaker's counters.
type Stats struct {
	State           State
	FailureCount    int
	SuccessCount    int
	LastFailureTime time.Time
	LastSuccessTime time.Time
	NextAttemptTime time.Time
}

// Stats returns current circuit breaker statistics.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		State:           b.state,
		FailureCount:    b.failureCount,
		SuccessCount:    b.successCount,
		LastFailureTime: b.lastFailureTime,
		LastSuccessTime: b.lastSuccessTime,
		NextAttemptTime: b.nextAttemptTime,
	}
}

// Reset forces the circuit back to closed and clears all counters.
// Intended for tests and manual operator intervention.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateClosed {
		b.transitionLocked(StateClosed, b.config.Clock.Now())
		return
	}

	b.failureCount = 0
	b.successCount = 0
	b.lastFailureTime = time.Time{}
	b.lastSuccessTime = time.Time{}
}

// acquire checks whether a call may proceed. It returns an *OpenError when
// the circuit is open, and promotes open to half-open once the timeout has
// elapsed.
func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return nil
	}

	now := b.config.Clock.Now()
	if now.Before(b.nextAttemptTime) {
		b.config.Metrics.RecordRejection(b.config.Name)
		return &OpenError{
			Breaker:    b.config.Name,
			RetryAfter: b.nextAttemptTime.Sub(now),
		}
	}

	b.transitionLocked(StateHalfOpen, now)
	return nil
}

// record feeds one call outcome into the state machine.
func (b *Breaker) record(err error) {
	if err == nil {
		b.recordSuccess()
		return
	}
	if b.config.ErrorFilter != nil && !b.config.ErrorFilter(err) {
		return
	}
	b.recordFailure()
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.config.Clock.Now()
	b.lastSuccessTime = now

	switch b.state {
	case StateClosed:
		b.failureCount = 0
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.config.SuccessThreshold {
			b.transitionLocked(StateClosed, now)
		}
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.config.Clock.Now()

	switch b.state {
	case StateClosed:
		// A stale failure streak outside the window restarts the count.
		if b.config.TimeWindow > 0 && !b.lastFailureTime.IsZero() &&
			now.Sub(b.lastFailureTime) > b.config.TimeWindow {
			b.failureCount = 0
		}
		b.lastFailureTime = now
		b.failureCount++
		if b.failureCount >= b.config.FailureThreshold {
			b.transitionLocked(StateOpen, now)
		}
	case StateHalfOpen:
		b.lastFailureTime = now
		b.failureCount++
		b.transitionLocked(StateOpen, now)
	}
}

// transitionLocked moves the state machine to a new state, resets counters,
// and publishes a StateChangeEvent. nextAttemptTime is set if and only if the
// new state is open. Must be called with b.mu held.
func (b *Breaker) transitionLocked(to State, now time.Time) {
	from := b.state
	if from == to {
		return
	}

	ev := StateChangeEvent{
		Breaker:   b.config.Name,
		From:      from,
		To:        to,
		Failures:  b.failureCount,
		Successes: b.successCount,
		At:        now,
	}

	b.state = to
	b.failureCount = 0
	b.successCount = 0
	if to == StateOpen {
		b.nextAttemptTime = now.Add(b.config.Timeout)
	} else {
		b.nextAttemptTime = time.Time{}
	}

	b.config.Metrics.RecordTransition(b.config.Name, from, to)
	b.config.Metrics.RecordState(b.config.Name, to)

	slog.Warn("circuit breaker state changed",
		slog.String("circuit", b.config.Name),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.Int("failures", ev.Failures),
		slog.Int("successes", ev.Successes))

	// Never block a state transition on a slow consumer.
	select {
	case b.events <- ev:
	default:
	}
}
