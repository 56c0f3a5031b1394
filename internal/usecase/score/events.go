package score

import (
	"time"

	"prepmate/internal/resilience/breaker"
)

// Event types published to the telemetry buffer manager. Each type gets its
// own named buffer so flush cadence and overflow are isolated per signal.
const (
	// EventTypeBreakerStateChange carries circuit breaker transitions.
	EventTypeBreakerStateChange = "circuit_breaker_state_change"

	// EventTypeRetryExhausted carries executions that spent their whole
	// retry budget without success.
	EventTypeRetryExhausted = "retry_exhausted"

	// EventTypeScoringFallback carries requests that were answered with
	// the self-review fallback instead of an AI score.
	EventTypeScoringFallback = "scoring_fallback"
)

// BreakerTransitionPayload is the telemetry payload for a breaker state
// change.
type BreakerTransitionPayload struct {
	Breaker   string    `json:"breaker"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Failures  int       `json:"failures"`
	Successes int       `json:"successes"`
	At        time.Time `json:"at"`
}

// RetryExhaustedPayload is the telemetry payload for an exhausted retry
// budget.
type RetryExhaustedPayload struct {
	Operation  string        `json:"operation"`
	QuestionID string        `json:"question_id,omitempty"`
	Attempts   int           `json:"attempts"`
	TotalTime  time.Duration `json:"total_time"`
	Error      string        `json:"error"`
}

// FallbackPayload is the telemetry payload for a self-review fallback.
type FallbackPayload struct {
	QuestionID string `json:"question_id,omitempty"`
	Reason     string `json:"reason"`
}

// transitionPayload converts a breaker event into its telemetry payload.
func transitionPayload(ev breaker.StateChangeEvent) BreakerTransitionPayload {
	return BreakerTransitionPayload{
		Breaker:   ev.Breaker,
		From:      ev.From.String(),
		To:        ev.To.String(),
		Failures:  ev.Failures,
		Successes: ev.Successes,
		At:        ev.At,
	}
}
