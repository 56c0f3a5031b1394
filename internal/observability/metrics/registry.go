// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Circuit breaker metrics track breaker state and traffic decisions
var (
	// CircuitBreakerState exposes the current state of each breaker
	// (0=closed, 1=open, 2=half_open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=open, 2=half_open)",
		},
		[]string{"breaker"},
	)

	// CircuitBreakerTransitionsTotal counts state transitions per breaker
	CircuitBreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"breaker", "from", "to"},
	)

	// CircuitBreakerRejectionsTotal counts operations rejected while open
	CircuitBreakerRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_rejections_total",
			Help: "Total number of operations rejected by an open circuit breaker",
		},
		[]string{"breaker"},
	)
)

// Retry metrics track retry behavior against the scoring providers
var (
	// RetryAttempts measures attempts consumed per operation outcome
	RetryAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retry_attempts",
			Help:    "Number of attempts consumed per retried operation",
			Buckets: []float64{1, 2, 3, 4, 5, 7, 10},
		},
		[]string{"operation", "result"},
	)

	// RetryDelaySeconds measures backoff delays actually slept
	RetryDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retry_delay_seconds",
			Help:    "Backoff delay applied between retry attempts",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"operation"},
	)

	// RetryExhaustionsTotal counts operations that ran out of attempts
	RetryExhaustionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_exhaustions_total",
			Help: "Total number of operations that exhausted their retry budget",
		},
		[]string{"operation"},
	)
)

// Idempotency metrics track the duplicate-suppression window
var (
	// IdempotencyChecksTotal counts check-and-insert outcomes
	IdempotencyChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idempotency_checks_total",
			Help: "Total number of idempotency key checks",
		},
		[]string{"result"}, // result: created, duplicate
	)

	// IdempotencyCleanupRemovedTotal counts keys removed by periodic cleanup
	IdempotencyCleanupRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "idempotency_cleanup_removed_total",
			Help: "Total number of expired idempotency keys removed by cleanup",
		},
	)
)

// Event buffer metrics track batching and delivery of resilience events
var (
	// EventBufferEnqueuedTotal counts events accepted into each buffer
	EventBufferEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_buffer_enqueued_total",
			Help: "Total number of events accepted into an event buffer",
		},
		[]string{"buffer"},
	)

	// EventBufferFlushesTotal counts flush attempts by result
	EventBufferFlushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_buffer_flushes_total",
			Help: "Total number of event buffer flush attempts",
		},
		[]string{"buffer", "result"}, // result: success, failure
	)

	// EventBufferFlushBatchSize measures the size of flushed batches
	EventBufferFlushBatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "event_buffer_flush_batch_size",
			Help:    "Number of events per flush batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"buffer"},
	)

	// EventBufferDroppedTotal counts events dropped after retry exhaustion
	// or requeue overflow
	EventBufferDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_buffer_dropped_total",
			Help: "Total number of events dropped from an event buffer",
		},
		[]string{"buffer"},
	)

	// EventBufferQueueSize tracks the current queue length of each buffer
	EventBufferQueueSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "event_buffer_queue_size",
			Help: "Current number of events queued in an event buffer",
		},
		[]string{"buffer"},
	)
)

// Scoring metrics track the outbound LLM scoring calls
var (
	// ScoringRequestsTotal counts scoring requests by provider and status
	ScoringRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoring_requests_total",
			Help: "Total number of answer scoring requests",
		},
		[]string{"provider", "status"},
	)

	// ScoringDuration measures end-to-end scoring call duration
	ScoringDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scoring_duration_seconds",
			Help:    "Time taken to score one answer",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"provider"},
	)

	// ScoringTokensTotal counts provider tokens consumed by direction
	ScoringTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoring_tokens_total",
			Help: "Total number of LLM tokens consumed by scoring calls",
		},
		[]string{"provider", "direction"}, // direction: input, output
	)
)

// RecordScoringRequest records a scoring call with its outcome and latency.
func RecordScoringRequest(provider, status string, duration time.Duration) {
	ScoringRequestsTotal.WithLabelValues(provider, status).Inc()
	ScoringDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordScoringTokens records provider token usage for one scoring call.
func RecordScoringTokens(provider string, input, output int) {
	if input > 0 {
		ScoringTokensTotal.WithLabelValues(provider, "input").Add(float64(input))
	}
	if output > 0 {
		ScoringTokensTotal.WithLabelValues(provider, "output").Add(float64(output))
	}
}
