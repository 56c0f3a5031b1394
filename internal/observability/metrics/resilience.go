package metrics

import (
	"time"

	"prepmate/internal/resilience/breaker"
)

// BreakerRecorder implements breaker.Metrics on the package's Prometheus
// collectors.
type BreakerRecorder struct{}

// RecordState implements breaker.Metrics.
func (BreakerRecorder) RecordState(name string, state breaker.State) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordTransition implements breaker.Metrics.
func (BreakerRecorder) RecordTransition(name string, from, to breaker.State) {
	CircuitBreakerTransitionsTotal.WithLabelValues(name, from.String(), to.String()).Inc()
}

// RecordRejection implements breaker.Metrics.
func (BreakerRecorder) RecordRejection(name string) {
	CircuitBreakerRejectionsTotal.WithLabelValues(name).Inc()
}

// RetryRecorder implements retry.Metrics on the package's Prometheus
// collectors.
type RetryRecorder struct{}

// RecordAttempts implements retry.Metrics.
func (RetryRecorder) RecordAttempts(op string, attempts int, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	RetryAttempts.WithLabelValues(op, result).Observe(float64(attempts))
}

// RecordDelay implements retry.Metrics.
func (RetryRecorder) RecordDelay(op string, delay time.Duration) {
	RetryDelaySeconds.WithLabelValues(op).Observe(delay.Seconds())
}

// RecordExhaustion implements retry.Metrics.
func (RetryRecorder) RecordExhaustion(op string) {
	RetryExhaustionsTotal.WithLabelValues(op).Inc()
}

// IdempotencyRecorder implements idempotency.Metrics on the package's
// Prometheus collectors.
type IdempotencyRecorder struct{}

// RecordCreate implements idempotency.Metrics.
func (IdempotencyRecorder) RecordCreate(created bool) {
	result := "created"
	if !created {
		result = "duplicate"
	}
	IdempotencyChecksTotal.WithLabelValues(result).Inc()
}

// RecordCleanup implements idempotency.Metrics.
func (IdempotencyRecorder) RecordCleanup(removed int) {
	if removed > 0 {
		IdempotencyCleanupRemovedTotal.Add(float64(removed))
	}
}

// BufferRecorder implements eventbuffer.Metrics on the package's Prometheus
// collectors.
type BufferRecorder struct{}

// RecordEnqueued implements eventbuffer.Metrics.
func (BufferRecorder) RecordEnqueued(buffer string, count int) {
	EventBufferEnqueuedTotal.WithLabelValues(buffer).Add(float64(count))
}

// RecordFlush implements eventbuffer.Metrics.
func (BufferRecorder) RecordFlush(buffer string, size int, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	EventBufferFlushesTotal.WithLabelValues(buffer, result).Inc()
	EventBufferFlushBatchSize.WithLabelValues(buffer).Observe(float64(size))
}

// RecordDropped implements eventbuffer.Metrics.
func (BufferRecorder) RecordDropped(buffer string, count int) {
	EventBufferDroppedTotal.WithLabelValues(buffer).Add(float64(count))
}

// SetQueueSize implements eventbuffer.Metrics.
func (BufferRecorder) SetQueueSize(buffer string, size int) {
	EventBufferQueueSize.WithLabelValues(buffer).Set(float64(size))
}
