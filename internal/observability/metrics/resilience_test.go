package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"prepmate/internal/resilience/breaker"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetGauge().GetValue()
}

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	m := &dto.Metric{}
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatal("observer does not implement prometheus.Metric")
	}
	if err := metric.Write(m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestBreakerRecorder(t *testing.T) {
	rec := BreakerRecorder{}

	rec.RecordState("test_breaker", breaker.StateOpen)
	if got := gaugeValue(t, CircuitBreakerState.WithLabelValues("test_breaker")); got != 1 {
		t.Errorf("expected state gauge 1 (open), got %v", got)
	}

	rec.RecordState("test_breaker", breaker.StateHalfOpen)
	if got := gaugeValue(t, CircuitBreakerState.WithLabelValues("test_breaker")); got != 2 {
		t.Errorf("expected state gauge 2 (half_open), got %v", got)
	}

	rec.RecordTransition("test_breaker", breaker.StateClosed, breaker.StateOpen)
	transitions := CircuitBreakerTransitionsTotal.WithLabelValues("test_breaker", "closed", "open")
	if got := counterValue(t, transitions); got != 1 {
		t.Errorf("expected 1 transition, got %v", got)
	}

	rec.RecordRejection("test_breaker")
	rec.RecordRejection("test_breaker")
	if got := counterValue(t, CircuitBreakerRejectionsTotal.WithLabelValues("test_breaker")); got != 2 {
		t.Errorf("expected 2 rejections, got %v", got)
	}
}

func TestRetryRecorder(t *testing.T) {
	rec := RetryRecorder{}

	rec.RecordAttempts("test_op", 3, true)
	rec.RecordAttempts("test_op", 5, false)
	if got := histogramCount(t, RetryAttempts.WithLabelValues("test_op", "success")); got != 1 {
		t.Errorf("expected 1 success sample, got %d", got)
	}
	if got := histogramCount(t, RetryAttempts.WithLabelValues("test_op", "failure")); got != 1 {
		t.Errorf("expected 1 failure sample, got %d", got)
	}

	rec.RecordDelay("test_op", 200*time.Millisecond)
	if got := histogramCount(t, RetryDelaySeconds.WithLabelValues("test_op")); got != 1 {
		t.Errorf("expected 1 delay sample, got %d", got)
	}

	rec.RecordExhaustion("test_op")
	if got := counterValue(t, RetryExhaustionsTotal.WithLabelValues("test_op")); got != 1 {
		t.Errorf("expected 1 exhaustion, got %v", got)
	}
}

func TestIdempotencyRecorder(t *testing.T) {
	rec := IdempotencyRecorder{}

	rec.RecordCreate(true)
	rec.RecordCreate(false)
	rec.RecordCreate(false)

	if got := counterValue(t, IdempotencyChecksTotal.WithLabelValues("created")); got != 1 {
		t.Errorf("expected 1 created, got %v", got)
	}
	if got := counterValue(t, IdempotencyChecksTotal.WithLabelValues("duplicate")); got != 2 {
		t.Errorf("expected 2 duplicates, got %v", got)
	}

	before := counterValue(t, IdempotencyCleanupRemovedTotal)
	rec.RecordCleanup(4)
	rec.RecordCleanup(0) // zero removals must not move the counter
	if got := counterValue(t, IdempotencyCleanupRemovedTotal); got != before+4 {
		t.Errorf("expected cleanup counter %v, got %v", before+4, got)
	}
}

func TestBufferRecorder(t *testing.T) {
	rec := BufferRecorder{}

	rec.RecordEnqueued("test_buffer", 3)
	if got := counterValue(t, EventBufferEnqueuedTotal.WithLabelValues("test_buffer")); got != 3 {
		t.Errorf("expected 3 enqueued, got %v", got)
	}

	rec.RecordFlush("test_buffer", 3, true)
	rec.RecordFlush("test_buffer", 2, false)
	if got := counterValue(t, EventBufferFlushesTotal.WithLabelValues("test_buffer", "success")); got != 1 {
		t.Errorf("expected 1 successful flush, got %v", got)
	}
	if got := counterValue(t, EventBufferFlushesTotal.WithLabelValues("test_buffer", "failure")); got != 1 {
		t.Errorf("expected 1 failed flush, got %v", got)
	}
	if got := histogramCount(t, EventBufferFlushBatchSize.WithLabelValues("test_buffer")); got != 2 {
		t.Errorf("expected 2 batch size samples, got %d", got)
	}

	rec.RecordDropped("test_buffer", 2)
	if got := counterValue(t, EventBufferDroppedTotal.WithLabelValues("test_buffer")); got != 2 {
		t.Errorf("expected 2 dropped, got %v", got)
	}

	rec.SetQueueSize("test_buffer", 7)
	if got := gaugeValue(t, EventBufferQueueSize.WithLabelValues("test_buffer")); got != 7 {
		t.Errorf("expected queue size 7, got %v", got)
	}
}

func TestRecordScoringRequest(t *testing.T) {
	RecordScoringRequest("openai", "success", 800*time.Millisecond)
	if got := counterValue(t, ScoringRequestsTotal.WithLabelValues("openai", "success")); got != 1 {
		t.Errorf("expected 1 scoring request, got %v", got)
	}
	if got := histogramCount(t, ScoringDuration.WithLabelValues("openai")); got != 1 {
		t.Errorf("expected 1 duration sample, got %d", got)
	}
}

func TestRecordScoringTokens(t *testing.T) {
	RecordScoringTokens("claude", 120, 45)
	if got := counterValue(t, ScoringTokensTotal.WithLabelValues("claude", "input")); got != 120 {
		t.Errorf("expected 120 input tokens, got %v", got)
	}
	if got := counterValue(t, ScoringTokensTotal.WithLabelValues("claude", "output")); got != 45 {
		t.Errorf("expected 45 output tokens, got %v", got)
	}

	RecordScoringTokens("claude", 0, 0) // unknown usage must not move counters
	if got := counterValue(t, ScoringTokensTotal.WithLabelValues("claude", "input")); got != 120 {
		t.Errorf("expected input tokens unchanged, got %v", got)
	}
}
