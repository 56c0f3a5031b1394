package scorer

import (
	"time"

	"prepmate/internal/observability/metrics"
)

// MetricsRecorder defines the interface for recording scoring metrics.
// This interface abstracts the metrics recording implementation, enabling
// mocking in unit tests and reuse across providers.
type MetricsRecorder interface {
	// RecordRequest records one scoring call with its outcome and latency.
	RecordRequest(provider, status string, duration time.Duration)

	// RecordTokens records provider token usage for one scoring call.
	RecordTokens(provider string, input, output int)
}

// PrometheusRecorder is the production MetricsRecorder backed by the
// central Prometheus registry.
type PrometheusRecorder struct{}

// RecordRequest implements MetricsRecorder.
func (PrometheusRecorder) RecordRequest(provider, status string, duration time.Duration) {
	metrics.RecordScoringRequest(provider, status, duration)
}

// RecordTokens implements MetricsRecorder.
func (PrometheusRecorder) RecordTokens(provider string, input, output int) {
	metrics.RecordScoringTokens(provider, input, output)
}

// NoOpRecorder discards all recordings.
type NoOpRecorder struct{}

// RecordRequest implements MetricsRecorder.
func (NoOpRecorder) RecordRequest(string, string, time.Duration) {}

// RecordTokens implements MetricsRecorder.
func (NoOpRecorder) RecordTokens(string, int, int) {}
