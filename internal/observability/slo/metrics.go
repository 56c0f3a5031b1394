package slo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SLO targets define the service level objectives for answer scoring.
// These targets are used to measure and monitor scoring reliability.
const (
	// ScoringAvailabilitySLO defines the target ratio of answer submissions
	// that receive an AI score, after retries and fallback (99% = drill
	// sessions almost never fall back to self-review)
	ScoringAvailabilitySLO = 99.0

	// ScoringLatencyP95SLO defines the target for 95th percentile end-to-end
	// scoring latency in seconds, including retries (10s)
	ScoringLatencyP95SLO = 10.0

	// BreakerOpenRatioSLO defines the maximum acceptable fraction of time the
	// scoring circuit breaker spends open (2%)
	BreakerOpenRatioSLO = 0.02

	// EventDeliverySLO defines the minimum ratio of buffered resilience
	// events that reach their telemetry sink before being dropped (99.5%)
	EventDeliverySLO = 0.995
)

// SLO tracking metrics
// These gauges are updated periodically (e.g., every minute) based on recent
// measurements to track whether the service is meeting its SLO targets.
var (
	// SLOScoringAvailability tracks the current scored-submission ratio (0-1)
	// calculated as: scored_submissions / total_submissions
	SLOScoringAvailability = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_scoring_availability_ratio",
			Help: "Current ratio of submissions that received an AI score (0-1), target: 0.99",
		},
	)

	// SLOScoringLatencyP95 tracks the current p95 end-to-end scoring latency
	// in seconds, calculated from the scoring_duration_seconds histogram
	SLOScoringLatencyP95 = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_scoring_latency_p95_seconds",
			Help: "Current p95 scoring latency in seconds, target: 10",
		},
	)

	// SLOBreakerOpenRatio tracks the fraction of time the scoring breaker
	// spent open over the measurement window (0-1)
	SLOBreakerOpenRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_breaker_open_ratio",
			Help: "Fraction of time the scoring circuit breaker was open (0-1), target: 0.02",
		},
	)

	// SLOEventDelivery tracks the ratio of buffered events delivered to
	// their sink (0-1), calculated as: flushed / (flushed + failed + dropped)
	SLOEventDelivery = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_event_delivery_ratio",
			Help: "Ratio of resilience events delivered to their sink (0-1), target: 0.995",
		},
	)
)

// UpdateScoringAvailability updates the scoring availability SLO metric.
// Call this periodically (e.g., every minute) with the calculated ratio.
//
// Example calculation:
//
//	total := getSubmissionCount()
//	scored := getScoredSubmissionCount()
//	slo.UpdateScoringAvailability(float64(scored) / float64(total))
func UpdateScoringAvailability(ratio float64) {
	SLOScoringAvailability.Set(ratio)
}

// UpdateScoringLatencyP95 updates the p95 scoring latency SLO metric.
// Call this periodically with the calculated p95 latency in seconds.
//
// Example using Prometheus query:
//
//	histogram_quantile(0.95, rate(scoring_duration_seconds_bucket[5m]))
func UpdateScoringLatencyP95(seconds float64) {
	SLOScoringLatencyP95.Set(seconds)
}

// UpdateBreakerOpenRatio updates the breaker open-time SLO metric.
// Call this periodically with the fraction of the window the breaker was open.
func UpdateBreakerOpenRatio(ratio float64) {
	SLOBreakerOpenRatio.Set(ratio)
}

// UpdateEventDelivery updates the event delivery SLO metric.
// Call this periodically with the calculated delivery ratio.
//
// Example calculation:
//
//	stats := manager.Stats()
//	delivered := stats.FlushedEvents
//	lost := stats.FailedEvents + stats.DroppedEvents
//	slo.UpdateEventDelivery(float64(delivered) / float64(delivered+lost))
func UpdateEventDelivery(ratio float64) {
	SLOEventDelivery.Set(ratio)
}
