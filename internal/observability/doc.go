// Package observability provides production-grade observability infrastructure
// including structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// This package centralizes observability concerns to enable:
//   - Tracing a scoring operation across retries and breaker decisions
//   - Structured logging with context propagation
//   - Prometheus metrics for monitoring
//   - SLO tracking for scoring availability
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics registry and recorders
//   - tracing: OpenTelemetry tracing integration
//   - slo: Service level objective gauges
//
// Example usage:
//
//	import (
//	    "prepmate/internal/observability/logging"
//	    "prepmate/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("application started")
//
//	    metrics.RecordScoringRequest("openai", "success", elapsed)
//	}
package observability
