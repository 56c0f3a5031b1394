// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - Circuit breaker state, transitions, and rejections
//   - Retry attempts, backoff delays, and exhaustions
//   - Idempotency key checks and cleanup
//   - Event buffer throughput and drops
//   - Outbound scoring call latency and token usage
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "prepmate/internal/observability/metrics"
//
//	func scoreAnswer(provider string) {
//	    start := time.Now()
//	    // ... call the provider ...
//
//	    metrics.RecordScoringRequest(provider, "success", time.Since(start))
//	}
package metrics
