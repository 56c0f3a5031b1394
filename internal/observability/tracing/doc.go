// Package tracing provides OpenTelemetry tracing integration.
//
// Spans are created around the retry loop and each outbound scoring call so
// a single answer submission can be followed through its attempts. The
// operations HTTP server wraps its handlers with Middleware for trace
// propagation.
//
// Example usage:
//
//	import "prepmate/internal/observability/tracing"
//
//	func scoreAnswer(ctx context.Context) {
//	    ctx, span := tracing.GetTracer().Start(ctx, "score-answer")
//	    defer span.End()
//	    // ... call the provider ...
//	}
package tracing
