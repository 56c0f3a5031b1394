// Package resilience provides reliability and fault tolerance patterns for
// outbound calls to external services, most importantly the LLM scoring
// provider.
//
// The package tree supports:
//   - Circuit breakers with typed state-change events (breaker)
//   - Retry execution with exponential backoff, jitter, and two-phase budgets (retry)
//   - TTL-keyed idempotency guarding of request fingerprints (idempotency)
//   - Batched buffering of resilience events for telemetry sinks (eventbuffer)
//
// Usage Example:
//
//	cb := breaker.New(breaker.ScoringAPIConfig())
//	exec := retry.NewExecutor(retry.Config{
//	    Name:    "scoring-api",
//	    Policy:  retry.ScoringAPIPolicy(),
//	    Breaker: cb,
//	})
//	res, err := exec.Execute(ctx, func(ctx context.Context) (any, error) {
//	    return callScoringProvider(ctx)
//	})
//
// All components are constructed explicitly and passed by reference; there is
// no global registry or singleton state.
package resilience
