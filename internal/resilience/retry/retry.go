// Package retry provides a retry executor with exponential backoff and jitter.
// It helps handle transient failures gracefully by automatically retrying
// failed operations, optionally consulting a circuit breaker before each
// attempt.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"prepmate/internal/observability/tracing"
	"prepmate/internal/resilience/breaker"
)

// Operation is a guarded unit of work. It must respect ctx cancellation.
type Operation func(ctx context.Context) (any, error)

// Policy holds the retry parameters. All fields are per-call overridable by
// passing a Policy to ExecuteWith.
type Policy struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	// Default: 3
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	// Default: 500ms
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff delay.
	// Default: 10 seconds
	MaxDelay time.Duration

	// Jitter perturbs each delay by up to ±25% to avoid synchronized retry
	// storms across callers.
	Jitter bool

	// ShouldRetry decides whether an error is worth retrying.
	// Default: IsTransient
	ShouldRetry func(error) bool

	// CalculateDelay computes the delay before the retry following the given
	// attempt (1-based). Default: exponential backoff
	// min(base * 2^(attempt-1), max).
	CalculateDelay func(attempt int, base, max time.Duration) time.Duration
}

// DefaultPolicy returns a default retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      true,
	}
}

// ScoringAPIPolicy returns a policy tuned for LLM scoring calls.
// Attempts are expensive, so the budget is small and delays are generous.
func ScoringAPIPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
		Jitter:      true,
	}
}

// FastProbePolicy returns a short, low-delay budget tuned for sub-second
// transient errors. See TwoPhase for composing it with a full policy.
func FastProbePolicy() Policy {
	return Policy{
		MaxAttempts: 2,
		BaseDelay:   50 * time.Millisecond,
		MaxDelay:    200 * time.Millisecond,
		Jitter:      true,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 10 * time.Second
	}
	if p.ShouldRetry == nil {
		p.ShouldRetry = IsTransient
	}
	if p.CalculateDelay == nil {
		p.CalculateDelay = ExponentialDelay
	}
	return p
}

// ExponentialDelay computes min(base * 2^(attempt-1), max) for a 1-based
// attempt number.
func ExponentialDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		delay = max
	}
	return delay
}

// Result describes the outcome of an Execute call. Attempts and TotalTime are
// populated on both success and failure so callers can observe how much work
// was done.
type Result struct {
	// Value is the operation's return value. Nil unless the call succeeded.
	Value any

	// Attempts is the number of attempts made, including the successful one.
	Attempts int

	// TotalTime is the wall time spent across all attempts and backoff sleeps.
	TotalTime time.Duration
}

// Metrics records retry observability signals. Implementations must be safe
// for concurrent use.
type Metrics interface {
	// RecordAttempts records the attempt count of a finished execution.
	RecordAttempts(op string, attempts int, success bool)

	// RecordDelay records a backoff delay before a retry.
	RecordDelay(op string, delay time.Duration)

	// RecordExhaustion records an execution that failed all allowed attempts.
	RecordExhaustion(op string)
}

// NoOpMetrics is a Metrics implementation that discards all recordings.
type NoOpMetrics struct{}

// RecordAttempts implements Metrics.
func (*NoOpMetrics) RecordAttempts(string, int, bool) {}

// RecordDelay implements Metrics.
func (*NoOpMetrics) RecordDelay(string, time.Duration) {}

// RecordExhaustion implements Metrics.
func (*NoOpMetrics) RecordExhaustion(string) {}

// Config holds the construction parameters of an Executor.
type Config struct {
	// Name identifies the guarded operation in logs, metrics, and spans.
	Name string

	// Policy is the default retry policy; overridable per call.
	Policy Policy

	// Breaker, when set, is consulted before every attempt. An open breaker
	// rejection is returned to the caller without consuming further attempts
	// (the default classifier treats it as non-retryable).
	Breaker *breaker.Breaker

	// Metrics records attempt counts, delays, and exhaustion.
	// Default: NoOpMetrics
	Metrics Metrics
}

// Executor retries an arbitrary operation according to a Policy. It holds no
// cross-call state: every Execute call is independent, and backoff sleeps
// suspend only the calling goroutine.
type Executor struct {
	name    string
	policy  Policy
	breaker *breaker.Breaker
	metrics Metrics
}

// NewExecutor creates an Executor with the given configuration.
func NewExecutor(cfg Config) *Executor {
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &NoOpMetrics{}
	}
	return &Executor{
		name:    cfg.Name,
		policy:  cfg.Policy.withDefaults(),
		breaker: cfg.Breaker,
		metrics: cfg.Metrics,
	}
}

// Execute runs the operation with the executor's default policy.
func (e *Executor) Execute(ctx context.Context, op Operation) (*Result, error) {
	return e.ExecuteWith(ctx, op, e.policy)
}

// ExecuteWith runs the operation with a per-call policy override.
//
// The operation is attempted up to policy.MaxAttempts times. On success the
// result is returned immediately with the attempt count. On failure, the loop
// stops early when the error is classified as non-retryable or the context is
// canceled; otherwise it sleeps for the computed backoff and tries again.
// After exhaustion the last error is returned as-is, not wrapped, so callers
// can match it with errors.Is/As.
func (e *Executor) ExecuteWith(ctx context.Context, op Operation, policy Policy) (*Result, error) {
	p := policy.withDefaults()
	start := time.Now()

	ctx, span := tracing.GetTracer().Start(ctx, "retry.execute")
	span.SetAttributes(attribute.String("retry.operation", e.name))
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		value, err := e.attempt(ctx, op)
		if err == nil {
			if attempt > 1 {
				slog.InfoContext(ctx, "operation succeeded after retry",
					slog.String("operation", e.name),
					slog.Int("attempt", attempt))
			}
			res := &Result{Value: value, Attempts: attempt, TotalTime: time.Since(start)}
			span.SetAttributes(attribute.Int("retry.attempts", attempt))
			e.metrics.RecordAttempts(e.name, attempt, true)
			return res, nil
		}
		lastErr = err

		if !p.ShouldRetry(err) {
			slog.WarnContext(ctx, "non-retryable error, aborting",
				slog.String("operation", e.name),
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			e.metrics.RecordAttempts(e.name, attempt, false)
			return &Result{Attempts: attempt, TotalTime: time.Since(start)}, err
		}
		if attempt == p.MaxAttempts {
			break
		}

		delay := p.CalculateDelay(attempt, p.BaseDelay, p.MaxDelay)
		if p.Jitter {
			delay = addJitter(delay)
		}
		e.metrics.RecordDelay(e.name, delay)

		slog.WarnContext(ctx, "operation failed, retrying",
			slog.String("operation", e.name),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", p.MaxAttempts),
			slog.Duration("delay", delay),
			slog.Any("error", err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			e.metrics.RecordAttempts(e.name, attempt, false)
			return &Result{Attempts: attempt, TotalTime: time.Since(start)},
				fmt.Errorf("retry aborted: %w", ctx.Err())
		}
	}

	e.metrics.RecordAttempts(e.name, p.MaxAttempts, false)
	e.metrics.RecordExhaustion(e.name)
	slog.ErrorContext(ctx, "retry budget exhausted",
		slog.String("operation", e.name),
		slog.Int("attempts", p.MaxAttempts),
		slog.Any("error", lastErr))

	return &Result{Attempts: p.MaxAttempts, TotalTime: time.Since(start)}, lastErr
}

// attempt runs one attempt, through the circuit breaker when configured.
func (e *Executor) attempt(ctx context.Context, op Operation) (any, error) {
	if e.breaker == nil {
		return op(ctx)
	}
	return e.breaker.Execute(func() (any, error) {
		return op(ctx)
	})
}

// addJitter perturbs a delay by up to ±25% to prevent thundering herd.
func addJitter(delay time.Duration) time.Duration {
	// #nosec G404 -- math/rand is acceptable for backoff jitter;
	// cryptographic randomness is not required.
	jittered := delay + time.Duration(float64(delay)*0.25*(2*rand.Float64()-1))
	if jittered < 0 {
		return 0
	}
	return jittered
}
