package retry

import (
	"context"
	"log/slog"
)

// TwoPhase composes a short "fast" retry budget with the full policy: the
// operation is first retried with low delays tuned for sub-second transient
// errors, and only if that budget is exhausted does the full policy take
// over.
//
// The two budgets are independent, but the combined attempt count is capped
// by TotalBudget so that composing them can never silently exceed what the
// caller configured.
type TwoPhase struct {
	executor *Executor

	// Fast is the short, low-delay phase. Default: FastProbePolicy.
	Fast Policy

	// Full is the fallback phase. Default: the executor's own policy.
	Full Policy

	// TotalBudget caps attempts across both phases. Zero means
	// Fast.MaxAttempts + Full.MaxAttempts.
	TotalBudget int
}

// NewTwoPhase creates a two-phase retrier on top of an executor.
func NewTwoPhase(e *Executor, fast, full Policy, totalBudget int) *TwoPhase {
	fast = fast.withDefaults()
	full = full.withDefaults()
	if totalBudget <= 0 {
		totalBudget = fast.MaxAttempts + full.MaxAttempts
	}
	return &TwoPhase{
		executor:    e,
		Fast:        fast,
		Full:        full,
		TotalBudget: totalBudget,
	}
}

// Execute runs the fast phase, then falls back to the full phase on
// exhaustion. Attempts and TotalTime in the returned Result cover both
// phases. A non-retryable error or context cancellation during the fast
// phase is returned immediately without entering the full phase.
func (t *TwoPhase) Execute(ctx context.Context, op Operation) (*Result, error) {
	fast := t.Fast
	if fast.MaxAttempts > t.TotalBudget {
		fast.MaxAttempts = t.TotalBudget
	}

	res, err := t.executor.ExecuteWith(ctx, op, fast)
	if err == nil {
		return res, nil
	}
	if !fast.ShouldRetry(err) || ctx.Err() != nil {
		return res, err
	}

	remaining := t.TotalBudget - res.Attempts
	if remaining <= 0 {
		return res, err
	}

	slog.InfoContext(ctx, "fast retry budget exhausted, falling back to full policy",
		slog.Int("fast_attempts", res.Attempts),
		slog.Int("remaining_budget", remaining))

	full := t.Full
	if full.MaxAttempts > remaining {
		full.MaxAttempts = remaining
	}

	fullRes, err := t.executor.ExecuteWith(ctx, op, full)
	fullRes.Attempts += res.Attempts
	fullRes.TotalTime += res.TotalTime
	return fullRes, err
}
