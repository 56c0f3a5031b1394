// Package score orchestrates AI answer scoring behind the resilience layer.
// One policy governs every provider: a submission is fingerprinted and
// deduplicated, then executed through the breaker-aware retry executor, and
// resilience signals (breaker transitions, retry exhaustion, fallbacks) are
// published to the telemetry buffer manager.
package score

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"prepmate/internal/infra/scorer"
	"prepmate/internal/resilience/breaker"
	"prepmate/internal/resilience/eventbuffer"
	"prepmate/internal/resilience/idempotency"
	"prepmate/internal/resilience/retry"
)

// Service guards LLM scoring calls with deduplication, retry, and circuit
// breaking. All fields are set at construction and never mutated, so the
// service is safe for concurrent use.
type Service struct {
	scorer   scorer.Scorer
	store    *idempotency.Store
	breaker  *breaker.Breaker
	retrier  *retry.TwoPhase
	events   *eventbuffer.Manager
	dedupTTL time.Duration

	pumpDone chan struct{}
}

// Config holds the construction parameters of a scoring Service.
type Config struct {
	// Scorer is the provider adapter to guard.
	Scorer scorer.Scorer

	// Store deduplicates submissions by fingerprint.
	Store *idempotency.Store

	// Breaker guards the provider; its transitions are published as
	// telemetry events while the service's event pump runs.
	Breaker *breaker.Breaker

	// Retrier runs each scoring call with the two-phase retry budget.
	Retrier *retry.TwoPhase

	// Events receives resilience telemetry. Can be nil to disable
	// event publication.
	Events *eventbuffer.Manager

	// DedupTTL is the idempotency window for a submission fingerprint.
	// Default: 5 seconds.
	DedupTTL time.Duration
}

// NewService creates a scoring service with the provided dependencies.
func NewService(cfg Config) *Service {
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 5 * time.Second
	}
	return &Service{
		scorer:   cfg.Scorer,
		store:    cfg.Store,
		breaker:  cfg.Breaker,
		retrier:  cfg.Retrier,
		events:   cfg.Events,
		dedupTTL: cfg.DedupTTL,
	}
}

// Fingerprint derives the idempotency key for a submission. The key is a
// content hash, so a client retry of the same answer maps to the same key
// while any edit produces a new one.
func Fingerprint(req scorer.Request) string {
	h := sha256.New()
	h.Write([]byte(req.QuestionID))
	h.Write([]byte{0})
	h.Write([]byte(req.Question))
	h.Write([]byte{0})
	h.Write([]byte(req.Answer))
	return hex.EncodeToString(h.Sum(nil))
}

// Score evaluates one answer through the full resilience chain.
//
// A duplicate submission inside the dedup window returns
// ErrDuplicateSubmission without consuming any retry budget. When the
// provider stays down through the whole budget, or the circuit breaker
// rejects the call, the error is an *UnavailableError so callers can offer
// self-review. On failure the fingerprint is released so the user can retry
// immediately; on success it is kept for the remainder of the window.
func (s *Service) Score(ctx context.Context, req scorer.Request) (*scorer.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring request: %w", err)
	}

	fingerprint := Fingerprint(req)
	if !s.store.TryCreate(fingerprint, s.dedupTTL) {
		slog.InfoContext(ctx, "duplicate submission rejected",
			slog.String("question_id", req.QuestionID))
		return nil, ErrDuplicateSubmission
	}

	res, err := s.retrier.Execute(ctx, func(ctx context.Context) (any, error) {
		return s.scorer.Score(ctx, req)
	})
	if err != nil {
		// Release the fingerprint so the user's next attempt is not
		// treated as a duplicate of a failed chain.
		s.store.Delete(fingerprint)
		return nil, s.handleFailure(ctx, req, res, err)
	}

	result, ok := res.Value.(*scorer.Result)
	if !ok {
		s.store.Delete(fingerprint)
		return nil, fmt.Errorf("scorer returned unexpected value type %T", res.Value)
	}

	slog.InfoContext(ctx, "scoring succeeded",
		slog.String("provider", s.scorer.Name()),
		slog.String("question_id", req.QuestionID),
		slog.Int("score", result.Score),
		slog.Int("attempts", res.Attempts))

	return result, nil
}

// handleFailure classifies a failed attempt chain, publishes telemetry, and
// converts retryable exhaustion and breaker rejections into UnavailableError.
func (s *Service) handleFailure(ctx context.Context, req scorer.Request, res *retry.Result, err error) error {
	attempts := 0
	var totalTime time.Duration
	if res != nil {
		attempts = res.Attempts
		totalTime = res.TotalTime
	}

	if breaker.IsOpenError(err) {
		slog.WarnContext(ctx, "scoring rejected by open circuit breaker",
			slog.String("question_id", req.QuestionID),
			slog.String("breaker", s.breaker.Name()))
		s.publish(EventTypeScoringFallback, FallbackPayload{
			QuestionID: req.QuestionID,
			Reason:     "circuit_open",
		})
		return &UnavailableError{Attempts: attempts, Err: err}
	}

	if retry.IsTransient(err) {
		// Transient error that survived the whole budget.
		s.publish(EventTypeRetryExhausted, RetryExhaustedPayload{
			Operation:  s.scorer.Name(),
			QuestionID: req.QuestionID,
			Attempts:   attempts,
			TotalTime:  totalTime,
			Error:      err.Error(),
		})
		s.publish(EventTypeScoringFallback, FallbackPayload{
			QuestionID: req.QuestionID,
			Reason:     "retry_exhausted",
		})
		return &UnavailableError{Attempts: attempts, Err: err}
	}

	// Permanent errors (bad request, parse failure) surface as-is.
	return fmt.Errorf("scoring failed: %w", err)
}

// publish enqueues a telemetry event if a manager is configured.
func (s *Service) publish(eventType string, payload any) {
	if s.events == nil {
		return
	}
	s.events.Publish(eventType, payload)
}

// StartEventPump consumes breaker state transitions and republishes them to
// the telemetry buffer until the breaker's event channel is drained and ctx
// is done. Safe to call once per service; the pump goroutine exits when ctx
// is canceled.
func (s *Service) StartEventPump(ctx context.Context) {
	if s.breaker == nil || s.events == nil {
		return
	}
	s.pumpDone = make(chan struct{})
	go func() {
		defer close(s.pumpDone)
		for {
			select {
			case ev := <-s.breaker.Events():
				s.publish(EventTypeBreakerStateChange, transitionPayload(ev))
				slog.Info("circuit breaker transition published",
					slog.String("breaker", ev.Breaker),
					slog.String("from", ev.From.String()),
					slog.String("to", ev.To.String()))
			case <-ctx.Done():
				return
			}
		}
	}()
}

// WaitEventPump blocks until the event pump goroutine has exited. Returns
// immediately if the pump was never started.
func (s *Service) WaitEventPump() {
	if s.pumpDone == nil {
		return
	}
	<-s.pumpDone
}
