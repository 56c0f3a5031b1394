package score

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"prepmate/internal/infra/scorer"
	"prepmate/internal/resilience/eventbuffer"
	"prepmate/internal/resilience/retry"
)

func TestHandleFailure_NilResult(t *testing.T) {
	events := eventbuffer.NewManager(eventbuffer.Config{MaxSize: 10})
	s := &Service{scorer: scorer.NewNoOp(), events: events}

	req := scorer.Request{QuestionID: "q1"}
	err := s.handleFailure(context.Background(), req, nil,
		&retry.HTTPError{StatusCode: http.StatusServiceUnavailable, Message: "down"})

	var unavail *UnavailableError
	if !errors.As(err, &unavail) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
	if unavail.Attempts != 0 {
		t.Errorf("expected 0 attempts without a retry result, got %d", unavail.Attempts)
	}
	if got := events.Buffer(EventTypeRetryExhausted).Len(); got != 1 {
		t.Errorf("expected 1 exhaustion event, got %d", got)
	}
	if got := events.Buffer(EventTypeScoringFallback).Len(); got != 1 {
		t.Errorf("expected 1 fallback event, got %d", got)
	}
}
