package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"prepmate/internal/resilience/eventbuffer"
)

// SentryConfig contains configuration for the Sentry sink.
type SentryConfig struct {
	// DSN is the Sentry project DSN.
	DSN string

	// Environment tags captured events (e.g. "production", "staging").
	// Default: "development"
	Environment string

	// FlushTimeout bounds how long Close waits for in-flight events.
	// Default: 2 seconds
	FlushTimeout time.Duration
}

// SentrySink forwards resilience events to Sentry as warning-level events.
// It owns its own client and hub so captured events never mix with other
// Sentry usage in the process.
type SentrySink struct {
	config SentryConfig
	client *sentry.Client
	hub    *sentry.Hub
}

// NewSentrySink creates a Sentry sink. It returns an error if the DSN is
// missing or rejected by the Sentry client.
func NewSentrySink(config SentryConfig) (*SentrySink, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("sentry DSN cannot be empty")
	}
	if config.Environment == "" {
		config.Environment = "development"
	}
	if config.FlushTimeout == 0 {
		config.FlushTimeout = 2 * time.Second
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         config.DSN,
		Environment: config.Environment,
	})
	if err != nil {
		return nil, fmt.Errorf("create sentry client: %w", err)
	}

	return &SentrySink{
		config: config,
		client: client,
		hub:    sentry.NewHub(client, sentry.NewScope()),
	}, nil
}

// Name implements Sink.
func (s *SentrySink) Name() string {
	return "sentry"
}

// Deliver implements Sink. Each buffered event becomes one Sentry event
// carrying the original payload in its extra data.
func (s *SentrySink) Deliver(_ context.Context, events []eventbuffer.Event) error {
	for _, ev := range events {
		s.hub.CaptureEvent(&sentry.Event{
			Level:     sentry.LevelWarning,
			Message:   fmt.Sprintf("resilience event %s", ev.ID),
			Timestamp: ev.Timestamp,
			Extra: map[string]interface{}{
				"event_id":    ev.ID,
				"payload":     ev.Payload,
				"retry_count": ev.RetryCount,
			},
		})
	}
	return nil
}

// Close flushes buffered Sentry events. Call during shutdown.
func (s *SentrySink) Close() {
	s.client.Flush(s.config.FlushTimeout)
}
