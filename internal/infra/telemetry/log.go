package telemetry

import (
	"context"
	"log/slog"

	"prepmate/internal/resilience/eventbuffer"
)

// LogSink writes resilience events to the structured log. It is the default
// sink for local development where no webhook or Sentry DSN is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a log sink. A nil logger uses slog.Default.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Name implements Sink.
func (s *LogSink) Name() string {
	return "log"
}

// Deliver implements Sink. It never fails; a log sink has no transport to
// lose events to.
func (s *LogSink) Deliver(_ context.Context, events []eventbuffer.Event) error {
	for _, ev := range events {
		s.logger.Info("resilience event",
			slog.String("event_id", ev.ID),
			slog.Time("timestamp", ev.Timestamp),
			slog.Any("payload", ev.Payload),
		)
	}
	return nil
}
