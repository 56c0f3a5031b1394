package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"prepmate/internal/resilience/eventbuffer"
)

// WebhookConfig contains configuration for the HTTP webhook sink.
type WebhookConfig struct {
	// Enabled indicates whether webhook delivery is enabled
	Enabled bool

	// URL is the webhook endpoint. Must be HTTPS.
	URL string

	// Timeout is the HTTP request timeout for webhook calls
	Timeout time.Duration

	// Source identifies this deployment in the payload.
	// Default: "prepmate"
	Source string
}

// WebhookSink delivers resilience event batches to an HTTP webhook endpoint.
//
// The sink carries its own guard rails so a dead telemetry endpoint cannot
// slow down the scoring path:
//   - Rate limiter at 2 req/s with burst of 4
//   - A failure-ratio circuit breaker around the HTTP call
type WebhookSink struct {
	config      WebhookConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
	breaker     *gobreaker.CircuitBreaker
}

// NewWebhookSink creates a webhook sink with the specified configuration.
// It returns an error if the webhook URL is missing or not HTTPS.
func NewWebhookSink(config WebhookConfig) (*WebhookSink, error) {
	if err := validateWebhookURL(config.URL); err != nil {
		return nil, err
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Source == "" {
		config.Source = "prepmate"
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "telemetry-webhook",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("telemetry webhook breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return &WebhookSink{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(2.0, 4),
		breaker:     breaker,
	}, nil
}

// validateWebhookURL rejects non-HTTPS endpoints so event payloads are
// never sent in the clear.
func validateWebhookURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("webhook URL cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if parsed.Scheme != "https" {
		return fmt.Errorf("webhook URL must use https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("webhook URL missing host")
	}
	return nil
}

// webhookPayload is the JSON body posted to the webhook endpoint.
type webhookPayload struct {
	Source string             `json:"source"`
	SentAt time.Time          `json:"sent_at"`
	Events []eventbuffer.Event `json:"events"`
}

// Name implements Sink.
func (s *WebhookSink) Name() string {
	return "webhook"
}

// Deliver implements Sink. It posts the batch as one JSON payload, guarded
// by the sink's rate limiter and circuit breaker.
func (s *WebhookSink) Deliver(ctx context.Context, events []eventbuffer.Event) error {
	if !s.config.Enabled || len(events) == 0 {
		return nil
	}

	if err := s.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("telemetry rate limiter: %w", err)
	}

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.post(ctx, events)
	})
	if err != nil {
		slog.Warn("telemetry webhook delivery failed",
			slog.Int("events", len(events)),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

func (s *WebhookSink) post(ctx context.Context, events []eventbuffer.Event) error {
	payload := webhookPayload{
		Source: s.config.Source,
		SentAt: time.Now().UTC(),
		Events: events,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			Message:    "telemetry webhook rate limit exceeded",
			RetryAfter: extractRetryAfter(resp),
		}
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("telemetry webhook client error: %s", string(body)),
		}
	}

	if resp.StatusCode >= 500 {
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("telemetry webhook server error: %s", string(body)),
		}
	}

	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
}
