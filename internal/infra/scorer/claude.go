package scorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"prepmate/internal/resilience/retry"
)

// ClaudeScorer implements the Scorer interface using Anthropic's Claude API.
// It performs a single API call per Score invocation; retry and circuit
// breaking are applied by the caller.
type ClaudeScorer struct {
	client          anthropic.Client
	config          Config
	metricsRecorder MetricsRecorder
}

// NewClaude creates a new Claude scorer with the given API key.
// An empty Model falls back to the current Sonnet release.
func NewClaude(apiKey string, config Config) *ClaudeScorer {
	if config.Model == "" {
		config.Model = string(anthropic.ModelClaudeSonnet4_5_20250929)
	}

	slog.Info("Initialized Claude scorer",
		slog.String("model", config.Model),
		slog.Int("max_tokens", config.MaxTokens))

	return &ClaudeScorer{
		client:          anthropic.NewClient(option.WithAPIKey(apiKey)),
		config:          config,
		metricsRecorder: PrometheusRecorder{},
	}
}

// Name implements Scorer.
func (c *ClaudeScorer) Name() string {
	return ProviderClaude
}

// Score evaluates one answer using Claude.
// API errors carry their HTTP status so callers can classify them as
// transient or permanent.
func (c *ClaudeScorer) Score(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	prompt := buildPrompt(req)

	slog.InfoContext(ctx, "Starting scoring",
		slog.String("provider", ProviderClaude),
		slog.String("question_id", req.QuestionID),
		slog.String("model", c.config.Model))

	start := time.Now()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	})

	duration := time.Since(start)

	if err != nil {
		c.metricsRecorder.RecordRequest(ProviderClaude, "error", duration)
		slog.ErrorContext(ctx, "Scoring failed",
			slog.String("provider", ProviderClaude),
			slog.String("question_id", req.QuestionID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, classifyClaudeError(err)
	}

	// Validate response structure
	if len(message.Content) == 0 {
		c.metricsRecorder.RecordRequest(ProviderClaude, "error", duration)
		return nil, fmt.Errorf("claude api returned empty response")
	}

	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		c.metricsRecorder.RecordRequest(ProviderClaude, "error", duration)
		return nil, fmt.Errorf("claude api returned unexpected response type")
	}

	result, err := parseResult(textBlock.Text, ProviderClaude, c.config.Model)
	if err != nil {
		c.metricsRecorder.RecordRequest(ProviderClaude, "parse_error", duration)
		slog.ErrorContext(ctx, "Scoring response unparseable",
			slog.String("provider", ProviderClaude),
			slog.String("question_id", req.QuestionID),
			slog.String("error", err.Error()))
		return nil, err
	}

	c.metricsRecorder.RecordRequest(ProviderClaude, "success", duration)
	c.metricsRecorder.RecordTokens(ProviderClaude,
		int(message.Usage.InputTokens), int(message.Usage.OutputTokens))

	slog.InfoContext(ctx, "Scoring completed",
		slog.String("provider", ProviderClaude),
		slog.String("question_id", req.QuestionID),
		slog.Int("score", result.Score),
		slog.Duration("duration", duration))

	return result, nil
}

// classifyClaudeError converts Anthropic SDK errors into classified errors.
// API errors with an HTTP status become retry.HTTPError so the retry layer
// can distinguish 5xx/429 (transient) from 4xx (permanent).
func classifyClaudeError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &retry.HTTPError{
			StatusCode: apiErr.StatusCode,
			Message:    fmt.Sprintf("claude api error: %v", apiErr.Error()),
		}
	}
	return fmt.Errorf("claude api error: %w", err)
}
