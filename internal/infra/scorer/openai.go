package scorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"prepmate/internal/resilience/retry"
)

// OpenAIScorer implements the Scorer interface using OpenAI's chat API.
// It performs a single API call per Score invocation; retry and circuit
// breaking are applied by the caller.
type OpenAIScorer struct {
	client          *openai.Client
	config          Config
	metricsRecorder MetricsRecorder
}

// NewOpenAI creates a new OpenAI scorer with the given API key.
// An empty Model falls back to gpt-4o-mini.
func NewOpenAI(apiKey string, config Config) *OpenAIScorer {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}

	slog.Info("Initialized OpenAI scorer",
		slog.String("model", config.Model),
		slog.Int("max_tokens", config.MaxTokens))

	return &OpenAIScorer{
		client:          openai.NewClient(apiKey),
		config:          config,
		metricsRecorder: PrometheusRecorder{},
	}
}

// Name implements Scorer.
func (o *OpenAIScorer) Name() string {
	return ProviderOpenAI
}

// Score evaluates one answer using OpenAI's chat API.
// API errors carry their HTTP status so callers can classify them as
// transient or permanent.
func (o *OpenAIScorer) Score(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	prompt := buildPrompt(req)

	slog.InfoContext(ctx, "Starting scoring",
		slog.String("provider", ProviderOpenAI),
		slog.String("question_id", req.QuestionID),
		slog.String("model", o.config.Model))

	start := time.Now()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.config.Model,
		MaxTokens: o.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})

	duration := time.Since(start)

	if err != nil {
		o.metricsRecorder.RecordRequest(ProviderOpenAI, "error", duration)
		slog.ErrorContext(ctx, "Scoring failed",
			slog.String("provider", ProviderOpenAI),
			slog.String("question_id", req.QuestionID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, classifyOpenAIError(err)
	}

	// Safety check to prevent panic on array access
	if len(resp.Choices) == 0 {
		o.metricsRecorder.RecordRequest(ProviderOpenAI, "error", duration)
		return nil, fmt.Errorf("openai api returned empty response")
	}

	result, err := parseResult(resp.Choices[0].Message.Content, ProviderOpenAI, o.config.Model)
	if err != nil {
		o.metricsRecorder.RecordRequest(ProviderOpenAI, "parse_error", duration)
		slog.ErrorContext(ctx, "Scoring response unparseable",
			slog.String("provider", ProviderOpenAI),
			slog.String("question_id", req.QuestionID),
			slog.String("error", err.Error()))
		return nil, err
	}

	o.metricsRecorder.RecordRequest(ProviderOpenAI, "success", duration)
	o.metricsRecorder.RecordTokens(ProviderOpenAI, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	slog.InfoContext(ctx, "Scoring completed",
		slog.String("provider", ProviderOpenAI),
		slog.String("question_id", req.QuestionID),
		slog.Int("score", result.Score),
		slog.Duration("duration", duration))

	return result, nil
}

// classifyOpenAIError converts OpenAI SDK errors into classified errors.
// API errors with an HTTP status become retry.HTTPError so the retry layer
// can distinguish 5xx/429 (transient) from 4xx (permanent).
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &retry.HTTPError{
			StatusCode: apiErr.HTTPStatusCode,
			Message:    fmt.Sprintf("openai api error: %v", apiErr.Message),
		}
	}
	return fmt.Errorf("openai api error: %w", err)
}
