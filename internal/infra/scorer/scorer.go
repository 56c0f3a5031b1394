// Package scorer provides AI-powered answer scoring implementations.
// It includes adapters for Claude (Anthropic) and OpenAI APIs plus a no-op
// scorer for when AI scoring is disabled.
//
// Adapters are deliberately thin: they call the provider, parse the
// response, and classify transport errors. Retry, circuit breaking, and
// deduplication live in the scoring use case, so a single resilience policy
// governs every provider.
package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Request describes one answer to score.
type Request struct {
	// QuestionID identifies the interview question.
	QuestionID string

	// Question is the interview question text.
	Question string

	// Answer is the candidate's answer to evaluate.
	Answer string

	// Category optionally narrows the rubric (e.g. "behavioral",
	// "system-design").
	Category string
}

// Validate checks that the request can be scored.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if strings.TrimSpace(r.Answer) == "" {
		return fmt.Errorf("answer cannot be empty")
	}
	return nil
}

// Result is a parsed scoring response.
type Result struct {
	// Score is the overall score on a 0-100 scale.
	Score int `json:"score"`

	// Feedback is the free-form evaluation text.
	Feedback string `json:"feedback"`

	// Strengths lists what the answer did well.
	Strengths []string `json:"strengths,omitempty"`

	// Improvements lists concrete suggestions.
	Improvements []string `json:"improvements,omitempty"`

	// Provider and Model record which backend produced the score.
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Scorer evaluates interview answers.
type Scorer interface {
	// Name identifies the provider for logging and metrics.
	Name() string

	// Score evaluates one answer. Implementations must respect context
	// cancellation and return classified errors so callers can distinguish
	// transient failures from permanent ones.
	Score(ctx context.Context, req Request) (*Result, error)
}

// buildPrompt constructs the scoring prompt shared by all providers. The
// response format is pinned to JSON so parseResult can handle any backend.
func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are an experienced interview coach. Evaluate the answer below.\n")
	if req.Category != "" {
		fmt.Fprintf(&b, "Question category: %s\n", req.Category)
	}
	fmt.Fprintf(&b, "\nQuestion:\n%s\n\nAnswer:\n%s\n\n", req.Question, req.Answer)
	b.WriteString("Respond with JSON only, no prose around it, in this shape:\n")
	b.WriteString(`{"score": <0-100>, "feedback": "<2-4 sentences>", "strengths": ["..."], "improvements": ["..."]}`)
	return b.String()
}

// parseResult extracts a Result from a provider response. Models sometimes
// wrap JSON in a fenced code block, so fences are stripped before parsing.
func parseResult(raw, provider, model string) (*Result, error) {
	text := strings.TrimSpace(raw)
	if after, ok := strings.CutPrefix(text, "```json"); ok {
		text = after
	} else if after, ok := strings.CutPrefix(text, "```"); ok {
		text = after
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	text = strings.TrimSpace(text)

	var result Result
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("parse scoring response: %w", err)
	}
	if result.Score < 0 || result.Score > 100 {
		return nil, fmt.Errorf("score %d outside 0-100 range", result.Score)
	}
	if strings.TrimSpace(result.Feedback) == "" {
		return nil, fmt.Errorf("scoring response missing feedback")
	}

	result.Provider = provider
	result.Model = model
	return &result, nil
}
