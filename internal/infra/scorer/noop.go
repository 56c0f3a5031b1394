package scorer

import (
	"context"
)

// NoOp is a scorer that returns a fixed mid-range result without calling
// any provider. This is useful for testing and development when AI scoring
// is not needed.
type NoOp struct{}

// NewNoOp creates a new NoOp scorer.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// Name implements Scorer.
func (n *NoOp) Name() string {
	return ProviderNoOp
}

// Score returns a canned result so the rest of the pipeline can run
// without provider credentials.
func (n *NoOp) Score(_ context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &Result{
		Score:    50,
		Feedback: "Automatic scoring is disabled; review this answer manually.",
		Provider: ProviderNoOp,
		Model:    "none",
	}, nil
}
