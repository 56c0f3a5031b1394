package scorer

import (
	"fmt"
	"time"

	pkgconfig "prepmate/pkg/config"
)

// Providers selectable via SCORER_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderNoOp   = "noop"
)

// Config holds configuration parameters shared by the scoring adapters.
// Configuration is loaded from environment variables with fallback to
// defaults.
type Config struct {
	// Provider selects the scoring backend: "openai", "claude", or "noop".
	// Default: "noop"
	Provider string

	// Model is the provider model identifier.
	Model string

	// MaxTokens is the maximum number of tokens for the API response.
	// Default: 1024
	MaxTokens int

	// Timeout is the maximum duration for a single scoring API call.
	// Default: 30s
	Timeout time.Duration
}

// LoadConfig loads scoring configuration from environment variables.
// Returns an error if the configuration is invalid (fail-closed behavior).
//
// Environment variables:
//   - SCORER_PROVIDER: Backend selection (default: "noop")
//   - SCORER_MODEL: Model identifier (provider default when empty)
//   - SCORER_MAX_TOKENS: Response token cap (default: 1024)
//   - SCORER_TIMEOUT: Per-call timeout (default: 30s)
func LoadConfig() (*Config, error) {
	config := &Config{
		Provider:  pkgconfig.GetEnvString("SCORER_PROVIDER", ProviderNoOp),
		Model:     pkgconfig.GetEnvString("SCORER_MODEL", ""),
		MaxTokens: pkgconfig.GetEnvInt("SCORER_MAX_TOKENS", 1024),
		Timeout:   pkgconfig.GetEnvDuration("SCORER_TIMEOUT", 30*time.Second),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scorer configuration: %w", err)
	}

	return config, nil
}

// Validate checks configuration correctness.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderClaude, ProviderNoOp:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}

	return nil
}
