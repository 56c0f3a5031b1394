package config

import (
	"fmt"
	"time"

	pkgconfig "prepmate/pkg/config"
)

// ResilienceConfig holds configuration for the resilience layer guarding
// outbound scoring calls.
type ResilienceConfig struct {
	// Breaker configures the scoring circuit breaker.
	Breaker BreakerConfig

	// Retry configures the two-phase retry executor.
	Retry RetryConfig

	// Idempotency configures the duplicate-submission window.
	Idempotency IdempotencyConfig

	// Buffer configures the resilience event buffers.
	Buffer BufferConfig
}

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// breaker. Default: 3
	FailureThreshold int

	// SuccessThreshold is the consecutive-success count that closes a
	// half-open breaker. Default: 2
	SuccessThreshold int

	// Timeout is how long the breaker stays open before probing.
	// Default: 60s
	Timeout time.Duration

	// TimeWindow bounds the age of the failure streak; older streaks are
	// restarted rather than extended. Default: 2m
	TimeWindow time.Duration
}

// RetryConfig holds two-phase retry settings.
type RetryConfig struct {
	// FastMaxAttempts is the attempt budget for the fast first phase.
	// Default: 2
	FastMaxAttempts int

	// FullMaxAttempts is the attempt budget for the full second phase.
	// Default: 3
	FullMaxAttempts int

	// TotalBudget caps attempts across both phases. Default: 5
	TotalBudget int

	// BaseDelay is the starting backoff delay. Default: 1s
	BaseDelay time.Duration

	// MaxDelay caps the exponential backoff. Default: 10s
	MaxDelay time.Duration
}

// IdempotencyConfig holds duplicate-suppression settings.
type IdempotencyConfig struct {
	// TTL is how long an accepted submission fingerprint suppresses
	// duplicates. Default: 5s
	TTL time.Duration

	// CleanupInterval is how often expired fingerprints are swept.
	// Default: 1m
	CleanupInterval time.Duration
}

// BufferConfig holds event buffer settings.
type BufferConfig struct {
	// MaxSize is the queue length that triggers an immediate flush.
	// Default: 50
	MaxSize int

	// FlushInterval is the auto-flush period. Default: 10s
	FlushInterval time.Duration

	// MaxWaitTime bounds how long an event waits before a forced flush.
	// Default: 30s
	MaxWaitTime time.Duration

	// MaxRetries is per-event flush retry budget. Default: 3
	MaxRetries int
}

// LoadResilienceConfig loads resilience configuration from environment
// variables, then applies the profile selected by RESILIENCE_PROFILE from
// the YAML file named by RESILIENCE_PROFILE_FILE, if both are set. Profile
// values override environment values.
func LoadResilienceConfig() (*ResilienceConfig, error) {
	config := &ResilienceConfig{
		Breaker: BreakerConfig{
			FailureThreshold: pkgconfig.GetEnvInt("BREAKER_FAILURE_THRESHOLD", 3),
			SuccessThreshold: pkgconfig.GetEnvInt("BREAKER_SUCCESS_THRESHOLD", 2),
			Timeout:          pkgconfig.GetEnvDuration("BREAKER_TIMEOUT", 60*time.Second),
			TimeWindow:       pkgconfig.GetEnvDuration("BREAKER_TIME_WINDOW", 2*time.Minute),
		},
		Retry: RetryConfig{
			FastMaxAttempts: pkgconfig.GetEnvInt("RETRY_FAST_MAX_ATTEMPTS", 2),
			FullMaxAttempts: pkgconfig.GetEnvInt("RETRY_FULL_MAX_ATTEMPTS", 3),
			TotalBudget:     pkgconfig.GetEnvInt("RETRY_TOTAL_BUDGET", 5),
			BaseDelay:       pkgconfig.GetEnvDuration("RETRY_BASE_DELAY", time.Second),
			MaxDelay:        pkgconfig.GetEnvDuration("RETRY_MAX_DELAY", 10*time.Second),
		},
		Idempotency: IdempotencyConfig{
			TTL:             pkgconfig.GetEnvDuration("IDEMPOTENCY_TTL", 5*time.Second),
			CleanupInterval: pkgconfig.GetEnvDuration("IDEMPOTENCY_CLEANUP_INTERVAL", time.Minute),
		},
		Buffer: BufferConfig{
			MaxSize:       pkgconfig.GetEnvInt("EVENT_BUFFER_MAX_SIZE", 50),
			FlushInterval: pkgconfig.GetEnvDuration("EVENT_BUFFER_FLUSH_INTERVAL", 10*time.Second),
			MaxWaitTime:   pkgconfig.GetEnvDuration("EVENT_BUFFER_MAX_WAIT", 30*time.Second),
			MaxRetries:    pkgconfig.GetEnvInt("EVENT_BUFFER_MAX_RETRIES", 3),
		},
	}

	profileFile := pkgconfig.GetEnvString("RESILIENCE_PROFILE_FILE", "")
	profileName := pkgconfig.GetEnvString("RESILIENCE_PROFILE", "")
	if profileFile != "" && profileName != "" {
		profiles, err := LoadProfiles(profileFile)
		if err != nil {
			return nil, fmt.Errorf("load resilience profiles: %w", err)
		}
		if err := profiles.Apply(profileName, config); err != nil {
			return nil, fmt.Errorf("apply resilience profile: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid resilience configuration: %w", err)
	}

	return config, nil
}

// Validate checks configuration correctness.
func (c *ResilienceConfig) Validate() error {
	if c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be positive")
	}

	if c.Breaker.SuccessThreshold <= 0 {
		return fmt.Errorf("BREAKER_SUCCESS_THRESHOLD must be positive")
	}

	if err := pkgconfig.ValidatePositiveDuration(c.Breaker.Timeout); err != nil {
		return fmt.Errorf("BREAKER_TIMEOUT: %w", err)
	}

	if err := pkgconfig.ValidateNonNegativeDuration(c.Breaker.TimeWindow); err != nil {
		return fmt.Errorf("BREAKER_TIME_WINDOW: %w", err)
	}

	if c.Retry.FastMaxAttempts <= 0 {
		return fmt.Errorf("RETRY_FAST_MAX_ATTEMPTS must be positive")
	}

	if c.Retry.FullMaxAttempts <= 0 {
		return fmt.Errorf("RETRY_FULL_MAX_ATTEMPTS must be positive")
	}

	if c.Retry.TotalBudget <= 0 {
		return fmt.Errorf("RETRY_TOTAL_BUDGET must be positive")
	}

	if err := pkgconfig.ValidatePositiveDuration(c.Retry.BaseDelay); err != nil {
		return fmt.Errorf("RETRY_BASE_DELAY: %w", err)
	}

	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("RETRY_MAX_DELAY must be at least RETRY_BASE_DELAY")
	}

	if err := pkgconfig.ValidatePositiveDuration(c.Idempotency.TTL); err != nil {
		return fmt.Errorf("IDEMPOTENCY_TTL: %w", err)
	}

	if err := pkgconfig.ValidateDurationRange(c.Idempotency.CleanupInterval, time.Second, 24*time.Hour); err != nil {
		return fmt.Errorf("IDEMPOTENCY_CLEANUP_INTERVAL: %w", err)
	}

	if c.Buffer.MaxSize <= 0 {
		return fmt.Errorf("EVENT_BUFFER_MAX_SIZE must be positive")
	}

	if err := pkgconfig.ValidatePositiveDuration(c.Buffer.FlushInterval); err != nil {
		return fmt.Errorf("EVENT_BUFFER_FLUSH_INTERVAL: %w", err)
	}

	if err := pkgconfig.ValidatePositiveDuration(c.Buffer.MaxWaitTime); err != nil {
		return fmt.Errorf("EVENT_BUFFER_MAX_WAIT: %w", err)
	}

	if c.Buffer.MaxRetries <= 0 {
		return fmt.Errorf("EVENT_BUFFER_MAX_RETRIES must be positive")
	}

	return nil
}
