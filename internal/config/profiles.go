package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so profile files can use values like "15s"
// or "2m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Profiles holds named resilience tuning profiles loaded from YAML. A
// profile only overrides the fields it sets; everything else keeps its
// environment or default value.
type Profiles struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile is one named set of resilience overrides.
type Profile struct {
	Breaker struct {
		FailureThreshold *int      `yaml:"failure_threshold"`
		SuccessThreshold *int      `yaml:"success_threshold"`
		Timeout          *Duration `yaml:"timeout"`
		TimeWindow       *Duration `yaml:"time_window"`
	} `yaml:"breaker"`

	Retry struct {
		FastMaxAttempts *int      `yaml:"fast_max_attempts"`
		FullMaxAttempts *int      `yaml:"full_max_attempts"`
		TotalBudget     *int      `yaml:"total_budget"`
		BaseDelay       *Duration `yaml:"base_delay"`
		MaxDelay        *Duration `yaml:"max_delay"`
	} `yaml:"retry"`

	Idempotency struct {
		TTL             *Duration `yaml:"ttl"`
		CleanupInterval *Duration `yaml:"cleanup_interval"`
	} `yaml:"idempotency"`

	Buffer struct {
		MaxSize       *int      `yaml:"max_size"`
		FlushInterval *Duration `yaml:"flush_interval"`
		MaxWaitTime   *Duration `yaml:"max_wait_time"`
		MaxRetries    *int      `yaml:"max_retries"`
	} `yaml:"buffer"`
}

// LoadProfiles reads and parses a YAML profile file.
func LoadProfiles(path string) (*Profiles, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read profile file: %w", err)
	}

	var profiles Profiles
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse profile file: %w", err)
	}

	return &profiles, nil
}

// Apply overlays the named profile onto config. It returns an error if the
// profile does not exist.
func (p *Profiles) Apply(name string, config *ResilienceConfig) error {
	profile, ok := p.Profiles[name]
	if !ok {
		return fmt.Errorf("unknown resilience profile %q", name)
	}

	if v := profile.Breaker.FailureThreshold; v != nil {
		config.Breaker.FailureThreshold = *v
	}
	if v := profile.Breaker.SuccessThreshold; v != nil {
		config.Breaker.SuccessThreshold = *v
	}
	if v := profile.Breaker.Timeout; v != nil {
		config.Breaker.Timeout = time.Duration(*v)
	}
	if v := profile.Breaker.TimeWindow; v != nil {
		config.Breaker.TimeWindow = time.Duration(*v)
	}

	if v := profile.Retry.FastMaxAttempts; v != nil {
		config.Retry.FastMaxAttempts = *v
	}
	if v := profile.Retry.FullMaxAttempts; v != nil {
		config.Retry.FullMaxAttempts = *v
	}
	if v := profile.Retry.TotalBudget; v != nil {
		config.Retry.TotalBudget = *v
	}
	if v := profile.Retry.BaseDelay; v != nil {
		config.Retry.BaseDelay = time.Duration(*v)
	}
	if v := profile.Retry.MaxDelay; v != nil {
		config.Retry.MaxDelay = time.Duration(*v)
	}

	if v := profile.Idempotency.TTL; v != nil {
		config.Idempotency.TTL = time.Duration(*v)
	}
	if v := profile.Idempotency.CleanupInterval; v != nil {
		config.Idempotency.CleanupInterval = time.Duration(*v)
	}

	if v := profile.Buffer.MaxSize; v != nil {
		config.Buffer.MaxSize = *v
	}
	if v := profile.Buffer.FlushInterval; v != nil {
		config.Buffer.FlushInterval = time.Duration(*v)
	}
	if v := profile.Buffer.MaxWaitTime; v != nil {
		config.Buffer.MaxWaitTime = time.Duration(*v)
	}
	if v := profile.Buffer.MaxRetries; v != nil {
		config.Buffer.MaxRetries = *v
	}

	return nil
}
