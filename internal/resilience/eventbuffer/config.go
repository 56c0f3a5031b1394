package eventbuffer

import (
	"fmt"
	"time"

	"prepmate/internal/resilience"
)

// Config holds the configuration for one event buffer.
type Config struct {
	// Name identifies the buffer for logging and metrics. The Manager sets
	// it to the buffer's registered event type.
	Name string

	// MaxSize is the number of buffered events that triggers an immediate
	// synchronous flush from Add.
	// Default: 50
	MaxSize int

	// FlushInterval is the auto-flush ticker period.
	// Default: 10 seconds
	FlushInterval time.Duration

	// MaxWaitTime bounds how long an event may sit in the buffer before Add
	// forces a flush, regardless of size.
	// Default: 30 seconds
	MaxWaitTime time.Duration

	// MaxRetries is how many failed flush attempts an event survives before
	// it is dropped and counted in FailedEvents.
	// Default: 3
	MaxRetries int

	// Clock provides time operations for testing.
	// Default: resilience.SystemClock
	Clock resilience.Clock

	// Metrics records buffer observability signals.
	// Default: NoOpMetrics
	Metrics Metrics
}

// DefaultConfig returns a default buffer configuration.
func DefaultConfig(name string) Config {
	return Config{
		Name:          name,
		MaxSize:       50,
		FlushInterval: 10 * time.Second,
		MaxWaitTime:   30 * time.Second,
		MaxRetries:    3,
	}
}

// Validate checks the configuration for values that cannot work, as opposed
// to zero values which withDefaults fills in.
func (c Config) Validate() error {
	if c.MaxSize < 0 {
		return fmt.Errorf("max size must be non-negative, got %d", c.MaxSize)
	}
	if c.FlushInterval < 0 {
		return fmt.Errorf("flush interval must be non-negative, got %v", c.FlushInterval)
	}
	if c.MaxWaitTime < 0 {
		return fmt.Errorf("max wait time must be non-negative, got %v", c.MaxWaitTime)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative, got %d", c.MaxRetries)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.MaxSize == 0 {
		c.MaxSize = 50
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = 10 * time.Second
	}
	if c.MaxWaitTime == 0 {
		c.MaxWaitTime = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.Clock == nil {
		c.Clock = &resilience.SystemClock{}
	}
	if c.Metrics == nil {
		c.Metrics = &NoOpMetrics{}
	}
	return c
}

// Metrics records event buffer observability signals. Implementations must
// be safe for concurrent use.
type Metrics interface {
	// RecordEnqueued records events accepted into a buffer.
	RecordEnqueued(buffer string, count int)

	// RecordFlush records a flush attempt and its batch size.
	RecordFlush(buffer string, size int, success bool)

	// RecordDropped records events dropped after exhausting flush retries
	// or overflowing the requeue capacity.
	RecordDropped(buffer string, count int)

	// SetQueueSize records the current queue length of a buffer.
	SetQueueSize(buffer string, size int)
}

// NoOpMetrics is a Metrics implementation that discards all recordings.
type NoOpMetrics struct{}

// RecordEnqueued implements Metrics.
func (*NoOpMetrics) RecordEnqueued(string, int) {}

// RecordFlush implements Metrics.
func (*NoOpMetrics) RecordFlush(string, int, bool) {}

// RecordDropped implements Metrics.
func (*NoOpMetrics) RecordDropped(string, int) {}

// SetQueueSize implements Metrics.
func (*NoOpMetrics) SetQueueSize(string, int) {}
