// Package idempotency provides an in-memory TTL-keyed deduplication guard.
// It guarantees at most one live record per logical request fingerprint, so a
// client retry of the same submission cannot start a second retry/backoff
// chain while the first is still in flight.
package idempotency

import (
	"sync"
	"time"

	"prepmate/internal/resilience"
)

// Record is a live idempotency entry.
type Record struct {
	// Key is the request fingerprint.
	Key string

	// ExpiresAt is when the key becomes creatable again.
	ExpiresAt time.Time
}

// Metrics records idempotency observability signals. Implementations must be
// safe for concurrent use.
type Metrics interface {
	// RecordCreate records a TryCreate outcome; created is false for
	// duplicates.
	RecordCreate(created bool)

	// RecordCleanup records the number of expired records removed by a
	// cleanup pass.
	RecordCleanup(removed int)
}

// NoOpMetrics is a Metrics implementation that discards all recordings.
type NoOpMetrics struct{}

// RecordCreate implements Metrics.
func (*NoOpMetrics) RecordCreate(bool) {}

// RecordCleanup implements Metrics.
func (*NoOpMetrics) RecordCleanup(int) {}

// Config holds configuration for the Store.
type Config struct {
	// Clock provides time operations for testing.
	// Default: resilience.SystemClock
	Clock resilience.Clock

	// Metrics records create and cleanup outcomes.
	// Default: NoOpMetrics
	Metrics Metrics
}

// Store is a thread-safe in-memory idempotency store.
//
// Expired records are removed lazily on lookup and in bulk by Cleanup; run
// Cleanup periodically (the worker schedules it via cron) to keep memory
// bounded under many distinct keys.
type Store struct {
	clock   resilience.Clock
	metrics Metrics

	mu      sync.Mutex
	records map[string]time.Time
}

// NewStore creates an empty idempotency store.
func NewStore(cfg Config) *Store {
	if cfg.Clock == nil {
		cfg.Clock = &resilience.SystemClock{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &NoOpMetrics{}
	}
	return &Store{
		clock:   cfg.Clock,
		metrics: cfg.Metrics,
		records: make(map[string]time.Time),
	}
}

// TryCreate atomically creates a record for key with the given TTL.
//
// It returns true only if no live (non-expired) record for key exists; the
// check and the insert happen in one critical section so two concurrent
// callers can never both succeed. On false, no state is mutated.
func (s *Store) TryCreate(key string, ttl time.Duration) bool {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if expiresAt, ok := s.records[key]; ok && now.Before(expiresAt) {
		s.metrics.RecordCreate(false)
		return false
	}

	s.records[key] = now.Add(ttl)
	s.metrics.RecordCreate(true)
	return true
}

// Exists reports whether a live record for key exists. An expired record is
// removed on the way out.
func (s *Store) Exists(key string) bool {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.records[key]
	if !ok {
		return false
	}
	if !now.Before(expiresAt) {
		delete(s.records, key)
		return false
	}
	return true
}

// Delete removes the record for key regardless of expiry. It allows a caller
// to release a fingerprint early, e.g. after a request failed before doing
// any work.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
}

// Cleanup removes all expired records and returns how many were removed.
func (s *Store) Cleanup() int {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, expiresAt := range s.records {
		if !now.Before(expiresAt) {
			delete(s.records, key)
			removed++
		}
	}

	s.metrics.RecordCleanup(removed)
	return removed
}

// Len returns the number of records currently held, including not yet
// cleaned expired ones.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
