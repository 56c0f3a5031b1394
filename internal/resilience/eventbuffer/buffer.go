// Package eventbuffer provides bounded in-memory event batching with
// auto-flush and per-event retry accounting. Producers add events without
// blocking on delivery; a caller-supplied flush handler receives batches
// and its failures are absorbed by the buffer, never surfaced to producers.
package eventbuffer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a single buffered event. The buffer assigns ID and Timestamp on
// Add; RetryCount tracks failed flush attempts for this event.
type Event struct {
	ID         string    `json:"id"`
	Payload    any       `json:"payload"`
	Timestamp  time.Time `json:"timestamp"`
	RetryCount int       `json:"retry_count"`
	MaxRetries int       `json:"max_retries"`
}

// FlushHandler delivers a batch of events to a sink. A non-nil error marks
// the whole batch as failed; the buffer requeues survivors and retries them
// on a later flush.
type FlushHandler func(ctx context.Context, events []Event) error

// Stats is a point-in-time snapshot of buffer state and counters.
type Stats struct {
	Name           string    `json:"name"`
	Size           int       `json:"size"`
	IsFlushing     bool      `json:"is_flushing"`
	AutoFlush      bool      `json:"auto_flush"`
	FlushedEvents  int64     `json:"flushed_events"`
	FailedEvents   int64     `json:"failed_events"`
	DroppedEvents  int64     `json:"dropped_events"`
	FlushFailures  int64     `json:"flush_failures"`
	LastFlushTime  time.Time `json:"last_flush_time"`
	OldestEventAge string    `json:"oldest_event_age,omitempty"`
}

// Buffer is a FIFO event buffer bounded by MaxSize. All methods are safe
// for concurrent use.
type Buffer struct {
	config Config

	mu         sync.Mutex
	events     []Event
	handler    FlushHandler
	isFlushing bool
	lastFlush  time.Time
	running    bool
	stopCh     chan struct{}
	doneCh     chan struct{}

	flushedEvents int64
	failedEvents  int64
	droppedEvents int64
	flushFailures int64
}

// New creates a buffer with the given configuration. The flush handler can
// be supplied later via SetFlushHandler; until then flushes requeue their
// batch without consuming retry budget.
func New(config Config) *Buffer {
	config = config.withDefaults()
	return &Buffer{
		config:    config,
		events:    make([]Event, 0, config.MaxSize),
		lastFlush: config.Clock.Now(),
	}
}

// Name returns the buffer's configured name.
func (b *Buffer) Name() string {
	return b.config.Name
}

// SetFlushHandler installs the delivery handler used by Flush.
func (b *Buffer) SetFlushHandler(handler FlushHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

// Add appends an event to the buffer and returns its assigned ID. If the
// buffer reaches MaxSize, or the oldest event has waited longer than
// MaxWaitTime, Add triggers a synchronous flush before returning. While a
// flush is already in progress the bound is kept by dropping the newest
// events instead. Delivery failures are absorbed by the buffer and never
// returned to the caller.
func (b *Buffer) Add(payload any) string {
	return b.add([]any{payload})[0]
}

// AddBatch appends multiple events in order and returns their assigned IDs.
func (b *Buffer) AddBatch(payloads []any) []string {
	if len(payloads) == 0 {
		return nil
	}
	return b.add(payloads)
}

func (b *Buffer) add(payloads []any) []string {
	b.mu.Lock()
	now := b.config.Clock.Now()
	ids := make([]string, len(payloads))
	for i, payload := range payloads {
		ev := Event{
			ID:         uuid.New().String(),
			Payload:    payload,
			Timestamp:  now,
			MaxRetries: b.config.MaxRetries,
		}
		b.events = append(b.events, ev)
		ids[i] = ev.ID
	}
	full := len(b.events) >= b.config.MaxSize
	overdue := !b.lastFlush.IsZero() && now.Sub(b.lastFlush) >= b.config.MaxWaitTime && len(b.events) > 0
	if b.isFlushing {
		// An in-flight flush coalesces the synchronous flush below, so the
		// size bound has to be enforced here.
		b.enforceBoundLocked()
	}
	b.config.Metrics.RecordEnqueued(b.config.Name, len(payloads))
	b.config.Metrics.SetQueueSize(b.config.Name, len(b.events))
	b.mu.Unlock()

	if full || overdue {
		b.Flush(context.Background())
	}
	return ids
}

// Flush drains the current queue and hands it to the flush handler as one
// batch. It returns the number of events delivered. On handler failure each
// event's retry count is incremented; events that still have retry budget
// are requeued at the front so ordering is preserved, the rest are dropped.
// Concurrent flushes are coalesced: if a flush is already in progress the
// call returns immediately.
func (b *Buffer) Flush(ctx context.Context) int {
	b.mu.Lock()
	if b.isFlushing || len(b.events) == 0 {
		b.mu.Unlock()
		return 0
	}
	b.isFlushing = true
	batch := b.events
	b.events = make([]Event, 0, b.config.MaxSize)
	handler := b.handler
	b.mu.Unlock()

	var err error
	if handler != nil {
		err = handler(ctx, batch)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.isFlushing = false
	b.lastFlush = b.config.Clock.Now()

	if handler == nil {
		// No sink yet: hold the batch without consuming retry budget.
		b.events = append(batch, b.events...)
		b.enforceBoundLocked()
		slog.Warn("event buffer flush skipped: no handler installed",
			slog.String("buffer", b.config.Name),
			slog.Int("size", len(batch)),
		)
		return 0
	}

	if err == nil {
		b.flushedEvents += int64(len(batch))
		b.config.Metrics.RecordFlush(b.config.Name, len(batch), true)
		b.config.Metrics.SetQueueSize(b.config.Name, len(b.events))
		return len(batch)
	}

	b.flushFailures++
	retained := batch[:0]
	dropped := 0
	for _, ev := range batch {
		ev.RetryCount++
		if ev.RetryCount >= ev.MaxRetries {
			dropped++
			continue
		}
		retained = append(retained, ev)
	}
	b.failedEvents += int64(dropped)
	// Requeue at the front so retried events keep their FIFO position
	// relative to events added during the flush.
	b.events = append(append([]Event{}, retained...), b.events...)
	b.enforceBoundLocked()

	b.config.Metrics.RecordFlush(b.config.Name, len(batch), false)
	if dropped > 0 {
		b.config.Metrics.RecordDropped(b.config.Name, dropped)
	}
	b.config.Metrics.SetQueueSize(b.config.Name, len(b.events))
	slog.Warn("event buffer flush failed",
		slog.String("buffer", b.config.Name),
		slog.Int("size", len(batch)),
		slog.Int("requeued", len(retained)),
		slog.Int("dropped", dropped),
		slog.String("error", err.Error()),
	)
	return 0
}

// enforceBoundLocked trims the queue back to MaxSize, dropping the newest
// events first. Must be called with mu held.
func (b *Buffer) enforceBoundLocked() {
	if len(b.events) <= b.config.MaxSize {
		return
	}
	overflow := len(b.events) - b.config.MaxSize
	b.events = b.events[:b.config.MaxSize]
	b.droppedEvents += int64(overflow)
	b.config.Metrics.RecordDropped(b.config.Name, overflow)
	slog.Warn("event buffer overflow",
		slog.String("buffer", b.config.Name),
		slog.Int("dropped", overflow),
	)
}

// StartAutoFlush starts a background goroutine that flushes the buffer
// every FlushInterval. It is a no-op if auto-flush is already running.
func (b *Buffer) StartAutoFlush() {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.stopCh = make(chan struct{})
	b.doneCh = make(chan struct{})
	stopCh, doneCh := b.stopCh, b.doneCh
	b.mu.Unlock()

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(b.config.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				b.Flush(context.Background())
			}
		}
	}()
	slog.Debug("event buffer auto-flush started",
		slog.String("buffer", b.config.Name),
		slog.Duration("interval", b.config.FlushInterval),
	)
}

// StopAutoFlush stops the auto-flush goroutine and waits for it to exit.
// It is a no-op if auto-flush is not running. Buffered events remain queued;
// call Flush to drain them.
func (b *Buffer) StopAutoFlush() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	close(b.stopCh)
	doneCh := b.doneCh
	b.mu.Unlock()

	<-doneCh
}

// IsFull reports whether the buffer has reached MaxSize.
func (b *Buffer) IsFull() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events) >= b.config.MaxSize
}

// IsEmpty reports whether the buffer holds no events.
func (b *Buffer) IsEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events) == 0
}

// Len returns the current number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Clear discards all buffered events without flushing them.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = b.events[:0]
	b.config.Metrics.SetQueueSize(b.config.Name, 0)
}

// Stats returns a snapshot of the buffer's state and counters.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := Stats{
		Name:          b.config.Name,
		Size:          len(b.events),
		IsFlushing:    b.isFlushing,
		AutoFlush:     b.running,
		FlushedEvents: b.flushedEvents,
		FailedEvents:  b.failedEvents,
		DroppedEvents: b.droppedEvents,
		FlushFailures: b.flushFailures,
		LastFlushTime: b.lastFlush,
	}
	if len(b.events) > 0 {
		s.OldestEventAge = b.config.Clock.Now().Sub(b.events[0].Timestamp).String()
	}
	return s
}
