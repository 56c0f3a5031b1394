package eventbuffer

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Manager owns a set of named buffers, one per event type. Buffers are
// created on first use with the manager's default configuration unless
// registered explicitly. All methods are safe for concurrent use.
type Manager struct {
	defaults Config

	mu      sync.RWMutex
	buffers map[string]*Buffer
}

// NewManager creates a manager whose implicitly created buffers use the
// given defaults. The Name field of defaults is ignored; each buffer is
// named after its event type.
func NewManager(defaults Config) *Manager {
	return &Manager{
		defaults: defaults,
		buffers:  make(map[string]*Buffer),
	}
}

// Register creates a buffer for eventType with an explicit configuration
// and returns it. If a buffer already exists for eventType it is returned
// unchanged.
func (m *Manager) Register(eventType string, config Config) *Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if buf, ok := m.buffers[eventType]; ok {
		return buf
	}
	config.Name = eventType
	buf := New(config)
	m.buffers[eventType] = buf
	return buf
}

// Buffer returns the buffer for eventType, creating it with the manager's
// defaults if it does not exist yet.
func (m *Manager) Buffer(eventType string) *Buffer {
	m.mu.RLock()
	buf, ok := m.buffers[eventType]
	m.mu.RUnlock()
	if ok {
		return buf
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if buf, ok := m.buffers[eventType]; ok {
		return buf
	}
	config := m.defaults
	config.Name = eventType
	buf = New(config)
	m.buffers[eventType] = buf
	return buf
}

// Publish adds a payload to the buffer for eventType and returns the
// assigned event ID.
func (m *Manager) Publish(eventType string, payload any) string {
	return m.Buffer(eventType).Add(payload)
}

// Types returns the registered event types in sorted order.
func (m *Manager) Types() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	types := make([]string, 0, len(m.buffers))
	for t := range m.buffers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Stats returns a snapshot of every buffer keyed by event type.
func (m *Manager) Stats() map[string]Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := make(map[string]Stats, len(m.buffers))
	for t, buf := range m.buffers {
		stats[t] = buf.Stats()
	}
	return stats
}

// StartAll starts auto-flush on every registered buffer.
func (m *Manager) StartAll() {
	for _, buf := range m.snapshot() {
		buf.StartAutoFlush()
	}
}

// FlushAll flushes every buffer concurrently and returns the total number
// of events delivered. Delivery failures are absorbed per buffer and show
// up in Stats, not as an error here.
func (m *Manager) FlushAll(ctx context.Context) int {
	var (
		g     errgroup.Group
		mu    sync.Mutex
		total int
	)
	for _, buf := range m.snapshot() {
		g.Go(func() error {
			n := buf.Flush(ctx)
			mu.Lock()
			total += n
			mu.Unlock()
			return nil
		})
	}
	g.Wait() //nolint:errcheck // flush goroutines never return errors
	return total
}

// ShutdownAll stops auto-flush on every buffer and performs a final drain.
// It returns ctx.Err if the context expires before shutdown completes.
func (m *Manager) ShutdownAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, buf := range m.snapshot() {
		g.Go(func() error {
			buf.StopAutoFlush()
			buf.Flush(ctx)
			if remaining := buf.Len(); remaining > 0 {
				slog.Warn("event buffer shut down with undelivered events",
					slog.String("buffer", buf.Name()),
					slog.Int("remaining", remaining),
				)
			}
			return ctx.Err()
		})
	}
	return g.Wait()
}

func (m *Manager) snapshot() []*Buffer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	buffers := make([]*Buffer, 0, len(m.buffers))
	for _, buf := range m.buffers {
		buffers = append(buffers, buf)
	}
	return buffers
}
