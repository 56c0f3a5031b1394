package eventbuffer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"prepmate/internal/resilience"
)

// collectingHandler records every batch it receives and can be told to fail.
type collectingHandler struct {
	mu      sync.Mutex
	batches [][]Event
	fail    bool
	calls   int
	block   chan struct{}
}

func (h *collectingHandler) handle(_ context.Context, events []Event) error {
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	batch := make([]Event, len(events))
	copy(batch, events)
	h.batches = append(h.batches, batch)
	if h.fail {
		return errors.New("sink unavailable")
	}
	return nil
}

func (h *collectingHandler) batchCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.batches)
}

func (h *collectingHandler) lastBatch() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.batches) == 0 {
		return nil
	}
	return h.batches[len(h.batches)-1]
}

func newTestBuffer(t *testing.T, config Config) (*Buffer, *collectingHandler) {
	t.Helper()
	handler := &collectingHandler{}
	buf := New(config)
	buf.SetFlushHandler(handler.handle)
	return buf, handler
}

func TestBuffer_AddAssignsIDAndTimestamp(t *testing.T) {
	clock := resilience.NewMockClock(time.Now())
	buf, _ := newTestBuffer(t, Config{Name: "test", Clock: clock})

	id := buf.Add("payload")
	if id == "" {
		t.Fatal("expected non-empty event ID")
	}
	if buf.Len() != 1 {
		t.Errorf("expected 1 buffered event, got %d", buf.Len())
	}
	id2 := buf.Add("payload")
	if id == id2 {
		t.Error("expected unique IDs for distinct events")
	}
}

func TestBuffer_FlushDeliversFIFO(t *testing.T) {
	buf, handler := newTestBuffer(t, Config{Name: "test"})

	buf.Add("a")
	buf.Add("b")
	buf.Add("c")

	n := buf.Flush(context.Background())
	if n != 3 {
		t.Fatalf("expected 3 events flushed, got %d", n)
	}
	batch := handler.lastBatch()
	want := []string{"a", "b", "c"}
	for i, ev := range batch {
		if ev.Payload != want[i] {
			t.Errorf("event %d: expected payload %q, got %v", i, want[i], ev.Payload)
		}
	}
	if !buf.IsEmpty() {
		t.Error("expected empty buffer after successful flush")
	}
}

func TestBuffer_AddTriggersFlushAtMaxSize(t *testing.T) {
	buf, handler := newTestBuffer(t, Config{Name: "test", MaxSize: 2})

	buf.Add("a")
	if handler.batchCount() != 0 {
		t.Fatal("flush should not trigger below max size")
	}
	buf.Add("b")
	if handler.batchCount() != 1 {
		t.Fatalf("expected flush at max size, got %d batches", handler.batchCount())
	}
	if got := len(handler.lastBatch()); got != 2 {
		t.Errorf("expected batch of 2, got %d", got)
	}

	buf.Add("c")
	if buf.Len() != 1 {
		t.Errorf("expected 1 event after post-flush add, got %d", buf.Len())
	}
	if buf.Len() > 2 {
		t.Error("buffer exceeded max size after Add returned")
	}
}

func TestBuffer_AddBatchPreservesOrder(t *testing.T) {
	buf, handler := newTestBuffer(t, Config{Name: "test"})

	ids := buf.AddBatch([]any{"a", "b", "c"})
	if len(ids) != 3 {
		t.Fatalf("expected 3 IDs, got %d", len(ids))
	}
	buf.Flush(context.Background())
	batch := handler.lastBatch()
	for i, want := range []string{"a", "b", "c"} {
		if batch[i].Payload != want {
			t.Errorf("event %d: expected %q, got %v", i, want, batch[i].Payload)
		}
		if batch[i].ID != ids[i] {
			t.Errorf("event %d: ID mismatch", i)
		}
	}
}

func TestBuffer_MaxWaitTimeTriggersFlush(t *testing.T) {
	clock := resilience.NewMockClock(time.Now())
	buf, handler := newTestBuffer(t, Config{
		Name:        "test",
		MaxSize:     100,
		MaxWaitTime: 30 * time.Second,
		Clock:       clock,
	})

	buf.Add("a")
	if handler.batchCount() != 0 {
		t.Fatal("flush should not trigger before max wait time")
	}

	clock.Advance(31 * time.Second)
	buf.Add("b")
	if handler.batchCount() != 1 {
		t.Fatalf("expected flush after max wait time, got %d batches", handler.batchCount())
	}
	if got := len(handler.lastBatch()); got != 2 {
		t.Errorf("expected both events in the batch, got %d", got)
	}
}

func TestBuffer_FailedFlushRequeuesWithRetryBudget(t *testing.T) {
	buf, handler := newTestBuffer(t, Config{Name: "test", MaxRetries: 3})
	handler.fail = true

	buf.Add("a")
	buf.Add("b")

	// Two failed attempts: events survive with incremented retry counts.
	for attempt := 1; attempt <= 2; attempt++ {
		if n := buf.Flush(context.Background()); n != 0 {
			t.Fatalf("attempt %d: expected 0 delivered, got %d", attempt, n)
		}
		if buf.Len() != 2 {
			t.Fatalf("attempt %d: expected 2 requeued events, got %d", attempt, buf.Len())
		}
	}
	batch := handler.lastBatch()
	if batch[0].RetryCount != 1 {
		t.Errorf("expected retry count 1 in second batch, got %d", batch[0].RetryCount)
	}

	// Third failure reaches MaxRetries: events are dropped.
	buf.Flush(context.Background())
	if !buf.IsEmpty() {
		t.Errorf("expected exhausted events dropped, buffer has %d", buf.Len())
	}
	stats := buf.Stats()
	if stats.FailedEvents != 2 {
		t.Errorf("expected 2 failed events, got %d", stats.FailedEvents)
	}
	if stats.FlushFailures != 3 {
		t.Errorf("expected 3 flush failures, got %d", stats.FlushFailures)
	}
	if stats.FlushedEvents != 0 {
		t.Errorf("expected 0 flushed events, got %d", stats.FlushedEvents)
	}
}

func TestBuffer_RequeuedEventsKeepFIFOPosition(t *testing.T) {
	buf, handler := newTestBuffer(t, Config{Name: "test", MaxRetries: 5})
	handler.fail = true

	buf.Add("old")
	buf.Flush(context.Background())
	buf.Add("new")

	handler.fail = false
	buf.Flush(context.Background())
	batch := handler.lastBatch()
	if len(batch) != 2 {
		t.Fatalf("expected 2 events, got %d", len(batch))
	}
	if batch[0].Payload != "old" || batch[1].Payload != "new" {
		t.Errorf("expected requeued event first, got [%v, %v]", batch[0].Payload, batch[1].Payload)
	}
}

func TestBuffer_RequeueOverflowDropsNewest(t *testing.T) {
	buf, handler := newTestBuffer(t, Config{Name: "test", MaxSize: 2, MaxRetries: 5})

	// Block delivery so events added mid-flush pile up, then fail the batch.
	handler.fail = true
	handler.block = make(chan struct{})
	buf.Add("a")

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf.Flush(context.Background())
	}()

	// Wait for the flush goroutine to take the batch, then add past capacity.
	for buf.Len() != 0 {
		time.Sleep(time.Millisecond)
	}
	buf.events = append(buf.events,
		Event{ID: "x", Payload: "b", MaxRetries: 5},
		Event{ID: "y", Payload: "c", MaxRetries: 5},
	)
	close(handler.block)
	<-done

	if buf.Len() != 2 {
		t.Errorf("expected buffer trimmed to max size, got %d", buf.Len())
	}
	stats := buf.Stats()
	if stats.DroppedEvents != 1 {
		t.Errorf("expected 1 overflow drop, got %d", stats.DroppedEvents)
	}
}

func TestBuffer_AddDuringFlushKeepsSizeBound(t *testing.T) {
	buf, handler := newTestBuffer(t, Config{Name: "test", MaxSize: 2})
	handler.block = make(chan struct{})

	buf.Add("a")

	done := make(chan int)
	go func() {
		buf.Add("b") // reaches MaxSize and flushes synchronously
		done <- 0
	}()
	for buf.Len() != 0 {
		time.Sleep(time.Millisecond)
	}

	// The handler is holding the in-flight batch; adds past capacity must
	// not grow the queue beyond MaxSize even though their synchronous flush
	// coalesces with the blocked one.
	for _, payload := range []string{"c", "d", "e"} {
		buf.Add(payload)
		if got := buf.Len(); got > 2 {
			t.Fatalf("after Add(%q): buffer size %d exceeds max size 2", payload, got)
		}
	}

	close(handler.block)
	<-done

	if got := buf.Len(); got > 2 {
		t.Errorf("expected at most 2 buffered events after flush, got %d", got)
	}
	if stats := buf.Stats(); stats.DroppedEvents != 1 {
		t.Errorf("expected 1 overflow drop, got %d", stats.DroppedEvents)
	}
}

func TestBuffer_ConcurrentFlushesCoalesce(t *testing.T) {
	buf, handler := newTestBuffer(t, Config{Name: "test"})
	handler.block = make(chan struct{})

	buf.Add("a")

	done := make(chan int)
	go func() {
		done <- buf.Flush(context.Background())
	}()
	for buf.Len() != 0 {
		time.Sleep(time.Millisecond)
	}

	// Second flush while the first holds the in-flight batch returns at once.
	if n := buf.Flush(context.Background()); n != 0 {
		t.Errorf("expected coalesced flush to deliver nothing, got %d", n)
	}
	close(handler.block)
	if n := <-done; n != 1 {
		t.Errorf("expected first flush to deliver 1 event, got %d", n)
	}
	if handler.calls != 1 {
		t.Errorf("expected exactly 1 handler invocation, got %d", handler.calls)
	}
}

func TestBuffer_FlushWithoutHandlerRetainsEvents(t *testing.T) {
	buf := New(Config{Name: "test"})
	buf.Add("a")

	if n := buf.Flush(context.Background()); n != 0 {
		t.Fatalf("expected 0 delivered without handler, got %d", n)
	}
	if buf.Len() != 1 {
		t.Fatalf("expected event retained, got %d", buf.Len())
	}

	handler := &collectingHandler{}
	buf.SetFlushHandler(handler.handle)
	buf.Flush(context.Background())
	batch := handler.lastBatch()
	if len(batch) != 1 || batch[0].RetryCount != 0 {
		t.Error("handler-less flush must not consume retry budget")
	}
}

func TestBuffer_AutoFlush(t *testing.T) {
	buf, handler := newTestBuffer(t, Config{
		Name:          "test",
		FlushInterval: 10 * time.Millisecond,
	})

	buf.Add("a")
	buf.StartAutoFlush()
	defer buf.StopAutoFlush()

	deadline := time.After(2 * time.Second)
	for handler.batchCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("auto-flush did not fire within deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if !buf.IsEmpty() {
		t.Error("expected buffer drained by auto-flush")
	}
}

func TestBuffer_StopAutoFlushIsIdempotent(t *testing.T) {
	buf, _ := newTestBuffer(t, Config{Name: "test", FlushInterval: time.Hour})

	buf.StartAutoFlush()
	buf.StartAutoFlush() // second start is a no-op
	buf.StopAutoFlush()
	buf.StopAutoFlush() // second stop is a no-op

	if buf.Stats().AutoFlush {
		t.Error("expected auto-flush stopped")
	}
}

func TestBuffer_ClearDiscardsWithoutFlushing(t *testing.T) {
	buf, handler := newTestBuffer(t, Config{Name: "test"})

	buf.Add("a")
	buf.Add("b")
	buf.Clear()

	if !buf.IsEmpty() {
		t.Error("expected empty buffer after Clear")
	}
	if handler.batchCount() != 0 {
		t.Error("Clear must not invoke the flush handler")
	}
}

func TestBuffer_IsFull(t *testing.T) {
	handler := &collectingHandler{fail: true}
	buf := New(Config{Name: "test", MaxSize: 2, MaxRetries: 5})
	buf.SetFlushHandler(handler.handle)

	if buf.IsFull() {
		t.Error("new buffer should not be full")
	}
	buf.Add("a")
	buf.Add("b") // triggers a failing flush; both events requeue
	if !buf.IsFull() {
		t.Error("expected full buffer after failed flush requeue")
	}
}

func TestBuffer_StatsSnapshot(t *testing.T) {
	clock := resilience.NewMockClock(time.Now())
	buf, _ := newTestBuffer(t, Config{Name: "scoring", Clock: clock})

	buf.Add("a")
	clock.Advance(5 * time.Second)

	stats := buf.Stats()
	if stats.Name != "scoring" {
		t.Errorf("expected name scoring, got %q", stats.Name)
	}
	if stats.Size != 1 {
		t.Errorf("expected size 1, got %d", stats.Size)
	}
	if stats.OldestEventAge != (5 * time.Second).String() {
		t.Errorf("expected oldest event age 5s, got %q", stats.OldestEventAge)
	}

	buf.Flush(context.Background())
	stats = buf.Stats()
	if stats.FlushedEvents != 1 {
		t.Errorf("expected 1 flushed event, got %d", stats.FlushedEvents)
	}
	if stats.OldestEventAge != "" {
		t.Errorf("expected empty oldest event age, got %q", stats.OldestEventAge)
	}
}

func TestBuffer_ConcurrentAdd(t *testing.T) {
	buf, handler := newTestBuffer(t, Config{Name: "test", MaxSize: 1000})

	var wg sync.WaitGroup
	const producers, perProducer = 10, 20
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				buf.Add(j)
			}
		}()
	}
	wg.Wait()

	if buf.Len() != producers*perProducer {
		t.Fatalf("expected %d buffered events, got %d", producers*perProducer, buf.Len())
	}
	if n := buf.Flush(context.Background()); n != producers*perProducer {
		t.Errorf("expected %d delivered, got %d", producers*perProducer, n)
	}
	if handler.batchCount() != 1 {
		t.Errorf("expected a single batch, got %d", handler.batchCount())
	}
}
