package alerting

import (
	"sync"
	"time"
)

// SnapshotEvent carries a metric snapshot from the ingestion API into the
// engine. Fields holds only the metric keys that changed; the engine merges
// them into its last-known view for scheduled re-evaluation.
type SnapshotEvent struct {
	Fields     Snapshot
	ReceivedAt time.Time
}

// SnapshotHandler processes snapshot events.
type SnapshotHandler func(event *SnapshotEvent)

const (
	// snapshotBusBufferSize is the default capacity of the async event
	// channel. Events are dropped if the buffer is full so ingestion callers
	// are never blocked by evaluation or dispatch.
	snapshotBusBufferSize = 1000
)

// SnapshotBus is an async pub/sub for metric snapshots. Publish is
// non-blocking: events go to a buffered channel drained by a worker
// goroutine, so the HTTP ingest path is never blocked by DB writes or
// notification dispatch.
type SnapshotBus struct {
	handlers []SnapshotHandler
	mu       sync.RWMutex
	eventCh  chan *SnapshotEvent
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSnapshotBus creates a snapshot bus with the given buffer capacity
// (<= 0 selects the default) and starts its worker.
func NewSnapshotBus(bufferSize int) *SnapshotBus {
	if bufferSize <= 0 {
		bufferSize = snapshotBusBufferSize
	}
	b := &SnapshotBus{
		handlers: make([]SnapshotHandler, 0),
		eventCh:  make(chan *SnapshotEvent, bufferSize),
		stopCh:   make(chan struct{}),
	}
	go b.processLoop()
	return b
}

// Subscribe registers a handler for snapshot events.
func (b *SnapshotBus) Subscribe(handler SnapshotHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Publish enqueues an event for async processing. Non-blocking: if the buffer
// is full the event is dropped to protect callers on hot paths. Events are
// silently discarded after Stop.
func (b *SnapshotBus) Publish(event *SnapshotEvent) bool {
	select {
	case <-b.stopCh:
		return false
	default:
	}

	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}

	select {
	case b.eventCh <- event:
		return true
	default:
		// Buffer full; drop rather than block ingestion.
		return false
	}
}

// Stop shuts down the worker goroutine. Safe to call multiple times.
func (b *SnapshotBus) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
}

// processLoop drains the event channel and dispatches to handlers.
func (b *SnapshotBus) processLoop() {
	for {
		select {
		case event := <-b.eventCh:
			b.dispatch(event)
		case <-b.stopCh:
			// Drain remaining events before exiting.
			for {
				select {
				case event := <-b.eventCh:
					b.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (b *SnapshotBus) dispatch(event *SnapshotEvent) {
	b.mu.RLock()
	handlers := make([]SnapshotHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.safeCall(handler, event)
	}
}

// safeCall invokes a handler with panic recovery so a panicking handler
// cannot kill the bus goroutine.
func (b *SnapshotBus) safeCall(handler SnapshotHandler, event *SnapshotEvent) {
	defer func() {
		// Swallow panics to keep the bus alive. There is no logger
		// available at this level; the handler should do its own logging.
		recover() //nolint:errcheck // intentionally swallowed to keep bus alive
	}()
	handler(event)
}
