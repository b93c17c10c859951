package progress

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/veritas-audit/veritas/internal/metrics"
)

// Bus delivers a totally ordered event stream from a producer (the
// orchestrator) to a consumer (the audit runner), hiding whether the
// transport is an in-process channel or a cross-process pipe.
type Bus interface {
	// Emit assigns the next Seq to ev and enqueues it for the consumer.
	Emit(ctx context.Context, ev Event) error
	// Next blocks until an event is available, ctx is cancelled, or the bus
	// is closed. ok is false only when the bus is closed and drained.
	Next(ctx context.Context) (Event, bool)
	// Close releases transport resources. Safe to call more than once.
	Close()
}

// DefaultQueueCapacity is the bounded FIFO size for in-process queue mode.
const DefaultQueueCapacity = 10000

// InProcessBus is the in-memory transport: a bounded FIFO channel shared
// between producer and consumer goroutines within the same process.
type InProcessBus struct {
	mu       sync.Mutex
	ch       chan Event
	capacity int
	seq      uint64
	closed   bool
	closeOnce sync.Once

	discards atomic.Int64
}

// NewInProcessBus constructs a bus with the given FIFO capacity (0 uses the
// package default of 10,000).
func NewInProcessBus(capacity int) *InProcessBus {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &InProcessBus{
		ch:       make(chan Event, capacity),
		capacity: capacity,
	}
}

// Emit offers ev to the bounded FIFO. On a full queue it discards the
// single oldest queued event and enqueues the new one — cooperative
// backpressure rather than blocking the producer.
func (b *InProcessBus) Emit(ctx context.Context, ev Event) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	ev.Seq = b.nextSeq()
	b.mu.Unlock()

	select {
	case b.ch <- ev:
		return nil
	default:
	}

	// Queue full: drop the oldest event to make room.
	select {
	case <-b.ch:
		b.discards.Add(1)
		metrics.Get().RecordProgressDropped()
		log.Warn().Str("event_type", string(ev.Type)).Msg("progress bus queue full, discarded oldest event")
	default:
	}
	select {
	case b.ch <- ev:
	default:
		// Extremely unlikely race with a concurrent consumer; drop silently
		// rather than block the producer indefinitely.
		b.discards.Add(1)
		metrics.Get().RecordProgressDropped()
	}
	return nil
}

// nextSeq assigns a strictly increasing sequence number; callers must hold
// b.mu.
func (b *InProcessBus) nextSeq() uint64 {
	b.seq++
	return b.seq
}

// Next dequeues the next event, honoring ctx cancellation.
func (b *InProcessBus) Next(ctx context.Context) (Event, bool) {
	select {
	case ev, ok := <-b.ch:
		return ev, ok
	case <-ctx.Done():
		return Event{}, false
	}
}

// Close stops accepting new events and unblocks any pending Next call.
func (b *InProcessBus) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.ch)
		b.mu.Unlock()
	})
}

// Discards returns the number of events dropped due to queue overflow.
func (b *InProcessBus) Discards() int64 {
	return b.discards.Load()
}
