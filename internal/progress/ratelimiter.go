package progress

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBurst and DefaultRate are the token-bucket defaults applied to the
// consumer-facing side of the bus: a sustained 5 events/sec with bursts up
// to 10.
const (
	DefaultBurst         = 10
	DefaultRate          = 5 // events/sec
	DefaultOverflowLimit = 100
)

// RateLimitedBus wraps a Bus with a token bucket and a bounded, priority-aware
// overflow queue. CRITICAL events bypass the bucket entirely and are never
// dropped; lower-priority events queue when the bucket is empty, and the
// queue evicts its lowest-priority member to make room for an incoming event
// of strictly higher priority once full.
type RateLimitedBus struct {
	inner   Bus
	limiter *rate.Limiter

	mu          sync.Mutex
	overflow    priorityQueue
	overflowCap int
	notify      chan struct{}

	closeOnce sync.Once
	done      chan struct{}
	drainWG   sync.WaitGroup

	dropped atomic.Int64
}

// NewRateLimitedBus wraps inner with a token bucket of the given burst
// capacity and refill rate (events/sec); zero values fall back to the
// package defaults. It starts a background drain goroutine that feeds
// overflowed events back into inner as the bucket refills.
func NewRateLimitedBus(inner Bus, burst int, ratePerSec float64) *RateLimitedBus {
	if burst <= 0 {
		burst = DefaultBurst
	}
	if ratePerSec <= 0 {
		ratePerSec = DefaultRate
	}
	b := &RateLimitedBus{
		inner:       inner,
		limiter:     rate.NewLimiter(rate.Limit(ratePerSec), burst),
		overflowCap: DefaultOverflowLimit,
		notify:      make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	b.drainWG.Add(1)
	go b.drainLoop()
	return b
}

// Emit applies the rate limit. CRITICAL-priority events always pass through
// immediately. Other events that exceed the instantaneous rate are queued;
// if the queue is full, the incoming event is admitted only by evicting the
// current lowest-priority queued element, and only when the incoming event
// strictly outranks it.
func (b *RateLimitedBus) Emit(ctx context.Context, ev Event) error {
	if ev.Priority == PriorityCritical {
		return b.inner.Emit(ctx, ev)
	}
	if b.limiter.Allow() {
		return b.inner.Emit(ctx, ev)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.overflow) < b.overflowCap {
		heap.Push(&b.overflow, ev)
	} else if worst := b.overflow.peekWorst(); worst != nil && ev.Priority < worst.Priority {
		b.overflow.popWorst()
		b.dropped.Add(1)
		heap.Push(&b.overflow, ev)
	} else {
		b.dropped.Add(1)
		return nil
	}
	select {
	case b.notify <- struct{}{}:
	default:
	}
	return nil
}

// Next delegates to the wrapped bus; the overflow queue drains
// asynchronously back into it rather than being read directly here.
func (b *RateLimitedBus) Next(ctx context.Context) (Event, bool) {
	return b.inner.Next(ctx)
}

// Close stops the drain goroutine and the wrapped bus.
func (b *RateLimitedBus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
	b.drainWG.Wait()
	b.inner.Close()
}

// Dropped returns the count of events evicted from the overflow queue or
// refused by it when full, none of which ever reached the inner bus.
func (b *RateLimitedBus) Dropped() int64 {
	return b.dropped.Load()
}

func (b *RateLimitedBus) drainLoop() {
	defer b.drainWG.Done()
	ticker := time.NewTicker(time.Second / time.Duration(maxInt(1, int(b.limiter.Limit()))))
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.drainOne()
		case <-b.notify:
			b.drainOne()
		}
	}
}

func (b *RateLimitedBus) drainOne() {
	if !b.limiter.Allow() {
		return
	}
	b.mu.Lock()
	if len(b.overflow) == 0 {
		b.mu.Unlock()
		return
	}
	ev := heap.Pop(&b.overflow).(Event)
	b.mu.Unlock()
	_ = b.inner.Emit(context.Background(), ev)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// priorityQueue is a container/heap min-heap ordered by Priority (lowest
// numeric value, i.e. highest urgency, served first), with Seq as a
// FIFO tiebreaker among equal priorities.
type priorityQueue []Event

func (q priorityQueue) Len() int { return len(q) }
func (q priorityQueue) Less(i, j int) bool {
	if q[i].Priority != q[j].Priority {
		return q[i].Priority < q[j].Priority
	}
	return q[i].Seq < q[j].Seq
}
func (q priorityQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *priorityQueue) Push(x any)   { *q = append(*q, x.(Event)) }
func (q *priorityQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// peekWorst returns the lowest-urgency (numerically largest priority)
// element without removing it, or nil if empty.
func (q priorityQueue) peekWorst() *Event {
	if len(q) == 0 {
		return nil
	}
	worst := 0
	for i := 1; i < len(q); i++ {
		if q[i].Priority > q[worst].Priority {
			worst = i
		}
	}
	ev := q[worst]
	return &ev
}

// popWorst removes the lowest-urgency element and restores heap order.
func (q *priorityQueue) popWorst() {
	if len(*q) == 0 {
		return
	}
	old := *q
	worst := 0
	for i := 1; i < len(old); i++ {
		if old[i].Priority > old[worst].Priority {
			worst = i
		}
	}
	heap.Remove(q, worst)
}
