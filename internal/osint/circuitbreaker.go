package osint

import (
	"sync"
	"time"
)

// CircuitBreaker is a per-source sliding-window failure tracker: it opens
// once failureThreshold failures have landed within the trailing window
// and stays open until enough of them age out. Unlike a simple
// consecutive-failure counter, successes do not reset the window — they
// simply let it age out naturally.
type CircuitBreaker struct {
	mu               sync.Mutex
	window           time.Duration
	failureThreshold int
	failures         []time.Time

	onStateChange func(open bool)
}

const (
	DefaultWindow           = 60 * time.Second
	DefaultFailureThreshold = 5
)

// NewCircuitBreaker returns a breaker with the given window and threshold;
// zero values fall back to the package defaults.
func NewCircuitBreaker(window time.Duration, failureThreshold int) *CircuitBreaker {
	if window <= 0 {
		window = DefaultWindow
	}
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	return &CircuitBreaker{window: window, failureThreshold: failureThreshold}
}

// SetOnStateChange installs a callback invoked whenever Open()'s return
// value flips.
func (b *CircuitBreaker) SetOnStateChange(fn func(open bool)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

// RecordFailure appends now to the failure window, pruning entries older
// than the window first.
func (b *CircuitBreaker) RecordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	before := b.isOpenLocked(now)
	b.failures = prune(b.failures, now, b.window)
	b.failures = append(b.failures, now)
	after := b.isOpenLocked(now)
	if before != after && b.onStateChange != nil {
		go b.onStateChange(after)
	}
}

// Open reports whether the breaker is tripped as of now: the failure count
// within the trailing window meets the threshold.
func (b *CircuitBreaker) Open(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = prune(b.failures, now, b.window)
	return b.isOpenLocked(now)
}

func (b *CircuitBreaker) isOpenLocked(now time.Time) bool {
	count := 0
	cutoff := now.Add(-b.window)
	for _, f := range b.failures {
		if f.After(cutoff) {
			count++
		}
	}
	return count >= b.failureThreshold
}

// Reset clears the failure window entirely.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	open := b.isOpenLocked(time.Now())
	b.failures = nil
	if open && b.onStateChange != nil {
		go b.onStateChange(false)
	}
}

func prune(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	out := ts[:0:0]
	for _, t := range ts {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}
