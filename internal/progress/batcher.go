package progress

import (
	"context"
	"sync"

	"github.com/veritas-audit/veritas/internal/auditstate"
)

// BatchSize is the number of findings buffered before an automatic
// findings_batch flush.
const BatchSize = 5

// FindingsBatcher buffers individual finding events and flushes them as a
// single findings_batch event either once BatchSize accumulates or when the
// caller explicitly flushes (typically at audit completion).
type FindingsBatcher struct {
	mu     sync.Mutex
	bus    Bus
	buffer []auditstate.Finding
}

// NewFindingsBatcher returns a batcher that emits onto bus.
func NewFindingsBatcher(bus Bus) *FindingsBatcher {
	return &FindingsBatcher{bus: bus}
}

// Add appends a finding to the buffer, flushing automatically once it
// reaches BatchSize.
func (f *FindingsBatcher) Add(ctx context.Context, finding auditstate.Finding) error {
	f.mu.Lock()
	f.buffer = append(f.buffer, finding)
	shouldFlush := len(f.buffer) >= BatchSize
	f.mu.Unlock()
	if shouldFlush {
		return f.Flush(ctx)
	}
	return nil
}

// Flush emits any buffered findings as one findings_batch event and clears
// the buffer. A no-op when the buffer is empty.
func (f *FindingsBatcher) Flush(ctx context.Context) error {
	f.mu.Lock()
	if len(f.buffer) == 0 {
		f.mu.Unlock()
		return nil
	}
	batch := f.buffer
	f.buffer = nil
	f.mu.Unlock()

	priority := PriorityMedium
	for _, finding := range batch {
		if finding.Severity == auditstate.SeverityCritical {
			priority = PriorityHigh
			break
		}
	}

	ev := New(EventFindingsBatch, priority, map[string]any{
		"findings": batch,
		"count":    len(batch),
	})
	return f.bus.Emit(ctx, ev)
}
