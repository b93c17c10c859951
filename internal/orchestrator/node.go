// Package orchestrator drives one audit's state machine
// (SCOUT → SECURITY → VISION → GRAPH → JUDGE), re-entering SCOUT up to the
// tier's iteration cap, emitting progress events at every node boundary.
package orchestrator

import (
	"context"

	"github.com/veritas-audit/veritas/internal/auditstate"
)

// Node is one pipeline stage. Each node receives the shared state and must
// return promptly on context cancellation.
type Node interface {
	Name() string
	Run(ctx context.Context, state *auditstate.State) error
}
