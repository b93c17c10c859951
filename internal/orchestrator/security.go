package orchestrator

import (
	"context"

	"github.com/veritas-audit/veritas/internal/auditstate"
	"github.com/veritas-audit/veritas/internal/progress"
	"github.com/veritas-audit/veritas/internal/security"
)

// SecurityNode runs the tiered security module registry against the most
// recent Scout iteration's DOM/headers context.
type SecurityNode struct {
	runner *security.Runner
	bus    progress.Bus
}

// NewSecurityNode constructs a SecurityNode over runner, emitting phase and
// finding events onto bus.
func NewSecurityNode(runner *security.Runner, bus progress.Bus) *SecurityNode {
	return &SecurityNode{runner: runner, bus: bus}
}

func (n *SecurityNode) Name() string { return "security" }

func (n *SecurityNode) Run(ctx context.Context, state *auditstate.State) error {
	emit(ctx, n.bus, progress.EventPhaseStart, progress.PriorityMedium, map[string]any{"node": n.Name()})

	scoutResults := state.ScoutResults
	if len(scoutResults) == 0 {
		emit(ctx, n.bus, progress.EventPhaseComplete, progress.PriorityMedium, map[string]any{"node": n.Name(), "modules_run": 0})
		return nil
	}
	latest := scoutResults[len(scoutResults)-1]

	outcome := n.runner.Run(ctx, security.ModuleInput{
		URL:            latest.PageURL,
		DOMMetadata:    latest.DOMMetadata,
		NetworkHeaders: latest.NetworkHeaders,
	}, state.ModuleEnabled)

	for name, result := range outcome.Results {
		state.SetSecurityResult(result)
		for _, f := range result.Findings {
			emit(ctx, n.bus, progress.EventFinding, progress.PriorityHigh, map[string]any{
				"category_id": f.CategoryID, "severity": string(f.Severity), "description": f.Description,
			})
		}
		for _, e := range result.Errors {
			state.AppendError("security/" + name + ": " + e)
		}
	}

	emit(ctx, n.bus, progress.EventPhaseComplete, progress.PriorityMedium, map[string]any{
		"node": n.Name(), "modules_run": len(outcome.Results), "composite_score": outcome.CompositeScore,
		"modules_failed": outcome.ModulesFailed,
	})
	return nil
}
