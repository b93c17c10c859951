package orchestrator

import (
	"context"

	"github.com/veritas-audit/veritas/internal/auditstate"
	"github.com/veritas-audit/veritas/internal/progress"
)

// VisionClient is the external collaborator the Vision node depends on.
// The vision-language-model client and its caching/retry wrapper are
// specified only as a capability this node depends on, not implemented
// here.
type VisionClient interface {
	Analyze(ctx context.Context, screenshots []string, labels []string) ([]auditstate.Finding, error)
}

// VisionNode analyzes the latest Scout iteration's screenshots, honoring
// the remaining nim_calls budget.
type VisionNode struct {
	client VisionClient
	bus    progress.Bus
}

// NewVisionNode constructs a VisionNode backed by client.
func NewVisionNode(client VisionClient, bus progress.Bus) *VisionNode {
	return &VisionNode{client: client, bus: bus}
}

func (n *VisionNode) Name() string { return "vision" }

func (n *VisionNode) Run(ctx context.Context, state *auditstate.State) error {
	emit(ctx, n.bus, progress.EventPhaseStart, progress.PriorityMedium, map[string]any{"node": n.Name()})

	_, _, canSpendNim := state.CheckBudget()
	if !canSpendNim || n.client == nil {
		emit(ctx, n.bus, progress.EventPhaseComplete, progress.PriorityMedium, map[string]any{"node": n.Name(), "findings": 0, "skipped": true})
		return nil
	}

	scoutResults := state.ScoutResults
	if len(scoutResults) == 0 {
		emit(ctx, n.bus, progress.EventPhaseComplete, progress.PriorityMedium, map[string]any{"node": n.Name(), "findings": 0})
		return nil
	}
	latest := scoutResults[len(scoutResults)-1]

	findings, err := n.client.Analyze(ctx, latest.Screenshots, latest.ScreenshotLabels)
	if err != nil {
		state.AppendError("vision: " + err.Error())
		emit(ctx, n.bus, progress.EventPhaseError, progress.PriorityHigh, map[string]any{"node": n.Name(), "error": err.Error()})
		return nil
	}

	state.IncrementNimCalls()
	for _, f := range findings {
		f.SourceAgent = string(auditstate.AgentVision)
		state.AppendVisionFinding(f)
		emit(ctx, n.bus, progress.EventFinding, progress.PriorityHigh, map[string]any{
			"category_id": f.CategoryID, "severity": string(f.Severity), "description": f.Description,
		})
	}

	emit(ctx, n.bus, progress.EventPhaseComplete, progress.PriorityMedium, map[string]any{"node": n.Name(), "findings": len(findings)})
	return nil
}
