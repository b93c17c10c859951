package orchestrator

import (
	"context"

	"github.com/veritas-audit/veritas/internal/auditstate"
	"github.com/veritas-audit/veritas/internal/progress"
)

// Navigator is the external collaborator the Scout node depends on:
// headless-browser navigation, screenshot capture, and DOM extraction are
// specified only as a contract this interface must honor, not implemented
// here.
type Navigator interface {
	Navigate(ctx context.Context, url string) (auditstate.ScoutResult, error)
}

// ScoutNode drives one navigation iteration and re-entry loop bookkeeping.
// The bounded SCOUT→SCOUT re-entry itself lives in the Orchestrator's Run
// loop; ScoutNode.Run performs exactly one iteration.
type ScoutNode struct {
	nav Navigator
	bus progress.Bus
}

// NewScoutNode constructs a ScoutNode backed by nav, emitting phase events
// onto bus.
func NewScoutNode(nav Navigator, bus progress.Bus) *ScoutNode {
	return &ScoutNode{nav: nav, bus: bus}
}

func (n *ScoutNode) Name() string { return "scout" }

func (n *ScoutNode) Run(ctx context.Context, state *auditstate.State) error {
	canScout, _, _ := state.CheckBudget()
	if !canScout {
		return nil
	}

	target := state.URL
	if urls := state.InvestigatedURLs(); len(urls) > 0 {
		target = urls[len(urls)-1]
	}

	emit(ctx, n.bus, progress.EventPhaseStart, progress.PriorityMedium, map[string]any{"node": n.Name(), "target": target})

	result, err := n.nav.Navigate(ctx, target)
	if err != nil {
		state.AppendError("scout: " + err.Error())
		result.ExitReason = auditstate.ExitNavigationError
		state.AppendScoutResult(result)
		emit(ctx, n.bus, progress.EventPhaseError, progress.PriorityHigh, map[string]any{"node": n.Name(), "error": err.Error()})
		return nil
	}

	state.AppendScoutResult(result)
	for i, path := range result.Screenshots {
		label := ""
		if i < len(result.ScreenshotLabels) {
			label = result.ScreenshotLabels[i]
		}
		emit(ctx, n.bus, progress.EventScreenshot, progress.PriorityMedium, map[string]any{"path": path, "label": label})
	}

	emit(ctx, n.bus, progress.EventPhaseComplete, progress.PriorityMedium, map[string]any{
		"node": n.Name(), "exit_reason": string(result.ExitReason), "forms": result.DOMMetadata.Forms,
	})
	return nil
}

func emit(ctx context.Context, bus progress.Bus, t progress.EventType, pr progress.Priority, payload map[string]any) {
	if bus == nil {
		return
	}
	_ = bus.Emit(ctx, progress.New(t, pr, payload))
}
