package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/veritas-audit/veritas/internal/auditstate"
	"github.com/veritas-audit/veritas/internal/metrics"
	"github.com/veritas-audit/veritas/internal/progress"
)

// Orchestrator drives one audit's pipeline: Scout (bounded re-entry) then
// Security, Vision, Graph, Judge in sequence. A shutdownCtx is cancelled
// once, a context.AfterFunc wires it into every in-flight run's own
// context, and a WaitGroup lets the caller drain in-flight runs before
// exiting.
type Orchestrator struct {
	scout    *ScoutNode
	security *SecurityNode
	vision   *VisionNode
	graph    *GraphNode
	judge    *JudgeNode
	bus      progress.Bus

	shutdownCtx context.Context
	shutdownFn  context.CancelFunc
	wg          sync.WaitGroup
}

// New constructs an Orchestrator from its five nodes, all sharing bus for
// progress emission.
func New(scout *ScoutNode, security *SecurityNode, vision *VisionNode, graph *GraphNode, judge *JudgeNode, bus progress.Bus) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		scout: scout, security: security, vision: vision, graph: graph, judge: judge, bus: bus,
		shutdownCtx: ctx, shutdownFn: cancel,
	}
}

// Shutdown cancels every in-flight Run call and waits up to ctx's deadline
// for them to return.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.shutdownFn()
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes the full state machine for one audit: START → INIT → SCOUT
// (bounded re-entry) → SECURITY → VISION → GRAPH → JUDGE → END. A fatal
// error halts the pipeline and marks state StatusError; a node error is
// recorded non-fatally and the pipeline proceeds.
func (o *Orchestrator) Run(ctx context.Context, state *auditstate.State) error {
	o.wg.Add(1)
	defer o.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(o.shutdownCtx, cancel)
	defer stop()

	state.SetStatus(auditstate.StatusRunning)

	if err := o.runScoutLoop(ctx, state); err != nil {
		if ctx.Err() != nil {
			return o.cancelled(ctx, state)
		}
		return o.fail(ctx, state, err)
	}

	for _, node := range []Node{o.security, o.vision, o.graph, o.judge} {
		if ctx.Err() != nil {
			return o.cancelled(ctx, state)
		}
		nodeStart := time.Now()
		err := node.Run(ctx, state)
		metrics.Get().RecordNodeDuration(node.Name(), time.Since(nodeStart).Seconds())
		if err != nil {
			state.AppendError(node.Name() + ": " + err.Error())
			metrics.Get().RecordNodeError(node.Name())
			emit(ctx, o.bus, progress.EventPhaseError, progress.PriorityHigh, map[string]any{"node": node.Name(), "error": err.Error()})
		}
	}

	state.SetStatus(auditstate.StatusCompleted)
	state.Tick()
	metrics.Get().RecordAuditCompletion(string(auditstate.StatusCompleted), string(state.AuditTier), state.ElapsedSeconds())
	emit(ctx, o.bus, progress.EventAuditResult, progress.PriorityCritical, map[string]any{})
	emit(ctx, o.bus, progress.EventAuditComplete, progress.PriorityCritical, map[string]any{"elapsed_seconds": state.ElapsedSeconds()})
	return nil
}

func (o *Orchestrator) runScoutLoop(ctx context.Context, state *auditstate.State) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		canScout, canIterate, _ := state.CheckBudget()
		if !canScout || !canIterate {
			return nil
		}
		if err := o.scout.Run(ctx, state); err != nil {
			return err
		}
		state.IncrementIteration()

		last := state.ScoutResults
		if len(last) == 0 {
			return nil
		}
		if last[len(last)-1].ExitReason != auditstate.ExitSuccess {
			return nil
		}
		canScout, canIterate, _ = state.CheckBudget()
		if !canScout || !canIterate {
			return nil
		}
	}
}

func (o *Orchestrator) fail(ctx context.Context, state *auditstate.State, err error) error {
	state.AppendError("fatal: " + err.Error())
	state.SetStatus(auditstate.StatusError)
	state.Tick()
	metrics.Get().RecordAuditCompletion(string(auditstate.StatusError), string(state.AuditTier), state.ElapsedSeconds())
	emit(ctx, o.bus, progress.EventAuditError, progress.PriorityCritical, map[string]any{"error": err.Error()})
	emit(ctx, o.bus, progress.EventAuditComplete, progress.PriorityCritical, map[string]any{"elapsed_seconds": state.ElapsedSeconds()})
	log.Error().Err(err).Str("url", state.URL).Msg("orchestrator: audit failed fatally")
	return err
}

func (o *Orchestrator) cancelled(ctx context.Context, state *auditstate.State) error {
	state.SetStatus(auditstate.StatusError)
	state.Tick()
	metrics.Get().RecordAuditCompletion(string(auditstate.StatusError), string(state.AuditTier), state.ElapsedSeconds())
	emit(context.Background(), o.bus, progress.EventAuditError, progress.PriorityCritical, map[string]any{"reason": "cancelled"})
	emit(context.Background(), o.bus, progress.EventAuditComplete, progress.PriorityCritical, map[string]any{"elapsed_seconds": state.ElapsedSeconds()})
	return nil
}
