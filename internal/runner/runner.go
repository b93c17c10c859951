// Package runner owns one audit's lifecycle from the host boundary:
// persisting the initial row, driving the orchestrator, publishing its raw
// progress events to a sink and the event log, and reconciling the terminal
// status. Events are passed on unchanged, not translated into a separate
// host vocabulary, and findings and screenshots are not persisted here.
package runner

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/veritas-audit/veritas/internal/auditstate"
	"github.com/veritas-audit/veritas/internal/orchestrator"
	"github.com/veritas-audit/veritas/internal/progress"
	"github.com/veritas-audit/veritas/internal/store"
)

// HostEvent is one raw progress event tagged with the id of the audit that
// produced it, as the runner hands it to whatever external transport
// (websocket hub, SSE, log) consumes it.
type HostEvent struct {
	AuditID string
	Event   progress.Event
}

// EventSink receives host events; the runner's caller supplies
// one (a websocket hub, a test collector, or nothing).
type EventSink interface {
	Publish(ctx context.Context, he HostEvent)
}

// Runner owns one audit's full lifecycle.
type Runner struct {
	audits store.AuditRepository
	events *store.EventRepository
	orch   *orchestrator.Orchestrator
	sink   EventSink

	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a Runner persisting to audits and events, driving orch,
// and publishing events to sink (nil sink is a no-op).
func New(audits store.AuditRepository, events *store.EventRepository, orch *orchestrator.Orchestrator, sink EventSink) *Runner {
	return &Runner{audits: audits, events: events, orch: orch, sink: sink, running: make(map[string]context.CancelFunc)}
}

// Start persists the initial audit row, launches the orchestrator and a
// progress consumer goroutine, and returns immediately; the audit runs in
// the background. Use Wait or Cancel to manage its lifecycle.
func (r *Runner) Start(ctx context.Context, auditID string, state *auditstate.State, bus progress.Bus) error {
	now := time.Now().UTC()
	if err := r.audits.Create(ctx, store.Audit{
		ID: auditID, URL: state.URL, Tier: string(state.AuditTier), VerdictMode: string(state.VerdictMode),
		Status: string(auditstate.StatusRunning), StartedAt: now,
	}); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.running[auditID] = cancel
	r.mu.Unlock()

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		defer bus.Close()
		if err := r.orch.Run(runCtx, state); err != nil {
			log.Error().Err(err).Str("audit_id", auditID).Msg("runner: audit orchestrator returned error")
		}
	}()
	go func() {
		defer r.wg.Done()
		r.consume(runCtx, auditID, state, bus)
		r.mu.Lock()
		delete(r.running, auditID)
		r.mu.Unlock()
	}()

	return nil
}

// consume drains bus, publishing each raw progress event unchanged to the
// sink and persisting it as an event row, until the bus closes or runCtx is
// cancelled. On exit it reconciles the audit's terminal row.
func (r *Runner) consume(runCtx context.Context, auditID string, state *auditstate.State, bus progress.Bus) {
	var sawAuditResult, sawAuditError bool

	for {
		ev, ok := bus.Next(runCtx)
		if !ok {
			break
		}
		if r.sink != nil {
			r.sink.Publish(runCtx, HostEvent{AuditID: auditID, Event: ev})
		}
		if r.events != nil {
			r.persistEvent(auditID, ev)
		}
		switch ev.Type {
		case progress.EventAuditResult:
			sawAuditResult = true
		case progress.EventAuditError:
			sawAuditError = true
		}
	}

	r.reconcile(auditID, state, sawAuditResult, sawAuditError)
}

func (r *Runner) persistEvent(auditID string, ev progress.Event) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		log.Warn().Err(err).Str("audit_id", auditID).Msg("runner: failed to marshal event payload")
		return
	}
	if err := r.events.Create(context.Background(), store.Event{
		ID: ev.ID, AuditID: auditID, Seq: ev.Seq, EventType: string(ev.Type),
		Payload: string(payload), CreatedAt: ev.Timestamp,
	}); err != nil {
		log.Warn().Err(err).Str("audit_id", auditID).Msg("runner: failed to persist event")
	}
}

// reconcile persists the final status row. If the final audit_result event
// was never observed (the defensive path), it still derives a terminal
// status from the state's own bookkeeping rather than leaving the row
// stuck at running.
func (r *Runner) reconcile(auditID string, state *auditstate.State, sawAuditResult, sawAuditError bool) {
	ctx := context.Background()
	status := state.GetStatus()

	a, err := r.audits.GetByID(ctx, auditID)
	if err != nil {
		log.Error().Err(err).Str("audit_id", auditID).Msg("runner: reconcile: audit row missing")
		return
	}

	now := time.Now().UTC()
	a.Status = string(status)
	a.ElapsedSeconds = state.ElapsedSeconds()
	a.CompletedAt = &now
	a.SiteType = string(state.SiteType)
	a.SiteTypeConfidence = state.SiteTypeConfidence
	a.PagesScouted = state.PagesScouted
	a.IterationsUsed = state.Iteration
	a.NimCallsUsed = state.NimCallsUsed

	if state.JudgeDecision != nil {
		score := float64(state.JudgeDecision.TrustScoreResult.FinalScore)
		a.TrustScore = &score
		a.RiskLevel = state.JudgeDecision.TrustScoreResult.RiskLevel
		a.Narrative = state.JudgeDecision.Narrative
	}
	if len(state.Errors) > 0 {
		a.Error = state.Errors[len(state.Errors)-1]
	}

	if !sawAuditResult && !sawAuditError {
		log.Warn().Str("audit_id", auditID).Msg("runner: neither audit_result nor audit_error observed, reconciling from state")
		if status == auditstate.StatusRunning || status == "" {
			a.Status = string(auditstate.StatusError)
			if a.Error == "" {
				a.Error = "audit terminated without a final result"
			}
		}
	}

	if err := r.audits.Update(ctx, a); err != nil {
		log.Error().Err(err).Str("audit_id", auditID).Msg("runner: failed to persist final audit state")
	}
}

// Cancel requests cancellation of a running audit. Cancelling an audit
// that has already finished or was never started is a no-op.
func (r *Runner) Cancel(auditID string) {
	r.mu.Lock()
	cancel, ok := r.running[auditID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

// Wait blocks until every audit this Runner has started has finished
// consuming its progress stream.
func (r *Runner) Wait() {
	r.wg.Wait()
}
