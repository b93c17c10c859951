// Package consensus aggregates per-finding evidence from distinct agent
// types (vision, security, osint) into a state machine verdict with an
// explainable confidence score.
package consensus

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/veritas-audit/veritas/internal/auditstate"
)

// DefaultMinSources is the distinct-agent-count threshold that promotes a
// finding to CONFIRMED.
const DefaultMinSources = 2

// Engine aggregates findings keyed by a caller-supplied finding_key
// (normalized pattern_type + locality signature). Each key gets its own
// mutex-guarded entry rather than one lock for the whole engine, so
// concurrent add_finding calls on distinct keys don't serialize against
// each other.
type Engine struct {
	minSources int

	mu       sync.Mutex
	entries  map[string]*entry
}

type entry struct {
	mu     sync.Mutex
	result auditstate.ConsensusResult
}

// NewEngine returns an Engine using DefaultMinSources.
func NewEngine() *Engine {
	return &Engine{minSources: DefaultMinSources, entries: make(map[string]*entry)}
}

// NewEngineWithMinSources overrides the CONFIRMED promotion threshold.
func NewEngineWithMinSources(minSources int) *Engine {
	return &Engine{minSources: minSources, entries: make(map[string]*entry)}
}

func (e *Engine) entryFor(key string) *entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	en, ok := e.entries[key]
	if !ok {
		en = &entry{result: auditstate.ConsensusResult{FindingKey: key, Status: auditstate.StatusPending}}
		e.entries[key] = en
	}
	return en
}

// AddFinding runs the add-finding protocol: conflict detection, source
// append, status recompute, confidence recompute. Safe for concurrent use
// across distinct keys; calls on the same key serialize.
func (e *Engine) AddFinding(key string, src auditstate.FindingSource) auditstate.ConsensusResult {
	en := e.entryFor(key)
	en.mu.Lock()
	defer en.mu.Unlock()

	r := &en.result

	if r.Status == auditstate.StatusConflicted {
		r.Sources = append(r.Sources, src)
		en.result = *r
		return *r
	}

	newIsThreat := src.Severity.IsThreat()
	conflict := false
	for _, s := range r.Sources {
		if s.Severity.IsThreat() != newIsThreat {
			conflict = true
			break
		}
	}

	r.Sources = append(r.Sources, src)

	if conflict {
		r.Status = auditstate.StatusConflicted
		r.ConflictNotes = append(r.ConflictNotes, fmt.Sprintf(
			"source %s/%s reported severity %s, conflicting with an existing threat/safe classification",
			src.AgentType, src.FindingID, src.Severity))
		r.ConfidenceBreakdown, r.AggregatedConfidence = e.confidence(r.Sources)
		en.result = *r
		return *r
	}

	k := distinctAgents(r.Sources)
	switch {
	case k >= e.minSources:
		r.Status = auditstate.StatusConfirmed
	case k == 1:
		r.Status = auditstate.StatusUnconfirmed
	default:
		r.Status = auditstate.StatusPending
	}

	r.ConfidenceBreakdown, r.AggregatedConfidence = e.confidence(r.Sources)
	en.result = *r
	return *r
}

// Get returns the current ConsensusResult for key, or the zero value with
// Status PENDING if no finding has been added yet.
func (e *Engine) Get(key string) auditstate.ConsensusResult {
	e.mu.Lock()
	en, ok := e.entries[key]
	e.mu.Unlock()
	if !ok {
		return auditstate.ConsensusResult{FindingKey: key, Status: auditstate.StatusPending}
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	return en.result
}

// All returns every tracked ConsensusResult, in no particular order.
func (e *Engine) All() []auditstate.ConsensusResult {
	e.mu.Lock()
	keys := make([]*entry, 0, len(e.entries))
	for _, en := range e.entries {
		keys = append(keys, en)
	}
	e.mu.Unlock()

	out := make([]auditstate.ConsensusResult, 0, len(keys))
	for _, en := range keys {
		en.mu.Lock()
		out = append(out, en.result)
		en.mu.Unlock()
	}
	return out
}

func distinctAgents(sources []auditstate.FindingSource) int {
	seen := make(map[auditstate.AgentType]struct{}, len(sources))
	for _, s := range sources {
		seen[s.AgentType] = struct{}{}
	}
	return len(seen)
}

func (e *Engine) confidence(sources []auditstate.FindingSource) (auditstate.ConfidenceBreakdown, float64) {
	k := distinctAgents(sources)

	sourceAgreement := math.Min(1, float64(k)/float64(e.minSources))

	severityFactor := 0.0
	confidenceSum := 0.0
	for _, s := range sources {
		if w := s.Severity.Weight(); w > severityFactor {
			severityFactor = w
		}
		confidenceSum += s.Confidence
	}
	contextFactor := confidenceSum / float64(len(sources))

	base := 60*sourceAgreement + 25*severityFactor + 15*contextFactor

	var out float64
	switch {
	case k >= e.minSources && severityFactor >= 0.8:
		out = math.Min(100, math.Max(75, base))
	case k >= e.minSources:
		out = clamp(base, 50, 75)
	case severityFactor >= 0.8:
		out = math.Min(49, clamp(base, 40, 60))
	default:
		out = math.Min(49, clamp(base, 20, 40))
	}
	out = math.Round(out*10) / 10

	breakdown := auditstate.ConfidenceBreakdown{
		SourceAgreement:   round1(sourceAgreement),
		SeverityFactor:    round1(severityFactor),
		ContextConfidence: round1(contextFactor),
		SourceCount:       k,
	}
	return breakdown, out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// ConfidenceTier names the display bucket for an aggregated_confidence value.
func ConfidenceTier(confidence float64) string {
	switch {
	case confidence >= 75:
		return "high_confidence"
	case confidence >= 50:
		return "medium_confidence"
	case confidence >= 40:
		return "unconfirmed_high"
	case confidence >= 20:
		return "unconfirmed_medium"
	default:
		return "low_confidence"
	}
}

// NewFindingSource is a small constructor convenience used by nodes that
// don't want to stamp time.Now() inline at every call site.
func NewFindingSource(agent auditstate.AgentType, findingID string, sev auditstate.Severity, confidence float64) auditstate.FindingSource {
	return auditstate.FindingSource{
		AgentType:  agent,
		FindingID:  findingID,
		Severity:   sev,
		Confidence: confidence,
		Timestamp:  time.Now(),
	}
}
