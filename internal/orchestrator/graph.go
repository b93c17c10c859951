package orchestrator

import (
	"context"
	"strings"

	"github.com/veritas-audit/veritas/internal/auditstate"
	"github.com/veritas-audit/veritas/internal/consensus"
	"github.com/veritas-audit/veritas/internal/osint"
	"github.com/veritas-audit/veritas/internal/progress"
)

// GraphNode invokes the OSINT orchestrator for the audited domain and
// reduces the per-category results into a GraphResult.
type GraphNode struct {
	osint *osint.CachedOrchestrator
	bus   progress.Bus
}

// NewGraphNode constructs a GraphNode over o.
func NewGraphNode(o *osint.CachedOrchestrator, bus progress.Bus) *GraphNode {
	return &GraphNode{osint: o, bus: bus}
}

func (n *GraphNode) Name() string { return "graph" }

func hostname(rawURL string) string {
	h := strings.TrimPrefix(rawURL, "https://")
	h = strings.TrimPrefix(h, "http://")
	if i := strings.IndexAny(h, "/?#"); i >= 0 {
		h = h[:i]
	}
	return h
}

func (n *GraphNode) Run(ctx context.Context, state *auditstate.State) error {
	emit(ctx, n.bus, progress.EventPhaseStart, progress.PriorityMedium, map[string]any{"node": n.Name()})

	if n.osint == nil {
		emit(ctx, n.bus, progress.EventPhaseComplete, progress.PriorityMedium, map[string]any{"node": n.Name(), "sources": 0})
		return nil
	}

	host := hostname(state.URL)
	all := make(map[string]auditstate.OSINTResult)

	categoryQueries := []struct {
		cat       auditstate.OSINTCategory
		queryType string
		value     string
	}{
		{auditstate.CategoryDNS, string(osint.QueryDomain), host},
		{auditstate.CategoryWHOIS, string(osint.QueryDomain), host},
		{auditstate.CategorySSL, string(osint.QueryDomain), host},
		{auditstate.CategoryThreatIntel, string(osint.QueryDomain), host},
		{auditstate.CategoryReputation, string(osint.QueryURL), state.URL},
	}

	for _, q := range categoryQueries {
		for name, r := range n.osint.QueryAll(ctx, q.cat, q.queryType, q.value, osint.DefaultMaxParallel) {
			all[name] = *r
			state.SetOSINTResult(*r)
		}
	}

	graph := &auditstate.GraphResult{
		DomainIntel:   map[string]interface{}{},
		IPGeolocation: map[string]interface{}{},
		MetaAnalysis:  map[string]interface{}{},
	}
	for name, r := range all {
		graph.DomainIntel[name] = r.Data
	}

	threatResults := filterByCategory(all, auditstate.CategoryThreatIntel, auditstate.CategoryReputation)
	if len(threatResults) > 0 {
		agreement := consensus.OSINTConsensus(threatResults, false)
		graph.MetaAnalysis["threat_consensus"] = agreement.Status
		graph.MetaAnalysis["threat_dominant_verdict"] = string(agreement.DominantVerdict)
		if len(agreement.ConflictingSources) > 0 {
			graph.Inconsistencies = append(graph.Inconsistencies, "conflicting threat-intel verdicts: "+joinCSV(agreement.ConflictingSources))
		} else {
			graph.Verifications = append(graph.Verifications, "threat-intel sources agree: "+string(agreement.DominantVerdict))
		}
	}

	state.SetGraphResult(graph)
	emit(ctx, n.bus, progress.EventPhaseComplete, progress.PriorityMedium, map[string]any{"node": n.Name(), "sources": len(all)})
	return nil
}

func filterByCategory(results map[string]auditstate.OSINTResult, cats ...auditstate.OSINTCategory) map[string]auditstate.OSINTResult {
	want := make(map[auditstate.OSINTCategory]bool, len(cats))
	for _, c := range cats {
		want[c] = true
	}
	out := make(map[string]auditstate.OSINTResult)
	for name, r := range results {
		if want[r.Category] {
			out[name] = r
		}
	}
	return out
}

func joinCSV(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
