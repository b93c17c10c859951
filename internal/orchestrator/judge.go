package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/veritas-audit/veritas/internal/auditstate"
	"github.com/veritas-audit/veritas/internal/consensus"
	"github.com/veritas-audit/veritas/internal/metrics"
	"github.com/veritas-audit/veritas/internal/progress"
	"github.com/veritas-audit/veritas/internal/strategy"
	"github.com/veritas-audit/veritas/internal/trust"
)

// SiteClassifier is the external collaborator the Judge node depends on to
// pick a site_type from the accumulated state before scoring. Real site
// classification is a heuristic/ML concern outside this package's scope;
// DefaultSiteClassifier below provides the deterministic fallback.
type SiteClassifier interface {
	Classify(state *auditstate.State) (auditstate.SiteType, float64)
}

// JudgeNode selects the site-type strategy, runs every finding through the
// consensus engine, computes the final trust score, and populates
// judge_decision.
type JudgeNode struct {
	strategies *strategy.Registry
	classifier SiteClassifier
	bus        progress.Bus
}

// NewJudgeNode constructs a JudgeNode.
func NewJudgeNode(strategies *strategy.Registry, classifier SiteClassifier, bus progress.Bus) *JudgeNode {
	return &JudgeNode{strategies: strategies, classifier: classifier, bus: bus}
}

func (n *JudgeNode) Name() string { return "judge" }

func (n *JudgeNode) Run(ctx context.Context, state *auditstate.State) error {
	emit(ctx, n.bus, progress.EventPhaseStart, progress.PriorityMedium, map[string]any{"node": n.Name()})

	siteType, confidence := n.classifier.Classify(state)
	state.SetSiteType(siteType, confidence)
	emit(ctx, n.bus, progress.EventSiteType, progress.PriorityMedium, map[string]any{"site_type": string(siteType), "confidence": confidence})

	engine := consensus.NewEngine()
	for _, f := range state.VisionResult {
		key := findingKey(f)
		engine.AddFinding(key, consensus.NewFindingSource(auditstate.AgentVision, f.ID, f.Severity, f.Confidence))
	}
	for _, sr := range state.SecurityResults {
		for _, f := range sr.Findings {
			key := findingKey(f)
			engine.AddFinding(key, consensus.NewFindingSource(auditstate.AgentSecurity, f.ID, f.Severity, f.Confidence))
		}
	}

	signalScores := computeSignalScores(state)
	ctxInput := n.buildScoringContext(state, siteType, signalScores)
	strat := n.strategies.For(siteType)
	adjustment := strat.Adjust(ctxInput)

	var overrides []trust.Override
	for _, cf := range adjustment.CustomFindings {
		overrides = append(overrides, trust.Override{Name: cf.Name, DeductPoints: cf.AutoDeductPoints})
	}

	result := trust.Score(signalScores, trust.WeightAdjustments(adjustment.WeightAdjustments), overrides)

	decision := &auditstate.JudgeDecision{
		TrustScoreResult: auditstate.TrustScoreResult{
			FinalScore:          result.FinalScore,
			RiskLevel:           result.RiskLevel,
			SignalScores:        result.SignalScores,
			AppliedOverrides:    result.AppliedOverrides,
			ConfidenceBreakdown: result.ConfidenceBreakdown,
		},
		Narrative:       fmt.Sprintf("%s %s", adjustment.NarrativeTemplate, adjustment.Explanation),
		Recommendations: recommendationsFor(engine.All()),
	}
	state.SetJudgeDecision(decision)

	for _, r := range engine.All() {
		metrics.Get().RecordConsensusOutcome(string(r.Status))
	}

	emit(ctx, n.bus, progress.EventPhaseComplete, progress.PriorityMedium, map[string]any{
		"node": n.Name(), "final_score": result.FinalScore, "risk_level": result.RiskLevel,
	})
	return nil
}

func findingKey(f auditstate.Finding) string {
	return f.CategoryID + ":" + f.PatternType
}

func (n *JudgeNode) buildScoringContext(state *auditstate.State, siteType auditstate.SiteType, signalScores map[string]float64) strategy.ScoringContext {
	hasSSL := false
	if sslResult, ok := state.OSINTResults["ssl"]; ok {
		if expired, ok := sslResult.Data["is_expired"].(bool); ok {
			hasSSL = !expired
		}
	}
	domainAge := 0
	if whois, ok := state.OSINTResults["whois"]; ok {
		if age, ok := whois.Data["age_days"].(float64); ok {
			domainAge = int(age)
		}
	}
	jsRisk := 0.0
	formRisk := 0.0
	if sr, ok := state.SecurityResults["js_analysis"]; ok {
		jsRisk = (1 - sr.Score) * 100
	}
	if sr, ok := state.SecurityResults["form_validation"]; ok {
		formRisk = (1 - sr.Score) * 100
	}
	phishing := false
	if sr, ok := state.SecurityResults["phishing_db"]; ok {
		phishing = len(sr.Findings) > 0
	}

	return strategy.ScoringContext{
		URL:           state.URL,
		SiteType:      siteType,
		SignalScores:  signalScores,
		HasSSL:        hasSSL,
		DomainAgeDays: domainAge,
		JSRiskScore:   jsRisk,
		FormRiskScore: formRisk,
		PhishingFlag:  phishing,
		OnionLinks:    strings.Contains(state.URL, ".onion"),
	}
}

// computeSignalScores derives the six signal scores (visual, structural,
// temporal, graph, meta, security) the trust scorer weighs, each on 0-100.
func computeSignalScores(state *auditstate.State) map[string]float64 {
	securityScore := 100.0
	if n := len(state.SecurityResults); n > 0 {
		sum := 0.0
		for _, r := range state.SecurityResults {
			sum += r.Score
		}
		securityScore = (sum / float64(n)) * 100
	}

	structuralScore := 100.0
	if len(state.ScoutResults) > 0 {
		last := state.ScoutResults[len(state.ScoutResults)-1]
		if last.ExitReason != auditstate.ExitSuccess {
			structuralScore = 40
		}
	}

	visualScore := 80.0
	for _, f := range state.VisionResult {
		visualScore -= f.Severity.Weight() * 20
	}
	if visualScore < 0 {
		visualScore = 0
	}

	graphScore := 60.0
	if state.GraphResult != nil {
		graphScore = 50 + float64(len(state.GraphResult.Verifications))*10 - float64(len(state.GraphResult.Inconsistencies))*20
	}
	if graphScore < 0 {
		graphScore = 0
	}
	if graphScore > 100 {
		graphScore = 100
	}

	return map[string]float64{
		"visual":     visualScore,
		"structural": structuralScore,
		"temporal":   70,
		"graph":      graphScore,
		"meta":       70,
		"security":   securityScore,
	}
}

func recommendationsFor(results []auditstate.ConsensusResult) []string {
	var out []string
	for _, r := range results {
		if r.Status == auditstate.StatusConfirmed || r.Status == auditstate.StatusConflicted {
			out = append(out, "review finding "+r.FindingKey+" ("+string(r.Status)+")")
		}
	}
	return out
}

// DefaultSiteClassifier is a deterministic fallback classifier: it looks
// for an onion TLD and otherwise defaults to company_portfolio, leaving
// real classification (visual/structural ML) to a future collaborator
// injected in its place.
type DefaultSiteClassifier struct{}

func (DefaultSiteClassifier) Classify(state *auditstate.State) (auditstate.SiteType, float64) {
	if strings.Contains(state.URL, ".onion") {
		return auditstate.SiteDarknetSuspicious, 0.95
	}
	return auditstate.SiteCompanyPortfolio, 0.3
}
