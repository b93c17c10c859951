// Package strategy implements the per-site-type scoring adjustments the
// trust scorer applies before computing a final verdict.
package strategy

import (
	"github.com/veritas-audit/veritas/internal/auditstate"
)

// SignalWeights maps a signal name to its weight; the set of weights for
// one strategy must sum to 1.0.
type SignalWeights map[string]float64

// CustomFinding is a strategy-contributed finding emitted directly into
// the evidence pool, bypassing the per-module checkers.
type CustomFinding struct {
	Name           string
	Severity       auditstate.Severity
	AutoDeductPoints float64
}

// ScoringAdjustment is what a Strategy contributes to the trust scorer.
type ScoringAdjustment struct {
	WeightAdjustments     SignalWeights
	SeverityModifications map[string]auditstate.Severity
	CustomFindings        []CustomFinding
	NarrativeTemplate     string
	Explanation           string
}

// ScoringContext is everything a Strategy needs to produce its adjustment.
type ScoringContext struct {
	URL              string
	SiteType         auditstate.SiteType
	SignalScores     map[string]float64 // 0-100, keyed by signal name
	HasSSL           bool
	DomainAgeDays    int
	DarkPatternTypes []string
	JSRiskScore      float64 // 0-100
	FormRiskScore    float64 // 0-100
	PhishingFlag     bool
	OnionLinks       bool
}

// Strategy computes site-type-specific scoring adjustments.
type Strategy interface {
	SiteType() auditstate.SiteType
	Adjust(ctx ScoringContext) ScoringAdjustment
}

// Registry maps SiteType to its Strategy.
type Registry struct {
	strategies map[auditstate.SiteType]Strategy
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[auditstate.SiteType]Strategy)}
}

// Register adds s, keyed by its SiteType.
func (r *Registry) Register(s Strategy) {
	r.strategies[s.SiteType()] = s
}

// For returns the strategy for t, or the company_portfolio default strategy
// if t is unrecognized.
func (r *Registry) For(t auditstate.SiteType) Strategy {
	if s, ok := r.strategies[t]; ok {
		return s
	}
	return r.strategies[auditstate.SiteCompanyPortfolio]
}

// NewDefaultRegistry returns a registry populated with all 11 site-type
// strategies.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(newEcommerceStrategy())
	r.Register(newCompanyPortfolioStrategy())
	r.Register(newFinancialStrategy())
	r.Register(newSaaSSubscriptionStrategy())
	r.Register(newNewsBlogStrategy())
	r.Register(newSocialMediaStrategy())
	r.Register(newEducationStrategy())
	r.Register(newHealthcareStrategy())
	r.Register(newGovernmentStrategy())
	r.Register(newGamingStrategy())
	r.Register(newDarknetStrategy())
	return r
}

// UniversalCriticalTriggers returns custom findings every strategy applies
// before its own domain-specific triggers.
func UniversalCriticalTriggers(ctx ScoringContext) []CustomFinding {
	var out []CustomFinding
	requiresSSL := ctx.SiteType == auditstate.SiteFinancial ||
		ctx.SiteType == auditstate.SiteSaaSSubscription ||
		ctx.SiteType == auditstate.SiteHealthcare ||
		ctx.SiteType == auditstate.SiteGovernment
	if requiresSSL && !ctx.HasSSL {
		out = append(out, CustomFinding{Name: "missing_ssl", Severity: auditstate.SeverityCritical, AutoDeductPoints: 40})
	}
	if ctx.PhishingFlag {
		out = append(out, CustomFinding{Name: "phishing_service_hit", Severity: auditstate.SeverityCritical, AutoDeductPoints: 50})
	}
	if ctx.JSRiskScore > 80 {
		out = append(out, CustomFinding{Name: "high_js_risk", Severity: auditstate.SeverityHigh, AutoDeductPoints: 20})
	}
	return out
}

// weights builds a strategy's SignalWeights from one explicit value per
// signal in the fixed six-signal set.
func weights(visual, structural, temporal, graph, meta, security float64) SignalWeights {
	return SignalWeights{
		"visual":     visual,
		"structural": structural,
		"temporal":   temporal,
		"graph":      graph,
		"meta":       meta,
		"security":   security,
	}
}
