package strategy

import "github.com/veritas-audit/veritas/internal/auditstate"

// darknetStrategy implements "paranoia mode": every severity modification
// any other signal would have produced is auto-upgraded by one tier, and
// a bare onion-link detection alone forces CRITICAL regardless of any
// other signal.
type darknetStrategy struct{}

func newDarknetStrategy() *darknetStrategy { return &darknetStrategy{} }
func (s *darknetStrategy) SiteType() auditstate.SiteType { return auditstate.SiteDarknetSuspicious }

func (s *darknetStrategy) Adjust(ctx ScoringContext) ScoringAdjustment {
	adj := ScoringAdjustment{
		WeightAdjustments:     weights(0.10, 0.15, 0.10, 0.25, 0.10, 0.30),
		SeverityModifications: make(map[string]auditstate.Severity),
		NarrativeTemplate:     "Darknet-suspicious site evaluated in paranoia mode: all findings upgraded one severity tier",
		Explanation:           "A .onion presence or darknet marketplace pattern warrants the most conservative possible reading of every other signal",
		CustomFindings:        UniversalCriticalTriggers(ctx),
	}

	for _, pattern := range ctx.DarkPatternTypes {
		sev := darkPatternSeverity(pattern)
		adj.SeverityModifications[pattern] = auditstate.UpgradeOne(sev)
		adj.CustomFindings = append(adj.CustomFindings, CustomFinding{
			Name: pattern, Severity: auditstate.UpgradeOne(sev), AutoDeductPoints: darkPatternDeduction(pattern),
		})
	}

	if ctx.OnionLinks {
		adj.SeverityModifications["onion_links"] = auditstate.SeverityCritical
		adj.CustomFindings = append(adj.CustomFindings, CustomFinding{
			Name: "onion_links", Severity: auditstate.SeverityCritical, AutoDeductPoints: 50,
		})
	}

	return adj
}

func darkPatternSeverity(pattern string) auditstate.Severity {
	switch pattern {
	case "btc_only", "escrow_warning":
		return auditstate.SeverityMedium
	case "vendor_bond_required", "exit_scam_history":
		return auditstate.SeverityHigh
	default:
		return auditstate.SeverityLow
	}
}

func darkPatternDeduction(pattern string) float64 {
	switch pattern {
	case "btc_only":
		return 15
	case "escrow_warning":
		return 15
	case "vendor_bond_required":
		return 25
	case "exit_scam_history":
		return 35
	default:
		return 10
	}
}
