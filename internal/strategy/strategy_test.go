package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritas-audit/veritas/internal/auditstate"
	"github.com/veritas-audit/veritas/internal/trust"
)

func TestRegistry_AllSiteTypesRegistered(t *testing.T) {
	r := NewDefaultRegistry()
	siteTypes := []auditstate.SiteType{
		auditstate.SiteEcommerce, auditstate.SiteCompanyPortfolio, auditstate.SiteFinancial,
		auditstate.SiteSaaSSubscription, auditstate.SiteNewsBlog, auditstate.SiteSocialMedia,
		auditstate.SiteEducation, auditstate.SiteHealthcare, auditstate.SiteGovernment,
		auditstate.SiteGaming, auditstate.SiteDarknetSuspicious,
	}
	for _, st := range siteTypes {
		s := r.For(st)
		require.NotNil(t, s)
		assert.Equal(t, st, s.SiteType())
	}
}

func TestWeights_SumToOne(t *testing.T) {
	r := NewDefaultRegistry()
	for _, st := range []auditstate.SiteType{
		auditstate.SiteEcommerce, auditstate.SiteCompanyPortfolio, auditstate.SiteFinancial,
		auditstate.SiteSaaSSubscription, auditstate.SiteNewsBlog, auditstate.SiteSocialMedia,
		auditstate.SiteEducation, auditstate.SiteHealthcare, auditstate.SiteGovernment,
		auditstate.SiteGaming, auditstate.SiteDarknetSuspicious,
	} {
		adj := r.For(st).Adjust(ScoringContext{SiteType: st, HasSSL: true})
		sum := 0.0
		for _, w := range adj.WeightAdjustments {
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 0.001, "weights for %s must sum to 1.0", st)
	}
}

func TestDarknetStrategy_OnionLinksForceCritical(t *testing.T) {
	r := NewDefaultRegistry()
	ctx := ScoringContext{
		SiteType:         auditstate.SiteDarknetSuspicious,
		URL:              "http://exampleonionaddress.onion",
		HasSSL:           false,
		OnionLinks:       true,
		DarkPatternTypes: []string{"btc_only", "escrow_warning"},
	}
	adj := r.For(auditstate.SiteDarknetSuspicious).Adjust(ctx)

	assert.Equal(t, auditstate.SeverityCritical, adj.SeverityModifications["onion_links"])

	var onionFinding *CustomFinding
	for i := range adj.CustomFindings {
		if adj.CustomFindings[i].Name == "onion_links" {
			onionFinding = &adj.CustomFindings[i]
		}
	}
	require.NotNil(t, onionFinding)
	assert.Equal(t, auditstate.SeverityCritical, onionFinding.Severity)
	assert.Equal(t, 50.0, onionFinding.AutoDeductPoints)
}

func TestDarknetStrategy_SeveritiesUpgradedOneTier(t *testing.T) {
	r := NewDefaultRegistry()
	ctx := ScoringContext{SiteType: auditstate.SiteDarknetSuspicious, DarkPatternTypes: []string{"btc_only"}}
	adj := r.For(auditstate.SiteDarknetSuspicious).Adjust(ctx)
	assert.Equal(t, auditstate.SeverityHigh, adj.SeverityModifications["btc_only"], "MEDIUM upgrades to HIGH in paranoia mode")
}

func TestDarknetSite_FinalScoreBelowUntrustworthyThreshold(t *testing.T) {
	r := NewDefaultRegistry()
	ctx := ScoringContext{
		SiteType:         auditstate.SiteDarknetSuspicious,
		URL:              "http://exampleonionaddress.onion",
		HasSSL:           false,
		OnionLinks:       true,
		DarkPatternTypes: []string{"btc_only", "escrow_warning"},
		SignalScores:     map[string]float64{"visual": 50, "structural": 50, "temporal": 50, "graph": 30, "meta": 40, "security": 20},
	}
	adj := r.For(auditstate.SiteDarknetSuspicious).Adjust(ctx)

	var overrides []trust.Override
	for _, cf := range adj.CustomFindings {
		overrides = append(overrides, trust.Override{Name: cf.Name, DeductPoints: cf.AutoDeductPoints})
	}

	result := trust.Score(ctx.SignalScores, trust.WeightAdjustments(adj.WeightAdjustments), overrides)
	assert.Less(t, result.FinalScore, 60)
	assert.NotEqual(t, "trustworthy", result.RiskLevel)
}
