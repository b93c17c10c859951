package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_Trustworthy(t *testing.T) {
	signals := map[string]float64{"visual": 90, "structural": 90, "security": 90}
	adj := WeightAdjustments{"visual": 0.3, "structural": 0.3, "security": 0.4}
	r := Score(signals, adj, nil)
	assert.Equal(t, "trustworthy", r.RiskLevel)
	assert.GreaterOrEqual(t, r.FinalScore, 80)
}

func TestScore_Suspicious(t *testing.T) {
	signals := map[string]float64{"visual": 65, "security": 65}
	adj := WeightAdjustments{"visual": 0.5, "security": 0.5}
	r := Score(signals, adj, nil)
	assert.Equal(t, "suspicious", r.RiskLevel)
}

func TestScore_Untrustworthy(t *testing.T) {
	signals := map[string]float64{"visual": 30, "security": 20}
	adj := WeightAdjustments{"visual": 0.5, "security": 0.5}
	r := Score(signals, adj, nil)
	assert.Equal(t, "untrustworthy", r.RiskLevel)
}

func TestScore_UnknownWithTooFewSignals(t *testing.T) {
	signals := map[string]float64{"visual": 90}
	r := Score(signals, WeightAdjustments{"visual": 1.0}, nil)
	assert.Equal(t, "unknown", r.RiskLevel)
	assert.Equal(t, 0, r.FinalScore)
}

func TestScore_OverridesDeductAndClamp(t *testing.T) {
	signals := map[string]float64{"visual": 90, "security": 90}
	adj := WeightAdjustments{"visual": 0.5, "security": 0.5}
	overrides := []Override{{Name: "missing_ssl", DeductPoints: 40}, {Name: "phishing_service_hit", DeductPoints: 70}}
	r := Score(signals, adj, overrides)
	assert.Equal(t, 0, r.FinalScore, "deductions must clamp at 0, never go negative")
	assert.Equal(t, []string{"missing_ssl", "phishing_service_hit"}, r.AppliedOverrides)
}

func TestScore_ScoresClampedTo0to100(t *testing.T) {
	signals := map[string]float64{"visual": 150, "security": -20}
	adj := WeightAdjustments{"visual": 0.5, "security": 0.5}
	r := Score(signals, adj, nil)
	assert.Equal(t, 100.0, r.SignalScores["visual"])
	assert.Equal(t, 0.0, r.SignalScores["security"])
}
