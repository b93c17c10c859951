package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veritas-audit/veritas/internal/auditstate"
)

func TestEngine_TwoSourceConfirmed(t *testing.T) {
	e := NewEngine()
	e.AddFinding("k1", NewFindingSource(auditstate.AgentVision, "v-001", auditstate.SeverityHigh, 0.8))
	r := e.AddFinding("k1", NewFindingSource(auditstate.AgentOSINT, "o-001", auditstate.SeverityHigh, 0.9))

	assert.Equal(t, auditstate.StatusConfirmed, r.Status)
	assert.GreaterOrEqual(t, r.AggregatedConfidence, 75.0)
	assert.Equal(t, 2, r.ConfidenceBreakdown.SourceCount)
}

func TestEngine_SameAgentNoPromotion(t *testing.T) {
	e := NewEngine()
	e.AddFinding("k1", NewFindingSource(auditstate.AgentVision, "v-001", auditstate.SeverityHigh, 0.8))
	r := e.AddFinding("k1", NewFindingSource(auditstate.AgentVision, "v-002", auditstate.SeverityHigh, 0.8))

	assert.Equal(t, auditstate.StatusUnconfirmed, r.Status)
	assert.Less(t, r.AggregatedConfidence, 50.0)
	assert.Equal(t, 1, r.ConfidenceBreakdown.SourceCount)
}

func TestEngine_Conflict(t *testing.T) {
	e := NewEngine()
	e.AddFinding("k1", NewFindingSource(auditstate.AgentVision, "v-001", auditstate.SeverityHigh, 0.8))
	r := e.AddFinding("k1", NewFindingSource(auditstate.AgentOSINT, "o-001", auditstate.SeverityInfo, 0.9))

	assert.Equal(t, auditstate.StatusConflicted, r.Status)
	assert.NotEmpty(t, r.ConflictNotes)

	r2 := e.AddFinding("k1", NewFindingSource(auditstate.AgentSecurity, "s-001", auditstate.SeverityCritical, 0.95))
	assert.Equal(t, auditstate.StatusConflicted, r2.Status, "CONFLICTED must be terminal")
}

func TestEngine_ConsensusDeterminism(t *testing.T) {
	e1 := NewEngine()
	e1.AddFinding("k1", NewFindingSource(auditstate.AgentVision, "v-001", auditstate.SeverityHigh, 0.8))
	r1 := e1.AddFinding("k1", NewFindingSource(auditstate.AgentOSINT, "o-001", auditstate.SeverityMedium, 0.6))

	e2 := NewEngine()
	e2.AddFinding("k1", NewFindingSource(auditstate.AgentOSINT, "o-001", auditstate.SeverityMedium, 0.6))
	r2 := e2.AddFinding("k1", NewFindingSource(auditstate.AgentVision, "v-001", auditstate.SeverityHigh, 0.8))

	assert.Equal(t, r1.Status, r2.Status)
	assert.Equal(t, r1.AggregatedConfidence, r2.AggregatedConfidence)
}

func TestEngine_DistinctAgentCounting(t *testing.T) {
	e := NewEngine()
	e.AddFinding("k1", NewFindingSource(auditstate.AgentVision, "v-001", auditstate.SeverityMedium, 0.5))
	r := e.AddFinding("k1", NewFindingSource(auditstate.AgentVision, "v-002", auditstate.SeverityMedium, 0.5))
	assert.NotEqual(t, auditstate.StatusConfirmed, r.Status)
}

func TestEngine_NeverExceeds49ForSingleSource(t *testing.T) {
	e := NewEngine()
	r := e.AddFinding("k1", NewFindingSource(auditstate.AgentVision, "v-001", auditstate.SeverityCritical, 1.0))
	assert.Equal(t, auditstate.StatusUnconfirmed, r.Status)
	assert.LessOrEqual(t, r.AggregatedConfidence, 49.0)
}

func TestConfidenceTier(t *testing.T) {
	assert.Equal(t, "high_confidence", ConfidenceTier(80))
	assert.Equal(t, "medium_confidence", ConfidenceTier(60))
	assert.Equal(t, "unconfirmed_high", ConfidenceTier(45))
	assert.Equal(t, "unconfirmed_medium", ConfidenceTier(25))
	assert.Equal(t, "low_confidence", ConfidenceTier(5))
}

func TestOSINTConsensus_Conflict(t *testing.T) {
	results := map[string]auditstate.OSINTResult{
		"abuseipdb": {Category: auditstate.CategoryThreatIntel, Status: auditstate.OSINTSuccess,
			Data: map[string]interface{}{"abuse_confidence": 90.0, "reports": 10.0}},
		"urlvoid": {Category: auditstate.CategoryReputation, Status: auditstate.OSINTSuccess,
			Data: map[string]interface{}{"detections": 0.0, "risk": "none"}},
	}
	agreement := OSINTConsensus(results, false)
	assert.Equal(t, "CONFLICTED", agreement.Status)
	assert.NotEmpty(t, agreement.ConflictingSources)
}

func TestOSINTConsensus_Confirmed(t *testing.T) {
	results := map[string]auditstate.OSINTResult{
		"a": {Category: auditstate.CategoryThreatIntel, Status: auditstate.OSINTSuccess, Data: map[string]interface{}{"abuse_confidence": 80.0}},
		"b": {Category: auditstate.CategoryThreatIntel, Status: auditstate.OSINTSuccess, Data: map[string]interface{}{"reports": 10.0}},
		"c": {Category: auditstate.CategoryReputation, Status: auditstate.OSINTSuccess, Data: map[string]interface{}{"detections": 5.0}},
	}
	agreement := OSINTConsensus(results, false)
	assert.Equal(t, "confirmed", agreement.Status)
	assert.Equal(t, VerdictMalicious, agreement.DominantVerdict)
}

func TestOSINTConsensus_Insufficient(t *testing.T) {
	results := map[string]auditstate.OSINTResult{
		"dns": {Category: auditstate.CategoryDNS, Status: auditstate.OSINTSuccess, Data: map[string]interface{}{}},
	}
	agreement := OSINTConsensus(results, false)
	assert.Equal(t, "insufficient", agreement.Status)
}
