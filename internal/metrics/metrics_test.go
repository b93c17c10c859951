package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGet_Singleton(t *testing.T) {
	a := Get()
	b := Get()
	assert.Same(t, a, b)
}

func TestRecordAuditCompletion(t *testing.T) {
	m := Get()
	before := testutil.ToFloat64(m.auditsTotal.WithLabelValues("completed", "standard_audit"))
	m.RecordAuditCompletion("completed", "standard_audit", 42.5)
	after := testutil.ToFloat64(m.auditsTotal.WithLabelValues("completed", "standard_audit"))
	assert.Equal(t, before+1, after)
}

func TestRecordNodeDurationAndError(t *testing.T) {
	m := Get()
	before := testutil.ToFloat64(m.nodeErrors.WithLabelValues("judge"))
	m.RecordNodeError("judge")
	after := testutil.ToFloat64(m.nodeErrors.WithLabelValues("judge"))
	assert.Equal(t, before+1, after)

	assert.NotPanics(t, func() { m.RecordNodeDuration("judge", 0.25) })
}

func TestRecordConsensusOutcomeAndCircuitOpen(t *testing.T) {
	m := Get()
	before := testutil.ToFloat64(m.consensusOutcome.WithLabelValues("CONFIRMED"))
	m.RecordConsensusOutcome("CONFIRMED")
	assert.Equal(t, before+1, testutil.ToFloat64(m.consensusOutcome.WithLabelValues("CONFIRMED")))

	beforeCircuit := testutil.ToFloat64(m.osintCircuitOpen.WithLabelValues("whois"))
	m.RecordCircuitOpen("whois")
	assert.Equal(t, beforeCircuit+1, testutil.ToFloat64(m.osintCircuitOpen.WithLabelValues("whois")))
}

func TestRecordProgressDropped(t *testing.T) {
	m := Get()
	before := testutil.ToFloat64(m.progressDropped)
	m.RecordProgressDropped()
	assert.Equal(t, before+1, testutil.ToFloat64(m.progressDropped))
}
