// Package metrics exposes Veritas's Prometheus instrumentation: audit
// throughput, per-node phase duration, budget exhaustion, and consensus
// outcome counters. A single registry-backed singleton, built once via
// sync.Once, instruments the process itself rather than the audited
// target.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// AuditMetrics manages Prometheus instrumentation for one orchestrator
// process.
type AuditMetrics struct {
	auditsTotal      *prometheus.CounterVec
	auditDuration    *prometheus.HistogramVec
	nodeDuration     *prometheus.HistogramVec
	nodeErrors       *prometheus.CounterVec
	budgetExhausted  *prometheus.CounterVec
	consensusOutcome *prometheus.CounterVec
	osintCircuitOpen *prometheus.CounterVec
	progressDropped  prometheus.Counter
}

var (
	instance *AuditMetrics
	once     sync.Once
)

// Get returns the process-wide singleton, registering its collectors with
// the default Prometheus registry on first call.
func Get() *AuditMetrics {
	once.Do(func() {
		instance = newAuditMetrics()
	})
	return instance
}

func newAuditMetrics() *AuditMetrics {
	m := &AuditMetrics{
		auditsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "veritas",
				Subsystem: "audit",
				Name:      "total",
				Help:      "Total audits by terminal status",
			},
			[]string{"status", "tier"},
		),
		auditDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "veritas",
				Subsystem: "audit",
				Name:      "duration_seconds",
				Help:      "Audit wall-clock duration by tier",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"tier"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "veritas",
				Subsystem: "orchestrator",
				Name:      "node_duration_seconds",
				Help:      "Per-node execution duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"node"},
		),
		nodeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "veritas",
				Subsystem: "orchestrator",
				Name:      "node_errors_total",
				Help:      "Total non-fatal node errors by node",
			},
			[]string{"node"},
		),
		budgetExhausted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "veritas",
				Subsystem: "orchestrator",
				Name:      "budget_exhausted_total",
				Help:      "Total times a tier budget halted scout re-entry or vision spend",
			},
			[]string{"budget"},
		),
		consensusOutcome: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "veritas",
				Subsystem: "consensus",
				Name:      "outcome_total",
				Help:      "Total finding consensus outcomes by final status",
			},
			[]string{"status"},
		),
		osintCircuitOpen: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "veritas",
				Subsystem: "osint",
				Name:      "circuit_open_total",
				Help:      "Total queries short-circuited by an open breaker, by source",
			},
			[]string{"source"},
		),
		progressDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "veritas",
				Subsystem: "progress",
				Name:      "events_dropped_total",
				Help:      "Total progress events discarded by backpressure",
			},
		),
	}

	prometheus.MustRegister(
		m.auditsTotal,
		m.auditDuration,
		m.nodeDuration,
		m.nodeErrors,
		m.budgetExhausted,
		m.consensusOutcome,
		m.osintCircuitOpen,
		m.progressDropped,
	)

	return m
}

// RecordAuditCompletion records one terminal audit outcome.
func (m *AuditMetrics) RecordAuditCompletion(status, tier string, elapsedSeconds float64) {
	m.auditsTotal.WithLabelValues(status, tier).Inc()
	m.auditDuration.WithLabelValues(tier).Observe(elapsedSeconds)
}

// RecordNodeDuration records one node's execution time.
func (m *AuditMetrics) RecordNodeDuration(node string, seconds float64) {
	m.nodeDuration.WithLabelValues(node).Observe(seconds)
}

// RecordNodeError increments the non-fatal error counter for node.
func (m *AuditMetrics) RecordNodeError(node string) {
	m.nodeErrors.WithLabelValues(node).Inc()
}

// RecordBudgetExhausted increments the named budget's exhaustion counter.
func (m *AuditMetrics) RecordBudgetExhausted(budget string) {
	m.budgetExhausted.WithLabelValues(budget).Inc()
}

// RecordConsensusOutcome increments the consensus outcome counter for status.
func (m *AuditMetrics) RecordConsensusOutcome(status string) {
	m.consensusOutcome.WithLabelValues(status).Inc()
}

// RecordCircuitOpen increments the open-circuit short-circuit counter for source.
func (m *AuditMetrics) RecordCircuitOpen(source string) {
	m.osintCircuitOpen.WithLabelValues(source).Inc()
}

// RecordProgressDropped increments the progress-bus backpressure drop counter.
func (m *AuditMetrics) RecordProgressDropped() {
	m.progressDropped.Inc()
}
