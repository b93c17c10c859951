package auditstate

import "time"

// Finding is a single observation produced by a vision, security, or OSINT
// agent. Every finding is attributable to exactly one source agent.
type Finding struct {
	ID             string   `json:"id"`
	CategoryID     string   `json:"category_id"`
	PatternType    string   `json:"pattern_type"`
	Severity       Severity `json:"severity"`
	Confidence     float64  `json:"confidence"`
	Description    string   `json:"description"`
	Evidence       string   `json:"evidence,omitempty"`
	CWEID          string   `json:"cwe_id,omitempty"`
	CVSSScore      *float64 `json:"cvss_score,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`

	// SourceAgent names the agent that produced this finding (vision,
	// security, osint) and is what the consensus engine keys on.
	SourceAgent string `json:"source_agent"`
}

// AgentType identifies one of the three finding-producing agents that feed
// the consensus engine.
type AgentType string

const (
	AgentVision   AgentType = "vision"
	AgentOSINT    AgentType = "osint"
	AgentSecurity AgentType = "security"
)

// FindingSource is the consensus engine's input shape: one agent's report
// of a finding, reduced to the fields that matter for aggregation.
type FindingSource struct {
	AgentType  AgentType
	FindingID  string
	Severity   Severity
	Confidence float64
	Timestamp  time.Time
}

// ConsensusStatus is the state-machine status of an aggregated finding.
type ConsensusStatus string

const (
	StatusPending     ConsensusStatus = "PENDING"
	StatusUnconfirmed ConsensusStatus = "UNCONFIRMED"
	StatusConfirmed   ConsensusStatus = "CONFIRMED"
	StatusConflicted  ConsensusStatus = "CONFLICTED"
)

// ConfidenceBreakdown records how aggregated_confidence was derived.
type ConfidenceBreakdown struct {
	SourceAgreement float64 `json:"source_agreement"`
	SeverityFactor  float64 `json:"severity_factor"`
	ContextConfidence float64 `json:"context_confidence"`
	SourceCount     int     `json:"source_count"`
}

// ConsensusResult is the aggregated view of one finding key across agents.
type ConsensusResult struct {
	FindingKey           string              `json:"finding_key"`
	Sources              []FindingSource     `json:"sources"`
	Status               ConsensusStatus     `json:"status"`
	AggregatedConfidence float64             `json:"aggregated_confidence"`
	ConfidenceBreakdown  ConfidenceBreakdown `json:"confidence_breakdown"`
	ConflictNotes        []string            `json:"conflict_notes,omitempty"`
}

// OSINTCategory groups OSINT sources by kind of intelligence.
type OSINTCategory string

const (
	CategoryDNS         OSINTCategory = "DNS"
	CategoryWHOIS       OSINTCategory = "WHOIS"
	CategorySSL         OSINTCategory = "SSL"
	CategoryThreatIntel OSINTCategory = "THREAT_INTEL"
	CategoryReputation  OSINTCategory = "REPUTATION"
	CategorySocial      OSINTCategory = "SOCIAL"
)

// OSINTStatus is the per-query outcome of an OSINT source lookup.
type OSINTStatus string

const (
	OSINTSuccess     OSINTStatus = "SUCCESS"
	OSINTError       OSINTStatus = "ERROR"
	OSINTTimeout     OSINTStatus = "TIMEOUT"
	OSINTRateLimited OSINTStatus = "RATE_LIMITED"
)

// OSINTResult is one source's answer to one query.
type OSINTResult struct {
	Source          string                 `json:"source"`
	Category        OSINTCategory          `json:"category"`
	QueryType       string                 `json:"query_type"`
	QueryValue      string                 `json:"query_value"`
	Status          OSINTStatus            `json:"status"`
	Data            map[string]interface{} `json:"data,omitempty"`
	ConfidenceScore float64                `json:"confidence_score"`
	CachedAt        *time.Time             `json:"cached_at,omitempty"`
	ErrorMessage    string                 `json:"error_message,omitempty"`
}

// SecurityResult is the outcome of running one security module.
type SecurityResult struct {
	ModuleName string    `json:"module_name"`
	Findings   []Finding `json:"findings"`
	Score      float64   `json:"score"`
	Errors     []string  `json:"errors,omitempty"`
	ElapsedMs  int64     `json:"elapsed_ms"`
}

// DOMMetadata captures what the Scout extracted from one page.
type DOMMetadata struct {
	Forms            int      `json:"forms"`
	Scripts          int      `json:"scripts"`
	Links            int      `json:"links"`
	HasAdminPanel    bool     `json:"has_admin_panel"`
	IDORPatterns     []string `json:"idor_patterns,omitempty"`
}

// ScoutResult is one iteration's worth of navigation output.
type ScoutResult struct {
	PageURL          string            `json:"page_url"`
	Screenshots      []string          `json:"screenshots,omitempty"`
	ScreenshotLabels []string          `json:"screenshot_labels,omitempty"`
	DOMMetadata      DOMMetadata       `json:"dom_metadata"`
	NetworkHeaders   map[string]string `json:"network_headers,omitempty"`
	ExitReason       ExitReason        `json:"exit_reason"`
}

// TrustScoreResult is the final numeric verdict produced by the trust scorer.
type TrustScoreResult struct {
	FinalScore          int                `json:"final_score"`
	RiskLevel           string             `json:"risk_level"`
	SignalScores        map[string]float64 `json:"signal_scores"`
	AppliedOverrides    []string           `json:"applied_overrides,omitempty"`
	ConfidenceBreakdown map[string]float64 `json:"confidence_breakdown"`
}

// JudgeDecision is the Judge node's final output.
type JudgeDecision struct {
	TrustScoreResult TrustScoreResult `json:"trust_score_result"`
	Narrative        string           `json:"narrative"`
	Recommendations  []string         `json:"recommendations,omitempty"`
}

// GraphResult is the Graph/OSINT node's aggregate output.
type GraphResult struct {
	DomainIntel     map[string]interface{} `json:"domain_intel,omitempty"`
	IPGeolocation   map[string]interface{} `json:"ip_geolocation,omitempty"`
	MetaAnalysis    map[string]interface{} `json:"meta_analysis,omitempty"`
	Inconsistencies []string               `json:"inconsistencies,omitempty"`
	Verifications   []string               `json:"verifications,omitempty"`
}
