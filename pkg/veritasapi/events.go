// Package veritasapi defines the host-facing wire vocabulary a Veritas
// audit emits: the event envelope and payload shapes a caller outside this
// module (a dashboard, a CLI, a websocket client) decodes.
package veritasapi

import "time"

// EventType mirrors internal/progress's closed event-type set, re-exported
// as the wire vocabulary's type tag.
type EventType string

const (
	EventPhaseStart     EventType = "phase_start"
	EventPhaseComplete  EventType = "phase_complete"
	EventPhaseError     EventType = "phase_error"
	EventLogEntry       EventType = "log_entry"
	EventScreenshot     EventType = "screenshot"
	EventSiteType       EventType = "site_type"
	EventSecurityResult EventType = "security_result"
	EventFinding        EventType = "finding"
	EventStatsUpdate    EventType = "stats_update"
	EventAuditResult    EventType = "audit_result"
	EventAuditComplete  EventType = "audit_complete"
	EventAuditError     EventType = "audit_error"
)

// Event is one entry in the host-facing stream for one audit.
type Event struct {
	AuditID   string         `json:"audit_id"`
	Type      EventType      `json:"type"`
	Seq       uint64         `json:"seq"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// PhaseStartPayload is the payload shape for a phase_start event.
type PhaseStartPayload struct {
	Node   string `json:"node"`
	Target string `json:"target,omitempty"`
}

// PhaseCompletePayload is the payload shape for a phase_complete event.
type PhaseCompletePayload struct {
	Node    string         `json:"node"`
	Summary map[string]any `json:"summary,omitempty"`
}

// PhaseErrorPayload is the payload shape for a phase_error event.
type PhaseErrorPayload struct {
	Node  string `json:"node"`
	Error string `json:"error"`
}

// ScreenshotPayload is the payload shape for a screenshot event.
type ScreenshotPayload struct {
	Path  string `json:"path"`
	Label string `json:"label,omitempty"`
}

// FindingPayload is the payload shape for a finding event.
type FindingPayload struct {
	CategoryID  string `json:"category_id"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// SiteTypePayload is the payload shape for a site_type event.
type SiteTypePayload struct {
	SiteType   string  `json:"site_type"`
	Confidence float64 `json:"confidence"`
}

// AuditResultPayload is the payload shape for the terminal audit_result
// event, carrying the final normalized record.
type AuditResultPayload struct {
	FinalScore      int      `json:"final_score"`
	RiskLevel       string   `json:"risk_level"`
	Narrative       string   `json:"narrative"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// AuditCompletePayload is the payload shape for the audit_complete
// terminator.
type AuditCompletePayload struct {
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// AuditErrorPayload is the payload shape for the audit_error terminator.
type AuditErrorPayload struct {
	Error  string `json:"error,omitempty"`
	Reason string `json:"reason,omitempty"`
}
