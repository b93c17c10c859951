// Package progress implements a totally ordered, typed event stream from an
// orchestrator to an external consumer, deliverable either over an
// in-process queue or across a subprocess boundary via a line-delimited
// stdout protocol.
package progress

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType is the closed set of progress event kinds.
type EventType string

const (
	EventProgress      EventType = "progress"
	EventPhaseStart    EventType = "phase_start"
	EventPhaseComplete EventType = "phase_complete"
	EventPhaseError    EventType = "phase_error"
	EventLogEntry      EventType = "log_entry"
	EventScreenshot    EventType = "screenshot"
	EventFinding       EventType = "finding"
	EventFindingsBatch EventType = "findings_batch"
	EventSecurityResult EventType = "security_result"
	EventSiteType      EventType = "site_type"
	EventStatsUpdate   EventType = "stats_update"
	EventAuditResult   EventType = "audit_result"
	EventAuditComplete EventType = "audit_complete"
	EventAuditError    EventType = "audit_error"
	EventHeartbeat     EventType = "heartbeat"
	EventHighlight     EventType = "highlight"
)

// Priority orders events for the rate limiter and discard policy. Lower
// numeric value means higher priority; CRITICAL (0) must never be dropped.
type Priority int

const (
	PriorityCritical Priority = 0
	PriorityHigh     Priority = 1
	PriorityMedium   Priority = 2
	PriorityLow      Priority = 3
)

// Event is one entry in the totally ordered per-consumer stream.
type Event struct {
	Type      EventType      `json:"type"`
	Seq       uint64         `json:"seq"`
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Priority  Priority       `json:"priority"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// newEventID returns a time-sortable ULID, giving every emitted event a
// stable external identity distinct from its per-consumer Seq.
func newEventID() string {
	return ulid.Make().String()
}

// New constructs an Event with a fresh id and timestamp; Seq is assigned by
// the Bus at emit time.
func New(t EventType, priority Priority, payload map[string]any) Event {
	return Event{
		Type:      t,
		ID:        newEventID(),
		Timestamp: time.Now(),
		Priority:  priority,
		Payload:   payload,
	}
}
