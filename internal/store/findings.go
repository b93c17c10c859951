package store

import (
	"context"
	"fmt"
	"time"
)

// AuditFinding is the persisted form of one consensus-tracked finding.
type AuditFinding struct {
	ID              string
	AuditID         string
	FindingKey      string
	CategoryID      string
	PatternType     string
	Severity        string
	Confidence      float64
	Description     string
	Evidence        string
	CWEID           string
	CVSSScore       *float64
	Recommendation  string
	ConsensusStatus string
	SourceCount     int
	CreatedAt       time.Time
}

// FindingRepository persists and retrieves AuditFinding rows.
type FindingRepository struct {
	db *DB
}

// NewFindingRepository returns a repository backed by db.
func NewFindingRepository(db *DB) *FindingRepository {
	return &FindingRepository{db: db}
}

func (r *FindingRepository) Create(ctx context.Context, f AuditFinding) error {
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO audit_findings (
			id, audit_id, finding_key, category_id, pattern_type, severity,
			confidence, description, evidence, cwe_id, cvss_score,
			recommendation, consensus_status, source_count, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.AuditID, f.FindingKey, f.CategoryID, f.PatternType, f.Severity,
		f.Confidence, f.Description, f.Evidence, f.CWEID, f.CVSSScore,
		f.Recommendation, f.ConsensusStatus, f.SourceCount, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: create finding: %w", err)
	}
	return nil
}

// UpsertByKey updates the finding for (audit_id, finding_key) if it exists,
// otherwise inserts it — the write path the consensus engine uses each time
// a finding's status or confidence changes.
func (r *FindingRepository) UpsertByKey(ctx context.Context, f AuditFinding) error {
	res, err := r.db.conn.ExecContext(ctx, `
		UPDATE audit_findings SET
			severity = ?, confidence = ?, description = ?, evidence = ?,
			consensus_status = ?, source_count = ?
		WHERE audit_id = ? AND finding_key = ?
	`, f.Severity, f.Confidence, f.Description, f.Evidence,
		f.ConsensusStatus, f.SourceCount, f.AuditID, f.FindingKey)
	if err != nil {
		return fmt.Errorf("store: upsert finding: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	return r.Create(ctx, f)
}

func (r *FindingRepository) ListByAudit(ctx context.Context, auditID string) ([]AuditFinding, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, audit_id, finding_key, category_id, pattern_type, severity,
		       confidence, description, evidence, cwe_id, cvss_score,
		       recommendation, consensus_status, source_count, created_at
		FROM audit_findings WHERE audit_id = ? ORDER BY created_at ASC
	`, auditID)
	if err != nil {
		return nil, fmt.Errorf("store: list findings: %w", err)
	}
	defer rows.Close()

	var out []AuditFinding
	for rows.Next() {
		var f AuditFinding
		if err := rows.Scan(
			&f.ID, &f.AuditID, &f.FindingKey, &f.CategoryID, &f.PatternType, &f.Severity,
			&f.Confidence, &f.Description, &f.Evidence, &f.CWEID, &f.CVSSScore,
			&f.Recommendation, &f.ConsensusStatus, &f.SourceCount, &f.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("store: scan finding: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Screenshot is the persisted record of one evidence artifact.
type Screenshot struct {
	ID        string
	AuditID   string
	Label     string
	Path      string
	SizeBytes int64
	CreatedAt time.Time
}

// ScreenshotRepository persists and retrieves Screenshot rows.
type ScreenshotRepository struct {
	db *DB
}

// NewScreenshotRepository returns a repository backed by db.
func NewScreenshotRepository(db *DB) *ScreenshotRepository {
	return &ScreenshotRepository{db: db}
}

func (r *ScreenshotRepository) Create(ctx context.Context, s Screenshot) error {
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO audit_screenshots (id, audit_id, label, path, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.ID, s.AuditID, s.Label, s.Path, s.SizeBytes, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: create screenshot: %w", err)
	}
	return nil
}

func (r *ScreenshotRepository) ListByAudit(ctx context.Context, auditID string) ([]Screenshot, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, audit_id, label, path, size_bytes, created_at
		FROM audit_screenshots WHERE audit_id = ? ORDER BY created_at ASC
	`, auditID)
	if err != nil {
		return nil, fmt.Errorf("store: list screenshots: %w", err)
	}
	defer rows.Close()

	var out []Screenshot
	for rows.Next() {
		var s Screenshot
		if err := rows.Scan(&s.ID, &s.AuditID, &s.Label, &s.Path, &s.SizeBytes, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan screenshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Event is the persisted form of one progress event, kept for audit replay
// and post-hoc debugging.
type Event struct {
	ID        string
	AuditID   string
	Seq       uint64
	EventType string
	Payload   string
	CreatedAt time.Time
}

// EventRepository persists and retrieves Event rows.
type EventRepository struct {
	db *DB
}

// NewEventRepository returns a repository backed by db.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, e Event) error {
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO audit_events (id, audit_id, seq, event_type, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.AuditID, e.Seq, e.EventType, e.Payload, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: create event: %w", err)
	}
	return nil
}

func (r *EventRepository) ListByAudit(ctx context.Context, auditID string) ([]Event, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, audit_id, seq, event_type, payload, created_at
		FROM audit_events WHERE audit_id = ? ORDER BY seq ASC
	`, auditID)
	if err != nil {
		return nil, fmt.Errorf("store: list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.AuditID, &e.Seq, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
