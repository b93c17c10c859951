package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a lookup finds no matching row.
var ErrNotFound = errors.New("store: not found")

// Audit is the persisted record of one audit run.
type Audit struct {
	ID                 string
	URL                string
	Tier               string
	VerdictMode        string
	Status             string
	SiteType           string
	SiteTypeConfidence float64
	TrustScore         *float64
	RiskLevel          string
	Narrative          string
	StartedAt          time.Time
	CompletedAt        *time.Time
	ElapsedSeconds     float64
	PagesScouted       int
	IterationsUsed     int
	NimCallsUsed       int
	Error              string
}

// AuditRepository persists and retrieves Audit rows.
type AuditRepository interface {
	Create(ctx context.Context, a Audit) error
	GetByID(ctx context.Context, id string) (Audit, error)
	GetByURL(ctx context.Context, url string, limit int) ([]Audit, error)
	Update(ctx context.Context, a Audit) error
	UpdateStatus(ctx context.Context, id, status, errMsg string) error
	ListRecent(ctx context.Context, limit, offset int, statusFilter string) ([]Audit, error)
}

// SQLiteAuditRepository implements AuditRepository over a DB.
type SQLiteAuditRepository struct {
	db *DB
}

// NewAuditRepository returns a repository backed by db.
func NewAuditRepository(db *DB) *SQLiteAuditRepository {
	return &SQLiteAuditRepository{db: db}
}

func (r *SQLiteAuditRepository) Create(ctx context.Context, a Audit) error {
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO audits (
			id, url, tier, verdict_mode, status, site_type, site_type_confidence,
			trust_score, risk_level, narrative, started_at, completed_at,
			elapsed_seconds, pages_scouted, iterations_used, nim_calls_used, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.URL, a.Tier, a.VerdictMode, a.Status, a.SiteType, a.SiteTypeConfidence,
		a.TrustScore, a.RiskLevel, a.Narrative, a.StartedAt, a.CompletedAt,
		a.ElapsedSeconds, a.PagesScouted, a.IterationsUsed, a.NimCallsUsed, a.Error)
	if err != nil {
		return fmt.Errorf("store: create audit: %w", err)
	}
	return nil
}

func (r *SQLiteAuditRepository) GetByID(ctx context.Context, id string) (Audit, error) {
	row := r.db.conn.QueryRowContext(ctx, `
		SELECT id, url, tier, verdict_mode, status, site_type, site_type_confidence,
		       trust_score, risk_level, narrative, started_at, completed_at,
		       elapsed_seconds, pages_scouted, iterations_used, nim_calls_used, error
		FROM audits WHERE id = ?
	`, id)
	a, err := scanAudit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Audit{}, ErrNotFound
	}
	if err != nil {
		return Audit{}, fmt.Errorf("store: get audit: %w", err)
	}
	return a, nil
}

func (r *SQLiteAuditRepository) GetByURL(ctx context.Context, url string, limit int) ([]Audit, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, url, tier, verdict_mode, status, site_type, site_type_confidence,
		       trust_score, risk_level, narrative, started_at, completed_at,
		       elapsed_seconds, pages_scouted, iterations_used, nim_calls_used, error
		FROM audits WHERE url = ? ORDER BY started_at DESC LIMIT ?
	`, url, limit)
	if err != nil {
		return nil, fmt.Errorf("store: get audits by url: %w", err)
	}
	return scanAudits(rows)
}

func (r *SQLiteAuditRepository) Update(ctx context.Context, a Audit) error {
	_, err := r.db.conn.ExecContext(ctx, `
		UPDATE audits SET
			status = ?, site_type = ?, site_type_confidence = ?, trust_score = ?,
			risk_level = ?, narrative = ?, completed_at = ?, elapsed_seconds = ?,
			pages_scouted = ?, iterations_used = ?, nim_calls_used = ?, error = ?
		WHERE id = ?
	`, a.Status, a.SiteType, a.SiteTypeConfidence, a.TrustScore, a.RiskLevel,
		a.Narrative, a.CompletedAt, a.ElapsedSeconds, a.PagesScouted,
		a.IterationsUsed, a.NimCallsUsed, a.Error, a.ID)
	if err != nil {
		return fmt.Errorf("store: update audit: %w", err)
	}
	return nil
}

// UpdateStatus performs a partial update of just the status (and, if
// non-empty, the error message) without loading associations. Idempotent:
// re-applying the same status is a no-op beyond the write itself.
func (r *SQLiteAuditRepository) UpdateStatus(ctx context.Context, id, status, errMsg string) error {
	var err error
	if errMsg != "" {
		_, err = r.db.conn.ExecContext(ctx, `UPDATE audits SET status = ?, error = ? WHERE id = ?`, status, errMsg, id)
	} else {
		_, err = r.db.conn.ExecContext(ctx, `UPDATE audits SET status = ? WHERE id = ?`, status, id)
	}
	if err != nil {
		return fmt.Errorf("store: update audit status: %w", err)
	}
	return nil
}

func (r *SQLiteAuditRepository) ListRecent(ctx context.Context, limit, offset int, statusFilter string) ([]Audit, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `
		SELECT id, url, tier, verdict_mode, status, site_type, site_type_confidence,
		       trust_score, risk_level, narrative, started_at, completed_at,
		       elapsed_seconds, pages_scouted, iterations_used, nim_calls_used, error
		FROM audits`
	args := []any{}
	if statusFilter != "" {
		query += ` WHERE status = ?`
		args = append(args, statusFilter)
	}
	query += ` ORDER BY started_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list recent audits: %w", err)
	}
	return scanAudits(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAudit(s rowScanner) (Audit, error) {
	var a Audit
	err := s.Scan(
		&a.ID, &a.URL, &a.Tier, &a.VerdictMode, &a.Status, &a.SiteType, &a.SiteTypeConfidence,
		&a.TrustScore, &a.RiskLevel, &a.Narrative, &a.StartedAt, &a.CompletedAt,
		&a.ElapsedSeconds, &a.PagesScouted, &a.IterationsUsed, &a.NimCallsUsed, &a.Error,
	)
	return a, err
}

func scanAudits(rows *sql.Rows) ([]Audit, error) {
	defer rows.Close()
	var out []Audit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan audit: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
