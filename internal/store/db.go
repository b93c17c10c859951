// Package store is the persistence layer: a pure-Go SQLite database holding
// audits, their findings, screenshots, timeline events, and a TTL'd OSINT
// response cache.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection opened with WAL journaling and foreign keys
// enabled, and owns schema migration on open.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if absent) the SQLite database at path, applies the
// pragmas the concurrent reader/writer workload needs, and ensures the
// schema exists.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA wal_autocheckpoint=1000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("store: apply %q: %w", pragma, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn exposes the raw *sql.DB for repositories in this package.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

const schema = `
CREATE TABLE IF NOT EXISTS audits (
	id                   TEXT PRIMARY KEY,
	url                  TEXT NOT NULL,
	tier                 TEXT NOT NULL,
	verdict_mode         TEXT NOT NULL,
	status               TEXT NOT NULL,
	site_type            TEXT,
	site_type_confidence REAL,
	trust_score          REAL,
	risk_level           TEXT,
	narrative            TEXT,
	started_at           DATETIME NOT NULL,
	completed_at         DATETIME,
	elapsed_seconds      REAL,
	pages_scouted        INTEGER NOT NULL DEFAULT 0,
	iterations_used      INTEGER NOT NULL DEFAULT 0,
	nim_calls_used       INTEGER NOT NULL DEFAULT 0,
	error                TEXT
);

CREATE INDEX IF NOT EXISTS idx_audits_started_at ON audits(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_audits_url ON audits(url);
CREATE INDEX IF NOT EXISTS idx_audits_status ON audits(status);
CREATE INDEX IF NOT EXISTS idx_audits_trust_score ON audits(trust_score);

CREATE TABLE IF NOT EXISTS audit_findings (
	id               TEXT PRIMARY KEY,
	audit_id         TEXT NOT NULL REFERENCES audits(id) ON DELETE CASCADE,
	finding_key      TEXT NOT NULL,
	category_id      TEXT NOT NULL,
	pattern_type     TEXT,
	severity         TEXT NOT NULL,
	confidence       REAL NOT NULL,
	description      TEXT NOT NULL,
	evidence         TEXT,
	cwe_id           TEXT,
	cvss_score       REAL,
	recommendation   TEXT,
	consensus_status TEXT NOT NULL,
	source_count     INTEGER NOT NULL DEFAULT 1,
	created_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_findings_audit_id ON audit_findings(audit_id);
CREATE INDEX IF NOT EXISTS idx_findings_key ON audit_findings(audit_id, finding_key);
CREATE INDEX IF NOT EXISTS idx_findings_pattern_type ON audit_findings(pattern_type);

CREATE TABLE IF NOT EXISTS audit_screenshots (
	id         TEXT PRIMARY KEY,
	audit_id   TEXT NOT NULL REFERENCES audits(id) ON DELETE CASCADE,
	label      TEXT NOT NULL,
	path       TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_screenshots_audit_id ON audit_screenshots(audit_id);

CREATE TABLE IF NOT EXISTS audit_events (
	id         TEXT PRIMARY KEY,
	audit_id   TEXT NOT NULL REFERENCES audits(id) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	event_type TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_audit_seq ON audit_events(audit_id, seq);

CREATE TABLE IF NOT EXISTS osint_cache (
	query_key   TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	category    TEXT NOT NULL,
	query_type  TEXT NOT NULL DEFAULT '',
	query_value TEXT NOT NULL,
	data        TEXT NOT NULL,
	cached_at   DATETIME NOT NULL,
	expires_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_osint_cache_expires ON osint_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_osint_cache_source ON osint_cache(source);
CREATE INDEX IF NOT EXISTS idx_osint_cache_category ON osint_cache(category);
`

func (d *DB) migrate(ctx context.Context) error {
	if _, err := d.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	return nil
}
