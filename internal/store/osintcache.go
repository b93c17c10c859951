package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CachedOSINTResult is a stored OSINT lookup, keyed by a hash of
// (source, category, query_type, query_value) so identical queries across
// audits share one cache row.
type CachedOSINTResult struct {
	QueryKey   string
	Source     string
	Category   string
	QueryType  string
	QueryValue string
	Data       string
	CachedAt   time.Time
	ExpiresAt  time.Time
}

// OSINTCacheKey derives the stable lookup key for a source/category/query-
// type/value quadruple, lowercase-normalizing every component first so
// callers that differ only in case collide onto the same row.
func OSINTCacheKey(source, category, queryType, queryValue string) string {
	norm := strings.ToLower(source) + "|" + strings.ToLower(category) + "|" +
		strings.ToLower(queryType) + "|" + strings.ToLower(queryValue)
	h := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(h[:])
}

// OSINTCacheRepository persists and retrieves cached OSINT responses.
type OSINTCacheRepository struct {
	db *DB
}

// NewOSINTCacheRepository returns a repository backed by db.
func NewOSINTCacheRepository(db *DB) *OSINTCacheRepository {
	return &OSINTCacheRepository{db: db}
}

// Get returns the cached row for key if present and not expired as of now.
func (r *OSINTCacheRepository) Get(ctx context.Context, key string, now time.Time) (CachedOSINTResult, bool, error) {
	row := r.db.conn.QueryRowContext(ctx, `
		SELECT query_key, source, category, query_type, query_value, data, cached_at, expires_at
		FROM osint_cache WHERE query_key = ?
	`, key)
	var c CachedOSINTResult
	err := row.Scan(&c.QueryKey, &c.Source, &c.Category, &c.QueryType, &c.QueryValue, &c.Data, &c.CachedAt, &c.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CachedOSINTResult{}, false, nil
	}
	if err != nil {
		return CachedOSINTResult{}, false, fmt.Errorf("store: get osint cache: %w", err)
	}
	if now.After(c.ExpiresAt) {
		return CachedOSINTResult{}, false, nil
	}
	return c, true, nil
}

// Upsert writes or replaces the cached row for c.QueryKey.
func (r *OSINTCacheRepository) Upsert(ctx context.Context, c CachedOSINTResult) error {
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO osint_cache (query_key, source, category, query_type, query_value, data, cached_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(query_key) DO UPDATE SET
			data = excluded.data, cached_at = excluded.cached_at, expires_at = excluded.expires_at
	`, c.QueryKey, c.Source, c.Category, c.QueryType, c.QueryValue, c.Data, c.CachedAt, c.ExpiresAt)
	if err != nil {
		return fmt.Errorf("store: upsert osint cache: %w", err)
	}
	return nil
}

// PurgeExpired deletes all rows whose expires_at has passed as of now, and
// returns the number removed.
func (r *OSINTCacheRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.conn.ExecContext(ctx, `DELETE FROM osint_cache WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("store: purge osint cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
