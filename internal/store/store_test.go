package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "veritas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAuditRepository_CreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewAuditRepository(db)
	ctx := context.Background()

	a := Audit{
		ID:          "vrts_abc12345",
		URL:         "https://example.com",
		Tier:        "standard_audit",
		VerdictMode: "simple",
		Status:      "running",
		StartedAt:   time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, repo.Create(ctx, a))

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.URL, got.URL)
	assert.Equal(t, "running", got.Status)
}

func TestAuditRepository_GetByID_NotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewAuditRepository(db)

	_, err := repo.GetByID(context.Background(), "vrts_missing1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuditRepository_UpdateStatus(t *testing.T) {
	db := openTestDB(t)
	repo := NewAuditRepository(db)
	ctx := context.Background()

	a := Audit{ID: "vrts_abc12345", URL: "https://example.com", Tier: "quick_scan",
		VerdictMode: "simple", Status: "queued", StartedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.UpdateStatus(ctx, a.ID, "completed", ""))

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
}

func TestFindingRepository_UpsertByKey(t *testing.T) {
	db := openTestDB(t)
	audits := NewAuditRepository(db)
	findings := NewFindingRepository(db)
	ctx := context.Background()

	require.NoError(t, audits.Create(ctx, Audit{
		ID: "vrts_abc12345", URL: "https://example.com", Tier: "quick_scan",
		VerdictMode: "simple", Status: "running", StartedAt: time.Now(),
	}))

	f := AuditFinding{
		ID: "vrts_find0001", AuditID: "vrts_abc12345", FindingKey: "xss:homepage",
		CategoryID: "xss", Severity: "HIGH", Confidence: 0.6,
		Description: "possible xss", ConsensusStatus: "PENDING", SourceCount: 1,
		CreatedAt: time.Now(),
	}
	require.NoError(t, findings.UpsertByKey(ctx, f))

	f.Confidence = 0.9
	f.ConsensusStatus = "CONFIRMED"
	f.SourceCount = 2
	require.NoError(t, findings.UpsertByKey(ctx, f))

	all, err := findings.ListByAudit(ctx, "vrts_abc12345")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "CONFIRMED", all[0].ConsensusStatus)
	assert.Equal(t, 2, all[0].SourceCount)
}

func TestOSINTCacheRepository_GetExpired(t *testing.T) {
	db := openTestDB(t)
	repo := NewOSINTCacheRepository(db)
	ctx := context.Background()

	key := OSINTCacheKey("dns", "DNS", "domain", "example.com")
	now := time.Now().UTC()
	require.NoError(t, repo.Upsert(ctx, CachedOSINTResult{
		QueryKey: key, Source: "dns", Category: "DNS", QueryType: "domain", QueryValue: "example.com",
		Data: `{"a":"1.2.3.4"}`, CachedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}))

	_, ok, err := repo.Get(ctx, key, now)
	require.NoError(t, err)
	assert.False(t, ok, "expired row should not be returned")
}

func TestOSINTCacheRepository_GetFresh(t *testing.T) {
	db := openTestDB(t)
	repo := NewOSINTCacheRepository(db)
	ctx := context.Background()

	key := OSINTCacheKey("whois", "WHOIS", "domain", "example.com")
	now := time.Now().UTC()
	require.NoError(t, repo.Upsert(ctx, CachedOSINTResult{
		QueryKey: key, Source: "whois", Category: "WHOIS", QueryType: "domain", QueryValue: "example.com",
		Data: `{"registrar":"example"}`, CachedAt: now, ExpiresAt: now.Add(time.Hour),
	}))

	got, ok, err := repo.Get(ctx, key, now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "whois", got.Source)
	assert.Contains(t, got.Data, "registrar")
}

func TestOSINTCacheKey_DistinguishesQueryType(t *testing.T) {
	domain := OSINTCacheKey("abuseipdb", "THREAT_INTEL", "domain", "example.com")
	ip := OSINTCacheKey("abuseipdb", "THREAT_INTEL", "ip", "example.com")
	assert.NotEqual(t, domain, ip, "differing query_type must not collide onto the same cache row")
}

func TestOSINTCacheKey_LowercaseNormalized(t *testing.T) {
	lower := OSINTCacheKey("dns", "dns", "domain", "example.com")
	mixed := OSINTCacheKey("DNS", "DNS", "Domain", "Example.COM")
	assert.Equal(t, lower, mixed, "key derivation must lowercase-normalize every component")
}

func TestOSINTCacheRepository_PurgeExpired(t *testing.T) {
	db := openTestDB(t)
	repo := NewOSINTCacheRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.Upsert(ctx, CachedOSINTResult{
		QueryKey: "k1", Source: "dns", Category: "DNS", QueryValue: "a",
		Data: "{}", CachedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}))
	require.NoError(t, repo.Upsert(ctx, CachedOSINTResult{
		QueryKey: "k2", Source: "dns", Category: "DNS", QueryValue: "b",
		Data: "{}", CachedAt: now, ExpiresAt: now.Add(time.Hour),
	}))

	n, err := repo.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
