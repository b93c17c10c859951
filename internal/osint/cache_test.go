package osint

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritas-audit/veritas/internal/auditstate"
	"github.com/veritas-audit/veritas/internal/store"
)

func openTestCache(t *testing.T) *store.OSINTCacheRepository {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "veritas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.NewOSINTCacheRepository(db)
}

// TestCachedOrchestrator_QueryAll_HitsCacheOnSecondCall is testable
// property #7: two lookups within TTL return the same payload without a
// second call to the underlying source.
func TestCachedOrchestrator_QueryAll_HitsCacheOnSecondCall(t *testing.T) {
	inner := New()
	src := &fakeSource{name: "dns", cat: auditstate.CategoryDNS, priority: 1, fail: false}
	inner.Register(src)
	cached := NewCached(inner, openTestCache(t))

	first := cached.QueryAll(context.Background(), auditstate.CategoryDNS, "domain", "example.com", 3)
	require.Contains(t, first, "dns")
	assert.Equal(t, 1, src.calls)

	second := cached.QueryAll(context.Background(), auditstate.CategoryDNS, "domain", "example.com", 3)
	require.Contains(t, second, "dns")
	assert.Equal(t, 1, src.calls, "second query within TTL must be served from cache, not the source")
}

// TestCachedOrchestrator_QueryAll_DistinctQueryType is property #7's
// keying guarantee: a differing query_type must not be served from another
// query_type's cache row.
func TestCachedOrchestrator_QueryAll_DistinctQueryType(t *testing.T) {
	inner := New()
	src := &fakeSource{name: "dns", cat: auditstate.CategoryDNS, priority: 1, fail: false}
	inner.Register(src)
	cached := NewCached(inner, openTestCache(t))

	_, err := cached.QueryWithCache(context.Background(), "dns", string(auditstate.CategoryDNS), "domain", "example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	_, err = cached.QueryWithCache(context.Background(), "dns", string(auditstate.CategoryDNS), "ip", "example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls, "a different query_type must miss the cache and re-query the source")
}
