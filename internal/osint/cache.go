package osint

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/veritas-audit/veritas/internal/auditstate"
	"github.com/veritas-audit/veritas/internal/store"
)

// TTL returns the cache lifetime for a source.
func TTL(source string) time.Duration {
	switch source {
	case "dns":
		return 24 * time.Hour
	case "whois":
		return 7 * 24 * time.Hour
	case "ssl":
		return 30 * 24 * time.Hour
	case "abuseipdb":
		return 12 * time.Hour
	case "urlvoid":
		return 24 * time.Hour
	case "social":
		return 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// CachedOrchestrator wraps an Orchestrator with a TTL-differentiated
// read-through cache backed by store.OSINTCacheRepository, so identical
// queries across audits share one cache row within TTL.
type CachedOrchestrator struct {
	*Orchestrator
	cache *store.OSINTCacheRepository
}

// NewCached wraps inner with cache, a persistence-backed OSINT response
// cache.
func NewCached(inner *Orchestrator, cache *store.OSINTCacheRepository) *CachedOrchestrator {
	return &CachedOrchestrator{Orchestrator: inner, cache: cache}
}

// QueryWithCache checks the cache before delegating to QueryWithRetry, and
// writes a fresh successful result back with the source's TTL.
func (c *CachedOrchestrator) QueryWithCache(ctx context.Context, name, category, queryType, queryValue string) (*auditstate.OSINTResult, error) {
	key := store.OSINTCacheKey(name, category, queryType, queryValue)
	now := time.Now().UTC()

	if cached, ok, err := c.cache.Get(ctx, key, now); err == nil && ok {
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(cached.Data), &data); err == nil {
			cachedAt := cached.CachedAt
			return &auditstate.OSINTResult{
				Source:          name,
				Category:        auditstate.OSINTCategory(category),
				QueryType:       queryType,
				QueryValue:      queryValue,
				Status:          auditstate.OSINTSuccess,
				Data:            data,
				ConfidenceScore: 1.0,
				CachedAt:        &cachedAt,
			}, nil
		}
	}

	result := c.Orchestrator.QueryWithRetry(ctx, name, queryType, queryValue)
	if result == nil {
		return nil, nil
	}
	if result.Status == auditstate.OSINTSuccess {
		payload, err := json.Marshal(result.Data)
		if err != nil {
			return result, fmt.Errorf("osint: marshal cache payload: %w", err)
		}
		if err := c.cache.Upsert(ctx, store.CachedOSINTResult{
			QueryKey:   key,
			Source:     name,
			Category:   category,
			QueryType:  queryType,
			QueryValue: queryValue,
			Data:       string(payload),
			CachedAt:   now,
			ExpiresAt:  now.Add(TTL(name)),
		}); err != nil {
			return result, fmt.Errorf("osint: write cache: %w", err)
		}
	}
	return result, nil
}

// QueryAll dispatches a query against every enabled source in cat
// concurrently, bounded by maxParallel (0 uses DefaultMaxParallel), routing
// each source through QueryWithCache so a repeated query within a source's
// TTL is served from the persistence-backed cache instead of re-querying.
// This shadows the embedded Orchestrator's uncached QueryAll.
func (c *CachedOrchestrator) QueryAll(ctx context.Context, cat auditstate.OSINTCategory, queryType, queryValue string, maxParallel int) map[string]*auditstate.OSINTResult {
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}
	sources := c.sourcesInCategory(cat)
	if len(sources) == 0 {
		return map[string]*auditstate.OSINTResult{}
	}

	sem := semaphore.NewWeighted(int64(maxParallel))
	results := make(map[string]*auditstate.OSINTResult)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, rs := range sources {
		rs := rs
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			result, err := c.QueryWithCache(ctx, rs.source.Name(), string(cat), queryType, queryValue)
			if err != nil {
				log.Debug().Err(err).Str("source", rs.source.Name()).Msg("osint: cached query failed")
				return
			}
			if result != nil && result.Status == auditstate.OSINTSuccess {
				mu.Lock()
				results[rs.source.Name()] = result
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return results
}
