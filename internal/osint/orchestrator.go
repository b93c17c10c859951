package osint

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/veritas-audit/veritas/internal/auditstate"
	"github.com/veritas-audit/veritas/internal/metrics"
)

// DefaultMaxParallel bounds concurrent fan-out in QueryAll.
const DefaultMaxParallel = 3

// DefaultPerSourceTimeout bounds one attempt against a source.
const DefaultPerSourceTimeout = 10 * time.Second

// registeredSource pairs a Source with its private policy objects so the
// orchestrator never shares breaker/limiter state across sources.
type registeredSource struct {
	source  Source
	breaker *CircuitBreaker
	limiter *RateLimiter
	enabled bool
}

// Orchestrator fans queries out to registered sources, applying a circuit
// breaker and rate limiter per source and falling back to alternative
// sources in the same category when the primary is exhausted.
type Orchestrator struct {
	mu      sync.RWMutex
	sources map[string]*registeredSource

	maxRetries       int
	perSourceTimeout time.Duration
}

// New returns an empty Orchestrator; call Register for each available
// source before querying.
func New() *Orchestrator {
	return &Orchestrator{
		sources:          make(map[string]*registeredSource),
		maxRetries:       2,
		perSourceTimeout: DefaultPerSourceTimeout,
	}
}

// Register adds source, auto-enabled, with fresh breaker/limiter state.
func (o *Orchestrator) Register(s Source) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sources[s.Name()] = &registeredSource{
		source:  s,
		breaker: NewCircuitBreaker(DefaultWindow, DefaultFailureThreshold),
		limiter: NewRateLimiter(s.RateLimitRPM(), s.RateLimitRPH()),
		enabled: true,
	}
}

// Disable excludes a source from future queries without losing its
// recorded breaker/limiter state (used when a source's circuit trips
// permanently for the remainder of an audit).
func (o *Orchestrator) Disable(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if rs, ok := o.sources[name]; ok {
		rs.enabled = false
	}
}

func (o *Orchestrator) get(name string) *registeredSource {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.sources[name]
}

// sourcesInCategory returns enabled sources in a category ordered by
// ascending Priority (1 first).
func (o *Orchestrator) sourcesInCategory(cat auditstate.OSINTCategory) []*registeredSource {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []*registeredSource
	for _, rs := range o.sources {
		if rs.enabled && rs.source.Category() == cat {
			out = append(out, rs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].source.Priority() < out[j].source.Priority() })
	return out
}

// QueryWithRetry resolves name, checks its breaker and rate limiter, then
// invokes it up to maxRetries+1 times with a per-attempt timeout. On
// exhaustion it falls back to up to two alternative sources in the same
// category with a reduced retry budget. Returns nil if no attempt (primary
// or alternative) succeeds.
func (o *Orchestrator) QueryWithRetry(ctx context.Context, name, queryType, queryValue string) *auditstate.OSINTResult {
	rs := o.get(name)
	if rs == nil || !rs.enabled {
		return nil
	}
	if result := o.attempt(ctx, rs, queryType, queryValue, o.maxRetries); result != nil {
		return result
	}
	return o.tryAlternatives(ctx, rs.source.Category(), name, queryType, queryValue)
}

// attempt runs up to retries+1 tries against rs, honoring the circuit
// breaker and rate limiter before every try.
func (o *Orchestrator) attempt(ctx context.Context, rs *registeredSource, queryType, queryValue string, retries int) *auditstate.OSINTResult {
	for i := 0; i <= retries; i++ {
		now := time.Now()
		if rs.breaker.Open(now) {
			log.Debug().Str("source", rs.source.Name()).Msg("osint: circuit open, skipping")
			metrics.Get().RecordCircuitOpen(rs.source.Name())
			return nil
		}
		if !rs.limiter.Allow(now) {
			log.Debug().Str("source", rs.source.Name()).Msg("osint: rate limit exceeded, skipping")
			return nil
		}

		attemptCtx, cancel := context.WithTimeout(ctx, o.perSourceTimeout)
		result, err := rs.source.Query(attemptCtx, queryType, queryValue)
		cancel()

		if err != nil || result == nil || result.Status != auditstate.OSINTSuccess {
			if i == retries {
				rs.breaker.RecordFailure(time.Now())
			}
			continue
		}

		rs.limiter.RecordSuccess(time.Now())
		return result
	}
	return nil
}

// tryAlternatives consults up to two other sources in cat, in priority
// order, each with a reduced (single) retry budget, returning the first
// SUCCESS.
func (o *Orchestrator) tryAlternatives(ctx context.Context, cat auditstate.OSINTCategory, exclude, queryType, queryValue string) *auditstate.OSINTResult {
	tried := 0
	for _, rs := range o.sourcesInCategory(cat) {
		if rs.source.Name() == exclude {
			continue
		}
		if tried >= 2 {
			break
		}
		tried++
		if result := o.attempt(ctx, rs, queryType, queryValue, 1); result != nil {
			return result
		}
	}
	return nil
}

// QueryAll dispatches a query against every enabled source in cat
// concurrently, bounded by maxParallel (0 uses DefaultMaxParallel), and
// returns a map of source name to result containing only SUCCESS entries.
func (o *Orchestrator) QueryAll(ctx context.Context, cat auditstate.OSINTCategory, queryType, queryValue string, maxParallel int) map[string]*auditstate.OSINTResult {
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}
	sources := o.sourcesInCategory(cat)
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
			result := o.QueryWithRetry(ctx, rs.source.Name(), queryType, queryValue)
			if result != nil && result.Status == auditstate.OSINTSuccess {
				mu.Lock()
				results[result.Source] = result
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return results
}

// Names returns every registered source name, for diagnostics.
func (o *Orchestrator) Names() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]string, 0, len(o.sources))
	for name := range o.sources {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ErrNoSuchSource is returned by administrative lookups against an unknown
// source name.
var ErrNoSuchSource = fmt.Errorf("osint: no such source")
