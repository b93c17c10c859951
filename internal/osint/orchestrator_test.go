package osint

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritas-audit/veritas/internal/auditstate"
)

// fakeSource is a test double whose Query always fails or always succeeds,
// recording how many times it was invoked.
type fakeSource struct {
	name     string
	cat      auditstate.OSINTCategory
	priority int
	fail     bool
	calls    int
}

func (f *fakeSource) Name() string                      { return f.name }
func (f *fakeSource) Category() auditstate.OSINTCategory { return f.cat }
func (f *fakeSource) RequiresAPIKey() bool               { return false }
func (f *fakeSource) RateLimitRPM() int                  { return 0 }
func (f *fakeSource) RateLimitRPH() int                  { return 0 }
func (f *fakeSource) Priority() int                      { return f.priority }

func (f *fakeSource) Query(ctx context.Context, queryType, queryValue string) (*auditstate.OSINTResult, error) {
	f.calls++
	if f.fail {
		return &auditstate.OSINTResult{Source: f.name, Category: f.cat, Status: auditstate.OSINTError}, nil
	}
	return &auditstate.OSINTResult{Source: f.name, Category: f.cat, Status: auditstate.OSINTSuccess, Data: map[string]interface{}{"ok": true}}, nil
}

// TestOrchestrator_FallbackOnOpenCircuit is scenario S5: tripping source A's
// circuit causes B to answer instead.
func TestOrchestrator_FallbackOnOpenCircuit(t *testing.T) {
	o := New()
	a := &fakeSource{name: "a", cat: auditstate.CategoryThreatIntel, priority: 1, fail: true}
	b := &fakeSource{name: "b", cat: auditstate.CategoryThreatIntel, priority: 2, fail: false}
	o.Register(a)
	o.Register(b)

	rsA := o.get("a")
	now := time.Now()
	for i := 0; i < DefaultFailureThreshold; i++ {
		rsA.breaker.RecordFailure(now)
	}
	require.True(t, rsA.breaker.Open(now))

	result := o.QueryWithRetry(context.Background(), "a", "domain", "example.com")
	require.NotNil(t, result)
	assert.Equal(t, "b", result.Source)
	assert.Equal(t, auditstate.OSINTSuccess, result.Status)
	assert.Equal(t, 0, a.calls, "circuit-open source must not be contacted")
}

func TestOrchestrator_QueryAll_OnlySuccess(t *testing.T) {
	o := New()
	ok := &fakeSource{name: "ok", cat: auditstate.CategoryDNS, priority: 1, fail: false}
	bad := &fakeSource{name: "bad", cat: auditstate.CategoryDNS, priority: 2, fail: true}
	o.Register(ok)
	o.Register(bad)

	results := o.QueryAll(context.Background(), auditstate.CategoryDNS, "domain", "example.com", 3)
	assert.Len(t, results, 1)
	assert.Contains(t, results, "ok")
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	b := NewCircuitBreaker(60*time.Second, 5)
	now := time.Now()
	for i := 0; i < 4; i++ {
		b.RecordFailure(now)
	}
	assert.False(t, b.Open(now))
	b.RecordFailure(now)
	assert.True(t, b.Open(now))
}

func TestCircuitBreaker_AgesOut(t *testing.T) {
	b := NewCircuitBreaker(60*time.Second, 5)
	base := time.Now()
	for i := 0; i < 5; i++ {
		b.RecordFailure(base)
	}
	assert.True(t, b.Open(base))
	assert.False(t, b.Open(base.Add(61*time.Second)), "failures older than the window must age out")
}

func TestRateLimiter_AdmitsWithinBudget(t *testing.T) {
	r := NewRateLimiter(2, 100)
	now := time.Now()
	assert.True(t, r.Allow(now))
	r.RecordSuccess(now)
	assert.True(t, r.Allow(now))
	r.RecordSuccess(now)
	assert.False(t, r.Allow(now), "third request within the same minute must be denied")
}

func TestTTL_MatchesTable(t *testing.T) {
	assert.Equal(t, 24*time.Hour, TTL("dns"))
	assert.Equal(t, 7*24*time.Hour, TTL("whois"))
	assert.Equal(t, 30*24*time.Hour, TTL("ssl"))
	assert.Equal(t, 12*time.Hour, TTL("abuseipdb"))
	assert.Equal(t, 24*time.Hour, TTL("urlvoid"))
	assert.Equal(t, 24*time.Hour, TTL("unknown-source"))
}
