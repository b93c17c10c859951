// Package osint coordinates parallel queries against heterogeneous open-source
// intelligence providers (DNS, WHOIS, SSL, threat-intel, reputation), with a
// per-source circuit breaker, a per-source sliding-window rate limiter, and
// alternative-source fallback when a query is exhausted.
package osint

import (
	"context"

	"github.com/veritas-audit/veritas/internal/auditstate"
)

// Source is the contract one OSINT provider implements. Implementations
// self-describe their rate budget and category so the orchestrator can
// enforce admission without provider-specific code.
type Source interface {
	Name() string
	Category() auditstate.OSINTCategory
	RequiresAPIKey() bool
	RateLimitRPM() int // 0 means unbounded
	RateLimitRPH() int // 0 means unbounded
	// Priority orders alternative-source selection within a category; lower
	// value is tried first.
	Priority() int
	Query(ctx context.Context, queryType, queryValue string) (*auditstate.OSINTResult, error)
}

// QueryType is the closed set of lookups a source may be asked to perform.
type QueryType string

const (
	QueryDomain QueryType = "domain"
	QueryIP     QueryType = "ip"
	QueryURL    QueryType = "url"
)
