package osint

import (
	"context"
	"net"
	"time"

	"github.com/rs/dnscache"

	"github.com/veritas-audit/veritas/internal/auditstate"
)

// DNSSource resolves A/AAAA, MX, NS, and TXT records for a domain. It is
// always registered — no credential is required.
type DNSSource struct {
	resolver *dnscache.Resolver
}

// NewDNSSource returns a source backed by a caching resolver, refreshed on
// the interval the caller drives (typically once per orchestrator lifetime).
func NewDNSSource() *DNSSource {
	return &DNSSource{resolver: &dnscache.Resolver{}}
}

// StartRefresh runs the resolver's background cache refresh until ctx is
// cancelled, at the given interval.
func (s *DNSSource) StartRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.resolver.Refresh(true)
			}
		}
	}()
}

func (s *DNSSource) Name() string                         { return "dns" }
func (s *DNSSource) Category() auditstate.OSINTCategory    { return auditstate.CategoryDNS }
func (s *DNSSource) RequiresAPIKey() bool                  { return false }
func (s *DNSSource) RateLimitRPM() int                     { return 0 }
func (s *DNSSource) RateLimitRPH() int                     { return 0 }
func (s *DNSSource) Priority() int                         { return 1 }

func (s *DNSSource) Query(ctx context.Context, queryType, queryValue string) (*auditstate.OSINTResult, error) {
	data := map[string]interface{}{}

	addrs, err := s.resolver.LookupHost(ctx, queryValue)
	if err != nil {
		return &auditstate.OSINTResult{
			Source: s.Name(), Category: s.Category(), QueryType: queryType, QueryValue: queryValue,
			Status: auditstate.OSINTError, ErrorMessage: err.Error(),
		}, nil
	}
	data["addresses"] = addrs

	if mxs, err := net.DefaultResolver.LookupMX(ctx, queryValue); err == nil {
		hosts := make([]string, 0, len(mxs))
		for _, mx := range mxs {
			hosts = append(hosts, mx.Host)
		}
		data["mx"] = hosts
	}
	if ns, err := net.DefaultResolver.LookupNS(ctx, queryValue); err == nil {
		hosts := make([]string, 0, len(ns))
		for _, n := range ns {
			hosts = append(hosts, n.Host)
		}
		data["ns"] = hosts
	}
	if txt, err := net.DefaultResolver.LookupTXT(ctx, queryValue); err == nil {
		data["txt"] = txt
	}

	return &auditstate.OSINTResult{
		Source: s.Name(), Category: s.Category(), QueryType: queryType, QueryValue: queryValue,
		Status: auditstate.OSINTSuccess, Data: data, ConfidenceScore: 0.9,
	}, nil
}
