package osint

import "context"

// RegisterBuiltins registers the always-available sources (DNS, WHOIS, SSL)
// and the credential-conditional sources (AbuseIPDB, URLVoid) when their
// API keys are non-empty.
func RegisterBuiltins(ctx context.Context, o *Orchestrator, abuseIPDBKey, urlVoidKey string) {
	dns := NewDNSSource()
	dns.StartRefresh(ctx, 0)
	o.Register(dns)
	o.Register(NewWHOISSource())
	o.Register(NewSSLSource())

	if abuseIPDBKey != "" {
		o.Register(NewAbuseIPDBSource(abuseIPDBKey))
	}
	if urlVoidKey != "" {
		o.Register(NewURLVoidSource(urlVoidKey))
	}
}
