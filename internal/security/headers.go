package security

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veritas-audit/veritas/internal/auditstate"
)

// SecurityHeadersModule checks for the presence of standard hardening
// response headers (CSP, HSTS, X-Frame-Options, X-Content-Type-Options,
// Referrer-Policy) and penalizes the composite score per missing header.
type SecurityHeadersModule struct{}

// NewSecurityHeadersModule returns the FAST-tier header checker.
func NewSecurityHeadersModule() *SecurityHeadersModule { return &SecurityHeadersModule{} }

func (m *SecurityHeadersModule) CategoryID() string { return "security_headers" }
func (m *SecurityHeadersModule) Tier() Tier         { return TierFast }
func (m *SecurityHeadersModule) DefaultTimeout() time.Duration { return TierFast.DefaultTimeout() }

var requiredHeaders = []struct {
	name        string
	severity    auditstate.Severity
	description string
}{
	{"content-security-policy", auditstate.SeverityMedium, "Missing Content-Security-Policy header"},
	{"strict-transport-security", auditstate.SeverityHigh, "Missing Strict-Transport-Security (HSTS) header"},
	{"x-frame-options", auditstate.SeverityMedium, "Missing X-Frame-Options header (clickjacking risk)"},
	{"x-content-type-options", auditstate.SeverityLow, "Missing X-Content-Type-Options header"},
	{"referrer-policy", auditstate.SeverityLow, "Missing Referrer-Policy header"},
}

func (m *SecurityHeadersModule) Run(ctx context.Context, input ModuleInput) (*auditstate.SecurityResult, error) {
	present := make(map[string]bool, len(input.NetworkHeaders))
	for k := range input.NetworkHeaders {
		present[strings.ToLower(k)] = true
	}

	var findings []auditstate.Finding
	missing := 0
	for _, h := range requiredHeaders {
		if present[h.name] {
			continue
		}
		missing++
		findings = append(findings, auditstate.Finding{
			ID:          uuid.NewString(),
			CategoryID:  m.CategoryID(),
			PatternType: h.name,
			Severity:    h.severity,
			Confidence:  0.95,
			Description: h.description,
			Evidence:    "Response headers did not include " + h.name,
			SourceAgent: string(auditstate.AgentSecurity),
		})
	}

	score := 1.0 - float64(missing)/float64(len(requiredHeaders))
	return &auditstate.SecurityResult{
		ModuleName: m.CategoryID(),
		Findings:   findings,
		Score:      score,
	}, nil
}
