package security

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veritas-audit/veritas/internal/auditstate"
)

// PhishingDBModule flags lexical patterns associated with phishing /
// typosquatting (brand-name impersonation in the hostname, suspicious
// TLDs, excessive subdomain nesting). A real deployment would look these
// patterns up against a maintained phishing database; individual checker
// implementations beyond this heuristic baseline are out of scope here.
type PhishingDBModule struct{}

// NewPhishingDBModule returns the MEDIUM-tier phishing heuristics checker.
func NewPhishingDBModule() *PhishingDBModule { return &PhishingDBModule{} }

func (m *PhishingDBModule) CategoryID() string        { return "phishing_db" }
func (m *PhishingDBModule) Tier() Tier                 { return TierMedium }
func (m *PhishingDBModule) DefaultTimeout() time.Duration { return TierMedium.DefaultTimeout() }

var impersonatedBrands = []string{"paypal", "amazon", "apple", "microsoft", "google", "bank"}
var suspiciousTLDs = []string{".tk", ".ml", ".ga", ".cf", ".gq", ".xyz"}

func (m *PhishingDBModule) Run(ctx context.Context, input ModuleInput) (*auditstate.SecurityResult, error) {
	host := strings.ToLower(hostOf(input.URL))
	var findings []auditstate.Finding
	score := 1.0

	for _, brand := range impersonatedBrands {
		if strings.Contains(host, brand) && !strings.HasSuffix(host, brand+".com") {
			findings = append(findings, auditstate.Finding{
				ID: uuid.NewString(), CategoryID: m.CategoryID(), PatternType: "brand_impersonation",
				Severity: auditstate.SeverityCritical, Confidence: 0.7,
				Description: "Hostname references a well-known brand without matching its canonical domain",
				Evidence:    host, SourceAgent: string(auditstate.AgentSecurity),
			})
			score -= 0.5
		}
	}
	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(host, tld) {
			findings = append(findings, auditstate.Finding{
				ID: uuid.NewString(), CategoryID: m.CategoryID(), PatternType: "suspicious_tld",
				Severity: auditstate.SeverityMedium, Confidence: 0.5,
				Description: "Domain uses a TLD commonly associated with disposable phishing infrastructure",
				Evidence:    host, SourceAgent: string(auditstate.AgentSecurity),
			})
			score -= 0.2
		}
	}
	if strings.Count(host, ".") >= 4 {
		findings = append(findings, auditstate.Finding{
			ID: uuid.NewString(), CategoryID: m.CategoryID(), PatternType: "deep_subdomain_nesting",
			Severity: auditstate.SeverityLow, Confidence: 0.4,
			Description: "Unusually deep subdomain nesting, a common phishing-kit hosting pattern",
			Evidence:    host, SourceAgent: string(auditstate.AgentSecurity),
		})
		score -= 0.1
	}

	if score < 0 {
		score = 0
	}
	return &auditstate.SecurityResult{ModuleName: m.CategoryID(), Findings: findings, Score: score}, nil
}

func hostOf(rawURL string) string {
	rawURL = strings.TrimPrefix(rawURL, "https://")
	rawURL = strings.TrimPrefix(rawURL, "http://")
	if i := strings.IndexAny(rawURL, "/?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	return rawURL
}
