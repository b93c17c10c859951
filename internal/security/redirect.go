package security

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/veritas-audit/veritas/internal/auditstate"
)

// RedirectChainModule follows the redirect chain from the audited URL and
// flags excessive hop counts or a cross-origin final landing page, both
// signals of link-laundering.
type RedirectChainModule struct {
	client *http.Client
}

// NewRedirectChainModule returns the MEDIUM-tier redirect chain checker.
func NewRedirectChainModule() *RedirectChainModule {
	return &RedirectChainModule{client: &http.Client{
		Timeout: TierMedium.DefaultTimeout(),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}}
}

func (m *RedirectChainModule) CategoryID() string         { return "redirect_chain" }
func (m *RedirectChainModule) Tier() Tier                  { return TierMedium }
func (m *RedirectChainModule) DefaultTimeout() time.Duration { return TierMedium.DefaultTimeout() }

func (m *RedirectChainModule) Run(ctx context.Context, input ModuleInput) (*auditstate.SecurityResult, error) {
	var chain []string
	client := &http.Client{
		Timeout: m.client.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			chain = append(chain, req.URL.String())
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return &auditstate.SecurityResult{ModuleName: m.CategoryID(), Score: 0.5, Errors: []string{err.Error()}}, nil
	}
	defer resp.Body.Close()

	var findings []auditstate.Finding
	score := 1.0
	if len(chain) > 3 {
		findings = append(findings, auditstate.Finding{
			ID: uuid.NewString(), CategoryID: m.CategoryID(), PatternType: "long_redirect_chain",
			Severity: auditstate.SeverityMedium, Confidence: 0.6,
			Description: "URL passes through an unusually long redirect chain before landing",
			SourceAgent: string(auditstate.AgentSecurity),
		})
		score -= 0.3
	}
	if resp.Request != nil && resp.Request.URL.Host != "" && hostOf(input.URL) != resp.Request.URL.Host {
		findings = append(findings, auditstate.Finding{
			ID: uuid.NewString(), CategoryID: m.CategoryID(), PatternType: "cross_origin_redirect",
			Severity: auditstate.SeverityLow, Confidence: 0.5,
			Description: "Final landing page is on a different origin than the audited URL",
			Evidence:    resp.Request.URL.Host, SourceAgent: string(auditstate.AgentSecurity),
		})
		score -= 0.2
	}
	if score < 0 {
		score = 0
	}
	return &auditstate.SecurityResult{ModuleName: m.CategoryID(), Findings: findings, Score: score}, nil
}
