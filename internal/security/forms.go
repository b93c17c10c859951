package security

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/veritas-audit/veritas/internal/auditstate"
)

// FormValidationModule checks whether a page with forms sends a
// Content-Security-Policy header, and flags an unusually high form count;
// forms without CSP widen the credential-harvesting surface. Transport and
// other headers are not checked here.
type FormValidationModule struct{}

// NewFormValidationModule returns the FAST-tier form checker.
func NewFormValidationModule() *FormValidationModule { return &FormValidationModule{} }

func (m *FormValidationModule) CategoryID() string         { return "form_validation" }
func (m *FormValidationModule) Tier() Tier                  { return TierFast }
func (m *FormValidationModule) DefaultTimeout() time.Duration { return TierFast.DefaultTimeout() }

func (m *FormValidationModule) Run(ctx context.Context, input ModuleInput) (*auditstate.SecurityResult, error) {
	if input.DOMMetadata.Forms == 0 {
		return &auditstate.SecurityResult{ModuleName: m.CategoryID(), Score: 1.0}, nil
	}

	var findings []auditstate.Finding
	score := 1.0
	if _, ok := input.NetworkHeaders["content-security-policy"]; !ok {
		findings = append(findings, auditstate.Finding{
			ID: uuid.NewString(), CategoryID: m.CategoryID(), PatternType: "unprotected_form",
			Severity: auditstate.SeverityMedium, Confidence: 0.55,
			Description: "Page serves input forms without a Content-Security-Policy to constrain exfiltration",
			SourceAgent: string(auditstate.AgentSecurity),
		})
		score -= 0.4
	}
	if input.DOMMetadata.Forms > 3 {
		findings = append(findings, auditstate.Finding{
			ID: uuid.NewString(), CategoryID: m.CategoryID(), PatternType: "multiple_forms",
			Severity: auditstate.SeverityLow, Confidence: 0.4,
			Description: "Page contains an unusually high number of forms",
			SourceAgent: string(auditstate.AgentSecurity),
		})
		score -= 0.1
	}
	if score < 0 {
		score = 0
	}
	return &auditstate.SecurityResult{ModuleName: m.CategoryID(), Findings: findings, Score: score}, nil
}
