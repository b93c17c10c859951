package security

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/veritas-audit/veritas/internal/auditstate"
)

// JSAnalysisModule scores script-related risk from the Scout's DOM
// metadata: script density and the presence of an IDOR-suggestive pattern
// list or an exposed admin panel, both of which the Scout already flagged
// during navigation.
type JSAnalysisModule struct{}

// NewJSAnalysisModule returns the DEEP-tier script risk checker.
func NewJSAnalysisModule() *JSAnalysisModule { return &JSAnalysisModule{} }

func (m *JSAnalysisModule) CategoryID() string         { return "js_analysis" }
func (m *JSAnalysisModule) Tier() Tier                  { return TierDeep }
func (m *JSAnalysisModule) DefaultTimeout() time.Duration { return TierDeep.DefaultTimeout() }

func (m *JSAnalysisModule) Run(ctx context.Context, input ModuleInput) (*auditstate.SecurityResult, error) {
	var findings []auditstate.Finding
	riskScore := 0.0 // 0-100, higher is riskier

	if input.DOMMetadata.Scripts > 40 {
		riskScore += 30
		findings = append(findings, auditstate.Finding{
			ID: uuid.NewString(), CategoryID: m.CategoryID(), PatternType: "excessive_script_count",
			Severity: auditstate.SeverityMedium, Confidence: 0.5,
			Description: "Page loads an unusually large number of scripts, widening the attack surface",
			SourceAgent: string(auditstate.AgentSecurity),
		})
	}
	if len(input.DOMMetadata.IDORPatterns) > 0 {
		riskScore += 40
		findings = append(findings, auditstate.Finding{
			ID: uuid.NewString(), CategoryID: m.CategoryID(), PatternType: "idor",
			Severity: auditstate.SeverityHigh, Confidence: 0.6,
			Description: "Page references sequential/predictable identifiers suggestive of IDOR",
			Evidence:    joinStrings(input.DOMMetadata.IDORPatterns), SourceAgent: string(auditstate.AgentSecurity),
		})
	}
	if input.DOMMetadata.HasAdminPanel {
		riskScore += 35
		findings = append(findings, auditstate.Finding{
			ID: uuid.NewString(), CategoryID: m.CategoryID(), PatternType: "admin_panel",
			Severity: auditstate.SeverityHigh, Confidence: 0.65,
			Description: "An administrative panel is reachable from the audited page",
			SourceAgent: string(auditstate.AgentSecurity),
		})
	}

	if riskScore > 100 {
		riskScore = 100
	}
	score := 1.0 - riskScore/100.0
	return &auditstate.SecurityResult{ModuleName: m.CategoryID(), Findings: findings, Score: score}, nil
}

func joinStrings(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
