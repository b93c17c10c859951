package security

import "github.com/veritas-audit/veritas/internal/auditstate"

// cweByCategory maps a module/pattern category to the CWE id a finding in
// that category is stamped with.
var cweByCategory = map[string]string{
	"security_headers": "CWE-693", // Protection Mechanism Failure
	"phishing_db":       "CWE-1021",
	"redirect_chain":    "CWE-601", // Open Redirect
	"js_analysis":       "CWE-79",  // XSS
	"form_validation":   "CWE-20",  // Improper Input Validation
	"idor":              "CWE-639",
	"admin_panel":       "CWE-284",
}

// CWEFor returns the CWE id for a category, empty if unmapped.
func CWEFor(category string) string {
	return cweByCategory[category]
}

// cvssPresetBySeverity holds a representative CVSS 3.1 base score per
// severity tier, used when a module does not compute its own CVSS score.
var cvssPresetBySeverity = map[auditstate.Severity]float64{
	auditstate.SeverityCritical: 9.8,
	auditstate.SeverityHigh:     7.5,
	auditstate.SeverityMedium:   5.3,
	auditstate.SeverityLow:      3.1,
	auditstate.SeverityInfo:     0.0,
}

// CVSSFor returns the preset CVSS base score for a severity tier.
func CVSSFor(severity auditstate.Severity) float64 {
	return cvssPresetBySeverity[severity]
}

// Stamp fills in CWEID and CVSSScore on f if they're unset, using the
// static rule table keyed by category and severity.
func Stamp(f *auditstate.Finding) {
	if f.CWEID == "" {
		f.CWEID = CWEFor(f.CategoryID)
	}
	if f.CVSSScore == nil {
		score := CVSSFor(f.Severity)
		f.CVSSScore = &score
	}
}
