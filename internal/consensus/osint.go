package consensus

import (
	"github.com/veritas-audit/veritas/internal/auditstate"
)

// OSINTVerdict is one source's distilled read on a target's trustworthiness.
type OSINTVerdict string

const (
	VerdictMalicious  OSINTVerdict = "malicious"
	VerdictSafe       OSINTVerdict = "safe"
	VerdictSuspicious OSINTVerdict = "suspicious"
	VerdictUnknown    OSINTVerdict = "unknown"
)

// OSINTAgreement is the outcome of reconciling verdicts across OSINT sources.
type OSINTAgreement struct {
	Status            string            `json:"status"` // confirmed | likely | possible | insufficient | CONFLICTED
	DominantVerdict    OSINTVerdict      `json:"dominant_verdict"`
	VerdictsBySource   map[string]OSINTVerdict `json:"verdicts_by_source"`
	ConflictingSources []string          `json:"conflicting_sources,omitempty"`
}

// DefaultOSINTMinSources is the agreement count needed for "confirmed"
// without the high-trust two-source exception.
const DefaultOSINTMinSources = 3

func verdictFor(r auditstate.OSINTResult) OSINTVerdict {
	if r.Status != auditstate.OSINTSuccess || r.Data == nil {
		return VerdictUnknown
	}
	switch r.Category {
	case auditstate.CategoryThreatIntel:
		conf, _ := r.Data["abuse_confidence"].(float64)
		reports, _ := r.Data["reports"].(float64)
		switch {
		case conf > 50 || reports > 5:
			return VerdictMalicious
		case conf > 20 || reports > 2:
			return VerdictSuspicious
		default:
			return VerdictSafe
		}
	case auditstate.CategoryReputation:
		detections, _ := r.Data["detections"].(float64)
		risk, _ := r.Data["risk"].(string)
		switch {
		case detections > 3 || risk == "high":
			return VerdictMalicious
		case detections > 0 || risk == "low" || risk == "medium":
			return VerdictSuspicious
		default:
			return VerdictSafe
		}
	case auditstate.CategoryWHOIS, auditstate.CategorySSL:
		ageDays, hasAge := r.Data["age_days"].(float64)
		invalid, _ := r.Data["invalid"].(bool)
		if invalid || (hasAge && ageDays < 30) {
			return VerdictSuspicious
		}
		return VerdictSafe
	case auditstate.CategoryDNS:
		return VerdictUnknown
	default:
		return VerdictUnknown
	}
}

// OSINTConsensus reconciles a map of source-name to OSINTResult into an
// agreement verdict. highTrustTwoSourceException relaxes the confirmed
// threshold to 2 sources
// when true (e.g. two independent threat-intel feeds both reporting
// malicious).
func OSINTConsensus(results map[string]auditstate.OSINTResult, highTrustTwoSourceException bool) OSINTAgreement {
	verdicts := make(map[string]OSINTVerdict, len(results))
	counts := map[OSINTVerdict]int{}
	var conflicting []string

	for source, r := range results {
		v := verdictFor(r)
		verdicts[source] = v
		counts[v]++
	}

	_, hasMalicious := counts[VerdictMalicious]
	_, hasSafe := counts[VerdictSafe]
	if hasMalicious && counts[VerdictMalicious] > 0 && hasSafe && counts[VerdictSafe] > 0 {
		for source, v := range verdicts {
			if v == VerdictMalicious || v == VerdictSafe {
				conflicting = append(conflicting, source)
			}
		}
		return OSINTAgreement{
			Status:             "CONFLICTED",
			DominantVerdict:    VerdictUnknown,
			VerdictsBySource:   verdicts,
			ConflictingSources: conflicting,
		}
	}

	dominant, agreement := mode(counts)
	total := len(results)

	var status string
	switch {
	case agreement >= DefaultOSINTMinSources:
		status = "confirmed"
	case highTrustTwoSourceException && agreement >= 2:
		status = "confirmed"
	case total >= 2 && float64(agreement)/float64(total) >= 0.5:
		status = "likely"
	case total >= 2 && float64(agreement)/float64(total) >= 0.33:
		status = "possible"
	default:
		status = "insufficient"
	}

	return OSINTAgreement{
		Status:           status,
		DominantVerdict:  dominant,
		VerdictsBySource: verdicts,
	}
}

func mode(counts map[OSINTVerdict]int) (OSINTVerdict, int) {
	var best OSINTVerdict = VerdictUnknown
	bestCount := -1
	// Deterministic precedence when counts tie: malicious > suspicious > safe > unknown.
	for _, v := range []OSINTVerdict{VerdictMalicious, VerdictSuspicious, VerdictSafe, VerdictUnknown} {
		if c := counts[v]; c > bestCount {
			best, bestCount = v, c
		}
	}
	if bestCount < 0 {
		bestCount = 0
	}
	return best, bestCount
}
