// Package trust computes the final numeric trust verdict from per-signal
// scores, a strategy's weight adjustments, and a list of point-deducting
// overrides. Pure functions only: no I/O, no shared state.
package trust

import "math"

// WeightAdjustments maps a signal name to its strategy-assigned weight.
// The set is expected to sum to 1.0, but Score normalizes defensively if it
// doesn't.
type WeightAdjustments map[string]float64

// Override is one named, point-deducting adjustment applied after the
// weighted signal sum (a universal critical trigger or a strategy's custom
// finding).
type Override struct {
	Name         string
	DeductPoints float64
}

// Result is the trust scorer's output.
type Result struct {
	FinalScore          int                `json:"final_score"`
	RiskLevel           string             `json:"risk_level"`
	SignalScores        map[string]float64 `json:"signal_scores"`
	AppliedOverrides    []string           `json:"applied_overrides,omitempty"`
	ConfidenceBreakdown map[string]float64 `json:"confidence_breakdown"`
}

// minSignalsForVerdict is the fewest distinct signal scores required before
// the scorer commits to trustworthy/suspicious/untrustworthy rather than
// unknown.
const minSignalsForVerdict = 2

// Score computes final_score in [0,100], its risk_level, and a
// contribution breakdown.
func Score(signals map[string]float64, adjustments WeightAdjustments, overrides []Override) Result {
	normalizedSignals := make(map[string]float64, len(signals))
	for k, v := range signals {
		normalizedSignals[k] = clamp(v, 0, 100)
	}

	if len(normalizedSignals) < minSignalsForVerdict {
		return Result{
			FinalScore:          0,
			RiskLevel:           "unknown",
			SignalScores:        normalizedSignals,
			ConfidenceBreakdown: map[string]float64{},
		}
	}

	weightSum := 0.0
	for signal := range normalizedSignals {
		weightSum += adjustments[signal]
	}
	if weightSum <= 0 {
		weightSum = float64(len(normalizedSignals))
		for signal := range normalizedSignals {
			adjustments = cloneWithDefault(adjustments, signal, 1.0)
		}
	}

	contribution := make(map[string]float64, len(normalizedSignals))
	weighted := 0.0
	for signal, score := range normalizedSignals {
		w := adjustments[signal] / weightSum
		c := score * w
		contribution[signal] = round1(c)
		weighted += c
	}

	final := weighted
	var applied []string
	for _, o := range overrides {
		final -= o.DeductPoints
		applied = append(applied, o.Name)
	}
	final = clamp(final, 0, 100)

	riskLevel := "untrustworthy"
	switch {
	case final >= 80:
		riskLevel = "trustworthy"
	case final >= 60:
		riskLevel = "suspicious"
	}

	return Result{
		FinalScore:          int(math.Round(final)),
		RiskLevel:           riskLevel,
		SignalScores:        normalizedSignals,
		AppliedOverrides:    applied,
		ConfidenceBreakdown: contribution,
	}
}

func cloneWithDefault(w WeightAdjustments, key string, def float64) WeightAdjustments {
	out := make(WeightAdjustments, len(w)+1)
	for k, v := range w {
		out[k] = v
	}
	if _, ok := out[key]; !ok {
		out[key] = def
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
