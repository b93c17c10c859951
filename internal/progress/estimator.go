package progress

import "sync"

// fallbackDurations seeds the estimator before any audit of a given site
// type has completed, in seconds, roughly proportional to how much a
// standard_audit tier is expected to do for that category.
var fallbackDurations = map[string]float64{
	"ecommerce":       45,
	"saas":            40,
	"blog_content":    25,
	"financial":       60,
	"government":      50,
	"healthcare":      55,
	"darknet_market":  90,
	"phishing_clone":  35,
	"social_media":    40,
	"api_service":     30,
	"unknown":         40,
}

const emaAlpha = 0.2

// Estimator tracks a per-site-type exponential moving average of completed
// audit durations and projects a remaining-time figure from it. Durations
// are whole-audit figures, not tracked per agent, and no emitted event
// carries the projection.
type Estimator struct {
	mu      sync.Mutex
	average map[string]float64
}

// NewEstimator returns an Estimator seeded with the fallback table.
func NewEstimator() *Estimator {
	seed := make(map[string]float64, len(fallbackDurations))
	for k, v := range fallbackDurations {
		seed[k] = v
	}
	return &Estimator{average: seed}
}

// Observe folds a completed audit's duration into the EMA for its site
// type.
func (e *Estimator) Observe(siteType string, elapsedSeconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev, ok := e.average[siteType]
	if !ok {
		e.average[siteType] = elapsedSeconds
		return
	}
	e.average[siteType] = emaAlpha*elapsedSeconds + (1-emaAlpha)*prev
}

// Estimate returns the current expected total duration for a site type,
// falling back to the "unknown" bucket if never observed.
func (e *Estimator) Estimate(siteType string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v, ok := e.average[siteType]; ok {
		return v
	}
	return e.average["unknown"]
}

// Remaining returns a non-negative projection of seconds left given
// elapsed time so far, clamped to zero once the estimate is exceeded.
func (e *Estimator) Remaining(siteType string, elapsedSeconds float64) float64 {
	total := e.Estimate(siteType)
	remaining := total - elapsedSeconds
	if remaining < 0 {
		return 0
	}
	return remaining
}
