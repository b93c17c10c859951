package security

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/veritas-audit/veritas/internal/auditstate"
)

// defaultWeights are the per-module weights composing the overall
// security score.
var defaultWeights = map[string]float64{
	"security_headers": 0.20,
	"phishing_db":       0.30,
	"redirect_chain":    0.15,
	"js_analysis":       0.20,
	"form_validation":   0.15,
}

// Runner executes a registry's modules in tier order: all FAST modules
// concurrently under a shared deadline, then MEDIUM, then DEEP.
type Runner struct {
	registry *Registry
	weights  map[string]float64
}

// NewRunner returns a Runner over registry using the default module
// weights.
func NewRunner(registry *Registry) *Runner {
	return &Runner{registry: registry, weights: defaultWeights}
}

// Outcome is what Run returns: the per-module results plus the weighted
// composite score.
type Outcome struct {
	Results       map[string]auditstate.SecurityResult
	CompositeScore float64
	ModulesFailed []string
}

// Run executes every enabled module across the three tiers in order,
// isolating per-module failures so one timing out or panicking-equivalent
// error never aborts its tier-mates.
func (r *Runner) Run(ctx context.Context, input ModuleInput, isEnabled func(name string) bool) Outcome {
	outcome := Outcome{Results: make(map[string]auditstate.SecurityResult)}

	for _, tier := range []Tier{TierFast, TierMedium, TierDeep} {
		var modules []Module
		for _, m := range r.registry.Enabled(isEnabled) {
			if m.Tier() == tier {
				modules = append(modules, m)
			}
		}
		if len(modules) == 0 {
			continue
		}
		r.runTier(ctx, tier, modules, input, &outcome)
	}

	outcome.CompositeScore = r.composite(outcome.Results)
	return outcome
}

func (r *Runner) runTier(ctx context.Context, tier Tier, modules []Module, input ModuleInput, outcome *Outcome) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, m := range modules {
		m := m
		timeout := m.DefaultTimeout()
		if timeout <= 0 {
			timeout = tier.DefaultTimeout()
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			moduleCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			result, err := m.Run(moduleCtx, input)
			elapsed := time.Since(start).Milliseconds()

			mu.Lock()
			defer mu.Unlock()
			if err != nil || result == nil {
				log.Warn().Str("module", m.CategoryID()).Err(err).Msg("security module failed")
				outcome.Results[m.CategoryID()] = auditstate.SecurityResult{
					ModuleName: m.CategoryID(),
					Score:      0.0,
					Errors:     []string{errString(err)},
					ElapsedMs:  elapsed,
				}
				outcome.ModulesFailed = append(outcome.ModulesFailed, m.CategoryID())
				return
			}
			result.ElapsedMs = elapsed
			for i := range result.Findings {
				Stamp(&result.Findings[i])
			}
			outcome.Results[m.CategoryID()] = *result
		}()
	}
	wg.Wait()
}

func errString(err error) string {
	if err == nil {
		return "timeout"
	}
	return err.Error()
}

// composite computes the weighted sum of per-module scores normalized by
// the sum of weights over modules that completed.
func (r *Runner) composite(results map[string]auditstate.SecurityResult) float64 {
	var weightedSum, weightSum float64
	for name, result := range results {
		w, ok := r.weights[name]
		if !ok {
			w = 0.1 // unweighted module still contributes a small nominal share
		}
		weightedSum += w * result.Score
		weightSum += w
	}
	if weightSum == 0 {
		return 1.0 // no modules ran: treat as clean rather than dividing by zero
	}
	return weightedSum / weightSum
}
