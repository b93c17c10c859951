// Package security runs the security checker modules held in a Registry in
// tiered, timeout-bounded, per-tier-concurrent waves, and aggregates their
// findings and scores into a composite SecurityResult. Modules enter a
// Registry only through explicit Register calls (NewDefaultRegistry adds the
// built-ins); there is no automatic discovery.
package security

import (
	"context"
	"time"

	"github.com/veritas-audit/veritas/internal/auditstate"
)

// Tier orders modules into execution waves: all of one tier run
// concurrently before the next tier starts.
type Tier string

const (
	TierFast   Tier = "FAST"
	TierMedium Tier = "MEDIUM"
	TierDeep   Tier = "DEEP"
)

// DefaultTimeout returns the tier-default per-module deadline.
func (t Tier) DefaultTimeout() time.Duration {
	switch t {
	case TierFast:
		return 5 * time.Second
	case TierMedium:
		return 10 * time.Second
	case TierDeep:
		return 20 * time.Second
	default:
		return 10 * time.Second
	}
}

// ModuleInput is what the runner hands every module: the Scout's DOM and
// header context for the audit's primary page.
type ModuleInput struct {
	URL            string
	DOMMetadata    auditstate.DOMMetadata
	NetworkHeaders map[string]string
}

// Module is one security checker. CategoryID is also the weight-table key
// and the finding category_id modules should stamp on their output.
type Module interface {
	CategoryID() string
	Tier() Tier
	DefaultTimeout() time.Duration
	Run(ctx context.Context, input ModuleInput) (*auditstate.SecurityResult, error)
}

// Registry holds the set of modules available to a runner, keyed by
// CategoryID.
type Registry struct {
	modules map[string]Module
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

// Register adds m, keyed by its CategoryID. A later registration with the
// same id replaces the earlier one.
func (r *Registry) Register(m Module) {
	r.modules[m.CategoryID()] = m
}

// All returns every registered module.
func (r *Registry) All() []Module {
	out := make([]Module, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m)
	}
	return out
}

// Enabled returns the registered modules filtered by the audit's
// enabled-module set (nil/empty enabled means "all").
func (r *Registry) Enabled(isEnabled func(name string) bool) []Module {
	var out []Module
	for name, m := range r.modules {
		if isEnabled == nil || isEnabled(name) {
			out = append(out, m)
		}
	}
	return out
}

// NewDefaultRegistry returns a registry pre-populated with the built-in
// checker modules.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewSecurityHeadersModule())
	r.Register(NewPhishingDBModule())
	r.Register(NewRedirectChainModule())
	r.Register(NewJSAnalysisModule())
	r.Register(NewFormValidationModule())
	return r
}
