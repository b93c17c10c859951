package auditstate

import (
	"sync"
	"time"
)

// State is the accumulator passed through one audit's pipeline. It is
// exclusively owned by one orchestrator instance for the lifetime of an
// audit; the mutex here only guards against the
// audit runner's concurrent read-side access (persistence, progress
// translation) racing the orchestrator's writes.
type State struct {
	mu sync.RWMutex

	// input
	URL                   string
	AuditTier             Tier
	VerdictMode           VerdictMode
	EnabledSecurityModules map[string]bool // nil means "all enabled"

	// control
	Iteration      int
	NimCallsUsed   int
	PagesScouted   int
	StartedAt      time.Time
	elapsedSeconds float64

	// results
	ScoutResults     []ScoutResult
	SecurityResults  map[string]SecurityResult
	VisionResult     []Finding
	GraphResult      *GraphResult
	OSINTResults     map[string]OSINTResult
	JudgeDecision    *JudgeDecision
	investigatedURLs []string
	seenURLs         map[string]bool
	SiteType         SiteType
	SiteTypeConfidence float64
	Status           Status
	Errors           []string
}

// New constructs a State for a fresh audit against url, seeding
// investigated_urls[0] with the canonicalized url.
func New(url string, tier Tier, mode VerdictMode, enabledModules []string) *State {
	canon := CanonicalizeURL(url)
	s := &State{
		URL:             canon,
		AuditTier:       tier,
		VerdictMode:     mode,
		StartedAt:       time.Now(),
		SecurityResults: make(map[string]SecurityResult),
		OSINTResults:    make(map[string]OSINTResult),
		Status:          StatusQueued,
		seenURLs:        make(map[string]bool),
	}
	if len(enabledModules) > 0 {
		s.EnabledSecurityModules = make(map[string]bool, len(enabledModules))
		for _, m := range enabledModules {
			s.EnabledSecurityModules[m] = true
		}
	}
	s.investigatedURLs = append(s.investigatedURLs, canon)
	s.seenURLs[canon] = true
	return s
}

// CanonicalizeURL normalizes a URL for de-duplication and the
// investigated_urls[0] invariant. It is intentionally conservative: it
// lower-cases the scheme/host and strips a trailing slash, leaving path and
// query untouched so distinct resources remain distinct.
func CanonicalizeURL(raw string) string {
	return canonicalizeURL(raw)
}

// Budget returns the tier budget in force for this audit.
func (s *State) Budget() Budget {
	return BudgetFor(s.AuditTier)
}

// Tick advances elapsed_seconds monotonically; snapshots taken after a Tick
// never observe a smaller value than a prior snapshot.
func (s *State) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := time.Since(s.StartedAt).Seconds()
	if e > s.elapsedSeconds {
		s.elapsedSeconds = e
	}
}

// ElapsedSeconds returns the last recorded elapsed time.
func (s *State) ElapsedSeconds() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.elapsedSeconds
}

// AppendError records a non-fatal error and keeps ordering.
func (s *State) AppendError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors = append(s.Errors, msg)
}

// AppendScoutResult records one Scout iteration's output and tracks the
// investigated URL de-duplicated and in order.
func (s *State) AppendScoutResult(r ScoutResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ScoutResults = append(s.ScoutResults, r)
	s.PagesScouted++
	canon := CanonicalizeURL(r.PageURL)
	if canon != "" && !s.seenURLs[canon] {
		s.seenURLs[canon] = true
		s.investigatedURLs = append(s.investigatedURLs, canon)
	}
}

// InvestigatedURLs returns the ordered, de-duplicated list of URLs visited.
// investigated_urls[0] is always the canonicalized audit URL.
func (s *State) InvestigatedURLs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.investigatedURLs))
	copy(out, s.investigatedURLs)
	return out
}

// IncrementNimCalls records one spent vision API call.
func (s *State) IncrementNimCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NimCallsUsed++
}

// AppendVisionFinding records one finding produced by the Vision node.
func (s *State) AppendVisionFinding(f Finding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.VisionResult = append(s.VisionResult, f)
}

// IncrementIteration advances the Scout re-entry counter.
func (s *State) IncrementIteration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Iteration++
}

// SetSiteType records the detected site type and its confidence.
func (s *State) SetSiteType(t SiteType, confidence float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SiteType = t
	s.SiteTypeConfidence = confidence
}

// SetGraphResult stores the Graph/OSINT node's aggregate output.
func (s *State) SetGraphResult(r *GraphResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GraphResult = r
}

// SetJudgeDecision stores the Judge node's final verdict.
func (s *State) SetJudgeDecision(d *JudgeDecision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.JudgeDecision = d
}

// Snapshot returns read-only copies of the fields the audit runner needs to
// persist or translate into host events, taken under the state's lock.
func (s *State) Snapshot() (securityResults map[string]SecurityResult, osintResults map[string]OSINTResult, judge *JudgeDecision, siteType SiteType, status Status) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	securityResults = make(map[string]SecurityResult, len(s.SecurityResults))
	for k, v := range s.SecurityResults {
		securityResults[k] = v
	}
	osintResults = make(map[string]OSINTResult, len(s.OSINTResults))
	for k, v := range s.OSINTResults {
		osintResults[k] = v
	}
	return securityResults, osintResults, s.JudgeDecision, s.SiteType, s.Status
}

// SetSecurityResult stores one module's result keyed by module name.
func (s *State) SetSecurityResult(r SecurityResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SecurityResults[r.ModuleName] = r
}

// SetOSINTResult stores one source's result keyed by source name.
func (s *State) SetOSINTResult(r OSINTResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.OSINTResults[r.Source] = r
}

// SetStatus updates the audit's lifecycle status.
func (s *State) SetStatus(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = st
}

// GetStatus reads the audit's lifecycle status.
func (s *State) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// ModuleEnabled reports whether a named security module should run. All
// modules are enabled when the caller did not restrict the set.
func (s *State) ModuleEnabled(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.EnabledSecurityModules == nil {
		return true
	}
	return s.EnabledSecurityModules[name]
}

// CheckBudget reports whether the audit may still scout another page,
// run another iteration, or spend another NIM call.
func (s *State) CheckBudget() (canScout bool, canIterate bool, canSpendNim bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := BudgetFor(s.AuditTier)
	return s.PagesScouted < b.MaxPages, s.Iteration < b.MaxIterations, s.NimCallsUsed < b.MaxNimCalls
}
