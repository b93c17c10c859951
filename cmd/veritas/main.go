// Command veritas runs one forensic trust audit against a target URL and
// prints its verdict: Scout → Security → Vision → Graph/OSINT → Judge,
// wired end to end over this repository's persistence, OSINT, security,
// consensus, strategy, and trust-scoring components. The cobra layout
// (root command plus a version subcommand) follows the standard pattern
// for small single-purpose CLI binaries.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/veritas-audit/veritas/internal/auditid"
	"github.com/veritas-audit/veritas/internal/auditstate"
	"github.com/veritas-audit/veritas/internal/config"
	"github.com/veritas-audit/veritas/internal/evidence"
	"github.com/veritas-audit/veritas/internal/orchestrator"
	"github.com/veritas-audit/veritas/internal/osint"
	"github.com/veritas-audit/veritas/internal/progress"
	"github.com/veritas-audit/veritas/internal/runner"
	"github.com/veritas-audit/veritas/internal/security"
	"github.com/veritas-audit/veritas/internal/store"
	"github.com/veritas-audit/veritas/internal/strategy"
	"github.com/veritas-audit/veritas/internal/wshub"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var (
	flagTier            string
	flagVerdictMode     string
	flagSecurityModules string
	flagJSON            bool
	flagOutput          string
	flagReport          string
	flagVerbose         bool
	flagIPCMode         string
	flagMetricsAddr     string
)

var rootCmd = &cobra.Command{
	Use:     "veritas <url>",
	Short:   "Veritas forensic trust auditor",
	Long:    "Veritas audits a target URL and produces a forensic trust verdict: a score, a risk tier, explainable findings, and supporting evidence.",
	Version: Version,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAudit(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.Flags().StringVar(&flagTier, "tier", "standard_audit", "audit tier: quick_scan|standard_audit|deep_forensic")
	rootCmd.Flags().StringVar(&flagVerdictMode, "verdict-mode", "expert", "verdict mode: simple|expert")
	rootCmd.Flags().StringVar(&flagSecurityModules, "security-modules", "", "comma-separated list of security module names to enable (default: all)")
	rootCmd.Flags().BoolVar(&flagJSON, "json", false, "emit the final result as JSON on stdout")
	rootCmd.Flags().StringVar(&flagOutput, "output", "", "write the final JSON result to this file")
	rootCmd.Flags().StringVar(&flagReport, "report", "none", "report format: pdf|html|none (report rendering is out of scope for this module)")
	rootCmd.Flags().BoolVar(&flagVerbose, "verbose", false, "enable debug-level logging")
	rootCmd.Flags().StringVar(&flagIPCMode, "ipc-mode", "", "override the progress-bus transport: queue|stdout|fallback")
	rootCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "listen address for the Prometheus /metrics endpoint (disabled if empty)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("veritas %s\n", Version)
	},
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runAudit(ctx context.Context, url string) error {
	if flagVerbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	switch flagReport {
	case "pdf", "html", "none":
	default:
		return fmt.Errorf("invalid --report %q: want pdf, html or none", flagReport)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	metricsAddr := flagMetricsAddr
	if metricsAddr == "" {
		metricsAddr = cfg.MetricsAddr
	}
	if metricsAddr != "" {
		go serveMetrics(metricsAddr)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	db, err := store.Open(filepath.Join(cfg.DataDir, "veritas_audits.db"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	evidenceStore, err := evidence.NewStore(filepath.Join(cfg.DataDir, "screenshots"))
	if err != nil {
		return fmt.Errorf("open evidence store: %w", err)
	}

	auditRepo := store.NewAuditRepository(db)
	eventRepo := store.NewEventRepository(db)
	cacheRepo := store.NewOSINTCacheRepository(db)

	id := auditid.New()
	tier := auditstate.Tier(flagTier)
	mode := auditstate.VerdictMode(flagVerdictMode)
	var modules []string
	if flagSecurityModules != "" {
		modules = splitCSV(flagSecurityModules)
	}
	state := auditstate.New(url, tier, mode, modules)

	osintOrch := osint.New()
	osint.RegisterBuiltins(ctx, osintOrch, cfg.AbuseIPDBAPIKey, cfg.URLVoidAPIKey)
	cachedOsint := osint.NewCached(osintOrch, cacheRepo)

	secRegistry := security.NewDefaultRegistry()
	secRunner := security.NewRunner(secRegistry)

	strategies := strategy.NewDefaultRegistry()

	ipcMode := cfg.ResolveIPCMode(config.IPCMode(flagIPCMode))
	log.Debug().Str("ipc_mode", string(ipcMode)).Str("audit_id", id).Msg("veritas: resolved progress transport")

	nav := newHTTPNavigator(evidenceStore, id)
	vision := noopVisionClient{}

	result, err := execute(ctx, execParams{
		ipcMode:    ipcMode,
		auditID:    id,
		state:      state,
		nav:        nav,
		vision:     vision,
		secRunner:  secRunner,
		osint:      cachedOsint,
		strategies: strategies,
		auditRepo:  auditRepo,
		eventRepo:  eventRepo,
	})
	if err != nil {
		return err
	}

	if err := emitResult(result, id); err != nil {
		return err
	}

	if result.Status != auditstate.StatusCompleted {
		os.Exit(1)
	}
	return nil
}

type execParams struct {
	ipcMode    config.IPCMode
	auditID    string
	state      *auditstate.State
	nav        orchestrator.Navigator
	vision     orchestrator.VisionClient
	secRunner  *security.Runner
	osint      *osint.CachedOrchestrator
	strategies *strategy.Registry
	auditRepo  store.AuditRepository
	eventRepo  *store.EventRepository
}

// execute wires one orchestrator run over the selected transport. In
// stdout mode this binary behaves as an isolated worker process: progress
// events are written as marker-prefixed lines and there is no in-process
// consumer. In queue (or fallback) mode this binary also plays the host
// role, draining its own bus through a Runner that persists rows/events
// and re-broadcasts over a local websocket hub.
func execute(ctx context.Context, p execParams) (*auditstate.State, error) {
	if p.ipcMode == config.IPCModeStdout {
		bus := progress.NewStdoutWriter(os.Stdout)
		orch := buildOrchestrator(p, bus)
		if err := orch.Run(ctx, p.state); err != nil {
			log.Error().Err(err).Msg("veritas: audit run returned an error")
		}
		return p.state, nil
	}

	bus := progress.NewInProcessBus(0)
	orch := buildOrchestrator(p, bus)

	hub := wshub.NewHub()
	hubCtx, hubCancel := context.WithCancel(ctx)
	defer hubCancel()
	go hub.Run(hubCtx)

	r := runner.New(p.auditRepo, p.eventRepo, orch, hub)
	if err := r.Start(ctx, p.auditID, p.state, bus); err != nil {
		return nil, fmt.Errorf("start runner: %w", err)
	}
	r.Wait()
	return p.state, nil
}

// buildOrchestrator constructs the five pipeline nodes against bus. Node
// constructors bind their progress sink at construction time, so the bus
// must be chosen before the nodes are built.
func buildOrchestrator(p execParams, bus progress.Bus) *orchestrator.Orchestrator {
	scoutNode := orchestrator.NewScoutNode(p.nav, bus)
	securityNode := orchestrator.NewSecurityNode(p.secRunner, bus)
	visionNode := orchestrator.NewVisionNode(p.vision, bus)
	graphNode := orchestrator.NewGraphNode(p.osint, bus)
	judgeNode := orchestrator.NewJudgeNode(p.strategies, orchestrator.DefaultSiteClassifier{}, bus)
	return orchestrator.New(scoutNode, securityNode, visionNode, graphNode, judgeNode, bus)
}

func emitResult(state *auditstate.State, auditID string) error {
	record := buildResultRecord(state, auditID)

	if flagOutput != "" {
		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		if err := os.WriteFile(flagOutput, data, 0o644); err != nil {
			return fmt.Errorf("write output file: %w", err)
		}
	}

	if flagJSON {
		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		fmt.Println(string(data))
	} else {
		printHuman(record)
	}
	return nil
}

// resultRecord is the CLI's normalized final record, mirroring the
// audit_result host-event payload shape.
type resultRecord struct {
	AuditID         string   `json:"audit_id"`
	URL             string   `json:"url"`
	Status          string   `json:"status"`
	SiteType        string   `json:"site_type,omitempty"`
	FinalScore      int      `json:"final_score,omitempty"`
	RiskLevel       string   `json:"risk_level,omitempty"`
	Narrative       string   `json:"narrative,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	ElapsedSeconds  float64  `json:"elapsed_seconds"`
	Errors          []string `json:"errors,omitempty"`
}

func buildResultRecord(state *auditstate.State, auditID string) resultRecord {
	rec := resultRecord{
		AuditID:        auditID,
		URL:            state.URL,
		Status:         string(state.GetStatus()),
		SiteType:       string(state.SiteType),
		ElapsedSeconds: state.ElapsedSeconds(),
		Errors:         state.Errors,
	}
	if state.JudgeDecision != nil {
		rec.FinalScore = state.JudgeDecision.TrustScoreResult.FinalScore
		rec.RiskLevel = state.JudgeDecision.TrustScoreResult.RiskLevel
		rec.Narrative = state.JudgeDecision.Narrative
		rec.Recommendations = state.JudgeDecision.Recommendations
	}
	return rec
}

func printHuman(r resultRecord) {
	fmt.Printf("Audit %s — %s\n", r.AuditID, r.URL)
	fmt.Printf("  status:     %s\n", r.Status)
	if r.Status == string(auditstate.StatusCompleted) {
		fmt.Printf("  trust score: %d (%s)\n", r.FinalScore, r.RiskLevel)
		fmt.Printf("  site type:   %s\n", r.SiteType)
		fmt.Printf("  narrative:   %s\n", r.Narrative)
		for _, rec := range r.Recommendations {
			fmt.Printf("    - %s\n", rec)
		}
	}
	for _, e := range r.Errors {
		fmt.Printf("  ! %s\n", e)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Info().Str("addr", addr).Msg("veritas: serving /metrics")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("veritas: metrics server exited")
	}
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
