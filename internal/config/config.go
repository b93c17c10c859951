// Package config loads Veritas's environment-driven configuration: the
// progress-bus transport selection, the security-agent rollout knobs, and
// optional third-party OSINT API keys. An optional .env file is loaded
// first, then process environment variables override it.
package config

import (
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// IPCMode selects the progress-bus transport.
type IPCMode string

const (
	IPCModeQueue    IPCMode = "queue"
	IPCModeStdout   IPCMode = "stdout"
	IPCModeFallback IPCMode = "fallback"
)

// Config is Veritas's process-wide environment configuration. Unlike
// AuditState, this is constructed once per process and shared read-only
// across audits.
type Config struct {
	// DataDir is the root directory for the SQLite database and evidence
	// filesystem.
	DataDir string

	// QueueIPCMode is the explicit transport selector. Empty means "let
	// QueueIPCRollout decide".
	QueueIPCMode IPCMode
	// QueueIPCRollout is the probability of queue mode when QueueIPCMode
	// is unset (default 0.1).
	QueueIPCRollout float64

	UseSecurityAgent        bool
	SecurityAgentRollout    float64
	SecurityAgentTimeoutSec int
	SecurityAgentRetryCount int
	SecurityAgentFailFast   bool

	AbuseIPDBAPIKey string
	URLVoidAPIKey   string

	// MetricsAddr, when non-empty, is the listen address for the
	// Prometheus /metrics endpoint.
	MetricsAddr string
}

// Load reads an optional .env file (ignored if absent) and then applies
// process environment overrides on top.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("config: failed to load .env, continuing with process environment only")
	}

	cfg := &Config{
		DataDir:                 getenvDefault("VERITAS_DATA_DIR", "./data"),
		QueueIPCMode:            IPCMode(strings.ToLower(os.Getenv("QUEUE_IPC_MODE"))),
		QueueIPCRollout:         getenvFloat("QUEUE_IPC_ROLLOUT", 0.1),
		UseSecurityAgent:        getenvBool("USE_SECURITY_AGENT", true),
		SecurityAgentRollout:    getenvFloat("SECURITY_AGENT_ROLLOUT", 1.0),
		SecurityAgentTimeoutSec: getenvInt("SECURITY_AGENT_TIMEOUT", 15),
		SecurityAgentRetryCount: getenvInt("SECURITY_AGENT_RETRY_COUNT", 1),
		SecurityAgentFailFast:   getenvBool("SECURITY_AGENT_FAIL_FAST", false),
		AbuseIPDBAPIKey:         os.Getenv("ABUSEIPDB_API_KEY"),
		URLVoidAPIKey:           os.Getenv("URLVOID_API_KEY"),
		MetricsAddr:             os.Getenv("VERITAS_METRICS_ADDR"),
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("config: invalid float env var, using default")
		return def
	}
	return f
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("config: invalid int env var, using default")
		return def
	}
	return i
}

// ResolveIPCMode picks the progress-bus transport by priority order: an
// explicit caller flag wins, then the QUEUE_IPC_MODE environment
// selector, then a percentage-based rollout seeded by QueueIPCRollout
// (default 10% queue mode).
func (c *Config) ResolveIPCMode(explicit IPCMode) IPCMode {
	if explicit != "" {
		return explicit
	}
	if c.QueueIPCMode != "" {
		return c.QueueIPCMode
	}
	if rand.Float64() < c.QueueIPCRollout {
		return IPCModeQueue
	}
	return IPCModeStdout
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("config: invalid bool env var, using default")
		return def
	}
	return b
}
