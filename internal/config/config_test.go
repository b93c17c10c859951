package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{
		"VERITAS_DATA_DIR", "QUEUE_IPC_MODE", "QUEUE_IPC_ROLLOUT",
		"USE_SECURITY_AGENT", "SECURITY_AGENT_ROLLOUT", "SECURITY_AGENT_TIMEOUT",
		"SECURITY_AGENT_RETRY_COUNT", "SECURITY_AGENT_FAIL_FAST",
		"ABUSEIPDB_API_KEY", "URLVOID_API_KEY", "VERITAS_METRICS_ADDR",
	} {
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, IPCMode(""), cfg.QueueIPCMode)
	assert.InDelta(t, 0.1, cfg.QueueIPCRollout, 1e-9)
	assert.True(t, cfg.UseSecurityAgent)
	assert.Equal(t, 15, cfg.SecurityAgentTimeoutSec)
	assert.False(t, cfg.SecurityAgentFailFast)
	assert.Empty(t, cfg.AbuseIPDBAPIKey)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VERITAS_DATA_DIR", "/tmp/veritas-data")
	t.Setenv("QUEUE_IPC_MODE", "QUEUE")
	t.Setenv("SECURITY_AGENT_FAIL_FAST", "true")
	t.Setenv("SECURITY_AGENT_TIMEOUT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/veritas-data", cfg.DataDir)
	assert.Equal(t, IPCModeQueue, cfg.QueueIPCMode)
	assert.True(t, cfg.SecurityAgentFailFast)
	assert.Equal(t, 15, cfg.SecurityAgentTimeoutSec, "invalid int falls back to default")
}

func TestResolveIPCMode_ExplicitWins(t *testing.T) {
	c := &Config{QueueIPCMode: IPCModeStdout, QueueIPCRollout: 1.0}
	assert.Equal(t, IPCModeQueue, c.ResolveIPCMode(IPCModeQueue))
}

func TestResolveIPCMode_EnvSelectorWins(t *testing.T) {
	c := &Config{QueueIPCMode: IPCModeFallback, QueueIPCRollout: 1.0}
	assert.Equal(t, IPCModeFallback, c.ResolveIPCMode(""))
}

func TestResolveIPCMode_RolloutBounds(t *testing.T) {
	always := &Config{QueueIPCRollout: 1.0}
	assert.Equal(t, IPCModeQueue, always.ResolveIPCMode(""))

	never := &Config{QueueIPCRollout: 0.0}
	assert.Equal(t, IPCModeStdout, never.ResolveIPCMode(""))
}
