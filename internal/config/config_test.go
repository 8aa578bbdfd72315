package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const validYAML = `
version: "1"
providers:
  openai:
    type: openai
    base_url: https://api.openai.com
    api_key: dummy
    timeout: 30s
    rps: 4
models:
  mini:
    provider: openai
    wire_model: gpt-4o-mini
orchestrator:
  telemetry_capacity: 20
  telemetry_retain: 10
server:
  addr: ":9090"
  transport: ndjson
`

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	require.Equal(t, "openai", cfg.Models["mini"].Provider)
	require.Equal(t, "gpt-4o-mini", cfg.Models["mini"].WireModel)
	require.Equal(t, 30*time.Second, cfg.Providers["openai"].Timeout)
	require.Equal(t, 4.0, cfg.Providers["openai"].RPS)
	require.Equal(t, 20, cfg.Orchestrator.TelemetryCapacity)
	require.Equal(t, ":9090", cfg.Server.Addr)
	require.Equal(t, "ndjson", cfg.Server.Transport)
	// Defaults fill in what the file omits.
	require.Equal(t, "info", cfg.Logging.Level)
	require.True(t, cfg.Server.MetricsEnabled)
}

func TestLoadRequiresProvidersAndModels(t *testing.T) {
	_, err := Load(writeConfig(t, `
providers: {}
models: {}
`))
	require.Error(t, err)
}

func TestValidateRejectsDanglingProviderRef(t *testing.T) {
	_, err := Load(writeConfig(t, `
providers:
  openai:
    type: openai
models:
  mini:
    provider: no-such-provider
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no-such-provider")
}

func TestValidateRejectsProviderWithoutType(t *testing.T) {
	_, err := Load(writeConfig(t, `
providers:
  broken:
    base_url: http://localhost
models:
  mini:
    provider: broken
`))
	require.Error(t, err)
}

func TestValidateRejectsRetainOverCapacity(t *testing.T) {
	_, err := Load(writeConfig(t, `
providers:
  openai:
    type: openai
models:
  mini:
    provider: openai
orchestrator:
  telemetry_capacity: 10
  telemetry_retain: 50
`))
	require.Error(t, err)
}

func TestValidateRejectsUnknownTransport(t *testing.T) {
	_, err := Load(writeConfig(t, `
providers:
  openai:
    type: openai
models:
  mini:
    provider: openai
server:
  transport: carrier-pigeon
`))
	require.Error(t, err)
}
