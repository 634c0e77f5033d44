package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const configYAML = `
scenario: scenario.yaml
solver:
  adapter: bridge
  command: scip-bridge
  time_limit_seconds: 60
  linearize: true
  workers: 8
metrics:
  prometheus_enabled: true
store:
  backend: memory
pricing:
  publish_enabled: false
  fees:
    3: 0.40
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", configYAML))
	require.NoError(t, err)

	require.Equal(t, "scenario.yaml", cfg.Scenario)
	require.Equal(t, "bridge", cfg.Solver.Adapter)
	require.Equal(t, "scip-bridge", cfg.Solver.Command)
	require.Equal(t, 60.0, cfg.Solver.TimeLimitSeconds)
	require.True(t, cfg.Solver.Linearize)
	require.Equal(t, 8, cfg.Solver.Workers)
	// Defaults filled in.
	require.Equal(t, 1e-5, cfg.Solver.Epsilon)
	require.Equal(t, ":9090", cfg.Metrics.PrometheusAddr)
	require.Equal(t, "memory", cfg.Store.Backend)
	require.Equal(t, 0.40, cfg.Pricing.Fees[3])

	opts := cfg.Solver.RoutingOptions()
	require.True(t, opts.Linearize)
	require.False(t, opts.SequenceConstraints)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("EV_SOLVER__WORKERS", "2")
	cfg, err := Load(writeConfig(t, "config.yaml", configYAML))
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Solver.Workers)
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing scenario", `
solver:
  adapter: bridge
  command: scip-bridge
`},
		{"bridge without command", `
scenario: s.yaml
solver:
  adapter: bridge
`},
		{"relaxation without linearize", `
scenario: s.yaml
solver:
  adapter: relaxation
`},
		{"unknown adapter", `
scenario: s.yaml
solver:
  adapter: cplex
`},
		{"negative time limit", `
scenario: s.yaml
solver:
  adapter: bridge
  command: scip-bridge
  time_limit_seconds: -1
`},
		{"postgres without dsn", `
scenario: s.yaml
solver:
  adapter: bridge
  command: scip-bridge
store:
  backend: postgres
`},
		{"malformed prometheus addr", `
scenario: s.yaml
solver:
  adapter: bridge
  command: scip-bridge
metrics:
  prometheus_enabled: true
  prometheus_addr: "not-an-addr"
`},
		{"influx enabled without url", `
scenario: s.yaml
solver:
  adapter: bridge
  command: scip-bridge
metrics:
  influx_enabled: true
  influx_org: evroute
  influx_bucket: runs
`},
		{"publish without broker", `
scenario: s.yaml
solver:
  adapter: bridge
  command: scip-bridge
pricing:
  publish_enabled: true
mqtt:
  topic: demand
`},
		{"publish without topic", `
scenario: s.yaml
solver:
  adapter: bridge
  command: scip-bridge
pricing:
  publish_enabled: true
mqtt:
  broker: tcp://localhost:1883
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "config.yaml", tc.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoad_RejectsUnknownFormat(t *testing.T) {
	_, err := Load(writeConfig(t, "config.toml", "x = 1"))
	require.Error(t, err)
}
