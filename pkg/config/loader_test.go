package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testLoader(env map[string]string) *Loader {
	l := NewLoader()
	l.getenv = func(k string) string { return env[k] }
	return l
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Address != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.Server.Address)
	}
	if cfg.Solver.DefaultTolerance != 1e-6 || cfg.Solver.DefaultMaxIterations != 100 || cfg.Solver.SampleCount != 200 {
		t.Errorf("unexpected solver defaults: %+v", cfg.Solver)
	}
	if !cfg.Store.Enabled || cfg.Store.Path != "rootfind.db" {
		t.Errorf("unexpected store defaults: %+v", cfg.Store)
	}
	if !cfg.Policy.Enabled || cfg.Policy.Limits.MaxIterations != 10000 || cfg.Policy.Limits.MinTolerance != 1e-12 {
		t.Errorf("unexpected policy defaults: %+v", cfg.Policy)
	}
	if cfg.Telemetry.Logging.Level != "info" || cfg.Telemetry.Tracing.Exporter != "none" || cfg.Telemetry.Metrics.Path != "/metrics" {
		t.Errorf("unexpected telemetry defaults: %+v", cfg.Telemetry)
	}

	read, write, shutdown, err := cfg.Server.Durations()
	if err != nil {
		t.Fatalf("Durations failed: %v", err)
	}
	if read != 10*time.Second || write != 30*time.Second || shutdown != 10*time.Second {
		t.Errorf("unexpected durations: %v %v %v", read, write, shutdown)
	}
}

func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "cue",
			file: "rootfind.cue",
			content: `
server: address: ":9090"
solver: defaultTolerance: 1e-8
policy: limits: maxIterations: 500
`,
		},
		{
			name: "json",
			file: "rootfind.json",
			content: `{
  "server": {"address": ":9090"},
  "solver": {"defaultTolerance": 1e-8},
  "policy": {"limits": {"maxIterations": 500}}
}`,
		},
		{
			name: "yaml",
			file: "rootfind.yaml",
			content: `
server:
  address: ":9090"
solver:
  defaultTolerance: 1.0e-8
policy:
  limits:
    maxIterations: 500
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.content)

			cfg, err := testLoader(nil).Load(path)
			require.NoError(t, err)
			require.Equal(t, ":9090", cfg.Server.Address)
			require.Equal(t, 1e-8, cfg.Solver.DefaultTolerance)
			require.Equal(t, 100, cfg.Solver.DefaultMaxIterations)
			require.Equal(t, 500, cfg.Policy.Limits.MaxIterations)
			require.Equal(t, 5000, cfg.Policy.Limits.MaxSampleCount)
			require.Equal(t, path, cfg.Source)
		})
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"negative tolerance", `solver: defaultTolerance: -1`, "defaultTolerance"},
		{"zero iterations", `solver: defaultMaxIterations: 0`, "defaultMaxIterations"},
		{"unknown field", `solver: tolerence: 1e-6`, "tolerence"},
		{"bad exporter", `telemetry: tracing: exporter: "jaeger"`, "exporter"},
		{"bad duration", `server: readTimeout: "soon"`, "readTimeout"},
		{"syntax error", `server: {`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "bad.cue", tt.content)

			_, err := testLoader(nil).Load(path)
			require.Error(t, err)

			var le *LoadError
			require.True(t, errors.As(err, &le), "expected *LoadError, got %T", err)
			require.Equal(t, path, le.Source)
			require.NotEmpty(t, le.Errors)
			require.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "rootfind.yaml", "server:\n  address: \":9090\"\n")

	cfg, err := testLoader(map[string]string{
		EnvAddress:   "127.0.0.1:7000",
		EnvStorePath: ":memory:",
		EnvLogLevel:  "DEBUG",
	}).Load(path)
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:7000", cfg.Server.Address)
	require.Equal(t, ":memory:", cfg.Store.Path)
	require.Equal(t, "debug", cfg.Telemetry.Logging.Level)
}

func TestLoad_StructValidation(t *testing.T) {
	_, err := testLoader(map[string]string{EnvLogLevel: "loud"}).Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "telemetry.logging.level")

	path := writeConfig(t, "otlp.cue", `telemetry: tracing: {enabled: true, exporter: "otlp"}`)
	_, err = testLoader(nil).Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "telemetry.tracing.endpoint")
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	path := writeConfig(t, "rootfind.toml", "")

	_, err := testLoader(nil).Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := testLoader(nil).Load(filepath.Join(t.TempDir(), "absent.cue"))
	require.Error(t, err)
}

func TestTelemetryBuild(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.Environment = "staging"
	cfg.Telemetry.Logging.Format = "json"

	tc := cfg.Telemetry.Build("1.2.3")
	require.Equal(t, "rootfind", tc.ServiceName)
	require.Equal(t, "1.2.3", tc.ServiceVersion)
	require.Equal(t, "staging", tc.Environment)
	require.Equal(t, "json", tc.Logging.Format)
	require.NoError(t, tc.Validate())
}

func TestLoadRequests(t *testing.T) {
	cuePath := writeConfig(t, "batch.cue", `
requests: [
	{method: "bisection", functionType: "polynomial", a: 1, b: 2},
	{method: "newton", functionType: "trigonometric", x0: 0.5, tolerance: 1e-10},
]
`)
	reqs, err := testLoader(nil).LoadRequests(cuePath)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	require.Equal(t, "bisection", reqs[0].Method)
	require.Equal(t, 2.0, *reqs[0].B)
	require.Nil(t, reqs[0].Tolerance)
	require.Equal(t, 1e-10, *reqs[1].Tolerance)

	yamlPath := writeConfig(t, "batch.yaml", `
requests:
  - method: secant
    functionType: exponential
    x0: 1
    x1: 2
`)
	reqs, err = testLoader(nil).LoadRequests(yamlPath)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, 1.0, *reqs[0].X0)

	badPath := writeConfig(t, "bad.json", `{"requests": [{"method": "brent", "functionType": "polynomial"}]}`)
	_, err = testLoader(nil).LoadRequests(badPath)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "method"), err.Error())
}
