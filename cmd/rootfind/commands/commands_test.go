package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/rootfind/pkg/engine"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand("test", "none", "today")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// testConfig writes a YAML config with a private history database.
func testConfig(t *testing.T, storeEnabled bool) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "rootfind.yaml")
	store := "false"
	if storeEnabled {
		store = "true"
	}
	writeFile(t, path, `store:
  enabled: `+store+`
  path: `+filepath.Join(dir, "history.db")+`
telemetry:
  logging:
    output: discard
`)
	return path
}

func TestFunctionsAndMethods(t *testing.T) {
	out, err := run(t, "functions", "-o", "json")
	require.NoError(t, err)

	var fns []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &fns))
	require.Len(t, fns, 3)
	require.Equal(t, "polynomial", fns[0]["id"])

	out, err = run(t, "methods")
	require.NoError(t, err)
	require.Contains(t, out, "CONVERGENCE")
	require.Contains(t, out, "bisection")
	require.Contains(t, out, "secant")
}

func TestUnsupportedOutputFormat(t *testing.T) {
	_, err := run(t, "functions", "-o", "xml")
	require.ErrorContains(t, err, "unsupported output format")
}

func TestSolveRecordsHistory(t *testing.T) {
	cfg := testConfig(t, true)

	out, err := run(t, "-c", cfg, "solve", "-m", "newton", "-f", "polynomial", "--tol", "1e-10", "-o", "json")
	require.NoError(t, err)

	var env map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	require.Equal(t, true, env["success"])
	require.InDelta(t, 1.5214, env["root"], 1e-4)
	require.NotContains(t, env, "functionPoints")
	runID, _ := env["run_id"].(string)
	require.NotEmpty(t, runID)

	out, err = run(t, "-c", cfg, "history", "show", runID, "-o", "json")
	require.NoError(t, err)
	var detail struct {
		Run struct {
			Method   string `json:"method"`
			Function string `json:"function"`
		} `json:"run"`
		Iterations []json.RawMessage `json:"iterations"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &detail))
	require.Equal(t, "newton", detail.Run.Method)
	require.Len(t, detail.Iterations, len(env["iterations_data"].([]interface{})))

	out, err = run(t, "-c", cfg, "history", "show", runID)
	require.NoError(t, err)
	require.Contains(t, out, "x_new")

	out, err = run(t, "-c", cfg, "history", "list", "-o", "json")
	require.NoError(t, err)
	var runs []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)

	out, err = run(t, "-c", cfg, "history", "list", "--failed", "-o", "json")
	require.NoError(t, err)
	var failedRuns []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &failedRuns))
	require.Empty(t, failedRuns)

	out, err = run(t, "-c", cfg, "history", "stats")
	require.NoError(t, err)
	require.Contains(t, out, "newton")
	require.Contains(t, out, "polynomial")

	out, err = run(t, "-c", cfg, "history", "prune", "--older-than", "1h")
	require.NoError(t, err)
	require.Contains(t, out, "pruned 0 runs")
}

func TestHistoryRequiresStore(t *testing.T) {
	_, err := run(t, "-c", testConfig(t, false), "history", "list")
	require.ErrorContains(t, err, "disabled")
}

func TestSolveOutcomes(t *testing.T) {
	cfg := testConfig(t, false)

	t.Run("math failure is reported, not returned", func(t *testing.T) {
		out, err := run(t, "-c", cfg, "solve", "-m", "bisection", "-f", "polynomial", "--a", "2", "--b", "3")
		require.NoError(t, err)
		require.Contains(t, out, "false")
		require.Contains(t, out, "opposite signs")
	})

	t.Run("trace table", func(t *testing.T) {
		out, err := run(t, "-c", cfg, "solve", "-m", "secant", "-f", "exponential")
		require.NoError(t, err)
		require.Contains(t, out, "F(X1)")
	})

	t.Run("plot points on request", func(t *testing.T) {
		out, err := run(t, "-c", cfg, "solve", "-m", "newton", "-f", "trigonometric", "--plot", "--samples", "10", "-o", "json")
		require.NoError(t, err)
		var env struct {
			FunctionPoints []json.RawMessage `json:"functionPoints"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &env))
		require.Len(t, env.FunctionPoints, 11)
	})

	t.Run("configuration error", func(t *testing.T) {
		_, err := run(t, "-c", cfg, "solve", "-m", "regula", "-f", "polynomial")
		require.True(t, engine.IsConfiguration(err), "got %v", err)
	})

	t.Run("policy rejection", func(t *testing.T) {
		_, err := run(t, "-c", cfg, "solve", "-m", "newton", "-f", "polynomial", "--max-iter", "20000")
		require.True(t, engine.IsPolicy(err), "got %v", err)
		require.Contains(t, err.Error(), "exceeds the limit")
	})
}

func TestSolveBatch(t *testing.T) {
	cfg := testConfig(t, false)
	batch := filepath.Join(t.TempDir(), "batch.yaml")
	writeFile(t, batch, `requests:
  - method: newton
    functionType: polynomial
  - method: bisection
    functionType: trigonometric
    tolerance: 1e-8
`)

	out, err := run(t, "-c", cfg, "solve", "--file", batch, "-o", "json")
	require.NoError(t, err)

	var envs []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &envs))
	require.Len(t, envs, 2)
	require.Equal(t, "bisection", envs[1]["method"])
	require.Equal(t, true, envs[1]["success"])
}

func TestCompare(t *testing.T) {
	out, err := run(t, "-c", testConfig(t, false), "compare", "-f", "trigonometric", "-o", "yaml")
	require.NoError(t, err)

	var cmp struct {
		FunctionType string                            `yaml:"functionType"`
		Methods      map[string]map[string]interface{} `yaml:"methods"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &cmp))
	require.Equal(t, "trigonometric", cmp.FunctionType)
	require.Len(t, cmp.Methods, 3)
	for name, env := range cmp.Methods {
		require.Equal(t, true, env["success"], name)
	}

	out, err = run(t, "-c", testConfig(t, false), "compare", "-f", "trigonometric")
	require.NoError(t, err)
	require.Contains(t, out, "ITERATIONS")
}

func TestSample(t *testing.T) {
	out, err := run(t, "-c", testConfig(t, false), "sample", "-f", "polynomial", "--xmin", "0", "--xmax", "3", "--count", "3", "-o", "json")
	require.NoError(t, err)

	var points []struct{ X, Y float64 }
	require.NoError(t, json.Unmarshal([]byte(out), &points))
	require.Len(t, points, 4)
	require.InDelta(t, 22.0, points[3].Y, 1e-12)
}

func TestScript(t *testing.T) {
	script := filepath.Join(t.TempDir(), "sweep.star")
	writeFile(t, script, `r = solve("newton", function)
ok = r["success"]
print("done")
`)

	out, err := run(t, "-c", testConfig(t, false), "script", script, "--set", "function=exponential", "-o", "json")
	require.NoError(t, err)

	var res struct {
		Output  map[string]interface{} `json:"output"`
		Printed []string               `json:"printed"`
		Solves  int                    `json:"solves"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, true, res.Output["ok"])
	require.Equal(t, []string{"done"}, res.Printed)
	require.Equal(t, 1, res.Solves)
}

func TestScriptErrorStillReports(t *testing.T) {
	script := filepath.Join(t.TempDir(), "broken.star")
	writeFile(t, script, `x = 1
y = {}["stop here"]
`)

	out, err := run(t, "-c", testConfig(t, false), "script", script)
	require.Error(t, err)
	require.Contains(t, out, "stop here")
}

func TestPolicies(t *testing.T) {
	cfg := testConfig(t, false)

	out, err := run(t, "-c", cfg, "policies", "list")
	require.NoError(t, err)
	require.Contains(t, out, "iteration-budget")
	require.Contains(t, out, "tolerance-floor")

	out, err = run(t, "-c", cfg, "policies", "show", "plot-domain")
	require.NoError(t, err)
	require.Contains(t, out, "package rootfind.policies")

	_, err = run(t, "-c", cfg, "policies", "show", "nope")
	require.ErrorContains(t, err, "policy not found")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	good := testConfig(t, true)
	out, err := run(t, "validate", good)
	require.NoError(t, err)
	require.Contains(t, out, "valid")
	require.Contains(t, out, "Policies:")

	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, `solver:
  defaultTolerance: -1
`)
	out, err = run(t, "validate", bad)
	require.Error(t, err)
	require.Contains(t, out, "invalid")

	requests := filepath.Join(dir, "requests.json")
	writeFile(t, requests, `{"requests": [{"method": "newton", "functionType": "polynomial"}]}`)
	out, err = run(t, "validate", good, "--requests", requests, "-o", "json")
	require.NoError(t, err)

	var report validationReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.True(t, report.Valid)
	require.Equal(t, 1, report.Requests)
	require.Equal(t, 4, report.Policies)
}
