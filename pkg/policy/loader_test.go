package policy

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/openfroyo/rootfind/pkg/telemetry"
)

func TestLoadFromFile_Rego(t *testing.T) {
	loader := NewLoader(zerolog.Nop())

	policyFile := filepath.Join(t.TempDir(), "newton-start.rego")
	writeFile(t, policyFile, newtonStartRego)

	policy, err := loader.loadFromFile(context.Background(), policyFile)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}

	if policy.Name != "newton-start" {
		t.Errorf("Expected name 'newton-start', got '%s'", policy.Name)
	}
	if policy.Rego != newtonStartRego {
		t.Error("Rego content doesn't match")
	}
	if policy.Description != "Newton must start inside the plot window." {
		t.Errorf("unexpected description %q", policy.Description)
	}
	if !policy.Enabled || policy.Severity != SeverityWarning || policy.Source != policyFile {
		t.Errorf("unexpected defaults: %+v", policy)
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	loader := NewLoader(zerolog.Nop())

	def := map[string]interface{}{
		"name":        "newton-start",
		"description": "Newton start guard",
		"severity":    "error",
		"rego":        newtonStartRego,
		"builtin":     true,
	}
	data, _ := json.Marshal(def)
	policyFile := filepath.Join(t.TempDir(), "newton.json")
	writeFile(t, policyFile, string(data))

	policy, err := loader.loadFromFile(context.Background(), policyFile)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}
	if policy.Name != "newton-start" || policy.Severity != SeverityError {
		t.Errorf("unexpected policy: %+v", policy)
	}
	if !policy.Enabled {
		t.Error("Policy should be enabled by default")
	}
	if policy.Builtin {
		t.Error("definitions on disk must never be marked builtin")
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	loader := NewLoader(zerolog.Nop())

	content := `name: sample-cap
description: keep plots small
severity: warning
enabled: false
rego: |
  package rootfind.policies.sample_cap

  import rego.v1

  deny contains "too many samples" if input.sampleCount > 1000
`
	policyFile := filepath.Join(t.TempDir(), "sample-cap.yaml")
	writeFile(t, policyFile, content)

	policy, err := loader.loadFromFile(context.Background(), policyFile)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}
	if policy.Name != "sample-cap" || policy.Enabled {
		t.Errorf("unexpected policy: %+v", policy)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	loader := NewLoader(zerolog.Nop())
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unsupported type", "policy.txt", "package x"},
		{"invalid json", "bad.json", "{not json"},
		{"missing name", "anon.json", `{"rego": "package x"}`},
		{"missing rego", "empty.yaml", "name: empty\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			writeFile(t, path, tt.content)

			if _, err := loader.loadFromFile(context.Background(), path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFromDirectory_Recursive(t *testing.T) {
	loader := NewLoader(zerolog.Nop())

	dir := t.TempDir()
	nested := filepath.Join(dir, "nested")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "a.rego"), newtonStartRego)
	writeFile(t, filepath.Join(nested, "b.rego"), newtonStartRego)
	writeFile(t, filepath.Join(dir, "README.md"), "not a policy")
	writeFile(t, filepath.Join(dir, "broken.json"), "{")

	policies, err := loader.LoadFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Failed to load directory: %v", err)
	}
	if len(policies) != 2 {
		t.Fatalf("expected 2 policies, got %d", len(policies))
	}
}

func TestLoadFromPath_NonExistent(t *testing.T) {
	loader := NewLoader(zerolog.Nop())

	_, err := loader.LoadFromPaths(context.Background(), []string{"/non/existent/path"})
	if err == nil {
		t.Error("Expected error for non-existent path")
	}
}

func TestExtractDescription(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "single line",
			content:  "# Guard newton starts\npackage x",
			expected: "Guard newton starts",
		},
		{
			name:     "multi line",
			content:  "# Guard newton\n# starts\n\npackage x",
			expected: "Guard newton starts",
		},
		{
			name:     "no comment",
			content:  "package x\n# trailing",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractDescription(tt.content); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestClearCache(t *testing.T) {
	loader := NewLoader(zerolog.Nop())

	path := filepath.Join(t.TempDir(), "p.rego")
	writeFile(t, path, newtonStartRego)

	if _, err := loader.loadFromFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, "# changed\n"+newtonStartRego)

	cached, _ := loader.loadFromFile(context.Background(), path)
	if cached.Description != "Newton must start inside the plot window." {
		t.Error("expected cached policy before ClearCache")
	}

	loader.ClearCache()
	fresh, _ := loader.loadFromFile(context.Background(), path)
	if fresh.Description != "changed Newton must start inside the plot window." {
		t.Errorf("expected fresh policy after ClearCache, got %q", fresh.Description)
	}
}

func TestWatchReloadsPolicies(t *testing.T) {
	dir := t.TempDir()

	tel := telemetry.Nop()
	var reloads atomic.Int32
	tel.Events.Subscribe(func(telemetry.Event) {
		reloads.Add(1)
	}, telemetry.FilterByType(telemetry.EventTypePolicyReloaded))

	eng := newTestEngine(t, WithEvents(tel.Events))
	eng.loader.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, eng.LoadPolicies(ctx, []string{dir}))
	require.NoError(t, eng.Watch(ctx, []string{dir}))
	defer eng.Close()

	writeFile(t, filepath.Join(dir, "newton-start.rego"), newtonStartRego)

	require.Eventually(t, func() bool {
		_, err := eng.GetPolicy("newton-start")
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool { return reloads.Load() >= 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, "newton-start.rego")))
	require.Eventually(t, func() bool {
		_, err := eng.GetPolicy("newton-start")
		return err != nil
	}, 5*time.Second, 20*time.Millisecond)
}
