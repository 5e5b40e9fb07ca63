// # internal/core/config/config_test.go
package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "acyclic.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
version = 1

[analyzer]
language = " TypeScript "
cache_size = 64
workers = 8

[markers]
patched_suffix = "PATCHED:esm"

[output]
dir = "out"
dot = "modules.dot"

[history]
enabled = true
busy_timeout = "2s"

[watch]
debounce = "1s"
exclude_files = ["*.map", " ", "dist/**"]
max_rebuilds_per_second = 0.5

[observability]
enabled = true
metrics_addr = "0.0.0.0:9100"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Analyzer.Language != "typescript" {
		t.Errorf("expected normalized language, got %q", cfg.Analyzer.Language)
	}
	if cfg.Analyzer.CacheSize != 64 || cfg.Analyzer.Workers != 8 {
		t.Errorf("unexpected analyzer section: %+v", cfg.Analyzer)
	}
	if cfg.Markers.Separator != "$" || cfg.Markers.PatchedSuffix != "PATCHED:esm" {
		t.Errorf("unexpected markers: %+v", cfg.Markers)
	}
	if cfg.Output.DOT != "modules.dot" || cfg.Output.Mermaid != "graph.mmd" {
		t.Errorf("unexpected output: %+v", cfg.Output)
	}
	if !cfg.History.Enabled || cfg.History.BusyTimeout != 2*time.Second {
		t.Errorf("unexpected history: %+v", cfg.History)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("expected 1s debounce, got %v", cfg.Watch.Debounce)
	}
	if len(cfg.Watch.ExcludeFiles) != 2 {
		t.Errorf("expected blank exclude patterns dropped, got %v", cfg.Watch.ExcludeFiles)
	}
	if cfg.Observability.ServiceName != "acyclic" {
		t.Errorf("expected default service name, got %q", cfg.Observability.ServiceName)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if errs := Validate(cfg); len(errs) != 0 {
		t.Fatalf("default config must validate, got %v", errs)
	}
	if cfg.Analyzer.Language != "javascript" || cfg.Analyzer.CacheSize != 1024 {
		t.Errorf("unexpected analyzer defaults: %+v", cfg.Analyzer)
	}
	if cfg.Markers.PatchedSuffix != "THIS_IS_PATCHED_DEPENDENCY:esm" {
		t.Errorf("unexpected patched suffix %q", cfg.Markers.PatchedSuffix)
	}
	if cfg.History.Enabled {
		t.Error("history must be opt-in")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unsupported version",
			content: "version = 3",
			wantErr: "unsupported config version 3",
		},
		{
			name:    "unknown language",
			content: "[analyzer]\nlanguage = \"python\"",
			wantErr: "analyzer.language must be one of",
		},
		{
			name:    "same keywords",
			content: "[markers]\nimport_keyword = \"x\"\nexport_keyword = \"x\"",
			wantErr: "must differ",
		},
		{
			name:    "quoted suffix",
			content: "[markers]\npatched_suffix = 'a\"b'",
			wantErr: "markers.patched_suffix",
		},
		{
			name:    "output conflict",
			content: "[output]\ndot = \"graph.out\"\nmermaid = \"graph.out\"",
			wantErr: `output conflict: output.dot and output.mermaid share the same path "graph.out"`,
		},
		{
			name:    "bad glob",
			content: "[watch]\nexclude_files = [\"[\"]",
			wantErr: "watch.exclude_files[0]",
		},
		{
			name:    "tracing without endpoint",
			content: "[observability]\nenabled = true\nenable_tracing = true",
			wantErr: "observability.otlp_endpoint",
		},
		{
			name:    "bad toml",
			content: "[analyzer\n",
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestValidate_CollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Version = 9
	cfg.Analyzer.Workers = 0
	cfg.Markers.Separator = ""

	if errs := Validate(cfg); len(errs) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(errs), errs)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("ACYCLIC_ANALYZER_WORKERS", "16")
	t.Setenv("ACYCLIC_ANALYZER_CACHE_SIZE", "not-a-number")
	t.Setenv("ACYCLIC_HISTORY_ENABLED", "TRUE")
	t.Setenv("ACYCLIC_WATCH_DEBOUNCE", "250ms")
	t.Setenv("ACYCLIC_OBSERVABILITY_OTLP_ENDPOINT", "collector:4317")

	cfg := Default()
	ApplyEnvOverrides(cfg)

	if cfg.Analyzer.Workers != 16 {
		t.Errorf("expected workers override, got %d", cfg.Analyzer.Workers)
	}
	if cfg.Analyzer.CacheSize != 1024 {
		t.Errorf("invalid int must be ignored, got %d", cfg.Analyzer.CacheSize)
	}
	if !cfg.History.Enabled {
		t.Error("expected history enabled")
	}
	if cfg.Watch.Debounce != 250*time.Millisecond {
		t.Errorf("expected 250ms debounce, got %v", cfg.Watch.Debounce)
	}
	if cfg.Observability.OTLPEndpoint != "collector:4317" {
		t.Errorf("unexpected endpoint %q", cfg.Observability.OTLPEndpoint)
	}
}

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.History.Path = filepath.Join(base, "abs", "history.db")

	got, err := ResolvePaths(cfg, base)
	if err != nil {
		t.Fatal(err)
	}
	if got.OutputDir != filepath.Join(base, "acyclic-out") {
		t.Errorf("unexpected output dir %q", got.OutputDir)
	}
	if got.DOTPath != filepath.Join(base, "acyclic-out", "graph.dot") {
		t.Errorf("unexpected dot path %q", got.DOTPath)
	}
	if got.HistoryPath != filepath.Join(base, "abs", "history.db") {
		t.Errorf("absolute history path must be kept, got %q", got.HistoryPath)
	}

	if _, err := ResolvePaths(cfg, " "); err == nil {
		t.Error("expected error for empty base dir")
	}
}

func TestWatcher_Reload(t *testing.T) {
	path := writeConfig(t, "[analyzer]\nworkers = 2\n")

	reloaded := make(chan *Config, 4)
	w := NewWatcher(path, func(cfg *Config) { reloaded <- cfg })
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("[analyzer]\nworkers = 6\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Truncate-then-write can surface an intermediate empty file; wait for
	// the final content.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-reloaded:
			if cfg.Analyzer.Workers == 6 {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for config reload")
		}
	}
}
