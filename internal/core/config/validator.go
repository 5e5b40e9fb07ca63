package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

var supportedLanguages = []string{"javascript", "typescript", "tsx"}

// Validate runs every check and collects all failures instead of stopping
// at the first one.
func Validate(cfg *Config) []error {
	checks := []func(*Config) error{
		validateVersion,
		validateAnalyzer,
		validateMarkers,
		validateOutput,
		validateHistory,
		validateWatch,
		validateObservability,
	}
	var errs []error
	for _, check := range checks {
		if err := check(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateAnalyzer(cfg *Config) error {
	lang := strings.ToLower(strings.TrimSpace(cfg.Analyzer.Language))
	found := false
	for _, l := range supportedLanguages {
		if l == lang {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("analyzer.language must be one of: %s", strings.Join(supportedLanguages, ", "))
	}
	if cfg.Analyzer.CacheSize < 1 {
		return fmt.Errorf("analyzer.cache_size must be >= 1")
	}
	if cfg.Analyzer.Workers < 1 || cfg.Analyzer.Workers > 256 {
		return fmt.Errorf("analyzer.workers must be between 1 and 256")
	}
	return nil
}

func validateMarkers(cfg *Config) error {
	m := cfg.Markers
	if m.Separator == "" {
		return fmt.Errorf("markers.separator must not be empty")
	}
	if m.ImportKeyword == "" || m.ExportKeyword == "" {
		return fmt.Errorf("markers.import_keyword and markers.export_keyword must not be empty")
	}
	if m.ImportKeyword == m.ExportKeyword {
		return fmt.Errorf("markers.import_keyword and markers.export_keyword must differ, both are %q", m.ImportKeyword)
	}
	if strings.Contains(m.ImportKeyword, m.Separator) || strings.Contains(m.ExportKeyword, m.Separator) {
		return fmt.Errorf("marker keywords must not contain the separator %q", m.Separator)
	}
	if m.PatchedSuffix == "" {
		return fmt.Errorf("markers.patched_suffix must not be empty")
	}
	if strings.ContainsAny(m.PatchedSuffix, "\"'\n\\") {
		return fmt.Errorf("markers.patched_suffix must not contain quotes, backslashes or newlines")
	}
	return nil
}

func validateOutput(cfg *Config) error {
	if cfg.Output.Dir == "" {
		return fmt.Errorf("output.dir must not be empty")
	}

	targets := []struct {
		key  string
		path string
	}{
		{"output.dot", cfg.Output.DOT},
		{"output.mermaid", cfg.Output.Mermaid},
		{"output.plan", cfg.Output.Plan},
		{"output.code", cfg.Output.Code},
	}
	seen := make(map[string]string, len(targets))
	for _, target := range targets {
		if target.path == "" {
			return fmt.Errorf("%s must not be empty", target.key)
		}
		clean := filepath.Clean(target.path)
		if prev, ok := seen[clean]; ok {
			return fmt.Errorf("output conflict: %s and %s share the same path %q", prev, target.key, target.path)
		}
		seen[clean] = target.key
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if !cfg.History.Enabled {
		return nil
	}
	if cfg.History.Path == "" {
		return fmt.Errorf("history.path must not be empty when history.enabled=true")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if cfg.Watch.MaxRebuildsPerSecond <= 0 {
		return fmt.Errorf("watch.max_rebuilds_per_second must be > 0")
	}
	for i, pattern := range cfg.Watch.ExcludeFiles {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("watch.exclude_files[%d] %q is not a valid glob: %w", i, pattern, err)
		}
	}
	return nil
}

func validateObservability(cfg *Config) error {
	obs := cfg.Observability
	if !obs.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(obs.MetricsAddr); err != nil {
		return fmt.Errorf("observability.metrics_addr %q must be host:port: %w", obs.MetricsAddr, err)
	}
	if obs.EnableTracing && obs.OTLPEndpoint == "" {
		return fmt.Errorf("observability.otlp_endpoint must be set when observability.enable_tracing=true")
	}
	return nil
}
