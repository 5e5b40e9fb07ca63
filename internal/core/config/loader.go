package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	normalize(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateAnalyzer(&cfg); err != nil {
		return nil, err
	}
	if err := validateMarkers(&cfg); err != nil {
		return nil, err
	}
	if err := validateOutput(&cfg); err != nil {
		return nil, err
	}
	if err := validateHistory(&cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(&cfg); err != nil {
		return nil, err
	}
	if err := validateObservability(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Analyzer.Language) == "" {
		cfg.Analyzer.Language = "javascript"
	}
	if cfg.Analyzer.CacheSize <= 0 {
		cfg.Analyzer.CacheSize = 1024
	}
	if cfg.Analyzer.Workers <= 0 {
		cfg.Analyzer.Workers = 4
	}

	if cfg.Markers.Separator == "" {
		cfg.Markers.Separator = "$"
	}
	if strings.TrimSpace(cfg.Markers.ImportKeyword) == "" {
		cfg.Markers.ImportKeyword = "import"
	}
	if strings.TrimSpace(cfg.Markers.ExportKeyword) == "" {
		cfg.Markers.ExportKeyword = "export"
	}
	if strings.TrimSpace(cfg.Markers.PatchedSuffix) == "" {
		cfg.Markers.PatchedSuffix = "THIS_IS_PATCHED_DEPENDENCY:esm"
	}

	if strings.TrimSpace(cfg.Output.Dir) == "" {
		cfg.Output.Dir = "acyclic-out"
	}
	if strings.TrimSpace(cfg.Output.DOT) == "" {
		cfg.Output.DOT = "graph.dot"
	}
	if strings.TrimSpace(cfg.Output.Mermaid) == "" {
		cfg.Output.Mermaid = "graph.mmd"
	}
	if strings.TrimSpace(cfg.Output.Plan) == "" {
		cfg.Output.Plan = "plan.toml"
	}
	if strings.TrimSpace(cfg.Output.Code) == "" {
		cfg.Output.Code = "patched"
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = "history.db"
	}
	if cfg.History.BusyTimeout <= 0 {
		cfg.History.BusyTimeout = 5 * time.Second
	}

	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.MaxRebuildsPerSecond <= 0 {
		cfg.Watch.MaxRebuildsPerSecond = 2
	}

	if strings.TrimSpace(cfg.Observability.MetricsAddr) == "" {
		cfg.Observability.MetricsAddr = "127.0.0.1:9464"
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "acyclic"
	}
}

func normalize(cfg *Config) {
	cfg.Analyzer.Language = strings.ToLower(strings.TrimSpace(cfg.Analyzer.Language))
	cfg.Markers.ImportKeyword = strings.TrimSpace(cfg.Markers.ImportKeyword)
	cfg.Markers.ExportKeyword = strings.TrimSpace(cfg.Markers.ExportKeyword)
	cfg.Markers.PatchedSuffix = strings.TrimSpace(cfg.Markers.PatchedSuffix)
	cfg.Output.Dir = strings.TrimSpace(cfg.Output.Dir)
	cfg.Output.DOT = strings.TrimSpace(cfg.Output.DOT)
	cfg.Output.Mermaid = strings.TrimSpace(cfg.Output.Mermaid)
	cfg.Output.Plan = strings.TrimSpace(cfg.Output.Plan)
	cfg.Output.Code = strings.TrimSpace(cfg.Output.Code)
	cfg.History.Path = strings.TrimSpace(cfg.History.Path)
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)

	if len(cfg.Watch.ExcludeFiles) == 0 {
		return
	}
	patterns := make([]string, 0, len(cfg.Watch.ExcludeFiles))
	for _, p := range cfg.Watch.ExcludeFiles {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	cfg.Watch.ExcludeFiles = patterns
}
