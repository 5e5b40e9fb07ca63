package config

import "time"

type Config struct {
	Version       int           `toml:"version"`
	Analyzer      Analyzer      `toml:"analyzer"`
	Markers       Markers       `toml:"markers"`
	Output        Output        `toml:"output"`
	History       History       `toml:"history"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Analyzer struct {
	Language  string `toml:"language"`
	CacheSize int    `toml:"cache_size"`
	Workers   int    `toml:"workers"`
}

// Markers describes the bundler's mangled-name format and the suffix used
// for synthesized import specifiers.
type Markers struct {
	Separator     string `toml:"separator"`
	ImportKeyword string `toml:"import_keyword"`
	ExportKeyword string `toml:"export_keyword"`
	PatchedSuffix string `toml:"patched_suffix"`
}

type Output struct {
	Dir     string `toml:"dir"`
	DOT     string `toml:"dot"`
	Mermaid string `toml:"mermaid"`
	Plan    string `toml:"plan"`
	// Code is the directory patched root modules are written to, relative
	// to Dir.
	Code string `toml:"code"`
}

type History struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Watch struct {
	Debounce             time.Duration `toml:"debounce"`
	ExcludeFiles         []string      `toml:"exclude_files"`
	MaxRebuildsPerSecond float64       `toml:"max_rebuilds_per_second"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	MetricsAddr   string `toml:"metrics_addr"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
	ServiceName   string `toml:"service_name"`
}

// Default returns a configuration with every default applied, used when no
// config file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	normalize(cfg)
	return cfg
}
