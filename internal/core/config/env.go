package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: ACYCLIC_[SECTION]_[KEY] (e.g., ACYCLIC_ANALYZER_WORKERS).
func ApplyEnvOverrides(cfg *Config) {
	// Analyzer
	setEnvString(&cfg.Analyzer.Language, "ACYCLIC_ANALYZER_LANGUAGE")
	setEnvInt(&cfg.Analyzer.CacheSize, "ACYCLIC_ANALYZER_CACHE_SIZE")
	setEnvInt(&cfg.Analyzer.Workers, "ACYCLIC_ANALYZER_WORKERS")

	// Markers
	setEnvString(&cfg.Markers.PatchedSuffix, "ACYCLIC_MARKERS_PATCHED_SUFFIX")

	// Output
	setEnvString(&cfg.Output.Dir, "ACYCLIC_OUTPUT_DIR")

	// History
	setEnvBool(&cfg.History.Enabled, "ACYCLIC_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "ACYCLIC_HISTORY_PATH")
	setEnvDuration(&cfg.History.BusyTimeout, "ACYCLIC_HISTORY_BUSY_TIMEOUT")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "ACYCLIC_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.MaxRebuildsPerSecond, "ACYCLIC_WATCH_MAX_REBUILDS_PER_SECOND")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "ACYCLIC_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.MetricsAddr, "ACYCLIC_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "ACYCLIC_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "ACYCLIC_OBSERVABILITY_ENABLE_TRACING")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
