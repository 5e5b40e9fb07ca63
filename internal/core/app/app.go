// # internal/core/app/app.go
package app

import (
	"acyclic/internal/core/config"
	"acyclic/internal/data/history"
	"acyclic/internal/engine/analyzer"
	"acyclic/internal/engine/symbols"
	"acyclic/internal/shared/observability"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// App owns the long-lived pieces of a planning session: the analyzer with
// its cache, the history store and the observability endpoints. One App
// plans one manifest, repeatedly in watch mode.
type App struct {
	ManifestPath string
	// ConfigPath, when set, is reloaded on change in watch mode.
	ConfigPath string
	Out        io.Writer

	mu       sync.Mutex
	config   *config.Config
	analyzer *analyzer.Analyzer
	history  *history.Store

	metricsServer   *observability.Server
	shutdownTracing func(context.Context) error
}

func New(cfg *config.Config, manifestPath string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if strings.TrimSpace(manifestPath) == "" {
		return nil, fmt.Errorf("manifest path is required")
	}
	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return nil, err
	}

	an, err := newAnalyzer(cfg)
	if err != nil {
		return nil, err
	}
	return &App{
		ManifestPath: abs,
		Out:          os.Stdout,
		config:       cfg,
		analyzer:     an,
	}, nil
}

func newAnalyzer(cfg *config.Config) (*analyzer.Analyzer, error) {
	return analyzer.New(analyzer.Options{
		Language:  cfg.Analyzer.Language,
		CacheSize: cfg.Analyzer.CacheSize,
		Workers:   cfg.Analyzer.Workers,
		Markers:   markers(cfg),
	})
}

func markers(cfg *config.Config) symbols.Markers {
	return symbols.Markers{
		Separator:     cfg.Markers.Separator,
		ImportKeyword: cfg.Markers.ImportKeyword,
		ExportKeyword: cfg.Markers.ExportKeyword,
	}
}

// Config returns the configuration currently in effect.
func (a *App) Config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config
}

// SetConfig swaps the configuration used by later builds. The analyzer is
// rebuilt when its settings changed and the history store is reopened
// lazily.
func (a *App) SetConfig(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if cfg.Analyzer != a.config.Analyzer || cfg.Markers != a.config.Markers {
		an, err := newAnalyzer(cfg)
		if err != nil {
			return err
		}
		a.analyzer = an
	}
	if cfg.History != a.config.History && a.history != nil {
		if err := a.history.Close(); err != nil {
			slog.Warn("failed to close history store", "error", err)
		}
		a.history = nil
	}
	a.config = cfg
	return nil
}

func (a *App) currentAnalyzer() *analyzer.Analyzer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.analyzer
}

// Start brings up the metrics endpoint and tracing when enabled.
func (a *App) Start(ctx context.Context) error {
	cfg := a.Config()
	if !cfg.Observability.Enabled {
		return nil
	}

	if cfg.Observability.MetricsAddr != "" {
		a.metricsServer = observability.NewServer(cfg.Observability.MetricsAddr)
		if err := a.metricsServer.Start(); err != nil {
			return err
		}
	}
	if cfg.Observability.EnableTracing {
		shutdown, err := observability.InitTracing(ctx, cfg.Observability.ServiceName, cfg.Observability.OTLPEndpoint)
		if err != nil {
			return err
		}
		a.shutdownTracing = shutdown
	}
	return nil
}

func (a *App) Close(ctx context.Context) error {
	var errs []string
	if a.metricsServer != nil {
		if err := a.metricsServer.Stop(ctx); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			errs = append(errs, err.Error())
		}
	}

	a.mu.Lock()
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		a.history = nil
	}
	a.mu.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("close app: %s", strings.Join(errs, "; "))
	}
	return nil
}

// historyStore opens the store on first use. A corrupt database disables
// history for the session instead of failing the build.
func (a *App) historyStore(path string) (*history.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.config.History.Enabled {
		return nil, nil
	}
	if a.history != nil && a.history.Path() == path {
		return a.history, nil
	}
	if a.history != nil {
		_ = a.history.Close()
		a.history = nil
	}

	store, err := history.Open(path, a.config.History.BusyTimeout)
	if err != nil {
		if history.IsCorruptError(err) {
			slog.Warn("history database is corrupt, continuing without history", "path", path, "error", err)
			return nil, nil
		}
		return nil, err
	}
	a.history = store
	return store, nil
}
