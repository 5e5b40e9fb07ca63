package app

import (
	"acyclic/internal/core/config"
	"acyclic/internal/core/watcher"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
)

// Watch plans once, then re-plans whenever module code or the manifest
// changes until ctx is done. Failed builds are reported and the watch
// continues.
func (a *App) Watch(ctx context.Context) error {
	a.rebuild(ctx, nil)

	cfg := a.Config()
	root := filepath.Dir(a.ManifestPath)
	paths, err := config.ResolvePaths(cfg, root)
	if err != nil {
		return err
	}

	w, err := watcher.NewWatcher(
		cfg.Watch.Debounce,
		[]string{filepath.Base(paths.OutputDir), "node_modules", ".git"},
		cfg.Watch.ExcludeFiles,
		a.rebuild,
	)
	if err != nil {
		return err
	}
	w.SetRateLimit(cfg.Watch.MaxRebuildsPerSecond)
	if err := w.Watch(ctx, []string{root}); err != nil {
		_ = w.Close()
		return err
	}

	if a.ConfigPath != "" {
		cw := config.NewWatcher(a.ConfigPath, func(next *config.Config) {
			if err := a.SetConfig(next); err != nil {
				slog.Warn("config change rejected", "error", err)
				return
			}
			w.SetDebounce(next.Watch.Debounce)
			w.SetRateLimit(next.Watch.MaxRebuildsPerSecond)
			w.Trigger(a.ConfigPath)
		})
		if err := cw.Start(ctx); err != nil {
			return err
		}
		defer cw.Stop()
	}

	slog.Info("watching for changes", "root", root)
	<-ctx.Done()
	return nil
}

func (a *App) rebuild(ctx context.Context, changed []string) {
	if len(changed) > 0 {
		slog.Info("rebuilding", "changed", len(changed), "first", changed[0])
	}
	res, err := a.Plan(ctx)
	if err != nil {
		slog.Error("build failed", "error", err)
		fmt.Fprintln(a.Out, RenderError(err))
		return
	}
	fmt.Fprint(a.Out, a.Render(res))
}
