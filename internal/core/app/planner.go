package app

import (
	"acyclic/internal/core/config"
	"acyclic/internal/data/history"
	"acyclic/internal/data/manifest"
	"acyclic/internal/engine/patch"
	"acyclic/internal/output"
	"acyclic/internal/shared/observability"
	"acyclic/internal/shared/util"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Result is the outcome of one planning run.
type Result struct {
	BuildID  string
	Manifest *manifest.Manifest
	Patcher  *patch.Patcher
	Plan     output.Plan
	// Diff is set when history is enabled and an earlier build exists.
	Diff    *history.PlanDiff
	Written []string
	Elapsed time.Duration
}

// Plan loads the manifest, prepares the patcher, writes patched entry
// modules and reports, and records the build in history.
func (a *App) Plan(ctx context.Context) (Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Plan")
	defer span.End()
	start := time.Now()

	cfg := a.Config()
	m, err := manifest.Load(a.ManifestPath)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	span.SetAttributes(attribute.String("bundle", m.Name))

	p, err := patch.New(m, patch.Options{
		Markers:       markers(cfg),
		PatchedSuffix: cfg.Markers.PatchedSuffix,
		Analyzer:      a.currentAnalyzer(),
	})
	if err != nil {
		return Result{}, err
	}
	if err := p.Prepare(ctx, m); err != nil {
		span.RecordError(err)
		return Result{}, err
	}

	paths, err := config.ResolvePaths(cfg, m.Dir)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Manifest: m,
		Patcher:  p,
		Plan:     output.FromPatcher(m.Name, p, moduleLabels(m, p)),
	}

	if err := a.recordHistory(ctx, paths.HistoryPath, &res); err != nil {
		return Result{}, err
	}
	if err := writeOutputs(cfg, paths, &res); err != nil {
		return Result{}, err
	}

	res.Elapsed = time.Since(start)
	observability.AnalysisDuration.WithLabelValues("plan").Observe(res.Elapsed.Seconds())
	slog.Info("plan written",
		"bundle", m.Name,
		"build_id", res.BuildID,
		"banned_edges", len(res.Plan.Banned),
		"files", len(res.Written),
		"heap_mb", util.HeapAllocMB())
	return res, nil
}

func moduleLabels(m *manifest.Manifest, p *patch.Patcher) map[string]string {
	labels := make(map[string]string)
	for _, id := range p.Graph().Nodes() {
		if mod, ok := m.Module(id); ok && mod.FilePath != "" {
			labels[id] = mod.FilePath
		}
	}
	return labels
}

func (a *App) recordHistory(ctx context.Context, path string, res *Result) error {
	store, err := a.historyStore(path)
	if err != nil {
		return err
	}
	if store == nil {
		return nil
	}

	snap := history.Snapshot{
		Bundle:      res.Plan.Bundle,
		ModuleCount: res.Plan.Graph.Len(),
		EdgeCount:   res.Plan.Graph.EdgeCount(),
		RootCount:   len(res.Plan.Roots),
		Order:       res.Plan.Order,
	}
	for _, e := range res.Plan.Banned {
		snap.Banned = append(snap.Banned, history.Edge{From: e.From, To: e.To})
	}

	prev, hasPrev, err := store.Latest(ctx, snap.Bundle)
	if err != nil {
		return err
	}
	saved, err := store.SaveSnapshot(ctx, snap)
	if err != nil {
		return err
	}

	res.BuildID = saved.BuildID
	res.Plan.BuildID = saved.BuildID
	res.Plan.GeneratedAt = saved.Timestamp
	if hasPrev {
		diff := history.Diff(prev, saved)
		res.Diff = &diff
	}
	return nil
}

func writeOutputs(cfg *config.Config, paths config.ResolvedPaths, res *Result) error {
	if err := output.WritePlan(paths.PlanPath, res.Plan); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	res.Written = append(res.Written, paths.PlanPath)

	if cfg.Output.DOT != "" {
		dot, err := output.NewDOTGenerator(res.Plan).Generate()
		if err != nil {
			return err
		}
		if err := util.WriteStringWithDirs(paths.DOTPath, dot, 0o644); err != nil {
			return fmt.Errorf("write dot: %w", err)
		}
		res.Written = append(res.Written, paths.DOTPath)
	}

	if cfg.Output.Mermaid != "" {
		mmd, err := output.NewMermaidGenerator(res.Plan).Generate()
		if err != nil {
			return err
		}
		if err := util.WriteStringWithDirs(paths.MermaidPath, mmd, 0o644); err != nil {
			return fmt.Errorf("write mermaid: %w", err)
		}
		res.Written = append(res.Written, paths.MermaidPath)
	}

	for _, root := range res.Patcher.Roots() {
		code, _ := res.Manifest.Source(root)
		patched := res.Patcher.UpdateModuleCode(root, code, nil)
		target := filepath.Join(paths.CodeDir, patchedFileName(res.Manifest, root))
		if err := util.WriteStringWithDirs(target, patched, 0o644); err != nil {
			return fmt.Errorf("write patched module %s: %w", root, err)
		}
		res.Written = append(res.Written, target)
	}
	return nil
}

// patchedFileName keeps the module's relative path so entry modules with
// the same base name do not collide.
func patchedFileName(m *manifest.Manifest, id string) string {
	mod, ok := m.Module(id)
	if !ok || mod.FilePath == "" {
		return id + ".js"
	}
	if rel, ok := util.ContainedPath(mod.FilePath); ok {
		return rel
	}
	return filepath.Base(mod.FilePath)
}
