package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolvedPaths holds absolute-or-base-relative locations of every file a
// run writes.
type ResolvedPaths struct {
	OutputDir   string
	DOTPath     string
	MermaidPath string
	PlanPath    string
	CodeDir     string
	HistoryPath string
}

// ResolvePaths anchors relative output and history paths at baseDir,
// normally the directory holding the bundle manifest.
func ResolvePaths(cfg *Config, baseDir string) (ResolvedPaths, error) {
	if strings.TrimSpace(baseDir) == "" {
		return ResolvedPaths{}, fmt.Errorf("base directory must not be empty")
	}

	outputDir := ResolveRelative(baseDir, cfg.Output.Dir)
	return ResolvedPaths{
		OutputDir:   outputDir,
		DOTPath:     ResolveRelative(outputDir, cfg.Output.DOT),
		MermaidPath: ResolveRelative(outputDir, cfg.Output.Mermaid),
		PlanPath:    ResolveRelative(outputDir, cfg.Output.Plan),
		CodeDir:     ResolveRelative(outputDir, cfg.Output.Code),
		HistoryPath: ResolveRelative(outputDir, cfg.History.Path),
	}, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}
