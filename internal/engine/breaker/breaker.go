// # internal/engine/breaker/breaker.go
package breaker

import (
	"acyclic/internal/core/errors"
	"acyclic/internal/core/ports"
	"acyclic/internal/engine/graph"
	"acyclic/internal/engine/symbols"
	"acyclic/internal/shared/observability"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Options struct {
	Markers symbols.Markers
}

// Breaker selects the cold edges that have to be banned so the module graph
// becomes acyclic. It works on a private clone; the caller's graph is never
// modified.
type Breaker struct {
	graph    *graph.Graph[string]
	bundle   ports.BundleGraph
	sources  ports.SourceProvider
	analyzer ports.HotUsageAnalyzer
	markers  symbols.Markers

	hotDeps map[string][]string
	banned  BannedEdges
	cuts    []Cut
	done    bool
}

func New(g *graph.Graph[string], bundle ports.BundleGraph, sources ports.SourceProvider, analyzer ports.HotUsageAnalyzer, opts Options) *Breaker {
	if opts.Markers == (symbols.Markers{}) {
		opts.Markers = symbols.DefaultMarkers()
	}
	return &Breaker{
		graph:    g.Clone(),
		bundle:   bundle,
		sources:  sources,
		analyzer: analyzer,
		markers:  opts.Markers,
		hotDeps:  make(map[string][]string),
	}
}

// BannedEdges runs the selection once and returns the memoised result on
// subsequent calls.
func (b *Breaker) BannedEdges(ctx context.Context) (BannedEdges, error) {
	if b.done {
		return b.banned, nil
	}

	_, span := observability.Tracer.Start(ctx, "breaker.BannedEdges",
		trace.WithAttributes(attribute.Int("nodes", b.graph.Len())))
	defer span.End()

	start := time.Now()
	banned, err := b.selectBannedEdges()
	observability.AnalysisDuration.WithLabelValues("break_cycles").Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("banned_edges", banned.Len()))
	b.banned = banned
	b.done = true
	return banned, nil
}

// Cuts returns the banned edges in the order they were chosen.
func (b *Breaker) Cuts() []Cut {
	return slices.Clone(b.cuts)
}

func (b *Breaker) selectBannedEdges() (BannedEdges, error) {
	banned := make(BannedEdges)

	b.graph.RemoveAllNonCyclicNodes()
	observability.CyclicNodes.Set(float64(b.graph.Len()))
	if b.graph.Len() == 0 {
		return banned, nil
	}

	origins, err := symbols.BuildOrigins(b.graph.NodesByOutgoingCountAsc(), bundleExports{b.bundle}, b.markers)
	if err != nil {
		return nil, err
	}

	for b.graph.Len() > 0 {
		cut := false
		for _, id := range b.graph.NodesByOutgoingCountAsc() {
			cold, err := b.coldDependencies(id, origins)
			if err != nil {
				return nil, err
			}
			if len(cold) == 0 {
				continue
			}

			target := cold[0]
			b.recordCut(id, target)
			banned.Add(id, target)
			if err := b.graph.RemoveDependencyAndPrune(id, target); err != nil {
				return nil, err
			}
			cut = true
			break
		}
		if !cut {
			return nil, b.unresolvable()
		}
	}

	return banned, nil
}

// coldDependencies returns the sorted outgoing targets of id that are not
// hot dependencies.
func (b *Breaker) coldDependencies(id string, origins symbols.Origins) ([]string, error) {
	out, err := b.graph.Outgoing(id)
	if err != nil {
		return nil, err
	}
	hot, err := b.hotDependencies(id, origins)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(out, func(target string) bool {
		return slices.Contains(hot, target)
	}), nil
}

// hotDependencies resolves the symbols id reads during initialization to the
// modules that define them. Symbols with no known owner are ignored.
func (b *Breaker) hotDependencies(id string, origins symbols.Origins) ([]string, error) {
	if deps, ok := b.hotDeps[id]; ok {
		return deps, nil
	}

	code, ok := b.sources.Source(id)
	if !ok || code == "" {
		return nil, b.missingSource(id)
	}
	symbolIDs, err := b.analyzer.HotSymbolIDs(id, code)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxModule, id)
	}

	var deps []string
	for _, symbolID := range symbolIDs {
		if owner, ok := origins.Owner(symbolID); ok && !slices.Contains(deps, owner) {
			deps = append(deps, owner)
		}
	}
	b.hotDeps[id] = deps
	return deps, nil
}

func (b *Breaker) recordCut(from, to string) {
	cycle := []string{from}
	if path, ok := b.graph.ShortestPath(to, from); ok {
		cycle = append(cycle, path...)
	}
	b.cuts = append(b.cuts, Cut{From: from, To: to, Cycle: cycle})

	observability.EdgesCutTotal.Inc()
	slog.Debug("banned dependency",
		"from", b.label(from),
		"to", b.label(to),
		"cycle_length", len(cycle)-1)
}

func (b *Breaker) unresolvable() error {
	observability.UnresolvableCyclesTotal.Inc()

	rendered := b.graph.StringWithResolver(b.label)
	de := &errors.DomainError{
		Code: errors.CodeUnresolvableCycle,
		Message: "dependency graph contains circular dependencies that cannot be resolved. Module graph is\n" +
			rendered + "\nNote that there may be more than one cycle.",
	}
	return de.WithContext(errors.CtxOperation, "break_cycles").
		WithContext("cycles", len(b.graph.Cycles()))
}

func (b *Breaker) missingSource(id string) error {
	de := &errors.DomainError{
		Code:    errors.CodeMissingSource,
		Message: fmt.Sprintf("there is no code loaded for module %s", b.label(id)),
	}
	return de.WithContext(errors.CtxModule, id)
}

// label prefers the module's file path for human-facing output.
func (b *Breaker) label(id string) string {
	if m, ok := b.bundle.Module(id); ok && m.FilePath != "" {
		return m.FilePath
	}
	return id
}

type bundleExports struct {
	bundle ports.BundleGraph
}

func (e bundleExports) Exports(moduleID string) (map[string]string, bool) {
	m, ok := e.bundle.Module(moduleID)
	if !ok {
		return nil, false
	}
	return m.Symbols, true
}
