// # internal/engine/patch/patch.go
package patch

import (
	"acyclic/internal/core/errors"
	"acyclic/internal/core/ports"
	"acyclic/internal/engine/analyzer"
	"acyclic/internal/engine/breaker"
	"acyclic/internal/engine/graph"
	"acyclic/internal/engine/symbols"
	"acyclic/internal/shared/observability"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

const DefaultPatchedSuffix = "THIS_IS_PATCHED_DEPENDENCY:esm"

type Options struct {
	Markers symbols.Markers
	// PatchedSuffix is appended to module ids in synthesized specifiers so
	// packaging can tell them apart from ordinary ones.
	PatchedSuffix string
	// Analyzer defaults to a javascript tree-sitter analyzer.
	Analyzer ports.HotUsageAnalyzer
}

// warmer is implemented by analyzers that can pre-compute many modules
// concurrently before cycle breaking starts.
type warmer interface {
	AnalyzeAll(ctx context.Context, moduleIDs []string, sources ports.SourceProvider) error
}

// Patcher plans the emission order of one bundle and rewrites root modules
// so that banned edges are satisfied by synthesized imports.
type Patcher struct {
	bundle   ports.BundleGraph
	markers  symbols.Markers
	suffix   string
	analyzer ports.HotUsageAnalyzer

	graph        *graph.Graph[string]
	roots        map[string]struct{}
	rootList     []string
	order        []string
	banned       breaker.BannedEdges
	cuts         []breaker.Cut
	rootImports  []string
	rootDepsList []ports.Dependency
}

func New(bundle ports.BundleGraph, opts Options) (*Patcher, error) {
	if opts.Markers == (symbols.Markers{}) {
		opts.Markers = symbols.DefaultMarkers()
	}
	if opts.PatchedSuffix == "" {
		opts.PatchedSuffix = DefaultPatchedSuffix
	}
	if opts.Analyzer == nil {
		a, err := analyzer.New(analyzer.Options{Markers: opts.Markers})
		if err != nil {
			return nil, err
		}
		opts.Analyzer = a
	}

	return &Patcher{
		bundle:   bundle,
		markers:  opts.Markers,
		suffix:   opts.PatchedSuffix,
		analyzer: opts.Analyzer,
		roots:    make(map[string]struct{}),
		banned:   make(breaker.BannedEdges),
	}, nil
}

// Prepare builds the module graph, bans cold edges until it is acyclic,
// computes the emission order and synthesizes the import block for roots.
func (p *Patcher) Prepare(ctx context.Context, sources ports.SourceProvider) error {
	ctx, span := observability.Tracer.Start(ctx, "patch.Prepare")
	defer span.End()
	start := time.Now()

	built, err := BuildDependencyGraph(p.bundle)
	if err != nil {
		return err
	}
	p.rootList = built.Roots
	p.roots = make(map[string]struct{}, len(built.Roots))
	for _, id := range built.Roots {
		p.roots[id] = struct{}{}
	}
	p.graph = built.Graph.Clone()

	observability.GraphNodes.Set(float64(built.Graph.Len()))
	observability.GraphEdges.Set(float64(built.Graph.EdgeCount()))
	span.SetAttributes(
		attribute.Int("modules", built.Graph.Len()),
		attribute.Int("roots", len(built.Roots)))

	if w, ok := p.analyzer.(warmer); ok {
		cyclic := built.Graph.Clone()
		cyclic.RemoveAllNonCyclicNodes()
		// Failures are reported by the breaker if it inspects the module.
		if err := w.AnalyzeAll(ctx, cyclic.Nodes(), sources); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			slog.Debug("hot usage warm-up incomplete", "error", err)
		}
	}

	br := breaker.New(built.Graph, p.bundle, sources, p.analyzer, breaker.Options{Markers: p.markers})
	banned, err := br.BannedEdges(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	p.banned = banned
	p.cuts = br.Cuts()

	for _, e := range banned.Pairs() {
		if err := built.Graph.RemoveDependency(e.From, e.To); err != nil {
			return err
		}
	}
	order, err := built.Graph.SequenceAssumeNoCycles()
	if err != nil {
		span.RecordError(err)
		return err
	}
	p.order = order

	if err := p.synthesizeRootImports(built); err != nil {
		span.RecordError(err)
		return err
	}

	observability.AnalysisDuration.WithLabelValues("prepare").Observe(time.Since(start).Seconds())
	slog.Info("prepared module order",
		"modules", len(order),
		"roots", len(p.rootList),
		"banned_edges", banned.Len(),
		"duration", time.Since(start))
	return nil
}

func (p *Patcher) synthesizeRootImports(built *Built) error {
	rootSource := p.rootSourceModuleID()

	p.rootImports = p.rootImports[:0]
	p.rootDepsList = p.rootDepsList[:0]
	for _, id := range p.order {
		if p.IsRoot(id) {
			continue
		}
		p.rootImports = append(p.rootImports, fmt.Sprintf("import %q;", p.specifier(id)))

		deps := built.DependentsOf[id]
		idx := slices.IndexFunc(deps, func(d ports.Dependency) bool {
			return d.SourceModuleID == rootSource
		})
		if idx < 0 && len(deps) > 0 {
			idx = 0
		}
		if idx < 0 {
			de := &errors.DomainError{
				Code:    errors.CodeOrphanedDependent,
				Message: fmt.Sprintf("nothing depends on module %s, but it is still in the bundle graph", p.label(id)),
			}
			return de.WithContext(errors.CtxModule, id)
		}
		p.rootDepsList = append(p.rootDepsList, deps[idx])
	}
	return nil
}

// rootSourceModuleID is the source module of the first root that has any
// dependencies.
func (p *Patcher) rootSourceModuleID() string {
	for _, id := range p.rootList {
		if deps := p.bundle.Dependencies(id); len(deps) > 0 && deps[0].SourceModuleID != "" {
			return deps[0].SourceModuleID
		}
	}
	return ""
}

// RootImports returns the synthesized import block, one statement per line
// and each line newline-terminated.
func (p *Patcher) RootImports() string {
	var sb strings.Builder
	for _, line := range p.rootImports {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// UpdateModuleCode prepends the import block and a blank separator line to
// root modules. Mappings of the original code move down by the same amount.
// Other modules are returned unchanged.
func (p *Patcher) UpdateModuleCode(id, code string, sourceMap ports.SourceMap) string {
	if !p.IsRoot(id) {
		return code
	}
	if sourceMap != nil {
		sourceMap.OffsetLines(1, len(p.rootDepsList)+1)
	}
	return p.RootImports() + "\n" + code
}

// ModuleDependencies is the dependency list packaging should use for id.
func (p *Patcher) ModuleDependencies(id string) []ports.Dependency {
	if !p.IsRoot(id) {
		return p.bundle.Dependencies(id)
	}
	return slices.Clone(p.rootDepsList)
}

func (p *Patcher) ShouldVisitDependencyImports(id string) bool {
	return p.IsRoot(id)
}

// DependencyReplacement returns the patched specifier for dep, or false when
// dep does not resolve inside the bundle.
func (p *Patcher) DependencyReplacement(dep ports.Dependency) (string, bool) {
	target, ok := p.bundle.ResolveDependency(dep)
	if !ok {
		return "", false
	}
	return p.specifier(target), true
}

// ExportLocalName rebinds export locals of root modules to a root-relative
// canonical name.
func (p *Patcher) ExportLocalName(id, local string) (string, error) {
	if !p.IsRoot(id) {
		return local, nil
	}
	name, err := p.markers.CanonicalExportName(id, local)
	if err != nil {
		return "", errors.AddContext(err, errors.CtxModule, id)
	}
	return name, nil
}

func (p *Patcher) IsRoot(id string) bool {
	_, ok := p.roots[id]
	return ok
}

func (p *Patcher) Order() []string                  { return slices.Clone(p.order) }
func (p *Patcher) Roots() []string                  { return slices.Clone(p.rootList) }
func (p *Patcher) Cuts() []breaker.Cut              { return slices.Clone(p.cuts) }
func (p *Patcher) BannedEdges() breaker.BannedEdges { return p.banned }

// Graph returns the module graph as built, before any edge was banned.
func (p *Patcher) Graph() *graph.Graph[string] { return p.graph }

func (p *Patcher) specifier(id string) string {
	return id + ":" + p.suffix
}

func (p *Patcher) label(id string) string {
	if m, ok := p.bundle.Module(id); ok && m.FilePath != "" {
		return m.FilePath
	}
	return id
}
