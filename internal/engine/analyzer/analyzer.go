// # internal/engine/analyzer/analyzer.go
package analyzer

import (
	"acyclic/internal/core/errors"
	"acyclic/internal/core/ports"
	"acyclic/internal/engine/symbols"
	"acyclic/internal/shared/cache"
	"acyclic/internal/shared/observability"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type Options struct {
	Language  string
	CacheSize int
	Workers   int
	Markers   symbols.Markers
}

// Analyzer finds the imported symbols a module touches synchronously while
// it initializes. Results are cached per module id and source hash.
type Analyzer struct {
	language string
	markers  symbols.Markers
	pool     *ParserPool
	workers  int
	results  *cache.LRU[string, []string]
	inflight singleflight.Group
}

var _ ports.HotUsageAnalyzer = (*Analyzer)(nil)

func New(opts Options) (*Analyzer, error) {
	if opts.Language == "" {
		opts.Language = LangJavaScript
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Markers == (symbols.Markers{}) {
		opts.Markers = symbols.DefaultMarkers()
	}

	lang, err := LoadLanguage(opts.Language)
	if err != nil {
		return nil, err
	}

	return &Analyzer{
		language: opts.Language,
		markers:  opts.Markers,
		pool:     NewParserPool(lang),
		workers:  opts.Workers,
		results:  cache.NewLRU[string, []string](opts.CacheSize),
	}, nil
}

// Analyze parses code and returns the sorted ids of imported symbols that
// are referenced by code running at module initialization. It is a pure
// function of code and does not consult the cache.
func (a *Analyzer) Analyze(code string) ([]string, error) {
	start := time.Now()
	defer func() {
		observability.ParsingDuration.WithLabelValues(a.language).Observe(time.Since(start).Seconds())
	}()

	source := []byte(code)
	sp := a.pool.Get()
	defer a.pool.Put(sp)

	tree := sp.Parse(source, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeParseFailed, "parser returned no tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, errors.New(errors.CodeParseFailed, fmt.Sprintf("syntax error in %s source", a.language))
	}

	w := newHotWalker(source, a.markers)
	w.visit(root, "")
	if w.err != nil {
		return nil, w.err
	}

	ids := make([]string, 0, len(w.found))
	for id := range w.found {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// HotSymbolIDs is the cached form of Analyze. Concurrent calls for the same
// module and code share a single parse.
func (a *Analyzer) HotSymbolIDs(moduleID, code string) ([]string, error) {
	key := cacheKey(moduleID, code)
	if ids, ok := a.results.Get(key); ok {
		observability.AnalysisCacheHits.Inc()
		return ids, nil
	}
	observability.AnalysisCacheMisses.Inc()

	v, err, _ := a.inflight.Do(key, func() (interface{}, error) {
		ids, err := a.Analyze(code)
		if err != nil {
			return nil, errors.AddContext(err, errors.CtxModule, moduleID)
		}
		a.results.Put(key, ids)
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// AnalyzeAll warms the cache for every listed module using a bounded worker
// pool. It returns the first failure; MISSING_SOURCE when a module has no
// code.
func (a *Analyzer) AnalyzeAll(ctx context.Context, moduleIDs []string, sources ports.SourceProvider) error {
	ctx, span := observability.Tracer.Start(ctx, "analyzer.AnalyzeAll",
		trace.WithAttributes(attribute.Int("modules", len(moduleIDs))))
	defer span.End()

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for _, id := range moduleIDs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			code, ok := sources.Source(id)
			if !ok {
				return MissingSource(id)
			}
			_, err := a.HotSymbolIDs(id, code)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return err
	}

	stats := a.results.Stats()
	slog.Debug("hot usage analysis complete",
		"modules", len(moduleIDs),
		"duration", time.Since(start),
		"cache_hits", stats.Hits,
		"cache_misses", stats.Misses)
	return nil
}

func (a *Analyzer) CacheStats() cache.Stats {
	return a.results.Stats()
}

// MissingSource builds the error for a module scheduled for analysis that
// has no code loaded.
func MissingSource(moduleID string) error {
	de := &errors.DomainError{
		Code:    errors.CodeMissingSource,
		Message: fmt.Sprintf("there is no code loaded for module %s", moduleID),
	}
	return de.WithContext(errors.CtxModule, moduleID)
}

func cacheKey(moduleID, code string) string {
	sum := sha256.Sum256([]byte(code))
	return moduleID + "@" + hex.EncodeToString(sum[:8])
}
