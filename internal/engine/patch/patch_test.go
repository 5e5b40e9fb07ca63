package patch

import (
	"acyclic/internal/core/errors"
	"acyclic/internal/core/ports"
	"acyclic/internal/engine/breaker"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testBundle struct {
	entries []string
	modules map[string]ports.Module
	deps    map[string][]ports.Dependency
	targets map[string]string
}

func newTestBundle(entries ...string) *testBundle {
	return &testBundle{
		entries: entries,
		modules: make(map[string]ports.Module),
		deps:    make(map[string][]ports.Dependency),
		targets: make(map[string]string),
	}
}

func (b *testBundle) module(id string) *testBundle {
	b.modules[id] = ports.Module{
		ID:       id,
		FilePath: "src/" + id + ".js",
		Symbols:  map[string]string{"default": "$" + id + "$export$sym" + id},
	}
	return b
}

func (b *testBundle) link(from, to string) ports.Dependency {
	dep := ports.Dependency{ID: from + ">" + to, SourceModuleID: from, Specifier: "./" + to}
	b.deps[from] = append(b.deps[from], dep)
	b.targets[dep.ID] = to
	return dep
}

func (b *testBundle) EntryModules() []string { return b.entries }

func (b *testBundle) Module(id string) (ports.Module, bool) {
	m, ok := b.modules[id]
	return m, ok
}

func (b *testBundle) Dependencies(id string) []ports.Dependency { return b.deps[id] }

func (b *testBundle) ResolveDependency(dep ports.Dependency) (string, bool) {
	id, ok := b.targets[dep.ID]
	return id, ok
}

type recordingMap struct {
	offsets [][2]int
}

func (m *recordingMap) OffsetLines(line, count int) {
	m.offsets = append(m.offsets, [2]int{line, count})
}

type staticAnalyzer map[string][]string

func (a staticAnalyzer) HotSymbolIDs(moduleID, _ string) ([]string, error) {
	return a[moduleID], nil
}

// cycleBundle is r -> a -> b -> c -> a with r as the only entry.
func cycleBundle() *testBundle {
	b := newTestBundle("r")
	for _, id := range []string{"r", "a", "b", "c"} {
		b.module(id)
	}
	b.link("r", "a")
	b.link("a", "b")
	b.link("b", "c")
	b.link("c", "a")
	return b
}

func TestBuildDependencyGraph(t *testing.T) {
	b := newTestBundle("main", "worker")
	for _, id := range []string{"main", "worker", "util"} {
		b.module(id)
	}
	b.link("main", "util")
	b.link("worker", "util")
	b.deps["main"] = append(b.deps["main"], ports.Dependency{ID: "external", SourceModuleID: "main", Specifier: "react"})

	built, err := BuildDependencyGraph(b)
	require.NoError(t, err)

	assert.Equal(t, []string{"main", "worker"}, built.Roots)
	assert.Equal(t, []string{"main", "util", "worker"}, built.Graph.Nodes())
	assert.Equal(t, 2, built.Graph.EdgeCount())
	assert.Len(t, built.DependentsOf["util"], 2)
	assert.NotContains(t, built.DependentsOf, "react")
}

func TestPrepare_ColdCycle(t *testing.T) {
	b := cycleBundle()
	sources := ports.Sources{
		"r": `main();`,
		"a": `export function f() { return $a$import$d1$symb() }`,
		"b": `export function g() { return $b$import$d2$symc() }`,
		"c": `export function h() { return $c$import$d3$syma() }`,
	}

	p, err := New(b, Options{})
	require.NoError(t, err)
	require.NoError(t, p.Prepare(context.Background(), sources))

	assert.Equal(t, []breaker.Edge{{From: "a", To: "b"}}, p.BannedEdges().Pairs())
	if diff := cmp.Diff([]string{"a", "c", "r", "b"}, p.Order()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"r"}, p.Roots())
	require.Len(t, p.Cuts(), 1)
	assert.Equal(t, []string{"a", "b", "c", "a"}, p.Cuts()[0].Cycle)

	// The graph exposed for reporting still carries the banned edge.
	assert.True(t, p.Graph().HasDependency("a", "b"))

	want := `import "a:THIS_IS_PATCHED_DEPENDENCY:esm";` + "\n" +
		`import "c:THIS_IS_PATCHED_DEPENDENCY:esm";` + "\n" +
		`import "b:THIS_IS_PATCHED_DEPENDENCY:esm";` + "\n"
	assert.Equal(t, want, p.RootImports())

	deps := p.ModuleDependencies("r")
	ids := make([]string, len(deps))
	for i, d := range deps {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{"r>a", "b>c", "a>b"}, ids)
	assert.Equal(t, b.Dependencies("a"), p.ModuleDependencies("a"))
}

func TestPrepare_HotEdgeIsKept(t *testing.T) {
	b := cycleBundle()
	sources := ports.Sources{
		"r": `main();`,
		"a": `export const f = $a$import$d1$symb();`,
		"b": `export function g() { return $b$import$d2$symc() }`,
		"c": `export function h() { return $c$import$d3$syma() }`,
	}

	p, err := New(b, Options{})
	require.NoError(t, err)
	require.NoError(t, p.Prepare(context.Background(), sources))

	assert.Equal(t, []breaker.Edge{{From: "b", To: "c"}}, p.BannedEdges().Pairs())
	assert.Equal(t, []string{"b", "a", "c", "r"}, p.Order())
}

func TestPrepare_UnresolvableCycle(t *testing.T) {
	p, err := New(cycleBundle(), Options{Analyzer: staticAnalyzer{
		"a": {"symb"},
		"b": {"symc"},
		"c": {"syma"},
	}})
	require.NoError(t, err)

	err = p.Prepare(context.Background(), ports.Sources{"a": "x", "b": "x", "c": "x"})
	assert.True(t, errors.IsCode(err, errors.CodeUnresolvableCycle))
}

func TestUpdateModuleCode(t *testing.T) {
	p, err := New(cycleBundle(), Options{Analyzer: staticAnalyzer{}})
	require.NoError(t, err)
	require.NoError(t, p.Prepare(context.Background(), ports.Sources{"a": "x", "b": "x", "c": "x"}))

	sm := &recordingMap{}
	code := p.UpdateModuleCode("r", "main();\n", sm)

	assert.Equal(t, p.RootImports()+"\nmain();\n", code)
	// Three synthesized imports plus the blank separator line.
	assert.Equal(t, [][2]int{{1, 4}}, sm.offsets)

	other := &recordingMap{}
	assert.Equal(t, "a();", p.UpdateModuleCode("a", "a();", other))
	assert.Empty(t, other.offsets)

	assert.Equal(t, "main();", p.UpdateModuleCode("r", "main();", nil)[len(p.RootImports())+1:])
}

func TestSpecifierRewriting(t *testing.T) {
	b := cycleBundle()
	p, err := New(b, Options{Analyzer: staticAnalyzer{}, PatchedSuffix: "PATCHED"})
	require.NoError(t, err)
	require.NoError(t, p.Prepare(context.Background(), ports.Sources{"a": "x", "b": "x", "c": "x"}))

	assert.True(t, p.ShouldVisitDependencyImports("r"))
	assert.False(t, p.ShouldVisitDependencyImports("a"))

	spec, ok := p.DependencyReplacement(b.deps["r"][0])
	assert.True(t, ok)
	assert.Equal(t, "a:PATCHED", spec)

	_, ok = p.DependencyReplacement(ports.Dependency{ID: "external", Specifier: "react"})
	assert.False(t, ok)
}

func TestExportLocalName(t *testing.T) {
	p, err := New(cycleBundle(), Options{Analyzer: staticAnalyzer{}})
	require.NoError(t, err)
	require.NoError(t, p.Prepare(context.Background(), ports.Sources{"a": "x", "b": "x", "c": "x"}))

	tests := []struct {
		module string
		local  string
		want   string
	}{
		{"r", "$9f2c$export$main", "$r$export$main"},
		{"r", "$9f2c$var$helper", "$r$export$helper"},
		{"a", "$a$export$syma", "$a$export$syma"},
	}
	for _, tt := range tests {
		got, err := p.ExportLocalName(tt.module, tt.local)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err = p.ExportLocalName("r", "$9f2c$export$")
	assert.True(t, errors.IsCode(err, errors.CodeMalformedSymbolMarker))
}

func TestOrphanedDependent(t *testing.T) {
	b := newTestBundle("r").module("r").module("ghost")
	p, err := New(b, Options{Analyzer: staticAnalyzer{}})
	require.NoError(t, err)

	p.order = []string{"ghost", "r"}
	p.roots["r"] = struct{}{}
	err = p.synthesizeRootImports(&Built{DependentsOf: map[string][]ports.Dependency{}})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeOrphanedDependent))
	assert.Contains(t, err.Error(), "src/ghost.js")
}

func TestPrepare_PrefersRootDependency(t *testing.T) {
	// shared is imported by both lib and r; the record from r is chosen.
	b := newTestBundle("r")
	for _, id := range []string{"r", "lib", "shared"} {
		b.module(id)
	}
	b.link("r", "lib")
	b.link("lib", "shared")
	b.link("r", "shared")

	p, err := New(b, Options{Analyzer: staticAnalyzer{}})
	require.NoError(t, err)
	require.NoError(t, p.Prepare(context.Background(), ports.Sources{}))

	assert.Empty(t, p.BannedEdges().Pairs())
	assert.Equal(t, []string{"shared", "lib", "r"}, p.Order())

	deps := p.ModuleDependencies("r")
	require.Len(t, deps, 2)
	assert.Equal(t, "r>shared", deps[0].ID)
	assert.Equal(t, "r>lib", deps[1].ID)
}

func TestPrepare_UninspectedModuleMayFailToParse(t *testing.T) {
	newBundle := func() *testBundle {
		b := newTestBundle("r")
		for _, id := range []string{"r", "a", "b"} {
			b.module(id)
		}
		b.link("r", "a")
		b.link("a", "b")
		b.link("b", "a")
		return b
	}

	// a is inspected first, its edge to b is cold and cutting it empties
	// the cycle, so b is never analyzed.
	p, err := New(newBundle(), Options{})
	require.NoError(t, err)
	err = p.Prepare(context.Background(), ports.Sources{
		"r": `main();`,
		"a": `export function f() { return $a$import$d1$symb() }`,
		"b": `const = ;`,
	})
	require.NoError(t, err)
	assert.Equal(t, []breaker.Edge{{From: "a", To: "b"}}, p.BannedEdges().Pairs())

	p, err = New(newBundle(), Options{})
	require.NoError(t, err)
	err = p.Prepare(context.Background(), ports.Sources{
		"r": `main();`,
		"a": `const = ;`,
		"b": `export function g() { return $b$import$d2$syma() }`,
	})
	assert.True(t, errors.IsCode(err, errors.CodeParseFailed), "got %v", err)
}
