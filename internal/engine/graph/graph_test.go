// # internal/engine/graph/graph_test.go
package graph

import (
	"acyclic/internal/core/errors"
	"slices"
	"testing"
)

func build(t *testing.T, edges ...[2]string) *Graph[string] {
	t.Helper()
	g := New[string]()
	for _, e := range edges {
		for _, id := range e {
			if !g.Has(id) {
				g.AddNode(id)
			}
		}
		if err := g.AddDependency(e[0], e[1]); err != nil {
			t.Fatalf("AddDependency(%s, %s): %v", e[0], e[1], err)
		}
	}
	return g
}

func TestGraph_EdgesStayConsistent(t *testing.T) {
	g := build(t, [2]string{"a", "b"}, [2]string{"a", "c"})

	out, _ := g.Outgoing("a")
	if !slices.Equal(out, []string{"b", "c"}) {
		t.Fatalf("unexpected outgoing of a: %v", out)
	}
	in, _ := g.Incoming("b")
	if !slices.Equal(in, []string{"a"}) {
		t.Fatalf("unexpected incoming of b: %v", in)
	}

	if err := g.RemoveDependency("a", "b"); err != nil {
		t.Fatal(err)
	}
	in, _ = g.Incoming("b")
	if len(in) != 0 {
		t.Errorf("expected b to lose its incoming edge, got %v", in)
	}
	if g.HasDependency("a", "b") {
		t.Error("expected a -> b to be gone")
	}
	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 edge, got %d", g.EdgeCount())
	}
}

func TestGraph_UnknownNode(t *testing.T) {
	g := New[string]()
	g.AddNode("a")

	if err := g.AddDependency("a", "missing"); !errors.IsCode(err, errors.CodeUnknownGraphNode) {
		t.Errorf("expected UNKNOWN_GRAPH_NODE, got %v", err)
	}
	if err := g.RemoveDependency("missing", "a"); !errors.IsCode(err, errors.CodeUnknownGraphNode) {
		t.Errorf("expected UNKNOWN_GRAPH_NODE, got %v", err)
	}
	if err := g.RemoveNode("missing"); !errors.IsCode(err, errors.CodeUnknownGraphNode) {
		t.Errorf("expected UNKNOWN_GRAPH_NODE, got %v", err)
	}
	if _, err := g.Outgoing("missing"); err == nil {
		t.Error("expected error for unknown node")
	}
}

func TestGraph_AddNodeTwiceResetsEdges(t *testing.T) {
	g := build(t, [2]string{"a", "b"})
	g.AddNode("a")

	out, _ := g.Outgoing("a")
	if len(out) != 0 {
		t.Errorf("expected reset node to have no edges, got %v", out)
	}
}

func TestGraph_RemoveNodeScrubsNeighbours(t *testing.T) {
	g := build(t, [2]string{"a", "b"}, [2]string{"b", "c"})

	if err := g.RemoveNode("b"); err != nil {
		t.Fatal(err)
	}
	if g.Has("b") {
		t.Fatal("expected b to be removed")
	}
	out, _ := g.Outgoing("a")
	in, _ := g.Incoming("c")
	if len(out) != 0 || len(in) != 0 {
		t.Errorf("expected neighbours to be scrubbed, got out(a)=%v in(c)=%v", out, in)
	}
}

func TestGraph_RemoveAllNonCyclicNodes(t *testing.T) {
	// A -> B -> C -> A plus X -> Y
	g := build(t,
		[2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "A"},
		[2]string{"X", "Y"},
	)

	g.RemoveAllNonCyclicNodes()

	if got := g.Nodes(); !slices.Equal(got, []string{"A", "B", "C"}) {
		t.Errorf("expected only the cycle to remain, got %v", got)
	}
}

func TestGraph_RemoveAllNonCyclicNodes_Tails(t *testing.T) {
	// entry -> A <-> B -> leaf
	g := build(t,
		[2]string{"entry", "A"}, [2]string{"A", "B"}, [2]string{"B", "A"}, [2]string{"B", "leaf"},
	)

	g.RemoveAllNonCyclicNodes()

	if got := g.Nodes(); !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("expected A and B, got %v", got)
	}
}

func TestGraph_RemoveDependencyAndPrune(t *testing.T) {
	g := build(t, [2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "a"})

	if err := g.RemoveDependencyAndPrune("a", "b"); err != nil {
		t.Fatal(err)
	}
	if g.Len() != 0 {
		t.Errorf("expected cutting the only cycle to empty the graph, left %v", g.Nodes())
	}
}

func TestGraph_RemoveDependencyAndPrune_KeepsOtherCycle(t *testing.T) {
	// a <-> b, b <-> c
	g := build(t,
		[2]string{"a", "b"}, [2]string{"b", "a"},
		[2]string{"b", "c"}, [2]string{"c", "b"},
	)

	if err := g.RemoveDependencyAndPrune("a", "b"); err != nil {
		t.Fatal(err)
	}
	if got := g.Nodes(); !slices.Equal(got, []string{"b", "c"}) {
		t.Errorf("expected b and c to remain, got %v", got)
	}
}

func TestGraph_NodesByOutgoingCountAsc(t *testing.T) {
	g := build(t,
		[2]string{"z", "a"}, [2]string{"z", "b"},
		[2]string{"b", "a"},
		[2]string{"c", "a"},
	)

	got := g.NodesByOutgoingCountAsc()
	want := []string{"a", "b", "c", "z"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestGraph_SequenceAssumeNoCycles(t *testing.T) {
	g := build(t,
		[2]string{"root", "b"}, [2]string{"root", "a"},
		[2]string{"b", "c"}, [2]string{"a", "c"},
		[2]string{"c", "d"},
	)
	g.AddNode("lonely")

	seq, err := g.SequenceAssumeNoCycles()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"d", "lonely", "c", "a", "b", "root"}
	if !slices.Equal(seq, want) {
		t.Fatalf("expected %v, got %v", want, seq)
	}

	pos := make(map[string]int, len(seq))
	for i, id := range seq {
		pos[id] = i
	}
	for _, id := range g.Nodes() {
		deps, _ := g.Outgoing(id)
		for _, dep := range deps {
			if pos[dep] >= pos[id] {
				t.Errorf("%s emitted before its dependency %s", id, dep)
			}
		}
	}

	again, err := g.Clone().SequenceAssumeNoCycles()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(seq, again) {
		t.Errorf("expected deterministic sequence, got %v then %v", seq, again)
	}
}

func TestGraph_SequenceRejectsCycle(t *testing.T) {
	g := build(t, [2]string{"a", "b"}, [2]string{"b", "a"})

	if _, err := g.SequenceAssumeNoCycles(); !errors.IsCode(err, errors.CodeUnresolvableCycle) {
		t.Errorf("expected UNRESOLVABLE_CYCLE, got %v", err)
	}
}

func TestGraph_CloneIsIndependent(t *testing.T) {
	g := build(t, [2]string{"a", "b"}, [2]string{"b", "a"})
	c := g.Clone()

	c.RemoveAllNonCyclicNodes()
	if err := c.RemoveDependencyAndPrune("a", "b"); err != nil {
		t.Fatal(err)
	}

	if c.Len() != 0 {
		t.Errorf("expected clone to be emptied, got %v", c.Nodes())
	}
	if g.Len() != 2 || !g.HasDependency("a", "b") || !g.HasDependency("b", "a") {
		t.Error("expected original graph to be untouched")
	}
}

func TestGraph_StringWithResolver(t *testing.T) {
	g := build(t, [2]string{"b", "a"}, [2]string{"a", "c"}, [2]string{"a", "b"})

	got := g.StringWithResolver(func(id string) string { return "m/" + id })
	want := "m/a -> m/b, m/c\n" +
		"m/a <- m/b\n" +
		"m/b -> m/a\n" +
		"m/b <- m/a\n" +
		"m/c -> \n" +
		"m/c <- m/a"
	if got != want {
		t.Errorf("unexpected rendering:\n%s\nwant:\n%s", got, want)
	}
}
