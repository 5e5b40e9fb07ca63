// # internal/engine/graph/graph.go
package graph

import (
	"acyclic/internal/core/errors"
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// node holds both directions of a module's edges. Edge sets reference other
// nodes by id only; the Graph is the single owner of every node.
type node[ID cmp.Ordered] struct {
	id  ID
	in  map[ID]struct{}
	out map[ID]struct{}
}

func newNode[ID cmp.Ordered](id ID) *node[ID] {
	return &node[ID]{
		id:  id,
		in:  make(map[ID]struct{}),
		out: make(map[ID]struct{}),
	}
}

func (n *node[ID]) terminal() bool {
	return len(n.in) == 0 || len(n.out) == 0
}

func (n *node[ID]) clone() *node[ID] {
	c := newNode(n.id)
	for id := range n.in {
		c.in[id] = struct{}{}
	}
	for id := range n.out {
		c.out[id] = struct{}{}
	}
	return c
}

// Graph is a directed dependency graph keyed by opaque module ids.
// An edge from -> to means "from depends on to".
//
// Graph is not safe for concurrent mutation; one build pass owns it.
type Graph[ID cmp.Ordered] struct {
	nodes map[ID]*node[ID]
}

func New[ID cmp.Ordered]() *Graph[ID] {
	return &Graph[ID]{nodes: make(map[ID]*node[ID])}
}

// Clone deep-copies every node and edge set.
func (g *Graph[ID]) Clone() *Graph[ID] {
	c := &Graph[ID]{nodes: make(map[ID]*node[ID], len(g.nodes))}
	for id, n := range g.nodes {
		c.nodes[id] = n.clone()
	}
	return c
}

func (g *Graph[ID]) Len() int {
	return len(g.nodes)
}

func (g *Graph[ID]) Has(id ID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns all node ids in ascending order.
func (g *Graph[ID]) Nodes() []ID {
	ids := make([]ID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (g *Graph[ID]) EdgeCount() int {
	count := 0
	for _, n := range g.nodes {
		count += len(n.out)
	}
	return count
}

// AddNode inserts id with empty edge sets. Adding an existing id resets its
// own edge sets; callers must not double-add.
func (g *Graph[ID]) AddNode(id ID) {
	g.nodes[id] = newNode(id)
}

func (g *Graph[ID]) getNode(id ID) (*node[ID], error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, errors.New(errors.CodeUnknownGraphNode, fmt.Sprintf("no node with id %v", id))
	}
	return n, nil
}

func (g *Graph[ID]) AddDependency(from, to ID) error {
	fromNode, err := g.getNode(from)
	if err != nil {
		return err
	}
	toNode, err := g.getNode(to)
	if err != nil {
		return err
	}
	fromNode.out[to] = struct{}{}
	toNode.in[from] = struct{}{}
	return nil
}

func (g *Graph[ID]) RemoveDependency(from, to ID) error {
	fromNode, err := g.getNode(from)
	if err != nil {
		return err
	}
	toNode, err := g.getNode(to)
	if err != nil {
		return err
	}
	delete(fromNode.out, to)
	delete(toNode.in, from)
	return nil
}

// RemoveNode deletes id and scrubs it from its neighbours' edge sets.
func (g *Graph[ID]) RemoveNode(id ID) error {
	n, err := g.getNode(id)
	if err != nil {
		return err
	}
	g.removeNode(n)
	return nil
}

func (g *Graph[ID]) removeNode(n *node[ID]) {
	delete(g.nodes, n.id)
	for outID := range n.out {
		if other, ok := g.nodes[outID]; ok {
			delete(other.in, n.id)
		}
	}
	for inID := range n.in {
		if other, ok := g.nodes[inID]; ok {
			delete(other.out, n.id)
		}
	}
}

// HasDependency reports whether the edge from -> to exists.
func (g *Graph[ID]) HasDependency(from, to ID) bool {
	n, ok := g.nodes[from]
	if !ok {
		return false
	}
	_, ok = n.out[to]
	return ok
}

// Outgoing returns the ids id depends on, sorted ascending.
func (g *Graph[ID]) Outgoing(id ID) ([]ID, error) {
	n, err := g.getNode(id)
	if err != nil {
		return nil, err
	}
	return sortedSet(n.out), nil
}

// Incoming returns the ids that depend on id, sorted ascending.
func (g *Graph[ID]) Incoming(id ID) ([]ID, error) {
	n, err := g.getNode(id)
	if err != nil {
		return nil, err
	}
	return sortedSet(n.in), nil
}

// IsTerminal reports whether id has no incoming or no outgoing edges.
// Unknown ids are not terminal.
func (g *Graph[ID]) IsTerminal(id ID) bool {
	n, ok := g.nodes[id]
	return ok && n.terminal()
}

// NodesByOutgoingCountAsc orders nodes by outgoing edge count, ties by id.
func (g *Graph[ID]) NodesByOutgoingCountAsc() []ID {
	ids := g.Nodes()
	slices.SortStableFunc(ids, func(a, b ID) int {
		return cmp.Compare(len(g.nodes[a].out), len(g.nodes[b].out))
	})
	return ids
}

// StringWithResolver renders both edge directions of every node, one line
// each, using label to print ids. Output is ordered by id.
func (g *Graph[ID]) StringWithResolver(label func(ID) string) string {
	lines := make([]string, 0, len(g.nodes)*2)
	joined := func(set map[ID]struct{}) string {
		ids := sortedSet(set)
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = label(id)
		}
		return strings.Join(parts, ", ")
	}
	for _, id := range g.Nodes() {
		n := g.nodes[id]
		lines = append(lines, label(id)+" -> "+joined(n.out))
		lines = append(lines, label(id)+" <- "+joined(n.in))
	}
	return strings.Join(lines, "\n")
}

func (g *Graph[ID]) String() string {
	return g.StringWithResolver(func(id ID) string { return fmt.Sprint(id) })
}

func sortedSet[ID cmp.Ordered](set map[ID]struct{}) []ID {
	ids := make([]ID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
