package graph

import (
	"acyclic/internal/core/errors"
	"cmp"
	"fmt"
	"slices"
)

// SequenceAssumeNoCycles lays nodes out so that every node comes after all
// of its dependencies. A node's priority is 1 + the highest priority of its
// dependencies (leaves get 1); nodes are ordered by ascending priority, then
// by id.
//
// The graph must be acyclic. A cycle is reported as UNRESOLVABLE_CYCLE.
func (g *Graph[ID]) SequenceAssumeNoCycles() ([]ID, error) {
	priority := make(map[ID]int, len(g.nodes))
	visiting := make(map[ID]bool)

	var visit func(id ID) (int, error)
	visit = func(id ID) (int, error) {
		if p, ok := priority[id]; ok {
			return p, nil
		}
		if visiting[id] {
			return 0, errors.New(errors.CodeUnresolvableCycle, fmt.Sprintf("cannot sequence graph: node %v is on a cycle", id))
		}
		visiting[id] = true

		p := 0
		for _, dep := range sortedSet(g.nodes[id].out) {
			depPriority, err := visit(dep)
			if err != nil {
				return 0, err
			}
			p = max(p, depPriority)
		}
		p++

		delete(visiting, id)
		priority[id] = p
		return p, nil
	}

	ids := g.Nodes()
	for _, id := range ids {
		if _, err := visit(id); err != nil {
			return nil, err
		}
	}

	// Nodes() is already sorted by id, so a stable sort keeps the tie-break.
	slices.SortStableFunc(ids, func(a, b ID) int {
		return cmp.Compare(priority[a], priority[b])
	})
	return ids, nil
}
