package graph

// A node with no incoming or no outgoing edges cannot sit on a cycle, so
// it can be dropped from cycle analysis and placed trivially later.

// RemoveNodeAndPrune removes id, then recursively removes every former
// neighbour that has become terminal.
func (g *Graph[ID]) RemoveNodeAndPrune(id ID) error {
	n, err := g.getNode(id)
	if err != nil {
		return err
	}
	g.removeNodeAndPrune(n)
	return nil
}

func (g *Graph[ID]) removeNodeAndPrune(n *node[ID]) {
	g.removeNode(n)
	for _, outID := range sortedSet(n.out) {
		if other, ok := g.nodes[outID]; ok && other.terminal() {
			g.removeNodeAndPrune(other)
		}
	}
	for _, inID := range sortedSet(n.in) {
		if other, ok := g.nodes[inID]; ok && other.terminal() {
			g.removeNodeAndPrune(other)
		}
	}
}

// RemoveDependencyAndPrune removes the edge from -> to and prunes each
// endpoint independently if it became terminal.
func (g *Graph[ID]) RemoveDependencyAndPrune(from, to ID) error {
	if err := g.RemoveDependency(from, to); err != nil {
		return err
	}
	if fromNode, ok := g.nodes[from]; ok && fromNode.terminal() {
		g.removeNodeAndPrune(fromNode)
	}
	// Pruning from may already have taken to with it.
	if toNode, ok := g.nodes[to]; ok && toNode.terminal() {
		g.removeNodeAndPrune(toNode)
	}
	return nil
}

// RemoveAllNonCyclicNodes prunes every terminal node. Afterwards each
// remaining node has both incoming and outgoing edges.
func (g *Graph[ID]) RemoveAllNonCyclicNodes() {
	for _, id := range g.Nodes() {
		if n, ok := g.nodes[id]; ok && n.terminal() {
			g.removeNodeAndPrune(n)
		}
	}
}
