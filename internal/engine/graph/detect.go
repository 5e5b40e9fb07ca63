// # internal/engine/graph/detect.go
package graph

// Cycles enumerates the cycles found by a depth-first search over the
// graph, visiting nodes and neighbours in ascending id order. Each cycle is
// reported once, starting from the node where the search re-entered it.
// This is a diagnostic, not an exhaustive enumeration of elementary cycles.
func (g *Graph[ID]) Cycles() [][]ID {
	var cycles [][]ID
	visited := make(map[ID]bool)
	onStack := make(map[ID]bool)

	for _, id := range g.Nodes() {
		if !visited[id] {
			g.findCycles(id, visited, onStack, nil, &cycles)
		}
	}

	return cycles
}

func (g *Graph[ID]) findCycles(curr ID, visited, onStack map[ID]bool, path []ID, cycles *[][]ID) {
	visited[curr] = true
	onStack[curr] = true
	path = append(path, curr)

	for _, next := range sortedSet(g.nodes[curr].out) {
		if onStack[next] {
			cycleStart := -1
			for i, id := range path {
				if id == next {
					cycleStart = i
					break
				}
			}
			if cycleStart != -1 {
				cycle := make([]ID, len(path)-cycleStart)
				copy(cycle, path[cycleStart:])
				*cycles = append(*cycles, cycle)
			}
		} else if !visited[next] {
			g.findCycles(next, visited, onStack, path, cycles)
		}
	}

	onStack[curr] = false
}

// ShortestPath returns the shortest dependency chain from -> ... -> to.
func (g *Graph[ID]) ShortestPath(from, to ID) ([]ID, bool) {
	if !g.Has(from) || !g.Has(to) {
		return nil, false
	}
	if from == to {
		return []ID{from}, true
	}

	queue := []ID{from}
	visited := map[ID]bool{from: true}
	prev := make(map[ID]ID)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, next := range sortedSet(g.nodes[curr].out) {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr

			if next == to {
				path := []ID{to}
				for n := to; n != from; {
					p := prev[n]
					path = append(path, p)
					n = p
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}

			queue = append(queue, next)
		}
	}

	return nil, false
}
