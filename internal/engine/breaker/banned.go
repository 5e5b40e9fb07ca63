package breaker

import (
	"cmp"
	"slices"
)

// Edge is a single directed dependency between two modules.
type Edge struct {
	From string
	To   string
}

// BannedEdges maps a source module id to the set of targets it may no longer
// rely on for native ordering.
type BannedEdges map[string]map[string]struct{}

func (b BannedEdges) Add(from, to string) {
	targets, ok := b[from]
	if !ok {
		targets = make(map[string]struct{})
		b[from] = targets
	}
	targets[to] = struct{}{}
}

func (b BannedEdges) Has(from, to string) bool {
	_, ok := b[from][to]
	return ok
}

// Pairs lists every banned edge ordered by source, then target.
func (b BannedEdges) Pairs() []Edge {
	pairs := make([]Edge, 0, b.Len())
	for from, targets := range b {
		for to := range targets {
			pairs = append(pairs, Edge{From: from, To: to})
		}
	}
	slices.SortFunc(pairs, func(x, y Edge) int {
		if c := cmp.Compare(x.From, y.From); c != 0 {
			return c
		}
		return cmp.Compare(x.To, y.To)
	})
	return pairs
}

func (b BannedEdges) Len() int {
	n := 0
	for _, targets := range b {
		n += len(targets)
	}
	return n
}

// Cut records one banned edge together with the cycle it broke, starting and
// ending at From.
type Cut struct {
	From  string
	To    string
	Cycle []string
}
