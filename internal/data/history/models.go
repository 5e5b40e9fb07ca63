package history

import (
	"slices"
	"time"
)

// SchemaVersion is the newest migration this build understands.
const SchemaVersion = 2

// Edge is a dependency edge banned by a plan.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Snapshot is the stored outcome of one plan preparation.
type Snapshot struct {
	BuildID       string    `json:"build_id"`
	Bundle        string    `json:"bundle"`
	SchemaVersion int       `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	ModuleCount   int       `json:"module_count"`
	EdgeCount     int       `json:"edge_count"`
	RootCount     int       `json:"root_count"`
	Order         []string  `json:"order"`
	Banned        []Edge    `json:"banned"`
}

// PlanDiff describes how the banned edges and hoisting order moved between
// two builds of the same bundle.
type PlanDiff struct {
	Added        []Edge `json:"added,omitempty"`
	Removed      []Edge `json:"removed,omitempty"`
	OrderChanged bool   `json:"order_changed"`
}

func (d PlanDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && !d.OrderChanged
}

// Diff compares prev against next. Added holds edges banned by next only;
// Removed holds edges prev banned that next keeps.
func Diff(prev, next Snapshot) PlanDiff {
	before := make(map[Edge]bool, len(prev.Banned))
	for _, e := range prev.Banned {
		before[e] = true
	}
	after := make(map[Edge]bool, len(next.Banned))
	for _, e := range next.Banned {
		after[e] = true
	}

	var diff PlanDiff
	for _, e := range next.Banned {
		if !before[e] {
			diff.Added = append(diff.Added, e)
		}
	}
	for _, e := range prev.Banned {
		if !after[e] {
			diff.Removed = append(diff.Removed, e)
		}
	}
	sortEdges(diff.Added)
	sortEdges(diff.Removed)
	diff.OrderChanged = !slices.Equal(prev.Order, next.Order)
	return diff
}

func sortEdges(edges []Edge) {
	slices.SortFunc(edges, func(a, b Edge) int {
		if a.From != b.From {
			if a.From < b.From {
				return -1
			}
			return 1
		}
		switch {
		case a.To < b.To:
			return -1
		case a.To > b.To:
			return 1
		}
		return 0
	})
}
