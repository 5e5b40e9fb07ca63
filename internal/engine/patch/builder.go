// # internal/engine/patch/builder.go
package patch

import (
	"acyclic/internal/core/ports"
	"acyclic/internal/engine/graph"
)

// Built is the module graph of one bundle as reachable from its entries.
type Built struct {
	Graph *graph.Graph[string]
	// Roots lists entry modules in the order the bundle reports them.
	Roots []string
	// DependentsOf maps a module id to every dependency record resolving to it.
	DependentsOf map[string][]ports.Dependency
}

// BuildDependencyGraph walks the bundle depth-first from every entry module.
// Dependencies that do not resolve inside the bundle are skipped.
func BuildDependencyGraph(bundle ports.BundleGraph) (*Built, error) {
	b := &Built{
		Graph:        graph.New[string](),
		DependentsOf: make(map[string][]ports.Dependency),
	}

	var traverse func(id string) error
	traverse = func(id string) error {
		if b.Graph.Has(id) {
			return nil
		}
		b.Graph.AddNode(id)

		for _, dep := range bundle.Dependencies(id) {
			target, ok := bundle.ResolveDependency(dep)
			if !ok {
				continue
			}
			b.DependentsOf[target] = append(b.DependentsOf[target], dep)

			if err := traverse(target); err != nil {
				return err
			}
			if err := b.Graph.AddDependency(id, target); err != nil {
				return err
			}
		}
		return nil
	}

	for _, entry := range bundle.EntryModules() {
		b.Roots = append(b.Roots, entry)
		if err := traverse(entry); err != nil {
			return nil, err
		}
	}
	return b, nil
}
