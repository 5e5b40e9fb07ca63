package symbols

import (
	"acyclic/internal/core/errors"
	"fmt"
	"slices"
)

// ExportTables returns the export table (exported name -> mangled local name)
// of a module.
type ExportTables interface {
	Exports(moduleID string) (map[string]string, bool)
}

// Origins maps a stable symbol id to the module that defines it.
type Origins map[string]string

// Owner returns the module defining symbolID.
func (o Origins) Owner(symbolID string) (string, bool) {
	id, ok := o[symbolID]
	return id, ok
}

// BuildOrigins records symbol id -> owning module for every export of every
// listed module. Two different modules claiming one id is a DUPLICATE_SYMBOL
// error; the same module exporting an id under several names is fine.
func BuildOrigins(moduleIDs []string, tables ExportTables, markers Markers) (Origins, error) {
	origins := make(Origins)
	for _, moduleID := range moduleIDs {
		exports, ok := tables.Exports(moduleID)
		if !ok {
			return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("no export table for module %s", moduleID))
		}
		for _, local := range sortedValues(exports) {
			symbolID, err := markers.SymbolID(local)
			if err != nil {
				return nil, errors.AddContext(err, errors.CtxModule, moduleID)
			}
			if owner, seen := origins[symbolID]; seen && owner != moduleID {
				return nil, errors.New(errors.CodeDuplicateSymbol,
					fmt.Sprintf("symbol id %s is exported by both %s and %s", symbolID, owner, moduleID))
			}
			origins[symbolID] = moduleID
		}
	}
	return origins, nil
}

func sortedValues(m map[string]string) []string {
	values := make([]string, 0, len(m))
	for _, v := range m {
		values = append(values, v)
	}
	slices.Sort(values)
	return values
}
