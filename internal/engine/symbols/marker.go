// # internal/engine/symbols/marker.go
package symbols

import (
	"acyclic/internal/core/errors"
	"fmt"
	"strings"
)

// Markers describes how the bundler mangles local names. An imported
// binding looks like
//
//	$95930220612465e5$import$61a9e60a12024cdc$ef35774e6d314e91
//	 importing module  kw     import record    symbol id
//
// Only the trailing symbol id is stable across importing modules, so it is
// the key used to match references with definitions.
type Markers struct {
	Separator     string
	ImportKeyword string
	ExportKeyword string
}

func DefaultMarkers() Markers {
	return Markers{Separator: "$", ImportKeyword: "import", ExportKeyword: "export"}
}

// IsImported reports whether name denotes a symbol imported from another module.
func (m Markers) IsImported(name string) bool {
	parts := strings.Split(name, m.Separator)
	return len(parts) > 2 && parts[2] == m.ImportKeyword
}

// SymbolID extracts the stable symbol id from a mangled name.
func (m Markers) SymbolID(name string) (string, error) {
	parts := strings.Split(name, m.Separator)
	id := parts[len(parts)-1]
	if id == "" {
		de := &errors.DomainError{
			Code:    errors.CodeMalformedSymbolMarker,
			Message: fmt.Sprintf("symbol %q does not contain a symbol id", name),
		}
		return "", de.WithContext(errors.CtxSymbol, name)
	}
	return id, nil
}

// CanonicalExportName rebinds a mangled local name to rootID so a shared
// runtime can find the export by symbol id whichever root re-exports it.
func (m Markers) CanonicalExportName(rootID, local string) (string, error) {
	id, err := m.SymbolID(local)
	if err != nil {
		return "", err
	}
	sep := m.Separator
	return sep + rootID + sep + m.ExportKeyword + sep + id, nil
}
