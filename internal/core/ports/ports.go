package ports

// Dependency is one declared import of a module as recorded by the host
// bundler. ID is unique per bundle; SourceModuleID is the importing module.
type Dependency struct {
	ID             string
	SourceModuleID string
	Specifier      string
}

// Module is the read-only view of a bundled module the planner needs.
type Module struct {
	ID       string
	FilePath string
	// Symbols maps exported name -> mangled local name.
	Symbols map[string]string
}

// BundleGraph abstracts the host bundler's module/bundle graph.
type BundleGraph interface {
	// EntryModules lists entry (root) module ids in a stable order.
	EntryModules() []string
	Module(id string) (Module, bool)
	// Dependencies lists the declared dependencies of a module in source order.
	Dependencies(moduleID string) []Dependency
	// ResolveDependency returns the module a dependency points to within
	// this bundle, or false when it is external or unresolved.
	ResolveDependency(dep Dependency) (string, bool)
}

// SourceProvider hands out the (transformed) code of a module.
type SourceProvider interface {
	Source(moduleID string) (string, bool)
}

// SourceMap is the part of a source map the patcher touches.
type SourceMap interface {
	// OffsetLines shifts every mapping at or after line (1-based) by count lines.
	OffsetLines(line, count int)
}

// HotUsageAnalyzer reports the symbol ids a module reads while initializing.
type HotUsageAnalyzer interface {
	HotSymbolIDs(moduleID, code string) ([]string, error)
}

// Sources is a map-backed SourceProvider keyed by module id.
type Sources map[string]string

func (s Sources) Source(moduleID string) (string, bool) {
	code, ok := s[moduleID]
	return code, ok
}
