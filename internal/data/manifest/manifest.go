// # internal/data/manifest/manifest.go
package manifest

import (
	"acyclic/internal/core/errors"
	"acyclic/internal/core/ports"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// File is the on-disk shape of a bundle manifest.
type File struct {
	Name    string   `toml:"name"`
	Modules []Module `toml:"modules"`
}

type Module struct {
	ID    string `toml:"id"`
	Path  string `toml:"path"`
	Entry bool   `toml:"entry"`
	// Code, when set, is used instead of reading Path.
	Code         string            `toml:"code"`
	Symbols      map[string]string `toml:"symbols"`
	Dependencies []Dependency      `toml:"dependencies"`
}

type Dependency struct {
	ID        string `toml:"id"`
	Specifier string `toml:"specifier"`
	// Target is the id of the module the specifier resolves to inside the
	// bundle. Empty means external.
	Target string `toml:"target"`
}

// Manifest is a loaded bundle. It serves as both the bundle graph and the
// source provider for planning.
type Manifest struct {
	Name string
	Dir  string

	order   []string
	modules map[string]ports.Module
	deps    map[string][]ports.Dependency
	targets map[string]string
	sources ports.Sources
	files   map[string]string
}

var (
	_ ports.BundleGraph    = (*Manifest)(nil)
	_ ports.SourceProvider = (*Manifest)(nil)
)

// Load reads the manifest at path and the code of every module. Module
// paths are relative to the manifest's directory.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "cannot read bundle manifest"), errors.CtxPath, path)
	}

	var f File
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "invalid bundle manifest"), errors.CtxPath, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return FromFile(f, filepath.Dir(abs))
}

// FromFile validates f and loads module code relative to dir.
func FromFile(f File, dir string) (*Manifest, error) {
	if err := validate(f); err != nil {
		return nil, err
	}

	m := &Manifest{
		Name:    f.Name,
		Dir:     dir,
		modules: make(map[string]ports.Module, len(f.Modules)),
		deps:    make(map[string][]ports.Dependency, len(f.Modules)),
		targets: make(map[string]string),
		sources: make(ports.Sources, len(f.Modules)),
		files:   make(map[string]string, len(f.Modules)),
	}
	if m.Name == "" {
		m.Name = filepath.Base(dir)
	}

	for _, mod := range f.Modules {
		if mod.Entry {
			m.order = append(m.order, mod.ID)
		}
		m.modules[mod.ID] = ports.Module{ID: mod.ID, FilePath: mod.Path, Symbols: mod.Symbols}

		for i, d := range mod.Dependencies {
			dep := ports.Dependency{
				ID:             dependencyID(mod, i),
				SourceModuleID: mod.ID,
				Specifier:      d.Specifier,
			}
			m.deps[mod.ID] = append(m.deps[mod.ID], dep)
			if d.Target != "" {
				m.targets[dep.ID] = d.Target
			}
		}

		if err := m.loadSource(mod); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Manifest) loadSource(mod Module) error {
	if mod.Code != "" {
		m.sources[mod.ID] = mod.Code
		return nil
	}
	if mod.Path == "" {
		return nil
	}

	path := mod.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.Dir, path)
	}
	m.files[mod.ID] = path

	data, err := os.ReadFile(path)
	if err != nil {
		de := &errors.DomainError{
			Code:    errors.CodeMissingSource,
			Message: fmt.Sprintf("cannot read code of module %s", mod.ID),
			Err:     err,
		}
		return de.WithContext(errors.CtxModule, mod.ID).WithContext(errors.CtxPath, path)
	}
	m.sources[mod.ID] = string(data)
	return nil
}

func validate(f File) error {
	if len(f.Modules) == 0 {
		return errors.New(errors.CodeValidationError, "manifest declares no modules")
	}

	ids := make(map[string]bool, len(f.Modules))
	for i, mod := range f.Modules {
		id := strings.TrimSpace(mod.ID)
		if id == "" {
			return errors.Newf(errors.CodeValidationError, "modules[%d].id must not be empty", i)
		}
		if ids[id] {
			return errors.Newf(errors.CodeValidationError, "duplicate module id %q", id)
		}
		ids[id] = true
	}

	entries := 0
	depIDs := make(map[string]bool)
	for _, mod := range f.Modules {
		if mod.Entry {
			entries++
		}
		for i, d := range mod.Dependencies {
			if d.Target != "" && !ids[d.Target] {
				return errors.Newf(errors.CodeValidationError,
					"module %s dependency %d targets unknown module %q", mod.ID, i, d.Target)
			}
			id := dependencyID(mod, i)
			if depIDs[id] {
				return errors.Newf(errors.CodeValidationError,
					"duplicate dependency id %q (module %s dependency %d)", id, mod.ID, i)
			}
			depIDs[id] = true
		}
	}
	if entries == 0 {
		return errors.New(errors.CodeValidationError, "manifest declares no entry module")
	}
	return nil
}

// dependencyID is the declared id of the i-th dependency of mod, or
// "<module>:<i>" when none is declared.
func dependencyID(mod Module, i int) string {
	if mod.Dependencies[i].ID != "" {
		return mod.Dependencies[i].ID
	}
	return fmt.Sprintf("%s:%d", mod.ID, i)
}

func (m *Manifest) EntryModules() []string {
	return append([]string(nil), m.order...)
}

func (m *Manifest) Module(id string) (ports.Module, bool) {
	mod, ok := m.modules[id]
	return mod, ok
}

func (m *Manifest) Dependencies(moduleID string) []ports.Dependency {
	return m.deps[moduleID]
}

func (m *Manifest) ResolveDependency(dep ports.Dependency) (string, bool) {
	target, ok := m.targets[dep.ID]
	return target, ok
}

func (m *Manifest) Source(moduleID string) (string, bool) {
	return m.sources.Source(moduleID)
}

// Files maps module id to the absolute path its code was read from. Modules
// with inline code are not listed.
func (m *Manifest) Files() map[string]string {
	out := make(map[string]string, len(m.files))
	for id, path := range m.files {
		out[id] = path
	}
	return out
}
