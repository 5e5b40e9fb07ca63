package lazy

import (
	"acyclic/internal/core/errors"
	"fmt"
	"slices"
	"sync"
)

// Factory is a module body. It populates (or replaces) module's exports and
// may require other modules through l.
type Factory func(l *Loader, module *Module) error

type registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	proxies   map[string]*Proxy
	errs      map[string]error
}

// Loader is a minimal module registry in the shape of a bundle runtime.
// Require hands out lazy proxies, so modules that require each other in a
// cycle resolve without running either body early.
//
// A module body receives a Loader view that remembers which modules its
// goroutine is initializing. Requiring one of those through the view yields
// the in-progress exports, while every other caller waits for the body to
// finish. Bodies on different goroutines that touch each other's exports in
// a cycle deadlock, as they would in any single-initialization runtime.
type Loader struct {
	reg   *registry
	chain []string
}

func NewLoader() *Loader {
	return &Loader{reg: &registry{
		factories: make(map[string]Factory),
		proxies:   make(map[string]*Proxy),
		errs:      make(map[string]error),
	}}
}

// Define registers the body of module id. Redefining an id that was already
// required has no effect on the existing proxy.
func (l *Loader) Define(id string, fn Factory) {
	l.reg.mu.Lock()
	l.reg.factories[id] = fn
	l.reg.mu.Unlock()
}

// Require returns the lazy exports of id. The module body runs on first
// access to the returned Object.
func (l *Loader) Require(id string) (Object, error) {
	r := l.reg
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.proxies[id]
	if !ok {
		fn, ok := r.factories[id]
		if !ok {
			de := &errors.DomainError{
				Code:    errors.CodeNotFound,
				Message: fmt.Sprintf("module %s is not defined", id),
			}
			return nil, de.WithContext(errors.CtxModule, id)
		}
		p = l.newProxy(id, fn)
		r.proxies[id] = p
	}

	switch {
	case slices.Contains(l.chain, id):
		return p.reentrantHandle(), nil
	case len(l.chain) > 0:
		return p.handle(l.chain), nil
	}
	return p, nil
}

func (l *Loader) newProxy(id string, fn Factory) *Proxy {
	module := NewModule(nil)
	return wrapChained(module, func(chain []string) {
		view := &Loader{reg: l.reg, chain: append(slices.Clone(chain), id)}
		if err := fn(view, module); err != nil {
			l.reg.mu.Lock()
			l.reg.errs[id] = errors.AddContext(err, errors.CtxModule, id)
			l.reg.mu.Unlock()
		}
	})
}

// Err returns the error the body of id failed with, if it has run.
func (l *Loader) Err(id string) error {
	l.reg.mu.Lock()
	defer l.reg.mu.Unlock()
	return l.reg.errs[id]
}
