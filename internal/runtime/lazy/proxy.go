// # internal/runtime/lazy/proxy.go
package lazy

import (
	"acyclic/internal/shared/observability"
	"sync"
)

// Module is the loader's record of one module. An initializer may replace
// the export container wholesale (module.exports = ...).
type Module struct {
	mu      sync.RWMutex
	exports Object
}

func NewModule(exports Object) *Module {
	if exports == nil {
		exports = NewExports()
	}
	return &Module{exports: exports}
}

func (m *Module) Exports() Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.exports
}

func (m *Module) SetExports(exports Object) {
	m.mu.Lock()
	m.exports = exports
	m.mu.Unlock()
}

type initState int

const (
	statePending initState = iota
	stateRunning
	stateDone
)

// initCore is the once-only initialization shared by every handle onto the
// same module.
type initCore struct {
	mu    sync.Mutex
	state initState
	run   func(chain []string)
	ready chan struct{}
}

// Proxy defers a module's initializer until its exports are first
// observed. It forwards every Object operation to the module's current
// export container.
//
// The initializer runs at most once. Operations from other goroutines
// block until it has returned. Only a reentrant handle, which Loader hands
// to module bodies on the initializing chain, sees the partially populated
// exports. An initializer given to Wrap must reach its own exports through
// the Module, not the proxy.
type Proxy struct {
	module *Module
	core   *initCore

	// chain lists the module ids being initialized by the caller that owns
	// this handle.
	chain     []string
	reentrant bool
}

var _ Object = (*Proxy)(nil)

// Wrap returns a proxy for module. init is not called here.
func Wrap(module *Module, init func()) *Proxy {
	return wrapChained(module, func([]string) {
		if init != nil {
			init()
		}
	})
}

func wrapChained(module *Module, run func(chain []string)) *Proxy {
	return &Proxy{
		module: module,
		core: &initCore{
			run:   run,
			ready: make(chan struct{}),
		},
	}
}

// handle returns another view onto the same module. Initialization it
// triggers is attributed to chain.
func (p *Proxy) handle(chain []string) *Proxy {
	return &Proxy{module: p.module, core: p.core, chain: chain}
}

// reentrantHandle returns a view that never waits for initialization.
func (p *Proxy) reentrantHandle() *Proxy {
	return &Proxy{module: p.module, core: p.core, reentrant: true}
}

func (p *Proxy) ensure() {
	c := p.core
	c.mu.Lock()
	switch c.state {
	case stateDone:
		c.mu.Unlock()
		return
	case stateRunning:
		c.mu.Unlock()
		if !p.reentrant {
			<-c.ready
		}
		return
	}
	c.state = stateRunning
	run := c.run
	c.run = nil
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state = stateDone
		c.mu.Unlock()
		close(c.ready)
	}()

	observability.LazyInitializationsTotal.Inc()
	if run != nil {
		run(p.chain)
	}
}

// Initialized reports whether the initializer has returned.
func (p *Proxy) Initialized() bool {
	p.core.mu.Lock()
	defer p.core.mu.Unlock()
	return p.core.state == stateDone
}

// Ready is closed once the initializer has returned.
func (p *Proxy) Ready() <-chan struct{} {
	return p.core.ready
}

// Unwrap triggers initialization and returns the real export container.
func (p *Proxy) Unwrap() Object {
	p.ensure()
	return p.module.Exports()
}

func (p *Proxy) Get(key string) (any, bool) {
	return p.Unwrap().Get(key)
}

func (p *Proxy) Set(key string, value any) bool {
	return p.Unwrap().Set(key, value)
}

func (p *Proxy) Has(key string) bool {
	return p.Unwrap().Has(key)
}

func (p *Proxy) Delete(key string) bool {
	return p.Unwrap().Delete(key)
}

func (p *Proxy) Keys() []string {
	return p.Unwrap().Keys()
}

func (p *Proxy) OwnProperty(key string) (Property, bool) {
	return p.Unwrap().OwnProperty(key)
}

func (p *Proxy) DefineProperty(key string, prop Property) bool {
	return p.Unwrap().DefineProperty(key, prop)
}

func (p *Proxy) Prototype() Object {
	return p.Unwrap().Prototype()
}

func (p *Proxy) SetPrototype(proto Object) bool {
	return p.Unwrap().SetPrototype(proto)
}

func (p *Proxy) IsExtensible() bool {
	return p.Unwrap().IsExtensible()
}

func (p *Proxy) PreventExtensions() {
	p.Unwrap().PreventExtensions()
}

func (p *Proxy) Call(this any, args ...any) (any, error) {
	return p.Unwrap().Call(this, args...)
}

func (p *Proxy) Construct(args ...any) (any, error) {
	return p.Unwrap().Construct(args...)
}
