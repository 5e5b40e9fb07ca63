// # internal/runtime/lazy/object.go
package lazy

import (
	"acyclic/internal/core/errors"
	"slices"
	"sync"
)

// Object is the capability set of a module's export container. Every way a
// loader or user code can observe exports goes through one of these methods.
type Object interface {
	Get(key string) (any, bool)
	Set(key string, value any) bool
	Has(key string) bool
	Delete(key string) bool
	Keys() []string
	OwnProperty(key string) (Property, bool)
	DefineProperty(key string, prop Property) bool
	Prototype() Object
	SetPrototype(proto Object) bool
	IsExtensible() bool
	PreventExtensions()
	Call(this any, args ...any) (any, error)
	Construct(args ...any) (any, error)
}

type Property struct {
	Value        any
	Writable     bool
	Enumerable   bool
	Configurable bool
}

// Exports is a map-backed Object. Keys keep insertion order. Callable and
// Constructor, when set, make the container invocable.
type Exports struct {
	mu          sync.RWMutex
	props       map[string]Property
	order       []string
	proto       Object
	sealed      bool
	Callable    func(this any, args ...any) (any, error)
	Constructor func(args ...any) (any, error)
}

var _ Object = (*Exports)(nil)

func NewExports() *Exports {
	return &Exports{props: make(map[string]Property)}
}

func (e *Exports) Get(key string) (any, bool) {
	e.mu.RLock()
	prop, ok := e.props[key]
	proto := e.proto
	e.mu.RUnlock()

	if ok {
		return prop.Value, true
	}
	if proto != nil {
		return proto.Get(key)
	}
	return nil, false
}

// Set writes a data property. Read-only properties and new keys on a
// non-extensible container are rejected.
func (e *Exports) Set(key string, value any) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if prop, ok := e.props[key]; ok {
		if !prop.Writable {
			return false
		}
		prop.Value = value
		e.props[key] = prop
		return true
	}
	if e.sealed {
		return false
	}
	e.props[key] = Property{Value: value, Writable: true, Enumerable: true, Configurable: true}
	e.order = append(e.order, key)
	return true
}

func (e *Exports) Has(key string) bool {
	e.mu.RLock()
	_, ok := e.props[key]
	proto := e.proto
	e.mu.RUnlock()

	if ok {
		return true
	}
	return proto != nil && proto.Has(key)
}

func (e *Exports) Delete(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	prop, ok := e.props[key]
	if !ok {
		return true
	}
	if !prop.Configurable {
		return false
	}
	delete(e.props, key)
	e.order = slices.DeleteFunc(e.order, func(k string) bool { return k == key })
	return true
}

// Keys lists own enumerable keys in insertion order.
func (e *Exports) Keys() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := make([]string, 0, len(e.order))
	for _, k := range e.order {
		if e.props[k].Enumerable {
			keys = append(keys, k)
		}
	}
	return keys
}

func (e *Exports) OwnProperty(key string) (Property, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	prop, ok := e.props[key]
	return prop, ok
}

func (e *Exports) DefineProperty(key string, prop Property) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.props[key]; ok {
		if !existing.Configurable {
			return false
		}
		e.props[key] = prop
		return true
	}
	if e.sealed {
		return false
	}
	e.props[key] = prop
	e.order = append(e.order, key)
	return true
}

func (e *Exports) Prototype() Object {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.proto
}

func (e *Exports) SetPrototype(proto Object) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sealed {
		return proto == e.proto
	}
	e.proto = proto
	return true
}

func (e *Exports) IsExtensible() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.sealed
}

func (e *Exports) PreventExtensions() {
	e.mu.Lock()
	e.sealed = true
	e.mu.Unlock()
}

func (e *Exports) Call(this any, args ...any) (any, error) {
	if e.Callable == nil {
		return nil, errors.New(errors.CodeNotSupported, "module exports are not callable")
	}
	return e.Callable(this, args...)
}

func (e *Exports) Construct(args ...any) (any, error) {
	if e.Constructor == nil {
		return nil, errors.New(errors.CodeNotSupported, "module exports are not a constructor")
	}
	return e.Constructor(args...)
}
