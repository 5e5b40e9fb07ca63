package lazy

import (
	"acyclic/internal/core/errors"
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingProxy(t *testing.T) (*Proxy, *atomic.Int32) {
	t.Helper()
	var runs atomic.Int32
	module := NewModule(nil)
	p := Wrap(module, func() {
		runs.Add(1)
		module.Exports().Set("value", 42)
	})
	return p, &runs
}

func TestProxy_ConstructionDoesNotInitialize(t *testing.T) {
	p, runs := countingProxy(t)

	assert.Equal(t, int32(0), runs.Load())
	assert.False(t, p.Initialized())
}

func TestProxy_ReadTriggersInitialization(t *testing.T) {
	p, runs := countingProxy(t)

	v, ok := p.Get("value")
	require.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, int32(1), runs.Load())
	assert.True(t, p.Initialized())

	select {
	case <-p.Ready():
	default:
		t.Fatal("expected Ready to be closed")
	}
}

func TestProxy_InitializesOnceAcrossOperations(t *testing.T) {
	p, runs := countingProxy(t)

	ops := []func(){
		func() { p.Set("a", 1) },
		func() { p.Get("a") },
		func() { p.Has("value") },
		func() { p.Keys() },
		func() { p.Set("b", 2) },
		func() { p.Delete("a") },
		func() { p.OwnProperty("b") },
		func() { p.Prototype() },
		func() { p.IsExtensible() },
		func() { p.Get("value") },
	}
	for _, op := range ops {
		op()
	}

	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, []string{"value", "b"}, p.Keys())
}

func TestProxy_EveryOperationTriggers(t *testing.T) {
	ops := map[string]func(p *Proxy){
		"get":               func(p *Proxy) { p.Get("x") },
		"set":               func(p *Proxy) { p.Set("x", 1) },
		"has":               func(p *Proxy) { p.Has("x") },
		"delete":            func(p *Proxy) { p.Delete("x") },
		"keys":              func(p *Proxy) { p.Keys() },
		"own property":      func(p *Proxy) { p.OwnProperty("x") },
		"define property":   func(p *Proxy) { p.DefineProperty("x", Property{Value: 1}) },
		"prototype":         func(p *Proxy) { p.Prototype() },
		"set prototype":     func(p *Proxy) { p.SetPrototype(nil) },
		"is extensible":     func(p *Proxy) { p.IsExtensible() },
		"prevent extension": func(p *Proxy) { p.PreventExtensions() },
		"call":              func(p *Proxy) { _, _ = p.Call(nil) },
		"construct":         func(p *Proxy) { _, _ = p.Construct() },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			p, runs := countingProxy(t)
			op(p)
			assert.Equal(t, int32(1), runs.Load())
		})
	}
}

func TestProxy_Concurrent(t *testing.T) {
	var runs atomic.Int32
	module := NewModule(nil)
	p := Wrap(module, func() {
		runs.Add(1)
		module.Exports().Set("ready", true)
	})

	type read struct {
		v  any
		ok bool
	}
	reads := make(chan read, 32)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				v, ok := p.Get("ready")
				reads <- read{v, ok}
			} else {
				p.Set("worker", i)
			}
		}(i)
	}
	wg.Wait()
	close(reads)

	assert.Equal(t, int32(1), runs.Load())
	for r := range reads {
		assert.True(t, r.ok)
		assert.Equal(t, true, r.v)
	}
}

func TestProxy_OtherGoroutinesWaitForInitializer(t *testing.T) {
	module := NewModule(nil)
	started := make(chan struct{})
	release := make(chan struct{})
	p := Wrap(module, func() {
		close(started)
		<-release
		module.Exports().Set("value", 42)
	})

	go p.Get("value")
	<-started

	type read struct {
		v  any
		ok bool
	}
	got := make(chan read, 1)
	go func() {
		v, ok := p.Get("value")
		got <- read{v, ok}
	}()

	select {
	case r := <-got:
		t.Fatalf("read returned before initialization finished: %v %v", r.v, r.ok)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case r := <-got:
		assert.True(t, r.ok)
		assert.Equal(t, 42, r.v)
	case <-time.After(2 * time.Second):
		t.Fatal("read never completed")
	}
	assert.True(t, p.Initialized())
}

func TestProxy_ReplacedExports(t *testing.T) {
	module := NewModule(nil)
	p := Wrap(module, func() {
		fn := NewExports()
		fn.Callable = func(_ any, args ...any) (any, error) {
			return len(args), nil
		}
		fn.Constructor = func(args ...any) (any, error) {
			return map[string]any{"args": args}, nil
		}
		module.SetExports(fn)
	})

	n, err := p.Call(nil, 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	obj, err := p.Construct("x")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"args": []any{"x"}}, obj)
}

func TestExports_Semantics(t *testing.T) {
	base := NewExports()
	base.Set("inherited", "yes")

	e := NewExports()
	require.True(t, e.SetPrototype(base))
	require.True(t, e.DefineProperty("fixed", Property{Value: 1, Enumerable: true}))

	v, ok := e.Get("inherited")
	assert.True(t, ok)
	assert.Equal(t, "yes", v)
	assert.True(t, e.Has("inherited"))
	assert.Empty(t, e.Keys()[1:])

	assert.False(t, e.Set("fixed", 2), "read-only property")
	assert.False(t, e.Delete("fixed"), "non-configurable property")

	e.PreventExtensions()
	assert.False(t, e.IsExtensible())
	assert.False(t, e.Set("new", 1))
	assert.False(t, e.SetPrototype(nil))

	_, err := e.Call(nil)
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))
	_, err = e.Construct()
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))
}

type deferred struct {
	value any
}

func (d deferred) Then(context.Context) (any, error) {
	return d.value, nil
}

func TestAwait(t *testing.T) {
	Install()
	Install()

	hooksMu.RLock()
	installed := len(hooks)
	hooksMu.RUnlock()
	assert.Equal(t, 1, installed, "Install must register its hook once")

	p, runs := countingProxy(t)
	got, err := Await(context.Background(), p)
	require.NoError(t, err)

	exports, ok := got.(Object)
	require.True(t, ok)
	v, _ := exports.Get("value")
	assert.Equal(t, 42, v)
	assert.Equal(t, int32(1), runs.Load())

	// Thenables resolving to a proxy are unwrapped too.
	p2, _ := countingProxy(t)
	got, err = Await(context.Background(), deferred{value: deferred{value: p2}})
	require.NoError(t, err)
	_, isProxy := got.(*Proxy)
	assert.False(t, isProxy)

	plain, err := Await(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, plain)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Await(ctx, 7)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_CyclicRequire(t *testing.T) {
	l := NewLoader()
	var seenEarly any
	var seenLate bool

	l.Define("a", func(l *Loader, m *Module) error {
		m.Exports().Set("early", 1)
		b, err := l.Require("b")
		if err != nil {
			return err
		}
		v, _ := b.Get("value")
		m.Exports().Set("fromB", v)
		m.Exports().Set("late", true)
		return nil
	})
	l.Define("b", func(l *Loader, m *Module) error {
		a, err := l.Require("a")
		if err != nil {
			return err
		}
		seenEarly, _ = a.Get("early")
		_, seenLate = a.Get("late")
		m.Exports().Set("value", seenEarly.(int)+1)
		return nil
	})

	a, err := l.Require("a")
	require.NoError(t, err)
	again, err := l.Require("a")
	require.NoError(t, err)
	assert.Same(t, a, again)

	v, ok := a.Get("fromB")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, seenEarly)
	assert.False(t, seenLate, "b observed a before it finished")
	assert.NoError(t, l.Err("a"))
}

func TestLoader_Errors(t *testing.T) {
	l := NewLoader()

	_, err := l.Require("missing")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	boom := stderrors.New("boom")
	l.Define("bad", func(*Loader, *Module) error { return boom })
	m, err := l.Require("bad")
	require.NoError(t, err)
	m.Keys()

	assert.ErrorIs(t, l.Err("bad"), boom)
}

func TestLoader_ConcurrentRequireWaitsForBody(t *testing.T) {
	l := NewLoader()
	var runs atomic.Int32
	release := make(chan struct{})

	l.Define("slow", func(l *Loader, m *Module) error {
		runs.Add(1)
		m.Exports().Set("half", true)
		<-release
		m.Exports().Set("done", true)
		return nil
	})

	first, err := l.Require("slow")
	require.NoError(t, err)
	go first.Get("done")

	for runs.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	second, err := l.Require("slow")
	require.NoError(t, err)
	got := make(chan bool, 1)
	go func() {
		_, ok := second.Get("done")
		got <- ok
	}()

	select {
	case <-got:
		t.Fatal("second caller saw partial exports")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	select {
	case ok := <-got:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never resumed")
	}
	assert.Equal(t, int32(1), runs.Load())
}
