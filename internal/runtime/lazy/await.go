// # internal/runtime/lazy/await.go
package lazy

import (
	"context"
	"sync"
)

// Thenable is a value that resolves asynchronously.
type Thenable interface {
	Then(ctx context.Context) (any, error)
}

// ResolveHook rewrites a value before Await inspects it. It reports false
// when it does not apply to v.
type ResolveHook func(v any) (any, bool)

var (
	hooksMu     sync.RWMutex
	hooks       []ResolveHook
	installOnce sync.Once
)

// Install registers the proxy unwrapping hook with Await. It is safe to call
// any number of times; the hook is added once and stays for the life of the
// process.
func Install() {
	installOnce.Do(func() {
		RegisterHook(unwrapProxy)
	})
}

// RegisterHook appends h to the resolution chain.
func RegisterHook(h ResolveHook) {
	hooksMu.Lock()
	hooks = append(hooks, h)
	hooksMu.Unlock()
}

func unwrapProxy(v any) (any, bool) {
	p, ok := v.(*Proxy)
	if !ok {
		return v, false
	}
	return p.Unwrap(), true
}

func resolveHooks(v any) any {
	hooksMu.RLock()
	chain := hooks
	hooksMu.RUnlock()

	for _, h := range chain {
		if next, ok := h(v); ok {
			v = next
		}
	}
	return v
}

// Await resolves v the way an await expression would. Registered hooks run
// first, so an installed runtime turns a lazy proxy into its initialized
// exports rather than treating the proxy as a pending value. Thenables are
// then awaited until a plain value remains.
//
// Hosts embedding lazy proxies must resolve awaited values through Await.
func Await(ctx context.Context, v any) (any, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v = resolveHooks(v)

		t, ok := v.(Thenable)
		if !ok {
			return v, nil
		}
		next, err := t.Then(ctx)
		if err != nil {
			return nil, err
		}
		v = next
	}
}
