package adapter

import (
	"context"
	"fmt"
	"sync"
)

// Registry holds every configured adapter, keyed by name, and tracks which
// ones have been permanently disabled (a failed Initialize, or an upstream
// auth/credits failure an adapter reports during its own lifetime).
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	disabled map[string]string // name -> reason
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		disabled: make(map[string]string),
	}
}

// Register adds an adapter under its own Name().
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

// Get returns a registered adapter by name.
func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// Disable permanently excludes name from Active, recording why. It is
// idempotent.
func (r *Registry) Disable(name, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled[name] = reason
}

// IsDisabled reports whether name has been permanently excluded, and why.
func (r *Registry) IsDisabled(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reason, ok := r.disabled[name]
	return reason, ok
}

// Active returns every registered adapter that has not been disabled.
func (r *Registry) Active() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.adapters))
	for name, a := range r.adapters {
		if _, skip := r.disabled[name]; skip {
			continue
		}
		out = append(out, a)
	}
	return out
}

// InitializeAll calls Initialize on every registered adapter. An adapter
// whose Initialize fails is disabled rather than returned as an error, so
// one bad credential set never blocks startup of the rest of the fleet.
func (r *Registry) InitializeAll(ctx context.Context) map[string]error {
	r.mu.RLock()
	adapters := make(map[string]Adapter, len(r.adapters))
	for k, v := range r.adapters {
		adapters[k] = v
	}
	r.mu.RUnlock()

	results := make(map[string]error, len(adapters))
	for name, a := range adapters {
		if err := a.Initialize(ctx); err != nil {
			r.Disable(name, fmt.Sprintf("initialize failed: %v", err))
			results[name] = err
		}
	}
	return results
}
