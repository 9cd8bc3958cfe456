package diag

import (
	"sync"

	"github.com/slaclab/rouge/block"
	"github.com/slaclab/rouge/stream"
	"github.com/slaclab/rouge/xact"
)

// Provider returns a JSON-marshalable snapshot of whatever it wraps.
type Provider func() any

// Registry is a named collection of diagnostic Providers, safe for
// concurrent registration and snapshotting.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds or replaces the Provider for name.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// RegisterPool registers p's stats under name.
func (r *Registry) RegisterPool(name string, p *stream.Pool) {
	r.Register(name, func() any { return p.Stats() })
}

// RegisterBlock registers b's stats under name.
func (r *Registry) RegisterBlock(name string, b *block.Block) {
	r.Register(name, func() any { return b.Stats() })
}

// RegisterMaster registers m's stats under name.
func (r *Registry) RegisterMaster(name string, m *xact.Master) {
	r.Register(name, func() any { return m.Stats() })
}

// Unregister removes name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, name)
}

// Snapshot evaluates every registered Provider and returns the combined
// result keyed by name.
func (r *Registry) Snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]any, len(r.providers))
	for name, p := range r.providers {
		out[name] = p()
	}
	return out
}

// SnapshotOne evaluates the single named Provider.
func (r *Registry) SnapshotOne(name string) (any, bool) {
	r.mu.RLock()
	p, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return p(), true
}
