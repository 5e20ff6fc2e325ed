// Package registry caches one live provider client per provider name.
package registry

import (
	"fmt"
	"sync"

	"github.com/hpkotak/codebud/internal/provider"
)

// Builder constructs a provider client. provider.NewFromConfig is the default.
type Builder func(provider.BuildConfig) (provider.Provider, error)

type entry struct {
	cfg    provider.Config
	handle provider.Provider
}

// Registry holds at most one handle per provider name. A Registry is safe
// for concurrent use.
type Registry struct {
	build     Builder
	endpoints provider.Endpoints

	mu      sync.Mutex
	handles map[string]entry
}

// New returns a Registry that builds real provider clients against endpoints.
func New(endpoints provider.Endpoints) *Registry {
	return NewWithBuilder(endpoints, provider.NewFromConfig)
}

// NewWithBuilder returns a Registry that uses build to construct handles.
func NewWithBuilder(endpoints provider.Endpoints, build Builder) *Registry {
	return &Registry{
		build:     build,
		endpoints: endpoints,
		handles:   make(map[string]entry),
	}
}

// Get returns the cached handle for cfg.Provider when it was built from an
// identical config. Otherwise it builds a new handle and replaces the cached
// one, so a provider never has more than one live handle.
func (r *Registry) Get(cfg provider.Config) (provider.Provider, error) {
	name := provider.NormalizeName(cfg.Provider)
	if !provider.Supported(name) {
		return nil, fmt.Errorf("%w %q", provider.ErrUnsupportedProvider, cfg.Provider)
	}
	cfg.Provider = name

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.handles[name]; ok && e.cfg == cfg {
		return e.handle, nil
	}

	p, err := r.build(provider.BuildConfig{Config: cfg, Endpoints: r.endpoints})
	if err != nil {
		return nil, fmt.Errorf("building %s client: %w", name, err)
	}
	r.handles[name] = entry{cfg: cfg, handle: p}
	return p, nil
}

// Len returns the number of cached handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Reset drops every cached handle.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.handles)
}
