package provider

import (
	"fmt"
)

// Registry holds the set of configured providers, keyed by name. It is
// built once at process start and read-only afterwards; no synchronization
// is needed.
type Registry struct {
	order     []string
	providers map[string]Provider
}

// NewRegistry builds a registry from providers in configuration order.
// Names must be unique and non-empty.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{
		order:     make([]string, 0, len(providers)),
		providers: make(map[string]Provider, len(providers)),
	}
	for _, p := range providers {
		name := p.Name()
		if name == "" {
			return nil, fmt.Errorf("provider with empty name")
		}
		if _, exists := r.providers[name]; exists {
			return nil, fmt.Errorf("duplicate provider name: %s", name)
		}
		r.order = append(r.order, name)
		r.providers[name] = p
	}
	return r, nil
}

// Get returns the named provider or a provider_not_configured error.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, NewNotConfiguredError(name)
	}
	return p, nil
}

// Names returns the configured provider names in configuration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// List returns the configured providers in configuration order.
func (r *Registry) List() []Provider {
	providers := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		providers = append(providers, r.providers[name])
	}
	return providers
}

// Len returns the number of configured providers.
func (r *Registry) Len() int {
	return len(r.order)
}
