package oauthprov

import (
	"github.com/eduhub/authbroker/internal/ports"
)

// Registry resolves OAuth providers by their request key.
type Registry struct {
	providers map[string]ports.OAuthProvider
}

// NewRegistry builds a registry from the given providers, keyed by Name().
func NewRegistry(providers ...ports.OAuthProvider) *Registry {
	m := make(map[string]ports.OAuthProvider, len(providers))
	for _, p := range providers {
		if p != nil {
			m[p.Name()] = p
		}
	}
	return &Registry{providers: m}
}

// Lookup returns the provider registered under name.
func (r *Registry) Lookup(name string) (ports.OAuthProvider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered provider keys, for startup logging.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
