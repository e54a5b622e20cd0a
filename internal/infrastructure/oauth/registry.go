// Package oauth holds the external identity providers and the signed state
// used to tie a provider callback to the request that started it.
package oauth

import (
	"github.com/fitlog/fitness-api/internal/core/domain"
	"github.com/fitlog/fitness-api/internal/core/ports"
)

// Registry holds the configured providers. It performs no auth logic itself.
type Registry struct {
	providers map[domain.Provider]ports.OAuthProvider
}

// NewRegistry registers the given providers by name; nil entries are skipped
// so unconfigured providers can be passed straight through.
func NewRegistry(list ...ports.OAuthProvider) *Registry {
	m := make(map[domain.Provider]ports.OAuthProvider)
	for _, p := range list {
		if p == nil {
			continue
		}
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get returns the provider for a route parameter, or domain.ErrUnknownProvider
// when it is not supported or not configured.
func (r *Registry) Get(name string) (ports.OAuthProvider, error) {
	provider, err := domain.ParseProvider(name)
	if err != nil {
		return nil, err
	}
	p, ok := r.providers[provider]
	if !ok {
		return nil, domain.ErrUnknownProvider
	}
	return p, nil
}

// Names lists the configured providers in a stable order.
func (r *Registry) Names() []domain.Provider {
	names := make([]domain.Provider, 0, len(r.providers))
	for _, p := range domain.Providers {
		if _, ok := r.providers[p]; ok {
			names = append(names, p)
		}
	}
	return names
}
