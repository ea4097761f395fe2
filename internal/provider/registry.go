package provider

import (
	"github.com/rotisserie/eris"

	"github.com/groupcart/catalog-cli/internal/model"
)

// ErrUnsupportedPlatform signals caller misuse: a platform selector no
// registered provider serves. It is the only provider-layer error that
// reaches API callers.
var ErrUnsupportedPlatform = eris.New("provider: unsupported platform selector")

// Registry holds the registered providers in registration order.
type Registry struct {
	providers []Provider
	byPlat    map[model.Platform]Provider
}

// NewRegistry creates a registry over the given providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{byPlat: make(map[model.Platform]Provider, len(providers))}
	for _, p := range providers {
		r.providers = append(r.providers, p)
		r.byPlat[p.Platform()] = p
	}
	return r
}

// ForSelector resolves a platform selector to the set of providers to
// query. PlatformAll returns every registered provider; an unknown
// platform returns ErrUnsupportedPlatform.
func (r *Registry) ForSelector(platform model.Platform) ([]Provider, error) {
	if platform == model.PlatformAll {
		if len(r.providers) == 0 {
			return nil, eris.Wrap(ErrUnsupportedPlatform, "no providers registered")
		}
		return r.providers, nil
	}
	p, ok := r.byPlat[platform]
	if !ok {
		return nil, eris.Wrapf(ErrUnsupportedPlatform, "platform %q", platform)
	}
	return []Provider{p}, nil
}

// All returns every registered provider.
func (r *Registry) All() []Provider {
	return r.providers
}
