package provider

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
)

// Registry is the closed, read-only set of providers indexed by name.
type Registry struct {
	byName map[entity.ProviderName]Provider
}

func NewRegistry(providers ...Provider) (*Registry, error) {
	byName := make(map[entity.ProviderName]Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("provider must not be nil")
		}
		name := normalizeName(p.Name())
		if name == "" {
			return nil, fmt.Errorf("provider name must not be empty")
		}
		if _, ok := byName[name]; ok {
			return nil, fmt.Errorf("duplicate provider %q", name)
		}
		byName[name] = p
	}
	return &Registry{byName: byName}, nil
}

// Get resolves name. Unknown names are a ConfigurationError.
func (r *Registry) Get(name entity.ProviderName) (Provider, error) {
	p, ok := r.byName[normalizeName(name)]
	if !ok {
		return nil, &entity.ConfigurationError{
			Msg: fmt.Sprintf("unknown provider %q (available: %s)", name, strings.Join(r.Names(), ", ")),
		}
	}
	return p, nil
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, string(name))
	}
	sort.Strings(out)
	return out
}

func normalizeName(name entity.ProviderName) entity.ProviderName {
	return entity.ProviderName(strings.ToLower(strings.TrimSpace(string(name))))
}
