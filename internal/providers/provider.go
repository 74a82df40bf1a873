package providers

import (
	"fmt"
)

// Registry maps a forge name to the provider serving it. It is filled once at
// startup and only read afterwards, so concurrent lookups need no locking.
type Registry map[string]Provider

// NewRegistry indexes the given providers by name
func NewRegistry(list ...Provider) Registry {
	r := make(Registry, len(list))
	for _, p := range list {
		r[p.Name()] = p
	}
	return r
}

// Lookup returns the provider for forge
func (r Registry) Lookup(forge string) (Provider, error) {
	p, ok := r[forge]
	if !ok {
		return nil, fmt.Errorf("no provider configured for forge %q", forge)
	}
	return p, nil
}
