package fetch

import (
	"context"
	"fmt"

	"AINewsDigest/internal/domain"
)

// Fetcher captures a single extraction strategy (feed, page, or a named
// site-specific parser). Implementations recover entry-level malformation
// internally; a returned error means the whole source yielded nothing.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, src domain.Source) ([]domain.RawItem, error)
}

// Registry keeps a mapping from strategy identifiers to their implementations.
type Registry struct {
	fetchers map[string]Fetcher
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: map[string]Fetcher{}}
}

// Register adds or replaces a strategy implementation.
func (r *Registry) Register(fetcher Fetcher) {
	if r.fetchers == nil {
		r.fetchers = map[string]Fetcher{}
	}
	r.fetchers[fetcher.Name()] = fetcher
}

// Resolve returns a strategy by identifier or an error if it is absent.
func (r *Registry) Resolve(name string) (Fetcher, error) {
	if fetcher, ok := r.fetchers[name]; ok {
		return fetcher, nil
	}
	return nil, fmt.Errorf("fetch strategy %s is not registered", name)
}
