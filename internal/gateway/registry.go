package gateway

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// VenueFactory builds an execution venue. Implementations that also serve
// market data should implement MarketDataSource on the same value.
type VenueFactory func() (ExecutionVenue, error)

// Registry maps venue names to factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]VenueFactory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]VenueFactory)}
}

// Register adds a factory under name, replacing any previous one
func (r *Registry) Register(name string, factory VenueFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = factory
}

// Names returns the registered venue names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build constructs the venue registered under name
func (r *Registry) Build(name string) (ExecutionVenue, error) {
	r.mu.RLock()
	factory, ok := r.factories[strings.ToLower(name)]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown venue %q (registered: %s)", name, strings.Join(r.Names(), ", "))
	}

	venue, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to build venue %q: %w", name, err)
	}
	return venue, nil
}
