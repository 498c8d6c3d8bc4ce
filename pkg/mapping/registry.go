package mapping

import (
	"fmt"
	"sync"
)

// Registry holds the configured collections by name. It is populated at
// adapter-configuration time and read-only afterwards.
type Registry struct {
	mu          sync.RWMutex
	collections map[string]*Collection
}

// NewRegistry creates an empty collection registry.
func NewRegistry(collections ...*Collection) *Registry {
	r := &Registry{
		collections: make(map[string]*Collection, len(collections)),
	}
	for _, c := range collections {
		r.Add(c)
	}
	return r
}

// Add registers a collection. A collection registered under the same name
// replaces the previous one.
func (r *Registry) Add(c *Collection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections[c.Name()] = c
}

// Get retrieves a collection by name.
// Returns ErrCollectionNotFound if no mapping is configured for it.
func (r *Registry) Get(name string) (*Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.collections[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return c, nil
}

// Names returns the registered collection names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.collections))
	for name := range r.collections {
		names = append(names, name)
	}
	return names
}
