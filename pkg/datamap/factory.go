package datamap

import (
	"github.com/documap/documap/pkg/adapter"
	"github.com/documap/documap/pkg/mapping"
)

// QueryFactory produces fresh scoped queries anchored at named
// collections, bound to whatever connection the owning adapter currently
// holds.
type QueryFactory struct {
	collections *mapping.Registry
	connFn      func() adapter.Connection
}

// NewQueryFactory creates a factory over the configured collections.
// connFn is consulted per query so a swapped connection (after
// disconnect) is picked up by subsequently built queries.
func NewQueryFactory(collections *mapping.Registry, connFn func() adapter.Connection) *QueryFactory {
	return &QueryFactory{
		collections: collections,
		connFn:      connFn,
	}
}

// ForCollection returns a fresh scope over the named collection.
// An unconfigured name returns ErrCollectionNotFound.
func (f *QueryFactory) ForCollection(name string) (ScopedQuery, error) {
	collection, err := f.collections.Get(name)
	if err != nil {
		return ScopedQuery{}, err
	}
	return NewScopedQuery(collection, f.connFn()), nil
}
