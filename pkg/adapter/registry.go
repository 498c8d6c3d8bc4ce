package adapter

import (
	"context"
	"fmt"
	"sync"
)

// Registry manages the registration and retrieval of store drivers.
type Registry struct {
	drivers map[StoreType]Driver
	mu      sync.RWMutex
}

// NewRegistry creates a new driver registry.
func NewRegistry() *Registry {
	return &Registry{
		drivers: make(map[StoreType]Driver),
	}
}

// Register registers a store driver.
// If a driver for the same store type is already registered, it is replaced.
func (r *Registry) Register(driver Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[driver.Type()] = driver
}

// Get retrieves a registered driver by store type.
// Returns ErrDriverNotFound if the driver is not registered.
func (r *Registry) Get(storeType StoreType) (Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	driver, exists := r.drivers[storeType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDriverNotFound, storeType)
	}
	return driver, nil
}

// IsRegistered checks if a driver is registered for the given store type.
func (r *Registry) IsRegistered(storeType StoreType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.drivers[storeType]
	return exists
}

// globalRegistry is the default process-wide registry drivers register
// into from their init functions.
var globalRegistry = NewRegistry()

// Register registers a driver with the global registry.
func Register(driver Driver) {
	globalRegistry.Register(driver)
}

// GetDriver retrieves a driver from the global registry.
func GetDriver(storeType StoreType) (Driver, error) {
	return globalRegistry.Get(storeType)
}

// Connect establishes a connection using the globally registered driver
// matching config.ConnectionType.
func Connect(ctx context.Context, config ConnectionConfig) (Connection, error) {
	driver, err := globalRegistry.Get(StoreType(config.ConnectionType))
	if err != nil {
		return nil, err
	}
	return driver.Connect(ctx, config)
}
