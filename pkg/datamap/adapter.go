package datamap

import (
	"context"
	"fmt"
	"sync"

	"github.com/documap/documap/pkg/adapter"
	"github.com/documap/documap/pkg/logger"
	"github.com/documap/documap/pkg/mapping"
	"github.com/documap/documap/pkg/query"
)

// Adapter is the facade repository code talks to. It owns the store
// connection, the configured collection mappings and the query factory,
// and exposes the persistence operations plus the transaction boundary.
//
// Calls are synchronous and single-threaded per operation; the Adapter
// does not serialize concurrent terminal operations sharing its one
// connection. Callers needing concurrency serialize externally or use one
// Adapter per worker.
type Adapter struct {
	collections *mapping.Registry
	factory     *QueryFactory
	log         *logger.Logger

	mu   sync.RWMutex
	conn adapter.Connection
}

// New builds an adapter over an established connection and the configured
// collection mappings.
func New(conn adapter.Connection, collections *mapping.Registry, log *logger.Logger) *Adapter {
	if log == nil {
		log = logger.New("documap", "")
	}
	a := &Adapter{
		collections: collections,
		log:         log,
		conn:        conn,
	}
	a.factory = NewQueryFactory(collections, a.connection)
	return a
}

// Connect establishes a connection through the globally registered driver
// for config.ConnectionType and wraps it in an adapter.
func Connect(ctx context.Context, config adapter.ConnectionConfig, collections *mapping.Registry, log *logger.Logger) (*Adapter, error) {
	conn, err := adapter.Connect(ctx, config)
	if err != nil {
		return nil, err
	}
	a := New(conn, collections, log)
	a.log.Infof("connected to %s database %q", config.ConnectionType, config.DatabaseName)
	return a, nil
}

func (a *Adapter) connection() adapter.Connection {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.conn
}

// Query returns a fresh scoped query over the named collection.
func (a *Adapter) Query(collection string) (ScopedQuery, error) {
	return a.factory.ForCollection(collection)
}

// Command wraps a scoped query for a single mutating operation.
func (a *Adapter) Command(scope ScopedQuery) *Command {
	return NewCommand(scope)
}

// Create persists a new entity in the named collection and returns it
// with its store-assigned identity.
func (a *Adapter) Create(ctx context.Context, collection string, entity interface{}) (interface{}, error) {
	scope, err := a.Query(collection)
	if err != nil {
		return nil, adapter.WrapCommandError(collection, "create", err)
	}
	return a.Command(scope).Create(ctx, entity)
}

// Update rewrites the stored document matching the entity's identity.
// An identity matching nothing is a successful no-op update.
func (a *Adapter) Update(ctx context.Context, collection string, entity interface{}) (interface{}, int64, error) {
	scope, err := a.identityScope(collection, "update", entity)
	if err != nil {
		return nil, 0, err
	}
	return a.Command(scope).Update(ctx, entity)
}

// Delete removes the stored document matching the entity's identity and
// returns the removed count.
func (a *Adapter) Delete(ctx context.Context, collection string, entity interface{}) (int64, error) {
	scope, err := a.identityScope(collection, "delete", entity)
	if err != nil {
		return 0, err
	}
	return a.Command(scope).Delete(ctx)
}

// Clear removes every document in the named collection.
func (a *Adapter) Clear(ctx context.Context, collection string) (int64, error) {
	scope, err := a.Query(collection)
	if err != nil {
		return 0, adapter.WrapCommandError(collection, "clear", err)
	}
	return a.Command(scope).Clear(ctx)
}

// Transaction runs fn inside the store's native transaction primitive
// with the given rollback policy. Rollback is driven only by the error fn
// returns or by RollbackAlways, never by fn's other results.
func (a *Adapter) Transaction(ctx context.Context, opts adapter.TxOptions, fn func(ctx context.Context) error) error {
	return a.connection().Transaction(ctx, opts, fn)
}

// Ping checks the connection.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.connection().Ping(ctx)
}

// Disconnect releases the connection and replaces it with a sentinel that
// fails every further use with ErrConnectionClosed, so use after
// disconnect is an explicit error instead of undefined behavior.
func (a *Adapter) Disconnect() error {
	a.mu.Lock()
	conn := a.conn
	a.conn = disconnectedConnection{id: conn.ID(), storeType: conn.Type()}
	a.mu.Unlock()

	a.log.Infof("disconnected from %s connection %s", conn.Type(), conn.ID())
	return conn.Close()
}

// identityScope builds a scope narrowed to the entity's identity.
func (a *Adapter) identityScope(collection, operation string, entity interface{}) (ScopedQuery, error) {
	scope, err := a.Query(collection)
	if err != nil {
		return ScopedQuery{}, adapter.WrapCommandError(collection, operation, err)
	}

	id, err := scope.Collection().IdentityOf(entity)
	if err != nil {
		return ScopedQuery{}, adapter.WrapCommandError(collection, operation, err)
	}
	if id == "" {
		return ScopedQuery{}, adapter.WrapCommandError(collection, operation,
			fmt.Errorf("%w: entity has no identity", query.ErrInvalidArgument))
	}
	return scope.Where(query.Eq(scope.Collection().IdentityField(), id)), nil
}

// disconnectedConnection is the sentinel resource installed by
// Disconnect. Every operation fails with ErrConnectionClosed.
type disconnectedConnection struct {
	id        string
	storeType adapter.StoreType
}

func (d disconnectedConnection) ID() string              { return d.id }
func (d disconnectedConnection) Type() adapter.StoreType { return d.storeType }
func (d disconnectedConnection) IsConnected() bool       { return false }
func (d disconnectedConnection) Raw() interface{}        { return nil }

func (d disconnectedConnection) Ping(ctx context.Context) error {
	return adapter.ErrConnectionClosed
}

func (d disconnectedConnection) Close() error {
	return nil
}

func (d disconnectedConnection) RunQuery(ctx context.Context, ds query.Dataset) ([]mapping.Record, error) {
	return nil, adapter.ErrConnectionClosed
}

func (d disconnectedConnection) RunCount(ctx context.Context, ds query.Dataset) (int64, error) {
	return 0, adapter.ErrConnectionClosed
}

func (d disconnectedConnection) RunWrite(ctx context.Context, op adapter.WriteOp) (adapter.WriteAck, error) {
	return adapter.WriteAck{}, adapter.ErrConnectionClosed
}

func (d disconnectedConnection) Transaction(ctx context.Context, opts adapter.TxOptions, fn func(ctx context.Context) error) error {
	return adapter.ErrConnectionClosed
}
