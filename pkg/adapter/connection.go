package adapter

import (
	"context"

	"github.com/documap/documap/pkg/mapping"
	"github.com/documap/documap/pkg/query"
)

// StoreType is the canonical identifier of a document store technology.
type StoreType string

// MongoDB is the store type of the bundled driver.
const MongoDB StoreType = "mongodb"

// WriteKind identifies a mutating operation.
type WriteKind string

const (
	WriteInsert WriteKind = "insert"
	WriteUpdate WriteKind = "update"
	WriteDelete WriteKind = "delete"
)

// WriteOp describes one mutating operation against a dataset. Insert
// carries the full document in Record and targets the dataset's base
// table; update carries the replacement fields and applies to every
// document the dataset matches; delete ignores Record.
type WriteOp struct {
	Kind    WriteKind
	Dataset query.Dataset
	Record  mapping.Record
}

// WriteAck is the store's acknowledgement of a write. GeneratedKeys holds
// store-assigned identities for inserts, in insertion order.
type WriteAck struct {
	GeneratedKeys []interface{}
	MatchedCount  int64
	ModifiedCount int64
	DeletedCount  int64
}

// RollbackPolicy selects how a transaction block resolves.
type RollbackPolicy string

const (
	// RollbackOnError commits unless the block returns an error, in which
	// case the transaction is rolled back and the error returned. This is
	// the default.
	RollbackOnError RollbackPolicy = ""

	// RollbackAlways rolls the transaction back even when the block
	// succeeds. The block's error, if any, is still returned.
	RollbackAlways RollbackPolicy = "always"

	// RollbackReraise rolls back on error and returns that same error to
	// the caller unchanged.
	RollbackReraise RollbackPolicy = "reraise"
)

// TxOptions configures a transaction block. The block's return value is
// never itself a rollback signal; rollback is driven only by the returned
// error or by RollbackAlways.
type TxOptions struct {
	Rollback RollbackPolicy
}

// Connection is an active connection to one document database. Calls are
// synchronous and block until the round trip completes; the core adds no
// queueing, retry or timeout of its own beyond the caller's context.
// A Connection is a single shared resource: concurrent terminal operations
// on the same Connection must be serialized by the caller.
type Connection interface {
	// Identity and status
	ID() string
	Type() StoreType
	IsConnected() bool

	// Lifecycle management
	Ping(ctx context.Context) error
	Close() error

	// RunQuery executes the dataset expression as a read and returns the
	// raw wire records in store order.
	RunQuery(ctx context.Context, ds query.Dataset) ([]mapping.Record, error)

	// RunCount counts the documents the dataset expression matches.
	RunCount(ctx context.Context, ds query.Dataset) (int64, error)

	// RunWrite executes one mutating operation.
	RunWrite(ctx context.Context, op WriteOp) (WriteAck, error)

	// Transaction runs fn inside the store's native transaction
	// primitive, applying the rollback policy in opts. Nested behavior is
	// whatever the store's primitive does; it is not reimplemented here.
	Transaction(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error

	// Raw returns the underlying store-specific handle. Type assertion is
	// required when using Raw().
	Raw() interface{}
}

// Driver creates connections for one store technology.
type Driver interface {
	// Type returns the canonical store type identifier
	Type() StoreType

	// Connect establishes a connection to a specific database
	Connect(ctx context.Context, config ConnectionConfig) (Connection, error)
}
