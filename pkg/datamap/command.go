package datamap

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/documap/documap/pkg/adapter"
)

// Command executes exactly one mutating operation against a scoped query.
// It is the single translation boundary for write-time failures: whatever
// the store raises during the one protected call leaves as a taxonomy
// kind, never untranslated. A Command is ephemeral; it retains no state
// after its single operation completes and refuses reuse.
type Command struct {
	scope ScopedQuery
	used  int32
}

// NewCommand wraps a scoped query for a single mutating operation.
func NewCommand(scope ScopedQuery) *Command {
	return &Command{scope: scope}
}

// Create inserts the entity and returns it with its assigned identity.
// On failure no partial entity is returned.
func (c *Command) Create(ctx context.Context, entity interface{}) (interface{}, error) {
	collection := c.scope.Collection().Name()
	if err := c.begin(collection, "create"); err != nil {
		return nil, err
	}

	created, err := c.scope.Insert(ctx, entity)
	if err != nil {
		return nil, adapter.WrapCommandError(collection, "create", err)
	}
	return created, nil
}

// Update applies the entity's non-identity fields to every document in
// scope. Zero matched documents is success with a zero affected count.
func (c *Command) Update(ctx context.Context, entity interface{}) (interface{}, int64, error) {
	collection := c.scope.Collection().Name()
	if err := c.begin(collection, "update"); err != nil {
		return nil, 0, err
	}

	updated, affected, err := c.scope.Update(ctx, entity)
	if err != nil {
		return nil, 0, adapter.WrapCommandError(collection, "update", err)
	}
	return updated, affected, nil
}

// Delete removes every document in scope and returns the removed count.
func (c *Command) Delete(ctx context.Context) (int64, error) {
	collection := c.scope.Collection().Name()
	if err := c.begin(collection, "delete"); err != nil {
		return 0, err
	}

	deleted, err := c.scope.Delete(ctx)
	if err != nil {
		return 0, adapter.WrapCommandError(collection, "delete", err)
	}
	return deleted, nil
}

// Clear removes every document in the collection regardless of the
// accumulated scope.
func (c *Command) Clear(ctx context.Context) (int64, error) {
	collection := c.scope.Collection().Name()
	if err := c.begin(collection, "clear"); err != nil {
		return 0, err
	}

	bare := c.scope
	bare.dataset = c.scope.dataset.Base()
	deleted, err := bare.Delete(ctx)
	if err != nil {
		return 0, adapter.WrapCommandError(collection, "clear", err)
	}
	return deleted, nil
}

// begin enforces the one-execution lifecycle.
func (c *Command) begin(collection, operation string) error {
	if !atomic.CompareAndSwapInt32(&c.used, 0, 1) {
		return adapter.WrapCommandError(collection, operation,
			fmt.Errorf("%w: command already executed", adapter.ErrInvalidCommand))
	}
	return nil
}
