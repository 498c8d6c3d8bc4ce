package datamap

import (
	"context"

	"github.com/documap/documap/pkg/adapter"
	"github.com/documap/documap/pkg/mapping"
	"github.com/documap/documap/pkg/query"
)

// ScopedQuery is an immutable value representing one collection plus an
// accumulated chain of query operations. Chain methods perform no I/O and
// return a new ScopedQuery; the receiver is never modified. Terminal
// methods execute against the connection and end the chain.
type ScopedQuery struct {
	dataset    query.Dataset
	collection *mapping.Collection
	conn       adapter.Connection
	coercer    mapping.IdentityCoercer
}

// NewScopedQuery anchors a fresh scope at the collection's base table.
func NewScopedQuery(collection *mapping.Collection, conn adapter.Connection) ScopedQuery {
	return ScopedQuery{
		dataset:    query.NewDataset(collection.Name()),
		collection: collection,
		conn:       conn,
	}
}

// Collection returns the mapped collection this scope reads and writes.
func (q ScopedQuery) Collection() *mapping.Collection { return q.collection }

// Dataset returns the accumulated dataset expression.
func (q ScopedQuery) Dataset() query.Dataset { return q.dataset }

// Where narrows the scope by ANDing a predicate onto the accumulated
// filter.
func (q ScopedQuery) Where(p query.Predicate) ScopedQuery {
	next := q
	next.dataset = q.dataset.Filter(p)
	return next
}

// Filter is an alias for Where.
func (q ScopedQuery) Filter(p query.Predicate) ScopedQuery {
	return q.Where(p)
}

// FilterFields narrows the scope to documents matching every given
// field/value pair.
func (q ScopedQuery) FilterFields(conditions map[string]interface{}) ScopedQuery {
	return q.Where(query.EqualAll(conditions))
}

// Exclude narrows the scope to documents matching none of the given
// field/value pairs. The negation is built from typed predicate nodes,
// never from interpreted text.
func (q ScopedQuery) Exclude(conditions map[string]interface{}) ScopedQuery {
	next := q
	next.dataset = q.dataset.Exclude(conditions)
	return next
}

// Limit bounds the result window to n documents.
func (q ScopedQuery) Limit(n int) ScopedQuery {
	next := q
	next.dataset = q.dataset.Limit(n)
	return next
}

// Offset skips the first n documents.
func (q ScopedQuery) Offset(n int) ScopedQuery {
	next := q
	next.dataset = q.dataset.Offset(n)
	return next
}

// OrderBy replaces the sort keys; earlier keys take precedence on ties.
func (q ScopedQuery) OrderBy(orderings ...query.Ordering) ScopedQuery {
	next := q
	next.dataset = q.dataset.OrderBy(orderings...)
	return next
}

// OrderMore appends sort keys after the existing ones.
func (q ScopedQuery) OrderMore(orderings ...query.Ordering) ScopedQuery {
	next := q
	next.dataset = q.dataset.OrderMore(orderings...)
	return next
}

// Select projects results to the named fields.
func (q ScopedQuery) Select(fields ...string) ScopedQuery {
	next := q
	next.dataset = q.dataset.Select(fields...)
	return next
}

// SelectAll resets the projection to every field.
func (q ScopedQuery) SelectAll() ScopedQuery {
	next := q
	next.dataset = q.dataset.SelectAll()
	return next
}

// GroupBy groups results by the named fields.
func (q ScopedQuery) GroupBy(fields ...string) ScopedQuery {
	next := q
	next.dataset = q.dataset.GroupBy(fields...)
	return next
}

// Join joins another table on a field pair with explicit semantics.
func (q ScopedQuery) Join(j query.Join) ScopedQuery {
	next := q
	next.dataset = q.dataset.Join(j)
	return next
}

// Insert serializes the entity and creates it as a single document in the
// collection's base table; any accumulated filter is ignored because
// creation always targets the bare table. The store-assigned identity is
// coerced out of the acknowledgement, merged into a new record value and
// the merged record deserialized into the returned entity, so on success
// the identity is set exactly once. On failure no partial entity is
// returned.
func (q ScopedQuery) Insert(ctx context.Context, entity interface{}) (interface{}, error) {
	if err := q.dataset.Err(); err != nil {
		return nil, err
	}

	rec, err := q.collection.Serialize(entity)
	if err != nil {
		return nil, err
	}

	ack, err := q.conn.RunWrite(ctx, adapter.WriteOp{
		Kind:    adapter.WriteInsert,
		Dataset: q.dataset.Base(),
		Record:  rec,
	})
	if err != nil {
		return nil, err
	}

	if id := q.coercer.Load(ack.GeneratedKeys); id != "" {
		rec = rec.With(q.collection.IdentityField(), id)
	}
	return q.collection.DeserializeOne(rec)
}

// Update serializes the entity, identity included, and applies its
// non-identity fields to every document the scope matches. A scope
// matching zero documents is a successful no-op update, not an error; the
// affected count reports how many documents actually changed.
func (q ScopedQuery) Update(ctx context.Context, entity interface{}) (interface{}, int64, error) {
	if err := q.dataset.Err(); err != nil {
		return nil, 0, err
	}

	rec, err := q.collection.Serialize(entity)
	if err != nil {
		return nil, 0, err
	}

	ack, err := q.conn.RunWrite(ctx, adapter.WriteOp{
		Kind:    adapter.WriteUpdate,
		Dataset: q.dataset,
		Record:  rec.Without(q.collection.IdentityField()),
	})
	if err != nil {
		return nil, 0, err
	}

	updated, err := q.collection.DeserializeOne(rec)
	if err != nil {
		return nil, 0, err
	}
	return updated, ack.ModifiedCount, nil
}

// Delete removes every document the scope matches and returns the count
// of removed documents, which may be zero.
func (q ScopedQuery) Delete(ctx context.Context) (int64, error) {
	if err := q.dataset.Err(); err != nil {
		return 0, err
	}

	ack, err := q.conn.RunWrite(ctx, adapter.WriteOp{
		Kind:    adapter.WriteDelete,
		Dataset: q.dataset,
	})
	if err != nil {
		return 0, err
	}
	return ack.DeletedCount, nil
}

// Materialize executes the scope as a read, normalizes the returned
// records and deserializes them into entities, preserving store order.
// Store failures surface as the query error kind.
func (q ScopedQuery) Materialize(ctx context.Context) ([]interface{}, error) {
	collection := q.collection.Name()

	if err := q.dataset.Err(); err != nil {
		return nil, adapter.WrapQueryError(collection, "materialize", err)
	}

	records, err := q.conn.RunQuery(ctx, q.dataset)
	if err != nil {
		return nil, adapter.WrapQueryError(collection, "materialize", err)
	}

	entities, err := q.collection.Deserialize(records)
	if err != nil {
		return nil, adapter.WrapQueryError(collection, "materialize", err)
	}
	return entities, nil
}

// Count counts the documents the scope matches without materializing them.
func (q ScopedQuery) Count(ctx context.Context) (int64, error) {
	collection := q.collection.Name()

	if err := q.dataset.Err(); err != nil {
		return 0, adapter.WrapQueryError(collection, "count", err)
	}

	n, err := q.conn.RunCount(ctx, q.dataset)
	if err != nil {
		return 0, adapter.WrapQueryError(collection, "count", err)
	}
	return n, nil
}
