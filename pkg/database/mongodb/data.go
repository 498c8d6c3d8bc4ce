package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/documap/documap/pkg/adapter"
	"github.com/documap/documap/pkg/mapping"
	"github.com/documap/documap/pkg/query"
)

// RunQuery executes the dataset expression as a read and returns the raw
// wire records in store order. Datasets with joins or groupings run as an
// aggregation pipeline; everything else runs as a find.
func (c *Connection) RunQuery(ctx context.Context, ds query.Dataset) ([]mapping.Record, error) {
	if !c.IsConnected() {
		return nil, adapter.ErrConnectionClosed
	}

	collection := c.db.Collection(ds.Table())

	if needsPipeline(ds) {
		pipeline, err := compilePipeline(ds)
		if err != nil {
			return nil, err
		}
		cursor, err := collection.Aggregate(ctx, pipeline)
		if err != nil {
			return nil, classifyError(err)
		}
		defer cursor.Close(ctx)

		var records []mapping.Record
		if err := cursor.All(ctx, &records); err != nil {
			return nil, classifyError(err)
		}
		return records, nil
	}

	filter, err := compileFilter(ds.Predicate())
	if err != nil {
		return nil, err
	}

	findOptions := options.Find()
	if sort := compileSort(ds.Orderings()); len(sort) > 0 {
		findOptions.SetSort(sort)
	}
	if offset, ok := ds.OffsetValue(); ok {
		findOptions.SetSkip(offset)
	}
	if limit, ok := ds.LimitValue(); ok {
		findOptions.SetLimit(limit)
	}
	if projection := compileProjection(ds.Projection()); len(projection) > 0 {
		findOptions.SetProjection(projection)
	}

	cursor, err := collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, classifyError(err)
	}
	defer cursor.Close(ctx)

	var records []mapping.Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, classifyError(err)
	}
	return records, nil
}

// RunCount counts the documents the dataset expression matches without
// fetching them. Datasets with joins or groupings count through the same
// pipeline a read would run, so the count agrees with Materialize.
func (c *Connection) RunCount(ctx context.Context, ds query.Dataset) (int64, error) {
	if !c.IsConnected() {
		return 0, adapter.ErrConnectionClosed
	}

	if needsPipeline(ds) {
		pipeline, err := compileCountPipeline(ds)
		if err != nil {
			return 0, err
		}
		cursor, err := c.db.Collection(ds.Table()).Aggregate(ctx, pipeline)
		if err != nil {
			return 0, classifyError(err)
		}
		defer cursor.Close(ctx)

		var results []struct {
			Count int64 `bson:"count"`
		}
		if err := cursor.All(ctx, &results); err != nil {
			return 0, classifyError(err)
		}
		// $count emits no document when the pipeline matches nothing.
		if len(results) == 0 {
			return 0, nil
		}
		return results[0].Count, nil
	}

	filter, err := compileFilter(ds.Predicate())
	if err != nil {
		return 0, err
	}

	countOptions := options.Count()
	if offset, ok := ds.OffsetValue(); ok {
		countOptions.SetSkip(offset)
	}
	if limit, ok := ds.LimitValue(); ok {
		countOptions.SetLimit(limit)
	}

	n, err := c.db.Collection(ds.Table()).CountDocuments(ctx, filter, countOptions)
	if err != nil {
		return 0, classifyError(err)
	}
	return n, nil
}

// RunWrite executes one mutating operation against the dataset's table.
func (c *Connection) RunWrite(ctx context.Context, op adapter.WriteOp) (adapter.WriteAck, error) {
	if !c.IsConnected() {
		return adapter.WriteAck{}, adapter.ErrConnectionClosed
	}

	collection := c.db.Collection(op.Dataset.Table())

	switch op.Kind {
	case adapter.WriteInsert:
		doc := op.Record.Without()
		if id, ok := doc["_id"]; ok {
			doc["_id"] = coerceFieldValue("_id", id)
		}
		result, err := collection.InsertOne(ctx, doc)
		if err != nil {
			return adapter.WriteAck{}, classifyError(err)
		}
		return adapter.WriteAck{GeneratedKeys: []interface{}{result.InsertedID}}, nil

	case adapter.WriteUpdate:
		filter, err := compileFilter(op.Dataset.Predicate())
		if err != nil {
			return adapter.WriteAck{}, err
		}
		result, err := collection.UpdateMany(ctx, filter,
			bson.D{{Key: "$set", Value: bson.M(op.Record)}})
		if err != nil {
			return adapter.WriteAck{}, classifyError(err)
		}
		return adapter.WriteAck{
			MatchedCount:  result.MatchedCount,
			ModifiedCount: result.ModifiedCount,
		}, nil

	case adapter.WriteDelete:
		filter, err := compileFilter(op.Dataset.Predicate())
		if err != nil {
			return adapter.WriteAck{}, err
		}
		result, err := collection.DeleteMany(ctx, filter)
		if err != nil {
			return adapter.WriteAck{}, classifyError(err)
		}
		return adapter.WriteAck{DeletedCount: result.DeletedCount}, nil
	}

	return adapter.WriteAck{}, fmt.Errorf("%w: unknown write kind %q", adapter.ErrInvalidCommand, op.Kind)
}
