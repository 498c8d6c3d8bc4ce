package mongodb

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/documap/documap/pkg/query"
)

var compareOps = map[query.CompareOp]string{
	query.OpNe:  "$ne",
	query.OpGt:  "$gt",
	query.OpGte: "$gte",
	query.OpLt:  "$lt",
	query.OpLte: "$lte",
	query.OpIn:  "$in",
}

// compileFilter turns a predicate tree into a native filter document. A nil
// predicate compiles to the match-everything filter.
func compileFilter(p query.Predicate) (bson.D, error) {
	switch node := p.(type) {
	case nil:
		return bson.D{}, nil

	case query.Comparison:
		return compileComparison(node)

	case query.Conjunction:
		subs, err := compileBranches(node.Predicates)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$and", Value: subs}}, nil

	case query.Disjunction:
		subs, err := compileBranches(node.Predicates)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$or", Value: subs}}, nil

	case query.Negation:
		sub, err := compileFilter(node.Predicate)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$nor", Value: bson.A{sub}}}, nil
	}
	return nil, fmt.Errorf("unsupported predicate node %T", p)
}

func compileBranches(predicates []query.Predicate) (bson.A, error) {
	subs := make(bson.A, 0, len(predicates))
	for _, p := range predicates {
		sub, err := compileFilter(p)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func compileComparison(c query.Comparison) (bson.D, error) {
	value := coerceFieldValue(c.Field, c.Value)

	if c.Op == query.OpEq {
		return bson.D{{Key: c.Field, Value: value}}, nil
	}

	op, ok := compareOps[c.Op]
	if !ok {
		return nil, fmt.Errorf("unsupported comparison operator %q", c.Op)
	}
	if c.Op == query.OpIn {
		values, isSlice := c.Value.([]interface{})
		if !isSlice {
			values = []interface{}{c.Value}
		}
		coerced := make(bson.A, len(values))
		for i, v := range values {
			coerced[i] = coerceFieldValue(c.Field, v)
		}
		return bson.D{{Key: c.Field, Value: bson.D{{Key: op, Value: coerced}}}}, nil
	}
	return bson.D{{Key: c.Field, Value: bson.D{{Key: op, Value: value}}}}, nil
}

// coerceFieldValue converts identity hex strings back to native ObjectIDs
// so filters match documents whose _id was store-assigned. Values that are
// not parseable hex are used as-is.
func coerceFieldValue(field string, value interface{}) interface{} {
	if field != "_id" {
		return value
	}
	s, ok := value.(string)
	if !ok || len(s) != 24 {
		return value
	}
	oid, err := bson.ObjectIDFromHex(s)
	if err != nil {
		return value
	}
	return oid
}

// compileSort turns the orderings into a native sort document.
func compileSort(orderings []query.Ordering) bson.D {
	sort := make(bson.D, 0, len(orderings))
	for _, o := range orderings {
		direction := 1
		if o.Direction == query.Descending {
			direction = -1
		}
		sort = append(sort, bson.E{Key: o.Field, Value: direction})
	}
	return sort
}

// compileProjection turns the projected field names into a native
// projection document. The identity field stays included unless the caller
// projected it away explicitly; the store includes _id by default and that
// default is kept.
func compileProjection(fields []string) bson.D {
	projection := make(bson.D, 0, len(fields))
	for _, field := range fields {
		projection = append(projection, bson.E{Key: field, Value: 1})
	}
	return projection
}

// needsPipeline reports whether the dataset uses operations that only the
// aggregation framework can express.
func needsPipeline(ds query.Dataset) bool {
	return len(ds.Joins()) > 0 || len(ds.Groupings()) > 0
}

// compilePipeline turns a dataset with joins or groupings into an
// aggregation pipeline. Stage order follows the accumulated operations:
// match, joins, group, sort, skip, limit, project.
func compilePipeline(ds query.Dataset) (mongo.Pipeline, error) {
	pipeline := mongo.Pipeline{}

	filter, err := compileFilter(ds.Predicate())
	if err != nil {
		return nil, err
	}
	if len(filter) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: filter}})
	}

	for _, join := range ds.Joins() {
		pipeline = append(pipeline, bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: join.Table},
			{Key: "localField", Value: join.LocalField},
			{Key: "foreignField", Value: join.ForeignField},
			{Key: "as", Value: join.As},
		}}})
		pipeline = append(pipeline, bson.D{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$" + join.As},
			{Key: "preserveNullAndEmptyArrays", Value: join.Kind == query.LeftJoin},
		}}})
	}

	if groups := ds.Groupings(); len(groups) > 0 {
		key := make(bson.D, 0, len(groups))
		for _, field := range groups {
			key = append(key, bson.E{Key: field, Value: "$" + field})
		}
		pipeline = append(pipeline, bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: key},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}})

		// Flatten the group key back onto top-level fields.
		flatten := bson.D{{Key: "_id", Value: 0}, {Key: "count", Value: 1}}
		for _, field := range groups {
			flatten = append(flatten, bson.E{Key: field, Value: "$_id." + field})
		}
		pipeline = append(pipeline, bson.D{{Key: "$project", Value: flatten}})
	}

	if sort := compileSort(ds.Orderings()); len(sort) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: sort}})
	}
	if offset, ok := ds.OffsetValue(); ok {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: offset}})
	}
	if limit, ok := ds.LimitValue(); ok {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	// A grouped result is already shaped by the flattening projection
	// above; a field projection on top would zero out the flattened keys.
	// Select is therefore ignored on grouped datasets.
	if projection := compileProjection(ds.Projection()); len(projection) > 0 && len(ds.Groupings()) == 0 {
		pipeline = append(pipeline, bson.D{{Key: "$project", Value: projection}})
	}

	return pipeline, nil
}

// compileCountPipeline compiles the dataset into a pipeline terminated by
// a $count stage. Joins and groupings reshape the document stream, so
// counting must run the same stages a read would; sorting and projection
// are skipped because they never change the cardinality.
func compileCountPipeline(ds query.Dataset) (mongo.Pipeline, error) {
	pipeline := mongo.Pipeline{}

	filter, err := compileFilter(ds.Predicate())
	if err != nil {
		return nil, err
	}
	if len(filter) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: filter}})
	}

	for _, join := range ds.Joins() {
		pipeline = append(pipeline, bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: join.Table},
			{Key: "localField", Value: join.LocalField},
			{Key: "foreignField", Value: join.ForeignField},
			{Key: "as", Value: join.As},
		}}})
		pipeline = append(pipeline, bson.D{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$" + join.As},
			{Key: "preserveNullAndEmptyArrays", Value: join.Kind == query.LeftJoin},
		}}})
	}

	if groups := ds.Groupings(); len(groups) > 0 {
		key := make(bson.D, 0, len(groups))
		for _, field := range groups {
			key = append(key, bson.E{Key: field, Value: "$" + field})
		}
		pipeline = append(pipeline, bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: key},
		}}})
	}

	if offset, ok := ds.OffsetValue(); ok {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: offset}})
	}
	if limit, ok := ds.LimitValue(); ok {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}

	pipeline = append(pipeline, bson.D{{Key: "$count", Value: "count"}})
	return pipeline, nil
}
