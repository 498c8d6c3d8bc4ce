package datamap

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/documap/documap/pkg/adapter"
	"github.com/documap/documap/pkg/mapping"
	"github.com/documap/documap/pkg/query"
)

// fakeConnection is an in-memory adapter.Connection for exercising the
// core without a live store. It evaluates dataset expressions against
// plain record slices and classifies its own write failures the way a
// real driver does.
type fakeConnection struct {
	id     string
	tables map[string][]mapping.Record

	failNextWrite error
	failNextQuery error

	snapshot map[string][]mapping.Record
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{
		id:     uuid.NewString(),
		tables: make(map[string][]mapping.Record),
	}
}

func (f *fakeConnection) seed(table string, docs ...mapping.Record) {
	for _, doc := range docs {
		f.tables[table] = append(f.tables[table], doc)
	}
}

func (f *fakeConnection) ID() string              { return f.id }
func (f *fakeConnection) Type() adapter.StoreType { return "fake" }
func (f *fakeConnection) IsConnected() bool       { return true }
func (f *fakeConnection) Raw() interface{}        { return f.tables }

func (f *fakeConnection) Ping(ctx context.Context) error { return nil }
func (f *fakeConnection) Close() error                   { return nil }

func (f *fakeConnection) RunQuery(ctx context.Context, ds query.Dataset) ([]mapping.Record, error) {
	if f.failNextQuery != nil {
		err := f.failNextQuery
		f.failNextQuery = nil
		return nil, err
	}

	matched := f.match(ds)

	if order := ds.Orderings(); len(order) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, o := range order {
				c := compareValues(matched[i][o.Field], matched[j][o.Field])
				if c == 0 {
					continue
				}
				if o.Direction == query.Descending {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if offset, ok := ds.OffsetValue(); ok {
		if int(offset) >= len(matched) {
			matched = nil
		} else {
			matched = matched[offset:]
		}
	}
	if limit, ok := ds.LimitValue(); ok && int64(len(matched)) > limit {
		matched = matched[:limit]
	}

	if fields := ds.Projection(); fields != nil {
		projected := make([]mapping.Record, len(matched))
		for i, rec := range matched {
			p := make(mapping.Record, len(fields))
			for _, field := range fields {
				if v, ok := rec[field]; ok {
					p[field] = v
				}
			}
			projected[i] = p
		}
		matched = projected
	}

	return matched, nil
}

func (f *fakeConnection) RunCount(ctx context.Context, ds query.Dataset) (int64, error) {
	if f.failNextQuery != nil {
		err := f.failNextQuery
		f.failNextQuery = nil
		return 0, err
	}
	return int64(len(f.match(ds))), nil
}

func (f *fakeConnection) RunWrite(ctx context.Context, op adapter.WriteOp) (adapter.WriteAck, error) {
	if f.failNextWrite != nil {
		err := f.failNextWrite
		f.failNextWrite = nil
		return adapter.WriteAck{}, err
	}

	table := op.Dataset.Table()
	switch op.Kind {
	case adapter.WriteInsert:
		doc := op.Record.Without() // copy
		id, ok := doc["_id"]
		if !ok {
			id = uuid.NewString()
			doc = doc.With("_id", id)
		}
		for _, existing := range f.tables[table] {
			if compareValues(existing["_id"], id) == 0 {
				return adapter.WriteAck{}, fmt.Errorf("%w: duplicate key %v in %s", adapter.ErrUniqueViolation, id, table)
			}
		}
		f.tables[table] = append(f.tables[table], doc)
		return adapter.WriteAck{GeneratedKeys: []interface{}{id}}, nil

	case adapter.WriteUpdate:
		var matched, modified int64
		for i, doc := range f.tables[table] {
			if !evalPredicate(op.Dataset.Predicate(), doc) {
				continue
			}
			matched++
			next := doc.Without()
			changed := false
			for k, v := range op.Record {
				if compareValues(next[k], v) != 0 {
					next[k] = v
					changed = true
				}
			}
			if changed {
				f.tables[table][i] = next
				modified++
			}
		}
		return adapter.WriteAck{MatchedCount: matched, ModifiedCount: modified}, nil

	case adapter.WriteDelete:
		var kept []mapping.Record
		var deleted int64
		for _, doc := range f.tables[table] {
			if evalPredicate(op.Dataset.Predicate(), doc) {
				deleted++
				continue
			}
			kept = append(kept, doc)
		}
		f.tables[table] = kept
		return adapter.WriteAck{DeletedCount: deleted}, nil
	}
	return adapter.WriteAck{}, fmt.Errorf("unknown write kind %q", op.Kind)
}

func (f *fakeConnection) Transaction(ctx context.Context, opts adapter.TxOptions, fn func(ctx context.Context) error) error {
	f.snapshot = copyTables(f.tables)

	err := fn(ctx)

	rollback := err != nil || opts.Rollback == adapter.RollbackAlways
	if rollback {
		f.tables = f.snapshot
	}
	f.snapshot = nil
	return err
}

func (f *fakeConnection) match(ds query.Dataset) []mapping.Record {
	var out []mapping.Record
	for _, doc := range f.tables[ds.Table()] {
		if evalPredicate(ds.Predicate(), doc) {
			out = append(out, doc)
		}
	}
	return out
}

func copyTables(tables map[string][]mapping.Record) map[string][]mapping.Record {
	out := make(map[string][]mapping.Record, len(tables))
	for name, docs := range tables {
		copied := make([]mapping.Record, len(docs))
		for i, doc := range docs {
			copied[i] = doc.Without()
		}
		out[name] = copied
	}
	return out
}

// evalPredicate interprets a predicate tree against one record. A nil
// predicate matches everything.
func evalPredicate(p query.Predicate, rec mapping.Record) bool {
	switch node := p.(type) {
	case nil:
		return true
	case query.Comparison:
		return evalComparison(node, rec)
	case query.Conjunction:
		for _, sub := range node.Predicates {
			if !evalPredicate(sub, rec) {
				return false
			}
		}
		return true
	case query.Disjunction:
		for _, sub := range node.Predicates {
			if evalPredicate(sub, rec) {
				return true
			}
		}
		return false
	case query.Negation:
		return !evalPredicate(node.Predicate, rec)
	}
	return false
}

func evalComparison(c query.Comparison, rec mapping.Record) bool {
	got, ok := rec[c.Field]
	switch c.Op {
	case query.OpEq:
		return ok && compareValues(got, c.Value) == 0
	case query.OpNe:
		return !ok || compareValues(got, c.Value) != 0
	case query.OpGt:
		return ok && compareValues(got, c.Value) > 0
	case query.OpGte:
		return ok && compareValues(got, c.Value) >= 0
	case query.OpLt:
		return ok && compareValues(got, c.Value) < 0
	case query.OpLte:
		return ok && compareValues(got, c.Value) <= 0
	case query.OpIn:
		values, isSlice := c.Value.([]interface{})
		if !ok || !isSlice {
			return false
		}
		for _, v := range values {
			if compareValues(got, v) == 0 {
				return true
			}
		}
		return false
	}
	return false
}

// compareValues orders two scalars, tolerating the integer width changes
// the wire codec introduces.
func compareValues(a, b interface{}) int {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return float64(n), true
	default:
		return 0, false
	}
}
