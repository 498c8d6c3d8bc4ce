package query

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned (deferred, see Dataset.Err) when a caller
// passes an invalid parameter such as a negative limit or offset.
var ErrInvalidArgument = errors.New("invalid argument")

// Direction is a sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Ordering is a single sort key.
type Ordering struct {
	Field     string
	Direction Direction
}

// Asc sorts ascending on field.
func Asc(field string) Ordering {
	return Ordering{Field: field, Direction: Ascending}
}

// Desc sorts descending on field.
func Desc(field string) Ordering {
	return Ordering{Field: field, Direction: Descending}
}

// JoinKind identifies the join semantics. Joins are always explicit; there
// is no implicit default.
type JoinKind string

const (
	InnerJoin JoinKind = "inner"
	LeftJoin  JoinKind = "left"
)

// Join describes a join against another table keyed on a field pair. The
// joined document is embedded under As (the foreign table name when empty).
type Join struct {
	Kind         JoinKind
	Table        string
	LocalField   string
	ForeignField string
	As           string
}

// Dataset is an immutable value describing one table plus an accumulated
// chain of query operations. Every extension method returns a new Dataset
// and never mutates its receiver, so a Dataset held by two callers can be
// extended independently. Invalid arguments are recorded as a deferred
// error (Err) rather than panicking, keeping the chain pure; the first
// terminal operation surfaces it.
type Dataset struct {
	table      string
	filter     Predicate
	limit      int64
	hasLimit   bool
	offset     int64
	hasOffset  bool
	order      []Ordering
	projection []string
	groups     []string
	joins      []Join
	err        error
}

// NewDataset returns a bare dataset over the named table.
func NewDataset(table string) Dataset {
	return Dataset{table: table}
}

// Table returns the base table name.
func (d Dataset) Table() string { return d.table }

// Err returns the first deferred argument error recorded on the chain.
func (d Dataset) Err() error { return d.err }

// Filter narrows the dataset by ANDing p onto the accumulated filter.
func (d Dataset) Filter(p Predicate) Dataset {
	if p == nil {
		return d
	}
	next := d
	if d.filter == nil {
		next.filter = p
	} else {
		next.filter = Conjunction{Predicates: []Predicate{d.filter, p}}
	}
	return next
}

// Exclude narrows the dataset to documents matching none of the given
// field/value pairs, built as a conjunction of field != value nodes.
func (d Dataset) Exclude(conditions map[string]interface{}) Dataset {
	return d.Filter(NotEqualAll(conditions))
}

// Limit bounds the result window to n documents. Negative n records a
// deferred ErrInvalidArgument.
func (d Dataset) Limit(n int) Dataset {
	next := d
	if n < 0 {
		next.err = d.firstErr(fmt.Errorf("%w: limit must be non-negative, got %d", ErrInvalidArgument, n))
		return next
	}
	next.limit = int64(n)
	next.hasLimit = true
	return next
}

// Offset skips the first n documents. Negative n records a deferred
// ErrInvalidArgument.
func (d Dataset) Offset(n int) Dataset {
	next := d
	if n < 0 {
		next.err = d.firstErr(fmt.Errorf("%w: offset must be non-negative, got %d", ErrInvalidArgument, n))
		return next
	}
	next.offset = int64(n)
	next.hasOffset = true
	return next
}

// OrderBy replaces the sort keys. Earlier keys take precedence on ties.
func (d Dataset) OrderBy(orderings ...Ordering) Dataset {
	next := d
	next.order = append([]Ordering(nil), orderings...)
	return next
}

// OrderMore appends sort keys after the existing ones.
func (d Dataset) OrderMore(orderings ...Ordering) Dataset {
	next := d
	merged := make([]Ordering, 0, len(d.order)+len(orderings))
	merged = append(merged, d.order...)
	merged = append(merged, orderings...)
	next.order = merged
	return next
}

// Select projects the result to the named fields.
func (d Dataset) Select(fields ...string) Dataset {
	next := d
	next.projection = append([]string(nil), fields...)
	return next
}

// SelectAll resets the projection to every field of the table.
func (d Dataset) SelectAll() Dataset {
	next := d
	next.projection = nil
	return next
}

// GroupBy groups the result by the named fields.
func (d Dataset) GroupBy(fields ...string) Dataset {
	next := d
	merged := make([]string, 0, len(d.groups)+len(fields))
	merged = append(merged, d.groups...)
	merged = append(merged, fields...)
	next.groups = merged
	return next
}

// Join adds a join clause.
func (d Dataset) Join(j Join) Dataset {
	if j.As == "" {
		j.As = j.Table
	}
	next := d
	merged := make([]Join, 0, len(d.joins)+1)
	merged = append(merged, d.joins...)
	merged = append(merged, j)
	next.joins = merged
	return next
}

// Base returns a bare dataset over the same table, dropping every
// accumulated operation. Insertion always targets the base table.
func (d Dataset) Base() Dataset {
	return Dataset{table: d.table, err: d.err}
}

// IsBare reports whether no operation has been accumulated, i.e. the
// dataset still denotes the unfiltered base table.
func (d Dataset) IsBare() bool {
	return d.filter == nil && !d.hasLimit && !d.hasOffset &&
		len(d.order) == 0 && d.projection == nil && len(d.groups) == 0 && len(d.joins) == 0
}

// Predicate returns the accumulated filter, nil when unfiltered.
func (d Dataset) Predicate() Predicate { return d.filter }

// LimitValue returns the limit and whether one is set.
func (d Dataset) LimitValue() (int64, bool) { return d.limit, d.hasLimit }

// OffsetValue returns the offset and whether one is set.
func (d Dataset) OffsetValue() (int64, bool) { return d.offset, d.hasOffset }

// Orderings returns the sort keys in precedence order.
func (d Dataset) Orderings() []Ordering { return d.order }

// Projection returns the projected fields, nil when every field is kept.
func (d Dataset) Projection() []string { return d.projection }

// Groupings returns the grouping fields.
func (d Dataset) Groupings() []string { return d.groups }

// Joins returns the join clauses.
func (d Dataset) Joins() []Join { return d.joins }

func (d Dataset) firstErr(err error) error {
	if d.err != nil {
		return d.err
	}
	return err
}
