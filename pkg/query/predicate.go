package query

import "sort"

// Predicate is a typed filter expression node. Predicates are built from a
// small closed set of node kinds and are constructed directly from typed
// values; there is no string form and nothing is ever interpreted as source
// text. Store drivers compile the node tree into their native filter format.
type Predicate interface {
	isPredicate()
}

// CompareOp identifies a comparison operator.
type CompareOp string

const (
	OpEq  CompareOp = "eq"
	OpNe  CompareOp = "ne"
	OpGt  CompareOp = "gt"
	OpGte CompareOp = "gte"
	OpLt  CompareOp = "lt"
	OpLte CompareOp = "lte"
	OpIn  CompareOp = "in"
)

// Comparison compares a single field against a literal value.
type Comparison struct {
	Field string
	Op    CompareOp
	Value interface{}
}

func (Comparison) isPredicate() {}

// Conjunction is the logical AND of its sub-predicates.
type Conjunction struct {
	Predicates []Predicate
}

func (Conjunction) isPredicate() {}

// Disjunction is the logical OR of its sub-predicates.
type Disjunction struct {
	Predicates []Predicate
}

func (Disjunction) isPredicate() {}

// Negation is the logical NOT of its sub-predicate.
type Negation struct {
	Predicate Predicate
}

func (Negation) isPredicate() {}

// Eq matches documents where field equals value.
func Eq(field string, value interface{}) Predicate {
	return Comparison{Field: field, Op: OpEq, Value: value}
}

// Ne matches documents where field differs from value.
func Ne(field string, value interface{}) Predicate {
	return Comparison{Field: field, Op: OpNe, Value: value}
}

// Gt matches documents where field is greater than value.
func Gt(field string, value interface{}) Predicate {
	return Comparison{Field: field, Op: OpGt, Value: value}
}

// Gte matches documents where field is greater than or equal to value.
func Gte(field string, value interface{}) Predicate {
	return Comparison{Field: field, Op: OpGte, Value: value}
}

// Lt matches documents where field is less than value.
func Lt(field string, value interface{}) Predicate {
	return Comparison{Field: field, Op: OpLt, Value: value}
}

// Lte matches documents where field is less than or equal to value.
func Lte(field string, value interface{}) Predicate {
	return Comparison{Field: field, Op: OpLte, Value: value}
}

// In matches documents where field equals any of the given values.
func In(field string, values ...interface{}) Predicate {
	return Comparison{Field: field, Op: OpIn, Value: values}
}

// And combines predicates into a conjunction. A single predicate is
// returned unchanged; an empty call returns nil (no restriction).
func And(predicates ...Predicate) Predicate {
	switch len(predicates) {
	case 0:
		return nil
	case 1:
		return predicates[0]
	}
	return Conjunction{Predicates: predicates}
}

// Or combines predicates into a disjunction. A single predicate is
// returned unchanged; an empty call returns nil.
func Or(predicates ...Predicate) Predicate {
	switch len(predicates) {
	case 0:
		return nil
	case 1:
		return predicates[0]
	}
	return Disjunction{Predicates: predicates}
}

// Not negates a predicate.
func Not(p Predicate) Predicate {
	return Negation{Predicate: p}
}

// EqualAll builds a conjunction of field = value clauses from the given
// conditions. Keys are visited in sorted order so the resulting tree is
// deterministic.
func EqualAll(conditions map[string]interface{}) Predicate {
	preds := make([]Predicate, 0, len(conditions))
	for _, field := range sortedKeys(conditions) {
		preds = append(preds, Eq(field, conditions[field]))
	}
	return And(preds...)
}

// NotEqualAll builds a conjunction of field != value clauses from the given
// conditions. This is the exclusion form: a document matches when none of
// its listed fields carries the listed value.
func NotEqualAll(conditions map[string]interface{}) Predicate {
	preds := make([]Predicate, 0, len(conditions))
	for _, field := range sortedKeys(conditions) {
		preds = append(preds, Ne(field, conditions[field]))
	}
	return And(preds...)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
