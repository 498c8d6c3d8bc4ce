package mapping

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Record is the wire-level field-name to value mapping produced by
// serialization. Values are plain Go scalars, nested Records and slices;
// NormalizeRecord aligns store-native containers and key types before a
// Record is handed to deserialization.
type Record map[string]interface{}

// With returns a copy of the record with field set to value. The receiver
// is never modified; merging a generated identity into a serialized record
// always produces a new value.
func (r Record) With(field string, value interface{}) Record {
	out := make(Record, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[field] = value
	return out
}

// Without returns a copy of the record with the named fields removed.
func (r Record) Without(fields ...string) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	for _, f := range fields {
		delete(out, f)
	}
	return out
}

// NormalizeRecord converts store-native container and key types inside a
// raw record into plain Go values: bson documents become Records, bson
// arrays become slices and object identifiers become their hex string
// form. Scalar wire types that the codec round-trips natively (datetimes,
// binary, decimals) are left untouched.
func NormalizeRecord(raw map[string]interface{}) Record {
	out := make(Record, len(raw))
	for k, v := range raw {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.ObjectID:
		return val.Hex()
	case bson.D:
		nested := make(Record, len(val))
		for _, elem := range val {
			nested[elem.Key] = normalizeValue(elem.Value)
		}
		return nested
	case bson.M:
		return NormalizeRecord(val)
	case map[string]interface{}:
		return NormalizeRecord(val)
	case Record:
		return NormalizeRecord(val)
	case bson.A:
		return normalizeSlice(val)
	case []interface{}:
		return normalizeSlice(val)
	default:
		return v
	}
}

func normalizeSlice(in []interface{}) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = normalizeValue(v)
	}
	return out
}
