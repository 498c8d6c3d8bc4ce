package mapping

import (
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// IdentityCoercer extracts and normalizes the identity value a creation
// acknowledgement carries. Identity may legitimately be caller-supplied,
// so extraction degrades to "" (absent) instead of failing.
type IdentityCoercer struct{}

// Load extracts the concrete identity from a write acknowledgement
// payload: the first element of a generated-keys list when one is
// present, otherwise the payload itself. Anything unusable yields "".
func (c IdentityCoercer) Load(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case []interface{}:
		if len(v) == 0 {
			return ""
		}
		return c.Dump(v[0])
	default:
		return c.Dump(v)
	}
}

// Dump normalizes an identity value to its string wire representation,
// for use in predicates and merged records. Unsupported values yield "".
func (c IdentityCoercer) Dump(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bson.ObjectID:
		if val.IsZero() {
			return ""
		}
		return val.Hex()
	case []byte:
		return string(val)
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case fmt.Stringer:
		return val.String()
	default:
		return ""
	}
}
