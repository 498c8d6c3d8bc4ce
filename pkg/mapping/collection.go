package mapping

import (
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Collection holds the static schema knowledge for one mapped entity type:
// the collection name, the identity field and the entity/record codec.
// A Collection is constructed once at adapter-configuration time and is
// read-only afterwards; every scoped query referencing the collection
// shares the same instance.
type Collection struct {
	name          string
	identityField string
	prototype     reflect.Type
}

// NewCollection maps a collection name and identity field onto an entity
// prototype. The prototype must be a struct (or pointer to struct) whose
// bson tags describe the wire field names; deserialized entities are new
// values of this type. An invalid prototype returns a MappingError.
func NewCollection(name, identityField string, prototype interface{}) (*Collection, error) {
	if name == "" {
		return nil, NewMappingError(name, "collection name cannot be empty", nil)
	}
	if identityField == "" {
		return nil, NewMappingError(name, "identity field cannot be empty", nil)
	}

	t := reflect.TypeOf(prototype)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || (t.Kind() != reflect.Struct && t.Kind() != reflect.Map) {
		return nil, NewMappingError(name, fmt.Sprintf("prototype must be a struct or map, got %T", prototype), nil)
	}

	return &Collection{
		name:          name,
		identityField: identityField,
		prototype:     t,
	}, nil
}

// NewDynamicCollection maps a collection whose entities are plain Records
// rather than typed structs. Useful for tooling that does not know the
// schema ahead of time.
func NewDynamicCollection(name, identityField string) (*Collection, error) {
	return NewCollection(name, identityField, Record{})
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// IdentityField returns the wire name of the identity field.
func (c *Collection) IdentityField() string { return c.identityField }

// Serialize converts an entity into its wire record. Every persistable
// attribute is present except the identity field, which is omitted when
// unset so the store can assign one.
func (c *Collection) Serialize(entity interface{}) (Record, error) {
	if entity == nil {
		return nil, NewMappingError(c.name, "cannot serialize nil entity", nil)
	}

	data, err := bson.Marshal(entity)
	if err != nil {
		return nil, NewMappingError(c.name, "entity does not serialize", err)
	}

	var raw map[string]interface{}
	if err := bson.Unmarshal(data, &raw); err != nil {
		return nil, NewMappingError(c.name, "serialized entity does not decode", err)
	}

	rec := NormalizeRecord(raw)
	if id, ok := rec[c.identityField]; ok && isZeroIdentity(id) {
		delete(rec, c.identityField)
	}
	return rec, nil
}

// Deserialize converts wire records into entities, one per record in
// input order. Record keys are normalized first, so records keyed with
// store-native containers or a store-native identity key both map
// cleanly. A record that does not fit the entity shape surfaces a
// MappingError.
func (c *Collection) Deserialize(records []Record) ([]interface{}, error) {
	out := make([]interface{}, len(records))
	for i, rec := range records {
		entity, err := c.DeserializeOne(rec)
		if err != nil {
			return nil, err
		}
		out[i] = entity
	}
	return out, nil
}

// DeserializeOne converts a single wire record into an entity.
func (c *Collection) DeserializeOne(rec Record) (interface{}, error) {
	if rec == nil {
		return nil, NewMappingError(c.name, "cannot deserialize nil record", nil)
	}

	normalized := c.alignIdentityKey(NormalizeRecord(rec))

	data, err := bson.Marshal(normalized)
	if err != nil {
		return nil, NewMappingError(c.name, "record does not encode", err)
	}

	ptr := reflect.New(c.prototype)
	if err := bson.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, NewMappingError(c.name, "record does not fit entity shape", err)
	}
	return ptr.Interface(), nil
}

// IdentityOf extracts the identity value from an entity via its serialized
// record, "" when unset.
func (c *Collection) IdentityOf(entity interface{}) (string, error) {
	rec, err := c.Serialize(entity)
	if err != nil {
		return "", err
	}
	var coercer IdentityCoercer
	return coercer.Dump(rec[c.identityField]), nil
}

// alignIdentityKey maps a store-native "_id" key onto the collection's
// identity field when the two differ, so either key naming deserializes.
func (c *Collection) alignIdentityKey(rec Record) Record {
	if c.identityField == storeIdentityKey {
		return rec
	}
	v, hasNative := rec[storeIdentityKey]
	if !hasNative {
		return rec
	}
	if _, hasMapped := rec[c.identityField]; hasMapped {
		return rec.Without(storeIdentityKey)
	}
	return rec.Without(storeIdentityKey).With(c.identityField, v)
}

// storeIdentityKey is the document store's native identity key.
const storeIdentityKey = "_id"

func isZeroIdentity(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bson.ObjectID:
		return val.IsZero()
	case int:
		return val == 0
	case int32:
		return val == 0
	case int64:
		return val == 0
	default:
		return false
	}
}
