package mapping

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type testUser struct {
	ID     string    `bson:"_id,omitempty"`
	Name   string    `bson:"name"`
	Age    int       `bson:"age"`
	Email  string    `bson:"email,omitempty"`
	Joined time.Time `bson:"joined,omitempty"`
}

func mustCollection(t *testing.T) *Collection {
	t.Helper()
	c, err := NewCollection("users", "_id", testUser{})
	require.NoError(t, err)
	return c
}

func TestNewCollectionValidation(t *testing.T) {
	tests := []struct {
		name       string
		collection string
		identity   string
		prototype  interface{}
	}{
		{"empty name", "", "_id", testUser{}},
		{"empty identity field", "users", "", testUser{}},
		{"scalar prototype", "users", "_id", 42},
		{"nil prototype", "users", "_id", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCollection(tt.collection, tt.identity, tt.prototype)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMappingFailed)
		})
	}
}

func TestSerializeOmitsUnsetIdentity(t *testing.T) {
	c := mustCollection(t)

	rec, err := c.Serialize(testUser{Name: "ada", Age: 36})
	require.NoError(t, err)

	_, hasID := rec["_id"]
	assert.False(t, hasID, "unset identity must be omitted pre-insert")
	assert.Equal(t, "ada", rec["name"])
}

func TestSerializeKeepsCallerSuppliedIdentity(t *testing.T) {
	c := mustCollection(t)

	rec, err := c.Serialize(testUser{ID: "abc123", Name: "ada", Age: 36})
	require.NoError(t, err)
	assert.Equal(t, "abc123", rec["_id"])
}

func TestRoundTripPreservesNonIdentityFields(t *testing.T) {
	c := mustCollection(t)
	e := testUser{Name: "grace", Age: 45, Email: "grace@example.com"}

	rec, err := c.Serialize(e)
	require.NoError(t, err)

	entities, err := c.Deserialize([]Record{rec})
	require.NoError(t, err)
	require.Len(t, entities, 1)

	got, ok := entities[0].(*testUser)
	require.True(t, ok)
	assert.Equal(t, e.Name, got.Name)
	assert.Equal(t, e.Age, got.Age)
	assert.Equal(t, e.Email, got.Email)
}

func TestDeserializePreservesInputOrder(t *testing.T) {
	c := mustCollection(t)

	entities, err := c.Deserialize([]Record{
		{"name": "first", "age": 1},
		{"name": "second", "age": 2},
		{"name": "third", "age": 3},
	})
	require.NoError(t, err)
	require.Len(t, entities, 3)
	assert.Equal(t, "first", entities[0].(*testUser).Name)
	assert.Equal(t, "second", entities[1].(*testUser).Name)
	assert.Equal(t, "third", entities[2].(*testUser).Name)
}

func TestDeserializeMalformedRecord(t *testing.T) {
	c := mustCollection(t)

	_, err := c.Deserialize([]Record{{"name": "ok", "age": "not a number"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMappingFailed)

	var mappingErr *MappingError
	require.ErrorAs(t, err, &mappingErr)
	assert.Equal(t, "users", mappingErr.Collection)
}

func TestDeserializeAlignsNativeIdentityKey(t *testing.T) {
	type account struct {
		Key  string `bson:"account_key,omitempty"`
		Name string `bson:"name"`
	}
	c, err := NewCollection("accounts", "account_key", account{})
	require.NoError(t, err)

	// record keyed with the store-native identity key
	got, err := c.DeserializeOne(Record{"_id": "k-1", "name": "ops"})
	require.NoError(t, err)
	assert.Equal(t, "k-1", got.(*account).Key)

	// mapped key wins when both are present
	got, err = c.DeserializeOne(Record{"_id": "native", "account_key": "mapped", "name": "ops"})
	require.NoError(t, err)
	assert.Equal(t, "mapped", got.(*account).Key)
}

func TestDeserializeNormalizesStoreContainers(t *testing.T) {
	type doc struct {
		ID   string   `bson:"_id,omitempty"`
		Tags []string `bson:"tags,omitempty"`
	}
	c, err := NewCollection("docs", "_id", doc{})
	require.NoError(t, err)

	oid := bson.NewObjectID()
	got, err := c.DeserializeOne(Record{
		"_id":  oid,
		"tags": bson.A{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, oid.Hex(), got.(*doc).ID)
	assert.Equal(t, []string{"a", "b"}, got.(*doc).Tags)
}

func TestDynamicCollectionRoundTrip(t *testing.T) {
	c, err := NewDynamicCollection("events", "_id")
	require.NoError(t, err)

	got, err := c.DeserializeOne(Record{"kind": "created", "seq": int64(7)})
	require.NoError(t, err)

	rec, ok := got.(*Record)
	require.True(t, ok)
	assert.Equal(t, "created", (*rec)["kind"])
}

func TestIdentityOf(t *testing.T) {
	c := mustCollection(t)

	id, err := c.IdentityOf(testUser{ID: "u-1", Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, "u-1", id)

	id, err = c.IdentityOf(testUser{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, "", id)
}

func TestRecordWithDoesNotMutateReceiver(t *testing.T) {
	rec := Record{"name": "a"}
	merged := rec.With("_id", "generated")

	_, has := rec["_id"]
	assert.False(t, has, "With must produce a new record value")
	assert.Equal(t, "generated", merged["_id"])
	assert.Equal(t, "a", merged["name"])
}

func TestRegistry(t *testing.T) {
	users := mustCollection(t)
	r := NewRegistry(users)

	got, err := r.Get("users")
	require.NoError(t, err)
	assert.Same(t, users, got)

	_, err = r.Get("ghosts")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}
