package datamap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/documap/documap/pkg/adapter"
	"github.com/documap/documap/pkg/mapping"
	"github.com/documap/documap/pkg/query"
)

type testUser struct {
	ID     string `bson:"_id,omitempty"`
	Name   string `bson:"name"`
	Age    int    `bson:"age"`
	Status string `bson:"status,omitempty"`
}

func newTestAdapter(t *testing.T) (*Adapter, *fakeConnection) {
	t.Helper()
	users, err := mapping.NewCollection("users", "_id", testUser{})
	require.NoError(t, err)
	fake := newFakeConnection()
	return New(fake, mapping.NewRegistry(users), nil), fake
}

func TestScopedQueryChainLeavesReceiverUnchanged(t *testing.T) {
	a, _ := newTestAdapter(t)
	base, err := a.Query("users")
	require.NoError(t, err)

	derived := base.Where(query.Eq("status", "active")).Limit(3)
	other := base.OrderBy(query.Desc("age")).Offset(1)

	assert.Nil(t, base.Dataset().Predicate())
	assert.True(t, base.Dataset().IsBare())
	assert.NotNil(t, derived.Dataset().Predicate())
	assert.Len(t, other.Dataset().Orderings(), 1)
}

func TestInsertAssignsIdentityExactlyOnce(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	original := testUser{Name: "ada", Age: 36}
	created, err := a.Create(ctx, "users", original)
	require.NoError(t, err)

	got, ok := created.(*testUser)
	require.True(t, ok)
	assert.NotEmpty(t, got.ID, "insert must assign an identity")
	assert.Equal(t, "ada", got.Name)
	assert.Equal(t, 36, got.Age)
	assert.Empty(t, original.ID, "caller's entity is read, not written")
}

func TestInsertIgnoresAccumulatedFilter(t *testing.T) {
	a, fake := newTestAdapter(t)
	ctx := context.Background()

	scope, err := a.Query("users")
	require.NoError(t, err)
	scoped := scope.Where(query.Eq("status", "nobody"))

	_, err = a.Command(scoped).Create(ctx, testUser{Name: "grace", Age: 45})
	require.NoError(t, err)
	assert.Len(t, fake.tables["users"], 1, "creation targets the bare table")
}

func TestInsertKeepsCallerSuppliedIdentity(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	created, err := a.Create(ctx, "users", testUser{ID: "u-1", Name: "ada"})
	require.NoError(t, err)
	assert.Equal(t, "u-1", created.(*testUser).ID)
}

func TestUpdateZeroMatchIsSuccess(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	updated, affected, err := a.Update(ctx, "users", testUser{ID: "missing", Name: "ghost", Age: 1})
	require.NoError(t, err, "updating an empty scope is a no-op, not an error")
	assert.Zero(t, affected)
	require.NotNil(t, updated)
	assert.Equal(t, "ghost", updated.(*testUser).Name)
}

func TestUpdateRewritesMatchedDocument(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	created, err := a.Create(ctx, "users", testUser{Name: "ada", Age: 36})
	require.NoError(t, err)
	user := created.(*testUser)

	user.Age = 37
	_, affected, err := a.Update(ctx, "users", *user)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	scope, err := a.Query("users")
	require.NoError(t, err)
	entities, err := scope.Where(query.Eq("_id", user.ID)).Materialize(ctx)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, 37, entities[0].(*testUser).Age)
}

func TestUpdateWithoutIdentityIsArgumentError(t *testing.T) {
	a, _ := newTestAdapter(t)

	_, _, err := a.Update(context.Background(), "users", testUser{Name: "nobody"})
	require.Error(t, err)
	assert.ErrorIs(t, err, query.ErrInvalidArgument)
}

func TestExcludeNegation(t *testing.T) {
	a, fake := newTestAdapter(t)
	fake.seed("users",
		mapping.Record{"_id": "1", "name": "one", "age": 1, "status": "a"},
		mapping.Record{"_id": "2", "name": "two", "age": 2, "status": "b"},
	)

	scope, err := a.Query("users")
	require.NoError(t, err)

	entities, err := scope.Exclude(map[string]interface{}{"status": "a"}).Materialize(context.Background())
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "2", entities[0].(*testUser).ID)
	assert.Equal(t, "b", entities[0].(*testUser).Status)
}

func TestMaterializePreservesStoreOrder(t *testing.T) {
	a, fake := newTestAdapter(t)
	fake.seed("users",
		mapping.Record{"_id": "1", "name": "young", "age": 20},
		mapping.Record{"_id": "2", "name": "older", "age": 40},
		mapping.Record{"_id": "3", "name": "mid", "age": 30},
	)

	scope, err := a.Query("users")
	require.NoError(t, err)

	entities, err := scope.OrderBy(query.Desc("age")).Materialize(context.Background())
	require.NoError(t, err)
	require.Len(t, entities, 3)
	assert.Equal(t, "older", entities[0].(*testUser).Name)
	assert.Equal(t, "mid", entities[1].(*testUser).Name)
	assert.Equal(t, "young", entities[2].(*testUser).Name)
}

func TestSelectProjectsFields(t *testing.T) {
	a, fake := newTestAdapter(t)
	fake.seed("users", mapping.Record{"_id": "1", "name": "ada", "age": 36})

	scope, err := a.Query("users")
	require.NoError(t, err)

	entities, err := scope.Select("name").Materialize(context.Background())
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "ada", entities[0].(*testUser).Name)
	assert.Zero(t, entities[0].(*testUser).Age)
}

func TestCount(t *testing.T) {
	a, fake := newTestAdapter(t)
	fake.seed("users",
		mapping.Record{"_id": "1", "age": 10},
		mapping.Record{"_id": "2", "age": 20},
		mapping.Record{"_id": "3", "age": 30},
	)

	scope, err := a.Query("users")
	require.NoError(t, err)

	n, err := scope.Where(query.Gt("age", 15)).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestClearEmptiesCollection(t *testing.T) {
	a, fake := newTestAdapter(t)
	fake.seed("users",
		mapping.Record{"_id": "1"},
		mapping.Record{"_id": "2"},
	)

	deleted, err := a.Clear(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Empty(t, fake.tables["users"])
}

func TestDeleteScopedByIdentity(t *testing.T) {
	a, fake := newTestAdapter(t)
	fake.seed("users",
		mapping.Record{"_id": "keep", "name": "keep"},
		mapping.Record{"_id": "drop", "name": "drop"},
	)

	deleted, err := a.Delete(context.Background(), "users", testUser{ID: "drop", Name: "drop"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	require.Len(t, fake.tables["users"], 1)
	assert.Equal(t, "keep", fake.tables["users"][0]["_id"])
}

func TestUniqueViolationMapsToTaxonomy(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	_, err := a.Create(ctx, "users", testUser{ID: "dup", Name: "first"})
	require.NoError(t, err)

	created, err := a.Create(ctx, "users", testUser{ID: "dup", Name: "second"})
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrUniqueViolation)
	assert.Nil(t, created, "no partial entity on failure")

	var cmdErr *adapter.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "users", cmdErr.Collection)
	assert.Equal(t, "create", cmdErr.Operation)
}

func TestUnknownWriteErrorFoldsIntoInvalidCommand(t *testing.T) {
	a, fake := newTestAdapter(t)
	fake.failNextWrite = errors.New("wire torn mid-frame")

	_, err := a.Create(context.Background(), "users", testUser{Name: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrInvalidCommand)
}

func TestReadErrorFoldsIntoInvalidQuery(t *testing.T) {
	a, fake := newTestAdapter(t)
	fake.failNextQuery = errors.New("cursor lost")

	scope, err := a.Query("users")
	require.NoError(t, err)

	_, err = scope.Materialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrInvalidQuery)
}

func TestNegativeLimitSurfacesAtTerminal(t *testing.T) {
	a, _ := newTestAdapter(t)
	scope, err := a.Query("users")
	require.NoError(t, err)

	bad := scope.Limit(-5)

	_, err = bad.Materialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, query.ErrInvalidArgument)

	_, err = a.Command(bad).Create(context.Background(), testUser{Name: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, query.ErrInvalidArgument)
}

func TestCommandRefusesReuse(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	scope, err := a.Query("users")
	require.NoError(t, err)

	cmd := a.Command(scope)
	_, err = cmd.Create(ctx, testUser{Name: "once"})
	require.NoError(t, err)

	_, err = cmd.Delete(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrInvalidCommand)
}

func TestTransactionRollbackAlways(t *testing.T) {
	a, fake := newTestAdapter(t)
	ctx := context.Background()

	err := a.Transaction(ctx, adapter.TxOptions{Rollback: adapter.RollbackAlways}, func(ctx context.Context) error {
		_, err := a.Create(ctx, "users", testUser{Name: "phantom"})
		return err
	})
	require.NoError(t, err)
	assert.Empty(t, fake.tables["users"], "rollback always must persist nothing")
}

func TestTransactionReraisePropagatesBlockError(t *testing.T) {
	a, fake := newTestAdapter(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := a.Transaction(ctx, adapter.TxOptions{Rollback: adapter.RollbackReraise}, func(ctx context.Context) error {
		if _, err := a.Create(ctx, "users", testUser{Name: "phantom"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, fake.tables["users"])
}

func TestTransactionCommitsByDefault(t *testing.T) {
	a, fake := newTestAdapter(t)
	ctx := context.Background()

	err := a.Transaction(ctx, adapter.TxOptions{}, func(ctx context.Context) error {
		_, err := a.Create(ctx, "users", testUser{Name: "durable"})
		return err
	})
	require.NoError(t, err)
	assert.Len(t, fake.tables["users"], 1)
}

func TestDisconnectInstallsSentinel(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.Disconnect())

	_, err := a.Create(ctx, "users", testUser{Name: "late"})
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrConnectionClosed)

	scope, err := a.Query("users")
	require.NoError(t, err)
	_, err = scope.Materialize(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrConnectionClosed)

	assert.ErrorIs(t, a.Ping(ctx), adapter.ErrConnectionClosed)
}

func TestQueryUnknownCollection(t *testing.T) {
	a, _ := newTestAdapter(t)

	_, err := a.Query("ghosts")
	require.Error(t, err)
	assert.ErrorIs(t, err, mapping.ErrCollectionNotFound)
}
