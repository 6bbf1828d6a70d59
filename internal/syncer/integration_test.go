package syncer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db-sync/internal/gitstore"
	"db-sync/internal/object"
	"db-sync/internal/registry"
	"db-sync/internal/syncer"
)

// Export against a real in-memory git repository: the first run commits the
// snapshot, the second finds nothing to do, and a dry run in between changes
// nothing.
func TestExportRoundTripThroughGitStore(t *testing.T) {
	store, err := gitstore.NewInMemory(nil)
	require.NoError(t, err)

	db := &fakeIntrospector{objs: []object.DBObject{
		{Schema: "dbo", Name: "orders", Type: object.Table, Definition: "CREATE TABLE [dbo].[orders] (\n    [id] INT NOT NULL\n)"},
		{Schema: "dbo", Name: "v_orders", Type: object.View, Definition: "CREATE VIEW v_orders AS SELECT id FROM orders"},
	}}
	reg := registry.New([]registry.Database{{Name: "dbtest1", Driver: "mssql", Sync: true}})
	s := syncer.New(reg, registry.NewRouter(reg), db, store,
		syncer.Signature{Name: "db-sync", Email: "db-sync@localhost"}, "", nil)

	first, err := s.SyncDBToRepo(context.Background(), "dbtest1", false)
	require.NoError(t, err)
	assert.Equal(t, "exported", first.Result)
	assert.NotEmpty(t, first.CommitID)

	objs, err := store.ListObjects(context.Background(), "dbtest1/")
	require.NoError(t, err)
	assert.Len(t, objs, 2)

	dry, err := s.SyncDBToRepo(context.Background(), "dbtest1", true)
	require.NoError(t, err)
	assert.True(t, dry.DryRun)

	second, err := s.SyncDBToRepo(context.Background(), "dbtest1", false)
	require.NoError(t, err)
	assert.Equal(t, "up-to-date", second.Result)
	assert.Empty(t, second.CommitID)

	// Dropping an object from the database removes its file on the next run.
	db.objs = db.objs[:1]
	third, err := s.SyncDBToRepo(context.Background(), "dbtest1", false)
	require.NoError(t, err)
	assert.Equal(t, "exported", third.Result)

	objs, err = store.ListObjects(context.Background(), "dbtest1/")
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "table/dbo/orders.sql", objs[0].Path)
}

// A file stored under an uppercase type segment still converges: export
// deletes the stored path instead of failing with an empty commit.
func TestExportConvergesNonCanonicalStoredPaths(t *testing.T) {
	store, err := gitstore.NewInMemory(nil)
	require.NoError(t, err)

	_, err = store.Commit(context.Background(), syncer.CommitRequest{
		Writes:  map[string]string{"dbtest1/VIEW/dbo/v1.sql": "CREATE VIEW v1 AS SELECT 1"},
		Message: "seed",
		Author:  syncer.Signature{Name: "db-sync", Email: "db-sync@localhost"},
	})
	require.NoError(t, err)

	db := &fakeIntrospector{}
	reg := registry.New([]registry.Database{{Name: "dbtest1", Driver: "mssql", Sync: true}})
	s := syncer.New(reg, registry.NewRouter(reg), db, store,
		syncer.Signature{Name: "db-sync", Email: "db-sync@localhost"}, "", nil)

	summary, err := s.SyncDBToRepo(context.Background(), "dbtest1", false)
	require.NoError(t, err)
	assert.Equal(t, "exported", summary.Result)

	objs, err := store.ListObjects(context.Background(), "dbtest1/")
	require.NoError(t, err)
	assert.Empty(t, objs)

	second, err := s.SyncDBToRepo(context.Background(), "dbtest1", false)
	require.NoError(t, err)
	assert.Equal(t, "up-to-date", second.Result)
}
