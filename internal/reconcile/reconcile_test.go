package reconcile_test

import (
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db-sync/internal/object"
	"db-sync/internal/reconcile"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		same bool
	}{
		{"identical", "CREATE VIEW v AS SELECT 1", "CREATE VIEW v AS SELECT 1", true},
		{"line endings", "CREATE VIEW v\r\nAS SELECT 1\r\n", "CREATE VIEW v\nAS SELECT 1\n", true},
		{"whitespace runs", "CREATE   VIEW\tv AS  SELECT 1", "CREATE VIEW v AS SELECT 1", true},
		{"keyword case", "create view v as select 1", "CREATE VIEW v AS SELECT 1", true},
		{"leading and trailing", "  CREATE VIEW v AS SELECT 1  ", "CREATE VIEW v AS SELECT 1", true},
		{"real change", "CREATE VIEW v AS SELECT 1", "CREATE VIEW v AS SELECT 2", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.same, reconcile.Normalize(tc.a) == reconcile.Normalize(tc.b))
		})
	}
}

func TestOwnedPrefixScenario(t *testing.T) {
	// dbtest1 carries proc1, proc2 and prefix1_proc1; only the prefix1_
	// namespace is owned and its single object matches the repo exactly.
	dbObjs := []object.DBObject{
		{Schema: "dbo", Name: "proc1", Type: object.Procedure, Definition: "CREATE PROCEDURE proc1 AS SELECT 1"},
		{Schema: "dbo", Name: "proc2", Type: object.Procedure, Definition: "CREATE PROCEDURE proc2 AS SELECT 2"},
		{Schema: "dbo", Name: "prefix1_proc1", Type: object.Procedure, Definition: "CREATE PROCEDURE prefix1_proc1 AS SELECT 3"},
	}
	repoObjs := []object.RepoObject{
		{Path: "procedure/dbo/prefix1_proc1.sql", Definition: "CREATE PROCEDURE prefix1_proc1 AS SELECT 3"},
	}

	for _, mode := range []reconcile.Mode{reconcile.ModeExport, reconcile.ModeApply} {
		plan, err := reconcile.Reconcile(mode, dbObjs, repoObjs, []string{"prefix1_"})
		require.NoError(t, err)

		require.Len(t, plan.Entries, 1, "unowned objects must not be reported")
		entry := plan.Entries[0]
		assert.Equal(t, "prefix1_proc1", entry.Identity.Name)
		assert.Equal(t, reconcile.InSync, entry.Status)
		assert.Equal(t, reconcile.ActionNone, entry.Action)
		assert.False(t, plan.Actionable())
		assert.Empty(t, plan.Conflicts)
	}
}

func TestApplyModeConflict(t *testing.T) {
	dbObjs := []object.DBObject{
		{Schema: "dbo", Name: "view1", Type: object.View, Definition: "CREATE VIEW view1 AS SELECT 'Y'"},
	}
	repoObjs := []object.RepoObject{
		{Path: "view/dbo/view1.sql", Definition: "CREATE VIEW view1 AS SELECT 'X'"},
	}

	plan, err := reconcile.Reconcile(reconcile.ModeApply, dbObjs, repoObjs, nil)
	require.NoError(t, err)

	require.Len(t, plan.Conflicts, 1)
	assert.Equal(t, object.Identity{Schema: "dbo", Name: "view1", Type: object.View}, plan.Conflicts[0])
	assert.Equal(t, reconcile.Conflicting, plan.Entries[0].Status)
	assert.Equal(t, reconcile.ActionNone, plan.Entries[0].Action)
}

func TestExportModeHasNoConflicts(t *testing.T) {
	dbObjs := []object.DBObject{
		{Schema: "dbo", Name: "view1", Type: object.View, Definition: "CREATE VIEW view1 AS SELECT 'Y'"},
	}
	repoObjs := []object.RepoObject{
		{Path: "view/dbo/view1.sql", Definition: "CREATE VIEW view1 AS SELECT 'X'"},
	}

	plan, err := reconcile.Reconcile(reconcile.ModeExport, dbObjs, repoObjs, nil)
	require.NoError(t, err)

	assert.Empty(t, plan.Conflicts, "export treats the database as authoritative")
	require.Len(t, plan.Entries, 1)
	assert.Equal(t, reconcile.AddedInDB, plan.Entries[0].Status)
	assert.Equal(t, reconcile.ActionWriteFile, plan.Entries[0].Action)
	assert.Equal(t, "CREATE VIEW view1 AS SELECT 'Y'", plan.Entries[0].Definition)
}

func TestDirectionRelativeClassification(t *testing.T) {
	dbOnly := []object.DBObject{
		{Schema: "dbo", Name: "orders", Type: object.Table, Definition: "CREATE TABLE orders (id INT)"},
	}
	repoOnly := []object.RepoObject{
		{Path: "sequence/dbo/order_seq.sql", Definition: "CREATE SEQUENCE order_seq"},
	}

	export, err := reconcile.Reconcile(reconcile.ModeExport, dbOnly, repoOnly, nil)
	require.NoError(t, err)
	require.Len(t, export.Entries, 2)
	assert.Equal(t, reconcile.AddedInDB, export.Entries[0].Status)
	assert.Equal(t, reconcile.ActionWriteFile, export.Entries[0].Action)
	assert.Equal(t, reconcile.RemovedInDB, export.Entries[1].Status)
	assert.Equal(t, reconcile.ActionDeleteFile, export.Entries[1].Action)

	apply, err := reconcile.Reconcile(reconcile.ModeApply, dbOnly, repoOnly, nil)
	require.NoError(t, err)
	require.Len(t, apply.Entries, 2)
	assert.Equal(t, reconcile.RemovedInRepo, apply.Entries[0].Status)
	assert.Equal(t, reconcile.ActionNone, apply.Entries[0].Action, "apply never drops database-side objects")
	assert.Equal(t, reconcile.AddedInRepo, apply.Entries[1].Status)
	assert.Equal(t, reconcile.ActionApplyToDB, apply.Entries[1].Action)
}

func TestPlanOrderFollowsApplyOrder(t *testing.T) {
	repoObjs := []object.RepoObject{
		{Path: "trigger/dbo/trg_audit.sql", Definition: "CREATE TRIGGER trg_audit ON t AFTER INSERT AS SELECT 1"},
		{Path: "procedure/dbo/usp_load.sql", Definition: "CREATE PROCEDURE usp_load AS SELECT 1"},
		{Path: "table/dbo/t.sql", Definition: "CREATE TABLE t (id INT)"},
		{Path: "view/dbo/v.sql", Definition: "CREATE VIEW v AS SELECT id FROM t"},
		{Path: "type/dbo/money2.sql", Definition: "CREATE TYPE money2 FROM DECIMAL(19,4)"},
	}

	plan, err := reconcile.Reconcile(reconcile.ModeApply, nil, repoObjs, nil)
	require.NoError(t, err)

	var types []object.Type
	for _, e := range plan.Entries {
		types = append(types, e.Identity.Type)
	}
	assert.Equal(t, []object.Type{object.Table, object.UserType, object.View, object.Procedure, object.Trigger}, types)
}

func TestDuplicateIdentitiesRejected(t *testing.T) {
	dbObjs := []object.DBObject{
		{Schema: "dbo", Name: "v", Type: object.View, Definition: "a"},
		{Schema: "dbo", Name: "v", Type: object.View, Definition: "b"},
	}
	_, err := reconcile.Reconcile(reconcile.ModeExport, dbObjs, nil, nil)
	require.Error(t, err)

	repoObjs := []object.RepoObject{
		{Path: "view/dbo/v.sql", Definition: "a"},
		{Path: "extra/view/dbo/v.sql", Definition: "b"},
	}
	_, err = reconcile.Reconcile(reconcile.ModeApply, nil, repoObjs, nil)
	require.Error(t, err)
}

func TestInvalidRepoPathSurfaces(t *testing.T) {
	repoObjs := []object.RepoObject{{Path: "view/dbo/readme.md", Definition: ""}}
	_, err := reconcile.Reconcile(reconcile.ModeApply, nil, repoObjs, nil)
	var perr *object.InvalidPathError
	require.ErrorAs(t, err, &perr)
}

func TestMatchingSidesProduceEmptyPlan(t *testing.T) {
	gofakeit.Seed(11)

	var dbObjs []object.DBObject
	var repoObjs []object.RepoObject
	for i := 0; i < 50; i++ {
		typ := object.ApplyOrder[i%len(object.ApplyOrder)]
		def := fmt.Sprintf("CREATE %s obj%d -- %s", typ, i, gofakeit.HackerPhrase())
		obj := object.DBObject{Schema: "dbo", Name: fmt.Sprintf("obj%d", i), Type: typ, Definition: def}
		dbObjs = append(dbObjs, obj)
		repoObjs = append(repoObjs, object.RepoObject{Path: obj.Path(), Definition: def})
	}

	for _, mode := range []reconcile.Mode{reconcile.ModeExport, reconcile.ModeApply} {
		plan, err := reconcile.Reconcile(mode, dbObjs, repoObjs, nil)
		require.NoError(t, err)
		assert.Len(t, plan.Entries, 50)
		assert.False(t, plan.Actionable())
		assert.Empty(t, plan.Conflicts)
		for _, e := range plan.Entries {
			assert.Equal(t, reconcile.InSync, e.Status)
		}
	}
}

func TestPlanCarriesStoredRepoPaths(t *testing.T) {
	repo := []object.RepoObject{
		{Path: "VIEW/dbo/view1.sql", Definition: "CREATE VIEW view1 AS SELECT 1"},
	}

	plan, err := reconcile.Reconcile(reconcile.ModeExport, nil, repo, nil)
	require.NoError(t, err)

	require.Len(t, plan.Entries, 1)
	e := plan.Entries[0]
	assert.Equal(t, reconcile.ActionDeleteFile, e.Action)
	assert.Equal(t, "VIEW/dbo/view1.sql", e.RepoPath, "stored path survives into the plan")
	assert.Equal(t, object.View, e.Identity.Type)

	// Database-only identities have no repo-side file.
	dbObjs := []object.DBObject{
		{Schema: "dbo", Name: "t", Type: object.Table, Definition: "CREATE TABLE t (id INT)"},
	}
	plan, err = reconcile.Reconcile(reconcile.ModeExport, dbObjs, nil, nil)
	require.NoError(t, err)
	require.Len(t, plan.Entries, 1)
	assert.Empty(t, plan.Entries[0].RepoPath)
}
