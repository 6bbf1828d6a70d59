package object_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"db-sync/internal/object"
)

func TestPathRoundTrip(t *testing.T) {
	for _, typ := range object.ApplyOrder {
		p := string(typ) + "/dbo/thing1.sql"
		obj, err := object.FromPath(p, "CREATE ...")
		require.NoError(t, err, p)
		assert.Equal(t, p, obj.Path())
		assert.Equal(t, "dbo", obj.Schema)
		assert.Equal(t, "thing1", obj.Name)
		assert.Equal(t, typ, obj.Type)
		assert.Equal(t, "CREATE ...", obj.Definition)
	}
}

func TestFromPathTypeCaseInsensitive(t *testing.T) {
	obj, err := object.FromPath("PROCEDURE/dbo/usp_load.sql", "")
	require.NoError(t, err)
	assert.Equal(t, object.Procedure, obj.Type)
	// Canonical form lower-cases the type segment.
	assert.Equal(t, "procedure/dbo/usp_load.sql", obj.Path())
}

func TestFromPathKeepsVerbatimSchemaAndName(t *testing.T) {
	obj, err := object.FromPath("view/Sales/V_OrderTotals.sql", "")
	require.NoError(t, err)
	assert.Equal(t, "Sales", obj.Schema)
	assert.Equal(t, "V_OrderTotals", obj.Name)
}

func TestFromPathAllowsLeadingSegments(t *testing.T) {
	// Paths may carry a per-database prefix; only the trailing three segments
	// carry identity.
	obj, err := object.FromPath("dbtest1/table/dbo/orders.sql", "")
	require.NoError(t, err)
	assert.Equal(t, object.Identity{Schema: "dbo", Name: "orders", Type: object.Table}, obj.Identity())
}

func TestFromPathErrors(t *testing.T) {
	cases := []struct {
		name string
		path string
	}{
		{"missing extension", "table/dbo/orders"},
		{"wrong extension", "table/dbo/orders.txt"},
		{"too few segments", "dbo/orders.sql"},
		{"single segment", "orders.sql"},
		{"unknown type", "sprocedure/dbo/orders.sql"},
		{"empty schema", "table//orders.sql"},
		{"empty name", "table/dbo/.sql"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := object.FromPath(tc.path, "")
			require.Error(t, err)
			var perr *object.InvalidPathError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tc.path, perr.Path)
		})
	}
}

func TestParseType(t *testing.T) {
	typ, ok := object.ParseType("Synonym")
	require.True(t, ok)
	assert.Equal(t, object.Synonym, typ)

	_, ok = object.ParseType("index")
	assert.False(t, ok)
}

func TestApplyOrderRank(t *testing.T) {
	assert.Less(t, object.Table.Rank(), object.View.Rank())
	assert.Less(t, object.View.Rank(), object.Procedure.Rank())
	assert.Less(t, object.Procedure.Rank(), object.Trigger.Rank())
}
