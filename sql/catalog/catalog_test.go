package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamql/streamql/sql/types"
)

func TestNewDatabaseSeedsDefaultSchema(t *testing.T) {
	require := require.New(t)
	db := NewDatabase()
	schema, ok := db.GetSchemaByName(DefaultSchemaName)
	require.True(ok)
	require.Equal(DefaultSchemaName, schema.Name())
}

func TestAddSchemaRejectsDuplicate(t *testing.T) {
	require := require.New(t)
	db := NewDatabase()
	_, err := db.AddSchema(DefaultSchemaName)
	require.Error(err)
}

func TestAddTableAndColumnRoundTrip(t *testing.T) {
	require := require.New(t)
	db := NewDatabase()
	schema, _ := db.GetSchemaByName(DefaultSchemaName)

	table, err := schema.AddTable("widgets")
	require.NoError(err)

	colID, err := table.AddColumn("id", ColumnDesc{DataType: types.New(types.Int32, false), IsPrimary: true})
	require.NoError(err)

	_, err = table.AddColumn("id", ColumnDesc{DataType: types.New(types.Int32, false)})
	require.Error(err, "duplicate column name must be rejected")

	col, ok := table.GetColumn(colID)
	require.True(ok)
	require.Equal("id", col.Name)
	require.True(col.IsPrimary())
	require.False(col.IsNullable())
}

func TestTableOptionsMergeAndRead(t *testing.T) {
	require := require.New(t)
	table := newTable(0, "events")
	table.AddOptions(map[string]string{"connector": "datagen"})
	table.AddOptions(map[string]string{"path": "/tmp/x"})

	v, ok := table.GetOption("connector")
	require.True(ok)
	require.Equal("datagen", v)

	opts := table.GetOptions()
	require.Len(opts, 2)
}

func TestDropTableRemovesFromSchema(t *testing.T) {
	require := require.New(t)
	db := NewDatabase()
	schema, _ := db.GetSchemaByName(DefaultSchemaName)
	table, _ := schema.AddTable("temp")
	ref := TableRefID{SchemaID: schema.ID(), TableID: table.ID()}

	db.DropTable(ref)
	_, ok := schema.GetTableByName("temp")
	require.False(ok)
}

func TestDropTableOnUnknownRefIsNoop(t *testing.T) {
	db := NewDatabase()
	require.NotPanics(t, func() {
		db.DropTable(TableRefID{SchemaID: 999, TableID: 1})
	})
}

func TestGetColumnResolvesThroughRefID(t *testing.T) {
	require := require.New(t)
	db := NewDatabase()
	schema, _ := db.GetSchemaByName(DefaultSchemaName)
	table, _ := schema.AddTable("widgets")
	colID, _ := table.AddColumn("name", ColumnDesc{DataType: types.New(types.String, true)})

	ref := ColumnRefFromTable(TableRefID{SchemaID: schema.ID(), TableID: table.ID()}, colID)
	col, ok := db.GetColumn(ref)
	require.True(ok)
	require.Equal("name", col.Name)
}
