package planbuilder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamql/streamql/sql/catalog"
	"github.com/streamql/streamql/sql/plan"
	"github.com/streamql/streamql/sql/planbuilder/ast"
)

func newBinder() (*Binder, *catalog.Database, *plan.EGraph) {
	db := catalog.NewDatabase()
	eg := plan.NewEGraph(db)
	return New(db, eg), db, eg
}

func mustParse(t *testing.T, sql string) ast.Statement {
	t.Helper()
	stmt, err := ast.Parse(sql)
	require.NoError(t, err)
	return stmt
}

func TestBindCreateTableRegistersColumns(t *testing.T) {
	require := require.New(t)
	b, db, _ := newBinder()

	_, err := b.Bind(mustParse(t, "CREATE TABLE widgets (id INT PRIMARY KEY, name TEXT)"))
	require.NoError(err)

	schema, _ := db.GetSchemaByName(catalog.DefaultSchemaName)
	table, ok := schema.GetTableByName("widgets")
	require.True(ok)
	require.Len(table.AllColumns(), 2)
}

func TestBindCreateTableRejectsDuplicateName(t *testing.T) {
	require := require.New(t)
	b, _, _ := newBinder()
	_, err := b.Bind(mustParse(t, "CREATE TABLE widgets (id INT)"))
	require.NoError(err)
	_, err = b.Bind(mustParse(t, "CREATE TABLE widgets (id INT)"))
	require.Error(err)
}

func TestBindCreateTableRejectsDuplicateColumn(t *testing.T) {
	require := require.New(t)
	b, _, _ := newBinder()
	_, err := b.Bind(mustParse(t, "CREATE TABLE widgets (id INT, id INT)"))
	require.Error(err)
}

func TestBindDropTableIfExistsOnMissingTableIsNoop(t *testing.T) {
	require := require.New(t)
	b, _, eg := newBinder()
	id, err := b.Bind(mustParse(t, "DROP TABLE IF EXISTS ghost"))
	require.NoError(err)
	node := eg.NodeAt(id)
	require.Equal(plan.Drop, node.Kind)
	require.False(node.Drop.Object.IsTable)
}

func TestBindDropTableWithoutIfExistsErrorsOnMissingTable(t *testing.T) {
	b, _, _ := newBinder()
	_, err := b.Bind(mustParse(t, "DROP TABLE ghost"))
	require.Error(t, err)
}

func TestBindInsertColumnCountMismatch(t *testing.T) {
	require := require.New(t)
	b, _, _ := newBinder()
	_, err := b.Bind(mustParse(t, "CREATE TABLE widgets (id INT, name TEXT)"))
	require.NoError(err)
	_, err = b.Bind(mustParse(t, "INSERT INTO widgets VALUES (1)"))
	require.Error(err)
}

func TestBindInsertOK(t *testing.T) {
	require := require.New(t)
	b, _, eg := newBinder()
	_, err := b.Bind(mustParse(t, "CREATE TABLE widgets (id INT, name TEXT)"))
	require.NoError(err)
	id, err := b.Bind(mustParse(t, "INSERT INTO widgets VALUES (1, 'a')"))
	require.NoError(err)
	require.Equal(plan.Insert, eg.NodeAt(id).Kind)
}

func TestBindInsertSelectBindsSourceQueryAsChild(t *testing.T) {
	require := require.New(t)
	b, _, eg := newBinder()
	_, err := b.Bind(mustParse(t, "CREATE TABLE src (a INT)"))
	require.NoError(err)
	_, err = b.Bind(mustParse(t, "CREATE TABLE snk (a INT)"))
	require.NoError(err)

	id, err := b.Bind(mustParse(t, "INSERT INTO snk SELECT a FROM src"))
	require.NoError(err)

	node := eg.NodeAt(id)
	require.Equal(plan.Insert, node.Kind)
	require.Equal(plan.Proj, eg.NodeAt(node.Children[2]).Kind)
}

func TestBindInsertSelectColumnCountMismatch(t *testing.T) {
	b, _, _ := newBinder()
	_, err := b.Bind(mustParse(t, "CREATE TABLE src (a INT, b INT)"))
	require.NoError(t, err)
	_, err = b.Bind(mustParse(t, "CREATE TABLE snk (a INT)"))
	require.NoError(t, err)
	_, err = b.Bind(mustParse(t, "INSERT INTO snk SELECT a, b FROM src"))
	require.Error(t, err)
}

func TestBindSelectUnknownTable(t *testing.T) {
	b, _, _ := newBinder()
	_, err := b.Bind(mustParse(t, "SELECT * FROM ghost"))
	require.Error(t, err)
}

func TestBindSelectStarProjectsAllColumns(t *testing.T) {
	require := require.New(t)
	b, _, eg := newBinder()
	_, err := b.Bind(mustParse(t, "CREATE TABLE widgets (id INT, name TEXT)"))
	require.NoError(err)
	id, err := b.Bind(mustParse(t, "SELECT * FROM widgets"))
	require.NoError(err)
	require.Equal(plan.Proj, eg.NodeAt(id).Kind)
}

func TestBindSelectAggregateRequiresGroupByForBareColumn(t *testing.T) {
	b, _, _ := newBinder()
	_, err := b.Bind(mustParse(t, "CREATE TABLE widgets (id INT, category TEXT)"))
	require.NoError(t, err)
	_, err = b.Bind(mustParse(t, "SELECT category, COUNT(id) FROM widgets"))
	require.Error(t, err, "category is neither aggregated nor in GROUP BY")
	require.Contains(t, err.Error(), "category")
}

// TestBindSelectAggregateWithGroupByBindsAggNode covers scenario 1's
// column-order requirement: the bound root is Proj(Agg(...)), and the
// Proj's expression list rewrites to Ref nodes pointing at the Agg's
// own aggs/group_keys schema, in SELECT-list order.
func TestBindSelectAggregateWithGroupByBindsAggNode(t *testing.T) {
	require := require.New(t)
	b, _, eg := newBinder()
	_, err := b.Bind(mustParse(t, "CREATE TABLE widgets (id INT, category TEXT)"))
	require.NoError(err)
	id, err := b.Bind(mustParse(t, "SELECT category, COUNT(id) FROM widgets GROUP BY category"))
	require.NoError(err)

	root := eg.NodeAt(id)
	require.Equal(plan.Proj, root.Kind)
	aggID := root.Children[1]
	require.Equal(plan.Agg, eg.NodeAt(aggID).Kind)

	exprs := eg.NodeAt(root.Children[0]).Children
	require.Len(exprs, 2)
	require.Equal(plan.Ref, eg.NodeAt(exprs[0]).Kind, "category is a GROUP BY key, wrapped as Ref")
	require.Equal(plan.Ref, eg.NodeAt(exprs[1]).Kind, "COUNT(id) is an aggregate, wrapped as Ref")

	aggNode := eg.NodeAt(aggID)
	aggsList := eg.NodeAt(aggNode.Children[0]).Children
	groupKeysList := eg.NodeAt(aggNode.Children[1]).Children
	require.Equal(groupKeysList[0], eg.NodeAt(exprs[0]).Children[0], "category's Ref points at the group key")
	require.Equal(aggsList[0], eg.NodeAt(exprs[1]).Children[0], "COUNT(id)'s Ref points at the agg")
}

func TestBindScalarExprRejectsBinaryExpr(t *testing.T) {
	b, _, _ := newBinder()
	_, err := b.Bind(mustParse(t, "CREATE TABLE widgets (id INT)"))
	require.NoError(t, err)
	_, err = b.Bind(mustParse(t, "SELECT id + 1 FROM widgets"))
	require.Error(t, err, "binary expressions are not part of the bind surface — see DESIGN.md Decision 6")
}

func TestBindSelectUnknownColumnInWhere(t *testing.T) {
	b, _, _ := newBinder()
	_, err := b.Bind(mustParse(t, "CREATE TABLE widgets (id INT)"))
	require.NoError(t, err)
	_, err = b.Bind(mustParse(t, "SELECT id FROM widgets WHERE missing"))
	require.Error(t, err)
	require.True(t, ErrColumnNotFound.Is(err))
}
