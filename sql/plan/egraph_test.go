package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamql/streamql/sql/catalog"
	"github.com/streamql/streamql/sql/types"
)

func TestEGraphHashConsing(t *testing.T) {
	require := require.New(t)
	eg := NewEGraph(catalog.NewDatabase())

	a := eg.Add(ConstantNode(types.Int32Value(7)))
	b := eg.Add(ConstantNode(types.Int32Value(7)))
	require.Equal(a, b, "structurally equal nodes must intern to the same id")

	c := eg.Add(ConstantNode(types.Int32Value(8)))
	require.NotEqual(a, c)
}

func TestEGraphTypeAnalysis(t *testing.T) {
	require := require.New(t)
	eg := NewEGraph(catalog.NewDatabase())

	n := eg.Add(ConstantNode(types.Int32Value(1)))
	require.NoError(eg.Type(n).Err)
	require.Equal(types.Int32, eg.Type(n).DataType.Kind)

	count := eg.Add(CountNode(n))
	require.NoError(eg.Type(count).Err)
	require.Equal(types.Int32, eg.Type(count).DataType.Kind)

	sumOfStrings := eg.Add(SumNode(eg.Add(ConstantNode(types.StringValue("x")))))
	require.Error(eg.Type(sumOfStrings).Err)
}

func TestEGraphAggSet(t *testing.T) {
	require := require.New(t)
	eg := NewEGraph(catalog.NewDatabase())

	arg := eg.Add(ConstantNode(types.Int32Value(1)))
	sum := eg.Add(SumNode(arg))
	count := eg.Add(CountNode(arg))
	list := eg.Add(ListNode([]ID{sum, count}))

	aggs := eg.Aggs(list)
	require.ElementsMatch([]ID{sum, count}, aggs)

	// A Ref boundary hides aggregates below it from the enclosing scope.
	ref := eg.Add(RefNode(sum))
	require.Empty(eg.Aggs(ref))
}

func TestEGraphUnionMergesAnalyses(t *testing.T) {
	require := require.New(t)
	eg := NewEGraph(catalog.NewDatabase())
	db := eg.catalog
	schema, _ := db.GetSchemaByName(catalog.DefaultSchemaName)
	tbl, _ := schema.AddTable("widgets")
	colID, _ := tbl.AddColumn("id", catalog.ColumnDesc{DataType: types.New(types.Int32, false)})
	ref := catalog.ColumnRefFromTable(catalog.TableRefID{SchemaID: schema.ID(), TableID: tbl.ID()}, colID)

	resolved := eg.Add(ColumnNode(ref))
	unresolved := eg.Add(ColumnNode(catalog.ColumnRefFromTable(
		catalog.TableRefID{SchemaID: schema.ID(), TableID: tbl.ID()}, colID+99)))
	require.Error(eg.Type(unresolved).Err)
	require.NoError(eg.Type(resolved).Err)

	root := eg.Union(unresolved, resolved)
	require.NoError(eg.Type(root).Err, "merge must prefer the resolved (non-error) type")
}

func TestExtractorMaterializesTree(t *testing.T) {
	require := require.New(t)
	eg := NewEGraph(catalog.NewDatabase())

	leaf := eg.Add(ConstantNode(types.Int32Value(3)))
	sum := eg.Add(SumNode(leaf))

	tree := NewExtractor(eg).FindBest(sum)
	require.Equal(Sum, tree.Node.Kind)
	require.Len(tree.Children, 1)
	require.Equal(Constant, tree.Children[0].Node.Kind)
	require.Equal(int32(3), tree.Children[0].Node.Value.Int32())
}
