package rowexec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamql/streamql/sql/array"
	"github.com/streamql/streamql/sql/catalog"
	"github.com/streamql/streamql/sql/plan"
	"github.com/streamql/streamql/sql/types"
)

func oneRowChunk(v types.Value) array.Chunk {
	b := array.NewBuilder(v.Kind(), 1)
	b.Push(v)
	return array.NewChunk([]array.Array{b.Finish()})
}

func TestEvalConstantBroadcastsAcrossCardinality(t *testing.T) {
	require := require.New(t)
	ev := NewEvaluator()
	chunk := oneRowChunk(types.Int32Value(9))
	tree := &plan.Tree{Node: plan.ConstantNode(types.Int32Value(7))}

	arr, err := ev.Eval(tree, chunk)
	require.NoError(err)
	require.Equal(1, arr.Len())
	require.Equal(int32(7), arr.Get(0).Int32())
}

func TestEvalColumnIndexReadsFromChunk(t *testing.T) {
	require := require.New(t)
	ev := NewEvaluator()
	chunk := oneRowChunk(types.Int32Value(42))
	tree := &plan.Tree{Node: plan.ColumnIndexNode(0)}

	arr, err := ev.Eval(tree, chunk)
	require.NoError(err)
	require.Equal(int32(42), arr.Get(0).Int32())
}

func TestEvalCountSumAscDescRefPassThroughToChild(t *testing.T) {
	ev := NewEvaluator()
	chunk := oneRowChunk(types.Int32Value(5))
	child := &plan.Tree{Node: plan.ColumnIndexNode(0)}
	for _, kind := range []plan.Kind{plan.Count, plan.Sum, plan.Asc, plan.Desc, plan.Ref} {
		tree := &plan.Tree{Node: plan.Node{Kind: kind}, Children: []*plan.Tree{child}}
		arr, err := ev.Eval(tree, chunk)
		require.NoError(t, err)
		require.Equal(t, int32(5), arr.Get(0).Int32())
	}
}

func TestEvalUnsupportedKindErrors(t *testing.T) {
	ev := NewEvaluator()
	chunk := oneRowChunk(types.Int32Value(1))
	tree := &plan.Tree{Node: plan.Node{Kind: plan.Scan}}
	_, err := ev.Eval(tree, chunk)
	require.Error(t, err)
}

func TestEvalListEmptyProducesZeroColumnChunk(t *testing.T) {
	require := require.New(t)
	ev := NewEvaluator()
	chunk, err := ev.EvalList(&plan.Tree{}, oneRowChunk(types.Int32Value(1)))
	require.NoError(err)
	require.Equal(0, chunk.NumColumns())
}

func TestEvalListEvaluatesEveryChildInOrder(t *testing.T) {
	require := require.New(t)
	ev := NewEvaluator()
	chunk := oneRowChunk(types.Int32Value(1))
	list := &plan.Tree{Children: []*plan.Tree{
		{Node: plan.ConstantNode(types.Int32Value(10))},
		{Node: plan.ConstantNode(types.Int32Value(20))},
	}}
	out, err := ev.EvalList(list, chunk)
	require.NoError(err)
	require.Equal(2, out.NumColumns())
	require.Equal(int32(10), out.Row(0).Values()[0].Int32())
	require.Equal(int32(20), out.Row(0).Values()[1].Int32())
}

func TestResolveColumnIndexRewritesColumnLeaves(t *testing.T) {
	require := require.New(t)
	ref0 := catalog.ColumnRefID{SchemaID: 1, TableID: 1, ColumnID: 5}
	ref1 := catalog.ColumnRefID{SchemaID: 1, TableID: 1, ColumnID: 6}
	refs := []catalog.ColumnRefID{ref0, ref1}

	tree := &plan.Tree{
		ID:   42,
		Node: plan.Node{Kind: plan.Sum},
		Children: []*plan.Tree{
			{Node: plan.Node{Kind: plan.Column, ColumnRef: ref1}},
		},
	}

	resolved := resolveColumnIndex(tree, refs, nil)
	require.Equal(plan.ID(42), resolved.ID)
	require.Equal(plan.ColumnIndex, resolved.Children[0].Node.Kind)
	require.Equal(uint32(1), resolved.Children[0].Node.ColIndex)
	// A rewritten leaf is a brand new tree node, not assigned the
	// original egraph id of the Column node it replaced.
	require.Equal(plan.ID(0), resolved.Children[0].ID)
}

func TestResolveColumnIndexRewritesRefLeavesByAggSchema(t *testing.T) {
	require := require.New(t)
	sumID := plan.ID(7)
	groupKeyID := plan.ID(9)
	aggSchema := map[plan.ID]uint32{sumID: 0, groupKeyID: 1}

	// select k, sum(v) from src group by k -- proj list (k, sum(v))
	// arrives as (Ref(groupKeyID), Ref(sumID)) post-rewrite.
	list := &plan.Tree{
		Node: plan.Node{Kind: plan.List},
		Children: []*plan.Tree{
			{Node: plan.Node{Kind: plan.Ref}, Children: []*plan.Tree{{ID: groupKeyID}}},
			{Node: plan.Node{Kind: plan.Ref}, Children: []*plan.Tree{{ID: sumID}}},
		},
	}

	resolved := resolveColumnIndex(list, nil, aggSchema)
	require.Equal(plan.ColumnIndex, resolved.Children[0].Node.Kind)
	require.Equal(uint32(1), resolved.Children[0].Node.ColIndex)
	require.Equal(plan.ColumnIndex, resolved.Children[1].Node.Kind)
	require.Equal(uint32(0), resolved.Children[1].Node.ColIndex)
}
