package rowexec

import (
	"context"

	"github.com/streamql/streamql/connector"
	"github.com/streamql/streamql/sql/array"
	"github.com/streamql/streamql/sql/catalog"
	"github.com/streamql/streamql/sql/plan"
	"github.com/streamql/streamql/sql/types"
	"github.com/streamql/streamql/stream"
)

// singleRowChunk is a one-row scratch chunk used only to evaluate a
// literal VALUES cell through Evaluator.Eval, the same role
// DataChunk::single(0) plays in the original's value connector.
func singleRowChunk() array.Chunk {
	b := array.NewBuilder(types.Int32, 1)
	b.Push(types.Int32Value(0))
	return array.NewChunk([]array.Array{b.Finish()})
}

func (b *Builder) buildInsert(eg *plan.EGraph, tree *plan.Tree) (Executor, error) {
	tableRef := tree.Children[0].Node.TableRef
	table, ok := b.catalog.GetTable(tableRef)
	if !ok {
		return nil, catalog.ErrNotFound.New("table", tableRef)
	}
	columnsTree, sourceTree := tree.Children[1], tree.Children[2]
	refs := resolveTableColumns(columnsTree)

	sink, err := b.getConnector(table, refs, true)
	if err != nil {
		return nil, err
	}

	var source Executor
	if sourceTree.Node.Kind == plan.Values {
		kinds, err := columnKindsFor(b.catalog, refs)
		if err != nil {
			return nil, err
		}
		ev := NewEvaluator()
		scratch := singleRowChunk()
		rows := make([][]types.Value, len(sourceTree.Children))
		for i, rowTree := range sourceTree.Children {
			vals := make([]types.Value, len(rowTree.Children))
			for j, cell := range rowTree.Children {
				arr, err := ev.Eval(cell, scratch)
				if err != nil {
					return nil, err
				}
				vals[j] = arr.Get(0)
			}
			rows[i] = vals
		}
		conn := connector.NewValueConnector(kinds, rows)
		source = func(ctx context.Context) <-chan stream.Result { return conn.Read(ctx) }
	} else {
		// INSERT ... SELECT: the source is itself a bound query plan
		// (Proj/Agg/Scan) — build its executor and drain it directly into
		// the sink instead of pre-evaluating literal cells.
		source, err = b.Build(eg, sourceTree)
		if err != nil {
			return nil, err
		}
	}

	actorID := b.allocActor()
	inner := func(ctx context.Context) <-chan stream.Result {
		in := source(ctx)
		out := make(chan stream.Result)
		go func() {
			defer close(out)
			for res := range in {
				if res.Err != nil {
					out <- res
					return
				}
				if res.Msg.IsBarrier {
					if err := sink.OnReceiveBarrier(res.Msg.Barrier); err != nil {
						out <- stream.Result{Err: err}
						return
					}
				} else if err := sink.Write(res.Msg.Chunk); err != nil {
					out <- stream.Result{Err: err}
					return
				}
				select {
				case out <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
	return b.wrapExecutor(actorID, inner), nil
}
