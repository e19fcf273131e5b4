package rowexec

import (
	"context"

	"github.com/streamql/streamql/sql/catalog"
	"github.com/streamql/streamql/sql/plan"
	"github.com/streamql/streamql/stream"
)

// buildProj builds a chunk-at-a-time projection operator: every input
// Chunk is re-evaluated column-by-column through exprs, barriers pass
// through untouched.
func (b *Builder) buildProj(eg *plan.EGraph, tree *plan.Tree) (Executor, error) {
	exprsTree, childTree := tree.Children[0], tree.Children[1]
	childExec, err := b.Build(eg, childTree)
	if err != nil {
		return nil, err
	}
	scanRefs, ok := findScanColumns(childTree)
	if !ok {
		scanRefs = nil
	}
	aggSchema := findAggSchema(childTree)
	resolvedExprs := resolveColumnIndex(exprsTree, scanRefs, aggSchema)

	actorID := b.allocActor()
	inner := func(ctx context.Context) <-chan stream.Result {
		in := childExec(ctx)
		out := make(chan stream.Result)
		go func() {
			defer close(out)
			ev := NewEvaluator()
			for res := range in {
				if res.Err != nil {
					out <- res
					return
				}
				if res.Msg.IsBarrier {
					select {
					case out <- res:
					case <-ctx.Done():
						return
					}
					continue
				}
				chunk, err := ev.EvalList(resolvedExprs, res.Msg.Chunk)
				if err != nil {
					out <- stream.Result{Err: err}
					return
				}
				select {
				case out <- stream.Result{Msg: stream.ChunkMessage(chunk)}:
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
	return b.wrapExecutor(actorID, inner), nil
}

// findScanColumns walks down through pass-through nodes (Filter,
// Order, Limit) to the Scan under this operator, returning its
// resolved column list — the coordinate space every expression above
// it is indexed against.
func findScanColumns(t *plan.Tree) ([]catalog.ColumnRefID, bool) {
	switch t.Node.Kind {
	case plan.Scan:
		return resolveTableColumns(t.Children[1]), true
	case plan.Filter, plan.Limit, plan.Order:
		return findScanColumns(t.Children[len(t.Children)-1])
	case plan.Proj:
		return findScanColumns(t.Children[1])
	case plan.Agg:
		return nil, true // Agg's output schema is aggs++group_keys, resolved positionally via findAggSchema
	default:
		return nil, false
	}
}

// findAggSchema walks down through pass-throughs to the Agg directly
// beneath a Proj, mapping each of its aggs/group-key expression ids to
// its position in the row hashagg.go emits — the coordinate space
// Ref(id) nodes above it are resolved against. Returns nil when there
// is no Agg in that position (an ordinary Proj-over-Scan).
func findAggSchema(t *plan.Tree) map[plan.ID]uint32 {
	switch t.Node.Kind {
	case plan.Agg:
		aggsTree, groupKeysTree := t.Children[0], t.Children[1]
		schema := make(map[plan.ID]uint32, len(aggsTree.Children)+len(groupKeysTree.Children))
		var idx uint32
		for _, c := range aggsTree.Children {
			schema[c.ID] = idx
			idx++
		}
		for _, c := range groupKeysTree.Children {
			schema[c.ID] = idx
			idx++
		}
		return schema
	case plan.Filter, plan.Limit, plan.Order:
		return findAggSchema(t.Children[len(t.Children)-1])
	default:
		return nil
	}
}
