// Package rowexec builds and runs the executor graph: a tree of
// goroutine-backed operators exchanging stream.Message values over Go
// channels, one per plan.Tree node produced by the binder/analyzer.
package rowexec

import (
	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/streamql/streamql/sql/array"
	"github.com/streamql/streamql/sql/catalog"
	"github.com/streamql/streamql/sql/plan"
	"github.com/streamql/streamql/sql/types"
)

// ErrEvalUnsupported mirrors the original evaluator's exhaustive match:
// every plan node kind it doesn't recognize as a scalar expression is
// a builder bug, not a user-facing error.
var ErrEvalUnsupported = errors.NewKind("cannot evaluate plan node kind %v")

// Evaluator evaluates a resolved expression tree (Column nodes already
// rewritten to ColumnIndex by resolveColumnIndex) against an input
// Chunk, producing one output Array per call — the column-at-a-time
// scalar engine every operator below builds its output chunks from.
type Evaluator struct{}

func NewEvaluator() *Evaluator { return &Evaluator{} }

// Eval ports the original's exhaustive `fn eval` match. Count/Sum
// evaluate to their *argument's* column, matching the original: the
// aggregation itself (accumulating Count/Sum state across rows) is a
// HashAgg-only concern, not something a bare Eval call performs.
func (e *Evaluator) Eval(t *plan.Tree, chunk array.Chunk) (array.Array, error) {
	switch t.Node.Kind {
	case plan.Constant:
		kind := t.Node.Value.Kind()
		if kind == types.Null {
			kind = types.String
		}
		b := array.NewBuilder(kind, chunk.Cardinality())
		b.PushN(chunk.Cardinality(), t.Node.Value)
		return b.Finish(), nil
	case plan.ColumnIndex:
		return chunk.ArrayAt(int(t.Node.ColIndex)), nil
	case plan.Count, plan.Sum, plan.Asc, plan.Desc, plan.Ref:
		return e.Eval(t.Children[0], chunk)
	default:
		return nil, ErrEvalUnsupported.New(t.Node.Kind)
	}
}

// EvalList evaluates every child of a List node, returning a Chunk
// whose columns are in the list's order. An empty list evaluates to a
// column-less, zero-cardinality chunk — the original's
// `DataChunk::no_column()`.
func (e *Evaluator) EvalList(list *plan.Tree, chunk array.Chunk) (array.Chunk, error) {
	if len(list.Children) == 0 {
		return array.NewChunk(nil), nil
	}
	arrays := make([]array.Array, len(list.Children))
	for i, c := range list.Children {
		a, err := e.Eval(c, chunk)
		if err != nil {
			return array.Chunk{}, err
		}
		arrays[i] = a
	}
	return array.NewChunk(arrays), nil
}

// resolveColumnIndex rewrites every Column leaf in t into a
// ColumnIndex leaf, positioned by refs — the Go analogue of
// ExecutorBuilder::resolve_column_index. refs is the upstream operator's
// output column order (for an operator directly above a Scan, the
// Scan's own resolved column list).
//
// aggSchema additionally positions Ref(id) leaves: above an Agg, the
// binder wraps every surface sub-expression already folded into the
// Agg's own aggs/group_keys lists as Ref(id), and aggSchema maps that
// id to its position in the row hashagg.go emits (aggs, then group
// keys). It is nil for any Proj/expr list not sitting directly above
// an Agg.
func resolveColumnIndex(t *plan.Tree, refs []catalog.ColumnRefID, aggSchema map[plan.ID]uint32) *plan.Tree {
	if t.Node.Kind == plan.Ref && aggSchema != nil {
		if idx, ok := aggSchema[t.Children[0].ID]; ok {
			return &plan.Tree{Node: plan.ColumnIndexNode(idx)}
		}
	}
	if t.Node.Kind == plan.Column {
		for idx, r := range refs {
			if r == t.Node.ColumnRef {
				return &plan.Tree{Node: plan.ColumnIndexNode(uint32(idx))}
			}
		}
	}
	if len(t.Children) == 0 {
		return t
	}
	children := make([]*plan.Tree, len(t.Children))
	for i, c := range t.Children {
		children[i] = resolveColumnIndex(c, refs, aggSchema)
	}
	return &plan.Tree{ID: t.ID, Node: t.Node, Children: children}
}
