package plan

import (
	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/streamql/streamql/sql/catalog"
	"github.com/streamql/streamql/sql/types"
)

// Type-analysis error kinds, ported from the original's TypeError enum.
var (
	ErrTypeUnavailable = errors.NewKind("type of %v is not available")
	ErrNoFunction       = errors.NewKind("no function %s for type %s")
	ErrNoCast           = errors.NewKind("cannot unify types in %s")
)

// analyzeType ports planner's type_.rs analyze_type: a pure function of
// one node's shape and its already-analyzed children.
func analyzeType(db *catalog.Database, n Node, childType func(ID) TypeResult) TypeResult {
	switch n.Kind {
	case Constant:
		return TypeResult{DataType: n.Value.DataType()}
	case Type:
		return TypeResult{DataType: n.DataType}
	case Column:
		col, ok := db.GetColumn(n.ColumnRef)
		if !ok {
			return TypeResult{Err: ErrTypeUnavailable.New(n.ColumnRef)}
		}
		return TypeResult{DataType: col.DataType()}
	case List:
		fields := make([]types.DataType, len(n.Children))
		for i, c := range n.Children {
			r := childType(c)
			if r.Err != nil {
				return TypeResult{Err: r.Err}
			}
			fields[i] = r.DataType
		}
		return TypeResult{DataType: types.NewStruct(fields, false)}
	case Values:
		if len(n.Children) == 0 {
			return TypeResult{DataType: types.New(types.Null, true)}
		}
		acc := childType(n.Children[0])
		if acc.Err != nil {
			return TypeResult{Err: acc.Err}
		}
		for _, row := range n.Children[1:] {
			rowT := childType(row)
			if rowT.Err != nil {
				return TypeResult{Err: rowT.Err}
			}
			u, err := acc.DataType.Union(rowT.DataType)
			if err != nil {
				return TypeResult{Err: ErrNoCast.New("VALUES")}
			}
			acc.DataType = u
		}
		return acc
	case Sum:
		arg := childType(n.Children[0])
		if arg.Err != nil {
			return TypeResult{Err: arg.Err}
		}
		if !arg.DataType.Kind.IsNumber() {
			return TypeResult{Err: ErrNoFunction.New("sum", arg.DataType)}
		}
		return arg
	case Count:
		// Not handled by the original's analyze_type match (it falls to
		// the Unavailable default there). spec.md requires COUNT to
		// work end to end, so this supplies the arm the original left
		// unimplemented: a count is always a non-null INT.
		return TypeResult{DataType: types.New(types.Int32, false)}
	case Agg:
		exprsT := childType(n.Children[0])
		if exprsT.Err != nil {
			return TypeResult{Err: exprsT.Err}
		}
		groupT := childType(n.Children[1])
		if groupT.Err != nil {
			return TypeResult{Err: groupT.Err}
		}
		return TypeResult{DataType: types.NewStruct(
			append(append([]types.DataType{}, exprsT.DataType.Fields...), groupT.DataType.Fields...),
			false,
		)}
	default:
		return TypeResult{Err: ErrTypeUnavailable.New(n.Kind)}
	}
}

// analyzeSchema ports planner's schema.rs analyze_schema: the list of
// expression ids making up a plan node's output row shape.
func analyzeSchema(n Node, childSchema func(ID) []ID) []ID {
	switch n.Kind {
	case Filter, Order, Limit:
		return childSchema(n.Children[len(n.Children)-1])
	case List:
		return n.Children
	case Agg:
		out := append([]ID{}, childSchema(n.Children[0])...)
		return append(out, childSchema(n.Children[1])...)
	case Scan:
		return childSchema(n.Children[1])
	case Values:
		if len(n.Children) == 0 {
			return nil
		}
		return childSchema(n.Children[0])
	case Proj:
		return childSchema(n.Children[0])
	default:
		return nil
	}
}

// analyzeAggs ports planner's agg.rs analyze_aggs: every aggregate leaf
// reachable from n without crossing an Over or Ref boundary (both mark
// a new aggregation scope in the original).
func analyzeAggs(id ID, n Node, childAggs func(ID) []ID) []ID {
	if n.IsAggregateFunction() {
		return []ID{id}
	}
	if n.Kind == Over || n.Kind == Ref {
		return nil
	}
	var out []ID
	for _, c := range n.Children {
		out = append(out, childAggs(c)...)
	}
	return out
}

// Merge combines two analyses for ids being unified via Union,
// preferring the more-specified side on each field independently
// ("max wins", per rulink's egg::merge_max usage in planner/mod.rs).
func Merge(to, from data) data {
	return data{
		typ:    mergeType(to.typ, from.typ),
		schema: mergeIDs(to.schema, from.schema),
		aggs:   mergeIDs(to.aggs, from.aggs),
	}
}

func mergeType(to, from TypeResult) TypeResult {
	if to.Err == nil {
		return to
	}
	if from.Err == nil {
		return from
	}
	return to
}

func mergeIDs(to, from []ID) []ID {
	if len(from) > len(to) {
		return from
	}
	return to
}
