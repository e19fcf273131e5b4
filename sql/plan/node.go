// Package plan implements the engine's plan intermediate representation:
// a hash-consed, analysis-carrying expression graph ("e-graph" in the
// original terminology) over a closed node set, plus the binder-facing
// analyses (inferred type, output schema, aggregate set) that are
// computed bottom-up as nodes are interned.
package plan

import (
	"github.com/streamql/streamql/sql/catalog"
	"github.com/streamql/streamql/sql/types"
)

// ID names an interned node (an "e-class" in egg terminology, though
// this graph only ever unifies two classes via an explicit Union call
// from a future optimizer rule — see egraph.go).
type ID int

// Kind enumerates the plan IR's closed node set, mirroring rulink's
// `define_language! { enum Expr { ... } }`.
type Kind int

const (
	Constant Kind = iota
	Type
	Column
	ColumnIndex
	Table
	List
	Over
	Ref
	Scan
	Values
	Proj
	Limit
	Filter
	Order
	Asc
	Desc
	Agg
	Count
	Sum
	CreateTable
	Drop
	Insert
)

// CreateTableData is the bound payload of a CreateTable node: the
// schema to create the table in, its name, columns, and WITH (...)
// options, already fully resolved by the binder.
type CreateTableData struct {
	SchemaID catalog.SchemaID
	Name     string
	Columns  []CreateColumn
	Options  map[string]string
}

type CreateColumn struct {
	Name string
	Desc catalog.ColumnDesc
}

// Object is the closed sum of objects a Drop node can reference. A
// table is the only member today; the sum is kept open-ended in shape
// (not a bare TableRefID) so a future DROP SCHEMA/VIEW extends it
// without changing the Drop node's own shape.
type Object struct {
	Table    catalog.TableRefID
	IsTable  bool
}

// DropData is the bound payload of a Drop node.
type DropData struct {
	Object   Object
	IfExists bool
}

// Node is one interned plan IR node. Only the fields relevant to Kind
// are meaningful; this mirrors the tagged-union shape of the original
// `enum Expr` without Go generics ceremony.
type Node struct {
	Kind Kind

	Value       types.Value
	DataType    types.DataType
	ColumnRef   catalog.ColumnRefID
	ColIndex    uint32
	TableRef    catalog.TableRefID
	CreateTable CreateTableData
	Drop        DropData

	// Children holds operand ids, in the fixed positional order implied
	// by Kind (e.g. Scan = [table, columns, filter], Agg = [aggs,
	// group_keys, child], Order = [keys, child]). List/Values hold a
	// variable-length operand list instead of positional children.
	Children []ID
}

// IsAggregateFunction reports whether n is a Count or Sum leaf —
// used by the aggregate-set analysis and by the binder's
// rewrite-aggregate-references pass.
func (n Node) IsAggregateFunction() bool {
	return n.Kind == Count || n.Kind == Sum
}

// IsDDL reports whether n is a one-shot DDL node (CreateTable/Drop),
// used by the executor builder to pick the DDL-vs-streaming job path.
func (n Node) IsDDL() bool {
	return n.Kind == CreateTable || n.Kind == Drop
}

func ConstantNode(v types.Value) Node   { return Node{Kind: Constant, Value: v} }
func TrueNode() Node                    { return ConstantNode(types.BoolValue(true)) }
func NullNode() Node                    { return ConstantNode(types.NullValue()) }
func ZeroNode() Node                    { return ConstantNode(types.Int32Value(0)) }
func TypeNode(t types.DataType) Node    { return Node{Kind: Type, DataType: t} }
func ColumnNode(ref catalog.ColumnRefID) Node {
	return Node{Kind: Column, ColumnRef: ref}
}
func ColumnIndexNode(idx uint32) Node { return Node{Kind: ColumnIndex, ColIndex: idx} }
func TableNode(ref catalog.TableRefID) Node {
	return Node{Kind: Table, TableRef: ref}
}
func ListNode(children []ID) Node  { return Node{Kind: List, Children: children} }
func RefNode(child ID) Node        { return Node{Kind: Ref, Children: []ID{child}} }
func ScanNode(table, columns, filter ID) Node {
	return Node{Kind: Scan, Children: []ID{table, columns, filter}}
}
func ValuesNode(rows []ID) Node { return Node{Kind: Values, Children: rows} }
func ProjNode(exprs, child ID) Node {
	return Node{Kind: Proj, Children: []ID{exprs, child}}
}
func LimitNode(limit, offset, child ID) Node {
	return Node{Kind: Limit, Children: []ID{limit, offset, child}}
}
func FilterNode(cond, child ID) Node {
	return Node{Kind: Filter, Children: []ID{cond, child}}
}
func OrderNode(keys, child ID) Node {
	return Node{Kind: Order, Children: []ID{keys, child}}
}
func AscNode(key ID) Node  { return Node{Kind: Asc, Children: []ID{key}} }
func DescNode(key ID) Node { return Node{Kind: Desc, Children: []ID{key}} }
func AggNode(aggs, groupKeys, child ID) Node {
	return Node{Kind: Agg, Children: []ID{aggs, groupKeys, child}}
}
func CountNode(arg ID) Node { return Node{Kind: Count, Children: []ID{arg}} }
func SumNode(arg ID) Node   { return Node{Kind: Sum, Children: []ID{arg}} }
func CreateTableNode(d CreateTableData) Node {
	return Node{Kind: CreateTable, CreateTable: d}
}
func DropNode(d DropData) Node { return Node{Kind: Drop, Drop: d} }
func InsertNode(table, columns, child ID) Node {
	return Node{Kind: Insert, Children: []ID{table, columns, child}}
}
