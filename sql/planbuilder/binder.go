// Package planbuilder binds parsed SQL statements (sql/planbuilder/ast)
// against the catalog, producing plan IR (sql/plan) node ids. It is the
// Go counterpart of the original binder module: same bind_* method
// split, same error taxonomy, same column-resolution rules.
package planbuilder

import (
	"strings"

	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/streamql/streamql/sql/catalog"
	"github.com/streamql/streamql/sql/plan"
	"github.com/streamql/streamql/sql/planbuilder/ast"
	"github.com/streamql/streamql/sql/types"
)

// BindError's kind registry, one NewKind per distinct failure the
// binder can produce — mirrors the original's BindError enum variants.
var (
	ErrTableNotFound     = errors.NewKind("table not found: %s")
	ErrTableExists       = errors.NewKind("table already exists: %s")
	ErrColumnNotFound    = errors.NewKind("column not found: %s")
	ErrAmbiguousColumn   = errors.NewKind("ambiguous column: %s")
	ErrSchemaNotFound    = errors.NewKind("schema not found: %s")
	ErrUnknownType       = errors.NewKind("unknown type: %s")
	ErrTypeError         = errors.NewKind("type error: %v")
	ErrDuplicateColumn   = errors.NewKind("duplicate column: %s")
	ErrColumnCountMismatch = errors.NewKind("column count mismatch: expected %d, got %d")
	ErrNoFromClause      = errors.NewKind("no FROM clause and no bare columns to select")
	ErrUnknownFunction   = errors.NewKind("unknown function: %s")
	ErrUnsupported       = errors.NewKind("unsupported expression: %v")
	ErrInvalidJobID      = errors.NewKind("invalid job id: %s")
	ErrNotAggregate      = errors.NewKind("column %s must appear in GROUP BY or be wrapped in an aggregate")
)

// Binder binds parsed ast statements against the catalog, interning
// the resulting plan nodes into the e-graph.
type Binder struct {
	catalog *catalog.Database
	egraph  *plan.EGraph
}

func New(db *catalog.Database, eg *plan.EGraph) *Binder {
	return &Binder{catalog: db, egraph: eg}
}

// scope tracks the table currently in scope for column resolution —
// the original binder threads an equivalent BinderContext through
// bind_expr for CompoundIdentifier/Identifier resolution.
type scope struct {
	tableRef  catalog.TableRefID
	table     *catalog.Table
	schemaName string
}

// Bind lowers one parsed statement into a root plan.ID. DDL statements
// (CreateTable/Drop) and Insert carry their own bind_* method, matching
// the one-bind-method-per-statement split in the original's binder/mod.rs.
func (b *Binder) Bind(stmt ast.Statement) (plan.ID, error) {
	switch s := stmt.(type) {
	case ast.CreateTable:
		return b.bindCreateTable(s)
	case ast.DropTable:
		return b.bindDropTable(s)
	case ast.Insert:
		return b.bindInsert(s)
	case ast.Select:
		return b.bindSelect(s)
	default:
		return 0, ErrUnsupported.New(stmt)
	}
}

func (b *Binder) defaultSchema() *catalog.Schema {
	schema, _ := b.catalog.GetSchemaByName(catalog.DefaultSchemaName)
	return schema
}

func (b *Binder) bindColumnType(typeName string) (types.DataType, error) {
	switch strings.ToUpper(typeName) {
	case "BOOL", "BOOLEAN":
		return types.New(types.Bool, true), nil
	case "INT", "INTEGER":
		return types.New(types.Int32, true), nil
	case "TEXT", "STRING", "VARCHAR", "CHAR":
		return types.New(types.String, true), nil
	default:
		return types.DataType{}, ErrUnknownType.New(typeName)
	}
}

func (b *Binder) bindCreateTable(s ast.CreateTable) (plan.ID, error) {
	schema := b.defaultSchema()
	if _, ok := schema.GetTableByName(s.Name); ok {
		return 0, ErrTableExists.New(s.Name)
	}
	seen := map[string]bool{}
	cols := make([]plan.CreateColumn, 0, len(s.Columns))
	for _, c := range s.Columns {
		if seen[c.Name] {
			return 0, ErrDuplicateColumn.New(c.Name)
		}
		seen[c.Name] = true
		dt, err := b.bindColumnType(c.Type)
		if err != nil {
			return 0, err
		}
		dt.Nullable = c.Nullable && !c.Primary
		cols = append(cols, plan.CreateColumn{
			Name: c.Name,
			Desc: catalog.ColumnDesc{DataType: dt, IsPrimary: c.Primary},
		})
	}
	node := plan.CreateTableNode(plan.CreateTableData{
		SchemaID: schema.ID(),
		Name:     s.Name,
		Columns:  cols,
		Options:  s.Options,
	})
	return b.egraph.Add(node), nil
}

// bindDropTable implements DESIGN.md Open Question 4: the binder
// resolves existence up front. Unknown table + IF EXISTS lowers to a
// harmless no-op Drop (IfExists=true, a zero Object) the executor
// builder recognizes and skips; unknown table without IF EXISTS is a
// bind-time error.
func (b *Binder) bindDropTable(s ast.DropTable) (plan.ID, error) {
	schema := b.defaultSchema()
	table, ok := schema.GetTableByName(s.Name)
	if !ok {
		if s.IfExists {
			return b.egraph.Add(plan.DropNode(plan.DropData{IfExists: true})), nil
		}
		return 0, ErrTableNotFound.New(s.Name)
	}
	ref := catalog.TableRefID{SchemaID: schema.ID(), TableID: table.ID()}
	return b.egraph.Add(plan.DropNode(plan.DropData{
		Object:   plan.Object{Table: ref, IsTable: true},
		IfExists: s.IfExists,
	})), nil
}

func (b *Binder) resolveTable(name string) (*catalog.Table, catalog.TableRefID, error) {
	schema := b.defaultSchema()
	table, ok := schema.GetTableByName(name)
	if !ok {
		return nil, catalog.TableRefID{}, ErrTableNotFound.New(name)
	}
	return table, catalog.TableRefID{SchemaID: schema.ID(), TableID: table.ID()}, nil
}

// rewriteAggExpr ports bind_insert_select_from's rewrite_agg_in_expr: a
// surface expression whose id already lands in the Agg node's output
// schema becomes a Ref to it; a bare column that doesn't is the
// must-appear-in-GROUP-BY error, resolved to the column's name (not
// its numeric plan id); anything else is rebuilt from rewritten
// children so a compound expression over an aggregate still resolves.
func (b *Binder) rewriteAggExpr(id plan.ID, schema map[plan.ID]bool) (plan.ID, error) {
	if schema[id] {
		return b.egraph.Add(plan.RefNode(id)), nil
	}
	n := b.egraph.NodeAt(id)
	if n.Kind == plan.Column {
		col, _ := b.catalog.GetColumn(n.ColumnRef)
		return 0, ErrNotAggregate.New(col.Name)
	}
	if len(n.Children) == 0 {
		return id, nil
	}
	children := make([]plan.ID, len(n.Children))
	for i, c := range n.Children {
		rid, err := b.rewriteAggExpr(c, schema)
		if err != nil {
			return 0, err
		}
		children[i] = rid
	}
	n.Children = children
	return b.egraph.Add(n), nil
}

func (b *Binder) bindInsert(s ast.Insert) (plan.ID, error) {
	table, ref, err := b.resolveTable(s.Table)
	if err != nil {
		return 0, err
	}
	allCols := table.AllColumns()
	var targetCols []catalog.Column
	if len(s.Columns) > 0 {
		for _, name := range s.Columns {
			col, ok := table.GetColumnByName(name)
			if !ok {
				return 0, ErrColumnNotFound.New(name)
			}
			targetCols = append(targetCols, col)
		}
	} else {
		targetCols = allCols
	}

	colIDs := make([]plan.ID, len(targetCols))
	for i, c := range targetCols {
		colIDs[i] = b.egraph.Add(plan.ColumnNode(catalog.ColumnRefFromTable(ref, c.ID)))
	}
	columnsID := b.egraph.Add(plan.ListNode(colIDs))

	if s.Query != nil {
		sourceID, err := b.bindSelect(*s.Query)
		if err != nil {
			return 0, err
		}
		width := len(b.egraph.Schema(sourceID))
		if width != len(targetCols) {
			return 0, ErrColumnCountMismatch.New(len(targetCols), width)
		}
		return b.egraph.Add(plan.InsertNode(b.egraph.Add(plan.TableNode(ref)), columnsID, sourceID)), nil
	}

	rowIDs := make([]plan.ID, len(s.Values))
	for ri, row := range s.Values {
		if len(row) != len(targetCols) {
			return 0, ErrColumnCountMismatch.New(len(targetCols), len(row))
		}
		cellIDs := make([]plan.ID, len(row))
		for ci, e := range row {
			id, err := b.bindScalarExpr(e, nil)
			if err != nil {
				return 0, err
			}
			cellIDs[ci] = id
		}
		rowIDs[ri] = b.egraph.Add(plan.ListNode(cellIDs))
	}
	valuesID := b.egraph.Add(plan.ValuesNode(rowIDs))
	return b.egraph.Add(plan.InsertNode(b.egraph.Add(plan.TableNode(ref)), columnsID, valuesID)), nil
}

// bindScalarExpr lowers a literal/identifier/function expression into
// the egraph, resolving identifiers against sc when it is non-nil.
// Binary/unary operators are rejected — see DESIGN.md Decision 6.
func (b *Binder) bindScalarExpr(e ast.Expr, sc *scope) (plan.ID, error) {
	id, err := b.bindScalarExprRaw(e, sc)
	if err != nil {
		return 0, err
	}
	if tr := b.egraph.Type(id); tr.Err != nil {
		return 0, ErrTypeError.New(tr.Err)
	}
	return id, nil
}

func (b *Binder) bindScalarExprRaw(e ast.Expr, sc *scope) (plan.ID, error) {
	switch ex := e.(type) {
	case ast.NullLit:
		return b.egraph.Add(plan.NullNode()), nil
	case ast.BoolLit:
		return b.egraph.Add(plan.ConstantNode(types.BoolValue(ex.Value))), nil
	case ast.IntLit:
		return b.egraph.Add(plan.ConstantNode(types.Int32Value(ex.Value))), nil
	case ast.StringLit:
		return b.egraph.Add(plan.ConstantNode(types.StringValue(ex.Value))), nil
	case ast.Identifier:
		return b.bindColumnRef(sc, ex.Name)
	case ast.CompoundIdentifier:
		if len(ex.Parts) != 2 {
			return 0, ErrUnsupported.New(ex)
		}
		return b.bindColumnRef(sc, ex.Parts[1])
	case ast.FuncCall:
		return b.bindFunction(ex, sc)
	default:
		return 0, ErrUnsupported.New(e)
	}
}

func (b *Binder) bindColumnRef(sc *scope, name string) (plan.ID, error) {
	if sc == nil {
		return 0, ErrColumnNotFound.New(name)
	}
	col, ok := sc.table.GetColumnByName(name)
	if !ok {
		return 0, ErrColumnNotFound.New(name)
	}
	return b.egraph.Add(plan.ColumnNode(catalog.ColumnRefFromTable(sc.tableRef, col.ID))), nil
}

func (b *Binder) bindFunction(f ast.FuncCall, sc *scope) (plan.ID, error) {
	switch f.Name {
	case "COUNT":
		if f.Star {
			return b.egraph.Add(plan.CountNode(b.egraph.Add(plan.ZeroNode()))), nil
		}
		if len(f.Args) != 1 {
			return 0, ErrUnknownFunction.New("COUNT")
		}
		arg, err := b.bindScalarExprRaw(f.Args[0], sc)
		if err != nil {
			return 0, err
		}
		return b.egraph.Add(plan.CountNode(arg)), nil
	case "SUM":
		if len(f.Args) != 1 {
			return 0, ErrUnknownFunction.New("SUM")
		}
		arg, err := b.bindScalarExprRaw(f.Args[0], sc)
		if err != nil {
			return 0, err
		}
		return b.egraph.Add(plan.SumNode(arg)), nil
	default:
		return 0, ErrUnknownFunction.New(f.Name)
	}
}

func (b *Binder) bindSelect(s ast.Select) (plan.ID, error) {
	if s.From == "" {
		return 0, ErrNoFromClause.New()
	}
	table, ref, err := b.resolveTable(s.From)
	if err != nil {
		return 0, err
	}
	sc := &scope{tableRef: ref, table: table, schemaName: catalog.DefaultSchemaName}
	allCols := table.AllColumns()

	scanColIDs := make([]plan.ID, len(allCols))
	for i, c := range allCols {
		scanColIDs[i] = b.egraph.Add(plan.ColumnNode(catalog.ColumnRefFromTable(ref, c.ID)))
	}
	scanColumnsID := b.egraph.Add(plan.ListNode(scanColIDs))

	var planID plan.ID = b.egraph.Add(plan.ScanNode(b.egraph.Add(plan.TableNode(ref)), scanColumnsID, b.egraph.Add(plan.TrueNode())))
	if s.Where != nil {
		condID, err := b.bindScalarExpr(s.Where, sc)
		if err != nil {
			return 0, err
		}
		planID = b.egraph.Add(plan.FilterNode(condID, planID))
	}

	projIDs := make([]plan.ID, 0, len(s.Projection))
	isStar := len(s.Projection) == 1 && s.Projection[0].Star
	if isStar {
		projIDs = scanColIDs
	} else {
		for _, item := range s.Projection {
			if item.Star {
				return 0, ErrUnsupported.New("mixed * projection")
			}
			id, err := b.bindScalarExpr(item.Expr, sc)
			if err != nil {
				return 0, err
			}
			projIDs = append(projIDs, id)
		}
	}
	exprsID := b.egraph.Add(plan.ListNode(projIDs))

	hasAgg := len(b.egraph.Aggs(exprsID)) > 0 || len(s.GroupBy) > 0
	if hasAgg {
		groupKeyIDs := make([]plan.ID, 0, len(s.GroupBy))
		for _, g := range s.GroupBy {
			id, err := b.bindScalarExpr(g, sc)
			if err != nil {
				return 0, err
			}
			groupKeyIDs = append(groupKeyIDs, id)
		}

		// aggIDs collects every aggregate leaf reachable from any SELECT
		// item, deduped — the Go analogue of plan_agg's self.aggs(expr_list).
		var aggIDs []plan.ID
		aggSeen := make(map[plan.ID]bool)
		for _, root := range projIDs {
			for _, id := range b.egraph.Aggs(root) {
				if !aggSeen[id] {
					aggSeen[id] = true
					aggIDs = append(aggIDs, id)
				}
			}
		}
		aggsListID := b.egraph.Add(plan.ListNode(aggIDs))
		groupKeysID := b.egraph.Add(plan.ListNode(groupKeyIDs))
		aggPlanID := b.egraph.Add(plan.AggNode(aggsListID, groupKeysID, planID))

		// schema is the Agg node's own output shape, aggs++group_keys.
		// rewrite_agg_in_expr's ground truth (bind_insert_select_from,
		// select.rs:157-194): any surface sub-expression whose id is
		// already part of this schema becomes a Ref to it; a bare column
		// that isn't is the must-appear-in-GROUP-BY error.
		schema := make(map[plan.ID]bool, len(aggIDs)+len(groupKeyIDs))
		for _, id := range aggIDs {
			schema[id] = true
		}
		for _, id := range groupKeyIDs {
			schema[id] = true
		}
		rewritten := make([]plan.ID, len(projIDs))
		for i, id := range projIDs {
			rid, err := b.rewriteAggExpr(id, schema)
			if err != nil {
				return 0, err
			}
			rewritten[i] = rid
		}
		rewrittenExprsID := b.egraph.Add(plan.ListNode(rewritten))
		planID = b.egraph.Add(plan.ProjNode(rewrittenExprsID, aggPlanID))
	} else {
		planID = b.egraph.Add(plan.ProjNode(exprsID, planID))
	}

	if len(s.OrderBy) > 0 {
		keyIDs := make([]plan.ID, len(s.OrderBy))
		for i, o := range s.OrderBy {
			id, err := b.bindScalarExpr(o.Expr, sc)
			if err != nil {
				return 0, err
			}
			if o.Desc {
				id = b.egraph.Add(plan.DescNode(id))
			} else {
				id = b.egraph.Add(plan.AscNode(id))
			}
			keyIDs[i] = id
		}
		planID = b.egraph.Add(plan.OrderNode(b.egraph.Add(plan.ListNode(keyIDs)), planID))
	}

	if s.Limit != nil || s.Offset != nil {
		limitID := b.egraph.Add(plan.NullNode())
		offsetID := b.egraph.Add(plan.ZeroNode())
		if s.Limit != nil {
			id, err := b.bindScalarExpr(s.Limit, nil)
			if err != nil {
				return 0, err
			}
			limitID = id
		}
		if s.Offset != nil {
			id, err := b.bindScalarExpr(s.Offset, nil)
			if err != nil {
				return 0, err
			}
			offsetID = id
		}
		planID = b.egraph.Add(plan.LimitNode(limitID, offsetID, planID))
	}

	return planID, nil
}
