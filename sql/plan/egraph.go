package plan

import (
	"fmt"

	"github.com/streamql/streamql/sql/catalog"
	"github.com/streamql/streamql/sql/types"
)

// TypeResult is the outcome of type analysis for one node: either a
// resolved DataType, or the TypeError that made it unavailable.
type TypeResult struct {
	DataType types.DataType
	Err      error
}

// data is the per-id cached analysis, mirroring rulink's
// TypeSchemaAnalysis{type_, schema, aggs}.
type data struct {
	typ    TypeResult
	schema []ID
	aggs   []ID
}

// EGraph is a hash-consed expression graph: structurally identical
// nodes are interned to the same id, and each id carries a cached,
// bottom-up analysis (type, output schema, aggregate set). Two
// classes can additionally be unified via Union, which merges their
// analyses "max wins" per analysis.go's Merge — the extension point a
// future optimizer rewrite rule would use; exercised directly by
// egraph_test.go since the identity optimizer never triggers it.
type EGraph struct {
	catalog *catalog.Database

	nodes   []Node
	data    []data
	hashcon map[string]ID

	parent []ID
}

// NewEGraph creates an empty graph bound to db for column/table lookups
// during type analysis.
func NewEGraph(db *catalog.Database) *EGraph {
	return &EGraph{
		catalog: db,
		hashcon: make(map[string]ID),
	}
}

// Add interns node, returning its canonical id. Structurally equal
// nodes (same Kind, payload, and canonical children) always return the
// same id without recomputing analysis.
func (eg *EGraph) Add(n Node) ID {
	key := canonicalKey(n)
	if id, ok := eg.hashcon[key]; ok {
		return eg.find(id)
	}
	id := ID(len(eg.nodes))
	eg.nodes = append(eg.nodes, n)
	eg.parent = append(eg.parent, id)
	eg.data = append(eg.data, eg.analyze(id, n))
	eg.hashcon[key] = id
	return id
}

// find resolves id to its canonical representative, path-compressing
// as it walks — standard union-find, used so a Union call is visible
// from every id that was ever merged into the resulting class.
func (eg *EGraph) find(id ID) ID {
	root := id
	for eg.parent[root] != root {
		root = eg.parent[root]
	}
	for eg.parent[id] != root {
		eg.parent[id], id = root, eg.parent[id]
	}
	return root
}

// Union merges the classes of a and b, combining their analyses via
// Merge (analysis.go) and returning the surviving representative id.
// A no-op rewrite system never calls this; it exists for a future
// optimizer pass to unify a rewritten node with its original.
func (eg *EGraph) Union(a, b ID) ID {
	ra, rb := eg.find(a), eg.find(b)
	if ra == rb {
		return ra
	}
	merged := Merge(eg.data[ra], eg.data[rb])
	eg.parent[rb] = ra
	eg.data[ra] = merged
	return ra
}

// NodeAt returns the interned node for (the canonical representative
// of) id.
func (eg *EGraph) NodeAt(id ID) Node {
	return eg.nodes[eg.find(id)]
}

// Children returns id's operand ids, already canonicalized.
func (eg *EGraph) Children(id ID) []ID {
	return eg.NodeAt(id).Children
}

// Type returns the cached type analysis for id.
func (eg *EGraph) Type(id ID) TypeResult {
	return eg.data[eg.find(id)].typ
}

// Schema returns the cached output-schema analysis for id: the list of
// expression ids that make up its result row shape.
func (eg *EGraph) Schema(id ID) []ID {
	return eg.data[eg.find(id)].schema
}

// Aggs returns the cached aggregate-set analysis for id: every
// Count/Sum leaf reachable from id without crossing an Over or Ref
// boundary.
func (eg *EGraph) Aggs(id ID) []ID {
	return eg.data[eg.find(id)].aggs
}

func (eg *EGraph) analyze(id ID, n Node) data {
	childType := func(c ID) TypeResult { return eg.Type(c) }
	childSchema := func(c ID) []ID { return eg.Schema(c) }
	childAggs := func(c ID) []ID { return eg.Aggs(c) }
	return data{
		typ:    analyzeType(eg.catalog, n, childType),
		schema: analyzeSchema(n, childSchema),
		aggs:   analyzeAggs(id, n, childAggs),
	}
}

func canonicalKey(n Node) string {
	return fmt.Sprintf("%d|%v|%v|%v|%v|%v|%v|%v",
		n.Kind, n.Value, n.DataType, n.ColumnRef, n.ColIndex, n.TableRef,
		canonicalDDL(n), n.Children)
}

func canonicalDDL(n Node) string {
	if n.Kind == CreateTable {
		return fmt.Sprintf("%v", n.CreateTable)
	}
	if n.Kind == Drop {
		return fmt.Sprintf("%v", n.Drop)
	}
	return ""
}
