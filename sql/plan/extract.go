package plan

// Tree is a concrete, fully-materialized plan tree pulled out of an
// EGraph — the Go analogue of calling RecExpr::from(extractor) after
// egg::Extractor::new(&egraph, egg::AstSize).find_best(root).
type Tree struct {
	ID       ID
	Node     Node
	Children []*Tree
}

// Extractor walks an EGraph bottom-up computing an AstSize-style cost
// per id (1 plus the cost of every child) and memoizing it, then
// materializes the lowest-cost tree rooted at a given id. With no
// rewrite rules in play (the optimizer is presently an identity
// transform — see sql/analyzer) every id has exactly one shape to
// extract; the cost walk still runs so a future rewrite pass that
// unifies alternative shapes into one class is extracted correctly
// without further changes here.
type Extractor struct {
	eg    *EGraph
	costs map[ID]int
}

func NewExtractor(eg *EGraph) *Extractor {
	return &Extractor{eg: eg, costs: make(map[ID]int)}
}

func (ex *Extractor) cost(id ID) int {
	if c, ok := ex.costs[id]; ok {
		return c
	}
	n := ex.eg.NodeAt(id)
	total := 1
	for _, c := range n.Children {
		total += ex.cost(c)
	}
	ex.costs[id] = total
	return total
}

// FindBest materializes the lowest-cost concrete tree rooted at id.
func (ex *Extractor) FindBest(id ID) *Tree {
	ex.cost(id)
	return ex.build(id)
}

func (ex *Extractor) build(id ID) *Tree {
	n := ex.eg.NodeAt(id)
	children := make([]*Tree, len(n.Children))
	for i, c := range n.Children {
		children[i] = ex.build(c)
	}
	return &Tree{ID: id, Node: n, Children: children}
}
