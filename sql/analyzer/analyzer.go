// Package analyzer is the plan optimizer. It presently implements a
// single identity rewrite pass — no rule set is wired up — mirroring
// the original planner::Optimizer, whose optimize() is a documented
// no-op placeholder for a cost-based rewrite phase that was never
// built out. Kept as its own package/type (not inlined into the
// binder or executor builder) so a real rule set has a home without
// disturbing either of those.
package analyzer

import "github.com/streamql/streamql/sql/plan"

// Optimizer rewrites a bound plan before execution. Today it is the
// identity function: the root id is returned unchanged.
type Optimizer struct {
	egraph *plan.EGraph
}

func New(eg *plan.EGraph) *Optimizer {
	return &Optimizer{egraph: eg}
}

// Optimize returns root unchanged. A real implementation would run
// equality-saturation rewrite rules here and call Extractor to pull
// the lowest-cost rewritten tree back out; no rules exist yet.
func (o *Optimizer) Optimize(root plan.ID) plan.ID {
	return root
}
