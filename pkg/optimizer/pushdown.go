package optimizer

import (
	"github.com/corvid-graph/corvid/pkg/ast"
	"github.com/corvid-graph/corvid/pkg/planner"
)

// filterPushdown is pass 1 (spec §4.5): split each Filter into AND
// conjuncts and migrate each one backward into the nearest preceding
// ScanNodes/ExpandEdges whose bound-variable set exactly matches the
// conjunct's free variables. Optional* operators are never a pushdown
// target since narrowing their candidate set would change which rows they
// emit as NULL.
func filterPushdown(ops []planner.Operator) []planner.Operator {
	return segments(ops, filterPushdownRun)
}

func filterPushdownRun(ops []planner.Operator) []planner.Operator {
	out := append([]planner.Operator{}, ops...)

	for i, op := range out {
		filt, ok := op.(planner.Filter)
		if !ok {
			continue
		}
		conjuncts := splitConjuncts(filt.Predicate)
		remaining := make([]ast.Expression, 0, len(conjuncts))

		for _, c := range conjuncts {
			free := freeVars(c)
			target := -1
			for j := i - 1; j >= 0; j-- {
				if !isPushdownTarget(out[j]) {
					continue
				}
				if setEquals(free, boundVars(out[j])) {
					target = j
					break
				}
			}
			if target == -1 {
				remaining = append(remaining, c)
				continue
			}
			out[target] = attachPredicate(out[target], c)
		}

		if len(remaining) == 0 {
			out[i] = nil
		} else {
			out[i] = planner.Filter{Predicate: combineConjuncts(remaining)}
		}
	}

	compact := make([]planner.Operator, 0, len(out))
	for _, op := range out {
		if op != nil {
			compact = append(compact, op)
		}
	}
	return compact
}

func isPushdownTarget(op planner.Operator) bool {
	switch op.(type) {
	case planner.ScanNodes, planner.ExpandEdges:
		return true
	default:
		return false
	}
}

func attachPredicate(op planner.Operator, conjunct ast.Expression) planner.Operator {
	switch o := op.(type) {
	case planner.ScanNodes:
		o.Predicate = andExpr(o.Predicate, conjunct)
		return o
	case planner.ExpandEdges:
		o.Predicate = andExpr(o.Predicate, conjunct)
		return o
	default:
		return op
	}
}

func andExpr(existing, add ast.Expression) ast.Expression {
	if existing == nil {
		return add
	}
	return ast.BinaryOp{Op: "AND", Left: existing, Right: add}
}
