package optimizer

import (
	"sort"

	"github.com/corvid-graph/corvid/pkg/ast"
	"github.com/corvid-graph/corvid/pkg/graph"
	"github.com/corvid-graph/corvid/pkg/planner"
)

// predicateReorder is pass 3 (spec §4.5): within each conjunctive
// predicate, sort conjuncts by a cheap selectivity estimate so the most
// selective evaluates first and short-circuits sooner.
func predicateReorder(ops []planner.Operator, stats *graph.Statistics) []planner.Operator {
	out := make([]planner.Operator, len(ops))
	for i, op := range ops {
		out[i] = reorderPredicateOf(op)
	}
	return out
}

func reorderPredicateOf(op planner.Operator) planner.Operator {
	switch o := op.(type) {
	case planner.ScanNodes:
		o.Predicate = sortConjuncts(o.Predicate)
		return o
	case planner.ExpandEdges:
		o.Predicate = sortConjuncts(o.Predicate)
		return o
	case planner.OptionalExpandEdges:
		o.Predicate = sortConjuncts(o.Predicate)
		return o
	case planner.Filter:
		o.Predicate = sortConjuncts(o.Predicate)
		return o
	default:
		return op
	}
}

func sortConjuncts(pred ast.Expression) ast.Expression {
	if pred == nil {
		return nil
	}
	conjuncts := splitConjuncts(pred)
	if len(conjuncts) <= 1 {
		return pred
	}
	sort.SliceStable(conjuncts, func(i, j int) bool {
		return selectivityRank(conjuncts[i]) < selectivityRank(conjuncts[j])
	})
	return combineConjuncts(conjuncts)
}

// selectivityRank is a cheap, static proxy for how much a conjunct is
// expected to narrow its input — lower sorts first. Real cardinality
// estimation would need column-value histograms, which this core doesn't
// maintain (spec §6.5 only promises label/type cardinalities).
func selectivityRank(e ast.Expression) int {
	b, ok := e.(ast.BinaryOp)
	if !ok {
		return 5
	}
	switch b.Op {
	case "=":
		return 0
	case "IN":
		return 1
	case "<", "<=", ">", ">=":
		return 2
	case "STARTS WITH", "ENDS WITH", "CONTAINS":
		return 3
	case "AND", "OR", "XOR":
		return 4
	default:
		return 5
	}
}
