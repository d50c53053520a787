package optimizer

import (
	"github.com/corvid-graph/corvid/pkg/ast"
	"github.com/corvid-graph/corvid/pkg/planner"
)

// aggregatePushdown is pass 5 (spec §4.5): recognize `ExpandEdges ->
// Aggregate` where the aggregate has exactly one COUNT/SUM/MIN/MAX
// function without DISTINCT and groups by the expand's source variable,
// and fold it into an AggregationHint on the ExpandEdges so the executor
// aggregates incrementally during traversal instead of materializing one
// row per edge.
func aggregatePushdown(ops []planner.Operator) []planner.Operator {
	out := make([]planner.Operator, len(ops))
	copy(out, ops)

	for i := 0; i < len(out)-1; i++ {
		expand, ok := out[i].(planner.ExpandEdges)
		if !ok || expand.AggHint != nil {
			continue
		}
		agg, ok := out[i+1].(planner.Aggregate)
		if !ok {
			continue
		}
		hint, ok := pushableHint(expand, agg)
		if !ok {
			continue
		}
		expand.AggHint = hint
		out[i] = expand
		out = append(out[:i+1], out[i+2:]...)
	}
	return out
}

func pushableHint(expand planner.ExpandEdges, agg planner.Aggregate) (*planner.AggregationHint, bool) {
	if len(agg.Aggregates) != 1 {
		return nil, false
	}
	a := agg.Aggregates[0]
	if a.Distinct {
		return nil, false
	}
	switch a.Func {
	case "COUNT", "SUM", "MIN", "MAX":
	default:
		return nil, false
	}
	// Every grouping key must be a bare variable kept under its own name:
	// the executor's incremental fold reads group keys straight out of the
	// pre-aggregate row bindings, so a renamed or computed key (p AS person,
	// p.name) has nothing to read there.
	groupsOnSrc := false
	aliases := make([]string, 0, len(agg.GroupBy))
	for _, g := range agg.GroupBy {
		v, ok := g.Expr.(ast.Variable)
		if !ok || v.Name != g.Alias {
			return nil, false
		}
		aliases = append(aliases, g.Alias)
		if v.Name == expand.SrcVar {
			groupsOnSrc = true
		}
	}
	if !groupsOnSrc {
		return nil, false
	}
	return &planner.AggregationHint{
		Func: a.Func, Expr: a.Arg, GroupByAliases: aliases, ResultAlias: a.Alias,
	}, true
}
