package planner

import (
	"fmt"
	"strings"
)

// Explain renders an operator pipeline as an indented, human-readable plan
// tree, the supplemented EXPLAIN feature named in SPEC_FULL.md §12. It is a
// diagnostic view only; nothing downstream parses it back.
func Explain(ops []Operator) string {
	var sb strings.Builder
	for i, op := range ops {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, describeOperator(op)))
	}
	return sb.String()
}

func describeOperator(op Operator) string {
	switch o := op.(type) {
	case ScanNodes:
		return fmt.Sprintf("ScanNodes(%s labels=%v)", o.Var, o.Labels)
	case OptionalScanNodes:
		return fmt.Sprintf("OptionalScanNodes(%s labels=%v)", o.Var, o.Labels)
	case ExpandEdges:
		s := fmt.Sprintf("ExpandEdges(%s-[%s:%v]->%s)", o.SrcVar, o.EdgeVar, o.Types, o.DstVar)
		if o.AggHint != nil {
			s += fmt.Sprintf(" +agg(%s)", o.AggHint.Func)
		}
		return s
	case OptionalExpandEdges:
		return fmt.Sprintf("OptionalExpandEdges(%s-[%s:%v]->%s)", o.SrcVar, o.EdgeVar, o.Types, o.DstVar)
	case ExpandVariableLength:
		return fmt.Sprintf("ExpandVariableLength(%s-[%s:%v*%d..%d]->%s)", o.SrcVar, o.EdgeVar, o.Types, o.MinHops, o.MaxHops, o.DstVar)
	case ExpandMultiHop:
		return fmt.Sprintf("ExpandMultiHop(%s, %d hops)", o.SrcVar, len(o.Hops))
	case Filter:
		return "Filter(...)"
	case Project:
		return fmt.Sprintf("Project(%d items)", len(o.Items))
	case With:
		return fmt.Sprintf("With(%d items, distinct=%t)", len(o.Items), o.Distinct)
	case Sort:
		return fmt.Sprintf("Sort(%d keys)", len(o.Items))
	case Skip:
		return "Skip(...)"
	case Limit:
		return "Limit(...)"
	case Distinct:
		return "Distinct"
	case Aggregate:
		return fmt.Sprintf("Aggregate(%d groupBy, %d aggs)", len(o.GroupBy), len(o.Aggregates))
	case Unwind:
		return fmt.Sprintf("Unwind(%s)", o.Var)
	case Create:
		return fmt.Sprintf("Create(%d patterns)", len(o.Patterns))
	case Merge:
		return fmt.Sprintf("Merge(match=%s)", o.MatchVar)
	case Set:
		return fmt.Sprintf("Set(%d items)", len(o.Items))
	case Remove:
		return fmt.Sprintf("Remove(%d items)", len(o.Items))
	case Delete:
		return fmt.Sprintf("Delete(%v detach=%t)", o.Vars, o.Detach)
	case Union:
		return fmt.Sprintf("Union(%d branches, all=%t)", len(o.Branches), o.All)
	case Subquery:
		return fmt.Sprintf("Subquery(%d ops)", len(o.Pipeline))
	default:
		return "Unknown"
	}
}
