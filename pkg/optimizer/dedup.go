package optimizer

import (
	"fmt"

	"github.com/corvid-graph/corvid/pkg/planner"
)

// eliminateRedundantTraversals is pass 4 (spec §4.5): within a pipeline
// segment, drop the second and later scan/expand operators sharing a
// signature — (kind, bound variables, labels/types, direction, predicate
// structure, hop bounds) — since the surviving operator already binds
// those variables and reachable rows are unchanged.
func eliminateRedundantTraversals(ops []planner.Operator) []planner.Operator {
	return segments(ops, dedupRun)
}

func dedupRun(ops []planner.Operator) []planner.Operator {
	seen := make(map[string]bool)
	out := make([]planner.Operator, 0, len(ops))
	for _, op := range ops {
		sig, ok := signature(op)
		if ok {
			if seen[sig] {
				continue
			}
			seen[sig] = true
		}
		out = append(out, op)
	}
	return out
}

// signature renders a scan/expand operator's identity for deduplication.
// Predicate structure is captured by its Go type shape (%#v on the AST
// node), not its evaluated value — two syntactically identical predicates
// collapse, two merely equivalent ones don't, matching the conservative
// reading of spec §4.5 pass 4.
func signature(op planner.Operator) (string, bool) {
	switch o := op.(type) {
	case planner.ScanNodes:
		return fmt.Sprintf("scan:%s:%v:%#v", o.Var, o.Labels, o.Predicate), true
	case planner.ExpandEdges:
		return fmt.Sprintf("expand:%s:%s:%s:%v:%d:%#v", o.SrcVar, o.EdgeVar, o.DstVar, o.Types, o.Direction, o.Predicate), true
	case planner.ExpandVariableLength:
		return fmt.Sprintf("varlen:%s:%s:%s:%v:%d:%d-%d:%#v", o.SrcVar, o.EdgeVar, o.DstVar, o.Types, o.Direction, o.MinHops, o.MaxHops, o.Predicate), true
	default:
		return "", false
	}
}
