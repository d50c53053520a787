package optimizer

import (
	"github.com/corvid-graph/corvid/pkg/ast"
	"github.com/corvid-graph/corvid/pkg/planner"
)

// boundVars returns the set of variables an operator binds, used by filter
// pushdown and join reorder to respect dependency ordering.
func boundVars(op planner.Operator) []string {
	switch o := op.(type) {
	case planner.ScanNodes:
		return nonEmpty(o.Var, o.PathVar)
	case planner.OptionalScanNodes:
		return nonEmpty(o.Var, o.PathVar)
	case planner.ExpandEdges:
		return nonEmpty(o.SrcVar, o.EdgeVar, o.DstVar, o.PathVar)
	case planner.OptionalExpandEdges:
		return nonEmpty(o.SrcVar, o.EdgeVar, o.DstVar, o.PathVar)
	case planner.ExpandVariableLength:
		return nonEmpty(o.SrcVar, o.EdgeVar, o.DstVar, o.PathVar)
	case planner.ExpandMultiHop:
		vars := []string{o.SrcVar, o.PathVar}
		for _, h := range o.Hops {
			vars = append(vars, h.EdgeVar, h.DstVar)
		}
		return nonEmpty(vars...)
	case planner.Unwind:
		return nonEmpty(o.Var)
	default:
		return nil
	}
}

func nonEmpty(vars ...string) []string {
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// splitConjuncts decomposes an AND-tree into its leaf conjuncts.
func splitConjuncts(e ast.Expression) []ast.Expression {
	if b, ok := e.(ast.BinaryOp); ok && b.Op == "AND" {
		return append(splitConjuncts(b.Left), splitConjuncts(b.Right)...)
	}
	return []ast.Expression{e}
}

// combineConjuncts is splitConjuncts's inverse: AND-folds a conjunct list,
// or returns a single predicate unchanged, or nil for an empty list.
func combineConjuncts(exprs []ast.Expression) ast.Expression {
	if len(exprs) == 0 {
		return nil
	}
	out := exprs[0]
	for _, e := range exprs[1:] {
		out = ast.BinaryOp{Op: "AND", Left: out, Right: e}
	}
	return out
}

// freeVars collects every Variable reference inside an expression.
func freeVars(e ast.Expression) map[string]bool {
	out := make(map[string]bool)
	collectFreeVars(e, out)
	return out
}

func collectFreeVars(e ast.Expression, out map[string]bool) {
	switch v := e.(type) {
	case ast.Variable:
		out[v.Name] = true
	case ast.PropertyAccess:
		collectFreeVars(v.Target, out)
	case ast.BinaryOp:
		collectFreeVars(v.Left, out)
		collectFreeVars(v.Right, out)
	case ast.UnaryOp:
		collectFreeVars(v.Operand, out)
	case ast.FunctionCall:
		for _, a := range v.Args {
			collectFreeVars(a, out)
		}
	case ast.CaseExpression:
		if v.Test != nil {
			collectFreeVars(v.Test, out)
		}
		for _, alt := range v.Alternatives {
			collectFreeVars(alt.When, out)
			collectFreeVars(alt.Then, out)
		}
		if v.Else != nil {
			collectFreeVars(v.Else, out)
		}
	case ast.ListComprehension:
		collectFreeVars(v.List, out)
		inner := make(map[string]bool)
		if v.Where != nil {
			collectFreeVars(v.Where, inner)
		}
		if v.Project != nil {
			collectFreeVars(v.Project, inner)
		}
		for name := range inner {
			if name != v.Var {
				out[name] = true
			}
		}
	case ast.QuantifierExpression:
		collectFreeVars(v.List, out)
		inner := make(map[string]bool)
		collectFreeVars(v.Predicate, inner)
		for name := range inner {
			if name != v.Var {
				out[name] = true
			}
		}
	}
}

func setEquals(a map[string]bool, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, v := range b {
		if !a[v] {
			return false
		}
	}
	return true
}
