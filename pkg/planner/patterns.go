package planner

import (
	"sort"

	"github.com/corvid-graph/corvid/pkg/ast"
)

// unboundedHops stands in for an open-ended `*` / `*n..` range. Traversal
// still terminates: node-uniqueness cycle detection bounds path length by
// the graph's node count.
const unboundedHops = 1 << 30

// lowerPatterns lowers each Match/OptionalMatch pattern, in source order,
// into scan/expand operators (spec §4.4.1).
func lowerPatterns(patterns []ast.Pattern, sc *scope, optional bool) ([]Operator, error) {
	var ops []Operator
	for _, p := range patterns {
		patOps, err := lowerPattern(p, sc, optional)
		if err != nil {
			return nil, err
		}
		ops = append(ops, patOps...)
	}
	return ops, nil
}

func lowerPattern(p ast.Pattern, sc *scope, optional bool) ([]Operator, error) {
	if len(p.Elements) == 0 {
		return nil, newCompileError(CodeMalformedAST, "pattern has no elements")
	}

	firstNode := p.Elements[0].Node
	if firstNode == nil {
		return nil, newCompileError(CodeMalformedAST, "pattern must start with a node")
	}
	srcVar := firstNode.Var
	if srcVar == "" {
		srcVar = sc.anon()
	}
	if err := sc.bind(srcVar, KindNode); err != nil {
		return nil, err
	}

	var ops []Operator
	scanPathVar := ""
	hasHops := (len(p.Elements) - 1) / 2
	if hasHops == 0 {
		scanPathVar = p.PathVar
	}
	if optional {
		// Inline properties ride inside the optional operator's predicate:
		// a failed match must still emit a NULL-bound row, which a trailing
		// Filter would drop.
		ops = append(ops, OptionalScanNodes{
			Var: srcVar, Labels: firstNode.Labels, PathVar: scanPathVar,
			Predicate: inlinePredExpr(srcVar, firstNode.Properties),
		})
	} else {
		ops = append(ops, ScanNodes{Var: srcVar, Labels: firstNode.Labels, PathVar: scanPathVar})
		if f := inlinePredicateFilter(srcVar, firstNode.Properties); f != nil {
			ops = append(ops, *f)
		}
	}

	if len(p.Elements) == 1 {
		return ops, nil
	}

	useFusion := canFuseMultiHop(p)
	if useFusion {
		return lowerFusedChain(p, srcVar, sc, ops)
	}
	return lowerPerHopChain(p, srcVar, sc, optional, ops)
}

// canFuseMultiHop reports whether the pattern qualifies for ExpandMultiHop
// fusion: a path variable is present and no segment is variable-length
// (spec §4.4.1).
func canFuseMultiHop(p ast.Pattern) bool {
	if p.PathVar == "" {
		return false
	}
	for _, el := range p.Elements {
		if el.Rel != nil && (el.Rel.MinHops != nil || el.Rel.MaxHops != nil) {
			return false
		}
	}
	return (len(p.Elements)-1)/2 > 1
}

func lowerFusedChain(p ast.Pattern, srcVar string, sc *scope, ops []Operator) ([]Operator, error) {
	var hops []FixedHop
	// Per-destination property filters apply after the whole chain resolves,
	// since ExpandMultiHop binds every destination in one step.
	var filters []Operator
	for i := 1; i < len(p.Elements); i += 2 {
		rel := p.Elements[i].Rel
		nodeEl := p.Elements[i+1].Node
		dstVar := nodeEl.Var
		if dstVar == "" {
			dstVar = sc.anon()
		}
		if err := sc.bind(dstVar, KindNode); err != nil {
			return nil, err
		}
		relVar := rel.Var
		if relVar == "" && len(rel.Properties) > 0 {
			relVar = sc.anon()
		}
		if relVar != "" {
			if err := sc.bind(relVar, KindRelationship); err != nil {
				return nil, err
			}
		}
		hops = append(hops, FixedHop{
			EdgeVar: relVar, DstVar: dstVar, Types: rel.Types,
			Direction: rel.Direction, Predicate: rel.Predicate,
		})
		if len(nodeEl.Labels) > 0 {
			filters = append(filters, ScanNodes{Var: dstVar, Labels: nodeEl.Labels})
		}
		if f := inlinePredicateFilter(relVar, rel.Properties); f != nil {
			filters = append(filters, *f)
		}
		if f := inlinePredicateFilter(dstVar, nodeEl.Properties); f != nil {
			filters = append(filters, *f)
		}
	}
	if err := sc.bind(p.PathVar, KindPath); err != nil {
		return nil, err
	}
	ops = append(ops, ExpandMultiHop{SrcVar: srcVar, Hops: hops, PathVar: p.PathVar})
	ops = append(ops, filters...)
	return ops, nil
}

func lowerPerHopChain(p ast.Pattern, srcVar string, sc *scope, optional bool, ops []Operator) ([]Operator, error) {
	cur := srcVar
	pathVar := p.PathVar
	if pathVar != "" {
		if err := sc.bind(pathVar, KindPath); err != nil {
			return nil, err
		}
	}
	for i := 1; i < len(p.Elements); i += 2 {
		rel := p.Elements[i].Rel
		nodeEl := p.Elements[i+1].Node
		dstVar := nodeEl.Var
		if dstVar == "" {
			dstVar = sc.anon()
		}
		if err := sc.bind(dstVar, KindNode); err != nil {
			return nil, err
		}
		relVar := rel.Var
		if relVar == "" {
			relVar = sc.anon()
		}
		if err := sc.bind(relVar, KindRelationship); err != nil {
			return nil, err
		}

		if rel.MinHops != nil || rel.MaxHops != nil {
			min, max := 1, unboundedHops
			if rel.MinHops != nil {
				min = *rel.MinHops
			}
			if rel.MaxHops != nil {
				max = *rel.MaxHops
			}
			pred := rel.Predicate
			if len(rel.Properties) > 0 {
				// The edge variable holds a list here, so inline properties
				// become an ALL(...) quantifier over it: every traversed edge
				// must carry the pattern's properties.
				inner := sc.anon()
				pred = andPreds(pred, ast.QuantifierExpression{
					Kind: ast.QuantifierAll, Var: inner,
					List:      ast.Variable{Name: relVar},
					Predicate: inlinePredExpr(inner, rel.Properties),
				})
			}
			ops = append(ops, ExpandVariableLength{
				SrcVar: cur, EdgeVar: relVar, DstVar: dstVar, Types: rel.Types,
				Direction: rel.Direction, MinHops: min, MaxHops: max,
				Predicate: pred, PathVar: pathVar,
			})
			if len(nodeEl.Labels) > 0 {
				ops = append(ops, ScanNodes{Var: dstVar, Labels: nodeEl.Labels})
			}
			if f := inlinePredicateFilter(dstVar, nodeEl.Properties); f != nil {
				ops = append(ops, *f)
			}
		} else if optional {
			pred := rel.Predicate
			pred = andPreds(pred, inlinePredExpr(relVar, rel.Properties))
			pred = andPreds(pred, inlinePredExpr(dstVar, nodeEl.Properties))
			pred = andPreds(pred, labelPredExpr(dstVar, nodeEl.Labels))
			ops = append(ops, OptionalExpandEdges{
				SrcVar: cur, EdgeVar: relVar, DstVar: dstVar, Types: rel.Types,
				Direction: rel.Direction, Predicate: pred, PathVar: pathVar,
			})
		} else {
			ops = append(ops, ExpandEdges{
				SrcVar: cur, EdgeVar: relVar, DstVar: dstVar, Types: rel.Types,
				Direction: rel.Direction, Predicate: rel.Predicate, PathVar: pathVar,
			})
			if len(nodeEl.Labels) > 0 {
				// A labeled destination re-validates through a bound-variable
				// scan: the executor keeps the row only when the bound node
				// carries every label (spec §4.7's already-bound rule).
				ops = append(ops, ScanNodes{Var: dstVar, Labels: nodeEl.Labels})
			}
			if f := inlinePredicateFilter(relVar, rel.Properties); f != nil {
				ops = append(ops, *f)
			}
			if f := inlinePredicateFilter(dstVar, nodeEl.Properties); f != nil {
				ops = append(ops, *f)
			}
		}
		cur = dstVar
	}
	return ops, nil
}

// inlinePredExpr combines a pattern element's inline property map into one
// AND-conjunction over `v.key = expr` tests, or nil for an empty map (spec
// §4.4.1).
func inlinePredExpr(v string, props map[string]ast.Expression) ast.Expression {
	keys := make([]string, 0, len(props))
	for key := range props {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var pred ast.Expression
	for _, key := range keys {
		eq := ast.BinaryOp{Op: "=", Left: ast.PropertyAccess{Target: ast.Variable{Name: v}, Key: key}, Right: props[key]}
		pred = andPreds(pred, eq)
	}
	return pred
}

// labelPredExpr expresses "v carries every label" as a conjunction of
// `'Label' IN labels(v)` tests, for use inside an Optional operator's
// predicate where a trailing re-validation scan would drop NULL rows.
func labelPredExpr(v string, labels []string) ast.Expression {
	var pred ast.Expression
	for _, l := range labels {
		test := ast.BinaryOp{
			Op:    "IN",
			Left:  ast.Literal{Value: l},
			Right: ast.FunctionCall{Name: "labels", Args: []ast.Expression{ast.Variable{Name: v}}},
		}
		pred = andPreds(pred, test)
	}
	return pred
}

func andPreds(a, b ast.Expression) ast.Expression {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return ast.BinaryOp{Op: "AND", Left: a, Right: b}
	}
}

func inlinePredicateFilter(v string, props map[string]ast.Expression) *Filter {
	pred := inlinePredExpr(v, props)
	if pred == nil {
		return nil
	}
	return &Filter{Predicate: pred}
}
