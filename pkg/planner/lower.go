package planner

import (
	"fmt"

	"github.com/corvid-graph/corvid/pkg/ast"
)

// Plan lowers a parsed query into an operator pipeline, per spec §4.4.
func Plan(q *ast.Query) ([]Operator, error) {
	if q.Union != nil {
		return planUnion(q.Union)
	}
	sc := newScope()
	return planClauses(q.Clauses, sc)
}

func planUnion(u *ast.UnionQuery) ([]Operator, error) {
	branches := make([][]Operator, len(u.Branches))
	for i, b := range u.Branches {
		ops, err := planClauses(b.Clauses, newScope())
		if err != nil {
			return nil, err
		}
		branches[i] = ops
	}
	return []Operator{Union{Branches: branches, All: u.All}}, nil
}

// planClauses segments a flat clause list at each With boundary and plans
// each segment independently, per spec §4.4.1.
func planClauses(clauses []ast.Clause, sc *scope) ([]Operator, error) {
	var ops []Operator
	var segment []ast.Clause

	for _, c := range clauses {
		if w, ok := c.(ast.WithClause); ok {
			segOps, err := lowerSegment(segment, sc)
			if err != nil {
				return nil, err
			}
			ops = append(ops, segOps...)
			withOp, err := lowerWith(w, sc)
			if err != nil {
				return nil, err
			}
			ops = append(ops, withOp)
			segment = nil
			continue
		}
		segment = append(segment, c)
	}
	segOps, err := lowerSegment(segment, sc)
	if err != nil {
		return nil, err
	}
	return append(ops, segOps...), nil
}

// lowerSegment lowers one With-delimited run of clauses in the fixed order
// spec §4.4.1 specifies, regardless of the clauses' textual order (Cypher's
// own grammar already constrains that order; the planner just re-asserts
// it).
func lowerSegment(clauses []ast.Clause, sc *scope) ([]Operator, error) {
	var ops []Operator
	var creates []ast.CreateClause
	var merges []ast.MergeClause
	var wheres []ast.WhereClause
	var sets []ast.SetClause
	var removes []ast.RemoveClause
	var deletes []ast.DeleteClause
	var orderBy *ast.OrderByClause
	var ret *ast.ReturnClause
	var skip *ast.SkipClause
	var limit *ast.LimitClause

	for _, c := range clauses {
		switch v := c.(type) {
		case ast.MatchClause:
			patOps, err := lowerPatterns(v.Patterns, sc, false)
			if err != nil {
				return nil, err
			}
			ops = append(ops, patOps...)
			if v.Where != nil {
				ops = append(ops, Filter{Predicate: v.Where})
			}
		case ast.OptionalMatchClause:
			patOps, err := lowerPatterns(v.Patterns, sc, true)
			if err != nil {
				return nil, err
			}
			ops = append(ops, patOps...)
			if v.Where != nil {
				ops = append(ops, Filter{Predicate: v.Where})
			}
		case ast.UnwindClause:
			if err := sc.bind(v.Var, KindScalar); err != nil {
				return nil, err
			}
			ops = append(ops, Unwind{Expr: v.Expr, Var: v.Var})
		case ast.CreateClause:
			creates = append(creates, v)
		case ast.MergeClause:
			merges = append(merges, v)
		case ast.WhereClause:
			wheres = append(wheres, v)
		case ast.SetClause:
			sets = append(sets, v)
		case ast.RemoveClause:
			removes = append(removes, v)
		case ast.DeleteClause:
			deletes = append(deletes, v)
		case ast.OrderByClause:
			vv := v
			orderBy = &vv
		case ast.ReturnClause:
			vv := v
			ret = &vv
		case ast.SkipClause:
			vv := v
			skip = &vv
		case ast.LimitClause:
			vv := v
			limit = &vv
		}
	}

	for _, c := range creates {
		op, err := lowerCreate(c, sc)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	for _, m := range merges {
		op, err := lowerMerge(m, sc)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	for _, w := range wheres {
		ops = append(ops, Filter{Predicate: w.Predicate})
	}
	for _, s := range sets {
		ops = append(ops, Set{Items: s.Items})
	}
	for _, r := range removes {
		ops = append(ops, Remove{Items: r.Items})
	}
	for _, d := range deletes {
		ops = append(ops, Delete{Vars: d.Vars, Detach: d.Detach})
	}

	if ret != nil {
		returnOps, err := lowerReturn(*ret, orderBy, sc)
		if err != nil {
			return nil, err
		}
		ops = append(ops, returnOps...)
	} else if orderBy != nil {
		// A bare ORDER BY with no RETURN can't happen in valid Cypher but
		// the AST contract doesn't forbid it structurally; treat it as a
		// no-op Sort with no return items to project.
		ops = append(ops, Sort{Items: lowerOrderItems(orderBy.Items)})
	}

	if skip != nil {
		ops = append(ops, Skip{N: skip.Expr})
	}
	if limit != nil {
		ops = append(ops, Limit{N: limit.Expr})
	}

	return ops, nil
}

func lowerOrderItems(items []ast.OrderItem) []SortItem {
	out := make([]SortItem, len(items))
	for i, it := range items {
		out[i] = SortItem{Expr: it.Expr, Descending: it.Descending}
	}
	return out
}

// lowerReturn emits Project, preceded by Sort when ORDER BY is present; an
// aggregating RETURN emits Aggregate instead, followed by Sort when ORDER BY
// is present. Distinct comes last for RETURN DISTINCT.
func lowerReturn(ret ast.ReturnClause, orderBy *ast.OrderByClause, sc *scope) ([]Operator, error) {
	items := make([]ProjectItem, 0, len(ret.Items))
	for i, it := range ret.Items {
		if it.Wildcard {
			items = append(items, ProjectItem{Wildcard: true})
			continue
		}
		alias := it.Alias
		if alias == "" {
			alias = syntheticAlias(it.Expr)
		}
		if alias == "" {
			alias = fmt.Sprintf("__col_%d", i)
		}
		items = append(items, ProjectItem{Expr: it.Expr, Alias: alias})
	}

	var ops []Operator
	isAgg := anyAggregation(ret.Items)
	if isAgg {
		for _, it := range items {
			if it.Wildcard {
				return nil, newCompileError(CodeMalformedAST,
					"RETURN * cannot be combined with an aggregation")
			}
		}
	}

	if orderBy != nil {
		sortItems := lowerOrderItems(orderBy.Items)
		if isAgg {
			// Aggregate resolves aliases itself; Sort runs after it and can
			// reference the aggregate's result aliases directly.
			ops = append(ops, aggregateOperator(items, ret))
			ops = append(ops, Sort{Items: sortItems})
		} else {
			ops = append(ops, Sort{Items: sortItems, ReturnItems: items})
			ops = append(ops, Project{Items: items})
		}
	} else if isAgg {
		ops = append(ops, aggregateOperator(items, ret))
	} else {
		ops = append(ops, Project{Items: items})
	}

	if ret.Distinct {
		ops = append(ops, Distinct{})
	}
	return ops, nil
}

// lowerWith mirrors lowerReturn but produces a single With or Aggregate
// operator that continues the row-context pipeline instead of terminating
// it (spec §4.4.1, §4.7).
func lowerWith(w ast.WithClause, sc *scope) (Operator, error) {
	seen := make(map[string]bool)
	items := make([]ProjectItem, 0, len(w.Items))
	for _, it := range w.Items {
		if it.Wildcard {
			items = append(items, ProjectItem{Wildcard: true})
			continue
		}
		alias := it.Alias
		if alias == "" {
			if _, isVar := it.Expr.(ast.Variable); !isVar {
				return nil, newCompileError(CodeNoExpressionAlias,
					"non-variable WITH item requires an alias")
			}
			alias = syntheticAlias(it.Expr)
		}
		if seen[alias] {
			return nil, newCompileError(CodeColumnNameConflict,
				"duplicate WITH alias %q", alias)
		}
		seen[alias] = true
		if err := sc.bind(alias, sc.kindOfExpr(it.Expr)); err != nil {
			return nil, err
		}
		items = append(items, ProjectItem{Expr: it.Expr, Alias: alias})
	}

	if anyAggregation(w.Items) {
		for _, it := range items {
			if it.Wildcard {
				return nil, newCompileError(CodeMalformedAST,
					"WITH * cannot be combined with an aggregation")
			}
		}
		return Aggregate{
			GroupBy:     nonAggregateItems(w.Items, items),
			Aggregates:  collectAggregates(w.Items, items),
			ReturnItems: items,
		}, nil
	}

	return With{
		Items:    items,
		Distinct: w.Distinct,
		Where:    w.Where,
		Sort:     lowerOrderItems(w.OrderBy),
		Skip:     w.Skip,
		Limit:    w.Limit,
	}, nil
}

// syntheticAlias names an unaliased RETURN/WITH item: the variable name for
// a bare Variable, `var.prop` for a bare PropertyAccess, else "" (lowerReturn
// then substitutes a positional `__col_N` name; lowerWith rejects the item).
func syntheticAlias(e ast.Expression) string {
	switch v := e.(type) {
	case ast.Variable:
		return v.Name
	case ast.PropertyAccess:
		if base, ok := v.Target.(ast.Variable); ok {
			return base.Name + "." + v.Key
		}
	}
	return ""
}

var aggregateFuncs = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true, "COLLECT": true,
}

func anyAggregation(items []ast.ReturnItem) bool {
	for _, it := range items {
		if containsAggregate(it.Expr) {
			return true
		}
	}
	return false
}

func containsAggregate(e ast.Expression) bool {
	switch v := e.(type) {
	case ast.FunctionCall:
		if aggregateFuncs[upperName(v.Name)] {
			return true
		}
		for _, a := range v.Args {
			if containsAggregate(a) {
				return true
			}
		}
	case ast.BinaryOp:
		return containsAggregate(v.Left) || containsAggregate(v.Right)
	case ast.UnaryOp:
		return containsAggregate(v.Operand)
	case ast.PropertyAccess:
		return containsAggregate(v.Target)
	}
	return false
}

func upperName(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}

func aggregateOperator(items []ProjectItem, ret ast.ReturnClause) Operator {
	return Aggregate{
		GroupBy:     nonAggregateItems(ret.Items, items),
		Aggregates:  collectAggregates(ret.Items, items),
		ReturnItems: items,
	}
}

func nonAggregateItems(src []ast.ReturnItem, items []ProjectItem) []ProjectItem {
	var out []ProjectItem
	for i, it := range src {
		if !containsAggregate(it.Expr) {
			out = append(out, items[i])
		}
	}
	return out
}

func collectAggregates(src []ast.ReturnItem, items []ProjectItem) []AggregateExpr {
	var out []AggregateExpr
	for i, it := range src {
		if fc, ok := it.Expr.(ast.FunctionCall); ok && aggregateFuncs[upperName(fc.Name)] {
			var arg ast.Expression
			if len(fc.Args) > 0 {
				arg = fc.Args[0]
			}
			out = append(out, AggregateExpr{
				Func: upperName(fc.Name), Arg: arg, Distinct: fc.Distinct, Alias: items[i].Alias,
			})
		}
	}
	return out
}
