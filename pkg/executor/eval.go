package executor

import (
	"fmt"
	"strings"

	"github.com/corvid-graph/corvid/pkg/ast"
	"github.com/corvid-graph/corvid/pkg/value"
)

// evalContext threads the graph engine (for PropertyAccess on entities and
// subquery execution) and the enclosing executor state (for AggregationHint
// result lookups during Sort-after-Aggregate) through recursive evaluation.
type evalContext struct {
	g *Executor
}

// Evaluate recursively evaluates an AST expression against a row context
// and a graph (spec §4.6).
func Evaluate(e ast.Expression, row Row, ex *Executor) (value.Value, error) {
	ctx := evalContext{g: ex}
	return ctx.eval(e, row)
}

func (c evalContext) eval(e ast.Expression, row Row) (value.Value, error) {
	switch v := e.(type) {
	case ast.Literal:
		return value.FromNative(v.Value)
	case ast.Variable:
		if val, ok := row[v.Name]; ok {
			return val, nil
		}
		if strings.HasPrefix(v.Name, "$") {
			if val, ok := c.g.params[strings.TrimPrefix(v.Name, "$")]; ok {
				return val, nil
			}
			return value.Null, nil
		}
		return value.Null, fmt.Errorf("%w: %s", ErrUnboundVariable, v.Name)
	case ast.PropertyAccess:
		return c.evalPropertyAccess(v, row)
	case ast.BinaryOp:
		return c.evalBinaryOp(v, row)
	case ast.UnaryOp:
		return c.evalUnaryOp(v, row)
	case ast.FunctionCall:
		return c.evalFunctionCall(v, row)
	case ast.CaseExpression:
		return c.evalCase(v, row)
	case ast.ListComprehension:
		return c.evalListComprehension(v, row)
	case ast.QuantifierExpression:
		return c.evalQuantifier(v, row)
	case ast.SubqueryExpression:
		return c.evalSubquery(v, row)
	case ast.ReduceExpression:
		return c.evalReduce(v, row)
	case ast.ShortestPathExpression:
		return c.evalShortestPath(v, row)
	default:
		return value.Null, fmt.Errorf("%w: unrecognized expression node %T", ErrTypeError, e)
	}
}

// evalPropertyAccess: NULL on Null target; NULL on a missing property;
// TypeError on a non-node/non-edge target (spec §4.6).
func (c evalContext) evalPropertyAccess(p ast.PropertyAccess, row Row) (value.Value, error) {
	target, err := c.eval(p.Target, row)
	if err != nil {
		return value.Null, err
	}
	switch target.Kind() {
	case value.KindNull:
		return value.Null, nil
	case value.KindNode:
		n := target.AsNode()
		if n == nil {
			return value.Null, nil
		}
		if resolved, ok := c.g.resolveNode(n.ID); ok {
			n = resolved
		}
		return n.Property(p.Key), nil
	case value.KindEdge:
		edge := target.AsEdge()
		if edge == nil {
			return value.Null, nil
		}
		if resolved, ok := c.g.resolveEdge(edge.ID); ok {
			edge = resolved
		}
		return edge.Property(p.Key), nil
	case value.KindMap:
		m := target.AsMap()
		if val, ok := m[p.Key]; ok {
			return val, nil
		}
		return value.Null, nil
	default:
		return value.Null, fmt.Errorf("%w: property access on %s", ErrTypeError, target.Kind())
	}
}

func (c evalContext) evalUnaryOp(u ast.UnaryOp, row Row) (value.Value, error) {
	operand, err := c.eval(u.Operand, row)
	if err != nil {
		return value.Null, err
	}
	switch u.Op {
	case "-":
		return value.Negate(operand), nil
	case "NOT":
		if operand.IsNull() {
			return value.Null, nil
		}
		if operand.Kind() != value.KindBool {
			return value.Null, fmt.Errorf("%w: NOT on non-boolean", ErrTypeError)
		}
		return value.NewBool(!operand.AsBool()), nil
	case "IS NULL":
		return value.NewBool(operand.IsNull()), nil
	case "IS NOT NULL":
		return value.NewBool(!operand.IsNull()), nil
	default:
		return value.Null, fmt.Errorf("%w: unknown unary operator %q", ErrTypeError, u.Op)
	}
}

func (c evalContext) evalBinaryOp(b ast.BinaryOp, row Row) (value.Value, error) {
	switch b.Op {
	case "AND":
		return c.evalAnd(b, row)
	case "OR":
		return c.evalOr(b, row)
	case "XOR":
		return c.evalXor(b, row)
	}

	left, err := c.eval(b.Left, row)
	if err != nil {
		return value.Null, err
	}
	right, err := c.eval(b.Right, row)
	if err != nil {
		return value.Null, err
	}

	switch b.Op {
	case "+":
		return value.Plus(left, right), nil
	case "-":
		return value.Minus(left, right), nil
	case "*":
		return value.Times(left, right), nil
	case "/":
		return value.Div(left, right), nil
	case "%":
		return value.Mod(left, right), nil
	case "^":
		return value.Pow(left, right), nil
	case "=":
		return value.Equals(left, right), nil
	case "<>":
		eq := value.Equals(left, right)
		if eq.IsNull() {
			return value.Null, nil
		}
		return value.NewBool(!eq.AsBool()), nil
	case "<":
		return value.LessThan(left, right), nil
	case ">":
		return value.LessThan(right, left), nil
	case "<=":
		return notValue(value.LessThan(right, left)), nil
	case ">=":
		return notValue(value.LessThan(left, right)), nil
	case "IN":
		return evalIn(left, right), nil
	case "STARTS WITH":
		return stringPredicate(left, right, strings.HasPrefix), nil
	case "ENDS WITH":
		return stringPredicate(left, right, strings.HasSuffix), nil
	case "CONTAINS":
		return stringPredicate(left, right, strings.Contains), nil
	default:
		return value.Null, fmt.Errorf("%w: unknown binary operator %q", ErrTypeError, b.Op)
	}
}

func notValue(v value.Value) value.Value {
	if v.IsNull() {
		return value.Null
	}
	return value.NewBool(!v.AsBool())
}

// evalAnd/evalOr implement three-valued logic exactly, short-circuiting
// where the result is determined regardless of the other operand (spec
// §4.6): FALSE AND x = FALSE even if x is NULL; TRUE OR x = TRUE even if x
// is NULL.
func (c evalContext) evalAnd(b ast.BinaryOp, row Row) (value.Value, error) {
	left, err := c.eval(b.Left, row)
	if err != nil {
		return value.Null, err
	}
	if left.Kind() == value.KindBool && !left.AsBool() {
		return value.NewBool(false), nil
	}
	right, err := c.eval(b.Right, row)
	if err != nil {
		return value.Null, err
	}
	if right.Kind() == value.KindBool && !right.AsBool() {
		return value.NewBool(false), nil
	}
	if left.IsNull() || right.IsNull() {
		return value.Null, nil
	}
	return value.NewBool(left.AsBool() && right.AsBool()), nil
}

func (c evalContext) evalOr(b ast.BinaryOp, row Row) (value.Value, error) {
	left, err := c.eval(b.Left, row)
	if err != nil {
		return value.Null, err
	}
	if left.Kind() == value.KindBool && left.AsBool() {
		return value.NewBool(true), nil
	}
	right, err := c.eval(b.Right, row)
	if err != nil {
		return value.Null, err
	}
	if right.Kind() == value.KindBool && right.AsBool() {
		return value.NewBool(true), nil
	}
	if left.IsNull() || right.IsNull() {
		return value.Null, nil
	}
	return value.NewBool(left.AsBool() || right.AsBool()), nil
}

func (c evalContext) evalXor(b ast.BinaryOp, row Row) (value.Value, error) {
	left, err := c.eval(b.Left, row)
	if err != nil {
		return value.Null, err
	}
	right, err := c.eval(b.Right, row)
	if err != nil {
		return value.Null, err
	}
	if left.IsNull() || right.IsNull() {
		return value.Null, nil
	}
	return value.NewBool(left.AsBool() != right.AsBool()), nil
}

func evalIn(left, right value.Value) value.Value {
	if right.IsNull() {
		return value.Null
	}
	if right.Kind() != value.KindList {
		return value.Null
	}
	sawNull := false
	for _, item := range right.AsList() {
		eq := value.Equals(left, item)
		if eq.IsNull() {
			sawNull = true
			continue
		}
		if eq.AsBool() {
			return value.NewBool(true)
		}
	}
	if sawNull {
		return value.Null
	}
	return value.NewBool(false)
}

func stringPredicate(left, right value.Value, pred func(s, p string) bool) value.Value {
	if left.IsNull() || right.IsNull() {
		return value.Null
	}
	if left.Kind() != value.KindString || right.Kind() != value.KindString {
		return value.Null
	}
	return value.NewBool(pred(left.AsString(), right.AsString()))
}

func (c evalContext) evalCase(ce ast.CaseExpression, row Row) (value.Value, error) {
	var testVal value.Value
	if ce.Test != nil {
		v, err := c.eval(ce.Test, row)
		if err != nil {
			return value.Null, err
		}
		testVal = v
	}
	for _, alt := range ce.Alternatives {
		var cond value.Value
		var err error
		if ce.Test != nil {
			whenVal, werr := c.eval(alt.When, row)
			if werr != nil {
				return value.Null, werr
			}
			cond = value.Equals(testVal, whenVal)
		} else {
			cond, err = c.eval(alt.When, row)
			if err != nil {
				return value.Null, err
			}
		}
		if !cond.IsNull() && cond.Kind() == value.KindBool && cond.AsBool() {
			return c.eval(alt.Then, row)
		}
	}
	if ce.Else != nil {
		return c.eval(ce.Else, row)
	}
	return value.Null, nil
}

func (c evalContext) evalListComprehension(lc ast.ListComprehension, row Row) (value.Value, error) {
	listVal, err := c.eval(lc.List, row)
	if err != nil {
		return value.Null, err
	}
	if listVal.IsNull() {
		return value.Null, nil
	}
	if listVal.Kind() != value.KindList {
		return value.Null, fmt.Errorf("%w: list comprehension over non-list", ErrTypeError)
	}

	saved, hadSaved := row[lc.Var]
	out := make([]value.Value, 0, len(listVal.AsList()))
	for _, item := range listVal.AsList() {
		row[lc.Var] = item
		if lc.Where != nil {
			cond, err := c.eval(lc.Where, row)
			if err != nil {
				restoreBinding(row, lc.Var, saved, hadSaved)
				return value.Null, err
			}
			if cond.IsNull() || cond.Kind() != value.KindBool || !cond.AsBool() {
				continue
			}
		}
		if lc.Project != nil {
			projected, err := c.eval(lc.Project, row)
			if err != nil {
				restoreBinding(row, lc.Var, saved, hadSaved)
				return value.Null, err
			}
			out = append(out, projected)
		} else {
			out = append(out, item)
		}
	}
	restoreBinding(row, lc.Var, saved, hadSaved)
	return value.NewList(out), nil
}

func (c evalContext) evalQuantifier(q ast.QuantifierExpression, row Row) (value.Value, error) {
	listVal, err := c.eval(q.List, row)
	if err != nil {
		return value.Null, err
	}
	if listVal.IsNull() || listVal.Kind() != value.KindList {
		return value.Null, nil
	}
	items := listVal.AsList()

	saved, hadSaved := row[q.Var]
	defer restoreBinding(row, q.Var, saved, hadSaved)

	switch q.Kind {
	case ast.QuantifierAll:
		for _, item := range items {
			row[q.Var] = item
			cond, err := c.eval(q.Predicate, row)
			if err != nil {
				return value.Null, err
			}
			if cond.IsNull() || cond.Kind() != value.KindBool || !cond.AsBool() {
				return value.NewBool(false), nil
			}
		}
		return value.NewBool(true), nil
	case ast.QuantifierAny:
		for _, item := range items {
			row[q.Var] = item
			cond, err := c.eval(q.Predicate, row)
			if err != nil {
				return value.Null, err
			}
			if !cond.IsNull() && cond.Kind() == value.KindBool && cond.AsBool() {
				return value.NewBool(true), nil
			}
		}
		return value.NewBool(false), nil
	case ast.QuantifierNone:
		for _, item := range items {
			row[q.Var] = item
			cond, err := c.eval(q.Predicate, row)
			if err != nil {
				return value.Null, err
			}
			if !cond.IsNull() && cond.Kind() == value.KindBool && cond.AsBool() {
				return value.NewBool(false), nil
			}
		}
		return value.NewBool(true), nil
	case ast.QuantifierSingle:
		count := 0
		for _, item := range items {
			row[q.Var] = item
			cond, err := c.eval(q.Predicate, row)
			if err != nil {
				return value.Null, err
			}
			if !cond.IsNull() && cond.Kind() == value.KindBool && cond.AsBool() {
				count++
			}
		}
		return value.NewBool(count == 1), nil
	default:
		return value.Null, fmt.Errorf("%w: unknown quantifier", ErrTypeError)
	}
}

// evalReduce implements reduce(acc = init, x IN list | expr): expr is
// evaluated once per element with both the accumulator and element binding
// in scope, and its result becomes the next accumulator value (spec §4.6
// "REDUCE as list operations").
func (c evalContext) evalReduce(r ast.ReduceExpression, row Row) (value.Value, error) {
	acc, err := c.eval(r.Init, row)
	if err != nil {
		return value.Null, err
	}
	listVal, err := c.eval(r.List, row)
	if err != nil {
		return value.Null, err
	}
	if listVal.IsNull() {
		return acc, nil
	}
	if listVal.Kind() != value.KindList {
		return value.Null, fmt.Errorf("%w: reduce over non-list", ErrTypeError)
	}

	savedAcc, hadAcc := row[r.Accumulator]
	savedVar, hadVar := row[r.Var]
	defer restoreBinding(row, r.Accumulator, savedAcc, hadAcc)
	defer restoreBinding(row, r.Var, savedVar, hadVar)

	for _, item := range listVal.AsList() {
		row[r.Accumulator] = acc
		row[r.Var] = item
		next, err := c.eval(r.Expr, row)
		if err != nil {
			return value.Null, err
		}
		acc = next
	}
	return acc, nil
}

func restoreBinding(row Row, name string, saved value.Value, had bool) {
	if had {
		row[name] = saved
	} else {
		delete(row, name)
	}
}

// evalSubquery executes the nested pipeline once for the current row and
// returns a boolean (EXISTS — true iff it yields at least one row) or an
// integer count (COUNT), per spec §4.7.
func (c evalContext) evalSubquery(sq ast.SubqueryExpression, row Row) (value.Value, error) {
	rows, err := c.g.runSubquery(sq.Clauses, row)
	if err != nil {
		return value.Null, err
	}
	switch sq.Kind {
	case ast.SubqueryExists:
		return value.NewBool(len(rows) > 0), nil
	case ast.SubqueryCount:
		return value.NewInt(int64(len(rows))), nil
	default:
		return value.Null, fmt.Errorf("%w: unknown subquery kind", ErrTypeError)
	}
}
