package executor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-graph/corvid/pkg/ast"
	"github.com/corvid-graph/corvid/pkg/executor"
	"github.com/corvid-graph/corvid/pkg/graph"
	"github.com/corvid-graph/corvid/pkg/value"
)

func evalExpr(t *testing.T, e ast.Expression, row executor.Row) value.Value {
	t.Helper()
	ex := executor.New(graph.NewMemoryEngine(), nil)
	v, err := executor.Evaluate(e, row, ex)
	require.NoError(t, err)
	return v
}

func lit(v any) ast.Expression { return ast.Literal{Value: v} }

func binop(op string, l, r ast.Expression) ast.Expression {
	return ast.BinaryOp{Op: op, Left: l, Right: r}
}

func TestThreeValuedLogicTable(t *testing.T) {
	null := lit(nil)
	tr := lit(true)
	fa := lit(false)

	tests := []struct {
		name string
		expr ast.Expression
		want value.Value
	}{
		{"null AND true", binop("AND", null, tr), value.Null},
		{"null AND false", binop("AND", null, fa), value.NewBool(false)},
		{"null AND null", binop("AND", null, null), value.Null},
		{"true AND true", binop("AND", tr, tr), value.NewBool(true)},
		{"null OR true", binop("OR", null, tr), value.NewBool(true)},
		{"null OR false", binop("OR", null, fa), value.Null},
		{"null OR null", binop("OR", null, null), value.Null},
		{"false OR false", binop("OR", fa, fa), value.NewBool(false)},
		{"NOT null", ast.UnaryOp{Op: "NOT", Operand: null}, value.Null},
		{"NOT true", ast.UnaryOp{Op: "NOT", Operand: tr}, value.NewBool(false)},
		{"null XOR true", binop("XOR", null, tr), value.Null},
		{"true XOR false", binop("XOR", tr, fa), value.NewBool(true)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evalExpr(t, tt.expr, executor.Row{}))
		})
	}
}

func TestNullPropagationThroughArithmetic(t *testing.T) {
	null := lit(nil)
	for _, op := range []string{"+", "-", "*", "/", "%", "^", "=", "<", ">", "<=", ">="} {
		v := evalExpr(t, binop(op, null, lit(int64(1))), executor.Row{})
		assert.True(t, v.IsNull(), "null %s 1 should be null", op)
	}
}

func TestMixedNumericArithmetic(t *testing.T) {
	tests := []struct {
		name string
		expr ast.Expression
		want value.Value
	}{
		{"int plus int", binop("+", lit(int64(1)), lit(int64(2))), value.NewInt(3)},
		{"int plus float", binop("+", lit(int64(1)), lit(2.5)), value.NewFloat(3.5)},
		{"float times int", binop("*", lit(0.5), lit(int64(4))), value.NewFloat(2)},
		{"int div int truncates", binop("/", lit(int64(7)), lit(int64(2))), value.NewInt(3)},
		{"division by zero", binop("/", lit(int64(1)), lit(int64(0))), value.Null},
		{"modulo by zero", binop("%", lit(int64(1)), lit(int64(0))), value.Null},
		{"int power", binop("^", lit(int64(2)), lit(int64(10))), value.NewInt(1024)},
		{"negative exponent returns float", binop("^", lit(int64(2)), lit(int64(-1))), value.NewFloat(0.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evalExpr(t, tt.expr, executor.Row{}))
		})
	}
}

func TestStringConcatenation(t *testing.T) {
	got := evalExpr(t, binop("+", lit("ab"), lit("cd")), executor.Row{})
	assert.Equal(t, value.NewString("abcd"), got)

	// Mixed string/scalar + stringifies the scalar.
	got = evalExpr(t, binop("+", lit("n="), lit(int64(7))), executor.Row{})
	assert.Equal(t, value.NewString("n=7"), got)
}

func TestPropertyAccess(t *testing.T) {
	g := graph.NewMemoryEngine()
	n := &value.Node{ID: "1", Labels: []string{"Person"}, Properties: map[string]value.Value{
		"name": value.NewString("Alice"),
	}}
	require.NoError(t, g.AddNode(n))
	ex := executor.New(g, nil)
	row := executor.Row{"p": value.NewNode(n), "s": value.NewInt(1), "x": value.Null}

	v, err := executor.Evaluate(ast.PropertyAccess{Target: ast.Variable{Name: "p"}, Key: "name"}, row, ex)
	require.NoError(t, err)
	assert.Equal(t, value.NewString("Alice"), v)

	// Missing property is NULL, not an error.
	v, err = executor.Evaluate(ast.PropertyAccess{Target: ast.Variable{Name: "p"}, Key: "missing"}, row, ex)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	// NULL target is NULL.
	v, err = executor.Evaluate(ast.PropertyAccess{Target: ast.Variable{Name: "x"}, Key: "name"}, row, ex)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	// Scalar target is a type error.
	_, err = executor.Evaluate(ast.PropertyAccess{Target: ast.Variable{Name: "s"}, Key: "name"}, row, ex)
	assert.ErrorIs(t, err, executor.ErrTypeError)
}

func TestUnboundVariableErrors(t *testing.T) {
	ex := executor.New(graph.NewMemoryEngine(), nil)
	_, err := executor.Evaluate(ast.Variable{Name: "nope"}, executor.Row{}, ex)
	assert.ErrorIs(t, err, executor.ErrUnboundVariable)
}

func TestCaseExpression(t *testing.T) {
	// CASE WHEN x > 10 THEN 'big' WHEN x > 5 THEN 'mid' ELSE 'small' END
	caseExpr := func(els ast.Expression) ast.CaseExpression {
		return ast.CaseExpression{
			Alternatives: []ast.CaseAlternative{
				{When: binop(">", ast.Variable{Name: "x"}, lit(int64(10))), Then: lit("big")},
				{When: binop(">", ast.Variable{Name: "x"}, lit(int64(5))), Then: lit("mid")},
			},
			Else: els,
		}
	}

	assert.Equal(t, value.NewString("big"),
		evalExpr(t, caseExpr(lit("small")), executor.Row{"x": value.NewInt(11)}))
	assert.Equal(t, value.NewString("mid"),
		evalExpr(t, caseExpr(lit("small")), executor.Row{"x": value.NewInt(7)}))
	assert.Equal(t, value.NewString("small"),
		evalExpr(t, caseExpr(lit("small")), executor.Row{"x": value.NewInt(1)}))

	// A NULL WHEN condition is not truthy; with no ELSE the result is NULL.
	assert.True(t, evalExpr(t, caseExpr(nil), executor.Row{"x": value.Null}).IsNull())
}

func TestListComprehensionShadowsAndRestores(t *testing.T) {
	// [x IN [1,2,3] WHERE x > 1 | x * 10] with an outer binding x=99.
	comp := ast.ListComprehension{
		Var:     "x",
		List:    ast.FunctionCall{Name: "__list__", Args: []ast.Expression{lit(int64(1)), lit(int64(2)), lit(int64(3))}},
		Where:   binop(">", ast.Variable{Name: "x"}, lit(int64(1))),
		Project: binop("*", ast.Variable{Name: "x"}, lit(int64(10))),
	}
	row := executor.Row{"x": value.NewInt(99)}
	got := evalExpr(t, comp, row)
	assert.Equal(t, value.NewList([]value.Value{value.NewInt(20), value.NewInt(30)}), got)

	// The outer binding is restored after the comprehension exits.
	assert.Equal(t, value.NewInt(99), row["x"])
}

func TestQuantifierExpressions(t *testing.T) {
	list := ast.FunctionCall{Name: "__list__", Args: []ast.Expression{
		lit(int64(2)), lit(int64(4)), lit(int64(6)),
	}}
	even := binop("=", binop("%", ast.Variable{Name: "n"}, lit(int64(2))), lit(int64(0)))
	big := binop(">", ast.Variable{Name: "n"}, lit(int64(5)))

	q := func(kind ast.QuantifierKind, pred ast.Expression) ast.Expression {
		return ast.QuantifierExpression{Kind: kind, Var: "n", List: list, Predicate: pred}
	}

	assert.Equal(t, value.NewBool(true), evalExpr(t, q(ast.QuantifierAll, even), executor.Row{}))
	assert.Equal(t, value.NewBool(false), evalExpr(t, q(ast.QuantifierAll, big), executor.Row{}))
	assert.Equal(t, value.NewBool(true), evalExpr(t, q(ast.QuantifierAny, big), executor.Row{}))
	assert.Equal(t, value.NewBool(false), evalExpr(t, q(ast.QuantifierNone, big), executor.Row{}))
	assert.Equal(t, value.NewBool(true), evalExpr(t, q(ast.QuantifierSingle, big), executor.Row{}))
}

func TestInOperator(t *testing.T) {
	list := ast.FunctionCall{Name: "__list__", Args: []ast.Expression{
		lit(int64(1)), lit(int64(2)),
	}}
	assert.Equal(t, value.NewBool(true), evalExpr(t, binop("IN", lit(int64(2)), list), executor.Row{}))
	assert.Equal(t, value.NewBool(false), evalExpr(t, binop("IN", lit(int64(5)), list), executor.Row{}))
	assert.True(t, evalExpr(t, binop("IN", lit(nil), list), executor.Row{}).IsNull())
}

func TestStringPredicates(t *testing.T) {
	tests := []struct {
		op   string
		l, r string
		want bool
	}{
		{"STARTS WITH", "corvid", "cor", true},
		{"STARTS WITH", "corvid", "vid", false},
		{"ENDS WITH", "corvid", "vid", true},
		{"CONTAINS", "corvid", "rvi", true},
		{"CONTAINS", "corvid", "xyz", false},
	}
	for _, tt := range tests {
		got := evalExpr(t, binop(tt.op, lit(tt.l), lit(tt.r)), executor.Row{})
		assert.Equal(t, value.NewBool(tt.want), got, "%q %s %q", tt.l, tt.op, tt.r)
	}
}
