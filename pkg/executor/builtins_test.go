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

func call(name string, args ...ast.Expression) ast.Expression {
	return ast.FunctionCall{Name: name, Args: args}
}

func listOf(items ...ast.Expression) ast.Expression {
	return ast.FunctionCall{Name: "__list__", Args: items}
}

func ints(ns ...int64) []value.Value {
	out := make([]value.Value, len(ns))
	for i, n := range ns {
		out[i] = value.NewInt(n)
	}
	return out
}

func TestListFunctions(t *testing.T) {
	oneTwoThree := listOf(lit(int64(1)), lit(int64(2)), lit(int64(3)))

	tests := []struct {
		name string
		expr ast.Expression
		want value.Value
	}{
		{"size of list", call("size", oneTwoThree), value.NewInt(3)},
		{"size of string", call("size", lit("héllo")), value.NewInt(5)},
		{"length alias", call("length", oneTwoThree), value.NewInt(3)},
		{"head", call("head", oneTwoThree), value.NewInt(1)},
		{"head of empty", call("head", listOf()), value.Null},
		{"tail", call("tail", oneTwoThree), value.NewList(ints(2, 3))},
		{"last", call("last", oneTwoThree), value.NewInt(3)},
		{"reverse list", call("reverse", oneTwoThree), value.NewList(ints(3, 2, 1))},
		{"reverse string", call("reverse", lit("abc")), value.NewString("cba")},
		{"range", call("range", lit(int64(1)), lit(int64(5)), lit(int64(2))), value.NewList(ints(1, 3, 5))},
		{"range descending", call("range", lit(int64(3)), lit(int64(1)), lit(int64(-1))), value.NewList(ints(3, 2, 1))},
		{"coalesce", call("coalesce", lit(nil), lit(int64(7)), lit(int64(8))), value.NewInt(7)},
		{"coalesce all null", call("coalesce", lit(nil), lit(nil)), value.Null},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evalExpr(t, tt.expr, executor.Row{}))
		})
	}
}

func TestRangeStepZeroErrors(t *testing.T) {
	ex := executor.New(graph.NewMemoryEngine(), nil)
	_, err := executor.Evaluate(call("range", lit(int64(1)), lit(int64(5)), lit(int64(0))), executor.Row{}, ex)
	assert.ErrorIs(t, err, executor.ErrInvalidRangeStep)
}

func TestStringFunctions(t *testing.T) {
	tests := []struct {
		name string
		expr ast.Expression
		want value.Value
	}{
		{"substring", call("substring", lit("corvid"), lit(int64(1)), lit(int64(3))), value.NewString("orv")},
		{"split", call("split", lit("a,b,c"), lit(",")), value.NewList([]value.Value{
			value.NewString("a"), value.NewString("b"), value.NewString("c"),
		})},
		{"replace", call("replace", lit("corvid"), lit("vid"), lit("vus")), value.NewString("corvus")},
		{"left", call("left", lit("corvid"), lit(int64(3))), value.NewString("cor")},
		{"right", call("right", lit("corvid"), lit(int64(3))), value.NewString("vid")},
		{"upper", call("upper", lit("crow")), value.NewString("CROW")},
		{"lower", call("lower", lit("CROW")), value.NewString("crow")},
		{"trim", call("trim", lit("  crow  ")), value.NewString("crow")},
		{"ltrim", call("ltrim", lit("  crow")), value.NewString("crow")},
		{"rtrim", call("rtrim", lit("crow  ")), value.NewString("crow")},
		{"toString of int", call("toString", lit(int64(42))), value.NewString("42")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evalExpr(t, tt.expr, executor.Row{}))
		})
	}
}

func TestConversionsReturnNullOnUnparseable(t *testing.T) {
	assert.Equal(t, value.NewInt(42), evalExpr(t, call("toInteger", lit("42")), executor.Row{}))
	assert.True(t, evalExpr(t, call("toInteger", lit("not a number")), executor.Row{}).IsNull())
	assert.Equal(t, value.NewFloat(2.5), evalExpr(t, call("toFloat", lit("2.5")), executor.Row{}))
	assert.True(t, evalExpr(t, call("toFloat", lit("nope")), executor.Row{}).IsNull())
	assert.Equal(t, value.NewBool(true), evalExpr(t, call("toBoolean", lit("true")), executor.Row{}))
	assert.True(t, evalExpr(t, call("toBoolean", lit("maybe")), executor.Row{}).IsNull())
}

func TestEntityFunctions(t *testing.T) {
	g := graph.NewMemoryEngine()
	a := &value.Node{ID: "a", Labels: []string{"Person"}, Properties: map[string]value.Value{"name": value.NewString("Alice")}}
	b := &value.Node{ID: "b", Labels: []string{"Person"}}
	require.NoError(t, g.AddNode(a))
	require.NoError(t, g.AddNode(b))
	e := &value.Edge{ID: "e1", StartNode: "a", EndNode: "b", Type: "KNOWS"}
	require.NoError(t, g.AddEdge(e))

	ex := executor.New(g, nil)
	row := executor.Row{"n": value.NewNode(a), "r": value.NewEdge(e)}

	v, err := executor.Evaluate(call("labels", ast.Variable{Name: "n"}), row, ex)
	require.NoError(t, err)
	assert.Equal(t, value.NewList([]value.Value{value.NewString("Person")}), v)

	v, err = executor.Evaluate(call("type", ast.Variable{Name: "r"}), row, ex)
	require.NoError(t, err)
	assert.Equal(t, value.NewString("KNOWS"), v)

	v, err = executor.Evaluate(call("keys", ast.Variable{Name: "n"}), row, ex)
	require.NoError(t, err)
	assert.Equal(t, value.NewList([]value.Value{value.NewString("name")}), v)

	v, err = executor.Evaluate(call("id", ast.Variable{Name: "n"}), row, ex)
	require.NoError(t, err)
	assert.Equal(t, value.NewString("a"), v)
}

func TestTemporalConstructors(t *testing.T) {
	d := evalExpr(t, call("date", lit("2024-02-29")), executor.Row{})
	require.Equal(t, value.KindDate, d.Kind())
	assert.Equal(t, 2024, d.AsDate().Year())
	assert.Equal(t, 2, d.AsDate().Month())
	assert.Equal(t, 29, d.AsDate().Day())

	dt := evalExpr(t, call("datetime", lit("2024-06-15T12:30:00Z")), executor.Row{})
	require.Equal(t, value.KindDateTime, dt.Kind())
	assert.Equal(t, 12, dt.AsDateTime().Time().Hour())

	dur := evalExpr(t, call("duration", lit("P1Y2M3DT4H")), executor.Row{})
	require.Equal(t, value.KindDuration, dur.Kind())
	assert.Equal(t, int64(14), dur.AsDuration().Months)
	assert.Equal(t, int64(3), dur.AsDuration().Days)
	assert.Equal(t, int64(4*3600), dur.AsDuration().Seconds)
}

func TestTemporalArithmetic(t *testing.T) {
	// Jan-31 + 1 month clamps to Feb-29 in a leap year.
	plus := binop("+", call("date", lit("2024-01-31")), call("duration", lit("P1M")))
	got := evalExpr(t, plus, executor.Row{})
	require.Equal(t, value.KindDate, got.Kind())
	assert.Equal(t, "2024-02-29", got.AsDate().String())

	// temporal - temporal yields a duration.
	diff := binop("-", call("date", lit("2024-03-01")), call("date", lit("2024-02-28")))
	gotDiff := evalExpr(t, diff, executor.Row{})
	require.Equal(t, value.KindDuration, gotDiff.Kind())
	assert.Equal(t, int64(2), gotDiff.AsDuration().InDays())
}

func TestDurationBetween(t *testing.T) {
	expr := call("duration.between", call("date", lit("2024-01-01")), call("date", lit("2024-03-01")))
	got := evalExpr(t, expr, executor.Row{})
	require.Equal(t, value.KindDuration, got.Kind())
	assert.Equal(t, int64(2), got.AsDuration().InMonths())
}

func TestTruncate(t *testing.T) {
	expr := call("datetime.truncate", lit("month"), call("datetime", lit("2024-06-15T12:30:45Z")))
	got := evalExpr(t, expr, executor.Row{})
	require.Equal(t, value.KindDateTime, got.Kind())
	assert.Equal(t, "2024-06-01T00:00:00Z", got.AsDateTime().String())

	ex := executor.New(graph.NewMemoryEngine(), nil)
	_, err := executor.Evaluate(
		call("datetime.truncate", lit("fortnight"), call("datetime", lit("2024-06-15T12:30:45Z"))),
		executor.Row{}, ex)
	assert.ErrorIs(t, err, executor.ErrInvalidTemporalUnit)
}

func TestPointAndDistance(t *testing.T) {
	cart := func(x, y float64) ast.Expression {
		return call("point", ast.FunctionCall{Name: "__map__", Args: []ast.Expression{
			lit("x"), lit(x), lit("y"), lit(y),
		}})
	}
	d := evalExpr(t, call("distance", cart(0, 0), cart(3, 4)), executor.Row{})
	require.Equal(t, value.KindDistance, d.Kind())
	assert.InDelta(t, 5.0, d.AsDistanceMeters(), 1e-9)
}

func TestGeographicPointRangeChecked(t *testing.T) {
	ex := executor.New(graph.NewMemoryEngine(), nil)
	outOfRange := call("point", ast.FunctionCall{Name: "__map__", Args: []ast.Expression{
		lit("latitude"), lit(95.0), lit("longitude"), lit(10.0),
	}})
	_, err := executor.Evaluate(outOfRange, executor.Row{}, ex)
	assert.Error(t, err, "explicit point() with latitude out of range must fail")
}

func TestUnknownFunctionErrors(t *testing.T) {
	ex := executor.New(graph.NewMemoryEngine(), nil)
	_, err := executor.Evaluate(call("apoc.whatever", lit(int64(1))), executor.Row{}, ex)
	assert.ErrorIs(t, err, executor.ErrUnknownFunction)
}

func TestTruncateComponentOverrides(t *testing.T) {
	overrides := func(pairs ...ast.Expression) ast.Expression {
		return ast.FunctionCall{Name: "__map__", Args: pairs}
	}

	d := evalExpr(t, call("date.truncate", lit("month"), call("date", lit("2020-06-15")),
		overrides(lit("day"), lit(int64(5)))), executor.Row{})
	require.Equal(t, value.KindDate, d.Kind())
	assert.Equal(t, "2020-06-05", d.AsDate().String())

	dt := evalExpr(t, call("datetime.truncate", lit("day"), call("datetime", lit("2020-06-15T12:30:00Z")),
		overrides(lit("hour"), lit(int64(9)))), executor.Row{})
	require.Equal(t, value.KindDateTime, dt.Kind())
	assert.Equal(t, "2020-06-15T09:00:00Z", dt.AsDateTime().String())

	tm := evalExpr(t, call("time.truncate", lit("hour"), call("time", lit("14:30:45")),
		overrides(lit("minute"), lit(int64(15)))), executor.Row{})
	require.Equal(t, value.KindTime, tm.Kind())
	assert.Equal(t, "14:15:00", tm.AsTime().String())
}
