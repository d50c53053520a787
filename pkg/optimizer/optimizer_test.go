package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-graph/corvid/pkg/ast"
	"github.com/corvid-graph/corvid/pkg/graph"
	"github.com/corvid-graph/corvid/pkg/planner"
)

func TestFilterPushdown_MigratesSingleVarConjunctIntoScan(t *testing.T) {
	ops := []planner.Operator{
		planner.ScanNodes{Var: "n", Labels: []string{"Person"}},
		planner.Filter{Predicate: ast.BinaryOp{
			Op: "=", Left: ast.PropertyAccess{Target: ast.Variable{Name: "n"}, Key: "name"},
			Right: ast.Literal{Value: "Alice"},
		}},
		planner.Project{},
	}
	out := filterPushdown(ops)
	require.Len(t, out, 2)
	scan, ok := out[0].(planner.ScanNodes)
	require.True(t, ok)
	assert.NotNil(t, scan.Predicate)
}

func TestFilterPushdown_PushesConjunctMatchingExpandVars(t *testing.T) {
	ops := []planner.Operator{
		planner.ScanNodes{Var: "a"},
		planner.ExpandEdges{SrcVar: "a", DstVar: "b"},
		planner.Filter{Predicate: ast.BinaryOp{
			Op: "=", Left: ast.Variable{Name: "a"}, Right: ast.Variable{Name: "b"},
		}},
	}
	out := filterPushdown(ops)
	require.Len(t, out, 2, "a conjunct over exactly the expand's variables folds into it")
	expand, ok := out[1].(planner.ExpandEdges)
	require.True(t, ok)
	assert.NotNil(t, expand.Predicate)
}

func TestFilterPushdown_LeavesResidueWhenNoOperatorMatches(t *testing.T) {
	ops := []planner.Operator{
		planner.ScanNodes{Var: "a"},
		planner.ExpandEdges{SrcVar: "a", EdgeVar: "r", DstVar: "b"},
		planner.Filter{Predicate: ast.BinaryOp{
			Op: "=", Left: ast.Variable{Name: "a"}, Right: ast.Variable{Name: "b"},
		}},
	}
	out := filterPushdown(ops)
	var sawFilter bool
	for _, op := range out {
		if _, ok := op.(planner.Filter); ok {
			sawFilter = true
		}
	}
	assert.True(t, sawFilter, "free variables {a,b} match no operator's bound set exactly, so the Filter stays")
}

func TestFilterPushdown_NeverCrossesWithBoundary(t *testing.T) {
	ops := []planner.Operator{
		planner.ScanNodes{Var: "n"},
		planner.With{Items: []planner.ProjectItem{{Expr: ast.Variable{Name: "n"}, Alias: "n"}}},
		planner.Filter{Predicate: ast.BinaryOp{
			Op: "=", Left: ast.PropertyAccess{Target: ast.Variable{Name: "n"}, Key: "x"}, Right: ast.Literal{Value: int64(1)},
		}},
	}
	out := filterPushdown(ops)
	scan := out[0].(planner.ScanNodes)
	assert.Nil(t, scan.Predicate, "pushdown must not reach back across a With boundary")
}

func TestRedundantTraversalElimination_DropsDuplicateScan(t *testing.T) {
	ops := []planner.Operator{
		planner.ScanNodes{Var: "n", Labels: []string{"Person"}},
		planner.ScanNodes{Var: "n", Labels: []string{"Person"}},
	}
	out := eliminateRedundantTraversals(ops)
	assert.Len(t, out, 1)
}

func TestAggregatePushdown_FoldsCountIntoExpandHint(t *testing.T) {
	ops := []planner.Operator{
		planner.ScanNodes{Var: "a"},
		planner.ExpandEdges{SrcVar: "a", DstVar: "b"},
		planner.Aggregate{
			GroupBy:    []planner.ProjectItem{{Expr: ast.Variable{Name: "a"}, Alias: "a"}},
			Aggregates: []planner.AggregateExpr{{Func: "COUNT", Alias: "c"}},
		},
	}
	out := aggregatePushdown(ops)
	require.Len(t, out, 2)
	expand, ok := out[1].(planner.ExpandEdges)
	require.True(t, ok)
	require.NotNil(t, expand.AggHint)
	assert.Equal(t, "COUNT", expand.AggHint.Func)
}

func TestAggregatePushdown_SkipsDistinctAggregate(t *testing.T) {
	ops := []planner.Operator{
		planner.ExpandEdges{SrcVar: "a", DstVar: "b"},
		planner.Aggregate{
			GroupBy:    []planner.ProjectItem{{Expr: ast.Variable{Name: "a"}, Alias: "a"}},
			Aggregates: []planner.AggregateExpr{{Func: "COUNT", Alias: "c", Distinct: true}},
		},
	}
	out := aggregatePushdown(ops)
	assert.Len(t, out, 2, "a DISTINCT aggregate must not be pushed into the expand")
}

func TestJoinReorder_RespectsDependencyConstraint(t *testing.T) {
	stats := &graph.Statistics{
		TotalNodes:        100,
		NodeCountsByLabel: map[string]int64{"Rare": 2, "Common": 98},
		AvgDegreeByType:   map[string]float64{"KNOWS": 5},
	}
	ops := []planner.Operator{
		planner.ScanNodes{Var: "a", Labels: []string{"Common"}},
		planner.ExpandEdges{SrcVar: "a", DstVar: "b", Types: []string{"KNOWS"}},
	}
	out := joinReorder(ops, stats, 1000)
	require.Len(t, out, 2)
	scan, ok := out[0].(planner.ScanNodes)
	require.True(t, ok, "the expand's source must still be scanned first regardless of cost ordering")
	assert.Equal(t, "a", scan.Var)
}

func TestPredicateReorder_EqualityBeforeRange(t *testing.T) {
	pred := ast.BinaryOp{
		Op:   "AND",
		Left: ast.BinaryOp{Op: ">", Left: ast.Variable{Name: "n"}, Right: ast.Literal{Value: int64(1)}},
		Right: ast.BinaryOp{
			Op: "=", Left: ast.PropertyAccess{Target: ast.Variable{Name: "n"}, Key: "id"}, Right: ast.Literal{Value: int64(1)},
		},
	}
	ops := []planner.Operator{planner.Filter{Predicate: pred}}
	out := predicateReorder(ops, nil)
	filt := out[0].(planner.Filter)
	top, ok := filt.Predicate.(ast.BinaryOp)
	require.True(t, ok)
	left, ok := top.Left.(ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, "=", left.Op, "the equality conjunct should sort before the range comparison")
}

func TestOptimize_ComposesAllPassesWithoutPanicking(t *testing.T) {
	stats := &graph.Statistics{TotalNodes: 10, NodeCountsByLabel: map[string]int64{"Person": 10}}
	ops := []planner.Operator{
		planner.ScanNodes{Var: "n", Labels: []string{"Person"}},
		planner.Filter{Predicate: ast.BinaryOp{
			Op: "=", Left: ast.PropertyAccess{Target: ast.Variable{Name: "n"}, Key: "x"}, Right: ast.Literal{Value: int64(1)},
		}},
		planner.Project{Items: []planner.ProjectItem{{Expr: ast.Variable{Name: "n"}, Alias: "n"}}},
	}
	out := Optimize(ops, stats, DefaultConfig())
	assert.NotEmpty(t, out)
}
