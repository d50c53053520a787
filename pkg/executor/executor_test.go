package executor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-graph/corvid/pkg/cparse"
	"github.com/corvid-graph/corvid/pkg/executor"
	"github.com/corvid-graph/corvid/pkg/graph"
	"github.com/corvid-graph/corvid/pkg/planner"
	"github.com/corvid-graph/corvid/pkg/value"
)

// run plans and executes a query against g, without optimizer rewrites —
// these tests pin the executor's semantics against the planner's raw
// pipeline; optimizer equivalence is covered in pkg/engine's tests.
func run(t *testing.T, g graph.Engine, src string) []executor.ResultRow {
	t.Helper()
	q, err := cparse.Parse(src)
	require.NoError(t, err, "parse: %s", src)
	ops, err := planner.Plan(q)
	require.NoError(t, err, "plan: %s", src)
	rows, err := executor.New(g, nil).Execute(ops)
	require.NoError(t, err, "execute: %s", src)
	return rows
}

func mustRun(t *testing.T, g graph.Engine, statements ...string) {
	t.Helper()
	for _, s := range statements {
		run(t, g, s)
	}
}

func seedPeople(t *testing.T) graph.Engine {
	t.Helper()
	g := graph.NewMemoryEngine()
	mustRun(t, g,
		`CREATE (:Person {name: 'Alice', age: 30})`,
		`CREATE (:Person {name: 'Bob', age: 25})`,
		`CREATE (:Person {name: 'Charlie', age: 70})`,
	)
	return g
}

func names(rows []executor.ResultRow, col string) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Values[col].AsString())
	}
	return out
}

func TestScanWithLabelAndPredicate(t *testing.T) {
	g := seedPeople(t)
	rows := run(t, g, `MATCH (p:Person) WHERE p.age >= 30 RETURN p.name ORDER BY p.name`)
	assert.Equal(t, []string{"Alice", "Charlie"}, names(rows, "p.name"))
}

func TestScanAllWhenNoLabel(t *testing.T) {
	g := seedPeople(t)
	mustRun(t, g, `CREATE (:Animal {name: 'Rook'})`)
	rows := run(t, g, `MATCH (n) RETURN n.name ORDER BY n.name`)
	assert.Equal(t, []string{"Alice", "Bob", "Charlie", "Rook"}, names(rows, "n.name"))
}

func TestExpandDirections(t *testing.T) {
	g := graph.NewMemoryEngine()
	mustRun(t, g,
		`CREATE (:Person {name: 'A'})`,
		`CREATE (:Person {name: 'B'})`,
		`MATCH (a:Person {name: 'A'}), (b:Person {name: 'B'}) CREATE (a)-[:KNOWS]->(b)`,
	)

	out := run(t, g, `MATCH (a:Person {name: 'A'})-[:KNOWS]->(b) RETURN b.name`)
	assert.Equal(t, []string{"B"}, names(out, "b.name"))

	in := run(t, g, `MATCH (b:Person {name: 'B'})<-[:KNOWS]-(a) RETURN a.name`)
	assert.Equal(t, []string{"A"}, names(in, "a.name"))

	both := run(t, g, `MATCH (x:Person)-[:KNOWS]-(y) RETURN x.name ORDER BY x.name`)
	assert.Equal(t, []string{"A", "B"}, names(both, "x.name"))

	wrongType := run(t, g, `MATCH (a:Person {name: 'A'})-[:LIKES]->(b) RETURN b.name`)
	assert.Empty(t, wrongType)
}

func TestMultiHopChain(t *testing.T) {
	g := graph.NewMemoryEngine()
	mustRun(t, g,
		`CREATE (:Person {name: 'A'})`,
		`CREATE (:Person {name: 'B'})`,
		`CREATE (:Person {name: 'C'})`,
		`MATCH (a:Person {name: 'A'}), (b:Person {name: 'B'}) CREATE (a)-[:KNOWS]->(b)`,
		`MATCH (b:Person {name: 'B'}), (c:Person {name: 'C'}) CREATE (b)-[:KNOWS]->(c)`,
	)
	rows := run(t, g, `MATCH (a:Person {name: 'A'})-[:KNOWS]->(b)-[:KNOWS]->(c) RETURN c.name`)
	assert.Equal(t, []string{"C"}, names(rows, "c.name"))
}

func TestVariableLengthBindsEdgeList(t *testing.T) {
	g := graph.NewMemoryEngine()
	mustRun(t, g,
		`CREATE (:Person {name: 'A'})`,
		`CREATE (:Person {name: 'B'})`,
		`CREATE (:Person {name: 'C'})`,
		`MATCH (a:Person {name: 'A'}), (b:Person {name: 'B'}) CREATE (a)-[:R]->(b)`,
		`MATCH (b:Person {name: 'B'}), (c:Person {name: 'C'}) CREATE (b)-[:R]->(c)`,
	)

	rows := run(t, g, `MATCH (a:Person {name: 'A'})-[rs:R*1..2]->(b) RETURN b.name, size(rs) AS hops ORDER BY hops`)
	require.Len(t, rows, 2)
	assert.Equal(t, "B", rows[0].Values["b.name"].AsString())
	assert.Equal(t, value.NewInt(1), rows[0].Values["hops"])
	assert.Equal(t, "C", rows[1].Values["b.name"].AsString())
	assert.Equal(t, value.NewInt(2), rows[1].Values["hops"])
}

func TestVariableLengthMinHopsExcludesShorter(t *testing.T) {
	g := graph.NewMemoryEngine()
	mustRun(t, g,
		`CREATE (:Person {name: 'A'})`,
		`CREATE (:Person {name: 'B'})`,
		`CREATE (:Person {name: 'C'})`,
		`MATCH (a:Person {name: 'A'}), (b:Person {name: 'B'}) CREATE (a)-[:R]->(b)`,
		`MATCH (b:Person {name: 'B'}), (c:Person {name: 'C'}) CREATE (b)-[:R]->(c)`,
	)
	rows := run(t, g, `MATCH (a:Person {name: 'A'})-[:R*2..2]->(b) RETURN b.name`)
	assert.Equal(t, []string{"C"}, names(rows, "b.name"))
}

func TestPathVariableAndPathFunctions(t *testing.T) {
	g := graph.NewMemoryEngine()
	mustRun(t, g,
		`CREATE (:Person {name: 'A'})`,
		`CREATE (:Person {name: 'B'})`,
		`MATCH (a:Person {name: 'A'}), (b:Person {name: 'B'}) CREATE (a)-[:R]->(b)`,
	)
	rows := run(t, g, `MATCH p = (a:Person {name: 'A'})-[:R]->(b) RETURN size(p) AS hops, size(nodes(p)) AS n, size(relationships(p)) AS r`)
	require.Len(t, rows, 1)
	assert.Equal(t, value.NewInt(1), rows[0].Values["hops"])
	assert.Equal(t, value.NewInt(2), rows[0].Values["n"])
	assert.Equal(t, value.NewInt(1), rows[0].Values["r"])
}

func TestUnwindSemantics(t *testing.T) {
	g := graph.NewMemoryEngine()

	rows := run(t, g, `UNWIND [1, 2, 3] AS x RETURN x`)
	require.Len(t, rows, 3)
	assert.Equal(t, value.NewInt(2), rows[1].Values["x"])

	// NULL unwinds to zero rows.
	rows = run(t, g, `UNWIND null AS x RETURN x`)
	assert.Empty(t, rows)

	// A non-list input is treated as a one-element list.
	rows = run(t, g, `UNWIND 42 AS x RETURN x`)
	require.Len(t, rows, 1)
	assert.Equal(t, value.NewInt(42), rows[0].Values["x"])
}

func TestDistinctSkipLimit(t *testing.T) {
	g := graph.NewMemoryEngine()

	rows := run(t, g, `UNWIND [1, 1, 2, 2, 3] AS x RETURN DISTINCT x`)
	assert.Len(t, rows, 3)

	rows = run(t, g, `UNWIND [1, 2, 3, 4, 5] AS x RETURN x SKIP 1 LIMIT 2`)
	require.Len(t, rows, 2)
	assert.Equal(t, value.NewInt(2), rows[0].Values["x"])
	assert.Equal(t, value.NewInt(3), rows[1].Values["x"])
}

func TestSortNullsLastAscFirstDesc(t *testing.T) {
	g := graph.NewMemoryEngine()
	mustRun(t, g,
		`CREATE (:Person {name: 'A', age: 30})`,
		`CREATE (:Person {name: 'B'})`,
		`CREATE (:Person {name: 'C', age: 25})`,
	)

	asc := run(t, g, `MATCH (p:Person) RETURN p.name ORDER BY p.age`)
	assert.Equal(t, []string{"C", "A", "B"}, names(asc, "p.name"))

	desc := run(t, g, `MATCH (p:Person) RETURN p.name ORDER BY p.age DESC`)
	assert.Equal(t, []string{"B", "A", "C"}, names(desc, "p.name"))
}

func TestAggregateSemantics(t *testing.T) {
	g := seedPeople(t)

	rows := run(t, g, `MATCH (p:Person) RETURN count(p) AS c, sum(p.age) AS s, avg(p.age) AS a, min(p.age) AS lo, max(p.age) AS hi`)
	require.Len(t, rows, 1)
	assert.Equal(t, value.NewInt(3), rows[0].Values["c"])
	assert.Equal(t, value.NewInt(125), rows[0].Values["s"])
	assert.InDelta(t, 125.0/3, rows[0].Values["a"].AsFloat(), 1e-9)
	assert.Equal(t, value.NewInt(25), rows[0].Values["lo"])
	assert.Equal(t, value.NewInt(70), rows[0].Values["hi"])
}

func TestAggregateOverEmptyInput(t *testing.T) {
	g := graph.NewMemoryEngine()

	rows := run(t, g, `MATCH (p:Person) RETURN count(p) AS c, sum(p.age) AS s, collect(p.name) AS l`)
	require.Len(t, rows, 1, "no rows and no grouping emits a single row")
	assert.Equal(t, value.NewInt(0), rows[0].Values["c"])
	assert.True(t, rows[0].Values["s"].IsNull(), "SUM of nothing is NULL")
	assert.Equal(t, value.NewList(nil), rows[0].Values["l"], "COLLECT of nothing is the empty list")
}

func TestCountSkipsNullsAndDistinctDedupes(t *testing.T) {
	g := graph.NewMemoryEngine()
	mustRun(t, g,
		`CREATE (:Person {name: 'A', city: 'Oslo'})`,
		`CREATE (:Person {name: 'B', city: 'Oslo'})`,
		`CREATE (:Person {name: 'C'})`,
	)

	rows := run(t, g, `MATCH (p:Person) RETURN count(p.city) AS c, count(DISTINCT p.city) AS d`)
	require.Len(t, rows, 1)
	assert.Equal(t, value.NewInt(2), rows[0].Values["c"])
	assert.Equal(t, value.NewInt(1), rows[0].Values["d"])
}

func TestGroupedAggregatePreservesFirstSeenOrder(t *testing.T) {
	g := graph.NewMemoryEngine()
	mustRun(t, g,
		`CREATE (:Person {name: 'A', city: 'Oslo'})`,
		`CREATE (:Person {name: 'B', city: 'Bergen'})`,
		`CREATE (:Person {name: 'C', city: 'Oslo'})`,
	)

	rows := run(t, g, `MATCH (p:Person) RETURN p.city AS city, count(p) AS n`)
	require.Len(t, rows, 2)
	assert.Equal(t, "Oslo", rows[0].Values["city"].AsString())
	assert.Equal(t, value.NewInt(2), rows[0].Values["n"])
	assert.Equal(t, "Bergen", rows[1].Values["city"].AsString())
	assert.Equal(t, value.NewInt(1), rows[1].Values["n"])
}

func TestCreateBindsVariablesForLaterClauses(t *testing.T) {
	g := graph.NewMemoryEngine()
	rows := run(t, g, `CREATE (a:Person {name: 'Neo'}) RETURN a.name`)
	assert.Equal(t, []string{"Neo"}, names(rows, "a.name"))
}

func TestCreateSkipsNullProperties(t *testing.T) {
	g := graph.NewMemoryEngine()
	mustRun(t, g, `CREATE (:Person {name: 'A', ghost: null})`)
	nodes := g.GetNodesByLabel("Person")
	require.Len(t, nodes, 1)
	_, has := nodes[0].Properties["ghost"]
	assert.False(t, has, "NULL property values are not stored")
}

func TestMergeCreatesThenMatches(t *testing.T) {
	g := graph.NewMemoryEngine()

	mustRun(t, g, `MERGE (p:Person {name: 'A'}) ON CREATE SET p.created = true ON MATCH SET p.matched = true`)
	nodes := g.GetNodesByLabel("Person")
	require.Len(t, nodes, 1)
	assert.Equal(t, value.NewBool(true), nodes[0].Property("created"))
	assert.True(t, nodes[0].Property("matched").IsNull())

	mustRun(t, g, `MERGE (p:Person {name: 'A'}) ON CREATE SET p.created = true ON MATCH SET p.matched = true`)
	nodes = g.GetNodesByLabel("Person")
	require.Len(t, nodes, 1, "second MERGE must match, not create")
	assert.Equal(t, value.NewBool(true), nodes[0].Property("matched"))
}

func TestSetAndRemoveProperties(t *testing.T) {
	g := graph.NewMemoryEngine()
	mustRun(t, g,
		`CREATE (:Person {name: 'A', age: 30})`,
		`MATCH (p:Person {name: 'A'}) SET p.age = 31, p.city = 'Oslo'`,
	)
	n := g.GetNodesByLabel("Person")[0]
	assert.Equal(t, value.NewInt(31), n.Property("age"))
	assert.Equal(t, value.NewString("Oslo"), n.Property("city"))

	// SET to NULL removes the property.
	mustRun(t, g, `MATCH (p:Person {name: 'A'}) SET p.city = null`)
	n = g.GetNodesByLabel("Person")[0]
	assert.True(t, n.Property("city").IsNull())

	mustRun(t, g, `MATCH (p:Person {name: 'A'}) REMOVE p.age`)
	n = g.GetNodesByLabel("Person")[0]
	assert.True(t, n.Property("age").IsNull())
}

func TestRemoveLabelReindexes(t *testing.T) {
	g := graph.NewMemoryEngine()
	mustRun(t, g,
		`CREATE (:Person:Employee {name: 'A'})`,
		`MATCH (p:Person {name: 'A'}) REMOVE p:Employee`,
	)
	assert.Empty(t, g.GetNodesByLabel("Employee"))
	assert.Len(t, g.GetNodesByLabel("Person"), 1)
}

func TestDeleteConnectedNodeRequiresDetach(t *testing.T) {
	g := graph.NewMemoryEngine()
	mustRun(t, g,
		`CREATE (:Person {name: 'A'})`,
		`CREATE (:Person {name: 'B'})`,
		`MATCH (a:Person {name: 'A'}), (b:Person {name: 'B'}) CREATE (a)-[:KNOWS]->(b)`,
	)

	q, err := cparse.Parse(`MATCH (a:Person {name: 'A'}) DELETE a`)
	require.NoError(t, err)
	ops, err := planner.Plan(q)
	require.NoError(t, err)
	_, err = executor.New(g, nil).Execute(ops)
	assert.ErrorIs(t, err, executor.ErrConstraintViolation)

	mustRun(t, g, `MATCH (a:Person {name: 'A'}) DETACH DELETE a`)
	assert.Len(t, g.GetNodesByLabel("Person"), 1)
	assert.Empty(t, g.AllEdges())
}

func TestWithChainsSegmentsAndFilters(t *testing.T) {
	g := seedPeople(t)
	rows := run(t, g, `MATCH (p:Person) WITH p.name AS name, p.age AS age WHERE age > 25 RETURN name ORDER BY name`)
	assert.Equal(t, []string{"Alice", "Charlie"}, names(rows, "name"))
}

func TestWithWildcardKeepsBindings(t *testing.T) {
	g := seedPeople(t)
	rows := run(t, g, `MATCH (p:Person) WITH * WHERE p.age < 30 RETURN p.name`)
	assert.Equal(t, []string{"Bob"}, names(rows, "p.name"))
}

func TestReturnWildcard(t *testing.T) {
	g := graph.NewMemoryEngine()
	rows := run(t, g, `UNWIND [1] AS a UNWIND [2] AS b RETURN *`)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"a", "b"}, rows[0].Columns)
	assert.Equal(t, value.NewInt(1), rows[0].Values["a"])
	assert.Equal(t, value.NewInt(2), rows[0].Values["b"])
}

func TestExistsSubqueryExpression(t *testing.T) {
	g := graph.NewMemoryEngine()
	mustRun(t, g,
		`CREATE (:Person {name: 'A'})`,
		`CREATE (:Person {name: 'B'})`,
		`MATCH (a:Person {name: 'A'}), (b:Person {name: 'B'}) CREATE (a)-[:KNOWS]->(b)`,
	)
	rows := run(t, g, `MATCH (p:Person) WHERE EXISTS { MATCH (p)-[:KNOWS]->(:Person) } RETURN p.name`)
	assert.Equal(t, []string{"A"}, names(rows, "p.name"))
}

func TestSelfLoopCreateAllowed(t *testing.T) {
	g := graph.NewMemoryEngine()
	mustRun(t, g,
		`CREATE (:Person {name: 'A'})`,
		`MATCH (a:Person {name: 'A'}) CREATE (a)-[:LIKES]->(a)`,
	)
	require.Len(t, g.AllEdges(), 1)
	e := g.AllEdges()[0]
	assert.Equal(t, e.StartNode, e.EndNode)
}

func TestLabeledDestinationFiltersExpansion(t *testing.T) {
	g := graph.NewMemoryEngine()
	mustRun(t, g,
		`CREATE (:Person {name: 'A'})`,
		`CREATE (:Person {name: 'B'})`,
		`CREATE (:Robot {name: 'R2'})`,
		`MATCH (a:Person {name: 'A'}), (b:Person {name: 'B'}) CREATE (a)-[:KNOWS]->(b)`,
		`MATCH (a:Person {name: 'A'}), (r:Robot {name: 'R2'}) CREATE (a)-[:KNOWS]->(r)`,
	)
	rows := run(t, g, `MATCH (a:Person {name: 'A'})-[:KNOWS]->(b:Person) RETURN b.name`)
	assert.Equal(t, []string{"B"}, names(rows, "b.name"))
}

func TestExpandIntoBoundVariableJoins(t *testing.T) {
	g := graph.NewMemoryEngine()
	mustRun(t, g,
		`CREATE (:Person {name: 'A'})`,
		`CREATE (:Person {name: 'B'})`,
		`CREATE (:Person {name: 'C'})`,
		`MATCH (a:Person {name: 'A'}), (b:Person {name: 'B'}) CREATE (a)-[:KNOWS]->(b)`,
		`MATCH (c:Person {name: 'C'}), (b:Person {name: 'B'}) CREATE (c)-[:LIKES]->(b)`,
		`MATCH (c:Person {name: 'C'}), (a:Person {name: 'A'}) CREATE (c)-[:LIKES]->(a)`,
	)
	// b is bound by the first pattern; the second expand must join on it
	// rather than rebinding it.
	rows := run(t, g, `MATCH (a:Person {name: 'A'})-[:KNOWS]->(b), (c:Person {name: 'C'})-[:LIKES]->(b) RETURN c.name, b.name`)
	require.Len(t, rows, 1)
	assert.Equal(t, "C", rows[0].Values["c.name"].AsString())
	assert.Equal(t, "B", rows[0].Values["b.name"].AsString())
}

func TestLegacyFilterExtractForms(t *testing.T) {
	g := graph.NewMemoryEngine()

	rows := run(t, g, `RETURN filter(x IN [1, 2, 3, 4, 5] WHERE x > 3) AS f, extract(x IN [1, 2, 3] | x * 10) AS e`)
	require.Len(t, rows, 1)
	assert.Equal(t, value.NewList([]value.Value{value.NewInt(4), value.NewInt(5)}), rows[0].Values["f"])
	assert.Equal(t, value.NewList([]value.Value{value.NewInt(10), value.NewInt(20), value.NewInt(30)}), rows[0].Values["e"])

	// A NULL list yields NULL, not an empty list.
	rows = run(t, g, `RETURN filter(x IN null WHERE x > 3) AS f`)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Values["f"].IsNull())
}
