package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-graph/corvid/pkg/config"
	"github.com/corvid-graph/corvid/pkg/engine"
	"github.com/corvid-graph/corvid/pkg/engine/testutil"
	"github.com/corvid-graph/corvid/pkg/value"
)

func TestBasicMatchWithPredicate(t *testing.T) {
	e := testutil.NewEngine(t)
	testutil.SeedPeople(t, e)

	result := testutil.MustQuery(t, e,
		`MATCH (p:Person) WHERE p.age > 25 RETURN p.name ORDER BY p.name`)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, []string{"p.name"}, result.Columns)
	assert.Equal(t, value.NewString("Alice"), result.Rows[0]["p.name"])
	assert.Equal(t, value.NewString("Charlie"), result.Rows[1]["p.name"])
}

func TestPowerRightAssociative(t *testing.T) {
	e := testutil.NewEngine(t)

	result := testutil.MustQuery(t, e, `RETURN 2^3^2 AS r`)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, value.NewInt(512), result.Rows[0]["r"])

	result = testutil.MustQuery(t, e, `RETURN (2^3)^2 AS r`)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, value.NewInt(64), result.Rows[0]["r"])
}

func TestPowerBindsTighterThanUnaryMinus(t *testing.T) {
	e := testutil.NewEngine(t)

	result := testutil.MustQuery(t, e, `RETURN -2^2 AS r`)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, value.NewInt(-4), result.Rows[0]["r"])
}

func TestAggregatePushdownCorrectness(t *testing.T) {
	query := `MATCH (p:Person)-[:KNOWS]->(f) WITH p, count(f) AS n RETURN p.name, n ORDER BY n DESC`

	for _, pushdown := range []bool{true, false} {
		cfg := config.LoadFromEnv()
		cfg.Optimizer.AggregatePushdown = pushdown
		e, err := engine.Open(cfg)
		require.NoError(t, err)
		defer e.Close()

		testutil.SeedKnowsTriangle(t, e)

		result := testutil.MustQuery(t, e, query)
		require.Len(t, result.Rows, 2, "pushdown=%t", pushdown)
		assert.Equal(t, value.NewString("A"), result.Rows[0]["p.name"], "pushdown=%t", pushdown)
		assert.Equal(t, value.NewInt(2), result.Rows[0]["n"], "pushdown=%t", pushdown)
		assert.Equal(t, value.NewString("B"), result.Rows[1]["p.name"], "pushdown=%t", pushdown)
		assert.Equal(t, value.NewInt(1), result.Rows[1]["n"], "pushdown=%t", pushdown)
	}
}

func TestOptionalMatchPreservesRows(t *testing.T) {
	e := testutil.NewEngine(t)
	testutil.MustQuery(t, e, `CREATE (:Person {name: 'X'})`)

	result := testutil.MustQuery(t, e,
		`MATCH (p:Person) OPTIONAL MATCH (p)-[:KNOWS]->(f) RETURN p.name, f`)

	require.Len(t, result.Rows, 1)
	assert.Equal(t, value.NewString("X"), result.Rows[0]["p.name"])
	assert.True(t, result.Rows[0]["f"].IsNull())
}

func TestVariableLengthPathWithCycle(t *testing.T) {
	e := testutil.NewEngine(t)
	testutil.SeedCycle(t, e)

	result := testutil.MustQuery(t, e,
		`MATCH (a)-[:R*1..3]->(b) WHERE a.name = 'A' RETURN b.name`)

	require.Len(t, result.Rows, 1, "the back-edge to A must be blocked by cycle detection")
	assert.Equal(t, value.NewString("B"), result.Rows[0]["b.name"])
}

func TestThreeValuedLogic(t *testing.T) {
	e := testutil.NewEngine(t)

	result := testutil.MustQuery(t, e,
		`WITH null AS x RETURN x AND true AS a, x OR true AS b, x OR false AS c`)

	require.Len(t, result.Rows, 1)
	assert.True(t, result.Rows[0]["a"].IsNull())
	assert.Equal(t, value.NewBool(true), result.Rows[0]["b"])
	assert.True(t, result.Rows[0]["c"].IsNull())
}

// Read-only queries must leave the graph untouched: same node/edge counts,
// same statistics snapshot contents.
func TestReadOnlyQueryDoesNotMutate(t *testing.T) {
	e := testutil.NewEngine(t)
	testutil.SeedKnowsTriangle(t, e)

	before := e.Graph().Statistics()
	nodesBefore := len(e.Graph().AllNodes())
	edgesBefore := len(e.Graph().AllEdges())

	for _, q := range []string{
		`MATCH (p:Person) RETURN p.name`,
		`MATCH (p:Person)-[:KNOWS]->(f) RETURN p.name, f.name`,
		`MATCH (a)-[:KNOWS*1..2]->(b) RETURN b.name`,
		`MATCH (p:Person) WHERE p.name = 'A' RETURN count(p)`,
	} {
		testutil.MustQuery(t, e, q)
	}

	after := e.Graph().Statistics()
	assert.Equal(t, before.TotalNodes, after.TotalNodes)
	assert.Equal(t, before.TotalEdges, after.TotalEdges)
	assert.Equal(t, before.NodeCountsByLabel, after.NodeCountsByLabel)
	assert.Equal(t, before.EdgeCountsByType, after.EdgeCountsByType)
	assert.Equal(t, nodesBefore, len(e.Graph().AllNodes()))
	assert.Equal(t, edgesBefore, len(e.Graph().AllEdges()))
}

// Every optimizer configuration must produce the same result multiset.
func TestOptimizerConfigurationsAgree(t *testing.T) {
	queries := []string{
		`MATCH (p:Person) WHERE p.name = 'A' RETURN p.name`,
		`MATCH (p:Person)-[:KNOWS]->(f) WHERE f.name = 'C' RETURN p.name ORDER BY p.name`,
		`MATCH (p:Person)-[:KNOWS]->(f) WITH p, count(f) AS n RETURN p.name, n ORDER BY n DESC, p.name`,
		`MATCH (a:Person)-[:KNOWS]->(b:Person)-[:KNOWS]->(c:Person) RETURN a.name, c.name ORDER BY a.name`,
	}

	configs := []func(*config.Config){
		func(c *config.Config) {}, // everything on
		func(c *config.Config) { c.Optimizer.FilterPushdown = false },
		func(c *config.Config) { c.Optimizer.JoinReorder = false },
		func(c *config.Config) { c.Optimizer.PredicateReorder = false },
		func(c *config.Config) { c.Optimizer.RedundantTraversalElimination = false },
		func(c *config.Config) { c.Optimizer.AggregatePushdown = false },
		func(c *config.Config) {
			c.Optimizer.FilterPushdown = false
			c.Optimizer.JoinReorder = false
			c.Optimizer.PredicateReorder = false
			c.Optimizer.RedundantTraversalElimination = false
			c.Optimizer.AggregatePushdown = false
		},
	}

	for _, q := range queries {
		var baseline *engine.Result
		for i, mutate := range configs {
			cfg := config.LoadFromEnv()
			mutate(cfg)
			e, err := engine.Open(cfg)
			require.NoError(t, err)
			testutil.SeedKnowsTriangle(t, e)

			result := testutil.MustQuery(t, e, q)
			if i == 0 {
				baseline = result
			} else {
				assert.Equal(t, baseline.Rows, result.Rows, "config %d disagrees on %s", i, q)
			}
			require.NoError(t, e.Close())
		}
	}
}

// Inserting then deleting the same nodes and edges must restore the
// statistics snapshot to its initial counts.
func TestStatisticsRestoredAfterInsertDelete(t *testing.T) {
	e := testutil.NewEngine(t)
	testutil.SeedPeople(t, e)
	initial := e.Graph().Statistics()

	testutil.MustQuery(t, e, `CREATE (:Animal {name: 'Rook'})`)
	testutil.MustQuery(t, e, `CREATE (:Animal {name: 'Magpie'})`)
	testutil.MustQuery(t, e, `MATCH (a:Animal {name: 'Rook'}), (b:Animal {name: 'Magpie'}) CREATE (a)-[:FLOCKS_WITH]->(b)`)
	testutil.MustQuery(t, e, `MATCH (a:Animal) DETACH DELETE a`)

	final := e.Graph().Statistics()
	assert.Equal(t, initial.TotalNodes, final.TotalNodes)
	assert.Equal(t, initial.TotalEdges, final.TotalEdges)
	assert.Equal(t, initial.NodeCountsByLabel["Person"], final.NodeCountsByLabel["Person"])
	assert.Zero(t, final.NodeCountsByLabel["Animal"])
	assert.Zero(t, final.EdgeCountsByType["FLOCKS_WITH"])
}
