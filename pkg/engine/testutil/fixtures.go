// Package testutil provides shared fixtures for pkg/engine's tests: a
// fresh in-memory Engine plus canned graphs, so scenario tests don't each
// rebuild the same Person/KNOWS setup from scratch.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvid-graph/corvid/pkg/engine"
)

// NewEngine returns a fresh in-memory Engine with default configuration,
// closed automatically when the test ends.
func NewEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.Open(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// MustQuery runs a query and fails the test on error.
func MustQuery(t *testing.T, e *engine.Engine, query string) *engine.Result {
	t.Helper()
	result, err := e.Query(query, nil)
	require.NoError(t, err, "query failed: %s", query)
	return result
}

// SeedPeople creates the Alice/Bob/Charlie Person graph that scenario S1
// and the engine tests are built around.
func SeedPeople(t *testing.T, e *engine.Engine) {
	t.Helper()
	for _, q := range []string{
		`CREATE (:Person {name: 'Alice', age: 30})`,
		`CREATE (:Person {name: 'Bob', age: 25})`,
		`CREATE (:Person {name: 'Charlie', age: 70})`,
	} {
		MustQuery(t, e, q)
	}
}

// SeedKnowsTriangle creates three Person nodes A, B, C with KNOWS edges
// A->B, A->C, B->C — the fan-out graph S3's aggregate-pushdown scenario
// counts over.
func SeedKnowsTriangle(t *testing.T, e *engine.Engine) {
	t.Helper()
	for _, q := range []string{
		`CREATE (:Person {name: 'A'})`,
		`CREATE (:Person {name: 'B'})`,
		`CREATE (:Person {name: 'C'})`,
	} {
		MustQuery(t, e, q)
	}
	for _, q := range []string{
		`MATCH (a:Person {name: 'A'}), (b:Person {name: 'B'}) CREATE (a)-[:KNOWS]->(b)`,
		`MATCH (a:Person {name: 'A'}), (c:Person {name: 'C'}) CREATE (a)-[:KNOWS]->(c)`,
		`MATCH (b:Person {name: 'B'}), (c:Person {name: 'C'}) CREATE (b)-[:KNOWS]->(c)`,
	} {
		MustQuery(t, e, q)
	}
}

// SeedCycle creates a two-node cycle (A)-[:R]->(B)-[:R]->(A), the graph
// S5's variable-length traversal must not loop forever over.
func SeedCycle(t *testing.T, e *engine.Engine) {
	t.Helper()
	MustQuery(t, e, `CREATE (:Person {name: 'A'})`)
	MustQuery(t, e, `CREATE (:Person {name: 'B'})`)
	MustQuery(t, e, `MATCH (a:Person {name: 'A'}), (b:Person {name: 'B'}) CREATE (a)-[:R]->(b)`)
	MustQuery(t, e, `MATCH (b:Person {name: 'B'}), (a:Person {name: 'A'}) CREATE (b)-[:R]->(a)`)
}
