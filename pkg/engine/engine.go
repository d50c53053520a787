// Package engine wires graph storage, the cparse text reader, the
// planner, the optimizer, and the executor behind a single Open/Query
// entry point, the way pkg/nornicdb/db.go wires the teacher's storage,
// decay, inference, and search services behind DB.Open (spec §1, §11.5).
package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/corvid-graph/corvid/pkg/config"
	"github.com/corvid-graph/corvid/pkg/cparse"
	"github.com/corvid-graph/corvid/pkg/executor"
	"github.com/corvid-graph/corvid/pkg/graph"
	"github.com/corvid-graph/corvid/pkg/optimizer"
	"github.com/corvid-graph/corvid/pkg/planner"
	"github.com/corvid-graph/corvid/pkg/value"
)

// ErrClosed is returned by any operation on an Engine after Close.
// Transaction errors reuse executor.ErrAlreadyInTransaction and
// executor.ErrNoTransaction, since Begin/Commit/Rollback enforce the same
// one-transaction-at-a-time rule the executor's sentinels describe.
var ErrClosed = errors.New("engine: closed")

// Result is the public shape of a completed query: a fixed column order
// plus one map per row, mirroring nornicdb.CypherResult's Columns/Rows
// split but keyed by column name instead of positional slices, matching
// the row representation pkg/executor already produces.
type Result struct {
	Columns []string
	Rows    []map[string]value.Value
}

// Engine is the embeddable entry point: Open a graph, then Query it.
// All methods are safe for concurrent use; Query holds the Engine's lock
// for the whole statement, so queries run one at a time.
type Engine struct {
	mu     sync.RWMutex
	g      graph.Engine
	cfg    *config.Config
	cache  *planner.PlanCache
	closed bool

	txMu  sync.Mutex
	txSet bool
}

// Open creates an Engine backed by in-memory storage, or a persistent
// badger-backed store when cfg.Storage.PersistenceEnabled is set (spec
// §11.5, mirroring nornicdb.Open's dataDir-empty-means-in-memory switch).
func Open(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.LoadFromEnv()
	}

	var g graph.Engine
	if cfg.Storage.PersistenceEnabled {
		be, err := graph.NewBadgerEngine(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("engine: opening persistent storage: %w", err)
		}
		g = be
	} else {
		g = graph.NewMemoryEngine()
	}

	e := &Engine{g: g, cfg: cfg}
	if cfg.Cache.Enabled {
		cache, err := planner.NewPlanCache(cfg.Cache.Size)
		if err != nil {
			return nil, fmt.Errorf("engine: building plan cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

// Graph exposes the underlying storage engine, for callers that need
// direct graph access (bulk loading, inspection tools) alongside query
// execution.
func (e *Engine) Graph() graph.Engine { return e.g }

// Close releases the underlying storage engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.g.Close()
}

// Query parses, plans, optimizes, and executes a single Cypher-subset
// statement, returning every result row (spec §4's full pipeline: text ->
// ast.Query -> planner.Operator list -> optimizer rewrite -> executor).
func (e *Engine) Query(query string, params map[string]value.Value) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	ops, err := e.plan(query)
	if err != nil {
		return nil, err
	}

	ex := executor.New(e.g, params)
	rows, err := ex.Execute(ops)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	seen := map[string]bool{}
	for _, r := range rows {
		row := make(map[string]value.Value, len(r.Values))
		for k, v := range r.Values {
			row[k] = v
			if !seen[k] {
				seen[k] = true
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if len(rows) > 0 {
		result.Columns = rows[0].Columns
	} else {
		result.Columns = columnsFromSeen(seen)
	}
	return result, nil
}

// columnsFromSeen produces a deterministic (sorted) column list for the
// zero-row case, where ResultRow can't supply one.
func columnsFromSeen(seen map[string]bool) []string {
	cols := make([]string, 0, len(seen))
	for c := range seen {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// plan parses and compiles query text into an optimized operator
// pipeline, consulting (and populating) the plan cache keyed on the
// normalized query text (spec §11.3: cache key excludes parameter
// values, since the same shape with different $params should hit).
func (e *Engine) plan(query string) ([]planner.Operator, error) {
	key := normalizeQuery(query)

	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			return cached, nil
		}
	}

	ast, err := cparse.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("engine: parsing query: %w", err)
	}
	ops, err := planner.Plan(ast)
	if err != nil {
		return nil, fmt.Errorf("engine: planning query: %w", err)
	}
	ops = optimizer.Optimize(ops, e.g.Statistics(), e.cfg.Optimizer)

	if e.cache != nil {
		e.cache.Put(key, ops)
	}
	return ops, nil
}

// normalizeQuery collapses incidental whitespace so "MATCH (n) RETURN n"
// and "MATCH (n)\nRETURN n" share a cache entry. A query containing a
// quote character is keyed on its exact text, so whitespace inside string
// literals is never collapsed and distinct queries never collide.
func normalizeQuery(query string) string {
	joined := query
	if !strings.ContainsAny(query, `'"`) {
		joined = strings.Join(strings.Fields(query), " ")
	}
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}

// CreateNode adds a node outside the query language (spec §6.2): labels are
// validated per spec §6.3 and native property values are converted through
// value.FromNative (which includes Point shape detection for maps).
func (e *Engine) CreateNode(labels []string, properties map[string]any) (*value.Node, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	for _, l := range labels {
		if !graph.ValidLabel(l) {
			return nil, fmt.Errorf("engine: invalid label %q", l)
		}
	}
	props, err := nativeProps(properties)
	if err != nil {
		return nil, err
	}
	n := &value.Node{ID: value.NodeID(newEntityID()), Labels: append([]string{}, labels...), Properties: props}
	if err := e.g.AddNode(n); err != nil {
		return nil, err
	}
	return n, nil
}

// CreateRelationship adds a directed edge between two existing nodes
// (spec §6.2). The type name is validated per spec §6.3.
func (e *Engine) CreateRelationship(src, dst value.NodeID, relType string, properties map[string]any) (*value.Edge, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if !graph.ValidRelType(relType) {
		return nil, fmt.Errorf("engine: invalid relationship type %q", relType)
	}
	props, err := nativeProps(properties)
	if err != nil {
		return nil, err
	}
	edge := &value.Edge{ID: value.EdgeID(newEntityID()), StartNode: src, EndNode: dst, Type: relType, Properties: props}
	if err := e.g.AddEdge(edge); err != nil {
		return nil, err
	}
	return edge, nil
}

func nativeProps(properties map[string]any) (map[string]value.Value, error) {
	if len(properties) == 0 {
		return nil, nil
	}
	props := make(map[string]value.Value, len(properties))
	for k, raw := range properties {
		v, err := value.FromNative(raw)
		if err != nil {
			return nil, fmt.Errorf("engine: property %q: %w", k, err)
		}
		if v.IsNull() {
			continue
		}
		props[k] = v
	}
	return props, nil
}

func newEntityID() string { return uuid.NewString() }

// Begin opens a transaction by snapshotting the current graph state.
// Only one transaction may be open at a time per Engine (spec §3.4).
func (e *Engine) Begin() (*Tx, error) {
	e.txMu.Lock()
	if e.txSet {
		e.txMu.Unlock()
		return nil, executor.ErrAlreadyInTransaction
	}
	e.txSet = true
	e.txMu.Unlock()

	e.mu.RLock()
	snap := e.g.Snapshot()
	e.mu.RUnlock()
	return &Tx{e: e, snapshot: snap}, nil
}

// Tx is an open transaction: a captured snapshot plus a reference back to
// the Engine it can commit against (commit is a no-op beyond releasing
// the lock, since writes already land directly in the live graph;
// Rollback restores the captured snapshot).
type Tx struct {
	e        *Engine
	snapshot *graph.Snapshot
	done     bool
}

// Query runs a statement within the transaction's Engine. Since writes
// mutate the live graph.Engine directly (spec §4.7's pointer-shared
// mutation model), a transaction's isolation comes entirely from
// Rollback's ability to restore the pre-Begin snapshot, not from
// buffering writes.
func (t *Tx) Query(query string, params map[string]value.Value) (*Result, error) {
	if t.done {
		return nil, executor.ErrNoTransaction
	}
	return t.e.Query(query, params)
}

// Commit ends the transaction, keeping whatever writes happened.
func (t *Tx) Commit() error {
	if t.done {
		return executor.ErrNoTransaction
	}
	t.done = true
	t.e.txMu.Lock()
	t.e.txSet = false
	t.e.txMu.Unlock()
	return nil
}

// Rollback restores the graph to its state when Begin was called.
func (t *Tx) Rollback() error {
	if t.done {
		return executor.ErrNoTransaction
	}
	t.done = true
	t.e.mu.Lock()
	t.e.g.Restore(t.snapshot)
	t.e.mu.Unlock()
	t.e.txMu.Lock()
	t.e.txSet = false
	t.e.txMu.Unlock()
	return nil
}
