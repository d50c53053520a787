package graph

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/corvid-graph/corvid/pkg/value"
)

// Key prefixes, grounded on the teacher's pkg/storage/badger.go layout and
// narrowed to the two-table model spec §6.4 describes: a nodes table and an
// edges table, plus the secondary indexes needed to avoid full scans.
const (
	prefixBNode          = byte(0x01) // nodes: nodeID -> JSON(node)
	prefixBEdge          = byte(0x02) // edges: edgeID -> JSON(edge)
	prefixBLabelIndex    = byte(0x03) // label + 0x00 + nodeID -> empty
	prefixBOutgoingIndex = byte(0x04) // nodeID + 0x00 + edgeID -> empty
	prefixBIncomingIndex = byte(0x05) // nodeID + 0x00 + edgeID -> empty
)

func bNodeKey(id value.NodeID) []byte { return append([]byte{prefixBNode}, []byte(id)...) }
func bEdgeKey(id value.EdgeID) []byte { return append([]byte{prefixBEdge}, []byte(id)...) }

func bLabelKey(label string, id value.NodeID) []byte {
	label = strings.ToLower(label)
	key := make([]byte, 0, 1+len(label)+1+len(id))
	key = append(key, prefixBLabelIndex)
	key = append(key, label...)
	key = append(key, 0x00)
	key = append(key, string(id)...)
	return key
}

func bLabelPrefix(label string) []byte {
	label = strings.ToLower(label)
	key := make([]byte, 0, 1+len(label)+1)
	key = append(key, prefixBLabelIndex)
	key = append(key, label...)
	key = append(key, 0x00)
	return key
}

func bOutKey(node value.NodeID, edge value.EdgeID) []byte {
	key := make([]byte, 0, 1+len(node)+1+len(edge))
	key = append(key, prefixBOutgoingIndex)
	key = append(key, string(node)...)
	key = append(key, 0x00)
	key = append(key, string(edge)...)
	return key
}

func bOutPrefix(node value.NodeID) []byte {
	key := make([]byte, 0, 1+len(node)+1)
	key = append(key, prefixBOutgoingIndex)
	key = append(key, string(node)...)
	key = append(key, 0x00)
	return key
}

func bInKey(node value.NodeID, edge value.EdgeID) []byte {
	key := make([]byte, 0, 1+len(node)+1+len(edge))
	key = append(key, prefixBIncomingIndex)
	key = append(key, string(node)...)
	key = append(key, 0x00)
	key = append(key, string(edge)...)
	return key
}

func bInPrefix(node value.NodeID) []byte {
	key := make([]byte, 0, 1+len(node)+1)
	key = append(key, prefixBIncomingIndex)
	key = append(key, string(node)...)
	key = append(key, 0x00)
	return key
}

// wireNode/wireEdge give Node/Edge a stable JSON shape independent of
// pkg/value's internals, since value.Value already carries its own
// MarshalJSON.
type wireNode struct {
	ID         value.NodeID            `json:"id"`
	Labels     []string                 `json:"labels"`
	Properties map[string]value.Value `json:"properties"`
}

type wireEdge struct {
	ID         value.EdgeID            `json:"id"`
	StartNode  value.NodeID            `json:"start"`
	EndNode    value.NodeID            `json:"end"`
	Type       string                   `json:"type"`
	Properties map[string]value.Value `json:"properties"`
}

// BadgerEngine is a persistent Engine backed by BadgerDB, following the
// teacher's pkg/storage/badger.go: single-byte key prefixes separate the
// node table, edge table, and secondary indexes within one key space.
// Statistics are recomputed lazily since Badger has no cheap live counter
// primitive; callers that need them on every mutation should prefer
// MemoryEngine.
type BadgerEngine struct {
	db *badger.DB

	mu       sync.RWMutex
	closed   bool
	statsAge time.Time
	cached   *Statistics
}

// BadgerOptions configures the persistent engine.
type BadgerOptions struct {
	DataDir    string
	InMemory   bool
	SyncWrites bool
}

// NewBadgerEngine opens (or creates) a persistent graph store at dataDir.
func NewBadgerEngine(dataDir string) (*BadgerEngine, error) {
	return NewBadgerEngineWithOptions(BadgerOptions{DataDir: dataDir})
}

// NewBadgerEngineWithOptions opens a persistent graph store with explicit
// tuning, mirroring the teacher's low-memory defaults for an embedded
// deployment (spec §1: this is an embedded library, not a server process).
func NewBadgerEngineWithOptions(opts BadgerOptions) (*BadgerEngine, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}
	badgerOpts = badgerOpts.
		WithLogger(nil).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	return &BadgerEngine{db: db}, nil
}

func (e *BadgerEngine) AddNode(node *value.Node) error {
	return e.db.Update(func(txn *badger.Txn) error {
		// Replacement clears the previous version's label index entries so a
		// dropped label doesn't linger.
		if item, err := txn.Get(bNodeKey(node.ID)); err == nil {
			var old wireNode
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &old) }); err == nil {
				for _, label := range old.Labels {
					if err := txn.Delete(bLabelKey(label, node.ID)); err != nil {
						return err
					}
				}
			}
		}
		payload, err := json.Marshal(wireNode{ID: node.ID, Labels: node.Labels, Properties: node.Properties})
		if err != nil {
			return err
		}
		if err := txn.Set(bNodeKey(node.ID), payload); err != nil {
			return err
		}
		for _, label := range node.Labels {
			if err := txn.Set(bLabelKey(label, node.ID), []byte{}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *BadgerEngine) AddEdge(edge *value.Edge) error {
	return e.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(bNodeKey(edge.StartNode)); err != nil {
			return ErrMissingEndpoint
		}
		if _, err := txn.Get(bNodeKey(edge.EndNode)); err != nil {
			return ErrMissingEndpoint
		}
		payload, err := json.Marshal(wireEdge{
			ID: edge.ID, StartNode: edge.StartNode, EndNode: edge.EndNode,
			Type: edge.Type, Properties: edge.Properties,
		})
		if err != nil {
			return err
		}
		if err := txn.Set(bEdgeKey(edge.ID), payload); err != nil {
			return err
		}
		if err := txn.Set(bOutKey(edge.StartNode, edge.ID), []byte{}); err != nil {
			return err
		}
		return txn.Set(bInKey(edge.EndNode, edge.ID), []byte{})
	})
}

func (e *BadgerEngine) GetNode(id value.NodeID) (*value.Node, bool) {
	var n *value.Node
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(bNodeKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var w wireNode
			if err := json.Unmarshal(val, &w); err != nil {
				return err
			}
			n = &value.Node{ID: w.ID, Labels: w.Labels, Properties: w.Properties}
			return nil
		})
	})
	if err != nil {
		return nil, false
	}
	return n, true
}

func (e *BadgerEngine) GetEdge(id value.EdgeID) (*value.Edge, bool) {
	var out *value.Edge
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(bEdgeKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var w wireEdge
			if err := json.Unmarshal(val, &w); err != nil {
				return err
			}
			out = &value.Edge{ID: w.ID, StartNode: w.StartNode, EndNode: w.EndNode, Type: w.Type, Properties: w.Properties}
			return nil
		})
	})
	if err != nil {
		return nil, false
	}
	return out, true
}

func (e *BadgerEngine) RemoveNode(id value.NodeID, detach bool) error {
	return e.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(bNodeKey(id))
		if err != nil {
			return ErrNotFound
		}
		var w wireNode
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &w) }); err != nil {
			return err
		}
		outIDs, err := collectEdgeIDs(txn, bOutPrefix(id))
		if err != nil {
			return err
		}
		inIDs, err := collectEdgeIDs(txn, bInPrefix(id))
		if err != nil {
			return err
		}
		if (len(outIDs)+len(inIDs)) > 0 && !detach {
			return ErrConstraintViolation
		}
		for _, eid := range append(outIDs, inIDs...) {
			if err := removeEdgeTxn(txn, eid); err != nil {
				return err
			}
		}
		for _, label := range w.Labels {
			if err := txn.Delete(bLabelKey(label, id)); err != nil {
				return err
			}
		}
		return txn.Delete(bNodeKey(id))
	})
}

func (e *BadgerEngine) RemoveEdge(id value.EdgeID) error {
	return e.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(bEdgeKey(id)); err != nil {
			return ErrNotFound
		}
		return removeEdgeTxn(txn, id)
	})
}

func removeEdgeTxn(txn *badger.Txn, id value.EdgeID) error {
	item, err := txn.Get(bEdgeKey(id))
	if err != nil {
		return err
	}
	var w wireEdge
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &w) }); err != nil {
		return err
	}
	if err := txn.Delete(bOutKey(w.StartNode, id)); err != nil {
		return err
	}
	if err := txn.Delete(bInKey(w.EndNode, id)); err != nil {
		return err
	}
	return txn.Delete(bEdgeKey(id))
}

func collectEdgeIDs(txn *badger.Txn, prefix []byte) ([]value.EdgeID, error) {
	var ids []value.EdgeID
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().KeyCopy(nil)
		ids = append(ids, value.EdgeID(key[len(prefix):]))
	}
	return ids, nil
}

func (e *BadgerEngine) GetNodesByLabel(label string) []*value.Node {
	var out []*value.Node
	_ = e.db.View(func(txn *badger.Txn) error {
		prefix := bLabelPrefix(label)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			id := value.NodeID(key[len(prefix):])
			if n, ok := e.GetNode(id); ok {
				out = append(out, n)
			}
		}
		return nil
	})
	return out
}

func (e *BadgerEngine) Outgoing(id value.NodeID) []*value.Edge {
	return e.resolveEdgeIndex(bOutPrefix(id))
}

func (e *BadgerEngine) Incoming(id value.NodeID) []*value.Edge {
	return e.resolveEdgeIndex(bInPrefix(id))
}

func (e *BadgerEngine) resolveEdgeIndex(prefix []byte) []*value.Edge {
	var out []*value.Edge
	_ = e.db.View(func(txn *badger.Txn) error {
		ids, err := collectEdgeIDs(txn, prefix)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if edge, ok := e.GetEdge(id); ok {
				out = append(out, edge)
			}
		}
		return nil
	})
	return out
}

func (e *BadgerEngine) AllNodes() []*value.Node {
	var out []*value.Node
	_ = e.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte{prefixBNode}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var w wireNode
				if err := json.Unmarshal(val, &w); err != nil {
					return err
				}
				out = append(out, &value.Node{ID: w.ID, Labels: w.Labels, Properties: w.Properties})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out
}

func (e *BadgerEngine) AllEdges() []*value.Edge {
	var out []*value.Edge
	_ = e.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte{prefixBEdge}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var w wireEdge
				if err := json.Unmarshal(val, &w); err != nil {
					return err
				}
				out = append(out, &value.Edge{ID: w.ID, StartNode: w.StartNode, EndNode: w.EndNode, Type: w.Type, Properties: w.Properties})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out
}

// Statistics recomputes cardinalities by scanning the node and edge tables.
// Results are cached for one second so a burst of planning calls within the
// same query doesn't each pay for a full scan.
func (e *BadgerEngine) Statistics() *Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cached != nil && time.Since(e.statsAge) < time.Second {
		return e.cached.Clone()
	}
	s := &Statistics{
		NodeCountsByLabel: make(map[string]int64),
		EdgeCountsByType:  make(map[string]int64),
		AvgDegreeByType:   make(map[string]float64),
		LastUpdated:       time.Now(),
	}
	nodes := e.AllNodes()
	s.TotalNodes = int64(len(nodes))
	for _, n := range nodes {
		for _, label := range n.Labels {
			s.NodeCountsByLabel[label]++
		}
	}
	edges := e.AllEdges()
	s.TotalEdges = int64(len(edges))
	sources := make(map[string]map[value.NodeID]bool)
	for _, edge := range edges {
		s.EdgeCountsByType[edge.Type]++
		if sources[edge.Type] == nil {
			sources[edge.Type] = make(map[value.NodeID]bool)
		}
		sources[edge.Type][edge.StartNode] = true
	}
	for relType, total := range s.EdgeCountsByType {
		if n := len(sources[relType]); n > 0 {
			s.AvgDegreeByType[relType] = float64(total) / float64(n)
		}
	}
	e.cached = s
	e.statsAge = s.LastUpdated
	return s.Clone()
}

// Snapshot scans the full key space into memory. Suitable for transaction
// rollback at the sizes this embedded engine targets; not meant for
// continuous replication.
func (e *BadgerEngine) Snapshot() *Snapshot {
	nodes := make(map[value.NodeID]*value.Node)
	for _, n := range e.AllNodes() {
		nodes[n.ID] = n
	}
	edges := make(map[value.EdgeID]*value.Edge)
	for _, edge := range e.AllEdges() {
		edges[edge.ID] = edge
	}
	return &Snapshot{Nodes: nodes, Edges: edges, Statistics: e.Statistics()}
}

// Restore clears the database and replays the snapshot's nodes and edges.
func (e *BadgerEngine) Restore(s *Snapshot) {
	_ = e.db.DropAll()
	for _, n := range s.Nodes {
		_ = e.AddNode(n)
	}
	for _, edge := range s.Edges {
		_ = e.AddEdge(edge)
	}
	e.mu.Lock()
	e.cached = s.Statistics.Clone()
	e.statsAge = time.Now()
	e.mu.Unlock()
}

func (e *BadgerEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.db.Close()
}

var _ Engine = (*BadgerEngine)(nil)
