package graph

import (
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/corvid-graph/corvid/pkg/value"
)

// MemoryEngine is an in-memory Engine. Nodes and edges live in plain Go
// maps keyed by their natural string IDs; label membership is additionally
// tracked in Roaring Bitmaps over an internally assigned dense ordinal, so
// statistics recomputation reads per-label counts from bitmap cardinality
// instead of scanning every node. GetNodesByLabel iterates the label's
// bitmap but maps ordinals back to IDs through a table built from every
// node's ordinal. Relationship types have no index of their own: edges are
// reached through the per-node outgoing/incoming lists. This mirrors the
// indexing strategy of the teacher's pkg/storage/memory.go, swapping its
// label map for a compressed bitmap index.
type MemoryEngine struct {
	mu sync.RWMutex

	nodes map[value.NodeID]*value.Node
	edges map[value.EdgeID]*value.Edge

	// nodeOrder/edgeOrder preserve insertion order for AllNodes/AllEdges
	// and, through Snapshot/Restore, across rollback (spec §5's ordering
	// guarantees; Go map iteration alone would randomize scans).
	nodeOrder []value.NodeID
	edgeOrder []value.EdgeID

	out map[value.NodeID][]value.EdgeID
	in  map[value.NodeID][]value.EdgeID

	// ordinal assigns each node a dense uint32 so it can live in a Roaring
	// Bitmap. Ordinals are never reused within a single engine lifetime:
	// reuse after deletion would let a stale bitmap entry silently resolve
	// to the wrong node.
	ordinal     map[value.NodeID]uint32
	nextOrdinal uint32

	labelIndex map[string]*roaring.Bitmap
	closed     bool

	stats *Statistics
}

// NewMemoryEngine returns an empty in-memory graph store.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		nodes:      make(map[value.NodeID]*value.Node),
		edges:      make(map[value.EdgeID]*value.Edge),
		out:        make(map[value.NodeID][]value.EdgeID),
		in:         make(map[value.NodeID][]value.EdgeID),
		ordinal:    make(map[value.NodeID]uint32),
		labelIndex: make(map[string]*roaring.Bitmap),
		stats: &Statistics{
			NodeCountsByLabel: make(map[string]int64),
			EdgeCountsByType:  make(map[string]int64),
			AvgDegreeByType:   make(map[string]float64),
			LastUpdated:       time.Time{},
		},
	}
}

func (m *MemoryEngine) ordinalFor(id value.NodeID) uint32 {
	if o, ok := m.ordinal[id]; ok {
		return o
	}
	o := m.nextOrdinal
	m.nextOrdinal++
	m.ordinal[id] = o
	return o
}

func (m *MemoryEngine) AddNode(node *value.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrAlreadyClosed
	}
	ord := m.ordinalFor(node.ID)
	if old, ok := m.nodes[node.ID]; ok {
		// Replacement: clear the old label memberships so a label dropped
		// by the new version doesn't linger in the index.
		for _, label := range old.Labels {
			if bm, ok := m.labelIndex[label]; ok {
				bm.Remove(ord)
			}
		}
	} else {
		m.nodeOrder = append(m.nodeOrder, node.ID)
	}
	m.nodes[node.ID] = node
	for _, label := range node.Labels {
		bm, ok := m.labelIndex[label]
		if !ok {
			bm = roaring.New()
			m.labelIndex[label] = bm
		}
		bm.Add(ord)
	}
	m.recomputeStatsLocked()
	return nil
}

func (m *MemoryEngine) AddEdge(edge *value.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrAlreadyClosed
	}
	if _, ok := m.nodes[edge.StartNode]; !ok {
		return ErrMissingEndpoint
	}
	if _, ok := m.nodes[edge.EndNode]; !ok {
		return ErrMissingEndpoint
	}
	if old, ok := m.edges[edge.ID]; ok {
		m.out[old.StartNode] = removeEdgeID(m.out[old.StartNode], old.ID)
		m.in[old.EndNode] = removeEdgeID(m.in[old.EndNode], old.ID)
	} else {
		m.edgeOrder = append(m.edgeOrder, edge.ID)
	}
	m.edges[edge.ID] = edge
	m.out[edge.StartNode] = append(m.out[edge.StartNode], edge.ID)
	m.in[edge.EndNode] = append(m.in[edge.EndNode], edge.ID)
	m.recomputeStatsLocked()
	return nil
}

func (m *MemoryEngine) GetNode(id value.NodeID) (*value.Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	return n, ok
}

func (m *MemoryEngine) GetEdge(id value.EdgeID) (*value.Edge, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.edges[id]
	return e, ok
}

func (m *MemoryEngine) RemoveNode(id value.NodeID, detach bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	node, ok := m.nodes[id]
	if !ok {
		return ErrNotFound
	}
	incident := append(append([]value.EdgeID{}, m.out[id]...), m.in[id]...)
	if len(incident) > 0 && !detach {
		return ErrConstraintViolation
	}
	for _, eid := range incident {
		m.removeEdgeLocked(eid)
	}
	if ord, ok := m.ordinal[id]; ok {
		for _, label := range node.Labels {
			if bm, ok := m.labelIndex[label]; ok {
				bm.Remove(ord)
			}
		}
	}
	delete(m.nodes, id)
	delete(m.out, id)
	delete(m.in, id)
	m.nodeOrder = removeNodeID(m.nodeOrder, id)
	m.recomputeStatsLocked()
	return nil
}

func removeNodeID(ids []value.NodeID, target value.NodeID) []value.NodeID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

func (m *MemoryEngine) RemoveEdge(id value.EdgeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.edges[id]; !ok {
		return ErrNotFound
	}
	m.removeEdgeLocked(id)
	m.recomputeStatsLocked()
	return nil
}

// removeEdgeLocked assumes mu is already held.
func (m *MemoryEngine) removeEdgeLocked(id value.EdgeID) {
	edge, ok := m.edges[id]
	if !ok {
		return
	}
	m.out[edge.StartNode] = removeEdgeID(m.out[edge.StartNode], id)
	m.in[edge.EndNode] = removeEdgeID(m.in[edge.EndNode], id)
	delete(m.edges, id)
	m.edgeOrder = removeEdgeID(m.edgeOrder, id)
}

func removeEdgeID(ids []value.EdgeID, target value.EdgeID) []value.EdgeID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

func (m *MemoryEngine) GetNodesByLabel(label string) []*value.Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bm, ok := m.labelIndex[label]
	if !ok {
		return nil
	}
	ordToID := make(map[uint32]value.NodeID, len(m.ordinal))
	for id, ord := range m.ordinal {
		ordToID[ord] = id
	}
	result := make([]*value.Node, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		ord := it.Next()
		if id, ok := ordToID[ord]; ok {
			if n, ok := m.nodes[id]; ok {
				result = append(result, n)
			}
		}
	}
	return result
}

func (m *MemoryEngine) Outgoing(id value.NodeID) []*value.Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.out[id]
	result := make([]*value.Edge, 0, len(ids))
	for _, eid := range ids {
		if e, ok := m.edges[eid]; ok {
			result = append(result, e)
		}
	}
	return result
}

func (m *MemoryEngine) Incoming(id value.NodeID) []*value.Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.in[id]
	result := make([]*value.Edge, 0, len(ids))
	for _, eid := range ids {
		if e, ok := m.edges[eid]; ok {
			result = append(result, e)
		}
	}
	return result
}

func (m *MemoryEngine) AllNodes() []*value.Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*value.Node, 0, len(m.nodes))
	for _, id := range m.nodeOrder {
		if n, ok := m.nodes[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

func (m *MemoryEngine) AllEdges() []*value.Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*value.Edge, 0, len(m.edges))
	for _, id := range m.edgeOrder {
		if e, ok := m.edges[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

func (m *MemoryEngine) Statistics() *Statistics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats.Clone()
}

// recomputeStatsLocked rebuilds aggregate counts from scratch. Assumes mu is
// held for writing. The graph sizes this engine targets (embedded, per-process)
// make a full recompute on every mutation cheap enough to skip incremental
// bookkeeping and its attendant bugs.
func (m *MemoryEngine) recomputeStatsLocked() {
	s := &Statistics{
		NodeCountsByLabel: make(map[string]int64),
		EdgeCountsByType:  make(map[string]int64),
		AvgDegreeByType:   make(map[string]float64),
		LastUpdated:       time.Now(),
	}
	s.TotalNodes = int64(len(m.nodes))
	s.TotalEdges = int64(len(m.edges))
	for label, bm := range m.labelIndex {
		s.NodeCountsByLabel[label] = int64(bm.GetCardinality())
	}
	typeOutDegreeSum := make(map[string]int64)
	typeSourceCount := make(map[string]int64)
	seenSourcesByType := make(map[string]map[value.NodeID]bool)
	for _, e := range m.edges {
		typeOutDegreeSum[e.Type]++
		if seenSourcesByType[e.Type] == nil {
			seenSourcesByType[e.Type] = make(map[value.NodeID]bool)
		}
		if !seenSourcesByType[e.Type][e.StartNode] {
			seenSourcesByType[e.Type][e.StartNode] = true
			typeSourceCount[e.Type]++
		}
	}
	for relType, total := range typeOutDegreeSum {
		sources := typeSourceCount[relType]
		if sources == 0 {
			continue
		}
		s.AvgDegreeByType[relType] = float64(total) / float64(sources)
		s.EdgeCountsByType[relType] = total
	}
	m.stats = s
}

func (m *MemoryEngine) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	nodes := make(map[value.NodeID]*value.Node, len(m.nodes))
	for id, n := range m.nodes {
		nodes[id] = cloneNode(n)
	}
	edges := make(map[value.EdgeID]*value.Edge, len(m.edges))
	for id, e := range m.edges {
		edges[id] = cloneEdge(e)
	}
	return &Snapshot{
		Nodes:      nodes,
		Edges:      edges,
		Statistics: m.stats.Clone(),
		NodeOrder:  append([]value.NodeID{}, m.nodeOrder...),
		EdgeOrder:  append([]value.EdgeID{}, m.edgeOrder...),
	}
}

func (m *MemoryEngine) Restore(s *Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = make(map[value.NodeID]*value.Node, len(s.Nodes))
	m.out = make(map[value.NodeID][]value.EdgeID)
	m.in = make(map[value.NodeID][]value.EdgeID)
	m.labelIndex = make(map[string]*roaring.Bitmap)
	m.ordinal = make(map[value.NodeID]uint32)
	m.nextOrdinal = 0

	nodeOrder := s.NodeOrder
	if nodeOrder == nil {
		nodeOrder = make([]value.NodeID, 0, len(s.Nodes))
		for id := range s.Nodes {
			nodeOrder = append(nodeOrder, id)
		}
	}
	m.nodeOrder = make([]value.NodeID, 0, len(nodeOrder))
	for _, id := range nodeOrder {
		n, ok := s.Nodes[id]
		if !ok {
			continue
		}
		m.nodes[id] = cloneNode(n)
		m.nodeOrder = append(m.nodeOrder, id)
		ord := m.ordinalFor(id)
		for _, label := range n.Labels {
			bm, ok := m.labelIndex[label]
			if !ok {
				bm = roaring.New()
				m.labelIndex[label] = bm
			}
			bm.Add(ord)
		}
	}

	edgeOrder := s.EdgeOrder
	if edgeOrder == nil {
		edgeOrder = make([]value.EdgeID, 0, len(s.Edges))
		for id := range s.Edges {
			edgeOrder = append(edgeOrder, id)
		}
	}
	m.edges = make(map[value.EdgeID]*value.Edge, len(s.Edges))
	m.edgeOrder = make([]value.EdgeID, 0, len(edgeOrder))
	for _, id := range edgeOrder {
		e, ok := s.Edges[id]
		if !ok {
			continue
		}
		m.edges[id] = cloneEdge(e)
		m.edgeOrder = append(m.edgeOrder, id)
		m.out[e.StartNode] = append(m.out[e.StartNode], id)
		m.in[e.EndNode] = append(m.in[e.EndNode], id)
	}
	// Restored statistics are authoritative (SPEC_FULL.md §14): trust the
	// snapshot's counts rather than recomputing, so a restore after a large
	// rollback is O(nodes+edges) instead of paying for a second full pass.
	m.stats = s.Statistics.Clone()
}

func (m *MemoryEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func cloneNode(n *value.Node) *value.Node {
	labels := append([]string{}, n.Labels...)
	props := make(map[string]value.Value, len(n.Properties))
	for k, v := range n.Properties {
		props[k] = v
	}
	return &value.Node{ID: n.ID, Labels: labels, Properties: props}
}

func cloneEdge(e *value.Edge) *value.Edge {
	props := make(map[string]value.Value, len(e.Properties))
	for k, v := range e.Properties {
		props[k] = v
	}
	return &value.Edge{ID: e.ID, StartNode: e.StartNode, EndNode: e.EndNode, Type: e.Type, Properties: props}
}

var _ Engine = (*MemoryEngine)(nil)
