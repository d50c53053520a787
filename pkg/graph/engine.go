// Package graph is the graph store: adjacency lists, a label index, and
// live cardinality statistics, per spec §3 and §4.1; relationship types
// have no index of their own. Node and Edge themselves live in pkg/value (see that package's
// doc comment for why), so this package is purely about ownership,
// indexing, and traversal over those entities.
package graph

import "github.com/corvid-graph/corvid/pkg/value"

// Engine is the graph store's public contract (spec §4.1 table). A single
// Engine belongs to at most one in-flight query at a time; the embedding
// layer serializes queries (spec §5).
type Engine interface {
	AddNode(node *value.Node) error
	AddEdge(edge *value.Edge) error

	GetNode(id value.NodeID) (*value.Node, bool)
	GetEdge(id value.EdgeID) (*value.Edge, bool)

	// RemoveNode requires the node to have no incident edges unless detach
	// is true, in which case incident edges are removed first. Mirrors the
	// executor's Delete operator contract (spec §4.7).
	RemoveNode(id value.NodeID, detach bool) error
	RemoveEdge(id value.EdgeID) error

	GetNodesByLabel(label string) []*value.Node
	Outgoing(id value.NodeID) []*value.Edge
	Incoming(id value.NodeID) []*value.Edge

	AllNodes() []*value.Node
	AllEdges() []*value.Edge

	// Snapshot returns a deep copy of the current graph state, suitable for
	// transactional rollback (spec §3.4). Restore replaces the engine's
	// entire state with a previously captured Snapshot.
	Snapshot() *Snapshot
	Restore(s *Snapshot)

	Statistics() *Statistics

	Close() error
}

// Snapshot is an opaque deep copy of a graph's state. Its fields are
// exported only for the benefit of Engine implementations that need to
// construct one (MemoryEngine, BadgerEngine); callers of the public API
// treat it as opaque.
type Snapshot struct {
	Nodes      map[value.NodeID]*value.Node
	Edges      map[value.EdgeID]*value.Edge
	Statistics *Statistics

	// NodeOrder/EdgeOrder carry insertion order through snapshot/restore so
	// the ordering guarantees of spec §5 survive a rollback. Engines that
	// have no meaningful insertion order (BadgerEngine iterates key order)
	// may leave them nil.
	NodeOrder []value.NodeID
	EdgeOrder []value.EdgeID
}
