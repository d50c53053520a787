package value

// NodeID and EdgeID are opaque stable identifiers. The spec allows an
// identity to be "integer or string" (§3.1); callers that mint integer ids
// format them to decimal strings, same as the teacher's storage layer does
// with its NodeID/EdgeID string types.
type NodeID string
type EdgeID string

// Node is a graph vertex: a stable identity, an unordered label set, and a
// property map. Label set and properties are mutable under write operators;
// identity is not.
type Node struct {
	ID         NodeID
	Labels     []string
	Properties map[string]Value
}

// HasLabel reports whether the node carries the given label.
func (n *Node) HasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Property returns the value of a property, or Null if absent — property
// access never fails with "missing", per spec §4.6.
func (n *Node) Property(name string) Value {
	if n.Properties == nil {
		return Null
	}
	if v, ok := n.Properties[name]; ok {
		return v
	}
	return Null
}

// Edge is a directed graph relationship: a stable identity, a single
// relationship type, ordered endpoints, and a property map.
type Edge struct {
	ID         EdgeID
	StartNode  NodeID
	EndNode    NodeID
	Type       string
	Properties map[string]Value
}

// Property returns the value of a property, or Null if absent.
func (e *Edge) Property(name string) Value {
	if e.Properties == nil {
		return Null
	}
	if v, ok := e.Properties[name]; ok {
		return v
	}
	return Null
}

// OtherEnd returns the node id at the opposite end of the edge from the
// given node id. Used when assembling a Path in either traversal direction.
func (e *Edge) OtherEnd(from NodeID) NodeID {
	if e.StartNode == from {
		return e.EndNode
	}
	return e.StartNode
}

// Path is an alternating sequence of N nodes and N-1 edges, constructed
// during traversal and never stored. The invariant (edge i connects nodes i
// and i+1, in either orientation) is enforced by whoever builds the Path —
// ExpandEdges/ExpandVariableLength/ExpandMultiHop in the executor.
type Path struct {
	Nodes []*Node
	Edges []*Edge
}

// Length is the number of hops (edges) in the path.
func (p *Path) Length() int { return len(p.Edges) }
