package executor

import (
	"fmt"

	"github.com/corvid-graph/corvid/pkg/ast"
	"github.com/corvid-graph/corvid/pkg/planner"
	"github.com/corvid-graph/corvid/pkg/value"
)

// edgeStep records one hop a BFS frontier took to reach a node, so the
// shortest path (or every shortest path, for allShortestPaths) can be
// reconstructed by walking predecessors back to the source.
type edgeStep struct {
	from value.NodeID
	edge *value.Edge
}

// defaultShortestPathBound caps the search when the pattern gives no
// explicit hop limit, mirroring the variable-length traversal's need for
// a termination guarantee on dense graphs.
const defaultShortestPathBound = 15

// evalShortestPath implements shortestPath(...)/allShortestPaths(...) (spec
// §4.6, supplemented per SPEC_FULL.md §12) as a breadth-first search: BFS
// visits nodes in non-decreasing distance order, so the first time it
// reaches the target is already a shortest path, and finishing that same
// level collects every predecessor tied for shortest (needed for
// allShortestPaths).
func (c evalContext) evalShortestPath(sp ast.ShortestPathExpression, row Row) (value.Value, error) {
	fromVal, err := c.eval(sp.From, row)
	if err != nil {
		return value.Null, err
	}
	toVal, err := c.eval(sp.To, row)
	if err != nil {
		return value.Null, err
	}
	if fromVal.IsNull() || toVal.IsNull() {
		return value.Null, nil
	}
	if fromVal.Kind() != value.KindNode || toVal.Kind() != value.KindNode {
		return value.Null, fmt.Errorf("%w: shortestPath() requires two nodes", ErrTypeError)
	}
	fromID := fromVal.AsNode().ID
	toID := toVal.AsNode().ID

	maxHops := defaultShortestPathBound
	if sp.Rel.MaxHops != nil {
		maxHops = *sp.Rel.MaxHops
	}

	dist := map[value.NodeID]int{fromID: 0}
	preds := map[value.NodeID][]edgeStep{}
	currentLevel := []value.NodeID{fromID}
	found := fromID == toID

	for depth := 0; depth < maxHops && !found && len(currentLevel) > 0; depth++ {
		nextLevel := map[value.NodeID]bool{}
		for _, nid := range currentLevel {
			for _, e := range c.g.adjacentEdges(nid, sp.Rel.Types, planner.Direction(sp.Rel.Direction)) {
				other := e.OtherEnd(nid)
				if d, seen := dist[other]; !seen {
					dist[other] = depth + 1
					preds[other] = append(preds[other], edgeStep{from: nid, edge: e})
					nextLevel[other] = true
					if other == toID {
						found = true
					}
				} else if d == depth+1 {
					preds[other] = append(preds[other], edgeStep{from: nid, edge: e})
				}
			}
		}
		currentLevel = currentLevel[:0]
		for nid := range nextLevel {
			currentLevel = append(currentLevel, nid)
		}
	}

	if _, reached := dist[toID]; !reached {
		if !sp.All {
			return value.Null, nil
		}
		return value.NewList(nil), nil
	}

	paths := c.reconstructPaths(fromID, toID, preds)
	if !sp.All {
		if len(paths) == 0 {
			return value.Null, nil
		}
		return value.NewPath(paths[0]), nil
	}
	out := make([]value.Value, len(paths))
	for i, p := range paths {
		out[i] = value.NewPath(p)
	}
	return value.NewList(out), nil
}

// reconstructPaths walks preds backward from to to from, branching at every
// node with more than one equally-short predecessor. A single shortestPath()
// call only needs paths[0]; allShortestPaths() needs the full set.
func (c evalContext) reconstructPaths(from, to value.NodeID, preds map[value.NodeID][]edgeStep) []*value.Path {
	if from == to {
		node, ok := c.g.resolveNode(from)
		if !ok {
			return nil
		}
		return []*value.Path{{Nodes: []*value.Node{node}}}
	}

	var walk func(node value.NodeID) []*value.Path
	walk = func(node value.NodeID) []*value.Path {
		if node == from {
			n, ok := c.g.resolveNode(from)
			if !ok {
				return nil
			}
			return []*value.Path{{Nodes: []*value.Node{n}}}
		}
		var out []*value.Path
		for _, step := range preds[node] {
			prefixes := walk(step.from)
			dstNode, ok := c.g.resolveNode(node)
			if !ok {
				continue
			}
			for _, prefix := range prefixes {
				p := &value.Path{
					Nodes: append(append([]*value.Node{}, prefix.Nodes...), dstNode),
					Edges: append(append([]*value.Edge{}, prefix.Edges...), step.edge),
				}
				out = append(out, p)
			}
		}
		return out
	}
	return walk(to)
}
