package executor

import (
	"github.com/corvid-graph/corvid/pkg/ast"
	"github.com/corvid-graph/corvid/pkg/planner"
	"github.com/corvid-graph/corvid/pkg/value"
)

// passesPredicate evaluates an optional inline predicate (nil means "no
// filter"); a non-boolean or NULL result excludes the row, matching the
// WHERE/inline-property-filter contract of spec §4.6.
func (ex *Executor) passesPredicate(pred ast.Expression, row Row) (bool, error) {
	if pred == nil {
		return true, nil
	}
	v, err := ex.eval(pred, row)
	if err != nil {
		return false, err
	}
	return !v.IsNull() && v.Kind() == value.KindBool && v.AsBool(), nil
}

func (ex *Executor) execScanNodes(s planner.ScanNodes, rows []Row, optional bool) ([]Row, error) {
	candidates := ex.candidateNodes(s.Labels)
	out := make([]Row, 0, len(rows)*len(candidates))
	for _, row := range rows {
		// An already-bound variable is validated, not re-enumerated: keep
		// the row when the bound node matches the labels and predicate,
		// drop it otherwise (or rebind to NULL under Optional).
		if existing, bound := row[s.Var]; bound && !existing.IsNull() {
			keep := existing.Kind() == value.KindNode
			if keep {
				n := existing.AsNode()
				for _, l := range s.Labels {
					if !n.HasLabel(l) {
						keep = false
						break
					}
				}
				if keep {
					ok, err := ex.passesPredicate(s.Predicate, row)
					if err != nil {
						return nil, err
					}
					keep = ok
				}
			}
			if keep {
				out = append(out, row)
			} else if optional {
				out = append(out, row.with(s.Var, value.Null))
			}
			continue
		}
		matched := false
		for _, n := range candidates {
			next := row.with(s.Var, value.NewNode(n))
			if s.PathVar != "" {
				next = next.with(s.PathVar, value.NewPath(&value.Path{Nodes: []*value.Node{n}}))
			}
			ok, err := ex.passesPredicate(s.Predicate, next)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			matched = true
			out = append(out, next)
		}
		if optional && !matched {
			out = append(out, row.with(s.Var, value.Null))
		}
	}
	return out, nil
}

func (ex *Executor) candidateNodes(labels []string) []*value.Node {
	if len(labels) == 0 {
		return ex.g.AllNodes()
	}
	// Scan via the first label's index; remaining labels are checked
	// in-memory for an inline multi-label pattern like (n:Person:Employee).
	best := ex.g.GetNodesByLabel(labels[0])
	if len(labels) == 1 {
		return best
	}
	out := make([]*value.Node, 0, len(best))
	for _, n := range best {
		all := true
		for _, l := range labels[1:] {
			if !n.HasLabel(l) {
				all = false
				break
			}
		}
		if all {
			out = append(out, n)
		}
	}
	return out
}

func (ex *Executor) execExpandEdges(op planner.ExpandEdges, rows []Row) ([]Row, error) {
	if op.AggHint != nil {
		return ex.execExpandEdgesAggregated(op, rows)
	}
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		srcVal, ok := row[op.SrcVar]
		if !ok || srcVal.Kind() != value.KindNode {
			continue
		}
		src := srcVal.AsNode()
		// An already-bound destination turns the expand into a join: only
		// edges landing on that exact node survive.
		var boundDst *value.Node
		if v, ok := row[op.DstVar]; ok && v.Kind() == value.KindNode {
			boundDst = v.AsNode()
		}
		for _, e := range ex.adjacentEdges(src.ID, op.Types, op.Direction) {
			dstID := e.OtherEnd(src.ID)
			if boundDst != nil && dstID != boundDst.ID {
				continue
			}
			dst, ok := ex.g.GetNode(dstID)
			if !ok {
				continue
			}
			next := row.clone()
			if op.EdgeVar != "" {
				next[op.EdgeVar] = value.NewEdge(e)
			}
			next[op.DstVar] = value.NewNode(dst)
			if op.PathVar != "" {
				next = extendPath(next, op.PathVar, row, src, e, dst)
			}
			matched, err := ex.passesPredicate(op.Predicate, next)
			if err != nil {
				return nil, err
			}
			if !matched {
				continue
			}
			out = append(out, next)
		}
	}
	return out, nil
}

func (ex *Executor) execOptionalExpandEdges(op planner.OptionalExpandEdges, rows []Row) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		srcVal, ok := row[op.SrcVar]
		if !ok || srcVal.Kind() != value.KindNode {
			out = append(out, row.with(op.DstVar, value.Null))
			continue
		}
		src := srcVal.AsNode()
		var boundDst *value.Node
		if v, ok := row[op.DstVar]; ok && v.Kind() == value.KindNode {
			boundDst = v.AsNode()
		}
		matched := false
		for _, e := range ex.adjacentEdges(src.ID, op.Types, op.Direction) {
			dstID := e.OtherEnd(src.ID)
			if boundDst != nil && dstID != boundDst.ID {
				continue
			}
			dst, ok := ex.g.GetNode(dstID)
			if !ok {
				continue
			}
			next := row.clone()
			if op.EdgeVar != "" {
				next[op.EdgeVar] = value.NewEdge(e)
			}
			next[op.DstVar] = value.NewNode(dst)
			if op.PathVar != "" {
				next = extendPath(next, op.PathVar, row, src, e, dst)
			}
			ok2, err := ex.passesPredicate(op.Predicate, next)
			if err != nil {
				return nil, err
			}
			if !ok2 {
				continue
			}
			matched = true
			out = append(out, next)
		}
		if !matched {
			next := row.with(op.DstVar, value.Null)
			if op.EdgeVar != "" {
				next = next.with(op.EdgeVar, value.Null)
			}
			out = append(out, next)
		}
	}
	return out, nil
}

func (ex *Executor) adjacentEdges(id value.NodeID, types []string, dir planner.Direction) []*value.Edge {
	var candidates []*value.Edge
	switch dir {
	case planner.DirOut:
		candidates = ex.g.Outgoing(id)
	case planner.DirIn:
		candidates = ex.g.Incoming(id)
	default:
		candidates = append(append([]*value.Edge{}, ex.g.Outgoing(id)...), ex.g.Incoming(id)...)
	}
	if len(types) == 0 {
		return candidates
	}
	out := make([]*value.Edge, 0, len(candidates))
	for _, e := range candidates {
		for _, t := range types {
			if e.Type == t {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func extendPath(next Row, pathVar string, row Row, src *value.Node, e *value.Edge, dst *value.Node) Row {
	var p value.Path
	if existing, ok := row[pathVar]; ok && existing.Kind() == value.KindPath {
		p = *existing.AsPath()
	} else {
		p = value.Path{Nodes: []*value.Node{src}}
	}
	p.Edges = append(append([]*value.Edge{}, p.Edges...), e)
	p.Nodes = append(append([]*value.Node{}, p.Nodes...), dst)
	next[pathVar] = value.NewPath(&p)
	return next
}

// execExpandVariableLength performs a depth-first traversal between
// MinHops and MaxHops, enforcing node-uniqueness within a single path to
// avoid infinite cycles (spec §4.7).
func (ex *Executor) execExpandVariableLength(op planner.ExpandVariableLength, rows []Row) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		srcVal, ok := row[op.SrcVar]
		if !ok || srcVal.Kind() != value.KindNode {
			continue
		}
		src := srcVal.AsNode()
		var walkErr error
		var walk func(current *value.Node, depth int, visited map[value.NodeID]bool, edges []*value.Edge, nodes []*value.Node)
		walk = func(current *value.Node, depth int, visited map[value.NodeID]bool, edges []*value.Edge, nodes []*value.Node) {
			if walkErr != nil {
				return
			}
			if depth >= op.MinHops {
				if err := ex.emitVarLengthRow(row, op, current, edges, nodes, &out); err != nil {
					walkErr = err
					return
				}
			}
			if depth >= op.MaxHops {
				return
			}
			for _, e := range ex.adjacentEdges(current.ID, op.Types, op.Direction) {
				nextID := e.OtherEnd(current.ID)
				if visited[nextID] {
					continue
				}
				next, ok := ex.g.GetNode(nextID)
				if !ok {
					continue
				}
				visited[nextID] = true
				walk(next, depth+1, visited, append(edges, e), append(nodes, next))
				delete(visited, nextID)
				if walkErr != nil {
					return
				}
			}
		}
		visited := map[value.NodeID]bool{src.ID: true}
		walk(src, 0, visited, nil, []*value.Node{src})
		if walkErr != nil {
			return nil, walkErr
		}
	}
	return out, nil
}

func (ex *Executor) emitVarLengthRow(row Row, op planner.ExpandVariableLength, end *value.Node, edges []*value.Edge, nodes []*value.Node, out *[]Row) error {
	next := row.clone()
	next[op.DstVar] = value.NewNode(end)
	if op.EdgeVar != "" {
		edgeVals := make([]value.Value, len(edges))
		for i, e := range edges {
			edgeVals[i] = value.NewEdge(e)
		}
		next[op.EdgeVar] = value.NewList(edgeVals)
	}
	if op.PathVar != "" {
		next[op.PathVar] = value.NewPath(&value.Path{
			Nodes: append([]*value.Node{}, nodes...),
			Edges: append([]*value.Edge{}, edges...),
		})
	}
	matched, err := ex.passesPredicate(op.Predicate, next)
	if err != nil {
		return err
	}
	if matched {
		*out = append(*out, next)
	}
	return nil
}

func (ex *Executor) execExpandMultiHop(op planner.ExpandMultiHop, rows []Row) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		srcVal, ok := row[op.SrcVar]
		if !ok || srcVal.Kind() != value.KindNode {
			continue
		}
		src := srcVal.AsNode()
		if err := ex.walkFixedHops(row, op, 0, src, nil, []*value.Node{src}, &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (ex *Executor) walkFixedHops(row Row, op planner.ExpandMultiHop, idx int, current *value.Node, edges []*value.Edge, nodes []*value.Node, out *[]Row) error {
	if idx == len(op.Hops) {
		next := row.clone()
		for i, hop := range op.Hops {
			next[hop.EdgeVar] = value.NewEdge(edges[i])
			next[hop.DstVar] = value.NewNode(nodes[i+1])
		}
		if op.PathVar != "" {
			next[op.PathVar] = value.NewPath(&value.Path{
				Nodes: append([]*value.Node{}, nodes...),
				Edges: append([]*value.Edge{}, edges...),
			})
		}
		for _, hop := range op.Hops {
			matched, err := ex.passesPredicate(hop.Predicate, next)
			if err != nil {
				return err
			}
			if !matched {
				return nil
			}
		}
		*out = append(*out, next)
		return nil
	}
	hop := op.Hops[idx]
	for _, e := range ex.adjacentEdges(current.ID, hop.Types, hop.Direction) {
		nextID := e.OtherEnd(current.ID)
		next, ok := ex.g.GetNode(nextID)
		if !ok {
			continue
		}
		if err := ex.walkFixedHops(row, op, idx+1, next, append(edges, e), append(nodes, next), out); err != nil {
			return err
		}
	}
	return nil
}
