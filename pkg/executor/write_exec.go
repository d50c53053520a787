package executor

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/corvid-graph/corvid/pkg/ast"
	"github.com/corvid-graph/corvid/pkg/graph"
	"github.com/corvid-graph/corvid/pkg/planner"
	"github.com/corvid-graph/corvid/pkg/value"
)

func newNodeID() value.NodeID { return value.NodeID(uuid.NewString()) }
func newEdgeID() value.EdgeID { return value.EdgeID(uuid.NewString()) }

func evalPropertyMap(ex *Executor, exprs map[string]ast.Expression, row Row) (map[string]value.Value, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	props := make(map[string]value.Value, len(exprs))
	for k, e := range exprs {
		v, err := ex.eval(e, row)
		if err != nil {
			return nil, err
		}
		if v.IsNull() {
			continue // NULL property values are not stored
		}
		props[k] = v
	}
	return props, nil
}

// execCreate instantiates every node and relationship in each CREATE
// pattern for every input row, binding fresh variables into the row as it
// goes (spec §4.7 "CREATE new nodes/relationships"). A pattern variable
// already bound by a preceding clause (e.g. `MATCH (a) CREATE (a)-[:R]->(b)`)
// is reused rather than re-created.
func (ex *Executor) execCreate(op planner.Create, rows []Row) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		next := row.clone()
		for _, pattern := range op.Patterns {
			if err := ex.createPattern(pattern, next); err != nil {
				return nil, err
			}
		}
		out = append(out, next)
	}
	return out, nil
}

func (ex *Executor) createPattern(p planner.CreatePattern, row Row) error {
	for _, cn := range p.Nodes {
		if _, bound := row[cn.Var]; bound {
			continue
		}
		n, err := ex.createNode(cn, row)
		if err != nil {
			return err
		}
		row[cn.Var] = value.NewNode(n)
	}
	for _, cr := range p.Rels {
		e, err := ex.createRel(cr, row)
		if err != nil {
			return err
		}
		if cr.Var != "" {
			row[cr.Var] = value.NewEdge(e)
		}
	}
	return nil
}

func (ex *Executor) createNode(cn planner.CreateNode, row Row) (*value.Node, error) {
	props, err := evalPropertyMap(ex, cn.Properties, row)
	if err != nil {
		return nil, err
	}
	n := &value.Node{ID: newNodeID(), Labels: append([]string{}, cn.Labels...), Properties: props}
	if err := ex.g.AddNode(n); err != nil {
		return nil, err
	}
	return n, nil
}

func (ex *Executor) createRel(cr planner.CreateRel, row Row) (*value.Edge, error) {
	srcVal, ok := row[cr.SrcVar]
	if !ok || srcVal.Kind() != value.KindNode {
		return nil, fmt.Errorf("%w: CREATE relationship endpoint %q not bound", ErrTypeError, cr.SrcVar)
	}
	dstVal, ok := row[cr.DstVar]
	if !ok || dstVal.Kind() != value.KindNode {
		return nil, fmt.Errorf("%w: CREATE relationship endpoint %q not bound", ErrTypeError, cr.DstVar)
	}
	start, end := srcVal.AsNode().ID, dstVal.AsNode().ID
	if cr.Direction == planner.DirIn {
		start, end = end, start
	}
	props, err := evalPropertyMap(ex, cr.Properties, row)
	if err != nil {
		return nil, err
	}
	e := &value.Edge{ID: newEdgeID(), StartNode: start, EndNode: end, Type: cr.Type, Properties: props}
	if err := ex.g.AddEdge(e); err != nil {
		return nil, err
	}
	return e, nil
}

// execMerge matches the pattern against the current graph state and only
// creates what's missing, applying OnCreate or OnMatch SET items depending
// on whether op.MatchVar's entity was just created (spec §4.7 "MERGE
// matches or creates").
func (ex *Executor) execMerge(op planner.Merge, rows []Row) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		next := row.clone()
		created, err := ex.mergePattern(op.Pattern, op.MatchVar, next)
		if err != nil {
			return nil, err
		}
		items := op.OnMatch
		if created {
			items = op.OnCreate
		}
		if err := ex.applySetItems(items, next); err != nil {
			return nil, err
		}
		out = append(out, next)
	}
	return out, nil
}

// mergePattern returns whether the MatchVar entity was newly created.
func (ex *Executor) mergePattern(p planner.CreatePattern, matchVar string, row Row) (bool, error) {
	matchVarCreated := false
	for _, cn := range p.Nodes {
		if _, bound := row[cn.Var]; bound {
			continue
		}
		n, created, err := ex.matchOrCreateNode(cn, row)
		if err != nil {
			return false, err
		}
		row[cn.Var] = value.NewNode(n)
		if cn.Var == matchVar {
			matchVarCreated = created
		}
	}
	for _, cr := range p.Rels {
		e, created, err := ex.matchOrCreateRel(cr, row)
		if err != nil {
			return false, err
		}
		if cr.Var != "" {
			row[cr.Var] = value.NewEdge(e)
		}
		if cr.Var == matchVar {
			matchVarCreated = created
		}
	}
	return matchVarCreated, nil
}

func (ex *Executor) matchOrCreateNode(cn planner.CreateNode, row Row) (*value.Node, bool, error) {
	candidates := ex.candidateNodesForMerge(cn.Labels)
	for _, n := range candidates {
		matched, err := ex.nodeMatchesPattern(n, cn, row)
		if err != nil {
			return nil, false, err
		}
		if matched {
			return n, false, nil
		}
	}
	n, err := ex.createNode(cn, row)
	if err != nil {
		return nil, false, err
	}
	return n, true, nil
}

func (ex *Executor) candidateNodesForMerge(labels []string) []*value.Node {
	if len(labels) == 0 {
		return ex.g.AllNodes()
	}
	return ex.g.GetNodesByLabel(labels[0])
}

func (ex *Executor) nodeMatchesPattern(n *value.Node, cn planner.CreateNode, row Row) (bool, error) {
	for _, l := range cn.Labels {
		if !n.HasLabel(l) {
			return false, nil
		}
	}
	for key, expr := range cn.Properties {
		want, err := ex.eval(expr, row)
		if err != nil {
			return false, err
		}
		eq := value.Equals(n.Property(key), want)
		if eq.IsNull() || !eq.AsBool() {
			return false, nil
		}
	}
	return true, nil
}

func (ex *Executor) matchOrCreateRel(cr planner.CreateRel, row Row) (*value.Edge, bool, error) {
	srcVal, ok := row[cr.SrcVar]
	if !ok || srcVal.Kind() != value.KindNode {
		return nil, false, fmt.Errorf("%w: MERGE relationship endpoint %q not bound", ErrTypeError, cr.SrcVar)
	}
	dstVal, ok := row[cr.DstVar]
	if !ok || dstVal.Kind() != value.KindNode {
		return nil, false, fmt.Errorf("%w: MERGE relationship endpoint %q not bound", ErrTypeError, cr.DstVar)
	}
	src, dst := srcVal.AsNode(), dstVal.AsNode()

	types := []string{}
	if cr.Type != "" {
		types = []string{cr.Type}
	}
	for _, e := range ex.adjacentEdges(src.ID, types, cr.Direction) {
		if e.OtherEnd(src.ID) != dst.ID {
			continue
		}
		matched := true
		for key, expr := range cr.Properties {
			want, err := ex.eval(expr, row)
			if err != nil {
				return nil, false, err
			}
			eq := value.Equals(e.Property(key), want)
			if eq.IsNull() || !eq.AsBool() {
				matched = false
				break
			}
		}
		if matched {
			return e, false, nil
		}
	}
	e, err := ex.createRel(cr, row)
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// applySetItems implements both the standalone SET clause and MERGE's
// OnCreate/OnMatch item lists (spec §4.7). A NULL right-hand side on a
// property target removes the property, mirroring REMOVE.
func (ex *Executor) applySetItems(items []ast.SetItem, row Row) error {
	for _, item := range items {
		if len(item.Labels) > 0 {
			if err := ex.setLabels(item, row); err != nil {
				return err
			}
			continue
		}
		val, err := ex.eval(item.Value, row)
		if err != nil {
			return err
		}
		switch t := item.Target.(type) {
		case ast.PropertyAccess:
			if err := ex.setProperty(t, val, row); err != nil {
				return err
			}
		case ast.Variable:
			if err := ex.setWholeEntity(t, val, row); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unsupported SET target %T", ErrTypeError, item.Target)
		}
	}
	return nil
}

func (ex *Executor) setLabels(item ast.SetItem, row Row) error {
	v, ok := item.Target.(ast.Variable)
	if !ok {
		return fmt.Errorf("%w: SET label target must be a variable", ErrTypeError)
	}
	entity, ok := row[v.Name]
	if !ok || entity.Kind() != value.KindNode {
		return fmt.Errorf("%w: SET label on non-node %q", ErrTypeError, v.Name)
	}
	n, ok := ex.resolveNode(entity.AsNode().ID)
	if !ok {
		return fmt.Errorf("%w: node no longer exists", graph.ErrNotFound)
	}
	changed := false
	for _, l := range item.Labels {
		if !n.HasLabel(l) {
			n.Labels = append(n.Labels, l)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	// Label membership lives in the graph's label index, so after the new
	// labels are appended in place the node goes back through AddNode,
	// which re-indexes it.
	return ex.g.AddNode(n)
}

func (ex *Executor) resolveEntityProps(target ast.Expression, row Row) (map[string]value.Value, error) {
	entity, err := ex.eval(target, row)
	if err != nil {
		return nil, err
	}
	switch entity.Kind() {
	case value.KindNode:
		n, ok := ex.resolveNode(entity.AsNode().ID)
		if !ok {
			return nil, fmt.Errorf("%w: node no longer exists", graph.ErrNotFound)
		}
		if n.Properties == nil {
			n.Properties = map[string]value.Value{}
		}
		return n.Properties, nil
	case value.KindEdge:
		e, ok := ex.resolveEdge(entity.AsEdge().ID)
		if !ok {
			return nil, fmt.Errorf("%w: relationship no longer exists", graph.ErrNotFound)
		}
		if e.Properties == nil {
			e.Properties = map[string]value.Value{}
		}
		return e.Properties, nil
	default:
		return nil, fmt.Errorf("%w: SET property on %s", ErrTypeError, entity.Kind())
	}
}

func (ex *Executor) setProperty(p ast.PropertyAccess, val value.Value, row Row) error {
	props, err := ex.resolveEntityProps(p.Target, row)
	if err != nil {
		return err
	}
	if val.IsNull() {
		delete(props, p.Key)
		return nil
	}
	props[p.Key] = val
	return nil
}

// setWholeEntity implements `SET n = {...}`: the node/edge's property map is
// replaced outright by the given map (spec §4.7).
func (ex *Executor) setWholeEntity(v ast.Variable, val value.Value, row Row) error {
	if val.Kind() != value.KindMap {
		return fmt.Errorf("%w: SET n = ... requires a map", ErrTypeError)
	}
	entity, ok := row[v.Name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnboundVariable, v.Name)
	}
	replacement := make(map[string]value.Value, len(val.AsMap()))
	for k, pv := range val.AsMap() {
		replacement[k] = pv
	}
	switch entity.Kind() {
	case value.KindNode:
		n, ok := ex.resolveNode(entity.AsNode().ID)
		if !ok {
			return fmt.Errorf("%w: node no longer exists", graph.ErrNotFound)
		}
		n.Properties = replacement
	case value.KindEdge:
		e, ok := ex.resolveEdge(entity.AsEdge().ID)
		if !ok {
			return fmt.Errorf("%w: relationship no longer exists", graph.ErrNotFound)
		}
		e.Properties = replacement
	default:
		return fmt.Errorf("%w: SET on %s", ErrTypeError, entity.Kind())
	}
	return nil
}

func (ex *Executor) execSet(op planner.Set, rows []Row) ([]Row, error) {
	for _, row := range rows {
		if err := ex.applySetItems(op.Items, row); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// execRemove drops a property (Target set) or one or more labels (Var +
// Labels set) per item, per row (spec §4.7).
func (ex *Executor) execRemove(op planner.Remove, rows []Row) ([]Row, error) {
	for _, row := range rows {
		for _, item := range op.Items {
			if len(item.Labels) > 0 {
				if err := ex.removeLabels(item, row); err != nil {
					return nil, err
				}
				continue
			}
			pa, ok := item.Target.(ast.PropertyAccess)
			if !ok {
				return nil, fmt.Errorf("%w: REMOVE target must be a property", ErrTypeError)
			}
			props, err := ex.resolveEntityProps(pa.Target, row)
			if err != nil {
				return nil, err
			}
			delete(props, pa.Key)
		}
	}
	return rows, nil
}

func (ex *Executor) removeLabels(item ast.RemoveItem, row Row) error {
	entity, ok := row[item.Var]
	if !ok || entity.Kind() != value.KindNode {
		return fmt.Errorf("%w: REMOVE label on non-node %q", ErrTypeError, item.Var)
	}
	n, ok := ex.resolveNode(entity.AsNode().ID)
	if !ok {
		return fmt.Errorf("%w: node no longer exists", graph.ErrNotFound)
	}
	// Trim onto a replacement node, never the live pointer: AddNode clears
	// the old label index entries by reading the stored node's label set,
	// which must still be the pre-removal one when it does (spec §4.7:
	// removing a label replaces the node in the graph).
	kept := make([]string, 0, len(n.Labels))
	for _, existing := range n.Labels {
		removed := false
		for _, l := range item.Labels {
			if existing == l {
				removed = true
				break
			}
		}
		if !removed {
			kept = append(kept, existing)
		}
	}
	replacement := &value.Node{ID: n.ID, Labels: kept, Properties: n.Properties}
	if err := ex.g.AddNode(replacement); err != nil {
		return err
	}
	row[item.Var] = value.NewNode(replacement)
	return nil
}

// execDelete removes the bound nodes/relationships named by op.Vars from
// the graph (spec §4.7). Deleting a node with remaining incident edges
// fails unless Detach is set, in which case the engine detaches it first.
// An entity already removed by an earlier row in the same batch (a node
// bound twice via a non-distinct match) is treated as a no-op.
func (ex *Executor) execDelete(op planner.Delete, rows []Row) ([]Row, error) {
	for _, row := range rows {
		for _, v := range op.Vars {
			entity, ok := row[v]
			if !ok {
				continue
			}
			var err error
			switch entity.Kind() {
			case value.KindNode:
				err = ex.g.RemoveNode(entity.AsNode().ID, op.Detach)
			case value.KindEdge:
				err = ex.g.RemoveEdge(entity.AsEdge().ID)
			case value.KindNull:
			default:
				err = fmt.Errorf("%w: DELETE on %s", ErrTypeError, entity.Kind())
			}
			if errors.Is(err, graph.ErrConstraintViolation) {
				return nil, fmt.Errorf("%w: cannot delete %q while relationships remain (use DETACH DELETE)", ErrConstraintViolation, v)
			}
			if err != nil && !errors.Is(err, graph.ErrNotFound) {
				return nil, err
			}
		}
	}
	// Delete terminates the row stream (spec §4.7: zero output rows).
	return nil, nil
}
