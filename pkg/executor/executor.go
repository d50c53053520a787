package executor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/corvid-graph/corvid/pkg/ast"
	"github.com/corvid-graph/corvid/pkg/graph"
	"github.com/corvid-graph/corvid/pkg/planner"
	"github.com/corvid-graph/corvid/pkg/value"
)

// Executor drives one operator pipeline against a graph.Engine. It is
// single-use: callers construct one per query (spec §5 — no concurrency
// inside a single query's execution).
type Executor struct {
	g      graph.Engine
	params map[string]value.Value
}

// New returns an Executor bound to the given graph and bind parameters
// (the `$name` query parameters of spec §4.6).
func New(g graph.Engine, params map[string]value.Value) *Executor {
	if params == nil {
		params = map[string]value.Value{}
	}
	return &Executor{g: g, params: params}
}

// Execute runs an optimized operator pipeline to completion, seeding it
// with a single empty row so that a bare `RETURN 1`-shaped pipeline still
// produces exactly one output row (spec §4.7).
func (ex *Executor) Execute(ops []planner.Operator) ([]ResultRow, error) {
	rows := []Row{{}}
	var columns []string
	for _, op := range ops {
		next, cols, err := ex.step(op, rows)
		if err != nil {
			return nil, err
		}
		rows = next
		if cols != nil {
			columns = cols
		}
	}
	if columns == nil {
		return nil, nil
	}
	return toResultRows(rows, columns), nil
}

// step dispatches one operator over the current row batch, returning the
// next batch and — for operators that fix a result's column set — the
// column list to report back to the caller.
func (ex *Executor) step(op planner.Operator, rows []Row) ([]Row, []string, error) {
	switch o := op.(type) {
	case planner.ScanNodes:
		out, err := ex.execScanNodes(o, rows, false)
		return out, nil, err
	case planner.OptionalScanNodes:
		out, err := ex.execScanNodes(planner.ScanNodes{Var: o.Var, Labels: o.Labels, Predicate: o.Predicate, PathVar: o.PathVar}, rows, true)
		return out, nil, err
	case planner.ExpandEdges:
		out, err := ex.execExpandEdges(o, rows)
		return out, nil, err
	case planner.OptionalExpandEdges:
		out, err := ex.execOptionalExpandEdges(o, rows)
		return out, nil, err
	case planner.ExpandVariableLength:
		out, err := ex.execExpandVariableLength(o, rows)
		return out, nil, err
	case planner.ExpandMultiHop:
		out, err := ex.execExpandMultiHop(o, rows)
		return out, nil, err
	case planner.Filter:
		out, err := ex.execFilter(o, rows)
		return out, nil, err
	case planner.Project:
		return ex.execProject(o, rows)
	case planner.With:
		return ex.execWith(o, rows)
	case planner.Sort:
		out, err := ex.execSort(o, rows)
		return out, nil, err
	case planner.Skip:
		out, err := ex.execSkip(o, rows)
		return out, nil, err
	case planner.Limit:
		out, err := ex.execLimit(o, rows)
		return out, nil, err
	case planner.Distinct:
		out, err := ex.execDistinct(rows)
		return out, nil, err
	case planner.Aggregate:
		return ex.execAggregate(o, rows)
	case planner.Unwind:
		out, err := ex.execUnwind(o, rows)
		return out, nil, err
	case planner.Create:
		out, err := ex.execCreate(o, rows)
		return out, nil, err
	case planner.Merge:
		out, err := ex.execMerge(o, rows)
		return out, nil, err
	case planner.Set:
		out, err := ex.execSet(o, rows)
		return out, nil, err
	case planner.Remove:
		out, err := ex.execRemove(o, rows)
		return out, nil, err
	case planner.Delete:
		out, err := ex.execDelete(o, rows)
		return out, nil, err
	case planner.Union:
		return ex.execUnion(o, rows)
	case planner.Subquery:
		out, err := ex.execSubqueryOperator(o, rows)
		return out, nil, err
	default:
		return nil, nil, fmt.Errorf("%w: unhandled operator %T", ErrTypeError, op)
	}
}

func (ex *Executor) eval(e ast.Expression, row Row) (value.Value, error) {
	if e == nil {
		return value.Null, nil
	}
	return Evaluate(e, row, ex)
}

// resolveNode/resolveEdge fetch the current, authoritative copy of an
// entity from the graph — Row-embedded Node/Edge values may be stale
// snapshots taken before a later Set/Remove in the same query.
func (ex *Executor) resolveNode(id value.NodeID) (*value.Node, bool) {
	return ex.g.GetNode(id)
}

func (ex *Executor) resolveEdge(id value.EdgeID) (*value.Edge, bool) {
	return ex.g.GetEdge(id)
}

func (ex *Executor) execFilter(f planner.Filter, rows []Row) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		v, err := ex.eval(f.Predicate, row)
		if err != nil {
			return nil, err
		}
		if !v.IsNull() && v.Kind() == value.KindBool && v.AsBool() {
			out = append(out, row)
		}
	}
	return out, nil
}

func (ex *Executor) execProject(p planner.Project, rows []Row) ([]Row, []string, error) {
	items := expandWildcardItems(p.Items, rows)
	out := make([]Row, 0, len(rows))
	columns := make([]string, 0, len(items))
	for _, item := range items {
		columns = append(columns, item.Alias)
	}
	for _, row := range rows {
		next := row.clone()
		for _, item := range items {
			v, err := ex.eval(item.Expr, row)
			if err != nil {
				return nil, nil, err
			}
			next[item.Alias] = v
		}
		out = append(out, next)
	}
	return out, columns, nil
}

// expandWildcardItems replaces each `*` item with one bare-Variable item per
// user-visible binding (synthetic __anon/__col names excluded), in sorted
// name order so the column set is deterministic.
func expandWildcardItems(items []planner.ProjectItem, rows []Row) []planner.ProjectItem {
	hasWildcard := false
	for _, it := range items {
		if it.Wildcard {
			hasWildcard = true
			break
		}
	}
	if !hasWildcard {
		return items
	}

	seen := map[string]bool{}
	for _, row := range rows {
		for name := range row {
			if strings.HasPrefix(name, "__") {
				continue
			}
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]planner.ProjectItem, 0, len(items)+len(names))
	for _, it := range items {
		if !it.Wildcard {
			out = append(out, it)
			continue
		}
		for _, n := range names {
			out = append(out, planner.ProjectItem{Expr: ast.Variable{Name: n}, Alias: n})
		}
	}
	return out
}

func (ex *Executor) execWith(w planner.With, rows []Row) ([]Row, []string, error) {
	w.Items = expandWildcardItems(w.Items, rows)
	projected := make([]Row, 0, len(rows))
	columns := make([]string, 0, len(w.Items))
	for _, item := range w.Items {
		columns = append(columns, item.Alias)
	}
	for _, row := range rows {
		next := Row{}
		for _, item := range w.Items {
			v, err := ex.eval(item.Expr, row)
			if err != nil {
				return nil, nil, err
			}
			next[item.Alias] = v
		}
		projected = append(projected, next)
	}
	if w.Where != nil {
		filtered := make([]Row, 0, len(projected))
		for _, row := range projected {
			v, err := ex.eval(w.Where, row)
			if err != nil {
				return nil, nil, err
			}
			if !v.IsNull() && v.Kind() == value.KindBool && v.AsBool() {
				filtered = append(filtered, row)
			}
		}
		projected = filtered
	}
	if w.Distinct {
		var err error
		projected, err = ex.execDistinct(projected)
		if err != nil {
			return nil, nil, err
		}
	}
	if len(w.Sort) > 0 {
		var err error
		projected, err = ex.execSort(planner.Sort{Items: w.Sort}, projected)
		if err != nil {
			return nil, nil, err
		}
	}
	if w.Skip != nil {
		var err error
		projected, err = ex.execSkip(planner.Skip{N: w.Skip}, projected)
		if err != nil {
			return nil, nil, err
		}
	}
	if w.Limit != nil {
		var err error
		projected, err = ex.execLimit(planner.Limit{N: w.Limit}, projected)
		if err != nil {
			return nil, nil, err
		}
	}
	return projected, columns, nil
}

// execSort is stable and multi-key. NULLs sort last in ascending order and
// first in descending order (spec §4.7), which is equivalent to always
// treating NULL as greater than any non-NULL value and only flipping the
// comparator's sign for non-NULL/non-NULL pairs.
func (ex *Executor) execSort(s planner.Sort, rows []Row) ([]Row, error) {
	working := rows
	if len(s.ReturnItems) > 0 {
		next := make([]Row, len(rows))
		for i, row := range rows {
			r := row.clone()
			for _, item := range s.ReturnItems {
				v, err := ex.eval(item.Expr, row)
				if err != nil {
					return nil, err
				}
				r[item.Alias] = v
			}
			next[i] = r
		}
		working = next
	}

	keys := make([][]value.Value, len(working))
	for i, row := range working {
		keyVals := make([]value.Value, len(s.Items))
		for j, item := range s.Items {
			v, err := ex.eval(item.Expr, row)
			if err != nil {
				return nil, err
			}
			keyVals[j] = v
		}
		keys[i] = keyVals
	}

	idx := make([]int, len(working))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		for k, item := range s.Items {
			cmp := value.CompareForOrder(keys[ia][k], keys[ib][k])
			if cmp == 0 {
				continue
			}
			if item.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	out := make([]Row, len(working))
	for i, j := range idx {
		out[i] = working[j]
	}
	return out, nil
}

func (ex *Executor) execSkip(s planner.Skip, rows []Row) ([]Row, error) {
	n, err := ex.intArg(s.N, nil)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		n = 0
	}
	if int(n) >= len(rows) {
		return nil, nil
	}
	return rows[n:], nil
}

func (ex *Executor) execLimit(l planner.Limit, rows []Row) ([]Row, error) {
	n, err := ex.intArg(l.N, nil)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		n = 0
	}
	if int(n) > len(rows) {
		return rows, nil
	}
	return rows[:n], nil
}

func (ex *Executor) intArg(e ast.Expression, row Row) (int64, error) {
	v, err := ex.eval(e, row)
	if err != nil {
		return 0, err
	}
	if v.Kind() != value.KindInt {
		return 0, fmt.Errorf("%w: expected an integer", ErrTypeError)
	}
	return v.AsInt(), nil
}

func (ex *Executor) execDistinct(rows []Row) ([]Row, error) {
	seen := make(map[string]bool, len(rows))
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		key := rowHashKey(row)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}
	return out, nil
}

func rowHashKey(row Row) string {
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)
	vals := make([]value.Value, len(names))
	for i, n := range names {
		vals[i] = row[n]
	}
	return value.HashKeyAll(vals) + "|" + fmt.Sprint(names)
}

func (ex *Executor) execUnwind(u planner.Unwind, rows []Row) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		v, err := ex.eval(u.Expr, row)
		if err != nil {
			return nil, err
		}
		if v.IsNull() {
			continue
		}
		if v.Kind() != value.KindList {
			out = append(out, row.with(u.Var, v))
			continue
		}
		for _, item := range v.AsList() {
			out = append(out, row.with(u.Var, item))
		}
	}
	return out, nil
}

func toResultRows(rows []Row, columns []string) []ResultRow {
	out := make([]ResultRow, len(rows))
	for i, row := range rows {
		vals := make(map[string]value.Value, len(columns))
		for _, c := range columns {
			vals[c] = row[c]
		}
		out[i] = ResultRow{Columns: columns, Values: vals}
	}
	return out
}

// runSubquery executes a nested clause list against a single enclosing row,
// for EXISTS{...}/COUNT{...} expressions (spec §4.6) and Subquery operators
// (spec §4.7). The outer row's bindings seed the subquery's initial row so
// inner clauses can reference outer variables.
func (ex *Executor) runSubquery(clauses []ast.Clause, outer Row) ([]Row, error) {
	ops, err := planner.Plan(&ast.Query{Clauses: clauses})
	if err != nil {
		return nil, err
	}
	rows := []Row{outer.clone()}
	for _, op := range ops {
		next, _, err := ex.step(op, rows)
		if err != nil {
			return nil, err
		}
		rows = next
	}
	return rows, nil
}
