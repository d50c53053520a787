package executor

import (
	"github.com/corvid-graph/corvid/pkg/planner"
	"github.com/corvid-graph/corvid/pkg/value"
)

// accumulator folds one aggregate function's running state. COUNT/SUM keep
// a running scalar; MIN/MAX keep the running extreme; AVG keeps sum and
// count; COLLECT keeps the growing list. DISTINCT variants additionally
// dedup inputs via a seen-set of hash keys.
type accumulator struct {
	fn       string
	distinct bool
	seen     map[string]bool

	count int64
	sum   float64
	sumIsFloat bool
	min   value.Value
	max   value.Value
	haveMinMax bool
	list  []value.Value
}

func newAccumulator(fn string, distinct bool) *accumulator {
	a := &accumulator{fn: fn, distinct: distinct}
	if distinct {
		a.seen = map[string]bool{}
	}
	return a
}

func (a *accumulator) add(v value.Value) {
	if a.fn != "COUNT" && v.IsNull() {
		return
	}
	if a.distinct {
		key := value.HashKey(v)
		if a.seen[key] {
			return
		}
		a.seen[key] = true
	}
	switch a.fn {
	case "COUNT":
		if v.IsNull() {
			return
		}
		a.count++
	case "SUM", "AVG":
		if !v.IsNumeric() {
			return
		}
		a.count++
		if v.Kind() == value.KindFloat {
			a.sumIsFloat = true
		}
		a.sum += v.Float64()
	case "MIN":
		if !a.haveMinMax || value.CompareForOrder(v, a.min) < 0 {
			a.min = v
			a.haveMinMax = true
		}
	case "MAX":
		if !a.haveMinMax || value.CompareForOrder(v, a.max) > 0 {
			a.max = v
			a.haveMinMax = true
		}
	case "COLLECT":
		a.list = append(a.list, v)
	}
}

func (a *accumulator) addStar() {
	a.count++
}

func (a *accumulator) result() value.Value {
	switch a.fn {
	case "COUNT":
		return value.NewInt(a.count)
	case "SUM":
		if a.count == 0 {
			return value.Null
		}
		if a.sumIsFloat {
			return value.NewFloat(a.sum)
		}
		return value.NewInt(int64(a.sum))
	case "AVG":
		if a.count == 0 {
			return value.Null
		}
		return value.NewFloat(a.sum / float64(a.count))
	case "MIN":
		if !a.haveMinMax {
			return value.Null
		}
		return a.min
	case "MAX":
		if !a.haveMinMax {
			return value.Null
		}
		return a.max
	case "COLLECT":
		if a.list == nil {
			return value.NewList(nil)
		}
		return value.NewList(a.list)
	default:
		return value.Null
	}
}

// groupState carries one group's representative row (for the GROUP BY
// columns) plus each aggregate's accumulator.
type groupState struct {
	row  Row
	accs []*accumulator
}

func (ex *Executor) execAggregate(agg planner.Aggregate, rows []Row) ([]Row, []string, error) {
	groups := map[string]*groupState{}
	var order []string

	for _, row := range rows {
		keyVals := make([]value.Value, len(agg.GroupBy))
		groupRow := Row{}
		for i, item := range agg.GroupBy {
			v, err := ex.eval(item.Expr, row)
			if err != nil {
				return nil, nil, err
			}
			keyVals[i] = v
			groupRow[item.Alias] = v
		}
		key := value.HashKeyAll(keyVals)
		st, ok := groups[key]
		if !ok {
			st = &groupState{row: groupRow}
			for _, a := range agg.Aggregates {
				st.accs = append(st.accs, newAccumulator(a.Func, a.Distinct))
			}
			groups[key] = st
			order = append(order, key)
		}
		for i, a := range agg.Aggregates {
			if a.Arg == nil {
				st.accs[i].addStar()
				continue
			}
			v, err := ex.eval(a.Arg, row)
			if err != nil {
				return nil, nil, err
			}
			st.accs[i].add(v)
		}
	}

	// A bare aggregate with no GROUP BY over zero input rows still emits
	// exactly one row (COUNT = 0, COLLECT = [], SUM/AVG/MIN/MAX NULL), per
	// spec §4.7.
	if len(order) == 0 && len(agg.GroupBy) == 0 {
		st := &groupState{row: Row{}}
		for _, a := range agg.Aggregates {
			st.accs = append(st.accs, newAccumulator(a.Func, a.Distinct))
		}
		groups[""] = st
		order = append(order, "")
	}

	out := make([]Row, 0, len(order))
	for _, key := range order {
		st := groups[key]
		row := st.row.clone()
		for i, a := range agg.Aggregates {
			row[a.Alias] = st.accs[i].result()
		}
		out = append(out, row)
	}

	columns := make([]string, 0, len(agg.GroupBy)+len(agg.Aggregates))
	for _, item := range agg.GroupBy {
		columns = append(columns, item.Alias)
	}
	for _, a := range agg.Aggregates {
		columns = append(columns, a.Alias)
	}
	if len(agg.ReturnItems) > 0 {
		columns = columns[:0]
		for _, item := range agg.ReturnItems {
			columns = append(columns, item.Alias)
		}
	}
	return out, columns, nil
}

// execExpandEdgesAggregated implements the optimizer's aggregate-pushdown
// pass (spec §4.5 pass 5): instead of materializing one row per traversed
// edge, it folds the aggregate incrementally while expanding, grouped by
// source node.
func (ex *Executor) execExpandEdgesAggregated(op planner.ExpandEdges, rows []Row) ([]Row, error) {
	hint := op.AggHint
	groups := map[string]*groupState{}
	var order []string

	for _, row := range rows {
		srcVal, ok := row[op.SrcVar]
		if !ok || srcVal.Kind() != value.KindNode {
			continue
		}
		src := srcVal.AsNode()

		keyVals := make([]value.Value, len(hint.GroupByAliases))
		groupRow := Row{}
		for i, alias := range hint.GroupByAliases {
			v, ok := row[alias]
			if !ok {
				v = value.Null
			}
			keyVals[i] = v
			groupRow[alias] = v
		}
		key := value.HashKeyAll(keyVals)

		for _, e := range ex.adjacentEdges(src.ID, op.Types, op.Direction) {
			dstID := e.OtherEnd(src.ID)
			dst, ok := ex.g.GetNode(dstID)
			if !ok {
				continue
			}
			next := row.clone()
			if op.EdgeVar != "" {
				next[op.EdgeVar] = value.NewEdge(e)
			}
			next[op.DstVar] = value.NewNode(dst)
			matched, err := ex.passesPredicate(op.Predicate, next)
			if err != nil {
				return nil, err
			}
			if !matched {
				continue
			}
			// A group comes into existence on its first matching edge, same
			// as the unfused pipeline, where a source with no traversed edge
			// never reaches the Aggregate.
			st, ok := groups[key]
			if !ok {
				st = &groupState{row: groupRow, accs: []*accumulator{newAccumulator(hint.Func, false)}}
				groups[key] = st
				order = append(order, key)
			}
			if hint.Expr == nil {
				st.accs[0].addStar()
				continue
			}
			v, err := ex.eval(hint.Expr, next)
			if err != nil {
				return nil, err
			}
			st.accs[0].add(v)
		}
	}

	out := make([]Row, 0, len(order))
	for _, key := range order {
		st := groups[key]
		row := st.row.clone()
		row[hint.ResultAlias] = st.accs[0].result()
		out = append(out, row)
	}
	return out, nil
}
