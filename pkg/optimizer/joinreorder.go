package optimizer

import (
	"github.com/corvid-graph/corvid/pkg/graph"
	"github.com/corvid-graph/corvid/pkg/planner"
)

// joinReorder is pass 2 (spec §4.5): within each maximal run of
// ScanNodes/ExpandEdges operators, enumerate orderings consistent with the
// dependency constraint (an expand must follow whatever bound its source
// variable) and pick the minimum estimated-cost ordering, capping full
// enumeration at budget permutations and falling back to a greedy
// smallest-cardinality-first heuristic beyond it.
func joinReorder(ops []planner.Operator, stats *graph.Statistics, budget int) []planner.Operator {
	return segments(ops, func(run []planner.Operator) []planner.Operator {
		return joinReorderRun(run, stats, budget)
	})
}

type joinItem struct {
	op       planner.Operator
	requires string // "" if no dependency; else the variable that must already be bound
	binds    []string
	cost     float64
}

func joinReorderRun(ops []planner.Operator, stats *graph.Statistics, budget int) []planner.Operator {
	var out []planner.Operator
	var block []joinItem

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		ordered := reorderBlock(block, budget)
		for _, it := range ordered {
			out = append(out, it.op)
		}
		block = nil
	}

	for _, op := range ops {
		item, ok := joinableItem(op, stats)
		if !ok {
			flushBlock()
			out = append(out, op)
			continue
		}
		block = append(block, item)
	}
	flushBlock()
	return out
}

func joinableItem(op planner.Operator, stats *graph.Statistics) (joinItem, bool) {
	switch o := op.(type) {
	case planner.ScanNodes:
		label := ""
		if len(o.Labels) > 0 {
			label = o.Labels[0]
		}
		return joinItem{op: op, binds: []string{o.Var}, cost: float64(stats.LabelCardinality(label)) + 1}, true
	case planner.ExpandEdges:
		relType := ""
		if len(o.Types) > 0 {
			relType = o.Types[0]
		}
		return joinItem{op: op, requires: o.SrcVar, binds: []string{o.DstVar}, cost: stats.TypeMeanOutDegree(relType) + 1}, true
	default:
		return joinItem{}, false
	}
}

// reorderBlock enumerates dependency-respecting orderings up to budget
// permutations; if the exhaustive search would exceed it, falls back to a
// greedy heuristic instead of running a partial, order-biased search.
func reorderBlock(items []joinItem, budget int) []joinItem {
	if len(items) <= 1 {
		return items
	}
	count := countValidOrderings(items, map[string]bool{}, make([]bool, len(items)), budget+1)
	if count > budget {
		return greedyOrder(items)
	}
	best, _ := searchBestOrder(items, map[string]bool{}, make([]bool, len(items)), nil, 1)
	return best
}

func countValidOrderings(items []joinItem, bound map[string]bool, used []bool, cap int) int {
	total := 0
	for i, it := range items {
		if used[i] || (it.requires != "" && !bound[it.requires]) {
			continue
		}
		used[i] = true
		newBound := cloneBoundSet(bound, it.binds)
		sub := countValidOrderings(items, newBound, used, cap)
		if sub == 0 {
			total++
		} else {
			total += sub
		}
		used[i] = false
		if total > cap {
			return total
		}
	}
	return total
}

func cloneBoundSet(bound map[string]bool, add []string) map[string]bool {
	out := make(map[string]bool, len(bound)+len(add))
	for k := range bound {
		out[k] = true
	}
	for _, a := range add {
		out[a] = true
	}
	return out
}

func searchBestOrder(items []joinItem, bound map[string]bool, used []bool, current []joinItem, runningCost float64) ([]joinItem, float64) {
	allUsed := true
	for _, u := range used {
		if !u {
			allUsed = false
			break
		}
	}
	if allUsed {
		out := make([]joinItem, len(current))
		copy(out, current)
		return out, runningCost
	}

	var best []joinItem
	bestCost := -1.0
	for i, it := range items {
		if used[i] || (it.requires != "" && !bound[it.requires]) {
			continue
		}
		used[i] = true
		newBound := cloneBoundSet(bound, it.binds)
		cand, cost := searchBestOrder(items, newBound, used, append(current, it), runningCost*it.cost)
		used[i] = false
		if cand != nil && (bestCost < 0 || cost < bestCost) {
			best = cand
			bestCost = cost
		}
	}
	return best, bestCost
}

// greedyOrder repeatedly picks the cheapest ready item (spec §4.5 pass 2's
// enumeration-cap fallback).
func greedyOrder(items []joinItem) []joinItem {
	used := make([]bool, len(items))
	bound := map[string]bool{}
	out := make([]joinItem, 0, len(items))
	for len(out) < len(items) {
		bestIdx := -1
		for i, it := range items {
			if used[i] || (it.requires != "" && !bound[it.requires]) {
				continue
			}
			if bestIdx == -1 || it.cost < items[bestIdx].cost {
				bestIdx = i
			}
		}
		if bestIdx == -1 {
			// No ready item (a dependency cycle shouldn't occur from valid
			// planning output); emit remaining items in original order.
			for i, it := range items {
				if !used[i] {
					out = append(out, it)
				}
			}
			break
		}
		used[bestIdx] = true
		for _, b := range items[bestIdx].binds {
			bound[b] = true
		}
		out = append(out, items[bestIdx])
	}
	return out
}
