// Package optimizer rewrites a planner.Operator pipeline against a
// statistics snapshot, applying the five ordered, individually toggleable
// passes of spec §4.5. Every pass is required to be meaning-preserving in
// isolation and in any enabled subset — passes only reorder or fuse
// operators, never change which rows a query returns.
package optimizer

import (
	"github.com/corvid-graph/corvid/pkg/graph"
	"github.com/corvid-graph/corvid/pkg/planner"
)

// Config toggles each pass independently and tunes the join-reorder budget.
type Config struct {
	FilterPushdown            bool
	JoinReorder                bool
	PredicateReorder           bool
	RedundantTraversalElimination bool
	AggregatePushdown          bool

	// JoinReorderBudget caps the number of orderings enumerated before
	// falling back to the greedy smallest-cardinality-first heuristic
	// (spec §4.5 pass 2). Zero means the default of 1000.
	JoinReorderBudget int
}

// DefaultConfig enables every pass with the spec's default budget.
func DefaultConfig() Config {
	return Config{
		FilterPushdown:                 true,
		JoinReorder:                    true,
		PredicateReorder:               true,
		RedundantTraversalElimination:  true,
		AggregatePushdown:              true,
		JoinReorderBudget:              1000,
	}
}

// Optimize applies the enabled passes, in spec order, to ops. stats may be
// nil, in which case the join-reorder pass is skipped regardless of its
// toggle (spec §4.5: "when statistics are available").
func Optimize(ops []planner.Operator, stats *graph.Statistics, cfg Config) []planner.Operator {
	if cfg.JoinReorderBudget <= 0 {
		cfg.JoinReorderBudget = 1000
	}
	out := ops
	if cfg.FilterPushdown {
		out = filterPushdown(out)
	}
	if cfg.JoinReorder && stats != nil {
		out = joinReorder(out, stats, cfg.JoinReorderBudget)
	}
	if cfg.PredicateReorder {
		out = predicateReorder(out, stats)
	}
	if cfg.RedundantTraversalElimination {
		out = eliminateRedundantTraversals(out)
	}
	if cfg.AggregatePushdown {
		out = aggregatePushdown(out)
	}
	return out
}

// isPipelineBoundary reports whether an operator terminates a planning
// segment; passes must never cross it (spec §4.5).
func isPipelineBoundary(op planner.Operator) bool {
	switch op.(type) {
	case planner.With, planner.Union, planner.Subquery:
		return true
	default:
		return false
	}
}

// isMutation reports whether an operator mutates the graph; join reorder
// must never move scans/expands across one (spec §4.5 pass 2).
func isMutation(op planner.Operator) bool {
	switch op.(type) {
	case planner.Create, planner.Set, planner.Delete, planner.Merge, planner.Remove:
		return true
	default:
		return false
	}
}

// segments splits ops into runs delimited by pipeline boundaries, applying
// fn to each run and leaving boundary operators untouched in place.
func segments(ops []planner.Operator, fn func([]planner.Operator) []planner.Operator) []planner.Operator {
	var out []planner.Operator
	var run []planner.Operator
	flush := func() {
		out = append(out, fn(run)...)
		run = nil
	}
	for _, op := range ops {
		if isPipelineBoundary(op) {
			flush()
			out = append(out, op)
			continue
		}
		run = append(run, op)
	}
	flush()
	return out
}
