package executor

import (
	"fmt"

	"github.com/corvid-graph/corvid/pkg/ast"
	"github.com/corvid-graph/corvid/pkg/planner"
	"github.com/corvid-graph/corvid/pkg/value"
)

// execUnion runs each UNION branch as its own independent pipeline (seeded
// with a single empty row, same as Execute does at the top level) and
// concatenates their results, aligning columns positionally since Cypher
// UNION matches branches by column order rather than alias (spec §4.7).
// Union is always the sole operator in its pipeline, so the incoming rows
// argument (the caller's seed row) is unused.
func (ex *Executor) execUnion(op planner.Union, _ []Row) ([]Row, []string, error) {
	var allRows []Row
	var columns []string
	for _, branch := range op.Branches {
		branchRows, branchCols, err := ex.runPipelineWithColumns(branch, Row{})
		if err != nil {
			return nil, nil, err
		}
		if columns == nil {
			columns = branchCols
		}
		for _, r := range branchRows {
			aligned := Row{}
			for i, col := range columns {
				if i < len(branchCols) {
					aligned[col] = r[branchCols[i]]
				}
			}
			allRows = append(allRows, aligned)
		}
	}
	if !op.All {
		var err error
		allRows, err = ex.execDistinct(allRows)
		if err != nil {
			return nil, nil, err
		}
	}
	return allRows, columns, nil
}

// runPipelineWithColumns executes an operator pipeline from a single seed
// row, returning the final row batch and the column list fixed by whichever
// operator last set one.
func (ex *Executor) runPipelineWithColumns(ops []planner.Operator, seed Row) ([]Row, []string, error) {
	rows := []Row{seed}
	var columns []string
	for _, op := range ops {
		next, cols, err := ex.step(op, rows)
		if err != nil {
			return nil, nil, err
		}
		rows = next
		if cols != nil {
			columns = cols
		}
	}
	return rows, columns, nil
}

// execSubqueryOperator runs a nested pipeline once per outer row (seeded
// with that row's bindings) and folds the result into op.ResultVar as
// either an existence boolean or a row count, mirroring the inline
// EXISTS{}/COUNT{} expression evaluator in eval.go for the clause form of a
// nested subquery (spec §4.7).
func (ex *Executor) execSubqueryOperator(op planner.Subquery, rows []Row) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		subRows, _, err := ex.runPipelineWithColumns(op.Pipeline, row.clone())
		if err != nil {
			return nil, err
		}
		next := row.clone()
		switch op.ExpressionType {
		case ast.SubqueryExists:
			next[op.ResultVar] = value.NewBool(len(subRows) > 0)
		case ast.SubqueryCount:
			next[op.ResultVar] = value.NewInt(int64(len(subRows)))
		default:
			return nil, fmt.Errorf("%w: unknown subquery expression type", ErrTypeError)
		}
		out = append(out, next)
	}
	return out, nil
}
