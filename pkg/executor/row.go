package executor

import "github.com/corvid-graph/corvid/pkg/value"

// Row is a single row context: a variable-name to Value binding map. The
// executor carries a stream ([]Row) between operators rather than one row
// at a time — the batch-streaming model of spec §5, where each operator
// fully materializes its output before the next consumes it.
type Row map[string]value.Value

// clone returns a shallow copy, since downstream operators extend a row
// with new bindings but must never mutate a row another branch (e.g. a
// Union branch, or an unaffected earlier row) still holds a reference to.
func (r Row) clone() Row {
	out := make(Row, len(r)+2)
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (r Row) with(name string, v value.Value) Row {
	out := r.clone()
	out[name] = v
	return out
}

// ResultRow is a projected output row: column name to Value, in column
// order (spec §4.7's Project contract). Columns is kept alongside the map
// so column order survives even though Go maps are unordered.
type ResultRow struct {
	Columns []string
	Values  map[string]value.Value
}
