// Package executor runs an optimized operator pipeline (pkg/planner) over a
// graph.Engine, implementing the Cypher value semantics of spec §4.6–§4.7:
// NULL propagation, mixed numerics, temporals, points, paths, and
// collections. The executor is the only stage that mutates the graph.
package executor

import "errors"

// Runtime error sentinels, matching the behavioural taxonomy of spec §7.
// Compile-time failures are reported by pkg/planner's CompileError instead;
// everything here aborts a query already mid-execution.
var (
	ErrTypeError            = errors.New("executor: type error")
	ErrConstraintViolation  = errors.New("executor: constraint violation")
	ErrInvalidRangeStep     = errors.New("executor: RANGE step of zero")
	ErrInvalidTemporalUnit  = errors.New("executor: invalid temporal unit")
	ErrUnknownFunction      = errors.New("executor: unknown function")
	ErrAlreadyInTransaction = errors.New("executor: already in transaction")
	ErrNoTransaction        = errors.New("executor: no transaction in progress")
	ErrUnboundVariable      = errors.New("executor: variable not bound")
)
