package graph

import "errors"

// Sentinel errors for the graph store, matching the contract in spec §4.1.
var (
	ErrNotFound       = errors.New("graph: not found")
	ErrMissingEndpoint = errors.New("graph: missing endpoint")
	ErrAlreadyClosed  = errors.New("graph: already closed")
	ErrConstraintViolation = errors.New("graph: constraint violation")
)
