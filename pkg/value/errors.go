package value

import "errors"

// Sentinel errors for the value system. These map to the "runtime type
// errors" and "runtime domain errors" taxonomy in the query engine spec:
// arithmetic/comparison/property-access failures are type errors, while
// malformed temporal units or out-of-range coordinates are domain errors.
var (
	ErrTypeMismatch    = errors.New("value: type mismatch")
	ErrNotNumeric      = errors.New("value: not numeric")
	ErrNotComparable   = errors.New("value: not comparable")
	ErrInvalidTemporal = errors.New("value: invalid temporal value")
	ErrInvalidUnit     = errors.New("value: invalid temporal unit")
	ErrInvalidPoint    = errors.New("value: invalid point coordinates")
	ErrNotAnEntity     = errors.New("value: property access on non-entity value")
)
