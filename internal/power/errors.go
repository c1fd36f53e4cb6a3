package power

import "errors"

// Domain-specific errors for the persistence gateway.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrSchemaMissing is returned when the power tables have not been
	// created yet. This happens on first boot when the worker starts
	// before the schema initialisation has run; it is a recoverable
	// wait-and-retry condition, distinct from a genuine storage fault.
	ErrSchemaMissing = errors.New("power: schema not initialised")
)
