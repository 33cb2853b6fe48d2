package detector

import "errors"

var (
	// ErrInvalidConfig is returned when a Config breaks the detector invariants.
	ErrInvalidConfig = errors.New("invalid detector config")

	// ErrNonFiniteValue is returned by Observe for NaN and infinite input.
	ErrNonFiniteValue = errors.New("non-finite value")
)
