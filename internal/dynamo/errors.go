package dynamo

import (
	"errors"
	"fmt"
)

// Construction errors. All of them are fatal: a component that returns one
// must not be used.
var (
	// ErrSlipOrder indicates a momentum compaction expansion beyond second order.
	ErrSlipOrder = errors.New("dynamo: momentum compaction order above 2 is not supported")

	// ErrMomentum indicates a non-positive momentum or energy in a ramp.
	ErrMomentum = errors.New("dynamo: momentum and energy must be positive")

	// ErrSectionMismatch indicates per-section arrays of different lengths.
	ErrSectionMismatch = errors.New("dynamo: per-section arrays have mismatched lengths")

	// ErrParticleType indicates an unrecognized particle name.
	ErrParticleType = errors.New("dynamo: unrecognized particle type")

	// ErrDistribution indicates an unrecognized or invalid distribution request.
	ErrDistribution = errors.New("dynamo: invalid particle distribution")

	// ErrSlices indicates a non-positive number of slices.
	ErrSlices = errors.New("dynamo: number of slices must be positive")

	// ErrCuts indicates a slicing window with cut_left >= cut_right.
	ErrCuts = errors.New("dynamo: cut_left must be smaller than cut_right")

	// ErrInvalidParameter indicates any other parameter outside its valid range.
	ErrInvalidParameter = errors.New("dynamo: parameter out of valid bounds")

	// ErrUnstable indicates non-finite particle coordinates during tracking.
	ErrUnstable = errors.New("dynamo: tracking unstable (NaN or Inf in coordinates)")

	// ErrContextCanceled indicates the driver loop was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")
)

// SimulationError wraps an error with the turn and stage it happened in.
type SimulationError struct {
	Turn    int
	Stage   string
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("turn %d (%s): %v", e.Turn, e.Stage, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
