package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrDimensionMismatch indicates mismatched state dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrBackendUnavailable indicates the requested compute backend cannot run here.
	ErrBackendUnavailable = errors.New("dynamo: compute backend unavailable")

	// ErrUnknownPass indicates a parallel-map pass that no program registered.
	ErrUnknownPass = errors.New("dynamo: unknown compute pass")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
