package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for transfer-function analysis.
var (
	// ErrImproperTransferFunction indicates a numerator of higher degree than
	// the denominator.
	ErrImproperTransferFunction = errors.New("dynamo: improper transfer function (numerator degree exceeds denominator degree)")

	// ErrDegreeExceeded indicates a polynomial longer than the configured maximum degree allows.
	ErrDegreeExceeded = errors.New("dynamo: polynomial degree exceeds configured maximum")

	// ErrSingularSystem indicates a denominator without a usable leading coefficient.
	ErrSingularSystem = errors.New("dynamo: singular system (zero leading denominator coefficient)")

	// ErrUnstableSimulation indicates an amplitude crossed the divergence guard.
	ErrUnstableSimulation = errors.New("dynamo: simulation unstable (amplitude diverged)")

	// ErrInvalidState indicates a state vector with NaN or Inf entries.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrDimensionMismatch indicates mismatched state/system dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")
)

// SimulationError wraps an error with the sample at which integration stopped.
type SimulationError struct {
	Step      int
	Time      float64
	Amplitude float64
	Wrapped   error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("%v at sample %d (t=%.4f, y=%g)", e.Wrapped, e.Step, e.Time, e.Amplitude)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
