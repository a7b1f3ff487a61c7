package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/ltiresp/internal/dynamo"
)

// InputClass selects the canonical test input of a simulation.
type InputClass int

const (
	Impulse InputClass = iota
	Step
	Ramp
)

// Classes lists every input class in presentation order.
var Classes = []InputClass{Step, Impulse, Ramp}

func (c InputClass) String() string {
	switch c {
	case Impulse:
		return "impulse"
	case Step:
		return "step"
	case Ramp:
		return "ramp"
	default:
		return fmt.Sprintf("InputClass(%d)", int(c))
	}
}

// ParseInputClass is the inverse of InputClass.String.
func ParseInputClass(s string) (InputClass, error) {
	for _, c := range Classes {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown input class %q: %w", s, dynamo.ErrParameterBounds)
}

// InputFunc is the forcing signal u(t). It is sampled at the start of every
// grid interval and held constant across it.
type InputFunc func(t float64) float64

func UnitStep(float64) float64 { return 1 }
func NoInput(float64) float64  { return 0 }

// TimeGrid holds strictly increasing sample times starting at 0.
type TimeGrid []float64

// Linspace returns points uniformly spaced samples covering [0, end]. A
// single point yields the grid {0}.
func Linspace(end float64, points int) (TimeGrid, error) {
	if points < 1 {
		return nil, fmt.Errorf("time points %d: %w", points, dynamo.ErrParameterBounds)
	}
	if math.IsNaN(end) || math.IsInf(end, 0) || end <= 0 {
		return nil, fmt.Errorf("time end %v: %w", end, dynamo.ErrParameterBounds)
	}

	grid := make(TimeGrid, points)
	if points == 1 {
		return grid, nil
	}
	step := end / float64(points-1)
	for i := range grid {
		grid[i] = float64(i) * step
	}
	grid[points-1] = end
	return grid, nil
}

// End is the last sample time.
func (g TimeGrid) End() float64 {
	if len(g) == 0 {
		return 0
	}
	return g[len(g)-1]
}

// Trace is the sampled output of one simulation. Times and Values have the
// same length as the grid that produced them.
type Trace struct {
	Class  InputClass
	Method string
	Times  []float64
	Values []float64
}

func (tr *Trace) Len() int { return len(tr.Times) }

// Final returns the last amplitude.
func (tr *Trace) Final() float64 {
	if len(tr.Values) == 0 {
		return math.NaN()
	}
	return tr.Values[len(tr.Values)-1]
}

// Options tune the numerical core.
type Options struct {
	// DivergenceGuard is the largest amplitude accepted before the run is
	// reported as unstable.
	DivergenceGuard float64
	// ConditionLimit is the largest 1-norm condition number of A for which
	// the matrix-exponential discretization is used.
	ConditionLimit float64
	// MaxRK4Step caps the substep of the Runge-Kutta fallback.
	MaxRK4Step float64
	// MaxSubsteps caps the number of Runge-Kutta substeps per grid interval.
	MaxSubsteps int
}

func DefaultOptions() Options {
	return Options{
		DivergenceGuard: 1e12,
		ConditionLimit:  1e12,
		MaxRK4Step:      0.01,
		MaxSubsteps:     100000,
	}
}

func (o Options) Validate() error {
	if !(o.DivergenceGuard > 0) {
		return fmt.Errorf("divergence guard must be positive, got %g: %w", o.DivergenceGuard, dynamo.ErrParameterBounds)
	}
	if !(o.ConditionLimit >= 1) {
		return fmt.Errorf("condition limit must be at least 1, got %g: %w", o.ConditionLimit, dynamo.ErrParameterBounds)
	}
	if !(o.MaxRK4Step > 0) {
		return fmt.Errorf("rk4 step must be positive, got %g: %w", o.MaxRK4Step, dynamo.ErrParameterBounds)
	}
	if o.MaxSubsteps < 1 {
		return fmt.Errorf("rk4 substeps must be positive, got %d: %w", o.MaxSubsteps, dynamo.ErrParameterBounds)
	}
	return nil
}
