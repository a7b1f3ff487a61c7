package engine

import (
	"fmt"
	"math"

	"github.com/san-kum/ltiresp/internal/dynamo"
	"github.com/san-kum/ltiresp/internal/lti"
	"github.com/san-kum/ltiresp/internal/sim"
)

// Request describes one analysis. Coefficients are ordered from the highest
// power of s down to the constant term.
type Request struct {
	Name        string    `json:"name,omitempty" yaml:"name"`
	Numerator   []float64 `json:"numerator" yaml:"numerator"`
	Denominator []float64 `json:"denominator" yaml:"denominator"`
	TimePoints  int       `json:"time_points" yaml:"time_points"`
	TimeEnd     float64   `json:"time_end" yaml:"time_end"`
}

// Clamp bounds the grid of r to what the limits accept. Values below the
// lower bounds are raised to 1 point and minEnd seconds.
func (l Limits) Clamp(r Request, minEnd float64) Request {
	r.TimePoints = max(1, min(r.TimePoints, l.MaxTimePoints))
	if math.IsNaN(r.TimeEnd) {
		r.TimeEnd = minEnd
	}
	r.TimeEnd = max(minEnd, min(r.TimeEnd, l.MaxTimeEnd))
	return r
}

// prepare validates r against the limits and builds its realization and grid.
func (e *Engine) prepare(r Request) (lti.TransferFunction, *lti.StateSpace, sim.TimeGrid, error) {
	lim := e.cfg.Limits
	if r.TimePoints > lim.MaxTimePoints {
		return lti.TransferFunction{}, nil, nil, fmt.Errorf("time points %d above limit %d: %w",
			r.TimePoints, lim.MaxTimePoints, dynamo.ErrParameterBounds)
	}
	if r.TimeEnd > lim.MaxTimeEnd {
		return lti.TransferFunction{}, nil, nil, fmt.Errorf("time end %g above limit %g: %w",
			r.TimeEnd, lim.MaxTimeEnd, dynamo.ErrParameterBounds)
	}

	tf, err := lti.New(r.Numerator, r.Denominator, lim.MaxDegree)
	if err != nil {
		return lti.TransferFunction{}, nil, nil, err
	}
	grid, err := sim.Linspace(r.TimeEnd, r.TimePoints)
	if err != nil {
		return lti.TransferFunction{}, nil, nil, err
	}
	ss, err := lti.Realize(tf)
	if err != nil {
		return lti.TransferFunction{}, nil, nil, err
	}
	return tf, ss, grid, nil
}
