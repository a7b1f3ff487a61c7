package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/ltiresp/internal/chart"
	"github.com/san-kum/ltiresp/internal/metrics"
	"github.com/san-kum/ltiresp/internal/sim"
)

// Analysis is the complete, all-or-nothing result of one request.
type Analysis struct {
	Name             string             `json:"name,omitempty"`
	TransferFunction string             `json:"transfer_function"`
	Numerator        []float64          `json:"numerator"`
	Denominator      []float64          `json:"denominator"`
	TimePoints       int                `json:"time_points"`
	TimeEnd          float64            `json:"time_end"`
	Stable           bool               `json:"stable"`
	Step             chart.ResponseData `json:"step_response"`
	Impulse          chart.ResponseData `json:"impulse_response"`
	Ramp             chart.ResponseData `json:"ramp_response"`
	StepInfo         metrics.StepInfo   `json:"step_info"`
	Methods          map[string]string  `json:"methods,omitempty"`
}

// Response returns the formatted response of one class.
func (a *Analysis) Response(class sim.InputClass) chart.ResponseData {
	switch class {
	case sim.Impulse:
		return a.Impulse
	case sim.Ramp:
		return a.Ramp
	default:
		return a.Step
	}
}

// Analyze simulates the three canonical responses of r concurrently and
// derives the step metrics. Any failure discards the whole result. ctx is
// checked between phases; a running simulation is never interrupted.
func (e *Engine) Analyze(ctx context.Context, r Request) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tf, ss, grid, err := e.prepare(r)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("realized transfer function", "tf", tf.String(), "order", ss.Order(), "points", len(grid))

	traces := make([]*sim.Trace, len(sim.Classes))
	g, gctx := errgroup.WithContext(ctx)
	for i, class := range sim.Classes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tr, err := e.sim.Run(ss, grid, class)
			if err != nil {
				return fmt.Errorf("%s response: %w", class, err)
			}
			traces[i] = tr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stable, err := ss.IsStable()
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		Name:             r.Name,
		TransferFunction: tf.String(),
		Numerator:        tf.Numerator(),
		Denominator:      tf.Denominator(),
		TimePoints:       len(grid),
		TimeEnd:          grid.End(),
		Stable:           stable,
		Methods:          make(map[string]string, len(traces)),
	}
	for _, tr := range traces {
		rd, err := chart.Format(tr)
		if err != nil {
			return nil, err
		}
		a.Methods[tr.Class.String()] = tr.Method
		switch tr.Class {
		case sim.Step:
			a.Step = rd
			if a.StepInfo, err = e.analyzer.Analyze(tr.Times, tr.Values); err != nil {
				return nil, err
			}
		case sim.Impulse:
			a.Impulse = rd
		case sim.Ramp:
			a.Ramp = rd
		}
	}
	return a, nil
}

// Simulate produces a single formatted response of r.
func (e *Engine) Simulate(ctx context.Context, r Request, class sim.InputClass) (chart.ResponseData, error) {
	if err := ctx.Err(); err != nil {
		return chart.ResponseData{}, err
	}
	_, ss, grid, err := e.prepare(r)
	if err != nil {
		return chart.ResponseData{}, err
	}
	tr, err := e.sim.Run(ss, grid, class)
	if err != nil {
		return chart.ResponseData{}, fmt.Errorf("%s response: %w", class, err)
	}
	return chart.Format(tr)
}

func (e *Engine) Step(ctx context.Context, r Request) (chart.ResponseData, error) {
	return e.Simulate(ctx, r, sim.Step)
}

func (e *Engine) Impulse(ctx context.Context, r Request) (chart.ResponseData, error) {
	return e.Simulate(ctx, r, sim.Impulse)
}

func (e *Engine) Ramp(ctx context.Context, r Request) (chart.ResponseData, error) {
	return e.Simulate(ctx, r, sim.Ramp)
}
