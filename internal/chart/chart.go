// Package chart shapes sampled responses into the point-list form consumed by
// charting front ends.
package chart

import (
	"fmt"

	"github.com/san-kum/ltiresp/internal/dynamo"
	"github.com/san-kum/ltiresp/internal/sim"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Metadata struct {
	Length         int        `json:"length"`
	TimeRange      [2]float64 `json:"time_range"`
	AmplitudeRange [2]float64 `json:"amplitude_range"`
	// SettlingTime is the horizon of the trace, not a settling measurement.
	SettlingTime float64 `json:"settling_time"`
	FinalValue   float64 `json:"final_value"`
}

type ResponseData struct {
	Data     []Point  `json:"data"`
	Label    string   `json:"label"`
	Metadata Metadata `json:"metadata"`
}

// Label is the display label of a response class.
func Label(class sim.InputClass) string {
	switch class {
	case sim.Step:
		return "Step Response"
	case sim.Impulse:
		return "Impulse Response"
	case sim.Ramp:
		return "Ramp Response"
	default:
		return "Response"
	}
}

// Format converts a trace to ResponseData under its class label.
func Format(tr *sim.Trace) (ResponseData, error) {
	return FormatLabeled(tr.Times, tr.Values, Label(tr.Class))
}

func FormatLabeled(times, values []float64, label string) (ResponseData, error) {
	if len(times) != len(values) {
		return ResponseData{}, fmt.Errorf("%d times for %d samples: %w", len(times), len(values), dynamo.ErrDimensionMismatch)
	}
	if len(times) == 0 {
		return ResponseData{}, fmt.Errorf("empty response: %w", dynamo.ErrParameterBounds)
	}

	last := len(times) - 1
	data := make([]Point, len(times))
	lo, hi := values[0], values[0]
	for i := range times {
		data[i] = Point{X: times[i], Y: values[i]}
		if values[i] < lo {
			lo = values[i]
		}
		if values[i] > hi {
			hi = values[i]
		}
	}

	return ResponseData{
		Data:  data,
		Label: label,
		Metadata: Metadata{
			Length:         len(times),
			TimeRange:      [2]float64{times[0], times[last]},
			AmplitudeRange: [2]float64{lo, hi},
			SettlingTime:   times[last],
			FinalValue:     values[last],
		},
	}, nil
}

// Series splits the points back into time and amplitude slices.
func (r ResponseData) Series() (times, values []float64) {
	times = make([]float64, len(r.Data))
	values = make([]float64, len(r.Data))
	for i, p := range r.Data {
		times[i], values[i] = p.X, p.Y
	}
	return times, values
}
