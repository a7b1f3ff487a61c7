package config

import (
	"sort"

	"github.com/san-kum/ltiresp/internal/engine"
)

// Preset is a named transfer function with a grid that fits the default limits.
type Preset struct {
	Description string
	Numerator   []float64
	Denominator []float64
	TimePoints  int
	TimeEnd     float64
}

var Presets = map[string]*Preset{
	"example": {
		Description: "second-order underdamped, zeta 0.7, wn 4",
		Numerator:   []float64{16},
		Denominator: []float64{1, 5.6, 16},
		TimePoints:  50,
		TimeEnd:     5,
	},
	"first_order": {
		Description: "first-order lag, tau 1 s",
		Numerator:   []float64{1},
		Denominator: []float64{1, 1},
		TimePoints:  50,
		TimeEnd:     5,
	},
	"underdamped": {
		Description: "lightly damped second order, zeta 0.2, wn 2",
		Numerator:   []float64{4},
		Denominator: []float64{1, 0.8, 4},
		TimePoints:  100,
		TimeEnd:     5,
	},
	"overdamped": {
		Description: "real poles at -1 and -2",
		Numerator:   []float64{2},
		Denominator: []float64{1, 3, 2},
		TimePoints:  100,
		TimeEnd:     5,
	},
	"integrator": {
		Description: "pure integrator 1/s",
		Numerator:   []float64{1},
		Denominator: []float64{1, 0},
		TimePoints:  50,
		TimeEnd:     5,
	},
	"unit_gain": {
		Description: "static gain H(s) = 1",
		Numerator:   []float64{1},
		Denominator: []float64{1},
		TimePoints:  20,
		TimeEnd:     1,
	},
	"lead": {
		Description: "lead compensator (s + 1)/(0.1s + 1)",
		Numerator:   []float64{1, 1},
		Denominator: []float64{0.1, 1},
		TimePoints:  100,
		TimeEnd:     2,
	},
	"third_order": {
		Description: "poles at -1, -2 and -3",
		Numerator:   []float64{6},
		Denominator: []float64{1, 6, 11, 6},
		TimePoints:  100,
		TimeEnd:     5,
	},
	"non_minimum_phase": {
		Description: "right half-plane zero (1 - s)/(s + 1)^2",
		Numerator:   []float64{-1, 1},
		Denominator: []float64{1, 2, 1},
		TimePoints:  100,
		TimeEnd:     5,
	},
}

func GetPreset(name string) *Preset {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return p
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Request builds an engine request for the preset.
func (p *Preset) Request(name string) engine.Request {
	return engine.Request{
		Name:        name,
		Numerator:   append([]float64(nil), p.Numerator...),
		Denominator: append([]float64(nil), p.Denominator...),
		TimePoints:  p.TimePoints,
		TimeEnd:     p.TimeEnd,
	}
}
