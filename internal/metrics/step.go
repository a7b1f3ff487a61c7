package metrics

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/ltiresp/internal/dynamo"
)

const (
	DefaultSettlingThreshold = 0.02
	// LegacySettlingThreshold backs SettlingTime5 and is always evaluated.
	LegacySettlingThreshold = 0.05
)

// DefaultThresholds returns the settling bands evaluated when none are configured.
func DefaultThresholds() []float64 {
	return []float64{DefaultSettlingThreshold, LegacySettlingThreshold}
}

// StepInfo summarizes a step response. Nil fields serialize as null and mean
// the quantity does not exist within the simulated horizon.
type StepInfo struct {
	SteadyStateValue *float64 `json:"SteadyStateValue" yaml:"steady_state_value"`
	RiseTime0To100   *float64 `json:"RiseTime_0_to_100" yaml:"rise_time_0_to_100"`
	SettlingTime5    *float64 `json:"SettlingTime5" yaml:"settling_time_5"`
	RiseTime         *float64 `json:"RiseTime" yaml:"rise_time"`
	SettlingTime     *float64 `json:"SettlingTime" yaml:"settling_time"`
	SettlingMin      *float64 `json:"SettlingMin" yaml:"settling_min"`
	SettlingMax      *float64 `json:"SettlingMax" yaml:"settling_max"`
	Overshoot        *float64 `json:"Overshoot" yaml:"overshoot"`
	Undershoot       *float64 `json:"Undershoot" yaml:"undershoot"`
	Peak             *float64 `json:"Peak" yaml:"peak"`
	PeakTime         *float64 `json:"PeakTime" yaml:"peak_time"`

	// Settling holds the settling time of every configured band, keyed by
	// the band as a fraction of the steady state.
	Settling map[float64]*float64 `json:"-" yaml:"-"`
}

// Keys lists the StepInfo fields in display order.
var Keys = []string{
	"SteadyStateValue",
	"RiseTime_0_to_100",
	"SettlingTime5",
	"RiseTime",
	"SettlingTime",
	"SettlingMin",
	"SettlingMax",
	"Overshoot",
	"Undershoot",
	"Peak",
	"PeakTime",
}

// Map returns the fields keyed as in Keys.
func (s StepInfo) Map() map[string]*float64 {
	return map[string]*float64{
		"SteadyStateValue":  s.SteadyStateValue,
		"RiseTime_0_to_100": s.RiseTime0To100,
		"SettlingTime5":     s.SettlingTime5,
		"RiseTime":          s.RiseTime,
		"SettlingTime":      s.SettlingTime,
		"SettlingMin":       s.SettlingMin,
		"SettlingMax":       s.SettlingMax,
		"Overshoot":         s.Overshoot,
		"Undershoot":        s.Undershoot,
		"Peak":              s.Peak,
		"PeakTime":          s.PeakTime,
	}
}

// Thresholds returns the configured settling bands in increasing order.
func (s StepInfo) Thresholds() []float64 {
	out := make([]float64, 0, len(s.Settling))
	for p := range s.Settling {
		out = append(out, p)
	}
	sort.Float64s(out)
	return out
}

// StepAnalyzer computes StepInfo. It is immutable and safe for concurrent use.
type StepAnalyzer struct {
	primary    float64
	thresholds []float64
}

// NewStepAnalyzer evaluates the given settling bands. The first band backs
// SettlingTime; the 5% band is always added for SettlingTime5.
func NewStepAnalyzer(thresholds ...float64) (*StepAnalyzer, error) {
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds()
	}
	seen := make(map[float64]bool, len(thresholds)+1)
	a := &StepAnalyzer{primary: thresholds[0]}
	bands := append(append([]float64(nil), thresholds...), LegacySettlingThreshold)
	for _, p := range bands {
		if !(p > 0 && p < 1) {
			return nil, fmt.Errorf("settling threshold %g outside (0, 1): %w", p, dynamo.ErrParameterBounds)
		}
		if !seen[p] {
			seen[p] = true
			a.thresholds = append(a.thresholds, p)
		}
	}
	return a, nil
}

// Analyze inspects a step response sampled at times.
func (a *StepAnalyzer) Analyze(times, values []float64) (StepInfo, error) {
	if len(times) != len(values) {
		return StepInfo{}, fmt.Errorf("%d times for %d samples: %w", len(times), len(values), dynamo.ErrDimensionMismatch)
	}
	if len(values) == 0 {
		return StepInfo{}, fmt.Errorf("empty response: %w", dynamo.ErrParameterBounds)
	}

	last := len(values) - 1
	yss := values[last]
	info := StepInfo{
		SteadyStateValue: ptr(yss),
		Settling:         make(map[float64]*float64, len(a.thresholds)),
	}
	for _, p := range a.thresholds {
		info.Settling[p] = nil
	}

	if yss == 0 {
		k := argmax(values, math.Abs)
		info.Peak = ptr(math.Abs(values[k]))
		info.PeakTime = ptr(times[k])
		return info, nil
	}

	// Work on the response normalized so that the steady state is positive.
	sign := 1.0
	if yss < 0 {
		sign = -1
	}
	norm := make([]float64, len(values))
	for i, v := range values {
		norm[i] = sign * v
	}
	ref := sign * yss

	if k0, k100 := firstAtLeast(norm, 0), firstAtLeast(norm, ref); reached(k0, last) && reached(k100, last) {
		info.RiseTime0To100 = ptr(times[k100] - times[k0])
	}

	k10, k90 := firstAtLeast(norm, 0.1*ref), firstAtLeast(norm, 0.9*ref)
	if reached(k10, last) && reached(k90, last) {
		info.RiseTime = ptr(times[k90] - times[k10])
	}
	if k90 >= 0 {
		lo, hi := values[k90], values[k90]
		for _, v := range values[k90:] {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		info.SettlingMin, info.SettlingMax = ptr(lo), ptr(hi)
	}

	for _, p := range a.thresholds {
		if k := settledFrom(norm, ref, p); reached(k, last) {
			info.Settling[p] = ptr(times[k])
		}
	}
	info.SettlingTime = info.Settling[a.primary]
	info.SettlingTime5 = info.Settling[LegacySettlingThreshold]

	kp := argmax(norm, func(v float64) float64 { return v })
	info.Peak = ptr(values[kp])
	info.PeakTime = ptr(times[kp])

	overshoot := 0.0
	if norm[kp] > ref {
		overshoot = 100 * (norm[kp] - ref) / ref
	}
	info.Overshoot = ptr(overshoot)

	undershoot := 0.0
	if lo := norm[argmax(norm, func(v float64) float64 { return -v })]; lo < 0 {
		undershoot = -100 * lo / ref
	}
	info.Undershoot = ptr(undershoot)

	return info, nil
}

// reached reports whether k is a hit strictly before the final sample. A
// single-sample trace counts its only sample.
func reached(k, last int) bool {
	return k >= 0 && (k < last || last == 0)
}

func firstAtLeast(y []float64, level float64) int {
	for i, v := range y {
		if v >= level {
			return i
		}
	}
	return -1
}

// settledFrom returns the first index after which every sample stays within
// p*ref of ref.
func settledFrom(y []float64, ref, p float64) int {
	band := p * ref
	for i := len(y) - 1; i >= 0; i-- {
		if math.Abs(y[i]-ref) > band {
			if i == len(y)-1 {
				return -1
			}
			return i + 1
		}
	}
	return 0
}

func argmax(y []float64, key func(float64) float64) int {
	best := 0
	for i := 1; i < len(y); i++ {
		if key(y[i]) > key(y[best]) {
			best = i
		}
	}
	return best
}

func ptr(v float64) *float64 { return &v }
