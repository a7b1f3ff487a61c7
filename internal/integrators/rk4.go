package integrators

import (
	"math"

	"github.com/san-kum/ltiresp/internal/dynamo"
)

// RK4 is the classical fixed-step fourth-order Runge-Kutta method. When
// MaxStep is positive, a requested step longer than MaxStep is split into
// equal substeps so the error stays bounded on coarse sample grids.
//
// RK4 keeps scratch buffers; use one instance per goroutine.
type RK4 struct {
	MaxStep float64

	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

var _ dynamo.Integrator = (*RK4)(nil)

func NewRK4(maxStep float64) *RK4 {
	return &RK4{MaxStep: maxStep}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

// Substeps returns how many substeps a step of length dt is split into.
func (r *RK4) Substeps(dt float64) int {
	if r.MaxStep <= 0 || dt <= r.MaxStep {
		return 1
	}
	return int(math.Ceil(dt / r.MaxStep))
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	r.ensureScratch(n)

	steps := r.Substeps(dt)
	h := dt / float64(steps)

	cur := x.Clone()
	for s := 0; s < steps; s++ {
		r.single(dyn, cur, u, t+float64(s)*h, h)
	}
	return cur
}

// single advances x in place by one classical RK4 step.
func (r *RK4) single(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, h float64) {
	n := len(x)

	copy(r.k1, dyn.Derive(x, u, t))

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + h*0.5*r.k1[i]
	}
	copy(r.k2, dyn.Derive(r.scratch, u, t+h*0.5))

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + h*0.5*r.k2[i]
	}
	copy(r.k3, dyn.Derive(r.scratch, u, t+h*0.5))

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + h*r.k3[i]
	}
	copy(r.k4, dyn.Derive(r.scratch, u, t+h))

	h6 := h / 6.0
	for i := 0; i < n; i++ {
		x[i] += h6 * (r.k1[i] + 2*r.k2[i] + 2*r.k3[i] + r.k4[i])
	}
}
