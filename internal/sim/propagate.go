package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/ltiresp/internal/dynamo"
	"github.com/san-kum/ltiresp/internal/integrators"
	"github.com/san-kum/ltiresp/internal/lti"
	"gonum.org/v1/gonum/mat"
)

const (
	methodStatic = "static"
	methodZOH    = "zoh-expm"
	methodRK4    = "rk4"
)

// propagator advances the state across one grid interval with u held constant.
type propagator interface {
	Advance(x dynamo.State, u, t, dt float64) (dynamo.State, error)
	Method() string
}

func newPropagator(sys *lti.StateSpace, opts Options) propagator {
	if sys.Order() == 0 {
		return static{}
	}
	if c := mat.Cond(sys.A, 1); c < opts.ConditionLimit {
		return &zoh{sys: sys}
	}
	return newRK4(sys, opts)
}

// static serves zero-order systems, which have no state to advance.
type static struct{}

func (static) Advance(x dynamo.State, u, t, dt float64) (dynamo.State, error) { return x, nil }
func (static) Method() string                                                 { return methodStatic }

// zoh is the exact zero-order-hold discretization
//
//	x[k+1] = e^(A dt) x[k] + Gamma u[k],  Gamma = integral_0^dt e^(A s) ds B
//
// Phi and Gamma are read off the exponential of the block matrix
// [[A, B], [0, 0]] dt, so A is never inverted and small-norm A keeps full
// precision. They are recomputed only when dt changes.
type zoh struct {
	sys   *lti.StateSpace
	dt    float64
	phi   *mat.Dense
	gamma *mat.VecDense
}

func (z *zoh) Method() string { return methodZOH }

func (z *zoh) prepare(dt float64) error {
	if z.phi != nil && math.Abs(dt-z.dt) <= 1e-12*math.Abs(dt) {
		return nil
	}
	n := z.sys.Order()

	m := mat.NewDense(n+1, n+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			m.Set(i, j, z.sys.A.At(i, j)*dt)
		}
		m.Set(i, n, z.sys.B.AtVec(i)*dt)
	}
	var em mat.Dense
	em.Exp(m)

	phi := mat.NewDense(n, n, nil)
	phi.Copy(em.Slice(0, n, 0, n))
	gamma := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		gamma.SetVec(i, em.At(i, n))
	}
	if !dynamo.State(phi.RawMatrix().Data).IsValid() || !dynamo.State(gamma.RawVector().Data).IsValid() {
		return fmt.Errorf("zero-order hold over dt=%g: %w", dt, dynamo.ErrSingularSystem)
	}

	z.dt, z.phi, z.gamma = dt, phi, gamma
	return nil
}

func (z *zoh) Advance(x dynamo.State, u, t, dt float64) (dynamo.State, error) {
	if err := z.prepare(dt); err != nil {
		return nil, err
	}
	n := z.sys.Order()
	next := make(dynamo.State, n)
	out := mat.NewVecDense(n, next)
	out.MulVec(z.phi, mat.NewVecDense(n, x.Clone()))
	out.AddScaledVec(out, u, z.gamma)
	return next, nil
}

// rk4 integrates singular or ill-conditioned systems with sub-stepped RK4.
// The substep is bounded by 1/||A||inf so that h|lambda| <= 1 for every
// eigenvalue, well inside the RK4 stability region.
type rk4 struct {
	sys         *lti.StateSpace
	integ       *integrators.RK4
	maxStep     float64
	maxSubsteps int
}

func newRK4(sys *lti.StateSpace, opts Options) *rk4 {
	h := opts.MaxRK4Step
	if nrm := mat.Norm(sys.A, math.Inf(1)); nrm > 0 && 1/nrm < h {
		h = 1 / nrm
	}
	return &rk4{
		sys:         sys,
		integ:       integrators.NewRK4(h),
		maxStep:     h,
		maxSubsteps: opts.MaxSubsteps,
	}
}

func (r *rk4) Method() string { return methodRK4 }

func (r *rk4) Advance(x dynamo.State, u, t, dt float64) (dynamo.State, error) {
	r.integ.MaxStep = math.Max(r.maxStep, dt/float64(r.maxSubsteps))
	return r.integ.Step(r.sys, x, dynamo.Control{u}, t, dt), nil
}
