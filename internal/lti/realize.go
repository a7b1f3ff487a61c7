package lti

import (
	"fmt"
	"math/cmplx"
	"sort"

	"github.com/san-kum/ltiresp/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// StateSpace is the realization
//
//	x'(t) = A x(t) + B u(t)
//	y(t)  = C x(t) + D u(t)
//
// of a single-input single-output system. A zero-order system is a pure gain:
// A, B and C are nil and only D is meaningful.
type StateSpace struct {
	A *mat.Dense
	B *mat.VecDense
	C *mat.VecDense
	D float64
}

// Realize builds the controller-companion realization of tf. With the
// denominator normalized to s^n + a1 s^(n-1) + ... + an and the numerator
// padded to n+1 coefficients b0..bn, D = b0 and C holds the coefficients of
// the remainder N(s) - b0 D(s), lowest power first.
func Realize(tf TransferFunction) (*StateSpace, error) {
	if len(tf.den) == 0 || tf.den[0] == 0 {
		return nil, fmt.Errorf("realize %v: %w", tf.den, dynamo.ErrSingularSystem)
	}

	lead := tf.den[0]
	n := len(tf.den) - 1

	a := make([]float64, n+1)
	for i, d := range tf.den {
		a[i] = d / lead
	}
	b := make([]float64, n+1)
	offset := n + 1 - len(tf.num)
	for i, c := range tf.num {
		b[offset+i] = c / lead
	}

	ss := &StateSpace{D: b[0]}
	if n == 0 {
		return ss, nil
	}

	A := mat.NewDense(n, n, nil)
	for i := 0; i < n-1; i++ {
		A.Set(i, i+1, 1)
	}
	for j := 0; j < n; j++ {
		A.Set(n-1, j, -a[n-j])
	}

	B := mat.NewVecDense(n, nil)
	B.SetVec(n-1, 1)

	C := mat.NewVecDense(n, nil)
	for j := 0; j < n; j++ {
		k := n - j
		C.SetVec(j, b[k]-b[0]*a[k])
	}

	ss.A, ss.B, ss.C = A, B, C
	return ss, nil
}

// Order is the state dimension.
func (ss *StateSpace) Order() int {
	if ss.A == nil {
		return 0
	}
	r, _ := ss.A.Dims()
	return r
}

// Integrated returns the realization of H(s)/s: the state is augmented with
// q' = C x + D u and q becomes the only output.
func (ss *StateSpace) Integrated() *StateSpace {
	n := ss.Order()
	m := n + 1

	A := mat.NewDense(m, m, nil)
	B := mat.NewVecDense(m, nil)
	C := mat.NewVecDense(m, nil)
	if n > 0 {
		A.Slice(0, n, 0, n).(*mat.Dense).Copy(ss.A)
		for j := 0; j < n; j++ {
			A.Set(n, j, ss.C.AtVec(j))
			B.SetVec(j, ss.B.AtVec(j))
		}
	}
	B.SetVec(n, ss.D)
	C.SetVec(n, 1)

	return &StateSpace{A: A, B: B, C: C}
}

var _ dynamo.System = (*StateSpace)(nil)

// Derive implements dynamo.System with the first control channel as u.
func (ss *StateSpace) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	n := ss.Order()
	dx := make(dynamo.State, n)
	if n == 0 {
		return dx
	}
	in := 0.0
	if len(u) > 0 {
		in = u[0]
	}
	xv := mat.NewVecDense(n, x)
	out := mat.NewVecDense(n, dx)
	out.MulVec(ss.A, xv)
	out.AddScaledVec(out, in, ss.B)
	return dx
}

func (ss *StateSpace) StateDim() int   { return ss.Order() }
func (ss *StateSpace) ControlDim() int { return 1 }

// Output evaluates y = C x + D u.
func (ss *StateSpace) Output(x dynamo.State, u float64) float64 {
	y := ss.D * u
	for i, v := range x {
		y += ss.C.AtVec(i) * v
	}
	return y
}

// Poles returns the eigenvalues of A sorted by real part, then imaginary part.
func (ss *StateSpace) Poles() ([]complex128, error) {
	if ss.Order() == 0 {
		return nil, nil
	}
	var eig mat.Eigen
	if ok := eig.Factorize(ss.A, mat.EigenNone); !ok {
		return nil, fmt.Errorf("eigendecomposition did not converge: %w", dynamo.ErrSingularSystem)
	}
	poles := eig.Values(nil)
	sort.Slice(poles, func(i, j int) bool {
		if real(poles[i]) != real(poles[j]) {
			return real(poles[i]) < real(poles[j])
		}
		return imag(poles[i]) < imag(poles[j])
	})
	return poles, nil
}

// IsStable reports whether every pole lies strictly in the left half-plane.
func (ss *StateSpace) IsStable() (bool, error) {
	poles, err := ss.Poles()
	if err != nil {
		return false, err
	}
	for _, p := range poles {
		if real(p) >= 0 || cmplx.IsNaN(p) {
			return false, nil
		}
	}
	return true, nil
}
