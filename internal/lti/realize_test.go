package lti

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/san-kum/ltiresp/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// evalTF evaluates N(s)/D(s) directly from the coefficients.
func evalTF(num, den []float64, s complex128) complex128 {
	return horner(num, s) / horner(den, s)
}

func horner(c []float64, s complex128) complex128 {
	var acc complex128
	for _, v := range c {
		acc = acc*s + complex(v, 0)
	}
	return acc
}

// evalSS evaluates C (sI - A)^-1 B + D using a complex linear solve.
func evalSS(ss *StateSpace, s complex128) complex128 {
	n := ss.Order()
	if n == 0 {
		return complex(ss.D, 0)
	}
	// Gaussian elimination on (sI - A) x = B.
	x := make([]complex128, n)
	aug := make([][]complex128, n)
	for i := 0; i < n; i++ {
		aug[i] = make([]complex128, n+1)
		for j := 0; j < n; j++ {
			aug[i][j] = complex(-ss.A.At(i, j), 0)
		}
		aug[i][i] += s
		aug[i][n] = complex(ss.B.AtVec(i), 0)
	}
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if cmplx.Abs(aug[r][col]) > cmplx.Abs(aug[pivot][col]) {
				pivot = r
			}
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]
		for r := col + 1; r < n; r++ {
			f := aug[r][col] / aug[col][col]
			for c := col; c <= n; c++ {
				aug[r][c] -= f * aug[col][c]
			}
		}
	}
	for i := n - 1; i >= 0; i-- {
		sum := aug[i][n]
		for j := i + 1; j < n; j++ {
			sum -= aug[i][j] * x[j]
		}
		x[i] = sum / aug[i][i]
	}
	var y complex128
	for i := 0; i < n; i++ {
		y += complex(ss.C.AtVec(i), 0) * x[i]
	}
	return y + complex(ss.D, 0)
}

func TestRealize_ReproducesTransferFunction(t *testing.T) {
	tests := []struct {
		name     string
		num, den []float64
	}{
		{"first order", []float64{1}, []float64{1, 1}},
		{"underdamped", []float64{16}, []float64{1, 5.6, 16}},
		{"biproper lead", []float64{2, 3}, []float64{1, 4}},
		{"non-monic", []float64{1, 2, 3}, []float64{2, 3, 4, 5}},
		{"leading numerator zeros", []float64{0, 0, 1}, []float64{1, 3, 3, 1}},
		{"integrator", []float64{1}, []float64{1, 0}},
	}
	points := []complex128{complex(0.3, 0.7), complex(-2.5, 1), complex(1, -3), complex(10, 0)}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ss, err := Realize(MustNew(tt.num, tt.den))
			if err != nil {
				t.Fatalf("Realize failed: %v", err)
			}
			if ss.Order() != len(tt.den)-1 {
				t.Fatalf("order = %d, want %d", ss.Order(), len(tt.den)-1)
			}
			for _, s := range points {
				want := evalTF(tt.num, tt.den, s)
				got := evalSS(ss, s)
				if cmplx.Abs(got-want) > 1e-9*(1+cmplx.Abs(want)) {
					t.Errorf("H(%v): got %v, want %v", s, got, want)
				}
			}
		})
	}
}

func TestRealize_CompanionStructure(t *testing.T) {
	ss, err := Realize(MustNew([]float64{16}, []float64{2, 11.2, 32}))
	if err != nil {
		t.Fatalf("Realize failed: %v", err)
	}

	want := mat.NewDense(2, 2, []float64{
		0, 1,
		-16, -5.6,
	})
	if !mat.EqualApprox(ss.A, want, 1e-12) {
		t.Errorf("A = %v, want %v", mat.Formatted(ss.A), mat.Formatted(want))
	}
	if ss.B.AtVec(0) != 0 || ss.B.AtVec(1) != 1 {
		t.Errorf("B = %v, want [0 1]", mat.Formatted(ss.B))
	}
	if math.Abs(ss.C.AtVec(0)-8) > 1e-12 || ss.C.AtVec(1) != 0 {
		t.Errorf("C = %v, want [8 0]", mat.Formatted(ss.C))
	}
	if ss.D != 0 {
		t.Errorf("D = %v, want 0", ss.D)
	}
}

func TestRealize_StaticGain(t *testing.T) {
	ss, err := Realize(MustNew([]float64{3}, []float64{2}))
	if err != nil {
		t.Fatalf("Realize failed: %v", err)
	}
	if ss.Order() != 0 || ss.A != nil {
		t.Errorf("expected zero-order realization, got order %d", ss.Order())
	}
	if ss.D != 1.5 {
		t.Errorf("D = %v, want 1.5", ss.D)
	}
	if y := ss.Output(nil, 2); y != 3 {
		t.Errorf("Output = %v, want 3", y)
	}
}

func TestRealize_ZeroValue(t *testing.T) {
	if _, err := Realize(TransferFunction{}); !errors.Is(err, dynamo.ErrSingularSystem) {
		t.Errorf("expected ErrSingularSystem, got %v", err)
	}
}

func TestPolesMatchDenominatorRoots(t *testing.T) {
	// (s+1)(s+2)(s+3) = s^3 + 6s^2 + 11s + 6
	ss, err := Realize(MustNew([]float64{1}, []float64{1, 6, 11, 6}))
	if err != nil {
		t.Fatalf("Realize failed: %v", err)
	}
	poles, err := ss.Poles()
	if err != nil {
		t.Fatalf("Poles failed: %v", err)
	}
	want := []complex128{-3, -2, -1}
	if len(poles) != len(want) {
		t.Fatalf("got %d poles, want %d", len(poles), len(want))
	}
	for i := range want {
		if cmplx.Abs(poles[i]-want[i]) > 1e-9 {
			t.Errorf("pole %d = %v, want %v", i, poles[i], want[i])
		}
	}

	stable, err := ss.IsStable()
	if err != nil || !stable {
		t.Errorf("IsStable() = %v, %v; want true", stable, err)
	}
}

func TestPolesUnderdamped(t *testing.T) {
	ss, _ := Realize(MustNew([]float64{16}, []float64{1, 5.6, 16}))
	poles, err := ss.Poles()
	if err != nil {
		t.Fatalf("Poles failed: %v", err)
	}
	wd := math.Sqrt(16 - 2.8*2.8)
	if cmplx.Abs(poles[0]-complex(-2.8, -wd)) > 1e-9 || cmplx.Abs(poles[1]-complex(-2.8, wd)) > 1e-9 {
		t.Errorf("poles = %v, want -2.8 ± %.6fi", poles, wd)
	}
}

func TestIntegrated(t *testing.T) {
	num := []float64{2, 3}
	den := []float64{1, 4}
	ss, _ := Realize(MustNew(num, den))
	ramp := ss.Integrated()

	if ramp.Order() != 2 {
		t.Fatalf("order = %d, want 2", ramp.Order())
	}
	for _, s := range []complex128{complex(0.5, 1), complex(-1, 2), 3} {
		want := evalTF(num, den, s) / s
		got := evalSS(ramp, s)
		if cmplx.Abs(got-want) > 1e-9*(1+cmplx.Abs(want)) {
			t.Errorf("H(%v)/s: got %v, want %v", s, got, want)
		}
	}

	gain, _ := Realize(MustNew([]float64{1}, []float64{1}))
	pure := gain.Integrated()
	if pure.Order() != 1 || pure.A.At(0, 0) != 0 || pure.B.AtVec(0) != 1 || pure.C.AtVec(0) != 1 {
		t.Errorf("integrated unit gain is not a pure integrator")
	}
}

func TestDerive(t *testing.T) {
	ss, _ := Realize(MustNew([]float64{16}, []float64{1, 5.6, 16}))
	dx := ss.Derive(dynamo.State{1, 2}, dynamo.Control{3}, 0)
	// x1' = x2, x2' = -16 x1 - 5.6 x2 + u
	if dx[0] != 2 || math.Abs(dx[1]-(-16-11.2+3)) > 1e-12 {
		t.Errorf("Derive = %v, want [2 %v]", dx, -16-11.2+3)
	}
}
