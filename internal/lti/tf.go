package lti

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/ltiresp/internal/dynamo"
)

// DefaultMaxDegree bounds both polynomials unless configured otherwise.
const DefaultMaxDegree = 10

// TransferFunction is H(s) = N(s)/D(s) with coefficients ordered from the
// highest power of s down to the constant term.
type TransferFunction struct {
	num []float64
	den []float64
}

// New validates num and den and returns the transfer function they describe.
// The slices are copied; the caller may reuse them.
func New(num, den []float64, maxDegree int) (TransferFunction, error) {
	if maxDegree < 0 {
		return TransferFunction{}, fmt.Errorf("max degree %d: %w", maxDegree, dynamo.ErrParameterBounds)
	}
	if len(num) == 0 {
		return TransferFunction{}, fmt.Errorf("numerator has no coefficients: %w", dynamo.ErrParameterBounds)
	}
	if len(den) == 0 {
		return TransferFunction{}, fmt.Errorf("denominator has no coefficients: %w", dynamo.ErrSingularSystem)
	}
	if len(num) > len(den) {
		return TransferFunction{}, fmt.Errorf("numerator degree %d, denominator degree %d: %w",
			len(num)-1, len(den)-1, dynamo.ErrImproperTransferFunction)
	}
	if len(num) > maxDegree+1 || len(den) > maxDegree+1 {
		return TransferFunction{}, fmt.Errorf("maximum degree is %d: %w", maxDegree, dynamo.ErrDegreeExceeded)
	}
	if !finite(num) || !finite(den) {
		return TransferFunction{}, fmt.Errorf("coefficients must be finite: %w", dynamo.ErrParameterBounds)
	}
	if den[0] == 0 {
		return TransferFunction{}, fmt.Errorf("leading denominator coefficient is zero: %w", dynamo.ErrSingularSystem)
	}

	tf := TransferFunction{
		num: make([]float64, len(num)),
		den: make([]float64, len(den)),
	}
	copy(tf.num, num)
	copy(tf.den, den)
	return tf, nil
}

// MustNew is New for literals known to be valid.
func MustNew(num, den []float64) TransferFunction {
	tf, err := New(num, den, DefaultMaxDegree)
	if err != nil {
		panic(err)
	}
	return tf
}

// Numerator returns a copy of the numerator coefficients.
func (tf TransferFunction) Numerator() []float64 {
	return append([]float64(nil), tf.num...)
}

// Denominator returns a copy of the denominator coefficients.
func (tf TransferFunction) Denominator() []float64 {
	return append([]float64(nil), tf.den...)
}

// Order is the denominator degree, which is the state dimension of the realization.
func (tf TransferFunction) Order() int {
	if len(tf.den) == 0 {
		return 0
	}
	return len(tf.den) - 1
}

// DCGain returns H(0). A pole at the origin yields ±Inf, or NaN when N(0) is
// zero as well.
func (tf TransferFunction) DCGain() float64 {
	if len(tf.den) == 0 {
		return math.NaN()
	}
	n0 := tf.num[len(tf.num)-1]
	d0 := tf.den[len(tf.den)-1]
	if d0 == 0 {
		if n0 == 0 {
			return math.NaN()
		}
		lowest := 0.0
		for i := len(tf.den) - 1; i >= 0 && lowest == 0; i-- {
			lowest = tf.den[i]
		}
		return math.Inf(int(math.Copysign(1, n0*lowest)))
	}
	return n0 / d0
}

// String renders the transfer function as "N(s) / (D(s))".
func (tf TransferFunction) String() string {
	num := formatPoly(tf.num)
	if len(tf.den) == 1 && tf.den[0] == 1 {
		return num
	}
	if countTerms(tf.num) > 1 {
		num = "(" + num + ")"
	}
	den := formatPoly(tf.den)
	if countTerms(tf.den) > 1 {
		den = "(" + den + ")"
	}
	return num + " / " + den
}

// Parse reads coefficients separated by commas and/or whitespace, e.g. "1, 5.6, 16".
func Parse(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == ';'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("no coefficients in %q", s)
	}
	coeffs := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("coefficient %d: %w", i, err)
		}
		coeffs[i] = v
	}
	return coeffs, nil
}

func finite(c []float64) bool {
	for _, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func countTerms(c []float64) int {
	n := 0
	for _, v := range c {
		if v != 0 {
			n++
		}
	}
	return n
}

func formatPoly(c []float64) string {
	var sb strings.Builder
	for i, v := range c {
		if v == 0 {
			continue
		}
		power := len(c) - 1 - i
		mag := math.Abs(v)
		switch {
		case sb.Len() == 0 && v < 0:
			sb.WriteString("-")
		case sb.Len() > 0 && v < 0:
			sb.WriteString(" - ")
		case sb.Len() > 0:
			sb.WriteString(" + ")
		}
		if mag != 1 || power == 0 {
			sb.WriteString(strconv.FormatFloat(mag, 'g', -1, 64))
		}
		switch power {
		case 0:
		case 1:
			sb.WriteString("s")
		default:
			sb.WriteString("s^" + strconv.Itoa(power))
		}
	}
	if sb.Len() == 0 {
		return "0"
	}
	return sb.String()
}
