package harness

import (
	"math"
	"time"

	"github.com/born-ml/kernelcheck/internal/tensor"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// Comparison summarizes an element-wise comparison.
type Comparison struct {
	Elements   int
	Mismatches int
	MaxAbsDiff float64
}

// Result is the outcome of one case.
type Result struct {
	Case             string
	Elements         int
	Mismatches       int
	MaxAbsDiff       float64
	OracleDiff       float64 // NaN when the case has no oracle
	OracleMismatches int
	Tolerance        float64
	Duration         time.Duration
	DumpPath         string // SafeTensors dump of a failing case, if written
	Err              error
}

// Passed reports whether the device matched the reference (and the reference
// matched the oracle, if any).
func (r Result) Passed() bool {
	return r.Err == nil && r.Mismatches == 0 && r.OracleMismatches == 0
}

// Compare checks got against want element-wise with absolute tolerance tol.
// Shapes must match exactly; dtypes may differ.
func Compare(want, got *tensor.RawTensor, tol float64) (Comparison, error) {
	if !want.Shape().Equal(got.Shape()) {
		return Comparison{}, tensor.NewKernelError("compare", tensor.ErrInvalidShape,
			"shape mismatch: want %v, got %v", want.Shape(), got.Shape())
	}

	w, g := toFloat64(want), toFloat64(got)
	c := Comparison{Elements: len(w)}
	if len(w) == 0 {
		return c, nil
	}

	for i := range w {
		if !scalar.EqualWithinAbs(w[i], g[i], tol) {
			c.Mismatches++
		}
	}
	c.MaxAbsDiff = floats.Distance(w, g, math.Inf(1))
	return c, nil
}

// toFloat64 widens any supported tensor to float64.
func toFloat64(r *tensor.RawTensor) []float64 {
	out := make([]float64, r.NumElements())
	switch r.DType() {
	case tensor.Float32:
		for i, v := range r.AsFloat32() {
			out[i] = float64(v)
		}
	case tensor.Float64:
		copy(out, r.AsFloat64())
	case tensor.Int8:
		for i, v := range r.AsInt8() {
			out[i] = float64(v)
		}
	case tensor.Int32:
		for i, v := range r.AsInt32() {
			out[i] = float64(v)
		}
	}
	return out
}
