package harness

import (
	"github.com/born-ml/kernelcheck/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// oracleFC computes input·weight (+ bias) in float64 with gonum.
// input is (m, k) row-major, weight (k, n), bias n or nil.
func oracleFC(input, weight, bias []float64, m, k, n int) (*tensor.RawTensor, error) {
	if m == 0 || k == 0 || n == 0 {
		// mat.Dense has no zero-sized matrices.
		data := make([]float64, m*n)
		if bias != nil {
			for i := range data {
				data[i] = bias[i%n]
			}
		}
		return tensor.FromSlice(data, tensor.Shape{m, n}, tensor.CPU)
	}

	a := mat.NewDense(m, k, input)
	w := mat.NewDense(k, n, weight)

	var out mat.Dense
	out.Mul(a, w)

	data := make([]float64, 0, m*n)
	for i := 0; i < m; i++ {
		row := out.RawRowView(i)
		for j, v := range row {
			if bias != nil {
				v += bias[j]
			}
			data = append(data, v)
		}
	}
	return tensor.FromSlice(data, tensor.Shape{m, n}, tensor.CPU)
}
