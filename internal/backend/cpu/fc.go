package cpu

import (
	"github.com/born-ml/kernelcheck/internal/parallel"
	"github.com/born-ml/kernelcheck/internal/tensor"
)

// FC computes the fully-connected transform out = flatten(input) @ weight + bias.
//
// input is flattened at pivot into an (M, K) matrix; weight must be (K, N);
// bias, if non-nil, must hold N elements. The result has shape (M, N).
//
// Each output element is reduced in order k = 0..K-1 in the operand's own
// precision, and the bias is added in a separate pass after the whole matmul.
// Quantized operands must be dequantized by the caller; only Float32 and
// Float64 are accepted.
func (cpu *CPUBackend) FC(input, weight, bias *tensor.RawTensor, pivot int) (*tensor.RawTensor, error) {
	m, k, n, err := validateFC(input, weight, bias, pivot)
	if err != nil {
		return nil, err
	}

	result, err := tensor.NewRaw(tensor.Shape{m, n}, input.DType(), cpu.device)
	if err != nil {
		return nil, err
	}

	switch input.DType() {
	case tensor.Float32:
		var b []float32
		if bias != nil {
			b = bias.AsFloat32()
		}
		fcFloat(result.AsFloat32(), input.AsFloat32(), weight.AsFloat32(), b, m, k, n, cpu.parallel)
	case tensor.Float64:
		var b []float64
		if bias != nil {
			b = bias.AsFloat64()
		}
		fcFloat(result.AsFloat64(), input.AsFloat64(), weight.AsFloat64(), b, m, k, n, cpu.parallel)
	}

	return result, nil
}

// validateFC checks operand dtypes and shapes and returns M, K, N.
func validateFC(input, weight, bias *tensor.RawTensor, pivot int) (m, k, n int, err error) {
	dtype := input.DType()
	if !dtype.IsFloat() {
		return 0, 0, 0, tensor.NewKernelError("fc", tensor.ErrInvalidDType, "input must be float32 or float64, got %s", dtype)
	}
	if weight.DType() != dtype {
		return 0, 0, 0, tensor.NewKernelError("fc", tensor.ErrInvalidDType, "weight dtype %s != input dtype %s", weight.DType(), dtype)
	}
	if bias != nil && bias.DType() != dtype {
		return 0, 0, 0, tensor.NewKernelError("fc", tensor.ErrInvalidDType, "bias dtype %s != input dtype %s", bias.DType(), dtype)
	}

	wShape := weight.Shape()
	if len(wShape) != 2 {
		return 0, 0, 0, tensor.NewKernelError("fc", tensor.ErrInvalidShape, "weight must be rank 2, got %v", wShape)
	}

	m, k, err = input.Shape().Flatten2D(pivot)
	if err != nil {
		return 0, 0, 0, err
	}
	if wShape[0] != k {
		return 0, 0, 0, tensor.NewKernelError("fc", tensor.ErrInvalidShape,
			"input %v flattened at %d gives K=%d, weight has %d rows", input.Shape(), pivot, k, wShape[0])
	}
	n = wShape[1]

	if bias != nil && bias.NumElements() != n {
		return 0, 0, 0, tensor.NewKernelError("fc", tensor.ErrInvalidShape, "bias has %d elements, want %d", bias.NumElements(), n)
	}
	return m, k, n, nil
}

// fcFloat computes C = A @ W (+ b) for row-major A (m x k) and W (k x n).
// Rows are independent, so they may be split across workers; the reduction
// inside a row is always sequential.
func fcFloat[T float32 | float64](c, a, w, b []T, m, k, n int, cfg parallel.Config) {
	parallel.ForRange(m, func(start, end int) {
		for i := start; i < end; i++ {
			row := a[i*k : (i+1)*k]
			out := c[i*n : (i+1)*n]
			for j := 0; j < n; j++ {
				sum := T(0)
				for kIdx := 0; kIdx < k; kIdx++ {
					// The explicit conversion rounds the product and stops
					// the compiler from fusing it into an FMA.
					sum += T(row[kIdx] * w[kIdx*n+j])
				}
				out[j] = sum
			}
		}
	}, cfg)

	if b == nil {
		return
	}
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			c[i*n+j] += b[j]
		}
	}
}
