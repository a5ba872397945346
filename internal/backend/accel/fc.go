package accel

import (
	"math"

	"github.com/born-ml/kernelcheck/internal/parallel"
	"github.com/born-ml/kernelcheck/internal/quant"
	"github.com/born-ml/kernelcheck/internal/tensor"
)

// MaxReduction is the largest K whose int8 dot products always fit the int32
// accumulator: QMax*QMax*K <= MaxInt32.
const MaxReduction = math.MaxInt32 / (quant.QMax * quant.QMax)

// FC runs the quantized fully-connected kernel.
//
//   - input: float32 activations; rank-4 inputs are NHWC, anything else is
//     taken in natural row-major order
//   - weight: int8 (K, N) matrix whose rows follow the NCHW flatten order
//   - bias: optional float32 vector of N elements
//   - inScale: per-tensor activation scale
//   - wScale: per-tensor or per-output-channel (N) weight scales
//
// Activations are quantized on entry, products are accumulated in int32 and
// each output is dequantized with inScale * wScale[n] before the bias is added.
// K above MaxReduction is rejected with ErrInvalidShape.
func (b *Backend) FC(input, weight, bias *tensor.RawTensor, pivot int, inScale, wScale quant.Params) (*tensor.RawTensor, error) {
	if input.DType() != tensor.Float32 {
		return nil, tensor.NewKernelError("accel.fc", tensor.ErrInvalidDType, "input must be float32, got %s", input.DType())
	}
	if weight.DType() != tensor.Int8 {
		return nil, tensor.NewKernelError("accel.fc", tensor.ErrInvalidDType, "weight must be int8, got %s", weight.DType())
	}
	if bias != nil && bias.DType() != tensor.Float32 {
		return nil, tensor.NewKernelError("accel.fc", tensor.ErrInvalidDType, "bias must be float32, got %s", bias.DType())
	}

	wShape := weight.Shape()
	if len(wShape) != 2 {
		return nil, tensor.NewKernelError("accel.fc", tensor.ErrInvalidShape, "weight must be rank 2, got %v", wShape)
	}
	if inScale.IsPerChannel() {
		return nil, tensor.NewKernelError("accel.fc", tensor.ErrInvalidShape, "activation scale must be per-tensor")
	}
	if err := inScale.Validate(input.Shape()); err != nil {
		return nil, err
	}
	if err := wScale.Validate(wShape); err != nil {
		return nil, err
	}

	logical, offsets := logicalOrder(input)
	m, k, err := logical.Flatten2D(pivot)
	if err != nil {
		return nil, err
	}
	if wShape[0] != k {
		return nil, tensor.NewKernelError("accel.fc", tensor.ErrInvalidShape,
			"input %v flattened at %d gives K=%d, weight has %d rows", logical, pivot, k, wShape[0])
	}
	if k > MaxReduction {
		return nil, tensor.NewKernelError("accel.fc", tensor.ErrInvalidShape,
			"K=%d overflows the int32 accumulator (max %d)", k, MaxReduction)
	}
	n := wShape[1]
	if bias != nil && bias.NumElements() != n {
		return nil, tensor.NewKernelError("accel.fc", tensor.ErrInvalidShape, "bias has %d elements, want %d", bias.NumElements(), n)
	}

	result, err := tensor.NewRaw(tensor.Shape{m, n}, tensor.Float32, b.Device())
	if err != nil {
		return nil, err
	}

	// Quantize activations into logical (NCHW flatten) order.
	src := input.AsFloat32()
	s := inScale.Scale(0)
	qIn := make([]int8, m*k)
	for i := range qIn {
		qIn[i] = quant.QuantizeValue(src[offsets[i]], s)
	}

	qW := weight.AsInt8()
	out := result.AsFloat32()
	parallel.ForRange(m, func(start, end int) {
		for i := start; i < end; i++ {
			row := qIn[i*k : (i+1)*k]
			for j := 0; j < n; j++ {
				var acc int32
				for kIdx, a := range row {
					acc += int32(a) * int32(qW[kIdx*n+j])
				}
				out[i*n+j] = float32(float64(acc) * float64(s) * float64(wScale.Scale(j)))
			}
		}
	}, b.cfg.Parallel)

	if bias != nil {
		bv := bias.AsFloat32()
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				out[i*n+j] += bv[j]
			}
		}
	}

	b.applyPrecision(result)
	return result, nil
}

// logicalOrder returns the tensor's logical (NCHW) shape and, for every
// logical row-major index, the physical offset into the tensor's buffer.
// Rank-4 tensors are stored NHWC; other ranks are already in logical order.
func logicalOrder(x *tensor.RawTensor) (tensor.Shape, []int) {
	shape := x.Shape()
	total := shape.NumElements()
	offsets := make([]int, total)

	if len(shape) != 4 {
		for i := range offsets {
			offsets[i] = i
		}
		return shape.Clone(), offsets
	}

	// NHWC dims (n, h, w, c) seen as NCHW (n, c, h, w).
	logical := tensor.Shape{shape[0], shape[3], shape[1], shape[2]}
	phys := x.Strides()
	strides := make([]int, 4)
	for axis := range strides {
		strides[axis] = phys[nhwcPosition[axis]]
	}

	logicalStrides := logical.ComputeStrides()
	coords := make([]int, 4)
	for i := range offsets {
		tensor.Unravel(i, logicalStrides, coords)
		offsets[i] = tensor.Ravel(coords, strides)
	}
	return logical, offsets
}
