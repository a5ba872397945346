package cpu

import (
	"github.com/born-ml/kernelcheck/internal/tensor"
)

// Slice extracts the sub-tensor selected by spec.
//
// Negative bounds count from the end of the axis, bounds are clamped to the
// axis size and axes not named in spec are copied whole. The result is a
// fresh tensor with the same dtype as x.
//
// Example:
//
//	x, _ := tensor.Arange(tensor.Shape{3, 4, 5, 6}, tensor.Float32, tensor.CPU)
//	spec, _ := tensor.NewSliceSpec([]int{0, 1, 2}, []int{-3, 0, 2}, []int{3, 100, -1})
//	y, _ := backend.Slice(x, spec) // Shape: [3, 4, 2, 6]
func (cpu *CPUBackend) Slice(x *tensor.RawTensor, spec tensor.SliceSpec) (*tensor.RawTensor, error) {
	bounds, err := spec.Resolve(x.Shape())
	if err != nil {
		return nil, err
	}

	result, err := tensor.NewRaw(bounds.Shape, x.DType(), cpu.device)
	if err != nil {
		return nil, err
	}
	if result.NumElements() == 0 {
		return result, nil
	}

	// Output coordinate c maps to source coordinate c + start, so the start
	// offsets fold into a constant base.
	srcStrides := x.Strides()
	base := tensor.Ravel(bounds.Starts, srcStrides)
	gather(result, x, base, srcStrides)

	return result, nil
}
