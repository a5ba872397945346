package accel

import (
	"github.com/born-ml/kernelcheck/internal/tensor"
)

// Slice slices an NHWC tensor. spec uses NCHW axis numbers, the way slice
// attributes are written for the framework; the device remaps them onto its
// own layout.
//
// The copy walks every outer (N, H, W) position and moves one contiguous run
// of channels at a time.
func (b *Backend) Slice(x *tensor.RawTensor, spec tensor.SliceSpec) (*tensor.RawTensor, error) {
	shape := x.Shape()
	if len(shape) != 4 {
		return nil, tensor.NewKernelError("accel.slice", tensor.ErrInvalidShape, "expected NHWC rank-4 input, got %v", shape)
	}

	nhwcSpec := make(tensor.SliceSpec, len(spec))
	for i, r := range spec {
		if r.Axis < 0 || r.Axis >= 4 {
			return nil, tensor.NewKernelError("accel.slice", tensor.ErrInvalidAxis, "axis %d out of range for rank 4", r.Axis)
		}
		nhwcSpec[i] = tensor.SliceRange{Axis: nhwcPosition[r.Axis], Start: r.Start, End: r.End}
	}

	bounds, err := nhwcSpec.Resolve(shape)
	if err != nil {
		return nil, err
	}

	result, err := tensor.NewRaw(bounds.Shape, x.DType(), b.Device())
	if err != nil {
		return nil, err
	}
	if result.NumElements() == 0 {
		return result, nil
	}

	copyRuns(result, x, bounds)
	b.applyPrecision(result)

	return result, nil
}

// copyRuns copies the innermost axis in contiguous runs.
func copyRuns(dst, src *tensor.RawTensor, bounds tensor.SliceBounds) {
	es := src.DType().Size()
	out := dst.Data()
	in := src.Data()

	last := len(bounds.Shape) - 1
	run := bounds.Shape[last] * es
	outer := bounds.Shape[:last]
	outerStrides := outer.ComputeStrides()
	srcStrides := src.Strides()

	coords := make([]int, last)
	for o := 0; o < outer.NumElements(); o++ {
		tensor.Unravel(o, outerStrides, coords)
		off := bounds.Starts[last]
		for i, c := range coords {
			off += (c + bounds.Starts[i]) * srcStrides[i]
		}
		copy(out[o*run:(o+1)*run], in[off*es:off*es+run])
	}
}
