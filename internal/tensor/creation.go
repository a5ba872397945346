package tensor

import (
	"fmt"
	"math/rand/v2"
)

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
//
// Example:
//
//	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, tensor.CPU)
func FromSlice[T DType](data []T, shape Shape, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, NewKernelError("from_slice", ErrInvalidShape,
			"shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}

	raw, err := NewRaw(shape, inferDataType[T](), device)
	if err != nil {
		return nil, err
	}
	copy(Data[T](raw), data)
	return raw, nil
}

// Arange creates a tensor of the given shape whose elements are 0..N-1 in
// row-major order.
//
// Example:
//
//	t := tensor.Arange(tensor.Shape{3, 4, 5, 6}, tensor.Float32, tensor.CPU) // t[i] == i
func Arange(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	raw, err := NewRaw(shape, dtype, device)
	if err != nil {
		return nil, err
	}
	switch dtype {
	case Float32:
		fillSeq(raw.AsFloat32())
	case Float64:
		fillSeq(raw.AsFloat64())
	case Int32:
		fillSeq(raw.AsInt32())
	default:
		return nil, NewKernelError("arange", ErrInvalidDType, "unsupported dtype %s", dtype)
	}
	return raw, nil
}

func fillSeq[T DType](data []T) {
	for i := range data {
		data[i] = T(i)
	}
}

// FillUniform fills a float tensor with values drawn uniformly from [lo, hi).
// Note: Uses math/rand (not crypto/rand) - reproducible for a given seed.
func FillUniform(r *RawTensor, rng *rand.Rand, lo, hi float64) error {
	if hi < lo {
		return fmt.Errorf("fill: empty range [%v, %v)", lo, hi)
	}
	span := hi - lo
	switch r.DType() {
	case Float32:
		data := r.AsFloat32()
		for i := range data {
			data[i] = float32(lo + rng.Float64()*span)
		}
	case Float64:
		data := r.AsFloat64()
		for i := range data {
			data[i] = lo + rng.Float64()*span
		}
	default:
		return NewKernelError("fill", ErrInvalidDType, "uniform fill needs a float tensor, got %s", r.DType())
	}
	return nil
}

// FillInts fills a tensor with integers drawn uniformly from [lo, hi].
// Float tensors receive integer-valued floats.
func FillInts(r *RawTensor, rng *rand.Rand, lo, hi int) error {
	if hi < lo {
		return fmt.Errorf("fill: empty range [%d, %d]", lo, hi)
	}
	n := hi - lo + 1
	switch r.DType() {
	case Int8:
		if lo < -128 || hi > 127 {
			return fmt.Errorf("fill: range [%d, %d] does not fit int8", lo, hi)
		}
		data := r.AsInt8()
		for i := range data {
			data[i] = int8(lo + rng.IntN(n)) //nolint:gosec // G115: range checked above.
		}
	case Int32:
		data := r.AsInt32()
		for i := range data {
			data[i] = int32(lo + rng.IntN(n)) //nolint:gosec // G115: caller-provided range.
		}
	case Float32:
		data := r.AsFloat32()
		for i := range data {
			data[i] = float32(lo + rng.IntN(n))
		}
	case Float64:
		data := r.AsFloat64()
		for i := range data {
			data[i] = float64(lo + rng.IntN(n))
		}
	default:
		return NewKernelError("fill", ErrInvalidDType, "unsupported dtype %s", r.DType())
	}
	return nil
}

// NewRand returns a deterministic generator for the given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // G404: reproducibility over secrecy
}
