package cpu

import (
	"github.com/born-ml/kernelcheck/internal/tensor"
)

// Transpose transposes the tensor by permuting its dimensions:
// output axis j is input axis perm[j].
// With no perm, all dimensions are reversed.
func (cpu *CPUBackend) Transpose(x *tensor.RawTensor, perm ...int) (*tensor.RawTensor, error) {
	shape := x.Shape()
	ndim := len(shape)
	if ndim == 0 {
		return nil, tensor.NewKernelError("transpose", tensor.ErrInvalidShape, "rank-0 input")
	}

	// Default: reverse all dimensions
	if len(perm) == 0 {
		perm = make([]int, ndim)
		for i := range perm {
			perm[i] = ndim - 1 - i
		}
	}

	if err := tensor.ValidatePermutation(perm, ndim); err != nil {
		return nil, err
	}

	result, err := tensor.NewRaw(shape.Permute(perm), x.DType(), cpu.device)
	if err != nil {
		return nil, err
	}
	if result.NumElements() == 0 {
		return result, nil
	}

	// Output coordinate j walks input axis perm[j].
	inStrides := x.Strides()
	permStrides := make([]int, ndim)
	for j, ax := range perm {
		permStrides[j] = inStrides[ax]
	}
	gather(result, x, 0, permStrides)

	return result, nil
}
