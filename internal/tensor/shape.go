package tensor

// Shape represents the dimensions of a tensor.
// Zero-sized dimensions are allowed and describe an empty tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor
// (the product of all dimensions).
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// Validate checks that no dimension is negative.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return NewKernelError("shape", ErrInvalidShape, "dimension %d is %d (must be >= 0)", i, dim)
		}
	}
	return nil
}

// Flatten2D reinterprets the shape as a matrix split at pivot.
// rows is the product of s[:pivot], cols the product of s[pivot:].
//
// Example:
//
//	Shape{1, 1024, 1, 1}.Flatten2D(1) // 1, 1024
//	Shape{2, 3, 4}.Flatten2D(3)       // 24, 1
func (s Shape) Flatten2D(pivot int) (rows, cols int, err error) {
	if pivot < 0 || pivot > len(s) {
		return 0, 0, NewKernelError("flatten2d", ErrInvalidAxis, "pivot %d out of range [0, %d]", pivot, len(s))
	}
	rows, cols = 1, 1
	for _, dim := range s[:pivot] {
		rows *= dim
	}
	for _, dim := range s[pivot:] {
		cols *= dim
	}
	return rows, cols, nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Permute returns the shape reordered so that out[j] = s[perm[j]].
// The permutation must already be validated.
func (s Shape) Permute(perm []int) Shape {
	out := make(Shape, len(perm))
	for j, ax := range perm {
		out[j] = s[ax]
	}
	return out
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}
