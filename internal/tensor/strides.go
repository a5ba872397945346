package tensor

// Unravel decomposes a flat row-major index into per-axis coordinates using
// the given strides (mixed-radix decomposition). coords must have the same
// length as strides and is overwritten.
//
// Strides must come from a shape without zero-sized axes; callers iterate
// over NumElements() so an empty tensor never reaches this point.
func Unravel(flat int, strides, coords []int) {
	for i, s := range strides {
		coords[i] = flat / s
		flat %= s
	}
}

// Ravel is the inverse of Unravel: it folds coordinates back into a flat index.
func Ravel(coords, strides []int) int {
	flat := 0
	for i, c := range coords {
		flat += c * strides[i]
	}
	return flat
}

// ValidatePermutation checks that perm is a bijection on [0, rank).
func ValidatePermutation(perm []int, rank int) error {
	if len(perm) != rank {
		return NewKernelError("permutation", ErrInvalidPermutation, "length %d != rank %d", len(perm), rank)
	}
	seen := make([]bool, rank)
	for _, ax := range perm {
		if ax < 0 || ax >= rank {
			return NewKernelError("permutation", ErrInvalidPermutation, "axis %d out of range for rank %d", ax, rank)
		}
		if seen[ax] {
			return NewKernelError("permutation", ErrInvalidPermutation, "duplicate axis %d", ax)
		}
		seen[ax] = true
	}
	return nil
}

// InversePermutation returns inv such that inv[perm[j]] = j.
// perm must be a valid permutation.
func InversePermutation(perm []int) []int {
	inv := make([]int, len(perm))
	for j, ax := range perm {
		inv[ax] = j
	}
	return inv
}
