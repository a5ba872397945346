// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/kernelcheck/internal/tensor"
)

// Type aliases for public API

// DType is a constraint for tensor element types.
// Supported types: float32, float64, int8, int32.
type DType = tensor.DType

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int8    DataType = tensor.Int8
	Int32   DataType = tensor.Int32
)

// Device represents the device where tensor data resides.
type Device = tensor.Device

// Device constants.
const (
	CPU   Device = tensor.CPU
	Accel Device = tensor.Accel
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// SliceRange selects [Start, End) along one axis. Negative bounds count from
// the end of the axis.
type SliceRange = tensor.SliceRange

// SliceSpec is a set of per-axis ranges. Axes not named are copied whole.
type SliceSpec = tensor.SliceSpec

// KernelError is the error type returned by kernels.
type KernelError = tensor.KernelError

// Errors returned by kernels, for use with errors.Is.
var (
	ErrInvalidAxis        = tensor.ErrInvalidAxis
	ErrInvalidShape       = tensor.ErrInvalidShape
	ErrInvalidPermutation = tensor.ErrInvalidPermutation
	ErrInvalidDType       = tensor.ErrInvalidDType
)

// NewSliceSpec builds a SliceSpec from parallel axes/starts/ends lists.
//
// Example:
//
//	spec, err := tensor.NewSliceSpec([]int{0, 1, 2}, []int{-3, 0, 2}, []int{3, 100, -1})
func NewSliceSpec(axes, starts, ends []int) (SliceSpec, error) {
	return tensor.NewSliceSpec(axes, starts, ends)
}
