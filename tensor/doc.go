// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the tensor types shared by the reference and device
// kernels.
//
// # Overview
//
// A RawTensor owns a contiguous row-major buffer together with its Shape,
// DataType and Device. The package also provides:
//   - Shape helpers: NumElements, Flatten2D, ComputeStrides
//   - SliceSpec: per-axis start/end ranges with negative indices and clamping
//   - Seeded fills for generating test operands
//   - An error taxonomy usable with errors.Is
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/kernelcheck/backend/cpu"
//	    "github.com/born-ml/kernelcheck/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    x, _ := tensor.Arange(tensor.Shape{3, 4, 5, 6}, tensor.Float32, tensor.CPU)
//	    spec, _ := tensor.NewSliceSpec([]int{0, 1, 2}, []int{-3, 0, 2}, []int{3, 100, -1})
//	    y, _ := backend.Slice(x, spec) // shape (3, 4, 2, 6)
//	}
//
// # Supported Data Types
//
//   - Float32, Float64: kernel inputs and outputs
//   - Int8: quantized operands
//   - Int32: quantized accumulators
//
// # Devices
//
//   - CPU: reference kernels (backend/cpu)
//   - Accel: simulated channel-last int8 accelerator (backend/accel)
//
// # Errors
//
// Kernels validate their arguments before allocating or writing anything and
// return errors that match ErrInvalidAxis, ErrInvalidShape,
// ErrInvalidPermutation or ErrInvalidDType under errors.Is.
package tensor
