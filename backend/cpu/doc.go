// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go reference kernels.
//
// # Overview
//
// The reference kernels are the correctness oracles for device output:
//   - Slice: N-dimensional strided slice with negative indices and clamping
//   - Transpose: arbitrary axis permutation, plus NCHW/NHWC helpers
//   - FC: fully-connected transform, input flattened at a pivot axis
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
//	    x, _ := tensor.Arange(tensor.Shape{1, 1024, 1, 1}, tensor.Float32, tensor.CPU)
//	    w, _ := tensor.NewRaw(tensor.Shape{1024, 32}, tensor.Float32, tensor.CPU)
//	    out, _ := backend.FC(x, w, nil, 1) // shape (1, 32)
//	}
//
// # Numerics
//
// FC accumulates every output element in the operand's float type, in
// increasing k order. The bias is added in a separate pass after the whole
// matrix product. Rows may be computed on several goroutines; the result is
// bit-identical to a sequential run.
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Each kernel call allocates
// its own output and does not share mutable state.
package cpu
