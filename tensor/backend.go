// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

// Backend defines what every compute backend shares.
//
// Implementations:
//   - backend/cpu: reference kernels in natural NCHW layout
//   - backend/accel: simulated channel-last int8 accelerator
//
// The two backends take different fully-connected arguments (the accelerator
// needs quantization scales), so FC is not part of this interface.
//
// Example:
//
//	var b tensor.Backend = cpu.New()
//	y, err := b.Slice(x, spec)
type Backend interface {
	// Name returns a human-readable backend name.
	Name() string

	// Device returns the device this backend allocates results on.
	Device() Device

	// Slice copies the sub-tensor selected by spec.
	Slice(x *RawTensor, spec SliceSpec) (*RawTensor, error)
}
