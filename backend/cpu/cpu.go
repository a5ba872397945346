// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/kernelcheck/internal/backend/cpu"
	"github.com/born-ml/kernelcheck/internal/parallel"
	"github.com/born-ml/kernelcheck/tensor"
)

// Backend represents the CPU reference backend.
//
// It provides pure Go reference implementations of Slice, Transpose and FC
// on natural-layout (NCHW) tensors.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// NCHWToNHWC returns the channel-first to channel-last permutation for Transpose.
func NCHWToNHWC() []int {
	return internalcpu.NCHWToNHWC()
}

// NHWCToNCHW returns the channel-last to channel-first permutation for Transpose.
func NHWCToNCHW() []int {
	return internalcpu.NHWCToNCHW()
}

// New creates a new CPU backend.
//
// Example:
//
//	import (
//	    "github.com/born-ml/kernelcheck/backend/cpu"
//	    "github.com/born-ml/kernelcheck/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    x, _ := tensor.Arange(tensor.Shape{1, 3, 2, 2}, tensor.Float32, tensor.CPU)
//	    nhwc, _ := backend.ToChannelLast(x)
//	}
func New() *Backend {
	return internalcpu.New()
}

// NewWithWorkers creates a CPU backend that computes FC rows on at most
// workers goroutines. workers <= 1 runs every kernel on the calling goroutine.
func NewWithWorkers(workers int) *Backend {
	if workers <= 1 {
		return internalcpu.NewWithConfig(parallel.Sequential())
	}
	cfg := parallel.DefaultConfig()
	cfg.NumWorkers = workers
	return internalcpu.NewWithConfig(cfg)
}
