// Package cpu implements the reference kernels: strided slice, transpose and
// the fully-connected transform used to validate quantized device output.
package cpu

import (
	"github.com/born-ml/kernelcheck/internal/parallel"
	"github.com/born-ml/kernelcheck/internal/tensor"
)

// CPUBackend runs the reference kernels on natural-layout (NCHW) tensors.
// It holds no mutable state and is safe for concurrent use as long as
// concurrent calls do not share output tensors.
type CPUBackend struct {
	device   tensor.Device
	parallel parallel.Config
}

// New creates a new CPU backend with default parallelism.
func New() *CPUBackend {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a CPU backend that splits FC rows according to cfg.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{
		device:   tensor.CPU,
		parallel: cfg,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// gather fills result by copying, for every output coordinate, the source
// element at offset base + Ravel(coords, srcStrides).
func gather(result, src *tensor.RawTensor, base int, srcStrides []int) {
	outStrides := result.Strides()
	switch src.DType() {
	case tensor.Float32:
		gatherTyped(result.AsFloat32(), src.AsFloat32(), base, outStrides, srcStrides)
	case tensor.Float64:
		gatherTyped(result.AsFloat64(), src.AsFloat64(), base, outStrides, srcStrides)
	case tensor.Int8:
		gatherTyped(result.AsInt8(), src.AsInt8(), base, outStrides, srcStrides)
	case tensor.Int32:
		gatherTyped(result.AsInt32(), src.AsInt32(), base, outStrides, srcStrides)
	default:
		panic("gather: unsupported dtype")
	}
}

func gatherTyped[T tensor.DType](dst, src []T, base int, outStrides, srcStrides []int) {
	coords := make([]int, len(outStrides))
	for d := range dst {
		tensor.Unravel(d, outStrides, coords)
		dst[d] = src[base+tensor.Ravel(coords, srcStrides)]
	}
}
