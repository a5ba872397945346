// Package accel simulates a channel-last int8 inference accelerator.
//
// Tensors handed to the device are NHWC; FC runs on int8 operands with int32
// accumulation and per-output-channel weight scales, and every float result
// goes through an output precision stage (FP32 or FP16). The kernels here are
// written independently of the reference CPU kernels so the two can be
// checked against each other.
package accel

import (
	"fmt"
	"strings"

	"github.com/born-ml/kernelcheck/internal/parallel"
	"github.com/born-ml/kernelcheck/internal/tensor"
	"github.com/x448/float16"
)

// Precision is the device's float output precision.
type Precision int

// Supported output precisions.
const (
	FP32 Precision = iota
	FP16
)

// String returns the precision name.
func (p Precision) String() string {
	switch p {
	case FP32:
		return "fp32"
	case FP16:
		return "fp16"
	default:
		return "unknown"
	}
}

// ParsePrecision parses "fp32" or "fp16" (case-insensitive).
func ParsePrecision(s string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fp32", "float32":
		return FP32, nil
	case "fp16", "float16", "half":
		return FP16, nil
	default:
		return FP32, fmt.Errorf("unknown precision %q (want fp32 or fp16)", s)
	}
}

// Config controls the simulated device.
type Config struct {
	Precision Precision       // Output precision stage
	Parallel  parallel.Config // Row splitting for FC
}

// DefaultConfig returns an FP32 device with default parallelism.
func DefaultConfig() Config {
	return Config{
		Precision: FP32,
		Parallel:  parallel.DefaultConfig(),
	}
}

// Backend is the simulated accelerator.
type Backend struct {
	cfg Config
}

// New creates a simulated accelerator.
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "Accel"
}

// Device returns the compute device.
func (b *Backend) Device() tensor.Device {
	return tensor.Accel
}

// Precision returns the configured output precision.
func (b *Backend) Precision() Precision {
	return b.cfg.Precision
}

// channelLast is the NCHW -> NHWC permutation the device stores data in.
var channelLast = []int{0, 2, 3, 1}

// nhwcPosition maps an NCHW axis to its position in an NHWC tensor.
var nhwcPosition = tensor.InversePermutation(channelLast)

// applyPrecision rounds every float32 element through the output precision.
func (b *Backend) applyPrecision(r *tensor.RawTensor) {
	if b.cfg.Precision != FP16 || r.DType() != tensor.Float32 {
		return
	}
	data := r.AsFloat32()
	for i, v := range data {
		data[i] = float16.Fromfloat32(v).Float32()
	}
}
