// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package accel provides the simulated channel-last int8 accelerator.
//
// The device stores rank-4 tensors as NHWC, runs FC on int8 operands with
// int32 accumulation and passes float results through an FP32 or FP16 output
// stage.
//
// Example:
//
//	dev := accel.New(accel.FP16)
//	out, err := dev.FC(nhwc, qWeight, bias, 1, accel.PerTensor(1.0/8), accel.Repeat(1.0/1024, 32))
package accel

import (
	internalaccel "github.com/born-ml/kernelcheck/internal/backend/accel"
	"github.com/born-ml/kernelcheck/internal/quant"
	"github.com/born-ml/kernelcheck/tensor"
)

// Backend is the simulated accelerator.
type Backend = internalaccel.Backend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// Precision is the device output precision.
type Precision = internalaccel.Precision

// Output precisions.
const (
	FP32 = internalaccel.FP32
	FP16 = internalaccel.FP16
)

// QuantParams holds symmetric int8 scales (real = q * scale).
type QuantParams = quant.Params

// New creates a device with the given output precision and default
// parallelism.
func New(p Precision) *Backend {
	cfg := internalaccel.DefaultConfig()
	cfg.Precision = p
	return internalaccel.New(cfg)
}

// ParsePrecision parses "fp32" or "fp16".
func ParsePrecision(s string) (Precision, error) {
	return internalaccel.ParsePrecision(s)
}

// PerTensor returns params with a single scale.
func PerTensor(scale float32) QuantParams {
	return quant.PerTensor(scale)
}

// PerChannel returns params with one scale per output channel.
func PerChannel(scales []float32) QuantParams {
	return quant.PerChannel(scales)
}

// Repeat returns per-channel params holding n copies of scale.
func Repeat(scale float32, n int) QuantParams {
	return quant.Repeat(scale, n)
}
