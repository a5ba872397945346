// Package quant implements symmetric int8 quantization: real = q * scale.
//
// Params carry either a single per-tensor scale or one scale per channel,
// where the channel is the tensor's last axis (the output channel of a
// K x N fully-connected weight).
package quant

import (
	"math"

	"github.com/born-ml/kernelcheck/internal/tensor"
)

// QMax is the largest magnitude a quantized value may take. The range is
// symmetric, so -128 is never produced.
const QMax = 127

// Params holds symmetric quantization scales.
type Params struct {
	Scales []float32
}

// PerTensor returns params with a single scale shared by every element.
func PerTensor(scale float32) Params {
	return Params{Scales: []float32{scale}}
}

// PerChannel returns params with one scale per channel of the last axis.
func PerChannel(scales []float32) Params {
	return Params{Scales: append([]float32(nil), scales...)}
}

// Repeat returns per-channel params with n copies of scale.
func Repeat(scale float32, n int) Params {
	scales := make([]float32, n)
	for i := range scales {
		scales[i] = scale
	}
	return Params{Scales: scales}
}

// IsPerChannel reports whether p holds more than one scale.
func (p Params) IsPerChannel() bool {
	return len(p.Scales) > 1
}

// Scale returns the scale for channel ch.
func (p Params) Scale(ch int) float32 {
	if len(p.Scales) == 1 {
		return p.Scales[0]
	}
	return p.Scales[ch]
}

// Validate checks p against a tensor shape.
func (p Params) Validate(shape tensor.Shape) error {
	if len(p.Scales) == 0 {
		return tensor.NewKernelError("quant", tensor.ErrInvalidShape, "no scales")
	}
	for i, s := range p.Scales {
		if !(s > 0) || math.IsInf(float64(s), 0) {
			return tensor.NewKernelError("quant", tensor.ErrInvalidShape, "scale %d is %v (must be finite and > 0)", i, s)
		}
	}
	if p.IsPerChannel() {
		if len(shape) == 0 || shape[len(shape)-1] != len(p.Scales) {
			return tensor.NewKernelError("quant", tensor.ErrInvalidShape,
				"%d channel scales for shape %v", len(p.Scales), shape)
		}
	}
	return nil
}

// channels returns the size of the last axis, or 1 for per-tensor params.
func (p Params) channels(shape tensor.Shape) int {
	if !p.IsPerChannel() {
		return 1
	}
	return shape[len(shape)-1]
}

// Quantize converts a float32 tensor to int8: q = clamp(round(x / scale)).
// Rounding is half away from zero.
func Quantize(x *tensor.RawTensor, p Params) (*tensor.RawTensor, error) {
	if x.DType() != tensor.Float32 {
		return nil, tensor.NewKernelError("quantize", tensor.ErrInvalidDType, "expected float32, got %s", x.DType())
	}
	if err := p.Validate(x.Shape()); err != nil {
		return nil, err
	}

	result, err := tensor.NewRaw(x.Shape(), tensor.Int8, x.Device())
	if err != nil {
		return nil, err
	}

	src := x.AsFloat32()
	dst := result.AsInt8()
	ch := p.channels(x.Shape())
	for i, v := range src {
		dst[i] = QuantizeValue(v, p.Scale(i%ch))
	}
	return result, nil
}

// QuantizeValue quantizes a single value. NaN maps to 0 and infinities
// saturate.
func QuantizeValue(v, scale float32) int8 {
	q := math.Round(float64(v) / float64(scale))
	if math.IsNaN(q) {
		return 0
	}
	if q > QMax {
		q = QMax
	} else if q < -QMax {
		q = -QMax
	}
	return int8(q)
}

// Dequantize converts an int8 tensor back to float32: x = q * scale.
func Dequantize(q *tensor.RawTensor, p Params) (*tensor.RawTensor, error) {
	if q.DType() != tensor.Int8 {
		return nil, tensor.NewKernelError("dequantize", tensor.ErrInvalidDType, "expected int8, got %s", q.DType())
	}
	if err := p.Validate(q.Shape()); err != nil {
		return nil, err
	}

	result, err := tensor.NewRaw(q.Shape(), tensor.Float32, q.Device())
	if err != nil {
		return nil, err
	}

	src := q.AsInt8()
	dst := result.AsFloat32()
	ch := p.channels(q.Shape())
	for i, v := range src {
		dst[i] = float32(v) * p.Scale(i%ch)
	}
	return result, nil
}
