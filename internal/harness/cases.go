package harness

import (
	"context"
	"fmt"

	"github.com/born-ml/kernelcheck/internal/quant"
	"github.com/born-ml/kernelcheck/internal/tensor"
)

// Default quantization scales for FC cases. Both are powers of two, so every
// dequantized operand and every partial sum is exact in float32.
const (
	DefaultInputScale  = float32(1.0 / 8)
	DefaultWeightScale = float32(1.0 / 1024)
)

// biasRange bounds the integer-valued bias of FC cases.
const biasRange = 16

// SliceCase slices a uniformly filled NCHW tensor on both sides.
// The device receives the input in NHWC and its output is converted back.
type SliceCase struct {
	Label      string
	InputShape tensor.Shape
	Axes       []int
	Starts     []int
	Ends       []int
}

// Name returns the label, or a description of the slice.
func (c SliceCase) Name() string {
	if c.Label != "" {
		return c.Label
	}
	return fmt.Sprintf("slice %v axes=%v starts=%v ends=%v", []int(c.InputShape), c.Axes, c.Starts, c.Ends)
}

// Build fills the input and wires both slice paths.
func (c SliceCase) Build(env *Env) (*Plan, error) {
	if len(c.InputShape) != 4 {
		return nil, tensor.NewKernelError("slice case", tensor.ErrInvalidShape,
			"device slice needs a rank-4 input, got %v", c.InputShape)
	}
	spec, err := tensor.NewSliceSpec(c.Axes, c.Starts, c.Ends)
	if err != nil {
		return nil, err
	}

	x, err := tensor.NewRaw(c.InputShape, tensor.Float32, tensor.CPU)
	if err != nil {
		return nil, err
	}
	if err := tensor.FillUniform(x, env.Rng, 0, 2); err != nil {
		return nil, err
	}

	return &Plan{
		Reference: func(context.Context) (*tensor.RawTensor, error) {
			return env.Ref.Slice(x, spec)
		},
		Device: func(context.Context) (*tensor.RawTensor, error) {
			nhwc, err := env.Ref.ToChannelLast(x)
			if err != nil {
				return nil, err
			}
			out, err := env.Dev.Slice(nhwc, spec)
			if err != nil {
				return nil, err
			}
			return env.Ref.ToChannelFirst(out)
		},
		Inputs: map[string]*tensor.RawTensor{"x": x},
	}, nil
}

// FCCase runs a fully-connected layer on int8-grid operands.
// The reference sees dequantized float32 values; the device sees the float
// activations (NHWC when rank 4) together with the raw int8 weights.
type FCCase struct {
	Label       string
	InputShape  tensor.Shape
	WeightShape tensor.Shape
	Pivot       int
	Bias        bool
	InputScale  float32 // Defaults to DefaultInputScale
	WeightScale float32 // Defaults to DefaultWeightScale
}

// Name returns the label, or a description of the layer.
func (c FCCase) Name() string {
	if c.Label != "" {
		return c.Label
	}
	return fmt.Sprintf("fc %v x %v pivot=%d bias=%t", []int(c.InputShape), []int(c.WeightShape), c.Pivot, c.Bias)
}

func (c FCCase) scales() (in, w float32) {
	in, w = c.InputScale, c.WeightScale
	if in == 0 {
		in = DefaultInputScale
	}
	if w == 0 {
		w = DefaultWeightScale
	}
	return in, w
}

// Build draws the int8 operands and wires the reference, device and oracle.
func (c FCCase) Build(env *Env) (*Plan, error) {
	m, k, err := c.InputShape.Flatten2D(c.Pivot)
	if err != nil {
		return nil, err
	}
	if len(c.WeightShape) != 2 || c.WeightShape[0] != k {
		return nil, tensor.NewKernelError("fc case", tensor.ErrInvalidShape,
			"weight %v does not match input %v flattened at %d", c.WeightShape, c.InputShape, c.Pivot)
	}
	n := c.WeightShape[1]
	inScale, wScale := c.scales()

	qIn, err := randomInt8(env, c.InputShape)
	if err != nil {
		return nil, err
	}
	qW, err := randomInt8(env, c.WeightShape)
	if err != nil {
		return nil, err
	}

	input, err := quant.Dequantize(qIn, quant.PerTensor(inScale))
	if err != nil {
		return nil, err
	}
	weight, err := quant.Dequantize(qW, quant.PerTensor(wScale))
	if err != nil {
		return nil, err
	}

	inputs := map[string]*tensor.RawTensor{"activation": input, "weight": qW}

	var bias *tensor.RawTensor
	var bias64 []float64
	if c.Bias {
		if bias, err = tensor.NewRaw(tensor.Shape{n}, tensor.Float32, tensor.CPU); err != nil {
			return nil, err
		}
		if err := tensor.FillInts(bias, env.Rng, -biasRange, biasRange); err != nil {
			return nil, err
		}
		bias64 = toFloat64(bias)
		inputs["bias"] = bias
	}

	return &Plan{
		Reference: func(context.Context) (*tensor.RawTensor, error) {
			return env.Ref.FC(input, weight, bias, c.Pivot)
		},
		Device: func(context.Context) (*tensor.RawTensor, error) {
			x := input
			if len(c.InputShape) == 4 {
				nhwc, err := env.Ref.ToChannelLast(input)
				if err != nil {
					return nil, err
				}
				x = nhwc
			}
			return env.Dev.FC(x, qW, bias, c.Pivot, quant.PerTensor(inScale), quant.Repeat(wScale, n))
		},
		Oracle: func(context.Context) (*tensor.RawTensor, error) {
			return oracleFC(toFloat64(input), toFloat64(weight), bias64, m, k, n)
		},
		Inputs: inputs,
	}, nil
}

func randomInt8(env *Env, shape tensor.Shape) (*tensor.RawTensor, error) {
	q, err := tensor.NewRaw(shape, tensor.Int8, tensor.CPU)
	if err != nil {
		return nil, err
	}
	if err := tensor.FillInts(q, env.Rng, -quant.QMax, quant.QMax); err != nil {
		return nil, err
	}
	return q, nil
}

// DefaultCases returns the standard suite: the (3,4,5,6) slice and the
// (1,1024,1,1) x (1024,32) layer with and without bias.
func DefaultCases() []Case {
	return []Case{
		SliceCase{
			InputShape: tensor.Shape{3, 4, 5, 6},
			Axes:       []int{0, 1, 2},
			Starts:     []int{-3, 0, 2},
			Ends:       []int{3, 100, -1},
		},
		FCCase{InputShape: tensor.Shape{1, 1024, 1, 1}, WeightShape: tensor.Shape{1024, 32}, Pivot: 1},
		FCCase{InputShape: tensor.Shape{1, 1024, 1, 1}, WeightShape: tensor.Shape{1024, 32}, Pivot: 1, Bias: true},
	}
}

// ExtendedCases returns additional slice and FC shapes, including spatial
// inputs where the NHWC device layout differs from the NCHW flatten order.
func ExtendedCases() []Case {
	cases := []Case{
		SliceCase{InputShape: tensor.Shape{1, 8, 7, 7}, Axes: []int{1}, Starts: []int{2}, Ends: []int{6}},
		SliceCase{InputShape: tensor.Shape{2, 3, 4, 5}, Axes: []int{3, 2}, Starts: []int{-4, 1}, Ends: []int{-1, 100}},
		SliceCase{InputShape: tensor.Shape{2, 3, 4, 5}, Axes: []int{1}, Starts: []int{2}, Ends: []int{1}},
	}
	for _, shapes := range [][2]tensor.Shape{
		{{1, 8, 8, 1}, {64, 4}},
		{{1, 5, 5, 1}, {25, 7}},
		{{1, 4, 1, 1}, {4, 8}},
		{{2, 3, 4, 4}, {48, 6}},
	} {
		for _, bias := range []bool{false, true} {
			cases = append(cases, FCCase{InputShape: shapes[0], WeightShape: shapes[1], Pivot: 1, Bias: bias})
		}
	}
	return cases
}
