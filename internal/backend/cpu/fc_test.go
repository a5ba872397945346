package cpu

import (
	"math"
	"testing"

	"github.com/born-ml/kernelcheck/internal/parallel"
	"github.com/born-ml/kernelcheck/internal/quant"
	"github.com/born-ml/kernelcheck/internal/tensor"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dequantized returns a float32 tensor of int8 grid values times scale.
func dequantized(t *testing.T, shape tensor.Shape, scale float32, seed uint64) *tensor.RawTensor {
	t.Helper()
	q, err := tensor.NewRaw(shape, tensor.Int8, tensor.CPU)
	require.NoError(t, err)
	require.NoError(t, tensor.FillInts(q, tensor.NewRand(seed), -127, 127))
	x, err := quant.Dequantize(q, quant.PerTensor(scale))
	require.NoError(t, err)
	return x
}

func TestFC_Small(t *testing.T) {
	backend := New()
	input, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, tensor.CPU)
	require.NoError(t, err)
	weight, err := tensor.FromSlice([]float32{5, 6, 7, 8}, tensor.Shape{2, 2}, tensor.CPU)
	require.NoError(t, err)
	bias, err := tensor.FromSlice([]float32{1, -1}, tensor.Shape{2}, tensor.CPU)
	require.NoError(t, err)

	out, err := backend.FC(input, weight, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
	assert.Equal(t, []float32{19, 22, 43, 50}, out.AsFloat32())

	out, err = backend.FC(input, weight, bias, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{20, 21, 44, 49}, out.AsFloat32())
}

// TestFC_AgainstFloat64 runs the (1,1024,1,1) x (1024,32) case and compares
// with an independent float64 accumulation.
func TestFC_AgainstFloat64(t *testing.T) {
	backend := New()
	input := dequantized(t, tensor.Shape{1, 1024, 1, 1}, 1.0/8, 1)
	weight := dequantized(t, tensor.Shape{1024, 32}, 1.0/1024, 2)

	out, err := backend.FC(input, weight, nil, 1)
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{1, 32}, out.Shape())

	in := input.AsFloat32()
	w := weight.AsFloat32()
	want := make([]float64, 32)
	for n := range want {
		for k := 0; k < 1024; k++ {
			want[n] += float64(in[k]) * float64(w[k*32+n])
		}
	}

	got := make([]float64, 32)
	for i, v := range out.AsFloat32() {
		got[i] = float64(v)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-5)); diff != "" {
		t.Errorf("FC mismatch (-float64 +float32):\n%s", diff)
	}
}

// TestFC_BiasAddedAfterMatmul checks out(bias) == out(no bias) + broadcast bias, exactly.
func TestFC_BiasAddedAfterMatmul(t *testing.T) {
	backend := New()
	input := dequantized(t, tensor.Shape{3, 16, 2, 2}, 1.0/8, 3)
	weight := dequantized(t, tensor.Shape{64, 7}, 1.0/1024, 4)
	bias, err := tensor.NewRaw(tensor.Shape{7}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	require.NoError(t, tensor.FillUniform(bias, tensor.NewRand(5), -3, 3))

	plain, err := backend.FC(input, weight, nil, 1)
	require.NoError(t, err)
	biased, err := backend.FC(input, weight, bias, 1)
	require.NoError(t, err)

	b := bias.AsFloat32()
	p := plain.AsFloat32()
	got := biased.AsFloat32()
	for m := 0; m < 3; m++ {
		for n := 0; n < 7; n++ {
			require.Equal(t, p[m*7+n]+b[n], got[m*7+n], "out[%d,%d]", m, n)
		}
	}
}

// TestFC_Linearity checks that scaling the input scales the output.
func TestFC_Linearity(t *testing.T) {
	backend := New()
	input := dequantized(t, tensor.Shape{4, 32}, 1.0/8, 6)
	weight := dequantized(t, tensor.Shape{32, 5}, 1.0/1024, 7)

	base, err := backend.FC(input, weight, nil, 1)
	require.NoError(t, err)

	for _, c := range []float32{2, 0.5, -3, 0} {
		scaled := input.Clone()
		for i := range scaled.AsFloat32() {
			scaled.AsFloat32()[i] *= c
		}
		out, err := backend.FC(scaled, weight, nil, 1)
		require.NoError(t, err)

		for i, v := range base.AsFloat32() {
			assert.InDelta(t, float64(c*v), float64(out.AsFloat32()[i]), 1e-4, "c=%v i=%d", c, i)
		}
	}
}

// TestFC_ParallelMatchesSequential checks row splitting does not change a single bit.
func TestFC_ParallelMatchesSequential(t *testing.T) {
	input := dequantized(t, tensor.Shape{97, 40}, 1.0/8, 8)
	weight := dequantized(t, tensor.Shape{40, 9}, 1.0/1024, 9)

	seq, err := NewWithConfig(parallel.Sequential()).FC(input, weight, nil, 1)
	require.NoError(t, err)
	par, err := NewWithConfig(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8}).FC(input, weight, nil, 1)
	require.NoError(t, err)

	for i, v := range seq.AsFloat32() {
		require.Equal(t, math.Float32bits(v), math.Float32bits(par.AsFloat32()[i]), "element %d", i)
	}
}

func TestFC_Float64(t *testing.T) {
	backend := New()
	input, err := tensor.FromSlice([]float64{0.5, 0.25, 1}, tensor.Shape{1, 3}, tensor.CPU)
	require.NoError(t, err)
	weight, err := tensor.FromSlice([]float64{2, 4, 8}, tensor.Shape{3, 1}, tensor.CPU)
	require.NoError(t, err)

	out, err := backend.FC(input, weight, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{10}, out.AsFloat64())
}

func TestFC_Errors(t *testing.T) {
	backend := New()
	input := dequantized(t, tensor.Shape{2, 4}, 1, 10)
	weight := dequantized(t, tensor.Shape{4, 3}, 1, 11)

	t.Run("weight rank", func(t *testing.T) {
		w3 := dequantized(t, tensor.Shape{4, 3, 1}, 1, 12)
		_, err := backend.FC(input, w3, nil, 1)
		assert.ErrorIs(t, err, tensor.ErrInvalidShape)
	})

	t.Run("K mismatch", func(t *testing.T) {
		w := dequantized(t, tensor.Shape{5, 3}, 1, 13)
		_, err := backend.FC(input, w, nil, 1)
		assert.ErrorIs(t, err, tensor.ErrInvalidShape)
	})

	t.Run("bias length", func(t *testing.T) {
		bias := dequantized(t, tensor.Shape{4}, 1, 14)
		_, err := backend.FC(input, weight, bias, 1)
		assert.ErrorIs(t, err, tensor.ErrInvalidShape)
	})

	t.Run("bad pivot", func(t *testing.T) {
		_, err := backend.FC(input, weight, nil, 3)
		assert.ErrorIs(t, err, tensor.ErrInvalidAxis)
	})

	t.Run("int8 operands", func(t *testing.T) {
		q, err := tensor.NewRaw(tensor.Shape{2, 4}, tensor.Int8, tensor.CPU)
		require.NoError(t, err)
		_, err = backend.FC(q, weight, nil, 1)
		assert.ErrorIs(t, err, tensor.ErrInvalidDType)
	})
}
