package harness

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"path/filepath"
	"testing"

	"github.com/born-ml/kernelcheck/internal/backend/accel"
	"github.com/born-ml/kernelcheck/internal/serialization"
	"github.com/born-ml/kernelcheck/internal/tensor"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHarness(t *testing.T, parallel bool, p accel.Precision) *Harness {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Parallel = parallel
	cfg.Precision = p
	cfg.Workers = 2
	cfg.Logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h, err := New(cfg)
	require.NoError(t, err)
	return h
}

// planCase is a Case backed by a fixed plan.
type planCase struct {
	name string
	plan *Plan
	err  error
}

func (c planCase) Name() string { return c.name }

func (c planCase) Build(*Env) (*Plan, error) { return c.plan, c.err }

func constant(r *tensor.RawTensor) Computation {
	return func(context.Context) (*tensor.RawTensor, error) { return r, nil }
}

func TestRun_DefaultCases(t *testing.T) {
	for _, parallel := range []bool{true, false} {
		h := newTestHarness(t, parallel, accel.FP32)
		results, err := h.Run(context.Background(), DefaultCases()...)
		require.NoError(t, err)
		require.Len(t, results, 3)

		for _, r := range results {
			require.NoError(t, r.Err, r.Case)
			assert.True(t, r.Passed(), "%s: %d mismatches, max diff %g", r.Case, r.Mismatches, r.MaxAbsDiff)
		}

		// Scenario 1: (3,4,5,6) sliced to (3,4,2,6).
		assert.Equal(t, 3*4*2*6, results[0].Elements)
		assert.True(t, math.IsNaN(results[0].OracleDiff), "slice case has no oracle")

		// Scenarios 2 and 3: within 1e-5 of the float64 oracle.
		for _, r := range results[1:] {
			assert.Equal(t, 32, r.Elements)
			assert.LessOrEqual(t, r.OracleDiff, 1e-5)
		}
	}
}

func TestRun_ExtendedCases(t *testing.T) {
	h := newTestHarness(t, true, accel.FP32)
	results, err := h.Run(context.Background(), ExtendedCases()...)
	require.NoError(t, err)
	require.Len(t, results, len(ExtendedCases()))
	for _, r := range results {
		assert.True(t, r.Passed(), "%s failed: %+v", r.Case, r)
	}
}

func TestRun_FP16WidensTolerance(t *testing.T) {
	h := newTestHarness(t, true, accel.FP16)
	results, err := h.Run(context.Background(), DefaultCases()...)
	require.NoError(t, err)
	for _, r := range results {
		assert.True(t, r.Passed(), "%s failed: %+v", r.Case, r)
		assert.GreaterOrEqual(t, r.Tolerance, 1e-5)
	}
}

func TestRun_Deterministic(t *testing.T) {
	c := FCCase{InputShape: tensor.Shape{1, 4, 2, 2}, WeightShape: tensor.Shape{16, 3}, Pivot: 1, Bias: true}

	var outputs [][]float32
	for range 2 {
		h := newTestHarness(t, true, accel.FP32)
		plan, err := c.Build(&Env{Ref: h.ref, Dev: h.dev, Rng: tensor.NewRand(7)})
		require.NoError(t, err)
		out, err := plan.Device(context.Background())
		require.NoError(t, err)
		outputs = append(outputs, out.AsFloat32())
	}
	assert.Equal(t, outputs[0], outputs[1])
}

func TestRun_ReportsMismatches(t *testing.T) {
	want, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, tensor.CPU)
	require.NoError(t, err)
	got, err := tensor.FromSlice([]float32{1, 2.5, 3, 4.000001}, tensor.Shape{2, 2}, tensor.CPU)
	require.NoError(t, err)

	h := newTestHarness(t, false, accel.FP32)
	results, err := h.Run(context.Background(), planCase{name: "off", plan: &Plan{Reference: constant(want), Device: constant(got)}})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.False(t, r.Passed())
	assert.Equal(t, 1, r.Mismatches)
	assert.Equal(t, 4, r.Elements)
	assert.InDelta(t, 0.5, r.MaxAbsDiff, 1e-9)
}

func TestRun_ZeroToleranceIsExact(t *testing.T) {
	want, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, tensor.CPU)
	require.NoError(t, err)
	got, err := tensor.FromSlice([]float32{1, math.Nextafter32(2, 3)}, tensor.Shape{2}, tensor.CPU)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Tolerance = 0
	cfg.Logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h, err := New(cfg)
	require.NoError(t, err)
	assert.Zero(t, h.Config().Tolerance)

	results, err := h.Run(context.Background(), planCase{name: "ulp", plan: &Plan{Reference: constant(want), Device: constant(got)}})
	require.NoError(t, err)
	assert.False(t, results[0].Passed())
	assert.Equal(t, 1, results[0].Mismatches)
	assert.Zero(t, results[0].Tolerance)
}

func TestNew_RejectsInvalidTolerance(t *testing.T) {
	for _, tol := range []float64{-1e-5, math.NaN()} {
		cfg := DefaultConfig()
		cfg.Tolerance = tol
		_, err := New(cfg)
		assert.Error(t, err, "tolerance %v", tol)
	}
}

func TestRun_PlanTolerance(t *testing.T) {
	want, err := tensor.FromSlice([]float32{1}, tensor.Shape{1}, tensor.CPU)
	require.NoError(t, err)
	got, err := tensor.FromSlice([]float32{1.25}, tensor.Shape{1}, tensor.CPU)
	require.NoError(t, err)

	h := newTestHarness(t, true, accel.FP32)
	results, err := h.Run(context.Background(), planCase{name: "loose", plan: &Plan{
		Reference: constant(want), Device: constant(got), Tolerance: 0.5,
	}})
	require.NoError(t, err)
	assert.True(t, results[0].Passed())
	assert.InDelta(t, 0.5, results[0].Tolerance, 0)
}

func TestRun_ShapeMismatch(t *testing.T) {
	want, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	got, err := tensor.NewRaw(tensor.Shape{3, 2}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)

	h := newTestHarness(t, true, accel.FP32)
	results, err := h.Run(context.Background(), planCase{name: "shape", plan: &Plan{Reference: constant(want), Device: constant(got)}})
	require.NoError(t, err)
	assert.False(t, results[0].Passed())
	assert.ErrorIs(t, results[0].Err, tensor.ErrInvalidShape)
	assert.Contains(t, results[0].Err.Error(), "case shape")
}

func TestRun_CaseErrors(t *testing.T) {
	boom := errors.New("boom")
	ok, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	failing := func(context.Context) (*tensor.RawTensor, error) { return nil, boom }

	h := newTestHarness(t, true, accel.FP32)
	results, err := h.Run(context.Background(),
		planCase{name: "build", err: boom},
		planCase{name: "device", plan: &Plan{Reference: constant(ok), Device: failing}},
		planCase{name: "oracle", plan: &Plan{Reference: constant(ok), Device: constant(ok), Oracle: failing}},
		SliceCase{Label: "rank", InputShape: tensor.Shape{2, 3}, Axes: []int{0}, Starts: []int{0}, Ends: []int{1}},
		FCCase{Label: "weight", InputShape: tensor.Shape{1, 4}, WeightShape: tensor.Shape{3, 2}, Pivot: 1},
	)
	require.NoError(t, err)
	require.Len(t, results, 5)

	for _, r := range results[:3] {
		assert.ErrorIs(t, r.Err, boom, r.Case)
		assert.False(t, r.Passed())
	}
	assert.ErrorIs(t, results[3].Err, tensor.ErrInvalidShape)
	assert.ErrorIs(t, results[4].Err, tensor.ErrInvalidShape)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := newTestHarness(t, true, accel.FP32)
	results, err := h.Run(ctx, DefaultCases()...)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestCompare(t *testing.T) {
	a, err := tensor.FromSlice([]float64{1, -2, 3}, tensor.Shape{3}, tensor.CPU)
	require.NoError(t, err)
	b, err := tensor.FromSlice([]float32{1, -2.000001, 2}, tensor.Shape{3}, tensor.CPU)
	require.NoError(t, err)

	c, err := Compare(a, b, 1e-5)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Elements)
	assert.Equal(t, 1, c.Mismatches)
	assert.InDelta(t, 1.0, c.MaxAbsDiff, 1e-6)

	empty, err := tensor.NewRaw(tensor.Shape{0, 4}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	c, err = Compare(empty, empty, 0)
	require.NoError(t, err)
	assert.Equal(t, Comparison{}, c)

	_, err = Compare(a, empty, 1)
	assert.ErrorIs(t, err, tensor.ErrInvalidShape)
}

func TestOracleFC(t *testing.T) {
	out, err := oracleFC([]float64{1, 2, 3, 4}, []float64{1, 0, 0, 1}, []float64{10, 20}, 2, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
	if diff := cmp.Diff([]float64{11, 22, 13, 24}, out.AsFloat64(), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("oracle mismatch (-want +got):\n%s", diff)
	}

	out, err = oracleFC(nil, nil, []float64{1, 2}, 3, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 1, 2, 1, 2}, out.AsFloat64())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("KERNELCHECK_TOLERANCE", "1e-3")
	t.Setenv("KERNELCHECK_SEQUENTIAL", "true")
	t.Setenv("KERNELCHECK_PRECISION", "fp16")
	t.Setenv("KERNELCHECK_SEED", "9")
	t.Setenv("KERNELCHECK_NUM_WORKERS", "2")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.InDelta(t, 1e-3, cfg.Tolerance, 0)
	assert.False(t, cfg.Parallel)
	assert.Equal(t, accel.FP16, cfg.Precision)
	assert.Equal(t, uint64(9), cfg.Seed)
	assert.Equal(t, 2, cfg.Workers)

	t.Setenv("KERNELCHECK_PRECISION", "int4")
	_, err = ConfigFromEnv()
	assert.Error(t, err)
}

func TestCaseNames(t *testing.T) {
	cases := DefaultCases()
	assert.Equal(t, "slice [3 4 5 6] axes=[0 1 2] starts=[-3 0 2] ends=[3 100 -1]", cases[0].Name())
	assert.Equal(t, "fc [1 1024 1 1] x [1024 32] pivot=1 bias=false", cases[1].Name())
	assert.Equal(t, "custom", FCCase{Label: "custom"}.Name())
}

func TestRun_DumpsFailingCase(t *testing.T) {
	x, err := tensor.FromSlice([]int8{1, -2}, tensor.Shape{2}, tensor.CPU)
	require.NoError(t, err)
	want, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, tensor.CPU)
	require.NoError(t, err)
	got, err := tensor.FromSlice([]float32{1, 3}, tensor.Shape{2}, tensor.CPU)
	require.NoError(t, err)

	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DumpDir = dir
	cfg.Logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h, err := New(cfg)
	require.NoError(t, err)

	results, err := h.Run(context.Background(),
		planCase{name: "fc [1 2] bad", plan: &Plan{Reference: constant(want), Device: constant(got), Inputs: map[string]*tensor.RawTensor{"x": x}}},
		planCase{name: "fine", plan: &Plan{Reference: constant(want), Device: constant(want)}},
	)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, filepath.Join(dir, "fc_1_2_bad.safetensors"), results[0].DumpPath)
	assert.Empty(t, results[1].DumpPath)

	tensors, meta, err := serialization.ReadSafeTensors(results[0].DumpPath)
	require.NoError(t, err)
	assert.Equal(t, "fc [1 2] bad", meta["case"])
	assert.Equal(t, "1", meta["mismatches"])
	assert.Equal(t, []int8{1, -2}, tensors["input.x"].AsInt8())
	assert.Equal(t, []float32{1, 2}, tensors["output.reference"].AsFloat32())
	assert.Equal(t, []float32{1, 3}, tensors["output.device"].AsFloat32())
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "slice_3_4_5_6_axes_0_1_2", fileName("slice [3 4 5 6] axes=[0 1 2]"))
	assert.Equal(t, "a-b.c", fileName("a-b.c"))
}
