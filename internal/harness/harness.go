// Package harness checks the simulated accelerator against the reference CPU
// kernels.
//
// Each Case builds a Plan from seeded operands: a reference computation, a
// device computation and, optionally, a float64 oracle. The harness runs the
// reference and device sides (concurrently unless configured otherwise),
// compares them element-wise under an absolute tolerance and reports one
// Result per case.
package harness

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/born-ml/kernelcheck/internal/backend/accel"
	"github.com/born-ml/kernelcheck/internal/backend/cpu"
	"github.com/born-ml/kernelcheck/internal/envconfig"
	"github.com/born-ml/kernelcheck/internal/parallel"
	"github.com/born-ml/kernelcheck/internal/tensor"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// fp16Epsilon is the relative rounding error of an FP16 output stage.
const fp16Epsilon = 1.0 / 2048

// Computation produces one output tensor.
type Computation func(ctx context.Context) (*tensor.RawTensor, error)

// Plan is a built case, ready to run.
type Plan struct {
	Reference Computation
	Device    Computation
	Oracle    Computation // Optional float64 ground truth for the reference
	Tolerance float64     // Overrides Config.Tolerance when > 0

	// Inputs are the generated operands, saved alongside the outputs when a
	// failing case is dumped.
	Inputs map[string]*tensor.RawTensor
}

// Env is what a Case builds its plan against.
type Env struct {
	Ref *cpu.CPUBackend
	Dev *accel.Backend
	Rng *rand.Rand
}

// Case is one verification scenario.
type Case interface {
	Name() string
	Build(env *Env) (*Plan, error)
}

// Config configures a Harness.
type Config struct {
	Tolerance float64         // Absolute tolerance; 0 requires exact equality
	Parallel  bool            // Run reference and device concurrently
	Precision accel.Precision // Device output precision
	Workers   int             // Row workers for both backends (0 = NumCPU)
	Seed      uint64          // Operand seed
	DumpDir   string          // Failing cases are written here as SafeTensors
	Logger    *slog.Logger    // Defaults to slog.Default()
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Tolerance: envconfig.DefaultTolerance,
		Parallel:  true,
		Precision: accel.FP32,
		Seed:      1,
	}
}

// ConfigFromEnv reads the KERNELCHECK_* environment variables.
func ConfigFromEnv() (Config, error) {
	p, err := accel.ParsePrecision(envconfig.Precision())
	if err != nil {
		return Config{}, err
	}
	return Config{
		Tolerance: envconfig.Tolerance(),
		Parallel:  !envconfig.Sequential(),
		Precision: p,
		Workers:   envconfig.NumWorkers(),
		Seed:      envconfig.Seed(),
		DumpDir:   envconfig.DumpDir(),
	}, nil
}

// Harness runs cases against a reference and a device backend.
type Harness struct {
	cfg Config
	ref *cpu.CPUBackend
	dev *accel.Backend
	log *slog.Logger
}

// New creates a harness. Start from DefaultConfig or ConfigFromEnv; a zero
// Tolerance is taken literally.
func New(cfg Config) (*Harness, error) {
	if cfg.Tolerance < 0 || math.IsNaN(cfg.Tolerance) {
		return nil, fmt.Errorf("invalid tolerance %v: must be >= 0", cfg.Tolerance)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pcfg := parallel.DefaultConfig()
	if cfg.Workers > 0 {
		pcfg.NumWorkers = cfg.Workers
	}

	return &Harness{
		cfg: cfg,
		ref: cpu.NewWithConfig(pcfg),
		dev: accel.New(accel.Config{Precision: cfg.Precision, Parallel: pcfg}),
		log: logger,
	}, nil
}

// Config returns the effective configuration.
func (h *Harness) Config() Config {
	return h.cfg
}

// Run executes every case in order. A case whose build or computation fails
// is reported through Result.Err; Run itself only fails when ctx is done.
func (h *Harness) Run(ctx context.Context, cases ...Case) ([]Result, error) {
	results := make([]Result, 0, len(cases))
	for i, c := range cases {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res := h.runCase(ctx, c, h.cfg.Seed+uint64(i)) //nolint:gosec // G115: case index is non-negative.
		if err := ctx.Err(); err != nil {
			return results, err
		}

		if res.Err != nil {
			h.log.Error("case failed", "case", res.Case, "error", res.Err)
		} else {
			h.log.Info("case finished", "case", res.Case, "passed", res.Passed(),
				"elements", res.Elements, "mismatches", res.Mismatches,
				"max_abs_diff", res.MaxAbsDiff, "tolerance", res.Tolerance, "duration", res.Duration)
		}
		results = append(results, res)
	}
	return results, nil
}

func (h *Harness) runCase(ctx context.Context, c Case, seed uint64) Result {
	start := time.Now()
	res := Result{Case: c.Name(), Tolerance: h.cfg.Tolerance, OracleDiff: math.NaN()}

	plan, err := c.Build(&Env{Ref: h.ref, Dev: h.dev, Rng: tensor.NewRand(seed)})
	if err != nil {
		res.Err = fmt.Errorf("case %s: build: %w", res.Case, err)
		return res
	}
	if plan.Tolerance > 0 {
		res.Tolerance = plan.Tolerance
	}

	want, got, err := h.execute(ctx, res.Case, plan)
	if err != nil {
		res.Err = fmt.Errorf("case %s: %w", res.Case, err)
		return res
	}

	tol := res.Tolerance
	if h.cfg.Precision == accel.FP16 {
		tol = math.Max(tol, floats.Norm(toFloat64(want), math.Inf(1))*fp16Epsilon)
		res.Tolerance = tol
	}

	diff, err := Compare(want, got, tol)
	if err != nil {
		res.Err = fmt.Errorf("case %s: %w", res.Case, err)
		return res
	}
	res.Elements = diff.Elements
	res.Mismatches = diff.Mismatches
	res.MaxAbsDiff = diff.MaxAbsDiff

	if plan.Oracle != nil {
		exact, err := plan.Oracle(ctx)
		if err != nil {
			res.Err = fmt.Errorf("case %s: oracle: %w", res.Case, err)
			return res
		}
		oc, err := Compare(exact, want, res.Tolerance)
		if err != nil {
			res.Err = fmt.Errorf("case %s: oracle: %w", res.Case, err)
			return res
		}
		res.OracleDiff = oc.MaxAbsDiff
		res.OracleMismatches = oc.Mismatches
	}

	if !res.Passed() && h.cfg.DumpDir != "" {
		path, err := dumpCase(h.cfg.DumpDir, res, seed, plan.Inputs, want, got)
		if err != nil {
			h.log.Warn("failed to dump case", "case", res.Case, "error", err)
		} else {
			res.DumpPath = path
			h.log.Info("dumped failing case", "case", res.Case, "path", path)
		}
	}

	res.Duration = time.Since(start)
	return res
}

// execute runs both sides of a plan, concurrently when configured.
func (h *Harness) execute(ctx context.Context, name string, plan *Plan) (want, got *tensor.RawTensor, err error) {
	reference := func(ctx context.Context) error {
		t := time.Now()
		out, err := plan.Reference(ctx)
		if err != nil {
			return fmt.Errorf("reference: %w", err)
		}
		h.log.Debug("reference computed", "case", name, "shape", out.Shape(), "duration", time.Since(t))
		want = out
		return nil
	}
	device := func(ctx context.Context) error {
		t := time.Now()
		out, err := plan.Device(ctx)
		if err != nil {
			return fmt.Errorf("device: %w", err)
		}
		h.log.Debug("device computed", "case", name, "backend", h.dev.Name(),
			"precision", h.dev.Precision(), "shape", out.Shape(), "duration", time.Since(t))
		got = out
		return nil
	}

	if !h.cfg.Parallel {
		if err := reference(ctx); err != nil {
			return nil, nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if err := device(ctx); err != nil {
			return nil, nil, err
		}
		return want, got, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return reference(gctx) })
	g.Go(func() error { return device(gctx) })
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return want, got, nil
}
