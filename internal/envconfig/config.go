// Package envconfig reads kernelcheck settings from KERNELCHECK_* environment
// variables. Every getter falls back to its default (with a warning) when the
// variable is unset or malformed.
package envconfig

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// DefaultTolerance is the absolute tolerance used when none is configured.
const DefaultTolerance = 1e-5

// Var returns an environment variable stripped of whitespace and quotes.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// BoolWithDefault returns a getter for a boolean variable.
func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return defaultValue
	}
}

// Bool returns a getter for a boolean variable that defaults to false.
func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

// String returns a getter for a string variable.
func String(k string) func() string {
	return func() string {
		return Var(k)
	}
}

// Uint returns a getter for an unsigned integer variable.
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// Uint64 returns a getter for a uint64 variable.
func Uint64(key string, defaultValue uint64) func() uint64 {
	return func() uint64 {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return n
			}
		}
		return defaultValue
	}
}

// Tolerance returns the absolute comparison tolerance.
// Configurable via KERNELCHECK_TOLERANCE. Default: 1e-5.
func Tolerance() float64 {
	if s := Var("KERNELCHECK_TOLERANCE"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < 0 || math.IsNaN(f) {
			slog.Warn("invalid tolerance, using default", "value", s, "default", DefaultTolerance)
			return DefaultTolerance
		}
		return f
	}
	return DefaultTolerance
}

// LogLevel returns the log level.
// KERNELCHECK_DEBUG=1 enables debug logging; an integer n sets level -4n.
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("KERNELCHECK_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

var (
	// Seed seeds the operand generators. Configurable via KERNELCHECK_SEED.
	Seed = Uint64("KERNELCHECK_SEED", 1)
	// Sequential disables concurrent reference/device execution.
	Sequential = Bool("KERNELCHECK_SEQUENTIAL")
	// Precision selects the device output precision ("fp32" or "fp16").
	Precision = String("KERNELCHECK_PRECISION")
	// DumpDir is where failing cases are saved. Empty disables dumps.
	DumpDir = String("KERNELCHECK_DUMP_DIR")
)

// NumWorkers returns the worker count for row-parallel kernels.
// Configurable via KERNELCHECK_NUM_WORKERS. Default: runtime.NumCPU().
func NumWorkers() int {
	n := Uint("KERNELCHECK_NUM_WORKERS", 0)()
	if n == 0 {
		return runtime.NumCPU()
	}
	return int(n) //nolint:gosec // G115: worker counts are small.
}

// EnvVar describes one configuration variable.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns every configuration variable with its current value.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"KERNELCHECK_DEBUG":       {"KERNELCHECK_DEBUG", LogLevel(), "Show additional debug information (e.g. KERNELCHECK_DEBUG=1)"},
		"KERNELCHECK_TOLERANCE":   {"KERNELCHECK_TOLERANCE", Tolerance(), "Absolute tolerance for reference/device comparison (default 1e-5)"},
		"KERNELCHECK_SEED":        {"KERNELCHECK_SEED", Seed(), "Seed for generated operands (default 1)"},
		"KERNELCHECK_SEQUENTIAL":  {"KERNELCHECK_SEQUENTIAL", Sequential(), "Run reference and device computations one after the other"},
		"KERNELCHECK_PRECISION":   {"KERNELCHECK_PRECISION", Precision(), "Device output precision: fp32 or fp16 (default fp32)"},
		"KERNELCHECK_NUM_WORKERS": {"KERNELCHECK_NUM_WORKERS", NumWorkers(), "Workers for row-parallel kernels (default: number of CPUs)"},
		"KERNELCHECK_DUMP_DIR":    {"KERNELCHECK_DUMP_DIR", DumpDir(), "Directory for SafeTensors dumps of failing cases"},
	}
}

// Values returns every configuration variable formatted as a string.
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
