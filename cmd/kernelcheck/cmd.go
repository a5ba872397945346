package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/kernelcheck/internal/backend/accel"
	"github.com/born-ml/kernelcheck/internal/envconfig"
	"github.com/born-ml/kernelcheck/internal/harness"
)

var errCasesFailed = errors.New("verification failed")

// appendEnvDocs adds the environment variables a command honours to its help.
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI builds the root command.
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "kernelcheck",
		Short:         "Check accelerator kernels against reference kernels",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: envconfig.LogLevel()})
			slog.SetDefault(slog.New(handler))
		},
	}

	runCmd := newRunCmd()
	envVars := envconfig.AsMap()
	appendEnvDocs(runCmd, []envconfig.EnvVar{
		envVars["KERNELCHECK_DEBUG"],
		envVars["KERNELCHECK_TOLERANCE"],
		envVars["KERNELCHECK_SEED"],
		envVars["KERNELCHECK_SEQUENTIAL"],
		envVars["KERNELCHECK_PRECISION"],
		envVars["KERNELCHECK_NUM_WORKERS"],
		envVars["KERNELCHECK_DUMP_DIR"],
	})

	rootCmd.AddCommand(runCmd, newVersionCmd())
	return rootCmd
}

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:       "run [slice|fc|all]",
		Short:     "Run verification cases",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"slice", "fc", "all"},
		RunE:      RunHandler,
	}

	runCmd.Flags().Float64("tolerance", envconfig.DefaultTolerance, "Absolute tolerance for element comparison")
	runCmd.Flags().Uint64("seed", 1, "Seed for generated operands")
	runCmd.Flags().Bool("sequential", false, "Run reference and device one after the other")
	runCmd.Flags().String("precision", "fp32", "Device output precision (fp32 or fp16)")
	runCmd.Flags().Bool("extended", false, "Include the extended case set")
	runCmd.Flags().String("dump-dir", "", "Write failing cases to this directory as SafeTensors")

	return runCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kernelcheck version %s\n", version)
		},
	}
}

// configFromFlags starts from the environment and applies any flag the user
// set explicitly.
func configFromFlags(cmd *cobra.Command) (harness.Config, error) {
	cfg, err := harness.ConfigFromEnv()
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("tolerance") {
		if cfg.Tolerance, err = flags.GetFloat64("tolerance"); err != nil {
			return cfg, err
		}
		if cfg.Tolerance < 0 || math.IsNaN(cfg.Tolerance) {
			return cfg, fmt.Errorf("tolerance must be non-negative, got %g", cfg.Tolerance)
		}
	}
	if flags.Changed("seed") {
		if cfg.Seed, err = flags.GetUint64("seed"); err != nil {
			return cfg, err
		}
	}
	if flags.Changed("sequential") {
		sequential, err := flags.GetBool("sequential")
		if err != nil {
			return cfg, err
		}
		cfg.Parallel = !sequential
	}
	if flags.Changed("precision") {
		s, err := flags.GetString("precision")
		if err != nil {
			return cfg, err
		}
		if cfg.Precision, err = accel.ParsePrecision(s); err != nil {
			return cfg, err
		}
	}
	if flags.Changed("dump-dir") {
		if cfg.DumpDir, err = flags.GetString("dump-dir"); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// selectCases returns the cases of the requested kind.
func selectCases(kind string, extended bool) []harness.Case {
	all := harness.DefaultCases()
	if extended {
		all = append(all, harness.ExtendedCases()...)
	}

	var cases []harness.Case
	for _, c := range all {
		switch c.(type) {
		case harness.SliceCase:
			if kind == "slice" || kind == "all" {
				cases = append(cases, c)
			}
		case harness.FCCase:
			if kind == "fc" || kind == "all" {
				cases = append(cases, c)
			}
		}
	}
	return cases
}

// RunHandler runs the selected cases and prints a results table.
func RunHandler(cmd *cobra.Command, args []string) error {
	kind := "all"
	if len(args) > 0 {
		kind = args[0]
	}
	extended, err := cmd.Flags().GetBool("extended")
	if err != nil {
		return err
	}

	cfg, err := configFromFlags(cmd)
	if err != nil {
		return err
	}
	cfg.Logger = slog.Default()

	h, err := harness.New(cfg)
	if err != nil {
		return err
	}
	results, err := h.Run(cmd.Context(), selectCases(kind, extended)...)
	if err != nil {
		return err
	}

	failed := renderResults(cmd.OutOrStdout(), results)
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d cases failed", errCasesFailed, failed, len(results))
	}
	return nil
}

// renderResults prints one table row per result and returns the failures.
func renderResults(w io.Writer, results []harness.Result) int {
	var failed int
	data := make([][]string, 0, len(results))
	for _, r := range results {
		status := "PASS"
		if !r.Passed() {
			status = "FAIL"
			failed++
		}

		oracle := "-"
		if !math.IsNaN(r.OracleDiff) {
			oracle = strconv.FormatFloat(r.OracleDiff, 'g', 3, 64)
		}

		if r.Err != nil {
			data = append(data, []string{r.Case, "-", "-", "-", oracle, status + ": " + r.Err.Error()})
			continue
		}
		data = append(data, []string{
			r.Case,
			strconv.Itoa(r.Elements),
			strconv.Itoa(r.Mismatches),
			strconv.FormatFloat(r.MaxAbsDiff, 'g', 3, 64),
			oracle,
			status,
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"CASE", "ELEMENTS", "MISMATCHES", "MAX DIFF", "ORACLE DIFF", "RESULT"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.SetAutoWrapText(false)
	table.AppendBulk(data)
	table.Render()

	return failed
}
