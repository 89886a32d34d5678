package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/daryltucker/donut-runner/internal/output"
)

var (
	benchTimeout   time.Duration
	benchVerbose   bool
	compareFlags   configFlags
	compareTimeout time.Duration
)

var configureCmd = &cobra.Command{
	Use:   "configure <requirements...>",
	Short: "Turn plain-language requirements into a configuration",
	Example: `  donut-runner configure "low latency audio with 2 producers"
  donut-runner configure stress test`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, closeFn, err := openBackend()
		if err != nil {
			return err
		}
		defer closeFn()

		inf, err := b.Configure(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return emit(stdout(), inf, func(w io.Writer) { output.PrintInference(w, inf) })
	},
}

var benchCmd = &cobra.Command{
	Use:   "bench <requirements...>",
	Short: "Configure from requirements, run and interpret in one step",
	Example: `  donut-runner bench "high throughput video pipeline"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, closeFn, err := openBackend()
		if err != nil {
			return err
		}
		defer closeFn()

		report, err := b.Benchmark(cmd.Context(), strings.Join(args, " "), benchTimeout)
		if err != nil {
			return err
		}
		if err := emit(stdout(), report, func(w io.Writer) {
			output.PrintInference(w, report.Inference)
			fmt.Fprintln(w)
			output.PrintExecution(w, report.Execution, benchVerbose)
			fmt.Fprintln(w)
			output.PrintInterpretation(w, report.Interpretation)
		}); err != nil {
			return err
		}
		if !report.Execution.Success {
			return errRunFailed
		}
		return nil
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run one workload on every buffer type and rank them",
	Long: `Runs the same producer, consumer and size settings with the lock-free,
mutex-guarded and concurrent-queue buffers, at most max_concurrent_runs at a
time, and ranks them by throughput. --buffer-type is ignored.`,
	Example: `  donut-runner compare -p 4 -c 4 --buffer-size 64
  donut-runner compare --template balanced`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fs := cmd.Flags()
		if !fs.Changed("buffer-type") && compareFlags.template == "" {
			// Any valid type works as the base; every type is run.
			compareFlags.bufferType = "lock-free"
			if err := fs.Set("buffer-type", compareFlags.bufferType); err != nil {
				return err
			}
		}
		c, err := compareFlags.configuration(fs)
		if err != nil {
			return err
		}
		b, closeFn, err := openBackend()
		if err != nil {
			return err
		}
		defer closeFn()

		cmp, err := b.Compare(cmd.Context(), c, compareTimeout)
		if err != nil {
			return err
		}
		return emit(stdout(), cmp, func(w io.Writer) { output.PrintComparison(w, cmp) })
	},
}

func init() {
	rootCmd.AddCommand(configureCmd)

	rootCmd.AddCommand(benchCmd)
	timeoutFlag(benchCmd, &benchTimeout)
	benchCmd.Flags().BoolVarP(&benchVerbose, "verbose", "v", false, "print program output even on success")

	rootCmd.AddCommand(compareCmd)
	compareFlags.bind(compareCmd.Flags())
	timeoutFlag(compareCmd, &compareTimeout)
}
