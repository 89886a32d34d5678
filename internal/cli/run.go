/*
PURPOSE:
  Defines the 'run' and 'interpret' subcommands.
  Runs DonutBufferApp once and explains the outcome.

REQUIREMENTS:
  User-specified:
  - Run the benchmark with an explicit configuration.
  - Interpret output captured elsewhere.

  Implementation-discovered:
  - Templates make a good starting point; flags override single fields.
  - A failed run still prints its output and advice, then exits non-zero.

ARCHITECTURE INTEGRATION:
  - Calls: backend.Run, backend.Interpret
  - Uses: internal/cli/flags.go, internal/output

ERROR HANDLING:
  - Invalid configurations are reported with field and bound before any
    process starts.
  - Returns errRunFailed when the program did not succeed.

IMPLEMENTATION RULES:
  - Setup flags in init().
  - Logic: Flags -> Configuration -> Backend.Run -> Interpret -> Print.

USAGE:
  donut-runner run -b lock-free -p 4 -c 4
  donut-runner run --template stress_test --timeout 1m
  DonutBufferApp ... | donut-runner interpret -b mutex-guarded -p 2 -c 2

SELF-HEALING INSTRUCTIONS:
  - Check flag names match Configuration fields generally.

RELATED FILES:
  - internal/cli/root.go
  - internal/cli/flags.go

MAINTENANCE:
  - Update when adding Configuration fields.
*/

package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/daryltucker/donut-runner/internal/output"
	"github.com/daryltucker/donut-runner/internal/results"
)

var (
	runFlags    configFlags
	runTimeout  time.Duration
	runVerbose  bool
	interpFlags configFlags
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run DonutBufferApp with a configuration",
	Long: `Runs the DonutBuffer benchmark program once and interprets the result.
The process follows a strict protocol:
1. Validation: every field is checked against its bound; nothing starts otherwise.
2. Execution: the program runs in its own process group under a timeout.
3. Interpretation: throughput and latency are extracted and compared to targets.

When output_dir or history_db is configured, the run is recorded there.`,
	Example: `  # Lock-free buffer with four producers and consumers
  donut-runner run -b lock-free -p 4 -c 4

  # Start from a template and override one field
  donut-runner run --template balanced --producers 3

  # Run on a remote runner
  donut-runner --server http://runner:8000 run --template stress_test`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := runFlags.configuration(cmd.Flags())
		if err != nil {
			return err
		}
		b, closeFn, err := openBackend()
		if err != nil {
			return err
		}
		defer closeFn()

		res, err := b.Run(cmd.Context(), c, runTimeout)
		if err != nil {
			return err
		}
		interp := results.InterpretExecution(res)

		w := stdout()
		if err := emit(w, map[string]any{"execution_result": res, "interpretation": interp}, func(w io.Writer) {
			output.PrintConfiguration(w, c)
			fmt.Fprintln(w)
			output.PrintExecution(w, res, runVerbose)
			fmt.Fprintln(w)
			output.PrintInterpretation(w, interp)
		}); err != nil {
			return err
		}
		if !res.Success {
			return errRunFailed
		}
		return nil
	},
}

var interpretCmd = &cobra.Command{
	Use:   "interpret [output-file]",
	Short: "Interpret benchmark output for a configuration",
	Long: `Extracts throughput and latency from DonutBufferApp output and explains them.
Reads the file given as argument, or standard input when it is omitted or "-".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := interpFlags.configuration(cmd.Flags())
		if err != nil {
			return err
		}
		text, err := readInput(args)
		if err != nil {
			return err
		}
		b, closeFn, err := openBackend()
		if err != nil {
			return err
		}
		defer closeFn()

		interp, err := b.Interpret(cmd.Context(), text, c)
		if err != nil {
			return err
		}
		return emit(stdout(), interp, func(w io.Writer) {
			output.PrintInterpretation(w, interp)
		})
	},
}

func readInput(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read output file: %w", err)
	}
	return string(data), nil
}

func init() {
	rootCmd.AddCommand(runCmd)
	runFlags.bind(runCmd.Flags())
	timeoutFlag(runCmd, &runTimeout)
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "print program output even on success")

	rootCmd.AddCommand(interpretCmd)
	interpFlags.bind(interpretCmd.Flags())
}
