package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/daryltucker/donut-runner/internal/output"
	"github.com/daryltucker/donut-runner/internal/service"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:     "runs",
	Aliases: []string{"history"},
	Short:   "List recorded runs, newest first",
	Long:    `Reads the run history (history_db). Locally this needs history_db configured.`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, closeFn, err := openBackend()
		if err != nil {
			return err
		}
		defer closeFn()

		recs, err := b.History(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		return emit(stdout(), recs, func(w io.Writer) { output.PrintRecords(w, recs) })
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that DonutBufferApp is available",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, closeFn, err := openBackend()
		if err != nil {
			return err
		}
		defer closeFn()

		h, err := b.Health(cmd.Context())
		if err != nil {
			return err
		}
		if err := emit(stdout(), h, func(w io.Writer) {
			fmt.Fprintf(w, "%s: %s\n", h.Status, h.ProgramPath)
			if h.Message != "" {
				fmt.Fprintln(w, h.Message)
			}
		}); err != nil {
			return err
		}
		if h.Status == service.StatusUnhealthy {
			return fmt.Errorf("program unavailable")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to show")

	rootCmd.AddCommand(healthCmd)
}
