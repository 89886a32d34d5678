/*
PURPOSE:
  Defines the 'templates' subcommand.
  Lists the named starting configurations.

REQUIREMENTS:
  User-specified:
  - List available templates.

  Implementation-discovered:
  - Useful as a starting point for 'run --template'.

ARCHITECTURE INTEGRATION:
  - Calls: backend.Templates()

ERROR HANDLING:
  - Prints error if the server is unreachable.

IMPLEMENTATION RULES:
  - Simple output to stdout.

USAGE:
  donut-runner templates

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/assets/templates.yaml

MAINTENANCE:
  - None.
*/

package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List configuration templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, closeFn, err := openBackend()
		if err != nil {
			return err
		}
		defer closeFn()

		tpls, err := b.Templates(cmd.Context())
		if err != nil {
			return err
		}
		name := color.New(color.FgCyan, color.Bold)
		return emit(stdout(), tpls, func(w io.Writer) {
			for _, t := range tpls {
				name.Fprintf(w, "%s\n", t.Name)
				fmt.Fprintf(w, "  %s\n", t.Description)
				fmt.Fprintf(w, "  %s\n", t.Config)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
}
