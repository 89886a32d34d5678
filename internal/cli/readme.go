package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/daryltucker/donut-runner/internal/docs"
	"github.com/daryltucker/donut-runner/internal/output"
)

var readmeRaw bool

var readmeCmd = &cobra.Command{
	Use:   "readme",
	Short: "Summarize the DonutBuffer README",
	Long: `Prints what analyze_readme returns: features, build requirements, buffer types
and command line options. With --raw, renders the README itself (locally only).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if readmeRaw {
			content, source := docs.Load(cfg.ReadmePath)
			output.Logger.Debug("Rendering README", "source", source)
			return renderMarkdown(stdout(), string(content))
		}

		b, closeFn, err := openBackend()
		if err != nil {
			return err
		}
		defer closeFn()

		a, err := b.AnalyzeReadme(cmd.Context())
		if err != nil {
			return err
		}
		return emit(stdout(), a, func(w io.Writer) { printAnalysis(w, a) })
	},
}

// renderMarkdown styles markdown for a terminal and passes it through
// unchanged otherwise.
func renderMarkdown(w io.Writer, md string) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		_, err := io.WriteString(w, md)
		return err
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func printAnalysis(w io.Writer, a docs.Analysis) {
	fmt.Fprintf(w, "%s (%s)\n", a.Title, a.Source)
	list := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s\n", title)
		for _, it := range items {
			fmt.Fprintf(w, "  - %s\n", it)
		}
	}
	list("Features", a.KeyFeatures)
	list("Build requirements", a.BuildRequirements)
	list("Buffer types", a.BufferTypes)
	if len(a.CommandOptions) > 0 {
		fmt.Fprintln(w)
		output.PrintOptions(w, a.CommandOptions)
	}
}

func init() {
	rootCmd.AddCommand(readmeCmd)
	readmeCmd.Flags().BoolVar(&readmeRaw, "raw", false, "render the README instead of the summary")
}
