package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/daryltucker/donut-runner/internal/model"
	"github.com/daryltucker/donut-runner/internal/requirements"
	"github.com/daryltucker/donut-runner/internal/results"
)

var (
	bold   = color.New(color.Bold)
	cyan   = color.New(color.FgCyan, color.Bold)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	gray   = color.New(color.FgHiBlack)
)

func assessmentColor(a model.Assessment) *color.Color {
	switch a {
	case model.AssessmentGood:
		return green
	case model.AssessmentFair, model.AssessmentUnknown:
		return yellow
	default:
		return red
	}
}

// PrintConfiguration renders a configuration block.
func PrintConfiguration(w io.Writer, cfg model.Configuration) {
	cyan.Fprintln(w, "Configuration")
	fmt.Fprintf(w, "  buffer_type:       %s\n", cfg.BufferType)
	fmt.Fprintf(w, "  producers:         %d\n", cfg.Producers)
	fmt.Fprintf(w, "  consumers:         %d\n", cfg.Consumers)
	fmt.Fprintf(w, "  buffer_size_mb:    %d\n", cfg.BufferSizeMB)
	fmt.Fprintf(w, "  total_transfer_mb: %d\n", cfg.TotalTransferMB)
	fmt.Fprintf(w, "  gui_enabled:       %t\n", cfg.GUIEnabled)
}

// PrintInference renders the requirement interpreter's answer.
func PrintInference(w io.Writer, inf requirements.Inference) {
	PrintConfiguration(w, inf.Config)
	if len(inf.Matched) > 0 {
		gray.Fprintf(w, "  rules: %s\n", strings.Join(inf.Matched, ", "))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, inf.Explanation)
}

// PrintExecution renders an execution result. Output is shown only when
// verbose is set or the run failed.
func PrintExecution(w io.Writer, res model.ExecutionResult, verbose bool) {
	status := green.Sprint("SUCCEEDED")
	if !res.Success {
		status = red.Sprint(strings.ToUpper(string(res.Classification)))
	}
	fmt.Fprintf(w, "%s %s in %s (exit %d)\n", bold.Sprint("Run:"), status, res.Duration.Round(1e6), res.ExitCode)
	if res.Error != "" {
		red.Fprintf(w, "  %s\n", res.Error)
	}
	if verbose || !res.Success {
		out := strings.TrimRight(res.Output, "\n")
		if out != "" {
			gray.Fprintln(w, "--- output ---")
			fmt.Fprintln(w, out)
			if res.Truncated {
				yellow.Fprintln(w, "[output truncated]")
			}
			gray.Fprintln(w, "--------------")
		}
	}
}

// PrintInterpretation renders metrics, verdict and recommendation.
func PrintInterpretation(w io.Writer, interp model.Interpretation) {
	cyan.Fprintln(w, "Interpretation")
	fmt.Fprintf(w, "  throughput: %s\n", metricText(interp.Throughput))
	fmt.Fprintf(w, "  latency:    %s\n", metricText(interp.Latency))
	fmt.Fprintf(w, "  assessment: %s\n", assessmentColor(interp.Assessment).Sprint(interp.Assessment))
	for _, n := range interp.Notes {
		gray.Fprintf(w, "  - %s\n", n)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, interp.Recommendation)
}

// PrintComparison renders a ranked buffer comparison.
func PrintComparison(w io.Writer, c results.Comparison) {
	cyan.Fprintln(w, "Buffer comparison")
	for _, e := range c.Entries {
		line := fmt.Sprintf("  %d. %-17s %-14s %s", e.Rank, e.BufferType,
			metricText(e.Interpretation.Throughput), metricText(e.Interpretation.Latency))
		if e.BufferType == c.Winner {
			green.Fprintln(w, line)
		} else if !e.Result.Success {
			red.Fprintln(w, line+"  "+string(e.Result.Classification))
		} else {
			fmt.Fprintln(w, line)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, c.Summary)
}

// PrintRecords renders run history, newest first.
func PrintRecords(w io.Writer, recs []model.RunRecord) {
	if len(recs) == 0 {
		gray.Fprintln(w, "No runs recorded.")
		return
	}
	for _, r := range recs {
		c := green
		if !r.Success {
			c = red
		}
		fmt.Fprintf(w, "%s %s\n", gray.Sprint(r.Timestamp.Format("2006-01-02 15:04:05")), c.Sprint(r.Summary()))
	}
}

// PrintOptions renders a flag table sorted by name.
func PrintOptions(w io.Writer, opts map[string]string) {
	names := make([]string, 0, len(opts))
	for n := range opts {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %-26s %s\n", bold.Sprint(n), opts[n])
	}
}

func metricText(m *model.Metric) string {
	if m == nil {
		return "n/a"
	}
	if m.Unit == m.NormalizedUnit {
		return m.String()
	}
	return fmt.Sprintf("%s (%s %s)", m.String(), strconv.FormatFloat(m.Normalized, 'f', -1, 64), m.NormalizedUnit)
}
