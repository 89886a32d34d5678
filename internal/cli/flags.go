package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/daryltucker/donut-runner/internal/assets"
	"github.com/daryltucker/donut-runner/internal/model"
)

// configFlags builds a Configuration from --template plus per-field flags.
// Only flags the user set override the template.
type configFlags struct {
	template        string
	bufferType      string
	producers       int
	consumers       int
	bufferSizeMB    int
	totalTransferMB int
	gui             bool
}

func (f *configFlags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.template, "template", "T", "", "start from a named template (see 'templates')")
	fs.StringVarP(&f.bufferType, "buffer-type", "b", "", "lock-free, mutex-guarded or concurrent-queue")
	fs.IntVarP(&f.producers, "producers", "p", 0, "producer threads (1-16)")
	fs.IntVarP(&f.consumers, "consumers", "c", 0, "consumer threads (1-16)")
	fs.IntVar(&f.bufferSizeMB, "buffer-size", 0, "buffer size in MB (1-1024)")
	fs.IntVar(&f.totalTransferMB, "total-transfer", 0, "total transfer in MB (1-10000)")
	fs.BoolVar(&f.gui, "gui", false, "enable the program's visualizer")
}

func (f *configFlags) configuration(fs *pflag.FlagSet) (model.Configuration, error) {
	var cand model.Candidate
	if f.template != "" {
		t, ok := assets.Lookup(f.template)
		if !ok {
			return model.Configuration{}, fmt.Errorf("unknown template %q", f.template)
		}
		cand = model.CandidateFrom(t.Config)
	}
	if fs.Changed("buffer-type") {
		cand.BufferType = &f.bufferType
	}
	if fs.Changed("producers") {
		cand.Producers = &f.producers
	}
	if fs.Changed("consumers") {
		cand.Consumers = &f.consumers
	}
	if fs.Changed("buffer-size") {
		cand.BufferSizeMB = &f.bufferSizeMB
	}
	if fs.Changed("total-transfer") {
		cand.TotalTransferMB = &f.totalTransferMB
	}
	if fs.Changed("gui") {
		cand.GUIEnabled = &f.gui
	}
	return cand.Validate()
}

// timeoutFlag registers --timeout. Zero means the configured run_timeout.
func timeoutFlag(cmd *cobra.Command, dst *time.Duration) {
	cmd.Flags().DurationVarP(dst, "timeout", "t", 0, "kill the program after this long (default run_timeout from config)")
}

// emit prints v as JSON when --json is set, otherwise calls pretty.
func emit(w io.Writer, v any, pretty func(io.Writer)) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	pretty(w)
	return nil
}

// stdout is replaced in tests.
var stdout = func() io.Writer { return os.Stdout }
