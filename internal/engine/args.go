package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/daryltucker/donut-runner/internal/model"
)

// Flags understood by DonutBufferApp.
const (
	flagNoGUI           = "--nogui"
	flagBufferType      = "--buffer-type"
	flagProducers       = "--producers"
	flagConsumers       = "--consumers"
	flagBufferSizeMB    = "--buffer-size_mb"
	flagTotalTransferMB = "--total-transfer_mb"
)

// Args serializes a configuration into program arguments. The order is
// fixed, so equal configurations always produce equal argument lists.
func Args(cfg model.Configuration) []string {
	args := make([]string, 0, 6)
	if !cfg.GUIEnabled {
		args = append(args, flagNoGUI)
	}
	return append(args,
		flagBufferType+"="+cfg.BufferType.ProgramName(),
		flagProducers+"="+strconv.Itoa(cfg.Producers),
		flagConsumers+"="+strconv.Itoa(cfg.Consumers),
		flagBufferSizeMB+"="+strconv.Itoa(cfg.BufferSizeMB),
		flagTotalTransferMB+"="+strconv.Itoa(cfg.TotalTransferMB),
	)
}

// ParseArgs is the inverse of Args. The result is validated.
func ParseArgs(args []string) (model.Configuration, error) {
	var cand model.Candidate
	gui := true
	cand.GUIEnabled = &gui

	for _, arg := range args {
		if arg == flagNoGUI {
			gui = false
			continue
		}
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return model.Configuration{}, fmt.Errorf("malformed argument %q", arg)
		}
		switch name {
		case flagBufferType:
			bt, ok := model.BufferTypeFromProgramName(value)
			if !ok {
				return model.Configuration{}, &model.InvalidConfigurationError{
					Field: model.FieldBufferType, Bound: "one of lockfree, mutex, concurrent_queue", Value: value,
				}
			}
			s := string(bt)
			cand.BufferType = &s
		case flagProducers:
			cand.Producers = new(int)
			if err := parseIntArg(name, value, cand.Producers); err != nil {
				return model.Configuration{}, err
			}
		case flagConsumers:
			cand.Consumers = new(int)
			if err := parseIntArg(name, value, cand.Consumers); err != nil {
				return model.Configuration{}, err
			}
		case flagBufferSizeMB:
			cand.BufferSizeMB = new(int)
			if err := parseIntArg(name, value, cand.BufferSizeMB); err != nil {
				return model.Configuration{}, err
			}
		case flagTotalTransferMB:
			cand.TotalTransferMB = new(int)
			if err := parseIntArg(name, value, cand.TotalTransferMB); err != nil {
				return model.Configuration{}, err
			}
		default:
			return model.Configuration{}, fmt.Errorf("unknown argument %q", name)
		}
	}
	return cand.Validate()
}

func parseIntArg(name, value string, dst *int) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	*dst = n
	return nil
}
