/*
PURPOSE:
  Defines the bounded, typed shape of a ring-buffer benchmark configuration
  and the rules that decide whether a candidate configuration is valid.

REQUIREMENTS:
  User-specified:
  - buffer_type is one of lock-free, mutex-guarded, concurrent-queue.
  - producers and consumers within [1,16], buffer_size_mb within [1,1024],
    total_transfer_mb within [1,10000].
  - buffer_type, producers and consumers are required; the rest default
    (buffer_size_mb=16, total_transfer_mb=1000, gui_enabled=false).

  Implementation-discovered:
  - JSON callers need "missing" vs "zero" to be distinguishable, so raw input
    is decoded into a Candidate with pointer fields first.
  - Older clients send "nogui" instead of "gui_enabled".

ARCHITECTURE INTEGRATION:
  - Used by: internal/requirements, internal/engine, internal/results,
    internal/service, internal/server, internal/assets.

ERROR HANDLING:
  - Every rejection is an *InvalidConfigurationError naming the field and bound.
  - No side effects.

IMPLEMENTATION RULES:
  - Bounds live in IntBound values; validation and clamping both use them.
  - Configuration is a plain value; copies cannot alias each other.

USAGE:
  cfg, err := model.Candidate{...}.Validate()
  err := cfg.Validate()

SELF-HEALING INSTRUCTIONS:
  - When the external program gains a flag, add a field here, a bound, and
    the matching argument in internal/engine/args.go.

RELATED FILES:
  - internal/model/errors.go
  - internal/engine/args.go

MAINTENANCE:
  - Keep bounds in sync with the external program's accepted ranges.
*/

package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BufferType names a ring buffer implementation.
type BufferType string

const (
	BufferLockFree        BufferType = "lock-free"
	BufferMutexGuarded    BufferType = "mutex-guarded"
	BufferConcurrentQueue BufferType = "concurrent-queue"
)

// BufferTypes lists every accepted buffer type in canonical order.
var BufferTypes = []BufferType{BufferLockFree, BufferMutexGuarded, BufferConcurrentQueue}

// programNames maps buffer types to the names the external program expects.
var programNames = map[BufferType]string{
	BufferLockFree:        "lockfree",
	BufferMutexGuarded:    "mutex",
	BufferConcurrentQueue: "concurrent_queue",
}

// Valid reports whether b is one of the fixed buffer types.
func (b BufferType) Valid() bool {
	_, ok := programNames[b]
	return ok
}

// ProgramName returns the value passed to the program's --buffer-type flag.
func (b BufferType) ProgramName() string {
	return programNames[b]
}

// Description is a one-line summary used in explanations and recommendations.
func (b BufferType) Description() string {
	switch b {
	case BufferLockFree:
		return "lock-free ring buffer, suited to high-throughput and low-latency scenarios"
	case BufferMutexGuarded:
		return "mutex-guarded ring buffer, suited to general use"
	case BufferConcurrentQueue:
		return "concurrent queue, suited to complex producer-consumer patterns"
	default:
		return "unknown buffer type"
	}
}

// BufferTypeFromProgramName is the inverse of ProgramName.
func BufferTypeFromProgramName(name string) (BufferType, bool) {
	for bt, pn := range programNames {
		if pn == name {
			return bt, true
		}
	}
	return "", false
}

// ParseBufferType accepts only the canonical names.
func ParseBufferType(s string) (BufferType, error) {
	bt := BufferType(strings.TrimSpace(s))
	if !bt.Valid() {
		return "", &InvalidConfigurationError{Field: FieldBufferType, Bound: bufferTypeBound(), Value: s}
	}
	return bt, nil
}

func bufferTypeBound() string {
	names := make([]string, len(BufferTypes))
	for i, bt := range BufferTypes {
		names[i] = string(bt)
	}
	return "one of " + strings.Join(names, ", ")
}

// Field names as they appear on the wire.
const (
	FieldBufferType      = "buffer_type"
	FieldProducers       = "producers"
	FieldConsumers       = "consumers"
	FieldBufferSizeMB    = "buffer_size_mb"
	FieldTotalTransferMB = "total_transfer_mb"
	FieldGUIEnabled      = "gui_enabled"
)

// IntBound is an inclusive integer range for one field.
type IntBound struct {
	Field string
	Min   int
	Max   int
}

var (
	ProducersBound       = IntBound{Field: FieldProducers, Min: 1, Max: 16}
	ConsumersBound       = IntBound{Field: FieldConsumers, Min: 1, Max: 16}
	BufferSizeMBBound    = IntBound{Field: FieldBufferSizeMB, Min: 1, Max: 1024}
	TotalTransferMBBound = IntBound{Field: FieldTotalTransferMB, Min: 1, Max: 10000}
)

const (
	DefaultBufferSizeMB    = 16
	DefaultTotalTransferMB = 1000
)

// String renders the bound as "[min, max]".
func (b IntBound) String() string {
	return fmt.Sprintf("[%d, %d]", b.Min, b.Max)
}

// Check returns an *InvalidConfigurationError when v is outside the bound.
func (b IntBound) Check(v int) error {
	if v < b.Min || v > b.Max {
		return &InvalidConfigurationError{Field: b.Field, Bound: b.String(), Value: v}
	}
	return nil
}

// Clamp pulls v into the bound.
func (b IntBound) Clamp(v int) int {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// Configuration is the validated parameter set for one benchmark run.
type Configuration struct {
	BufferType      BufferType `json:"buffer_type" yaml:"buffer_type"`
	Producers       int        `json:"producers" yaml:"producers"`
	Consumers       int        `json:"consumers" yaml:"consumers"`
	BufferSizeMB    int        `json:"buffer_size_mb" yaml:"buffer_size_mb"`
	TotalTransferMB int        `json:"total_transfer_mb" yaml:"total_transfer_mb"`
	GUIEnabled      bool       `json:"gui_enabled" yaml:"gui_enabled"`
}

// DefaultConfiguration is what the requirement interpreter returns when no
// heuristic matches.
func DefaultConfiguration() Configuration {
	return Configuration{
		BufferType:      BufferLockFree,
		Producers:       1,
		Consumers:       1,
		BufferSizeMB:    DefaultBufferSizeMB,
		TotalTransferMB: DefaultTotalTransferMB,
	}
}

// Validate checks every field against its bound, in wire order.
func (c Configuration) Validate() error {
	if c.BufferType == "" {
		return &InvalidConfigurationError{Field: FieldBufferType, Bound: "required"}
	}
	if !c.BufferType.Valid() {
		return &InvalidConfigurationError{Field: FieldBufferType, Bound: bufferTypeBound(), Value: string(c.BufferType)}
	}
	for _, check := range []struct {
		bound IntBound
		value int
	}{
		{ProducersBound, c.Producers},
		{ConsumersBound, c.Consumers},
		{BufferSizeMBBound, c.BufferSizeMB},
		{TotalTransferMBBound, c.TotalTransferMB},
	} {
		if err := check.bound.Check(check.value); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalJSON decodes through Candidate so that required fields, defaults
// and bounds are enforced at the transport boundary.
func (c *Configuration) UnmarshalJSON(data []byte) error {
	var cand Candidate
	if err := json.Unmarshal(data, &cand); err != nil {
		return err
	}
	cfg, err := cand.Validate()
	if err != nil {
		return err
	}
	*c = cfg
	return nil
}

// Candidate is unvalidated input. Nil pointers mean the field was absent.
type Candidate struct {
	BufferType      *string `json:"buffer_type,omitempty" yaml:"buffer_type,omitempty"`
	Producers       *int    `json:"producers,omitempty" yaml:"producers,omitempty"`
	Consumers       *int    `json:"consumers,omitempty" yaml:"consumers,omitempty"`
	BufferSizeMB    *int    `json:"buffer_size_mb,omitempty" yaml:"buffer_size_mb,omitempty"`
	TotalTransferMB *int    `json:"total_transfer_mb,omitempty" yaml:"total_transfer_mb,omitempty"`
	GUIEnabled      *bool   `json:"gui_enabled,omitempty" yaml:"gui_enabled,omitempty"`
	NoGUI           *bool   `json:"nogui,omitempty" yaml:"nogui,omitempty"`
}

// Validate turns the candidate into a Configuration or reports the first
// offending field.
func (c Candidate) Validate() (Configuration, error) {
	if c.BufferType == nil {
		return Configuration{}, &InvalidConfigurationError{Field: FieldBufferType, Bound: "required"}
	}
	if c.Producers == nil {
		return Configuration{}, &InvalidConfigurationError{Field: FieldProducers, Bound: "required"}
	}
	if c.Consumers == nil {
		return Configuration{}, &InvalidConfigurationError{Field: FieldConsumers, Bound: "required"}
	}

	bt, err := ParseBufferType(*c.BufferType)
	if err != nil {
		return Configuration{}, err
	}

	cfg := Configuration{
		BufferType:      bt,
		Producers:       *c.Producers,
		Consumers:       *c.Consumers,
		BufferSizeMB:    DefaultBufferSizeMB,
		TotalTransferMB: DefaultTotalTransferMB,
	}
	if c.BufferSizeMB != nil {
		cfg.BufferSizeMB = *c.BufferSizeMB
	}
	if c.TotalTransferMB != nil {
		cfg.TotalTransferMB = *c.TotalTransferMB
	}
	switch {
	case c.GUIEnabled != nil:
		cfg.GUIEnabled = *c.GUIEnabled
	case c.NoGUI != nil:
		cfg.GUIEnabled = !*c.NoGUI
	}

	if err := cfg.Validate(); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}

// CandidateFrom builds a fully populated candidate from a configuration.
func CandidateFrom(cfg Configuration) Candidate {
	bt := string(cfg.BufferType)
	p, c, b, t, g := cfg.Producers, cfg.Consumers, cfg.BufferSizeMB, cfg.TotalTransferMB, cfg.GUIEnabled
	return Candidate{
		BufferType:      &bt,
		Producers:       &p,
		Consumers:       &c,
		BufferSizeMB:    &b,
		TotalTransferMB: &t,
		GUIEnabled:      &g,
	}
}

// String is a compact single-line rendering used in logs.
func (c Configuration) String() string {
	return fmt.Sprintf("%s p=%d c=%d buf=%dMB xfer=%dMB gui=%t",
		c.BufferType, c.Producers, c.Consumers, c.BufferSizeMB, c.TotalTransferMB, c.GUIEnabled)
}
