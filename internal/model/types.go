/*
PURPOSE:
  Defines the data structures that flow out of a benchmark run: the captured
  process outcome, the derived performance interpretation, and the record
  kept in run history.

REQUIREMENTS:
  User-specified:
  - ExecutionResult carries success, raw output, exit classification and
    wall-clock duration.
  - Interpretation carries nullable throughput and latency (with units) and
    free-text recommendation.

  Implementation-discovered:
  - Callers want both the unit as printed and a normalized value to compare
    runs, so Metric keeps both.
  - JSON tags must match the HTTP surface exactly.

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine, internal/results, internal/service,
    internal/output, internal/history, internal/server.

ERROR HANDLING:
  - None (pure data structs).

IMPLEMENTATION RULES:
  - Keep structs simple and public.
  - Use time.Time and time.Duration for high precision.

USAGE:
  res := model.ExecutionResult{...}

SELF-HEALING INSTRUCTIONS:
  - If new metrics are needed, add a field and update the CSV/JSON writers
    and the history schema.

RELATED FILES:
  - internal/output/csv.go
  - internal/output/json.go
  - internal/history/store.go

MAINTENANCE:
  - Update when adding new metrics to capture.
*/

package model

import (
	"fmt"
	"strconv"
	"time"
)

// Classification is the exit category of one process runner invocation.
type Classification string

const (
	ClassSucceeded      Classification = "succeeded"
	ClassBuildFailure   Classification = "build_failure"
	ClassRuntimeFailure Classification = "runtime_failure"
	ClassTimeout        Classification = "timeout"
	ClassCanceled       Classification = "canceled"
)

// ExecutionResult is the outcome of one Process Runner invocation.
type ExecutionResult struct {
	ID             string         `json:"id,omitempty"`
	Success        bool           `json:"success"`
	Classification Classification `json:"classification"`
	Output         string         `json:"output"`
	ExitCode       int            `json:"exit_code"`
	Duration       time.Duration  `json:"duration_ns"`
	DurationMS     int64          `json:"duration_ms"`
	StartedAt      time.Time      `json:"started_at"`
	Command        []string       `json:"command,omitempty"`
	PID            int            `json:"pid,omitempty"`
	Truncated      bool           `json:"truncated,omitempty"`
	Config         Configuration  `json:"config"`
	Error          string         `json:"error,omitempty"`
}

// Metric is one measurement parsed from program output.
type Metric struct {
	Value          float64 `json:"value"`
	Unit           string  `json:"unit"`
	Normalized     float64 `json:"normalized"`
	NormalizedUnit string  `json:"normalized_unit"`
}

// String renders the metric as printed, e.g. "850.5 MB/s".
func (m Metric) String() string {
	return strconv.FormatFloat(m.Value, 'f', -1, 64) + " " + m.Unit
}

// Assessment is a coarse verdict on a run.
type Assessment string

const (
	AssessmentGood    Assessment = "good"
	AssessmentFair    Assessment = "fair"
	AssessmentPoor    Assessment = "poor"
	AssessmentUnknown Assessment = "unknown"
	AssessmentFailed  Assessment = "failed"
)

// Interpretation is the structured summary derived from program output.
type Interpretation struct {
	Throughput     *Metric       `json:"throughput"`
	Latency        *Metric       `json:"latency"`
	Assessment     Assessment    `json:"assessment"`
	Recommendation string        `json:"recommendation"`
	Notes          []string      `json:"notes"`
	Config         Configuration `json:"config"`
}

// RunRecord is what history sinks persist for every run.
type RunRecord struct {
	ID             string         `json:"id"`
	Source         string         `json:"source"`
	Timestamp      time.Time      `json:"timestamp"`
	Requirements   string         `json:"requirements,omitempty"`
	Config         Configuration  `json:"config"`
	Classification Classification `json:"classification"`
	Success        bool           `json:"success"`
	ExitCode       int            `json:"exit_code"`
	Duration       time.Duration  `json:"duration_ns"`
	ThroughputMBps *float64       `json:"throughput_mbps,omitempty"`
	LatencyMs      *float64       `json:"latency_ms,omitempty"`
	Assessment     Assessment     `json:"assessment,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// NewRunRecord assembles a record from a run and its interpretation.
// interp may be nil when the run was not interpreted.
func NewRunRecord(id, source string, res ExecutionResult, interp *Interpretation) RunRecord {
	rec := RunRecord{
		ID:             id,
		Source:         source,
		Timestamp:      res.StartedAt,
		Config:         res.Config,
		Classification: res.Classification,
		Success:        res.Success,
		ExitCode:       res.ExitCode,
		Duration:       res.Duration,
		Error:          res.Error,
	}
	if interp != nil {
		rec.Assessment = interp.Assessment
		if interp.Throughput != nil {
			v := interp.Throughput.Normalized
			rec.ThroughputMBps = &v
		}
		if interp.Latency != nil {
			v := interp.Latency.Normalized
			rec.LatencyMs = &v
		}
	}
	return rec
}

// Summary is a single line for console output.
func (r RunRecord) Summary() string {
	s := fmt.Sprintf("%s %s [%s]", r.ID, r.Config, r.Classification)
	if r.ThroughputMBps != nil {
		s += fmt.Sprintf(" %.1f MB/s", *r.ThroughputMBps)
	}
	if r.LatencyMs != nil {
		s += fmt.Sprintf(" %.3f ms", *r.LatencyMs)
	}
	return s
}
