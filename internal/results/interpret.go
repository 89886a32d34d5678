/*
PURPOSE:
  Turns program output and the Configuration that produced it into an
  Interpretation: metrics, a coarse assessment and recommendation text.

REQUIREMENTS:
  User-specified:
  - Never fails; output without metrics is a valid Interpretation with empty
    metric fields and a recommendation saying so.
  - Recommendations compare metrics to buffer-type aware thresholds
    (lock-free: sub-millisecond latency is good; above target suggests
    fewer producers or a smaller buffer).

  Implementation-discovered:
  - Failed runs still deserve advice: build, dependencies, a different
    configuration.
  - Producer/consumer imbalance is worth mentioning on every run.

ARCHITECTURE INTEGRATION:
  - Called by: internal/service
  - Uses: internal/model, internal/results/metrics.go

ERROR HANDLING:
  - None. This package has no error returns.

IMPLEMENTATION RULES:
  - Pure functions; no I/O.

USAGE:
  interp := results.Interpret(res.Output, res.Config)
  interp := results.InterpretExecution(res)

SELF-HEALING INSTRUCTIONS:
  - Tune Thresholds, not the assessment logic, when hardware changes.

RELATED FILES:
  - internal/results/thresholds.go
  - internal/results/metrics.go

MAINTENANCE:
  - New buffer types need a Thresholds entry and a note in typeNotes.
*/

package results

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/daryltucker/donut-runner/internal/model"
)

var typeNotes = map[model.BufferType]string{
	model.BufferLockFree:        "Lock-free buffer chosen: good for high-performance scenarios.",
	model.BufferMutexGuarded:    "Mutex-guarded buffer chosen: good for general use cases.",
	model.BufferConcurrentQueue: "Concurrent queue chosen: good for complex producer-consumer patterns.",
}

// Interpret derives an Interpretation from output produced by cfg.
func Interpret(output string, cfg model.Configuration) model.Interpretation {
	tp, lat := ExtractMetrics(output)
	interp := model.Interpretation{
		Throughput: tp,
		Latency:    lat,
		Config:     cfg,
		Notes:      []string{},
	}
	if note, ok := typeNotes[cfg.BufferType]; ok {
		interp.Notes = append(interp.Notes, note)
	}
	if tp != nil {
		interp.Notes = append(interp.Notes, "Throughput measured: "+tp.String()+".")
		if prefix := strings.TrimSuffix(tp.Unit, "/s"); MaybeBits(prefix) {
			interp.Notes = append(interp.Notes, "Throughput unit "+tp.Unit+" was read as bytes per second; if the program reports bits, divide by 8.")
		}
	} else {
		interp.Notes = append(interp.Notes, "No recognizable throughput measurement in output.")
	}
	if lat != nil {
		interp.Notes = append(interp.Notes, "Latency measured: "+lat.String()+".")
	} else {
		interp.Notes = append(interp.Notes, "No recognizable latency measurement in output.")
	}

	interp.Assessment, interp.Recommendation = assess(tp, lat, cfg)
	if advice := balanceAdvice(cfg); advice != "" {
		interp.Recommendation += " " + advice
	}
	return interp
}

// InterpretExecution interprets a whole ExecutionResult. Failed runs get
// troubleshooting advice; whatever metrics the partial output holds are kept.
func InterpretExecution(res model.ExecutionResult) model.Interpretation {
	if res.Success {
		return Interpret(res.Output, res.Config)
	}
	tp, lat := ExtractMetrics(res.Output)
	interp := model.Interpretation{
		Throughput:     tp,
		Latency:        lat,
		Assessment:     model.AssessmentFailed,
		Config:         res.Config,
		Recommendation: failureAdvice(res),
		Notes:          []string{"Execution failed (" + string(res.Classification) + ")."},
	}
	if res.Error != "" {
		interp.Notes = append(interp.Notes, res.Error)
	}
	return interp
}

func assess(tp, lat *model.Metric, cfg model.Configuration) (model.Assessment, string) {
	if tp == nil && lat == nil {
		return model.AssessmentUnknown, "No throughput or latency measurements were found in the output, " +
			"so no performance verdict is possible. Run with the GUI disabled and check that the benchmark " +
			"printed its summary; then tune producer count or buffer size based on the measured values."
	}

	th := thresholdFor(cfg.BufferType)
	name := string(cfg.BufferType) + " buffers"
	verdict := model.AssessmentGood
	var advice []string

	if lat != nil && lat.Normalized > th.GoodLatencyMs {
		verdict = worse(verdict, grade(lat.Normalized > 2*th.GoodLatencyMs))
		advice = append(advice, fmt.Sprintf(
			"Latency %s ms is above the %s ms target for %s; reduce the producer count (now %d) or the buffer size (now %d MB) to cut contention.",
			num(lat.Normalized), num(th.GoodLatencyMs), name, cfg.Producers, cfg.BufferSizeMB))
	}
	if tp != nil && tp.Normalized < th.MinThroughputMBps {
		verdict = worse(verdict, grade(tp.Normalized < th.MinThroughputMBps/2))
		hint := "add producers or increase the buffer size"
		if cfg.BufferType != model.BufferLockFree {
			hint += ", or try the lock-free buffer"
		}
		advice = append(advice, fmt.Sprintf(
			"Throughput %s MB/s is below the %s MB/s expected for %s; %s.",
			num(tp.Normalized), num(th.MinThroughputMBps), name, hint))
	}

	if len(advice) == 0 {
		var measured []string
		if lat != nil {
			measured = append(measured, "latency "+num(lat.Normalized)+" ms")
		}
		if tp != nil {
			measured = append(measured, "throughput "+num(tp.Normalized)+" MB/s")
		}
		advice = append(advice, fmt.Sprintf(
			"Performance is within targets for %s (%s). Tune producer count or buffer size further to find the saturation point.",
			name, strings.Join(measured, ", ")))
	}
	if tp == nil || lat == nil {
		verdict = worse(verdict, model.AssessmentFair)
	}
	return verdict, strings.Join(advice, " ")
}

func grade(poor bool) model.Assessment {
	if poor {
		return model.AssessmentPoor
	}
	return model.AssessmentFair
}

var rank = map[model.Assessment]int{
	model.AssessmentGood: 0,
	model.AssessmentFair: 1,
	model.AssessmentPoor: 2,
}

func worse(a, b model.Assessment) model.Assessment {
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func balanceAdvice(cfg model.Configuration) string {
	switch {
	case cfg.Producers > cfg.Consumers:
		return fmt.Sprintf("More producers than consumers (%d vs %d) may fill the buffer and stall producers.", cfg.Producers, cfg.Consumers)
	case cfg.Consumers > cfg.Producers:
		return fmt.Sprintf("More consumers than producers (%d vs %d) may leave consumers idle on an empty buffer.", cfg.Consumers, cfg.Producers)
	default:
		return "Balanced producer-consumer ratio."
	}
}

func failureAdvice(res model.ExecutionResult) string {
	switch res.Classification {
	case model.ClassBuildFailure:
		return "Check that DonutBuffer is built correctly and that cmake and ninja are installed, then retry."
	case model.ClassTimeout:
		return fmt.Sprintf("The run exceeded its time limit. Reduce total_transfer_mb (now %d) or raise the timeout, and check that the GUI is disabled.",
			res.Config.TotalTransferMB)
	case model.ClassCanceled:
		return "The run was canceled before it finished; retry when ready."
	default:
		return "Verify that all dependencies are installed and try a different buffer configuration, such as fewer producers or a smaller buffer size."
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
