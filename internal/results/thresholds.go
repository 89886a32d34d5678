package results

import "github.com/daryltucker/donut-runner/internal/model"

// Threshold is what a buffer type is expected to reach on a healthy run.
type Threshold struct {
	// GoodLatencyMs is the upper bound for "good" latency.
	GoodLatencyMs float64
	// MinThroughputMBps is the lower bound for "good" throughput.
	MinThroughputMBps float64
}

// Thresholds per buffer type. Values beyond twice the bound are "poor".
var Thresholds = map[model.BufferType]Threshold{
	model.BufferLockFree:        {GoodLatencyMs: 1, MinThroughputMBps: 1000},
	model.BufferMutexGuarded:    {GoodLatencyMs: 5, MinThroughputMBps: 250},
	model.BufferConcurrentQueue: {GoodLatencyMs: 2, MinThroughputMBps: 500},
}

func thresholdFor(bt model.BufferType) Threshold {
	if t, ok := Thresholds[bt]; ok {
		return t
	}
	return Thresholds[model.BufferMutexGuarded]
}
