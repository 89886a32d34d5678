package requirements

import (
	"regexp"

	"github.com/daryltucker/donut-runner/internal/model"
)

// Override lists the fields a rule sets. Zero values mean "leave alone";
// zero is never a valid value for any numeric field.
type Override struct {
	BufferType      model.BufferType
	Producers       int
	Consumers       int
	BufferSizeMB    int
	TotalTransferMB int
	GUIEnabled      *bool
}

// Rule maps trigger terms to field overrides. Rules are applied in table
// order, so later matches overwrite earlier ones.
type Rule struct {
	Name     string
	Triggers []string
	Override Override
	Reason   string
}

// Extractor pulls an explicit number for one field out of the text.
// Group 1 is the number; the optional group 2 is a size unit (kb, mb, gb).
type Extractor struct {
	Name    string
	Field   string
	Pattern *regexp.Regexp
}

func on() *bool  { b := true; return &b }
func off() *bool { b := false; return &b }

// DefaultRules is the heuristic policy. Heuristics come first, explicit
// buffer-type mentions last so that naming a type always wins.
var DefaultRules = []Rule{
	{
		Name:     "balanced",
		Triggers: []string{"balanced", "general", "general purpose", "general-purpose", "typical"},
		Override: Override{BufferType: model.BufferMutexGuarded, Producers: 2, Consumers: 2},
		Reason:   "balanced workload: mutex-guarded buffer with two producers and two consumers",
	},
	{
		Name:     "simple",
		Triggers: []string{"simple", "basic", "beginner", "learning", "demo"},
		Override: Override{BufferType: model.BufferMutexGuarded, Producers: 1, Consumers: 1, BufferSizeMB: 1, TotalTransferMB: 100},
		Reason:   "simple setup: single producer and consumer on a small mutex-guarded buffer",
	},
	{
		Name: "high-throughput",
		Triggers: []string{
			"high performance", "high-performance", "performance", "high throughput", "high-throughput",
			"throughput", "fast", "fastest", "maximum", "bandwidth", "speed",
		},
		Override: Override{BufferType: model.BufferLockFree, Producers: 4, Consumers: 4, BufferSizeMB: 64},
		Reason:   "throughput focus: lock-free buffer with more producers and a larger buffer",
	},
	{
		Name:     "media-streaming",
		Triggers: []string{"video", "audio", "media", "streaming", "frames", "camera"},
		Override: Override{Producers: 4, BufferSizeMB: 128, TotalTransferMB: 4096},
		Reason:   "media streaming: large buffer and transfer volume with parallel producers",
	},
	{
		Name:     "stress",
		Triggers: []string{"stress", "stress test", "heavy load", "load test", "scalability", "saturate"},
		Override: Override{BufferType: model.BufferConcurrentQueue, Producers: 8, Consumers: 8, BufferSizeMB: 32, TotalTransferMB: 2000},
		Reason:   "stress test: concurrent queue with eight producers and eight consumers",
	},
	{
		Name:     "complex-patterns",
		Triggers: []string{"complex", "many-to-many", "mpmc", "multi-producer", "multiple producers", "work queue"},
		Override: Override{BufferType: model.BufferConcurrentQueue},
		Reason:   "complex producer-consumer pattern: concurrent queue",
	},
	{
		Name:     "large-data",
		Triggers: []string{"large", "big", "bulk", "huge", "massive"},
		Override: Override{BufferSizeMB: 256, TotalTransferMB: 5000},
		Reason:   "large data volume: bigger buffer and transfer size",
	},
	{
		Name:     "small-footprint",
		Triggers: []string{"small", "tiny", "embedded", "constrained", "low memory", "limited memory"},
		Override: Override{BufferSizeMB: 4, TotalTransferMB: 100},
		Reason:   "small footprint: small buffer and short transfer",
	},
	{
		Name:     "quick-run",
		Triggers: []string{"quick", "smoke", "sanity", "short run", "brief"},
		Override: Override{TotalTransferMB: 100},
		Reason:   "quick run: short transfer",
	},
	{
		Name: "low-latency",
		Triggers: []string{
			"low latency", "low-latency", "latency", "real-time", "realtime", "real time",
			"responsive", "deterministic", "jitter",
		},
		Override: Override{BufferType: model.BufferLockFree, Producers: 1, Consumers: 1, BufferSizeMB: 2},
		Reason:   "latency focus: lock-free buffer, small buffer and fewer producers to reduce contention",
	},
	{
		Name:     "explicit-lock-free",
		Triggers: []string{"lock-free", "lockfree", "lock free", "atomic", "wait-free"},
		Override: Override{BufferType: model.BufferLockFree},
		Reason:   "lock-free buffer requested",
	},
	{
		Name:     "explicit-mutex",
		Triggers: []string{"mutex", "mutex-guarded", "lock-based", "locking", "mutexes"},
		Override: Override{BufferType: model.BufferMutexGuarded},
		Reason:   "mutex-guarded buffer requested",
	},
	{
		Name:     "explicit-concurrent-queue",
		Triggers: []string{"concurrent queue", "concurrent-queue", "concurrentqueue", "concurrent_queue"},
		Override: Override{BufferType: model.BufferConcurrentQueue},
		Reason:   "concurrent queue requested",
	},
	{
		Name:     "gui",
		Triggers: []string{"gui", "visualize", "visualise", "visualizer", "visualization", "interactive"},
		Override: Override{GUIEnabled: on()},
		Reason:   "visualization requested: GUI enabled",
	},
	{
		Name:     "headless",
		Triggers: []string{"headless", "no gui", "nogui", "automated", "ci", "server"},
		Override: Override{GUIEnabled: off()},
		Reason:   "headless run: GUI disabled",
	},
}

// DefaultExtractors pick up explicit numbers. They run after the rules.
var DefaultExtractors = []Extractor{
	{Name: "count-producers", Field: model.FieldProducers, Pattern: regexp.MustCompile(`(?i)\b(\d+)\s*(?:producer|writer)s?\b`)},
	{Name: "producers-count", Field: model.FieldProducers, Pattern: regexp.MustCompile(`(?i)\b(?:producer|writer)s?\s*(?:[:=]|of|count)?\s*(\d+)\b`)},
	{Name: "count-consumers", Field: model.FieldConsumers, Pattern: regexp.MustCompile(`(?i)\b(\d+)\s*(?:consumer|reader)s?\b`)},
	{Name: "consumers-count", Field: model.FieldConsumers, Pattern: regexp.MustCompile(`(?i)\b(?:consumer|reader)s?\s*(?:[:=]|of|count)?\s*(\d+)\b`)},
	{Name: "size-buffer", Field: model.FieldBufferSizeMB, Pattern: regexp.MustCompile(`(?i)\b(\d+)\s*(kb|mb|gb)\s*(?:ring\s*)?buffer\b`)},
	{Name: "buffer-size", Field: model.FieldBufferSizeMB, Pattern: regexp.MustCompile(`(?i)\bbuffer(?:\s*size)?\s*(?:of|[:=])?\s*(\d+)\s*(kb|mb|gb)\b`)},
	{Name: "transfer-size", Field: model.FieldTotalTransferMB, Pattern: regexp.MustCompile(`(?i)\b(?:transfer|transferring|move|moving|send|sending|push|pushing)\s*(?:of\s*)?(\d+)\s*(kb|mb|gb)\b`)},
	{Name: "size-data", Field: model.FieldTotalTransferMB, Pattern: regexp.MustCompile(`(?i)\b(\d+)\s*(kb|mb|gb)\s*(?:of\s*)?(?:data|total|in total)\b`)},
}
