package results

import "strings"

// Normalized units.
const (
	UnitMBps = "MB/s"
	UnitMs   = "ms"
)

type scale struct {
	mul, div float64
}

func (s scale) apply(v float64) float64 {
	return v * s.mul / s.div
}

// Throughput prefixes are decimal; the binary ones convert exactly.
var throughputScale = map[string]scale{
	"b":   {1, 1e6},
	"kb":  {1, 1e3},
	"mb":  {1, 1},
	"gb":  {1e3, 1},
	"tb":  {1e6, 1},
	"kib": {1024, 1e6},
	"mib": {1048576, 1e6},
	"gib": {1073741824, 1e6},
}

var latencyScale = map[string]scale{
	"ns":           {1, 1e6},
	"nanosecond":   {1, 1e6},
	"nanoseconds":  {1, 1e6},
	"us":           {1, 1e3},
	"µs":           {1, 1e3},
	"μs":           {1, 1e3},
	"microsecond":  {1, 1e3},
	"microseconds": {1, 1e3},
	"ms":           {1, 1},
	"millisecond":  {1, 1},
	"milliseconds": {1, 1},
	"s":            {1e3, 1},
	"sec":          {1e3, 1},
	"second":       {1e3, 1},
	"seconds":      {1e3, 1},
}

// NormalizeThroughput converts a byte-rate prefix ("GB", "MiB") to MB/s.
func NormalizeThroughput(v float64, prefix string) (float64, bool) {
	s, ok := throughputScale[strings.ToLower(prefix)]
	if !ok {
		return 0, false
	}
	return s.apply(v), true
}

// MaybeBits reports whether a throughput prefix ends in a lowercase "b",
// which some tools use for bits. Such prefixes are still read as bytes.
func MaybeBits(prefix string) bool {
	return strings.HasSuffix(prefix, "b")
}

// NormalizeLatency converts a time unit to milliseconds.
func NormalizeLatency(v float64, unit string) (float64, bool) {
	s, ok := latencyScale[strings.ToLower(unit)]
	if !ok {
		return 0, false
	}
	return s.apply(v), true
}
