/*
PURPOSE:
  Extracts throughput and latency measurements from the benchmark's free-form
  output.

REQUIREMENTS:
  User-specified:
  - Tolerant of label casing, separators and spacing
    ("Throughput: 850.5 MB/s, Latency: 1.2ms").
  - A metric that cannot be found stays empty; nothing is guessed.

  Implementation-discovered:
  - The program prints progress lines before its final summary, so the last
    occurrence of a metric wins.
  - Units vary between runs (GB/s, MiB/s, µs); values are normalized to
    MB/s and ms, keeping the printed value and unit.

ARCHITECTURE INTEGRATION:
  - Called by: internal/results/interpret.go
  - Uses: internal/model

ERROR HANDLING:
  - None. Unparseable text yields nil metrics.

IMPLEMENTATION RULES:
  - Byte prefixes are matched case-insensitively; "Mb/s" is read as MB/s
    and Interpret adds a note about possible bit rates.
  - Numbers may carry thousands separators or an exponent. A number glued
    to a sign or another number is skipped, never read in part.

USAGE:
  tp, lat := results.ExtractMetrics(output)

SELF-HEALING INSTRUCTIONS:
  - If the program changes its summary format, add a test with the new line
    before touching the patterns.

RELATED FILES:
  - internal/results/units.go

MAINTENANCE:
  - Add units to units.go, not to the patterns, when possible.
*/

package results

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/daryltucker/donut-runner/internal/model"
)

// number accepts thousands separators ("1,234.5") and exponents ("1.2e-3").
const number = `([0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]+)?|[0-9]+(?:\.[0-9]+)?(?:e[-+]?[0-9]+)?)`

var (
	throughputPattern = regexp.MustCompile(
		`(?i)\bthroughput\b[^\n]{0,32}?\b` + number + `\s*([kmgt]?i?b)\s*(?:/\s*s(?:ec(?:ond)?)?|ps)\b`)
	latencyPattern = regexp.MustCompile(
		`(?i)\blatency\b[^\n]{0,32}?\b` + number + `\s*(nanoseconds?|microseconds?|milliseconds?|seconds?|sec|ms|us|µs|μs|ns|s)(?:[^\p{L}\p{N}_]|$)`)
)

// ExtractMetrics returns the last recognizable throughput and latency in
// output. Either may be nil.
func ExtractMetrics(output string) (throughput, latency *model.Metric) {
	return ExtractThroughput(output), ExtractLatency(output)
}

// ExtractThroughput returns the last throughput measurement, normalized to MB/s.
func ExtractThroughput(output string) *model.Metric {
	matches := throughputPattern.FindAllStringSubmatchIndex(output, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		v, ok := parseNumber(output, matches[i])
		if !ok {
			continue
		}
		unit := output[matches[i][4]:matches[i][5]]
		n, ok := NormalizeThroughput(v, unit)
		if !ok {
			continue
		}
		return &model.Metric{Value: v, Unit: unit + "/s", Normalized: n, NormalizedUnit: UnitMBps}
	}
	return nil
}

// ExtractLatency returns the last latency measurement, normalized to ms.
func ExtractLatency(output string) *model.Metric {
	matches := latencyPattern.FindAllStringSubmatchIndex(output, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		v, ok := parseNumber(output, matches[i])
		if !ok {
			continue
		}
		unit := output[matches[i][4]:matches[i][5]]
		n, ok := NormalizeLatency(v, unit)
		if !ok {
			continue
		}
		return &model.Metric{Value: v, Unit: unit, Normalized: n, NormalizedUnit: UnitMs}
	}
	return nil
}

// parseNumber reads group 1 of a match. A number that continues another
// numeric token ("-5", "1.2.3", "1,23.4") is rejected rather than read in
// part.
func parseNumber(output string, loc []int) (float64, bool) {
	start, end := loc[2], loc[3]
	if start > 0 && strings.ContainsRune("0123456789.,-+", rune(output[start-1])) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(output[start:end], ",", ""), 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
