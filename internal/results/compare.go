package results

import (
	"fmt"
	"sort"
	"strings"

	"github.com/daryltucker/donut-runner/internal/model"
)

// Entry is one buffer type's run within a comparison.
type Entry struct {
	Rank           int                   `json:"rank"`
	BufferType     model.BufferType      `json:"buffer_type"`
	Result         model.ExecutionResult `json:"execution_result"`
	Interpretation model.Interpretation  `json:"interpretation"`
}

// Comparison ranks the same workload across buffer types.
type Comparison struct {
	Entries []Entry          `json:"entries"`
	Winner  model.BufferType `json:"winner,omitempty"`
	Summary string           `json:"summary"`
}

// Compare ranks entries by normalized throughput, highest first. Runs
// without a throughput (failed or unparseable) go last in buffer type
// order. Ranks start at 1.
func Compare(entries []Entry) Comparison {
	ranked := append([]Entry(nil), entries...)
	order := map[model.BufferType]int{}
	for i, bt := range model.BufferTypes {
		order[bt] = i
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := throughputOf(ranked[i]), throughputOf(ranked[j])
		switch {
		case a >= 0 && b >= 0 && a != b:
			return a > b
		case (a >= 0) != (b >= 0):
			return a >= 0
		default:
			return order[ranked[i].BufferType] < order[ranked[j].BufferType]
		}
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	c := Comparison{Entries: ranked}
	if len(ranked) == 0 || throughputOf(ranked[0]) < 0 {
		c.Summary = "No run produced a throughput measurement; nothing to rank."
		return c
	}
	c.Winner = ranked[0].BufferType
	best := throughputOf(ranked[0])
	parts := []string{fmt.Sprintf("%s led with %s MB/s", c.Winner, num(round1(best)))}
	for _, e := range ranked[1:] {
		tp := throughputOf(e)
		switch {
		case tp > 0:
			parts = append(parts, fmt.Sprintf("%s %s MB/s (%sx slower)", e.BufferType, num(round1(tp)), num(round1(best/tp))))
		case tp == 0:
			parts = append(parts, fmt.Sprintf("%s 0 MB/s", e.BufferType))
		default:
			parts = append(parts, fmt.Sprintf("%s %s", e.BufferType, describeMissing(e)))
		}
	}
	c.Summary = strings.Join(parts, "; ") + "."
	return c
}

func throughputOf(e Entry) float64 {
	if !e.Result.Success || e.Interpretation.Throughput == nil {
		return -1
	}
	return e.Interpretation.Throughput.Normalized
}

func describeMissing(e Entry) string {
	if !e.Result.Success {
		return "failed (" + string(e.Result.Classification) + ")"
	}
	return "reported no throughput"
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
