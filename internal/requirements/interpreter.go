/*
PURPOSE:
  Maps a free-text performance requirement to a valid ring-buffer
  Configuration using an ordered table of trigger terms and field overrides.

REQUIREMENTS:
  User-specified:
  - Never fails; unmatched text yields the documented defaults
    (lock-free, 1 producer, 1 consumer).
  - Throughput terms select lock-free and more producers; latency terms
    select small buffers and fewer producers.
  - Output always passes Configuration.Validate.

  Implementation-discovered:
  - Users write explicit numbers ("4 producers and 2 consumers",
    "64 MB buffer"); these are honored after the heuristics.
  - Derived values can be out of range ("32 producers"); they are clamped
    and the clamp is reported in the explanation.

ARCHITECTURE INTEGRATION:
  - Called by: internal/service (configure_buffer, benchmark pipeline).
  - Uses: internal/model.

ERROR HANDLING:
  - New returns an error for malformed rule tables; Infer never errors.

IMPLEMENTATION RULES:
  - Policy is data (DefaultRules, DefaultExtractors). Add heuristics by
    extending the tables, not by adding branches here.
  - Term matching is case-insensitive and word-bounded.

USAGE:
  inf := requirements.Default().Infer("high throughput with 8 producers")
  cfg := inf.Config

SELF-HEALING INSTRUCTIONS:
  - If a phrase is misclassified, check rule order first: later rules win.

RELATED FILES:
  - internal/requirements/rules.go
  - internal/model/configuration.go

MAINTENANCE:
  - Update DefaultRules when new buffer types or workloads appear.
*/

package requirements

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/daryltucker/donut-runner/internal/model"
)

// Inference is the interpreter's answer: a valid configuration plus the
// reasoning that produced it.
type Inference struct {
	Config      model.Configuration `json:"configuration"`
	Matched     []string            `json:"matched_rules"`
	Explicit    []string            `json:"explicit_values"`
	Clamped     []string            `json:"clamped"`
	Explanation string              `json:"explanation"`
}

type compiledRule struct {
	Rule
	matchers []*regexp.Regexp
}

// Interpreter applies a rule table to requirement text. It holds no mutable
// state and is safe for concurrent use.
type Interpreter struct {
	rules      []compiledRule
	extractors []Extractor
}

// New compiles a rule table.
func New(rules []Rule, extractors []Extractor) (*Interpreter, error) {
	in := &Interpreter{extractors: extractors}
	for _, r := range rules {
		if r.Name == "" {
			return nil, errors.New("rule name is required")
		}
		if len(r.Triggers) == 0 {
			return nil, fmt.Errorf("rule %s has no triggers", r.Name)
		}
		if r.Override.BufferType != "" && !r.Override.BufferType.Valid() {
			return nil, fmt.Errorf("rule %s: unknown buffer type %q", r.Name, r.Override.BufferType)
		}
		cr := compiledRule{Rule: r}
		for _, term := range r.Triggers {
			term = strings.ToLower(strings.TrimSpace(term))
			if term == "" {
				return nil, fmt.Errorf("rule %s has an empty trigger", r.Name)
			}
			words := strings.Fields(term)
			for i, w := range words {
				words[i] = regexp.QuoteMeta(w)
			}
			cr.matchers = append(cr.matchers, regexp.MustCompile(`\b`+strings.Join(words, `\s+`)+`\b`))
		}
		in.rules = append(in.rules, cr)
	}
	for _, ex := range extractors {
		if ex.Pattern == nil {
			return nil, fmt.Errorf("extractor %s has no pattern", ex.Name)
		}
		switch ex.Field {
		case model.FieldProducers, model.FieldConsumers, model.FieldBufferSizeMB, model.FieldTotalTransferMB:
		default:
			return nil, fmt.Errorf("extractor %s: unsupported field %q", ex.Name, ex.Field)
		}
	}
	return in, nil
}

var defaultInterpreter = func() *Interpreter {
	in, err := New(DefaultRules, DefaultExtractors)
	if err != nil {
		panic(err)
	}
	return in
}()

// Default returns the interpreter built from DefaultRules and DefaultExtractors.
func Default() *Interpreter {
	return defaultInterpreter
}

// Infer maps requirement text to a configuration.
func Infer(text string) Inference {
	return defaultInterpreter.Infer(text)
}

// Infer maps requirement text to a configuration. It never fails.
func (in *Interpreter) Infer(text string) Inference {
	lower := strings.ToLower(text)
	cfg := model.DefaultConfiguration()
	inf := Inference{Matched: []string{}, Explicit: []string{}, Clamped: []string{}}
	var reasons []string

	for _, r := range in.rules {
		if !r.matches(lower) {
			continue
		}
		r.Override.apply(&cfg)
		inf.Matched = append(inf.Matched, r.Name)
		reasons = append(reasons, r.Reason)
	}

	// Explicit numbers override heuristics; the first match per field wins.
	seen := map[string]bool{}
	for _, ex := range in.extractors {
		if seen[ex.Field] {
			continue
		}
		m := ex.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, ok := extractedValue(m)
		if !ok {
			continue
		}
		seen[ex.Field] = true
		setField(&cfg, ex.Field, v)
		inf.Explicit = append(inf.Explicit, fmt.Sprintf("%s=%d", ex.Field, v))
	}

	inf.Clamped = clamp(&cfg)

	if err := cfg.Validate(); err != nil {
		// Unreachable: numeric fields are clamped and buffer types are
		// checked in New.
		cfg = model.DefaultConfiguration()
		reasons = append(reasons, "fell back to defaults: "+err.Error())
	}
	inf.Config = cfg
	inf.Explanation = explain(text, reasons, inf)
	return inf
}

func (r compiledRule) matches(lower string) bool {
	for _, m := range r.matchers {
		if m.MatchString(lower) {
			return true
		}
	}
	return false
}

func (o Override) apply(cfg *model.Configuration) {
	if o.BufferType != "" {
		cfg.BufferType = o.BufferType
	}
	if o.Producers != 0 {
		cfg.Producers = o.Producers
	}
	if o.Consumers != 0 {
		cfg.Consumers = o.Consumers
	}
	if o.BufferSizeMB != 0 {
		cfg.BufferSizeMB = o.BufferSizeMB
	}
	if o.TotalTransferMB != 0 {
		cfg.TotalTransferMB = o.TotalTransferMB
	}
	if o.GUIEnabled != nil {
		cfg.GUIEnabled = *o.GUIEnabled
	}
}

// extractedValue reads the number in group 1, scaled to MB when group 2
// carries a size unit.
func extractedValue(m []string) (int, bool) {
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// Larger than int; clamping will pull it to the maximum.
		if errors.Is(err, strconv.ErrRange) {
			return math.MaxInt, true
		}
		return 0, false
	}
	if len(m) > 2 {
		switch strings.ToLower(m[2]) {
		case "gb":
			if n > math.MaxInt/1024 {
				n = math.MaxInt
			} else {
				n *= 1024
			}
		case "kb":
			// Round up without overflowing near MaxInt.
			rem := n % 1024
			n /= 1024
			if rem != 0 {
				n++
			}
		}
	}
	return n, true
}

func setField(cfg *model.Configuration, field string, v int) {
	switch field {
	case model.FieldProducers:
		cfg.Producers = v
	case model.FieldConsumers:
		cfg.Consumers = v
	case model.FieldBufferSizeMB:
		cfg.BufferSizeMB = v
	case model.FieldTotalTransferMB:
		cfg.TotalTransferMB = v
	}
}

func clamp(cfg *model.Configuration) []string {
	clamped := []string{}
	for _, f := range []struct {
		bound model.IntBound
		value *int
	}{
		{model.ProducersBound, &cfg.Producers},
		{model.ConsumersBound, &cfg.Consumers},
		{model.BufferSizeMBBound, &cfg.BufferSizeMB},
		{model.TotalTransferMBBound, &cfg.TotalTransferMB},
	} {
		if c := f.bound.Clamp(*f.value); c != *f.value {
			clamped = append(clamped, fmt.Sprintf("%s %d clamped to %d", f.bound.Field, *f.value, c))
			*f.value = c
		}
	}
	return clamped
}

func explain(text string, reasons []string, inf Inference) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generated configuration based on requirements: %q. ", strings.TrimSpace(text))
	if len(reasons) == 0 && len(inf.Explicit) == 0 {
		sb.WriteString("No heuristic matched; using defaults. ")
	}
	for _, r := range reasons {
		if r == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(r[:1]) + r[1:] + ". ")
	}
	if len(inf.Explicit) > 0 {
		sb.WriteString("Explicit values: " + strings.Join(inf.Explicit, ", ") + ". ")
	}
	if len(inf.Clamped) > 0 {
		sb.WriteString("Adjusted to allowed ranges: " + strings.Join(inf.Clamped, ", ") + ". ")
	}
	fmt.Fprintf(&sb, "Selected %s with %d producer(s), %d consumer(s), %d MB buffer, %d MB total transfer.",
		inf.Config.BufferType.Description(), inf.Config.Producers, inf.Config.Consumers,
		inf.Config.BufferSizeMB, inf.Config.TotalTransferMB)
	return sb.String()
}
