package requirements

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/donut-runner/internal/model"
)

func TestInfer_NoMatchReturnsDefaults(t *testing.T) {
	inf := Infer("please do the thing")

	assert.Equal(t, model.DefaultConfiguration(), inf.Config)
	assert.Empty(t, inf.Matched)
	assert.Contains(t, inf.Explanation, "No heuristic matched")
}

func TestInfer_Table(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		check func(t *testing.T, cfg model.Configuration)
	}{
		{
			name: "video processing is lock-free with parallel producers",
			text: "high performance setup for video processing",
			check: func(t *testing.T, cfg model.Configuration) {
				assert.Equal(t, model.BufferLockFree, cfg.BufferType)
				assert.GreaterOrEqual(t, cfg.Producers, 4)
			},
		},
		{
			name: "low latency uses a small buffer and few producers",
			text: "Real-time audio with low latency",
			check: func(t *testing.T, cfg model.Configuration) {
				assert.Equal(t, model.BufferLockFree, cfg.BufferType)
				assert.LessOrEqual(t, cfg.Producers, 2)
				assert.LessOrEqual(t, cfg.BufferSizeMB, 4)
			},
		},
		{
			name: "stress test selects the concurrent queue",
			text: "stress test the system",
			check: func(t *testing.T, cfg model.Configuration) {
				assert.Equal(t, model.BufferConcurrentQueue, cfg.BufferType)
				assert.Equal(t, 8, cfg.Producers)
				assert.Equal(t, 8, cfg.Consumers)
			},
		},
		{
			name: "explicit mutex wins over throughput heuristics",
			text: "fast throughput but I want a mutex",
			check: func(t *testing.T, cfg model.Configuration) {
				assert.Equal(t, model.BufferMutexGuarded, cfg.BufferType)
				assert.Equal(t, 4, cfg.Producers)
			},
		},
		{
			name: "explicit producer and consumer counts",
			text: "lock-free with 4 producers and 2 consumers",
			check: func(t *testing.T, cfg model.Configuration) {
				assert.Equal(t, 4, cfg.Producers)
				assert.Equal(t, 2, cfg.Consumers)
			},
		},
		{
			name: "label-first counts",
			text: "producers: 6, consumers: 3",
			check: func(t *testing.T, cfg model.Configuration) {
				assert.Equal(t, 6, cfg.Producers)
				assert.Equal(t, 3, cfg.Consumers)
			},
		},
		{
			name: "buffer and transfer sizes with units",
			text: "a 64 MB buffer and transfer 2 GB",
			check: func(t *testing.T, cfg model.Configuration) {
				assert.Equal(t, 64, cfg.BufferSizeMB)
				assert.Equal(t, 2048, cfg.TotalTransferMB)
			},
		},
		{
			name: "out of range counts are clamped",
			text: "use 64 producers and 0 consumers with a 5 GB buffer",
			check: func(t *testing.T, cfg model.Configuration) {
				assert.Equal(t, 16, cfg.Producers)
				assert.Equal(t, 1, cfg.Consumers)
				assert.Equal(t, 1024, cfg.BufferSizeMB)
			},
		},
		{
			name: "gui request enables the visualizer",
			text: "I want to visualize the ring buffer",
			check: func(t *testing.T, cfg model.Configuration) {
				assert.True(t, cfg.GUIEnabled)
			},
		},
		{
			name: "words inside other words do not trigger",
			text: "breakfast for a bigot",
			check: func(t *testing.T, cfg model.Configuration) {
				assert.Equal(t, model.DefaultConfiguration(), cfg)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inf := Infer(tt.text)
			require.NoError(t, inf.Config.Validate())
			tt.check(t, inf.Config)
			assert.NotEmpty(t, inf.Explanation)
		})
	}
}

func TestInfer_ClampReported(t *testing.T) {
	inf := Infer("99999999999999999999999 producers")
	assert.Equal(t, 16, inf.Config.Producers)
	require.NotEmpty(t, inf.Clamped)
	assert.Contains(t, inf.Explanation, "clamped")
}

// Every trigger of every rule, alone and combined with its neighbours,
// must produce a valid configuration.
func TestInfer_AlwaysValid(t *testing.T) {
	var all []string
	for _, r := range DefaultRules {
		all = append(all, r.Triggers...)
	}
	inputs := append([]string{}, all...)
	inputs = append(inputs,
		"",
		"   ",
		strings.Join(all, " "),
		"1000000 consumers 0 producers 0 kb buffer",
		"buffer of 99999 GB and send 99999 GB",
		"🚀 ünïcode req",
	)
	for i := 0; i+1 < len(all); i++ {
		inputs = append(inputs, all[i]+" "+all[i+1])
	}

	for _, text := range inputs {
		inf := Infer(text)
		assert.NoError(t, inf.Config.Validate(), "input %q", text)
	}
}

func TestInfer_KilobyteSizes(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"2048 kb buffer", 2},
		{"2049 kb buffer", 3},
		{"buffer of 10 kb", 1},
		{"buffer of 9223372036854775807 kb", 1024},
		{"buffer of 99999999999999999999999 kb", 1024},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			inf := Infer(tt.text)
			assert.Equal(t, tt.want, inf.Config.BufferSizeMB)
		})
	}
}

func FuzzInfer(f *testing.F) {
	for _, r := range DefaultRules {
		for _, trig := range r.Triggers {
			f.Add(trig)
		}
	}
	f.Add("buffer of 9223372036854775807 kb")
	f.Add("1000000 consumers 0 producers 0 kb buffer")
	f.Add("send 99999 GB with 0 producers")
	f.Fuzz(func(t *testing.T, text string) {
		inf := Infer(text)
		require.NoError(t, inf.Config.Validate(), "input %q", text)
		assert.NotEmpty(t, inf.Explanation)
	})
}

func TestNew_RejectsBadTables(t *testing.T) {
	_, err := New([]Rule{{Name: "empty"}}, nil)
	assert.Error(t, err)

	_, err = New([]Rule{{Name: "bad-type", Triggers: []string{"x"}, Override: Override{BufferType: "ring"}}}, nil)
	assert.Error(t, err)

	_, err = New(nil, []Extractor{{Name: "gui", Field: model.FieldGUIEnabled, Pattern: regexp.MustCompile(`x`)}})
	assert.Error(t, err)
}

func TestNew_CustomTableExtendsPolicy(t *testing.T) {
	rules := append([]Rule{}, DefaultRules...)
	rules = append(rules, Rule{
		Name:     "trading",
		Triggers: []string{"order book"},
		Override: Override{BufferType: model.BufferLockFree, Producers: 2, BufferSizeMB: 8},
		Reason:   "market data",
	})
	in, err := New(rules, DefaultExtractors)
	require.NoError(t, err)

	inf := in.Infer("an Order   Book feed")
	assert.Contains(t, inf.Matched, "trading")
	assert.Equal(t, 8, inf.Config.BufferSizeMB)
}
