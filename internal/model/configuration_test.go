package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }
func boolp(v bool) *bool    { return &v }

func TestCandidateValidate_DefaultsApplied(t *testing.T) {
	cfg, err := Candidate{
		BufferType: strp("mutex-guarded"),
		Producers:  intp(2),
		Consumers:  intp(3),
	}.Validate()
	require.NoError(t, err)

	assert.Equal(t, Configuration{
		BufferType:      BufferMutexGuarded,
		Producers:       2,
		Consumers:       3,
		BufferSizeMB:    16,
		TotalTransferMB: 1000,
		GUIEnabled:      false,
	}, cfg)
}

func TestCandidateValidate_Rejections(t *testing.T) {
	valid := func() Candidate {
		return Candidate{
			BufferType: strp("lock-free"),
			Producers:  intp(1),
			Consumers:  intp(1),
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Candidate)
		wantField string
		wantBound string
	}{
		{"missing buffer type", func(c *Candidate) { c.BufferType = nil }, FieldBufferType, "required"},
		{"missing producers", func(c *Candidate) { c.Producers = nil }, FieldProducers, "required"},
		{"missing consumers", func(c *Candidate) { c.Consumers = nil }, FieldConsumers, "required"},
		{"unknown buffer type", func(c *Candidate) { c.BufferType = strp("mutex") }, FieldBufferType, "one of lock-free, mutex-guarded, concurrent-queue"},
		{"zero producers", func(c *Candidate) { c.Producers = intp(0) }, FieldProducers, "[1, 16]"},
		{"too many consumers", func(c *Candidate) { c.Consumers = intp(17) }, FieldConsumers, "[1, 16]"},
		{"buffer too large", func(c *Candidate) { c.BufferSizeMB = intp(1025) }, FieldBufferSizeMB, "[1, 1024]"},
		{"transfer zero", func(c *Candidate) { c.TotalTransferMB = intp(0) }, FieldTotalTransferMB, "[1, 10000]"},
		{"transfer too large", func(c *Candidate) { c.TotalTransferMB = intp(10001) }, FieldTotalTransferMB, "[1, 10000]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand := valid()
			tt.mutate(&cand)

			_, err := cand.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration))

			var invalid *InvalidConfigurationError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.wantField, invalid.Field)
			assert.Equal(t, tt.wantBound, invalid.Bound)
			assert.Contains(t, err.Error(), tt.wantField)
		})
	}
}

func TestCandidateValidate_BoundaryValuesAccepted(t *testing.T) {
	cfg, err := Candidate{
		BufferType:      strp("concurrent-queue"),
		Producers:       intp(16),
		Consumers:       intp(1),
		BufferSizeMB:    intp(1024),
		TotalTransferMB: intp(10000),
		GUIEnabled:      boolp(true),
	}.Validate()
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Producers)
	assert.Equal(t, 1024, cfg.BufferSizeMB)
	assert.True(t, cfg.GUIEnabled)
}

func TestCandidateValidate_NoGUIAlias(t *testing.T) {
	cfg, err := Candidate{
		BufferType: strp("lock-free"),
		Producers:  intp(1),
		Consumers:  intp(1),
		NoGUI:      boolp(false),
	}.Validate()
	require.NoError(t, err)
	assert.True(t, cfg.GUIEnabled)
}

func TestConfigurationUnmarshalJSON(t *testing.T) {
	var cfg Configuration
	err := json.Unmarshal([]byte(`{"buffer_type":"lock-free","producers":4,"consumers":2}`), &cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Producers)
	assert.Equal(t, DefaultBufferSizeMB, cfg.BufferSizeMB)

	err = json.Unmarshal([]byte(`{"buffer_type":"lock-free","producers":0,"consumers":2}`), &cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}

func TestConfigurationValidate_ZeroValue(t *testing.T) {
	err := Configuration{}.Validate()
	var invalid *InvalidConfigurationError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, FieldBufferType, invalid.Field)
}

func TestCandidateFromRoundTrip(t *testing.T) {
	cfg := Configuration{
		BufferType:      BufferConcurrentQueue,
		Producers:       8,
		Consumers:       8,
		BufferSizeMB:    20,
		TotalTransferMB: 2000,
	}
	back, err := CandidateFrom(cfg).Validate()
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestIntBoundClamp(t *testing.T) {
	assert.Equal(t, 1, ProducersBound.Clamp(-3))
	assert.Equal(t, 16, ProducersBound.Clamp(64))
	assert.Equal(t, 7, ProducersBound.Clamp(7))
}

func TestBufferTypeProgramNames(t *testing.T) {
	for _, bt := range BufferTypes {
		back, ok := BufferTypeFromProgramName(bt.ProgramName())
		require.True(t, ok)
		assert.Equal(t, bt, back)
	}
	_, ok := BufferTypeFromProgramName("ringy")
	assert.False(t, ok)
}
