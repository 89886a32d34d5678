package docs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_FallbackREADME(t *testing.T) {
	content, source := Load("")
	require.Equal(t, SourceEmbedded, source)

	a := Analyze(content, source)
	assert.Equal(t, "DonutBuffer", a.Title)
	assert.Contains(t, a.Sections, "Features")
	assert.Contains(t, a.Sections, "Build Requirements")
	assert.Contains(t, a.KeyFeatures, "Ring Buffer Visualizer with GUI controls")
	assert.Contains(t, a.BuildRequirements, "CMake 3.28+")
	assert.Equal(t, []string{"lock-free", "mutex-guarded", "concurrent-queue"}, a.BufferTypes)
	assert.Equal(t, "Compare MutexRingBuffer and LockFreeRingBuffer", a.CommandOptions["--mutex-vs-lockfree"])
	assert.Equal(t, "Run without GUI", a.CommandOptions["--nogui"])
	assert.Equal(t, 2, a.CodeBlocks)
	assert.NotEmpty(t, a.Content)
}

func TestAnalyze_CustomREADME(t *testing.T) {
	path := filepath.Join(t.TempDir(), "README.md")
	require.NoError(t, os.WriteFile(path, []byte(`# Ring Thing

Only the mutex buffer is built here.

## Prerequisites

- gcc 13
- cmake

## Options

- `+"`--nogui`"+`: headless mode
- `+"`--producers=N`"+` - producer threads
`), 0o644))

	content, source := Load(path)
	require.Equal(t, path, source)

	a := Analyze(content, source)
	assert.Equal(t, "Ring Thing", a.Title)
	assert.Equal(t, []string{"gcc 13", "cmake"}, a.BuildRequirements)
	assert.Empty(t, a.KeyFeatures)
	assert.Equal(t, []string{"mutex-guarded"}, a.BufferTypes)
	assert.Equal(t, "headless mode", a.CommandOptions["--nogui"])
	assert.Equal(t, "producer threads", a.CommandOptions["--producers"])
	assert.Equal(t, "Total data transfer in megabytes", a.CommandOptions["--total-transfer_mb"])
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	_, source := Load(filepath.Join(t.TempDir(), "absent.md"))
	assert.Equal(t, SourceEmbedded, source)
}
