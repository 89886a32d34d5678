//go:build !windows

package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SkipsWhenArtifactExists(t *testing.T) {
	dir := t.TempDir()
	artifact := writeScript(t, dir, "app", "true")
	marker := filepath.Join(dir, "ran")

	b := &Builder{Command: []string{"sh", "-c", "touch " + marker}, Dir: dir, LockPath: filepath.Join(dir, "lock")}
	out, err := b.Ensure(context.Background(), artifact)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoFileExists(t, marker)
}

func TestBuilder_MissingArtifactAfterBuild(t *testing.T) {
	dir := t.TempDir()
	b := &Builder{Command: []string{"sh", "-c", "echo nothing to do"}, Dir: dir, LockPath: filepath.Join(dir, "lock")}

	out, err := b.Ensure(context.Background(), filepath.Join(dir, "app"))
	require.Error(t, err)
	assert.Contains(t, out, "nothing to do")
	assert.Contains(t, err.Error(), "missing or not executable")
}

func TestBuilder_NoCommand(t *testing.T) {
	b := &Builder{}
	_, err := b.Ensure(context.Background(), filepath.Join(t.TempDir(), "app"))
	require.Error(t, err)
}

func TestBuilder_ConcurrentCallersBuildOnce(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "app")
	counter := filepath.Join(dir, "count")
	script := `echo x >> "` + counter + `"; sleep 0.2; printf '#!/bin/sh\ntrue\n' > "` + artifact + `"; chmod +x "` + artifact + `"`

	b := &Builder{Command: []string{"sh", "-c", script}, Dir: dir, LockPath: filepath.Join(dir, "lock")}

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = b.Ensure(context.Background(), artifact)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	data, err := os.ReadFile(counter)
	require.NoError(t, err)
	assert.Equal(t, "x\n", string(data))
}
