package janitor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJanitor_CreateTempIsTracked(t *testing.T) {
	dir := t.TempDir()
	j := New(dir)

	f, err := j.CreateTemp("invoice-*.pdf")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Equal(t, []string{f.Name()}, j.Paths())
	assert.Equal(t, dir, filepath.Dir(f.Name()))
}

func TestJanitor_CleanupRemovesAll(t *testing.T) {
	dir := t.TempDir()
	j := New(dir)

	for i := 0; i < 3; i++ {
		f, err := j.CreateTemp("artifact-*")
		require.NoError(t, err)
		f.Close()
	}

	require.NoError(t, j.Cleanup())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, j.Paths())
}

func TestJanitor_CleanupToleratesMissingFiles(t *testing.T) {
	dir := t.TempDir()
	j := New(dir)

	f, err := j.CreateTemp("gone-*")
	require.NoError(t, err)
	f.Close()
	require.NoError(t, os.Remove(f.Name()))

	assert.NoError(t, j.Cleanup())
	assert.NoError(t, j.Cleanup(), "second cleanup is a no-op")
}

func TestJanitor_TrackIgnoresEmptyPath(t *testing.T) {
	j := New("")
	j.Track("")
	assert.Empty(t, j.Paths())
}
