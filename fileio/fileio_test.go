package fileio

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "DWX_Orders.txt")

	assert.Equal(t, "", ReadFile(path), "missing file reads as empty")

	require.NoError(t, os.WriteFile(path, []byte(`{"orders":{}}`), 0o644))
	assert.Equal(t, `{"orders":{}}`, ReadFile(path))

	// a directory cannot be read as a file; still no error surfaces
	assert.Equal(t, "", ReadFile(dir))
}

func TestRemoveFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "DWX_Historic_Data.txt")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	assert.True(t, RemoveFile(path))
	assert.False(t, Exists(path))

	assert.True(t, RemoveFile(path), "already gone counts as removed")
}

func TestRemoveFileGivesUp(t *testing.T) {
	t.Parallel()

	// a non-empty directory cannot be removed with os.Remove
	dir := t.TempDir()
	sub := filepath.Join(dir, "busy")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "x"), nil, 0o644))

	assert.False(t, RemoveFile(sub))
	assert.True(t, Exists(sub))
}

func TestWriteFileReplaces(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "DWX_Orders_Stored.txt")

	require.NoError(t, WriteFile(path, []byte("first")))
	require.NoError(t, WriteFile(path, []byte("second")))
	assert.Equal(t, "second", ReadFile(path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestCreateExclusive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "DWX_Commands_0.txt")

	ok, err := CreateExclusive(path, []byte("<:CLOSE_ALL_ORDERS|:>"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "<:CLOSE_ALL_ORDERS|:>", ReadFile(path))

	ok, err = CreateExclusive(path, []byte("<:OTHER|:>"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "<:CLOSE_ALL_ORDERS|:>", ReadFile(path), "existing slot is never overwritten")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file %s left behind", e.Name())
	}
}

func TestCreateExclusiveRace(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "DWX_Commands_0.txt")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := CreateExclusive(path, []byte("x"))
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
