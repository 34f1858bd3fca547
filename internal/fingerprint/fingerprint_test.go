package fingerprint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_CachesUntilFileChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.js")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))

	c := New()
	first, err := c.File(path)
	require.NoError(t, err)
	assert.Equal(t, Bytes([]byte("one")), first)
	assert.Equal(t, 1, c.Len())

	recorded := map[string]string{path: first}
	assert.True(t, c.Matches(recorded))

	require.NoError(t, os.WriteFile(path, []byte("two!"), 0o644))
	later := time.Now().Add(time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	second, err := c.File(path)
	require.NoError(t, err)
	assert.Equal(t, Bytes([]byte("two!")), second)
	assert.False(t, c.Matches(recorded))
}

func TestFiles_MissingFile(t *testing.T) {
	c := New()
	_, err := c.Files([]string{filepath.Join(t.TempDir(), "missing.js")})
	assert.Error(t, err)
	assert.False(t, c.Matches(map[string]string{"/does/not/exist": "abc"}))
}

func TestFlush(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.css")
	require.NoError(t, os.WriteFile(path, []byte("body{}"), 0o644))

	c := New()
	_, err := c.File(path)
	require.NoError(t, err)
	require.NoError(t, c.Flush(context.Background()))
	assert.Zero(t, c.Len())

	_, err = c.File(dir)
	assert.Error(t, err)
}
