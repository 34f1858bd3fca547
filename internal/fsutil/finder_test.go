package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
}

func TestGlob_Simple(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "b.js", "a.js", "c.css", "sub/d.js")

	matches, err := Glob(filepath.Join(root, "*.js"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.js"), filepath.Join(root, "b.js")}, matches)
}

func TestGlob_DoubleStar(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.js", "sub/b.js", "sub/deep/c.js", "sub/deep/d.css")

	matches, err := Glob(filepath.Join(root, "**", "*.js"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.js"),
		filepath.Join(root, "sub", "b.js"),
		filepath.Join(root, "sub", "deep", "c.js"),
	}, matches)

	matches, err = Glob(filepath.Join(root, "sub", "**"))
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestGlob_Invalid(t *testing.T) {
	_, err := Glob("/x/*/**/*.js")
	require.Error(t, err)
	_, err = Glob("/x/**/a/**/b")
	require.Error(t, err)
}

func TestHasMeta(t *testing.T) {
	assert.True(t, HasMeta("*.js"))
	assert.True(t, HasMeta("a[0].js"))
	assert.False(t, HasMeta("lib/a.js"))
}

func TestFindFilesByExtension(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.hcl", "x/b.hcl", "c.txt")

	files, err := FindFilesByExtension(root, ".hcl")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
