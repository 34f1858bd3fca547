package resource

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDep(t *testing.T, decl dep.Declaration, dir string) dep.Dependency {
	t.Helper()
	r := registry.New()
	require.NoError(t, (&Module{}).Register(r))
	d, err := r.CreateDependency(context.Background(), &dep.Env{Normalizer: r}, decl, dir, "")
	require.NoError(t, err)
	return d
}

func readAll(t *testing.T, d dep.Dependency) string {
	t.Helper()
	rc, err := d.(dep.Reader).Read(context.Background())
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestResource_File(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.js"), []byte("alert(1)"), 0o644))

	d := newDep(t, dep.Declaration{"type": "js", "path": "a.js"}, dir)
	key, err := d.Key(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "js|path:"+filepath.Join(dir, "a.js"), key)
	assert.Equal(t, dep.ContentJS, d.ContentType())
	assert.Equal(t, dir, d.Dir())
	assert.Equal(t, filepath.Join(dir, "a.js"), dep.SourcePath(d))
	assert.False(t, dep.IsExternal(d))
	assert.True(t, dep.IsBundleable(d))
	assert.Equal(t, "alert(1)", readAll(t, d))
}

func TestResource_External(t *testing.T) {
	d := newDep(t, dep.Declaration{"type": "css", "path": "https://cdn.example.com/x.css"}, "/app")
	key, err := d.Key(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "css|url:https://cdn.example.com/x.css", key)
	assert.True(t, dep.IsExternal(d))
	assert.True(t, dep.IsBundleable(d))
	assert.Equal(t, "", d.Dir())

	_, err = d.(dep.Reader).Read(context.Background())
	assert.Error(t, err)
}

func TestResource_InlineCode(t *testing.T) {
	a := newDep(t, dep.Declaration{"type": "js", "code": "var a;"}, "/app")
	b := newDep(t, dep.Declaration{"type": "js", "code": "var a;"}, "/other")
	c := newDep(t, dep.Declaration{"type": "js", "code": "var c;"}, "/app")

	ka, _ := a.Key(context.Background())
	kb, _ := b.Key(context.Background())
	kc, _ := c.Key(context.Background())
	assert.Equal(t, ka, kb)
	assert.NotEqual(t, ka, kc)
	assert.Equal(t, "/app", a.Dir())
	assert.Equal(t, "var a;", readAll(t, a))
}

func TestResource_RequiresSource(t *testing.T) {
	r := registry.New()
	require.NoError(t, (&Module{}).Register(r))
	_, err := r.CreateDependency(context.Background(), &dep.Env{}, dep.Declaration{"type": "css"}, "/app", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, dep.ErrConfiguration))
}

func TestResource_MissingFile(t *testing.T) {
	d := newDep(t, dep.Declaration{"type": "js", "path": "gone.js"}, t.TempDir())
	_, err := d.(dep.Reader).Read(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
