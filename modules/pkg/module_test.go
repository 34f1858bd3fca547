package pkg

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/manifest"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackage_LoadsDescriptor(t *testing.T) {
	root := t.TempDir()
	lib := filepath.Join(root, "lib")
	require.NoError(t, os.MkdirAll(lib, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(lib, "browser.json"), []byte(`{"dependencies": ["b.js"]}`), 0o644))

	r := registry.New()
	require.NoError(t, (&Module{}).Register(r))
	env := &dep.Env{Normalizer: r, Loader: manifest.NewLoader()}

	for _, path := range []string{"lib/browser.json", "lib"} {
		d, err := r.CreateDependency(context.Background(), env, dep.Declaration{"type": "package", "path": path}, root, "")
		require.NoError(t, err)

		key, err := d.Key(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "package|"+filepath.Join(lib, "browser.json"), key)
		assert.Equal(t, lib, d.Dir())
		assert.True(t, d.IsPackage())

		m, err := d.(dep.Package).Manifest(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []any{"b.js"}, m.Declarations())
		assert.Equal(t, lib, m.Dir())
	}
}

func TestPackage_DirectoryWithoutDescriptor(t *testing.T) {
	r := registry.New()
	require.NoError(t, (&Module{}).Register(r))
	_, err := r.CreateDependency(context.Background(), &dep.Env{}, dep.Declaration{"type": "package", "path": "."}, t.TempDir(), "")
	assert.ErrorContains(t, err, "no package descriptor")
}

func TestPackage_NoLoader(t *testing.T) {
	r := registry.New()
	require.NoError(t, (&Module{}).Register(r))
	d, err := r.CreateDependency(context.Background(), &dep.Env{}, dep.Declaration{"type": "package", "path": "x.json"}, "/app", "")
	require.NoError(t, err)

	_, err = d.(dep.Package).Manifest(context.Background())
	assert.ErrorContains(t, err, "no manifest loader")
}
