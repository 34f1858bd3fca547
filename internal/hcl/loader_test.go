package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func TestLoad_FullFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"assetgrid.hcl": `
project_root    = "web"
bundling        = true
strategy        = "lean"
in_place_deploy = false
flags           = ["mobile"]
workers         = 8
plugins         = ["package", "require"]

output {
  dir         = "public/assets"
  url_prefix  = "/static"
  fingerprint = true
}

notify {
  url   = "http://localhost:3000/"
  event = "reload"
}

healthcheck_port = 9090

cache {
  backend = "redis"
  url     = "redis://localhost:6379/0"
  scope   = "site"
}

bundle "vendor" {
  recurse      = "module"
  dependencies = ["lib/browser.json", { path = "x.js", slot = "head", "if-flag" = "mobile" }]
}

bundle "common" {
  dependencies = ["common/*.js"]
}
`,
	})

	cfg, err := NewLoader().Load(context.Background(), filepath.Join(dir, "assetgrid.hcl"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "web"), cfg.ProjectRoot)
	assert.Equal(t, "lean", cfg.Strategy)
	assert.Equal(t, []string{"mobile"}, cfg.Flags)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, []string{"package", "require"}, cfg.Plugins)
	assert.Equal(t, "public/assets", cfg.Output.Dir)
	assert.Equal(t, "/static", cfg.Output.URLPrefix)
	assert.True(t, cfg.Output.Fingerprint)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "site", cfg.Cache.Scope)
	assert.Equal(t, "http://localhost:3000/", cfg.Notify.URL)
	assert.Equal(t, "reload", cfg.Notify.Event)
	assert.Equal(t, 9090, cfg.HealthcheckPort)

	require.Len(t, cfg.Bundles, 2)
	vendor := cfg.Bundles[0]
	assert.Equal(t, "vendor", vendor.Name)
	assert.Equal(t, "module", vendor.Recurse)
	assert.Equal(t, cfg.ProjectRoot, vendor.Dir)
	assert.Equal(t, []any{
		"lib/browser.json",
		map[string]any{"path": "x.js", "slot": "head", "if-flag": "mobile"},
	}, vendor.Dependencies)
	assert.Equal(t, []any{"common/*.js"}, cfg.Bundles[1].Dependencies)
}

func TestLoad_DirectoryMergesFilesInOrder(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"conf/10-base.hcl": `
strategy = "lean"
bundle "a" {
  dependencies = ["a.js"]
}
`,
		"conf/20-override.hcl": `
strategy = "default"
output {
  url_prefix = "/cdn"
}
`,
		"conf/30-more.hcl.json": `{"bundle": {"b": {"dependencies": ["b.js"]}}}`,
		"conf/notes.txt":        "ignored",
	})

	cfg, err := NewLoader().Load(context.Background(), filepath.Join(dir, "conf"))
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.Strategy)
	assert.Equal(t, "/cdn", cfg.Output.URLPrefix)
	assert.Equal(t, "dist", cfg.Output.Dir)
	require.Len(t, cfg.Bundles, 2)
	assert.Equal(t, "a", cfg.Bundles[0].Name)
	assert.Equal(t, "b", cfg.Bundles[1].Name)
	assert.Equal(t, filepath.Join(dir, "conf"), cfg.ProjectRoot)
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing path", func(t *testing.T) {
		_, err := NewLoader().Load(ctx, filepath.Join(t.TempDir(), "nope.hcl"))
		require.Error(t, err)
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := NewLoader().Load(ctx, t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no configuration files")
	})

	t.Run("syntax error", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"a.hcl": `bundle "x" {`})
		_, err := NewLoader().Load(ctx, dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse")
	})

	t.Run("unknown attribute", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"a.hcl": `bundlin = true`})
		_, err := NewLoader().Load(ctx, dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode")
	})

	t.Run("dependencies not a list", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"a.hcl": `
bundle "x" {
  dependencies = "a.js"
}
`})
		_, err := NewLoader().Load(ctx, dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be a list")
	})

	t.Run("invalid strategy", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"a.hcl": `strategy = "greedy"`})
		_, err := NewLoader().Load(ctx, dir)
		assert.ErrorIs(t, err, dep.ErrConfiguration)
	})

	t.Run("duplicate bundle", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"a.hcl": `
bundle "x" {
  dependencies = []
}
bundle "x" {
  dependencies = []
}
`})
		_, err := NewLoader().Load(ctx, dir)
		assert.ErrorIs(t, err, dep.ErrConfiguration)
	})
}
