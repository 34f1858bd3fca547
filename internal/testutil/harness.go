// Package testutil holds shared helpers for tests that need a project on
// disk and a fully wired dependency environment.
package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/manifest"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/modules"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// WriteProject writes files (relative path -> content) under a fresh
// temporary directory and returns its path.
func WriteProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

// Harness bundles a registry, a manifest loader and the environment that
// ties them together, plus a context carrying a captured logger.
type Harness struct {
	Root     string
	Registry *registry.Registry
	Loader   *manifest.Loader
	Env      *dep.Env
	Ctx      context.Context
	Logs     *SafeBuffer
}

// NewHarness wires the built-in modules (or the given ones) for a project
// rooted at root. Logs are printed on cleanup when ASSETGRID_TEST_LOGS=true.
func NewHarness(t *testing.T, root string, mods ...registry.Module) *Harness {
	t.Helper()
	if len(mods) == 0 {
		mods = modules.Core()
	}

	logs := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	reg := registry.New()
	require.NoError(t, reg.Load(ctx, mods...))
	loader := manifest.NewLoader()

	t.Cleanup(func() {
		if os.Getenv("ASSETGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	return &Harness{
		Root:     root,
		Registry: reg,
		Loader:   loader,
		Env:      &dep.Env{Normalizer: reg, Loader: loader, ProjectRoot: root},
		Ctx:      ctx,
		Logs:     logs,
	}
}

// Path joins name onto the project root.
func (h *Harness) Path(name string) string {
	return filepath.Join(h.Root, filepath.FromSlash(name))
}

// Manifest loads a descriptor relative to the project root.
func (h *Harness) Manifest(t *testing.T, name string) *dep.Manifest {
	t.Helper()
	m, err := h.Loader.LoadManifest(h.Ctx, h.Path(name))
	require.NoError(t, err)
	return m
}

// Normalize turns declarations relative to the project root into nodes.
func (h *Harness) Normalize(t *testing.T, decls ...any) []dep.Dependency {
	t.Helper()
	deps, err := h.Registry.NormalizeDependencies(h.Ctx, h.Env, decls, h.Root, "")
	require.NoError(t, err)
	return deps
}
