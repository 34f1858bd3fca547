package builder_test

import (
	"testing"

	"github.com/specialistvlad/assetgrid/internal/builder"
	"github.com/specialistvlad/assetgrid/internal/bundle"
	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/flags"
	"github.com/specialistvlad/assetgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findBundle(t *testing.T, m *bundle.Mappings, name string, ct dep.ContentType) *bundle.Bundle {
	t.Helper()
	for _, b := range m.Bundles() {
		if b.Name == name && b.ContentType == ct {
			return b
		}
	}
	t.Fatalf("bundle %s (%s) not found", name, ct)
	return nil
}

func newBuilder(h *testutil.Harness) *builder.Builder {
	return builder.New(h.Env, bundle.Options{Bundling: true, ProjectRoot: h.Root})
}

func TestBuild_FirstBundleWins(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"x.js": "x", "a.js": "a", "b.js": "b",
	})
	h := testutil.NewHarness(t, root)

	m, err := newBuilder(h).Build(h.Ctx, flags.New(), []*bundle.Config{
		{Name: "alpha", Dependencies: []any{"x.js", "a.js"}},
		{Name: "beta", Dependencies: []any{"x.js", "b.js"}},
	})
	require.NoError(t, err)

	x := h.Normalize(t, "x.js")[0]
	b, err := m.BundleFor(h.Ctx, x)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "alpha", b.Name)
	assert.Equal(t, []string{"x.js", "a.js"}, testutil.Names(t, findBundle(t, m, "alpha", dep.ContentJS).Dependencies()))
	assert.Equal(t, []string{"b.js"}, testutil.Names(t, findBundle(t, m, "beta", dep.ContentJS).Dependencies()))
}

func TestBuild_RecursionModes(t *testing.T) {
	files := map[string]string{
		"lib/browser.json":     `["a.js", "a.css", "sub/browser.json"]`,
		"lib/a.js":             "a",
		"lib/a.css":            "a",
		"lib/sub/browser.json": `["s.js"]`,
		"lib/sub/s.js":         "s",
	}

	cases := []struct {
		mode string
		want []string
	}{
		{mode: "dir", want: []string{"a.js"}},
		{mode: "dirtree", want: []string{"a.js", "s.js"}},
		{mode: "", want: []string{"a.js", "s.js"}},
		{mode: "all", want: []string{"a.js", "s.js"}},
		{mode: "none", want: []string{"a.js"}},
	}
	for _, tc := range cases {
		t.Run("mode="+tc.mode, func(t *testing.T) {
			h := testutil.NewHarness(t, testutil.WriteProject(t, files))
			m, err := newBuilder(h).Build(h.Ctx, flags.New(), []*bundle.Config{
				{Name: "vendor", Recurse: tc.mode, Dependencies: []any{"lib/browser.json"}},
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, testutil.Names(t, findBundle(t, m, "vendor", dep.ContentJS).Dependencies()))
			assert.Equal(t, []string{"a.css"}, testutil.Names(t, findBundle(t, m, "vendor", dep.ContentCSS).Dependencies()))
		})
	}
}

func TestBuild_ModuleModeSkipsInstalledPackages(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"lib/package.json":                  `{"name":"lib"}`,
		"lib/src/browser.json":              `["a.js", "../shared/browser.json", "../node_modules/dep/browser.json"]`,
		"lib/src/a.js":                      "a",
		"lib/shared/browser.json":           `["s.js"]`,
		"lib/shared/s.js":                   "s",
		"lib/node_modules/dep/browser.json": `["d.js"]`,
		"lib/node_modules/dep/d.js":         "d",
	})
	h := testutil.NewHarness(t, root)

	m, err := newBuilder(h).Build(h.Ctx, flags.New(), []*bundle.Config{
		{Name: "lib", Recurse: "module", Dependencies: []any{"lib/src/browser.json"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js", "s.js"}, testutil.Names(t, findBundle(t, m, "lib", dep.ContentJS).Dependencies()))
}

func TestBuild_PerDependencyRecurseOverridesBundle(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"lib/browser.json":     `["a.js", "sub/browser.json"]`,
		"lib/a.js":             "a",
		"lib/sub/browser.json": `["s.js"]`,
		"lib/sub/s.js":         "s",
	})
	h := testutil.NewHarness(t, root)

	m, err := newBuilder(h).Build(h.Ctx, flags.New(), []*bundle.Config{
		{Name: "vendor", Recurse: "all", Dependencies: []any{
			map[string]any{"path": "lib/browser.json", "recurse": "dir"},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js"}, testutil.Names(t, findBundle(t, m, "vendor", dep.ContentJS).Dependencies()))
}

func TestBuild_FlagsAndExternals(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"a.js": "a", "debug.js": "d",
	})
	h := testutil.NewHarness(t, root)
	configs := []*bundle.Config{{Name: "main", Dependencies: []any{
		"a.js",
		map[string]any{"path": "debug.js", "if-flag": "debug"},
		"https://cdn.example.com/lib.js",
	}}}

	plain, err := newBuilder(h).Build(h.Ctx, flags.New(), configs)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js"}, testutil.Names(t, findBundle(t, plain, "main", dep.ContentJS).Dependencies()))

	debug, err := newBuilder(h).Build(h.Ctx, flags.New("debug"), configs)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js", "debug.js"}, testutil.Names(t, findBundle(t, debug, "main", dep.ContentJS).Dependencies()))
}

func TestBuild_ConfigurationErrors(t *testing.T) {
	h := testutil.NewHarness(t, t.TempDir())

	_, err := newBuilder(h).Build(h.Ctx, flags.New(), []*bundle.Config{
		{Name: "main", Dependencies: []any{"a.js"}},
		{Name: "main", Dependencies: []any{"b.js"}},
	})
	assert.ErrorIs(t, err, dep.ErrConfiguration)

	_, err = newBuilder(h).Build(h.Ctx, flags.New(), []*bundle.Config{
		{Name: "main", Recurse: "sideways", Dependencies: []any{"a.js"}},
	})
	assert.ErrorIs(t, err, dep.ErrConfiguration)
}

func TestBuild_ResolutionErrorAbortsBuild(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"lib/browser.json": `["missing/browser.json"]`,
	})
	h := testutil.NewHarness(t, root)

	m, err := newBuilder(h).Build(h.Ctx, flags.New(), []*bundle.Config{
		{Name: "main", Recurse: "all", Dependencies: []any{"lib/browser.json"}},
	})
	require.Error(t, err)
	assert.Nil(t, m)
	assert.Contains(t, err.Error(), "->")
}
