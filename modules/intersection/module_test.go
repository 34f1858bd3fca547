package intersection_test

import (
	"context"
	"testing"

	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/flags"
	"github.com/specialistvlad/assetgrid/internal/testutil"
	"github.com/specialistvlad/assetgrid/internal/walker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaves(t *testing.T, h *testutil.Harness, fl *flags.Set, decls ...any) []string {
	t.Helper()
	var out []dep.Dependency
	err := walker.Walk(h.Ctx, walker.Options{
		Env:          h.Env,
		Flags:        fl,
		Dependencies: h.Normalize(t, decls...),
		Listener: walker.Funcs{Dependency: func(ctx context.Context, d dep.Dependency, wc *walker.Context) error {
			if !d.IsPackage() {
				out = append(out, d)
			}
			return nil
		}},
	})
	require.NoError(t, err)
	return testutil.Names(t, out)
}

func TestIntersection_CommonLeaves(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"page1/browser.json": `["../shared.js", "../a.js", "../util.css", {"path": "../m.js", "if-flag": "mobile"}]`,
		"page2/browser.json": `["../b.js", "../util.css", "../shared.js", {"path": "../m.js", "if-flag": "mobile"}]`,
	})
	h := testutil.NewHarness(t, root)
	decl := map[string]any{
		"type":         "intersection",
		"dependencies": []any{[]any{"page1/browser.json"}, []any{"page2/browser.json"}},
	}

	assert.Equal(t, []string{"shared.js", "util.css"}, leaves(t, h, flags.New(), decl))
	assert.Equal(t, []string{"shared.js", "util.css", "m.js"}, leaves(t, h, flags.New("mobile"), decl))
}

func TestIntersection_InvalidDeclaration(t *testing.T) {
	h := testutil.NewHarness(t, t.TempDir())
	for _, bad := range []any{nil, []any{}, []any{"a.js"}} {
		_, err := h.Registry.CreateDependency(h.Ctx, h.Env, dep.Declaration{"type": "intersection", "dependencies": bad}, h.Root, "")
		assert.Error(t, err)
	}
}

func TestIntersection_KeyDependsOnGroups(t *testing.T) {
	h := testutil.NewHarness(t, t.TempDir())
	mk := func(groups ...any) string {
		d, err := h.Registry.CreateDependency(h.Ctx, h.Env, dep.Declaration{"type": "intersection", "dependencies": groups}, h.Root, "")
		require.NoError(t, err)
		return testutil.Key(t, d)
	}
	assert.Equal(t, mk([]any{"a.js"}, []any{"b.js"}), mk([]any{"a.js"}, []any{"b.js"}))
	assert.NotEqual(t, mk([]any{"a.js"}, []any{"b.js"}), mk([]any{"a.js"}, []any{"c.js"}))
}
