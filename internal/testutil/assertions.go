package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/stretchr/testify/require"
)

// Names returns the base file name of each dependency's source, falling
// back to its string form, so assertions stay independent of temp dirs.
func Names(t *testing.T, deps []dep.Dependency) []string {
	t.Helper()
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		if p := dep.SourcePath(d); p != "" {
			out = append(out, filepath.Base(p))
			continue
		}
		out = append(out, d.String())
	}
	return out
}

// Key returns the key of d and fails the test on error.
func Key(t *testing.T, d dep.Dependency) string {
	t.Helper()
	k, err := d.Key(context.Background())
	require.NoError(t, err)
	return k
}
