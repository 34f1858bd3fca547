package dep

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
)

// Manifest is an ordered list of dependency declarations sharing one base
// directory, plus optional named async blocks.
type Manifest struct {
	dir      string
	filename string
	decls    []any
	async    map[string][]any

	mu       sync.Mutex
	resolved bool
	deps     []Dependency
}

// NewManifest creates a manifest rooted at dir. filename may be empty for
// manifests that do not come from a file.
func NewManifest(dir, filename string, decls []any, async map[string][]any) *Manifest {
	return &Manifest{
		dir:      dir,
		filename: filename,
		decls:    decls,
		async:    async,
	}
}

func (m *Manifest) Dir() string      { return m.dir }
func (m *Manifest) Filename() string { return m.filename }

// Declarations returns a copy of the raw declarations in order.
func (m *Manifest) Declarations() []any {
	return append([]any(nil), m.decls...)
}

// Dependencies normalizes the declarations on first use. Only a successful
// normalization is remembered.
func (m *Manifest) Dependencies(ctx context.Context, env *Env) ([]Dependency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolved {
		return m.deps, nil
	}
	if env == nil || env.Normalizer == nil {
		return nil, fmt.Errorf("manifest %s: no normalizer configured", m)
	}
	deps, err := env.Normalizer.NormalizeDependencies(ctx, env, m.decls, m.dir, m.filename)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", m, err)
	}
	m.deps = deps
	m.resolved = true
	return deps, nil
}

// AsyncNames lists the async block names in sorted order.
func (m *Manifest) AsyncNames() []string {
	names := make([]string, 0, len(m.async))
	for n := range m.async {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Async returns the raw declarations of one async block.
func (m *Manifest) Async(name string) ([]any, bool) {
	decls, ok := m.async[name]
	return decls, ok
}

func (m *Manifest) String() string {
	if m.filename != "" {
		return filepath.Join(m.dir, m.filename)
	}
	if m.dir != "" {
		return m.dir
	}
	return "(inline manifest)"
}
