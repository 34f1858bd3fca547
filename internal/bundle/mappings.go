package bundle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/specialistvlad/assetgrid/internal/dep"
)

// ErrForeignMapping is returned when removing a mapping owned by another scope.
var ErrForeignMapping = errors.New("mapping belongs to a parent scope")

// Options control how page bundles are chosen.
type Options struct {
	// Bundling disables grouping when false: each leaf gets its own bundle.
	Bundling bool
	// InPlaceDeploy serves unbundled local files from their source location.
	InPlaceDeploy bool
	// ProjectRoot anchors the names of unbundled bundles.
	ProjectRoot string
}

// Mapping records the bundle a dependency was assigned to and its position in it.
type Mapping struct {
	Key        string
	Dependency dep.Dependency
	Bundle     *Bundle
	Index      int

	owner *Mappings
}

// Mappings assigns dependency keys to bundles. Lookups fall through to the
// parent scope; writes always land in the receiver.
type Mappings struct {
	parent *Mappings
	opts   Options

	mu      sync.Mutex
	byKey   map[string]*Mapping
	bundles map[string]*Bundle
	order   []*Bundle
}

// New creates a scope layered over parent, which may be nil.
func New(parent *Mappings, opts Options) *Mappings {
	return &Mappings{
		parent:  parent,
		opts:    opts,
		byKey:   make(map[string]*Mapping),
		bundles: make(map[string]*Bundle),
	}
}

func (m *Mappings) Parent() *Mappings { return m.parent }
func (m *Mappings) Options() Options  { return m.opts }

// Owns reports whether mp was created in this scope.
func (m *Mappings) Owns(mp *Mapping) bool { return mp != nil && mp.owner == m }

// MappingForKey looks key up in this scope and then in its ancestors.
func (m *Mappings) MappingForKey(key string) *Mapping {
	for s := m; s != nil; s = s.parent {
		s.mu.Lock()
		mp := s.byKey[key]
		s.mu.Unlock()
		if mp != nil {
			return mp
		}
	}
	return nil
}

// MappingFor looks d up by key.
func (m *Mappings) MappingFor(ctx context.Context, d dep.Dependency) (*Mapping, error) {
	key, err := d.Key(ctx)
	if err != nil {
		return nil, err
	}
	return m.MappingForKey(key), nil
}

// BundleFor returns the bundle d is mapped to, or nil.
func (m *Mappings) BundleFor(ctx context.Context, d dep.Dependency) (*Bundle, error) {
	mp, err := m.MappingFor(ctx, d)
	if err != nil || mp == nil {
		return nil, err
	}
	return mp.Bundle, nil
}

// AddDependencyToBundle maps d into the named bundle of this scope, creating
// the bundle on first use. If d is already mapped anywhere in the chain the
// existing bundle is returned unchanged.
func (m *Mappings) AddDependencyToBundle(ctx context.Context, d dep.Dependency, name, slot string, cfg *Config) (*Bundle, error) {
	return m.add(ctx, d, name, slot, cfg, nil)
}

func (m *Mappings) add(ctx context.Context, d dep.Dependency, name, slot string, cfg *Config, setup func(*Bundle)) (*Bundle, error) {
	key, err := d.Key(ctx)
	if err != nil {
		return nil, err
	}
	if m.parent != nil {
		if mp := m.parent.MappingForKey(key); mp != nil {
			return mp.Bundle, nil
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if mp := m.byKey[key]; mp != nil {
		return mp.Bundle, nil
	}

	props := d.Props()
	if slot == "" {
		slot = dep.DefaultSlot(d.ContentType())
	}
	bkey := Key(slot, d.ContentType(), props.Inline, name)
	b := m.bundles[bkey]
	if b == nil {
		b = &Bundle{
			Name:        name,
			ContentType: d.ContentType(),
			Slot:        slot,
			Inline:      props.Inline,
			MergeInline: props.MergeInline,
			Config:      cfg,
		}
		if setup != nil {
			setup(b)
		}
		m.bundles[bkey] = b
		m.order = append(m.order, b)
	}
	idx := b.add(d)
	m.byKey[key] = &Mapping{Key: key, Dependency: d, Bundle: b, Index: idx, owner: m}
	return b, nil
}

// AddDependencyToPageBundle picks the bundle for a leaf needed by a page:
//
//   - unbundled local files under in-place deployment get a bundle served
//     from the source file;
//   - external leaves get a bundle of their own;
//   - with bundling disabled every leaf gets its own bundle named after its
//     unbundled target;
//   - otherwise the leaf joins the bundle it declares, or pageBundleName.
func (m *Mappings) AddDependencyToPageBundle(ctx context.Context, d dep.Dependency, pageBundleName, slot string, cfg *Config) (*Bundle, error) {
	source := dep.SourcePath(d)
	switch {
	case !m.opts.Bundling && m.opts.InPlaceDeploy && source != "":
		return m.add(ctx, d, source, slot, cfg, func(b *Bundle) { b.InPlace = true })
	case dep.IsExternal(d):
		url := d.(dep.External).URL()
		return m.add(ctx, d, url, slot, cfg, func(b *Bundle) { b.External = true })
	case !m.opts.Bundling:
		return m.add(ctx, d, m.unbundledTarget(d, pageBundleName), slot, cfg, nil)
	default:
		name := d.Props().Bundle
		if name == "" {
			name = pageBundleName
		}
		return m.add(ctx, d, name, slot, cfg, nil)
	}
}

// unbundledTarget names the single-file bundle of d when bundling is off,
// keeping the source layout relative to the project root.
func (m *Mappings) unbundledTarget(d dep.Dependency, pageBundleName string) string {
	if t := d.Props().UnbundledTarget; t != "" {
		return t
	}
	if source := dep.SourcePath(d); source != "" {
		rel := source
		if m.opts.ProjectRoot != "" {
			if r, err := filepath.Rel(m.opts.ProjectRoot, source); err == nil && !strings.HasPrefix(r, "..") {
				rel = r
			}
		}
		rel = filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
		return strings.TrimPrefix(rel, "/")
	}
	return d.Type() + "-" + pageBundleName
}

// Remove deletes a mapping owned by this scope and clears its slot in the
// bundle. Mappings inherited from a parent scope are never touched.
func (m *Mappings) Remove(mp *Mapping) error {
	if mp == nil {
		return nil
	}
	if mp.owner != m {
		return fmt.Errorf("removing %s: %w", mp.Key, ErrForeignMapping)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byKey[mp.Key] != mp {
		return nil
	}
	delete(m.byKey, mp.Key)
	mp.Bundle.removeAt(mp.Index, mp.Dependency)
	return nil
}

// Bundles returns the bundles created in this scope, in creation order.
func (m *Mappings) Bundles() []*Bundle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Bundle(nil), m.order...)
}

// Len is the number of mappings owned by this scope.
func (m *Mappings) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byKey)
}
