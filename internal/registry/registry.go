package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/dep"
)

// Module is the interface that all dependency-type modules implement to be registered.
type Module interface {
	Register(r *Registry) error
}

// CreateFunc builds a node from its parsed properties.
type CreateFunc func(props dep.Properties, src dep.Source) (dep.Dependency, error)

// TypeDef describes one dependency type.
type TypeDef struct {
	// Package types expand into a child manifest.
	Package bool
	// Readable types supply content through dep.Reader.
	Readable bool
	Create   CreateFunc
	// Extensions are file suffixes (".js") inferred as this type in shorthand declarations.
	Extensions []string
}

// Registry holds the dependency types and normalizers of one engine.
type Registry struct {
	mu          sync.RWMutex
	types       map[string]TypeDef
	extensions  map[string]string
	normalizers []NormalizeFunc
	fragments   []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		types:      make(map[string]TypeDef),
		extensions: make(map[string]string),
	}
}

// Load registers every module in order and stops at the first failure.
func (r *Registry) Load(ctx context.Context, modules ...Module) error {
	logger := ctxlog.FromContext(ctx)
	for _, mod := range modules {
		if err := mod.Register(r); err != nil {
			return fmt.Errorf("registering module %T: %w", mod, err)
		}
	}
	logger.Debug("Dependency modules registered.", "count", len(modules), "types", r.Types())
	return nil
}

// RegisterType adds a dependency type under tag.
func (r *Registry) RegisterType(tag string, def TypeDef) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return dep.ConfigErrorf("dependency type tag must not be empty")
	}
	if def.Create == nil {
		return dep.ConfigErrorf("dependency type %q has no constructor", tag)
	}
	if def.Package && def.Readable {
		return dep.ConfigErrorf("dependency type %q is a package and cannot also read content", tag)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[tag]; exists {
		return dep.ConfigErrorf("dependency type %q already registered", tag)
	}
	for _, ext := range def.Extensions {
		ext = strings.ToLower(ext)
		if owner, taken := r.extensions[ext]; taken {
			return dep.ConfigErrorf("extension %q of type %q is already claimed by %q", ext, tag, owner)
		}
	}
	r.types[tag] = def
	for _, ext := range def.Extensions {
		r.extensions[strings.ToLower(ext)] = tag
	}
	return nil
}

// AddNormalizer appends a user normalizer. User normalizers run after glob
// expansion and before the built-in shorthand handling.
func (r *Registry) AddNormalizer(fn NormalizeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalizers = append(r.normalizers, fn)
}

// AddKeyFragment records a plugin-supplied string that takes part in the
// build cache fingerprint.
func (r *Registry) AddKeyFragment(fragment string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fragments = append(r.fragments, fragment)
}

// KeyFragments returns the registered type tags followed by plugin fragments.
func (r *Registry) KeyFragments() []string {
	out := r.Types()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append(out, r.fragments...)
}

// Types returns the registered type tags in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for t := range r.types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the definition registered under tag.
func (r *Registry) Lookup(tag string) (TypeDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.types[tag]
	return def, ok
}

// TypeForExtension returns the type inferred for a file suffix such as ".css".
func (r *Registry) TypeForExtension(ext string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tag, ok := r.extensions[strings.ToLower(ext)]
	return tag, ok
}

// CreateDependency builds and initializes one node from a declaration.
func (r *Registry) CreateDependency(ctx context.Context, env *dep.Env, decl dep.Declaration, dir, file string) (dep.Dependency, error) {
	props, err := dep.ParseProperties(decl)
	if err != nil {
		return nil, err
	}
	def, ok := r.Lookup(props.Type)
	if !ok {
		return nil, &UnknownTypeError{Type: props.Type, Known: r.Types()}
	}

	d, err := def.Create(props, dep.Source{Dir: dir, File: file})
	if err != nil {
		return nil, fmt.Errorf("creating %s dependency: %w", props.Type, err)
	}
	if _, isPkg := d.(dep.Package); def.Package && !isPkg {
		return nil, fmt.Errorf("dependency type %q is registered as a package but %T has no manifest", props.Type, d)
	}
	if _, isReader := d.(dep.Reader); def.Readable && !isReader {
		return nil, fmt.Errorf("dependency type %q is registered as readable but %T cannot be read", props.Type, d)
	}
	if err := d.Init(ctx, env); err != nil {
		return nil, fmt.Errorf("initializing %s: %w", d, err)
	}
	return d, nil
}
