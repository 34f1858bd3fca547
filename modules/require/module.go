// Package require provides the "require" dependency type, which pulls a
// CommonJS-style module and whatever its source says it needs.
package require

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/modules/pkg"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Inspector discovers the dependencies of a module's source. The regex
	// inspector is used when nil.
	Inspector Inspector
}

// Register adds the require type.
func (m *Module) Register(r *registry.Registry) error {
	insp := m.Inspector
	if insp == nil {
		insp = &RegexInspector{}
	}
	return r.RegisterType("require", registry.TypeDef{
		Package: true,
		Create: func(props dep.Properties, src dep.Source) (dep.Dependency, error) {
			return &Require{Base: dep.NewBase("require", props, src), inspector: insp}, nil
		},
	})
}

// Require is a package whose manifest is built from one module file.
type Require struct {
	*dep.Base
	inspector Inspector

	target     string
	descriptor string

	mu       sync.Mutex
	manifest *dep.Manifest
}

// Init resolves the module name against the declaring directory.
func (r *Require) Init(ctx context.Context, env *dep.Env) error {
	return r.InitOnce(env, func() error {
		name := strings.TrimSpace(r.Props().Path)
		if name == "" {
			return dep.ConfigErrorf("require dependency needs a module name")
		}
		target, descriptor, err := Resolve(name, r.Source().Dir)
		if err != nil {
			return err
		}
		r.target, r.descriptor = target, descriptor
		return nil
	})
}

func (r *Require) location() string {
	if r.descriptor != "" {
		return r.descriptor
	}
	return r.target
}

func (r *Require) Key(ctx context.Context) (string, error) {
	return "require|" + r.location(), nil
}

func (r *Require) ContentType() dep.ContentType { return dep.ContentNone }
func (r *Require) IsPackage() bool              { return true }
func (r *Require) Dir() string                  { return filepath.Dir(r.location()) }
func (r *Require) String() string               { return "require:" + r.location() }

// Manifest returns the module's descriptor manifest when it has one, or a
// manifest listing the inspected requirements followed by the file itself.
func (r *Require) Manifest(ctx context.Context) (*dep.Manifest, error) {
	if r.descriptor != "" {
		env := r.Env()
		if env == nil || env.Loader == nil {
			return nil, fmt.Errorf("%s: no manifest loader configured", r)
		}
		return env.Loader.LoadManifest(ctx, r.descriptor)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.manifest != nil {
		return r.manifest, nil
	}
	found, err := r.inspector.Inspect(ctx, r.target)
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", r.target, err)
	}
	decls := make([]any, 0, len(found.Dependencies)+1)
	decls = append(decls, found.Dependencies...)
	decls = append(decls, dep.Declaration{"type": "js", "path": r.target})
	r.manifest = dep.NewManifest(filepath.Dir(r.target), "", decls, found.Async)
	return r.manifest, nil
}

// Resolve finds the file (or package descriptor) a module name refers to.
// Relative and absolute names resolve against fromDir; bare names are looked
// up in node_modules directories from fromDir upwards.
func Resolve(name, fromDir string) (target, descriptor string, err error) {
	if strings.HasPrefix(name, ".") || filepath.IsAbs(name) {
		p := name
		if !filepath.IsAbs(p) {
			p = filepath.Join(fromDir, p)
		}
		return resolvePath(filepath.Clean(p))
	}

	for dir := fromDir; ; {
		candidate := filepath.Join(dir, "node_modules", filepath.FromSlash(name))
		if target, descriptor, err := resolvePath(candidate); err == nil {
			return target, descriptor, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", "", fmt.Errorf("cannot resolve module %q from %s", name, fromDir)
}

func resolvePath(p string) (string, string, error) {
	info, err := os.Stat(p)
	if err == nil && !info.IsDir() {
		return p, "", nil
	}
	if _, err := os.Stat(p + ".js"); err == nil {
		return p + ".js", "", nil
	}
	if err != nil || !info.IsDir() {
		return "", "", fmt.Errorf("cannot resolve %s", p)
	}

	if descriptor, err := pkg.FindDescriptor(p); err == nil {
		return "", descriptor, nil
	}
	if main := packageMain(p); main != "" {
		if target, _, err := resolvePath(filepath.Join(p, main)); err == nil && target != "" {
			return target, "", nil
		}
	}
	index := filepath.Join(p, "index.js")
	if _, err := os.Stat(index); err == nil {
		return index, "", nil
	}
	return "", "", fmt.Errorf("cannot resolve %s: no descriptor, main file or index.js", p)
}

// packageMain reads the entry point from dir/package.json. A string
// "browser" field wins over "main".
func packageMain(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return ""
	}
	var meta struct {
		Main    string `json:"main"`
		Browser any    `json:"browser"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return ""
	}
	if b, ok := meta.Browser.(string); ok && b != "" {
		return b
	}
	return meta.Main
}
