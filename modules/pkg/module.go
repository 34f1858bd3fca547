// Package pkg provides the "package" dependency type: a descriptor file
// (browser.json or browser.yaml) whose declarations form a child manifest.
package pkg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/registry"
)

// DescriptorNames are tried in order when a package path names a directory.
var DescriptorNames = []string{"browser.json", "browser.yaml", "browser.yml"}

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register adds the package type.
func (m *Module) Register(r *registry.Registry) error {
	return r.RegisterType("package", registry.TypeDef{
		Package:    true,
		Extensions: []string{".json", ".yaml", ".yml"},
		Create: func(props dep.Properties, src dep.Source) (dep.Dependency, error) {
			return &Package{Base: dep.NewBase("package", props, src)}, nil
		},
	})
}

// Package is a dependency that expands into the manifest of a descriptor file.
type Package struct {
	*dep.Base
	path string
}

// Init resolves the descriptor path. A directory resolves to the first
// descriptor file found in it.
func (p *Package) Init(ctx context.Context, env *dep.Env) error {
	return p.InitOnce(env, func() error {
		if p.Props().Path == "" {
			return dep.ConfigErrorf("package dependency needs a path")
		}
		path := p.ResolvePath(p.Props().Path)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			found, err := FindDescriptor(path)
			if err != nil {
				return err
			}
			path = found
		}
		p.path = path
		return nil
	})
}

// FindDescriptor returns the first descriptor file present in dir.
func FindDescriptor(dir string) (string, error) {
	for _, name := range DescriptorNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no package descriptor (%v) in %s", DescriptorNames, dir)
}

func (p *Package) Key(ctx context.Context) (string, error) {
	return "package|" + p.path, nil
}

func (p *Package) ContentType() dep.ContentType { return dep.ContentNone }
func (p *Package) IsPackage() bool              { return true }
func (p *Package) Dir() string                  { return filepath.Dir(p.path) }
func (p *Package) Path() string                 { return p.path }
func (p *Package) String() string               { return "package:" + p.path }

// Manifest loads the descriptor through the environment's loader.
func (p *Package) Manifest(ctx context.Context) (*dep.Manifest, error) {
	env := p.Env()
	if env == nil || env.Loader == nil {
		return nil, fmt.Errorf("%s: no manifest loader configured", p)
	}
	return env.Loader.LoadManifest(ctx, p.path)
}
