// Package resource provides the "js" and "css" leaf dependency types.
package resource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register adds the script and stylesheet types.
func (m *Module) Register(r *registry.Registry) error {
	if err := r.RegisterType("js", registry.TypeDef{
		Readable:   true,
		Extensions: []string{".js", ".mjs", ".cjs"},
		Create:     create(dep.ContentJS),
	}); err != nil {
		return err
	}
	return r.RegisterType("css", registry.TypeDef{
		Readable:   true,
		Extensions: []string{".css"},
		Create:     create(dep.ContentCSS),
	})
}

func create(ct dep.ContentType) registry.CreateFunc {
	return func(props dep.Properties, src dep.Source) (dep.Dependency, error) {
		return &Resource{Base: dep.NewBase(props.Type, props, src), contentType: ct}, nil
	}
}

// Resource is a script or stylesheet given by path, URL or inline code.
type Resource struct {
	*dep.Base
	contentType dep.ContentType
	path        string
	url         string
}

// Init resolves the local path, or recognizes an external URL.
func (r *Resource) Init(ctx context.Context, env *dep.Env) error {
	return r.InitOnce(env, func() error {
		props := r.Props()
		p, u := props.Path, props.URL
		if u == "" && dep.IsURL(p) {
			u, p = p, ""
		}
		if p == "" && u == "" && props.Code == "" {
			return dep.ConfigErrorf("%s dependency needs a path, url or code", r.Type())
		}
		r.path = r.ResolvePath(p)
		r.url = u
		return nil
	})
}

// Key identifies the resource by URL, by file, or by a hash of its inline code.
func (r *Resource) Key(ctx context.Context) (string, error) {
	return r.CachedKey(func() (string, error) {
		switch {
		case r.url != "":
			return r.Type() + "|url:" + r.url, nil
		case r.path != "":
			return r.Type() + "|path:" + r.path, nil
		default:
			sum := sha256.Sum256([]byte(r.Props().Code))
			return r.Type() + "|code:" + hex.EncodeToString(sum[:8]), nil
		}
	})
}

func (r *Resource) ContentType() dep.ContentType { return r.contentType }
func (r *Resource) IsPackage() bool              { return false }
func (r *Resource) URL() string                  { return r.url }
func (r *Resource) SourcePath() string           { return r.path }

// Dir is the directory of the backing file. External resources have none.
func (r *Resource) Dir() string {
	switch {
	case r.path != "":
		return filepath.Dir(r.path)
	case r.url != "":
		return ""
	default:
		return r.Base.Dir()
	}
}

// Read opens the inline code or the backing file.
func (r *Resource) Read(ctx context.Context) (io.ReadCloser, error) {
	switch {
	case r.url != "":
		return nil, fmt.Errorf("%s is external and has no local content", r)
	case r.path != "":
		f, err := os.Open(r.path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", r, err)
		}
		return f, nil
	default:
		return io.NopCloser(strings.NewReader(r.Props().Code)), nil
	}
}

func (r *Resource) String() string {
	switch {
	case r.path != "":
		return r.Type() + ":" + r.path
	case r.url != "":
		return r.Type() + ":" + r.url
	default:
		return r.Base.String()
	}
}
