// Package intersection provides the "intersection" dependency type: a
// computed package containing only the leaves common to every listed
// dependency group.
package intersection

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/flags"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/walker"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register adds the intersection type.
func (m *Module) Register(r *registry.Registry) error {
	return r.RegisterType("intersection", registry.TypeDef{
		Package: true,
		Create: func(props dep.Properties, src dep.Source) (dep.Dependency, error) {
			return &Intersection{Base: dep.NewBase("intersection", props, src)}, nil
		},
	})
}

// Intersection expands to the leaves reachable from every group.
type Intersection struct {
	*dep.Base
	groups [][]any
	key    string
}

// Init validates the "dependencies" property, which must be a list of lists.
func (x *Intersection) Init(ctx context.Context, env *dep.Env) error {
	return x.InitOnce(env, func() error {
		raw, ok := x.Props().Extra["dependencies"].([]any)
		if !ok || len(raw) == 0 {
			return dep.ConfigErrorf("intersection needs a non-empty \"dependencies\" list of lists")
		}
		for i, g := range raw {
			group, ok := g.([]any)
			if !ok {
				return dep.ConfigErrorf("intersection group %d must be a list, got %T", i, g)
			}
			x.groups = append(x.groups, group)
		}

		encoded, err := json.Marshal(x.groups)
		if err != nil {
			return fmt.Errorf("intersection: %w", err)
		}
		sum := sha256.Sum256(append([]byte(x.Source().Dir+"\x00"), encoded...))
		x.key = "intersection|" + hex.EncodeToString(sum[:12])
		return nil
	})
}

func (x *Intersection) Key(ctx context.Context) (string, error) { return x.key, nil }
func (x *Intersection) ContentType() dep.ContentType           { return dep.ContentNone }
func (x *Intersection) IsPackage() bool                        { return true }

// Manifest walks each group under the flags active on ctx and keeps the
// leaves present in all of them, in the order of the first group. It is
// recomputed on every call because the result depends on the flags.
func (x *Intersection) Manifest(ctx context.Context) (*dep.Manifest, error) {
	env := x.Env()
	if env == nil || env.Normalizer == nil {
		return nil, fmt.Errorf("%s: no normalizer configured", x)
	}
	fl := flags.FromContext(ctx)
	src := x.Source()

	var order []dep.Dependency
	counts := make(map[string]int)
	for i, group := range x.groups {
		deps, err := env.Normalizer.NormalizeDependencies(ctx, env, group, src.Dir, src.File)
		if err != nil {
			return nil, fmt.Errorf("intersection group %d: %w", i, err)
		}
		first := i == 0
		err = walker.Walk(ctx, walker.Options{
			Env:          env,
			Flags:        fl,
			Dependencies: deps,
			Listener: walker.Funcs{Dependency: func(ctx context.Context, d dep.Dependency, wc *walker.Context) error {
				if d.IsPackage() {
					return nil
				}
				key, err := d.Key(ctx)
				if err != nil {
					return err
				}
				counts[key]++
				if first {
					order = append(order, d)
				}
				return nil
			}},
		})
		if err != nil {
			return nil, fmt.Errorf("intersection group %d: %w", i, err)
		}
	}

	common := make([]any, 0, len(order))
	for _, d := range order {
		key, _ := d.Key(ctx)
		if counts[key] == len(x.groups) {
			common = append(common, d)
		}
	}
	return dep.NewManifest(src.Dir, src.File, common, nil), nil
}
