package builder

import (
	"context"
	"fmt"

	"github.com/specialistvlad/assetgrid/internal/bundle"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/flags"
	"github.com/specialistvlad/assetgrid/internal/recursion"
	"github.com/specialistvlad/assetgrid/internal/walker"
)

// Builder builds application-level bundle mappings.
type Builder struct {
	Env     *dep.Env
	Options bundle.Options
}

// New creates a builder resolving dependencies through env.
func New(env *dep.Env, opts bundle.Options) *Builder {
	return &Builder{Env: env, Options: opts}
}

// Build assigns the dependencies of every configuration to its bundle.
// Nothing is returned on failure, so callers never see partial mappings.
func (b *Builder) Build(ctx context.Context, set *flags.Set, configs []*bundle.Config) (*bundle.Mappings, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting application bundle construction.", "bundles", len(configs), "flags", set.String())

	if err := bundle.ValidateConfigs(configs); err != nil {
		return nil, err
	}

	m := bundle.New(nil, b.Options)
	for _, cfg := range configs {
		if err := b.buildOne(ctx, m, set, cfg); err != nil {
			return nil, fmt.Errorf("building bundle %q: %w", cfg.Name, err)
		}
	}

	logger.Info("Build: Application bundles ready.", "bundles", len(m.Bundles()), "dependencies", m.Len())
	return m, nil
}

func (b *Builder) buildOne(ctx context.Context, m *bundle.Mappings, set *flags.Set, cfg *bundle.Config) error {
	logger := ctxlog.FromContext(ctx).With("bundle", cfg.Name)

	dir := cfg.Dir
	if dir == "" {
		dir = b.Env.ProjectRoot
	}
	roots, err := b.Env.Normalizer.NormalizeDependencies(ctx, b.Env, cfg.Dependencies, dir, "")
	if err != nil {
		return err
	}
	logger.Debug("Build: Normalized bundle roots.", "roots", len(roots))

	for _, root := range roots {
		if err := b.walkRoot(ctx, m, set, cfg, root); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) walkRoot(ctx context.Context, m *bundle.Mappings, set *flags.Set, cfg *bundle.Config, root dep.Dependency) error {
	mode := cfg.Recurse
	if r := root.Props().Recurse; r != "" {
		mode = r
	}
	parsed, err := recursion.ParseMode(mode)
	if err != nil {
		return err
	}
	policy, err := recursion.New(parsed, root, b.Options.ProjectRoot)
	if err != nil {
		return err
	}

	skip := func(ctx context.Context, d dep.Dependency, wc *walker.Context) (bool, error) {
		mp, err := m.MappingFor(ctx, d)
		if err != nil {
			return false, err
		}
		if mp != nil {
			return true, nil
		}
		if d.IsPackage() {
			return !policy.Recurse(d, wc.Parent), nil
		}
		if !policy.Include(d, wc.Parent) {
			return true, nil
		}
		return !dep.IsBundleable(d) || dep.IsExternal(d), nil
	}

	visit := func(ctx context.Context, d dep.Dependency, wc *walker.Context) error {
		if d.IsPackage() {
			return nil
		}
		_, err := m.AddDependencyToBundle(ctx, d, cfg.Name, wc.SlotFor(d), cfg)
		return err
	}

	return walker.Walk(ctx, walker.Options{
		Env:        b.Env,
		Flags:      set,
		Dependency: root,
		Skip:       skip,
		Listener:   walker.Funcs{Dependency: visit},
	})
}
