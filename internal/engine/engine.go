package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/assetgrid/internal/buildcache"
	"github.com/specialistvlad/assetgrid/internal/bundle"
	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/fingerprint"
	"github.com/specialistvlad/assetgrid/internal/manifest"
	"github.com/specialistvlad/assetgrid/internal/metrics"
	"github.com/specialistvlad/assetgrid/internal/notify"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/result"
	"github.com/specialistvlad/assetgrid/internal/strategy"
	"github.com/specialistvlad/assetgrid/internal/writer"
)

// Options wire an Engine. Config and Registry are required; every other
// collaborator has a default derived from Config.
type Options struct {
	Config   *config.Config
	Registry *registry.Registry
	Loader   *manifest.Loader
	Store    buildcache.Store
	Writer   writer.Writer
	Notifier notify.Notifier
	Metrics  *metrics.Metrics
}

// Engine builds pages for one configuration. It is safe for concurrent use.
type Engine struct {
	cfg          *config.Config
	registry     *registry.Registry
	loader       *manifest.Loader
	env          *dep.Env
	strategy     strategy.Strategy
	bundleOpts   bundle.Options
	fingerprint  string
	cache        *buildcache.Cache
	fingerprints *fingerprint.Cache
	writer       writer.Writer
	notifier     notify.Notifier
	metrics      *metrics.Metrics
}

// New validates the configuration and the registry and wires the engine.
func New(ctx context.Context, opts Options) (*Engine, error) {
	logger := ctxlog.FromContext(ctx)
	if opts.Config == nil {
		return nil, errors.New("engine: no configuration")
	}
	if opts.Registry == nil {
		return nil, errors.New("engine: no registry")
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Registry.ValidateRegistry(ctx); err != nil {
		return nil, err
	}
	strat, err := strategy.New(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}
	fp, err := cfg.Fingerprint(opts.Registry.Types(), opts.Registry.KeyFragments())
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:          cfg,
		registry:     opts.Registry,
		loader:       opts.Loader,
		strategy:     strat,
		fingerprint:  fp,
		fingerprints: fingerprint.New(),
		writer:       opts.Writer,
		notifier:     opts.Notifier,
		metrics:      opts.Metrics,
		bundleOpts: bundle.Options{
			Bundling:      cfg.Bundling,
			InPlaceDeploy: cfg.InPlaceDeploy,
			ProjectRoot:   root,
		},
	}
	if e.loader == nil {
		e.loader = manifest.NewLoader()
	}
	e.env = &dep.Env{Normalizer: e.registry, Loader: e.loader, ProjectRoot: root}

	store := opts.Store
	if store == nil {
		if store, err = buildcache.NewStore(ctx, cfg.Cache.Backend, cfg.Cache.URL); err != nil {
			return nil, err
		}
	}
	scope := cfg.Cache.Scope
	if scope == "" {
		scope = root
	}
	e.cache = buildcache.New(scope, store, e.metrics)
	e.cache.AddFlusher(e.loader)
	e.cache.AddFlusher(e.fingerprints)

	if e.writer == nil {
		outDir := cfg.Output.Dir
		if !filepath.IsAbs(outDir) {
			outDir = filepath.Join(root, outDir)
		}
		// Lean bundles share names across pages but not content.
		e.writer = &writer.FileWriter{
			OutputDir:   outDir,
			URLPrefix:   cfg.Output.URLPrefix,
			Fingerprint: cfg.Output.Fingerprint || strat.Name() == strategy.LeanName,
			ProjectRoot: root,
			Metrics:     e.metrics,
		}
	}
	if e.notifier == nil {
		e.notifier = notify.Noop{}
	}

	logger.Debug("Engine ready.", "project_root", root, "strategy", strat.Name(), "bundles", len(cfg.Bundles), "types", len(e.registry.Types()))
	return e, nil
}

// ProjectRoot returns the absolute project root.
func (e *Engine) ProjectRoot() string { return e.env.ProjectRoot }

// Strategy returns the name of the bundling strategy in use.
func (e *Engine) Strategy() string { return e.strategy.Name() }

// Close releases the cache store and the notifier.
func (e *Engine) Close() error {
	return errors.Join(e.cache.Close(), e.notifier.Close())
}

// validate accepts a cached page only while its sources are unchanged and
// its output files still exist. Application bundles are rebuilt whenever a
// page goes stale, since their written content may be stale too.
func (e *Engine) validate(ctx context.Context) func(*result.Page) bool {
	return func(p *result.Page) bool {
		if !e.fingerprints.Matches(p.Fingerprints) {
			ctxlog.FromContext(ctx).Debug("Engine: Sources changed since the cached build.", "page", p.Name)
			e.cache.InvalidateMappings()
			return false
		}
		for _, f := range p.Files {
			if _, err := os.Stat(f); err != nil {
				ctxlog.FromContext(ctx).Debug("Engine: Cached output file is gone.", "page", p.Name, "file", f)
				e.cache.InvalidateMappings()
				return false
			}
		}
		return true
	}
}
