package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/assetgrid/internal/buildcache"
	"github.com/specialistvlad/assetgrid/internal/builder"
	"github.com/specialistvlad/assetgrid/internal/bundle"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/flags"
	"github.com/specialistvlad/assetgrid/internal/result"
	"github.com/specialistvlad/assetgrid/internal/scheduler"
	"github.com/specialistvlad/assetgrid/internal/strategy"
	"github.com/specialistvlad/assetgrid/internal/walker"
	"golang.org/x/sync/errgroup"
)

// PageRequest names a page and the dependencies it loads.
type PageRequest struct {
	Name string
	// Manifest is a package descriptor, relative to the project root.
	Manifest string
	// Dependencies are declarations relative to the project root. They are
	// used when Manifest is empty.
	Dependencies []any
	// Flags are added to the configured flags for this build.
	Flags []string
}

func (r PageRequest) source() (string, error) {
	if r.Manifest != "" {
		return "manifest:" + filepath.ToSlash(r.Manifest), nil
	}
	b, err := json.Marshal(r.Dependencies)
	if err != nil {
		return "", fmt.Errorf("page %q: encoding dependencies: %w", r.Name, err)
	}
	return "inline:" + string(b), nil
}

// BuildPage returns the bundles, URLs and markup of one page. Results are
// cached per configuration, flag set and page. A failed build returns no
// result and leaves the page cache untouched.
func (e *Engine) BuildPage(ctx context.Context, req PageRequest) (*result.Page, error) {
	if req.Name == "" {
		return nil, dep.ConfigErrorf("page name is required")
	}
	src, err := req.source()
	if err != nil {
		return nil, err
	}

	buildID := uuid.NewString()
	ctx = ctxlog.With(ctx, "build_id", buildID, "page", req.Name)
	logger := ctxlog.FromContext(ctx)

	names := append(append([]string(nil), e.cfg.Flags...), req.Flags...)
	set := flags.New(names...)
	ctx = flags.WithSet(ctx, set)
	// Flushed after failed and cached builds too, so no loaded descriptor or
	// file hash outlives the build that read it.
	defer e.cache.Flush(ctx)

	start := time.Now()
	logger.Info("Engine: Building page.", "flags", set.String(), "strategy", e.strategy.Name())

	key := buildcache.Key(e.fingerprint, set) + "|" + req.Name + "|" + src
	page, cached, err := e.cache.PageResult(ctx, key, e.validate(ctx), func(ctx context.Context) (*result.Page, error) {
		return e.build(ctx, req, set, buildID)
	})
	if err != nil {
		e.metrics.RecordPageBuild(e.strategy.Name(), "error", time.Since(start))
		logger.Error("Engine: Page build failed.", "error", err)
		return nil, err
	}

	outcome := "ok"
	if cached {
		outcome = "cached"
	}
	e.metrics.RecordPageBuild(e.strategy.Name(), outcome, time.Since(start))
	logger.Info("Engine: Page ready.", "cached", cached, "bundles", len(page.Bundles), "async", len(page.Async), "duration", time.Since(start))

	if err := e.notifier.Notify(ctx, page, cached); err != nil {
		logger.Warn("Engine: Failed to notify listeners.", "error", err)
	}
	return page, nil
}

// pageBuild is the mutable state of one uncached page build.
type pageBuild struct {
	e       *Engine
	page    *strategy.Page
	set     *flags.Set
	buildID string
	sched   *scheduler.Scheduler

	mu        sync.Mutex
	syncOrder []*bundle.Bundle
	syncSeen  map[*bundle.Bundle]struct{}
	async     map[string][]*bundle.Bundle
	manifests map[string]struct{}
}

func (e *Engine) build(ctx context.Context, req PageRequest, set *flags.Set, buildID string) (*result.Page, error) {
	logger := ctxlog.FromContext(ctx)

	app, err := e.appMappings(ctx, set)
	if err != nil {
		return nil, err
	}

	root, err := e.rootManifest(ctx, req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pb := &pageBuild{
		e:         e,
		page:      strategy.NewPage(req.Name, app, e.bundleOpts),
		set:       set,
		buildID:   buildID,
		syncSeen:  make(map[*bundle.Bundle]struct{}),
		async:     make(map[string][]*bundle.Bundle),
		manifests: make(map[string]struct{}),
	}
	pb.sched = scheduler.New(ctx, e.cfg.Workers, pb.runAsync)

	logger.Debug("Engine: Walking page dependencies.", "manifest", root.String())
	err = walker.Walk(ctx, walker.Options{
		Env:      e.env,
		Flags:    set,
		Manifest: root,
		Listener: walker.Funcs{Manifest: pb.enterManifest, Dependency: pb.placeSync},
	})
	if err != nil {
		return nil, fmt.Errorf("page %q: %w", req.Name, err)
	}

	pb.sched.Start()
	if err := pb.sched.Wait(); err != nil {
		return nil, fmt.Errorf("page %q: %w", req.Name, err)
	}
	logger.Debug("Engine: Async packages placed.", "async", len(pb.sched.Names()))

	syncBundles, asyncBundles := pb.bundles()
	if err := e.writeAll(ctx, append(append([]*bundle.Bundle(nil), syncBundles...), asyncBundles...)); err != nil {
		return nil, fmt.Errorf("page %q: %w", req.Name, err)
	}
	return pb.assemble(ctx, syncBundles, asyncBundles)
}

// appMappings returns the cached application bundles for set. They are
// rebuilt when a bundle was written from sources that have since changed.
func (e *Engine) appMappings(ctx context.Context, set *flags.Set) (*bundle.Mappings, error) {
	key := buildcache.Key(e.fingerprint, set)
	build := func(ctx context.Context) (*bundle.Mappings, error) {
		return builder.New(e.env, e.bundleOpts).Build(ctx, set, e.cfg.Bundles)
	}
	app, err := e.cache.BundleMappings(ctx, key, build)
	if err != nil {
		return nil, err
	}
	for _, b := range app.Bundles() {
		if b.Written() && !e.fingerprints.Matches(b.Sources()) {
			ctxlog.FromContext(ctx).Debug("Engine: Application bundle sources changed.", "bundle", b.Key())
			e.cache.InvalidateMappings()
			return e.cache.BundleMappings(ctx, key, build)
		}
	}
	return app, nil
}

func (e *Engine) rootManifest(ctx context.Context, req PageRequest) (*dep.Manifest, error) {
	if req.Manifest == "" {
		return dep.NewManifest(e.env.ProjectRoot, "", req.Dependencies, nil), nil
	}
	p := req.Manifest
	if !filepath.IsAbs(p) {
		p = filepath.Join(e.env.ProjectRoot, p)
	}
	m, err := e.loader.LoadManifest(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("page %q: %w", req.Name, err)
	}
	return m, nil
}

// enterManifest queues the async blocks of every manifest the walk enters.
func (pb *pageBuild) enterManifest(ctx context.Context, m *dep.Manifest, wc *walker.Context) error {
	if m.Filename() != "" {
		pb.mu.Lock()
		pb.manifests[filepath.Join(m.Dir(), m.Filename())] = struct{}{}
		pb.mu.Unlock()
	}
	pb.sched.EnqueueAsync(m)
	return nil
}

func (pb *pageBuild) placeSync(ctx context.Context, d dep.Dependency, wc *walker.Context) error {
	if !dep.IsBundleable(d) {
		return nil
	}
	b, err := pb.e.strategy.SyncBundle(ctx, pb.page, d, wc)
	if err != nil {
		return fmt.Errorf("placing %s: %w", d, err)
	}
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if _, ok := pb.syncSeen[b]; !ok {
		pb.syncSeen[b] = struct{}{}
		pb.syncOrder = append(pb.syncOrder, b)
	}
	return nil
}

// runAsync walks one async block. Leaves that already ship synchronously are
// left where they are.
func (pb *pageBuild) runAsync(ctx context.Context, t scheduler.Task) error {
	e := pb.e
	decls, _ := t.Manifest.Async(t.Name)
	deps, err := e.registry.NormalizeDependencies(ctx, e.env, decls, t.Manifest.Dir(), t.Manifest.Filename())
	if err != nil {
		return err
	}

	place := func(ctx context.Context, d dep.Dependency, wc *walker.Context) error {
		if !dep.IsBundleable(d) {
			return nil
		}
		b, err := e.strategy.AsyncBundle(ctx, pb.page, d, wc)
		if err != nil {
			return fmt.Errorf("placing %s: %w", d, err)
		}
		if b != nil {
			pb.addAsync(t.Name, b)
		}
		return nil
	}

	err = walker.Walk(ctx, walker.Options{
		Env:          e.env,
		Flags:        pb.set,
		Dependencies: deps,
		Listener:     walker.Funcs{Manifest: pb.enterManifest, Dependency: place},
	})
	if err != nil {
		return err
	}
	e.metrics.RecordAsyncPackage()
	ctxlog.FromContext(ctx).Debug("Engine: Async package placed.", "async_package", t.Name, "roots", len(deps))
	return nil
}

func (pb *pageBuild) addAsync(name string, b *bundle.Bundle) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	for _, have := range pb.async[name] {
		if have == b {
			return
		}
	}
	pb.async[name] = append(pb.async[name], b)
}

// bundles returns the non-empty synchronous bundles in page order and the
// bundles only async packages load, in discovery order.
func (pb *pageBuild) bundles() (syncBundles, asyncBundles []*bundle.Bundle) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	for _, b := range pb.syncOrder {
		if b.HasContent() {
			syncBundles = append(syncBundles, b)
		}
	}
	seen := make(map[*bundle.Bundle]struct{})
	for _, name := range pb.sched.Names() {
		for _, b := range pb.async[name] {
			if _, ok := seen[b]; ok || pb.page.IsSync(b) || !b.HasContent() {
				continue
			}
			seen[b] = struct{}{}
			asyncBundles = append(asyncBundles, b)
		}
	}
	return syncBundles, asyncBundles
}

func (e *Engine) writeAll(ctx context.Context, bundles []*bundle.Bundle) error {
	workers := e.cfg.Workers
	if workers <= 0 {
		workers = scheduler.DefaultWorkers
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, b := range bundles {
		g.Go(func() error {
			if b.Written() {
				return nil
			}
			// Hashed before writing so a concurrent edit reads as stale later.
			sums, err := e.fingerprints.Files(b.SourcePaths())
			if err != nil {
				return fmt.Errorf("fingerprinting bundle %s: %w", b, err)
			}
			if err := e.writer.Write(ctx, b); err != nil {
				return fmt.Errorf("writing bundle %s: %w", b, err)
			}
			b.RecordSources(sums)
			return nil
		})
	}
	return g.Wait()
}
