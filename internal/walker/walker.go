package walker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/flags"
)

// Listener observes a walk.
type Listener interface {
	// OnManifest is called when the walk enters a manifest, before any of
	// its dependencies.
	OnManifest(ctx context.Context, m *dep.Manifest, wc *Context) error
	// OnDependency is called once per visited dependency, packages included.
	OnDependency(ctx context.Context, d dep.Dependency, wc *Context) error
}

// Funcs adapts plain functions to Listener. Nil fields are ignored.
type Funcs struct {
	Manifest   func(ctx context.Context, m *dep.Manifest, wc *Context) error
	Dependency func(ctx context.Context, d dep.Dependency, wc *Context) error
}

func (f Funcs) OnManifest(ctx context.Context, m *dep.Manifest, wc *Context) error {
	if f.Manifest == nil {
		return nil
	}
	return f.Manifest(ctx, m, wc)
}

func (f Funcs) OnDependency(ctx context.Context, d dep.Dependency, wc *Context) error {
	if f.Dependency == nil {
		return nil
	}
	return f.Dependency(ctx, d, wc)
}

// SkipFunc returns true to leave d (and, for packages, everything below it) out.
type SkipFunc func(ctx context.Context, d dep.Dependency, wc *Context) (bool, error)

// Options configure one walk. Exactly one of Manifest, Dependency and
// Dependencies is used, in that order of precedence.
type Options struct {
	Env          *dep.Env
	Flags        *flags.Set
	Manifest     *dep.Manifest
	Dependency   dep.Dependency
	Dependencies []dep.Dependency
	Skip         SkipFunc
	Listener     Listener
	Data         any
}

// ResolutionError reports a failure below a chain of packages.
type ResolutionError struct {
	Chain []string
	Err   error
}

func (e *ResolutionError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("failed to walk dependencies: %v", e.Err)
	}
	return fmt.Sprintf("failed to walk dependency %s: %v", strings.Join(e.Chain, " -> "), e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

type walk struct {
	opts    Options
	visited map[string]struct{}
}

// Walk traverses the graph described by opts.
func Walk(ctx context.Context, opts Options) error {
	if opts.Env == nil {
		return errors.New("walker: no environment configured")
	}
	if opts.Listener == nil {
		opts.Listener = Funcs{}
	}
	ctx = flags.WithSet(ctx, opts.Flags)

	w := &walk{opts: opts, visited: make(map[string]struct{})}
	root := &Context{Data: opts.Data}
	switch {
	case opts.Manifest != nil:
		return w.manifest(ctx, opts.Manifest, root)
	case opts.Dependency != nil:
		return w.dependency(ctx, opts.Dependency, root)
	default:
		return w.list(ctx, opts.Dependencies, root)
	}
}

func (w *walk) manifest(ctx context.Context, m *dep.Manifest, wc *Context) error {
	if err := w.opts.Listener.OnManifest(ctx, m, wc); err != nil {
		return err
	}
	deps, err := m.Dependencies(ctx, w.opts.Env)
	if err != nil {
		return wrap(wc, nil, err)
	}
	return w.list(ctx, deps, wc)
}

func (w *walk) list(ctx context.Context, deps []dep.Dependency, wc *Context) error {
	for _, d := range deps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.dependency(ctx, d, wc); err != nil {
			return err
		}
	}
	return nil
}

func (w *walk) dependency(ctx context.Context, d dep.Dependency, wc *Context) error {
	if err := d.Init(ctx, w.opts.Env); err != nil {
		return wrap(wc, d, err)
	}
	ok, err := d.Props().Condition.Eval(w.opts.Flags)
	if err != nil {
		return wrap(wc, d, err)
	}
	if !ok {
		return nil
	}

	key, err := d.Key(ctx)
	if err != nil {
		return wrap(wc, d, err)
	}
	if _, seen := w.visited[key]; seen {
		return nil
	}
	w.visited[key] = struct{}{}

	if w.opts.Skip != nil {
		skip, err := w.opts.Skip(ctx, d, wc)
		if err != nil {
			return err
		}
		if skip {
			return nil
		}
	}

	if err := w.opts.Listener.OnDependency(ctx, d, wc); err != nil {
		return err
	}
	if !d.IsPackage() {
		return nil
	}

	pkg, ok := d.(dep.Package)
	if !ok {
		return wrap(wc, d, fmt.Errorf("%T claims to be a package but has no manifest", d))
	}
	m, err := pkg.Manifest(ctx)
	if err != nil {
		return wrap(wc, d, err)
	}
	return w.manifest(ctx, m, wc.child(d))
}

// wrap attaches the package chain to err unless an inner walk already did.
func wrap(wc *Context, d dep.Dependency, err error) error {
	var re *ResolutionError
	if errors.As(err, &re) {
		return err
	}
	return &ResolutionError{Chain: wc.Chain(d), Err: err}
}
