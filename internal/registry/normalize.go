package registry

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/fsutil"
)

// maxExpansionDepth bounds how many times a declaration may be replaced by
// the output of a normalizer before normalization gives up.
const maxExpansionDepth = 32

// NormalizeContext describes where the declarations being normalized come from.
type NormalizeContext struct {
	Env      *dep.Env
	Dir      string
	File     string
	Registry *Registry
}

// Result is the outcome of one normalizer call. The zero value means the
// normalizer did not handle the declaration.
type Result struct {
	Dependency dep.Dependency
	Replace    []any
	Replaced   bool
}

// Replace splices items in place of the declaration. An empty call removes it.
func Replace(items ...any) Result {
	return Result{Replace: items, Replaced: true}
}

// Created hands back a finished node.
func Created(d dep.Dependency) Result {
	return Result{Dependency: d}
}

// NormalizeFunc inspects one raw declaration.
type NormalizeFunc func(ctx context.Context, raw any, nc *NormalizeContext) (Result, error)

// NormalizeDependencies converts raw declarations into typed nodes, keeping
// their declared order.
func (r *Registry) NormalizeDependencies(ctx context.Context, env *dep.Env, decls []any, dir, file string) ([]dep.Dependency, error) {
	r.mu.RLock()
	chain := make([]NormalizeFunc, 0, len(r.normalizers)+2)
	chain = append(chain, r.normalizeGlob)
	chain = append(chain, r.normalizers...)
	chain = append(chain, r.normalizeShorthand)
	r.mu.RUnlock()

	nc := &NormalizeContext{Env: env, Dir: dir, File: file, Registry: r}
	queue := append([]any(nil), decls...)
	depth := make([]int, len(queue))
	out := make([]dep.Dependency, 0, len(queue))

	for i := 0; i < len(queue); {
		if d, ok := queue[i].(dep.Dependency); ok {
			if err := d.Init(ctx, env); err != nil {
				return nil, fmt.Errorf("initializing %s: %w", d, err)
			}
			out = append(out, d)
			i++
			continue
		}

		handled := false
		for _, fn := range chain {
			res, err := fn(ctx, queue[i], nc)
			if err != nil {
				return nil, err
			}
			if res.Dependency != nil {
				queue[i] = res.Dependency
				handled = true
				break
			}
			if res.Replaced {
				if depth[i] >= maxExpansionDepth {
					return nil, dep.ConfigErrorf("declaration %v expanded more than %d times", queue[i], maxExpansionDepth)
				}
				queue, depth = splice(queue, depth, i, res.Replace)
				handled = true
				break
			}
		}
		if !handled {
			return nil, dep.ConfigErrorf("no normalizer handled declaration %v", queue[i])
		}
	}
	return out, nil
}

func splice(queue []any, depth []int, i int, items []any) ([]any, []int) {
	d := depth[i] + 1
	nq := make([]any, 0, len(queue)-1+len(items))
	nd := make([]int, 0, cap(nq))
	nq = append(nq, queue[:i]...)
	nd = append(nd, depth[:i]...)
	for _, item := range items {
		nq = append(nq, item)
		nd = append(nd, d)
	}
	nq = append(nq, queue[i+1:]...)
	nd = append(nd, depth[i+1:]...)
	return nq, nd
}

// splitTypePrefix separates "require: jquery" into its tag and value when
// the prefix names a registered type.
func (r *Registry) splitTypePrefix(s string) (string, string, bool) {
	if dep.IsURL(s) {
		return "", s, false
	}
	i := strings.Index(s, ":")
	if i <= 0 {
		return "", s, false
	}
	tag := strings.TrimSpace(s[:i])
	if _, ok := r.Lookup(tag); !ok {
		return "", s, false
	}
	return tag, strings.TrimSpace(s[i+1:]), true
}

// inferType picks a type for a path or URL from its extension.
func (r *Registry) inferType(p string) (string, bool) {
	if dep.IsURL(p) {
		if i := strings.IndexAny(p, "?#"); i >= 0 {
			p = p[:i]
		}
		return r.TypeForExtension(path.Ext(p))
	}
	return r.TypeForExtension(filepath.Ext(p))
}

// normalizeGlob expands wildcard paths into one declaration per match.
func (r *Registry) normalizeGlob(ctx context.Context, raw any, nc *NormalizeContext) (Result, error) {
	var (
		tag     string
		pattern string
		base    map[string]any
	)
	switch v := raw.(type) {
	case string:
		tag, pattern, _ = r.splitTypePrefix(strings.TrimSpace(v))
	case map[string]any:
		p, ok := v["path"].(string)
		if !ok {
			return Result{}, nil
		}
		tag, _ = v["type"].(string)
		pattern, base = p, v
	default:
		return Result{}, nil
	}
	if !fsutil.HasMeta(pattern) || dep.IsURL(pattern) {
		return Result{}, nil
	}

	abs := pattern
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(nc.Dir, pattern)
	}
	matches, err := fsutil.Glob(abs)
	if err != nil {
		return Result{}, dep.ConfigErrorf("%v", err)
	}

	logger := ctxlog.FromContext(ctx)
	items := make([]any, 0, len(matches))
	for _, m := range matches {
		t := tag
		if t == "" {
			inferred, ok := r.inferType(m)
			if !ok {
				logger.Debug("Skipping glob match with no known type.", "pattern", pattern, "match", m)
				continue
			}
			t = inferred
		}
		decl := dep.Declaration{}
		for k, v := range base {
			decl[k] = v
		}
		decl["type"] = t
		decl["path"] = m
		items = append(items, decl)
	}
	logger.Debug("Glob expanded.", "pattern", pattern, "matches", len(items))
	return Replace(items...), nil
}

// normalizeShorthand is the last normalizer in the chain. It turns strings
// and maps into declarations with an explicit type and creates the node.
func (r *Registry) normalizeShorthand(ctx context.Context, raw any, nc *NormalizeContext) (Result, error) {
	switch v := raw.(type) {
	case string:
		decl, err := r.declarationFromString(v)
		if err != nil {
			return Result{}, err
		}
		return Replace(decl), nil
	case dep.Declaration:
		return r.createFromMap(ctx, v, nc)
	case map[string]any:
		return r.createFromMap(ctx, dep.Declaration(v), nc)
	default:
		return Result{}, dep.ConfigErrorf("unsupported dependency declaration %v (%T)", raw, raw)
	}
}

func (r *Registry) declarationFromString(s string) (dep.Declaration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, dep.ConfigErrorf("empty dependency declaration")
	}
	if tag, value, ok := r.splitTypePrefix(s); ok {
		return pathOrURL(tag, value), nil
	}
	tag, ok := r.inferType(s)
	if !ok {
		return nil, dep.ConfigErrorf("cannot infer dependency type of %q (registered types: %s)", s, strings.Join(r.Types(), ", "))
	}
	return pathOrURL(tag, s), nil
}

func pathOrURL(tag, value string) dep.Declaration {
	if dep.IsURL(value) {
		return dep.Declaration{"type": tag, "url": value}
	}
	return dep.Declaration{"type": tag, "path": value}
}

func (r *Registry) createFromMap(ctx context.Context, decl dep.Declaration, nc *NormalizeContext) (Result, error) {
	if _, ok := decl["type"]; !ok {
		expanded, err := r.inferDeclarationType(decl)
		if err != nil {
			return Result{}, err
		}
		decl = expanded
	}
	d, err := r.CreateDependency(ctx, nc.Env, decl, nc.Dir, nc.File)
	if err != nil {
		return Result{}, err
	}
	return Created(d), nil
}

// inferDeclarationType handles {"js": "a.js"} and {"path": "a.css"} forms.
func (r *Registry) inferDeclarationType(decl dep.Declaration) (dep.Declaration, error) {
	out := make(dep.Declaration, len(decl)+1)
	for k, v := range decl {
		out[k] = v
	}
	for _, tag := range r.Types() {
		v, ok := decl[tag]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, dep.ConfigErrorf("shorthand %q must name a path, got %T", tag, v)
		}
		delete(out, tag)
		for k, val := range pathOrURL(tag, s) {
			out[k] = val
		}
		return out, nil
	}
	for _, key := range []string{"path", "url"} {
		if s, ok := decl[key].(string); ok && s != "" {
			tag, found := r.inferType(s)
			if !found {
				return nil, dep.ConfigErrorf("cannot infer dependency type of %q (registered types: %s)", s, strings.Join(r.Types(), ", "))
			}
			out["type"] = tag
			return out, nil
		}
	}
	return nil, &UnknownTypeError{Known: r.Types()}
}
