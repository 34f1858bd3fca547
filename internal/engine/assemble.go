package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/assetgrid/internal/bundle"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/result"
)

// assemble turns the written bundles into a page result.
func (pb *pageBuild) assemble(ctx context.Context, syncBundles, asyncBundles []*bundle.Bundle) (*result.Page, error) {
	p := &result.Page{
		BuildID: pb.buildID,
		Name:    pb.page.Name,
		URLs:    make(map[string][]string),
		Files:   []string{},
	}

	files := make(map[string]struct{})
	addFile := func(b *bundle.Bundle) {
		f := b.OutputFile()
		if f == "" || b.InPlace {
			return
		}
		if _, ok := files[f]; ok {
			return
		}
		files[f] = struct{}{}
		p.Files = append(p.Files, f)
	}

	for _, b := range syncBundles {
		p.Bundles = append(p.Bundles, pb.describe(b, false))
		if b.URL() != "" && !b.IsInline() {
			ct := string(b.ContentType)
			p.URLs[ct] = append(p.URLs[ct], b.URL())
		}
		addFile(b)
	}
	for _, b := range asyncBundles {
		p.AsyncBundles = append(p.AsyncBundles, pb.describe(b, true))
		addFile(b)
	}
	p.Slots = result.RenderSlots(p.Bundles)
	p.Async = pb.asyncEntries()

	fps, err := pb.fingerprints(append(append([]*bundle.Bundle(nil), syncBundles...), asyncBundles...))
	if err != nil {
		return nil, err
	}
	p.Fingerprints = fps

	ctxlog.FromContext(ctx).Debug("Engine: Page result assembled.", "bundles", len(p.Bundles), "async_bundles", len(p.AsyncBundles), "files", len(p.Files))
	return p, nil
}

// asyncEntries lists, per async package, the URLs to fetch before it runs.
// Packages that only reuse synchronous bundles get an empty entry.
func (pb *pageBuild) asyncEntries() map[string]result.AsyncEntry {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	names := pb.sched.Names()
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]result.AsyncEntry, len(names))
	for _, name := range names {
		var entry result.AsyncEntry
		seen := make(map[string]struct{})
		for _, b := range pb.async[name] {
			url := b.URL()
			if url == "" || b.IsInline() || pb.page.IsSync(b) {
				continue
			}
			if _, ok := seen[url]; ok {
				continue
			}
			seen[url] = struct{}{}
			switch b.ContentType {
			case dep.ContentJS:
				entry.JS = append(entry.JS, url)
			case dep.ContentCSS:
				entry.CSS = append(entry.CSS, url)
			}
		}
		out[name] = entry
	}
	return out
}

func (pb *pageBuild) describe(b *bundle.Bundle, async bool) result.Bundle {
	members := b.Dependencies()
	names := make([]string, 0, len(members))
	for _, d := range members {
		names = append(names, pb.memberName(d))
	}
	return result.Bundle{
		Name:         b.Name,
		ContentType:  string(b.ContentType),
		Slot:         b.Slot,
		Inline:       string(b.Inline),
		MergeInline:  b.MergeInline,
		URL:          b.URL(),
		File:         b.OutputFile(),
		Code:         b.InlineCode(),
		Dependencies: names,
		External:     b.External,
		InPlace:      b.InPlace,
		Async:        async,
	}
}

func (pb *pageBuild) memberName(d dep.Dependency) string {
	if src := dep.SourcePath(d); src != "" {
		if rel, err := filepath.Rel(pb.e.env.ProjectRoot, src); err == nil {
			return filepath.ToSlash(rel)
		}
		return src
	}
	if e, ok := d.(dep.External); ok && e.URL() != "" {
		return e.URL()
	}
	return d.String()
}

// fingerprints hashes every local source and descriptor the page was built
// from.
func (pb *pageBuild) fingerprints(bundles []*bundle.Bundle) (map[string]string, error) {
	paths := make(map[string]struct{})
	for _, b := range bundles {
		for _, src := range b.SourcePaths() {
			paths[src] = struct{}{}
		}
	}
	pb.mu.Lock()
	for m := range pb.manifests {
		paths[m] = struct{}{}
	}
	pb.mu.Unlock()

	list := make([]string, 0, len(paths))
	for p := range paths {
		list = append(list, p)
	}
	sort.Strings(list)
	fps, err := pb.e.fingerprints.Files(list)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting sources: %w", err)
	}
	return fps, nil
}
