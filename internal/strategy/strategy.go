// Package strategy decides which bundle a leaf reached from a page lands in.
package strategy

import (
	"context"
	"sort"
	"sync"

	"github.com/specialistvlad/assetgrid/internal/bundle"
	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/walker"
)

// AsyncSuffix is appended to a page name to name its async bundles.
const AsyncSuffix = "-async"

// Strategy places page dependencies into bundles. A nil bundle from
// AsyncBundle means the dependency already ships synchronously.
type Strategy interface {
	Name() string
	SyncBundle(ctx context.Context, p *Page, d dep.Dependency, wc *walker.Context) (*bundle.Bundle, error)
	AsyncBundle(ctx context.Context, p *Page, d dep.Dependency, wc *walker.Context) (*bundle.Bundle, error)
}

// Page is the state of one page build: the shared application mappings, the
// page's own mappings layered over them, and the bundles the page loads
// synchronously.
type Page struct {
	Name     string
	App      *bundle.Mappings
	Mappings *bundle.Mappings

	mu   sync.Mutex
	sync map[*bundle.Bundle]struct{}
	// local holds mappings private to the lean strategy.
	local *bundle.Mappings
}

// NewPage layers a fresh page scope over app.
func NewPage(name string, app *bundle.Mappings, opts bundle.Options) *Page {
	return &Page{
		Name:     name,
		App:      app,
		Mappings: bundle.New(app, opts),
		sync:     make(map[*bundle.Bundle]struct{}),
	}
}

// MarkSync records that the page loads b synchronously.
func (p *Page) MarkSync(b *bundle.Bundle) {
	if b == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sync[b] = struct{}{}
}

func (p *Page) IsSync(b *bundle.Bundle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.sync[b]
	return ok
}

// SyncBundles returns the synchronously loaded bundles ordered by key.
func (p *Page) SyncBundles() []*bundle.Bundle {
	p.mu.Lock()
	out := make([]*bundle.Bundle, 0, len(p.sync))
	for b := range p.sync {
		out = append(out, b)
	}
	p.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Scope returns the mappings a strategy writes page bundles to.
func (p *Page) Scope() *bundle.Mappings {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.local != nil {
		return p.local
	}
	return p.Mappings
}

func (p *Page) leanScope() *bundle.Mappings {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.local == nil {
		p.local = bundle.New(nil, p.Mappings.Options())
	}
	return p.local
}

// New returns the strategy registered under name. An empty name selects the
// default strategy.
func New(name string) (Strategy, error) {
	switch name {
	case "", DefaultName:
		return Default{}, nil
	case LeanName:
		return Lean{}, nil
	}
	return nil, dep.ConfigErrorf("invalid bundling strategy %q: expected %s or %s", name, DefaultName, LeanName)
}
