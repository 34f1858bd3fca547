package strategy

import (
	"context"

	"github.com/specialistvlad/assetgrid/internal/bundle"
	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/walker"
)

const DefaultName = "default"

// Default reuses application bundles wherever a dependency is already
// mapped and puts everything else into bundles named after the page.
type Default struct{}

func (Default) Name() string { return DefaultName }

func (Default) SyncBundle(ctx context.Context, p *Page, d dep.Dependency, wc *walker.Context) (*bundle.Bundle, error) {
	b, err := syncBundle(ctx, p.Mappings, d, p.Name, wc.SlotFor(d))
	if err != nil {
		return nil, err
	}
	p.MarkSync(b)
	return b, nil
}

func (Default) AsyncBundle(ctx context.Context, p *Page, d dep.Dependency, wc *walker.Context) (*bundle.Bundle, error) {
	return asyncBundle(ctx, p, p.Mappings, d, p.Name+AsyncSuffix, wc.SlotFor(d))
}

// syncBundle returns the bundle d is mapped to in m, first promoting it out
// of an async-only bundle owned by m. Unmapped dependencies join name.
func syncBundle(ctx context.Context, m *bundle.Mappings, d dep.Dependency, name, slot string) (*bundle.Bundle, error) {
	mp, err := m.MappingFor(ctx, d)
	if err != nil {
		return nil, err
	}
	if mp != nil && mp.Bundle.AsyncOnly() && m.Owns(mp) {
		if err := m.Remove(mp); err != nil {
			return nil, err
		}
		mp = nil
	}
	if mp != nil {
		return mp.Bundle, nil
	}
	return m.AddDependencyToPageBundle(ctx, d, name, slot, nil)
}

// asyncBundle returns nil when d already ships in a bundle the page loads
// synchronously.
func asyncBundle(ctx context.Context, p *Page, m *bundle.Mappings, d dep.Dependency, name, slot string) (*bundle.Bundle, error) {
	mp, err := m.MappingFor(ctx, d)
	if err != nil {
		return nil, err
	}
	if mp != nil {
		if p.IsSync(mp.Bundle) {
			return nil, nil
		}
		return mp.Bundle, nil
	}
	b, err := m.AddDependencyToPageBundle(ctx, d, name, slot, nil)
	if err != nil {
		return nil, err
	}
	if !p.IsSync(b) {
		b.SetAsyncOnly(true)
	}
	return b, nil
}
