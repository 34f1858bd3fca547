package strategy

import (
	"context"

	"github.com/specialistvlad/assetgrid/internal/bundle"
	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/walker"
)

const LeanName = "lean"

// Lean builds page-private bundles holding only what the page uses. A
// dependency that belongs to an application bundle goes into a private
// bundle of the same name, so pages using the same subset still produce
// identical output.
type Lean struct{}

func (Lean) Name() string { return LeanName }

func (Lean) SyncBundle(ctx context.Context, p *Page, d dep.Dependency, wc *walker.Context) (*bundle.Bundle, error) {
	name, err := leanName(ctx, p, d, p.Name, "")
	if err != nil {
		return nil, err
	}
	b, err := syncBundle(ctx, p.leanScope(), d, name, wc.SlotFor(d))
	if err != nil {
		return nil, err
	}
	p.MarkSync(b)
	return b, nil
}

func (Lean) AsyncBundle(ctx context.Context, p *Page, d dep.Dependency, wc *walker.Context) (*bundle.Bundle, error) {
	name, err := leanName(ctx, p, d, p.Name, AsyncSuffix)
	if err != nil {
		return nil, err
	}
	return asyncBundle(ctx, p, p.leanScope(), d, name, wc.SlotFor(d))
}

// leanName picks the application bundle name that holds d, or fallback.
func leanName(ctx context.Context, p *Page, d dep.Dependency, fallback, suffix string) (string, error) {
	if p.App != nil {
		mp, err := p.App.MappingFor(ctx, d)
		if err != nil {
			return "", err
		}
		if mp != nil {
			return mp.Bundle.Name + suffix, nil
		}
	}
	return fallback + suffix, nil
}
