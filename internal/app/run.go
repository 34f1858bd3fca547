package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/engine"
	"github.com/specialistvlad/assetgrid/internal/result"
	"golang.org/x/sync/errgroup"
)

// Run builds every configured page and writes the results.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()

	pages, err := a.BuildPages(ctx)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	if err := a.writeResults(pages); err != nil {
		return err
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// BuildPages builds the configured pages concurrently and returns their
// results in configuration order.
func (a *App) BuildPages(ctx context.Context) ([]*result.Page, error) {
	a.logger.Info("🚀 Building pages...", "pages", len(a.config.Pages), "strategy", a.engine.Strategy())

	pages := make([]*result.Page, len(a.config.Pages))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.model.Workers, 1))
	for i, spec := range a.config.Pages {
		g.Go(func() error {
			p, err := a.engine.BuildPage(ctx, engine.PageRequest{
				Name:     spec.Name,
				Manifest: spec.Manifest,
				Flags:    a.config.Flags,
			})
			if err != nil {
				return err
			}
			pages[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.logger.Info("🏁 Pages built.", "pages", len(pages))
	return pages, nil
}

func (a *App) writeResults(pages []*result.Page) error {
	if a.config.ResultPath == "" || a.config.ResultPath == "-" {
		return a.encodeResults(a.outW, pages)
	}
	f, err := os.Create(a.config.ResultPath)
	if err != nil {
		return fmt.Errorf("failed to create result file: %w", err)
	}
	return a.writeResultFile(f, pages)
}

// writeResultFile encodes pages into wc and closes it. A failed close is
// reported, since buffered data may not have reached the file.
func (a *App) writeResultFile(wc io.WriteCloser, pages []*result.Page) error {
	err := a.encodeResults(wc, pages)
	if cerr := wc.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("failed to close result file: %w", cerr))
	}
	return err
}

func (a *App) encodeResults(w io.Writer, pages []*result.Page) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pages); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	a.logger.Debug("Results written.", "path", a.config.ResultPath)
	return nil
}
