package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/engine"
	"github.com/specialistvlad/assetgrid/internal/metrics"
	"github.com/specialistvlad/assetgrid/internal/notify"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/modules"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	ctx        context.Context
	config     *Config
	model      *config.Config
	registry   *registry.Registry
	metrics    *metrics.Metrics
	engine     *engine.Engine
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger, registry
// and metrics.
func NewApp(ctx context.Context, outW io.Writer, appConfig *Config, loader config.Loader, mods ...registry.Module) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	// Load all configuration into the format-agnostic model first.
	model, err := loader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if appConfig.WorkerCount > 0 {
		model.Workers = appConfig.WorkerCount
	}
	if appConfig.HealthcheckPort > 0 {
		model.HealthcheckPort = appConfig.HealthcheckPort
	}
	logger.Debug("Configuration loaded and translated into unified model.", "project_root", model.ProjectRoot, "bundles", len(model.Bundles))

	if len(mods) == 0 {
		if mods, err = modules.ByName(model.Plugins); err != nil {
			return nil, err
		}
	}
	reg := registry.New()
	if err := reg.Load(ctx, mods...); err != nil {
		return nil, fmt.Errorf("failed to register modules: %w", err)
	}
	logger.Debug("All Go modules registered.", "count", len(mods), "types", reg.Types())

	m := metrics.New()
	eng, err := engine.New(ctx, engine.Options{
		Config:   model,
		Registry: reg,
		Notifier: newNotifier(ctx, model.Notify),
		Metrics:  m,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		outW:     outW,
		logger:   logger,
		ctx:      ctx,
		config:   appConfig,
		model:    model,
		registry: reg,
		metrics:  m,
		engine:   eng,
	}, nil
}

// newNotifier connects to the configured live-reload hub. Notifications
// are best-effort, so a hub that cannot be reached disables them.
func newNotifier(ctx context.Context, cfg config.Notify) notify.Notifier {
	logger := ctxlog.FromContext(ctx)
	if cfg.URL == "" {
		logger.Debug("Build notifications disabled.")
		return notify.Noop{}
	}
	n, err := notify.DialSocketIO(ctx, notify.SocketIOOptions{
		URL:                cfg.URL,
		Namespace:          cfg.Namespace,
		Event:              cfg.Event,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err != nil {
		logger.Warn("Build notifier unavailable, continuing without notifications.", "url", cfg.URL, "error", err)
		return notify.Noop{}
	}
	return n
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Metrics returns the application's metrics.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Close stops the health check server and releases the engine.
func (a *App) Close() error {
	if err := a.closeHealthCheckServer(); err != nil {
		return err
	}
	return a.engine.Close()
}
