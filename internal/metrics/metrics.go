// Package metrics exposes Prometheus metrics for page builds.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the build metrics and the registry they are registered in.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	pageBuildsTotal   *prometheus.CounterVec
	pageBuildDuration *prometheus.HistogramVec
	cacheLookupsTotal *prometheus.CounterVec
	asyncPackages     prometheus.Counter
	bundlesWritten    *prometheus.CounterVec
	bytesWritten      prometheus.Counter
	cacheFlushErrors  prometheus.Counter
}

// New creates and registers all metrics in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,

		pageBuildsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assetgrid_page_builds_total",
				Help: "Total number of page builds by result",
			},
			[]string{"strategy", "result"},
		),
		pageBuildDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assetgrid_page_build_duration_seconds",
				Help:    "Page build latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"strategy"},
		),
		cacheLookupsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assetgrid_cache_lookups_total",
				Help: "Build cache lookups by cache and outcome",
			},
			[]string{"cache", "outcome"},
		),
		asyncPackages: f.NewCounter(
			prometheus.CounterOpts{
				Name: "assetgrid_async_packages_total",
				Help: "Total number of async packages built",
			},
		),
		bundlesWritten: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assetgrid_bundles_written_total",
				Help: "Total number of bundles emitted by kind",
			},
			[]string{"kind"},
		),
		bytesWritten: f.NewCounter(
			prometheus.CounterOpts{
				Name: "assetgrid_bundle_bytes_written_total",
				Help: "Total bytes written to bundle files",
			},
		),
		cacheFlushErrors: f.NewCounter(
			prometheus.CounterOpts{
				Name: "assetgrid_cache_flush_errors_total",
				Help: "Total number of failed cache flushes",
			},
		),
	}
}

// RecordPageBuild records one finished page build. result is "ok",
// "cached" or "error".
func (m *Metrics) RecordPageBuild(strategy, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.pageBuildsTotal.WithLabelValues(strategy, result).Inc()
	if result != "cached" {
		m.pageBuildDuration.WithLabelValues(strategy).Observe(d.Seconds())
	}
}

// RecordCacheLookup records a hit or miss of the named cache.
func (m *Metrics) RecordCacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookupsTotal.WithLabelValues(cache, outcome).Inc()
}

func (m *Metrics) RecordAsyncPackage() {
	if m == nil {
		return
	}
	m.asyncPackages.Inc()
}

// RecordBundleWritten records an emitted bundle. kind is "file", "inline",
// "external" or "in-place".
func (m *Metrics) RecordBundleWritten(kind string, bytes int) {
	if m == nil {
		return
	}
	m.bundlesWritten.WithLabelValues(kind).Inc()
	if bytes > 0 {
		m.bytesWritten.Add(float64(bytes))
	}
}

func (m *Metrics) RecordFlushError() {
	if m == nil {
		return
	}
	m.cacheFlushErrors.Inc()
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
