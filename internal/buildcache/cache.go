// Package buildcache memoizes application bundle mappings and whole page
// results across builds.
package buildcache

import (
	"context"
	"sync"

	"github.com/specialistvlad/assetgrid/internal/bundle"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/flags"
	"github.com/specialistvlad/assetgrid/internal/metrics"
	"github.com/specialistvlad/assetgrid/internal/result"
	"golang.org/x/sync/singleflight"
)

// Flusher releases derived state after a build.
type Flusher interface {
	Flush(ctx context.Context) error
}

// FlusherFunc adapts a function to Flusher.
type FlusherFunc func(ctx context.Context) error

func (f FlusherFunc) Flush(ctx context.Context) error { return f(ctx) }

// Key combines a configuration fingerprint with the flag set key.
func Key(configFingerprint string, set *flags.Set) string {
	return configFingerprint + "|" + set.Key()
}

// Cache is scoped to one configuration. Mappings live in process; page
// results go through the Store.
type Cache struct {
	scope   string
	store   Store
	metrics *metrics.Metrics

	mappings sync.Map // Key: cache key, Value: *bundle.Mappings
	group    singleflight.Group

	mu       sync.Mutex
	flushers []Flusher
}

// New creates a cache for scope. A nil store keeps no page results.
func New(scope string, store Store, m *metrics.Metrics) *Cache {
	return &Cache{scope: scope, store: store, metrics: m}
}

func (c *Cache) Scope() string { return c.scope }

// BundleMappings returns the mappings cached under key, calling build at
// most once per key. Concurrent callers wait for the running build. Failed
// builds are not cached.
func (c *Cache) BundleMappings(ctx context.Context, key string, build func(ctx context.Context) (*bundle.Mappings, error)) (*bundle.Mappings, error) {
	if v, ok := c.mappings.Load(key); ok {
		c.metrics.RecordCacheLookup("mappings", true)
		return v.(*bundle.Mappings), nil
	}

	v, err, shared := c.group.Do("mappings|"+key, func() (any, error) {
		if v, ok := c.mappings.Load(key); ok {
			return v, nil
		}
		c.metrics.RecordCacheLookup("mappings", false)
		m, err := build(ctx)
		if err != nil {
			return nil, err
		}
		c.mappings.Store(key, m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		ctxlog.FromContext(ctx).Debug("Cache: Shared in-flight bundle mapping build.", "key", key)
	}
	return v.(*bundle.Mappings), nil
}

// PageResult returns the page cached under key if validate accepts it, and
// otherwise builds, stores and returns a fresh one. The boolean reports a
// cache hit. Store failures are logged and the page is built anyway.
func (c *Cache) PageResult(ctx context.Context, key string, validate func(*result.Page) bool, build func(ctx context.Context) (*result.Page, error)) (*result.Page, bool, error) {
	storeKey := c.pageKey(key)
	if p := c.lookupPage(ctx, storeKey, validate); p != nil {
		c.metrics.RecordCacheLookup("page", true)
		return p, true, nil
	}

	v, err, _ := c.group.Do(storeKey, func() (any, error) {
		c.metrics.RecordCacheLookup("page", false)
		p, err := build(ctx)
		if err != nil {
			return nil, err
		}
		c.storePage(ctx, storeKey, p)
		return p, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*result.Page), false, nil
}

func (c *Cache) pageKey(key string) string {
	return "page|" + c.scope + "|" + key
}

func (c *Cache) lookupPage(ctx context.Context, storeKey string, validate func(*result.Page) bool) *result.Page {
	if c.store == nil {
		return nil
	}
	logger := ctxlog.FromContext(ctx)
	b, ok, err := c.store.Get(ctx, storeKey)
	if err != nil {
		logger.Warn("Cache: Failed to read page result.", "key", storeKey, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	p, err := result.Decode(b)
	if err != nil {
		logger.Warn("Cache: Dropping undecodable page result.", "key", storeKey, "error", err)
		_ = c.store.Delete(ctx, storeKey)
		return nil
	}
	if validate != nil && !validate(p) {
		logger.Debug("Cache: Page result is stale.", "key", storeKey)
		return nil
	}
	return p
}

func (c *Cache) storePage(ctx context.Context, storeKey string, p *result.Page) {
	if c.store == nil {
		return
	}
	b, err := result.Encode(p)
	if err == nil {
		err = c.store.Set(ctx, storeKey, b)
	}
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Cache: Failed to store page result.", "key", storeKey, "error", err)
	}
}

// InvalidateMappings forgets every cached bundle mapping.
func (c *Cache) InvalidateMappings() {
	c.mappings.Clear()
}

// AddFlusher registers f to run on Flush.
func (c *Cache) AddFlusher(f Flusher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushers = append(c.flushers, f)
}

// Flush runs every registered flusher. Failures are logged and counted but
// never returned.
func (c *Cache) Flush(ctx context.Context) {
	c.mu.Lock()
	flushers := append([]Flusher(nil), c.flushers...)
	c.mu.Unlock()

	logger := ctxlog.FromContext(ctx)
	for _, f := range flushers {
		if err := f.Flush(ctx); err != nil {
			c.metrics.RecordFlushError()
			logger.Warn("Cache: Flush failed.", "error", err)
		}
	}
}

// Close closes the store.
func (c *Cache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}
