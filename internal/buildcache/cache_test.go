package buildcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/specialistvlad/assetgrid/internal/bundle"
	"github.com/specialistvlad/assetgrid/internal/flags"
	"github.com/specialistvlad/assetgrid/internal/inmemorystore"
	"github.com/specialistvlad/assetgrid/internal/metrics"
	"github.com/specialistvlad/assetgrid/internal/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "abc|debug,mobile", Key("abc", flags.New("mobile", "debug")))
	assert.Equal(t, Key("abc", flags.New("a", "b")), Key("abc", flags.New("b", "a")))
	assert.NotEqual(t, Key("abc", flags.New("a")), Key("abd", flags.New("a")))
}

func TestBundleMappings_BuildsOncePerKey(t *testing.T) {
	c := New("test", nil, metrics.New())
	ctx := context.Background()
	var calls atomic.Int32
	release := make(chan struct{})

	build := func(ctx context.Context) (*bundle.Mappings, error) {
		calls.Add(1)
		<-release
		return bundle.New(nil, bundle.Options{Bundling: true}), nil
	}

	var wg sync.WaitGroup
	results := make([]*bundle.Mappings, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := c.BundleMappings(ctx, "k", build)
			assert.NoError(t, err)
			results[i] = m
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	m, err := c.BundleMappings(ctx, "k", build)
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
	for _, r := range results {
		assert.Same(t, m, r)
	}
}

func TestBundleMappings_FailuresAreNotCached(t *testing.T) {
	c := New("test", nil, nil)
	ctx := context.Background()
	boom := errors.New("boom")
	var calls int

	build := func(ctx context.Context) (*bundle.Mappings, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return bundle.New(nil, bundle.Options{}), nil
	}

	_, err := c.BundleMappings(ctx, "k", build)
	assert.ErrorIs(t, err, boom)
	m, err := c.BundleMappings(ctx, "k", build)
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Equal(t, 2, calls)

	c.InvalidateMappings()
	_, err = c.BundleMappings(ctx, "k", build)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPageResult(t *testing.T) {
	store := inmemorystore.New()
	c := New("test", store, nil)
	ctx := context.Background()
	var calls int
	valid := true

	build := func(ctx context.Context) (*result.Page, error) {
		calls++
		return &result.Page{Name: "home", Fingerprints: map[string]string{"/a.js": "1"}}, nil
	}
	validate := func(p *result.Page) bool { return valid }

	p, hit, err := c.PageResult(ctx, "k", validate, build)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "home", p.Name)

	p, hit, err = c.PageResult(ctx, "k", validate, build)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, map[string]string{"/a.js": "1"}, p.Fingerprints)
	assert.Equal(t, 1, calls)

	valid = false
	_, hit, err = c.PageResult(ctx, "k", validate, build)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)
}

func TestPageResult_FailedBuildIsNotStored(t *testing.T) {
	store := inmemorystore.New()
	c := New("test", store, nil)
	boom := errors.New("boom")

	_, _, err := c.PageResult(context.Background(), "k", nil, func(ctx context.Context) (*result.Page, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, store.Len())
}

func TestPageResult_DropsUndecodableEntries(t *testing.T) {
	store := inmemorystore.New()
	c := New("test", store, nil)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, c.pageKey("k"), []byte("{not json")))

	p, hit, err := c.PageResult(ctx, "k", nil, func(ctx context.Context) (*result.Page, error) {
		return &result.Page{Name: "fresh"}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "fresh", p.Name)
}

func TestFlush_IgnoresFailures(t *testing.T) {
	c := New("test", nil, metrics.New())
	var flushed atomic.Int32
	c.AddFlusher(FlusherFunc(func(ctx context.Context) error {
		return errors.New("cache directory missing")
	}))
	c.AddFlusher(FlusherFunc(func(ctx context.Context) error {
		flushed.Add(1)
		return nil
	}))

	assert.NotPanics(t, func() { c.Flush(context.Background()) })
	assert.EqualValues(t, 1, flushed.Load())
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	s, err := NewStore(ctx, "", "")
	require.NoError(t, err)
	assert.IsType(t, &inmemorystore.Store{}, s)

	_, err = NewStore(ctx, BackendRedis, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache url is required")

	_, err = NewStore(ctx, "memcached", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid options: memory, redis")
}
