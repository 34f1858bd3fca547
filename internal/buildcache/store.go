package buildcache

import (
	"context"
	"fmt"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/inmemorystore"
	"github.com/specialistvlad/assetgrid/internal/redisstore"
)

// Store persists encoded page results.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by NewStore.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// NewStore creates the store for backend:
//   - "memory" (default): in-process, lost on exit;
//   - "redis": shared through a Redis-compatible server at url.
func NewStore(ctx context.Context, backend, url string) (Store, error) {
	logger := ctxlog.FromContext(ctx)
	switch backend {
	case "", BackendMemory:
		logger.Debug("Using in-memory build cache store.")
		return inmemorystore.New(), nil
	case BackendRedis:
		if url == "" {
			return nil, fmt.Errorf("cache url is required for the redis backend")
		}
		logger.Debug("Using Redis build cache store.")
		s, err := redisstore.New(ctx, redisstore.Options{URL: url})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s (valid options: memory, redis)", backend)
	}
}
