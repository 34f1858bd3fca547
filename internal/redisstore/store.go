// Package redisstore implements the build cache store on Redis (or a
// Redis-compatible server such as Dragonfly or Valkey), so page results
// survive restarts and are shared between processes.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "assetgrid:"

// Options configure a Store.
type Options struct {
	// URL has the form redis://[user:password@]host:port[/db].
	URL    string
	Prefix string
	// TTL expires entries; zero keeps them until deleted.
	TTL         time.Duration
	DialTimeout time.Duration
}

// Store keeps cache entries in Redis.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New connects to the server at opts.URL and pings it.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.URL == "" {
		return nil, errors.New("redis url is required")
	}
	ropts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ropts.DialTimeout = timeout

	client := redis.NewClient(ropts)
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", ropts.Addr, err)
	}
	ctxlog.FromContext(ctx).Debug("Connected to Redis-compatible cache backend.", "addr", ropts.Addr)
	return NewWithClient(client, opts.Prefix, opts.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(k string) string { return s.prefix + k }

// Get returns the value stored under key and whether it was present.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.key(key), value, s.ttl).Err()
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// DeletePrefix removes every key starting with prefix, scanning in batches.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	iter := s.client.Scan(ctx, 0, s.key(prefix)+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.client.Del(ctx, batch...).Err()
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
