// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// key/value store for the build cache.
//
// # Characteristics
//
//   - **Ephemeral:** Entries live as long as the process.
//   - **Thread-Safe:** Uses sync.Map; concurrent page builds read and write
//     independent keys.
//   - **Copying:** Values are copied on the way in and out, so callers may
//     reuse their buffers.
//
// For caches shared between processes use the redisstore package.
package inmemorystore

import (
	"context"
	"strings"
	"sync"
)

// Store keeps cache entries in a sync.Map.
type Store struct {
	entries sync.Map // Key: cache key, Value: []byte
}

// New creates a new, empty store.
func New() *Store {
	return &Store{}
}

// Get returns the value stored under key and whether it was present.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := s.entries.Load(key)
	if !ok {
		return nil, false, nil
	}
	return clone(v.([]byte)), true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	s.entries.Store(key, clone(value))
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.entries.Delete(key)
	return nil
}

// DeletePrefix removes every key starting with prefix.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	s.entries.Range(func(k, _ any) bool {
		if strings.HasPrefix(k.(string), prefix) {
			s.entries.Delete(k)
		}
		return true
	})
	return nil
}

// Len counts the stored entries.
func (s *Store) Len() int {
	n := 0
	s.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close drops every entry.
func (s *Store) Close() error {
	s.entries.Clear()
	return nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
