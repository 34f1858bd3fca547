// Package fingerprint hashes file contents, caching each hash until the
// file's modification time or size changes.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"
)

type entry struct {
	modTime time.Time
	size    int64
	sum     string
}

// Cache maps file paths to sha256 content hashes.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
}

func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

// File returns the hex sha256 of the file at path.
func (c *Cache) File(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}

	c.mu.Lock()
	e, ok := c.entries[path]
	c.mu.Unlock()
	if ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		return e.sum, nil
	}

	sum, err := hashFile(path)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.entries[path] = entry{modTime: info.ModTime(), size: info.Size(), sum: sum}
	c.mu.Unlock()
	return sum, nil
}

// Files hashes every path. A missing file is reported as an error.
func (c *Cache) Files(paths []string) (map[string]string, error) {
	out := make(map[string]string, len(paths))
	for _, p := range paths {
		sum, err := c.File(p)
		if err != nil {
			return nil, err
		}
		out[p] = sum
	}
	return out, nil
}

// Matches reports whether every recorded hash still matches its file.
func (c *Cache) Matches(recorded map[string]string) bool {
	paths := make([]string, 0, len(recorded))
	for p := range recorded {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		sum, err := c.File(p)
		if err != nil || sum != recorded[p] {
			return false
		}
	}
	return true
}

// Flush forgets every cached hash.
func (c *Cache) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	return nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Bytes returns the hex sha256 of b.
func Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
