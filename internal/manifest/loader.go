// Package manifest reads package descriptor files (browser.json,
// browser.yaml) into dependency manifests.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/dep"
	"gopkg.in/yaml.v3"
)

// Format is the serialization of a descriptor file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the format from the file extension. Anything that is
// not YAML is read as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

type entry struct {
	modTime  time.Time
	size     int64
	manifest *dep.Manifest
}

// Loader loads descriptor files and keeps them until the file changes on
// disk or the loader is flushed.
type Loader struct {
	mu      sync.Mutex
	entries map[string]entry
}

// NewLoader creates an empty loader.
func NewLoader() *Loader {
	return &Loader{entries: make(map[string]entry)}
}

// LoadManifest implements dep.ManifestLoader.
func (l *Loader) LoadManifest(ctx context.Context, path string) (*dep.Manifest, error) {
	logger := ctxlog.FromContext(ctx)
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}

	l.mu.Lock()
	cached, ok := l.entries[abs]
	l.mu.Unlock()
	if ok && cached.modTime.Equal(info.ModTime()) && cached.size == info.Size() {
		return cached.manifest, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	m, err := Parse(data, FormatForPath(abs), filepath.Dir(abs), filepath.Base(abs))
	if err != nil {
		return nil, err
	}
	logger.Debug("Manifest loaded.", "path", abs, "dependencies", len(m.Declarations()), "async", len(m.AsyncNames()))

	l.mu.Lock()
	l.entries[abs] = entry{modTime: info.ModTime(), size: info.Size(), manifest: m}
	l.mu.Unlock()
	return m, nil
}

// Flush drops every cached manifest.
func (l *Loader) Flush(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]entry)
	return nil
}

// Parse decodes a descriptor. It accepts either a bare list of declarations
// or an object with "dependencies" and "async" keys.
func Parse(data []byte, format Format, dir, filename string) (*dep.Manifest, error) {
	var raw any
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, dep.ConfigErrorf("parsing %s: %v", filepath.Join(dir, filename), err)
	}

	where := filepath.Join(dir, filename)
	switch v := raw.(type) {
	case nil:
		return dep.NewManifest(dir, filename, nil, nil), nil
	case []any:
		return dep.NewManifest(dir, filename, v, nil), nil
	case map[string]any:
		decls, err := list(v["dependencies"], where, "dependencies")
		if err != nil {
			return nil, err
		}
		async, err := asyncBlocks(v["async"], where)
		if err != nil {
			return nil, err
		}
		return dep.NewManifest(dir, filename, decls, async), nil
	default:
		return nil, dep.ConfigErrorf("%s: expected a list or an object, got %T", where, raw)
	}
}

func list(v any, where, field string) ([]any, error) {
	switch l := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return l, nil
	default:
		return nil, dep.ConfigErrorf("%s: %q must be a list, got %T", where, field, v)
	}
}

func asyncBlocks(v any, where string) (map[string][]any, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, dep.ConfigErrorf("%s: \"async\" must be an object, got %T", where, v)
	}
	out := make(map[string][]any, len(m))
	for name, decls := range m {
		l, err := list(decls, where, "async."+name)
		if err != nil {
			return nil, err
		}
		out[name] = l
	}
	return out, nil
}
