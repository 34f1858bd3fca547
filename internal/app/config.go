package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// PageSpec names a page and the descriptor that lists its dependencies.
type PageSpec struct {
	Name     string
	Manifest string
}

// ParsePageSpec parses "name=path". A bare path names the page after the
// file without its extension.
func ParsePageSpec(s string) (PageSpec, error) {
	name, manifest, ok := strings.Cut(s, "=")
	if !ok {
		manifest = s
		base := filepath.Base(filepath.FromSlash(manifest))
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	name = strings.TrimSpace(name)
	manifest = strings.TrimSpace(manifest)
	if name == "" || manifest == "" {
		return PageSpec{}, fmt.Errorf("invalid page %q: expected name=path", s)
	}
	return PageSpec{Name: name, Manifest: manifest}, nil
}

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string // hcl files
	Pages      []PageSpec
	Flags      []string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
	// ResultPath receives the page results as JSON; empty or "-" writes
	// them to the app's output.
	ResultPath string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	if len(cfg.Pages) == 0 {
		return nil, errors.New("at least one page is required")
	}
	seen := make(map[string]struct{}, len(cfg.Pages))
	for _, p := range cfg.Pages {
		if _, ok := seen[p.Name]; ok {
			return nil, fmt.Errorf("page %q is given more than once", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.WorkerCount)
	}
	return &cfg, nil
}
