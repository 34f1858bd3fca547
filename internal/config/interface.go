package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from the given files or directories and
	// merges it into a single Config.
	Load(ctx context.Context, paths ...string) (*Config, error)
}
