package bundle

import (
	"fmt"

	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/recursion"
)

// Config is one configured bundle: a name, the root dependencies that seed
// it, and how far the builder recurses from each root.
type Config struct {
	Name         string `json:"name"`
	Recurse      string `json:"recurse,omitempty"`
	Dependencies []any  `json:"dependencies"`
	// Dir is the directory the dependencies are relative to.
	Dir string `json:"dir,omitempty"`
}

// ValidateConfigs rejects unnamed or duplicate bundles and unknown
// recursion modes.
func ValidateConfigs(configs []*Config) error {
	seen := make(map[string]struct{}, len(configs))
	for i, cfg := range configs {
		if cfg == nil || cfg.Name == "" {
			return dep.ConfigErrorf("bundle #%d has no name", i+1)
		}
		if _, ok := seen[cfg.Name]; ok {
			return dep.ConfigErrorf("duplicate bundle name %q", cfg.Name)
		}
		seen[cfg.Name] = struct{}{}
		if _, err := recursion.ParseMode(cfg.Recurse); err != nil {
			return fmt.Errorf("bundle %q: %w", cfg.Name, err)
		}
	}
	return nil
}
