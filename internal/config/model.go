package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/specialistvlad/assetgrid/internal/bundle"
	"github.com/specialistvlad/assetgrid/internal/dep"
)

// Config is everything that controls how pages are bundled.
type Config struct {
	ProjectRoot   string           `json:"project_root"`
	Bundling      bool             `json:"bundling"`
	Strategy      string           `json:"strategy"`
	InPlaceDeploy bool             `json:"in_place_deploy"`
	Flags         []string         `json:"flags,omitempty"`
	Bundles       []*bundle.Config `json:"bundles"`
	Output        Output           `json:"output"`
	Cache         Cache            `json:"cache"`
	Workers       int              `json:"workers"`
	Plugins       []string         `json:"plugins,omitempty"`
	Notify        Notify           `json:"notify"`

	// HealthcheckPort serves /health and /metrics while building; 0 disables it.
	HealthcheckPort int `json:"healthcheck_port,omitempty"`
}

// Output controls where written bundles go.
type Output struct {
	Dir         string `json:"dir"`
	URLPrefix   string `json:"url_prefix"`
	Fingerprint bool   `json:"fingerprint"`
}

// Cache selects the page result store.
type Cache struct {
	Backend string `json:"backend"`
	URL     string `json:"url,omitempty"`
	// Scope separates caches of unrelated projects sharing one store.
	Scope string `json:"scope,omitempty"`
}

// Notify selects where finished builds are announced. An empty URL
// disables notifications.
type Notify struct {
	URL                string `json:"url,omitempty"`
	Namespace          string `json:"namespace,omitempty"`
	Event              string `json:"event,omitempty"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify,omitempty"`
}

// Default returns the configuration used when a file leaves a value unset.
func Default() *Config {
	return &Config{
		ProjectRoot: ".",
		Bundling:    true,
		Strategy:    "default",
		Output:      Output{Dir: "dist", URLPrefix: "/assets"},
		Cache:       Cache{Backend: "memory"},
		Workers:     4,
	}
}

// Validate rejects values that can never produce a build.
func (c *Config) Validate() error {
	switch c.Strategy {
	case "", "default", "lean":
	default:
		return dep.ConfigErrorf("invalid bundling strategy %q: expected default or lean", c.Strategy)
	}
	if c.Workers < 0 {
		return dep.ConfigErrorf("workers must not be negative, got %d", c.Workers)
	}
	return bundle.ValidateConfigs(c.Bundles)
}

// fingerprintInput is the subset of Config that affects bundle
// composition, plus what the registry contributes.
type fingerprintInput struct {
	Bundling      bool             `json:"bundling"`
	Strategy      string           `json:"strategy"`
	InPlaceDeploy bool             `json:"in_place_deploy"`
	Bundles       []*bundle.Config `json:"bundles"`
	Output        Output           `json:"output"`
	Plugins       []string         `json:"plugins"`
	Types         []string         `json:"types"`
	KeyFragments  []string         `json:"key_fragments"`
}

// Fingerprint hashes every value that affects bundle composition together
// with the registered types and plugin key fragments. Two configurations
// with the same fingerprint bundle identically.
func (c *Config) Fingerprint(types, keyFragments []string) (string, error) {
	in := fingerprintInput{
		Bundling:      c.Bundling,
		Strategy:      c.Strategy,
		InPlaceDeploy: c.InPlaceDeploy,
		Bundles:       c.Bundles,
		Output:        c.Output,
		Plugins:       sorted(c.Plugins),
		Types:         sorted(types),
		KeyFragments:  append([]string(nil), keyFragments...),
	}
	b, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("fingerprinting configuration: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
