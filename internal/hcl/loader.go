package hcl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/assetgrid/internal/bundle"
	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses every config file found under paths, in sorted order, on top
// of config.Default. Scalars set by a later file win; bundles accumulate.
// A relative project_root is resolved against the file that sets it.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Config, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := findConfigFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no configuration files found in %s", strings.Join(paths, ", "))
	}
	logger.Debug("Discovered config files.", "count", len(files))

	cfg := config.Default()
	rootSet := false
	parser := hclparse.NewParser()
	for _, file := range files {
		var f *hcl.File
		var diags hcl.Diagnostics
		if strings.HasSuffix(file, ".json") {
			f, diags = parser.ParseJSONFile(file)
		} else {
			f, diags = parser.ParseHCLFile(file)
		}
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse config file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode config file %s: %w", file, diags)
		}
		if err := merge(cfg, &root, filepath.Dir(file), &rootSet); err != nil {
			return nil, fmt.Errorf("in config file %s: %w", file, err)
		}
	}

	if !rootSet && len(files) > 0 {
		cfg.ProjectRoot = filepath.Dir(files[0])
	}
	abs, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return nil, err
	}
	cfg.ProjectRoot = abs
	for _, b := range cfg.Bundles {
		b.Dir = abs
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("HCL loading complete.", "project_root", cfg.ProjectRoot, "bundles", len(cfg.Bundles), "strategy", cfg.Strategy)
	return cfg, nil
}

func merge(cfg *config.Config, root *fileRoot, dir string, rootSet *bool) error {
	if root.ProjectRoot != nil {
		p := *root.ProjectRoot
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		cfg.ProjectRoot = p
		*rootSet = true
	}
	setBool(&cfg.Bundling, root.Bundling)
	setString(&cfg.Strategy, root.Strategy)
	setBool(&cfg.InPlaceDeploy, root.InPlaceDeploy)
	if root.Flags != nil {
		cfg.Flags = root.Flags
	}
	if root.Workers != nil {
		cfg.Workers = *root.Workers
	}
	if root.Plugins != nil {
		cfg.Plugins = root.Plugins
	}
	if o := root.Output; o != nil {
		setString(&cfg.Output.Dir, o.Dir)
		setString(&cfg.Output.URLPrefix, o.URLPrefix)
		setBool(&cfg.Output.Fingerprint, o.Fingerprint)
	}
	if c := root.Cache; c != nil {
		setString(&cfg.Cache.Backend, c.Backend)
		setString(&cfg.Cache.URL, c.URL)
		setString(&cfg.Cache.Scope, c.Scope)
	}
	if n := root.Notify; n != nil {
		cfg.Notify = config.Notify{
			URL:                n.URL,
			Namespace:          n.Namespace,
			Event:              n.Event,
			InsecureSkipVerify: n.InsecureSkipVerify,
		}
	}
	if root.Healthcheck != nil {
		cfg.HealthcheckPort = *root.Healthcheck
	}
	for _, b := range root.Bundles {
		deps, err := dependencies(b.Dependencies)
		if err != nil {
			return fmt.Errorf("bundle %q: %w", b.Name, err)
		}
		cfg.Bundles = append(cfg.Bundles, &bundle.Config{
			Name:         b.Name,
			Recurse:      b.Recurse,
			Dependencies: deps,
		})
	}
	return nil
}

// dependencies converts a list expression of strings and objects into the
// loosely typed declarations the registry normalizes.
func dependencies(expr hcl.Expression) ([]any, error) {
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if v.IsNull() {
		return nil, nil
	}
	if !v.Type().IsTupleType() && !v.Type().IsListType() {
		return nil, fmt.Errorf("dependencies must be a list, got %s", v.Type().FriendlyName())
	}
	raw, err := ctyjson.Marshal(v, cty.DynamicPseudoType)
	if err != nil {
		return nil, err
	}
	var wrapped struct {
		Value []any `json:"value"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Value, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// findConfigFiles expands directories into their .hcl and .hcl.json files.
func findConfigFiles(paths []string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		var found []string
		for _, ext := range []string{".hcl", ".hcl.json"} {
			files, err := fsutil.FindFilesByExtension(path, ext)
			if err != nil {
				return nil, err
			}
			found = append(found, files...)
		}
		sort.Strings(found)
		for _, f := range found {
			add(f)
		}
	}
	return out, nil
}
