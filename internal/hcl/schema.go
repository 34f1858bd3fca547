package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level attribute and block of a config file.
// Pointers distinguish unset values from zero values so later files only
// override what they set.
type fileRoot struct {
	ProjectRoot   *string        `hcl:"project_root,optional"`
	Bundling      *bool          `hcl:"bundling,optional"`
	Strategy      *string        `hcl:"strategy,optional"`
	InPlaceDeploy *bool          `hcl:"in_place_deploy,optional"`
	Flags         []string       `hcl:"flags,optional"`
	Workers       *int           `hcl:"workers,optional"`
	Plugins       []string       `hcl:"plugins,optional"`
	Output        *outputBlock   `hcl:"output,block"`
	Cache         *cacheBlock    `hcl:"cache,block"`
	Notify        *notifyBlock   `hcl:"notify,block"`
	Healthcheck   *int           `hcl:"healthcheck_port,optional"`
	Bundles       []*bundleBlock `hcl:"bundle,block"`
}

type outputBlock struct {
	Dir         *string `hcl:"dir,optional"`
	URLPrefix   *string `hcl:"url_prefix,optional"`
	Fingerprint *bool   `hcl:"fingerprint,optional"`
}

type cacheBlock struct {
	Backend *string `hcl:"backend,optional"`
	URL     *string `hcl:"url,optional"`
	Scope   *string `hcl:"scope,optional"`
}

type notifyBlock struct {
	URL                string `hcl:"url"`
	Namespace          string `hcl:"namespace,optional"`
	Event              string `hcl:"event,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
}

// bundleBlock is `bundle "name" { ... }`. Dependencies stay an expression
// because they mix strings and objects.
type bundleBlock struct {
	Name         string         `hcl:"name,label"`
	Recurse      string         `hcl:"recurse,optional"`
	Dependencies hcl.Expression `hcl:"dependencies"`
}
