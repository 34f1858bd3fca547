// Package config defines the format-agnostic build configuration and the
// Loader interface that format-specific loaders implement.
//
// The `config.Config` is the single source of truth for the engine. The HCL
// implementation lives in the internal/hcl package.
package config
