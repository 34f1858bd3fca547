package dep

import "context"

// Normalizer turns raw declarations into typed, initialized nodes.
type Normalizer interface {
	NormalizeDependencies(ctx context.Context, env *Env, decls []any, dir, file string) ([]Dependency, error)
}

// ManifestLoader resolves a package descriptor file into a Manifest.
type ManifestLoader interface {
	LoadManifest(ctx context.Context, path string) (*Manifest, error)
}

// Env carries the collaborators every node may need while it resolves.
// One Env is shared by all builds of an engine.
type Env struct {
	Normalizer  Normalizer
	Loader      ManifestLoader
	ProjectRoot string
}
