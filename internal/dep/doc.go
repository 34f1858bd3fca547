// Package dep defines the dependency model shared by every stage of a build.
//
// # Nodes
//
// A Dependency is either a leaf (a script or stylesheet that is read from
// disk, given inline, or referenced by URL) or a package that resolves to a
// child Manifest. Concrete node types live in the modules/ tree and are
// created through the registry; this package only fixes the contract:
//
//   - Init resolves paths and is safe to call more than once.
//   - Key identifies the node within one pass and drives de-duplication.
//   - Capability interfaces (Package, Reader, External, SourceFile) tell the
//     walker, the bundler and the writer what a node can do.
//
// # Manifests
//
// A Manifest is an ordered list of raw declarations plus the directory they
// are relative to. It is normalized into typed nodes lazily, the first time a
// walk needs it, through the Normalizer carried on Env.
package dep
