// Package registry maps dependency type tags to the constructors that build
// typed nodes, and turns raw manifest declarations into those nodes.
//
// Node types are contributed by modules (see the modules/ tree) through the
// Module interface. Normalization runs a chain of normalizers over each raw
// declaration: glob expansion first, then any user normalizers, then the
// built-in shorthand handling. A normalizer may splice a replacement list in
// place of the declaration, in which case normalization resumes at the same
// position so the replacements are normalized in turn.
package registry
