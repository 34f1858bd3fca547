// Package walker traverses the dependency graph of a manifest.
//
// A walk visits each logical dependency at most once (by key), drops the
// ones whose condition does not hold for the active flag set, and descends
// into packages depth-first in declaration order. Callers observe the walk
// through a Listener and may prune it with a Skip predicate; a skipped
// package is not descended into.
//
// Failures while resolving a package's manifest are reported as a
// *ResolutionError carrying the chain of packages that led to the failure.
package walker
