// Package flags holds the per-page flag set and the conditions that
// dependencies use to opt in or out of a build based on it.
package flags

import (
	"context"
	"sort"
	"strings"
)

// Set is an immutable set of flag names active for one page build.
type Set struct {
	names map[string]struct{}
	key   string
}

// New builds a Set from the given names. Blank and duplicate names are ignored.
func New(names ...string) *Set {
	s := &Set{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		s.names[n] = struct{}{}
	}
	s.key = strings.Join(s.Names(), ",")
	return s
}

// Has reports whether name is in the set. A nil Set is empty.
func (s *Set) Has(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.names[name]
	return ok
}

// Names returns the flag names in sorted order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Key returns the canonical string form of the set. Two sets with the same
// members always produce the same key regardless of construction order.
func (s *Set) Key() string {
	if s == nil {
		return ""
	}
	return s.key
}

func (s *Set) String() string {
	return "[" + s.Key() + "]"
}

type ctxKey struct{}

// WithSet embeds the active flag set in ctx.
func WithSet(ctx context.Context, s *Set) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the flag set embedded in ctx, or an empty set.
func FromContext(ctx context.Context) *Set {
	if s, ok := ctx.Value(ctxKey{}).(*Set); ok && s != nil {
		return s
	}
	return New()
}
