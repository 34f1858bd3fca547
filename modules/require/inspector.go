package require

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
)

// Inspection is what an Inspector found in a module's source.
type Inspection struct {
	// Dependencies are declarations loaded before the module itself.
	Dependencies []any
	// Async are named blocks loaded on demand.
	Async map[string][]any
}

// Inspector examines a module's source for the modules it needs.
type Inspector interface {
	Inspect(ctx context.Context, path string) (*Inspection, error)
}

var (
	requireCall   = regexp.MustCompile(`\brequire\(\s*['"]([^'"]+)['"]\s*\)`)
	dynamicImport = regexp.MustCompile(`\bimport\(\s*['"]([^'"]+)['"]\s*\)`)
)

// RegexInspector recognizes literal require("x") calls as dependencies and
// literal import("x") calls as async blocks named "<file>#<target>".
type RegexInspector struct{}

func (RegexInspector) Inspect(ctx context.Context, path string) (*Inspection, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	out := &Inspection{}
	seen := make(map[string]struct{})
	for _, m := range requireCall.FindAllSubmatch(src, -1) {
		name := string(m[1])
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out.Dependencies = append(out.Dependencies, "require: "+name)
	}

	for _, m := range dynamicImport.FindAllSubmatch(src, -1) {
		name := string(m[1])
		if out.Async == nil {
			out.Async = make(map[string][]any)
		}
		block := filepath.Base(path) + "#" + name
		out.Async[block] = []any{"require: " + name}
	}
	return out, nil
}
