package dep

import (
	"context"
	"io"
	"strings"
)

// ContentType is the kind of content a leaf contributes to a page.
type ContentType string

const (
	ContentNone ContentType = ""
	ContentJS   ContentType = "js"
	ContentCSS  ContentType = "css"
)

// Slot names understood by the default page layout.
const (
	SlotHead = "head"
	SlotBody = "body"
)

// DefaultSlot returns the slot a leaf lands in when nothing overrides it.
func DefaultSlot(ct ContentType) string {
	if ct == ContentCSS {
		return SlotHead
	}
	return SlotBody
}

// Dependency is a typed node of the dependency graph.
type Dependency interface {
	Type() string
	Props() *Properties
	// Init resolves the node against env. It is idempotent.
	Init(ctx context.Context, env *Env) error
	// Key is unique for a logical node within one pass. It is only valid
	// after Init.
	Key(ctx context.Context) (string, error)
	ContentType() ContentType
	IsPackage() bool
	// Dir is the directory the node lives in, or "" when it has none.
	Dir() string
	String() string
}

// Package is implemented by nodes that expand into a child manifest.
type Package interface {
	Dependency
	Manifest(ctx context.Context) (*Manifest, error)
}

// Reader is implemented by leaves whose content can be read.
type Reader interface {
	Dependency
	Read(ctx context.Context) (io.ReadCloser, error)
}

// External is implemented by leaves served from a URL instead of a bundle.
type External interface {
	Dependency
	URL() string
}

// SourceFile is implemented by leaves backed by a local file.
type SourceFile interface {
	SourcePath() string
}

// IsExternal reports whether d should be referenced by URL.
func IsExternal(d Dependency) bool {
	e, ok := d.(External)
	return ok && e.URL() != ""
}

// IsBundleable reports whether d is a leaf that can be placed in a bundle.
func IsBundleable(d Dependency) bool {
	if d.IsPackage() || d.ContentType() == ContentNone {
		return false
	}
	if IsExternal(d) {
		return true
	}
	_, ok := d.(Reader)
	return ok
}

// SourcePath returns the backing file of d, or "" when it has none.
func SourcePath(d Dependency) string {
	if sf, ok := d.(SourceFile); ok {
		return sf.SourcePath()
	}
	return ""
}

// IsURL reports whether s looks like an absolute or protocol-relative URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "//")
}
