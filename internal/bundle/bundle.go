// Package bundle groups leaf dependencies into output bundles and tracks
// which bundle each dependency was assigned to.
package bundle

import (
	"strings"
	"sync"

	"github.com/specialistvlad/assetgrid/internal/dep"
)

// Bundle is an ordered group of leaves of a single content type that is
// written, or inlined, as one unit.
type Bundle struct {
	Name        string
	ContentType dep.ContentType
	Slot        string
	Inline      dep.InlinePosition
	MergeInline bool
	Config      *Config

	// InPlace bundles are served straight from their source file.
	InPlace bool
	// External bundles hold a single dependency referenced by URL.
	External bool

	mu         sync.Mutex
	members    []dep.Dependency
	asyncOnly  bool
	written    bool
	url        string
	outputFile string
	inlineCode string
	sources    map[string]string
}

// Key combines the attributes that make two bundles distinct.
func Key(slot string, ct dep.ContentType, inline dep.InlinePosition, name string) string {
	return strings.Join([]string{slot, string(ct), string(inline), name}, "|")
}

func (b *Bundle) Key() string {
	return Key(b.Slot, b.ContentType, b.Inline, b.Name)
}

// add appends d and returns its index.
func (b *Bundle) add(d dep.Dependency) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.members = append(b.members, d)
	return len(b.members) - 1
}

// removeAt clears the member at index i if it is still d. Indices of other
// members are left unchanged.
func (b *Bundle) removeAt(i int, d dep.Dependency) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.members) || b.members[i] != d {
		return false
	}
	b.members[i] = nil
	return true
}

// Dependencies returns the current members in insertion order.
func (b *Bundle) Dependencies() []dep.Dependency {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]dep.Dependency, 0, len(b.members))
	for _, d := range b.members {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

// HasContent reports whether any member remains.
func (b *Bundle) HasContent() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.members {
		if d != nil {
			return true
		}
	}
	return false
}

// IsInline reports whether the bundle is emitted as inline code.
func (b *Bundle) IsInline() bool { return b.Inline != dep.InlineNone }

// AsyncOnly reports whether the bundle was created for async packages only.
func (b *Bundle) AsyncOnly() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.asyncOnly
}

func (b *Bundle) SetAsyncOnly(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.asyncOnly = v
}

// MarkWritten records where the bundle ended up. Only the first call counts.
func (b *Bundle) MarkWritten(url, outputFile, inlineCode string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.written {
		return false
	}
	b.written, b.url, b.outputFile, b.inlineCode = true, url, outputFile, inlineCode
	return true
}

func (b *Bundle) Written() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written
}

// RecordSources stores the content hashes of the member files the written
// output was produced from. Only the first call counts.
func (b *Bundle) RecordSources(sums map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sources == nil {
		b.sources = sums
	}
}

// Sources returns the hashes passed to RecordSources, or nil.
func (b *Bundle) Sources() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sources
}

// SourcePaths lists the local source files of the current members.
func (b *Bundle) SourcePaths() []string {
	if b.External {
		return nil
	}
	var out []string
	for _, d := range b.Dependencies() {
		if src := dep.SourcePath(d); src != "" {
			out = append(out, src)
		}
	}
	return out
}

func (b *Bundle) URL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.url
}

func (b *Bundle) OutputFile() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.outputFile
}

func (b *Bundle) InlineCode() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inlineCode
}

func (b *Bundle) String() string { return b.Key() }
