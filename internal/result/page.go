// Package result holds the outcome of a page build in a form that can be
// cached, serialized and rendered.
package result

import (
	"encoding/json"
	"sort"
)

// Bundle describes one emitted bundle.
type Bundle struct {
	Name         string   `json:"name"`
	ContentType  string   `json:"content_type"`
	Slot         string   `json:"slot"`
	Inline       string   `json:"inline,omitempty"`
	MergeInline  bool     `json:"merge_inline,omitempty"`
	URL          string   `json:"url,omitempty"`
	File         string   `json:"file,omitempty"`
	Code         string   `json:"code,omitempty"`
	Dependencies []string `json:"dependencies"`
	External     bool     `json:"external,omitempty"`
	InPlace      bool     `json:"in_place,omitempty"`
	// Async is true for bundles only reached through async packages.
	Async bool `json:"async,omitempty"`
}

// AsyncEntry lists what has to be fetched for one async package. Empty
// lists are omitted.
type AsyncEntry struct {
	JS  []string `json:"js,omitempty"`
	CSS []string `json:"css,omitempty"`
}

// Page is the complete result of building one page.
type Page struct {
	BuildID string `json:"build_id"`
	Name    string `json:"name"`
	// Bundles are the synchronously loaded bundles in page order.
	Bundles []Bundle `json:"bundles"`
	// AsyncBundles are written for async packages only.
	AsyncBundles []Bundle `json:"async_bundles,omitempty"`
	// Slots maps a slot name to its rendered HTML.
	Slots map[string]string `json:"slots"`
	// URLs maps a content type to the URLs of its synchronous bundles.
	URLs  map[string][]string   `json:"urls"`
	Files []string              `json:"files"`
	Async map[string]AsyncEntry `json:"async,omitempty"`
	// Fingerprints maps every local source file to its sha256.
	Fingerprints map[string]string `json:"fingerprints,omitempty"`
}

// SlotNames returns the rendered slot names in sorted order.
func (p *Page) SlotNames() []string {
	names := make([]string, 0, len(p.Slots))
	for n := range p.Slots {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AsyncNames returns the async package names in sorted order.
func (p *Page) AsyncNames() []string {
	names := make([]string, 0, len(p.Async))
	for n := range p.Async {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LoaderJSON renders the async loader metadata.
func (p *Page) LoaderJSON() ([]byte, error) {
	if p.Async == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.Async)
}

// Encode serializes p for a cache store.
func Encode(p *Page) ([]byte, error) {
	return json.Marshal(p)
}

// Decode is the inverse of Encode.
func Decode(b []byte) (*Page, error) {
	var p Page
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
