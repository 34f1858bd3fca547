package dep

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/flags"
)

// Declaration is the loose map form of a dependency as it appears in a
// manifest or a bundle configuration, after shorthand expansion.
type Declaration map[string]any

// InlinePosition controls whether and where a bundle is inlined into a page.
type InlinePosition string

const (
	InlineNone      InlinePosition = ""
	InlineBeginning InlinePosition = "beginning"
	InlineEnd       InlinePosition = "end"
	InlineInPlace   InlinePosition = "in-place"
)

// Properties are the declared attributes common to every node type.
type Properties struct {
	Type            string
	Path            string
	URL             string
	Code            string
	Slot            string
	ScriptSlot      string
	StyleSlot       string
	Inline          InlinePosition
	MergeInline     bool
	Bundle          string
	Recurse         string
	UnbundledTarget string
	Condition       *flags.Condition

	// Extra holds every key this struct does not model, for node types
	// that need more (an intersection's nested lists, for instance).
	Extra map[string]any
}

var knownKeys = map[string]struct{}{
	"type": {}, "path": {}, "url": {}, "code": {}, "slot": {}, "js-slot": {}, "css-slot": {},
	"inline": {}, "merge-inline": {}, "bundle": {}, "recurse": {}, "unbundled-target": {},
	"if-flag": {}, "if-not-flag": {}, "if": {},
}

// ParseProperties extracts Properties from a declaration.
func ParseProperties(decl Declaration) (Properties, error) {
	var p Properties
	var err error
	str := func(key string) string {
		if err != nil {
			return ""
		}
		var s string
		s, err = stringValue(decl, key)
		return s
	}

	p.Type = str("type")
	p.Path = str("path")
	p.URL = str("url")
	p.Code = str("code")
	p.Slot = str("slot")
	p.ScriptSlot = str("js-slot")
	p.StyleSlot = str("css-slot")
	p.Bundle = str("bundle")
	p.Recurse = str("recurse")
	p.UnbundledTarget = str("unbundled-target")
	ifFlag, ifNotFlag, ifExpr := str("if-flag"), str("if-not-flag"), str("if")
	if err != nil {
		return p, err
	}

	if p.Inline, err = parseInline(decl["inline"]); err != nil {
		return p, err
	}
	if p.MergeInline, err = boolValue(decl, "merge-inline"); err != nil {
		return p, err
	}
	if p.Condition, err = flags.Compile(ifFlag, ifNotFlag, ifExpr); err != nil {
		return p, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	for k, v := range decl {
		if _, ok := knownKeys[k]; ok {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[k] = v
	}
	return p, nil
}

// parseInline converts a declared inline value into a position.
func parseInline(v any) (InlinePosition, error) {
	switch val := v.(type) {
	case nil:
		return InlineNone, nil
	case bool:
		if val {
			return InlineInPlace, nil
		}
		return InlineNone, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "", "false":
			return InlineNone, nil
		case "true", "in-place":
			return InlineInPlace, nil
		case "beginning":
			return InlineBeginning, nil
		case "end":
			return InlineEnd, nil
		}
	}
	return InlineNone, ConfigErrorf("invalid inline value %v: expected true, false, beginning, end or in-place", v)
}

func stringValue(decl Declaration, key string) (string, error) {
	v, ok := decl[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", ConfigErrorf("property %q must be a string, got %T", key, v)
	}
	return s, nil
}

func boolValue(decl Declaration, key string) (bool, error) {
	switch v := decl[key].(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, ConfigErrorf("property %q must be a bool, got %q", key, v)
		}
		return b, nil
	default:
		return false, ConfigErrorf("property %q must be a bool, got %T", key, v)
	}
}

// Describe renders the identifying properties for logs and error chains.
func (p *Properties) Describe() string {
	var parts []string
	switch {
	case p.Path != "":
		parts = append(parts, p.Path)
	case p.URL != "":
		parts = append(parts, p.URL)
	case p.Code != "":
		parts = append(parts, "(inline)")
	}
	if len(parts) == 0 && len(p.Extra) > 0 {
		keys := make([]string, 0, len(p.Extra))
		for k := range p.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts = append(parts, strings.Join(keys, ","))
	}
	return p.Type + ":" + strings.Join(parts, " ")
}
