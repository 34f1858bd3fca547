package walker

import (
	"strings"

	"github.com/specialistvlad/assetgrid/internal/dep"
)

// Context describes where in the graph a dependency was reached.
type Context struct {
	// ScriptSlot and StyleSlot are slot overrides inherited from enclosing
	// packages.
	ScriptSlot string
	StyleSlot  string
	// Parent is the package whose manifest listed the dependency, nil at the root.
	Parent    dep.Dependency
	Ancestors []dep.Dependency
	// Data is passed through unchanged from Options.Data.
	Data any
}

// SlotFor resolves the slot of a leaf: its own declaration first, then the
// inherited override for its content type, then the type default.
func (c *Context) SlotFor(d dep.Dependency) string {
	if s := d.Props().Slot; s != "" {
		return s
	}
	switch d.ContentType() {
	case dep.ContentJS:
		if c.ScriptSlot != "" {
			return c.ScriptSlot
		}
	case dep.ContentCSS:
		if c.StyleSlot != "" {
			return c.StyleSlot
		}
	}
	return dep.DefaultSlot(d.ContentType())
}

func (c *Context) child(pkg dep.Dependency) *Context {
	props := pkg.Props()
	script, style := c.ScriptSlot, c.StyleSlot
	if props.Slot != "" {
		script, style = props.Slot, props.Slot
	}
	if props.ScriptSlot != "" {
		script = props.ScriptSlot
	}
	if props.StyleSlot != "" {
		style = props.StyleSlot
	}

	ancestors := make([]dep.Dependency, 0, len(c.Ancestors)+1)
	ancestors = append(ancestors, c.Ancestors...)
	ancestors = append(ancestors, pkg)
	return &Context{
		ScriptSlot: script,
		StyleSlot:  style,
		Parent:     pkg,
		Ancestors:  ancestors,
		Data:       c.Data,
	}
}

// Chain lists the ancestors followed by d.
func (c *Context) Chain(d dep.Dependency) []string {
	out := make([]string, 0, len(c.Ancestors)+1)
	for _, a := range c.Ancestors {
		out = append(out, a.String())
	}
	if d != nil {
		out = append(out, d.String())
	}
	return out
}

// ChainString renders Chain joined by arrows.
func (c *Context) ChainString(d dep.Dependency) string {
	return strings.Join(c.Chain(d), " -> ")
}
