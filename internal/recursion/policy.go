// Package recursion decides how far the bundle builder follows a root
// dependency into the graph.
package recursion

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/dep"
)

// Mode names a recursion policy.
type Mode string

const (
	None    Mode = "none"
	All     Mode = "all"
	Dir     Mode = "dir"
	DirTree Mode = "dirtree"
	Module  Mode = "module"
)

// Modes lists the valid modes.
var Modes = []Mode{None, All, Dir, DirTree, Module}

// InstallDir is the directory third-party packages are installed into.
const InstallDir = "node_modules"

// Policy answers whether a discovered dependency belongs to the bundle and
// whether a nested package is descended into.
type Policy struct {
	mode Mode
	root dep.Dependency
	// base bounds the included tree; exclude is skipped inside it.
	base    string
	exclude string
}

// ParseMode validates s. An empty string yields the empty mode, which New
// resolves per root.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return "", nil
	}
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", dep.ConfigErrorf("invalid recursion mode %q: expected one of none, all, dir, dirtree, module", s)
}

// New builds the policy for root. An empty mode defaults to dirtree when the
// root has a directory and to all otherwise.
func New(mode Mode, root dep.Dependency, projectRoot string) (*Policy, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	dir := root.Dir()
	if mode == "" {
		mode = All
		if dir != "" {
			mode = DirTree
		}
	}
	p := &Policy{mode: mode, root: root, base: filepath.Clean(dir)}
	if mode == Module && dir != "" {
		p.base = packageRoot(dir, projectRoot)
		p.exclude = filepath.Join(p.base, InstallDir)
	}
	return p, nil
}

func (p *Policy) Mode() Mode { return p.mode }

// Include reports whether d, discovered below the root with the given
// parent, joins the bundle. Under None only the root and its direct
// children are included.
func (p *Policy) Include(d, parent dep.Dependency) bool {
	if d == p.root {
		return true
	}
	switch p.mode {
	case None:
		return parent == p.root
	case All:
		return true
	}
	dir := d.Dir()
	if dir == "" || p.root.Dir() == "" {
		return false
	}
	dir = filepath.Clean(dir)
	switch p.mode {
	case Dir:
		return dir == p.base
	case DirTree:
		return within(dir, p.base)
	case Module:
		return within(dir, p.base) && !within(dir, p.exclude)
	}
	return false
}

// Recurse reports whether the walker descends into pkg. The root itself is
// always expanded.
func (p *Policy) Recurse(pkg, parent dep.Dependency) bool {
	if pkg == p.root {
		return true
	}
	if p.mode == None {
		return false
	}
	return p.Include(pkg, parent)
}

func within(dir, base string) bool {
	if dir == base {
		return true
	}
	return strings.HasPrefix(dir, base+string(filepath.Separator))
}

// packageRoot returns the nearest directory at or above dir holding a
// package.json, stopping at projectRoot. It falls back to dir.
func packageRoot(dir, projectRoot string) string {
	dir = filepath.Clean(dir)
	stop := ""
	if projectRoot != "" {
		stop = filepath.Clean(projectRoot)
	}
	for cur := dir; ; {
		if _, err := os.Stat(filepath.Join(cur, "package.json")); err == nil {
			return cur
		}
		if cur == stop {
			break
		}
		next := filepath.Dir(cur)
		if next == cur {
			break
		}
		cur = next
	}
	return dir
}
