// Package modules lists the dependency types compiled into assetgrid.
package modules

import (
	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/modules/intersection"
	"github.com/specialistvlad/assetgrid/modules/pkg"
	"github.com/specialistvlad/assetgrid/modules/require"
	"github.com/specialistvlad/assetgrid/modules/resource"
)

// Names lists the built-in modules in registration order.
var Names = []string{"resource", "package", "require", "intersection"}

func byName(name string) registry.Module {
	switch name {
	case "resource":
		return &resource.Module{}
	case "package":
		return &pkg.Module{}
	case "require":
		return &require.Module{}
	case "intersection":
		return &intersection.Module{}
	}
	return nil
}

// Core returns fresh instances of every built-in module.
func Core() []registry.Module {
	mods, _ := ByName(Names)
	return mods
}

// ByName returns fresh instances of the named modules. The resource module
// is always included since every other type expands into its leaves.
func ByName(names []string) ([]registry.Module, error) {
	if len(names) == 0 {
		names = Names
	}
	seen := map[string]bool{}
	var mods []registry.Module
	add := func(name string) error {
		if seen[name] {
			return nil
		}
		m := byName(name)
		if m == nil {
			return dep.ConfigErrorf("unknown plugin %q: expected one of %v", name, Names)
		}
		seen[name] = true
		mods = append(mods, m)
		return nil
	}
	if err := add("resource"); err != nil {
		return nil, err
	}
	for _, n := range names {
		if err := add(n); err != nil {
			return nil, err
		}
	}
	return mods, nil
}
