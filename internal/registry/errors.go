package registry

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/dep"
)

// UnknownTypeError reports a declaration whose type tag is not registered.
type UnknownTypeError struct {
	Type  string
	Known []string
}

func (e *UnknownTypeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("dependency declaration has no type (registered types: %s)", strings.Join(e.Known, ", "))
	}
	return fmt.Sprintf("unknown dependency type %q (registered types: %s)", e.Type, strings.Join(e.Known, ", "))
}

// Unwrap lets callers match the error against dep.ErrConfiguration.
func (e *UnknownTypeError) Unwrap() error { return dep.ErrConfiguration }
