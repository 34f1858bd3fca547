package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/dep"
)

// ValidateRegistry checks that the registered types can describe a page: at
// least one package type and one readable leaf type must exist, and every
// claimed extension must point at a registered type.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var packages, readers int
	for tag, def := range r.types {
		if def.Package {
			packages++
		}
		if def.Readable {
			readers++
		}
		if len(def.Extensions) == 0 {
			logger.Debug("Dependency type has no file extensions; it is only reachable by explicit type.", "type", tag)
		}
	}
	if packages == 0 {
		errs = append(errs, "no package dependency type registered")
	}
	if readers == 0 {
		errs = append(errs, "no readable dependency type registered")
	}
	for ext, tag := range r.extensions {
		if _, ok := r.types[tag]; !ok {
			errs = append(errs, fmt.Sprintf("extension '%s' points at unregistered type '%s'", ext, tag))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: registry validation failed:\n- %s", dep.ErrConfiguration, strings.Join(errs, "\n- "))
	}
	return nil
}
