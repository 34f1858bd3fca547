package dep

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks failures caused by invalid declarations or settings
// rather than by I/O. Callers test for it with errors.Is.
var ErrConfiguration = errors.New("configuration error")

// ConfigErrorf formats an error that wraps ErrConfiguration.
func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
