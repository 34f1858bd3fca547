package dep

import (
	"path/filepath"
	"sync"
)

// Source locates the manifest a declaration came from.
type Source struct {
	Dir  string
	File string
}

// Base implements the bookkeeping shared by node types. Concrete types
// embed *Base and supply Init, Key, ContentType and IsPackage.
type Base struct {
	typ   string
	props Properties
	src   Source

	initOnce sync.Once
	initErr  error
	env      *Env

	keyMu sync.Mutex
	key   string
}

// NewBase returns the shared state for a node of type typ.
func NewBase(typ string, props Properties, src Source) *Base {
	props.Type = typ
	return &Base{typ: typ, props: props, src: src}
}

func (b *Base) Type() string       { return b.typ }
func (b *Base) Props() *Properties { return &b.props }
func (b *Base) Source() Source     { return b.src }

// Env returns the environment captured by InitOnce, or nil before Init.
func (b *Base) Env() *Env { return b.env }

// InitOnce records env and runs hook exactly once. Later calls return the
// first outcome.
func (b *Base) InitOnce(env *Env, hook func() error) error {
	b.initOnce.Do(func() {
		b.env = env
		if hook != nil {
			b.initErr = hook()
		}
	})
	return b.initErr
}

// ResolvePath makes p absolute relative to the declaring directory. URLs
// and empty strings are returned unchanged.
func (b *Base) ResolvePath(p string) string {
	if p == "" || IsURL(p) || filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(b.src.Dir, p))
}

// CachedKey memoizes the first successful result of compute.
func (b *Base) CachedKey(compute func() (string, error)) (string, error) {
	b.keyMu.Lock()
	defer b.keyMu.Unlock()
	if b.key != "" {
		return b.key, nil
	}
	k, err := compute()
	if err != nil {
		return "", err
	}
	b.key = k
	return k, nil
}

// Dir defaults to the declaring directory.
func (b *Base) Dir() string { return b.src.Dir }

func (b *Base) String() string { return b.props.Describe() }
