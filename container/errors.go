package container

import (
	"errors"
	"strconv"
	"strings"
)

// ── Sentinel errors ───────────────────────────────────────────────────────────

var (
	// ErrNoProvide is returned by a Provider to pass a key on to the next
	// provider in the chain without failing the resolution.
	ErrNoProvide = errors.New("container: provider does not provide this key")

	// ErrNilFactory is returned when a binding is registered without a factory.
	ErrNilFactory = errors.New("container: nil factory")

	// ErrNilProvider is returned when AddProvider is given a nil provider.
	ErrNilProvider = errors.New("container: nil provider")

	// ErrSelfAlias is returned when a key is aliased to itself.
	ErrSelfAlias = errors.New("container: key aliased to itself")

	// ErrBadSource is returned when Fallback or Override is given a nil
	// container or the container itself.
	ErrBadSource = errors.New("container: source must be a different container")

	// ErrNotFunc is returned when Inject or Invoke is given a non-function.
	ErrNotFunc = errors.New("container: target is not a function")

	// ErrNotStruct is returned when Fill is given anything but a non-nil
	// pointer to a struct.
	ErrNotStruct = errors.New("container: target is not a pointer to a struct")
)

// ── Error types ───────────────────────────────────────────────────────────────

// NotFoundError reports a key with no binding, no cached value and no
// provider willing to claim it.
type NotFoundError struct {
	Key any
}

func (e *NotFoundError) Error() string {
	return "container: no provider for [" + keyString(e.Key) + "]"
}

// DuplicateBindingError reports a second registration under an already-bound
// key without the Replace option.
type DuplicateBindingError struct {
	Key any
}

func (e *DuplicateBindingError) Error() string {
	return "container: [" + keyString(e.Key) + "] is already bound"
}

// CycleError reports a dependency cycle. Path holds the ordered resolution
// chain, ending with the key that closed the cycle.
type CycleError struct {
	Path []any
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, k := range e.Path {
		parts[i] = keyString(k)
	}
	return "container: dependency cycle detected: " + strings.Join(parts, " => ")
}

// BuildError reports a factory, extender or provider failure while building
// a key. The underlying failure is preserved as the cause.
type BuildError struct {
	Key any
	Err error
}

func (e *BuildError) Error() string {
	return "container: building [" + keyString(e.Key) + "]: " + e.Err.Error()
}

func (e *BuildError) Unwrap() error { return e.Err }

// UnregisteredError reports an Unbind or Forget of a key the container does
// not know about.
type UnregisteredError struct {
	Key any
}

func (e *UnregisteredError) Error() string {
	return "container: [" + keyString(e.Key) + "] is not registered"
}

// FrozenError reports a registration attempted after Freeze.
type FrozenError struct {
	Op string
}

func (e *FrozenError) Error() string {
	return "container: " + e.Op + " on frozen container"
}

// MissingArgumentError reports a call-time parameter that was neither
// supplied by the caller nor resolvable from the container.
type MissingArgumentError struct {
	Index int
	Type  string
}

func (e *MissingArgumentError) Error() string {
	return "container: missing argument " + strconv.Itoa(e.Index) + " (" + e.Type + ")"
}
