package container

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/enorith/supports/reflection"
)

// ── Dependency keys ───────────────────────────────────────────────────────────

// A dependency key identifies one binding in the container. Keys are plain Go
// values and are compared by value:
//
//   - a string is used as-is ("config", "db.replica"),
//   - a reflect.Type is used as-is (what Key[T]() returns),
//   - a nil interface pointer names the interface type itself,
//     so (*Warehouse)(nil) and Key[Warehouse]() are the same key,
//   - a BuildKey carries a base key plus construction arguments,
//   - any other value stands in for its own type, so Bind(&Engine{}, ...)
//     and Bind(Key[*Engine](), ...) register the same key.
//
// Key[T] is the canonical way to produce a type key:
//
//	c.Bind(container.Key[*Engine](), factory)
//	engine, err := container.Resolve[*Engine](c)
func Key[T any]() any {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// BuildKey wraps a base key together with extra construction arguments, so
// the same factory can be cached per argument set:
//
//	c.BindKeyed(container.Key[*Conn](), func(c *container.Container, key any) (any, error) {
//	    bk := key.(container.BuildKey)
//	    return dial(bk.Args[0].(string))
//	})
//	primary, _ := c.Get(container.Build(container.Key[*Conn](), "primary"))
//	replica, _ := c.Get(container.Build(container.Key[*Conn](), "replica"))
//
// Two BuildKeys are the same dependency iff their base keys and argument
// lists match. A BuildKey without arguments collapses to its base key; one
// with arguments resolves through the base key's binding unless a binding
// is registered for the exact argument set.
type BuildKey struct {
	Base any
	Args []any
}

// Build wraps base with construction arguments.
func Build(base any, args ...any) BuildKey {
	return BuildKey{Base: base, Args: args}
}

// buildID is the comparable cache identity of a BuildKey with arguments.
type buildID struct {
	base any
	args string
}

// normalize maps a user-facing key to its canonical comparable form. The
// canonical form is what the binding and instance maps are keyed by.
func normalize(key any) any {
	switch k := key.(type) {
	case nil:
		return nil
	case string:
		return k
	case reflect.Type:
		return k
	case BuildKey:
		base := normalize(k.Base)
		if len(k.Args) == 0 {
			return base
		}
		return buildID{base: base, args: fingerprint(k.Args)}
	default:
		t := reflect.TypeOf(key)
		// (*Iface)(nil) names the interface type itself
		if t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Interface {
			return t.Elem()
		}
		return t
	}
}

// fingerprint renders an argument list into a stable identity string.
// Comparable values collapse by type and value; pointers, maps, channels,
// funcs and slices are identified by address, so two distinct pointers with
// equal pointees stay distinct argument sets.
func fingerprint(args []any) string {
	var b strings.Builder
	for i, a := range args {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		switch reflect.ValueOf(a).Kind() {
		case reflect.Ptr, reflect.UnsafePointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Slice:
			fmt.Fprintf(&b, "%T(%p)", a, a)
		default:
			fmt.Fprintf(&b, "%T(%#v)", a, a)
		}
	}
	return b.String()
}

// keyString renders a key for error messages and logs.
func keyString(key any) string {
	switch k := key.(type) {
	case nil:
		return "<nil>"
	case string:
		return k
	case BuildKey:
		if len(k.Args) == 0 {
			return keyString(k.Base)
		}
		parts := make([]string, len(k.Args))
		for i, a := range k.Args {
			parts[i] = fmt.Sprintf("%v", a)
		}
		return keyString(k.Base) + "(" + strings.Join(parts, ", ") + ")"
	case buildID:
		return keyString(k.base) + "(" + k.args + ")"
	default:
		return reflection.TypeString(key)
	}
}
