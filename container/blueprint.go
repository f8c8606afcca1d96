package container

import (
	"context"
	"reflect"
	"strings"
	"sync"
)

// ── Injection options ─────────────────────────────────────────────────────────

// InjectOption customises how a plan maps parameters and fields to keys.
type InjectOption func(*injectConfig)

type injectConfig struct {
	byIndex  map[int]any
	byName   map[string]any
	optional map[int]bool
	useName  bool
}

func (cfg *injectConfig) empty() bool {
	return len(cfg.byIndex) == 0 && len(cfg.byName) == 0 &&
		len(cfg.optional) == 0 && !cfg.useName
}

// WithArg pins the parameter at index to an explicit key, overriding every
// other sourcing rule.
func WithArg(index int, key any) InjectOption {
	return func(cfg *injectConfig) {
		if cfg.byIndex == nil {
			cfg.byIndex = make(map[int]any)
		}
		cfg.byIndex[index] = key
	}
}

// WithName pins the struct field with the given name to an explicit key.
func WithName(name string, key any) InjectOption {
	return func(cfg *injectConfig) {
		if cfg.byName == nil {
			cfg.byName = make(map[string]any)
		}
		cfg.byName[name] = key
	}
}

// OptionalArg marks the parameter at index as optional: a missing dependency
// leaves it at the type's zero value instead of failing the call.
func OptionalArg(index int) InjectOption {
	return func(cfg *injectConfig) {
		if cfg.optional == nil {
			cfg.optional = make(map[int]bool)
		}
		cfg.optional[index] = true
	}
}

// UseName turns on name-based inference: struct fields whose type gives no
// usable key fall back to their own field name as a string key. Function
// parameters are unaffected, Go reflection does not expose their names.
func UseName() InjectOption {
	return func(cfg *injectConfig) { cfg.useName = true }
}

// ── Plans ─────────────────────────────────────────────────────────────────────

// planArg is one decided slot: which key to resolve, or none.
type planArg struct {
	name     string
	index    int
	typ      reflect.Type
	key      any // nil means no injection
	optional bool
	variadic bool
	settable bool
}

// plan is the memoized injection blueprint for one target.
type plan struct {
	target reflect.Type
	args   []planArg
}

// buildPlan decides, once per target, how every slot is sourced. Precedence
// per slot: an explicit WithArg/WithName mapping, then the `inject` tag,
// then the slot's type when it names something resolvable, then the field
// name under UseName, then nothing. Variadic parameters and unexported
// fields are never injected.
func buildPlan(inspector SignatureInspector, target any, cfg injectConfig) (*plan, error) {
	args, err := inspector.Inspect(target)
	if err != nil {
		return nil, err
	}

	p := &plan{target: args.Target, args: make([]planArg, len(args.Args))}
	for i, a := range args.Args {
		pa := planArg{
			name:     a.Name,
			index:    a.Index,
			typ:      a.Type,
			variadic: a.Variadic,
			settable: a.CanSet,
		}
		if a.Variadic || !a.CanSet {
			p.args[i] = pa
			continue
		}

		tagKey, tagOptional, tagSkip := parseInjectTag(a)
		pa.optional = tagOptional || cfg.optional[a.Index]

		switch {
		case cfg.byIndex != nil && has(cfg.byIndex, a.Index):
			pa.key = cfg.byIndex[a.Index]
		case a.Name != "" && cfg.byName != nil && hasName(cfg.byName, a.Name):
			pa.key = cfg.byName[a.Name]
		case tagSkip:
			// inject:"-"
		case tagKey != "":
			pa.key = tagKey
		case a.HasTag:
			// bare inject:"" forces injection by type
			pa.key = a.Type
		case informative(a.Type):
			pa.key = a.Type
		case cfg.useName && a.Name != "":
			pa.key = a.Name
		}
		p.args[i] = pa
	}
	return p, nil
}

func has(m map[int]any, k int) bool {
	_, ok := m[k]
	return ok
}

func hasName(m map[string]any, k string) bool {
	_, ok := m[k]
	return ok
}

// parseInjectTag splits `inject:"name,flags"` into its parts.
func parseInjectTag(a Arg) (key string, optional, skip bool) {
	if !a.HasTag {
		return "", false, false
	}
	parts := strings.Split(a.Tag, ",")
	if parts[0] == "-" {
		return "", false, true
	}
	key = parts[0]
	for _, f := range parts[1:] {
		if f == "optional" {
			optional = true
		}
	}
	return key, optional, false
}

var (
	errType = reflect.TypeOf((*error)(nil)).Elem()
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// informative reports whether a type is usable as a dependency key on its
// own. Builtins, unnamed composites, the empty interface, error and
// context.Context say nothing about what to resolve; named types do.
func informative(t reflect.Type) bool {
	if t == errType || t == ctxType {
		return false
	}
	if t.Kind() == reflect.Ptr {
		return informative(t.Elem())
	}
	return t.PkgPath() != ""
}

// ── Plan cache ────────────────────────────────────────────────────────────────

// funcID identifies a callable for plan caching. The code pointer alone is
// not unique: closures over one body share it, and every method value made
// through reflection shares a single thunk. Pairing it with the signature
// keeps the cache sound, since plans depend only on the signature.
type funcID struct {
	code uintptr
	typ  reflect.Type
}

// planCache memoizes plans by callable identity and by struct type.
type planCache struct {
	mu      sync.RWMutex
	funcs   map[funcID]*plan
	structs map[reflect.Type]*plan
}

func newPlanCache() *planCache {
	return &planCache{
		funcs:   make(map[funcID]*plan),
		structs: make(map[reflect.Type]*plan),
	}
}

func (pc *planCache) funcPlan(inspector SignatureInspector, fn reflect.Value) (*plan, error) {
	id := funcID{code: fn.Pointer(), typ: fn.Type()}
	pc.mu.RLock()
	p, ok := pc.funcs[id]
	pc.mu.RUnlock()
	if ok {
		return p, nil
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()
	if p, ok = pc.funcs[id]; ok {
		return p, nil
	}
	p, err := buildPlan(inspector, fn.Interface(), injectConfig{})
	if err != nil {
		return nil, err
	}
	pc.funcs[id] = p
	return p, nil
}

func (pc *planCache) structPlan(inspector SignatureInspector, t reflect.Type) (*plan, error) {
	pc.mu.RLock()
	p, ok := pc.structs[t]
	pc.mu.RUnlock()
	if ok {
		return p, nil
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()
	if p, ok = pc.structs[t]; ok {
		return p, nil
	}
	p, err := buildPlan(inspector, t, injectConfig{})
	if err != nil {
		return nil, err
	}
	pc.structs[t] = p
	return p, nil
}
