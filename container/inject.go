package container

import (
	"fmt"
	"reflect"
	"sync"
)

// ── Injection wrapper ─────────────────────────────────────────────────────────

// Wrapped marks a callable that already carries injection. Inject returns
// such values unchanged instead of wrapping twice.
type Wrapped interface {
	Unwrap() any
}

// Injected is a callable bound to a container: Call supplies whatever the
// caller leaves out by resolving it from the container. The injection plan
// is built on first Call and reused for the wrapper's lifetime.
type Injected struct {
	c   *Container
	fn  reflect.Value
	cfg injectConfig

	once sync.Once
	plan *plan
	err  error
}

// Inject wraps fn for call-time injection. Wrapping an *Injected again is a
// no-op and returns it unchanged.
//
//	notify, _ := c.Inject(func(msg string, mailer *Mailer) error {
//	    return mailer.Send(msg)
//	})
//	_, err := notify.Call("shipment delayed") // mailer comes from the container
func (c *Container) Inject(fn any, opts ...InjectOption) (*Injected, error) {
	if inj, ok := fn.(*Injected); ok {
		return inj, nil
	}
	rv := reflect.ValueOf(fn)
	if !rv.IsValid() || rv.Kind() != reflect.Func {
		return nil, ErrNotFunc
	}
	var cfg injectConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Injected{c: c, fn: rv, cfg: cfg}, nil
}

// Unwrap returns the original callable.
func (inj *Injected) Unwrap() any { return inj.fn.Interface() }

// Call invokes the wrapped callable. Caller arguments fill the leading
// parameters and always win over injection; every remaining parameter is
// resolved by the plan. A missing dependency fails the call unless the
// parameter is optional, in which case it stays at its zero value. Optional
// tolerates unknown keys only; a registered factory that fails still fails
// the call.
func (inj *Injected) Call(args ...any) ([]any, error) {
	inj.once.Do(func() {
		s := inj.c.state
		if inj.cfg.empty() {
			inj.plan, inj.err = s.plans.funcPlan(s.inspector, inj.fn)
		} else {
			inj.plan, inj.err = buildPlan(s.inspector, inj.fn.Interface(), inj.cfg)
		}
	})
	if inj.err != nil {
		return nil, inj.err
	}

	outs, err := callPlan(inj.c, inj.fn, inj.plan, args)
	if err != nil {
		return nil, err
	}
	res := make([]any, len(outs))
	for i, o := range outs {
		res[i] = o.Interface()
	}
	return res, nil
}

// Invoke is one-shot injection: wrap fn with the memoized plan for its
// identity, call it, and split a trailing error return off the results.
// Supplied arguments fill the leading parameters; the rest are injected.
//
//	res, err := c.Invoke(func(id string, repo *UserRepo) (*User, error) {
//	    return repo.Find(id)
//	}, "u-42") // id is positional, repo comes from the container
func (c *Container) Invoke(fn any, args ...any) ([]any, error) {
	inj, err := c.Inject(fn)
	if err != nil {
		return nil, err
	}
	res, err := inj.Call(args...)
	if err != nil {
		return nil, err
	}

	ft := inj.fn.Type()
	if n := ft.NumOut(); n > 0 && ft.Out(n-1) == errType {
		last := res[n-1]
		res = res[:n-1]
		if last != nil {
			return res, last.(error)
		}
	}
	return res, nil
}

// ── Plan execution ────────────────────────────────────────────────────────────

// callPlan builds the argument list for fn and calls it. Supplied args cover
// the leading parameters; extra args spill into a variadic tail, which is
// itself never injected.
func callPlan(c *Container, fn reflect.Value, p *plan, args []any) ([]reflect.Value, error) {
	ft := fn.Type()
	n := ft.NumIn()
	fixed := n
	if ft.IsVariadic() {
		fixed = n - 1
	}
	if len(args) > fixed && !ft.IsVariadic() {
		return nil, fmt.Errorf("container: too many arguments: got %d, want at most %d", len(args), fixed)
	}

	in := make([]reflect.Value, 0, n)
	for i := 0; i < fixed; i++ {
		pa := p.args[i]
		if i < len(args) {
			v, err := conform(args[i], pa.typ, i)
			if err != nil {
				return nil, err
			}
			in = append(in, v)
			continue
		}
		if pa.key == nil {
			if pa.optional {
				in = append(in, reflect.Zero(pa.typ))
				continue
			}
			return nil, &MissingArgumentError{Index: i, Type: pa.typ.String()}
		}
		got, err := c.Get(pa.key)
		if err != nil {
			// a bare NotFoundError means the key is unknown; a BuildError
			// from a registered factory that failed must propagate
			if _, ok := err.(*NotFoundError); ok && pa.optional {
				in = append(in, reflect.Zero(pa.typ))
				continue
			}
			return nil, err
		}
		v, err := conform(got, pa.typ, i)
		if err != nil {
			return nil, err
		}
		in = append(in, v)
	}

	if ft.IsVariadic() {
		elem := ft.In(n - 1).Elem()
		for i := fixed; i < len(args); i++ {
			v, err := conform(args[i], elem, i)
			if err != nil {
				return nil, err
			}
			in = append(in, v)
		}
	}
	return fn.Call(in), nil
}

// conform turns a caller- or container-supplied value into a reflect.Value
// of the wanted type; nil becomes the type's zero value.
func conform(v any, t reflect.Type, index int) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("container: argument %d: %T is not assignable to %s", index, v, t)
	}
	return rv, nil
}

// ── Struct filling ────────────────────────────────────────────────────────────

// Fill injects into the exported fields of the struct target points to.
// Fields already holding a value are left alone (the caller wins), as are
// fields whose plan finds no key. A missing dependency fails unless the
// field is tagged optional; as with Call, optional covers unknown keys
// only, not failing factories.
//
//	type Handlers struct {
//	    Store  *Store
//	    Log    *zap.Logger
//	    Banner string `inject:"banner,optional"`
//	}
//	var h Handlers
//	err := c.Fill(&h)
func (c *Container) Fill(target any, opts ...InjectOption) error {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrNotStruct
	}
	var cfg injectConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	s := c.state
	el := rv.Elem()
	var (
		p   *plan
		err error
	)
	if cfg.empty() {
		p, err = s.plans.structPlan(s.inspector, el.Type())
	} else {
		p, err = buildPlan(s.inspector, el.Type(), cfg)
	}
	if err != nil {
		return err
	}

	for _, pa := range p.args {
		if pa.key == nil || !pa.settable {
			continue
		}
		f := el.Field(pa.index)
		if !f.IsZero() {
			continue
		}
		got, err := c.Get(pa.key)
		if err != nil {
			// unknown key only; factory failures propagate
			if _, ok := err.(*NotFoundError); ok && pa.optional {
				continue
			}
			return err
		}
		if got == nil {
			continue
		}
		gv := reflect.ValueOf(got)
		if !gv.Type().AssignableTo(f.Type()) {
			return fmt.Errorf("container: field %s: %T is not assignable to %s", pa.name, got, f.Type())
		}
		f.Set(gv)
	}
	return nil
}

// ── Method wiring ─────────────────────────────────────────────────────────────

// Wire wraps the named methods of target for call-time injection and returns
// them by name. The receiver is bound into each method value, so caller
// arguments start at the first real parameter. Go method sets cannot be
// patched in place; callers invoke the returned wrappers instead.
//
//	wired, _ := c.Wire(reportJob, []string{"Run"})
//	_, err := wired["Run"].Call()
func (c *Container) Wire(target any, methods []string, opts ...InjectOption) (map[string]*Injected, error) {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() {
		return nil, fmt.Errorf("container: nil wire target")
	}
	out := make(map[string]*Injected, len(methods))
	for _, name := range methods {
		m := rv.MethodByName(name)
		if !m.IsValid() {
			return nil, fmt.Errorf("container: %T has no method %s", target, name)
		}
		inj, err := c.Inject(m.Interface(), opts...)
		if err != nil {
			return nil, err
		}
		out[name] = inj
	}
	return out, nil
}
