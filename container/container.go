package container

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the resolution engine: a registry of bindings plus a cache of
// resolved values, with cycle-safe lazy instantiation.
//
// A Container value is a lightweight handle. Handles created internally
// during resolution share the same state but carry the chain of keys being
// resolved, which is how nested Get calls detect cycles without a re-entrant
// lock and without cross-goroutine false positives.
type Container struct {
	state *state

	// keys being resolved on this call path, outermost first
	chain []frame
}

type frame struct {
	raw  any
	norm any
}

// state is the shared core behind every handle of one container.
type state struct {
	mu sync.RWMutex

	// bindings and their override/fallback sources
	reg *registry

	// resolved singletons and user-set values
	instances map[any]any

	// cache insertion order, for reverse-order Close
	order []any

	// keys whose cached value was factory-built (owned by the container)
	built map[any]bool

	// alias → canonical key
	aliases map[any]any

	// keys reported missing in this container regardless of registrations
	excluded map[any]struct{}

	// key → extender funcs
	extenders map[any][]Extender

	// tag → []key
	tags map[string][]any

	// contextual: consumer key → needed key → factory
	contextual map[any]map[any]KeyedFactory

	// chained value providers, in registration order
	providers []Provider

	// per-key mutexes guarding single-flight singleton construction
	flight map[any]*sync.Mutex

	// rebound callbacks: key → []func(instance)
	rebound map[any][]func(any)

	// resolved callbacks: []func(key, instance)
	afterResolving []func(any, any)

	// memoized injection plans
	plans *planCache

	// parent scope, nil for a root container
	parent *state

	frozen    bool
	log       *zap.Logger
	inspector SignatureInspector
}

func newState() *state {
	return &state{
		reg:        newRegistry(),
		instances:  make(map[any]any),
		built:      make(map[any]bool),
		aliases:    make(map[any]any),
		excluded:   make(map[any]struct{}),
		extenders:  make(map[any][]Extender),
		tags:       make(map[string][]any),
		contextual: make(map[any]map[any]KeyedFactory),
		flight:     make(map[any]*sync.Mutex),
		rebound:    make(map[any][]func(any)),
		plans:      newPlanCache(),
		log:        zap.NewNop(),
		inspector:  DefaultInspector,
	}
}

// Option configures a new container.
type Option func(*state)

// WithLogger attaches a logger; resolution and registration events are
// reported at debug level. The default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *state) { s.log = log }
}

// WithInspector swaps the signature inspector used to build injection plans.
func WithInspector(inspector SignatureInspector) Option {
	return func(s *state) { s.inspector = inspector }
}

// New creates an empty container. The container is bound to itself under the
// "container" key and under its own type key, so factories and filled
// structs can ask for it like any other dependency.
func New(opts ...Option) *Container {
	s := newState()
	for _, opt := range opts {
		opt(s)
	}
	c := &Container{state: s}
	c.Instance("container", c)
	c.Instance(Key[*Container](), c)
	return c
}

// fork derives the handle passed to factories: same state, chain extended
// with the key about to be built.
func (c *Container) fork(raw, norm any) *Container {
	chain := make([]frame, len(c.chain)+1)
	copy(chain, c.chain)
	chain[len(chain)-1] = frame{raw: raw, norm: norm}
	return &Container{state: c.state, chain: chain}
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Get resolves a key.
//
// Lookup order: the cache, then a contextual binding for the current
// consumer, then registered bindings (override sources, own, fallback
// sources, parent scope), then chained providers. A miss everywhere is a
// *NotFoundError; factory failures come back as *BuildError with the cause
// preserved; re-entering a key already on the resolution path is a
// *CycleError carrying the ordered chain.
func (c *Container) Get(key any) (any, error) {
	s := c.state
	raw := key
	norm := s.canonical(normalize(key))

	if s.isExcluded(norm) {
		return nil, &NotFoundError{Key: raw}
	}

	// fast path: cached singleton or user-set value
	if v, ok := s.cached(norm); ok {
		return v, nil
	}

	// cycle check against this call path
	for _, fr := range c.chain {
		if fr.norm == norm {
			path := make([]any, 0, len(c.chain)+1)
			for _, p := range c.chain {
				path = append(path, p.raw)
			}
			path = append(path, raw)
			err := &CycleError{Path: path}
			s.log.Warn("container: dependency cycle", zap.String("path", err.Error()))
			return nil, err
		}
	}

	// contextual binding for the current consumer
	if len(c.chain) > 0 {
		consumer := c.chain[len(c.chain)-1].norm
		if f := s.contextualFor(consumer, norm); f != nil {
			v, err := c.build(raw, norm, f)
			if err != nil {
				return nil, err
			}
			s.fireAfterResolving(raw, v)
			return v, nil
		}
	}

	if b := s.bindingFor(norm); b != nil {
		return c.fromBinding(raw, norm, b)
	}

	if v, claimed, err := c.tryProviders(raw, norm); claimed {
		if err != nil {
			return nil, err
		}
		return v, nil
	}

	return nil, &NotFoundError{Key: raw}
}

// fromBinding runs a registered factory, single-flight for singletons. The
// lock is per resolved key, not per binding, so distinct argument sets of
// one parameterized binding build independently.
func (c *Container) fromBinding(raw, norm any, b *binding) (any, error) {
	s := c.state

	if !b.singleton {
		v, err := c.build(raw, norm, b.factory)
		if err != nil {
			return nil, err
		}
		s.fireAfterResolving(raw, v)
		return v, nil
	}

	mu := s.flightLock(norm)
	mu.Lock()
	// another resolver may have just finished
	if v, ok := s.cached(norm); ok {
		mu.Unlock()
		return v, nil
	}
	v, err := c.build(raw, norm, b.factory)
	if err != nil {
		mu.Unlock()
		return nil, err
	}
	s.store(norm, v, true)
	mu.Unlock()

	s.fireAfterResolving(raw, v)
	return v, nil
}

func (s *state) flightLock(norm any) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.flight[norm]
	if !ok {
		mu = &sync.Mutex{}
		s.flight[norm] = mu
	}
	return mu
}

// build invokes a factory with a forked handle and applies extenders.
// Factory errors and panics come back as *BuildError; a cycle reported by a
// nested resolution propagates untouched.
func (c *Container) build(raw, norm any, f KeyedFactory) (v any, err error) {
	s := c.state
	d := c.fork(raw, norm)

	defer func() {
		if r := recover(); r != nil {
			v, err = nil, &BuildError{Key: raw, Err: fmt.Errorf("factory panic: %v", r)}
		}
	}()

	v, err = f(d, raw)
	if err != nil {
		var cycle *CycleError
		if errors.As(err, &cycle) {
			return nil, err
		}
		return nil, &BuildError{Key: raw, Err: err}
	}

	for _, ext := range s.extendersFor(norm) {
		v, err = ext(v, d)
		if err != nil {
			return nil, &BuildError{Key: raw, Err: err}
		}
	}

	s.log.Debug("container: resolved", zap.String("key", keyString(raw)))
	return v, nil
}

// MustGet is Get, panicking on error.
func (c *Container) MustGet(key any) any {
	v, err := c.Get(key)
	if err != nil {
		panic(err)
	}
	return v
}

// ── Cache operations ──────────────────────────────────────────────────────────

// Instance writes a pre-built value straight into the cache, bypassing any
// factory. It is the override surface for tests and externally constructed
// values, and stays available on a frozen container.
//
//	// Laravel: $app->instance(Config::class, $config)
//	c.Instance("config", cfg)
func (c *Container) Instance(key any, value any) {
	s := c.state
	norm := s.canonical(normalize(key))
	s.store(norm, value, false)
	s.log.Debug("container: instance set", zap.String("key", keyString(key)))
	s.fireRebound(norm, value)
}

// Forget evicts the cached value for key; the next Get rebuilds it from its
// binding. Forgetting a key with no cached value and no provider behind it
// is an *UnregisteredError.
func (c *Container) Forget(key any) error {
	s := c.state
	raw := key
	norm := s.canonical(normalize(key))

	s.mu.Lock()
	if _, ok := s.instances[norm]; ok {
		s.dropInstance(norm)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if s.bindingFor(norm) != nil || c.providerClaims(raw) {
		return nil
	}
	return &UnregisteredError{Key: raw}
}

// Has reports whether key is resolvable: cached, bound (here, in a source,
// or in a parent scope) or claimed by a provider.
func (c *Container) Has(key any) bool {
	s := c.state
	raw := key
	norm := s.canonical(normalize(key))

	if s.isExcluded(norm) {
		return false
	}
	if _, ok := s.cached(norm); ok {
		return true
	}
	if s.bindingFor(norm) != nil {
		return true
	}
	return c.providerClaims(raw)
}

// Resolved reports whether key has a cached value.
func (c *Container) Resolved(key any) bool {
	s := c.state
	_, ok := s.cached(s.canonical(normalize(key)))
	return ok
}

// Flush resets the container: bindings, cache, aliases, tags, extenders,
// contextual bindings, providers, callbacks and the frozen flag. The parent
// link of a scope survives.
func (c *Container) Flush() {
	s := c.state
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reg = newRegistry()
	s.instances = make(map[any]any)
	s.order = nil
	s.built = make(map[any]bool)
	s.aliases = make(map[any]any)
	s.excluded = make(map[any]struct{})
	s.extenders = make(map[any][]Extender)
	s.tags = make(map[string][]any)
	s.contextual = make(map[any]map[any]KeyedFactory)
	s.providers = nil
	s.flight = make(map[any]*sync.Mutex)
	s.rebound = make(map[any][]func(any))
	s.afterResolving = nil
	s.frozen = false
}

// ── Freeze ────────────────────────────────────────────────────────────────────

// Freeze blocks all further registrations: Bind, BindKeyed, Unbind, Alias,
// Tag, Extend, AddProvider, Fallback, Override and contextual bindings fail
// with *FrozenError afterwards. Instance and Forget stay available, they
// operate on the cache, not the registry.
func (c *Container) Freeze() {
	s := c.state
	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
	s.log.Debug("container: frozen")
}

// Frozen reports whether Freeze has been called.
func (c *Container) Frozen() bool {
	s := c.state
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}

// ── Teardown ──────────────────────────────────────────────────────────────────

// Close tears down factory-built singletons in reverse creation order, using
// the binding's CloseWith function when given and io.Closer otherwise, then
// empties the cache. Values placed with Instance are not owned by the
// container and are left alone. Failures are aggregated, not short-circuited.
func (c *Container) Close() error {
	s := c.state

	s.mu.Lock()
	keys := make([]any, len(s.order))
	copy(keys, s.order)
	values := make(map[any]any, len(s.instances))
	for k, v := range s.instances {
		values[k] = v
	}
	owned := make(map[any]bool, len(s.built))
	for k, v := range s.built {
		owned[k] = v
	}
	s.instances = make(map[any]any)
	s.order = nil
	s.built = make(map[any]bool)
	s.mu.Unlock()

	var errs error
	for i := len(keys) - 1; i >= 0; i-- {
		k := keys[i]
		v, ok := values[k]
		if !ok || !owned[k] {
			continue
		}
		if cc, isContainer := v.(*Container); isContainer && cc.state == s {
			continue
		}
		if b := s.bindingFor(k); b != nil && b.closer != nil {
			errs = multierr.Append(errs, b.closer(v))
			continue
		}
		if closer, isCloser := v.(io.Closer); isCloser {
			errs = multierr.Append(errs, closer.Close())
		}
	}
	s.log.Debug("container: closed", zap.Int("instances", len(keys)))
	return errs
}

// ── Extend ────────────────────────────────────────────────────────────────────

// Extend decorates the resolved value of key. Extenders run after the
// factory, in the order added; for singletons that means once, before
// caching. Extending an already-cached key rewrites the cached value in
// place.
//
//	// Laravel: $app->extend(Logger::class, fn($logger, $app) => new Timestamped($logger))
//	c.Extend("logger", func(instance any, c *container.Container) (any, error) {
//	    return &Timestamped{Inner: instance.(*Logger)}, nil
//	})
func (c *Container) Extend(key any, fn Extender) error {
	s := c.state
	norm := s.canonical(normalize(key))

	s.mu.Lock()
	if s.frozen {
		s.mu.Unlock()
		return &FrozenError{Op: "extend"}
	}
	s.extenders[norm] = append(s.extenders[norm], fn)
	cached, wasResolved := s.instances[norm]
	s.mu.Unlock()

	if !wasResolved {
		return nil
	}
	extended, err := fn(cached, c)
	if err != nil {
		return &BuildError{Key: key, Err: err}
	}
	s.mu.Lock()
	s.instances[norm] = extended
	s.mu.Unlock()
	s.fireRebound(norm, extended)
	return nil
}

// ── Tags ──────────────────────────────────────────────────────────────────────

// Tag groups keys under a named tag.
//
//	// Laravel: $app->tag([CpuReport::class, MemReport::class], 'reports')
//	c.Tag([]any{container.Key[*CpuReport](), container.Key[*MemReport]()}, "reports")
func (c *Container) Tag(keys []any, tag string) error {
	s := c.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return &FrozenError{Op: "tag"}
	}
	s.tags[tag] = append(s.tags[tag], keys...)
	return nil
}

// Tagged resolves every key registered under tag, in tag order. A scope sees
// its parent's tags plus its own.
func (c *Container) Tagged(tag string) ([]any, error) {
	keys := c.state.tagsFor(tag)
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		v, err := c.Get(k)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// Rebinding registers a callback fired when the cached value of key is
// replaced: by Instance over a resolved key, by a Replace rebind, or by
// Extend rewriting a cached value.
func (c *Container) Rebinding(key any, cb func(instance any)) {
	s := c.state
	norm := s.canonical(normalize(key))
	s.mu.Lock()
	s.rebound[norm] = append(s.rebound[norm], cb)
	s.mu.Unlock()
}

// AfterResolving registers a callback fired after any key is built (cache
// hits do not fire).
func (c *Container) AfterResolving(cb func(key any, instance any)) {
	s := c.state
	s.mu.Lock()
	s.afterResolving = append(s.afterResolving, cb)
	s.mu.Unlock()
}

func (s *state) fireRebound(norm any, instance any) {
	s.mu.RLock()
	cbs := s.rebound[norm]
	s.mu.RUnlock()
	for _, cb := range cbs {
		cb(instance)
	}
}

func (s *state) fireAfterResolving(key any, instance any) {
	s.mu.RLock()
	cbs := s.afterResolving
	s.mu.RUnlock()
	for _, cb := range cbs {
		cb(key, instance)
	}
}

// ── Cache internals ───────────────────────────────────────────────────────────

func (s *state) cached(norm any) (any, bool) {
	s.mu.RLock()
	v, ok := s.instances[norm]
	s.mu.RUnlock()
	return v, ok
}

// store writes a cache entry; built tags factory-owned values for Close.
func (s *state) store(norm any, v any, built bool) {
	s.mu.Lock()
	if _, exists := s.instances[norm]; !exists {
		s.order = append(s.order, norm)
	}
	s.instances[norm] = v
	s.built[norm] = built
	s.mu.Unlock()
}

// dropInstance removes a cache entry (mu must be held).
func (s *state) dropInstance(norm any) {
	if _, ok := s.instances[norm]; !ok {
		return
	}
	delete(s.instances, norm)
	delete(s.built, norm)
	for i, k := range s.order {
		if k == norm {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// Resolve resolves a key and type-asserts the result. With no key, the type
// key of T is used.
//
//	cache, err := container.Resolve[*RedisCache](c, "cache")
//	engine, err := container.Resolve[*Engine](c)
func Resolve[T any](c *Container, key ...any) (T, error) {
	var zero T
	k := any(nil)
	if len(key) > 0 {
		k = key[0]
	} else {
		k = Key[T]()
	}
	v, err := c.Get(k)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("container: [%s] resolved to %T, want %T", keyString(k), v, zero)
	}
	return typed, nil
}

// MustResolve is Resolve, panicking on error.
func MustResolve[T any](c *Container, key ...any) T {
	v, err := Resolve[T](c, key...)
	if err != nil {
		panic(err)
	}
	return v
}
