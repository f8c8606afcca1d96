package container

import "go.uber.org/zap"

// ── Binding types ─────────────────────────────────────────────────────────────

// Factory builds a concrete value from the container. The container handle
// it receives carries the current resolution chain, so nested Get calls are
// cycle-checked against the whole path.
type Factory func(c *Container) (any, error)

// KeyedFactory is a Factory that also receives the key being resolved.
// Useful with BuildKey registrations, where the key carries construction
// arguments.
type KeyedFactory func(c *Container, key any) (any, error)

// Extender wraps an already-resolved instance with decorator logic.
type Extender func(instance any, c *Container) (any, error)

// binding holds a registered factory, its lifetime and its teardown.
type binding struct {
	factory   KeyedFactory
	singleton bool
	closer    func(any) error
}

// ── Bind options ──────────────────────────────────────────────────────────────

// BindOption customises a single registration.
type BindOption func(*bindConfig)

type bindConfig struct {
	transient bool
	replace   bool
	closer    func(any) error
}

// Transient makes the binding produce a fresh value on every Get. The
// default lifetime is singleton: the first resolved value is cached and
// reused.
func Transient() BindOption {
	return func(cfg *bindConfig) { cfg.transient = true }
}

// Replace allows the registration to overwrite an existing binding under the
// same key. Without it, rebinding a key fails with *DuplicateBindingError.
func Replace() BindOption {
	return func(cfg *bindConfig) { cfg.replace = true }
}

// CloseWith attaches a teardown function invoked by Close for the cached
// value of this binding. Without it, Close falls back to io.Closer.
func CloseWith(fn func(instance any) error) BindOption {
	return func(cfg *bindConfig) { cfg.closer = fn }
}

// ── Registry ──────────────────────────────────────────────────────────────────

// registry is the binding table plus its override and fallback sources.
// Lookup order: overrides (most recent first), own bindings, fallbacks (in
// the order added), then the parent container for scopes. Sources contribute
// their own direct bindings only; their sources are not followed.
type registry struct {
	bindings  map[any]*binding
	overrides []*state
	fallbacks []*state
}

func newRegistry() *registry {
	return &registry{bindings: make(map[any]*binding)}
}

// ── Registration ──────────────────────────────────────────────────────────────

// Bind registers a factory under key. The binding is a singleton unless the
// Transient option is given; rebinding an existing key requires Replace.
//
//	// Laravel: $app->singleton(Cache::class, fn($app) => new RedisCache($app))
//	err := c.Bind("cache", func(c *container.Container) (any, error) {
//	    cfg, err := container.Resolve[*config.Config](c, "config")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return cache.NewRedis(cfg), nil
//	})
func (c *Container) Bind(key any, factory Factory, opts ...BindOption) error {
	if factory == nil {
		return ErrNilFactory
	}
	return c.register(key, func(c *Container, _ any) (any, error) {
		return factory(c)
	}, opts)
}

// BindKeyed registers a factory that receives the key it is being resolved
// for. Combined with Build, the factory sees the construction arguments:
//
//	c.BindKeyed(container.Key[*Conn](), func(c *container.Container, key any) (any, error) {
//	    return dial(key.(container.BuildKey).Args[0].(string))
//	})
func (c *Container) BindKeyed(key any, factory KeyedFactory, opts ...BindOption) error {
	if factory == nil {
		return ErrNilFactory
	}
	return c.register(key, factory, opts)
}

// Provide registers a typed factory under the type key of T.
//
//	container.Provide(c, func(c *container.Container) (*Engine, error) {
//	    return &Engine{Cylinders: 8}, nil
//	})
func Provide[T any](c *Container, factory func(c *Container) (T, error), opts ...BindOption) error {
	if factory == nil {
		return ErrNilFactory
	}
	return c.register(Key[T](), func(c *Container, _ any) (any, error) {
		return factory(c)
	}, opts)
}

// register is the shared registration path.
func (c *Container) register(key any, factory KeyedFactory, opts []BindOption) error {
	var cfg bindConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	s := c.state
	norm := s.canonical(normalize(key))

	s.mu.Lock()
	if s.frozen {
		s.mu.Unlock()
		return &FrozenError{Op: "bind"}
	}
	if _, exists := s.reg.bindings[norm]; exists && !cfg.replace {
		s.mu.Unlock()
		return &DuplicateBindingError{Key: key}
	}

	// Drop a cached value so the key is rebuilt with the new factory
	_, wasResolved := s.instances[norm]
	s.dropInstance(norm)

	s.reg.bindings[norm] = &binding{
		factory:   factory,
		singleton: !cfg.transient,
		closer:    cfg.closer,
	}
	s.mu.Unlock()

	s.log.Debug("container: bound",
		zap.String("key", keyString(key)),
		zap.Bool("singleton", !cfg.transient))

	if wasResolved {
		if v, err := c.Get(key); err == nil {
			s.fireRebound(norm, v)
		}
	}
	return nil
}

// Unbind removes this container's own registration for key. The cached value,
// if any, stays until Forget; parent and source registrations are untouched.
func (c *Container) Unbind(key any) error {
	s := c.state
	norm := s.canonical(normalize(key))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return &FrozenError{Op: "unbind"}
	}
	if _, ok := s.reg.bindings[norm]; !ok {
		return &UnregisteredError{Key: key}
	}
	delete(s.reg.bindings, norm)
	s.log.Debug("container: unbound", zap.String("key", keyString(key)))
	return nil
}

// Alias registers an alternative name for a key. Aliases are resolved before
// every lookup, so the alias and its target are interchangeable.
//
//	// Laravel: $app->alias(Cache::class, 'cache')
//	c.Alias("cache", container.Key[*RedisCache]())
func (c *Container) Alias(alias, target any) error {
	s := c.state
	from := normalize(alias)
	to := normalize(target)
	if from == to {
		return ErrSelfAlias
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return &FrozenError{Op: "alias"}
	}
	s.aliases[from] = to
	return nil
}

// Fallback appends another container's bindings as a lookup source of last
// resort: consulted only when this container (and earlier fallbacks) miss,
// so it fills gaps without shadowing explicit registrations.
func (c *Container) Fallback(other *Container) error {
	return c.addSource(other, false)
}

// Override prepends another container's bindings as the highest-priority
// lookup source, shadowing this container's own registrations.
func (c *Container) Override(other *Container) error {
	return c.addSource(other, true)
}

func (c *Container) addSource(other *Container, override bool) error {
	if other == nil || other.state == c.state {
		return ErrBadSource
	}
	s := c.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		if override {
			return &FrozenError{Op: "override"}
		}
		return &FrozenError{Op: "fallback"}
	}
	if override {
		s.reg.overrides = append([]*state{other.state}, s.reg.overrides...)
	} else {
		s.reg.fallbacks = append(s.reg.fallbacks, other.state)
	}
	return nil
}
