// Package container provides a Laravel-style IoC (Inversion of Control)
// container for Go, with keyed bindings, chained value providers, scoped
// child containers and reflection-based function and struct injection.
//
// # Overview
//
// The container manages the instantiation and lifecycle of your
// application's dependencies. Bindings are lazy: a factory registered under
// a key runs the first time the key is resolved, and by default the result
// is cached as a singleton. Pass Transient() to rebuild on every
// resolution.
//
// It takes Laravel's Illuminate\Container\Container as its model where Go
// allows, with two deliberate departures: factories return errors instead
// of throwing, and keys are not limited to strings. A key may be a string,
// a type (via Key[T]), or a BuildKey carrying arguments, and all of them
// resolve through the same Get.
//
// # Container Lifecycle
//
//  1. Create: c := container.New()
//  2. Register bindings, directly or through providers
//  3. Freeze (optional): c.Freeze() locks the registry
//  4. Resolve and serve
//  5. Close: c.Close() tears down what the container built
//
// # Keys
//
//	c.Bind("cache", newCache)                   // string key
//	c.Bind(container.Key[*Engine](), newEngine) // type key
//	c.Get(container.Build("conn", "primary", 5432)) // parameterized
//
// BuildKeys with equal base and arguments are the same key: resolve both
// and the singleton cache returns one value.
//
// # Bindings
//
//	// Singleton, the default
//	// Laravel: $app->singleton(Cache::class, fn($app) => new RedisCache)
//	c.Bind("cache", func(c *container.Container) (any, error) {
//	    cfg, err := container.Resolve[*config.Config](c, "config")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return cache.NewRedis(cfg), nil
//	})
//
//	// Transient, new value every Get
//	// Laravel: $app->bind(Foo::class, fn($app) => new Foo)
//	c.Bind("foo", newFoo, container.Transient())
//
//	// Pre-built value
//	// Laravel: $app->instance(Config::class, $config)
//	c.Instance("config", cfg)
//
//	// Alias
//	// Laravel: $app->alias(Cache::class, 'cache')
//	c.Alias("cache.store", "cache")
//
// Binding a key twice is an error; pass Replace() to rebind deliberately.
// CloseWith attaches a teardown function used by Close.
//
// # Resolving
//
//	// Untyped
//	// Laravel: $app->make(Cache::class)
//	raw, err := c.Get("cache")
//
//	// Generic (preferred, no type assertion required)
//	cache, err := container.Resolve[*RedisCache](c, "cache")
//	engine, err := container.Resolve[*Engine](c) // key defaults to Key[*Engine]()
//
// A factory may resolve further keys through the container handle it
// receives. Cycles are detected per call path and reported as a *CycleError
// listing the keys in order of entry.
//
// # Scopes
//
//	child := c.Scope()
//	child.Bind("db", newTestDB, container.Replace())
//	child.Exclude("mailer") // missing here even though the parent binds it
//
// A scope resolves its own bindings first and falls back to the parent.
// Its cache is separate, so scoped singletons do not leak upward.
// Fallback and Override chain whole containers instead: overrides win over
// own bindings, fallbacks fill gaps.
//
// # Value Providers
//
// Providers are consulted, in order, when no binding matches a key. The
// first provider whose CanProvide claims the key supplies the value;
// returning ErrNoProvide passes the key down the chain.
//
//	c.AddProvider(container.ProviderFunc(
//	    func(key any) bool { _, ok := key.(TopicKey); return ok },
//	    func(c *container.Container, key any) (any, error) {
//	        return subscribe(key.(TopicKey).Name)
//	    },
//	))
//
// # Contextual Binding
//
//	// Laravel: $app->when(PhotoController::class)
//	//              ->needs(Filesystem::class)
//	//              ->give(fn() => new S3Filesystem)
//	c.When(container.Key[*PhotoController]()).
//	    Needs(container.Key[Filesystem]()).
//	    Give(func(c *container.Container, _ any) (any, error) {
//	        return &S3Filesystem{}, nil
//	    })
//
// # Tags
//
//	// Laravel: $app->tag([CpuReport::class, MemReport::class], 'reports')
//	c.Tag([]any{container.Key[*CpuReport](), container.Key[*MemReport]()}, "reports")
//	reports, err := c.Tagged("reports")
//
// # Extend / Decorate
//
//	// Laravel: $app->extend(Logger::class, fn($logger, $app) => new Timestamped($logger))
//	c.Extend("logger", func(instance any, c *container.Container) (any, error) {
//	    return &Timestamped{Inner: instance.(*Logger)}, nil
//	})
//
// # Function and Struct Injection
//
// Invoke calls a function, resolving each informative parameter type from
// the container. Supplied arguments fill the leading parameters and win
// over injection; the remaining parameters are resolved by type.
//
//	out, err := c.Invoke(func(label string, e *Engine) string {
//	    return label + ": " + e.Name
//	}, "car")
//
// Inject returns a reusable wrapper whose injection plan is computed once.
// Fill populates the exported fields of a struct, honoring `inject` tags:
//
//	type Garage struct {
//	    Engine *Engine  `inject:""`
//	    Cache  Cache    `inject:"cache"`
//	    Extra  *Spare   `inject:"spare,optional"`
//	    Note   string   // no tag, left alone unless UseName is given
//	}
//	err := c.Fill(&Garage{})
//
// Fields already holding a non-zero value are left untouched, so callers
// win over injection. WithArg and WithName pin specific parameters or
// fields to chosen keys.
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(app *container.Container) error {
//	    return app.Bind("mailer", func(c *container.Container) (any, error) {
//	        cfg, err := container.Resolve[*config.Config](c, "config")
//	        if err != nil {
//	            return nil, err
//	        }
//	        return mail.NewSMTP(cfg.Mail), nil
//	    })
//	}
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(&AppServiceProvider{})
//	registry.Boot()
//
// # Deferred Providers
//
//	type HeavyProvider struct{ container.BaseProvider }
//
//	func (p *HeavyProvider) IsDeferred() bool { return true }
//	func (p *HeavyProvider) Provides() []any  { return []any{"heavy"} }
//	func (p *HeavyProvider) Register(app *container.Container) error {
//	    return app.Bind("heavy", func(c *container.Container) (any, error) {
//	        return heavySetup() // only called on first app.Get("heavy")
//	    })
//	}
//
// # Freezing and Teardown
//
// Freeze locks the registry: further Bind, Alias, Extend, Tag, AddProvider
// and contextual registrations fail with *FrozenError. The cache stays
// live, Instance and Forget keep working, so tests can still swap values
// on a frozen production graph.
//
// Close tears down factory-built singletons in reverse creation order,
// preferring a CloseWith function and falling back to io.Closer. Values
// placed with Instance belong to the caller and are left alone.
package container
