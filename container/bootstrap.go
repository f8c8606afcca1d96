package container

import "sync"

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups related registrations and their startup logic.
//
// Register binds services; do not resolve other bindings there. Boot runs
// after all providers have registered, so it may resolve anything.
//
//	// Laravel:
//	// class AppServiceProvider extends ServiceProvider {
//	//     public function register(): void { $this->app->singleton(...); }
//	//     public function boot(): void     { /* use resolved services */ }
//	// }
//
//	type MailProvider struct{ container.BaseProvider }
//
//	func (p *MailProvider) Register(app *container.Container) error {
//	    return app.Bind("mailer", func(c *container.Container) (any, error) {
//	        cfg, err := container.Resolve[*config.Config](c, "config")
//	        if err != nil {
//	            return nil, err
//	        }
//	        return mail.NewSMTP(cfg.Mail), nil
//	    })
//	}
type ServiceProvider interface {
	// Register binds services into the container.
	Register(app *Container) error

	// Boot is called after all providers are registered.
	Boot(app *Container) error

	// Provides returns the keys this provider registers. Only consulted for
	// deferred providers.
	Provides() []any

	// IsDeferred defers Register until one of the Provides keys is first
	// resolved.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable no-op implementation of everything except
// Register. Embed it and override what you need.
//
//	type MyProvider struct{ container.BaseProvider }
//	func (p *MyProvider) Register(app *container.Container) error { ... }
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []any         { return nil }
func (p *BaseProvider) IsDeferred() bool        { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders.
// Deferred providers do not register up front; they join the container's
// provider chain claiming their advertised keys, and the first resolution of
// one of those keys triggers the real registration.
type ProviderRegistry struct {
	app *Container

	mu         sync.Mutex
	eager      []ServiceProvider
	registered map[ServiceProvider]bool
	booted     bool
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and runs its Register method, unless deferred.
// Registering the same provider twice is a no-op.
//
//	// Laravel: $app->register(new AppServiceProvider($app))
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	r.mu.Lock()
	if r.registered[provider] {
		r.mu.Unlock()
		return nil
	}
	r.registered[provider] = true
	booted := r.booted
	r.mu.Unlock()

	if provider.IsDeferred() {
		keys := make(map[any]struct{})
		for _, k := range provider.Provides() {
			keys[normalize(k)] = struct{}{}
		}
		return r.app.AddProvider(&deferredProvider{registry: r, provider: provider, keys: keys})
	}

	if err := provider.Register(r.app); err != nil {
		return err
	}
	r.mu.Lock()
	r.eager = append(r.eager, provider)
	r.mu.Unlock()

	if booted {
		return provider.Boot(r.app)
	}
	return nil
}

// Boot runs Boot on every eager provider, in registration order. Safe to
// call once; later calls are no-ops.
//
//	// Laravel: $app->boot()
func (r *ProviderRegistry) Boot() error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	eager := make([]ServiceProvider, len(r.eager))
	copy(eager, r.eager)
	r.mu.Unlock()

	for _, provider := range eager {
		if err := provider.Boot(r.app); err != nil {
			return err
		}
	}
	return nil
}

// Booted reports whether Boot has run.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns the registered eager providers.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ServiceProvider, len(r.eager))
	copy(out, r.eager)
	return out
}

// ── Deferred providers ────────────────────────────────────────────────────────

// deferredProvider rides the container's provider chain: it claims the keys
// its ServiceProvider advertises and performs the real registration on first
// demand, then resolves the key from the fresh binding.
type deferredProvider struct {
	registry *ProviderRegistry
	provider ServiceProvider
	keys     map[any]struct{}

	once   sync.Once
	regErr error
}

func (d *deferredProvider) CanProvide(key any) bool {
	_, ok := d.keys[normalize(key)]
	return ok
}

func (d *deferredProvider) Provide(key any, c *Container) (any, error) {
	d.once.Do(func() {
		d.regErr = d.provider.Register(c)
		if d.regErr == nil && d.registry.Booted() {
			d.regErr = d.provider.Boot(c)
		}
	})
	if d.regErr != nil {
		return nil, d.regErr
	}

	// The key is already on this handle's chain, so going back through Get
	// would read as a cycle; resolve the fresh binding directly.
	s := c.state
	norm := s.canonical(normalize(key))
	if b := s.bindingFor(norm); b != nil {
		return c.fromBinding(key, norm, b)
	}
	return nil, &NotFoundError{Key: key}
}
