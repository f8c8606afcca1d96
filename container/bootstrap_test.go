package container_test

import (
	"errors"
	"testing"

	"github.com/km-arc/go-container/container"
)

// ── stub providers ────────────────────────────────────────────────────────────

type eagerProvider struct {
	container.BaseProvider
	registerCalled bool
	bootCalled     bool
}

func (p *eagerProvider) Register(app *container.Container) error {
	p.registerCalled = true
	return app.Bind("eager-svc", func(*container.Container) (any, error) { return "eager", nil })
}

func (p *eagerProvider) Boot(*container.Container) error {
	p.bootCalled = true
	return nil
}

// lazyProvider is deferred: only registered when one of its keys is first
// resolved.
type lazyProvider struct {
	container.BaseProvider
	registerCalled int
	bootCalled     bool
}

func (p *lazyProvider) Register(app *container.Container) error {
	p.registerCalled++
	if err := app.Bind("lazy-svc", func(*container.Container) (any, error) { return "lazy-value", nil }); err != nil {
		return err
	}
	return app.Bind("lazy-extra", func(*container.Container) (any, error) { return "extra-value", nil })
}

func (p *lazyProvider) Boot(*container.Container) error {
	p.bootCalled = true
	return nil
}

func (p *lazyProvider) IsDeferred() bool { return true }
func (p *lazyProvider) Provides() []any  { return []any{"lazy-svc", "lazy-extra"} }

// multiProvider registers multiple keys.
type multiProvider struct {
	container.BaseProvider
}

func (p *multiProvider) Register(app *container.Container) error {
	if err := app.Bind("alpha", func(*container.Container) (any, error) { return "α", nil }); err != nil {
		return err
	}
	return app.Bind("beta", func(*container.Container) (any, error) { return "β", nil })
}

// failingProvider surfaces its registration error.
type failingProvider struct {
	container.BaseProvider
	err error
}

func (p *failingProvider) Register(*container.Container) error { return p.err }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

func TestRegistry_EagerProvider_RegisterCalled(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	p := &eagerProvider{}
	if err := reg.Register(p); err != nil {
		t.Fatal(err)
	}

	if !p.registerCalled {
		t.Error("Register() should be called immediately for eager providers")
	}
}

func TestRegistry_EagerProvider_BootCalledAfterBoot(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	p := &eagerProvider{}
	if err := reg.Register(p); err != nil {
		t.Fatal(err)
	}

	if p.bootCalled {
		t.Error("Boot() should NOT be called before registry.Boot()")
	}

	if err := reg.Boot(); err != nil {
		t.Fatal(err)
	}

	if !p.bootCalled {
		t.Error("Boot() should be called after registry.Boot()")
	}
}

func TestRegistry_EagerProvider_ServiceResolvable(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)
	if err := reg.Register(&eagerProvider{}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Boot(); err != nil {
		t.Fatal(err)
	}

	got := c.MustGet("eager-svc").(string)
	if got != "eager" {
		t.Errorf("eager-svc: got %q, want 'eager'", got)
	}
}

func TestRegistry_Boot_IdempotentCallsAreIgnored(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	if err := reg.Register(&eagerProvider{}); err != nil {
		t.Fatal(err)
	}

	if err := reg.Boot(); err != nil {
		t.Fatal(err)
	}
	if err := reg.Boot(); err != nil { // second call should be no-op
		t.Fatal(err)
	}

	if !reg.Booted() {
		t.Error("Booted() should be true after Boot()")
	}
}

func TestRegistry_Booted_FalseBeforeBoot(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)
	if reg.Booted() {
		t.Error("Booted() should be false before Boot()")
	}
}

func TestRegistry_DuplicateRegister_Ignored(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	p := &eagerProvider{}
	if err := reg.Register(p); err != nil {
		t.Fatal(err)
	}
	// second register of the same instance is a no-op, not a duplicate bind
	if err := reg.Register(p); err != nil {
		t.Fatal(err)
	}
}

func TestRegistry_RegisterError_Propagates(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	boom := errors.New("register failed")
	if err := reg.Register(&failingProvider{err: boom}); !errors.Is(err, boom) {
		t.Errorf("got %v, want the provider's registration error", err)
	}
}

// ── Deferred providers ────────────────────────────────────────────────────────

func TestRegistry_DeferredProvider_NotRegisteredEagerly(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	p := &lazyProvider{}
	if err := reg.Register(p); err != nil {
		t.Fatal(err)
	}
	if err := reg.Boot(); err != nil {
		t.Fatal(err)
	}

	if p.registerCalled != 0 {
		t.Error("deferred provider Register() should not be called until first Get()")
	}
}

func TestRegistry_DeferredProvider_RegisteredOnFirstGet(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	p := &lazyProvider{}
	if err := reg.Register(p); err != nil {
		t.Fatal(err)
	}
	if err := reg.Boot(); err != nil {
		t.Fatal(err)
	}

	got := c.MustGet("lazy-svc").(string)
	if got != "lazy-value" {
		t.Errorf("lazy-svc: got %q, want 'lazy-value'", got)
	}
	if p.registerCalled != 1 {
		t.Errorf("Register() calls: got %d, want 1", p.registerCalled)
	}
	if !p.bootCalled {
		t.Error("a deferred provider resolved after Boot() should be booted")
	}
}

func TestRegistry_DeferredProvider_RegisterRunsOnceForAllKeys(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	p := &lazyProvider{}
	if err := reg.Register(p); err != nil {
		t.Fatal(err)
	}

	if got := c.MustGet("lazy-extra").(string); got != "extra-value" {
		t.Errorf("lazy-extra: got %q, want 'extra-value'", got)
	}
	if got := c.MustGet("lazy-svc").(string); got != "lazy-value" {
		t.Errorf("lazy-svc: got %q, want 'lazy-value'", got)
	}
	if p.registerCalled != 1 {
		t.Errorf("Register() calls: got %d, want 1", p.registerCalled)
	}
}

func TestRegistry_DeferredProvider_SingletonCachedAfterFirstGet(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	if err := reg.Register(&lazyProvider{}); err != nil {
		t.Fatal(err)
	}

	first := c.MustGet("lazy-svc")
	second := c.MustGet("lazy-svc")
	if first != second {
		t.Error("deferred singleton should be cached after the first resolution")
	}
	if !c.Resolved("lazy-svc") {
		t.Error("lazy-svc should be cached")
	}
}

func TestRegistry_DeferredProvider_CountsTowardHas(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	if err := reg.Register(&lazyProvider{}); err != nil {
		t.Fatal(err)
	}

	if !c.Has("lazy-svc") {
		t.Error("Has() should see keys advertised by a deferred provider")
	}
}

// ── Multiple providers ────────────────────────────────────────────────────────

func TestRegistry_MultipleProviders_AllServicesResolvable(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)
	if err := reg.Register(&multiProvider{}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(&eagerProvider{}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Boot(); err != nil {
		t.Fatal(err)
	}

	if got := c.MustGet("alpha").(string); got != "α" {
		t.Errorf("alpha: got %q, want 'α'", got)
	}
	if got := c.MustGet("beta").(string); got != "β" {
		t.Errorf("beta: got %q, want 'β'", got)
	}
	if got := c.MustGet("eager-svc").(string); got != "eager" {
		t.Errorf("eager-svc: got %q, want 'eager'", got)
	}
}

// ── Providers list ────────────────────────────────────────────────────────────

func TestRegistry_Providers_ReturnsEagerOnes(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)
	if err := reg.Register(&eagerProvider{}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(&lazyProvider{}); err != nil { // deferred, not in Providers()
		t.Fatal(err)
	}

	if len(reg.Providers()) != 1 {
		t.Errorf("Providers(): got %d, want 1 (eager only)", len(reg.Providers()))
	}
}

// ── BaseProvider defaults ─────────────────────────────────────────────────────

func TestBaseProvider_Defaults(t *testing.T) {
	var p container.BaseProvider
	c := container.New()

	if err := p.Boot(c); err != nil {
		t.Errorf("BaseProvider.Boot() should be a no-op, got %v", err)
	}
	if p.IsDeferred() {
		t.Error("BaseProvider.IsDeferred() should be false")
	}
	if len(p.Provides()) != 0 {
		t.Error("BaseProvider.Provides() should return an empty list")
	}
}

// ── Boot after registration (late provider) ───────────────────────────────────

func TestRegistry_RegisterAfterBoot_BootsImmediately(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)
	if err := reg.Boot(); err != nil { // boot before registering
		t.Fatal(err)
	}

	p := &eagerProvider{}
	if err := reg.Register(p); err != nil { // register after boot
		t.Fatal(err)
	}

	if !p.bootCalled {
		t.Error("provider registered after Boot() should be booted immediately")
	}
}
