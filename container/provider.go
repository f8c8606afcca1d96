package container

import "errors"

// ── Chained value providers ───────────────────────────────────────────────────

// Provider is a resolution source of last resort: when no binding matches a
// key, providers are consulted in registration order and the first one that
// claims the key supplies the value.
//
// CanProvide receives the key as the caller passed it (a BuildKey arrives
// intact), so predicates can match on shape, not just identity. Provide may
// still bow out after claiming by returning ErrNoProvide, which passes the
// key to the next provider in the chain. Provider values are not cached;
// every resolution asks again.
type Provider interface {
	CanProvide(key any) bool
	Provide(key any, c *Container) (any, error)
}

// ProviderFunc builds a Provider from a predicate and a factory.
//
//	c.AddProvider(container.ProviderFunc(
//	    func(key any) bool { _, ok := key.(TopicKey); return ok },
//	    func(c *container.Container, key any) (any, error) {
//	        return subscribe(key.(TopicKey).Name)
//	    },
//	))
func ProviderFunc(match func(key any) bool, factory KeyedFactory) Provider {
	return &funcProvider{match: match, factory: factory}
}

type funcProvider struct {
	match   func(key any) bool
	factory KeyedFactory
}

func (p *funcProvider) CanProvide(key any) bool {
	return p.match(key)
}

func (p *funcProvider) Provide(key any, c *Container) (any, error) {
	return p.factory(c, key)
}

// AddProvider appends a provider to the chain.
func (c *Container) AddProvider(p Provider) error {
	if p == nil {
		return ErrNilProvider
	}
	s := c.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return &FrozenError{Op: "add provider"}
	}
	s.providers = append(s.providers, p)
	return nil
}

// tryProviders walks the chain. claimed is false when no provider took the
// key at all; a claim that fails (other than ErrNoProvide) ends the chain.
func (c *Container) tryProviders(raw, norm any) (v any, claimed bool, err error) {
	s := c.state
	for _, p := range s.allProviders() {
		if !p.CanProvide(raw) {
			continue
		}
		d := c.fork(raw, norm)
		v, err = p.Provide(raw, d)
		if err != nil {
			if errors.Is(err, ErrNoProvide) {
				continue
			}
			var cycle *CycleError
			if errors.As(err, &cycle) {
				return nil, true, err
			}
			return nil, true, &BuildError{Key: raw, Err: err}
		}
		if _, ok := p.(*deferredProvider); ok {
			// resolved through a real binding, extenders and callbacks
			// have already run
			return v, true, nil
		}
		for _, ext := range s.extendersFor(norm) {
			v, err = ext(v, d)
			if err != nil {
				return nil, true, &BuildError{Key: raw, Err: err}
			}
		}
		s.fireAfterResolving(raw, v)
		return v, true, nil
	}
	return nil, false, nil
}

// providerClaims reports whether any provider in the chain claims key.
func (c *Container) providerClaims(raw any) bool {
	for _, p := range c.state.allProviders() {
		if p.CanProvide(raw) {
			return true
		}
	}
	return false
}
