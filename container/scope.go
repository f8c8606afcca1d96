package container

// ── Scopes ────────────────────────────────────────────────────────────────────

// Scope derives a child container that inherits this container's registry:
// bindings, providers, contextual bindings, aliases, extenders and tags all
// read through to the parent. The cache is independent, so singletons built
// in the scope live and die with the scope, and Close on the scope never
// touches the parent's values. Registrations on the scope shadow the
// parent's; Exclude hides parent keys entirely.
//
// A scope replaces swap-the-global test patterns: build the application
// container once, derive a scope per test or per unit of work, override what
// the scope needs, close it when done.
func (c *Container) Scope() *Container {
	p := c.state
	s := newState()
	s.parent = p
	s.log = p.log
	s.inspector = p.inspector

	sc := &Container{state: s}
	sc.Instance("container", sc)
	sc.Instance(Key[*Container](), sc)
	return sc
}

// Exclude marks keys as missing in this container: Get fails with
// *NotFoundError and Has reports false, even when a parent or source could
// supply them. Injection then treats the keys as absent, which lets a test
// scope force optional dependencies back to their defaults. Keys are
// canonicalized first, so excluding an alias hides its target and every
// other alias of it.
func (c *Container) Exclude(keys ...any) {
	s := c.state
	norms := make([]any, len(keys))
	for i, k := range keys {
		norms[i] = s.canonical(normalize(k))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range norms {
		s.excluded[n] = struct{}{}
	}
}

// Parent returns the parent container of a scope, or nil for a root.
func (c *Container) Parent() *Container {
	if c.state.parent == nil {
		return nil
	}
	return &Container{state: c.state.parent}
}

// ── Parent-walking lookups ────────────────────────────────────────────────────

func (s *state) isExcluded(norm any) bool {
	s.mu.RLock()
	_, ok := s.excluded[norm]
	s.mu.RUnlock()
	return ok
}

// canonical follows aliases (own first, then parents) to the canonical key.
// The base of a parameterized key is canonicalized too, so Build("db", x)
// and Build(alias-of-db, x) share one cache identity.
func (s *state) canonical(norm any) any {
	if id, ok := norm.(buildID); ok {
		return buildID{base: s.canonical(id.base), args: id.args}
	}
	// alias chains are short; the bound only guards against alias loops
	for hops := 0; hops < 32; hops++ {
		target, ok := s.aliasTarget(norm)
		if !ok {
			return norm
		}
		norm = target
	}
	return norm
}

func (s *state) aliasTarget(norm any) (any, bool) {
	s.mu.RLock()
	target, ok := s.aliases[norm]
	s.mu.RUnlock()
	if ok {
		return target, true
	}
	if s.parent != nil {
		return s.parent.aliasTarget(norm)
	}
	return nil, false
}

// localBinding consults only this state's own binding table.
func (s *state) localBinding(norm any) *binding {
	s.mu.RLock()
	b := s.reg.bindings[norm]
	s.mu.RUnlock()
	return b
}

// bindingFor resolves norm to its binding. A parameterized key with no
// exact registration falls back to the binding of its base key; the factory
// still receives the full key, arguments included.
func (s *state) bindingFor(norm any) *binding {
	if b := s.findBinding(norm); b != nil {
		return b
	}
	if id, ok := norm.(buildID); ok {
		return s.findBinding(id.base)
	}
	return nil
}

// findBinding walks override sources, own bindings, fallback sources, then
// the parent scope.
func (s *state) findBinding(norm any) *binding {
	s.mu.RLock()
	overrides := s.reg.overrides
	fallbacks := s.reg.fallbacks
	own := s.reg.bindings[norm]
	s.mu.RUnlock()

	for _, o := range overrides {
		if b := o.localBinding(norm); b != nil {
			return b
		}
	}
	if own != nil {
		return own
	}
	for _, f := range fallbacks {
		if b := f.localBinding(norm); b != nil {
			return b
		}
	}
	if s.parent != nil {
		return s.parent.findBinding(norm)
	}
	return nil
}

// contextualFor returns the contextual factory for (consumer, needed), own
// bindings first, then the parent's.
func (s *state) contextualFor(consumer, needed any) KeyedFactory {
	s.mu.RLock()
	if m, ok := s.contextual[consumer]; ok {
		if f, ok := m[needed]; ok {
			s.mu.RUnlock()
			return f
		}
	}
	s.mu.RUnlock()
	if s.parent != nil {
		return s.parent.contextualFor(consumer, needed)
	}
	return nil
}

// extendersFor collects the extenders to apply to norm. For a parameterized
// key, the base key's extenders run first, then any registered for the exact
// argument set.
func (s *state) extendersFor(norm any) []Extender {
	if id, ok := norm.(buildID); ok {
		base := s.chainExtenders(id.base)
		exact := s.chainExtenders(norm)
		if len(exact) == 0 {
			return base
		}
		out := make([]Extender, 0, len(base)+len(exact))
		out = append(out, base...)
		out = append(out, exact...)
		return out
	}
	return s.chainExtenders(norm)
}

// chainExtenders collects extenders for exactly norm, parent-first, so a
// scope's decorators wrap the parent's.
func (s *state) chainExtenders(norm any) []Extender {
	var inherited []Extender
	if s.parent != nil {
		inherited = s.parent.chainExtenders(norm)
	}
	s.mu.RLock()
	own := s.extenders[norm]
	s.mu.RUnlock()
	if len(own) == 0 {
		return inherited
	}
	out := make([]Extender, 0, len(inherited)+len(own))
	out = append(out, inherited...)
	out = append(out, own...)
	return out
}

// allProviders returns the provider chain: own providers first, then the
// parent's, each in registration order.
func (s *state) allProviders() []Provider {
	s.mu.RLock()
	own := make([]Provider, len(s.providers))
	copy(own, s.providers)
	s.mu.RUnlock()
	if s.parent == nil {
		return own
	}
	return append(own, s.parent.allProviders()...)
}

// tagsFor merges the parent's tag members with this container's.
func (s *state) tagsFor(tag string) []any {
	var inherited []any
	if s.parent != nil {
		inherited = s.parent.tagsFor(tag)
	}
	s.mu.RLock()
	own := s.tags[tag]
	s.mu.RUnlock()
	if len(own) == 0 {
		return inherited
	}
	out := make([]any, 0, len(inherited)+len(own))
	out = append(out, inherited...)
	out = append(out, own...)
	return out
}
