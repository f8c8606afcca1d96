package container

// ContextualBuilder implements the fluent contextual binding API.
//
//	// Laravel: $app->when(PhotoController::class)->needs(Filesystem::class)->give(...)
//	c.When(container.Key[*PhotoController]()).
//	    Needs(container.Key[Filesystem]()).
//	    Give(func(c *container.Container, _ any) (any, error) {
//	        return NewS3Filesystem(), nil
//	    })
type ContextualBuilder struct {
	container *Container
	consumer  any
	needs     any
}

// When starts a contextual binding chain: while consumer is being built,
// the factory given here wins over the regular binding for the needed key.
// The consumer is matched against the key one frame up the resolution chain.
func (c *Container) When(consumer any) *ContextualBuilder {
	return &ContextualBuilder{container: c, consumer: consumer}
}

// Needs specifies which key the consumer depends on.
func (b *ContextualBuilder) Needs(key any) *ContextualBuilder {
	b.needs = key
	return b
}

// Give provides the factory used when the consumer resolves the needed key.
// Contextual values are built per resolution and never cached.
func (b *ContextualBuilder) Give(factory KeyedFactory) error {
	s := b.container.state
	consumer := s.canonical(normalize(b.consumer))
	needs := s.canonical(normalize(b.needs))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return &FrozenError{Op: "contextual bind"}
	}
	if _, ok := s.contextual[consumer]; !ok {
		s.contextual[consumer] = make(map[any]KeyedFactory)
	}
	s.contextual[consumer][needs] = factory
	return nil
}

// GiveValue is a shorthand for Give when no factory logic is needed.
//
//	// Laravel: ->give('/tmp/photos')
//	c.When(container.Key[*PhotoController]()).Needs("storagePath").GiveValue("/tmp/photos")
func (b *ContextualBuilder) GiveValue(value any) error {
	return b.Give(func(*Container, any) (any, error) { return value, nil })
}
