package container_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-container/container"
)

// ── stub providers ────────────────────────────────────────────────────────────

// TopicKey is a marker key claimed by the subscription provider.
type TopicKey struct {
	Name string
}

func topicProvider(calls *int) container.Provider {
	return container.ProviderFunc(
		func(key any) bool { _, ok := key.(TopicKey); return ok },
		func(_ *container.Container, key any) (any, error) {
			*calls++
			return "sub:" + key.(TopicKey).Name, nil
		},
	)
}

// prefixProvider claims string keys with a prefix, demonstrating shape-based
// predicates.
func prefixProvider(prefix, value string) container.Provider {
	return container.ProviderFunc(
		func(key any) bool {
			s, ok := key.(string)
			return ok && strings.HasPrefix(s, prefix)
		},
		func(*container.Container, any) (any, error) { return value, nil },
	)
}

// ── Chain semantics ───────────────────────────────────────────────────────────

func TestProviders_FirstClaimingWins(t *testing.T) {
	c := container.New()
	require.NoError(t, c.AddProvider(prefixProvider("feature.", "from-first")))
	require.NoError(t, c.AddProvider(prefixProvider("feature.", "from-second")))

	got, err := c.Get("feature.search")
	require.NoError(t, err)
	assert.Equal(t, "from-first", got, "providers are consulted in registration order")
}

func TestProviders_SentinelPassesToNext(t *testing.T) {
	c := container.New()
	require.NoError(t, c.AddProvider(container.ProviderFunc(
		func(key any) bool { _, ok := key.(string); return ok },
		func(*container.Container, any) (any, error) { return nil, container.ErrNoProvide },
	)))
	require.NoError(t, c.AddProvider(prefixProvider("feature.", "served")))

	got, err := c.Get("feature.search")
	require.NoError(t, err)
	assert.Equal(t, "served", got, "ErrNoProvide hands the key down the chain")
}

func TestProviders_NoClaimIsNotFound(t *testing.T) {
	c := container.New()
	require.NoError(t, c.AddProvider(prefixProvider("feature.", "served")))

	_, err := c.Get("other.search")
	var nf *container.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestProviders_ClaimFailureEndsTheChain(t *testing.T) {
	c := container.New()
	boom := errors.New("backend down")
	require.NoError(t, c.AddProvider(container.ProviderFunc(
		func(key any) bool { return key == "feature.search" },
		func(*container.Container, any) (any, error) { return nil, boom },
	)))
	require.NoError(t, c.AddProvider(prefixProvider("feature.", "never")))

	_, err := c.Get("feature.search")
	var be *container.BuildError
	require.ErrorAs(t, err, &be)
	assert.ErrorIs(t, err, boom)
}

func TestProviders_MarkerKeysAndShapePredicates(t *testing.T) {
	c := container.New()
	calls := 0
	require.NoError(t, c.AddProvider(topicProvider(&calls)))

	got, err := c.Get(TopicKey{Name: "orders"})
	require.NoError(t, err)
	assert.Equal(t, "sub:orders", got)
	assert.Equal(t, 1, calls)
}

func TestProviders_ValuesNeverCached(t *testing.T) {
	c := container.New()
	calls := 0
	require.NoError(t, c.AddProvider(topicProvider(&calls)))

	c.MustGet(TopicKey{Name: "orders"})
	c.MustGet(TopicKey{Name: "orders"})

	assert.Equal(t, 2, calls, "every resolution asks the chain again")
	assert.False(t, c.Resolved(TopicKey{Name: "orders"}))
}

func TestProviders_BindingsTakePrecedence(t *testing.T) {
	c := container.New()
	calls := 0
	require.NoError(t, c.AddProvider(topicProvider(&calls)))
	require.NoError(t, c.BindKeyed(TopicKey{Name: "orders"}, func(*container.Container, any) (any, error) {
		return "bound", nil
	}))

	got, err := c.Get(TopicKey{Name: "orders"})
	require.NoError(t, err)
	assert.Equal(t, "bound", got)
	assert.Zero(t, calls, "the chain is a source of last resort")
}

func TestProviders_ExtendersApply(t *testing.T) {
	c := container.New()
	require.NoError(t, c.AddProvider(prefixProvider("feature.", "raw")))
	require.NoError(t, c.Extend("feature.search", func(v any, _ *container.Container) (any, error) {
		return v.(string) + "+decorated", nil
	}))

	got, err := c.Get("feature.search")
	require.NoError(t, err)
	assert.Equal(t, "raw+decorated", got)
}

func TestProviders_CountTowardHasAndForget(t *testing.T) {
	c := container.New()
	calls := 0
	require.NoError(t, c.AddProvider(topicProvider(&calls)))

	assert.True(t, c.Has(TopicKey{Name: "orders"}))
	assert.NoError(t, c.Forget(TopicKey{Name: "orders"}),
		"forgetting a provider-backed key just forces recomputation")
}

func TestProviders_ScopeChainsOwnFirst(t *testing.T) {
	parent := container.New()
	require.NoError(t, parent.AddProvider(prefixProvider("feature.", "parent")))

	scope := parent.Scope()
	require.NoError(t, scope.AddProvider(prefixProvider("feature.", "scoped")))

	assert.Equal(t, "scoped", scope.MustGet("feature.search"))
	assert.Equal(t, "parent", parent.MustGet("feature.search"))
}

func TestAddProvider_Nil(t *testing.T) {
	c := container.New()
	assert.ErrorIs(t, c.AddProvider(nil), container.ErrNilProvider)
}

func TestProviders_NestedResolutionCycleDetected(t *testing.T) {
	c := container.New()
	require.NoError(t, c.AddProvider(container.ProviderFunc(
		func(key any) bool { return key == "loop" },
		func(c *container.Container, _ any) (any, error) { return c.Get("loop") },
	)))

	_, err := c.Get("loop")
	var cycle *container.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []any{"loop", "loop"}, cycle.Path)
}
