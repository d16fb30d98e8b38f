package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/switchboard-ai/switchboard/pkg/provider"
	"github.com/switchboard-ai/switchboard/pkg/types"
)

func testAdapter() provider.Adapter {
	return provider.AdapterFunc(func(_ context.Context, _ *types.Request) (*types.Response, error) {
		return &types.Response{ID: "test"}, nil
	})
}

func testDescriptor(name string, models ...string) *provider.Descriptor {
	return &provider.Descriptor{
		Name:         name,
		Capabilities: provider.Capabilities{Models: models},
		Adapter:      testAdapter(),
	}
}

func TestRegistryRegister(t *testing.T) {
	r := New()

	require.NoError(t, r.Register(testDescriptor("primary", "gpt-4o")))
	require.NoError(t, r.Register(testDescriptor("backup", "gpt-4o-mini")))
	assert.Equal(t, 2, r.Len())

	t.Run("duplicate name fails", func(t *testing.T) {
		err := r.Register(testDescriptor("primary"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProviderExists)
		assert.Equal(t, 2, r.Len())
	})

	t.Run("nil adapter fails", func(t *testing.T) {
		err := r.Register(&provider.Descriptor{Name: "broken"})
		require.Error(t, err)
	})

	t.Run("empty name fails", func(t *testing.T) {
		err := r.Register(&provider.Descriptor{Adapter: testAdapter()})
		require.Error(t, err)
	})
}

func TestRegistryFreeze(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(testDescriptor("primary")))

	r.Freeze()

	err := r.Register(testDescriptor("late"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFrozen)

	// Lookups still work after freeze.
	_, ok := r.Resolve("primary")
	assert.True(t, ok)
}

func TestRegistryResolve(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(testDescriptor("primary", "gpt-4o")))

	d, ok := r.Resolve("primary")
	require.True(t, ok)
	assert.Equal(t, "primary", d.Name)

	_, ok = r.Resolve("ghost")
	assert.False(t, ok)
}

func TestRegistryCapabilitiesOf(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(testDescriptor("primary", "gpt-4o", "gpt-4o-mini")))

	caps, ok := r.CapabilitiesOf("primary")
	require.True(t, ok)
	assert.Len(t, caps.Models, 2)

	_, ok = r.CapabilitiesOf("ghost")
	assert.False(t, ok)
}

func TestRegistryNames(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(testDescriptor("zeta")))
	require.NoError(t, r.Register(testDescriptor("alpha")))

	assert.Equal(t, []string{"alpha", "zeta"}, r.Names())
}
