package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"prizepool/random"
	"prizepool/yield"
)

func TestRegistryLifecycle(t *testing.T) {
	registry := NewRegistry()
	chain := &fakeChain{height: 1}

	first, err := registry.Create(DefaultConfig("SAVE"), yield.NewStaticVault(), random.NewBeaconProvider(chain), owner)
	require.NoError(t, err)
	second, err := registry.Create(DefaultConfig("USDQ"), yield.NewStaticVault(), random.NewBeaconProvider(chain), owner)
	require.NoError(t, err)
	require.Equal(t, uint64(1), first.ID())
	require.Equal(t, uint64(2), second.ID())

	got, err := registry.Get(1)
	require.NoError(t, err)
	require.Equal(t, "SAVE", got.Asset())
	_, err = registry.Get(3)
	require.ErrorIs(t, err, ErrPoolNotFound)

	require.Equal(t, []uint64{1, 2}, registry.IDs())
	require.Equal(t, 2, registry.Len())
}

func TestRegistryRegisterRestored(t *testing.T) {
	registry := NewRegistry()
	chain := &fakeChain{height: 1}

	engine, err := NewEngine(7, DefaultConfig("SAVE"), yield.NewStaticVault(), random.NewBeaconProvider(chain), owner)
	require.NoError(t, err)
	require.NoError(t, registry.Register(engine))
	require.ErrorIs(t, registry.Register(engine), ErrPoolExists)

	// Fresh pools slot in above the restored identifier.
	next, err := registry.Create(DefaultConfig("USDQ"), yield.NewStaticVault(), random.NewBeaconProvider(chain), owner)
	require.NoError(t, err)
	require.Equal(t, uint64(8), next.ID())
}
