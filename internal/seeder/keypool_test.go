package seeder

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestKeyPoolsLifecycle(t *testing.T) {
	pools := NewKeyPools()
	require.NoError(t, pools.Begin("users", "id"))
	require.ErrorIs(t, pools.Begin("users", "id"), errPoolExists)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, pools.Register("users", "id", i))
	}
	assert.Error(t, pools.Register("users", "email", "a@b.c"))
	assert.ErrorIs(t, pools.Register("orders", "id", int64(1)), errNoPool)

	// Unfrozen pools are invisible.
	assert.False(t, pools.Frozen("users"))
	assert.Nil(t, pools.Keys("users", "id"))
	assert.Equal(t, 3, pools.Len("users", "id"))
	assert.Zero(t, pools.Len("orders", "id"))
	_, err := pools.Sample(testRand(), "users", "id", nil)
	var empty *EmptyParentPoolError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, "users", empty.Table)

	require.NoError(t, pools.Freeze("users"))
	assert.True(t, pools.Frozen("users"))
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, pools.Keys("users", "id"))
	assert.ErrorIs(t, pools.Register("users", "id", int64(4)), errPoolFrozen)

	r := testRand()
	for range 50 {
		v, err := pools.Sample(r, "users", "id", nil)
		require.NoError(t, err)
		assert.Contains(t, []any{int64(1), int64(2), int64(3)}, v)
	}

	pools.Release("users")
	assert.False(t, pools.Frozen("users"))
}

func TestKeyPoolsSampleEmpty(t *testing.T) {
	pools := NewKeyPools()
	require.NoError(t, pools.Begin("users", "id"))
	require.NoError(t, pools.Freeze("users"))

	_, err := pools.Sample(testRand(), "users", "id", nil)
	var empty *EmptyParentPoolError
	assert.ErrorAs(t, err, &empty)

	_, err = pools.Sample(testRand(), "ghosts", "id", nil)
	assert.ErrorAs(t, err, &empty)
}

func TestBalanceSpreadsReferences(t *testing.T) {
	r := testRand()
	b := NewBalance(3)
	counts := make([]int, 7)
	for range 21 {
		counts[b.next(r, 7)]++
	}
	for i, c := range counts {
		assert.Equal(t, 3, c, "key %d", i)
	}

	// Past the target, sampling stays in range.
	for range 100 {
		idx := b.next(r, 7)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 7)
	}
}

func TestBalanceFewerChildrenThanKeys(t *testing.T) {
	r := testRand()
	b := NewBalance(1)
	seen := make(map[int]bool)
	for range 10 {
		idx := b.next(r, 20)
		assert.False(t, seen[idx], "key %d drawn twice", idx)
		seen[idx] = true
	}
}

func TestChoice(t *testing.T) {
	r := testRand()

	c := newChoice(3, []float64{0, 1, 0})
	for range 100 {
		assert.Equal(t, 1, c.index(r))
	}

	uniform := newChoice(4, nil)
	hits := make([]int, 4)
	for range 4000 {
		hits[uniform.index(r)]++
	}
	for i, h := range hits {
		assert.InDelta(t, 1000, h, 150, "index %d", i)
	}

	skewed := newChoice(2, []float64{1, 3})
	second := 0
	for range 4000 {
		if skewed.index(r) == 1 {
			second++
		}
	}
	assert.InDelta(t, 3000, second, 150)
}

func TestSourceFactoryIsStable(t *testing.T) {
	a := newSourceFactory(42, "users")
	b := newSourceFactory(42, "users")
	other := newSourceFactory(42, "orders")

	assert.Equal(t, a.row(7).Uint64(), b.row(7).Uint64())
	assert.NotEqual(t, a.row(7).Uint64(), a.row(8).Uint64())
	assert.NotEqual(t, a.row(7).Uint64(), other.row(7).Uint64())
	assert.NotEqual(t, a.row(7).Uint64(), newSourceFactory(43, "users").row(7).Uint64())
}
