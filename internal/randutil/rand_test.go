package randutil

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsReproducible(t *testing.T) {
	t.Parallel()

	a, b := New(42), New(42)
	for range 16 {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
	assert.NotEqual(t, New(1).Uint64(), New(2).Uint64())
}

func TestOrder(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int{0, 1, 2, 3}, Order(0, 4))
	assert.Empty(t, Order(7, 0))

	p := Order(7, 32)
	assert.Equal(t, p, Order(7, 32))

	sorted := slices.Clone(p)
	slices.Sort(sorted)
	assert.Equal(t, Order(0, 32), sorted, "a shuffle keeps every index exactly once")
	assert.NotEqual(t, Order(0, 32), p)
}
