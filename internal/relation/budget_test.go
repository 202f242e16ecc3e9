package relation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHopBudget_WithinLimit(t *testing.T) {
	b := NewHopBudget(3)
	for i := 0; i < 3; i++ {
		assert.NoError(t, b.Spend(1), "hop %d should be allowed", i+1)
	}
	assert.Equal(t, 3, b.Current())
	assert.Equal(t, 3, b.MaxHops())
}

func TestHopBudget_ExceedsLimit(t *testing.T) {
	b := NewHopBudget(2)
	require.NoError(t, b.Spend(7))
	require.NoError(t, b.Spend(7))

	err := b.Spend(7)
	require.Error(t, err)

	var ce *CeilingError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 7, int(ce.Source))
	assert.Equal(t, 3, ce.Hops)
	assert.Equal(t, 2, ce.Limit)
	assert.Contains(t, err.Error(), "exceeded hop ceiling")
}

func TestIsCeilingError_Wrapped(t *testing.T) {
	err := fmt.Errorf("walk: %w", &CeilingError{Source: 1, Hops: 2, Limit: 1})
	assert.True(t, IsCeilingError(err))
	assert.False(t, IsCeilingError(fmt.Errorf("other")))
}

func TestVisited(t *testing.T) {
	v := newVisited(1, 2)
	assert.True(t, v.has(1))
	assert.False(t, v.has(3))
	v.add(3)
	v.add(3)
	assert.True(t, v.has(3))
	assert.Equal(t, 3, v.size())
}
