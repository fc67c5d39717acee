package chronos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArena(t *testing.T) {
	a := NewArena(10)
	b1, err := a.Alloc(4)
	require.NoError(t, err)
	b2, err := a.Alloc(6)
	require.NoError(t, err)
	assert.Equal(t, 10, a.Used())
	assert.Len(t, b1, 4)
	assert.Equal(t, 4, cap(b1), "capped so appends can't reach b2")

	b1[3] = 1
	assert.Zero(t, b2[0])

	_, err = a.Alloc(1)
	assert.ErrorIs(t, err, ErrArenaExhausted)
	_, err = a.Alloc(-1)
	assert.ErrorIs(t, err, ErrArenaExhausted)

	b2[0] = 7
	a.Reset()
	assert.Zero(t, a.Used())
	b3, err := a.Alloc(10)
	require.NoError(t, err)
	assert.Equal(t, make([]float64, 10), b3, "zeroed after reset")
}

func TestArenaEmpty(t *testing.T) {
	a := NewArena(-5)
	assert.Zero(t, a.Cap())
	b, err := a.Alloc(0)
	assert.NoError(t, err)
	assert.Empty(t, b)
}
