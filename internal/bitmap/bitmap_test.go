package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetTestPositions(t *testing.T) {
	b := New()
	b.Set(0)
	b.Set(63)
	b.Set(64)
	b.Set(500)

	assert.True(t, b.Test(0))
	assert.True(t, b.Test(63))
	assert.True(t, b.Test(64))
	assert.True(t, b.Test(500))
	assert.False(t, b.Test(1))
	assert.False(t, b.Test(501))

	assert.Equal(t, []int{0, 63, 64, 500}, b.Positions())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b := New()
	for _, p := range []int{3, 70, 71, 1000, 1001, 1002} {
		b.Set(p)
	}

	encoded := b.Encode()
	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, b.Positions(), decoded.Positions())
}

func TestEncodeEmpty(t *testing.T) {
	b := New()
	encoded := b.Encode()
	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Empty(t, decoded.Positions())
}
