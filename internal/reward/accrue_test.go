package reward

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccrue(t *testing.T) {
	t.Run("linear in elapsed time", func(t *testing.T) {
		assert.Equal(t, uint64(15), Accrue(3, 5))
		assert.Equal(t, uint64(45), Accrue(9, 5))
	})
	t.Run("zero elapsed", func(t *testing.T) {
		assert.Zero(t, Accrue(0, 5))
	})
	t.Run("negative elapsed is clamped", func(t *testing.T) {
		assert.Zero(t, Accrue(-10, 5))
	})
	t.Run("zero rate", func(t *testing.T) {
		assert.Zero(t, Accrue(100, 0))
	})
	t.Run("saturates instead of wrapping", func(t *testing.T) {
		assert.Equal(t, uint64(math.MaxUint64), Accrue(math.MaxInt64, math.MaxUint64))
		assert.Equal(t, uint64(math.MaxUint64), Accrue(3, math.MaxUint64/2))
	})
	t.Run("deterministic", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			assert.Equal(t, Accrue(1234, 77), Accrue(1234, 77))
		}
	})
}

func TestElapsed(t *testing.T) {
	assert.Equal(t, int64(9), Elapsed(3, 12))
	assert.Zero(t, Elapsed(12, 12))
	assert.Zero(t, Elapsed(12, 3))
}

func TestCheckedAdd(t *testing.T) {
	sum, err := CheckedAdd(15, 45)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), sum)

	_, err = CheckedAdd(math.MaxUint64, 1)
	require.ErrorIs(t, err, ErrOverflow)

	assert.Equal(t, uint64(math.MaxUint64), SaturatingAdd(math.MaxUint64, 1))
	assert.Equal(t, uint64(3), SaturatingAdd(1, 2))
}
