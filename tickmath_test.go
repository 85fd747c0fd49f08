package dex

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestTickToSqrtPriceAtZeroIsOne(t *testing.T) {
	v, err := tickToSqrtPrice(0)
	require.NoError(t, err)
	require.True(t, v.Equal(ONE), "tick 0 should map to sqrtPrice == 1.0")
}

func TestTickToSqrtPriceRejectsOutOfBounds(t *testing.T) {
	_, err := tickToSqrtPrice(MaxTick + 1)
	require.Error(t, err)
	require.Equal(t, ValidationFailed, KindOf(err))
}

// TestRoundTripTickMath exercises spec §8 P5: sqrtPriceToTick(tickToSqrtPrice(t))
// lands within {t-1, t, t+1} and the mapping is monotonic.
func TestRoundTripTickMath(t *testing.T) {
	ticks := []int{-443636, -100000, -60, -1, 0, 1, 60, 100000, 443636}

	var prevSqrt decimal.Decimal
	for i, tick := range ticks {
		sqrt, err := tickToSqrtPrice(tick)
		require.NoError(t, err)

		if i > 0 {
			require.True(t, sqrt.GreaterThan(prevSqrt), "sqrtPrice must be strictly increasing in tick")
		}
		prevSqrt = sqrt

		back, err := sqrtPriceToTick(sqrt)
		require.NoError(t, err)
		require.True(t, back >= tick-1 && back <= tick+1, "round trip for tick %d produced %d", tick, back)
	}
}

func TestClampTick(t *testing.T) {
	require.Equal(t, MinTick, clampTick(MinTick-100))
	require.Equal(t, MaxTick, clampTick(MaxTick+100))
	require.Equal(t, 0, clampTick(0))
}
