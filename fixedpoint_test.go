package dex

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMulDivRoundingDirections(t *testing.T) {
	// 1*1/3 = 0.333... never terminates, so floor/ceil must disagree at the
	// 18th decimal place rather than at some integer boundary (spec §4.1's
	// true decimal domain, not an integer one).
	a := decimal.RequireFromString("1")
	b := decimal.RequireFromString("1")
	c := decimal.RequireFromString("3")

	floor := mulDiv(a, b, c, RoundFloor)
	ceil := mulDiv(a, b, c, RoundCeil)

	require.True(t, floor.Equal(decimal.RequireFromString("0.333333333333333333")))
	require.True(t, ceil.Equal(decimal.RequireFromString("0.333333333333333334")))
	require.True(t, ceil.GreaterThan(floor))
}

func TestMulDivExactDivisionRoundingAgrees(t *testing.T) {
	a := decimal.RequireFromString("10")
	b := decimal.RequireFromString("2")
	c := decimal.RequireFromString("4")

	floor := mulDiv(a, b, c, RoundFloor)
	ceil := mulDiv(a, b, c, RoundCeil)

	require.True(t, floor.Equal(ceil))
	require.True(t, floor.Equal(decimal.RequireFromString("5")))
}

func TestAddDeltaUnderflowIsConflict(t *testing.T) {
	_, err := addDelta(decimal.RequireFromString("5"), decimal.RequireFromString("-10"))
	require.Error(t, err)
	require.Equal(t, Conflict, KindOf(err))
}

func TestAddDeltaPositiveAndNegative(t *testing.T) {
	v, err := addDelta(decimal.RequireFromString("5"), decimal.RequireFromString("3"))
	require.NoError(t, err)
	require.True(t, v.Equal(decimal.RequireFromString("8")))

	v, err = addDelta(decimal.RequireFromString("5"), decimal.RequireFromString("-3"))
	require.NoError(t, err)
	require.True(t, v.Equal(decimal.RequireFromString("2")))
}
