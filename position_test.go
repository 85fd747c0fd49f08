package dex

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// TestFeeGrowthBookkeeping is spec §8 scenario 5: liquidity=1000, checkpoint
// fgInsideLast=100, pool feeGrowthGlobal=200, in-range. First collect(50)
// produces tokensOwed = 10 + (200-100)*1000 - 50 = 99,960 and advances the
// checkpoint; a second call with no new growth must not move it again (P6).
func TestFeeGrowthBookkeeping(t *testing.T) {
	pos := &Position{
		Key:                  PositionKey{PoolHash: "pool", TickLower: -60, TickUpper: 60, PositionID: "p1"},
		Owner:                "alice",
		Liquidity:            decimal.RequireFromString("1000"),
		FeeGrowthInside0Last: decimal.RequireFromString("100"),
		FeeGrowthInside1Last: decimal.RequireFromString("100"),
		TokensOwed0:          decimal.RequireFromString("10"),
		TokensOwed1:          decimal.RequireFromString("10"),
	}

	fgInside := decimal.RequireFromString("200")
	require.NoError(t, pos.updatePosition(ZERO, fgInside, fgInside))

	expectedOwed := decimal.RequireFromString("10").Add(fgInside.Sub(decimal.RequireFromString("100")).Mul(decimal.RequireFromString("1000")))
	require.True(t, pos.TokensOwed0.Equal(expectedOwed))
	require.True(t, pos.FeeGrowthInside0Last.Equal(fgInside))

	// Simulate the collect clamp: request 50, nothing new accrues on the
	// second call.
	collected := decimal.RequireFromString("50")
	pos.TokensOwed0 = pos.TokensOwed0.Sub(collected)
	require.True(t, pos.TokensOwed0.Equal(decimal.RequireFromString("99960")))

	checkpointAfterFirst := pos.FeeGrowthInside0Last
	owedAfterFirst := pos.TokensOwed0

	require.NoError(t, pos.updatePosition(ZERO, fgInside, fgInside))
	require.True(t, pos.FeeGrowthInside0Last.Equal(checkpointAfterFirst), "checkpoint must not move again (P6)")
	require.True(t, pos.TokensOwed0.Equal(owedAfterFirst), "tokensOwed must not change with no new growth")
}

// TestGetFeeCollectedEstimationIsPure is spec §8 P6 / §4.7 critical
// contract: the estimator must not mutate the position.
func TestGetFeeCollectedEstimationIsPure(t *testing.T) {
	pos := Position{
		Key:                  PositionKey{PoolHash: "pool", TickLower: -60, TickUpper: 60, PositionID: "p1"},
		Owner:                "alice",
		Liquidity:            decimal.RequireFromString("1000"),
		FeeGrowthInside0Last: decimal.RequireFromString("100"),
		FeeGrowthInside1Last: decimal.RequireFromString("100"),
		TokensOwed0:          decimal.RequireFromString("10"),
		TokensOwed1:          decimal.RequireFromString("10"),
	}
	before := pos

	owed0, owed1 := getFeeCollectedEstimation(pos, decimal.RequireFromString("200"), decimal.RequireFromString("150"))

	require.True(t, owed0.Equal(decimal.RequireFromString("100010")))
	require.True(t, owed1.Equal(decimal.RequireFromString("50010")))

	require.True(t, pos.Liquidity.Equal(before.Liquidity))
	require.True(t, pos.FeeGrowthInside0Last.Equal(before.FeeGrowthInside0Last))
	require.True(t, pos.FeeGrowthInside1Last.Equal(before.FeeGrowthInside1Last))
	require.True(t, pos.TokensOwed0.Equal(before.TokensOwed0))
	require.True(t, pos.TokensOwed1.Equal(before.TokensOwed1))
}

func TestPositionIsDust(t *testing.T) {
	dust := &Position{Liquidity: ZERO, TokensOwed0: ZERO, TokensOwed1: ZERO}
	require.True(t, dust.isDust())

	notDust := &Position{Liquidity: decimal.RequireFromString("1"), TokensOwed0: ZERO, TokensOwed1: ZERO}
	require.False(t, notDust.isDust())
}

// TestPositionManagerListAllIsPoolWideUnfiltered exercises the pool-wide
// listing used by GetPositions, distinct from ListByOwner's per-user index.
func TestPositionManagerListAllIsPoolWideUnfiltered(t *testing.T) {
	pm := NewPositionManager()
	keyA := PositionKey{PoolHash: "pool", TickLower: -60, TickUpper: 60, PositionID: "a"}
	keyB := PositionKey{PoolHash: "pool", TickLower: 0, TickUpper: 120, PositionID: "b"}
	pm.getOrCreate(keyA, "alice")
	pm.getOrCreate(keyB, "bob")

	all, next := pm.ListAll("", 0)
	require.Len(t, all, 2)
	require.Empty(t, next)
	require.Contains(t, all, keyA.String())
	require.Contains(t, all, keyB.String())

	firstPage, bookmark := pm.ListAll("", 1)
	require.Len(t, firstPage, 1)
	require.NotEmpty(t, bookmark)

	secondPage, _ := pm.ListAll(bookmark, 1)
	require.Len(t, secondPage, 1)
	require.NotEqual(t, firstPage[0], secondPage[0])
}
