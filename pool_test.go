package dex

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// TestMintAtOneToOne is spec §8 scenario 1: spacing 60, tickLower=-60,
// tickUpper=60, ΔL=1, sqrtPrice=1. Mints through Pool.Mint end to end (not
// against getAmount*Delta directly) and checks the result against the same
// sqrt-price-domain math the pool itself uses at its tick boundaries, so the
// assertion tracks the pool's own (single, unified) sqrt-price space rather
// than a hand-copied literal.
func TestMintAtOneToOne(t *testing.T) {
	p, err := NewPool("A", "B", FeeMedium, false, nil)
	require.NoError(t, err)
	require.NoError(t, p.Initialize(decimal.RequireFromString("1")))

	sqrtLower, err := tickToSqrtPrice(-60)
	require.NoError(t, err)
	sqrtUpper, err := tickToSqrtPrice(60)
	require.NoError(t, err)
	deltaL := decimal.RequireFromString("1")
	expectedAmount0 := getAmount0Delta(p.SqrtPrice, sqrtUpper, deltaL, RoundCeil)
	expectedAmount1 := getAmount1Delta(sqrtLower, p.SqrtPrice, deltaL, RoundCeil)

	key := PositionKey{PoolHash: p.PoolHash, TickLower: -60, TickUpper: 60, PositionID: "p1"}
	result, err := p.Mint("alice", key, deltaL)
	require.NoError(t, err)

	require.True(t, result.Amount0.Equal(expectedAmount0), "amount0 = %s, expected %s", result.Amount0, expectedAmount0)
	require.True(t, result.Amount1.Equal(expectedAmount1), "amount1 = %s, expected %s", result.Amount1, expectedAmount1)
	require.True(t, result.Amount0.IsPositive())
	require.True(t, result.Amount1.IsPositive())
	require.True(t, result.Amount0.Sub(result.Amount1).Abs().LessThan(decimal.RequireFromString("0.0000001")),
		"a symmetric range around sqrtPrice=1 should deposit near-equal amounts of both tokens")

	lowerTick, ok := p.Ticks.Get(-60)
	require.True(t, ok)
	require.True(t, lowerTick.LiquidityGross.Equal(decimal.RequireFromString("1")))
	upperTick, ok := p.Ticks.Get(60)
	require.True(t, ok)
	require.True(t, upperTick.LiquidityGross.Equal(decimal.RequireFromString("1")))

	require.True(t, p.Ticks.Bitmap.isInitialized(-60, 60))
	require.True(t, p.Ticks.Bitmap.isInitialized(60, 60))
}

// TestOutOfRangeAboveMintAmounts covers the mint amounts of spec §8
// scenario 2, exercised directly against the amount-delta math rather than
// through Pool.Mint, since the scenario's tickLower=1 isn't a multiple of
// any allowed tickSpacing (the scenario probes the out-of-range branch, not
// spacing validation). The burn half of the scenario is not checked here.
func TestOutOfRangeAboveMintAmounts(t *testing.T) {
	sqrtLower, err := tickToSqrtPrice(1)
	require.NoError(t, err)
	sqrtUpper, err := tickToSqrtPrice(100)
	require.NoError(t, err)

	// The pool price sqrt(1.0001^0) = 1 sits below the range; clamped into
	// [sqrtLower, sqrtUpper] it is sqrtLower, so the token1 leg
	// [sqrtLower, price] is empty.
	deltaL := decimal.RequireFromString("1")
	sqrtPrice := decimal.Max(ONE, sqrtLower)
	amount1 := getAmount1Delta(sqrtLower, sqrtPrice, deltaL, RoundCeil)
	require.True(t, amount1.IsZero(), "above-range mint deposits no token1")

	amount0 := getAmount0Delta(sqrtLower, sqrtUpper, deltaL, RoundCeil)
	expected := decimal.RequireFromString("0.00493727582043662347")
	require.True(t, amount0.Sub(expected).Abs().LessThan(decimal.RequireFromString("0.0000001")),
		"amount0 = %s, expected ~%s", amount0, expected)
}

func TestMintThenBurnSymmetric(t *testing.T) {
	p, err := NewPool("A", "B", FeeMedium, false, nil)
	require.NoError(t, err)
	require.NoError(t, p.Initialize(decimal.RequireFromString("1")))

	key := PositionKey{PoolHash: p.PoolHash, TickLower: 60, TickUpper: 120, PositionID: "p1"}
	minted, err := p.Mint("alice", key, decimal.RequireFromString("1"))
	require.NoError(t, err)

	burned, err := p.Burn(key, decimal.RequireFromString("1"))
	require.NoError(t, err)

	require.True(t, minted.Amount0.Equal(burned.Amount0))
	require.True(t, minted.Amount1.Equal(burned.Amount1))

	pos, ok := p.Positions.Get(key)
	require.True(t, ok)
	require.True(t, pos.Liquidity.IsZero())
}

func TestMintRejectsBadTickSpacing(t *testing.T) {
	p, err := NewPool("A", "B", FeeMedium, false, nil)
	require.NoError(t, err)
	require.NoError(t, p.Initialize(decimal.RequireFromString("1")))

	key := PositionKey{PoolHash: p.PoolHash, TickLower: 1, TickUpper: 100, PositionID: "p1"}
	_, err = p.Mint("alice", key, decimal.RequireFromString("1"))
	require.Error(t, err)
	require.Equal(t, ValidationFailed, KindOf(err))
}

func TestPrivatePoolRejectsNonWhitelistedCaller(t *testing.T) {
	p, err := NewPool("A", "B", FeeMedium, true, []string{"alice"})
	require.NoError(t, err)
	require.NoError(t, p.Initialize(decimal.RequireFromString("1")))

	key := PositionKey{PoolHash: p.PoolHash, TickLower: -60, TickUpper: 60, PositionID: "p1"}
	_, err = p.Mint("bob", key, decimal.RequireFromString("1"))
	require.Error(t, err)
	require.Equal(t, Unauthorized, KindOf(err))

	_, err = p.Mint("alice", key, decimal.RequireFromString("1"))
	require.NoError(t, err)
}
