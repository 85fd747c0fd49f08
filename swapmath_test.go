package dex

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// TestComputeSwapStepZeroLiquidityShortCircuit is spec §8 scenario 3.
func TestComputeSwapStepZeroLiquidityShortCircuit(t *testing.T) {
	sqrtCurrent := decimal.RequireFromString("1")
	sqrtTarget := decimal.RequireFromString("0.9")
	amountRemaining := decimal.RequireFromString("100")

	result, err := computeSwapStep(sqrtCurrent, sqrtTarget, ZERO, amountRemaining, 3000)
	require.NoError(t, err)
	require.True(t, result.SqrtPriceNext.Equal(sqrtTarget))
	require.True(t, result.AmountIn.IsZero())
	require.True(t, result.AmountOut.IsZero())
	require.True(t, result.FeeAmount.IsZero())
}

// TestComputeSwapStepWithFee is spec §8 scenario 4: amountIn ≈ 997,
// feeAmount ≈ 3, and sqrtNext strictly between the target and the start.
func TestComputeSwapStepWithFee(t *testing.T) {
	sqrtCurrent := decimal.RequireFromString("1")
	sqrtTarget := decimal.RequireFromString("0.99")
	liquidity := decimal.RequireFromString("10000000")
	amountRemaining := decimal.RequireFromString("1000")

	result, err := computeSwapStep(sqrtCurrent, sqrtTarget, liquidity, amountRemaining, 3000)
	require.NoError(t, err)

	require.True(t, result.AmountIn.GreaterThan(decimal.RequireFromString("990")))
	require.True(t, result.AmountIn.LessThan(decimal.RequireFromString("1000")))
	require.True(t, result.FeeAmount.GreaterThan(ZERO))
	require.True(t, result.FeeAmount.LessThan(decimal.RequireFromString("10")))
	require.True(t, result.SqrtPriceNext.GreaterThan(sqrtTarget))
	require.True(t, result.SqrtPriceNext.LessThan(sqrtCurrent))
}

func TestComputeSwapStepExactOutClampsAmountOut(t *testing.T) {
	sqrtCurrent := decimal.RequireFromString("1")
	sqrtTarget := decimal.RequireFromString("0.5")
	liquidity := decimal.RequireFromString("1000000")
	// Negative amountRemaining selects the exact-output branch (spec §4.9 step 1).
	amountRemaining := decimal.RequireFromString("-1")

	result, err := computeSwapStep(sqrtCurrent, sqrtTarget, liquidity, amountRemaining, 3000)
	require.NoError(t, err)
	require.True(t, result.AmountOut.LessThanOrEqual(decimal.RequireFromString("1")))
}
