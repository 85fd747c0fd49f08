package dex

import "github.com/shopspring/decimal"

// getAmount0Delta = L * (sqrtB - sqrtA) / (sqrtA * sqrtB), in the pool's
// true (non-X96) sqrt-price domain, with the caller-chosen rounding
// direction (spec §4.3).
func getAmount0Delta(sqrtA, sqrtB, liquidity decimal.Decimal, dir RoundDirection) decimal.Decimal {
	if sqrtA.GreaterThan(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	if liquidity.IsZero() || sqrtA.Equal(sqrtB) {
		return ZERO
	}
	numerator := liquidity.Mul(sqrtB.Sub(sqrtA))
	denominator := sqrtA.Mul(sqrtB)
	return divRound(numerator, denominator, dir)
}

// getAmount1Delta = L * (sqrtB - sqrtA).
func getAmount1Delta(sqrtA, sqrtB, liquidity decimal.Decimal, dir RoundDirection) decimal.Decimal {
	if sqrtA.GreaterThan(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	if liquidity.IsZero() {
		return ZERO
	}
	diff := sqrtB.Sub(sqrtA)
	return roundScale(liquidity.Mul(diff), dir)
}

// getNextSqrtPriceFromAmount0RoundingUp solves for the next sqrt price
// given an amount0 change: sqrtQ = L*sqrtP / (L +/- amount*sqrtP). Rounds
// up so real reserves never go negative (spec §4.3).
func getNextSqrtPriceFromAmount0RoundingUp(sqrtPrice, liquidity, amount decimal.Decimal, add bool) (decimal.Decimal, error) {
	if amount.IsZero() {
		return sqrtPrice, nil
	}
	numerator := liquidity.Mul(sqrtPrice)
	product := amount.Mul(sqrtPrice)
	if add {
		denominator := liquidity.Add(product)
		return divRound(numerator, denominator, RoundCeil), nil
	}
	if liquidity.LessThanOrEqual(product) {
		return ZERO, errConflict("insufficient liquidity for requested amount0")
	}
	denominator := liquidity.Sub(product)
	return divRound(numerator, denominator, RoundCeil), nil
}

// getNextSqrtPriceFromAmount1RoundingDown solves for the next sqrt price
// given an amount1 change: sqrtQ = sqrtP +/- amount/L. Rounds down for the
// same reserve-safety reason.
func getNextSqrtPriceFromAmount1RoundingDown(sqrtPrice, liquidity, amount decimal.Decimal, add bool) (decimal.Decimal, error) {
	if add {
		quotient := divRound(amount, liquidity, RoundFloor)
		return sqrtPrice.Add(quotient), nil
	}
	quotient := divRound(amount, liquidity, RoundCeil)
	if sqrtPrice.LessThanOrEqual(quotient) {
		return ZERO, errConflict("insufficient liquidity for requested amount1")
	}
	return sqrtPrice.Sub(quotient), nil
}

// getNextSqrtPriceFromInput decreases price when zeroForOne, increases
// otherwise (spec §4.3).
func getNextSqrtPriceFromInput(sqrtPrice, liquidity, amountIn decimal.Decimal, zeroForOne bool) (decimal.Decimal, error) {
	if !sqrtPrice.IsPositive() || !liquidity.IsPositive() {
		return ZERO, errValidation("sqrtPrice and liquidity must be positive")
	}
	if zeroForOne {
		return getNextSqrtPriceFromAmount0RoundingUp(sqrtPrice, liquidity, amountIn, true)
	}
	return getNextSqrtPriceFromAmount1RoundingDown(sqrtPrice, liquidity, amountIn, true)
}

// getNextSqrtPriceFromOutput is symmetric to getNextSqrtPriceFromInput; it
// may fail with Conflict ("insufficient liquidity") when the requested
// output exceeds what liquidity can provide within the target (spec §4.3).
func getNextSqrtPriceFromOutput(sqrtPrice, liquidity, amountOut decimal.Decimal, zeroForOne bool) (decimal.Decimal, error) {
	if !sqrtPrice.IsPositive() || !liquidity.IsPositive() {
		return ZERO, errValidation("sqrtPrice and liquidity must be positive")
	}
	if zeroForOne {
		return getNextSqrtPriceFromAmount1RoundingDown(sqrtPrice, liquidity, amountOut, false)
	}
	return getNextSqrtPriceFromAmount0RoundingUp(sqrtPrice, liquidity, amountOut, false)
}
