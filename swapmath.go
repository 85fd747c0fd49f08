package dex

import "github.com/shopspring/decimal"

// SwapStepResult is computeSwapStep's output (spec §4.9): the next sqrt
// price after this sub-step, plus the unsigned amounts moved within it.
type SwapStepResult struct {
	SqrtPriceNext decimal.Decimal
	AmountIn      decimal.Decimal
	AmountOut     decimal.Decimal
	FeeAmount     decimal.Decimal
}

// computeSwapStep advances the price from sqrtCurrent toward sqrtTarget by
// as much of amountRemaining as liquidity L allows within one tick range,
// charging feePips along the way. Signs are unsigned here; the swap engine
// (C10) assigns direction. Grounded on spec §4.9's eight-step contract.
func computeSwapStep(sqrtCurrent, sqrtTarget, liquidity, amountRemaining decimal.Decimal, feePips int) (SwapStepResult, error) {
	if liquidity.IsZero() {
		return SwapStepResult{SqrtPriceNext: sqrtTarget}, nil
	}

	zeroForOne := sqrtCurrent.GreaterThanOrEqual(sqrtTarget)
	exactIn := amountRemaining.GreaterThanOrEqual(ZERO)
	feePipsDec := decimal.NewFromInt(int64(feePips))

	var amountIn, amountOut, sqrtNext decimal.Decimal
	var err error

	if exactIn {
		remainingLessFee := mulDiv(amountRemaining, FeeDenominator.Sub(feePipsDec), FeeDenominator, RoundFloor)
		if zeroForOne {
			amountIn = getAmount0Delta(sqrtTarget, sqrtCurrent, liquidity, RoundCeil)
		} else {
			amountIn = getAmount1Delta(sqrtCurrent, sqrtTarget, liquidity, RoundCeil)
		}
		if remainingLessFee.GreaterThanOrEqual(amountIn) {
			sqrtNext = sqrtTarget
		} else {
			sqrtNext, err = getNextSqrtPriceFromInput(sqrtCurrent, liquidity, remainingLessFee, zeroForOne)
			if err != nil {
				return SwapStepResult{}, err
			}
		}
	} else {
		remainingAbs := amountRemaining.Neg()
		if zeroForOne {
			amountOut = getAmount1Delta(sqrtTarget, sqrtCurrent, liquidity, RoundFloor)
		} else {
			amountOut = getAmount0Delta(sqrtCurrent, sqrtTarget, liquidity, RoundFloor)
		}
		if remainingAbs.GreaterThanOrEqual(amountOut) {
			sqrtNext = sqrtTarget
		} else {
			sqrtNext, err = getNextSqrtPriceFromOutput(sqrtCurrent, liquidity, remainingAbs, zeroForOne)
			if err != nil {
				return SwapStepResult{}, err
			}
		}
	}

	max := sqrtNext.Equal(sqrtTarget)

	// Recompute amounts against the actual sqrtNext reached, skipping the
	// recompute exactly when it's already known from the target-reaching
	// branch above (spec §4.9 step 5).
	if zeroForOne {
		if !(max && exactIn) {
			amountIn = getAmount0Delta(sqrtNext, sqrtCurrent, liquidity, RoundCeil)
		}
		if !(max && !exactIn) {
			amountOut = getAmount1Delta(sqrtNext, sqrtCurrent, liquidity, RoundFloor)
		}
	} else {
		if !(max && exactIn) {
			amountIn = getAmount1Delta(sqrtCurrent, sqrtNext, liquidity, RoundCeil)
		}
		if !(max && !exactIn) {
			amountOut = getAmount0Delta(sqrtCurrent, sqrtNext, liquidity, RoundFloor)
		}
	}

	if !exactIn && amountOut.GreaterThan(amountRemaining.Neg()) {
		amountOut = amountRemaining.Neg()
	}

	var feeAmount decimal.Decimal
	if exactIn && sqrtNext.Equal(sqrtTarget) {
		feeAmount = amountRemaining.Sub(amountIn)
	} else {
		feeAmount = mulDiv(amountIn, feePipsDec, FeeDenominator.Sub(feePipsDec), RoundCeil)
	}

	return SwapStepResult{
		SqrtPriceNext: sqrtNext,
		AmountIn:      amountIn,
		AmountOut:     amountOut,
		FeeAmount:     feeAmount,
	}, nil
}
