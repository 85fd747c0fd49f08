package dex

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SwapResult is the terminal writeback + signed amounts returned to the
// caller (spec §4.10).
type SwapResult struct {
	Amount0 decimal.Decimal
	Amount1 decimal.Decimal
}

type swapState struct {
	amountSpecifiedRemaining decimal.Decimal
	amountCalculated         decimal.Decimal
	sqrtPrice                decimal.Decimal
	tick                     int
	liquidity                decimal.Decimal
	feeGrowthGlobalX         decimal.Decimal
	protocolFee              decimal.Decimal
}

// validateSqrtPriceLimit enforces spec §4.10's SqrtPriceLimitInvalid rule:
// the limit must sit on the correct side of the current price and within
// [MIN_SQRT_RATIO, MAX_SQRT_RATIO]. Reused verbatim by limit orders (spec
// §9 Open Question 2).
func validateSqrtPriceLimit(sqrtPriceLimit, sqrtPriceCurrent decimal.Decimal, zeroForOne bool) error {
	if zeroForOne {
		if sqrtPriceLimit.GreaterThanOrEqual(sqrtPriceCurrent) || sqrtPriceLimit.LessThanOrEqual(MinSqrtRatio) {
			return errValidation("sqrtPriceLimit %s invalid for zeroForOne swap at %s", sqrtPriceLimit, sqrtPriceCurrent)
		}
	} else {
		if sqrtPriceLimit.LessThanOrEqual(sqrtPriceCurrent) || sqrtPriceLimit.GreaterThanOrEqual(MaxSqrtRatio) {
			return errValidation("sqrtPriceLimit %s invalid for one-for-zero swap at %s", sqrtPriceLimit, sqrtPriceCurrent)
		}
	}
	return nil
}

// Swap runs the outer tick-crossing loop against the pool's bitmap and tick
// table, terminating when amountSpecified is exhausted or sqrtPriceLimit is
// reached (spec §4.10). amountSpecified > 0 is exact-input, < 0 is
// exact-output. Returns the signed (amount0, amount1) pair and mutates the
// pool's Slot0, fee accumulators, and protocol fees on success.
func (p *Pool) Swap(caller string, zeroForOne bool, amountSpecified, sqrtPriceLimit decimal.Decimal, log *logrus.Entry) (SwapResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.IsWhitelisted(caller) {
		return SwapResult{}, errUnauthorized("caller %s is not whitelisted for private pool %s", caller, p.PoolHash)
	}
	if amountSpecified.IsZero() {
		return SwapResult{}, errValidation("amountSpecified must be non-zero")
	}
	if err := validateSqrtPriceLimit(sqrtPriceLimit, p.SqrtPrice, zeroForOne); err != nil {
		return SwapResult{}, err
	}

	exactIn := amountSpecified.IsPositive()

	st := &swapState{
		amountSpecifiedRemaining: amountSpecified,
		amountCalculated:         ZERO,
		sqrtPrice:                p.SqrtPrice,
		tick:                     p.TickCurrent,
		liquidity:                p.Liquidity,
		protocolFee:              ZERO,
	}
	if zeroForOne {
		st.feeGrowthGlobalX = p.FeeGrowthGlobal0
	} else {
		st.feeGrowthGlobalX = p.FeeGrowthGlobal1
	}

	feePips := int(p.Fee)

	for !st.amountSpecifiedRemaining.IsZero() && !st.sqrtPrice.Equal(sqrtPriceLimit) {
		sqrtStart := st.sqrtPrice

		tickNext, initialized, err := p.Ticks.Bitmap.nextInitializedTickWithinOneWord(st.tick, p.TickSpacing, zeroForOne)
		if err != nil {
			return SwapResult{}, err
		}
		tickNext = clampTick(tickNext)

		sqrtTarget, err := tickToSqrtPrice(tickNext)
		if err != nil {
			return SwapResult{}, err
		}
		sqrtTarget = boundToLimit(sqrtTarget, sqrtPriceLimit, zeroForOne)

		step, err := computeSwapStep(st.sqrtPrice, sqrtTarget, st.liquidity, st.amountSpecifiedRemaining, feePips)
		if err != nil {
			return SwapResult{}, err
		}

		if exactIn {
			st.amountSpecifiedRemaining = st.amountSpecifiedRemaining.Sub(step.AmountIn.Add(step.FeeAmount))
			st.amountCalculated = st.amountCalculated.Sub(step.AmountOut)
		} else {
			st.amountSpecifiedRemaining = st.amountSpecifiedRemaining.Add(step.AmountOut)
			st.amountCalculated = st.amountCalculated.Add(step.AmountIn.Add(step.FeeAmount))
		}

		if st.liquidity.IsPositive() {
			feeContribution := step.FeeAmount
			if p.ProtocolFeeBps > 0 {
				delta := mulDiv(step.FeeAmount, decimal.NewFromInt(int64(p.ProtocolFeeBps)), decimal.NewFromInt(MaxProtocolFeeBps), RoundFloor)
				feeContribution = feeContribution.Sub(delta)
				st.protocolFee = st.protocolFee.Add(delta)
			}
			st.feeGrowthGlobalX = st.feeGrowthGlobalX.Add(divRound(feeContribution, st.liquidity, RoundFloor))
		}

		if log != nil {
			log.WithFields(logrus.Fields{
				"tickNext":  tickNext,
				"sqrtPrice": st.sqrtPrice,
				"amountIn":  step.AmountIn,
				"amountOut": step.AmountOut,
				"feeAmount": step.FeeAmount,
			}).Debug("swap step")
		}

		if step.SqrtPriceNext.Equal(sqrtTarget) && initialized {
			var fg0, fg1 decimal.Decimal
			if zeroForOne {
				fg0, fg1 = st.feeGrowthGlobalX, p.FeeGrowthGlobal1
			} else {
				fg0, fg1 = p.FeeGrowthGlobal0, st.feeGrowthGlobalX
			}
			liquidityNet := p.Ticks.cross(tickNext, fg0, fg1)
			if zeroForOne {
				liquidityNet = liquidityNet.Neg()
			}
			newLiquidity, lerr := addDelta(st.liquidity, liquidityNet)
			if lerr != nil {
				return SwapResult{}, lerr
			}
			st.liquidity = newLiquidity
			if zeroForOne {
				st.tick = tickNext - 1
			} else {
				st.tick = tickNext
			}
		} else if !step.SqrtPriceNext.Equal(sqrtStart) {
			nextTick, terr := sqrtPriceToTick(step.SqrtPriceNext)
			if terr != nil {
				return SwapResult{}, terr
			}
			st.tick = nextTick
		}

		st.sqrtPrice = step.SqrtPriceNext
	}

	p.SqrtPrice = st.sqrtPrice
	p.TickCurrent = st.tick
	p.Liquidity = st.liquidity
	if zeroForOne {
		p.FeeGrowthGlobal0 = st.feeGrowthGlobalX
		p.ProtocolFeesToken0 = p.ProtocolFeesToken0.Add(st.protocolFee)
	} else {
		p.FeeGrowthGlobal1 = st.feeGrowthGlobalX
		p.ProtocolFeesToken1 = p.ProtocolFeesToken1.Add(st.protocolFee)
	}

	var amount0, amount1 decimal.Decimal
	if zeroForOne == exactIn {
		amount0 = amountSpecified.Sub(st.amountSpecifiedRemaining)
		amount1 = st.amountCalculated
	} else {
		amount1 = amountSpecified.Sub(st.amountSpecifiedRemaining)
		amount0 = st.amountCalculated
	}

	return SwapResult{Amount0: amount0, Amount1: amount1}, nil
}

// boundToLimit clamps sqrtTarget so the step never overshoots the caller's
// sqrtPriceLimit (spec §4.10 step 3).
func boundToLimit(sqrtTarget, sqrtPriceLimit decimal.Decimal, zeroForOne bool) decimal.Decimal {
	if zeroForOne {
		if sqrtTarget.LessThan(sqrtPriceLimit) {
			return sqrtPriceLimit
		}
		return sqrtTarget
	}
	if sqrtTarget.GreaterThan(sqrtPriceLimit) {
		return sqrtPriceLimit
	}
	return sqrtTarget
}

// CheckSlippage enforces the caller's amountInMaximum/amountOutMinimum
// bounds (spec §4.10 Slippage failure mode), applied by the engine after
// Swap returns.
func CheckSlippage(result SwapResult, zeroForOne bool, amountInMaximum, amountOutMinimum *decimal.Decimal) error {
	var amountIn, amountOut decimal.Decimal
	if zeroForOne {
		amountIn, amountOut = result.Amount0, result.Amount1.Neg()
	} else {
		amountIn, amountOut = result.Amount1, result.Amount0.Neg()
	}
	if amountInMaximum != nil && amountIn.GreaterThan(*amountInMaximum) {
		return errSlippage("amountIn %s exceeds amountInMaximum %s", amountIn, *amountInMaximum)
	}
	if amountOutMinimum != nil && amountOut.LessThan(*amountOutMinimum) {
		return errSlippage("amountOut %s below amountOutMinimum %s", amountOut, *amountOutMinimum)
	}
	return nil
}
