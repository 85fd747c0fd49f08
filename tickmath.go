package dex

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// ratioConstants are 1/sqrt(1.0001^(2^k)) in Q128.128, k = 0..19, selected
// by the bits of |tick| and combined by repeated multiply-and-shift, which
// yields sqrt(1.0001^-|tick|); tickToSqrtPrice inverts it for tick > 0. This is
// the standard Uniswap V3 TickMath magic-constant product (spec §4.2),
// grounded on the public Go port in other_examples/defistate tickmath.go.
var ratioConstants = [20]*uint256.Int{
	mustFromHex("0xfffcb933bd6fad37aa2d162d1a594001"),
	mustFromHex("0xfff97272373d413259a46990580e213a"),
	mustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
	mustFromHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
	mustFromHex("0xffcb9843d60f6159c9db58835c926644"),
	mustFromHex("0xff973b41fa98c081472e6896dfb254c0"),
	mustFromHex("0xff2ea16466c96a3843ec78b326b52861"),
	mustFromHex("0xfe5dee046a99a2a811c461f1969c3053"),
	mustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
	mustFromHex("0xf987a7253ac413176f2b074cf7815e54"),
	mustFromHex("0xf3392b0822b70005940c7a398e4b70f3"),
	mustFromHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
	mustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
	mustFromHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
	mustFromHex("0x70d869a156d2a1b890bb3df62baf32f7"),
	mustFromHex("0x31be135f97d08fd981231505542fcfa6"),
	mustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
	mustFromHex("0x5d6af8dedb81196699c329225ee604"),
	mustFromHex("0x2216e584f5fa1ea926041bedfe98"),
	mustFromHex("0x48a170391f7dc42444e8fa2"),
}

func mustFromHex(s string) *uint256.Int {
	v, err := uint256.FromHex(s)
	if err != nil {
		panic(err)
	}
	return v
}

// tickToSqrtPrice computes sqrt(1.0001^tick) as a true decimal (spec §4.2).
// Deterministic, no float64 anywhere: the magic-constant product is carried
// in Q128.128 fixed point and only divided down to a true value at the end.
func tickToSqrtPrice(tick int) (decimal.Decimal, error) {
	if tick < MinTick || tick > MaxTick {
		return ZERO, errValidation("tick %d out of bounds [%d, %d]", tick, MinTick, MaxTick)
	}

	absTick := tick
	if absTick < 0 {
		absTick = -absTick
	}

	ratio := new(uint256.Int)
	if absTick&0x1 != 0 {
		ratio.Set(ratioConstants[0])
	} else {
		ratio.SetOne()
		ratio.Lsh(ratio, 128)
	}
	for i := 1; i < 20; i++ {
		if absTick&(1<<uint(i)) != 0 {
			ratio.Mul(ratio, ratioConstants[i])
			ratio.Rsh(ratio, 128)
		}
	}

	if tick > 0 {
		maxU256 := allOnes()
		inverted := new(uint256.Int).Div(maxU256, ratio)
		ratio = inverted
	}

	// ratio is Q128.128-scaled; divide down to a true decimal sqrt price,
	// rounding up so the bound this feeds (MinSqrtRatio/MaxSqrtRatio via
	// init, below) is never optimistic.
	return divRound(fromBigInt(ratio.ToBig()), Q128, RoundCeil), nil
}

// init derives the sqrt-price bounds directly from tickToSqrtPrice, so
// Initialize/sqrtPriceToTick and the magic-constant product can never
// disagree on which sqrt-price representation is in play.
func init() {
	min, err := tickToSqrtPrice(MinTick)
	if err != nil {
		panic(err)
	}
	max, err := tickToSqrtPrice(MaxTick)
	if err != nil {
		panic(err)
	}
	MinSqrtRatio = min
	MaxSqrtRatio = max
}

// sqrtPriceToTick returns the greatest tick t with tickToSqrtPrice(t) <= s
// (spec §4.2), via binary search over the valid tick range.
func sqrtPriceToTick(sqrtPrice decimal.Decimal) (int, error) {
	if sqrtPrice.LessThan(MinSqrtRatio) || sqrtPrice.GreaterThan(MaxSqrtRatio) {
		return 0, errValidation("sqrtPrice %s out of bounds", sqrtPrice)
	}

	lo, hi := MinTick, MaxTick
	var best int
	for lo <= hi {
		mid := lo + (hi-lo)/2
		ratioAtMid, err := tickToSqrtPrice(mid)
		if err != nil {
			return 0, err
		}
		if ratioAtMid.LessThanOrEqual(sqrtPrice) {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best, nil
}

// clampTick clamps a tick to [MinTick, MaxTick] (spec §4.5 edge rule).
func clampTick(t int) int {
	if t < MinTick {
		return MinTick
	}
	if t > MaxTick {
		return MaxTick
	}
	return t
}
