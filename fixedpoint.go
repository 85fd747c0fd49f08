package dex

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// RoundDirection is the explicit rounding mode C3/C9 must choose for every
// division, per spec §4.3 — mis-rounding is a class-of-bug source in a CL-AMM.
type RoundDirection int

const (
	RoundFloor RoundDirection = iota
	RoundCeil
)

// mulDiv computes a*b/c rounded down or up to fpScale decimal places
// depending on dir (see divRound), using
// arbitrary-precision decimals throughout — no float64 ever touches this
// path (spec §1, §4.1).
func mulDiv(a, b, c decimal.Decimal, dir RoundDirection) decimal.Decimal {
	if c.IsZero() {
		panic("dex: mulDiv divide by zero")
	}
	prod := a.Mul(b)
	switch dir {
	case RoundCeil:
		return divRound(prod, c, RoundCeil)
	default:
		return divRound(prod, c, RoundFloor)
	}
}

// fpScale is the fixed number of decimal places every sqrt-price, liquidity,
// and fee-growth quantity in this package is carried at (spec §4.1 — a true
// decimal domain, not an X96/X128 integer one).
const fpScale = 18

// ulp is the smallest representable step at fpScale decimal places.
var ulp = decimal.New(1, -fpScale)

// divRound divides a/c to fpScale decimal places with explicit rounding.
// decimal.Decimal carries no native floor/ceil division, so the exact
// quotient is first computed to guard precision (fpScale+guardDigits) via
// DivRound, then rounded to fpScale per dir.
func divRound(a, c decimal.Decimal, dir RoundDirection) decimal.Decimal {
	if c.IsZero() {
		panic("dex: divRound divide by zero")
	}
	const guardDigits = 12
	exact := a.DivRound(c, int32(fpScale+guardDigits))
	return roundScale(exact, dir)
}

// roundScale rounds x to fpScale decimal places in the given direction.
// Truncate already rounds toward zero, which is floor for a non-negative
// value and ceil for a negative one; only the opposite case needs the
// extra ulp.
func roundScale(x decimal.Decimal, dir RoundDirection) decimal.Decimal {
	truncated := x.Truncate(fpScale)
	if truncated.Equal(x) {
		return truncated
	}
	neg := x.IsNegative()
	switch dir {
	case RoundFloor:
		if neg {
			return truncated.Sub(ulp)
		}
		return truncated
	default: // RoundCeil
		if neg {
			return truncated
		}
		return truncated.Add(ulp)
	}
}

// f18 truncates to 18 decimal places, always rounding toward zero (FLOOR
// for non-negative values, per spec §4.1).
func f18(x decimal.Decimal) decimal.Decimal {
	return x.Truncate(18)
}

// addDelta adds a signed liquidity delta to an unsigned liquidity value,
// refusing to underflow below zero (the "Uint Out of Bounds" Conflict case
// named in spec §7).
func addDelta(x, delta decimal.Decimal) (decimal.Decimal, error) {
	if delta.Sign() >= 0 {
		return x.Add(delta), nil
	}
	neg := delta.Neg()
	if neg.GreaterThan(x) {
		return ZERO, errConflict("liquidity underflow: %s - %s", x, neg)
	}
	return x.Sub(neg), nil
}

// toBigInt extracts the integer part of a decimal, truncating any
// fractional component.
func toBigInt(d decimal.Decimal) *big.Int {
	return d.BigInt()
}

func fromBigInt(b *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(b, 0)
}
