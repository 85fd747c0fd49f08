package dex

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FeeAmount is a pool fee tier, expressed in hundredths of a basis point
// (1 = 0.0001%), the same convention the teacher simulator uses.
type FeeAmount int

const (
	FeeLow    FeeAmount = 500   // 0.05%
	FeeMedium FeeAmount = 3000  // 0.30%
	FeeHigh   FeeAmount = 10000 // 1.00%
)

// TickSpacings maps each allowed fee tier to its tick spacing (spec §3).
var TickSpacings = map[FeeAmount]int{
	FeeLow:    10,
	FeeMedium: 60,
	FeeHigh:   200,
}

const (
	MinTick = -887272
	MaxTick = 887272
)

var (
	ZERO = decimal.Zero
	ONE  = decimal.NewFromInt(1)

	// Q128 is 2^128, the Q128.128 scale tickToSqrtPrice's magic-constant
	// product is carried at internally before being divided down to a true
	// sqrt price (spec §4.2) — not a fee-growth scale; fee growth is never
	// X-scaled in this engine (spec §4.1, one decimal domain throughout).
	Q128 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 128), 0)

	// MinSqrtRatio/MaxSqrtRatio bound the pool's true (non-X96) sqrt price.
	// Populated by tickmath.go's init() from tickToSqrtPrice(MinTick) and
	// tickToSqrtPrice(MaxTick), so bounds and tick math can never disagree.
	MinSqrtRatio decimal.Decimal
	MaxSqrtRatio decimal.Decimal

	// FeeDenominator is the 1e6 fee-pips denominator used by computeSwapStep.
	FeeDenominator = decimal.NewFromInt(1_000_000)

	// DustThreshold is the single dust constant, used by Collect (via
	// Position.isDust) to decide when a position is deleted.
	// TransferUnclaimedFunds does not use it: it refuses while any position
	// record remains.
	DustThreshold = decimal.RequireFromString("0.00000001")
)

// MaxProtocolFeeBps is the upper bound of ProtocolFeeBps (spec §9 Open
// Question 3: basis points instead of a float-ish [0,1] decimal).
const MaxProtocolFeeBps = 10000

// MaxUint128 bounds liquidityGross per tick the same way Uniswap V3 bounds
// it against a 128-bit accumulator, even though decimal itself never
// overflows — tickSpacingToMaxLiquidityPerTick divides this by the number
// of valid ticks at a given spacing.
var MaxUint128 = decimal.NewFromBigInt(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1)), 0)

// tickSpacingToMaxLiquidityPerTick caps how much gross liquidity a single
// tick may carry, spread evenly across every valid tick at this spacing
// (teacher's `TickSpacingToMaxLiquidityPerTick`, reconstructed from its
// call site in pool.go since the helper itself wasn't in the retrieved
// slice).
func tickSpacingToMaxLiquidityPerTick(spacing int) decimal.Decimal {
	numTicks := int64((MaxTick-MinTick)/spacing) + 1
	return MaxUint128.Div(decimal.NewFromInt(numTicks)).Truncate(0)
}

// singleton storage keys (spec §6)
const (
	GlobalLimitOrderConfigKey = "GCDPGLOC"
	FeeConfigKey              = "GCDPFC"
)
