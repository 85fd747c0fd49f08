package dex

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// LimitOrderReveal is the (owner, sell, buy, sellAmt, buyMin, ratio,
// expires, nonce) tuple a filler must present to FillLimitOrder/
// CancelLimitOrder (spec §4.13).
type LimitOrderReveal struct {
	Owner   string
	Sell    string
	Buy     string
	SellAmt decimal.Decimal
	BuyMin  decimal.Decimal
	Ratio   decimal.Decimal
	Expires int64
	Nonce   string
}

// CommitmentHash reproduces the deterministic SHA-256 commitment from spec
// §4.13/§8 P7: fields joined with "/", lowercase hex digest.
func (r LimitOrderReveal) CommitmentHash() string {
	parts := []string{
		r.Owner,
		r.Sell,
		r.Buy,
		r.SellAmt.String(),
		r.BuyMin.String(),
		r.Ratio.String(),
		fmt.Sprintf("%d", r.Expires),
		r.Nonce,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "/")))
	return hex.EncodeToString(sum[:])
}

// LimitOrderCommitment is the DexLimitOrderCommitment record keyed by hash
// (spec §3/§6).
type LimitOrderCommitment struct {
	Hash    string
	Expires int64
}

// GlobalLimitOrderConfig is the DexGlobalLimitOrderConfig singleton of
// authorised filler wallets (spec §3/§6).
type GlobalLimitOrderConfig struct {
	AdminWallets map[string]bool
}

func (c *GlobalLimitOrderConfig) isAdmin(wallet string) bool {
	if c == nil {
		return false
	}
	return c.AdminWallets[strings.ToLower(wallet)]
}

// PlaceLimitOrder commits a hash with an optional expiry (spec §4.13):
// refuses a non-zero expiry already in the past.
func PlaceLimitOrder(hash string, expires, now int64) (LimitOrderCommitment, error) {
	if hash == "" || len(hash) != 64 {
		return LimitOrderCommitment{}, errValidation("hash must be a 64-hex SHA-256 digest")
	}
	if expires != 0 && expires < now {
		return LimitOrderCommitment{}, errValidation("expires %d is already in the past", expires)
	}
	return LimitOrderCommitment{Hash: hash, Expires: expires}, nil
}

// FillLimitOrderResult is the settlement instruction FillLimitOrder
// produces, to be executed by the caller's token ledger (spec §4.13 step 5).
type FillLimitOrderResult struct {
	Swap       SwapResult
	Zero4One   bool
	Token0     string
	Token1     string
	SellAmount decimal.Decimal
	BuyAmount  decimal.Decimal
}

// FillLimitOrder verifies the commitment and executes the underlying swap
// against pool (spec §4.13 steps 1-4). Settlement transfers (step 5) are
// the caller's responsibility via the TokenLedger.
func FillLimitOrder(cfg *GlobalLimitOrderConfig, caller string, commitment *LimitOrderCommitment, reveal LimitOrderReveal, pool *Pool, now int64) (FillLimitOrderResult, error) {
	if !cfg.isAdmin(caller) {
		return FillLimitOrderResult{}, errUnauthorized("caller %s is not a limit-order admin", caller)
	}
	if commitment == nil {
		return FillLimitOrderResult{}, errNotFound("no commitment for this reveal")
	}
	hash := reveal.CommitmentHash()
	if hash != commitment.Hash {
		return FillLimitOrderResult{}, errNotFound("commitment hash mismatch")
	}
	if reveal.Expires != 0 && reveal.Expires < now {
		return FillLimitOrderResult{}, errValidation("limit order expired at %d", reveal.Expires)
	}

	token0, token1, err := normalizeTokenOrder(reveal.Sell, reveal.Buy)
	if err != nil {
		return FillLimitOrderResult{}, err
	}
	zeroForOne := reveal.Sell == token0

	sqrtPriceLimit := sqrtPriceFromRatio(reveal.Ratio, zeroForOne)

	swapResult, err := pool.Swap(caller, zeroForOne, reveal.SellAmt, sqrtPriceLimit, nil)
	if err != nil {
		return FillLimitOrderResult{}, err
	}

	var buyAmount decimal.Decimal
	if zeroForOne {
		buyAmount = swapResult.Amount1.Neg()
	} else {
		buyAmount = swapResult.Amount0.Neg()
	}
	if buyAmount.LessThan(reveal.BuyMin) {
		return FillLimitOrderResult{}, errSlippage("buy amount %s below buyMin %s", buyAmount, reveal.BuyMin)
	}

	return FillLimitOrderResult{
		Swap:       swapResult,
		Zero4One:   zeroForOne,
		Token0:     token0,
		Token1:     token1,
		SellAmount: reveal.SellAmt,
		BuyAmount:  buyAmount,
	}, nil
}

// sqrtPriceFromRatio derives a sqrtPriceLimit consistent with the order's
// limit ratio (buy per sell unit), expressed in the pool's sqrtPrice space
// (spec §4.13 step 4: "a sqrtPriceLimit consistent with ratio").
func sqrtPriceFromRatio(ratio decimal.Decimal, zeroForOne bool) decimal.Decimal {
	// price = token1 per token0 = sqrtPrice^2; zeroForOne sells token0 for
	// token1, so the ratio IS the minimum acceptable price directly.
	sqrtRatio := sqrtDecimal(ratio)
	if zeroForOne {
		return sqrtRatio
	}
	return divRound(ONE, sqrtRatio, RoundCeil)
}

// sqrtDecimal computes a square root via Newton's method, each division
// carried at decimal's default division precision, and truncates the
// result to 18 decimal places with f18.
func sqrtDecimal(x decimal.Decimal) decimal.Decimal {
	if !x.IsPositive() {
		return ZERO
	}
	guess := x
	two := decimal.NewFromInt(2)
	for i := 0; i < 64; i++ {
		next := guess.Add(x.Div(guess)).Div(two)
		if next.Sub(guess).Abs().LessThan(decimal.New(1, -18)) {
			guess = next
			break
		}
		guess = next
	}
	return f18(guess)
}

// CancelLimitOrder is authorized for the order's own owner or any admin
// wallet (spec §4.13 Cancel).
func CancelLimitOrder(cfg *GlobalLimitOrderConfig, caller string, reveal LimitOrderReveal, commitment *LimitOrderCommitment) error {
	if commitment == nil {
		return errNotFound("no commitment for this reveal")
	}
	if reveal.CommitmentHash() != commitment.Hash {
		return errNotFound("commitment hash mismatch")
	}
	if !strings.EqualFold(caller, reveal.Owner) && !cfg.isAdmin(caller) {
		return errUnauthorized("caller %s may not cancel %s's order", caller, reveal.Owner)
	}
	return nil
}
