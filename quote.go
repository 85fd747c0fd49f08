package dex

import "github.com/shopspring/decimal"

// QuoteResult is the dry-run output of a simulated swap (spec §4.12).
type QuoteResult struct {
	Amount0         decimal.Decimal
	Amount1         decimal.Decimal
	CurrentSqrtPrice decimal.Decimal
	NewSqrtPrice    decimal.Decimal
}

// QuoteExactAmount simulates a swap against a CompositePool snapshot —
// a cloned Pool carrying its own tick table, bitmap, and positions — and
// never mutates the caller's live pool (spec §4.12: "pure; no I/O").
func QuoteExactAmount(snapshot *Pool, zeroForOne bool, amountSpecified, sqrtPriceLimit decimal.Decimal) (QuoteResult, error) {
	working := snapshot.Clone()
	working.IsPrivate = false // quoting never needs whitelist authorization
	currentSqrtPrice := working.SqrtPrice

	result, err := working.Swap("", zeroForOne, amountSpecified, sqrtPriceLimit, nil)
	if err != nil {
		return QuoteResult{}, err
	}

	return QuoteResult{
		Amount0:          result.Amount0,
		Amount1:          result.Amount1,
		CurrentSqrtPrice: currentSqrtPrice,
		NewSqrtPrice:     working.SqrtPrice,
	}, nil
}
