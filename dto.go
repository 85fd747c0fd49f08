package dex

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// submitKey is embedded in every submit-style DTO for idempotency (spec
// §6: "Every submit-style DTO carries a uniqueKey for idempotency and a
// signature recoverable to the caller").
type submitKey struct {
	UniqueKey string
	Caller    string // recovered from the DTO's signature by the host; passed through here
}

func (k submitKey) validate() error {
	if k.UniqueKey == "" {
		return errValidation("uniqueKey is required")
	}
	if k.Caller == "" {
		return errValidation("caller could not be recovered from signature")
	}
	return nil
}

// CreatePoolDTO (spec §6).
type CreatePoolDTO struct {
	submitKey
	Token0    string
	Token1    string
	Fee       FeeAmount
	SqrtPrice decimal.Decimal
	IsPrivate bool
	Whitelist []string
}

func (d CreatePoolDTO) Validate() error {
	if err := d.submitKey.validate(); err != nil {
		return err
	}
	if d.Token0 == "" || d.Token1 == "" {
		return errValidation("token0 and token1 are required")
	}
	if _, ok := TickSpacings[d.Fee]; !ok {
		return errValidation("fee %d is not an allowed tier", d.Fee)
	}
	if !d.SqrtPrice.IsPositive() {
		return errValidation("sqrtPrice must be positive")
	}
	return nil
}

// AddLiquidityDTO (spec §6).
type AddLiquidityDTO struct {
	submitKey
	Token0         string
	Token1         string
	Fee            FeeAmount
	TickLower      int
	TickUpper      int
	Amount0Desired decimal.Decimal
	Amount1Desired decimal.Decimal
	Amount0Min     decimal.Decimal
	Amount1Min     decimal.Decimal
	PositionID     string
}

func (d *AddLiquidityDTO) Validate() error {
	if err := d.submitKey.validate(); err != nil {
		return err
	}
	if d.TickLower >= d.TickUpper {
		return errValidation("tickLower must be < tickUpper")
	}
	if d.Amount0Desired.IsNegative() || d.Amount1Desired.IsNegative() {
		return errValidation("desired amounts must be non-negative")
	}
	if d.PositionID == "" {
		d.PositionID = uuid.NewString()
	}
	return nil
}

// SwapDTO (spec §6).
type SwapDTO struct {
	submitKey
	Token0           string
	Token1           string
	Fee              FeeAmount
	Amount           decimal.Decimal
	ZeroForOne       bool
	SqrtPriceLimit   decimal.Decimal
	AmountInMaximum  *decimal.Decimal
	AmountOutMinimum *decimal.Decimal
	Recipient        string
}

func (d SwapDTO) Validate() error {
	if err := d.submitKey.validate(); err != nil {
		return err
	}
	if d.Amount.IsZero() {
		return errValidation("amount must be non-zero")
	}
	return nil
}

// RemoveLiquidityDTO (Burn; spec §6).
type RemoveLiquidityDTO struct {
	submitKey
	Token0     string
	Token1     string
	Fee        FeeAmount
	TickLower  int
	TickUpper  int
	PositionID string
	Liquidity  decimal.Decimal
}

func (d RemoveLiquidityDTO) Validate() error {
	if err := d.submitKey.validate(); err != nil {
		return err
	}
	if !d.Liquidity.IsPositive() {
		return errValidation("liquidity to burn must be positive")
	}
	return nil
}

// CollectPositionFeesDTO (spec §6).
type CollectPositionFeesDTO struct {
	submitKey
	Token0           string
	Token1           string
	Fee              FeeAmount
	TickLower        int
	TickUpper        int
	PositionID       string
	Amount0Requested decimal.Decimal
	Amount1Requested decimal.Decimal
}

func (d CollectPositionFeesDTO) Validate() error {
	return d.submitKey.validate()
}

// QuoteExactAmountDTO (spec §6, read-only — no uniqueKey required).
type QuoteExactAmountDTO struct {
	Token0         string
	Token1         string
	Fee            FeeAmount
	Amount         decimal.Decimal
	ZeroForOne     bool
	SqrtPriceLimit decimal.Decimal
}

func (d QuoteExactAmountDTO) Validate() error {
	if d.Amount.IsZero() {
		return errValidation("amount must be non-zero")
	}
	return nil
}

// GetPositionsDTO (spec §6, read-only — pool-wide, unfiltered by owner).
type GetPositionsDTO struct {
	Bookmark string
	Limit    int
}

func (d GetPositionsDTO) Validate() error {
	if d.Limit > MaxUserPositionsPageSize {
		return errValidation("limit must be <= %d", MaxUserPositionsPageSize)
	}
	return nil
}

// GetUserPositionsDTO (spec §6, read-only).
type GetUserPositionsDTO struct {
	User     string
	Bookmark string
	Limit    int
}

func (d GetUserPositionsDTO) Validate() error {
	if d.User == "" {
		return errValidation("user is required")
	}
	if d.Limit > MaxUserPositionsPageSize {
		return errValidation("limit must be <= %d", MaxUserPositionsPageSize)
	}
	return nil
}

// PlaceLimitOrderDTO (spec §4.13/§6).
type PlaceLimitOrderDTO struct {
	submitKey
	Hash    string
	Expires int64
}

func (d PlaceLimitOrderDTO) Validate() error {
	if err := d.submitKey.validate(); err != nil {
		return err
	}
	if len(d.Hash) != 64 {
		return errValidation("hash must be a 64-hex SHA-256 digest")
	}
	return nil
}

// FillLimitOrderDTO / CancelLimitOrderDTO both carry the full reveal (spec
// §4.13).
type FillLimitOrderDTO struct {
	submitKey
	Reveal LimitOrderReveal
}

func (d FillLimitOrderDTO) Validate() error {
	if err := d.submitKey.validate(); err != nil {
		return err
	}
	return validateReveal(d.Reveal)
}

type CancelLimitOrderDTO struct {
	submitKey
	Reveal LimitOrderReveal
}

func (d CancelLimitOrderDTO) Validate() error {
	if err := d.submitKey.validate(); err != nil {
		return err
	}
	return validateReveal(d.Reveal)
}

func validateReveal(r LimitOrderReveal) error {
	if r.Owner == "" || r.Sell == "" || r.Buy == "" {
		return errValidation("reveal owner/sell/buy are required")
	}
	if !r.SellAmt.IsPositive() {
		return errValidation("sellAmt must be positive")
	}
	if r.BuyMin.IsNegative() {
		return errValidation("buyMin must be non-negative")
	}
	return nil
}

// SetGlobalLimitOrderConfigDTO (spec §6 admin op).
type SetGlobalLimitOrderConfigDTO struct {
	submitKey
	AdminWallets []string
}

func (d SetGlobalLimitOrderConfigDTO) Validate() error {
	return d.submitKey.validate()
}

// SetProtocolFeeDTO (spec §6 admin op, stored as basis points per §9 Open
// Question 3).
type SetProtocolFeeDTO struct {
	submitKey
	Token0         string
	Token1         string
	Fee            FeeAmount
	ProtocolFeeBps int
}

func (d SetProtocolFeeDTO) Validate() error {
	if err := d.submitKey.validate(); err != nil {
		return err
	}
	if d.ProtocolFeeBps < 0 || d.ProtocolFeeBps > MaxProtocolFeeBps {
		return errValidation("protocolFeeBps must be in [0, %d]", MaxProtocolFeeBps)
	}
	return nil
}

// ConfigureDexFeeAddressDTO (spec §6 admin op, DexFeeConfig authorities).
type ConfigureDexFeeAddressDTO struct {
	submitKey
	Authorities []string
}

func (d ConfigureDexFeeAddressDTO) Validate() error {
	return d.submitKey.validate()
}

// CollectProtocolFeesDTO (spec §6 admin op).
type CollectProtocolFeesDTO struct {
	submitKey
	Token0 string
	Token1 string
	Fee    FeeAmount
	Max0   decimal.Decimal
	Max1   decimal.Decimal
}

func (d CollectProtocolFeesDTO) Validate() error {
	return d.submitKey.validate()
}
