package dex

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Pool is the (token0, token1, fee) CL-AMM entity (spec §3/§4.8): Slot0
// fields, global fee accumulators, protocol fees, and the tick/bitmap
// index, generalized from the teacher's CorePool.
type Pool struct {
	gorm.Model

	PoolHash  string `gorm:"uniqueIndex"`
	PoolAlias string `gorm:"index"`

	Token0 string
	Token1 string
	Fee    FeeAmount

	TickSpacing         int
	MaxLiquidityPerTick decimal.Decimal

	SqrtPrice   decimal.Decimal
	TickCurrent int
	Liquidity   decimal.Decimal

	FeeGrowthGlobal0 decimal.Decimal
	FeeGrowthGlobal1 decimal.Decimal

	ProtocolFeesToken0 decimal.Decimal
	ProtocolFeesToken1 decimal.Decimal
	ProtocolFeeBps     int

	IsPrivate bool
	Whitelist map[string]bool `gorm:"-"`

	Ticks     *TickTable       `gorm:"-" json:"-"`
	Positions *PositionManager `gorm:"-" json:"-"`

	HasCreated bool `gorm:"-"` // has been persisted once; Flush then updates instead of creates

	mu sync.RWMutex
}

// poolAlias and poolHash are derived deterministically from (token0,
// token1, fee) with token0 < token1 lexicographic ordering enforced by the
// caller (spec §3 Pool identity, §4.8).
func normalizeTokenOrder(tokenA, tokenB string) (token0, token1 string, err error) {
	if tokenA == tokenB {
		return "", "", errValidation("token0 and token1 must differ")
	}
	if tokenA < tokenB {
		return tokenA, tokenB, nil
	}
	return tokenB, tokenA, nil
}

func poolAlias(token0, token1 string, fee FeeAmount) string {
	return fmt.Sprintf("%s/%s/%d", token0, token1, fee)
}

func poolHash(token0, token1 string, fee FeeAmount) string {
	sum := sha256.Sum256([]byte(poolAlias(token0, token1, fee)))
	return hex.EncodeToString(sum[:])
}

// NewPool constructs an uninitialised pool shell for CreatePool (spec
// §4.8). Initialize must be called before any mint/swap.
func NewPool(token0, token1 string, fee FeeAmount, isPrivate bool, whitelist []string) (*Pool, error) {
	token0, token1, err := normalizeTokenOrder(token0, token1)
	if err != nil {
		return nil, err
	}
	spacing, ok := TickSpacings[fee]
	if !ok {
		return nil, errValidation("unsupported fee tier %d", fee)
	}

	wl := make(map[string]bool, len(whitelist))
	for _, addr := range whitelist {
		wl[strings.ToLower(addr)] = true
	}

	return &Pool{
		PoolHash:            poolHash(token0, token1, fee),
		PoolAlias:           poolAlias(token0, token1, fee),
		Token0:              token0,
		Token1:              token1,
		Fee:                 fee,
		TickSpacing:         spacing,
		MaxLiquidityPerTick: tickSpacingToMaxLiquidityPerTick(spacing),
		SqrtPrice:           ZERO,
		Liquidity:           ZERO,
		FeeGrowthGlobal0:    ZERO,
		FeeGrowthGlobal1:    ZERO,
		ProtocolFeesToken0:  ZERO,
		ProtocolFeesToken1:  ZERO,
		IsPrivate:           isPrivate,
		Whitelist:           wl,
		Ticks:               NewTickTable(),
		Positions:           NewPositionManager(),
	}, nil
}

// Initialize sets the pool's starting sqrtPrice and derives TickCurrent
// (spec §4.8; mirrors the teacher's CorePool.Initialize).
func (p *Pool) Initialize(sqrtPrice decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.SqrtPrice.IsZero() {
		return errConflict("pool %s already initialised", p.PoolHash)
	}
	if sqrtPrice.LessThan(MinSqrtRatio) || sqrtPrice.GreaterThan(MaxSqrtRatio) {
		return errValidation("sqrtPrice %s out of bounds", sqrtPrice)
	}
	tick, err := sqrtPriceToTick(sqrtPrice)
	if err != nil {
		return err
	}
	p.SqrtPrice = sqrtPrice
	p.TickCurrent = tick
	return nil
}

// IsWhitelisted reports whether caller may interact with a private pool
// (spec §1 peripheral concern, "private-pool whitelisting", touched here
// only insofar as it gates mint/swap entry).
func (p *Pool) IsWhitelisted(caller string) bool {
	if !p.IsPrivate {
		return true
	}
	return p.Whitelist[strings.ToLower(caller)]
}

// checkTicks validates tickLower < tickUpper, both within [MIN_TICK,
// MAX_TICK], and both multiples of the pool's tickSpacing (spec §3
// Position identity constraint).
func (p *Pool) checkTicks(tickLower, tickUpper int) error {
	if tickLower >= tickUpper {
		return errValidation("tickLower %d must be < tickUpper %d", tickLower, tickUpper)
	}
	if tickLower < MinTick || tickUpper > MaxTick {
		return errValidation("ticks out of bounds [%d, %d]", MinTick, MaxTick)
	}
	if tickLower%p.TickSpacing != 0 || tickUpper%p.TickSpacing != 0 {
		return errValidation("ticks must be multiples of tickSpacing %d", p.TickSpacing)
	}
	return nil
}

// Slot0 is the read-only price/tick/liquidity snapshot returned by
// GetSlot0 (spec §6).
type Slot0 struct {
	SqrtPrice   decimal.Decimal
	TickCurrent int
	Liquidity   decimal.Decimal
}

func (p *Pool) GetSlot0() Slot0 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Slot0{SqrtPrice: p.SqrtPrice, TickCurrent: p.TickCurrent, Liquidity: p.Liquidity}
}

// Clone returns a deep-enough copy for use as a CompositePool quote
// snapshot (spec §4.12), mirroring the teacher's CorePool.Clone.
func (p *Pool) Clone() *Pool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	clonedTicks := NewTickTable()
	for tick, info := range p.Ticks.ticks {
		copied := *info
		clonedTicks.ticks[tick] = &copied
		if info.Initialized {
			_ = clonedTicks.Bitmap.flipTick(tick, p.TickSpacing)
		}
	}

	clonedPositions := NewPositionManager()
	for k, pos := range p.Positions.positions {
		copied := *pos
		clonedPositions.positions[k] = &copied
		clonedPositions.indexOwnerLocked(pos.Owner, k)
	}

	wl := make(map[string]bool, len(p.Whitelist))
	for k, v := range p.Whitelist {
		wl[k] = v
	}

	return &Pool{
		PoolHash:            p.PoolHash,
		PoolAlias:           p.PoolAlias,
		Token0:              p.Token0,
		Token1:              p.Token1,
		Fee:                 p.Fee,
		TickSpacing:         p.TickSpacing,
		MaxLiquidityPerTick: p.MaxLiquidityPerTick,
		SqrtPrice:           p.SqrtPrice,
		TickCurrent:         p.TickCurrent,
		Liquidity:           p.Liquidity,
		FeeGrowthGlobal0:    p.FeeGrowthGlobal0,
		FeeGrowthGlobal1:    p.FeeGrowthGlobal1,
		ProtocolFeesToken0:  p.ProtocolFeesToken0,
		ProtocolFeesToken1:  p.ProtocolFeesToken1,
		ProtocolFeeBps:      p.ProtocolFeeBps,
		IsPrivate:           p.IsPrivate,
		Whitelist:           wl,
		Ticks:               clonedTicks,
		Positions:           clonedPositions,
	}
}

// Flush persists the pool's scalar fields via the given gorm handle,
// matching the teacher's create-once-then-update Flush(db *gorm.DB) idiom.
// Ticks and positions are persisted separately through the Ledger interface
// (store.go) since they're identity-keyed rows, not pool-embedded columns.
func (p *Pool) Flush(db *gorm.DB) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.HasCreated {
		return db.Model(p).Updates(map[string]interface{}{
			"sqrt_price":           p.SqrtPrice,
			"liquidity":            p.Liquidity,
			"tick_current":         p.TickCurrent,
			"fee_growth_global0":   p.FeeGrowthGlobal0,
			"fee_growth_global1":   p.FeeGrowthGlobal1,
			"protocol_fees_token0": p.ProtocolFeesToken0,
			"protocol_fees_token1": p.ProtocolFeesToken1,
			"protocol_fee_bps":     p.ProtocolFeeBps,
		}).Error
	}
	p.HasCreated = true
	return db.Create(p).Error
}
