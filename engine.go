package dex

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DexFeeConfig is the singleton fee-authorities record keyed by
// FeeConfigKey (spec §6 schema table). It holds no protocol fee rate; that
// is stored per pool in Pool.ProtocolFeeBps.
type DexFeeConfig struct {
	Authorities []string
}

// Engine is the top-level dispatcher wiring wire DTOs to pool operations
// (spec §6), generalized from the teacher's per-method call style
// (`p.Mint(...)`, `p.HandleSwap(...)`) into one entry point per operation.
// It owns no mutable pool state itself — every call loads, mutates, and
// flushes through Ledger, matching the single-threaded-cooperative-
// transaction model of spec §5.
type Engine struct {
	ledger Ledger
	tokens TokenLedger
	log    *logrus.Logger
	seen   map[string]bool // uniqueKey idempotency guard, spec §6
}

func NewEngine(ledger Ledger, tokens TokenLedger, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return &Engine{ledger: ledger, tokens: tokens, log: log, seen: make(map[string]bool)}
}

func (e *Engine) idempotent(uniqueKey string) bool {
	if e.seen[uniqueKey] {
		return true
	}
	e.seen[uniqueKey] = true
	return false
}

func (e *Engine) loadPool(ctx context.Context, token0, token1 string, fee FeeAmount) (*Pool, error) {
	token0, token1, err := normalizeTokenOrder(token0, token1)
	if err != nil {
		return nil, err
	}
	var p Pool
	ok, err := e.ledger.Load(ctx, poolKey(token0, token1, fee), &p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotFound("pool %s/%s/%d not found", token0, token1, fee)
	}
	if p.Ticks == nil {
		p.Ticks = NewTickTable()
	}
	if p.Positions == nil {
		p.Positions = NewPositionManager()
	}
	for _, tick := range p.Ticks.OrderedTicks() {
		info, _ := p.Ticks.Get(tick)
		if info.Initialized {
			_ = p.Ticks.Bitmap.flipTick(tick, p.TickSpacing)
		}
	}

	prefix := fmt.Sprintf("DexPositionData|%s|", p.PoolHash)
	items, _, err := e.ledger.Range(ctx, prefix, "", 0)
	if err != nil {
		return nil, err
	}
	for _, raw := range items {
		var pos Position
		if err := jsonUnmarshal(raw, &pos); err != nil {
			return nil, err
		}
		stored := pos
		k := pos.Key.String()
		p.Positions.positions[k] = &stored
		p.Positions.indexOwnerLocked(pos.Owner, k)
	}

	return &p, nil
}

func (e *Engine) savePool(ctx context.Context, p *Pool) error {
	if err := e.ledger.Store(ctx, poolKey(p.Token0, p.Token1, p.Fee), p); err != nil {
		return err
	}
	for _, tick := range p.Ticks.OrderedTicks() {
		info, _ := p.Ticks.Get(tick)
		if err := e.ledger.Store(ctx, tickKey(p.PoolHash, tick), info); err != nil {
			return err
		}
	}
	for _, key := range sortedPositionKeys(p.Positions) {
		pos, _ := p.Positions.positions[key]
		if err := e.ledger.Store(ctx, positionKey(pos.Key), pos); err != nil {
			return err
		}
	}
	return nil
}

func sortedPositionKeys(pm *PositionManager) []string {
	keys := make([]string, 0, len(pm.positions))
	for k := range pm.positions {
		keys = append(keys, k)
	}
	sortStrings(keys)
	return keys
}

// CreatePool creates and persists a new pool (spec §4.8/§6).
func (e *Engine) CreatePool(ctx context.Context, dto CreatePoolDTO) (*Pool, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if e.idempotent(dto.UniqueKey) {
		return e.loadPool(ctx, dto.Token0, dto.Token1, dto.Fee)
	}

	p, err := NewPool(dto.Token0, dto.Token1, dto.Fee, dto.IsPrivate, dto.Whitelist)
	if err != nil {
		return nil, err
	}
	if err := p.Initialize(dto.SqrtPrice); err != nil {
		return nil, err
	}
	if err := e.savePool(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// AddLiquidity mints a position (spec §4.11/§6).
func (e *Engine) AddLiquidity(ctx context.Context, dto *AddLiquidityDTO) (MintResult, error) {
	if err := dto.Validate(); err != nil {
		return MintResult{}, err
	}
	p, err := e.loadPool(ctx, dto.Token0, dto.Token1, dto.Fee)
	if err != nil {
		return MintResult{}, err
	}

	deltaL, err := liquidityFromDesired(p, dto.TickLower, dto.TickUpper, dto.Amount0Desired, dto.Amount1Desired)
	if err != nil {
		return MintResult{}, err
	}

	key := PositionKey{PoolHash: p.PoolHash, TickLower: dto.TickLower, TickUpper: dto.TickUpper, PositionID: dto.PositionID}
	result, err := p.Mint(dto.Caller, key, deltaL)
	if err != nil {
		return MintResult{}, err
	}
	if result.Amount0.LessThan(dto.Amount0Min) || result.Amount1.LessThan(dto.Amount1Min) {
		return MintResult{}, errSlippage("mint amounts below minimums")
	}

	if err := e.savePool(ctx, p); err != nil {
		return MintResult{}, err
	}
	return result, nil
}

// liquidityFromDesired picks the maximal ΔL whose required deposit does not
// exceed either desired amount, the same way the teacher's simulator's
// mint-helpers size a position from desired token amounts.
func liquidityFromDesired(p *Pool, tickLower, tickUpper int, amount0Desired, amount1Desired decimal.Decimal) (decimal.Decimal, error) {
	sqrtLower, err := tickToSqrtPrice(tickLower)
	if err != nil {
		return ZERO, err
	}
	sqrtUpper, err := tickToSqrtPrice(tickUpper)
	if err != nil {
		return ZERO, err
	}

	sqrtCurrent := p.SqrtPrice
	if sqrtCurrent.LessThanOrEqual(sqrtLower) {
		return liquidityForAmount0(sqrtLower, sqrtUpper, amount0Desired), nil
	}
	if sqrtCurrent.GreaterThanOrEqual(sqrtUpper) {
		return liquidityForAmount1(sqrtLower, sqrtUpper, amount1Desired), nil
	}
	l0 := liquidityForAmount0(sqrtCurrent, sqrtUpper, amount0Desired)
	l1 := liquidityForAmount1(sqrtLower, sqrtCurrent, amount1Desired)
	return decimal.Min(l0, l1), nil
}

// liquidityForAmount0 = amount0 * sqrtA * sqrtB / (sqrtB - sqrtA), in the
// pool's true (non-X96) sqrt-price domain.
func liquidityForAmount0(sqrtA, sqrtB, amount0 decimal.Decimal) decimal.Decimal {
	if sqrtA.GreaterThan(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	return mulDiv(amount0.Mul(sqrtA), sqrtB, sqrtB.Sub(sqrtA), RoundFloor)
}

// liquidityForAmount1 = amount1 / (sqrtB - sqrtA).
func liquidityForAmount1(sqrtA, sqrtB, amount1 decimal.Decimal) decimal.Decimal {
	if sqrtA.GreaterThan(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	return divRound(amount1, sqrtB.Sub(sqrtA), RoundFloor)
}

// RemoveLiquidity burns liquidity from a position (spec §4.11/§6).
func (e *Engine) RemoveLiquidity(ctx context.Context, dto RemoveLiquidityDTO) (MintResult, error) {
	if err := dto.Validate(); err != nil {
		return MintResult{}, err
	}
	p, err := e.loadPool(ctx, dto.Token0, dto.Token1, dto.Fee)
	if err != nil {
		return MintResult{}, err
	}
	key := PositionKey{PoolHash: p.PoolHash, TickLower: dto.TickLower, TickUpper: dto.TickUpper, PositionID: dto.PositionID}
	result, err := p.Burn(key, dto.Liquidity)
	if err != nil {
		return MintResult{}, err
	}
	if err := e.savePool(ctx, p); err != nil {
		return MintResult{}, err
	}
	return result, nil
}

// CollectPositionFees withdraws owed tokens from a position (spec §4.11/§6).
func (e *Engine) CollectPositionFees(ctx context.Context, dto CollectPositionFeesDTO, poolBalance0, poolBalance1 decimal.Decimal) (CollectResult, error) {
	if err := dto.Validate(); err != nil {
		return CollectResult{}, err
	}
	p, err := e.loadPool(ctx, dto.Token0, dto.Token1, dto.Fee)
	if err != nil {
		return CollectResult{}, err
	}
	key := PositionKey{PoolHash: p.PoolHash, TickLower: dto.TickLower, TickUpper: dto.TickUpper, PositionID: dto.PositionID}
	result, err := p.Collect(key, dto.Amount0Requested, dto.Amount1Requested, poolBalance0, poolBalance1)
	if err != nil {
		return CollectResult{}, err
	}
	if err := e.savePool(ctx, p); err != nil {
		return CollectResult{}, err
	}
	if e.tokens != nil {
		if !result.Amount0.IsZero() {
			if err := e.tokens.TransferToken(ctx, tokenAddress(p.PoolHash), tokenAddress(dto.Caller), p.Token0, result.Amount0); err != nil {
				return CollectResult{}, err
			}
		}
		if !result.Amount1.IsZero() {
			if err := e.tokens.TransferToken(ctx, tokenAddress(p.PoolHash), tokenAddress(dto.Caller), p.Token1, result.Amount1); err != nil {
				return CollectResult{}, err
			}
		}
	}
	return result, nil
}

// Swap executes a swap and enforces the caller's slippage bounds (spec
// §4.10/§6).
func (e *Engine) Swap(ctx context.Context, dto SwapDTO) (SwapResult, error) {
	if err := dto.Validate(); err != nil {
		return SwapResult{}, err
	}
	p, err := e.loadPool(ctx, dto.Token0, dto.Token1, dto.Fee)
	if err != nil {
		return SwapResult{}, err
	}

	result, err := p.Swap(dto.Caller, dto.ZeroForOne, dto.Amount, dto.SqrtPriceLimit, e.log.WithField("pool", p.PoolHash))
	if err != nil {
		return SwapResult{}, err
	}
	if err := CheckSlippage(result, dto.ZeroForOne, dto.AmountInMaximum, dto.AmountOutMinimum); err != nil {
		return SwapResult{}, err
	}
	if err := e.savePool(ctx, p); err != nil {
		return SwapResult{}, err
	}
	return result, nil
}

// QuoteExactAmount simulates a swap without persisting anything (spec
// §4.12/§6).
func (e *Engine) QuoteExactAmount(ctx context.Context, dto QuoteExactAmountDTO) (QuoteResult, error) {
	if err := dto.Validate(); err != nil {
		return QuoteResult{}, err
	}
	p, err := e.loadPool(ctx, dto.Token0, dto.Token1, dto.Fee)
	if err != nil {
		return QuoteResult{}, err
	}
	return QuoteExactAmount(p, dto.ZeroForOne, dto.Amount, dto.SqrtPriceLimit)
}

// GetSlot0 / GetLiquidity / GetPositionByID / GetTickData are pure reads
// (spec §6).
func (e *Engine) GetSlot0(ctx context.Context, token0, token1 string, fee FeeAmount) (Slot0, error) {
	p, err := e.loadPool(ctx, token0, token1, fee)
	if err != nil {
		return Slot0{}, err
	}
	return p.GetSlot0(), nil
}

func (e *Engine) GetLiquidity(ctx context.Context, token0, token1 string, fee FeeAmount) (decimal.Decimal, error) {
	p, err := e.loadPool(ctx, token0, token1, fee)
	if err != nil {
		return ZERO, err
	}
	return p.GetSlot0().Liquidity, nil
}

func (e *Engine) GetPositionByID(ctx context.Context, token0, token1 string, fee FeeAmount, tickLower, tickUpper int, positionID string) (Position, error) {
	p, err := e.loadPool(ctx, token0, token1, fee)
	if err != nil {
		return Position{}, err
	}
	key := PositionKey{PoolHash: p.PoolHash, TickLower: tickLower, TickUpper: tickUpper, PositionID: positionID}
	pos, ok := p.Positions.Get(key)
	if !ok {
		return Position{}, errNotFound("position %s not found", key)
	}
	return pos, nil
}

func (e *Engine) GetTickData(ctx context.Context, token0, token1 string, fee FeeAmount, tick int) (TickInfo, error) {
	p, err := e.loadPool(ctx, token0, token1, fee)
	if err != nil {
		return TickInfo{}, err
	}
	info, ok := p.Ticks.Get(tick)
	if !ok {
		return TickInfo{}, errNotFound("tick %d not found", tick)
	}
	return info, nil
}

// GetPositions paginates every position in a pool, regardless of owner
// (spec §6).
func (e *Engine) GetPositions(ctx context.Context, token0, token1 string, fee FeeAmount, dto GetPositionsDTO) ([]string, string, error) {
	if err := dto.Validate(); err != nil {
		return nil, "", err
	}
	p, err := e.loadPool(ctx, token0, token1, fee)
	if err != nil {
		return nil, "", err
	}
	keys, next := p.Positions.ListAll(dto.Bookmark, dto.Limit)
	return keys, next, nil
}

// GetUserPositions paginates a user's positions in a pool (spec §6).
func (e *Engine) GetUserPositions(ctx context.Context, token0, token1 string, fee FeeAmount, dto GetUserPositionsDTO) ([]string, string, error) {
	if err := dto.Validate(); err != nil {
		return nil, "", err
	}
	p, err := e.loadPool(ctx, token0, token1, fee)
	if err != nil {
		return nil, "", err
	}
	keys, next := GetUserPositions(p.Positions, dto.User, dto.Bookmark, dto.Limit)
	return keys, next, nil
}

// PlaceLimitOrder / FillLimitOrder / CancelLimitOrder (spec §4.13/§6).
func (e *Engine) PlaceLimitOrder(ctx context.Context, dto PlaceLimitOrderDTO, now int64) error {
	if err := dto.Validate(); err != nil {
		return err
	}
	commitment, err := PlaceLimitOrder(dto.Hash, dto.Expires, now)
	if err != nil {
		return err
	}
	return e.ledger.Store(ctx, limitOrderCommitmentKey(commitment.Hash), commitment)
}

func (e *Engine) loadLimitOrderConfig(ctx context.Context) (*GlobalLimitOrderConfig, error) {
	var wire struct{ AdminWallets []string }
	ok, err := e.ledger.Load(ctx, GlobalLimitOrderConfigKey, &wire)
	if err != nil {
		return nil, err
	}
	cfg := &GlobalLimitOrderConfig{AdminWallets: make(map[string]bool)}
	if ok {
		for _, w := range wire.AdminWallets {
			cfg.AdminWallets[lower(w)] = true
		}
	}
	return cfg, nil
}

func (e *Engine) FillLimitOrder(ctx context.Context, dto FillLimitOrderDTO, token0, token1 string, fee FeeAmount, now int64) (FillLimitOrderResult, error) {
	if err := dto.Validate(); err != nil {
		return FillLimitOrderResult{}, err
	}
	cfg, err := e.loadLimitOrderConfig(ctx)
	if err != nil {
		return FillLimitOrderResult{}, err
	}

	hash := dto.Reveal.CommitmentHash()
	var commitment LimitOrderCommitment
	ok, err := e.ledger.Load(ctx, limitOrderCommitmentKey(hash), &commitment)
	if err != nil {
		return FillLimitOrderResult{}, err
	}
	var commitmentPtr *LimitOrderCommitment
	if ok {
		commitmentPtr = &commitment
	}

	p, err := e.loadPool(ctx, token0, token1, fee)
	if err != nil {
		return FillLimitOrderResult{}, err
	}

	result, err := FillLimitOrder(cfg, dto.Caller, commitmentPtr, dto.Reveal, p, now)
	if err != nil {
		return FillLimitOrderResult{}, err
	}

	if err := e.savePool(ctx, p); err != nil {
		return FillLimitOrderResult{}, err
	}
	if err := e.ledger.Delete(ctx, limitOrderCommitmentKey(hash)); err != nil {
		return FillLimitOrderResult{}, err
	}

	if e.tokens != nil {
		owner := tokenAddress(dto.Reveal.Owner)
		poolAddr := tokenAddress(p.PoolHash)
		if err := e.tokens.TransferToken(ctx, owner, poolAddr, dto.Reveal.Sell, result.SellAmount); err != nil {
			return FillLimitOrderResult{}, err
		}
		if err := e.tokens.TransferToken(ctx, poolAddr, owner, dto.Reveal.Buy, result.BuyAmount); err != nil {
			return FillLimitOrderResult{}, err
		}
	}

	return result, nil
}

func (e *Engine) CancelLimitOrder(ctx context.Context, dto CancelLimitOrderDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}
	cfg, err := e.loadLimitOrderConfig(ctx)
	if err != nil {
		return err
	}
	hash := dto.Reveal.CommitmentHash()
	var commitment LimitOrderCommitment
	ok, err := e.ledger.Load(ctx, limitOrderCommitmentKey(hash), &commitment)
	if err != nil {
		return err
	}
	var commitmentPtr *LimitOrderCommitment
	if ok {
		commitmentPtr = &commitment
	}
	if err := CancelLimitOrder(cfg, dto.Caller, dto.Reveal, commitmentPtr); err != nil {
		return err
	}
	return e.ledger.Delete(ctx, limitOrderCommitmentKey(hash))
}

// SetGlobalLimitOrderConfig / SetProtocolFee / ConfigureDexFeeAddress /
// CollectProtocolFees are admin operations (spec §6).
func (e *Engine) SetGlobalLimitOrderConfig(ctx context.Context, dto SetGlobalLimitOrderConfigDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}
	wire := struct{ AdminWallets []string }{AdminWallets: dto.AdminWallets}
	return e.ledger.Store(ctx, GlobalLimitOrderConfigKey, wire)
}

func (e *Engine) SetProtocolFee(ctx context.Context, dto SetProtocolFeeDTO, caller string, authorities []string) error {
	if err := dto.Validate(); err != nil {
		return err
	}
	if !isAuthority(caller, authorities) {
		return errUnauthorized("caller %s is not a fee authority", caller)
	}
	p, err := e.loadPool(ctx, dto.Token0, dto.Token1, dto.Fee)
	if err != nil {
		return err
	}
	p.ProtocolFeeBps = dto.ProtocolFeeBps
	return e.savePool(ctx, p)
}

func (e *Engine) ConfigureDexFeeAddress(ctx context.Context, dto ConfigureDexFeeAddressDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}
	return e.ledger.Store(ctx, FeeConfigKey, DexFeeConfig{Authorities: dto.Authorities})
}

func (e *Engine) CollectProtocolFees(ctx context.Context, dto CollectProtocolFeesDTO, caller string, authorities []string) (CollectResult, error) {
	if err := dto.Validate(); err != nil {
		return CollectResult{}, err
	}
	if !isAuthority(caller, authorities) {
		return CollectResult{}, errUnauthorized("caller %s is not a fee authority", caller)
	}
	p, err := e.loadPool(ctx, dto.Token0, dto.Token1, dto.Fee)
	if err != nil {
		return CollectResult{}, err
	}
	result, err := p.CollectProtocolFees(dto.Max0, dto.Max1)
	if err != nil {
		return CollectResult{}, err
	}
	if err := e.savePool(ctx, p); err != nil {
		return CollectResult{}, err
	}
	return result, nil
}

func isAuthority(caller string, authorities []string) bool {
	for _, a := range authorities {
		if lower(a) == lower(caller) {
			return true
		}
	}
	return false
}
