package dex

import "github.com/shopspring/decimal"

// MintResult carries the token amounts the caller must deposit (spec
// §4.11).
type MintResult struct {
	Amount0 decimal.Decimal
	Amount1 decimal.Decimal
}

// Mint adds ΔL to a position across [tickLower, tickUpper], updating both
// tick boundaries and computing the deposit amounts based on where the
// pool's current tick sits relative to the range (spec §4.11).
func (p *Pool) Mint(owner string, key PositionKey, deltaL decimal.Decimal) (MintResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.IsWhitelisted(owner) {
		return MintResult{}, errUnauthorized("caller %s is not whitelisted for private pool %s", owner, p.PoolHash)
	}
	if !deltaL.IsPositive() {
		return MintResult{}, errValidation("mint requires ΔL > 0, got %s", deltaL)
	}
	if err := p.checkTicks(key.TickLower, key.TickUpper); err != nil {
		return MintResult{}, err
	}

	return p.modifyPosition(owner, key, deltaL)
}

// Burn removes ΔL from a position, crediting tokensOwed rather than
// transferring immediately (spec §4.11; withdrawal happens via Collect).
func (p *Pool) Burn(key PositionKey, deltaL decimal.Decimal) (MintResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !deltaL.IsPositive() {
		return MintResult{}, errValidation("burn requires ΔL > 0, got %s", deltaL)
	}
	pos, ok := p.Positions.Get(key)
	if !ok {
		return MintResult{}, errNotFound("position %s not found", key)
	}
	if deltaL.GreaterThan(pos.Liquidity) {
		return MintResult{}, errConflict("cannot burn %s, position only holds %s", deltaL, pos.Liquidity)
	}

	result, err := p.modifyPosition(pos.Owner, key, deltaL.Neg())
	if err != nil {
		return MintResult{}, err
	}

	owned := p.Positions.getOrCreate(key, pos.Owner)
	owned.TokensOwed0 = owned.TokensOwed0.Add(result.Amount0)
	owned.TokensOwed1 = owned.TokensOwed1.Add(result.Amount1)

	return result, nil
}

// modifyPosition is the shared mint/burn core (spec §4.11 steps 2-4),
// grounded on the teacher's CorePool.modifyPosition/updatePosition split.
func (p *Pool) modifyPosition(owner string, key PositionKey, deltaL decimal.Decimal) (MintResult, error) {
	pos := p.Positions.getOrCreate(key, owner)

	fgInside0, fgInside1 := p.Ticks.getFeeGrowthInside(key.TickLower, key.TickUpper, p.TickCurrent, p.FeeGrowthGlobal0, p.FeeGrowthGlobal1)
	if err := pos.updatePosition(deltaL, fgInside0, fgInside1); err != nil {
		return MintResult{}, err
	}

	flippedLower, err := p.Ticks.update(key.TickLower, p.TickCurrent, p.TickSpacing, deltaL, p.FeeGrowthGlobal0, p.FeeGrowthGlobal1, p.MaxLiquidityPerTick, false)
	if err != nil {
		return MintResult{}, err
	}
	flippedUpper, err := p.Ticks.update(key.TickUpper, p.TickCurrent, p.TickSpacing, deltaL, p.FeeGrowthGlobal0, p.FeeGrowthGlobal1, p.MaxLiquidityPerTick, true)
	if err != nil {
		return MintResult{}, err
	}
	if flippedLower && p.Ticks.ticks[key.TickLower].LiquidityGross.IsZero() {
		p.Ticks.clear(key.TickLower)
	}
	if flippedUpper && p.Ticks.ticks[key.TickUpper] != nil && p.Ticks.ticks[key.TickUpper].LiquidityGross.IsZero() {
		p.Ticks.clear(key.TickUpper)
	}

	dir := RoundCeil
	if deltaL.IsNegative() {
		dir = RoundFloor
	}

	sqrtLower, err := tickToSqrtPrice(key.TickLower)
	if err != nil {
		return MintResult{}, err
	}
	sqrtUpper, err := tickToSqrtPrice(key.TickUpper)
	if err != nil {
		return MintResult{}, err
	}

	var amount0, amount1 decimal.Decimal
	switch {
	case p.TickCurrent < key.TickLower:
		amount0 = getAmount0Delta(sqrtLower, sqrtUpper, deltaL.Abs(), dir)
	case p.TickCurrent < key.TickUpper:
		amount0 = getAmount0Delta(p.SqrtPrice, sqrtUpper, deltaL.Abs(), dir)
		amount1 = getAmount1Delta(sqrtLower, p.SqrtPrice, deltaL.Abs(), dir)
		newLiquidity, lerr := addDelta(p.Liquidity, deltaL)
		if lerr != nil {
			return MintResult{}, lerr
		}
		p.Liquidity = newLiquidity
	default:
		amount1 = getAmount1Delta(sqrtLower, sqrtUpper, deltaL.Abs(), dir)
	}

	return MintResult{Amount0: amount0, Amount1: amount1}, nil
}

// CollectResult is the transfer-intent pair Collect emits (spec §4.11).
type CollectResult struct {
	Amount0 decimal.Decimal
	Amount1 decimal.Decimal
}

// Collect synchronises fees, clamps the requested amounts to what's owed
// and what the pool actually holds, and deletes dust positions (spec §4.11).
func (p *Pool) Collect(key PositionKey, amount0Requested, amount1Requested, poolBalance0, poolBalance1 decimal.Decimal) (CollectResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.Positions.Get(key)
	if !ok {
		return CollectResult{}, errNotFound("position %s not found", key)
	}

	fgInside0, fgInside1 := p.Ticks.getFeeGrowthInside(key.TickLower, key.TickUpper, p.TickCurrent, p.FeeGrowthGlobal0, p.FeeGrowthGlobal1)
	live := p.Positions.getOrCreate(key, pos.Owner)
	if err := live.updatePosition(ZERO, fgInside0, fgInside1); err != nil {
		return CollectResult{}, err
	}

	amount0 := decimal.Min(amount0Requested, live.TokensOwed0, poolBalance0)
	amount1 := decimal.Min(amount1Requested, live.TokensOwed1, poolBalance1)

	live.TokensOwed0 = live.TokensOwed0.Sub(amount0)
	live.TokensOwed1 = live.TokensOwed1.Sub(amount1)

	if live.isDust() {
		p.Positions.remove(key)
	}

	return CollectResult{Amount0: amount0, Amount1: amount1}, nil
}

// CollectProtocolFees is the admin-only sweep of accrued protocol fees
// (spec §4.11).
func (p *Pool) CollectProtocolFees(max0, max1 decimal.Decimal) (CollectResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	amount0 := decimal.Min(max0, p.ProtocolFeesToken0)
	amount1 := decimal.Min(max1, p.ProtocolFeesToken1)
	p.ProtocolFeesToken0 = p.ProtocolFeesToken0.Sub(amount0)
	p.ProtocolFeesToken1 = p.ProtocolFeesToken1.Sub(amount1)

	return CollectResult{Amount0: amount0, Amount1: amount1}, nil
}

// TransferUnclaimedFunds sweeps any token balance the pool holds beyond
// what's accounted for by liquidity/owed bookkeeping (spec §1 peripheral
// reconciliation helper). Refuses while the pool still has open positions,
// since the invariant it restores only holds once nothing can claim the
// excess (spec §7 Precondition).
func (p *Pool) TransferUnclaimedFunds(poolBalance0, poolBalance1 decimal.Decimal) (CollectResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.Positions.positions) > 0 {
		return CollectResult{}, errPrecondition("pool %s still has open positions", p.PoolHash)
	}

	accounted0 := p.ProtocolFeesToken0
	accounted1 := p.ProtocolFeesToken1

	excess0 := poolBalance0.Sub(accounted0)
	excess1 := poolBalance1.Sub(accounted1)
	if excess0.IsNegative() {
		excess0 = ZERO
	}
	if excess1.IsNegative() {
		excess1 = ZERO
	}

	return CollectResult{Amount0: excess0, Amount1: excess1}, nil
}
