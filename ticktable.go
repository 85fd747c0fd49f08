package dex

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// TickInfo is the per-tick state from spec §3: initialised ⇔ liquidityGross
// > 0, liquidityGross non-negative, liquidityNet signed.
type TickInfo struct {
	LiquidityGross    decimal.Decimal `json:"liquidityGross"`
	LiquidityNet      decimal.Decimal `json:"liquidityNet"`
	FeeGrowthOutside0 decimal.Decimal `json:"feeGrowthOutside0"`
	FeeGrowthOutside1 decimal.Decimal `json:"feeGrowthOutside1"`
	Initialized       bool            `json:"initialized"`
}

// TickTable is the per-pool collection of TickInfo, keyed by tick, plus the
// bitmap kept in lockstep with it (spec §3 cross-entity invariant I2).
type TickTable struct {
	ticks  map[int]*TickInfo
	Bitmap *Bitmap
}

func NewTickTable() *TickTable {
	return &TickTable{ticks: make(map[int]*TickInfo), Bitmap: NewBitmap()}
}

func (tt *TickTable) getOrInit(tick int) *TickInfo {
	info, ok := tt.ticks[tick]
	if !ok {
		info = &TickInfo{
			LiquidityGross:    ZERO,
			LiquidityNet:      ZERO,
			FeeGrowthOutside0: ZERO,
			FeeGrowthOutside1: ZERO,
		}
		tt.ticks[tick] = info
	}
	return info
}

// Get returns the tick's current state and whether it exists at all.
func (tt *TickTable) Get(tick int) (TickInfo, bool) {
	info, ok := tt.ticks[tick]
	if !ok {
		return TickInfo{}, false
	}
	return *info, true
}

// update applies a signed liquidity delta at tick (spec §4.6). upper
// indicates whether this is the position's upper bound (liquidityNet
// subtracts rather than adds). Returns whether the tick's initialised
// status flipped, so the caller can keep the bitmap in sync (I2).
func (tt *TickTable) update(tick, tickCurrent int, spacing int, delta decimal.Decimal, feeGrowthGlobal0, feeGrowthGlobal1, maxLiquidityPerTick decimal.Decimal, upper bool) (flipped bool, err error) {
	info := tt.getOrInit(tick)

	liquidityGrossBefore := info.LiquidityGross
	// liquidityGross always accumulates the magnitude of the delta,
	// regardless of its sign or of upper/lower.
	liquidityGrossAfter, err := addDelta(liquidityGrossBefore, absSigned(delta))
	if err != nil {
		return false, err
	}
	if liquidityGrossAfter.GreaterThan(maxLiquidityPerTick) {
		return false, errConflict("liquidity gross %s exceeds max per tick %s", liquidityGrossAfter, maxLiquidityPerTick)
	}

	flipped = liquidityGrossAfter.IsZero() != liquidityGrossBefore.IsZero()

	if liquidityGrossBefore.IsZero() {
		// Tick transitions 0 -> >0: seed feeGrowthOutside from the globals
		// iff tick <= tickCurrent, else zero (spec §4.6).
		if tick <= tickCurrent {
			info.FeeGrowthOutside0 = feeGrowthGlobal0
			info.FeeGrowthOutside1 = feeGrowthGlobal1
		} else {
			info.FeeGrowthOutside0 = ZERO
			info.FeeGrowthOutside1 = ZERO
		}
	}

	info.LiquidityGross = liquidityGrossAfter
	if upper {
		info.LiquidityNet = info.LiquidityNet.Sub(delta)
	} else {
		info.LiquidityNet = info.LiquidityNet.Add(delta)
	}

	wasInitialized := info.Initialized
	info.Initialized = !liquidityGrossAfter.IsZero()
	if info.Initialized != wasInitialized {
		if ferr := tt.Bitmap.flipTick(tick, spacing); ferr != nil {
			return false, ferr
		}
	}

	return flipped, nil
}

func absSigned(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return d.Neg()
	}
	return d
}

// clear deletes a tick's state once its liquidityGross has returned to
// zero (spec §3 TickData lifecycle).
func (tt *TickTable) clear(tick int) {
	delete(tt.ticks, tick)
}

// cross is called by the swap engine when crossing tick (spec §4.6):
// feeGrowthOutside flips relative to the globals, and the tick's
// liquidityNet is returned so the swap loop can adjust active liquidity.
func (tt *TickTable) cross(tick int, feeGrowthGlobal0, feeGrowthGlobal1 decimal.Decimal) decimal.Decimal {
	info := tt.getOrInit(tick)
	info.FeeGrowthOutside0 = feeGrowthGlobal0.Sub(info.FeeGrowthOutside0)
	info.FeeGrowthOutside1 = feeGrowthGlobal1.Sub(info.FeeGrowthOutside1)
	return info.LiquidityNet
}

// getFeeGrowthInside derives the fee growth accrued inside [tickLower,
// tickUpper] given the current tick and the pool's global accumulators
// (spec §4.6). Modular wrap-around on the subtractions matches the
// reference semantics — decimal has no fixed modulus, so "wrap" here simply
// means we never clamp a negative difference to zero.
func (tt *TickTable) getFeeGrowthInside(tickLower, tickUpper, tickCurrent int, feeGrowthGlobal0, feeGrowthGlobal1 decimal.Decimal) (inside0, inside1 decimal.Decimal) {
	lower, lowerOK := tt.ticks[tickLower]
	upper, upperOK := tt.ticks[tickUpper]
	var lowerOutside0, lowerOutside1, upperOutside0, upperOutside1 decimal.Decimal
	if lowerOK {
		lowerOutside0, lowerOutside1 = lower.FeeGrowthOutside0, lower.FeeGrowthOutside1
	}
	if upperOK {
		upperOutside0, upperOutside1 = upper.FeeGrowthOutside0, upper.FeeGrowthOutside1
	}

	var below0, below1 decimal.Decimal
	if tickCurrent >= tickLower {
		below0, below1 = lowerOutside0, lowerOutside1
	} else {
		below0 = feeGrowthGlobal0.Sub(lowerOutside0)
		below1 = feeGrowthGlobal1.Sub(lowerOutside1)
	}

	var above0, above1 decimal.Decimal
	if tickCurrent < tickUpper {
		above0, above1 = upperOutside0, upperOutside1
	} else {
		above0 = feeGrowthGlobal0.Sub(upperOutside0)
		above1 = feeGrowthGlobal1.Sub(upperOutside1)
	}

	inside0 = feeGrowthGlobal0.Sub(below0).Sub(above0)
	inside1 = feeGrowthGlobal1.Sub(below1).Sub(above1)
	return
}

// UpdateBitmap recomputes the bitmap from TickData.initialised from
// scratch, repairing P1 (bitmap-tick consistency) after a manual store
// edit (spec §1 peripheral reconciliation helper).
func (tt *TickTable) UpdateBitmap(spacing int) error {
	tt.Bitmap = NewBitmap()
	for tick, info := range tt.ticks {
		if !info.Initialized {
			continue
		}
		if err := tt.Bitmap.flipTick(tick, spacing); err != nil {
			return err
		}
	}
	return nil
}

// OrderedTicks returns every tick in the table in ascending key order, for
// deterministic iteration (spec §6 determinism requirement).
func (tt *TickTable) OrderedTicks() []int {
	ticks := make([]int, 0, len(tt.ticks))
	for t := range tt.ticks {
		ticks = append(ticks, t)
	}
	sort.Ints(ticks)
	return ticks
}

// MarshalJSON/UnmarshalJSON give TickTable canonical, stable-order JSON so
// content-addressed storage keys match across replicas (spec §6).
func (tt *TickTable) MarshalJSON() ([]byte, error) {
	type wire struct {
		Ticks map[int]*TickInfo `json:"ticks"`
	}
	return json.Marshal(wire{Ticks: tt.ticks})
}

func (tt *TickTable) UnmarshalJSON(data []byte) error {
	type wire struct {
		Ticks map[int]*TickInfo `json:"ticks"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Ticks == nil {
		w.Ticks = make(map[int]*TickInfo)
	}
	tt.ticks = w.Ticks
	if tt.Bitmap == nil {
		tt.Bitmap = NewBitmap()
	}
	for tick, info := range tt.ticks {
		if info.Initialized {
			_ = tt.Bitmap.flipTick(tick, 1)
		}
	}
	return nil
}
