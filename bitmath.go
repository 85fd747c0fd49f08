package dex

import "github.com/holiman/uint256"

// msbProbe holds the eight power-of-two shift thresholds the spec's binary
// search steps through (2^128, 2^64, ..., 2^1), largest first.
var msbProbe = [8]uint{128, 64, 32, 16, 8, 4, 2, 1}

// mostSignificantBit returns the index (0-255) of the highest set bit of a
// non-negative 256-bit word, via the 8-step binary search spec §4.4
// mandates — no allocation inside the loop.
func mostSignificantBit(x *uint256.Int) (uint8, error) {
	if x.IsZero() {
		return 0, errConflict("mostSignificantBit: zero has no set bit")
	}
	var r uint8
	work := new(uint256.Int).Set(x)
	threshold := new(uint256.Int)
	for _, shift := range msbProbe {
		threshold.Lsh(threshold.SetOne(), shift)
		if work.Cmp(threshold) >= 0 {
			work.Rsh(work, shift)
			r += uint8(shift)
		}
	}
	return r, nil
}

// leastSignificantBit returns the index (0-255) of the lowest set bit.
func leastSignificantBit(x *uint256.Int) (uint8, error) {
	if x.IsZero() {
		return 0, errConflict("leastSignificantBit: zero has no set bit")
	}
	// Isolate the lowest set bit: x & twosComplementNeg(x).
	notX := new(uint256.Int).Not(x)
	negX := new(uint256.Int).Add(notX, uint256.NewInt(1))
	isolated := new(uint256.Int).And(x, negX)
	return mostSignificantBit(isolated)
}

// setBit flips on bit b (0-255) of word, returning the updated word.
func setBit(word *uint256.Int, b uint8) *uint256.Int {
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(b))
	return new(uint256.Int).Or(word, mask)
}

// clearBit flips off bit b (0-255) of word, returning the updated word.
func clearBit(word *uint256.Int, b uint8) *uint256.Int {
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(b))
	mask = new(uint256.Int).Not(mask)
	return new(uint256.Int).And(word, mask)
}

// testBit reports whether bit b (0-255) of word is set.
func testBit(word *uint256.Int, b uint8) bool {
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(b))
	return !new(uint256.Int).And(word, mask).IsZero()
}

// allOnes returns the 256-bit word with every bit set.
func allOnes() *uint256.Int {
	zero := new(uint256.Int)
	return new(uint256.Int).Not(zero)
}

// maskLowerInclusive returns a mask of the lower b+1 bits (bits 0..b set).
func maskLowerInclusive(b uint8) *uint256.Int {
	if b == 255 {
		return allOnes()
	}
	shifted := new(uint256.Int).Lsh(uint256.NewInt(1), uint(b)+1)
	return new(uint256.Int).Sub(shifted, uint256.NewInt(1))
}

// maskUpper returns a mask of the upper 256-b-1 bits (bits b+1..255 set).
func maskUpper(b uint8) *uint256.Int {
	lower := maskLowerInclusive(b)
	return new(uint256.Int).Xor(allOnes(), lower)
}
