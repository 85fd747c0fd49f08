package dex

import "github.com/holiman/uint256"

// Bitmap is the sparse word-indexed bitmap from spec §3: for each word
// index w, a 256-bit integer whose bit b is 1 iff tick (w*256+b)*spacing is
// initialised. Word keys are deleted once their word goes to zero, matching
// spec §4.5's flipTick contract.
type Bitmap struct {
	words map[int64]*uint256.Int
}

func NewBitmap() *Bitmap {
	return &Bitmap{words: make(map[int64]*uint256.Int)}
}

func (bm *Bitmap) wordAt(w int64) *uint256.Int {
	if word, ok := bm.words[w]; ok {
		return word
	}
	return new(uint256.Int)
}

// position splits a spacing-compressed tick into its word index and bit
// position, flooring toward -infinity for negative ticks (spec §4.5).
func position(compressed int64) (word int64, bit uint8) {
	word = floorDiv(compressed, 256)
	bit = uint8(((compressed % 256) + 256) % 256)
	return
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// compress floors tick/spacing toward -infinity (spec §4.5).
func compress(tick, spacing int) int64 {
	return floorDiv(int64(tick), int64(spacing))
}

// flipTick toggles the bit for tick in the bitmap, deleting the word key if
// the resulting word is zero (spec §4.5, §3 BitMap invariant).
func (bm *Bitmap) flipTick(tick, spacing int) error {
	if tick%spacing != 0 {
		return errValidation("tick %d is not a multiple of spacing %d", tick, spacing)
	}
	compressed := compress(tick, spacing)
	w, b := position(compressed)
	word := bm.wordAt(w)
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(b))
	next := new(uint256.Int).Xor(word, mask)
	if next.IsZero() {
		delete(bm.words, w)
	} else {
		bm.words[w] = next
	}
	return nil
}

// isInitialized reports whether tick's bit is set (used by P1 consistency
// checks and by tests).
func (bm *Bitmap) isInitialized(tick, spacing int) bool {
	compressed := compress(tick, spacing)
	w, b := position(compressed)
	return testBit(bm.wordAt(w), b)
}

// nextInitializedTickWithinOneWord returns the next initialised tick within
// the same 256-tick word as tick, searching downward (lte=true) or upward
// (lte=false), per spec §4.5. The uninitialised fallback is always clamped
// to [MinTick, MaxTick] before use.
func (bm *Bitmap) nextInitializedTickWithinOneWord(tick, spacing int, lte bool) (nextTick int, initialized bool, err error) {
	compressed := compress(tick, spacing)

	if lte {
		w, b := position(compressed)
		word := bm.wordAt(w)
		mask := maskLowerInclusive(b)
		masked := new(uint256.Int).And(word, mask)
		if !masked.IsZero() {
			msb, err := mostSignificantBit(masked)
			if err != nil {
				return 0, false, err
			}
			nt := (w*256 + int64(msb)) * int64(spacing)
			return clampTick(int(nt)), true, nil
		}
		nt := (w * 256) * int64(spacing)
		return clampTick(int(nt)), false, nil
	}

	// Searching upward: start one compressed tick above the current one.
	compressed++
	w, b := position(compressed)
	word := bm.wordAt(w)
	mask := new(uint256.Int).Or(maskUpper(b), new(uint256.Int).Lsh(uint256.NewInt(1), uint(b)))
	masked := new(uint256.Int).And(word, mask)
	if !masked.IsZero() {
		lsb, err := leastSignificantBit(masked)
		if err != nil {
			return 0, false, err
		}
		nt := (w*256 + int64(lsb)) * int64(spacing)
		return clampTick(int(nt)), true, nil
	}
	nt := (w*256 + 255) * int64(spacing)
	return clampTick(int(nt)), false, nil
}
