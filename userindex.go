package dex

import (
	"strconv"
	"strings"
)

// Cursor is the explicit (chainBookmark, localBookmark) pagination pair
// spec §9's redesign note mandates in place of a lazy iterator/stream: the
// chain bookmark resumes the underlying Ledger.Range scan, the local
// bookmark resumes iteration inside the page already fetched from it.
type Cursor struct {
	ChainBookmark string
	LocalBookmark int
}

// ParseCursor decodes the wire bookmark "chain@local" (empty string means
// start from the beginning).
func ParseCursor(bookmark string) Cursor {
	if bookmark == "" {
		return Cursor{}
	}
	parts := strings.SplitN(bookmark, "@", 2)
	chain := parts[0]
	local := 0
	if len(parts) == 2 {
		if n, err := strconv.Atoi(parts[1]); err == nil {
			local = n
		}
	}
	return Cursor{ChainBookmark: chain, LocalBookmark: local}
}

// String re-encodes the cursor to the wire bookmark format.
func (c Cursor) String() string {
	if c.ChainBookmark == "" && c.LocalBookmark == 0 {
		return ""
	}
	return c.ChainBookmark + "@" + strconv.Itoa(c.LocalBookmark)
}

// MaxUserPositionsPageSize is the spec §6 cap on GetUserPositions.
const MaxUserPositionsPageSize = 10

// GetUserPositions paginates a user's positions in one pool using the
// explicit cursor pair, never returning more than MaxUserPositionsPageSize
// per page (spec §6 GetUserPositions(user, bookmark?, limit≤10)).
func GetUserPositions(pm *PositionManager, owner string, bookmark string, limit int) (keys []string, nextBookmark string) {
	if limit <= 0 || limit > MaxUserPositionsPageSize {
		limit = MaxUserPositionsPageSize
	}
	cur := ParseCursor(bookmark)

	// PositionManager already keeps an in-memory, deterministically
	// ordered owner index; the chain bookmark there degenerates to the
	// last returned key (there's no further chain scan to resume), and
	// the local bookmark is unused since ListByOwner re-derives the slice
	// boundary from the chain bookmark directly.
	page, next := pm.ListByOwner(owner, cur.ChainBookmark, limit)
	if next == "" {
		return page, ""
	}
	return page, (Cursor{ChainBookmark: next}).String()
}
