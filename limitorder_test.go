package dex

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// TestLimitOrderCommitmentHash is spec §8 scenario 6: the literal reveal
// produces a deterministic 64-hex SHA-256 digest.
func TestLimitOrderCommitmentHash(t *testing.T) {
	reveal := LimitOrderReveal{
		Owner:   "client|user123",
		Sell:    "GALA",
		Buy:     "ETH",
		SellAmt: decimal.RequireFromString("100"),
		BuyMin:  decimal.RequireFromString("10"),
		Ratio:   decimal.RequireFromString("0.1"),
		Expires: 1234567890,
		Nonce:   "nonce123",
	}

	hash := reveal.CommitmentHash()
	require.Len(t, hash, 64)

	// Changing any field must change the hash (spec §8 P7).
	mutated := reveal
	mutated.Nonce = "different"
	require.NotEqual(t, hash, mutated.CommitmentHash())

	// Hashing the same reveal twice must be fully deterministic.
	require.Equal(t, hash, reveal.CommitmentHash())
}

// TestCommitRevealEndToEnd is spec §8 scenario 7: an admin fills the
// revealed order against a 1:1 pool, then a second fill of the same
// reveal fails with NotFound because the commitment was deleted.
func TestCommitRevealEndToEnd(t *testing.T) {
	p, err := NewPool("ETH", "GALA", FeeMedium, false, nil)
	require.NoError(t, err)
	require.NoError(t, p.Initialize(decimal.RequireFromString("1")))

	key := PositionKey{PoolHash: p.PoolHash, TickLower: -60, TickUpper: 60, PositionID: "lp1"}
	_, err = p.Mint("lp", key, decimal.RequireFromString("1000000"))
	require.NoError(t, err)

	cfg := &GlobalLimitOrderConfig{AdminWallets: map[string]bool{"admin": true}}

	reveal := LimitOrderReveal{
		Owner:   "owner1",
		Sell:    "GALA",
		Buy:     "ETH",
		SellAmt: decimal.RequireFromString("100"),
		BuyMin:  decimal.RequireFromString("1"),
		Ratio:   decimal.RequireFromString("0.5"),
		Expires: 0,
		Nonce:   "n1",
	}
	commitment := &LimitOrderCommitment{Hash: reveal.CommitmentHash()}

	result, err := FillLimitOrder(cfg, "admin", commitment, reveal, p, 1000)
	require.NoError(t, err)
	require.True(t, result.SellAmount.Equal(decimal.RequireFromString("100")))
	require.True(t, result.BuyAmount.GreaterThanOrEqual(reveal.BuyMin))

	// A second fill of the very same (now-deleted) commitment is NotFound.
	_, err = FillLimitOrder(cfg, "admin", nil, reveal, p, 1000)
	require.Error(t, err)
	require.Equal(t, NotFound, KindOf(err))
}

func TestFillLimitOrderRejectsNonAdmin(t *testing.T) {
	p, err := NewPool("ETH", "GALA", FeeMedium, false, nil)
	require.NoError(t, err)
	require.NoError(t, p.Initialize(decimal.RequireFromString("1")))

	cfg := &GlobalLimitOrderConfig{AdminWallets: map[string]bool{"admin": true}}
	reveal := LimitOrderReveal{
		Owner: "owner1", Sell: "GALA", Buy: "ETH",
		SellAmt: decimal.RequireFromString("100"), BuyMin: decimal.RequireFromString("1"),
		Ratio: decimal.RequireFromString("0.5"), Nonce: "n1",
	}
	commitment := &LimitOrderCommitment{Hash: reveal.CommitmentHash()}

	_, err = FillLimitOrder(cfg, "random-caller", commitment, reveal, p, 1000)
	require.Error(t, err)
	require.Equal(t, Unauthorized, KindOf(err))
}

func TestCancelLimitOrderByOwnerOrAdmin(t *testing.T) {
	cfg := &GlobalLimitOrderConfig{AdminWallets: map[string]bool{"admin": true}}
	reveal := LimitOrderReveal{
		Owner: "owner1", Sell: "GALA", Buy: "ETH",
		SellAmt: decimal.RequireFromString("100"), BuyMin: decimal.RequireFromString("1"),
		Ratio: decimal.RequireFromString("0.5"), Nonce: "n1",
	}
	commitment := &LimitOrderCommitment{Hash: reveal.CommitmentHash()}

	require.NoError(t, CancelLimitOrder(cfg, "owner1", reveal, commitment))
	require.NoError(t, CancelLimitOrder(cfg, "admin", reveal, commitment))

	err := CancelLimitOrder(cfg, "stranger", reveal, commitment)
	require.Error(t, err)
	require.Equal(t, Unauthorized, KindOf(err))
}
