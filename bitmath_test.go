package dex

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestMostSignificantBit(t *testing.T) {
	one := uint256.NewInt(1)
	msb, err := mostSignificantBit(one)
	require.NoError(t, err)
	require.Equal(t, uint8(0), msb)

	v := new(uint256.Int).Lsh(uint256.NewInt(1), 200)
	msb, err = mostSignificantBit(v)
	require.NoError(t, err)
	require.Equal(t, uint8(200), msb)
}

func TestLeastSignificantBit(t *testing.T) {
	v := new(uint256.Int).Lsh(uint256.NewInt(1), 37)
	v.Or(v, new(uint256.Int).Lsh(uint256.NewInt(1), 200))
	lsb, err := leastSignificantBit(v)
	require.NoError(t, err)
	require.Equal(t, uint8(37), lsb)
}

func TestMostSignificantBitZeroErrors(t *testing.T) {
	_, err := mostSignificantBit(new(uint256.Int))
	require.Error(t, err)
}

func TestMaskLowerInclusiveAndUpper(t *testing.T) {
	lower := maskLowerInclusive(7)
	require.True(t, testBit(lower, 7))
	require.True(t, testBit(lower, 0))
	require.False(t, testBit(lower, 8))

	upper := maskUpper(7)
	require.False(t, testBit(upper, 7))
	require.True(t, testBit(upper, 8))
	require.True(t, testBit(upper, 255))
}
