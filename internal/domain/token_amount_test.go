package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
)

var (
	usdc = NewToken(1, common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), 6, "USDC")
	weth = NewToken(1, common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), 18, "WETH")
	eth  = NewToken(1, sorcommon.ZeroAddress, 18, "ETH")
)

func TestTokenWrapped(t *testing.T) {
	assert.True(t, eth.IsNative())
	assert.Equal(t, weth.Address, eth.Wrapped())
	assert.True(t, eth.IsUnderlyingEqual(weth))
	assert.False(t, eth.IsSameAddress(weth.Address))
	assert.False(t, usdc.IsUnderlyingEqual(weth))
}

func TestTokenAmountScaling(t *testing.T) {
	amount, err := FromHumanAmount(usdc, "1.5")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000), amount.Amount.Uint64())
	assert.Equal(t, "1500000000000000000", amount.Scale18.Dec())

	// six decimals cannot hold the extra digits
	truncated, err := FromHumanAmount(usdc, "0.0000019")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), truncated.Amount.Uint64())

	_, err = FromHumanAmount(usdc, "-1")
	assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)

	_, err = FromRawString(usdc, "abc")
	assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)
}

func TestFromScale18Rounding(t *testing.T) {
	scale18 := uint256.NewInt(1_000_000_000_001)

	down, err := FromScale18Amount(usdc, scale18, false)
	require.NoError(t, err)
	up, err := FromScale18Amount(usdc, scale18, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), down.Amount.Uint64())
	assert.Equal(t, uint64(2), up.Amount.Uint64())

	zero, err := FromScale18Amount(usdc, uint256.NewInt(0), true)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}

func TestNewTokenAmountRejectsUnscalable(t *testing.T) {
	// 2^250 fits a uint256 but not once lifted by 10^12.
	huge := new(uint256.Int).Lsh(uint256.NewInt(1), 250)
	_, err := NewTokenAmount(usdc, huge)
	assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)
	assert.Panics(t, func() { FromRawAmount(usdc, huge) })

	_, err = FromRawString(usdc, huge.Dec())
	assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)

	// The same raw value is fine for an 18 decimal token.
	ta, err := NewTokenAmount(weth, huge)
	require.NoError(t, err)
	assert.Equal(t, huge, ta.Scale18)

	a := FromRawAmount(usdc, new(uint256.Int).Lsh(uint256.NewInt(1), 216))
	_, err = a.Add(a)
	assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)

	wide := NewToken(1, common.HexToAddress("0x00000000000000000000000000000000000000aa"), 24, "WIDE")
	assert.False(t, wide.SupportsDecimals())
	_, err = NewTokenAmount(wide, uint256.NewInt(1))
	assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)
	_, err = FromHumanAmount(wide, "1")
	assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)
	_, err = FromScale18Amount(wide, uint256.NewInt(1e18), false)
	assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)
}

func TestTokenAmountArithmetic(t *testing.T) {
	a := FromRawAmount(weth, uint256.NewInt(3e18))
	b := FromRawAmount(weth, uint256.NewInt(1e18))

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(4e18), sum.Amount.Uint64())

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(2e18), diff.Amount.Uint64())

	_, err = b.Sub(a)
	assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)

	_, err = a.Add(FromRawAmount(usdc, uint256.NewInt(1)))
	assert.ErrorIs(t, err, sorcommon.ErrTokenMismatch)

	half, err := a.MulDownFixed(uint256.NewInt(5e17))
	require.NoError(t, err)
	assert.Equal(t, uint64(15e17), half.Amount.Uint64())

	third, err := b.DivUpFixed(uint256.NewInt(3e18))
	require.NoError(t, err)
	assert.Equal(t, uint64(333333333333333334), third.Amount.Uint64())
}

func TestToSignificant(t *testing.T) {
	amount, err := FromHumanAmount(weth, "123.456789")
	require.NoError(t, err)
	assert.Equal(t, "123.457", amount.ToSignificant(6))

	small, err := FromHumanAmount(weth, "0.012345678")
	require.NoError(t, err)
	assert.Equal(t, "0.0123457", small.ToSignificant(6))

	assert.Equal(t, "0", FromRawAmount(weth, uint256.NewInt(0)).ToSignificant(6))
}

func TestParseSwapKindAndPoolType(t *testing.T) {
	kind, err := ParseSwapKind("ExactOut")
	require.NoError(t, err)
	assert.Equal(t, GivenOut, kind)

	_, err = ParseSwapKind("sideways")
	assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)

	pt, err := ParsePoolType("Investment")
	require.NoError(t, err)
	assert.Equal(t, PoolTypeWeighted, pt)

	pt, err = ParsePoolType("AaveLinear")
	require.NoError(t, err)
	assert.True(t, pt.IsLinear())

	_, err = ParsePoolType("Element")
	assert.ErrorIs(t, err, sorcommon.ErrUnsupportedPoolType)
}

func TestPriceImpactAmount(t *testing.T) {
	p := NewPriceImpactAmount(uint256.NewInt(12_500_000_000_000_000))
	assert.Equal(t, uint64(125), p.Bps())
	assert.Equal(t, "1.25", p.Percentage().String())
}
