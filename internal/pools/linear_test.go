package pools_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/pools"
)

var (
	linearAddress = common.HexToAddress("0x0300")
	tokenWrapped  = domain.NewToken(chainID, common.HexToAddress("0x00000000000000000000000000000000000000aa"), 18, "waA")
	tokenLinBpt   = domain.NewToken(chainID, linearAddress, 18, "bb-a-A")
)

// newLinear builds main A 500, wrapped 400 at rate 1.1 and a virtual supply of
// 900 with targets 100..1000 and a 1% fee.
func newLinear(t *testing.T) *pools.LinearPool {
	t.Helper()
	wrapped := poolToken(tokenWrapped, wad(400))
	wrapped.Rate = uint256.NewInt(1_100_000_000_000_000_000)
	held := new(uint256.Int).Sub(pools.MaxTokenBalance, wad(900))

	p, err := pools.NewLinearPool(
		common.HexToHash("0x03"),
		linearAddress,
		domain.PoolTypeAaveLinear,
		uint256.NewInt(1e16),
		wad(100),
		wad(1000),
		[]pools.PoolToken{poolToken(tokenA, wad(500)), wrapped, poolToken(tokenLinBpt, held)},
		0, 1,
	)
	require.NoError(t, err)
	return p
}

func TestLinearVirtualSupply(t *testing.T) {
	p := newLinear(t)
	assert.Equal(t, wad(900).Dec(), p.VirtualSupply().Dec())
	assert.True(t, p.MainToken().IsUnderlyingEqual(tokenA))
	assert.True(t, p.WrappedToken().IsUnderlyingEqual(tokenWrapped))
}

func TestLinearMainToBpt(t *testing.T) {
	p := newLinear(t)

	out, err := p.SwapGivenIn(tokenA, tokenLinBpt, domain.FromRawAmount(tokenA, wad(10)), false)
	require.NoError(t, err)
	// 900 supply * 10 / (500 + 440) invariant.
	assert.Equal(t, "9574468085106382978", out.Amount.Dec())

	in, err := p.SwapGivenOut(tokenA, tokenLinBpt, out, false)
	require.NoError(t, err)
	assert.Equal(t, wad(10).Dec(), in.Amount.Dec())
}

func TestLinearMainToWrappedUsesRate(t *testing.T) {
	p := newLinear(t)

	out, err := p.SwapGivenIn(tokenA, tokenWrapped, domain.FromRawAmount(tokenA, wad(10)), false)
	require.NoError(t, err)
	assert.Equal(t, "9090909090909090909", out.Amount.Dec())
}

func TestLinearRoundTripLosesValue(t *testing.T) {
	p := newLinear(t)

	bpt, err := p.SwapGivenIn(tokenA, tokenLinBpt, domain.FromRawAmount(tokenA, wad(10)), true)
	require.NoError(t, err)
	assert.Equal(t, "900000000000000000000", new(uint256.Int).Sub(p.VirtualSupply(), bpt.Amount).Dec())

	back, err := p.SwapGivenIn(tokenLinBpt, tokenA, bpt, true)
	require.NoError(t, err)
	assert.True(t, back.Amount.Cmp(wad(10)) <= 0, "back %s", back.Amount.Dec())
	assert.Equal(t, wad(900).Dec(), p.VirtualSupply().Dec())
}

func TestLinearFeeBelowLowerTarget(t *testing.T) {
	p := newLinear(t)

	// Pull main below the lower target: the pool charges the fee on the gap.
	out, err := p.SwapGivenOut(tokenWrapped, tokenA, domain.FromRawAmount(tokenA, wad(450)), false)
	require.NoError(t, err)
	inAtPar, err := p.SwapGivenOut(tokenWrapped, tokenA, domain.FromRawAmount(tokenA, wad(100)), false)
	require.NoError(t, err)

	perUnitFar := new(uint256.Int).Div(out.Amount, uint256.NewInt(450))
	perUnitNear := new(uint256.Int).Div(inAtPar.Amount, uint256.NewInt(100))
	assert.True(t, perUnitFar.Gt(perUnitNear))
}

func TestLinearLimits(t *testing.T) {
	p := newLinear(t)

	held := new(uint256.Int).Sub(pools.MaxTokenBalance, wad(900))
	assert.Equal(t, held.Dec(), p.GetLimitAmountSwap(tokenA, tokenLinBpt, domain.GivenOut).Dec())
	assert.Equal(t, wad(495).Dec(), p.GetLimitAmountSwap(tokenLinBpt, tokenA, domain.GivenOut).Dec())
	assert.Equal(t, pools.MaxTokenBalance.Dec(), p.GetLimitAmountSwap(tokenA, tokenLinBpt, domain.GivenIn).Dec())

	inLimit := p.GetLimitAmountSwap(tokenLinBpt, tokenA, domain.GivenIn)
	assert.False(t, inLimit.IsZero())

	_, err := p.SwapGivenOut(tokenWrapped, tokenA, domain.FromRawAmount(tokenA, wad(496)), false)
	assert.ErrorIs(t, err, sorcommon.ErrLiquidityExceeded)
}

func TestNewLinearPoolValidation(t *testing.T) {
	tokens := []pools.PoolToken{poolToken(tokenA, wad(1)), poolToken(tokenWrapped, wad(1)), poolToken(tokenLinBpt, wad(1))}

	_, err := pools.NewLinearPool(common.HexToHash("0x03"), linearAddress, domain.PoolTypeStable, new(uint256.Int), wad(0), wad(1), tokens, 0, 1)
	assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)
	_, err = pools.NewLinearPool(common.HexToHash("0x03"), linearAddress, domain.PoolTypeLinear, new(uint256.Int), wad(0), wad(1), tokens, 1, 1)
	assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)
	_, err = pools.NewLinearPool(common.HexToHash("0x03"), common.HexToAddress("0x0301"), domain.PoolTypeLinear, new(uint256.Int), wad(0), wad(1), tokens, 0, 1)
	assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)
	_, err = pools.NewLinearPool(common.HexToHash("0x03"), linearAddress, domain.PoolTypeLinear, new(uint256.Int), wad(2), wad(1), tokens, 0, 1)
	assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)
}
