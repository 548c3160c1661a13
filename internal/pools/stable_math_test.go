package pools

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/fixedpoint"
)

func limitStableIterations(t *testing.T, n int) {
	t.Helper()
	prev := maxStableIterations
	maxStableIterations = n
	t.Cleanup(func() { maxStableIterations = prev })
}

func TestCalculateInvariantDidNotConverge(t *testing.T) {
	amp := new(uint256.Int).Mul(uint256.NewInt(200), AmpPrecision)
	balances := []*uint256.Int{fixedpoint.NewWad(1000), fixedpoint.NewWad(10)}

	d, err := calculateInvariant(amp, balances)
	require.NoError(t, err)
	require.False(t, d.IsZero())

	limitStableIterations(t, 1)
	_, err = calculateInvariant(amp, balances)
	assert.ErrorIs(t, err, ErrStableInvariantDidNotConverge)
	assert.ErrorIs(t, err, sorcommon.ErrNotConverged)
}

func TestStableSwapPropagatesNonConvergence(t *testing.T) {
	a := domain.NewToken(1, common.HexToAddress("0x0a"), 18, "A")
	b := domain.NewToken(1, common.HexToAddress("0x0b"), 18, "B")
	p, err := NewStablePool(
		common.HexToHash("0x01"),
		common.HexToAddress("0x0100"),
		domain.PoolTypeStable,
		new(uint256.Int),
		new(uint256.Int).Mul(uint256.NewInt(200), AmpPrecision),
		[]PoolToken{
			{Token: a, Balance: domain.FromRawAmount(a, fixedpoint.NewWad(1000))},
			{Token: b, Balance: domain.FromRawAmount(b, fixedpoint.NewWad(10))},
		},
	)
	require.NoError(t, err)

	limitStableIterations(t, 1)
	_, err = p.SwapGivenIn(a, b, domain.FromRawAmount(a, fixedpoint.NewWad(1)), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, sorcommon.ErrNotConverged)
	assert.NotErrorIs(t, err, sorcommon.ErrLiquidityExceeded)
}
