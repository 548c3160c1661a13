package router_test

import (
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/fixedpoint"
	"github.com/hxuan190/balancer-sor/internal/pools"
)

const chainID = sorcommon.ChainMainnet

var (
	tokenA = testToken(0x0a, "A")
	tokenB = testToken(0x0b, "B")
	tokenC = testToken(0x0c, "C")
	tokenD = testToken(0x0d, "D")
	tokenW = testToken(0xaa, "waA")

	halfWeight = uint256.NewInt(5e17)
)

func testToken(n uint64, symbol string) domain.Token {
	return domain.NewToken(chainID, common.HexToAddress(fmt.Sprintf("0x%040x", n)), 18, symbol)
}

func wad(v uint64) *uint256.Int { return fixedpoint.NewWad(v) }

func poolID(n uint64) common.Hash { return common.HexToHash(fmt.Sprintf("0x%x", n)) }

func poolAddress(n uint64) common.Address {
	return common.HexToAddress(fmt.Sprintf("0x%040x", 0x10000+n))
}

// newWeighted builds a 50/50 fee-free pool holding balance of each token.
func newWeighted(t testing.TB, n uint64, x, y domain.Token, balance uint64) *pools.WeightedPool {
	t.Helper()
	p, err := pools.NewWeightedPool(
		poolID(n),
		poolAddress(n),
		new(uint256.Int),
		[]pools.PoolToken{
			{Token: x, Balance: domain.FromRawAmount(x, wad(balance))},
			{Token: y, Balance: domain.FromRawAmount(y, wad(balance))},
		},
		[]*uint256.Int{halfWeight, halfWeight},
	)
	require.NoError(t, err)
	return p
}

// newLinearA builds a linear pool over A and waA whose share token is bpt.
func newLinearA(t testing.TB, n uint64) (*pools.LinearPool, domain.Token) {
	t.Helper()
	address := poolAddress(n)
	bpt := domain.NewToken(chainID, address, 18, "bb-a-A")
	held := new(uint256.Int).Sub(pools.MaxTokenBalance, wad(900))

	p, err := pools.NewLinearPool(
		poolID(n),
		address,
		domain.PoolTypeAaveLinear,
		uint256.NewInt(1e16),
		wad(100),
		wad(1000),
		[]pools.PoolToken{
			{Token: tokenA, Balance: domain.FromRawAmount(tokenA, wad(500))},
			{Token: tokenW, Balance: domain.FromRawAmount(tokenW, wad(400)), Rate: uint256.NewInt(1_100_000_000_000_000_000)},
			{Token: bpt, Balance: domain.FromRawAmount(bpt, held)},
		},
		0, 1,
	)
	require.NoError(t, err)
	return p, bpt
}

func poolIDs(poolList []pools.BasePool) []common.Hash {
	ids := make([]common.Hash, len(poolList))
	for i, p := range poolList {
		ids[i] = p.ID()
	}
	return ids
}
