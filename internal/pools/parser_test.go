package pools_test

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/metrics"
	"github.com/hxuan190/balancer-sor/internal/pools"
)

func rawToken(token domain.Token, index int, balance, weight string) domain.RawPoolToken {
	return domain.RawPoolToken{
		Address:  token.Address,
		Index:    index,
		Symbol:   token.Symbol,
		Decimals: token.Decimals,
		Balance:  balance,
		Weight:   weight,
	}
}

func TestParseWeighted(t *testing.T) {
	raw := domain.RawPool{
		ID:       common.HexToHash("0x01"),
		Address:  common.HexToAddress("0x0100"),
		PoolType: "Weighted",
		SwapFee:  "0",
		// Out of index order on purpose.
		Tokens: []domain.RawPoolToken{
			rawToken(tokenB, 1, "100", "0.5"),
			rawToken(tokenA, 0, "100", "0.5"),
		},
	}

	pool, err := pools.Parse(chainID, raw)
	require.NoError(t, err)
	assert.Equal(t, domain.PoolTypeWeighted, pool.PoolType())
	require.Len(t, pool.Tokens(), 2)
	assert.True(t, pool.Tokens()[0].IsUnderlyingEqual(tokenA))

	out, err := pool.SwapGivenIn(tokenA, tokenB, domain.FromRawAmount(tokenA, wad(10)), false)
	require.NoError(t, err)
	assert.Equal(t, "9090909090909090900", out.Amount.Dec())
}

func TestParseLegacyWeightedTags(t *testing.T) {
	for _, tag := range []string{"Investment", "LiquidityBootstrapping", "managed"} {
		raw := domain.RawPool{
			ID:       common.HexToHash("0x01"),
			PoolType: tag,
			Tokens:   []domain.RawPoolToken{rawToken(tokenA, 0, "1", "0.5"), rawToken(tokenB, 1, "1", "0.5")},
		}
		pool, err := pools.Parse(chainID, raw)
		require.NoError(t, err, tag)
		assert.Equal(t, domain.PoolTypeWeighted, pool.PoolType())
	}
}

func TestParseComposableStableDropsBpt(t *testing.T) {
	address := common.HexToAddress("0x0400")
	bpt := domain.NewToken(chainID, address, 18, "bpt")
	raw := domain.RawPool{
		ID:       common.HexToHash("0x04"),
		Address:  address,
		PoolType: "ComposableStable",
		SwapFee:  "0.0001",
		Amp:      "200",
		Tokens: []domain.RawPoolToken{
			rawToken(tokenA, 0, "1000", ""),
			rawToken(bpt, 1, "2596148429267413.814265248164610048", ""),
			rawToken(tokenB, 2, "1000", ""),
		},
	}

	pool, err := pools.Parse(chainID, raw)
	require.NoError(t, err)
	require.Len(t, pool.Tokens(), 2)
	for _, token := range pool.Tokens() {
		assert.NotEqual(t, address, token.Address)
	}
	stable, ok := pool.(*pools.StablePool)
	require.True(t, ok)
	assert.Equal(t, "200000", stable.Amp().Dec())

	// Joins and exits through the pool's own BPT are not routable.
	assert.True(t, pool.GetLimitAmountSwap(tokenA, bpt, domain.GivenIn).IsZero())
	assert.True(t, pool.GetLimitAmountSwap(bpt, tokenB, domain.GivenOut).IsZero())
	_, err = pool.SwapGivenIn(tokenA, bpt, domain.FromRawAmount(tokenA, wad(1)), false)
	assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)
	_, err = pool.SwapGivenOut(bpt, tokenB, domain.FromRawAmount(tokenB, wad(1)), false)
	assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)
}

func TestParseLinearFromTotalShares(t *testing.T) {
	raw := domain.RawPool{
		ID:           common.HexToHash("0x03"),
		Address:      linearAddress,
		PoolType:     "ERC4626Linear",
		SwapFee:      "0.01",
		TotalShares:  "900",
		MainIndex:    0,
		WrappedIndex: 1,
		LowerTarget:  "100",
		UpperTarget:  "1000",
		Tokens: []domain.RawPoolToken{
			rawToken(tokenA, 0, "500", ""),
			{Address: tokenWrapped.Address, Index: 1, Decimals: 18, Balance: "400", PriceRate: "1.1"},
			rawToken(tokenLinBpt, 2, "0", ""),
		},
	}

	pool, err := pools.Parse(chainID, raw)
	require.NoError(t, err)
	linear, ok := pool.(*pools.LinearPool)
	require.True(t, ok)
	assert.Equal(t, wad(900).Dec(), linear.VirtualSupply().Dec())

	out, err := pool.SwapGivenIn(tokenA, tokenLinBpt, domain.FromRawAmount(tokenA, wad(10)), false)
	require.NoError(t, err)
	assert.Equal(t, "9574468085106382978", out.Amount.Dec())
}

func TestParseUnsupportedTypes(t *testing.T) {
	for _, tag := range []string{"GyroE", "FX", "Gyro2", "Element", ""} {
		_, err := pools.Parse(chainID, domain.RawPool{ID: common.HexToHash("0x05"), PoolType: tag})
		assert.ErrorIs(t, err, sorcommon.ErrUnsupportedPoolType, tag)
	}
	assert.False(t, pools.IsSupported(domain.PoolTypeGyroE))
	assert.True(t, pools.IsSupported(domain.PoolTypeMetaStable))
}

func TestParseRejectsBadFee(t *testing.T) {
	raw := domain.RawPool{
		ID:       common.HexToHash("0x01"),
		PoolType: "Weighted",
		SwapFee:  "1",
		Tokens:   []domain.RawPoolToken{rawToken(tokenA, 0, "1", "0.5"), rawToken(tokenB, 1, "1", "0.5")},
	}
	_, err := pools.Parse(chainID, raw)
	assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)
}

func TestParseRawPoolsSkipsFailures(t *testing.T) {
	good := domain.RawPool{
		ID:       common.HexToHash("0x01"),
		PoolType: "Weighted",
		Tokens:   []domain.RawPoolToken{rawToken(tokenA, 0, "1", "0.5"), rawToken(tokenB, 1, "1", "0.5")},
	}
	gyro := domain.RawPool{ID: common.HexToHash("0x02"), PoolType: "GyroE"}
	broken := domain.RawPool{
		ID:       common.HexToHash("0x03"),
		PoolType: "Weighted",
		Tokens:   []domain.RawPoolToken{rawToken(tokenA, 0, "not-a-number", "0.5"), rawToken(tokenB, 1, "1", "0.5")},
	}

	gyroBefore := testutil.ToFloat64(metrics.PoolsSkipped.WithLabelValues("GyroE"))
	weightedBefore := testutil.ToFloat64(metrics.PoolsSkipped.WithLabelValues("Weighted"))

	parsed := pools.ParseRawPools(chainID, []domain.RawPool{good, gyro, broken})
	require.Len(t, parsed, 1)
	assert.Equal(t, good.ID, parsed[0].ID())

	assert.Equal(t, gyroBefore+1, testutil.ToFloat64(metrics.PoolsSkipped.WithLabelValues("GyroE")))
	assert.Equal(t, weightedBefore+1, testutil.ToFloat64(metrics.PoolsSkipped.WithLabelValues("Weighted")))
}

func TestParseRejectsUnscalableTokens(t *testing.T) {
	usdc := domain.NewToken(chainID, common.HexToAddress("0x0600"), 6, "USDC")
	wide := domain.NewToken(chainID, common.HexToAddress("0x1800"), 24, "WIDE")
	pool := func(token domain.Token, balance string) domain.RawPool {
		return domain.RawPool{
			ID:       common.HexToHash("0x01"),
			PoolType: "Weighted",
			Tokens:   []domain.RawPoolToken{rawToken(token, 0, balance, "0.5"), rawToken(tokenB, 1, "100", "0.5")},
		}
	}

	_, err := pools.Parse(chainID, pool(wide, "100"))
	assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)

	// 10^66 raw units fit 256 bits, 10^78 after lifting to 18 decimals does not.
	_, err = pools.Parse(chainID, pool(usdc, "1"+strings.Repeat("0", 60)))
	assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)

	_, err = pools.Parse(chainID, pool(usdc, "100"))
	assert.NoError(t, err)
}
