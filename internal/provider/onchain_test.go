package provider_test

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/balancer-sor/internal/chain"
	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/pools"
	"github.com/hxuan190/balancer-sor/internal/provider"
)

var (
	usdc = common.HexToAddress("0x0000000000000000000000000000000000000c01")
	dai  = common.HexToAddress("0x0000000000000000000000000000000000000c02")
)

// contractStub answers eth_calls for one contract by method selector.
type contractStub struct {
	parsed  abi.ABI
	outputs map[string][]interface{}
}

type fakeChain struct {
	mu        sync.Mutex
	contracts map[common.Address][]contractStub
	failing   map[common.Address]bool
	blocks    []*big.Int
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	f.mu.Lock()
	f.blocks = append(f.blocks, block)
	f.mu.Unlock()

	if f.failing[*msg.To] {
		return nil, errors.New("execution reverted")
	}
	for _, stub := range f.contracts[*msg.To] {
		for name, values := range stub.outputs {
			method := stub.parsed.Methods[name]
			if bytes.Equal(msg.Data[:4], method.ID) {
				return method.Outputs.Pack(values...)
			}
		}
	}
	return nil, errors.New("unexpected call")
}

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

func stableRaw(id int64, address common.Address) domain.RawPool {
	return domain.RawPool{
		ID:          common.BigToHash(big.NewInt(id)),
		Address:     address,
		PoolType:    "Stable",
		SwapFee:     "0.01",
		SwapEnabled: true,
		Amp:         "10",
		Tokens: []domain.RawPoolToken{
			{Address: usdc, Index: 0, Decimals: 6, Balance: "1"},
			{Address: dai, Index: 1, Decimals: 18, Balance: "1"},
		},
	}
}

func newFakeChain(t *testing.T, stable, broken domain.RawPool) *fakeChain {
	t.Helper()
	vaultABI, err := chain.VaultABI()
	require.NoError(t, err)
	poolABI, err := chain.PoolABI()
	require.NoError(t, err)

	return &fakeChain{
		contracts: map[common.Address][]contractStub{
			sorcommon.VaultAddress: {{
				parsed: vaultABI,
				outputs: map[string][]interface{}{
					"getPoolTokens": {
						[]common.Address{usdc, dai},
						[]*big.Int{wei("1000000000"), wei("2000000000000000000000")},
						big.NewInt(0),
					},
				},
			}},
			stable.Address: {{
				parsed: poolABI,
				outputs: map[string][]interface{}{
					"getSwapFeePercentage":      {wei("400000000000000")},
					"getAmplificationParameter": {big.NewInt(200000), false, big.NewInt(1000)},
					"getScalingFactors": {[]*big.Int{
						wei("1000000000000000000000000000000"),
						wei("1020000000000000000"),
					}},
				},
			}},
		},
		failing: map[common.Address]bool{broken.Address: true},
	}
}

func TestOnChainEnricherOverlaysState(t *testing.T) {
	stable := stableRaw(1, common.HexToAddress("0x0a01"))
	broken := stableRaw(2, common.HexToAddress("0x0a02"))
	fake := newFakeChain(t, stable, broken)
	enricher := provider.NewOnChainPoolDataEnricher(fake, 2)

	block := big.NewInt(19_000_000)
	raws := []domain.RawPool{stable, broken}
	data, err := enricher.FetchAdditionalPoolData(context.Background(), raws, provider.FetchAdditionalPoolDataOptions{Block: block})
	require.NoError(t, err)
	require.Len(t, data, 1)
	assert.Equal(t, stable.ID, data[0].ID)
	for _, b := range fake.blocks {
		assert.Equal(t, block, b)
	}

	enriched := enricher.EnrichPoolsWithData(raws, data)
	require.Len(t, enriched, 2)

	got := enriched[0]
	assert.Equal(t, "0.0004", got.SwapFee)
	assert.Equal(t, "200", got.Amp)
	assert.Equal(t, "1000", got.Tokens[0].Balance)
	assert.Equal(t, "2000", got.Tokens[1].Balance)
	assert.Equal(t, "1", got.Tokens[0].PriceRate)
	assert.Equal(t, "1.02", got.Tokens[1].PriceRate)

	// Pools without on-chain data keep their provider values.
	assert.Equal(t, broken, enriched[1])
	// Inputs are never written through.
	assert.Equal(t, "1", raws[0].Tokens[0].Balance)
	assert.Equal(t, "0.01", raws[0].SwapFee)

	pool, err := pools.Parse(1, got)
	require.NoError(t, err)
	stablePool, ok := pool.(*pools.StablePool)
	require.True(t, ok)
	assert.Equal(t, "1000000000", stablePool.Balances()[0].Amount.Dec())
}

func TestOnChainEnricherHonoursCancellation(t *testing.T) {
	stable := stableRaw(1, common.HexToAddress("0x0a01"))
	fake := newFakeChain(t, stable, stableRaw(2, common.HexToAddress("0x0a02")))
	enricher := provider.NewOnChainPoolDataEnricher(fake, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := enricher.FetchAdditionalPoolData(ctx, []domain.RawPool{stable}, provider.FetchAdditionalPoolDataOptions{})
	assert.Error(t, err)
}
