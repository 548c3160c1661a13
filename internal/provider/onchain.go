package provider

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/hxuan190/balancer-sor/internal/chain"
	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/domain"
)

const DefaultEnrichConcurrency = 8

// OnChainPoolDataEnricher reads balances, fees and rates from the Vault and
// the pools themselves, replacing the slower-moving subgraph values.
type OnChainPoolDataEnricher struct {
	caller      chain.Caller
	vault       common.Address
	concurrency int
}

func NewOnChainPoolDataEnricher(caller chain.Caller, concurrency int) *OnChainPoolDataEnricher {
	if concurrency <= 0 {
		concurrency = DefaultEnrichConcurrency
	}
	return &OnChainPoolDataEnricher{
		caller:      caller,
		vault:       sorcommon.VaultAddress,
		concurrency: concurrency,
	}
}

// FetchAdditionalPoolData reads every pool in parallel. A pool whose reads fail
// is logged and left out of the result so the subgraph values stand for it.
func (e *OnChainPoolDataEnricher) FetchAdditionalPoolData(ctx context.Context, pools []domain.RawPool, opts FetchAdditionalPoolDataOptions) ([]AdditionalPoolData, error) {
	vaultABI, err := chain.VaultABI()
	if err != nil {
		return nil, fmt.Errorf("load vault abi: %w", err)
	}
	poolABI, err := chain.PoolABI()
	if err != nil {
		return nil, fmt.Errorf("load pool abi: %w", err)
	}

	results := make([]*AdditionalPoolData, len(pools))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := range pools {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := e.fetchPool(gctx, vaultABI, poolABI, pools[i], opts.Block)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn().Err(err).Str("pool", pools[i].ID.Hex()).Msg("on-chain pool read failed")
				return nil
			}
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]AdditionalPoolData, 0, len(pools))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (e *OnChainPoolDataEnricher) fetchPool(ctx context.Context, vaultABI, poolABI abi.ABI, pool domain.RawPool, block *big.Int) (*AdditionalPoolData, error) {
	poolType, err := domain.ParsePoolType(pool.PoolType)
	if err != nil {
		return nil, err
	}
	data := &AdditionalPoolData{ID: pool.ID}

	values, err := chain.Call(ctx, e.caller, e.vault, vaultABI, "getPoolTokens", block, [32]byte(pool.ID))
	if err != nil {
		return nil, err
	}
	if data.Tokens, err = chain.AsAddresses(values[0]); err != nil {
		return nil, err
	}
	if data.Balances, err = chain.AsBigInts(values[1]); err != nil {
		return nil, err
	}

	if data.SwapFee, err = e.callUint(ctx, poolABI, pool.Address, "getSwapFeePercentage", block); err != nil {
		return nil, err
	}

	switch {
	case poolType == domain.PoolTypeStable || poolType == domain.PoolTypeMetaStable || poolType == domain.PoolTypeComposableStable:
		values, err := chain.Call(ctx, e.caller, pool.Address, poolABI, "getAmplificationParameter", block)
		if err != nil {
			return nil, err
		}
		if data.Amp, err = chain.AsBigInt(values[0]); err != nil {
			return nil, err
		}
		if data.AmpPrecision, err = chain.AsBigInt(values[2]); err != nil {
			return nil, err
		}
		if data.ScalingFactors, err = e.callUints(ctx, poolABI, pool.Address, "getScalingFactors", block); err != nil {
			return nil, err
		}

	case poolType.IsLinear():
		values, err := chain.Call(ctx, e.caller, pool.Address, poolABI, "getTargets", block)
		if err != nil {
			return nil, err
		}
		if data.LowerTarget, err = chain.AsBigInt(values[0]); err != nil {
			return nil, err
		}
		if data.UpperTarget, err = chain.AsBigInt(values[1]); err != nil {
			return nil, err
		}
		if data.WrappedRate, err = e.callUint(ctx, poolABI, pool.Address, "getWrappedTokenRate", block); err != nil {
			return nil, err
		}
		if data.ScalingFactors, err = e.callUints(ctx, poolABI, pool.Address, "getScalingFactors", block); err != nil {
			return nil, err
		}
	}

	return data, nil
}

func (e *OnChainPoolDataEnricher) callUint(ctx context.Context, parsed abi.ABI, to common.Address, method string, block *big.Int) (*big.Int, error) {
	values, err := chain.Call(ctx, e.caller, to, parsed, method, block)
	if err != nil {
		return nil, err
	}
	return chain.AsBigInt(values[0])
}

func (e *OnChainPoolDataEnricher) callUints(ctx context.Context, parsed abi.ABI, to common.Address, method string, block *big.Int) ([]*big.Int, error) {
	values, err := chain.Call(ctx, e.caller, to, parsed, method, block)
	if err != nil {
		return nil, err
	}
	return chain.AsBigInts(values[0])
}

// EnrichPoolsWithData returns copies of pools with the on-chain values applied.
// Pools without data are returned unchanged.
func (e *OnChainPoolDataEnricher) EnrichPoolsWithData(pools []domain.RawPool, data []AdditionalPoolData) []domain.RawPool {
	byID := make(map[common.Hash]*AdditionalPoolData, len(data))
	for i := range data {
		byID[data[i].ID] = &data[i]
	}

	out := make([]domain.RawPool, len(pools))
	for i := range pools {
		out[i] = pools[i].Clone()
		if d, ok := byID[pools[i].ID]; ok {
			applyPoolData(&out[i], d)
		}
	}
	return out
}

func applyPoolData(pool *domain.RawPool, d *AdditionalPoolData) {
	if d.SwapFee != nil {
		pool.SwapFee = formatBig(d.SwapFee, domain.MaxDecimals)
	}
	if d.Amp != nil && d.AmpPrecision != nil && d.AmpPrecision.Sign() > 0 {
		pool.Amp = decimal.NewFromBigInt(d.Amp, 0).Div(decimal.NewFromBigInt(d.AmpPrecision, 0)).String()
	}

	for idx, addr := range d.Tokens {
		t := findRawToken(pool, addr)
		if t == nil {
			continue
		}
		if idx < len(d.Balances) {
			t.Balance = formatBig(d.Balances[idx], t.Decimals)
		}
		if idx < len(d.ScalingFactors) && addr != pool.Address {
			if rate, ok := rateFromScalingFactor(d.ScalingFactors[idx], t.Decimals); ok {
				t.PriceRate = rate
			}
		}
	}

	if d.LowerTarget != nil && d.UpperTarget != nil && pool.MainIndex < len(pool.Tokens) {
		decimals := mainTokenDecimals(pool)
		pool.LowerTarget = formatBig(d.LowerTarget, decimals)
		pool.UpperTarget = formatBig(d.UpperTarget, decimals)
	}
	if d.WrappedRate != nil {
		for i := range pool.Tokens {
			if pool.Tokens[i].Index == pool.WrappedIndex {
				pool.Tokens[i].PriceRate = formatBig(d.WrappedRate, domain.MaxDecimals)
			}
		}
	}
}

func findRawToken(pool *domain.RawPool, addr common.Address) *domain.RawPoolToken {
	for i := range pool.Tokens {
		if pool.Tokens[i].Address == addr {
			return &pool.Tokens[i]
		}
	}
	return nil
}

func mainTokenDecimals(pool *domain.RawPool) uint8 {
	for _, t := range pool.Tokens {
		if t.Index == pool.MainIndex {
			return t.Decimals
		}
	}
	return domain.MaxDecimals
}

// rateFromScalingFactor strips the decimal adjustment 10^(18-decimals) from a
// Vault scaling factor, leaving the token rate.
func rateFromScalingFactor(sf *big.Int, decimals uint8) (string, bool) {
	if sf == nil || sf.Sign() <= 0 || decimals > domain.MaxDecimals {
		return "", false
	}
	adj := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(domain.MaxDecimals-decimals)), nil)
	return formatBig(new(big.Int).Quo(sf, adj), domain.MaxDecimals), true
}

func formatBig(v *big.Int, decimals uint8) string {
	return decimal.NewFromBigInt(v, -int32(decimals)).String()
}
