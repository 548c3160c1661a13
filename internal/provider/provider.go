// Package provider fetches raw pool records and overlays on-chain state on
// them before they are parsed into routable pools.
package provider

import (
	"context"
	"math/big"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hxuan190/balancer-sor/internal/domain"
)

// GetPoolsOptions narrows a pool fetch. Zero values fetch everything at the
// latest block.
type GetPoolsOptions struct {
	Block     *uint64
	PoolTypes []string
}

type GetPoolsResponse struct {
	Pools               []domain.RawPool
	SyncedToBlockNumber *uint64
}

type PoolDataProvider interface {
	GetPools(ctx context.Context, opts GetPoolsOptions) (GetPoolsResponse, error)
}

// AdditionalPoolData is the on-chain state read for one pool. Token-indexed
// slices follow Tokens order as reported by the Vault.
type AdditionalPoolData struct {
	ID             common.Hash
	Tokens         []common.Address
	Balances       []*big.Int
	SwapFee        *big.Int
	Amp            *big.Int
	AmpPrecision   *big.Int
	ScalingFactors []*big.Int
	LowerTarget    *big.Int
	UpperTarget    *big.Int
	WrappedRate    *big.Int
}

type FetchAdditionalPoolDataOptions struct {
	Block *big.Int
}

type PoolDataEnricher interface {
	FetchAdditionalPoolData(ctx context.Context, pools []domain.RawPool, opts FetchAdditionalPoolDataOptions) ([]AdditionalPoolData, error)
	EnrichPoolsWithData(pools []domain.RawPool, data []AdditionalPoolData) []domain.RawPool
}

// filterPoolTypes keeps pools whose type tag is in types, case-insensitively.
func filterPoolTypes(pools []domain.RawPool, types []string) []domain.RawPool {
	if len(types) == 0 {
		return pools
	}
	out := make([]domain.RawPool, 0, len(pools))
	for _, p := range pools {
		if slices.ContainsFunc(types, func(t string) bool { return strings.EqualFold(t, p.PoolType) }) {
			out = append(out, p)
		}
	}
	return out
}
