package swap

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/hxuan190/balancer-sor/internal/chain"
	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/domain"
)

const (
	methodQuerySwap      = "querySwap"
	methodQueryBatchSwap = "queryBatchSwap"
)

// QueriesAddress returns the BalancerQueries deployment on the swap's chain.
func (s *Swap) QueriesAddress() (common.Address, error) {
	address, ok := sorcommon.BalancerQueriesAddresses[s.chainID]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: no BalancerQueries deployment on chain %d", sorcommon.ErrInvalidInput, s.chainID)
	}
	return address, nil
}

// QueryCallData encodes querySwap for a single one-hop path and
// queryBatchSwap otherwise.
func (s *Swap) QueryCallData() ([]byte, error) {
	parsed, err := chain.BalancerQueriesABI()
	if err != nil {
		return nil, fmt.Errorf("parse queries abi: %w", err)
	}
	method, args, _ := s.queryArgs()
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}

// Query dials rpcURL and runs the query call at block, nil meaning latest.
func (s *Swap) Query(ctx context.Context, rpcURL string, block *big.Int) (domain.TokenAmount, error) {
	if rpcURL == "" {
		return domain.TokenAmount{}, fmt.Errorf("%w: rpc url is required", sorcommon.ErrInvalidInput)
	}
	client, err := chain.NewClient(ctx, rpcURL)
	if err != nil {
		return domain.TokenAmount{}, err
	}
	defer client.Close()
	return s.QueryWith(ctx, client, block)
}

// QueryWith runs the query call through caller and returns the on-chain
// counterpart of Quote.
func (s *Swap) QueryWith(ctx context.Context, caller chain.Caller, block *big.Int) (domain.TokenAmount, error) {
	to, err := s.QueriesAddress()
	if err != nil {
		return domain.TokenAmount{}, err
	}
	parsed, err := chain.BalancerQueriesABI()
	if err != nil {
		return domain.TokenAmount{}, fmt.Errorf("parse queries abi: %w", err)
	}
	method, args, assets := s.queryArgs()
	values, err := chain.Call(ctx, caller, to, parsed, method, block, args...)
	if err != nil {
		return domain.TokenAmount{}, err
	}

	quoteToken := s.tokenOut
	if s.kind == domain.GivenOut {
		quoteToken = s.tokenIn
	}

	if method == methodQuerySwap {
		amount, err := chain.AsBigInt(values[0])
		if err != nil {
			return domain.TokenAmount{}, err
		}
		return toTokenAmount(quoteToken, amount)
	}

	deltas, err := chain.AsBigInts(values[0])
	if err != nil {
		return domain.TokenAmount{}, err
	}
	idx := indexOf(assets, quoteToken.Address)
	if idx < 0 || idx >= len(deltas) {
		return domain.TokenAmount{}, fmt.Errorf("%w: %s missing from query assets", sorcommon.ErrTokenMismatch, quoteToken)
	}
	// Deltas are from the Vault's side: positive flows in, negative flows out.
	delta := new(big.Int).Set(deltas[idx])
	if s.kind == domain.GivenIn {
		delta.Neg(delta)
	}
	return toTokenAmount(quoteToken, delta)
}

// queryArgs returns the query method, its arguments and, for batch swaps, the
// asset list the step indices refer to.
func (s *Swap) queryArgs() (string, []interface{}, []common.Address) {
	funds := chain.FundManagement{}
	if !s.IsBatchSwap() {
		p := s.paths[0]
		single := chain.SingleSwap{
			PoolID:   p.Pools[0].ID(),
			Kind:     uint8(s.kind),
			AssetIn:  p.Tokens[0].Address,
			AssetOut: p.Tokens[1].Address,
			Amount:   p.SwapAmount.Amount.ToBig(),
			UserData: []byte{},
		}
		return methodQuerySwap, []interface{}{single, funds}, nil
	}
	steps, assets := s.batchSteps()
	return methodQueryBatchSwap, []interface{}{uint8(s.kind), steps, assets, funds}, assets
}

// batchSteps lists every hop of every path. Only a path's first step carries
// its amount; later steps consume the previous step's result. GivenOut paths
// run from the last hop back.
func (s *Swap) batchSteps() ([]chain.BatchSwapStep, []common.Address) {
	var assets []common.Address
	assetIndex := func(t domain.Token) *big.Int {
		idx := indexOf(assets, t.Address)
		if idx < 0 {
			idx = len(assets)
			assets = append(assets, t.Address)
		}
		return big.NewInt(int64(idx))
	}

	var steps []chain.BatchSwapStep
	for _, p := range s.paths {
		hops := make([]chain.BatchSwapStep, len(p.Pools))
		for i, pool := range p.Pools {
			hops[i] = chain.BatchSwapStep{
				PoolID:        pool.ID(),
				AssetInIndex:  assetIndex(p.Tokens[i]),
				AssetOutIndex: assetIndex(p.Tokens[i+1]),
				Amount:        new(big.Int),
				UserData:      []byte{},
			}
		}
		if s.kind == domain.GivenOut {
			for i, j := 0, len(hops)-1; i < j; i, j = i+1, j-1 {
				hops[i], hops[j] = hops[j], hops[i]
			}
		}
		hops[0].Amount = p.SwapAmount.Amount.ToBig()
		steps = append(steps, hops...)
	}
	return steps, assets
}

func indexOf(list []common.Address, address common.Address) int {
	for i, a := range list {
		if a == address {
			return i
		}
	}
	return -1
}

func toTokenAmount(token domain.Token, v *big.Int) (domain.TokenAmount, error) {
	if v.Sign() < 0 {
		return domain.TokenAmount{}, fmt.Errorf("unexpected negative query result %s for %s", v, token)
	}
	amount, overflow := uint256.FromBig(v)
	if overflow {
		return domain.TokenAmount{}, fmt.Errorf("query result %s overflows uint256", v)
	}
	return domain.NewTokenAmount(token, amount)
}
