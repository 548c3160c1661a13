package router

import (
	"github.com/holiman/uint256"

	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/fixedpoint"
	"github.com/hxuan190/balancer-sor/internal/pools"
)

// GetLimitAmountSwapForPath bounds the amount a path can absorb: tokenIn units
// for GivenIn, tokenOut units for GivenOut.
func GetLimitAmountSwapForPath(path *Path, kind domain.SwapKind) (*uint256.Int, error) {
	return limitAmountSwap(path.Tokens, path.Pools, kind)
}

func limitAmountSwap(tokens []domain.Token, poolList []pools.BasePool, kind domain.SwapKind) (*uint256.Int, error) {
	if kind == domain.GivenIn {
		return limitGivenIn(tokens, poolList)
	}
	return limitGivenOut(tokens, poolList)
}

// limitGivenIn walks from the last pool back. A pool that cannot emit the
// downstream ceiling is itself the bottleneck; otherwise the ceiling is pulled
// back through it.
func limitGivenIn(tokens []domain.Token, poolList []pools.BasePool) (*uint256.Int, error) {
	n := len(poolList)
	limit := poolList[n-1].GetLimitAmountSwap(tokens[n-1], tokens[n], domain.GivenIn)
	for i := n - 2; i >= 0; i-- {
		pool := poolList[i]
		inLimit := pool.GetLimitAmountSwap(tokens[i], tokens[i+1], domain.GivenIn)
		outLimit := pool.GetLimitAmountSwap(tokens[i], tokens[i+1], domain.GivenOut)
		if !outLimit.Gt(limit) {
			limit = inLimit
			continue
		}
		want, err := domain.NewTokenAmount(tokens[i+1], limit)
		if err != nil {
			return nil, err
		}
		pulled, err := pool.SwapGivenOut(tokens[i], tokens[i+1], want, false)
		if err != nil {
			return nil, err
		}
		limit = fixedpoint.Min(pulled.Amount, inLimit)
	}
	return limit, nil
}

// limitGivenOut mirrors limitGivenIn from the first pool forward, pushing the
// upstream ceiling through each pool.
func limitGivenOut(tokens []domain.Token, poolList []pools.BasePool) (*uint256.Int, error) {
	limit := poolList[0].GetLimitAmountSwap(tokens[0], tokens[1], domain.GivenOut)
	for i := 1; i < len(poolList); i++ {
		pool := poolList[i]
		inLimit := pool.GetLimitAmountSwap(tokens[i], tokens[i+1], domain.GivenIn)
		outLimit := pool.GetLimitAmountSwap(tokens[i], tokens[i+1], domain.GivenOut)
		if !inLimit.Gt(limit) {
			limit = outLimit
			continue
		}
		offer, err := domain.NewTokenAmount(tokens[i], limit)
		if err != nil {
			return nil, err
		}
		pushed, err := pool.SwapGivenIn(tokens[i], tokens[i+1], offer, false)
		if err != nil {
			return nil, err
		}
		limit = fixedpoint.Min(pushed.Amount, outLimit)
	}
	return limit, nil
}
