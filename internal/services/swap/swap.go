// Package swap aggregates routed paths into a single swap: summed amounts,
// price impact and the BalancerQueries call that verifies them on chain.
package swap

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/fixedpoint"
	"github.com/hxuan190/balancer-sor/internal/pools"
	"github.com/hxuan190/balancer-sor/internal/services/router"
)

// Swap is a set of paths between the same two tokens executed together.
// Paths are replayed against a private working copy of their pools so paths
// sharing a pool see each other's depletion; a second copy stays untouched
// for price impact.
type Swap struct {
	chainID  int64
	kind     domain.SwapKind
	tokenIn  domain.Token
	tokenOut domain.Token

	paths          []*router.PathWithAmount
	immutablePaths []*router.PathWithAmount

	inputAmount  domain.TokenAmount
	outputAmount domain.TokenAmount
}

// NewSwap validates that every path shares kind and endpoints and simulates
// them on cloned pools. The caller's pools are never mutated.
func NewSwap(paths []*router.PathWithAmount) (*Swap, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: swap needs at least one path", sorcommon.ErrInvalidInput)
	}
	first := paths[0]
	for _, p := range paths[1:] {
		if p.SwapKind != first.SwapKind {
			return nil, fmt.Errorf("%w: mixed swap kinds %s and %s", sorcommon.ErrTokenMismatch, first.SwapKind, p.SwapKind)
		}
		if !p.TokenIn().IsUnderlyingEqual(first.TokenIn()) {
			return nil, fmt.Errorf("%w: input tokens %s and %s", sorcommon.ErrTokenMismatch, first.TokenIn(), p.TokenIn())
		}
		if !p.TokenOut().IsUnderlyingEqual(first.TokenOut()) {
			return nil, fmt.Errorf("%w: output tokens %s and %s", sorcommon.ErrTokenMismatch, first.TokenOut(), p.TokenOut())
		}
	}

	working, err := replay(paths, clonePools(paths), true)
	if err != nil {
		return nil, err
	}
	immutable, err := replay(paths, clonePools(paths), false)
	if err != nil {
		return nil, err
	}

	s := &Swap{
		chainID:        first.TokenIn().ChainID,
		kind:           first.SwapKind,
		tokenIn:        first.TokenIn(),
		tokenOut:       first.TokenOut(),
		paths:          working,
		immutablePaths: immutable,
	}
	if s.inputAmount, err = sumAmounts(s.tokenIn, working, func(p *router.PathWithAmount) domain.TokenAmount { return p.InputAmount }); err != nil {
		return nil, err
	}
	if s.outputAmount, err = sumAmounts(s.tokenOut, working, func(p *router.PathWithAmount) domain.TokenAmount { return p.OutputAmount }); err != nil {
		return nil, err
	}
	return s, nil
}

// clonePools copies every distinct pool once, keyed by pool id.
func clonePools(paths []*router.PathWithAmount) map[common.Hash]pools.BasePool {
	set := make(map[common.Hash]pools.BasePool)
	for _, p := range paths {
		for _, pool := range p.Pools {
			if _, ok := set[pool.ID()]; !ok {
				set[pool.ID()] = pool.Clone()
			}
		}
	}
	return set
}

// replay rebuilds paths over the pools in set, in order.
func replay(paths []*router.PathWithAmount, set map[common.Hash]pools.BasePool, mutateBalances bool) ([]*router.PathWithAmount, error) {
	out := make([]*router.PathWithAmount, len(paths))
	for i, p := range paths {
		bound := make([]pools.BasePool, len(p.Pools))
		for j, pool := range p.Pools {
			bound[j] = set[pool.ID()]
		}
		replayed, err := router.NewPathWithAmount(p.Tokens, bound, p.SwapAmount, mutateBalances)
		if err != nil {
			return nil, fmt.Errorf("path %d %s: %w", i, p.String(), err)
		}
		out[i] = replayed
	}
	return out, nil
}

func sumAmounts(token domain.Token, paths []*router.PathWithAmount, pick func(*router.PathWithAmount) domain.TokenAmount) (domain.TokenAmount, error) {
	total, err := domain.NewTokenAmount(token, new(uint256.Int))
	if err != nil {
		return domain.TokenAmount{}, err
	}
	for _, p := range paths {
		amount := pick(p)
		if !amount.Token.IsUnderlyingEqual(token) {
			return domain.TokenAmount{}, fmt.Errorf("%w: %s amount in a %s sum", sorcommon.ErrTokenMismatch, amount.Token, token)
		}
		part, err := domain.NewTokenAmount(token, amount.Amount)
		if err != nil {
			return domain.TokenAmount{}, err
		}
		if total, err = total.Add(part); err != nil {
			return domain.TokenAmount{}, err
		}
	}
	return total, nil
}

func (s *Swap) ChainID() int64                   { return s.chainID }
func (s *Swap) SwapKind() domain.SwapKind        { return s.kind }
func (s *Swap) TokenIn() domain.Token            { return s.tokenIn }
func (s *Swap) TokenOut() domain.Token           { return s.tokenOut }
func (s *Swap) InputAmount() domain.TokenAmount  { return s.inputAmount }
func (s *Swap) OutputAmount() domain.TokenAmount { return s.outputAmount }

// Paths returns the paths as executed against the working pool set.
func (s *Swap) Paths() []*router.PathWithAmount {
	return append([]*router.PathWithAmount(nil), s.paths...)
}

// IsBatchSwap reports whether the swap needs queryBatchSwap rather than a
// single pool swap.
func (s *Swap) IsBatchSwap() bool {
	return len(s.paths) > 1 || len(s.paths[0].Pools) > 1
}

// Quote is the amount the caller did not fix: input for GivenOut, output for
// GivenIn.
func (s *Swap) Quote() domain.TokenAmount {
	if s.kind == domain.GivenOut {
		return s.inputAmount
	}
	return s.outputAmount
}

// PriceImpact runs each untouched path's result back through its reversed
// path on the same pre-trade pools and halves the relative round-trip loss.
func (s *Swap) PriceImpact() (domain.PriceImpactAmount, error) {
	initial := new(uint256.Int)
	final := new(uint256.Int)
	for i, p := range s.immutablePaths {
		tokens, poolList := reversed(p)
		back, err := router.NewPathWithAmount(tokens, poolList, p.Quote(), false)
		if err != nil {
			return domain.PriceImpactAmount{}, fmt.Errorf("reverse path %d: %w", i, err)
		}
		initial.Add(initial, p.SwapAmount.Amount)
		final.Add(final, back.Quote().Amount)
	}
	if initial.IsZero() {
		return domain.NewPriceImpactAmount(new(uint256.Int)), nil
	}

	doubled := new(uint256.Int).Lsh(initial, 1)
	impact, err := fixedpoint.DivDownFixed(fixedpoint.AbsDiff(initial, final), doubled)
	if err != nil {
		return domain.PriceImpactAmount{}, err
	}
	return domain.NewPriceImpactAmount(impact), nil
}

func reversed(p *router.PathWithAmount) ([]domain.Token, []pools.BasePool) {
	tokens := make([]domain.Token, len(p.Tokens))
	for i, t := range p.Tokens {
		tokens[len(tokens)-1-i] = t
	}
	poolList := make([]pools.BasePool, len(p.Pools))
	for i, pool := range p.Pools {
		poolList[len(poolList)-1-i] = pool
	}
	return tokens, poolList
}
