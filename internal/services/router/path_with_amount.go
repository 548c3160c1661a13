package router

import (
	"fmt"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/pools"
)

// PathWithAmount is a path bound to a swap amount. The swap is simulated once
// at construction and the resulting amounts are cached.
type PathWithAmount struct {
	Path
	SwapAmount   domain.TokenAmount
	SwapKind     domain.SwapKind
	InputAmount  domain.TokenAmount
	OutputAmount domain.TokenAmount
}

// NewPathWithAmount infers the kind from the amount's token: the first path
// token means GivenIn, the last means GivenOut. With mutateBalances set every
// pool on the path keeps the traded deltas.
func NewPathWithAmount(tokens []domain.Token, poolList []pools.BasePool, swapAmount domain.TokenAmount, mutateBalances bool) (*PathWithAmount, error) {
	path, err := NewPath(tokens, poolList)
	if err != nil {
		return nil, err
	}

	p := &PathWithAmount{Path: *path, SwapAmount: swapAmount}
	switch {
	case swapAmount.Token.IsUnderlyingEqual(path.TokenIn()):
		p.SwapKind = domain.GivenIn
	case swapAmount.Token.IsUnderlyingEqual(path.TokenOut()):
		p.SwapKind = domain.GivenOut
	default:
		return nil, fmt.Errorf("%w: amount token %s is neither end of the path", sorcommon.ErrInvalidInput, swapAmount.Token)
	}

	if err := p.simulate(mutateBalances); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PathWithAmount) simulate(mutateBalances bool) error {
	last := len(p.Pools) - 1
	if p.SwapKind == domain.GivenIn {
		amount, err := domain.NewTokenAmount(p.Tokens[0], p.SwapAmount.Amount)
		if err != nil {
			return err
		}
		p.InputAmount = amount
		for i, pool := range p.Pools {
			out, err := pool.SwapGivenIn(p.Tokens[i], p.Tokens[i+1], amount, mutateBalances)
			if err != nil {
				return fmt.Errorf("%w: hop %d via %s: %w", sorcommon.ErrInvalidPath, i, pool.ID().Hex(), err)
			}
			amount = out
		}
		p.OutputAmount = amount
		return nil
	}

	amount, err := domain.NewTokenAmount(p.Tokens[last+1], p.SwapAmount.Amount)
	if err != nil {
		return err
	}
	p.OutputAmount = amount
	for i := last; i >= 0; i-- {
		in, err := p.Pools[i].SwapGivenOut(p.Tokens[i], p.Tokens[i+1], amount, mutateBalances)
		if err != nil {
			return fmt.Errorf("%w: hop %d via %s: %w", sorcommon.ErrInvalidPath, i, p.Pools[i].ID().Hex(), err)
		}
		amount = in
	}
	p.InputAmount = amount
	return nil
}

// Quote is the simulated amount the caller did not fix.
func (p *PathWithAmount) Quote() domain.TokenAmount {
	if p.SwapKind == domain.GivenIn {
		return p.OutputAmount
	}
	return p.InputAmount
}
