package pools

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/fixedpoint"
)

// stableLimitFactor keeps stable swaps just inside the output balance.
var stableLimitFactor = uint256.NewInt(999_999_000_000_000_000)

// StablePool covers Stable, MetaStable and ComposableStable pools. For
// composable pools the pool's own BPT is not part of tokens.
type StablePool struct {
	basePool
	// amp already carries AmpPrecision.
	amp *uint256.Int
}

func NewStablePool(id common.Hash, address common.Address, poolType domain.PoolType, swapFee, amp *uint256.Int, tokens []PoolToken) (*StablePool, error) {
	switch poolType {
	case domain.PoolTypeStable, domain.PoolTypeMetaStable, domain.PoolTypeComposableStable:
	default:
		return nil, fmt.Errorf("%w: %s is not a stable variant", sorcommon.ErrInvalidInput, poolType)
	}
	if len(tokens) < 2 {
		return nil, fmt.Errorf("%w: stable pool %s needs two tokens", sorcommon.ErrInvalidInput, id.Hex())
	}
	if amp == nil || amp.IsZero() {
		return nil, fmt.Errorf("%w: stable pool %s has no amp", sorcommon.ErrInvalidInput, id.Hex())
	}
	return &StablePool{
		basePool: newBasePool(id, address, poolType, swapFee, tokens),
		amp:      amp,
	}, nil
}

func (p *StablePool) Amp() *uint256.Int { return new(uint256.Int).Set(p.amp) }

// balancesWithRate returns every balance in 18 decimals times its rate.
func (p *StablePool) balancesWithRate() ([]*uint256.Int, error) {
	out := make([]*uint256.Int, len(p.tokens))
	for i := range p.tokens {
		b, err := p.tokens[i].scale18WithRate()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func (p *StablePool) SwapGivenIn(tokenIn, tokenOut domain.Token, amountIn domain.TokenAmount, mutateBalances bool) (domain.TokenAmount, error) {
	i, j, err := p.requiredPair(tokenIn, tokenOut)
	if err != nil {
		return domain.TokenAmount{}, err
	}
	if limit := p.GetLimitAmountSwap(tokenIn, tokenOut, domain.GivenIn); amountIn.Amount.Gt(limit) {
		return domain.TokenAmount{}, liquidityExceeded(&p.basePool, amountIn, limit)
	}

	tIn, tOut := &p.tokens[i], &p.tokens[j]
	amountWithFee, err := p.subtractSwapFeeAmount(amountIn)
	if err != nil {
		return domain.TokenAmount{}, err
	}
	inWithRate, err := fixedpoint.MulDownFixed(amountWithFee.Scale18, tIn.Rate)
	if err != nil {
		return domain.TokenAmount{}, err
	}

	outWithRate, err := p.onSwap(i, j, inWithRate, domain.GivenIn)
	if err != nil {
		return domain.TokenAmount{}, err
	}
	outScale18, err := fixedpoint.DivDownFixed(outWithRate, tOut.Rate)
	if err != nil {
		return domain.TokenAmount{}, err
	}
	amountOut, err := domain.FromScale18Amount(tokenOut, outScale18, false)
	if err != nil {
		return domain.TokenAmount{}, err
	}

	if mutateBalances {
		if err := p.applyDeltas(tIn, tOut, amountIn.Amount, amountOut.Amount); err != nil {
			return domain.TokenAmount{}, err
		}
	}
	return amountOut, nil
}

func (p *StablePool) SwapGivenOut(tokenIn, tokenOut domain.Token, amountOut domain.TokenAmount, mutateBalances bool) (domain.TokenAmount, error) {
	i, j, err := p.requiredPair(tokenIn, tokenOut)
	if err != nil {
		return domain.TokenAmount{}, err
	}
	if limit := p.GetLimitAmountSwap(tokenIn, tokenOut, domain.GivenOut); amountOut.Amount.Gt(limit) {
		return domain.TokenAmount{}, liquidityExceeded(&p.basePool, amountOut, limit)
	}

	tIn, tOut := &p.tokens[i], &p.tokens[j]
	outWithRate, err := fixedpoint.MulDownFixed(amountOut.Scale18, tOut.Rate)
	if err != nil {
		return domain.TokenAmount{}, err
	}
	inWithRate, err := p.onSwap(i, j, outWithRate, domain.GivenOut)
	if err != nil {
		return domain.TokenAmount{}, err
	}
	inScale18, err := fixedpoint.DivUpFixed(inWithRate, tIn.Rate)
	if err != nil {
		return domain.TokenAmount{}, err
	}
	amountIn, err := domain.FromScale18Amount(tokenIn, inScale18, true)
	if err != nil {
		return domain.TokenAmount{}, err
	}
	if amountIn, err = p.addSwapFeeAmount(amountIn); err != nil {
		return domain.TokenAmount{}, err
	}

	if mutateBalances {
		if err := p.applyDeltas(tIn, tOut, amountIn.Amount, amountOut.Amount); err != nil {
			return domain.TokenAmount{}, err
		}
	}
	return amountIn, nil
}

func (p *StablePool) onSwap(i, j int, amount *uint256.Int, kind domain.SwapKind) (*uint256.Int, error) {
	balances, err := p.balancesWithRate()
	if err != nil {
		return nil, err
	}
	invariant, err := calculateInvariant(p.amp, balances)
	if err != nil {
		return nil, swapMathError(&p.basePool, err)
	}
	var result *uint256.Int
	if kind == domain.GivenIn {
		result, err = calcStableOutGivenIn(p.amp, balances, i, j, amount, invariant)
	} else {
		result, err = calcStableInGivenOut(p.amp, balances, i, j, amount, invariant)
	}
	if err != nil {
		return nil, swapMathError(&p.basePool, err)
	}
	return result, nil
}

// GetLimitAmountSwap bounds both directions by 99.9999% of the output balance;
// for GivenIn that amount is expressed in tokenIn units through the rates.
func (p *StablePool) GetLimitAmountSwap(tokenIn, tokenOut domain.Token, kind domain.SwapKind) *uint256.Int {
	i, j, err := p.requiredPair(tokenIn, tokenOut)
	if err != nil {
		return new(uint256.Int)
	}
	tIn, tOut := &p.tokens[i], &p.tokens[j]
	if kind == domain.GivenOut {
		limit, err := fixedpoint.MulDownFixed(tOut.Balance.Amount, stableLimitFactor)
		if err != nil {
			return new(uint256.Int)
		}
		return limit
	}

	outWithRate, err := tOut.scale18WithRate()
	if err != nil {
		return new(uint256.Int)
	}
	if outWithRate, err = fixedpoint.MulDownFixed(outWithRate, stableLimitFactor); err != nil {
		return new(uint256.Int)
	}
	inScale18, err := fixedpoint.DivDownFixed(outWithRate, tIn.Rate)
	if err != nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Div(inScale18, tIn.Token.Scalar())
}

// GetNormalizedLiquidity is the output balance scaled by amp.
func (p *StablePool) GetNormalizedLiquidity(tokenIn, tokenOut domain.Token) *uint256.Int {
	_, j, err := p.requiredPair(tokenIn, tokenOut)
	if err != nil {
		return new(uint256.Int)
	}
	liquidity, overflow := new(uint256.Int).MulDivOverflow(p.tokens[j].Balance.Scale18, p.amp, AmpPrecision)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return liquidity
}

func (p *StablePool) Clone() BasePool {
	return &StablePool{
		basePool: p.cloneBase(),
		amp:      p.amp,
	}
}
