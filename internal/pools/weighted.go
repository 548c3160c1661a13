package pools

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/fixedpoint"
)

// WeightedPool prices swaps on the weighted product invariant.
type WeightedPool struct {
	basePool
	weights []*uint256.Int
}

func NewWeightedPool(id common.Hash, address common.Address, swapFee *uint256.Int, tokens []PoolToken, weights []*uint256.Int) (*WeightedPool, error) {
	if len(tokens) < 2 || len(tokens) != len(weights) {
		return nil, fmt.Errorf("%w: weighted pool %s needs one weight per token", sorcommon.ErrInvalidInput, id.Hex())
	}
	for i, w := range weights {
		if w == nil || w.IsZero() {
			return nil, fmt.Errorf("%w: weighted pool %s token %d has zero weight", sorcommon.ErrInvalidInput, id.Hex(), i)
		}
	}
	return &WeightedPool{
		basePool: newBasePool(id, address, domain.PoolTypeWeighted, swapFee, tokens),
		weights:  weights,
	}, nil
}

func (p *WeightedPool) SwapGivenIn(tokenIn, tokenOut domain.Token, amountIn domain.TokenAmount, mutateBalances bool) (domain.TokenAmount, error) {
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
	outScale18, err := calcWeightedOutGivenIn(tIn.Balance.Scale18, p.weights[i], tOut.Balance.Scale18, p.weights[j], amountWithFee.Scale18)
	if err != nil {
		return domain.TokenAmount{}, swapMathError(&p.basePool, err)
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

func (p *WeightedPool) SwapGivenOut(tokenIn, tokenOut domain.Token, amountOut domain.TokenAmount, mutateBalances bool) (domain.TokenAmount, error) {
	i, j, err := p.requiredPair(tokenIn, tokenOut)
	if err != nil {
		return domain.TokenAmount{}, err
	}
	if limit := p.GetLimitAmountSwap(tokenIn, tokenOut, domain.GivenOut); amountOut.Amount.Gt(limit) {
		return domain.TokenAmount{}, liquidityExceeded(&p.basePool, amountOut, limit)
	}

	tIn, tOut := &p.tokens[i], &p.tokens[j]
	inScale18, err := calcWeightedInGivenOut(tIn.Balance.Scale18, p.weights[i], tOut.Balance.Scale18, p.weights[j], amountOut.Scale18)
	if err != nil {
		return domain.TokenAmount{}, swapMathError(&p.basePool, err)
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

func (p *WeightedPool) GetLimitAmountSwap(tokenIn, tokenOut domain.Token, kind domain.SwapKind) *uint256.Int {
	i, j, err := p.requiredPair(tokenIn, tokenOut)
	if err != nil {
		return new(uint256.Int)
	}
	var limit *uint256.Int
	if kind == domain.GivenIn {
		limit, err = fixedpoint.MulDownFixed(p.tokens[i].Balance.Amount, maxInRatio)
	} else {
		limit, err = fixedpoint.MulDownFixed(p.tokens[j].Balance.Amount, maxOutRatio)
	}
	if err != nil {
		return new(uint256.Int)
	}
	return limit
}

// GetNormalizedLiquidity is balanceIn * wOut / (wIn + wOut) in 18 decimals.
func (p *WeightedPool) GetNormalizedLiquidity(tokenIn, tokenOut domain.Token) *uint256.Int {
	i, j, err := p.requiredPair(tokenIn, tokenOut)
	if err != nil {
		return new(uint256.Int)
	}
	weightSum := new(uint256.Int).Add(p.weights[i], p.weights[j])
	liquidity, overflow := new(uint256.Int).MulDivOverflow(p.tokens[i].Balance.Scale18, p.weights[j], weightSum)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return liquidity
}

func (p *WeightedPool) Weights() []*uint256.Int {
	out := make([]*uint256.Int, len(p.weights))
	for i, w := range p.weights {
		out[i] = new(uint256.Int).Set(w)
	}
	return out
}

func (p *WeightedPool) Clone() BasePool {
	return &WeightedPool{
		basePool: p.cloneBase(),
		weights:  p.weights,
	}
}
