package pools

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/fixedpoint"
)

// MaxTokenBalance is the Vault balance cap, 2^112 - 1. Linear pools premint
// this much BPT and the virtual supply is whatever left the pool.
var MaxTokenBalance = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 112), 1)

// linearLimitFactor keeps main and wrapped swaps at 99% of the balance.
var linearLimitFactor = uint256.NewInt(990_000_000_000_000_000)

// LinearPool trades a main token, its wrapped yield-bearing form and the pool's
// own BPT. Targets are 18 decimal main token amounts.
type LinearPool struct {
	basePool
	mainIndex    int
	wrappedIndex int
	bptIndex     int
	lowerTarget  *uint256.Int
	upperTarget  *uint256.Int
}

func NewLinearPool(id common.Hash, address common.Address, poolType domain.PoolType, swapFee, lowerTarget, upperTarget *uint256.Int, tokens []PoolToken, mainIndex, wrappedIndex int) (*LinearPool, error) {
	if !poolType.IsLinear() {
		return nil, fmt.Errorf("%w: %s is not a linear variant", sorcommon.ErrInvalidInput, poolType)
	}
	if len(tokens) != 3 {
		return nil, fmt.Errorf("%w: linear pool %s needs main, wrapped and bpt", sorcommon.ErrInvalidInput, id.Hex())
	}
	if mainIndex == wrappedIndex || mainIndex < 0 || mainIndex > 2 || wrappedIndex < 0 || wrappedIndex > 2 {
		return nil, fmt.Errorf("%w: linear pool %s main %d wrapped %d", sorcommon.ErrInvalidInput, id.Hex(), mainIndex, wrappedIndex)
	}
	bptIndex := 3 - mainIndex - wrappedIndex
	if tokens[bptIndex].Token.Address != address {
		return nil, fmt.Errorf("%w: linear pool %s bpt token %s", sorcommon.ErrInvalidInput, id.Hex(), tokens[bptIndex].Token.Address.Hex())
	}
	if lowerTarget == nil {
		lowerTarget = new(uint256.Int)
	}
	if upperTarget == nil || upperTarget.Lt(lowerTarget) {
		return nil, fmt.Errorf("%w: linear pool %s targets", sorcommon.ErrInvalidInput, id.Hex())
	}
	return &LinearPool{
		basePool:     newBasePool(id, address, poolType, swapFee, tokens),
		mainIndex:    mainIndex,
		wrappedIndex: wrappedIndex,
		bptIndex:     bptIndex,
		lowerTarget:  lowerTarget,
		upperTarget:  upperTarget,
	}, nil
}

// VirtualSupply is the BPT held outside the pool.
func (p *LinearPool) VirtualSupply() *uint256.Int {
	held := p.tokens[p.bptIndex].Balance.Scale18
	if held.Gt(MaxTokenBalance) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(MaxTokenBalance, held)
}

func (p *LinearPool) MainToken() domain.Token    { return p.tokens[p.mainIndex].Token }
func (p *LinearPool) WrappedToken() domain.Token { return p.tokens[p.wrappedIndex].Token }

func (p *LinearPool) SwapGivenIn(tokenIn, tokenOut domain.Token, amountIn domain.TokenAmount, mutateBalances bool) (domain.TokenAmount, error) {
	i, j, err := p.requiredPair(tokenIn, tokenOut)
	if err != nil {
		return domain.TokenAmount{}, err
	}
	tIn, tOut := &p.tokens[i], &p.tokens[j]

	inWithRate, err := fixedpoint.MulDownFixed(amountIn.Scale18, tIn.Rate)
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
	if limit := p.outLimit(j); amountOut.Amount.Gt(limit) {
		return domain.TokenAmount{}, liquidityExceeded(&p.basePool, amountOut, limit)
	}

	if mutateBalances {
		if err := p.applyDeltas(tIn, tOut, amountIn.Amount, amountOut.Amount); err != nil {
			return domain.TokenAmount{}, err
		}
	}
	return amountOut, nil
}

func (p *LinearPool) SwapGivenOut(tokenIn, tokenOut domain.Token, amountOut domain.TokenAmount, mutateBalances bool) (domain.TokenAmount, error) {
	i, j, err := p.requiredPair(tokenIn, tokenOut)
	if err != nil {
		return domain.TokenAmount{}, err
	}
	if limit := p.outLimit(j); amountOut.Amount.Gt(limit) {
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

	if mutateBalances {
		if err := p.applyDeltas(tIn, tOut, amountIn.Amount, amountOut.Amount); err != nil {
			return domain.TokenAmount{}, err
		}
	}
	return amountIn, nil
}

func (p *LinearPool) onSwap(i, j int, amount *uint256.Int, kind domain.SwapKind) (*uint256.Int, error) {
	mainBalance, err := p.tokens[p.mainIndex].scale18WithRate()
	if err != nil {
		return nil, err
	}
	wrappedBalance, err := p.tokens[p.wrappedIndex].scale18WithRate()
	if err != nil {
		return nil, err
	}
	supply := p.VirtualSupply()
	params := linearParams{fee: p.swapFee, lowerTarget: p.lowerTarget, upperTarget: p.upperTarget}
	givenIn := kind == domain.GivenIn

	var result *uint256.Int
	switch {
	case i == p.mainIndex && j == p.bptIndex:
		if givenIn {
			result, err = calcBptOutPerMainIn(amount, mainBalance, wrappedBalance, supply, params)
		} else {
			result, err = calcMainInPerBptOut(amount, mainBalance, wrappedBalance, supply, params)
		}
	case i == p.mainIndex && j == p.wrappedIndex:
		if givenIn {
			result, err = calcWrappedOutPerMainIn(amount, mainBalance, params)
		} else {
			result, err = calcMainInPerWrappedOut(amount, mainBalance, params)
		}
	case i == p.wrappedIndex && j == p.mainIndex:
		if givenIn {
			result, err = calcMainOutPerWrappedIn(amount, mainBalance, params)
		} else {
			result, err = calcWrappedInPerMainOut(amount, mainBalance, params)
		}
	case i == p.wrappedIndex && j == p.bptIndex:
		if givenIn {
			result, err = calcBptOutPerWrappedIn(amount, mainBalance, wrappedBalance, supply, params)
		} else {
			result, err = calcWrappedInPerBptOut(amount, mainBalance, wrappedBalance, supply, params)
		}
	case i == p.bptIndex && j == p.mainIndex:
		if givenIn {
			result, err = calcMainOutPerBptIn(amount, mainBalance, wrappedBalance, supply, params)
		} else {
			result, err = calcBptInPerMainOut(amount, mainBalance, wrappedBalance, supply, params)
		}
	default:
		if givenIn {
			result, err = calcWrappedOutPerBptIn(amount, mainBalance, wrappedBalance, supply, params)
		} else {
			result, err = calcBptInPerWrappedOut(amount, mainBalance, wrappedBalance, supply, params)
		}
	}
	if err != nil {
		return nil, swapMathError(&p.basePool, err)
	}
	return result, nil
}

// outLimit is the raw amount of token j the pool can pay out: the unminted BPT
// or 99% of a main or wrapped balance.
func (p *LinearPool) outLimit(j int) *uint256.Int {
	balance := p.tokens[j].Balance.Amount
	if j == p.bptIndex {
		return new(uint256.Int).Set(balance)
	}
	limit, err := fixedpoint.MulDownFixed(balance, linearLimitFactor)
	if err != nil {
		return new(uint256.Int)
	}
	return limit
}

// GetLimitAmountSwap for GivenIn prices the outLimit back into tokenIn; minting
// BPT is bounded only by the Vault balance cap.
func (p *LinearPool) GetLimitAmountSwap(tokenIn, tokenOut domain.Token, kind domain.SwapKind) *uint256.Int {
	i, j, err := p.requiredPair(tokenIn, tokenOut)
	if err != nil {
		return new(uint256.Int)
	}
	if kind == domain.GivenOut {
		return p.outLimit(j)
	}
	if j == p.bptIndex {
		return new(uint256.Int).Div(MaxTokenBalance, p.tokens[i].Token.Scalar())
	}
	limit, err := domain.NewTokenAmount(tokenOut, p.outLimit(j))
	if err != nil {
		return new(uint256.Int)
	}
	amountIn, err := p.SwapGivenOut(tokenIn, tokenOut, limit, false)
	if err != nil {
		return new(uint256.Int)
	}
	return amountIn.Amount
}

// GetNormalizedLiquidity is the rate adjusted output balance. Linear pools
// only sit inside boosted paths, so the value only breaks ties.
func (p *LinearPool) GetNormalizedLiquidity(tokenIn, tokenOut domain.Token) *uint256.Int {
	_, j, err := p.requiredPair(tokenIn, tokenOut)
	if err != nil {
		return new(uint256.Int)
	}
	liquidity, err := p.tokens[j].scale18WithRate()
	if err != nil {
		return new(uint256.Int)
	}
	return liquidity
}

func (p *LinearPool) Clone() BasePool {
	out := *p
	out.basePool = p.cloneBase()
	return &out
}
