// Package pools implements the swap capability every routable pool exposes and
// the per-type invariant math behind it.
package pools

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/fixedpoint"
)

// BasePool is the contract the path graph and router route through. Swaps only
// touch stored balances when mutateBalances is set.
type BasePool interface {
	ID() common.Hash
	Address() common.Address
	PoolType() domain.PoolType
	Tokens() []domain.Token
	SwapFee() *uint256.Int

	SwapGivenIn(tokenIn, tokenOut domain.Token, amountIn domain.TokenAmount, mutateBalances bool) (domain.TokenAmount, error)
	SwapGivenOut(tokenIn, tokenOut domain.Token, amountOut domain.TokenAmount, mutateBalances bool) (domain.TokenAmount, error)
	// GetLimitAmountSwap is a conservative bound on the raw amount that can be
	// swapped: tokenIn units for GivenIn, tokenOut units for GivenOut.
	GetLimitAmountSwap(tokenIn, tokenOut domain.Token, kind domain.SwapKind) *uint256.Int
	// GetNormalizedLiquidity ranks edges between the same token pair.
	GetNormalizedLiquidity(tokenIn, tokenOut domain.Token) *uint256.Int

	// Clone returns an independent copy sharing no mutable state.
	Clone() BasePool
}

// PoolToken is a pool balance entry.
type PoolToken struct {
	Token   domain.Token
	Index   int
	Balance domain.TokenAmount
	// Rate is an 18 decimal price rate applied on top of decimal scaling.
	Rate    *uint256.Int
}

// scale18WithRate is the balance in 18 decimals multiplied by the token rate.
func (t *PoolToken) scale18WithRate() (*uint256.Int, error) {
	return fixedpoint.MulDownFixed(t.Balance.Scale18, t.Rate)
}

func (t *PoolToken) increase(raw *uint256.Int) error {
	v, err := fixedpoint.Add(t.Balance.Amount, raw)
	if err != nil {
		return err
	}
	if t.Balance, err = domain.NewTokenAmount(t.Token, v); err != nil {
		return err
	}
	return nil
}

func (t *PoolToken) decrease(raw *uint256.Int) error {
	v, err := fixedpoint.Sub(t.Balance.Amount, raw)
	if err != nil {
		return fmt.Errorf("%w: %s balance", sorcommon.ErrLiquidityExceeded, t.Token)
	}
	if t.Balance, err = domain.NewTokenAmount(t.Token, v); err != nil {
		return err
	}
	return nil
}

// basePool holds the identity and token bookkeeping shared by every variant.
type basePool struct {
	id       common.Hash
	address  common.Address
	poolType domain.PoolType
	swapFee  *uint256.Int
	tokens   []PoolToken
	index    map[common.Address]int
}

func newBasePool(id common.Hash, address common.Address, poolType domain.PoolType, swapFee *uint256.Int, tokens []PoolToken) basePool {
	index := make(map[common.Address]int, len(tokens))
	for i := range tokens {
		if tokens[i].Rate == nil || tokens[i].Rate.IsZero() {
			tokens[i].Rate = fixedpoint.One
		}
		index[tokens[i].Token.Wrapped()] = i
	}
	return basePool{
		id:       id,
		address:  address,
		poolType: poolType,
		swapFee:  swapFee,
		tokens:   tokens,
		index:    index,
	}
}

func (p *basePool) ID() common.Hash           { return p.id }
func (p *basePool) Address() common.Address   { return p.address }
func (p *basePool) PoolType() domain.PoolType { return p.poolType }
func (p *basePool) SwapFee() *uint256.Int     { return new(uint256.Int).Set(p.swapFee) }

func (p *basePool) Tokens() []domain.Token {
	out := make([]domain.Token, len(p.tokens))
	for i := range p.tokens {
		out[i] = p.tokens[i].Token
	}
	return out
}

// Balances returns a copy of the current pool balances.
func (p *basePool) Balances() []domain.TokenAmount {
	out := make([]domain.TokenAmount, len(p.tokens))
	for i := range p.tokens {
		out[i] = p.tokens[i].Balance
	}
	return out
}

func (p *basePool) tokenIndex(token domain.Token) (int, bool) {
	i, ok := p.index[token.Wrapped()]
	return i, ok
}

func (p *basePool) requiredPair(tokenIn, tokenOut domain.Token) (int, int, error) {
	i, okIn := p.tokenIndex(tokenIn)
	j, okOut := p.tokenIndex(tokenOut)
	if !okIn || !okOut || i == j {
		return 0, 0, fmt.Errorf("%w: pool %s does not trade %s -> %s", sorcommon.ErrInvalidInput, p.id.Hex(), tokenIn, tokenOut)
	}
	return i, j, nil
}

// cloneBase copies balances and rates. TokenAmounts are immutable so a slice
// copy is enough; the index map is never written after construction.
func (p *basePool) cloneBase() basePool {
	out := *p
	out.tokens = append([]PoolToken(nil), p.tokens...)
	return out
}

func (p *basePool) subtractSwapFeeAmount(amount domain.TokenAmount) (domain.TokenAmount, error) {
	fee, err := amount.MulUpFixed(p.swapFee)
	if err != nil {
		return domain.TokenAmount{}, err
	}
	return amount.Sub(fee)
}

func (p *basePool) addSwapFeeAmount(amount domain.TokenAmount) (domain.TokenAmount, error) {
	return amount.DivUpFixed(fixedpoint.Complement(p.swapFee))
}

func (p *basePool) applyDeltas(tIn, tOut *PoolToken, amountIn, amountOut *uint256.Int) error {
	if err := tOut.decrease(amountOut); err != nil {
		return err
	}
	return tIn.increase(amountIn)
}

func liquidityExceeded(p *basePool, amount domain.TokenAmount, limit *uint256.Int) error {
	return fmt.Errorf("%w: pool %s amount %s limit %s", sorcommon.ErrLiquidityExceeded, p.id.Hex(), amount.Amount.Dec(), limit.Dec())
}

// swapMathError classifies invariant math failures. Underflows and ratio
// checks mean the amount is too large for the pool; anything else is returned
// unchanged.
func swapMathError(p *basePool, err error) error {
	if errors.Is(err, fixedpoint.ErrSubUnderflow) || errors.Is(err, errMaxRatio) {
		return fmt.Errorf("%w: pool %s: %v", sorcommon.ErrLiquidityExceeded, p.id.Hex(), err)
	}
	return fmt.Errorf("pool %s: %w", p.id.Hex(), err)
}
