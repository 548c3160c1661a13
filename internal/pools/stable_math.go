package pools

import (
	"fmt"

	"github.com/holiman/uint256"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/fixedpoint"
)

// maxStableIterations caps both Newton solvers.
var maxStableIterations = 255

// AmpPrecision is the factor amplification parameters are stored with.
var AmpPrecision = uint256.NewInt(1000)

var (
	ErrStableInvariantDidNotConverge  = fmt.Errorf("%w: stable invariant", sorcommon.ErrNotConverged)
	ErrStableGetBalanceDidNotConverge = fmt.Errorf("%w: stable token balance", sorcommon.ErrNotConverged)
)

var (
	u256One = uint256.NewInt(1)
	u256Two = uint256.NewInt(2)
)

// calculateInvariant solves the StableSwap invariant D by Newton iteration,
// rounding down. amp carries AmpPrecision.
func calculateInvariant(amp *uint256.Int, balances []*uint256.Int) (*uint256.Int, error) {
	sum := new(uint256.Int)
	for _, b := range balances {
		var err error
		if sum, err = fixedpoint.Add(sum, b); err != nil {
			return nil, err
		}
	}
	if sum.IsZero() {
		return sum, nil
	}

	n := uint256.NewInt(uint64(len(balances)))
	ampTimesTotal := new(uint256.Int).Mul(amp, n)
	invariant := new(uint256.Int).Set(sum)

	for i := 0; i < maxStableIterations; i++ {
		dP := new(uint256.Int).Set(invariant)
		for _, b := range balances {
			num, err := fixedpoint.Mul(dP, invariant)
			if err != nil {
				return nil, err
			}
			if dP, err = fixedpoint.DivDown(num, new(uint256.Int).Mul(b, n)); err != nil {
				return nil, err
			}
		}
		prev := invariant

		ampSum, err := fixedpoint.Mul(ampTimesTotal, sum)
		if err != nil {
			return nil, err
		}
		numerator := new(uint256.Int).Div(ampSum, AmpPrecision)
		numerator.Add(numerator, new(uint256.Int).Mul(dP, n))
		if numerator, err = fixedpoint.Mul(numerator, invariant); err != nil {
			return nil, err
		}

		ampLessOne, err := fixedpoint.Sub(ampTimesTotal, AmpPrecision)
		if err != nil {
			return nil, err
		}
		denominator, err := fixedpoint.Mul(ampLessOne, invariant)
		if err != nil {
			return nil, err
		}
		denominator.Div(denominator, AmpPrecision)
		denominator.Add(denominator, new(uint256.Int).Mul(new(uint256.Int).AddUint64(n, 1), dP))

		if invariant, err = fixedpoint.DivDown(numerator, denominator); err != nil {
			return nil, err
		}
		if !fixedpoint.AbsDiff(invariant, prev).Gt(u256One) {
			return invariant, nil
		}
	}
	return nil, ErrStableInvariantDidNotConverge
}

// calcStableOutGivenIn returns the 18 decimal amount out for amountIn, leaving
// balances untouched.
func calcStableOutGivenIn(amp *uint256.Int, balances []*uint256.Int, indexIn, indexOut int, amountIn, invariant *uint256.Int) (*uint256.Int, error) {
	adjusted := make([]*uint256.Int, len(balances))
	copy(adjusted, balances)
	newIn, err := fixedpoint.Add(balances[indexIn], amountIn)
	if err != nil {
		return nil, err
	}
	adjusted[indexIn] = newIn

	finalOut, err := tokenBalanceGivenInvariant(amp, adjusted, invariant, indexOut)
	if err != nil {
		return nil, err
	}
	out, err := fixedpoint.Sub(balances[indexOut], finalOut)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Sub(out, u256One)
}

// calcStableInGivenOut returns the 18 decimal amount in needed for amountOut.
func calcStableInGivenOut(amp *uint256.Int, balances []*uint256.Int, indexIn, indexOut int, amountOut, invariant *uint256.Int) (*uint256.Int, error) {
	adjusted := make([]*uint256.Int, len(balances))
	copy(adjusted, balances)
	newOut, err := fixedpoint.Sub(balances[indexOut], amountOut)
	if err != nil {
		return nil, err
	}
	adjusted[indexOut] = newOut

	finalIn, err := tokenBalanceGivenInvariant(amp, adjusted, invariant, indexIn)
	if err != nil {
		return nil, err
	}
	in, err := fixedpoint.Sub(finalIn, balances[indexIn])
	if err != nil {
		return nil, err
	}
	return fixedpoint.Add(in, u256One)
}

// tokenBalanceGivenInvariant solves for balances[index] keeping the invariant
// and every other balance fixed, rounding up.
func tokenBalanceGivenInvariant(amp *uint256.Int, balances []*uint256.Int, invariant *uint256.Int, index int) (*uint256.Int, error) {
	n := uint256.NewInt(uint64(len(balances)))
	ampTimesTotal := new(uint256.Int).Mul(amp, n)

	sum := new(uint256.Int).Set(balances[0])
	pD, err := fixedpoint.Mul(balances[0], n)
	if err != nil {
		return nil, err
	}
	for j := 1; j < len(balances); j++ {
		if pD, err = fixedpoint.Mul(pD, balances[j]); err != nil {
			return nil, err
		}
		if pD, err = fixedpoint.Mul(pD, n); err != nil {
			return nil, err
		}
		if pD, err = fixedpoint.DivDown(pD, invariant); err != nil {
			return nil, err
		}
		if sum, err = fixedpoint.Add(sum, balances[j]); err != nil {
			return nil, err
		}
	}
	if sum, err = fixedpoint.Sub(sum, balances[index]); err != nil {
		return nil, err
	}

	inv2, err := fixedpoint.Mul(invariant, invariant)
	if err != nil {
		return nil, err
	}
	ampPD, err := fixedpoint.Mul(ampTimesTotal, pD)
	if err != nil {
		return nil, err
	}
	c, err := fixedpoint.DivUp(inv2, ampPD)
	if err != nil {
		return nil, err
	}
	if c, err = fixedpoint.Mul(c, AmpPrecision); err != nil {
		return nil, err
	}
	if c, err = fixedpoint.Mul(c, balances[index]); err != nil {
		return nil, err
	}

	b, err := fixedpoint.DivDown(invariant, ampTimesTotal)
	if err != nil {
		return nil, err
	}
	b.Mul(b, AmpPrecision)
	if b, err = fixedpoint.Add(sum, b); err != nil {
		return nil, err
	}

	num, err := fixedpoint.Add(inv2, c)
	if err != nil {
		return nil, err
	}
	balance, err := fixedpoint.DivUp(num, new(uint256.Int).Add(invariant, b))
	if err != nil {
		return nil, err
	}

	for i := 0; i < maxStableIterations; i++ {
		prev := balance
		sq, err := fixedpoint.Mul(balance, balance)
		if err != nil {
			return nil, err
		}
		if num, err = fixedpoint.Add(sq, c); err != nil {
			return nil, err
		}
		den := new(uint256.Int).Mul(balance, u256Two)
		den.Add(den, b)
		if den, err = fixedpoint.Sub(den, invariant); err != nil {
			return nil, err
		}
		if balance, err = fixedpoint.DivUp(num, den); err != nil {
			return nil, err
		}
		if !fixedpoint.AbsDiff(balance, prev).Gt(u256One) {
			return balance, nil
		}
	}
	return nil, ErrStableGetBalanceDidNotConverge
}
