package pools

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/hxuan190/balancer-sor/internal/fixedpoint"
)

var errMaxRatio = errors.New("weighted: max in/out ratio")

// Swap limits relative to the balance, 30%.
var (
	maxInRatio  = uint256.NewInt(300_000_000_000_000_000)
	maxOutRatio = uint256.NewInt(300_000_000_000_000_000)
)

// calcOutGivenIn: out = balanceOut * (1 - (balanceIn / (balanceIn + amountIn))^(wIn/wOut))
func calcWeightedOutGivenIn(balanceIn, weightIn, balanceOut, weightOut, amountIn *uint256.Int) (*uint256.Int, error) {
	maxIn, err := fixedpoint.MulDownFixed(balanceIn, maxInRatio)
	if err != nil {
		return nil, err
	}
	if amountIn.Gt(maxIn) {
		return nil, errMaxRatio
	}

	denominator, err := fixedpoint.Add(balanceIn, amountIn)
	if err != nil {
		return nil, err
	}
	base, err := fixedpoint.DivUpFixed(balanceIn, denominator)
	if err != nil {
		return nil, err
	}
	exponent, err := fixedpoint.DivDownFixed(weightIn, weightOut)
	if err != nil {
		return nil, err
	}
	power, err := fixedpoint.PowUpFixed(base, exponent)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDownFixed(balanceOut, fixedpoint.Complement(power))
}

// calcInGivenOut: in = balanceIn * ((balanceOut / (balanceOut - amountOut))^(wOut/wIn) - 1)
func calcWeightedInGivenOut(balanceIn, weightIn, balanceOut, weightOut, amountOut *uint256.Int) (*uint256.Int, error) {
	maxOut, err := fixedpoint.MulDownFixed(balanceOut, maxOutRatio)
	if err != nil {
		return nil, err
	}
	if amountOut.Gt(maxOut) {
		return nil, errMaxRatio
	}

	remaining, err := fixedpoint.Sub(balanceOut, amountOut)
	if err != nil {
		return nil, err
	}
	base, err := fixedpoint.DivUpFixed(balanceOut, remaining)
	if err != nil {
		return nil, err
	}
	exponent, err := fixedpoint.DivUpFixed(weightOut, weightIn)
	if err != nil {
		return nil, err
	}
	power, err := fixedpoint.PowUpFixed(base, exponent)
	if err != nil {
		return nil, err
	}
	ratio, err := fixedpoint.Sub(power, fixedpoint.One)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulUpFixed(balanceIn, ratio)
}
