package domain

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/balancer-sor/internal/fixedpoint"
)

var bpsScale = uint256.NewInt(10_000)

// PriceImpactAmount is a price impact ratio in 18 decimal fixed point.
type PriceImpactAmount struct {
	Amount *uint256.Int
}

func NewPriceImpactAmount(raw *uint256.Int) PriceImpactAmount {
	return PriceImpactAmount{Amount: new(uint256.Int).Set(raw)}
}

// Decimal returns the ratio, e.g. 0.0125 for 1.25%.
func (p PriceImpactAmount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(p.Amount.ToBig(), -MaxDecimals)
}

func (p PriceImpactAmount) Percentage() decimal.Decimal {
	return p.Decimal().Shift(2)
}

// Bps returns the impact in basis points, rounded down.
func (p PriceImpactAmount) Bps() uint64 {
	bps := new(uint256.Int).Mul(p.Amount, bpsScale)
	bps.Div(bps, fixedpoint.One)
	if !bps.IsUint64() {
		return ^uint64(0)
	}
	return bps.Uint64()
}
