package domain

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
)

// ParseUnits converts a human decimal string into an integer with the given
// number of decimals, truncating extra precision.
func ParseUnits(human string, decimals uint8) (*uint256.Int, error) {
	if human == "" {
		return new(uint256.Int), nil
	}
	d, err := decimal.NewFromString(human)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %v", sorcommon.ErrInvalidInput, human, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative amount %q", sorcommon.ErrInvalidInput, human)
	}
	raw, overflow := uint256.FromBig(d.Shift(int32(decimals)).Truncate(0).BigInt())
	if overflow {
		return nil, fmt.Errorf("%w: amount %q overflows uint256", sorcommon.ErrInvalidInput, human)
	}
	return raw, nil
}

// ParseWad parses a human decimal string into 18 decimal fixed point.
func ParseWad(human string) (*uint256.Int, error) {
	return ParseUnits(human, MaxDecimals)
}

// FormatUnits renders an integer amount with the given decimals.
func FormatUnits(v *uint256.Int, decimals uint8) string {
	return decimal.NewFromBigInt(v.ToBig(), -int32(decimals)).String()
}
