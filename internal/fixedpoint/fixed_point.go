// Package fixedpoint mirrors the Balancer v2 Solidity FixedPoint and Math
// libraries on 256-bit unsigned integers with 18 decimals. Every rounding
// direction matches the on-chain implementation so simulated swaps agree with
// the Vault to the wei.
package fixedpoint

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	ErrAddOverflow  = errors.New("fixedpoint: add overflow")
	ErrSubUnderflow = errors.New("fixedpoint: sub underflow")
	ErrMulOverflow  = errors.New("fixedpoint: mul overflow")
	ErrZeroDivision = errors.New("fixedpoint: zero division")
)

const oneUint64 = 1_000_000_000_000_000_000

// Shared constants. Treat as read-only.
var (
	One                 = uint256.NewInt(oneUint64)
	Two                 = uint256.NewInt(2 * oneUint64)
	Four                = uint256.NewInt(4 * oneUint64)
	MaxPowRelativeError = uint256.NewInt(10_000)
)

// NewWad returns v * 1e18.
func NewWad(v uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(v), One)
}

func Add(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrAddOverflow
	}
	return z, nil
}

func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	if a.Lt(b) {
		return nil, ErrSubUnderflow
	}
	return new(uint256.Int).Sub(a, b), nil
}

func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrMulOverflow
	}
	return z, nil
}

// DivDown is plain integer division.
func DivDown(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrZeroDivision
	}
	return new(uint256.Int).Div(a, b), nil
}

// DivUp is integer division rounding towards positive infinity.
func DivUp(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrZeroDivision
	}
	if a.IsZero() {
		return new(uint256.Int), nil
	}
	z := new(uint256.Int).SubUint64(a, 1)
	z.Div(z, b)
	return z.AddUint64(z, 1), nil
}

func MulDownFixed(a, b *uint256.Int) (*uint256.Int, error) {
	product, err := Mul(a, b)
	if err != nil {
		return nil, err
	}
	return product.Div(product, One), nil
}

func MulUpFixed(a, b *uint256.Int) (*uint256.Int, error) {
	product, err := Mul(a, b)
	if err != nil {
		return nil, err
	}
	if product.IsZero() {
		return product, nil
	}
	product.SubUint64(product, 1)
	product.Div(product, One)
	return product.AddUint64(product, 1), nil
}

func DivDownFixed(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrZeroDivision
	}
	if a.IsZero() {
		return new(uint256.Int), nil
	}
	inflated, err := Mul(a, One)
	if err != nil {
		return nil, err
	}
	return inflated.Div(inflated, b), nil
}

func DivUpFixed(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrZeroDivision
	}
	if a.IsZero() {
		return new(uint256.Int), nil
	}
	inflated, err := Mul(a, One)
	if err != nil {
		return nil, err
	}
	inflated.SubUint64(inflated, 1)
	inflated.Div(inflated, b)
	return inflated.AddUint64(inflated, 1), nil
}

// Complement returns 1 - x, floored at zero.
func Complement(x *uint256.Int) *uint256.Int {
	if x.Lt(One) {
		return new(uint256.Int).Sub(One, x)
	}
	return new(uint256.Int)
}

// PowDownFixed returns x^y rounded down, with exact fast paths for y in {1, 2, 4}.
func PowDownFixed(x, y *uint256.Int) (*uint256.Int, error) {
	switch {
	case y.Eq(One):
		return new(uint256.Int).Set(x), nil
	case y.Eq(Two):
		return MulDownFixed(x, x)
	case y.Eq(Four):
		square, err := MulDownFixed(x, x)
		if err != nil {
			return nil, err
		}
		return MulDownFixed(square, square)
	}

	raw, err := Pow(x, y)
	if err != nil {
		return nil, err
	}
	maxError, err := MulUpFixed(raw, MaxPowRelativeError)
	if err != nil {
		return nil, err
	}
	maxError.AddUint64(maxError, 1)
	if raw.Lt(maxError) {
		return new(uint256.Int), nil
	}
	return raw.Sub(raw, maxError), nil
}

// PowUpFixed returns x^y rounded up, with exact fast paths for y in {1, 2, 4}.
func PowUpFixed(x, y *uint256.Int) (*uint256.Int, error) {
	switch {
	case y.Eq(One):
		return new(uint256.Int).Set(x), nil
	case y.Eq(Two):
		return MulUpFixed(x, x)
	case y.Eq(Four):
		square, err := MulUpFixed(x, x)
		if err != nil {
			return nil, err
		}
		return MulUpFixed(square, square)
	}

	raw, err := Pow(x, y)
	if err != nil {
		return nil, err
	}
	maxError, err := MulUpFixed(raw, MaxPowRelativeError)
	if err != nil {
		return nil, err
	}
	maxError.AddUint64(maxError, 1)
	return Add(raw, maxError)
}

func Min(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int).Set(b)
}

func Max(a, b *uint256.Int) *uint256.Int {
	if a.Gt(b) {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int).Set(b)
}

// AbsDiff returns |a - b|.
func AbsDiff(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int).Sub(b, a)
	}
	return new(uint256.Int).Sub(a, b)
}
