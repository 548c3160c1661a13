package domain

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/fixedpoint"
)

// MaxDecimals is the internal fixed point precision.
const MaxDecimals = 18

var pow10 [MaxDecimals + 1]*uint256.Int

func init() {
	pow10[0] = uint256.NewInt(1)
	for i := 1; i <= MaxDecimals; i++ {
		pow10[i] = new(uint256.Int).Mul(pow10[i-1], uint256.NewInt(10))
	}
}

// Pow10 returns 10^n for n <= 18. The result must not be mutated.
func Pow10(n uint8) *uint256.Int {
	if n > MaxDecimals {
		n = MaxDecimals
	}
	return pow10[n]
}

// Scalar returns the factor lifting a raw amount of the token to 18 decimals.
// It is only meaningful for tokens that pass SupportsDecimals.
func (t Token) Scalar() *uint256.Int {
	if t.Decimals >= MaxDecimals {
		return pow10[0]
	}
	return pow10[MaxDecimals-t.Decimals]
}

// TokenAmount is a non-negative raw amount plus its 18 decimal representation.
// Values are immutable: every operation returns a new TokenAmount.
type TokenAmount struct {
	Token   Token
	Amount  *uint256.Int
	Scale18 *uint256.Int
}

// SupportsDecimals reports whether the token's raw units can be lifted to 18
// decimals without losing precision.
func (t Token) SupportsDecimals() bool {
	return t.Decimals <= MaxDecimals
}

// NewTokenAmount builds an amount from raw units. It fails for tokens above 18
// decimals and for raw amounts whose 18 decimal form does not fit 256 bits.
func NewTokenAmount(token Token, raw *uint256.Int) (TokenAmount, error) {
	if !token.SupportsDecimals() {
		return TokenAmount{}, fmt.Errorf("%w: %s has %d decimals, max %d", sorcommon.ErrInvalidInput, token, token.Decimals, MaxDecimals)
	}
	amount := new(uint256.Int).Set(raw)
	scale18, overflow := new(uint256.Int).MulOverflow(amount, token.Scalar())
	if overflow {
		return TokenAmount{}, fmt.Errorf("%w: amount %s of %s overflows 18 decimals", sorcommon.ErrInvalidInput, amount.Dec(), token)
	}
	return TokenAmount{Token: token, Amount: amount, Scale18: scale18}, nil
}

// FromRawAmount is NewTokenAmount for amounts known to fit, such as literals.
// It panics on an amount NewTokenAmount would reject.
func FromRawAmount(token Token, raw *uint256.Int) TokenAmount {
	ta, err := NewTokenAmount(token, raw)
	if err != nil {
		panic(err)
	}
	return ta
}

// FromRawString parses a base-10 raw amount.
func FromRawString(token Token, raw string) (TokenAmount, error) {
	v, err := uint256.FromDecimal(raw)
	if err != nil {
		return TokenAmount{}, fmt.Errorf("%w: amount %q: %v", sorcommon.ErrInvalidInput, raw, err)
	}
	return NewTokenAmount(token, v)
}

// FromHumanAmount parses a decimal string like "1.5" in token units. Digits
// beyond the token's precision are truncated.
func FromHumanAmount(token Token, human string) (TokenAmount, error) {
	raw, err := ParseUnits(human, token.Decimals)
	if err != nil {
		return TokenAmount{}, err
	}
	return NewTokenAmount(token, raw)
}

// FromScale18Amount converts an 18 decimal amount back to raw units, rounding
// up when divUp is set.
func FromScale18Amount(token Token, scale18 *uint256.Int, divUp bool) (TokenAmount, error) {
	scalar := token.Scalar()
	var raw *uint256.Int
	if divUp {
		raw, _ = fixedpoint.DivUp(scale18, scalar)
	} else {
		raw = new(uint256.Int).Div(scale18, scalar)
	}
	return NewTokenAmount(token, raw)
}

func (ta TokenAmount) IsZero() bool {
	return ta.Amount == nil || ta.Amount.IsZero()
}

// Cmp compares raw amounts.
func (ta TokenAmount) Cmp(other TokenAmount) int {
	return ta.Amount.Cmp(other.Amount)
}

func (ta TokenAmount) Add(other TokenAmount) (TokenAmount, error) {
	if !ta.Token.IsUnderlyingEqual(other.Token) {
		return TokenAmount{}, fmt.Errorf("%w: %s + %s", sorcommon.ErrTokenMismatch, ta.Token, other.Token)
	}
	sum, err := fixedpoint.Add(ta.Amount, other.Amount)
	if err != nil {
		return TokenAmount{}, err
	}
	return NewTokenAmount(ta.Token, sum)
}

func (ta TokenAmount) Sub(other TokenAmount) (TokenAmount, error) {
	if !ta.Token.IsUnderlyingEqual(other.Token) {
		return TokenAmount{}, fmt.Errorf("%w: %s - %s", sorcommon.ErrTokenMismatch, ta.Token, other.Token)
	}
	diff, err := fixedpoint.Sub(ta.Amount, other.Amount)
	if err != nil {
		return TokenAmount{}, fmt.Errorf("%w: %v", sorcommon.ErrInvalidInput, err)
	}
	return NewTokenAmount(ta.Token, diff)
}

func (ta TokenAmount) MulUpFixed(other *uint256.Int) (TokenAmount, error) {
	v, err := fixedpoint.MulUpFixed(ta.Amount, other)
	if err != nil {
		return TokenAmount{}, err
	}
	return NewTokenAmount(ta.Token, v)
}

func (ta TokenAmount) MulDownFixed(other *uint256.Int) (TokenAmount, error) {
	v, err := fixedpoint.MulDownFixed(ta.Amount, other)
	if err != nil {
		return TokenAmount{}, err
	}
	return NewTokenAmount(ta.Token, v)
}

func (ta TokenAmount) DivUpFixed(other *uint256.Int) (TokenAmount, error) {
	v, err := fixedpoint.DivUpFixed(ta.Amount, other)
	if err != nil {
		return TokenAmount{}, err
	}
	return NewTokenAmount(ta.Token, v)
}

func (ta TokenAmount) DivDownFixed(other *uint256.Int) (TokenAmount, error) {
	v, err := fixedpoint.DivDownFixed(ta.Amount, other)
	if err != nil {
		return TokenAmount{}, err
	}
	return NewTokenAmount(ta.Token, v)
}

// ToHuman returns the amount in token units.
func (ta TokenAmount) ToHuman() decimal.Decimal {
	return decimal.NewFromBigInt(ta.Amount.ToBig(), -int32(ta.Token.Decimals))
}

// ToSignificant renders the human amount rounded to the given number of
// significant digits.
func (ta TokenAmount) ToSignificant(digits int32) string {
	human := ta.ToHuman()
	if human.IsZero() {
		return "0"
	}
	return human.Round(digits - leadingExponent(human)).String()
}

// leadingExponent is the count of integer digits, or for values below one the
// negated count of zeros after the point: 123.4 -> 3, 0.012 -> -1.
func leadingExponent(d decimal.Decimal) int32 {
	d = d.Abs()
	one := decimal.NewFromInt(1)
	if d.GreaterThanOrEqual(one) {
		return int32(len(d.Truncate(0).String()))
	}
	var exp int32
	for d.LessThan(one) {
		d = d.Shift(1)
		exp--
	}
	return exp + 1
}

func (ta TokenAmount) String() string {
	return fmt.Sprintf("%s %s", ta.ToHuman().String(), ta.Token.Symbol)
}
