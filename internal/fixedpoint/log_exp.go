package fixedpoint

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// LogExpMath works on signed 18 / 20 / 36 decimal intermediates, so it runs on
// math/big and converts at the boundary.

var (
	ErrXOutOfBounds       = errors.New("logexp: x out of bounds")
	ErrYOutOfBounds       = errors.New("logexp: y out of bounds")
	ErrProductOutOfBounds = errors.New("logexp: product out of bounds")
	ErrInvalidExponent    = errors.New("logexp: invalid exponent")
)

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("logexp: bad constant " + s)
	}
	return v
}

var (
	one18 = mustBig("1000000000000000000")
	one20 = mustBig("100000000000000000000")
	one36 = mustBig("1000000000000000000000000000000000000")

	maxNaturalExponent = mustBig("130000000000000000000")
	minNaturalExponent = mustBig("-41000000000000000000")

	ln36LowerBound = mustBig("900000000000000000")
	ln36UpperBound = mustBig("1100000000000000000")

	xBound            = new(big.Int).Lsh(big.NewInt(1), 255)
	mildExponentBound = new(big.Int).Quo(new(big.Int).Lsh(big.NewInt(1), 254), one20)

	// 18 decimal exponents, stored without decimals.
	x0 = mustBig("128000000000000000000")
	a0 = mustBig("38877084059945950922200000000000000000000000000000000000")
	x1 = mustBig("64000000000000000000")
	a1 = mustBig("6235149080811616882910000000")

	// 20 decimal exponents and their e^x values.
	expTerms = []struct{ x, a *big.Int }{
		{mustBig("3200000000000000000000"), mustBig("7896296018268069516100000000000000")},
		{mustBig("1600000000000000000000"), mustBig("888611052050787263676000000")},
		{mustBig("800000000000000000000"), mustBig("298095798704172827474000")},
		{mustBig("400000000000000000000"), mustBig("5459815003314423907810")},
		{mustBig("200000000000000000000"), mustBig("738905609893065022723")},
		{mustBig("100000000000000000000"), mustBig("271828182845904523536")},
		{mustBig("50000000000000000000"), mustBig("164872127070012814685")},
		{mustBig("25000000000000000000"), mustBig("128402541668774148407")},
		{mustBig("12500000000000000000"), mustBig("113314845306682631683")},
		{mustBig("6250000000000000000"), mustBig("106449445891785942956")},
	}

	// exp only uses x2..x9
	expTermsUsedByExp = expTerms[:8]
)

// Pow computes x^y for 18 decimal fixed point values.
func Pow(x, y *uint256.Int) (*uint256.Int, error) {
	if y.IsZero() {
		return new(uint256.Int).Set(One), nil
	}
	if x.IsZero() {
		return new(uint256.Int), nil
	}

	bx := x.ToBig()
	if bx.Cmp(xBound) >= 0 {
		return nil, ErrXOutOfBounds
	}
	by := y.ToBig()
	if by.Cmp(mildExponentBound) >= 0 {
		return nil, ErrYOutOfBounds
	}

	var logxTimesY *big.Int
	if ln36LowerBound.Cmp(bx) < 0 && bx.Cmp(ln36UpperBound) < 0 {
		ln36x := ln36(bx)
		hi := new(big.Int).Quo(ln36x, one18)
		hi.Mul(hi, by)
		lo := new(big.Int).Rem(ln36x, one18)
		lo.Mul(lo, by)
		lo.Quo(lo, one18)
		logxTimesY = hi.Add(hi, lo)
	} else {
		logxTimesY = new(big.Int).Mul(ln(bx), by)
	}
	logxTimesY.Quo(logxTimesY, one18)

	if logxTimesY.Cmp(minNaturalExponent) < 0 || logxTimesY.Cmp(maxNaturalExponent) > 0 {
		return nil, ErrProductOutOfBounds
	}

	r, err := exp(logxTimesY)
	if err != nil {
		return nil, err
	}
	z, overflow := uint256.FromBig(r)
	if overflow {
		return nil, ErrProductOutOfBounds
	}
	return z, nil
}

// Exp computes e^x for a signed 18 decimal x.
func Exp(x *big.Int) (*big.Int, error) {
	return exp(x)
}

func exp(x *big.Int) (*big.Int, error) {
	if x.Cmp(minNaturalExponent) < 0 || x.Cmp(maxNaturalExponent) > 0 {
		return nil, ErrInvalidExponent
	}

	if x.Sign() < 0 {
		inv, err := exp(new(big.Int).Neg(x))
		if err != nil {
			return nil, err
		}
		r := new(big.Int).Mul(one18, one18)
		return r.Quo(r, inv), nil
	}

	x = new(big.Int).Set(x)
	firstAN := big.NewInt(1)
	switch {
	case x.Cmp(x0) >= 0:
		x.Sub(x, x0)
		firstAN = a0
	case x.Cmp(x1) >= 0:
		x.Sub(x, x1)
		firstAN = a1
	}

	x.Mul(x, big.NewInt(100))

	product := new(big.Int).Set(one20)
	for _, t := range expTermsUsedByExp {
		if x.Cmp(t.x) >= 0 {
			x.Sub(x, t.x)
			product.Mul(product, t.a)
			product.Quo(product, one20)
		}
	}

	seriesSum := new(big.Int).Add(one20, x)
	term := new(big.Int).Set(x)
	for i := int64(2); i <= 12; i++ {
		term.Mul(term, x)
		term.Quo(term, one20)
		term.Quo(term, big.NewInt(i))
		seriesSum.Add(seriesSum, term)
	}

	r := product.Mul(product, seriesSum)
	r.Quo(r, one20)
	r.Mul(r, firstAN)
	return r.Quo(r, big.NewInt(100)), nil
}

// Ln computes the natural logarithm of a positive 18 decimal value.
func Ln(a *big.Int) (*big.Int, error) {
	if a.Sign() <= 0 {
		return nil, ErrXOutOfBounds
	}
	if ln36LowerBound.Cmp(a) < 0 && a.Cmp(ln36UpperBound) < 0 {
		return new(big.Int).Quo(ln36(a), one18), nil
	}
	return ln(a), nil
}

func ln(a *big.Int) *big.Int {
	if a.Cmp(one18) < 0 {
		inv := new(big.Int).Mul(one18, one18)
		inv.Quo(inv, a)
		return new(big.Int).Neg(ln(inv))
	}

	a = new(big.Int).Set(a)
	sum := new(big.Int)
	if a.Cmp(new(big.Int).Mul(a0, one18)) >= 0 {
		a.Quo(a, a0)
		sum.Add(sum, x0)
	}
	if a.Cmp(new(big.Int).Mul(a1, one18)) >= 0 {
		a.Quo(a, a1)
		sum.Add(sum, x1)
	}

	hundred := big.NewInt(100)
	sum.Mul(sum, hundred)
	a.Mul(a, hundred)

	for _, t := range expTerms {
		if a.Cmp(t.a) >= 0 {
			a.Mul(a, one20)
			a.Quo(a, t.a)
			sum.Add(sum, t.x)
		}
	}

	num := new(big.Int).Sub(a, one20)
	num.Mul(num, one20)
	z := num.Quo(num, new(big.Int).Add(a, one20))
	zSquared := new(big.Int).Mul(z, z)
	zSquared.Quo(zSquared, one20)

	term := new(big.Int).Set(z)
	seriesSum := new(big.Int).Set(term)
	for _, d := range []int64{3, 5, 7, 9, 11} {
		term.Mul(term, zSquared)
		term.Quo(term, one20)
		seriesSum.Add(seriesSum, new(big.Int).Quo(term, big.NewInt(d)))
	}
	seriesSum.Mul(seriesSum, big.NewInt(2))

	sum.Add(sum, seriesSum)
	return sum.Quo(sum, hundred)
}

// ln36 returns ln(x) with 36 decimals for x close to one.
func ln36(x *big.Int) *big.Int {
	x = new(big.Int).Mul(x, one18)

	num := new(big.Int).Sub(x, one36)
	num.Mul(num, one36)
	z := num.Quo(num, new(big.Int).Add(x, one36))
	zSquared := new(big.Int).Mul(z, z)
	zSquared.Quo(zSquared, one36)

	term := new(big.Int).Set(z)
	seriesSum := new(big.Int).Set(term)
	for _, d := range []int64{3, 5, 7, 9, 11, 13, 15} {
		term.Mul(term, zSquared)
		term.Quo(term, one36)
		seriesSum.Add(seriesSum, new(big.Int).Quo(term, big.NewInt(d)))
	}
	return seriesSum.Mul(seriesSum, big.NewInt(2))
}
