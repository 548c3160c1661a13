package router

import (
	"github.com/holiman/uint256"
)

const (
	GoldenRatio     = 1.6180339887498948482
	GoldenTolerance = 0.001 // 0.1% of the feasible range
	GoldenMaxIter   = 25

	// Fixed-point precision for ratio calculations (1e6 = 6 decimal places)
	ratioPrecision = 1_000_000
)

// goldenSection searches the two-way split between paths i and j. The amount
// routed through i ranges over what both path limits allow.
func (s *splitter) goldenSection(i, j int, amount *uint256.Int) (*allocation, error) {
	lo := new(uint256.Int)
	if amount.Gt(s.limits[j]) {
		lo.Sub(amount, s.limits[j])
	}
	hi := minU256(amount, s.limits[i])
	if lo.Gt(hi) {
		return nil, nil
	}
	span := new(uint256.Int).Sub(hi, lo)

	evalSplit := func(ratio float64) (*allocation, error) {
		amountI := new(uint256.Int).Add(lo, mulRatio(span, ratio))
		amountJ := new(uint256.Int).Sub(amount, amountI)

		quoteI, ok, err := s.evaluate(i, amountI)
		if err != nil || !ok {
			return nil, err
		}
		quoteJ, ok, err := s.evaluate(j, amountJ)
		if err != nil || !ok {
			return nil, err
		}
		amounts := s.zeroAmounts()
		amounts[i], amounts[j] = amountI, amountJ
		return &allocation{amounts: amounts, total: new(uint256.Int).Add(quoteI, quoteJ)}, nil
	}

	a, b := 0.0, 1.0
	c := b - (b-a)/GoldenRatio
	d := a + (b-a)/GoldenRatio

	fc, err := evalSplit(c)
	if err != nil {
		return nil, err
	}
	fd, err := evalSplit(d)
	if err != nil {
		return nil, err
	}
	best := fc
	if s.isBetter(fd, best) {
		best = fd
	}

	for iter := 0; iter < GoldenMaxIter && (b-a) > GoldenTolerance; iter++ {
		if s.isBetter(fc, fd) {
			b = d
			d = c
			fd = fc
			c = b - (b-a)/GoldenRatio
			if fc, err = evalSplit(c); err != nil {
				return nil, err
			}
			if s.isBetter(fc, best) {
				best = fc
			}
		} else {
			a = c
			c = d
			fc = fd
			d = a + (b-a)/GoldenRatio
			if fd, err = evalSplit(d); err != nil {
				return nil, err
			}
			if s.isBetter(fd, best) {
				best = fd
			}
		}
	}
	return best, nil
}

// mulRatio multiplies amount by a ratio in [0, 1] using integer math.
func mulRatio(amount *uint256.Int, ratio float64) *uint256.Int {
	if ratio <= 0 {
		return new(uint256.Int)
	}
	if ratio >= 1 {
		return new(uint256.Int).Set(amount)
	}
	ratioFixed := uint256.NewInt(uint64(ratio * ratioPrecision))
	result, overflow := new(uint256.Int).MulDivOverflow(amount, ratioFixed, uint256.NewInt(ratioPrecision))
	if overflow {
		return new(uint256.Int).Set(amount)
	}
	return result
}

func minU256(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int).Set(b)
}
