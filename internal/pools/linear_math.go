package pools

import (
	"github.com/holiman/uint256"

	"github.com/hxuan190/balancer-sor/internal/fixedpoint"
)

// linearParams are the fee and main token targets, all 18 decimals.
type linearParams struct {
	fee         *uint256.Int
	lowerTarget *uint256.Int
	upperTarget *uint256.Int
}

// toNominal charges the fee on the part of a main balance outside the targets.
func toNominal(real *uint256.Int, p linearParams) (*uint256.Int, error) {
	switch {
	case real.Lt(p.lowerTarget):
		fees, err := fixedpoint.MulDownFixed(new(uint256.Int).Sub(p.lowerTarget, real), p.fee)
		if err != nil {
			return nil, err
		}
		return fixedpoint.Sub(real, fees)
	case !real.Gt(p.upperTarget):
		return new(uint256.Int).Set(real), nil
	default:
		fees, err := fixedpoint.MulDownFixed(new(uint256.Int).Sub(real, p.upperTarget), p.fee)
		if err != nil {
			return nil, err
		}
		return fixedpoint.Sub(real, fees)
	}
}

// fromNominal inverts toNominal.
func fromNominal(nominal *uint256.Int, p linearParams) (*uint256.Int, error) {
	switch {
	case nominal.Lt(p.lowerTarget):
		lowerFee, err := fixedpoint.MulDownFixed(p.fee, p.lowerTarget)
		if err != nil {
			return nil, err
		}
		num, err := fixedpoint.Add(nominal, lowerFee)
		if err != nil {
			return nil, err
		}
		den, err := fixedpoint.Add(fixedpoint.One, p.fee)
		if err != nil {
			return nil, err
		}
		return fixedpoint.DivDownFixed(num, den)
	case !nominal.Gt(p.upperTarget):
		return new(uint256.Int).Set(nominal), nil
	default:
		upperFee, err := fixedpoint.MulDownFixed(p.fee, p.upperTarget)
		if err != nil {
			return nil, err
		}
		num, err := fixedpoint.Sub(nominal, upperFee)
		if err != nil {
			return nil, err
		}
		den, err := fixedpoint.Sub(fixedpoint.One, p.fee)
		if err != nil {
			return nil, err
		}
		return fixedpoint.DivDownFixed(num, den)
	}
}

// nominalDelta returns toNominal(after) - toNominal(before).
func nominalDelta(before, after *uint256.Int, p linearParams) (*uint256.Int, error) {
	nBefore, err := toNominal(before, p)
	if err != nil {
		return nil, err
	}
	nAfter, err := toNominal(after, p)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Sub(nAfter, nBefore)
}

// invariantOf is nominal main plus wrapped, the value each BPT is backed by.
func invariantOf(mainBalance, wrappedBalance *uint256.Int, p linearParams) (*uint256.Int, error) {
	nominalMain, err := toNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Add(nominalMain, wrappedBalance)
}

func calcBptOutPerMainIn(mainIn, mainBalance, wrappedBalance, bptSupply *uint256.Int, p linearParams) (*uint256.Int, error) {
	if bptSupply.IsZero() {
		return toNominal(mainIn, p)
	}
	after, err := fixedpoint.Add(mainBalance, mainIn)
	if err != nil {
		return nil, err
	}
	deltaNominalMain, err := nominalDelta(mainBalance, after, p)
	if err != nil {
		return nil, err
	}
	invariant, err := invariantOf(mainBalance, wrappedBalance, p)
	if err != nil {
		return nil, err
	}
	num, err := fixedpoint.Mul(bptSupply, deltaNominalMain)
	if err != nil {
		return nil, err
	}
	return fixedpoint.DivDown(num, invariant)
}

func calcBptInPerMainOut(mainOut, mainBalance, wrappedBalance, bptSupply *uint256.Int, p linearParams) (*uint256.Int, error) {
	after, err := fixedpoint.Sub(mainBalance, mainOut)
	if err != nil {
		return nil, err
	}
	deltaNominalMain, err := nominalDelta(after, mainBalance, p)
	if err != nil {
		return nil, err
	}
	invariant, err := invariantOf(mainBalance, wrappedBalance, p)
	if err != nil {
		return nil, err
	}
	num, err := fixedpoint.Mul(bptSupply, deltaNominalMain)
	if err != nil {
		return nil, err
	}
	return fixedpoint.DivUp(num, invariant)
}

func calcWrappedOutPerMainIn(mainIn, mainBalance *uint256.Int, p linearParams) (*uint256.Int, error) {
	after, err := fixedpoint.Add(mainBalance, mainIn)
	if err != nil {
		return nil, err
	}
	return nominalDelta(mainBalance, after, p)
}

func calcWrappedInPerMainOut(mainOut, mainBalance *uint256.Int, p linearParams) (*uint256.Int, error) {
	after, err := fixedpoint.Sub(mainBalance, mainOut)
	if err != nil {
		return nil, err
	}
	return nominalDelta(after, mainBalance, p)
}

func calcMainInPerBptOut(bptOut, mainBalance, wrappedBalance, bptSupply *uint256.Int, p linearParams) (*uint256.Int, error) {
	if bptSupply.IsZero() {
		return fromNominal(bptOut, p)
	}
	invariant, err := invariantOf(mainBalance, wrappedBalance, p)
	if err != nil {
		return nil, err
	}
	deltaNominalMain, err := mulDivUp(invariant, bptOut, bptSupply)
	if err != nil {
		return nil, err
	}
	return mainFromNominalDelta(mainBalance, deltaNominalMain, true, p)
}

func calcMainOutPerBptIn(bptIn, mainBalance, wrappedBalance, bptSupply *uint256.Int, p linearParams) (*uint256.Int, error) {
	invariant, err := invariantOf(mainBalance, wrappedBalance, p)
	if err != nil {
		return nil, err
	}
	num, err := fixedpoint.Mul(invariant, bptIn)
	if err != nil {
		return nil, err
	}
	deltaNominalMain, err := fixedpoint.DivDown(num, bptSupply)
	if err != nil {
		return nil, err
	}
	return mainFromNominalDelta(mainBalance, deltaNominalMain, false, p)
}

// mainFromNominalDelta converts a nominal change of the main balance back into
// a real amount, adding the delta when increase is set and removing it
// otherwise.
func mainFromNominalDelta(mainBalance, deltaNominal *uint256.Int, increase bool, p linearParams) (*uint256.Int, error) {
	nominalBefore, err := toNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	var nominalAfter *uint256.Int
	if increase {
		nominalAfter, err = fixedpoint.Add(nominalBefore, deltaNominal)
	} else {
		nominalAfter, err = fixedpoint.Sub(nominalBefore, deltaNominal)
	}
	if err != nil {
		return nil, err
	}
	after, err := fromNominal(nominalAfter, p)
	if err != nil {
		return nil, err
	}
	if increase {
		return fixedpoint.Sub(after, mainBalance)
	}
	return fixedpoint.Sub(mainBalance, after)
}

func calcMainOutPerWrappedIn(wrappedIn, mainBalance *uint256.Int, p linearParams) (*uint256.Int, error) {
	return mainFromNominalDelta(mainBalance, wrappedIn, false, p)
}

func calcMainInPerWrappedOut(wrappedOut, mainBalance *uint256.Int, p linearParams) (*uint256.Int, error) {
	return mainFromNominalDelta(mainBalance, wrappedOut, true, p)
}

func calcBptOutPerWrappedIn(wrappedIn, mainBalance, wrappedBalance, bptSupply *uint256.Int, p linearParams) (*uint256.Int, error) {
	if bptSupply.IsZero() {
		return new(uint256.Int).Set(wrappedIn), nil
	}
	invariant, err := invariantOf(mainBalance, wrappedBalance, p)
	if err != nil {
		return nil, err
	}
	num, err := fixedpoint.Mul(wrappedIn, bptSupply)
	if err != nil {
		return nil, err
	}
	return fixedpoint.DivDown(num, invariant)
}

func calcBptInPerWrappedOut(wrappedOut, mainBalance, wrappedBalance, bptSupply *uint256.Int, p linearParams) (*uint256.Int, error) {
	invariant, err := invariantOf(mainBalance, wrappedBalance, p)
	if err != nil {
		return nil, err
	}
	return mulDivUp(wrappedOut, bptSupply, invariant)
}

func calcWrappedInPerBptOut(bptOut, mainBalance, wrappedBalance, bptSupply *uint256.Int, p linearParams) (*uint256.Int, error) {
	if bptSupply.IsZero() {
		return new(uint256.Int).Set(bptOut), nil
	}
	invariant, err := invariantOf(mainBalance, wrappedBalance, p)
	if err != nil {
		return nil, err
	}
	return mulDivUp(invariant, bptOut, bptSupply)
}

func calcWrappedOutPerBptIn(bptIn, mainBalance, wrappedBalance, bptSupply *uint256.Int, p linearParams) (*uint256.Int, error) {
	invariant, err := invariantOf(mainBalance, wrappedBalance, p)
	if err != nil {
		return nil, err
	}
	num, err := fixedpoint.Mul(invariant, bptIn)
	if err != nil {
		return nil, err
	}
	return fixedpoint.DivDown(num, bptSupply)
}

func mulDivUp(a, b, c *uint256.Int) (*uint256.Int, error) {
	num, err := fixedpoint.Mul(a, b)
	if err != nil {
		return nil, err
	}
	return fixedpoint.DivUp(num, c)
}
