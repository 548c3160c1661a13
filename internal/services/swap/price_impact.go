package swap

import (
	"github.com/hxuan190/balancer-sor/internal/domain"
)

// PriceImpactSeverity buckets the half round-trip loss of a routed swap.
type PriceImpactSeverity string

const (
	SeverityNone     PriceImpactSeverity = "none"
	SeverityLow      PriceImpactSeverity = "low"
	SeverityModerate PriceImpactSeverity = "moderate"
	SeverityHigh     PriceImpactSeverity = "high"
	SeverityExtreme  PriceImpactSeverity = "extreme"
)

// impactBands are upper bounds in bps, exclusive, ascending. Anything past
// the last band is extreme.
var impactBands = []struct {
	below    uint64
	severity PriceImpactSeverity
	warning  string
}{
	{100, SeverityNone, ""},
	{300, SeverityLow, "routed pools move less than 3% against this trade"},
	{500, SeverityModerate, "routed pools move 3-5% against this trade, consider a smaller amount"},
	{1000, SeverityHigh, "this trade takes a large share of the routed pool balances"},
}

const extremeWarning = "this trade drains the routed pools, expect a far worse price than spot"

// SeverityForBps classifies a price impact given in basis points.
func SeverityForBps(bps uint64) PriceImpactSeverity {
	for _, band := range impactBands {
		if bps < band.below {
			return band.severity
		}
	}
	return SeverityExtreme
}

// SeverityOf classifies a fixed point price impact.
func SeverityOf(impact domain.PriceImpactAmount) PriceImpactSeverity {
	return SeverityForBps(impact.Bps())
}

// Warning is the user facing note for the severity, empty below low.
func (s PriceImpactSeverity) Warning() string {
	for _, band := range impactBands {
		if band.severity == s {
			return band.warning
		}
	}
	if s == SeverityExtreme {
		return extremeWarning
	}
	return ""
}
