package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
)

// PoolType is the closed set of pool variants the router knows about.
type PoolType uint8

const (
	PoolTypeUnknown PoolType = iota
	PoolTypeWeighted
	PoolTypeStable
	PoolTypeComposableStable
	PoolTypeMetaStable
	PoolTypeLinear
	PoolTypeAaveLinear
	PoolTypeERC4626Linear
	PoolTypeGyro2
	PoolTypeGyro3
	PoolTypeGyroE
	PoolTypeFx
)

var poolTypeNames = map[PoolType]string{
	PoolTypeWeighted:         "Weighted",
	PoolTypeStable:           "Stable",
	PoolTypeComposableStable: "ComposableStable",
	PoolTypeMetaStable:       "MetaStable",
	PoolTypeLinear:           "Linear",
	PoolTypeAaveLinear:       "AaveLinear",
	PoolTypeERC4626Linear:    "ERC4626Linear",
	PoolTypeGyro2:            "Gyro2",
	PoolTypeGyro3:            "Gyro3",
	PoolTypeGyroE:            "GyroE",
	PoolTypeFx:               "FX",
}

func (p PoolType) String() string {
	if name, ok := poolTypeNames[p]; ok {
		return name
	}
	return "Unknown"
}

func (p PoolType) IsLinear() bool {
	return p == PoolTypeLinear || p == PoolTypeAaveLinear || p == PoolTypeERC4626Linear
}

// ParsePoolType maps a subgraph pool type tag onto the enum. Legacy weighted
// variants collapse onto Weighted.
func ParsePoolType(tag string) (PoolType, error) {
	switch strings.ToLower(tag) {
	case "weighted", "investment", "liquiditybootstrapping", "managed":
		return PoolTypeWeighted, nil
	}
	for pt, name := range poolTypeNames {
		if strings.EqualFold(name, tag) {
			return pt, nil
		}
	}
	return PoolTypeUnknown, fmt.Errorf("%w: %q", sorcommon.ErrUnsupportedPoolType, tag)
}

// RawPool is the provider record a pool is parsed from. Balances, weights,
// rates, fees and targets are human decimal strings as served by the subgraph.
type RawPool struct {
	ID              common.Hash      `json:"id"`
	Address         common.Address   `json:"address"`
	PoolType        string           `json:"poolType"`
	PoolTypeVersion int              `json:"poolTypeVersion,omitempty"`
	Tokens          []RawPoolToken   `json:"tokens"`
	TokensList      []common.Address `json:"tokensList,omitempty"`
	TotalShares     string           `json:"totalShares"`
	SwapFee         string           `json:"swapFee"`
	SwapEnabled     bool             `json:"swapEnabled"`
	Amp             string           `json:"amp,omitempty"`
	MainIndex       int              `json:"mainIndex,omitempty"`
	WrappedIndex    int              `json:"wrappedIndex,omitempty"`
	LowerTarget     string           `json:"lowerTarget,omitempty"`
	UpperTarget     string           `json:"upperTarget,omitempty"`
	Liquidity       string           `json:"totalLiquidity,omitempty"`
}

type RawPoolToken struct {
	Address   common.Address `json:"address"`
	Index     int            `json:"index"`
	Symbol    string         `json:"symbol,omitempty"`
	Name      string         `json:"name,omitempty"`
	Decimals  uint8          `json:"decimals"`
	Balance   string         `json:"balance"`
	Weight    string         `json:"weight,omitempty"`
	PriceRate string         `json:"priceRate,omitempty"`
}

// Clone deep copies the record so enrichment never aliases provider data.
func (p RawPool) Clone() RawPool {
	out := p
	out.Tokens = append([]RawPoolToken(nil), p.Tokens...)
	out.TokensList = append([]common.Address(nil), p.TokensList...)
	return out
}
