package domain

import (
	"fmt"
	"strings"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
)

// SwapKind fixes whether the caller specifies the input or the output amount.
// Values match the Vault's SwapKind enum.
type SwapKind uint8

const (
	GivenIn SwapKind = iota
	GivenOut
)

func (k SwapKind) String() string {
	switch k {
	case GivenIn:
		return "GivenIn"
	case GivenOut:
		return "GivenOut"
	default:
		return fmt.Sprintf("SwapKind(%d)", uint8(k))
	}
}

// ParseSwapKind accepts GivenIn/GivenOut and the ExactIn/ExactOut aliases.
func ParseSwapKind(s string) (SwapKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "givenin", "exactin", "0":
		return GivenIn, nil
	case "givenout", "exactout", "1":
		return GivenOut, nil
	}
	return 0, fmt.Errorf("%w: swap kind %q", sorcommon.ErrInvalidInput, s)
}
