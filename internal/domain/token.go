package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
)

// Token identifies an ERC20-like asset on a chain. The zero address stands for
// the chain's native asset.
type Token struct {
	ChainID  int64
	Address  common.Address
	Decimals uint8
	Symbol   string
	Name     string
}

func NewToken(chainID int64, address common.Address, decimals uint8, symbol string) Token {
	return Token{
		ChainID:  chainID,
		Address:  address,
		Decimals: decimals,
		Symbol:   symbol,
	}
}

func (t Token) IsNative() bool {
	return t.Address == sorcommon.ZeroAddress
}

// Wrapped returns the address pools hold for this token: the wrapped native
// token for the native asset, the token address otherwise.
func (t Token) Wrapped() common.Address {
	if t.IsNative() {
		if wrapped, ok := sorcommon.WrappedNativeAddresses[t.ChainID]; ok {
			return wrapped
		}
	}
	return t.Address
}

func (t Token) IsSameAddress(address common.Address) bool {
	return t.Address == address
}

// IsUnderlyingEqual reports whether both tokens resolve to the same pool asset.
func (t Token) IsUnderlyingEqual(other Token) bool {
	return t.ChainID == other.ChainID && t.Wrapped() == other.Wrapped()
}

func (t Token) String() string {
	if t.Symbol != "" {
		return fmt.Sprintf("%s(%s)", t.Symbol, t.Address.Hex())
	}
	return t.Address.Hex()
}
