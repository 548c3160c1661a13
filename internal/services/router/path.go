package router

import (
	"fmt"
	"strings"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/pools"
)

// Path is an ordered chain of pools; Pools[i] trades Tokens[i] for Tokens[i+1].
type Path struct {
	Tokens []domain.Token
	Pools  []pools.BasePool
}

func NewPath(tokens []domain.Token, poolList []pools.BasePool) (*Path, error) {
	if err := validatePath(tokens, poolList); err != nil {
		return nil, err
	}
	return &Path{
		Tokens: append([]domain.Token(nil), tokens...),
		Pools:  append([]pools.BasePool(nil), poolList...),
	}, nil
}

func validatePath(tokens []domain.Token, poolList []pools.BasePool) error {
	if len(poolList) == 0 {
		return fmt.Errorf("%w: %w: path needs at least one pool", sorcommon.ErrInvalidInput, sorcommon.ErrInvalidPath)
	}
	if len(tokens) != len(poolList)+1 {
		return fmt.Errorf("%w: %w: %d tokens for %d pools", sorcommon.ErrInvalidInput, sorcommon.ErrInvalidPath, len(tokens), len(poolList))
	}
	for i, pool := range poolList {
		if pool == nil {
			return fmt.Errorf("%w: %w: pool %d is nil", sorcommon.ErrInvalidInput, sorcommon.ErrInvalidPath, i)
		}
		if !poolHasToken(pool, tokens[i]) || !poolHasToken(pool, tokens[i+1]) {
			return fmt.Errorf("%w: %w: pool %s does not trade %s -> %s", sorcommon.ErrInvalidInput, sorcommon.ErrInvalidPath, pool.ID().Hex(), tokens[i], tokens[i+1])
		}
	}
	return nil
}

func poolHasToken(pool pools.BasePool, token domain.Token) bool {
	for _, t := range pool.Tokens() {
		if t.IsUnderlyingEqual(token) {
			return true
		}
	}
	return false
}

func (p *Path) TokenIn() domain.Token  { return p.Tokens[0] }
func (p *Path) TokenOut() domain.Token { return p.Tokens[len(p.Tokens)-1] }

// String renders the hop chain, e.g. "A -[0x01..]-> B".
func (p *Path) String() string {
	var b strings.Builder
	b.WriteString(tokenLabel(p.Tokens[0]))
	for i, pool := range p.Pools {
		fmt.Fprintf(&b, " -[%s]-> %s", shortHex(pool.ID().Hex()), tokenLabel(p.Tokens[i+1]))
	}
	return b.String()
}

func tokenLabel(t domain.Token) string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return shortHex(t.Address.Hex())
}

func shortHex(h string) string {
	if len(h) <= 10 {
		return h
	}
	return h[:6] + ".." + h[len(h)-4:]
}
