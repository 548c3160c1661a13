package router_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/fixedpoint"
	"github.com/hxuan190/balancer-sor/internal/pools"
	"github.com/hxuan190/balancer-sor/internal/services/router"
)

func TestNewPathValidation(t *testing.T) {
	ab := newWeighted(t, 1, tokenA, tokenB, 100)
	bc := newWeighted(t, 2, tokenB, tokenC, 100)

	tests := []struct {
		name     string
		tokens   []domain.Token
		poolList []pools.BasePool
		wantErr  bool
	}{
		{"single hop", []domain.Token{tokenA, tokenB}, []pools.BasePool{ab}, false},
		{"two hops", []domain.Token{tokenA, tokenB, tokenC}, []pools.BasePool{ab, bc}, false},
		{"no pools", []domain.Token{tokenA}, nil, true},
		{"too many tokens", []domain.Token{tokenA, tokenB, tokenC}, []pools.BasePool{ab}, true},
		{"too few tokens", []domain.Token{tokenA}, []pools.BasePool{ab}, true},
		{"token not in pool", []domain.Token{tokenA, tokenC}, []pools.BasePool{ab}, true},
		{"hops out of order", []domain.Token{tokenA, tokenB, tokenC}, []pools.BasePool{bc, ab}, true},
		{"nil pool", []domain.Token{tokenA, tokenB}, []pools.BasePool{nil}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := router.NewPath(tt.tokens, tt.poolList)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, sorcommon.ErrInvalidPath)
				assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Len(t, p.Tokens, len(p.Pools)+1)
			assert.GreaterOrEqual(t, len(p.Pools), 1)
		})
	}
}

func TestPathString(t *testing.T) {
	p, err := router.NewPath([]domain.Token{tokenA, tokenB}, []pools.BasePool{newWeighted(t, 1, tokenA, tokenB, 100)})
	require.NoError(t, err)
	assert.Equal(t, "A -[0x0000..0001]-> B", p.String())
}

func TestPathWithAmountGivenIn(t *testing.T) {
	pool := newWeighted(t, 1, tokenA, tokenB, 100)

	pwa, err := router.NewPathWithAmount([]domain.Token{tokenA, tokenB}, []pools.BasePool{pool}, domain.FromRawAmount(tokenA, wad(10)), false)
	require.NoError(t, err)
	assert.Equal(t, domain.GivenIn, pwa.SwapKind)
	assert.Equal(t, wad(10).Dec(), pwa.InputAmount.Amount.Dec())
	assert.Equal(t, "9090909090909090900", pwa.OutputAmount.Amount.Dec())
	assert.True(t, pwa.OutputAmount.Amount.Lt(wad(10)))
	assert.Equal(t, pwa.OutputAmount.Amount.Dec(), pwa.Quote().Amount.Dec())
}

func TestPathWithAmountGivenOutReversesGivenIn(t *testing.T) {
	pool := newWeighted(t, 1, tokenA, tokenB, 100)
	tokens := []domain.Token{tokenA, tokenB}

	forward, err := router.NewPathWithAmount(tokens, []pools.BasePool{pool}, domain.FromRawAmount(tokenA, wad(10)), false)
	require.NoError(t, err)

	reverse, err := router.NewPathWithAmount(tokens, []pools.BasePool{pool}, forward.OutputAmount, false)
	require.NoError(t, err)
	assert.Equal(t, domain.GivenOut, reverse.SwapKind)
	assert.Equal(t, reverse.InputAmount.Amount.Dec(), reverse.Quote().Amount.Dec())

	diff := fixedpoint.AbsDiff(reverse.InputAmount.Amount, wad(10))
	assert.True(t, diff.Cmp(uint256.NewInt(1)) <= 0, "reverse input %s", reverse.InputAmount.Amount.Dec())

	again, err := router.NewPathWithAmount(tokens, []pools.BasePool{pool}, forward.OutputAmount, false)
	require.NoError(t, err)
	assert.Equal(t, reverse.InputAmount.Amount.Dec(), again.InputAmount.Amount.Dec())
}

func TestPathWithAmountIsIdempotentWithoutMutation(t *testing.T) {
	ab := newWeighted(t, 1, tokenA, tokenB, 100)
	bc := newWeighted(t, 2, tokenB, tokenC, 50)
	tokens := []domain.Token{tokenA, tokenB, tokenC}
	poolList := []pools.BasePool{ab, bc}

	for _, amount := range []domain.TokenAmount{
		domain.FromRawAmount(tokenA, wad(5)),
		domain.FromRawAmount(tokenC, wad(5)),
	} {
		first, err := router.NewPathWithAmount(tokens, poolList, amount, false)
		require.NoError(t, err)
		second, err := router.NewPathWithAmount(tokens, poolList, amount, false)
		require.NoError(t, err)

		assert.Equal(t, first.InputAmount.Amount.Dec(), second.InputAmount.Amount.Dec())
		assert.Equal(t, first.OutputAmount.Amount.Dec(), second.OutputAmount.Amount.Dec())
	}
	assert.Equal(t, wad(100).Dec(), ab.Balances()[0].Amount.Dec())
	assert.Equal(t, wad(50).Dec(), bc.Balances()[1].Amount.Dec())
}

func TestPathWithAmountDepletesWithMutation(t *testing.T) {
	pool := newWeighted(t, 1, tokenA, tokenB, 100)
	tokens := []domain.Token{tokenA, tokenB}
	amount := domain.FromRawAmount(tokenA, wad(10))

	first, err := router.NewPathWithAmount(tokens, []pools.BasePool{pool}, amount, true)
	require.NoError(t, err)
	second, err := router.NewPathWithAmount(tokens, []pools.BasePool{pool}, amount, true)
	require.NoError(t, err)

	assert.True(t, second.OutputAmount.Amount.Lt(first.OutputAmount.Amount),
		"second %s first %s", second.OutputAmount.Amount.Dec(), first.OutputAmount.Amount.Dec())
	assert.Equal(t, wad(120).Dec(), pool.Balances()[0].Amount.Dec())

	outPool := newWeighted(t, 2, tokenA, tokenB, 100)
	want := domain.FromRawAmount(tokenB, wad(5))
	firstIn, err := router.NewPathWithAmount(tokens, []pools.BasePool{outPool}, want, true)
	require.NoError(t, err)
	secondIn, err := router.NewPathWithAmount(tokens, []pools.BasePool{outPool}, want, true)
	require.NoError(t, err)
	assert.True(t, secondIn.InputAmount.Amount.Gt(firstIn.InputAmount.Amount))
}

func TestPathWithAmountErrors(t *testing.T) {
	pool := newWeighted(t, 1, tokenA, tokenB, 100)
	tokens := []domain.Token{tokenA, tokenB}

	_, err := router.NewPathWithAmount(tokens, []pools.BasePool{pool}, domain.FromRawAmount(tokenC, wad(1)), false)
	assert.ErrorIs(t, err, sorcommon.ErrInvalidInput)

	_, err = router.NewPathWithAmount(tokens, []pools.BasePool{pool}, domain.FromRawAmount(tokenA, wad(31)), false)
	assert.ErrorIs(t, err, sorcommon.ErrInvalidPath)
	assert.ErrorIs(t, err, sorcommon.ErrLiquidityExceeded)
}
