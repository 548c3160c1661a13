package router_test

import (
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/metrics"
	"github.com/hxuan190/balancer-sor/internal/pools"
	"github.com/hxuan190/balancer-sor/internal/services/router"
)

// boostedScenario returns a linear A/waA/bb-a-A pool, a bb-a-A/B pool and a
// deep A-C-D-B chain.
func boostedScenario(t *testing.T) []pools.BasePool {
	t.Helper()
	linear, bpt := newLinearA(t, 10)
	return []pools.BasePool{
		linear,
		newWeighted(t, 11, bpt, tokenB, 100),
		newWeighted(t, 1, tokenA, tokenC, 1_000_000),
		newWeighted(t, 2, tokenC, tokenD, 1_000_000),
		newWeighted(t, 3, tokenD, tokenB, 1_000_000),
	}
}

func TestGetCandidatePathsPrefersBoostedPath(t *testing.T) {
	poolList := boostedScenario(t)

	paths := router.NewRouter().GetCandidatePaths(tokenA, tokenB, poolList, router.GraphTraversalConfig{})
	require.Len(t, paths, 1)
	assert.Equal(t, []common.Hash{poolID(10), poolID(11)}, poolIDs(paths[0].Pools))
	assert.True(t, paths[0].TokenIn().IsUnderlyingEqual(tokenA))
	assert.True(t, paths[0].TokenOut().IsUnderlyingEqual(tokenB))
}

func TestGetCandidatePathsNonBoostedDepth(t *testing.T) {
	poolList := boostedScenario(t)

	paths := router.NewRouter().GetCandidatePaths(tokenA, tokenB, poolList, router.GraphTraversalConfig{
		MaxNonBoostedPathDepth: 4,
	})
	require.Len(t, paths, 2)

	var lengths []int
	for _, p := range paths {
		lengths = append(lengths, len(p.Pools))
	}
	assert.ElementsMatch(t, []int{2, 3}, lengths)
}

func TestGetCandidatePathsHaveNoDuplicatePools(t *testing.T) {
	poolList := append(boostedScenario(t),
		newWeighted(t, 4, tokenA, tokenB, 50),
		newWeighted(t, 5, tokenA, tokenB, 70),
		newWeighted(t, 6, tokenA, tokenD, 80),
		newWeighted(t, 7, tokenC, tokenB, 90),
	)

	paths := router.NewRouter().GetCandidatePaths(tokenA, tokenB, poolList, router.GraphTraversalConfig{
		MaxNonBoostedPathDepth: 4,
		ApproxPathsToReturn:    10,
	})
	require.NotEmpty(t, paths)

	used := make(map[common.Hash]bool)
	for _, p := range paths {
		seen := make(map[common.Hash]bool)
		for _, pool := range p.Pools {
			assert.False(t, seen[pool.ID()], "pool %s repeated in %s", pool.ID().Hex(), p)
			seen[pool.ID()] = true
			assert.False(t, used[pool.ID()], "pool %s shared across paths", pool.ID().Hex())
		}
		for id := range seen {
			used[id] = true
		}
	}
}

func TestGetCandidatePathsApproxCountIsLoose(t *testing.T) {
	poolList := []pools.BasePool{
		newWeighted(t, 1, tokenA, tokenB, 200),
		newWeighted(t, 2, tokenA, tokenC, 100),
		newWeighted(t, 3, tokenC, tokenB, 100),
		newWeighted(t, 4, tokenA, tokenB, 100),
	}
	r := router.NewRouter()

	// The whole first pass completes before the threshold is checked.
	paths := r.GetCandidatePaths(tokenA, tokenB, poolList, router.GraphTraversalConfig{ApproxPathsToReturn: 1})
	require.Len(t, paths, 2)
	assert.Equal(t, poolID(1), paths[0].Pools[0].ID())

	paths = r.GetCandidatePaths(tokenA, tokenB, poolList, router.GraphTraversalConfig{ApproxPathsToReturn: 5})
	require.Len(t, paths, 3)
	assert.Equal(t, poolID(1), paths[0].Pools[0].ID())
}

func TestGetCandidatePathsAllowList(t *testing.T) {
	poolList := []pools.BasePool{
		newWeighted(t, 1, tokenA, tokenB, 200),
		newWeighted(t, 2, tokenA, tokenC, 100),
		newWeighted(t, 3, tokenC, tokenB, 100),
		newWeighted(t, 4, tokenA, tokenB, 100),
	}

	paths := router.NewRouter().GetCandidatePaths(tokenA, tokenB, poolList, router.GraphTraversalConfig{
		PoolIDsToInclude: []common.Hash{poolID(4)},
	})
	require.Len(t, paths, 1)
	assert.Equal(t, []common.Hash{poolID(4)}, poolIDs(paths[0].Pools))
}

func TestGetCandidatePathsUnknownTokens(t *testing.T) {
	poolList := []pools.BasePool{newWeighted(t, 1, tokenA, tokenB, 100)}
	r := router.NewRouter()

	assert.Empty(t, r.GetCandidatePaths(tokenA, tokenC, poolList, router.GraphTraversalConfig{}))
	assert.Empty(t, r.GetCandidatePaths(tokenA, tokenA, poolList, router.GraphTraversalConfig{}))
}

func TestGetCandidatePathsMaxDepth(t *testing.T) {
	poolList := []pools.BasePool{
		newWeighted(t, 1, tokenA, tokenC, 100),
		newWeighted(t, 2, tokenC, tokenB, 100),
	}
	paths := router.NewRouter().GetCandidatePaths(tokenA, tokenB, poolList, router.GraphTraversalConfig{MaxDepth: 2})
	assert.Empty(t, paths)
}

// unpricedPool cannot price GivenOut swaps, so limits through it fail.
type unpricedPool struct {
	*pools.WeightedPool
}

func (p unpricedPool) SwapGivenOut(tokenIn, tokenOut domain.Token, amountOut domain.TokenAmount, mutateBalances bool) (domain.TokenAmount, error) {
	return domain.TokenAmount{}, fmt.Errorf("%w: stable token balance", sorcommon.ErrNotConverged)
}

func (p unpricedPool) Clone() pools.BasePool {
	return unpricedPool{p.WeightedPool.Clone().(*pools.WeightedPool)}
}

func TestGetCandidatePathsExcludesUnpricedPath(t *testing.T) {
	direct := newWeighted(t, 1, tokenA, tokenC, 100)
	unpriced := unpricedPool{newWeighted(t, 2, tokenA, tokenB, 100)}
	shallow := newWeighted(t, 3, tokenB, tokenC, 10)

	before := testutil.ToFloat64(metrics.ExcludedPaths)
	paths := router.NewRouter().GetCandidatePaths(tokenA, tokenC, []pools.BasePool{direct, unpriced, shallow}, router.GraphTraversalConfig{})

	require.Len(t, paths, 1)
	assert.Equal(t, []common.Hash{poolID(1)}, poolIDs(paths[0].Pools))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ExcludedPaths))
}
