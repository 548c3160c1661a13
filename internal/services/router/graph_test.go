package router_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/pools"
	"github.com/hxuan190/balancer-sor/internal/services/router"
)

func TestBuildGraphCapsEdgesByLiquidity(t *testing.T) {
	poolList := []pools.BasePool{
		newWeighted(t, 1, tokenA, tokenB, 100),
		newWeighted(t, 2, tokenA, tokenB, 300),
		newWeighted(t, 3, tokenA, tokenB, 200),
	}

	g := router.NewPathGraph()
	g.BuildGraph(poolList, 2)

	for _, pair := range [][2]domain.Token{{tokenA, tokenB}, {tokenB, tokenA}} {
		edges := g.Edges(pair[0].Wrapped(), pair[1].Wrapped())
		require.Len(t, edges, 2, "%s -> %s", pair[0], pair[1])
		assert.Equal(t, poolID(2), edges[0].Pool.ID())
		assert.Equal(t, poolID(3), edges[1].Pool.ID())
		assert.True(t, edges[0].NormalizedLiquidity.Gt(edges[1].NormalizedLiquidity))
	}
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 4, g.EdgeCount())
}

func TestBuildGraphKeepsAllPhantomBptEdges(t *testing.T) {
	linear, bpt := newLinearA(t, 10)
	poolList := []pools.BasePool{
		linear,
		newWeighted(t, 1, bpt, tokenB, 100),
		newWeighted(t, 2, bpt, tokenB, 300),
		newWeighted(t, 3, bpt, tokenB, 200),
	}

	g := router.NewPathGraph()
	g.BuildGraph(poolList, 2)

	assert.Len(t, g.Edges(bpt.Wrapped(), tokenB.Wrapped()), 3)
	assert.Len(t, g.Edges(tokenB.Wrapped(), bpt.Wrapped()), 3)
	assert.Len(t, g.Edges(tokenA.Wrapped(), bpt.Wrapped()), 1)

	edges := g.Edges(bpt.Wrapped(), tokenB.Wrapped())
	for i := 1; i < len(edges); i++ {
		assert.False(t, edges[i].NormalizedLiquidity.Gt(edges[i-1].NormalizedLiquidity))
	}
}

func TestIsPhantomBpt(t *testing.T) {
	linear, bpt := newLinearA(t, 10)
	weighted := newWeighted(t, 1, bpt, tokenB, 100)

	g := router.NewPathGraph()
	g.BuildGraph([]pools.BasePool{linear, weighted}, 2)

	assert.True(t, g.IsPhantomBpt(bpt.Wrapped()))
	assert.False(t, g.IsPhantomBpt(tokenA.Wrapped()))
	assert.False(t, g.IsPhantomBpt(tokenW.Wrapped()))
	assert.False(t, g.IsPhantomBpt(tokenB.Wrapped()))
	// The weighted pool's own address never appears as a token.
	assert.False(t, g.IsPhantomBpt(weighted.Address()))

	// Without the linear pool in the set its share token is an ordinary token.
	g.BuildGraph([]pools.BasePool{weighted}, 2)
	assert.False(t, g.IsPhantomBpt(bpt.Wrapped()))
}

func TestBuildGraphRebuildIsIdempotent(t *testing.T) {
	linear, bpt := newLinearA(t, 10)
	poolList := []pools.BasePool{
		linear,
		newWeighted(t, 1, bpt, tokenB, 100),
		newWeighted(t, 2, tokenA, tokenC, 100),
		newWeighted(t, 3, tokenC, tokenB, 100),
		newWeighted(t, 4, tokenA, tokenB, 100),
	}

	g := router.NewPathGraph()
	g.BuildGraph(poolList, 2)
	nodes, edges := g.NodeCount(), g.EdgeCount()

	g.BuildGraph(poolList, 2)
	assert.Equal(t, nodes, g.NodeCount())
	assert.Equal(t, edges, g.EdgeCount())

	g.BuildGraph(poolList[3:], 2)
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 4, g.EdgeCount())
}
