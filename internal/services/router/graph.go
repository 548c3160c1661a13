package router

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/metrics"
	"github.com/hxuan190/balancer-sor/internal/pools"
)

// DefaultMaxPathsPerTokenPair limits edges kept per directed token pair.
const DefaultMaxPathsPerTokenPair = 2

// PathGraphEdge is one pool connecting TokenIn to TokenOut.
type PathGraphEdge struct {
	Pool                pools.BasePool
	TokenIn             domain.Token
	TokenOut            domain.Token
	NormalizedLiquidity *uint256.Int
}

type pathGraphNode struct {
	isPhantomBpt bool
}

type edgeMap = map[common.Address]map[common.Address][]PathGraphEdge

// PathGraph is a directed multigraph of tokens with pools as edges. It is
// rebuilt from scratch by every BuildGraph call and is not safe for concurrent
// use.
type PathGraph struct {
	nodes map[common.Address]pathGraphNode
	edges edgeMap
	// neighbors keeps first-insertion order so traversal is deterministic.
	neighbors            map[common.Address][]common.Address
	poolAddresses        map[common.Address]struct{}
	maxPathsPerTokenPair int
}

func NewPathGraph() *PathGraph {
	return &PathGraph{
		nodes:                make(map[common.Address]pathGraphNode),
		edges:                make(edgeMap),
		neighbors:            make(map[common.Address][]common.Address),
		poolAddresses:        make(map[common.Address]struct{}),
		maxPathsPerTokenPair: DefaultMaxPathsPerTokenPair,
	}
}

// BuildGraph replaces the graph with one built from poolList. A non-positive
// maxPathsPerTokenPair takes the default.
func (g *PathGraph) BuildGraph(poolList []pools.BasePool, maxPathsPerTokenPair int) {
	if maxPathsPerTokenPair <= 0 {
		maxPathsPerTokenPair = DefaultMaxPathsPerTokenPair
	}
	g.nodes = make(map[common.Address]pathGraphNode)
	g.edges = make(edgeMap)
	g.neighbors = make(map[common.Address][]common.Address)
	g.poolAddresses = make(map[common.Address]struct{}, len(poolList))
	g.maxPathsPerTokenPair = maxPathsPerTokenPair

	for _, pool := range poolList {
		g.poolAddresses[pool.Address()] = struct{}{}
	}
	g.addAllTokensAsGraphNodes(poolList)
	g.addTokenPairsAsGraphEdges(poolList)

	metrics.GraphBuilds.Inc()
	metrics.GraphEdges.Set(float64(g.EdgeCount()))
}

func (g *PathGraph) addAllTokensAsGraphNodes(poolList []pools.BasePool) {
	for _, pool := range poolList {
		for _, token := range pool.Tokens() {
			address := token.Wrapped()
			if _, ok := g.nodes[address]; ok {
				continue
			}
			_, isPoolToken := g.poolAddresses[address]
			g.nodes[address] = pathGraphNode{isPhantomBpt: isPoolToken}
		}
	}
}

func (g *PathGraph) addTokenPairsAsGraphEdges(poolList []pools.BasePool) {
	for _, pool := range poolList {
		tokens := pool.Tokens()
		for i := 0; i < len(tokens)-1; i++ {
			for j := i + 1; j < len(tokens); j++ {
				g.addEdge(pool, tokens[i], tokens[j])
				g.addEdge(pool, tokens[j], tokens[i])
			}
		}
	}
}

// addEdge inserts the edge keeping the pair list sorted by liquidity,
// descending, and capped unless an endpoint is a phantom BPT.
func (g *PathGraph) addEdge(pool pools.BasePool, tokenIn, tokenOut domain.Token) {
	in, out := tokenIn.Wrapped(), tokenOut.Wrapped()
	if g.edges[in] == nil {
		g.edges[in] = make(map[common.Address][]PathGraphEdge)
	}
	list, seen := g.edges[in][out]
	if !seen {
		g.neighbors[in] = append(g.neighbors[in], out)
	}

	list = append(list, PathGraphEdge{
		Pool:                pool,
		TokenIn:             tokenIn,
		TokenOut:            tokenOut,
		NormalizedLiquidity: pool.GetNormalizedLiquidity(tokenIn, tokenOut),
	})
	sort.SliceStable(list, func(a, b int) bool {
		return list[a].NormalizedLiquidity.Gt(list[b].NormalizedLiquidity)
	})
	if len(list) > g.maxPathsPerTokenPair && !g.nodes[in].isPhantomBpt && !g.nodes[out].isPhantomBpt {
		list = list[:g.maxPathsPerTokenPair]
	}
	g.edges[in][out] = list
}

// IsPhantomBpt reports whether the token is the share token of a pool in the
// graph.
func (g *PathGraph) IsPhantomBpt(address common.Address) bool {
	return g.nodes[address].isPhantomBpt
}

// Edges returns a copy of the ranked edges from tokenIn to tokenOut.
func (g *PathGraph) Edges(tokenIn, tokenOut common.Address) []PathGraphEdge {
	return append([]PathGraphEdge(nil), g.edges[tokenIn][tokenOut]...)
}

func (g *PathGraph) NodeCount() int {
	return len(g.nodes)
}

func (g *PathGraph) EdgeCount() int {
	count := 0
	for _, targets := range g.edges {
		for _, list := range targets {
			count += len(list)
		}
	}
	return count
}
