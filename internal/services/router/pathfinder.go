package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/metrics"
	"github.com/hxuan190/balancer-sor/internal/pools"
)

// Traversal defaults. Depths count tokens, not hops.
const (
	DefaultMaxDepth                            = 6
	DefaultMaxNonBoostedPathDepth              = 3
	DefaultMaxNonBoostedHopTokensInBoostedPath = 2
	DefaultApproxPathsToReturn                 = 5
)

// GraphTraversalConfig bounds candidate path search. Zero values take the
// defaults.
type GraphTraversalConfig struct {
	MaxPathsPerTokenPair                int
	MaxDepth                            int
	MaxNonBoostedPathDepth              int
	MaxNonBoostedHopTokensInBoostedPath int
	ApproxPathsToReturn                 int
	// PoolIDsToInclude restricts paths to these pools when non-empty.
	PoolIDsToInclude []common.Hash
}

func (c GraphTraversalConfig) withDefaults() GraphTraversalConfig {
	if c.MaxPathsPerTokenPair <= 0 {
		c.MaxPathsPerTokenPair = DefaultMaxPathsPerTokenPair
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.MaxNonBoostedPathDepth <= 0 {
		c.MaxNonBoostedPathDepth = DefaultMaxNonBoostedPathDepth
	}
	if c.MaxNonBoostedHopTokensInBoostedPath <= 0 {
		c.MaxNonBoostedHopTokensInBoostedPath = DefaultMaxNonBoostedHopTokensInBoostedPath
	}
	if c.ApproxPathsToReturn <= 0 {
		c.ApproxPathsToReturn = DefaultApproxPathsToReturn
	}
	return c
}

// GetCandidatePaths returns pool-disjoint paths from tokenIn to tokenOut,
// most executable first.
func (g *PathGraph) GetCandidatePaths(tokenIn, tokenOut domain.Token, cfg GraphTraversalConfig) []*Path {
	cfg = cfg.withDefaults()
	tokenPaths := g.findTokenPaths(tokenIn.Wrapped(), tokenOut.Wrapped(), cfg)
	if len(tokenPaths) == 0 {
		metrics.CandidatePaths.Observe(0)
		return nil
	}

	var include map[common.Hash]struct{}
	if len(cfg.PoolIDsToInclude) > 0 {
		include = make(map[common.Hash]struct{}, len(cfg.PoolIDsToInclude))
		for _, id := range cfg.PoolIDsToInclude {
			include[id] = struct{}{}
		}
	}

	var candidates [][]PathGraphEdge
	selected := make(map[string]struct{})
	for idx := 0; idx < g.maxPathsPerTokenPair; idx++ {
		for _, tokenPath := range tokenPaths {
			edges := g.expandTokenPath(tokenPath, idx)
			if g.isValidPath(edges, selected, include) {
				candidates = append(candidates, edges)
			}
		}
		// Checked per pass, so the result may overshoot.
		if len(candidates) >= cfg.ApproxPathsToReturn {
			break
		}
	}

	paths := g.toPaths(g.sortAndFilterPaths(candidates), tokenIn, tokenOut)
	metrics.CandidatePaths.Observe(float64(len(paths)))
	return paths
}

type dfsFrame struct {
	tokens []common.Address
	next   int
}

// findTokenPaths enumerates loop-free token sequences from tokenIn to tokenOut
// with an explicit stack, visiting neighbours in insertion order. Results are
// sorted by length, shortest first.
func (g *PathGraph) findTokenPaths(tokenIn, tokenOut common.Address, cfg GraphTraversalConfig) [][]common.Address {
	if tokenIn == tokenOut {
		return nil
	}
	if _, ok := g.nodes[tokenIn]; !ok {
		return nil
	}
	if _, ok := g.nodes[tokenOut]; !ok {
		return nil
	}

	var found [][]common.Address
	stack := []dfsFrame{{tokens: []common.Address{tokenIn}}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		current := top.tokens[len(top.tokens)-1]
		neighbors := g.neighbors[current]
		if top.next >= len(neighbors) {
			stack = stack[:len(stack)-1]
			continue
		}
		next := neighbors[top.next]
		top.next++
		if containsAddress(top.tokens, next) {
			continue
		}

		candidate := make([]common.Address, len(top.tokens)+1)
		copy(candidate, top.tokens)
		candidate[len(top.tokens)] = next

		complete := next == tokenOut
		if !g.isValidTokenPath(candidate, complete, cfg) {
			continue
		}
		if complete {
			found = append(found, candidate)
			continue
		}
		stack = append(stack, dfsFrame{tokens: candidate})
	}

	sort.SliceStable(found, func(i, j int) bool { return len(found[i]) < len(found[j]) })
	return found
}

// isValidTokenPath applies the depth rules to a partial or complete token
// path. Hop tokens are the interior tokens.
func (g *PathGraph) isValidTokenPath(tokenPath []common.Address, complete bool, cfg GraphTraversalConfig) bool {
	if len(tokenPath) > cfg.MaxDepth {
		return false
	}

	boosted := false
	for _, address := range tokenPath {
		if g.nodes[address].isPhantomBpt {
			boosted = true
			break
		}
	}
	standardHopTokens := 0
	for _, address := range tokenPath[1 : len(tokenPath)-1] {
		if !g.nodes[address].isPhantomBpt {
			standardHopTokens++
		}
	}

	if boosted && standardHopTokens > cfg.MaxNonBoostedHopTokensInBoostedPath {
		return false
	}
	if len(tokenPath) > cfg.MaxNonBoostedPathDepth && standardHopTokens > cfg.MaxNonBoostedHopTokensInBoostedPath {
		return false
	}
	if complete && !boosted && len(tokenPath) > cfg.MaxNonBoostedPathDepth {
		return false
	}
	return true
}

// expandTokenPath picks the idx-th ranked edge for every hop, falling back to
// the best edge when a pair has fewer.
func (g *PathGraph) expandTokenPath(tokenPath []common.Address, idx int) []PathGraphEdge {
	edges := make([]PathGraphEdge, len(tokenPath)-1)
	for i := 0; i < len(tokenPath)-1; i++ {
		ranked := g.edges[tokenPath[i]][tokenPath[i+1]]
		if idx < len(ranked) {
			edges[i] = ranked[idx]
		} else {
			edges[i] = ranked[0]
		}
	}
	return edges
}

// isValidPath rejects repeated pools, pools outside include and paths already
// selected. Accepted paths are recorded in selected.
func (g *PathGraph) isValidPath(edges []PathGraphEdge, selected map[string]struct{}, include map[common.Hash]struct{}) bool {
	poolIDs := make(map[common.Hash]struct{}, len(edges))
	parts := make([]string, len(edges))
	for i, edge := range edges {
		id := edge.Pool.ID()
		if _, dup := poolIDs[id]; dup {
			return false
		}
		if include != nil {
			if _, ok := include[id]; !ok {
				return false
			}
		}
		poolIDs[id] = struct{}{}
		parts[i] = fmt.Sprintf("%s-%s-%s", id.Hex(), edge.TokenIn.Wrapped().Hex(), edge.TokenOut.Wrapped().Hex())
	}

	key := strings.Join(parts, "_")
	if _, dup := selected[key]; dup {
		return false
	}
	selected[key] = struct{}{}
	return true
}

type rankedPath struct {
	edges []PathGraphEdge
	limit *uint256.Int
}

// sortAndFilterPaths ranks paths by GivenIn limit and keeps each only when
// none of its pools appear in a better ranked path.
func (g *PathGraph) sortAndFilterPaths(candidates [][]PathGraphEdge) [][]PathGraphEdge {
	ranked := make([]rankedPath, 0, len(candidates))
	for _, edges := range candidates {
		tokens, poolList := edgesToHops(edges)
		limit, err := limitAmountSwap(tokens, poolList, domain.GivenIn)
		if err != nil {
			metrics.ExcludedPaths.Inc()
			log.Warn().Err(err).Str("path", describeEdges(edges)).Msg("excluding path, limit computation failed")
			continue
		}
		ranked = append(ranked, rankedPath{edges: edges, limit: limit})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].limit.Gt(ranked[j].limit) })

	used := make(map[common.Hash]struct{})
	out := make([][]PathGraphEdge, 0, len(ranked))
	for _, r := range ranked {
		overlaps := false
		for _, edge := range r.edges {
			if _, ok := used[edge.Pool.ID()]; ok {
				overlaps = true
				break
			}
		}
		if overlaps {
			log.Debug().Str("path", describeEdges(r.edges)).Msg("dropping path sharing a pool with a better path")
			continue
		}
		for _, edge := range r.edges {
			used[edge.Pool.ID()] = struct{}{}
		}
		out = append(out, r.edges)
	}
	return out
}

// toPaths converts edge chains into Paths carrying the caller's boundary
// tokens, which may be the native asset.
func (g *PathGraph) toPaths(candidates [][]PathGraphEdge, tokenIn, tokenOut domain.Token) []*Path {
	out := make([]*Path, 0, len(candidates))
	for _, edges := range candidates {
		tokens, poolList := edgesToHops(edges)
		tokens[0] = tokenIn
		tokens[len(tokens)-1] = tokenOut
		path, err := NewPath(tokens, poolList)
		if err != nil {
			log.Warn().Err(err).Str("path", describeEdges(edges)).Msg("dropping malformed path")
			continue
		}
		out = append(out, path)
	}
	return out
}

func edgesToHops(edges []PathGraphEdge) ([]domain.Token, []pools.BasePool) {
	tokens := make([]domain.Token, 0, len(edges)+1)
	poolList := make([]pools.BasePool, 0, len(edges))
	tokens = append(tokens, edges[0].TokenIn)
	for _, edge := range edges {
		tokens = append(tokens, edge.TokenOut)
		poolList = append(poolList, edge.Pool)
	}
	return tokens, poolList
}

func describeEdges(edges []PathGraphEdge) string {
	tokens, poolList := edgesToHops(edges)
	return (&Path{Tokens: tokens, Pools: poolList}).String()
}

func containsAddress(list []common.Address, address common.Address) bool {
	for _, a := range list {
		if a == address {
			return true
		}
	}
	return false
}
