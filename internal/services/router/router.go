package router

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/metrics"
	"github.com/hxuan190/balancer-sor/internal/pools"
)

// DefaultSplitChunks is how many equal parts the greedy splitter hands out.
const DefaultSplitChunks = 20

type Router struct {
	splitChunks int
}

type Option func(*Router)

// WithSplitChunks sets the greedy splitter granularity.
func WithSplitChunks(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.splitChunks = n
		}
	}
}

func NewRouter(opts ...Option) *Router {
	r := &Router{splitChunks: DefaultSplitChunks}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetCandidatePaths builds a fresh graph over poolList and searches it.
func (r *Router) GetCandidatePaths(tokenIn, tokenOut domain.Token, poolList []pools.BasePool, cfg GraphTraversalConfig) []*Path {
	cfg = cfg.withDefaults()
	graph := NewPathGraph()
	graph.BuildGraph(poolList, cfg.MaxPathsPerTokenPair)
	return graph.GetCandidatePaths(tokenIn, tokenOut, cfg)
}

// GetBestPaths spreads swapAmount over paths. A nil result with a nil error
// means no feasible route. Pool balances are never mutated.
func (r *Router) GetBestPaths(paths []*Path, kind domain.SwapKind, swapAmount domain.TokenAmount) ([]*PathWithAmount, error) {
	start := time.Now()
	defer func() {
		metrics.RouteDuration.Observe(time.Since(start).Seconds())
	}()

	if len(paths) == 0 {
		return nil, nil
	}
	if swapAmount.IsZero() {
		return nil, fmt.Errorf("%w: zero swap amount", sorcommon.ErrInvalidInput)
	}
	for _, p := range paths {
		if err := checkAmountToken(p, kind, swapAmount.Token); err != nil {
			return nil, err
		}
	}

	limits, total, err := pathLimits(paths, kind)
	if err != nil {
		return nil, err
	}
	if total.Lt(swapAmount.Amount) {
		log.Debug().
			Str("amount", swapAmount.Amount.Dec()).
			Str("aggregate_limit", total.Dec()).
			Msg("swap amount exceeds aggregate path limit")
		metrics.NoRoute.Inc()
		return nil, nil
	}

	if len(paths) == 1 {
		p := paths[0]
		pwa, err := NewPathWithAmount(p.Tokens, p.Pools, swapAmount, false)
		if err != nil {
			if infeasible(err) {
				log.Debug().Err(err).Str("path", p.String()).Msg("single candidate cannot take amount")
				metrics.NoRoute.Inc()
				return nil, nil
			}
			return nil, err
		}
		return []*PathWithAmount{pwa}, nil
	}

	s := &splitter{
		paths:  paths,
		kind:   kind,
		token:  swapAmount.Token,
		limits: limits,
		chunks: r.splitChunks,
	}
	best, err := s.best(swapAmount.Amount)
	metrics.SplitIterations.Observe(float64(s.evals))
	if err != nil {
		return nil, err
	}
	if best == nil {
		metrics.NoRoute.Inc()
		return nil, nil
	}

	result := make([]*PathWithAmount, 0, len(paths))
	for i, amount := range best.amounts {
		if amount.IsZero() {
			continue
		}
		p := paths[i]
		share, err := domain.NewTokenAmount(swapAmount.Token, amount)
		if err != nil {
			return nil, err
		}
		pwa, err := NewPathWithAmount(p.Tokens, p.Pools, share, false)
		if err != nil {
			return nil, err
		}
		result = append(result, pwa)
	}
	return result, nil
}

// checkAmountToken requires the amount token at the end of the path the kind
// fixes.
func checkAmountToken(p *Path, kind domain.SwapKind, token domain.Token) error {
	end := p.TokenIn()
	if kind == domain.GivenOut {
		end = p.TokenOut()
	}
	if !token.IsUnderlyingEqual(end) {
		return fmt.Errorf("%w: %s amount in %s does not match path %s", sorcommon.ErrInvalidInput, kind, token, p)
	}
	return nil
}

// pathLimits returns each path's limit and their saturating sum. Paths whose
// limit cannot be priced count as empty.
func pathLimits(paths []*Path, kind domain.SwapKind) ([]*uint256.Int, *uint256.Int, error) {
	limits := make([]*uint256.Int, len(paths))
	total := new(uint256.Int)
	for i, p := range paths {
		limit, err := GetLimitAmountSwapForPath(p, kind)
		if err != nil {
			if !infeasible(err) {
				return nil, nil, err
			}
			log.Warn().Err(err).Str("path", p.String()).Msg("path limit unavailable, treating as empty")
			limit = new(uint256.Int)
		}
		limits[i] = limit
		if _, overflow := total.AddOverflow(total, limit); overflow {
			total.SetAllOne()
		}
	}
	return limits, total, nil
}
