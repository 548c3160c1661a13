package router

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/domain"
)

// allocation assigns raw amounts to candidate paths; total is the summed
// quote (output for GivenIn, input for GivenOut).
type allocation struct {
	amounts []*uint256.Int
	total   *uint256.Int
}

type splitter struct {
	paths  []*Path
	kind   domain.SwapKind
	token  domain.Token
	limits []*uint256.Int
	chunks int
	evals  int
}

// infeasible reports errors that rule out a path for an amount without being
// a fault of the caller.
func infeasible(err error) bool {
	return errors.Is(err, sorcommon.ErrLiquidityExceeded) || errors.Is(err, sorcommon.ErrNotConverged)
}

// evaluate simulates path i for amount without touching pool balances. ok is
// false when the path cannot take the amount.
func (s *splitter) evaluate(i int, amount *uint256.Int) (*uint256.Int, bool, error) {
	if amount.IsZero() {
		return new(uint256.Int), true, nil
	}
	if amount.Gt(s.limits[i]) {
		return nil, false, nil
	}
	s.evals++
	p := s.paths[i]
	share, err := domain.NewTokenAmount(s.token, amount)
	if err != nil {
		return nil, false, err
	}
	pwa, err := NewPathWithAmount(p.Tokens, p.Pools, share, false)
	if err != nil {
		if infeasible(err) {
			log.Debug().Err(err).Str("path", p.String()).Str("amount", amount.Dec()).Msg("path cannot take amount")
			return nil, false, nil
		}
		return nil, false, err
	}
	return pwa.Quote().Amount, true, nil
}

// better compares quotes: more output for GivenIn, less input for GivenOut.
func (s *splitter) better(a, b *uint256.Int) bool {
	if s.kind == domain.GivenIn {
		return a.Gt(b)
	}
	return a.Lt(b)
}

func (s *splitter) isBetter(a, b *allocation) bool {
	return a != nil && (b == nil || s.better(a.total, b.total))
}

func (s *splitter) zeroAmounts() []*uint256.Int {
	amounts := make([]*uint256.Int, len(s.paths))
	for i := range amounts {
		amounts[i] = new(uint256.Int)
	}
	return amounts
}

// best returns the strongest of the single path routes and the split search,
// or nil when nothing can take the amount.
func (s *splitter) best(amount *uint256.Int) (*allocation, error) {
	best, err := s.bestSingle(amount)
	if err != nil {
		return nil, err
	}

	var split *allocation
	if len(s.paths) == 2 {
		split, err = s.goldenSection(0, 1, amount)
	} else {
		split, err = s.greedy(amount)
	}
	if err != nil {
		return nil, err
	}
	if s.isBetter(split, best) {
		best = split
	}
	return best, nil
}

func (s *splitter) bestSingle(amount *uint256.Int) (*allocation, error) {
	var best *allocation
	for i := range s.paths {
		quote, ok, err := s.evaluate(i, amount)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		amounts := s.zeroAmounts()
		amounts[i] = new(uint256.Int).Set(amount)
		if candidate := (&allocation{amounts: amounts, total: quote}); s.isBetter(candidate, best) {
			best = candidate
		}
	}
	return best, nil
}

// greedy hands out the amount in equal chunks, each to the path with the best
// marginal quote. When no path has room for a full chunk the roomiest path is
// filled to its limit.
func (s *splitter) greedy(amount *uint256.Int) (*allocation, error) {
	chunk := new(uint256.Int).Div(amount, uint256.NewInt(uint64(s.chunks)))
	if chunk.IsZero() {
		chunk.Set(amount)
	}
	amounts := s.zeroAmounts()
	quotes := s.zeroAmounts()
	remaining := new(uint256.Int).Set(amount)

	for !remaining.IsZero() {
		step := minU256(chunk, remaining)
		bestIdx := -1
		var bestQuote, bestDelta *uint256.Int

		for i := range s.paths {
			capacity := new(uint256.Int).Sub(s.limits[i], amounts[i])
			if capacity.Lt(step) {
				continue
			}
			quote, ok, err := s.evaluate(i, new(uint256.Int).Add(amounts[i], step))
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			delta := new(uint256.Int)
			if quote.Gt(quotes[i]) {
				delta.Sub(quote, quotes[i])
			}
			if bestIdx < 0 || s.better(delta, bestDelta) {
				bestIdx, bestQuote, bestDelta = i, quote, delta
			}
		}

		if bestIdx < 0 {
			bestIdx = s.roomiest(amounts)
			if bestIdx < 0 {
				return nil, nil
			}
			step = new(uint256.Int).Sub(s.limits[bestIdx], amounts[bestIdx])
			step = minU256(step, remaining)
			quote, ok, err := s.evaluate(bestIdx, new(uint256.Int).Add(amounts[bestIdx], step))
			if err != nil || !ok {
				return nil, err
			}
			bestQuote = quote
		}

		amounts[bestIdx].Add(amounts[bestIdx], step)
		quotes[bestIdx] = bestQuote
		remaining.Sub(remaining, step)
	}

	total := new(uint256.Int)
	for _, q := range quotes {
		total.Add(total, q)
	}
	return &allocation{amounts: amounts, total: total}, nil
}

// roomiest returns the path with the most unused limit, or -1 when all are
// full.
func (s *splitter) roomiest(amounts []*uint256.Int) int {
	idx := -1
	var most *uint256.Int
	for i := range s.paths {
		capacity := new(uint256.Int).Sub(s.limits[i], amounts[i])
		if capacity.IsZero() {
			continue
		}
		if idx < 0 || capacity.Gt(most) {
			idx, most = i, capacity
		}
	}
	return idx
}
