package pools

import (
	"fmt"
	"sort"
	"sync"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"

	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/fixedpoint"
	"github.com/hxuan190/balancer-sor/internal/metrics"
)

// Factory builds a routable pool from a provider record.
type Factory func(chainID int64, poolType domain.PoolType, raw domain.RawPool) (BasePool, error)

var (
	registryMu sync.RWMutex
	registry   = map[domain.PoolType]Factory{
		domain.PoolTypeWeighted:         weightedFromRaw,
		domain.PoolTypeStable:           stableFromRaw,
		domain.PoolTypeMetaStable:       stableFromRaw,
		domain.PoolTypeComposableStable: stableFromRaw,
		domain.PoolTypeLinear:           linearFromRaw,
		domain.PoolTypeAaveLinear:       linearFromRaw,
		domain.PoolTypeERC4626Linear:    linearFromRaw,
	}
)

// Register installs or replaces the factory for a pool type.
func Register(poolType domain.PoolType, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[poolType] = factory
}

// IsSupported reports whether a factory exists for the pool type.
func IsSupported(poolType domain.PoolType) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[poolType]
	return ok
}

// Parse builds one pool. Recognised types without swap math, such as Gyro
// and FX, fail with ErrUnsupportedPoolType.
func Parse(chainID int64, raw domain.RawPool) (BasePool, error) {
	poolType, err := domain.ParsePoolType(raw.PoolType)
	if err != nil {
		return nil, err
	}
	registryMu.RLock()
	factory, ok := registry[poolType]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", sorcommon.ErrUnsupportedPoolType, poolType)
	}
	return factory(chainID, poolType, raw)
}

// ParseRawPools parses every record, skipping the ones that cannot be routed.
func ParseRawPools(chainID int64, raws []domain.RawPool) []BasePool {
	out := make([]BasePool, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		pool, err := Parse(chainID, raw)
		if err != nil {
			skipped++
			metrics.PoolsSkipped.WithLabelValues(raw.PoolType).Inc()
			log.Warn().Err(err).Str("pool", raw.ID.Hex()).Str("type", raw.PoolType).Msg("skipping pool")
			continue
		}
		out = append(out, pool)
	}
	if skipped > 0 {
		log.Info().Int("parsed", len(out)).Int("skipped", skipped).Msg("parsed raw pools")
	}
	return out
}

// parseTokens converts raw tokens ordered by their pool index, leaving out the
// pool's own BPT when skipSelf is set.
func parseTokens(chainID int64, raw domain.RawPool, skipSelf bool) ([]PoolToken, []domain.RawPoolToken, error) {
	rawTokens := append([]domain.RawPoolToken(nil), raw.Tokens...)
	sort.SliceStable(rawTokens, func(i, j int) bool { return rawTokens[i].Index < rawTokens[j].Index })

	tokens := make([]PoolToken, 0, len(rawTokens))
	kept := make([]domain.RawPoolToken, 0, len(rawTokens))
	for _, rt := range rawTokens {
		if skipSelf && rt.Address == raw.Address {
			continue
		}
		token := domain.NewToken(chainID, rt.Address, rt.Decimals, rt.Symbol)
		token.Name = rt.Name
		if !token.SupportsDecimals() {
			return nil, nil, fmt.Errorf("%w: pool %s token %s has %d decimals", sorcommon.ErrInvalidInput, raw.ID.Hex(), rt.Address.Hex(), rt.Decimals)
		}
		units, err := domain.ParseUnits(orZero(rt.Balance), rt.Decimals)
		if err != nil {
			return nil, nil, fmt.Errorf("pool %s token %s balance: %w", raw.ID.Hex(), rt.Address.Hex(), err)
		}
		balance, err := domain.NewTokenAmount(token, units)
		if err != nil {
			return nil, nil, fmt.Errorf("pool %s token %s balance: %w", raw.ID.Hex(), rt.Address.Hex(), err)
		}
		rate := fixedpoint.One
		if rt.PriceRate != "" {
			if rate, err = domain.ParseWad(rt.PriceRate); err != nil {
				return nil, nil, fmt.Errorf("pool %s token %s rate: %w", raw.ID.Hex(), rt.Address.Hex(), err)
			}
		}
		tokens = append(tokens, PoolToken{
			Token:   token,
			Index:   len(tokens),
			Balance: balance,
			Rate:    rate,
		})
		kept = append(kept, rt)
	}
	return tokens, kept, nil
}

func parseSwapFee(raw domain.RawPool) (*uint256.Int, error) {
	fee, err := domain.ParseWad(orZero(raw.SwapFee))
	if err != nil {
		return nil, fmt.Errorf("pool %s swap fee: %w", raw.ID.Hex(), err)
	}
	if !fee.Lt(fixedpoint.One) {
		return nil, fmt.Errorf("%w: pool %s swap fee %s", sorcommon.ErrInvalidInput, raw.ID.Hex(), raw.SwapFee)
	}
	return fee, nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func weightedFromRaw(chainID int64, _ domain.PoolType, raw domain.RawPool) (BasePool, error) {
	fee, err := parseSwapFee(raw)
	if err != nil {
		return nil, err
	}
	tokens, rawTokens, err := parseTokens(chainID, raw, false)
	if err != nil {
		return nil, err
	}
	weights := make([]*uint256.Int, len(rawTokens))
	for i, rt := range rawTokens {
		if weights[i], err = domain.ParseWad(orZero(rt.Weight)); err != nil {
			return nil, fmt.Errorf("pool %s token %s weight: %w", raw.ID.Hex(), rt.Address.Hex(), err)
		}
	}
	return NewWeightedPool(raw.ID, raw.Address, fee, tokens, weights)
}

func stableFromRaw(chainID int64, poolType domain.PoolType, raw domain.RawPool) (BasePool, error) {
	fee, err := parseSwapFee(raw)
	if err != nil {
		return nil, err
	}
	// Composable pools list their own BPT, which is not swappable here.
	tokens, _, err := parseTokens(chainID, raw, poolType == domain.PoolTypeComposableStable)
	if err != nil {
		return nil, err
	}
	amp, err := domain.ParseUnits(orZero(raw.Amp), 0)
	if err != nil {
		return nil, fmt.Errorf("pool %s amp: %w", raw.ID.Hex(), err)
	}
	amp.Mul(amp, AmpPrecision)
	return NewStablePool(raw.ID, raw.Address, poolType, fee, amp, tokens)
}

func linearFromRaw(chainID int64, poolType domain.PoolType, raw domain.RawPool) (BasePool, error) {
	fee, err := parseSwapFee(raw)
	if err != nil {
		return nil, err
	}
	tokens, _, err := parseTokens(chainID, raw, false)
	if err != nil {
		return nil, err
	}
	lower, err := domain.ParseWad(orZero(raw.LowerTarget))
	if err != nil {
		return nil, fmt.Errorf("pool %s lower target: %w", raw.ID.Hex(), err)
	}
	upper, err := domain.ParseWad(orZero(raw.UpperTarget))
	if err != nil {
		return nil, fmt.Errorf("pool %s upper target: %w", raw.ID.Hex(), err)
	}

	// Without an explicit BPT balance the held amount follows from the
	// circulating supply.
	for i := range tokens {
		if tokens[i].Token.Address != raw.Address || !tokens[i].Balance.IsZero() {
			continue
		}
		supply, err := domain.ParseWad(orZero(raw.TotalShares))
		if err != nil {
			return nil, fmt.Errorf("pool %s total shares: %w", raw.ID.Hex(), err)
		}
		held, err := fixedpoint.Sub(MaxTokenBalance, supply)
		if err != nil {
			return nil, fmt.Errorf("%w: pool %s total shares %s", sorcommon.ErrInvalidInput, raw.ID.Hex(), raw.TotalShares)
		}
		if tokens[i].Balance, err = domain.NewTokenAmount(tokens[i].Token, held); err != nil {
			return nil, fmt.Errorf("pool %s bpt balance: %w", raw.ID.Hex(), err)
		}
	}
	return NewLinearPool(raw.ID, raw.Address, poolType, fee, lower, upper, tokens, raw.MainIndex, raw.WrappedIndex)
}
