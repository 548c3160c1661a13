// Package sor keeps a parsed pool set in memory and answers routing queries
// against it.
package sor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/balancer-sor/internal/chain"
	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/config"
	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/metrics"
	"github.com/hxuan190/balancer-sor/internal/pools"
	"github.com/hxuan190/balancer-sor/internal/provider"
	"github.com/hxuan190/balancer-sor/internal/services"
	"github.com/hxuan190/balancer-sor/internal/services/router"
	"github.com/hxuan190/balancer-sor/internal/services/swap"
)

const SOR_SERVICE = "sor-service"

var ErrPoolsNotLoaded = fmt.Errorf("%w: pools not loaded", sorcommon.ErrNotReady)

// PoolStats summarises the cached pool set.
type PoolStats struct {
	Count               int
	ByType              map[string]int
	SyncedToBlockNumber *uint64
	LastRefresh         time.Time
}

// SmartOrderRouter caches parsed pools and routes swaps over clones of them.
type SmartOrderRouter struct {
	container.BaseDIInstance
	logger *services.ServiceLogger

	chainID         int64
	rpcURL          string
	provider        provider.PoolDataProvider
	enricher        provider.PoolDataEnricher
	router          *router.Router
	traversal       router.GraphTraversalConfig
	refreshInterval time.Duration
	chainClient     *chain.Client
	head            chain.Head
	quotes          *quoteCache

	mu          sync.RWMutex
	pools       []pools.BasePool
	tokens      map[common.Address]domain.Token
	syncedBlock *uint64
	lastRefresh time.Time
	generation  uint64

	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*SmartOrderRouter)

// WithEnricher overlays on-chain state on every fetched pool set.
func WithEnricher(e provider.PoolDataEnricher) Option {
	return func(s *SmartOrderRouter) { s.enricher = e }
}

func WithTraversalConfig(cfg router.GraphTraversalConfig) Option {
	return func(s *SmartOrderRouter) { s.traversal = cfg }
}

func WithRefreshInterval(d time.Duration) Option {
	return func(s *SmartOrderRouter) { s.refreshInterval = d }
}

// WithRPCURL sets the node used for on-chain query verification.
func WithRPCURL(url string) Option {
	return func(s *SmartOrderRouter) { s.rpcURL = url }
}

// WithChainHead pins enrichment reads to the node's latest block.
func WithChainHead(h chain.Head) Option {
	return func(s *SmartOrderRouter) { s.head = h }
}

func WithRouter(r *router.Router) Option {
	return func(s *SmartOrderRouter) { s.router = r }
}

// WithQuoteCache bounds the routed swap cache. A non-positive size disables it.
func WithQuoteCache(size int, ttl time.Duration) Option {
	return func(s *SmartOrderRouter) { s.quotes = newQuoteCacheOrNil(size, ttl) }
}

func newQuoteCacheOrNil(size int, ttl time.Duration) *quoteCache {
	if size <= 0 || ttl <= 0 {
		return nil
	}
	return newQuoteCache(size, ttl)
}

func NewSmartOrderRouter(chainID int64, poolProvider provider.PoolDataProvider, opts ...Option) *SmartOrderRouter {
	s := &SmartOrderRouter{
		chainID:  chainID,
		provider: poolProvider,
		router:   router.NewRouter(),
		quotes:   newQuoteCache(DefaultQuoteCacheSize, DefaultQuoteCacheTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = services.NewServiceLogger(s)
	return s
}

func (s *SmartOrderRouter) ID() string {
	return SOR_SERVICE
}

func (s *SmartOrderRouter) Configure(c container.IContainer) error {
	rpcConf := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	sorConf := c.GetConfig(config.SOR_CONFIG_KEY).(*config.SORConfig)
	if rpcConf == nil || sorConf == nil {
		return errors.New("invalid sor service config")
	}

	s.logger = services.NewServiceLogger(s)
	s.chainID = rpcConf.ChainID
	s.rpcURL = rpcConf.RPCUrl
	s.router = router.NewRouter()
	s.traversal = sorConf.TraversalConfig()
	s.refreshInterval = sorConf.RefreshInterval
	s.quotes = newQuoteCacheOrNil(sorConf.QuoteCacheSize, sorConf.QuoteCacheTTL)

	if sorConf.PoolsFile != "" {
		s.provider = provider.NewFilePoolProvider(sorConf.PoolsFile)
	} else {
		s.provider = provider.NewSubgraphPoolProvider(sorConf.SubgraphURL,
			provider.WithRetry(sorConf.FetchRetries, sorConf.FetchBackoff))
	}

	if s.rpcURL != "" {
		client, err := chain.NewClient(context.Background(), s.rpcURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		s.chainClient = client
		s.head = client
		s.enricher = provider.NewOnChainPoolDataEnricher(client, sorConf.EnrichConcurrency)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.VerifyChain(ctx); err != nil {
			client.Close()
			return err
		}
	}
	return nil
}

// VerifyChain checks that the node behind the chain head serves the
// configured chain.
func (s *SmartOrderRouter) VerifyChain(ctx context.Context) error {
	if s.head == nil {
		return nil
	}
	id, err := s.head.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("read chain id: %w", err)
	}
	if !id.IsInt64() || id.Int64() != s.chainID {
		return fmt.Errorf("%w: rpc serves chain %s, configured %d", sorcommon.ErrInvalidInput, id, s.chainID)
	}
	s.logger.Info().Int64("chainId", s.chainID).Msg("rpc chain verified")
	return nil
}

// Start loads the pool set once and, when configured, keeps refreshing it in
// the background until Stop.
func (s *SmartOrderRouter) Start() error {
	if _, err := s.FetchAndCachePools(context.Background(), nil); err != nil {
		return err
	}
	if s.refreshInterval <= 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.refreshLoop(ctx)
	return nil
}

func (s *SmartOrderRouter) Stop() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	if s.chainClient != nil {
		s.chainClient.Close()
	}
	s.logger.Info().Msg("sor service stopped")
	return nil
}

func (s *SmartOrderRouter) refreshLoop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.FetchAndCachePools(ctx, nil); err != nil && ctx.Err() == nil {
				s.logger.Refresh(nil).Error().Err(err).Msg("pool refresh failed, keeping previous pool set")
			}
		}
	}
}

// FetchAndCachePools replaces the cached pool set with a fresh fetch at block
// (nil for latest). On failure the previous set stays in place.
func (s *SmartOrderRouter) FetchAndCachePools(ctx context.Context, block *uint64) (int, error) {
	start := time.Now()

	resp, err := s.provider.GetPools(ctx, provider.GetPoolsOptions{Block: block})
	if err != nil {
		metrics.PoolRefreshes.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("fetch pools: %w", err)
	}

	raws := resp.Pools
	if s.enricher != nil {
		opts := provider.FetchAdditionalPoolDataOptions{Block: s.enrichBlock(ctx, block, resp.SyncedToBlockNumber)}
		data, err := s.enricher.FetchAdditionalPoolData(ctx, raws, opts)
		if err != nil {
			metrics.PoolRefreshes.WithLabelValues("error").Inc()
			return 0, fmt.Errorf("enrich pools: %w", err)
		}
		raws = s.enricher.EnrichPoolsWithData(raws, data)
	}

	parsed := pools.ParseRawPools(s.chainID, raws)
	tokens := make(map[common.Address]domain.Token)
	for _, p := range parsed {
		for _, t := range p.Tokens() {
			tokens[t.Address] = t
		}
	}

	s.mu.Lock()
	s.pools = parsed
	s.tokens = tokens
	s.syncedBlock = resp.SyncedToBlockNumber
	s.lastRefresh = time.Now()
	s.generation++
	if s.quotes != nil {
		s.quotes.purge()
	}
	s.mu.Unlock()

	metrics.PoolCount.Set(float64(len(parsed)))
	metrics.PoolRefreshes.WithLabelValues("ok").Inc()
	s.logger.Refresh(block).Info().
		Int("raw", len(resp.Pools)).
		Int("parsed", len(parsed)).
		Dur("took", time.Since(start)).
		Msg("pool set refreshed")
	return len(parsed), nil
}

// enrichBlock picks the block on-chain reads run at: the requested one, or
// the current head so every pool is read from the same state. Without a head
// the reads run at latest.
func (s *SmartOrderRouter) enrichBlock(ctx context.Context, block, synced *uint64) *big.Int {
	if block != nil {
		return new(big.Int).SetUint64(*block)
	}
	if s.head == nil {
		return nil
	}
	head, err := s.head.LatestBlockNumber(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("chain head unavailable, enriching at latest")
		return nil
	}
	if synced != nil && head >= *synced {
		lag := head - *synced
		metrics.PoolSyncLag.Set(float64(lag))
		s.logger.Debug().Uint64("head", head).Uint64("synced", *synced).Uint64("lag", lag).Msg("pool data sync lag")
	}
	return new(big.Int).SetUint64(head)
}

// Pools returns clones of the cached pools.
func (s *SmartOrderRouter) Pools() []pools.BasePool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]pools.BasePool, len(s.pools))
	for i, p := range s.pools {
		out[i] = p.Clone()
	}
	return out
}

func (s *SmartOrderRouter) Stats() PoolStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := PoolStats{
		Count:               len(s.pools),
		ByType:              make(map[string]int),
		SyncedToBlockNumber: s.syncedBlock,
		LastRefresh:         s.lastRefresh,
	}
	for _, p := range s.pools {
		stats.ByType[p.PoolType().String()]++
	}
	return stats
}

// Token resolves an address seen in the cached pools. The zero address
// resolves to the native asset, priced through its wrapped token.
func (s *SmartOrderRouter) Token(address common.Address) (domain.Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tokens[address]; ok {
		return t, true
	}
	native := domain.Token{ChainID: s.chainID}
	if wrapped, ok := s.tokens[native.Wrapped()]; ok && native.IsNative() && address == native.Address {
		native.Decimals = wrapped.Decimals
		return native, true
	}
	return domain.Token{}, false
}

func (s *SmartOrderRouter) ChainID() int64 { return s.chainID }
func (s *SmartOrderRouter) RPCURL() string { return s.rpcURL }

// GetCandidatePaths searches a fresh graph over cloned pools.
func (s *SmartOrderRouter) GetCandidatePaths(tokenIn, tokenOut domain.Token) ([]*router.Path, error) {
	poolList := s.Pools()
	if len(poolList) == 0 {
		return nil, ErrPoolsNotLoaded
	}
	return s.router.GetCandidatePaths(tokenIn, tokenOut, poolList, s.traversal), nil
}

// GetSwapPaths routes amount between the two tokens. amount is denominated in
// tokenIn for GivenIn and tokenOut for GivenOut. A nil swap with a nil error
// means no route.
func (s *SmartOrderRouter) GetSwapPaths(kind domain.SwapKind, tokenIn, tokenOut domain.Token, amount domain.TokenAmount) (*swap.Swap, error) {
	start := time.Now()
	defer func() {
		metrics.QuoteDuration.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())
	}()

	sw, err := s.getSwapPaths(kind, tokenIn, tokenOut, amount)
	switch {
	case err != nil:
		metrics.QuoteRequests.WithLabelValues(kind.String(), "error").Inc()
	case sw == nil:
		metrics.QuoteRequests.WithLabelValues(kind.String(), "no_route").Inc()
	default:
		metrics.QuoteRequests.WithLabelValues(kind.String(), "ok").Inc()
	}
	return sw, err
}

func (s *SmartOrderRouter) getSwapPaths(kind domain.SwapKind, tokenIn, tokenOut domain.Token, amount domain.TokenAmount) (*swap.Swap, error) {
	if s.quotes == nil {
		return s.route(kind, tokenIn, tokenOut, amount)
	}

	key := newQuoteKey(kind, tokenIn, tokenOut, amount)
	if sw, ok := s.quotes.get(key); ok {
		metrics.QuoteCacheLookups.WithLabelValues("hit").Inc()
		return sw, nil
	}
	metrics.QuoteCacheLookups.WithLabelValues("miss").Inc()

	generation := s.currentGeneration()
	sw, err := s.route(kind, tokenIn, tokenOut, amount)
	if err != nil {
		return nil, err
	}
	// A refresh during routing leaves the result stale for the new pool set.
	s.mu.RLock()
	if generation == s.generation {
		s.quotes.set(key, sw)
	}
	s.mu.RUnlock()
	return sw, nil
}

func (s *SmartOrderRouter) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *SmartOrderRouter) route(kind domain.SwapKind, tokenIn, tokenOut domain.Token, amount domain.TokenAmount) (*swap.Swap, error) {
	paths, err := s.GetCandidatePaths(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	qlog := s.logger.Quote(kind, tokenIn, tokenOut)
	if len(paths) == 0 {
		qlog.Debug().Msg("no candidate paths")
		return nil, nil
	}

	best, err := s.router.GetBestPaths(paths, kind, amount)
	if err != nil {
		qlog.Warn().Err(err).Str("amount", amount.Amount.Dec()).Msg("routing failed")
		return nil, err
	}
	if len(best) == 0 {
		qlog.Debug().Int("candidates", len(paths)).Str("amount", amount.Amount.Dec()).Msg("no feasible split")
		return nil, nil
	}
	qlog.Debug().Int("candidates", len(paths)).Int("used", len(best)).Msg("swap routed")
	return swap.NewSwap(best)
}

// PoolTypes lists the pool type tags in the cached set, sorted.
func (s *SmartOrderRouter) PoolTypes() []string {
	stats := s.Stats()
	out := make([]string, 0, len(stats.ByType))
	for t := range stats.ByType {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
