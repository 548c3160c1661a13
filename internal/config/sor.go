package config

import (
	"errors"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"

	"github.com/hxuan190/balancer-sor/internal/services/router"
)

type SORConfig struct {
	// SubgraphURL is the Balancer subgraph endpoint. PoolsFile, when set,
	// takes precedence and serves a static snapshot.
	SubgraphURL string
	PoolsFile   string

	MaxPathsPerTokenPair                int
	MaxDepth                            int
	MaxNonBoostedPathDepth              int
	MaxNonBoostedHopTokensInBoostedPath int
	ApproxPathsToReturn                 int

	FetchRetries      int
	FetchBackoff      time.Duration
	EnrichConcurrency int

	// RefreshInterval of zero disables periodic pool refreshes.
	RefreshInterval time.Duration

	// QuoteCacheSize of zero disables the routed swap cache.
	QuoteCacheSize int
	QuoteCacheTTL  time.Duration
}

func (c *SORConfig) Key() string {
	return SOR_CONFIG_KEY
}

func (c *SORConfig) Load() error {
	c.SubgraphURL = common.GetEnvOrDefault("SOR_SUBGRAPH_URL", "")
	c.PoolsFile = common.GetEnvOrDefault("SOR_POOLS_FILE", "")
	c.MaxPathsPerTokenPair = common.GetEnvOrDefaultInt("SOR_MAX_PATHS_PER_TOKEN_PAIR", router.DefaultMaxPathsPerTokenPair)
	c.MaxDepth = common.GetEnvOrDefaultInt("SOR_MAX_DEPTH", router.DefaultMaxDepth)
	c.MaxNonBoostedPathDepth = common.GetEnvOrDefaultInt("SOR_MAX_NON_BOOSTED_PATH_DEPTH", router.DefaultMaxNonBoostedPathDepth)
	c.MaxNonBoostedHopTokensInBoostedPath = common.GetEnvOrDefaultInt("SOR_MAX_NON_BOOSTED_HOP_TOKENS_IN_BOOSTED_PATH", router.DefaultMaxNonBoostedHopTokensInBoostedPath)
	c.ApproxPathsToReturn = common.GetEnvOrDefaultInt("SOR_APPROX_PATHS_TO_RETURN", router.DefaultApproxPathsToReturn)
	c.FetchRetries = common.GetEnvOrDefaultInt("SOR_FETCH_RETRIES", 3)
	c.FetchBackoff = time.Duration(common.GetEnvOrDefaultInt("SOR_FETCH_BACKOFF_MS", 500)) * time.Millisecond
	c.EnrichConcurrency = common.GetEnvOrDefaultInt("SOR_ENRICH_CONCURRENCY", 8)
	c.RefreshInterval = time.Duration(common.GetEnvOrDefaultInt("SOR_REFRESH_INTERVAL_S", 60)) * time.Second
	c.QuoteCacheSize = common.GetEnvOrDefaultInt("SOR_QUOTE_CACHE_SIZE", 1024)
	c.QuoteCacheTTL = time.Duration(common.GetEnvOrDefaultInt("SOR_QUOTE_CACHE_TTL_MS", 2000)) * time.Millisecond
	return c.Validate()
}

func (c *SORConfig) Validate() error {
	if c.SubgraphURL == "" && c.PoolsFile == "" {
		return errors.New("invalid sor config: SOR_SUBGRAPH_URL or SOR_POOLS_FILE is required")
	}
	if c.MaxDepth < 1 || c.MaxPathsPerTokenPair < 1 {
		return errors.New("invalid sor config: path limits must be positive")
	}
	if c.FetchRetries < 0 || c.RefreshInterval < 0 || c.QuoteCacheSize < 0 {
		return errors.New("invalid sor config: negative retry or refresh setting")
	}
	return nil
}

// TraversalConfig maps the path search limits onto the router.
func (c *SORConfig) TraversalConfig() router.GraphTraversalConfig {
	return router.GraphTraversalConfig{
		MaxPathsPerTokenPair:                c.MaxPathsPerTokenPair,
		MaxDepth:                            c.MaxDepth,
		MaxNonBoostedPathDepth:              c.MaxNonBoostedPathDepth,
		MaxNonBoostedHopTokensInBoostedPath: c.MaxNonBoostedHopTokensInBoostedPath,
		ApproxPathsToReturn:                 c.ApproxPathsToReturn,
	}
}
