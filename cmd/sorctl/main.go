package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/hxuan190/balancer-sor/internal/chain"
	sorcommon "github.com/hxuan190/balancer-sor/internal/common"
	"github.com/hxuan190/balancer-sor/internal/config"
	"github.com/hxuan190/balancer-sor/internal/domain"
	"github.com/hxuan190/balancer-sor/internal/provider"
	"github.com/hxuan190/balancer-sor/internal/services/router"
	"github.com/hxuan190/balancer-sor/internal/services/sor"
)

func main() {
	root := &cobra.Command{
		Use:          "sorctl",
		Short:        "Smart order router for Balancer pools",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("pools", "", "pool snapshot JSON file")
	flags.String("subgraph", "", "Balancer subgraph URL")
	flags.String("rpc", "", "JSON-RPC URL for enrichment and on-chain verification")
	flags.Int64("chain-id", 1, "chain id")
	flags.Uint64("block", 0, "pin pool data to this block, 0 means latest")
	flags.Bool("enrich", false, "overlay on-chain balances and rates (requires --rpc)")
	flags.Int("enrich-concurrency", provider.DefaultEnrichConcurrency, "parallel pool reads during enrichment")
	flags.Int("fetch-retries", 3, "subgraph retry attempts per page")
	flags.Duration("fetch-backoff", 500*time.Millisecond, "initial subgraph retry backoff")
	flags.Int("max-paths-per-token-pair", router.DefaultMaxPathsPerTokenPair, "edges kept per token pair")
	flags.Int("max-depth", router.DefaultMaxDepth, "maximum hops per path")
	flags.Int("max-non-boosted-path-depth", router.DefaultMaxNonBoostedPathDepth, "maximum hops for paths without linear pools")
	flags.Int("max-non-boosted-hop-tokens-in-boosted-path", router.DefaultMaxNonBoostedHopTokensInBoostedPath, "plain hop tokens allowed in boosted paths")
	flags.Int("approx-paths-to-return", router.DefaultApproxPathsToReturn, "candidate paths to aim for")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newPathsCmd(), newQuoteCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type session struct {
	cfg    config.CLIConfig
	sor    *sor.SmartOrderRouter
	client *chain.Client
}

func (s *session) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// newSession loads configuration for cmd and fills the pool cache.
func newSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadCLI(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	sorcommon.SetupLogger(cfg.LogLevel, config.DevEnv)

	var poolProvider provider.PoolDataProvider
	if cfg.PoolsFile != "" {
		poolProvider = provider.NewFilePoolProvider(cfg.PoolsFile)
	} else {
		poolProvider = provider.NewSubgraphPoolProvider(cfg.SubgraphURL, provider.WithRetry(cfg.FetchRetries, cfg.FetchBackoff))
	}

	s := &session{cfg: cfg}
	opts := []sor.Option{
		sor.WithTraversalConfig(cfg.Traversal),
		sor.WithRPCURL(cfg.RPCURL),
	}
	if cfg.Enrich {
		s.client, err = chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("connect rpc: %w", err)
		}
		opts = append(opts,
			sor.WithEnricher(provider.NewOnChainPoolDataEnricher(s.client, cfg.EnrichConcurrency)),
			sor.WithChainHead(s.client))
	}
	s.sor = sor.NewSmartOrderRouter(cfg.ChainID, poolProvider, opts...)
	if err := s.sor.VerifyChain(ctx); err != nil {
		s.Close()
		return nil, err
	}

	var block *uint64
	if cfg.Block > 0 {
		block = &cfg.Block
	}
	if _, err := s.sor.FetchAndCachePools(ctx, block); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) token(arg string) (domain.Token, error) {
	if !common.IsHexAddress(arg) {
		return domain.Token{}, fmt.Errorf("%w: invalid token address %q", sorcommon.ErrInvalidInput, arg)
	}
	token, ok := s.sor.Token(common.HexToAddress(arg))
	if !ok {
		return domain.Token{}, fmt.Errorf("%w: token %s is not held by any pool", sorcommon.ErrInvalidInput, arg)
	}
	return token, nil
}
