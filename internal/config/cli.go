package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hxuan190/balancer-sor/internal/services/router"
)

// CLIConfig holds configuration for sorctl commands.
type CLIConfig struct {
	RPCURL      string
	ChainID     int64
	SubgraphURL string
	PoolsFile   string
	Block       uint64
	LogLevel    string

	Traversal router.GraphTraversalConfig

	FetchRetries      int
	FetchBackoff      time.Duration
	EnrichConcurrency int
	Enrich            bool
}

// LoadCLI merges config file, SOR_* environment variables and flags into
// CLIConfig. Flags win over environment, which wins over the file.
func LoadCLI(cfgFile string, flags *pflag.FlagSet) (CLIConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("SOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("chain-id", 1)
	v.SetDefault("log-level", "info")
	v.SetDefault("max-paths-per-token-pair", router.DefaultMaxPathsPerTokenPair)
	v.SetDefault("max-depth", router.DefaultMaxDepth)
	v.SetDefault("max-non-boosted-path-depth", router.DefaultMaxNonBoostedPathDepth)
	v.SetDefault("max-non-boosted-hop-tokens-in-boosted-path", router.DefaultMaxNonBoostedHopTokensInBoostedPath)
	v.SetDefault("approx-paths-to-return", router.DefaultApproxPathsToReturn)
	v.SetDefault("fetch-retries", 3)
	v.SetDefault("fetch-backoff", 500*time.Millisecond)
	v.SetDefault("enrich-concurrency", 8)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return CLIConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return CLIConfig{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("sorctl")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return CLIConfig{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := CLIConfig{
		RPCURL:      v.GetString("rpc"),
		ChainID:     v.GetInt64("chain-id"),
		SubgraphURL: v.GetString("subgraph"),
		PoolsFile:   v.GetString("pools"),
		Block:       v.GetUint64("block"),
		LogLevel:    v.GetString("log-level"),
		Traversal: router.GraphTraversalConfig{
			MaxPathsPerTokenPair:                v.GetInt("max-paths-per-token-pair"),
			MaxDepth:                            v.GetInt("max-depth"),
			MaxNonBoostedPathDepth:              v.GetInt("max-non-boosted-path-depth"),
			MaxNonBoostedHopTokensInBoostedPath: v.GetInt("max-non-boosted-hop-tokens-in-boosted-path"),
			ApproxPathsToReturn:                 v.GetInt("approx-paths-to-return"),
		},
		FetchRetries:      v.GetInt("fetch-retries"),
		FetchBackoff:      v.GetDuration("fetch-backoff"),
		EnrichConcurrency: v.GetInt("enrich-concurrency"),
		Enrich:            v.GetBool("enrich"),
	}

	if cfg.SubgraphURL == "" && cfg.PoolsFile == "" {
		return CLIConfig{}, errors.New("either --pools or --subgraph is required")
	}
	if cfg.Enrich && cfg.RPCURL == "" {
		return CLIConfig{}, errors.New("--enrich requires --rpc")
	}
	return cfg, nil
}
