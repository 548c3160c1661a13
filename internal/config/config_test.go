package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/balancer-sor/internal/config"
	"github.com/hxuan190/balancer-sor/internal/services/router"
)

func TestSORConfigLoad(t *testing.T) {
	t.Setenv("SOR_SUBGRAPH_URL", "http://subgraph.local")
	t.Setenv("SOR_MAX_DEPTH", "4")
	t.Setenv("SOR_FETCH_BACKOFF_MS", "250")
	t.Setenv("SOR_REFRESH_INTERVAL_S", "0")

	var c config.SORConfig
	require.NoError(t, c.Load())
	assert.Equal(t, "http://subgraph.local", c.SubgraphURL)
	assert.Equal(t, 4, c.MaxDepth)
	assert.Equal(t, router.DefaultMaxPathsPerTokenPair, c.MaxPathsPerTokenPair)
	assert.Equal(t, 250*time.Millisecond, c.FetchBackoff)
	assert.Equal(t, time.Duration(0), c.RefreshInterval)
	assert.Equal(t, 1024, c.QuoteCacheSize)
	assert.Equal(t, 2*time.Second, c.QuoteCacheTTL)

	tc := c.TraversalConfig()
	assert.Equal(t, 4, tc.MaxDepth)
	assert.Equal(t, router.DefaultApproxPathsToReturn, tc.ApproxPathsToReturn)
}

func TestSORConfigRequiresPoolSource(t *testing.T) {
	t.Setenv("SOR_SUBGRAPH_URL", "")
	t.Setenv("SOR_POOLS_FILE", "")

	var c config.SORConfig
	assert.Error(t, c.Load())
}

func TestRPCConfigLoad(t *testing.T) {
	t.Setenv("RPC_URL", "http://node.local")
	t.Setenv("CHAIN_ID", "137")

	var c config.RPCConfig
	require.NoError(t, c.Load())
	assert.Equal(t, "http://node.local", c.RPCUrl)
	assert.Equal(t, int64(137), c.ChainID)
}

func TestLoadCLIPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "sorctl.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("pools: ./from-file.json\nmax-depth: 3\nchain-id: 10\n"), 0o644))
	t.Setenv("SOR_MAX_DEPTH", "5")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int64("chain-id", 1, "")
	require.NoError(t, flags.Parse([]string{"--chain-id=42161"}))

	cfg, err := config.LoadCLI(cfgFile, flags)
	require.NoError(t, err)
	assert.Equal(t, "./from-file.json", cfg.PoolsFile)
	assert.Equal(t, 5, cfg.Traversal.MaxDepth)
	assert.Equal(t, int64(42161), cfg.ChainID)
	assert.Equal(t, router.DefaultApproxPathsToReturn, cfg.Traversal.ApproxPathsToReturn)
}

func TestLoadCLIRequiresSource(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("log-level: debug\n"), 0o644))

	_, err := config.LoadCLI(cfgFile, nil)
	assert.Error(t, err)
}
