package config

import (
	"errors"

	"github.com/andrew-solarstorm/go-packages/common"
)

type RPCConfig struct {
	// RPCUrl is optional; without it pools are served as the provider
	// reports them and on-chain queries are disabled.
	RPCUrl  string
	ChainID int64
}

func (r *RPCConfig) Key() string {
	return RPC_CONFIG_KEY
}

func (r *RPCConfig) Load() error {
	r.RPCUrl = common.GetEnvOrDefault("RPC_URL", "")
	r.ChainID = int64(common.GetEnvOrDefaultInt("CHAIN_ID", 1))
	return r.Validate()
}

func (r *RPCConfig) Validate() error {
	if r.ChainID <= 0 {
		return errors.New("invalid rpc config: CHAIN_ID must be positive")
	}
	return nil
}
