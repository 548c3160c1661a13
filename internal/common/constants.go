// Package common contains common constants and variables used across services
package common

import "github.com/ethereum/go-ethereum/common"

type ChainID = int64

const (
	ChainMainnet   ChainID = 1
	ChainOptimism  ChainID = 10
	ChainGnosis    ChainID = 100
	ChainPolygon   ChainID = 137
	ChainBase      ChainID = 8453
	ChainArbitrum  ChainID = 42161
	ChainAvalanche ChainID = 43114
	ChainSepolia   ChainID = 11155111
)

var (
	// ZeroAddress doubles as the native asset address in Vault calls.
	ZeroAddress = common.Address{}

	VaultAddress = common.HexToAddress("0xBA12222222228d8Ba445958a75a0704d566BF2C8")

	BalancerQueriesAddresses = map[ChainID]common.Address{
		ChainMainnet:   common.HexToAddress("0xE39B5e3B6D74016b2F6A9673D7d7493B6DF549d5"),
		ChainOptimism:  common.HexToAddress("0xE39B5e3B6D74016b2F6A9673D7d7493B6DF549d5"),
		ChainGnosis:    common.HexToAddress("0x0F3e0c4218b7b0108a3643cFe9D3ec0d4F57c54e"),
		ChainPolygon:   common.HexToAddress("0xE39B5e3B6D74016b2F6A9673D7d7493B6DF549d5"),
		ChainBase:      common.HexToAddress("0x300Ab2038EAc391f26D9F895dc61F8F66a548833"),
		ChainArbitrum:  common.HexToAddress("0xE39B5e3B6D74016b2F6A9673D7d7493B6DF549d5"),
		ChainAvalanche: common.HexToAddress("0xC128468b7Ce63eA702C1f104D55A2566b13D3ABD"),
		ChainSepolia:   common.HexToAddress("0x1802953277FD955f9a254B80Aa0582f193cF1d77"),
	}

	WrappedNativeAddresses = map[ChainID]common.Address{
		ChainMainnet:   common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		ChainOptimism:  common.HexToAddress("0x4200000000000000000000000000000000000006"),
		ChainGnosis:    common.HexToAddress("0xe91D153E0b41518A2Ce8Dd3D7944Fa863463a97d"),
		ChainPolygon:   common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"),
		ChainBase:      common.HexToAddress("0x4200000000000000000000000000000000000006"),
		ChainArbitrum:  common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
		ChainAvalanche: common.HexToAddress("0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7"),
		ChainSepolia:   common.HexToAddress("0x7b79995e5f793A07Bc00c21412e50Ecae098E7f9"),
	}
)
