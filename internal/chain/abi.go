package chain

import (
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const fundManagementComponents = `[
  {"internalType": "address", "name": "sender", "type": "address"},
  {"internalType": "bool", "name": "fromInternalBalance", "type": "bool"},
  {"internalType": "address payable", "name": "recipient", "type": "address"},
  {"internalType": "bool", "name": "toInternalBalance", "type": "bool"}
]`

var balancerQueriesABIJSON = `[
  {
    "inputs": [
      {
        "components": [
          {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
          {"internalType": "enum IVault.SwapKind", "name": "kind", "type": "uint8"},
          {"internalType": "contract IAsset", "name": "assetIn", "type": "address"},
          {"internalType": "contract IAsset", "name": "assetOut", "type": "address"},
          {"internalType": "uint256", "name": "amount", "type": "uint256"},
          {"internalType": "bytes", "name": "userData", "type": "bytes"}
        ],
        "internalType": "struct IVault.SingleSwap", "name": "singleSwap", "type": "tuple"
      },
      {
        "components": ` + fundManagementComponents + `,
        "internalType": "struct IVault.FundManagement", "name": "funds", "type": "tuple"
      }
    ],
    "name": "querySwap",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "enum IVault.SwapKind", "name": "kind", "type": "uint8"},
      {
        "components": [
          {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
          {"internalType": "uint256", "name": "assetInIndex", "type": "uint256"},
          {"internalType": "uint256", "name": "assetOutIndex", "type": "uint256"},
          {"internalType": "uint256", "name": "amount", "type": "uint256"},
          {"internalType": "bytes", "name": "userData", "type": "bytes"}
        ],
        "internalType": "struct IVault.BatchSwapStep[]", "name": "swaps", "type": "tuple[]"
      },
      {"internalType": "contract IAsset[]", "name": "assets", "type": "address[]"},
      {
        "components": ` + fundManagementComponents + `,
        "internalType": "struct IVault.FundManagement", "name": "funds", "type": "tuple"
      }
    ],
    "name": "queryBatchSwap",
    "outputs": [{"internalType": "int256[]", "name": "assetDeltas", "type": "int256[]"}],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

const vaultABIJSON = `[
  {
    "inputs": [{"internalType": "bytes32", "name": "poolId", "type": "bytes32"}],
    "name": "getPoolTokens",
    "outputs": [
      {"internalType": "contract IERC20[]", "name": "tokens", "type": "address[]"},
      {"internalType": "uint256[]", "name": "balances", "type": "uint256[]"},
      {"internalType": "uint256", "name": "lastChangeBlock", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const poolABIJSON = `[
  {
    "inputs": [],
    "name": "getSwapFeePercentage",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getAmplificationParameter",
    "outputs": [
      {"internalType": "uint256", "name": "value", "type": "uint256"},
      {"internalType": "bool", "name": "isUpdating", "type": "bool"},
      {"internalType": "uint256", "name": "precision", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getScalingFactors",
    "outputs": [{"internalType": "uint256[]", "name": "", "type": "uint256[]"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getTargets",
    "outputs": [
      {"internalType": "uint256", "name": "lowerTarget", "type": "uint256"},
      {"internalType": "uint256", "name": "upperTarget", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getWrappedTokenRate",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

type lazyABI struct {
	json   string
	once   sync.Once
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.json))
	})
	return l.parsed, l.err
}

var (
	balancerQueriesABI = &lazyABI{json: balancerQueriesABIJSON}
	vaultABI           = &lazyABI{json: vaultABIJSON}
	poolABI            = &lazyABI{json: poolABIJSON}
)

// BalancerQueriesABI returns the parsed BalancerQueries helper ABI.
func BalancerQueriesABI() (abi.ABI, error) { return balancerQueriesABI.get() }

// VaultABI returns the parsed subset of the Vault ABI used for balances.
func VaultABI() (abi.ABI, error) { return vaultABI.get() }

// PoolABI returns the pool getters shared across pool types.
func PoolABI() (abi.ABI, error) { return poolABI.get() }

// SingleSwap mirrors IVault.SingleSwap for ABI packing.
type SingleSwap struct {
	PoolID   [32]byte `abi:"poolId"`
	Kind     uint8
	AssetIn  common.Address
	AssetOut common.Address
	Amount   *big.Int
	UserData []byte
}

// BatchSwapStep mirrors IVault.BatchSwapStep for ABI packing.
type BatchSwapStep struct {
	PoolID        [32]byte `abi:"poolId"`
	AssetInIndex  *big.Int
	AssetOutIndex *big.Int
	Amount        *big.Int
	UserData      []byte
}

// FundManagement mirrors IVault.FundManagement for ABI packing.
type FundManagement struct {
	Sender              common.Address
	FromInternalBalance bool
	Recipient           common.Address
	ToInternalBalance   bool
}
