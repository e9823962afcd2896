package main

import (
	"fmt"
	"math/big"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pelletier/go-toml/v2"

	"github.com/base-org/zkbridge/fees"
	"github.com/base-org/zkbridge/paymaster"
	"github.com/base-org/zkbridge/zktypes"
)

// network stores the details of one L1/L2 pairing.
type network struct {
	L2RPC string `toml:"l2-rpc"`
	// Contracts skips zks_getBridgeContracts discovery when set.
	Contracts *contractsConfig  `toml:"contracts"`
	Fees      fees.Params       `toml:"fees"`
	Paymaster *paymaster.Config `toml:"paymaster"`
}

type contractsConfig struct {
	MainContract  common.Address `toml:"main-contract"`
	L1ERC20Bridge common.Address `toml:"l1-erc20-bridge"`
	L2ERC20Bridge common.Address `toml:"l2-erc20-bridge"`
	L1WethBridge  common.Address `toml:"l1-weth-bridge"`
	L2WethBridge  common.Address `toml:"l2-weth-bridge"`
}

func (c *contractsConfig) bridgeContracts() zktypes.BridgeContracts {
	return zktypes.BridgeContracts{
		MainContract:  c.MainContract,
		L1ERC20Bridge: c.L1ERC20Bridge,
		L2ERC20Bridge: c.L2ERC20Bridge,
		L1WethBridge:  c.L1WethBridge,
		L2WethBridge:  c.L2WethBridge,
	}
}

// Predefined network configurations. Contract addresses are discovered from the L2 node.
var networks = map[string]network{
	"zksync-era": {
		L2RPC: "https://mainnet.era.zksync.io",
		Fees:  fees.DefaultParams(),
	},
	"zksync-sepolia": {
		L2RPC: "https://sepolia.era.zksync.dev",
		Fees:  fees.DefaultParams(),
	},
	"localhost": {
		L2RPC: "http://localhost:3050",
		Fees:  fees.DefaultParams(),
	},
}

func networkNames() []string {
	var names []string
	for n := range networks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// loadNetwork starts from the named preset and applies the TOML file at path on top,
// if any. Unknown keys in the file are rejected.
func loadNetwork(name, path string) (network, error) {
	n, ok := networks[name]
	if !ok {
		return network{}, fmt.Errorf("unknown network %q (one of: %v)", name, networkNames())
	}
	if n.Fees.FairL2GasPrice != nil {
		n.Fees.FairL2GasPrice = new(big.Int).Set(n.Fees.FairL2GasPrice)
	}
	if path == "" {
		return n, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return network{}, fmt.Errorf("error opening network config: %w", err)
	}
	defer f.Close()
	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&n); err != nil {
		return network{}, fmt.Errorf("error decoding network config %s: %w", path, err)
	}
	if n.Contracts != nil && n.Contracts.MainContract == (common.Address{}) {
		return network{}, fmt.Errorf("network config %s: contracts.main-contract must be set", path)
	}
	return n, nil
}
