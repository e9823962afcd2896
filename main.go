package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/base-org/zkbridge/wallet"
)

const envPrefix = "ZKBRIDGE"

func prefixEnvVars(name string) []string {
	return opservice.PrefixEnvVar(envPrefix, name)
}

var (
	l1RPCFlag = &cli.StringFlag{
		Name:     "l1-rpc",
		Usage:    "Ethereum L1 RPC url",
		Required: true,
		EnvVars:  prefixEnvVars("L1_RPC"),
	}
	networkFlag = &cli.StringFlag{
		Name:    "network",
		Usage:   fmt.Sprintf("L2 network preset (one of: %s)", strings.Join(networkNames(), ", ")),
		Value:   "zksync-era",
		EnvVars: prefixEnvVars("NETWORK"),
	}
	l2RPCFlag = &cli.StringFlag{
		Name:    "l2-rpc",
		Usage:   "Custom L2 RPC url, overriding the network preset",
		EnvVars: prefixEnvVars("L2_RPC"),
	}
	configFlag = &cli.PathFlag{
		Name:    "config",
		Usage:   "TOML file overriding the network preset (l2-rpc, [contracts], [fees], [paymaster])",
		EnvVars: prefixEnvVars("CONFIG"),
	}
	privateKeyFlag = &cli.StringFlag{
		Name:    "private-key",
		Usage:   "Private key to use for signing transactions",
		EnvVars: prefixEnvVars("PRIVATE_KEY"),
	}
	ledgerFlag = &cli.BoolFlag{
		Name:  "ledger",
		Usage: "Use ledger device for signing transactions",
	}
	mnemonicFlag = &cli.StringFlag{
		Name:    "mnemonic",
		Usage:   "Mnemonic to use for signing transactions",
		EnvVars: prefixEnvVars("MNEMONIC"),
	}
	hdPathFlag = &cli.StringFlag{
		Name:  "hd-path",
		Usage: "Hierarchical deterministic derivation path for mnemonic or ledger",
		Value: "m/44'/60'/0'/0/0",
	}
	accountFlag = &cli.StringFlag{
		Name:  "account",
		Usage: "Smart account address; the key then signs on its behalf on L2 and sends L1 transactions itself",
	}
	l2GasFormulaFlag = &cli.BoolFlag{
		Name:  "l2-gas-formula",
		Usage: "Size the L2 gas of priority operations with the local formula instead of asking the L2 node",
	}
	waitFlag = &cli.DurationFlag{
		Name:  "wait",
		Usage: "How long to wait for inclusion; 0 returns right after submission",
		Value: 5 * time.Minute,
	}
	approvalTimeoutFlag = &cli.DurationFlag{
		Name:  "approval-timeout",
		Usage: "How long a deposit waits for its token approval to be included",
		Value: wallet.DefaultApprovalTimeout,
	}
	pollIntervalFlag = &cli.DurationFlag{
		Name:  "poll-interval",
		Usage: "Receipt polling interval",
		Value: wallet.DefaultPollInterval,
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "zkbridge"
	app.Usage = "Bridge funds between Ethereum and a zkSync-style L2 and transact on L2"
	app.Flags = append([]cli.Flag{
		l1RPCFlag,
		networkFlag,
		l2RPCFlag,
		configFlag,
		privateKeyFlag,
		ledgerFlag,
		mnemonicFlag,
		hdPathFlag,
		accountFlag,
		l2GasFormulaFlag,
		waitFlag,
		approvalTimeoutFlag,
		pollIntervalFlag,
	}, oplog.CLIFlags(envPrefix)...)
	app.Before = func(c *cli.Context) error {
		log.SetDefault(oplog.NewLogger(os.Stderr, oplog.ReadCLIConfig(c)))
		return nil
	}
	app.Commands = commands

	if err := app.Run(os.Args); err != nil {
		log.Crit("Application failed", "error", err)
	}
}
