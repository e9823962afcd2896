// Package wallet is the facade tying fee estimation, transaction building, signing and
// submission together for one account on an L1/L2 pair.
package wallet

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/base-org/zkbridge/accounts"
	"github.com/base-org/zkbridge/bridge"
	"github.com/base-org/zkbridge/client"
	"github.com/base-org/zkbridge/fees"
	"github.com/base-org/zkbridge/zktypes"
)

const (
	DefaultPollInterval    = 5 * time.Second
	DefaultApprovalTimeout = 5 * time.Minute
)

type config struct {
	logger          log.Logger
	contracts       *zktypes.BridgeContracts
	feeOpts         []fees.Option
	pollInterval    time.Duration
	approvalTimeout time.Duration
	nonces          *NonceManager
	l2GasFormula    bool
}

type Option func(*config)

func WithLogger(l log.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithBridgeContracts uses contracts instead of discovering them from the L2 node.
func WithBridgeContracts(contracts zktypes.BridgeContracts) Option {
	return func(c *config) {
		c.contracts = &contracts
	}
}

func WithFeeOptions(opts ...fees.Option) Option {
	return func(c *config) {
		c.feeOpts = append(c.feeOpts, opts...)
	}
}

// WithL2GasFormula sizes the L2 gas of priority operations with the local formula
// instead of asking the L2 node.
func WithL2GasFormula() Option {
	return func(c *config) {
		c.l2GasFormula = true
	}
}

// WithPollInterval sets how often receipts are polled. New rejects a non-positive interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		c.pollInterval = d
	}
}

// WithApprovalTimeout bounds the wait for an approval issued before a token deposit.
func WithApprovalTimeout(d time.Duration) Option {
	return func(c *config) {
		c.approvalTimeout = d
	}
}

// WithNonceManager shares nonce reservations between wallets of the same accounts.
func WithNonceManager(m *NonceManager) Option {
	return func(c *config) {
		c.nonces = m
	}
}

// Wallet is safe for concurrent use. Its clients are shared, never closed by it.
type Wallet struct {
	signer    accounts.TxSigner
	l1        client.EthClient
	l1ChainID *big.Int
	l2        client.L2Client
	l2ChainID *big.Int

	fees    *fees.Estimator
	builder *bridge.Builder
	nonces  *NonceManager
	cfg     config
	log     log.Logger
}

// New binds signer to an L1/L2 pair, reading both chain ids once.
func New(ctx context.Context, signer accounts.TxSigner, l1 client.EthClient, l2 client.L2Client, opts ...Option) (*Wallet, error) {
	cfg := config{
		logger:          log.Root(),
		pollInterval:    DefaultPollInterval,
		approvalTimeout: DefaultApprovalTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.nonces == nil {
		cfg.nonces = NewNonceManager()
	}
	return newWallet(ctx, signer, l1, l2, cfg)
}

func newWallet(ctx context.Context, signer accounts.TxSigner, l1 client.EthClient, l2 client.L2Client, cfg config) (*Wallet, error) {
	if cfg.pollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", cfg.pollInterval)
	}
	if cfg.approvalTimeout <= 0 {
		return nil, fmt.Errorf("approval timeout must be positive, got %s", cfg.approvalTimeout)
	}
	l1ChainID, err := l1.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("error querying L1 chain ID: %w", err)
	}
	l2ChainID, err := l2.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("error querying L2 chain ID: %w", err)
	}

	resolver := bridge.NewResolver(l2)
	if cfg.contracts != nil {
		resolver = bridge.StaticResolver(*cfg.contracts)
	}
	feeOpts := []fees.Option{fees.WithLogger(cfg.logger)}
	if !cfg.l2GasFormula {
		feeOpts = append(feeOpts, fees.WithL2GasOracle(l2))
	}
	estimator := fees.New(l1, append(feeOpts, cfg.feeOpts...)...)

	return &Wallet{
		signer:    signer,
		l1:        l1,
		l1ChainID: l1ChainID,
		l2:        l2,
		l2ChainID: l2ChainID,
		fees:      estimator,
		builder: &bridge.Builder{
			L1:        l1,
			L1ChainID: l1ChainID,
			L2:        l2,
			L2ChainID: l2ChainID,
			Fees:      estimator,
			Contracts: resolver,
			Log:       cfg.logger,
		},
		nonces: cfg.nonces,
		cfg:    cfg,
		log:    cfg.logger,
	}, nil
}

// Connect returns a wallet bound to another L2. w is unchanged.
func (w *Wallet) Connect(ctx context.Context, l2 client.L2Client) (*Wallet, error) {
	return newWallet(ctx, w.signer, w.l1, l2, w.cfg)
}

// ConnectL1 returns a wallet bound to another L1. w is unchanged.
func (w *Wallet) ConnectL1(ctx context.Context, l1 client.EthClient) (*Wallet, error) {
	return newWallet(ctx, w.signer, l1, w.l2, w.cfg)
}

// Address is the account's L2 address.
func (w *Wallet) Address(ctx context.Context) (common.Address, error) {
	return w.signer.Address(ctx)
}

// L1Address is the address paying for L1 transactions.
func (w *Wallet) L1Address(ctx context.Context) (common.Address, error) {
	return accounts.L1SignerOf(w.signer).Address(ctx)
}

func (w *Wallet) L1ChainID() *big.Int { return new(big.Int).Set(w.l1ChainID) }

func (w *Wallet) L2ChainID() *big.Int { return new(big.Int).Set(w.l2ChainID) }

func (w *Wallet) BridgeContracts(ctx context.Context) (*zktypes.BridgeContracts, error) {
	return w.builder.Contracts.Contracts(ctx)
}

// BalanceL1 returns the L1 balance of the native asset or a token.
func (w *Wallet) BalanceL1(ctx context.Context, token common.Address) (*big.Int, error) {
	owner, err := w.L1Address(ctx)
	if err != nil {
		return nil, err
	}
	if zktypes.IsETH(token) {
		return w.l1.BalanceAt(ctx, owner, nil)
	}
	return fees.TokenBalance(ctx, w.l1, token, owner)
}

// Balance returns the L2 balance of the native asset or an L2 token.
func (w *Wallet) Balance(ctx context.Context, token common.Address) (*big.Int, error) {
	owner, err := w.Address(ctx)
	if err != nil {
		return nil, err
	}
	if zktypes.IsETH(token) {
		return w.l2.BalanceAt(ctx, owner, nil)
	}
	return fees.TokenBalance(ctx, w.l2, token, owner)
}

// L2TokenAddress returns the L2 token the default bridge mints for l1Token.
func (w *Wallet) L2TokenAddress(ctx context.Context, l1Token common.Address) (common.Address, error) {
	return w.builder.L2TokenAddress(ctx, l1Token)
}

// L1TokenAddress returns the L1 origin of a bridged L2 token.
func (w *Wallet) L1TokenAddress(ctx context.Context, l2Token common.Address) (common.Address, error) {
	return w.builder.L1TokenAddress(ctx, l2Token)
}

// AllowanceL1 returns what the token bridge (the default one unless bridgeAddress is
// set) may pull from the account.
func (w *Wallet) AllowanceL1(ctx context.Context, token common.Address, bridgeAddress *common.Address) (*big.Int, error) {
	owner, err := w.L1Address(ctx)
	if err != nil {
		return nil, err
	}
	spender, err := w.builder.DefaultSpender(ctx, bridgeAddress)
	if err != nil {
		return nil, err
	}
	return w.builder.Allowance(ctx, token, owner, spender)
}

// BaseCost is the ETH a priority operation of l2GasLimit must carry. A nil gasPrice
// uses the current L1 price.
func (w *Wallet) BaseCost(ctx context.Context, l2GasLimit, gasPerPubdataByte, gasPrice *big.Int) (*big.Int, error) {
	if gasPerPubdataByte == nil {
		gasPerPubdataByte = big.NewInt(zktypes.RequiredL1ToL2GasPerPubdataLimit)
	}
	if gasPrice == nil {
		price, err := w.fees.GasPrice(ctx, nil)
		if err != nil {
			return nil, err
		}
		gasPrice = price.L1GasPrice()
	}
	set, err := w.BridgeContracts(ctx)
	if err != nil {
		return nil, err
	}
	return w.fees.PriorityBaseCost(ctx, set.MainContract, l2GasLimit, gasPerPubdataByte, gasPrice)
}
