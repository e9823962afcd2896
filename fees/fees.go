// Package fees prices L1->L2 priority operations and the L1 transactions carrying them.
package fees

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/base-org/zkbridge/client"
	"github.com/base-org/zkbridge/contracts"
	"github.com/base-org/zkbridge/zktypes"
)

const (
	// DefaultFairL2GasPrice is the floor of the L2 gas price charged to priority operations.
	DefaultFairL2GasPrice = 500_000_000
	// DefaultL1GasPerPubdataByte is the L1 gas cost of publishing one byte of pubdata.
	DefaultL1GasPerPubdataByte = 17
	// DefaultL1ToL2FixedGas covers the fixed L2 overhead of a priority operation.
	DefaultL1ToL2FixedGas = 300_000

	l1GasBufferNumerator   = 12
	l1GasBufferDenominator = 10
)

// Params are the pricing coefficients of the mailbox. They are network policy and may
// change between protocol upgrades.
type Params struct {
	FairL2GasPrice      *big.Int `toml:"fair-l2-gas-price"`
	L1GasPerPubdataByte uint64   `toml:"l1-gas-per-pubdata-byte"`
	L1ToL2FixedGas      uint64   `toml:"l1-to-l2-fixed-gas"`
	// VerifyOnChain asks the mailbox for the base cost and prefers its answer.
	VerifyOnChain bool `toml:"verify-on-chain"`
}

func DefaultParams() Params {
	return Params{
		FairL2GasPrice:      big.NewInt(DefaultFairL2GasPrice),
		L1GasPerPubdataByte: DefaultL1GasPerPubdataByte,
		L1ToL2FixedGas:      DefaultL1ToL2FixedGas,
	}
}

// L2GasOracle estimates the L2 gas of a priority operation, typically the L2 node.
type L2GasOracle interface {
	EstimateGasL1ToL2(ctx context.Context, msg ethereum.CallMsg, gasPerPubdata *big.Int) (uint64, error)
}

// L2Message is the L2 side of a priority operation.
type L2Message struct {
	From              common.Address
	To                common.Address
	Value             *big.Int
	Calldata          []byte
	GasPerPubdataByte *big.Int
}

// GasPrice is the fee configuration of an L1 transaction. Either GasPrice or the two
// EIP-1559 fields are set.
type GasPrice struct {
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// L1GasPrice is the per-gas price priority operations are charged against.
func (g *GasPrice) L1GasPrice() *big.Int {
	if g.MaxFeePerGas != nil {
		return g.MaxFeePerGas
	}
	return g.GasPrice
}

// Apply copies the fee fields onto tx.
func (g *GasPrice) Apply(tx *zktypes.Transaction) {
	tx.GasPrice = copyBig(g.GasPrice)
	tx.MaxFeePerGas = copyBig(g.MaxFeePerGas)
	tx.MaxPriorityFeePerGas = copyBig(g.MaxPriorityFeePerGas)
}

type Estimator struct {
	l1     client.EthClient
	params Params
	oracle L2GasOracle
	log    log.Logger
}

type Option func(*Estimator)

// WithParams replaces the pricing coefficients. Unset fields keep their defaults.
func WithParams(p Params) Option {
	return func(e *Estimator) {
		if p.FairL2GasPrice != nil {
			e.params.FairL2GasPrice = new(big.Int).Set(p.FairL2GasPrice)
		}
		if p.L1GasPerPubdataByte != 0 {
			e.params.L1GasPerPubdataByte = p.L1GasPerPubdataByte
		}
		if p.L1ToL2FixedGas != 0 {
			e.params.L1ToL2FixedGas = p.L1ToL2FixedGas
		}
		e.params.VerifyOnChain = p.VerifyOnChain
	}
}

// WithL2GasOracle replaces the local L2 gas formula by oracle estimates. Wallets install
// their L2 node as the oracle unless told to use the formula.
func WithL2GasOracle(oracle L2GasOracle) Option {
	return func(e *Estimator) {
		e.oracle = oracle
	}
}

func WithLogger(l log.Logger) Option {
	return func(e *Estimator) {
		e.log = l
	}
}

func New(l1 client.EthClient, opts ...Option) *Estimator {
	e := &Estimator{
		l1:     l1,
		params: DefaultParams(),
		log:    log.Root(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Estimator) Params() Params {
	return e.params
}

// BaseCost is the ETH a priority operation must carry for its L2 execution:
// max(fairL2GasPrice, ceil(l1GasPerPubdataByte * l1GasPrice / gasPerPubdataByte)) * l2GasLimit.
func (e *Estimator) BaseCost(l2GasLimit, gasPerPubdataByte, l1GasPrice *big.Int) (*big.Int, error) {
	switch {
	case l2GasLimit == nil || l2GasLimit.Sign() < 0:
		return nil, &zktypes.ValidationError{Field: "l2GasLimit", Reason: "must be non-negative"}
	case gasPerPubdataByte == nil || gasPerPubdataByte.Sign() <= 0:
		return nil, &zktypes.ValidationError{Field: "gasPerPubdataByte", Reason: "must be positive"}
	case l1GasPrice == nil || l1GasPrice.Sign() < 0:
		return nil, &zktypes.ValidationError{Field: "l1GasPrice", Reason: "must be non-negative"}
	}
	pubdataPrice := new(big.Int).Mul(new(big.Int).SetUint64(e.params.L1GasPerPubdataByte), l1GasPrice)
	minL2GasPrice := ceilDiv(pubdataPrice, gasPerPubdataByte)
	l2GasPrice := e.params.FairL2GasPrice
	if minL2GasPrice.Cmp(l2GasPrice) > 0 {
		l2GasPrice = minL2GasPrice
	}
	return new(big.Int).Mul(l2GasPrice, l2GasLimit), nil
}

// BaseCostOnChain asks the mailbox at mainContract for the base cost.
func (e *Estimator) BaseCostOnChain(ctx context.Context, mainContract common.Address, l2GasLimit, gasPerPubdataByte, l1GasPrice *big.Int) (*big.Int, error) {
	var out []interface{}
	mailbox := contracts.Bind(contracts.Mailbox, mainContract, e.l1)
	if err := mailbox.Call(&bind.CallOpts{Context: ctx}, &out, "l2TransactionBaseCost", l1GasPrice, l2GasLimit, gasPerPubdataByte); err != nil {
		return nil, fmt.Errorf("error querying l2TransactionBaseCost: %w", err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// PriorityBaseCost computes the base cost locally and, when configured, checks it
// against the mailbox, preferring the contract's answer on mismatch.
func (e *Estimator) PriorityBaseCost(ctx context.Context, mainContract common.Address, l2GasLimit, gasPerPubdataByte, l1GasPrice *big.Int) (*big.Int, error) {
	local, err := e.BaseCost(l2GasLimit, gasPerPubdataByte, l1GasPrice)
	if err != nil || !e.params.VerifyOnChain {
		return local, err
	}
	onChain, err := e.BaseCostOnChain(ctx, mainContract, l2GasLimit, gasPerPubdataByte, l1GasPrice)
	if err != nil {
		return nil, err
	}
	if onChain.Cmp(local) != 0 {
		e.log.Warn("Local base cost differs from mailbox", "local", local, "mailbox", onChain)
	}
	return onChain, nil
}

// GasPrice resolves the L1 fee fields. Overrides win; otherwise EIP-1559 pricing
// (2*baseFee + tip) is used when the head block has a base fee, else the legacy price.
func (e *Estimator) GasPrice(ctx context.Context, o *zktypes.Overrides) (*GasPrice, error) {
	if o.HasGasPrice() {
		if o.GasPrice != nil {
			return &GasPrice{GasPrice: new(big.Int).Set(o.GasPrice)}, nil
		}
		tip := o.MaxPriorityFeePerGas
		if tip == nil {
			suggested, err := e.l1.SuggestGasTipCap(ctx)
			if err != nil {
				return nil, fmt.Errorf("error querying gas tip: %w", err)
			}
			tip = suggested
			if tip.Cmp(o.MaxFeePerGas) > 0 {
				tip = o.MaxFeePerGas
			}
		}
		gp := &GasPrice{MaxFeePerGas: new(big.Int).Set(o.MaxFeePerGas), MaxPriorityFeePerGas: new(big.Int).Set(tip)}
		if gp.MaxFeePerGas.Cmp(gp.MaxPriorityFeePerGas) < 0 {
			return nil, &zktypes.ValidationError{Field: "maxFeePerGas", Reason: "below maxPriorityFeePerGas"}
		}
		return gp, nil
	}

	head, err := e.l1.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error querying head block: %w", err)
	}
	if head.BaseFee == nil {
		price, err := e.l1.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("error querying gas price: %w", err)
		}
		return &GasPrice{GasPrice: price}, nil
	}

	var tip *big.Int
	if o != nil && o.MaxPriorityFeePerGas != nil {
		tip = new(big.Int).Set(o.MaxPriorityFeePerGas)
	} else if tip, err = e.l1.SuggestGasTipCap(ctx); err != nil {
		return nil, fmt.Errorf("error querying gas tip: %w", err)
	}
	maxFee := new(big.Int).Mul(head.BaseFee, big.NewInt(2))
	maxFee.Add(maxFee, tip)
	return &GasPrice{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: tip}, nil
}

// L2GasLimit sizes the L2 execution of msg. Without an oracle it charges a fixed
// overhead plus every calldata byte at the pubdata rate.
func (e *Estimator) L2GasLimit(ctx context.Context, msg L2Message) (*big.Int, error) {
	gasPerPubdata := msg.GasPerPubdataByte
	if gasPerPubdata == nil {
		gasPerPubdata = big.NewInt(zktypes.RequiredL1ToL2GasPerPubdataLimit)
	}
	if e.oracle != nil {
		to := msg.To
		gas, err := e.oracle.EstimateGasL1ToL2(ctx, ethereum.CallMsg{
			From:  msg.From,
			To:    &to,
			Value: msg.Value,
			Data:  msg.Calldata,
		}, gasPerPubdata)
		if err != nil {
			return nil, fmt.Errorf("error estimating L2 gas: %w", err)
		}
		return new(big.Int).SetUint64(gas), nil
	}
	limit := new(big.Int).Mul(big.NewInt(int64(len(msg.Calldata))), gasPerPubdata)
	return limit.Add(limit, new(big.Int).SetUint64(e.params.L1ToL2FixedGas)), nil
}

// EstimateL1Gas estimates the gas of an L1 transaction with a 20% margin.
func (e *Estimator) EstimateL1Gas(ctx context.Context, tx *zktypes.Transaction) (uint64, error) {
	gas, err := e.l1.EstimateGas(ctx, ethereum.CallMsg{
		From:  tx.From,
		To:    tx.To,
		Value: tx.Value,
		Data:  tx.Data,
	})
	if err != nil {
		return 0, fmt.Errorf("error estimating L1 gas: %w", err)
	}
	return gas * l1GasBufferNumerator / l1GasBufferDenominator, nil
}

// CheckFunds is an advisory pre-flight check: the sender must hold ethRequired wei and,
// for a token, at least amount of it. The chain has the final word.
func (e *Estimator) CheckFunds(ctx context.Context, sender, token common.Address, amount, ethRequired *big.Int) error {
	balance, err := e.l1.BalanceAt(ctx, sender, nil)
	if err != nil {
		return fmt.Errorf("error querying balance: %w", err)
	}
	if balance.Cmp(ethRequired) < 0 {
		return &zktypes.InsufficientFundsError{Token: zktypes.EthAddress, Required: ethRequired, Available: balance}
	}
	if zktypes.IsETH(token) {
		return nil
	}
	tokenBalance, err := TokenBalance(ctx, e.l1, token, sender)
	if err != nil {
		return err
	}
	if tokenBalance.Cmp(amount) < 0 {
		return &zktypes.InsufficientFundsError{Token: token, Required: amount, Available: tokenBalance}
	}
	return nil
}

// Quote assembles the advisory fee of a priority operation from the values its L1
// transaction was built with.
func Quote(price *GasPrice, baseCost *big.Int, l1GasLimit uint64, l2GasLimit *big.Int) (*zktypes.FeeQuote, error) {
	q := &zktypes.FeeQuote{
		BaseCost:             copyBig(baseCost),
		L1GasLimit:           l1GasLimit,
		L2GasLimit:           copyBig(l2GasLimit),
		GasPrice:             copyBig(price.GasPrice),
		MaxFeePerGas:         copyBig(price.MaxFeePerGas),
		MaxPriorityFeePerGas: copyBig(price.MaxPriorityFeePerGas),
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// MaxL1Fee is the most an L1 transaction of gasLimit gas can pay in fees.
func (g *GasPrice) MaxL1Fee(gasLimit uint64) *big.Int {
	return new(big.Int).Mul(g.L1GasPrice(), new(big.Int).SetUint64(gasLimit))
}

// TokenBalance reads the ERC-20 balance of owner.
func TokenBalance(ctx context.Context, caller bind.ContractCaller, token, owner common.Address) (*big.Int, error) {
	var out []interface{}
	if err := contracts.Bind(contracts.ERC20, token, caller).Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", owner); err != nil {
		return nil, fmt.Errorf("error querying balance of %s: %w", token, err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func ceilDiv(x, y *big.Int) *big.Int {
	q, m := new(big.Int).QuoRem(x, y, new(big.Int))
	if m.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
