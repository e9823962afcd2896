// Package bridge builds the L1 transactions that carry deposits and arbitrary L2 calls
// through the mailbox, and the L2 transactions that withdraw or transfer funds.
package bridge

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/base-org/zkbridge/client"
	"github.com/base-org/zkbridge/contracts"
	"github.com/base-org/zkbridge/fees"
	"github.com/base-org/zkbridge/zktypes"
)

// Builder assembles unsigned transactions. It performs reads only.
type Builder struct {
	L1        client.EthClient
	L1ChainID *big.Int
	L2        client.L2Client
	L2ChainID *big.Int
	Fees      *fees.Estimator
	Contracts *Resolver
	Log       log.Logger
}

// PriorityTx is an L1 transaction carrying an L2 priority operation, along with the
// values it was sized with.
type PriorityTx struct {
	L2Contract        common.Address
	L2Value           *big.Int
	L2Calldata        []byte
	L2GasLimit        *big.Int
	GasPerPubdataByte *big.Int
	BaseCost          *big.Int
	OperatorTip       *big.Int
	GasPrice          *fees.GasPrice
	// MainContract is the mailbox the operation is queued in.
	MainContract common.Address

	Tx *zktypes.Transaction
}

// RequestExecute is a fully resolved arbitrary L1->L2 call.
type RequestExecute struct {
	ContractAddress   common.Address
	Calldata          []byte
	L2Value           *big.Int
	L2GasLimit        *big.Int
	GasPerPubdataByte *big.Int
	FactoryDeps       [][]byte
	OperatorTip       *big.Int
	RefundRecipient   common.Address
	Overrides         *zktypes.Overrides
}

// ResolveRequestExecute validates p and fills its defaults.
func ResolveRequestExecute(p zktypes.RequestExecuteParams, refund common.Address) (*RequestExecute, error) {
	if p.ContractAddress == (common.Address{}) {
		return nil, &zktypes.ValidationError{Field: "contractAddress", Reason: "must be set"}
	}
	if p.L2Value != nil && p.L2Value.Sign() < 0 {
		return nil, &zktypes.ValidationError{Field: "l2Value", Reason: "must be non-negative"}
	}
	if err := checkOptional(p.L2GasLimit, p.GasPerPubdataByte, p.OperatorTip); err != nil {
		return nil, err
	}
	r := &RequestExecute{
		ContractAddress:   p.ContractAddress,
		Calldata:          common.CopyBytes(p.Calldata),
		L2Value:           orZero(p.L2Value),
		L2GasLimit:        copyBig(p.L2GasLimit),
		GasPerPubdataByte: orDefault(p.GasPerPubdataByte, zktypes.RequiredL1ToL2GasPerPubdataLimit),
		OperatorTip:       orZero(p.OperatorTip),
		RefundRecipient:   refund,
		Overrides:         p.Overrides,
	}
	if p.RefundRecipient != nil {
		r.RefundRecipient = *p.RefundRecipient
	}
	for _, dep := range p.FactoryDeps {
		r.FactoryDeps = append(r.FactoryDeps, common.CopyBytes(dep))
	}
	return r, nil
}

// BuildRequestExecuteTx builds requestL2Transaction on the mailbox. The L1 value is
// l2Value + baseCost + operatorTip.
func (b *Builder) BuildRequestExecuteTx(ctx context.Context, r *RequestExecute, sender common.Address) (*PriorityTx, error) {
	l2Sender, err := b.l2Sender(ctx, sender)
	if err != nil {
		return nil, err
	}
	p, err := b.price(ctx, fees.L2Message{
		From:              l2Sender,
		To:                r.ContractAddress,
		Value:             r.L2Value,
		Calldata:          r.Calldata,
		GasPerPubdataByte: r.GasPerPubdataByte,
	}, r.L2GasLimit, r.OperatorTip, r.Overrides)
	if err != nil {
		return nil, err
	}

	deps := r.FactoryDeps
	if deps == nil {
		deps = [][]byte{}
	}
	data, err := contracts.Mailbox.Pack("requestL2Transaction",
		r.ContractAddress, r.L2Value, nonNil(r.Calldata), p.L2GasLimit, p.GasPerPubdataByte, deps, r.RefundRecipient)
	if err != nil {
		return nil, fmt.Errorf("error encoding requestL2Transaction: %w", err)
	}
	value := new(big.Int).Add(r.L2Value, p.BaseCost)
	value.Add(value, p.OperatorTip)
	if err := b.finish(p, sender, p.MainContract, value, data, r.Overrides); err != nil {
		return nil, err
	}
	return p, nil
}

// price sizes the L2 side of a priority operation and its base cost.
func (b *Builder) price(ctx context.Context, msg fees.L2Message, l2GasLimit, tip *big.Int, o *zktypes.Overrides) (*PriorityTx, error) {
	set, err := b.Contracts.Contracts(ctx)
	if err != nil {
		return nil, err
	}
	if l2GasLimit == nil {
		if l2GasLimit, err = b.Fees.L2GasLimit(ctx, msg); err != nil {
			return nil, err
		}
	}
	price, err := b.Fees.GasPrice(ctx, o)
	if err != nil {
		return nil, err
	}
	baseCost, err := b.Fees.PriorityBaseCost(ctx, set.MainContract, l2GasLimit, msg.GasPerPubdataByte, price.L1GasPrice())
	if err != nil {
		return nil, err
	}
	return &PriorityTx{
		L2Contract:        msg.To,
		L2Value:           orZero(msg.Value),
		L2Calldata:        msg.Calldata,
		L2GasLimit:        l2GasLimit,
		GasPerPubdataByte: msg.GasPerPubdataByte,
		BaseCost:          baseCost,
		OperatorTip:       tip,
		GasPrice:          price,
		MainContract:      set.MainContract,
	}, nil
}

// finish assembles the L1 transaction. An override value may add to the required value
// but never reduce it.
func (b *Builder) finish(p *PriorityTx, sender, target common.Address, required *big.Int, data []byte, o *zktypes.Overrides) error {
	value := required
	if o != nil && o.Value != nil {
		if o.Value.Cmp(required) < 0 {
			return &zktypes.ValidationError{
				Field:  "value",
				Reason: fmt.Sprintf("override %s is below the required %s", o.Value, required),
			}
		}
		value = new(big.Int).Set(o.Value)
	}
	p.Tx = b.l1Tx(sender, target, value, data, p.GasPrice, o)
	return nil
}

func (b *Builder) l1Tx(sender, target common.Address, value *big.Int, data []byte, price *fees.GasPrice, o *zktypes.Overrides) *zktypes.Transaction {
	tx := &zktypes.Transaction{
		ChainID: new(big.Int).Set(b.L1ChainID),
		From:    sender,
		To:      &target,
		Value:   value,
		Data:    data,
	}
	price.Apply(tx)
	applyNonceAndGas(tx, o)
	return tx
}

// l2Sender is the address the L2 sees for sender: contracts are aliased.
func (b *Builder) l2Sender(ctx context.Context, sender common.Address) (common.Address, error) {
	code, err := b.L1.CodeAt(ctx, sender, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("error querying code of %s: %w", sender, err)
	}
	if len(code) > 0 {
		return ApplyL1ToL2Alias(sender), nil
	}
	return sender, nil
}

func (b *Builder) call(ctx context.Context, parsed *abi.ABI, address common.Address, caller bind.ContractCaller, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := contracts.Bind(parsed, address, caller).Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("error calling %s on %s: %w", method, address, err)
	}
	return out, nil
}

func applyNonceAndGas(tx *zktypes.Transaction, o *zktypes.Overrides) {
	if o == nil {
		return
	}
	if o.Nonce != nil {
		tx.Nonce = new(big.Int).SetUint64(*o.Nonce)
	}
	if o.GasLimit != 0 {
		tx.GasLimit = o.GasLimit
	}
}

func checkOptional(l2GasLimit, gasPerPubdata, tip *big.Int) error {
	if l2GasLimit != nil && l2GasLimit.Sign() <= 0 {
		return &zktypes.ValidationError{Field: "l2GasLimit", Reason: "must be positive"}
	}
	if gasPerPubdata != nil && gasPerPubdata.Sign() <= 0 {
		return &zktypes.ValidationError{Field: "gasPerPubdataByte", Reason: "must be positive"}
	}
	if tip != nil && tip.Sign() < 0 {
		return &zktypes.ValidationError{Field: "operatorTip", Reason: "must be non-negative"}
	}
	return nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

func orDefault(v *big.Int, def int64) *big.Int {
	if v == nil {
		return big.NewInt(def)
	}
	return new(big.Int).Set(v)
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
