// Package helpers provides in-memory L1 and L2 nodes for tests.
package helpers

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/base-org/zkbridge/client"
	"github.com/base-org/zkbridge/eip712"
	"github.com/base-org/zkbridge/zktypes"
)

// CallHandler serves an eth_call with unpacked arguments and returns the method outputs.
type CallHandler func(args []interface{}) ([]interface{}, error)

// TxHandler applies the state change of an accepted transaction calling a method.
type TxHandler func(from common.Address, value *big.Int, args []interface{})

// Sent is a transaction accepted by the fake node.
type Sent struct {
	Hash  common.Hash
	From  common.Address
	To    *common.Address
	Value *big.Int
	Data  []byte
	Nonce uint64
	Raw   []byte
}

// Selector returns the 4-byte method id of the call, if any.
func (s Sent) Selector() []byte {
	if len(s.Data) < 4 {
		return nil
	}
	return s.Data[:4]
}

// FakeClient is a scripted node implementing client.L2Client. Its exported fields may be
// set before use; the methods are safe for concurrent use.
type FakeClient struct {
	mu sync.Mutex

	ChainIDValue *big.Int
	// BaseFee nil makes the chain legacy priced.
	BaseFee       *big.Int
	GasTip        *big.Int
	GasPriceValue *big.Int
	GasEstimate   uint64
	// EstimateFn overrides GasEstimate.
	EstimateFn func(msg ethereum.CallMsg) (uint64, error)
	// EstimateTxFn overrides the L2 estimate of full transactions.
	EstimateTxFn func(tx *zktypes.Transaction) (uint64, error)
	L1ToL2Gas    uint64
	Contracts    zktypes.BridgeContracts
	SendErr      error
	// NoReceipts keeps sent transactions pending forever.
	NoReceipts bool
	// ReceiptFn customizes the receipt of an accepted transaction.
	ReceiptFn func(sent Sent) *types.Receipt
	// OnSend observes accepted transactions before their receipt is stored.
	OnSend func(sent Sent)

	balances map[common.Address]*big.Int
	code     map[common.Address][]byte
	nonces   map[common.Address]uint64
	handlers map[common.Address]map[[4]byte]handler
	txs      map[common.Address]map[[4]byte]txHandler
	receipts map[common.Hash]*types.Receipt
	sent     []Sent
	block    uint64
}

type handler struct {
	method abi.Method
	fn     CallHandler
}

type txHandler struct {
	method abi.Method
	fn     TxHandler
}

var _ client.L2Client = (*FakeClient)(nil)

func NewFakeClient(chainID int64) *FakeClient {
	return &FakeClient{
		ChainIDValue:  big.NewInt(chainID),
		BaseFee:       big.NewInt(1_000_000_000),
		GasTip:        big.NewInt(1_500_000_000),
		GasPriceValue: big.NewInt(2_000_000_000),
		GasEstimate:   100_000,
		L1ToL2Gas:     500_000,
		balances:      make(map[common.Address]*big.Int),
		code:          make(map[common.Address][]byte),
		nonces:        make(map[common.Address]uint64),
		handlers:      make(map[common.Address]map[[4]byte]handler),
		txs:           make(map[common.Address]map[[4]byte]txHandler),
		receipts:      make(map[common.Hash]*types.Receipt),
	}
}

func (f *FakeClient) SetBalance(addr common.Address, balance *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[addr] = new(big.Int).Set(balance)
}

func (f *FakeClient) SetCode(addr common.Address, code []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.code[addr] = common.CopyBytes(code)
}

func (f *FakeClient) SetNonce(addr common.Address, nonce uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonces[addr] = nonce
}

// Handle serves calls of method on addr. Registering marks addr as a contract.
func (f *FakeClient) Handle(addr common.Address, parsed *abi.ABI, method string, fn CallHandler) {
	m, ok := parsed.Methods[method]
	if !ok {
		panic(fmt.Sprintf("helpers: unknown method %s", method))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers[addr] == nil {
		f.handlers[addr] = make(map[[4]byte]handler)
	}
	if len(f.code[addr]) == 0 {
		f.code[addr] = []byte{0x60, 0x80}
	}
	f.handlers[addr][[4]byte(m.ID)] = handler{method: m, fn: fn}
}

// HandleTx applies fn whenever a transaction calling method on addr is accepted.
func (f *FakeClient) HandleTx(addr common.Address, parsed *abi.ABI, method string, fn TxHandler) {
	m, ok := parsed.Methods[method]
	if !ok {
		panic(fmt.Sprintf("helpers: unknown method %s", method))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.txs[addr] == nil {
		f.txs[addr] = make(map[[4]byte]txHandler)
	}
	f.txs[addr][[4]byte(m.ID)] = txHandler{method: m, fn: fn}
}

// Sent returns the accepted transactions in submission order.
func (f *FakeClient) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sent(nil), f.sent...)
}

// SetReceipt stores or replaces the receipt of hash.
func (f *FakeClient) SetReceipt(hash common.Hash, receipt *types.Receipt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receipts[hash] = receipt
}

func (f *FakeClient) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.ChainIDValue), nil
}

func (f *FakeClient) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonces[account], nil
}

func (f *FakeClient) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.GasTip), nil
}

func (f *FakeClient) SuggestGasPrice(context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.GasPriceValue), nil
}

func (f *FakeClient) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	if f.EstimateFn != nil {
		return f.EstimateFn(msg)
	}
	return f.GasEstimate, nil
}

func (f *FakeClient) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := &types.Header{Number: new(big.Int).SetUint64(f.block)}
	if f.BaseFee != nil {
		h.BaseFee = new(big.Int).Set(f.BaseFee)
	}
	return h, nil
}

func (f *FakeClient) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.balances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (f *FakeClient) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return common.CopyBytes(f.code[account]), nil
}

func (f *FakeClient) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("fake: unsupported call")
	}
	f.mu.Lock()
	h, ok := f.handlers[*msg.To][[4]byte(msg.Data[:4])]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("fake: no handler for %x on %s", msg.Data[:4], msg.To)
	}
	args, err := h.method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	out, err := h.fn(args)
	if err != nil {
		return nil, err
	}
	return h.method.Outputs.Pack(out...)
}

func (f *FakeClient) SendTransaction(_ context.Context, tx *types.Transaction) error {
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return err
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return err
	}
	return f.accept(Sent{
		Hash:  tx.Hash(),
		From:  from,
		To:    tx.To(),
		Value: tx.Value(),
		Data:  tx.Data(),
		Nonce: tx.Nonce(),
		Raw:   raw,
	})
}

func (f *FakeClient) SendRawTransaction(_ context.Context, raw []byte) (common.Hash, error) {
	tx, sig, err := eip712.Decode(raw)
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := eip712.TxHash(tx, sig)
	if err != nil {
		return common.Hash{}, err
	}
	err = f.accept(Sent{
		Hash:  hash,
		From:  tx.From,
		To:    tx.To,
		Value: tx.ValueOrZero(),
		Data:  tx.Data,
		Nonce: tx.Nonce.Uint64(),
		Raw:   common.CopyBytes(raw),
	})
	if err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

func (f *FakeClient) accept(s Sent) error {
	if f.SendErr != nil {
		return f.SendErr
	}
	if f.OnSend != nil {
		f.OnSend(s)
	}
	if s.To != nil && len(s.Data) >= 4 {
		f.mu.Lock()
		h, ok := f.txs[*s.To][[4]byte(s.Data[:4])]
		f.mu.Unlock()
		if ok {
			args, err := h.method.Inputs.Unpack(s.Data[4:])
			if err != nil {
				return err
			}
			h.fn(s.From, s.Value, args)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, s)
	if s.Nonce+1 > f.nonces[s.From] {
		f.nonces[s.From] = s.Nonce + 1
	}
	if f.NoReceipts {
		return nil
	}
	f.block++
	receipt := &types.Receipt{Status: types.ReceiptStatusSuccessful}
	if f.ReceiptFn != nil {
		receipt = f.ReceiptFn(s)
	}
	if receipt != nil {
		receipt.TxHash = s.Hash
		receipt.BlockNumber = new(big.Int).SetUint64(f.block)
		f.receipts[s.Hash] = receipt
	}
	return nil
}

func (f *FakeClient) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.receipts[txHash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (f *FakeClient) MainContractAddress(context.Context) (common.Address, error) {
	return f.Contracts.MainContract, nil
}

func (f *FakeClient) BridgeContracts(context.Context) (*zktypes.BridgeContracts, error) {
	c := f.Contracts
	return &c, nil
}

func (f *FakeClient) EstimateGasL1ToL2(context.Context, ethereum.CallMsg, *big.Int) (uint64, error) {
	return f.L1ToL2Gas, nil
}

func (f *FakeClient) EstimateGasTx(_ context.Context, tx *zktypes.Transaction) (uint64, error) {
	if f.EstimateTxFn != nil {
		return f.EstimateTxFn(tx)
	}
	return f.EstimateGas(context.Background(), ethereum.CallMsg{From: tx.From, To: tx.To, Value: tx.Value, Data: tx.Data})
}
