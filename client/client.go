// Package client defines the slices of the L1 and L2 JSON-RPC APIs the bridge relies
// on and an L2 client speaking the zks_* namespace.
package client

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/base-org/zkbridge/zktypes"
)

// EthClient is the subset of go-ethereum's client the bridge needs on either layer.
// *ethclient.Client satisfies it.
type EthClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// L2Client adds the L2-specific endpoints.
type L2Client interface {
	EthClient
	// SendRawTransaction submits pre-encoded bytes, including type 0x71 envelopes.
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)
	MainContractAddress(ctx context.Context) (common.Address, error)
	BridgeContracts(ctx context.Context) (*zktypes.BridgeContracts, error)
	// EstimateGasL1ToL2 estimates the L2 gas of a priority operation.
	EstimateGasL1ToL2(ctx context.Context, msg ethereum.CallMsg, gasPerPubdata *big.Int) (uint64, error)
	// EstimateGasTx estimates an L2 transaction including its eip712 meta.
	EstimateGasTx(ctx context.Context, tx *zktypes.Transaction) (uint64, error)
}

var _ L2Client = (*Client)(nil)

// Client is the RPC-backed L2Client.
type Client struct {
	*ethclient.Client
	rpc *rpc.Client
}

// Dial connects to an L2 node.
func Dial(ctx context.Context, url string) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("error dialing L2 client: %w", err)
	}
	return NewClient(c), nil
}

// NewClient wraps an existing RPC connection.
func NewClient(c *rpc.Client) *Client {
	return &Client{Client: ethclient.NewClient(c), rpc: c}
}

func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var hash common.Hash
	if err := c.rpc.CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Bytes(raw)); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

func (c *Client) MainContractAddress(ctx context.Context) (common.Address, error) {
	var addr common.Address
	if err := c.rpc.CallContext(ctx, &addr, "zks_getMainContract"); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

type bridgeContractsResponse struct {
	L1ERC20DefaultBridge common.Address `json:"l1Erc20DefaultBridge"`
	L2ERC20DefaultBridge common.Address `json:"l2Erc20DefaultBridge"`
	L1WethBridge         common.Address `json:"l1WethBridge"`
	L2WethBridge         common.Address `json:"l2WethBridge"`
}

func (c *Client) BridgeContracts(ctx context.Context) (*zktypes.BridgeContracts, error) {
	main, err := c.MainContractAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("zks_getMainContract: %w", err)
	}
	var res bridgeContractsResponse
	if err := c.rpc.CallContext(ctx, &res, "zks_getBridgeContracts"); err != nil {
		return nil, fmt.Errorf("zks_getBridgeContracts: %w", err)
	}
	return &zktypes.BridgeContracts{
		MainContract:  main,
		L1ERC20Bridge: res.L1ERC20DefaultBridge,
		L2ERC20Bridge: res.L2ERC20DefaultBridge,
		L1WethBridge:  res.L1WethBridge,
		L2WethBridge:  res.L2WethBridge,
	}, nil
}

type paymasterParamsArg struct {
	Paymaster      common.Address `json:"paymaster"`
	PaymasterInput hexutil.Bytes  `json:"paymasterInput"`
}

type eip712MetaArg struct {
	GasPerPubdata   *hexutil.Big        `json:"gasPerPubdata,omitempty"`
	FactoryDeps     []hexutil.Bytes     `json:"factoryDeps,omitempty"`
	CustomSignature hexutil.Bytes       `json:"customSignature,omitempty"`
	PaymasterParams *paymasterParamsArg `json:"paymasterParams,omitempty"`
}

type callArg struct {
	From                 common.Address  `json:"from"`
	To                   *common.Address `json:"to,omitempty"`
	Data                 hexutil.Bytes   `json:"data,omitempty"`
	Value                *hexutil.Big    `json:"value,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
	TransactionType      *hexutil.Uint64 `json:"transactionType,omitempty"`
	Eip712Meta           *eip712MetaArg  `json:"eip712Meta,omitempty"`
}

func (c *Client) EstimateGasL1ToL2(ctx context.Context, msg ethereum.CallMsg, gasPerPubdata *big.Int) (uint64, error) {
	arg := callArg{
		From:  msg.From,
		To:    msg.To,
		Data:  msg.Data,
		Value: (*hexutil.Big)(msg.Value),
	}
	if gasPerPubdata != nil {
		arg.Eip712Meta = &eip712MetaArg{GasPerPubdata: (*hexutil.Big)(gasPerPubdata)}
	}
	var gas hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &gas, "zks_estimateGasL1ToL2", arg); err != nil {
		return 0, err
	}
	return uint64(gas), nil
}

func (c *Client) EstimateGasTx(ctx context.Context, tx *zktypes.Transaction) (uint64, error) {
	arg := callArg{
		From:                 tx.From,
		To:                   tx.To,
		Data:                 tx.Data,
		Value:                (*hexutil.Big)(tx.Value),
		MaxFeePerGas:         (*hexutil.Big)(tx.MaxFeePerGas),
		MaxPriorityFeePerGas: (*hexutil.Big)(tx.MaxPriorityFeePerGas),
	}
	if meta := tx.Meta; meta != nil {
		txType := hexutil.Uint64(zktypes.EIP712TxType)
		arg.TransactionType = &txType
		arg.Eip712Meta = &eip712MetaArg{
			GasPerPubdata:   (*hexutil.Big)(meta.GasPerPubdata),
			CustomSignature: meta.CustomSignature,
		}
		for _, dep := range meta.FactoryDeps {
			arg.Eip712Meta.FactoryDeps = append(arg.Eip712Meta.FactoryDeps, dep)
		}
		if pp := meta.PaymasterParams; pp != nil {
			arg.Eip712Meta.PaymasterParams = &paymasterParamsArg{
				Paymaster:      pp.Paymaster,
				PaymasterInput: pp.PaymasterInput,
			}
		}
	}
	var gas hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &gas, "eth_estimateGas", arg); err != nil {
		return 0, err
	}
	return uint64(gas), nil
}
