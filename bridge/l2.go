package bridge

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/base-org/zkbridge/contracts"
	"github.com/base-org/zkbridge/zktypes"
)

// BuildWithdrawTx builds the L2 transaction starting a withdrawal. Native funds are
// burned through the L2 ETH token contract; tokens through the L2 bridge.
func (b *Builder) BuildWithdrawTx(ctx context.Context, req zktypes.WithdrawRequest, sender common.Address) (*zktypes.Transaction, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, &zktypes.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	to := sender
	if req.To != nil {
		to = *req.To
	}

	if zktypes.IsETH(req.Token) {
		data, err := contracts.EthToken.Pack("withdraw", to)
		if err != nil {
			return nil, fmt.Errorf("error encoding withdraw: %w", err)
		}
		return b.l2Tx(ctx, sender, zktypes.L2EthTokenAddress, req.Amount, data, req.PaymasterParams, req.Overrides)
	}

	var l2Bridge common.Address
	if req.BridgeAddress != nil {
		l2Bridge = *req.BridgeAddress
	} else {
		set, err := b.Contracts.Contracts(ctx)
		if err != nil {
			return nil, err
		}
		l2Bridge = set.L2ERC20Bridge
	}
	if l2Bridge == (common.Address{}) {
		return nil, &zktypes.UnsupportedTokenError{Token: req.Token, Reason: "no L2 bridge"}
	}
	data, err := contracts.L2Bridge.Pack("withdraw", to, req.Token, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("error encoding withdraw: %w", err)
	}
	return b.l2Tx(ctx, sender, l2Bridge, new(big.Int), data, req.PaymasterParams, req.Overrides)
}

// BuildTransferTx builds an L2 transfer of the native asset or a token.
func (b *Builder) BuildTransferTx(ctx context.Context, req zktypes.TransferRequest, sender common.Address) (*zktypes.Transaction, error) {
	if req.Amount == nil || req.Amount.Sign() < 0 {
		return nil, &zktypes.ValidationError{Field: "amount", Reason: "must be non-negative"}
	}
	if req.To == (common.Address{}) {
		return nil, &zktypes.ValidationError{Field: "to", Reason: "must be set"}
	}
	if zktypes.IsETH(req.Token) {
		return b.l2Tx(ctx, sender, req.To, req.Amount, nil, req.PaymasterParams, req.Overrides)
	}
	data, err := contracts.ERC20.Pack("transfer", req.To, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("error encoding transfer: %w", err)
	}
	return b.l2Tx(ctx, sender, req.Token, new(big.Int), data, req.PaymasterParams, req.Overrides)
}

// l2Tx populates a type 0x71 transaction. Without fee overrides the L2 gas price is
// used as max fee with no priority fee. The gas limit is estimated by the L2 node
// unless overridden.
func (b *Builder) l2Tx(ctx context.Context, sender, to common.Address, value *big.Int, data []byte, pm *zktypes.PaymasterParams, o *zktypes.Overrides) (*zktypes.Transaction, error) {
	tx := &zktypes.Transaction{
		ChainID: new(big.Int).Set(b.L2ChainID),
		From:    sender,
		To:      &to,
		Value:   new(big.Int).Set(value),
		Data:    data,
		Meta: &zktypes.Eip712Meta{
			GasPerPubdata:   big.NewInt(zktypes.DefaultGasPerPubdataLimit),
			PaymasterParams: pm.Copy(),
		},
	}
	if o != nil && o.Value != nil {
		tx.Value = new(big.Int).Set(o.Value)
	}

	switch {
	case o.HasGasPrice():
		maxFee := o.MaxFeePerGas
		if maxFee == nil {
			maxFee = o.GasPrice
		}
		tx.MaxFeePerGas = new(big.Int).Set(maxFee)
		tx.MaxPriorityFeePerGas = orZero(o.MaxPriorityFeePerGas)
		if tx.MaxFeePerGas.Cmp(tx.MaxPriorityFeePerGas) < 0 {
			return nil, &zktypes.ValidationError{Field: "maxFeePerGas", Reason: "below maxPriorityFeePerGas"}
		}
	default:
		price, err := b.L2.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("error querying L2 gas price: %w", err)
		}
		tx.MaxFeePerGas = price
		tx.MaxPriorityFeePerGas = new(big.Int)
	}

	applyNonceAndGas(tx, o)
	if tx.GasLimit == 0 {
		gas, err := b.L2.EstimateGasTx(ctx, tx)
		if err != nil {
			return nil, fmt.Errorf("error estimating L2 gas: %w", err)
		}
		tx.GasLimit = gas
	}
	return tx, nil
}
