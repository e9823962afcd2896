package wallet

import (
	"context"

	"github.com/base-org/zkbridge/accounts"
	"github.com/base-org/zkbridge/zktypes"
)

// Transfer moves the native asset or a token on L2. The signer's default paymaster
// applies when req names none, so the gas estimate covers the sponsored call.
func (w *Wallet) Transfer(ctx context.Context, req zktypes.TransferRequest) (*Operation, error) {
	const op = "transfer"
	sender, err := w.Address(ctx)
	if err != nil {
		return nil, stageErr(op, zktypes.StageBuild, err)
	}
	if req.PaymasterParams == nil {
		req.PaymasterParams = accounts.PaymasterOf(w.signer)
	}
	tx, err := w.builder.BuildTransferTx(ctx, req, sender)
	if err != nil {
		return nil, stageErr(op, zktypes.StageBuild, err)
	}
	return w.sendL2(ctx, op, tx)
}

// Withdraw starts moving funds from L2 back to L1. Finalizing the withdrawal on L1 is a
// separate step once the L2 batch is executed.
func (w *Wallet) Withdraw(ctx context.Context, req zktypes.WithdrawRequest) (*Operation, error) {
	const op = "withdraw"
	sender, err := w.Address(ctx)
	if err != nil {
		return nil, stageErr(op, zktypes.StageBuild, err)
	}
	if req.PaymasterParams == nil {
		req.PaymasterParams = accounts.PaymasterOf(w.signer)
	}
	tx, err := w.builder.BuildWithdrawTx(ctx, req, sender)
	if err != nil {
		return nil, stageErr(op, zktypes.StageBuild, err)
	}
	return w.sendL2(ctx, op, tx)
}
