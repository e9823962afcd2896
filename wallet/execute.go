package wallet

import (
	"context"
	"math/big"

	"github.com/base-org/zkbridge/bridge"
	"github.com/base-org/zkbridge/zktypes"
)

// RequestExecute queues an arbitrary L2 call from L1.
func (w *Wallet) RequestExecute(ctx context.Context, params zktypes.RequestExecuteParams) (*Operation, error) {
	const op = "request-execute"
	p, err := w.GetRequestExecuteTx(ctx, params)
	if err != nil {
		return nil, err
	}
	sender := p.Tx.From
	if p.Tx.GasLimit == 0 {
		gas, err := w.fees.EstimateL1Gas(ctx, p.Tx)
		if err != nil {
			return nil, stageErr(op, zktypes.StageEstimate, err)
		}
		p.Tx.GasLimit = gas
	}
	required := new(big.Int).Add(p.Tx.ValueOrZero(), p.GasPrice.MaxL1Fee(p.Tx.GasLimit))
	if err := w.fees.CheckFunds(ctx, sender, zktypes.EthAddress, nil, required); err != nil {
		return nil, stageErr(op, zktypes.StageEstimate, err)
	}

	o, err := w.sendL1(ctx, op, p.Tx)
	if err != nil {
		return nil, err
	}
	o.mainContract = &p.MainContract
	return o, nil
}

// GetRequestExecuteTx builds the request without sending anything.
func (w *Wallet) GetRequestExecuteTx(ctx context.Context, params zktypes.RequestExecuteParams) (*bridge.PriorityTx, error) {
	const op = "get-request-execute-tx"
	sender, err := w.L1Address(ctx)
	if err != nil {
		return nil, stageErr(op, zktypes.StageBuild, err)
	}
	account, err := w.Address(ctx)
	if err != nil {
		return nil, stageErr(op, zktypes.StageBuild, err)
	}
	r, err := bridge.ResolveRequestExecute(params, account)
	if err != nil {
		return nil, stageErr(op, zktypes.StageBuild, err)
	}
	p, err := w.builder.BuildRequestExecuteTx(ctx, r, sender)
	if err != nil {
		return nil, stageErr(op, zktypes.StageBuild, err)
	}
	return p, nil
}

// EstimateGasRequestExecute estimates the L1 gas of a request, margin included.
func (w *Wallet) EstimateGasRequestExecute(ctx context.Context, params zktypes.RequestExecuteParams) (uint64, error) {
	const op = "estimate-gas-request-execute"
	p, err := w.GetRequestExecuteTx(ctx, params)
	if err != nil {
		return 0, err
	}
	gas, err := w.fees.EstimateL1Gas(ctx, p.Tx)
	if err != nil {
		return 0, stageErr(op, zktypes.StageEstimate, err)
	}
	return gas, nil
}
