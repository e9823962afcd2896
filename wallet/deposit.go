package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/base-org/zkbridge/bridge"
	"github.com/base-org/zkbridge/fees"
	"github.com/base-org/zkbridge/zktypes"
)

// Deposit moves funds from L1 to L2. With ApproveERC20 set, a short token allowance is
// raised first and the approval confirmed before the deposit is sent.
func (w *Wallet) Deposit(ctx context.Context, req zktypes.DepositRequest) (*Operation, error) {
	const op = "deposit"
	d, sender, err := w.resolveDeposit(ctx, req)
	if err != nil {
		return nil, stageErr(op, zktypes.StageBuild, err)
	}
	dtx, err := w.builder.BuildDepositTx(ctx, d, sender)
	if err != nil {
		return nil, stageErr(op, zktypes.StageBuild, err)
	}
	if err := w.fees.CheckFunds(ctx, sender, d.Token, d.Amount, dtx.Tx.ValueOrZero()); err != nil {
		return nil, stageErr(op, zktypes.StageEstimate, err)
	}

	if !d.IsETH() && d.ApproveERC20 {
		approved, err := w.builder.EnsureAllowance(ctx, d.Token, sender, dtx.Spender, d.Amount, approver{w})
		if err != nil {
			return nil, stageErr(op, zktypes.StageBuild, err)
		}
		// Prices quoted before the approval confirmed are stale.
		if approved {
			if dtx, err = w.builder.BuildDepositTx(ctx, d, sender); err != nil {
				return nil, stageErr(op, zktypes.StageBuild, err)
			}
		}
	}

	if dtx.Tx.GasLimit == 0 {
		gas, err := w.fees.EstimateL1Gas(ctx, dtx.Tx)
		if err != nil {
			return nil, stageErr(op, zktypes.StageEstimate, err)
		}
		dtx.Tx.GasLimit = gas
	}
	required := new(big.Int).Add(dtx.Tx.ValueOrZero(), dtx.GasPrice.MaxL1Fee(dtx.Tx.GasLimit))
	if err := w.fees.CheckFunds(ctx, sender, d.Token, d.Amount, required); err != nil {
		return nil, stageErr(op, zktypes.StageEstimate, err)
	}

	o, err := w.sendL1(ctx, op, dtx.Tx)
	if err != nil {
		return nil, err
	}
	o.mainContract = &dtx.MainContract
	return o, nil
}

// resolveDeposit validates req and returns it with the L1 sender paying for it. The L2
// recipient and refund recipient default to the L2 account, which differs from the L1
// key for smart accounts.
func (w *Wallet) resolveDeposit(ctx context.Context, req zktypes.DepositRequest) (*bridge.Deposit, common.Address, error) {
	sender, err := w.L1Address(ctx)
	if err != nil {
		return nil, common.Address{}, err
	}
	account, err := w.Address(ctx)
	if err != nil {
		return nil, common.Address{}, err
	}
	d, err := bridge.ResolveDeposit(req, account)
	if err != nil {
		return nil, common.Address{}, err
	}
	return d, sender, nil
}

// GetDepositTx builds the deposit transaction without sending anything.
func (w *Wallet) GetDepositTx(ctx context.Context, req zktypes.DepositRequest) (*bridge.DepositTx, error) {
	const op = "get-deposit-tx"
	d, sender, err := w.resolveDeposit(ctx, req)
	if err != nil {
		return nil, stageErr(op, zktypes.StageBuild, err)
	}
	dtx, err := w.builder.BuildDepositTx(ctx, d, sender)
	if err != nil {
		return nil, stageErr(op, zktypes.StageBuild, err)
	}
	return dtx, nil
}

// EstimateGasDeposit estimates the L1 gas of a deposit, margin included.
func (w *Wallet) EstimateGasDeposit(ctx context.Context, req zktypes.DepositRequest) (uint64, error) {
	const op = "estimate-gas-deposit"
	dtx, err := w.GetDepositTx(ctx, req)
	if err != nil {
		return 0, err
	}
	gas, err := w.fees.EstimateL1Gas(ctx, dtx.Tx)
	if err != nil {
		return 0, stageErr(op, zktypes.StageEstimate, err)
	}
	return gas, nil
}

// GetFullRequiredDepositFee quotes a deposit. A missing amount is priced as the smallest
// possible deposit. Token deposits need an allowance covering the amount, since the L1
// gas cannot be estimated otherwise.
func (w *Wallet) GetFullRequiredDepositFee(ctx context.Context, req zktypes.DepositRequest) (*zktypes.FeeQuote, error) {
	const op = "get-full-required-deposit-fee"
	if req.Amount == nil || req.Amount.Sign() == 0 {
		req.Amount = big.NewInt(1)
	}
	sender, err := w.L1Address(ctx)
	if err != nil {
		return nil, stageErr(op, zktypes.StageBuild, err)
	}
	dtx, err := w.GetDepositTx(ctx, req)
	if err != nil {
		return nil, err
	}

	balance, err := w.l1.BalanceAt(ctx, sender, nil)
	if err != nil {
		return nil, stageErr(op, zktypes.StageEstimate, err)
	}
	if balance.Cmp(dtx.Tx.ValueOrZero()) < 0 {
		return nil, stageErr(op, zktypes.StageEstimate, &zktypes.InsufficientFundsError{
			Token:     zktypes.EthAddress,
			Required:  dtx.Tx.ValueOrZero(),
			Available: balance,
		})
	}
	if !dtx.Deposit.IsETH() {
		allowance, err := w.builder.Allowance(ctx, dtx.Deposit.Token, sender, dtx.Spender)
		if err != nil {
			return nil, stageErr(op, zktypes.StageEstimate, err)
		}
		if allowance.Cmp(dtx.Deposit.Amount) < 0 {
			return nil, stageErr(op, zktypes.StageEstimate, &zktypes.ValidationError{
				Field:  "allowance",
				Reason: "not enough allowance to cover the deposit",
			})
		}
	}

	l1Gas := dtx.Tx.GasLimit
	if l1Gas == 0 {
		if l1Gas, err = w.fees.EstimateL1Gas(ctx, dtx.Tx); err != nil {
			return nil, stageErr(op, zktypes.StageEstimate, err)
		}
	}
	quote, err := fees.Quote(dtx.GasPrice, dtx.BaseCost, l1Gas, dtx.L2GasLimit)
	if err != nil {
		return nil, stageErr(op, zktypes.StageEstimate, err)
	}
	return quote, nil
}

// ApproveERC20 lets the token bridge (the default one unless bridgeAddress is set) pull
// amount of token from the L1 account.
func (w *Wallet) ApproveERC20(ctx context.Context, token common.Address, amount *big.Int, bridgeAddress *common.Address, o *zktypes.Overrides) (*Operation, error) {
	const op = "approve"
	sender, err := w.L1Address(ctx)
	if err != nil {
		return nil, stageErr(op, zktypes.StageBuild, err)
	}
	spender, err := w.builder.DefaultSpender(ctx, bridgeAddress)
	if err != nil {
		return nil, stageErr(op, zktypes.StageBuild, err)
	}
	tx, err := w.builder.BuildApproveTx(ctx, token, spender, amount, sender, o)
	if err != nil {
		return nil, stageErr(op, zktypes.StageBuild, err)
	}
	return w.sendL1(ctx, op, tx)
}

// approver raises allowances on behalf of a deposit.
type approver struct {
	w *Wallet
}

func (a approver) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) error {
	o, err := a.w.ApproveERC20(ctx, token, amount, &spender, nil)
	if err != nil {
		return err
	}
	_, err = o.Wait(ctx, a.w.cfg.approvalTimeout)
	return err
}
