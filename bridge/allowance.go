package bridge

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/base-org/zkbridge/contracts"
	"github.com/base-org/zkbridge/zktypes"
)

// Approver submits an ERC-20 approval and returns once it is included.
type Approver interface {
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) error
}

// Allowance reads the L1 allowance owner granted spender.
func (b *Builder) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	out, err := b.call(ctx, contracts.ERC20, token, b.L1, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// EnsureAllowance approves amount through approver when the current allowance is
// short. It reports whether an approval was made.
func (b *Builder) EnsureAllowance(ctx context.Context, token, owner, spender common.Address, amount *big.Int, approver Approver) (bool, error) {
	allowance, err := b.Allowance(ctx, token, owner, spender)
	if err != nil {
		return false, err
	}
	if allowance.Cmp(amount) >= 0 {
		return false, nil
	}
	b.Log.Info("Approving token for deposit", "token", token, "spender", spender, "amount", amount, "allowance", allowance)
	if err := approver.Approve(ctx, token, spender, amount); err != nil {
		return false, &zktypes.ApprovalFailedError{Token: token, Err: err}
	}
	return true, nil
}

// BuildApproveTx builds approve(spender, amount) on an L1 token.
func (b *Builder) BuildApproveTx(ctx context.Context, token, spender common.Address, amount *big.Int, sender common.Address, o *zktypes.Overrides) (*zktypes.Transaction, error) {
	if zktypes.IsETH(token) {
		return nil, &zktypes.ValidationError{Field: "token", Reason: "the native asset needs no approval"}
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, &zktypes.ValidationError{Field: "amount", Reason: "must be non-negative"}
	}
	data, err := contracts.ERC20.Pack("approve", spender, amount)
	if err != nil {
		return nil, err
	}
	price, err := b.Fees.GasPrice(ctx, o)
	if err != nil {
		return nil, err
	}
	return b.l1Tx(sender, token, new(big.Int), data, price, o), nil
}

// DefaultSpender is the bridge a token deposit would be pulled by.
func (b *Builder) DefaultSpender(ctx context.Context, bridgeAddress *common.Address) (common.Address, error) {
	if bridgeAddress != nil {
		return *bridgeAddress, nil
	}
	set, err := b.Contracts.Contracts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return set.L1ERC20Bridge, nil
}
