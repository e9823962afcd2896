package bridge

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/base-org/zkbridge/contracts"
	"github.com/base-org/zkbridge/fees"
	"github.com/base-org/zkbridge/zktypes"
)

// Deposit is a fully resolved deposit request.
type Deposit struct {
	Token           common.Address
	Amount          *big.Int
	To              common.Address
	RefundRecipient common.Address
	OperatorTip     *big.Int
	// L2GasLimit is nil when it should be derived.
	L2GasLimit        *big.Int
	GasPerPubdataByte *big.Int
	BridgeAddress     *common.Address
	ApproveERC20      bool
	Overrides         *zktypes.Overrides
}

// IsETH reports whether the deposit moves the native asset.
func (d *Deposit) IsETH() bool {
	return zktypes.IsETH(d.Token)
}

// ResolveDeposit validates req and fills its defaults: the L2 recipient and refund
// recipient are recipient, the tip is zero and the pubdata price is the L1->L2 requirement.
func ResolveDeposit(req zktypes.DepositRequest, recipient common.Address) (*Deposit, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, &zktypes.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if err := checkOptional(req.L2GasLimit, req.GasPerPubdataByte, req.OperatorTip); err != nil {
		return nil, err
	}
	d := &Deposit{
		Token:             req.Token,
		Amount:            new(big.Int).Set(req.Amount),
		To:                recipient,
		RefundRecipient:   recipient,
		OperatorTip:       orZero(req.OperatorTip),
		L2GasLimit:        copyBig(req.L2GasLimit),
		GasPerPubdataByte: orDefault(req.GasPerPubdataByte, zktypes.RequiredL1ToL2GasPerPubdataLimit),
		ApproveERC20:      req.ApproveERC20,
		Overrides:         req.Overrides,
	}
	if zktypes.IsETH(d.Token) {
		d.Token = zktypes.EthAddress
	}
	if req.To != nil {
		d.To = *req.To
	}
	if req.RefundRecipient != nil {
		d.RefundRecipient = *req.RefundRecipient
	}
	if req.BridgeAddress != nil {
		addr := *req.BridgeAddress
		d.BridgeAddress = &addr
	}
	return d, nil
}

// DepositTx is a built deposit. For tokens, Spender is the bridge that must be allowed
// to pull Amount.
type DepositTx struct {
	PriorityTx
	Deposit *Deposit
	Spender common.Address
}

// BuildDepositTx builds the L1 transaction of d. Native deposits go through the mailbox
// and carry amount + baseCost + tip; token deposits go through the L1 bridge and carry
// baseCost + tip.
func (b *Builder) BuildDepositTx(ctx context.Context, d *Deposit, sender common.Address) (*DepositTx, error) {
	if d.IsETH() {
		p, err := b.BuildRequestExecuteTx(ctx, &RequestExecute{
			ContractAddress:   d.To,
			L2Value:           d.Amount,
			L2GasLimit:        d.L2GasLimit,
			GasPerPubdataByte: d.GasPerPubdataByte,
			OperatorTip:       d.OperatorTip,
			RefundRecipient:   d.RefundRecipient,
			Overrides:         d.Overrides,
		}, sender)
		if err != nil {
			return nil, err
		}
		return &DepositTx{PriorityTx: *p, Deposit: d}, nil
	}
	return b.buildTokenDeposit(ctx, d, sender)
}

func (b *Builder) buildTokenDeposit(ctx context.Context, d *Deposit, sender common.Address) (*DepositTx, error) {
	l1Bridge, l2Bridge, err := b.tokenBridges(ctx, d)
	if err != nil {
		return nil, err
	}
	code, err := b.L1.CodeAt(ctx, d.Token, nil)
	if err != nil {
		return nil, fmt.Errorf("error querying code of %s: %w", d.Token, err)
	}
	if len(code) == 0 {
		return nil, &zktypes.UnsupportedTokenError{Token: d.Token, Reason: "no contract on L1"}
	}
	bridgeData, err := b.tokenBridgeData(ctx, d.Token)
	if err != nil {
		return nil, err
	}
	l2Calldata, err := contracts.L2Bridge.Pack("finalizeDeposit", sender, d.To, d.Token, d.Amount, bridgeData)
	if err != nil {
		return nil, fmt.Errorf("error encoding finalizeDeposit: %w", err)
	}

	p, err := b.price(ctx, fees.L2Message{
		From:              ApplyL1ToL2Alias(l1Bridge),
		To:                l2Bridge,
		Calldata:          l2Calldata,
		GasPerPubdataByte: d.GasPerPubdataByte,
	}, d.L2GasLimit, d.OperatorTip, d.Overrides)
	if err != nil {
		return nil, err
	}
	data, err := contracts.L1ERC20Bridge.Pack("deposit", d.To, d.Token, d.Amount, p.L2GasLimit, p.GasPerPubdataByte, d.RefundRecipient)
	if err != nil {
		return nil, fmt.Errorf("error encoding deposit: %w", err)
	}
	value := new(big.Int).Add(p.BaseCost, p.OperatorTip)
	if err := b.finish(p, sender, l1Bridge, value, data, d.Overrides); err != nil {
		return nil, err
	}
	return &DepositTx{PriorityTx: *p, Deposit: d, Spender: l1Bridge}, nil
}

// tokenBridges returns the L1 bridge serving d and its L2 counterpart.
func (b *Builder) tokenBridges(ctx context.Context, d *Deposit) (common.Address, common.Address, error) {
	if d.BridgeAddress != nil {
		out, err := b.call(ctx, contracts.L1ERC20Bridge, *d.BridgeAddress, b.L1, "l2Bridge")
		if err != nil {
			return common.Address{}, common.Address{}, &zktypes.UnsupportedTokenError{Token: d.Token, Reason: err.Error()}
		}
		return *d.BridgeAddress, *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
	}
	set, err := b.Contracts.Contracts(ctx)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	if set.L1ERC20Bridge == (common.Address{}) {
		return common.Address{}, common.Address{}, &zktypes.UnsupportedTokenError{Token: d.Token, Reason: "no default L1 bridge"}
	}
	return set.L1ERC20Bridge, set.L2ERC20Bridge, nil
}

var (
	bytesTriple = abi.Arguments{{Type: mustType("bytes")}, {Type: mustType("bytes")}, {Type: mustType("bytes")}}
	stringArg   = abi.Arguments{{Type: mustType("string")}}
	uint256Arg  = abi.Arguments{{Type: mustType("uint256")}}
)

// tokenBridgeData is the metadata the L2 bridge uses to deploy the bridged token:
// abi.encode(abi.encode(name), abi.encode(symbol), abi.encode(decimals)).
func (b *Builder) tokenBridgeData(ctx context.Context, token common.Address) ([]byte, error) {
	unsupported := func(err error) error {
		return &zktypes.UnsupportedTokenError{Token: token, Reason: err.Error()}
	}
	name, err := b.call(ctx, contracts.ERC20, token, b.L1, "name")
	if err != nil {
		return nil, unsupported(err)
	}
	symbol, err := b.call(ctx, contracts.ERC20, token, b.L1, "symbol")
	if err != nil {
		return nil, unsupported(err)
	}
	decimals, err := b.call(ctx, contracts.ERC20, token, b.L1, "decimals")
	if err != nil {
		return nil, unsupported(err)
	}

	nameEnc, err := stringArg.Pack(*abi.ConvertType(name[0], new(string)).(*string))
	if err != nil {
		return nil, err
	}
	symbolEnc, err := stringArg.Pack(*abi.ConvertType(symbol[0], new(string)).(*string))
	if err != nil {
		return nil, err
	}
	dec := *abi.ConvertType(decimals[0], new(uint8)).(*uint8)
	decimalsEnc, err := uint256Arg.Pack(new(big.Int).SetUint64(uint64(dec)))
	if err != nil {
		return nil, err
	}
	return bytesTriple.Pack(nameEnc, symbolEnc, decimalsEnc)
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}
