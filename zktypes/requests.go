package zktypes

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Overrides replace computed transaction fields. Nil or zero fields are ignored.
type Overrides struct {
	Nonce                *uint64
	GasLimit             uint64
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	Value                *big.Int
}

// HasGasPrice reports whether the caller fixed the fee fields.
func (o *Overrides) HasGasPrice() bool {
	return o != nil && (o.GasPrice != nil || o.MaxFeePerGas != nil)
}

// DepositRequest moves Amount of Token from L1 to To on L2.
type DepositRequest struct {
	// Token is EthAddress for the native asset or an L1 ERC-20 address.
	Token  common.Address
	Amount *big.Int
	// To defaults to the sender.
	To *common.Address
	// RefundRecipient receives unspent L2 gas. Defaults to the sender.
	RefundRecipient *common.Address
	OperatorTip     *big.Int
	// L2GasLimit skips L2 gas derivation when set.
	L2GasLimit *big.Int
	// GasPerPubdataByte defaults to RequiredL1ToL2GasPerPubdataLimit.
	GasPerPubdataByte *big.Int
	// BridgeAddress selects a custom L1 bridge for ERC-20 deposits.
	BridgeAddress *common.Address
	// ApproveERC20 issues an approval first when the allowance is short.
	ApproveERC20 bool
	Overrides    *Overrides
}

// RequestExecuteParams triggers arbitrary L2 execution from L1.
type RequestExecuteParams struct {
	ContractAddress   common.Address
	Calldata          []byte
	L2Value           *big.Int
	L2GasLimit        *big.Int
	GasPerPubdataByte *big.Int
	FactoryDeps       [][]byte
	OperatorTip       *big.Int
	RefundRecipient   *common.Address
	Overrides         *Overrides
}

// TransferRequest moves value on L2 without bridging.
type TransferRequest struct {
	// Token is EthAddress (or L2EthTokenAddress) for the native asset or an L2 ERC-20.
	Token           common.Address
	To              common.Address
	Amount          *big.Int
	PaymasterParams *PaymasterParams
	Overrides       *Overrides
}

// WithdrawRequest starts an L2->L1 withdrawal.
type WithdrawRequest struct {
	// Token is EthAddress for the native asset or the L2 ERC-20 address.
	Token  common.Address
	Amount *big.Int
	// To is the L1 receiver; defaults to the sender.
	To *common.Address
	// BridgeAddress selects a custom L2 bridge for ERC-20 withdrawals.
	BridgeAddress   *common.Address
	PaymasterParams *PaymasterParams
	Overrides       *Overrides
}

// BridgeContracts is the set of bridge entry points of one L1/L2 pairing.
type BridgeContracts struct {
	MainContract  common.Address
	L1ERC20Bridge common.Address
	L2ERC20Bridge common.Address
	L1WethBridge  common.Address
	L2WethBridge  common.Address
}
