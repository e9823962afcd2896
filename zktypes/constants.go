package zktypes

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// EIP712TxType is the envelope type of L2-native transactions.
	EIP712TxType = 0x71

	// DefaultGasPerPubdataLimit is the gas-per-pubdata limit attached to L2 transactions
	// when the caller does not provide one.
	DefaultGasPerPubdataLimit = 50_000

	// RequiredL1ToL2GasPerPubdataLimit is the network-wide gas-per-pubdata value that
	// L1->L2 priority operations must carry.
	RequiredL1ToL2GasPerPubdataLimit = 800
)

var (
	// EthAddress is the sentinel token address standing for the native asset.
	EthAddress = common.Address{}

	// L2EthTokenAddress is the system contract holding native balances on L2.
	L2EthTokenAddress = common.HexToAddress("0x000000000000000000000000000000000000800a")
)

// IsETH reports whether token is the native asset, on either layer.
func IsETH(token common.Address) bool {
	return token == EthAddress || token == L2EthTokenAddress
}

// bigOrZero returns a copy of v, or zero when v is nil.
func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
