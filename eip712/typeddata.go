// Package eip712 encodes L2-native (type 0x71) transactions: the typed-data payload
// their signatures commit to, the RLP envelope submitted to the node, and the
// transaction hash the node reports.
package eip712

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/base-org/zkbridge/zktypes"
)

const (
	domainName    = "zkSync"
	domainVersion = "2"
	primaryType   = "Transaction"
)

var errNotEIP712 = errors.New("transaction has no eip712 meta")

var transactionTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
	},
	primaryType: {
		{Name: "txType", Type: "uint256"},
		{Name: "from", Type: "uint256"},
		{Name: "to", Type: "uint256"},
		{Name: "gasLimit", Type: "uint256"},
		{Name: "gasPerPubdataByteLimit", Type: "uint256"},
		{Name: "maxFeePerGas", Type: "uint256"},
		{Name: "maxPriorityFeePerGas", Type: "uint256"},
		{Name: "paymaster", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "value", Type: "uint256"},
		{Name: "data", Type: "bytes"},
		{Name: "factoryDeps", Type: "bytes32[]"},
		{Name: "paymasterInput", Type: "bytes"},
	},
}

// Domain returns the signing domain of the given L2 chain.
func Domain(chainID *big.Int) apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:    domainName,
		Version: domainVersion,
		ChainId: (*math.HexOrDecimal256)(new(big.Int).Set(chainID)),
	}
}

// TypedData builds the typed-data document of tx.
func TypedData(tx *zktypes.Transaction) (apitypes.TypedData, error) {
	if tx.Meta == nil {
		return apitypes.TypedData{}, errNotEIP712
	}
	if tx.ChainID == nil {
		return apitypes.TypedData{}, &zktypes.IncompleteTransactionError{Field: "chainId"}
	}

	deps := make([]interface{}, len(tx.Meta.FactoryDeps))
	for i, dep := range tx.Meta.FactoryDeps {
		h, err := HashBytecode(dep)
		if err != nil {
			return apitypes.TypedData{}, fmt.Errorf("factory dependency %d: %w", i, err)
		}
		deps[i] = h.Bytes()
	}

	var (
		paymaster      common.Address
		paymasterInput = []byte{}
	)
	if pp := tx.Meta.PaymasterParams; pp != nil {
		paymaster = pp.Paymaster
		paymasterInput = common.CopyBytes(pp.PaymasterInput)
	}

	var to common.Address
	if tx.To != nil {
		to = *tx.To
	}

	data := tx.Data
	if data == nil {
		data = []byte{}
	}

	return apitypes.TypedData{
		Types:       transactionTypes,
		PrimaryType: primaryType,
		Domain:      Domain(tx.ChainID),
		Message: apitypes.TypedDataMessage{
			"txType":                 big.NewInt(zktypes.EIP712TxType),
			"from":                   addressToBig(tx.From),
			"to":                     addressToBig(to),
			"gasLimit":               new(big.Int).SetUint64(tx.GasLimit),
			"gasPerPubdataByteLimit": gasPerPubdata(tx.Meta),
			"maxFeePerGas":           bigOrZero(tx.MaxFeePerGas),
			"maxPriorityFeePerGas":   bigOrZero(tx.MaxPriorityFeePerGas),
			"paymaster":              addressToBig(paymaster),
			"nonce":                  bigOrZero(tx.Nonce),
			"value":                  bigOrZero(tx.Value),
			"data":                   data,
			"factoryDeps":            deps,
			"paymasterInput":         paymasterInput,
		},
	}, nil
}

// SigningPayload returns 0x1901 || domainSeparator || hashStruct(tx), the 66 bytes
// whose keccak256 is signed.
func SigningPayload(tx *zktypes.Transaction) ([]byte, error) {
	td, err := TypedData(tx)
	if err != nil {
		return nil, err
	}
	domainSeparator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("hash domain: %w", err)
	}
	structHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return nil, fmt.Errorf("hash transaction: %w", err)
	}
	payload := make([]byte, 0, 2+len(domainSeparator)+len(structHash))
	payload = append(payload, 0x19, 0x01)
	payload = append(payload, domainSeparator...)
	payload = append(payload, structHash...)
	return payload, nil
}

// Digest is the keccak256 of the signing payload.
func Digest(tx *zktypes.Transaction) (common.Hash, error) {
	payload, err := SigningPayload(tx)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(payload), nil
}

func gasPerPubdata(meta *zktypes.Eip712Meta) *big.Int {
	if meta.GasPerPubdata == nil {
		return big.NewInt(zktypes.DefaultGasPerPubdataLimit)
	}
	return new(big.Int).Set(meta.GasPerPubdata)
}

func addressToBig(addr common.Address) *big.Int {
	return new(big.Int).SetBytes(addr.Bytes())
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
