package eip712

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/base-org/zkbridge/zktypes"
)

// envelope is the RLP layout following the type byte.
type envelope struct {
	Nonce                *big.Int
	MaxPriorityFeePerGas *big.Int
	MaxFeePerGas         *big.Int
	GasLimit             uint64
	To                   []byte
	Value                *big.Int
	Data                 []byte
	V                    *big.Int // chain id when unsigned
	R                    *big.Int
	S                    *big.Int
	ChainID              *big.Int
	From                 common.Address
	GasPerPubdata        *big.Int
	FactoryDeps          [][]byte
	CustomSignature      []byte
	PaymasterParams      [][]byte
}

// Serialize encodes tx as 0x71 || rlp(fields). sig is an optional 65-byte [R || S || V]
// signature placed in the top-level slot; without it the slot carries (chainId, "", "")
// and authorization comes from Meta.CustomSignature.
func Serialize(tx *zktypes.Transaction, sig []byte) ([]byte, error) {
	if tx.Meta == nil {
		return nil, errNotEIP712
	}
	if tx.ChainID == nil {
		return nil, &zktypes.IncompleteTransactionError{Field: "chainId"}
	}

	var to []byte
	if tx.To != nil {
		to = tx.To.Bytes()
	}
	data := tx.Data
	if data == nil {
		data = []byte{}
	}

	fields := []interface{}{
		bigOrZero(tx.Nonce),
		bigOrZero(tx.MaxPriorityFeePerGas),
		bigOrZero(tx.MaxFeePerGas),
		tx.GasLimit,
		to,
		bigOrZero(tx.Value),
		data,
	}
	if sig != nil {
		if len(sig) != crypto.SignatureLength {
			return nil, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
		}
		fields = append(fields,
			uint64(yParity(sig[crypto.RecoveryIDOffset])),
			new(big.Int).SetBytes(sig[:32]),
			new(big.Int).SetBytes(sig[32:64]),
		)
	} else {
		fields = append(fields, tx.ChainID, []byte{}, []byte{})
	}

	deps := tx.Meta.FactoryDeps
	if deps == nil {
		deps = [][]byte{}
	}
	customSignature := tx.Meta.CustomSignature
	if customSignature == nil {
		customSignature = []byte{}
	}
	paymaster := []interface{}{}
	if pp := tx.Meta.PaymasterParams; pp != nil {
		input := pp.PaymasterInput
		if input == nil {
			input = []byte{}
		}
		paymaster = []interface{}{pp.Paymaster, input}
	}

	fields = append(fields,
		tx.ChainID,
		tx.From,
		gasPerPubdata(tx.Meta),
		deps,
		customSignature,
		paymaster,
	)

	enc, err := rlp.EncodeToBytes(fields)
	if err != nil {
		return nil, fmt.Errorf("rlp encode: %w", err)
	}
	return append([]byte{zktypes.EIP712TxType}, enc...), nil
}

// Decode parses an encoding produced by Serialize. The returned signature is nil when
// the top-level slot is empty.
func Decode(raw []byte) (*zktypes.Transaction, []byte, error) {
	if len(raw) == 0 || raw[0] != zktypes.EIP712TxType {
		return nil, nil, errors.New("not a type 0x71 transaction")
	}
	var env envelope
	if err := rlp.DecodeBytes(raw[1:], &env); err != nil {
		return nil, nil, fmt.Errorf("rlp decode: %w", err)
	}

	tx := &zktypes.Transaction{
		ChainID:              env.ChainID,
		Nonce:                env.Nonce,
		From:                 env.From,
		Value:                env.Value,
		Data:                 env.Data,
		GasLimit:             env.GasLimit,
		MaxFeePerGas:         env.MaxFeePerGas,
		MaxPriorityFeePerGas: env.MaxPriorityFeePerGas,
		Meta: &zktypes.Eip712Meta{
			GasPerPubdata:   env.GasPerPubdata,
			FactoryDeps:     env.FactoryDeps,
			CustomSignature: env.CustomSignature,
		},
	}
	switch len(env.To) {
	case 0:
	case common.AddressLength:
		to := common.BytesToAddress(env.To)
		tx.To = &to
	default:
		return nil, nil, fmt.Errorf("invalid recipient length %d", len(env.To))
	}
	switch len(env.PaymasterParams) {
	case 0:
	case 2:
		if len(env.PaymasterParams[0]) != common.AddressLength {
			return nil, nil, fmt.Errorf("invalid paymaster length %d", len(env.PaymasterParams[0]))
		}
		tx.Meta.PaymasterParams = &zktypes.PaymasterParams{
			Paymaster:      common.BytesToAddress(env.PaymasterParams[0]),
			PaymasterInput: env.PaymasterParams[1],
		}
	default:
		return nil, nil, fmt.Errorf("invalid paymaster params of %d items", len(env.PaymasterParams))
	}

	if env.R.Sign() == 0 && env.S.Sign() == 0 {
		return tx, nil, nil
	}
	if !env.V.IsUint64() || env.V.Uint64() > 1 {
		return nil, nil, fmt.Errorf("invalid signature parity %s", env.V)
	}
	sig := make([]byte, crypto.SignatureLength)
	env.R.FillBytes(sig[:32])
	env.S.FillBytes(sig[32:64])
	sig[crypto.RecoveryIDOffset] = byte(env.V.Uint64()) + 27
	return tx, sig, nil
}

// TxHash is the hash the L2 node assigns to tx: keccak256(digest || keccak256(signature)),
// where signature is the custom signature when present, else the top-level one.
func TxHash(tx *zktypes.Transaction, sig []byte) (common.Hash, error) {
	digest, err := Digest(tx)
	if err != nil {
		return common.Hash{}, err
	}
	var authorization []byte
	switch {
	case tx.Meta != nil && len(tx.Meta.CustomSignature) > 0:
		authorization = tx.Meta.CustomSignature
	case len(sig) == crypto.SignatureLength:
		authorization = common.CopyBytes(sig)
		authorization[crypto.RecoveryIDOffset] = yParity(sig[crypto.RecoveryIDOffset]) + 27
	default:
		return common.Hash{}, errors.New("transaction carries no signature")
	}
	return crypto.Keccak256Hash(digest.Bytes(), crypto.Keccak256(authorization)), nil
}

func yParity(v byte) byte {
	if v >= 27 {
		return v - 27
	}
	return v
}
