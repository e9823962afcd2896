// Package accounts turns populated transactions into signed wire bytes, either with a
// plain key or on behalf of an account-abstraction contract.
package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/base-org/zkbridge/eip712"
	"github.com/base-org/zkbridge/signer"
	"github.com/base-org/zkbridge/zktypes"
)

// TxSigner is the capability the wallet needs from whoever authorizes its transactions.
// Implementations never mutate the transaction they are handed.
type TxSigner interface {
	// Address is the logical sender of signed transactions.
	Address(ctx context.Context) (common.Address, error)
	SignTransaction(ctx context.Context, tx *zktypes.Transaction) (*zktypes.SignedTransaction, error)
}

// L1Capable is implemented by signers whose L2 identity differs from the key that pays
// for L1 transactions.
type L1Capable interface {
	L1Signer() TxSigner
}

// L1SignerOf returns the signer to use for L1 transactions of s.
func L1SignerOf(s TxSigner) TxSigner {
	if c, ok := s.(L1Capable); ok {
		if l1 := c.L1Signer(); l1 != nil {
			return l1
		}
	}
	return s
}

// Sponsored is implemented by signers that attach paymaster parameters to transactions
// lacking their own.
type Sponsored interface {
	Paymaster() *zktypes.PaymasterParams
}

// PaymasterOf returns a copy of the default paymaster parameters of s, or nil.
func PaymasterOf(s TxSigner) *zktypes.PaymasterParams {
	if sp, ok := s.(Sponsored); ok {
		return sp.Paymaster()
	}
	return nil
}

var errSenderMismatch = errors.New("transaction sender does not match signer")

// KeyTxSigner signs with a single externally owned key.
type KeyTxSigner struct {
	signer signer.Signer
}

var _ TxSigner = (*KeyTxSigner)(nil)

func NewKeyTxSigner(s signer.Signer) *KeyTxSigner {
	return &KeyTxSigner{signer: s}
}

func (s *KeyTxSigner) Address(context.Context) (common.Address, error) {
	return s.signer.Address(), nil
}

// SignTransaction signs ordinary transactions as EIP-1559 (or legacy when only a gas
// price is set) and type 0x71 transactions with the EIP-712 signature in the top-level
// slot.
func (s *KeyTxSigner) SignTransaction(_ context.Context, tx *zktypes.Transaction) (*zktypes.SignedTransaction, error) {
	cpy := tx.Copy()
	from := s.signer.Address()
	if cpy.From == (common.Address{}) {
		cpy.From = from
	} else if cpy.From != from {
		return nil, fmt.Errorf("%w: %s, signer %s", errSenderMismatch, cpy.From, from)
	}
	if err := cpy.CheckComplete(); err != nil {
		return nil, err
	}
	if cpy.IsEIP712() {
		return s.signEIP712(cpy)
	}
	return s.signL1(cpy)
}

func (s *KeyTxSigner) signL1(tx *zktypes.Transaction) (*zktypes.SignedTransaction, error) {
	signed, err := s.signer.SignerFn(tx.ChainID)(tx.From, ToGeth(tx))
	if err != nil {
		return nil, fmt.Errorf("error signing transaction: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("error encoding transaction: %w", err)
	}
	return &zktypes.SignedTransaction{Raw: raw, Hash: signed.Hash()}, nil
}

func (s *KeyTxSigner) signEIP712(tx *zktypes.Transaction) (*zktypes.SignedTransaction, error) {
	payload, err := eip712.SigningPayload(tx)
	if err != nil {
		return nil, err
	}
	sig, err := s.signer.SignData(payload)
	if err != nil {
		return nil, fmt.Errorf("error signing typed data: %w", err)
	}
	return encodeEIP712(tx, sig)
}

func encodeEIP712(tx *zktypes.Transaction, sig []byte) (*zktypes.SignedTransaction, error) {
	raw, err := eip712.Serialize(tx, sig)
	if err != nil {
		return nil, err
	}
	hash, err := eip712.TxHash(tx, sig)
	if err != nil {
		return nil, err
	}
	return &zktypes.SignedTransaction{Raw: raw, Hash: hash}, nil
}

// ToGeth converts an ordinary (non 0x71) transaction into its go-ethereum form.
func ToGeth(tx *zktypes.Transaction) *types.Transaction {
	var nonce uint64
	if tx.Nonce != nil {
		nonce = tx.Nonce.Uint64()
	}
	if tx.MaxFeePerGas != nil {
		tip := tx.MaxPriorityFeePerGas
		if tip == nil {
			tip = tx.MaxFeePerGas
		}
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   tx.ChainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: tx.MaxFeePerGas,
			Gas:       tx.GasLimit,
			To:        tx.To,
			Value:     tx.ValueOrZero(),
			Data:      tx.Data,
		})
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: tx.GasPrice,
		Gas:      tx.GasLimit,
		To:       tx.To,
		Value:    tx.ValueOrZero(),
		Data:     tx.Data,
	})
}
