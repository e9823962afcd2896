package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/base-org/zkbridge/eip712"
	"github.com/base-org/zkbridge/signer"
	"github.com/base-org/zkbridge/zktypes"
)

// AccountSigner produces the signature an account contract validates. It signs
// keccak256(data), as signer.Signer does.
type AccountSigner interface {
	SignData(data []byte) ([]byte, error)
}

// MultiSigner concatenates the signatures of several keys, in order, for multisig
// accounts.
type MultiSigner []AccountSigner

func (m MultiSigner) SignData(data []byte) ([]byte, error) {
	if len(m) == 0 {
		return nil, errors.New("multisigner has no keys")
	}
	var out []byte
	for i, s := range m {
		sig, err := s.SignData(data)
		if err != nil {
			return nil, fmt.Errorf("signer %d: %w", i, err)
		}
		out = append(out, sig...)
	}
	return out, nil
}

// AbstractTxSigner signs type 0x71 transactions on behalf of a smart contract account.
// The signature goes to the custom signature slot; the top-level slot stays empty.
type AbstractTxSigner struct {
	account   common.Address
	signer    AccountSigner
	paymaster *zktypes.PaymasterParams
	l1        TxSigner
}

var (
	_ TxSigner  = (*AbstractTxSigner)(nil)
	_ L1Capable = (*AbstractTxSigner)(nil)
	_ Sponsored = (*AbstractTxSigner)(nil)
)

type AbstractOption func(*AbstractTxSigner)

// WithPaymaster sponsors every transaction without its own paymaster parameters.
func WithPaymaster(params *zktypes.PaymasterParams) AbstractOption {
	return func(s *AbstractTxSigner) {
		s.paymaster = params.Copy()
	}
}

// WithL1Key sets the externally owned key used for L1 transactions such as deposits.
func WithL1Key(key signer.Signer) AbstractOption {
	return func(s *AbstractTxSigner) {
		s.l1 = NewKeyTxSigner(key)
	}
}

func NewAbstractTxSigner(account common.Address, accountSigner AccountSigner, opts ...AbstractOption) *AbstractTxSigner {
	s := &AbstractTxSigner{account: account, signer: accountSigner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AbstractTxSigner) Address(context.Context) (common.Address, error) {
	return s.account, nil
}

// L1Signer returns the key signer for L1 transactions, or nil when none was configured.
func (s *AbstractTxSigner) L1Signer() TxSigner {
	return s.l1
}

func (s *AbstractTxSigner) Paymaster() *zktypes.PaymasterParams {
	return s.paymaster.Copy()
}

func (s *AbstractTxSigner) SignTransaction(_ context.Context, tx *zktypes.Transaction) (*zktypes.SignedTransaction, error) {
	if !tx.IsEIP712() {
		return nil, errors.New("smart account can only sign L2 transactions")
	}
	cpy := tx.Copy()
	if cpy.From == (common.Address{}) {
		cpy.From = s.account
	} else if cpy.From != s.account {
		return nil, fmt.Errorf("%w: %s, account %s", errSenderMismatch, cpy.From, s.account)
	}
	if cpy.Meta.PaymasterParams == nil {
		cpy.Meta.PaymasterParams = s.paymaster.Copy()
	}
	if err := cpy.CheckComplete(); err != nil {
		return nil, err
	}

	payload, err := eip712.SigningPayload(cpy)
	if err != nil {
		return nil, err
	}
	sig, err := s.signer.SignData(payload)
	if err != nil {
		return nil, fmt.Errorf("error signing typed data: %w", err)
	}
	cpy.Meta.CustomSignature = sig
	return encodeEIP712(cpy, nil)
}
