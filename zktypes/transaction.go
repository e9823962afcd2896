package zktypes

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PaymasterParams selects the paymaster contract sponsoring an L2 transaction and the
// input it is called with.
type PaymasterParams struct {
	Paymaster      common.Address
	PaymasterInput []byte
}

// Copy returns a deep copy of p.
func (p *PaymasterParams) Copy() *PaymasterParams {
	if p == nil {
		return nil
	}
	return &PaymasterParams{
		Paymaster:      p.Paymaster,
		PaymasterInput: common.CopyBytes(p.PaymasterInput),
	}
}

// Eip712Meta carries the L2-only fields of a type 0x71 transaction.
type Eip712Meta struct {
	GasPerPubdata   *big.Int
	FactoryDeps     [][]byte
	CustomSignature []byte
	PaymasterParams *PaymasterParams
}

// Copy returns a deep copy of m.
func (m *Eip712Meta) Copy() *Eip712Meta {
	if m == nil {
		return nil
	}
	cpy := &Eip712Meta{
		GasPerPubdata:   copyBig(m.GasPerPubdata),
		CustomSignature: common.CopyBytes(m.CustomSignature),
		PaymasterParams: m.PaymasterParams.Copy(),
	}
	if m.FactoryDeps != nil {
		cpy.FactoryDeps = make([][]byte, len(m.FactoryDeps))
		for i, dep := range m.FactoryDeps {
			cpy.FactoryDeps[i] = common.CopyBytes(dep)
		}
	}
	return cpy
}

// Transaction is a populated, not yet signed transaction. A nil Meta describes an
// ordinary Ethereum transaction (used on L1); a non-nil Meta an L2-native type 0x71
// transaction.
type Transaction struct {
	ChainID *big.Int
	// Nonce is nil until assigned.
	Nonce                *big.Int
	From                 common.Address
	To                   *common.Address
	Value                *big.Int
	Data                 []byte
	GasLimit             uint64
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int

	Meta *Eip712Meta
}

// IsEIP712 reports whether tx is an L2-native typed transaction.
func (tx *Transaction) IsEIP712() bool {
	return tx.Meta != nil
}

// Copy returns a deep copy of tx.
func (tx *Transaction) Copy() *Transaction {
	cpy := &Transaction{
		ChainID:              copyBig(tx.ChainID),
		Nonce:                copyBig(tx.Nonce),
		From:                 tx.From,
		Value:                copyBig(tx.Value),
		Data:                 common.CopyBytes(tx.Data),
		GasLimit:             tx.GasLimit,
		GasPrice:             copyBig(tx.GasPrice),
		MaxFeePerGas:         copyBig(tx.MaxFeePerGas),
		MaxPriorityFeePerGas: copyBig(tx.MaxPriorityFeePerGas),
		Meta:                 tx.Meta.Copy(),
	}
	if tx.To != nil {
		to := *tx.To
		cpy.To = &to
	}
	return cpy
}

// ValueOrZero returns the transaction value, treating nil as zero.
func (tx *Transaction) ValueOrZero() *big.Int {
	return bigOrZero(tx.Value)
}

// CheckComplete verifies that every field a signature commits to is set.
func (tx *Transaction) CheckComplete() error {
	switch {
	case tx.ChainID == nil || tx.ChainID.Sign() == 0:
		return &IncompleteTransactionError{Field: "chainId"}
	case tx.Nonce == nil:
		return &IncompleteTransactionError{Field: "nonce"}
	case tx.GasLimit == 0:
		return &IncompleteTransactionError{Field: "gasLimit"}
	}
	if tx.IsEIP712() {
		if tx.MaxFeePerGas == nil {
			return &IncompleteTransactionError{Field: "maxFeePerGas"}
		}
		if tx.From == (common.Address{}) {
			return &IncompleteTransactionError{Field: "from"}
		}
		return nil
	}
	if tx.GasPrice == nil && tx.MaxFeePerGas == nil {
		return &IncompleteTransactionError{Field: "gasPrice"}
	}
	return nil
}

// SignedTransaction is the wire encoding of a signed transaction and its hash.
type SignedTransaction struct {
	Raw  []byte
	Hash common.Hash
}
