package zktypes

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestErrorMatching(t *testing.T) {
	hash := common.HexToHash("0x01")
	cause := errors.New("nonce too low")

	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"validation", &ValidationError{Field: "amount", Reason: "must be positive"}, ErrValidation},
		{"unsupported token", &UnsupportedTokenError{Token: common.HexToAddress("0x02")}, ErrValidation},
		{"timeout", &TimeoutError{Hash: hash, Waited: time.Second}, ErrPendingOrDropped},
		{"submission", &SubmissionError{Hash: hash, Err: cause}, cause},
		{"approval", &ApprovalFailedError{Err: &TimeoutError{Hash: hash}}, ErrPendingOrDropped},
		{"stage", &StageError{Op: "deposit", Stage: StageBuild, Err: fmt.Errorf("wrapped: %w", ErrNonceConflict)}, ErrNonceConflict},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.ErrorIs(t, test.err, test.target)
			wrapped := &StageError{Op: "op", Stage: StageConfirm, Err: test.err}
			require.ErrorIs(t, wrapped, test.target)
		})
	}

	require.NotErrorIs(t, &InsufficientFundsError{}, ErrValidation)
}

func TestStageErrorAs(t *testing.T) {
	err := fmt.Errorf("outer: %w", &StageError{Op: "withdraw", Stage: StageSubmit, Err: &SubmissionError{Err: errors.New("rejected")}})
	var se *StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, StageSubmit, se.Stage)
	require.Equal(t, "withdraw", se.Op)
	var sub *SubmissionError
	require.ErrorAs(t, err, &sub)
}

func TestInsufficientFundsMessage(t *testing.T) {
	eth := &InsufficientFundsError{Token: EthAddress, Required: big.NewInt(2), Available: big.NewInt(1)}
	require.Equal(t, "insufficient ETH balance: required 2, available 1", eth.Error())
	token := &InsufficientFundsError{Token: common.HexToAddress("0x03"), Required: big.NewInt(2), Available: big.NewInt(1)}
	require.Contains(t, token.Error(), "0x0000000000000000000000000000000000000003")
}

func TestIsETH(t *testing.T) {
	require.True(t, IsETH(EthAddress))
	require.True(t, IsETH(L2EthTokenAddress))
	require.False(t, IsETH(common.HexToAddress("0x881567B68502e6d7A7a3556FF4313B637Ba47F4E")))
}

func TestCheckComplete(t *testing.T) {
	to := common.HexToAddress("0x04")
	complete := func() *Transaction {
		return &Transaction{
			ChainID:      big.NewInt(270),
			Nonce:        big.NewInt(0),
			From:         common.HexToAddress("0x05"),
			To:           &to,
			GasLimit:     21_000,
			MaxFeePerGas: big.NewInt(1),
			Meta:         &Eip712Meta{GasPerPubdata: big.NewInt(50_000)},
		}
	}
	require.NoError(t, complete().CheckComplete())

	tests := []struct {
		field  string
		mutate func(tx *Transaction)
	}{
		{"chainId", func(tx *Transaction) { tx.ChainID = nil }},
		{"nonce", func(tx *Transaction) { tx.Nonce = nil }},
		{"gasLimit", func(tx *Transaction) { tx.GasLimit = 0 }},
		{"maxFeePerGas", func(tx *Transaction) { tx.MaxFeePerGas = nil }},
		{"from", func(tx *Transaction) { tx.From = common.Address{} }},
		{"gasPrice", func(tx *Transaction) { tx.Meta = nil; tx.MaxFeePerGas = nil }},
	}
	for _, test := range tests {
		t.Run(test.field, func(t *testing.T) {
			tx := complete()
			test.mutate(tx)
			var incomplete *IncompleteTransactionError
			require.ErrorAs(t, tx.CheckComplete(), &incomplete)
			require.Equal(t, test.field, incomplete.Field)
		})
	}

	legacy := complete()
	legacy.Meta = nil
	legacy.MaxFeePerGas = nil
	legacy.GasPrice = big.NewInt(1)
	require.NoError(t, legacy.CheckComplete())
}

func TestCopyIsDeep(t *testing.T) {
	to := common.HexToAddress("0x04")
	tx := &Transaction{
		ChainID: big.NewInt(270),
		Nonce:   big.NewInt(3),
		To:      &to,
		Value:   big.NewInt(10),
		Data:    []byte{1, 2, 3},
		Meta: &Eip712Meta{
			GasPerPubdata:   big.NewInt(50_000),
			FactoryDeps:     [][]byte{{0xaa}},
			PaymasterParams: &PaymasterParams{Paymaster: common.HexToAddress("0x06"), PaymasterInput: []byte{7}},
		},
	}
	cpy := tx.Copy()
	require.Equal(t, tx, cpy)

	cpy.Value.SetInt64(11)
	cpy.Data[0] = 9
	*cpy.To = common.HexToAddress("0x08")
	cpy.Meta.FactoryDeps[0][0] = 0xbb
	cpy.Meta.PaymasterParams.PaymasterInput[0] = 8

	require.EqualValues(t, 10, tx.Value.Int64())
	require.Equal(t, byte(1), tx.Data[0])
	require.Equal(t, common.HexToAddress("0x04"), *tx.To)
	require.Equal(t, byte(0xaa), tx.Meta.FactoryDeps[0][0])
	require.Equal(t, byte(7), tx.Meta.PaymasterParams.PaymasterInput[0])
}

func TestValueOrZero(t *testing.T) {
	require.Zero(t, (&Transaction{}).ValueOrZero().Sign())
	require.EqualValues(t, 5, (&Transaction{Value: big.NewInt(5)}).ValueOrZero().Int64())
}

func TestOverridesHasGasPrice(t *testing.T) {
	var nilOverrides *Overrides
	require.False(t, nilOverrides.HasGasPrice())
	require.False(t, (&Overrides{GasLimit: 1}).HasGasPrice())
	require.True(t, (&Overrides{GasPrice: big.NewInt(1)}).HasGasPrice())
	require.True(t, (&Overrides{MaxFeePerGas: big.NewInt(1)}).HasGasPrice())
}

func TestFeeQuoteValidate(t *testing.T) {
	valid := FeeQuote{
		BaseCost:             big.NewInt(1),
		L2GasLimit:           big.NewInt(2),
		MaxFeePerGas:         big.NewInt(10),
		MaxPriorityFeePerGas: big.NewInt(1),
	}
	require.NoError(t, valid.Validate())

	inverted := valid
	inverted.MaxPriorityFeePerGas = big.NewInt(11)
	require.Error(t, inverted.Validate())

	negative := valid
	negative.BaseCost = big.NewInt(-1)
	require.Error(t, negative.Validate())

	missing := valid
	missing.L2GasLimit = nil
	require.Error(t, missing.Validate())
}
