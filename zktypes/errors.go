package zktypes

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrValidation is matched by every malformed-request error.
	ErrValidation = errors.New("invalid request")
	// ErrPendingOrDropped means no receipt was observed; the transaction may still land.
	ErrPendingOrDropped = errors.New("transaction pending or dropped")
	// ErrNonceConflict is returned when an explicit nonce is already taken by another
	// operation of the same sender.
	ErrNonceConflict = errors.New("nonce already in use")
)

// Stage names the step of an operation that failed.
type Stage string

const (
	StageEstimate Stage = "estimate"
	StageBuild    Stage = "build"
	StageSign     Stage = "sign"
	StageSubmit   Stage = "submit"
	StageConfirm  Stage = "confirm"
)

// StageError attaches the operation and stage to an underlying error.
type StageError struct {
	Op    string
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UnsupportedTokenError is returned when a token cannot be matched to a known bridge.
type UnsupportedTokenError struct {
	Token  common.Address
	Reason string
}

func (e *UnsupportedTokenError) Error() string {
	return fmt.Sprintf("unsupported token %s: %s", e.Token, e.Reason)
}

func (e *UnsupportedTokenError) Is(target error) bool { return target == ErrValidation }

// InsufficientFundsError is the advisory balance pre-check failure.
type InsufficientFundsError struct {
	Token     common.Address
	Required  *big.Int
	Available *big.Int
}

func (e *InsufficientFundsError) Error() string {
	asset := "ETH"
	if !IsETH(e.Token) {
		asset = e.Token.Hex()
	}
	return fmt.Sprintf("insufficient %s balance: required %s, available %s", asset, e.Required, e.Available)
}

// IncompleteTransactionError is returned when signing is attempted on a transaction
// that is missing a required field.
type IncompleteTransactionError struct {
	Field string
}

func (e *IncompleteTransactionError) Error() string {
	return fmt.Sprintf("incomplete transaction: missing %s", e.Field)
}

// ApprovalFailedError means an ERC-20 approval did not confirm before the deposit
// depending on it.
type ApprovalFailedError struct {
	Token common.Address
	Err   error
}

func (e *ApprovalFailedError) Error() string {
	return fmt.Sprintf("approval of %s failed: %v", e.Token, e.Err)
}

func (e *ApprovalFailedError) Unwrap() error { return e.Err }

// SubmissionError wraps a failed submission of a signed transaction. Unconfirmed is set
// when the node never answered, so the transaction may still have reached its pool.
type SubmissionError struct {
	Hash        common.Hash
	Err         error
	Unconfirmed bool
}

func (e *SubmissionError) Error() string {
	if e.Unconfirmed {
		return fmt.Sprintf("submission of %s unconfirmed: %v", e.Hash, e.Err)
	}
	return fmt.Sprintf("submission of %s rejected: %v", e.Hash, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// TimeoutError is returned when no receipt was seen within the wait budget. It is safe
// to wait again.
type TimeoutError struct {
	Hash   common.Hash
	Waited time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no receipt for %s after %s", e.Hash, e.Waited)
}

func (e *TimeoutError) Unwrap() error { return ErrPendingOrDropped }

// OnChainRevertError reports a transaction that was included but failed.
type OnChainRevertError struct {
	Hash    common.Hash
	Receipt *types.Receipt
}

func (e *OnChainRevertError) Error() string {
	if e.Receipt != nil && e.Receipt.BlockNumber != nil {
		return fmt.Sprintf("transaction %s reverted in block %s", e.Hash, e.Receipt.BlockNumber)
	}
	return fmt.Sprintf("transaction %s reverted", e.Hash)
}
