// Package paymaster encodes the parameters that route L2 fee payment through a
// paymaster contract.
package paymaster

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/base-org/zkbridge/zktypes"
)

const flowABI = `[
	{"inputs":[{"internalType":"address","name":"_token","type":"address"},{"internalType":"uint256","name":"_minAllowance","type":"uint256"},{"internalType":"bytes","name":"_innerInput","type":"bytes"}],"name":"approvalBased","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"bytes","name":"input","type":"bytes"}],"name":"general","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// Flow names a paymaster sponsorship flow.
type Flow string

const (
	// FlowApprovalBased makes the account approve Token to the paymaster, which then
	// charges the fee in that token.
	FlowApprovalBased Flow = "ApprovalBased"
	// FlowGeneral passes opaque input to the paymaster.
	FlowGeneral Flow = "General"
)

var flow abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(flowABI))
	if err != nil {
		panic(fmt.Sprintf("paymaster: parse flow abi: %v", err))
	}
	flow = parsed
}

// Config describes a paymaster a wallet is backed by.
type Config struct {
	Address common.Address `toml:"address"`
	Flow    Flow           `toml:"flow"`
	// Token and MinimalAllowance are used by the approval-based flow.
	Token            common.Address `toml:"token"`
	MinimalAllowance *big.Int       `toml:"-"`
	InnerInput       []byte         `toml:"-"`
}

// Params encodes c into paymaster parameters.
func (c Config) Params() (*zktypes.PaymasterParams, error) {
	switch c.Flow {
	case FlowApprovalBased, "":
		return ApprovalBasedParams(c.Address, c.Token, c.MinimalAllowance, c.InnerInput)
	case FlowGeneral:
		return GeneralParams(c.Address, c.InnerInput)
	default:
		return nil, fmt.Errorf("unknown paymaster flow %q", c.Flow)
	}
}

// ApprovalBasedParams encodes approvalBased(token, minAllowance, innerInput). A nil
// minAllowance defaults to 1.
func ApprovalBasedParams(paymaster, token common.Address, minAllowance *big.Int, innerInput []byte) (*zktypes.PaymasterParams, error) {
	if paymaster == (common.Address{}) {
		return nil, errors.New("paymaster address is required")
	}
	if minAllowance == nil {
		minAllowance = big.NewInt(1)
	}
	if innerInput == nil {
		innerInput = []byte{}
	}
	input, err := flow.Pack("approvalBased", token, minAllowance, innerInput)
	if err != nil {
		return nil, fmt.Errorf("encode approval-based input: %w", err)
	}
	return &zktypes.PaymasterParams{Paymaster: paymaster, PaymasterInput: input}, nil
}

// GeneralParams encodes general(innerInput).
func GeneralParams(paymaster common.Address, innerInput []byte) (*zktypes.PaymasterParams, error) {
	if paymaster == (common.Address{}) {
		return nil, errors.New("paymaster address is required")
	}
	if innerInput == nil {
		innerInput = []byte{}
	}
	input, err := flow.Pack("general", innerInput)
	if err != nil {
		return nil, fmt.Errorf("encode general input: %w", err)
	}
	return &zktypes.PaymasterParams{Paymaster: paymaster, PaymasterInput: input}, nil
}
