package zktypes

import (
	"fmt"
	"math/big"
)

// FeeQuote is the advisory cost of a bridging operation.
type FeeQuote struct {
	BaseCost             *big.Int
	L1GasLimit           uint64
	L2GasLimit           *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	// GasPrice is only set on chains without a base fee.
	GasPrice *big.Int
}

// Validate checks the quote invariants.
func (q *FeeQuote) Validate() error {
	if q.BaseCost == nil || q.BaseCost.Sign() < 0 {
		return fmt.Errorf("base cost must be non-negative, got %v", q.BaseCost)
	}
	if q.L2GasLimit == nil || q.L2GasLimit.Sign() < 0 {
		return fmt.Errorf("l2 gas limit must be non-negative, got %v", q.L2GasLimit)
	}
	if q.MaxFeePerGas != nil && q.MaxPriorityFeePerGas != nil &&
		q.MaxFeePerGas.Cmp(q.MaxPriorityFeePerGas) < 0 {
		return fmt.Errorf("max fee per gas %s below max priority fee %s", q.MaxFeePerGas, q.MaxPriorityFeePerGas)
	}
	return nil
}
