package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/base-org/zkbridge/bridge"
	"github.com/base-org/zkbridge/client"
	"github.com/base-org/zkbridge/zktypes"
)

// Status is the lifecycle position of an operation.
type Status int

const (
	StatusBuilt Status = iota
	StatusSigned
	StatusSubmitted
	StatusIncluded
	StatusFailed
	StatusFinalizedOnL2
)

func (s Status) String() string {
	switch s {
	case StatusBuilt:
		return "built"
	case StatusSigned:
		return "signed"
	case StatusSubmitted:
		return "submitted"
	case StatusIncluded:
		return "included"
	case StatusFailed:
		return "failed"
	case StatusFinalizedOnL2:
		return "finalized-on-l2"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Operation is a submitted transaction. Wait and WaitFinalized may be called again
// after a timeout.
type Operation struct {
	Name  string
	Hash  common.Hash
	Nonce uint64
	// Tx is the transaction as signed.
	Tx *zktypes.Transaction

	receipts     client.EthClient
	l2           client.EthClient
	mainContract *common.Address
	poll         time.Duration
	log          log.Logger

	mu        sync.Mutex
	status    Status
	receipt   *types.Receipt
	l2Hash    common.Hash
	l2Receipt *types.Receipt
}

func (o *Operation) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// IsPriorityOperation reports whether the operation queues an L2 transaction from L1.
func (o *Operation) IsPriorityOperation() bool {
	return o.mainContract != nil
}

// Wait blocks until the transaction is included, it fails, maxWait elapses or ctx is
// done. A timeout leaves the operation submitted.
func (o *Operation) Wait(ctx context.Context, maxWait time.Duration) (*types.Receipt, error) {
	o.mu.Lock()
	if o.receipt != nil {
		receipt := o.receipt
		o.mu.Unlock()
		if receipt.Status != types.ReceiptStatusSuccessful {
			return receipt, o.stageErr(&zktypes.OnChainRevertError{Hash: o.Hash, Receipt: receipt})
		}
		return receipt, nil
	}
	o.mu.Unlock()

	receipt, err := waitForConfirmation(ctx, o.receipts, o.Hash, maxWait, o.poll, o.log)
	if err != nil {
		return nil, o.stageErr(err)
	}

	o.mu.Lock()
	o.receipt = receipt
	if receipt.Status != types.ReceiptStatusSuccessful {
		o.status = StatusFailed
	} else if o.status < StatusIncluded {
		o.status = StatusIncluded
	}
	o.mu.Unlock()

	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, o.stageErr(&zktypes.OnChainRevertError{Hash: o.Hash, Receipt: receipt})
	}
	return receipt, nil
}

// WaitFinalized waits for L1 inclusion of a priority operation, then for the L2
// transaction it queued. It returns the L2 receipt. An L2 revert does not change what
// Wait reports for the L1 transaction.
func (o *Operation) WaitFinalized(ctx context.Context, maxWait time.Duration) (*types.Receipt, error) {
	if !o.IsPriorityOperation() {
		return nil, o.stageErr(errors.New("not a priority operation"))
	}
	deadline := time.Now().Add(maxWait)
	receipt, err := o.Wait(ctx, maxWait)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.l2Receipt != nil {
		l2Hash, l2Receipt := o.l2Hash, o.l2Receipt
		o.mu.Unlock()
		return o.l2Outcome(l2Hash, l2Receipt)
	}
	o.mu.Unlock()

	l2Hash, err := bridge.L2HashFromPriorityOp(receipt, *o.mainContract)
	if err != nil {
		return nil, o.stageErr(err)
	}
	l2Receipt, err := waitForConfirmation(ctx, o.l2, l2Hash, time.Until(deadline), o.poll, o.log)
	if err != nil {
		return nil, o.stageErr(err)
	}

	o.mu.Lock()
	o.l2Hash = l2Hash
	o.l2Receipt = l2Receipt
	if l2Receipt.Status != types.ReceiptStatusSuccessful {
		o.status = StatusFailed
	} else {
		o.status = StatusFinalizedOnL2
	}
	o.mu.Unlock()
	return o.l2Outcome(l2Hash, l2Receipt)
}

func (o *Operation) l2Outcome(l2Hash common.Hash, l2Receipt *types.Receipt) (*types.Receipt, error) {
	if l2Receipt.Status != types.ReceiptStatusSuccessful {
		return l2Receipt, o.stageErr(&zktypes.OnChainRevertError{Hash: l2Hash, Receipt: l2Receipt})
	}
	return l2Receipt, nil
}

// L2Hash is the hash of the queued L2 transaction, known once WaitFinalized derived it.
func (o *Operation) L2Hash() common.Hash {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.l2Hash
}

func (o *Operation) stageErr(err error) error {
	return &zktypes.StageError{Op: o.Name, Stage: zktypes.StageConfirm, Err: err}
}

// waitForConfirmation polls for the receipt of hash.
func waitForConfirmation(ctx context.Context, c client.EthClient, hash common.Hash, maxWait, poll time.Duration, logger log.Logger) (*types.Receipt, error) {
	if poll <= 0 {
		return nil, fmt.Errorf("invalid poll interval %s", poll)
	}
	start := time.Now()
	timeout := time.NewTimer(maxWait)
	defer timeout.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		receipt, err := c.TransactionReceipt(ctx, hash)
		if err == nil {
			logger.Info("Transaction confirmed", "hash", hash, "block", receipt.BlockNumber, "status", receipt.Status)
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("error querying receipt of %s: %w", hash, err)
		}
		logger.Debug("Waiting for tx confirmation", "hash", hash)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout.C:
			return nil, &zktypes.TimeoutError{Hash: hash, Waited: time.Since(start)}
		case <-ticker.C:
		}
	}
}
