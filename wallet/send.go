package wallet

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/core/txpool"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/base-org/zkbridge/accounts"
	"github.com/base-org/zkbridge/client"
	"github.com/base-org/zkbridge/zktypes"
)

func stageErr(op string, stage zktypes.Stage, err error) error {
	return &zktypes.StageError{Op: op, Stage: stage, Err: err}
}

// sendL1 signs tx with the L1 key and submits it.
func (w *Wallet) sendL1(ctx context.Context, op string, tx *zktypes.Transaction) (*Operation, error) {
	if tx.GasLimit == 0 {
		gas, err := w.fees.EstimateL1Gas(ctx, tx)
		if err != nil {
			return nil, stageErr(op, zktypes.StageEstimate, err)
		}
		tx.GasLimit = gas
	}
	return w.send(ctx, op, tx, accounts.L1SignerOf(w.signer), w.l1, func(ctx context.Context, signed *zktypes.SignedTransaction) error {
		var ethTx types.Transaction
		if err := ethTx.UnmarshalBinary(signed.Raw); err != nil {
			return err
		}
		return w.l1.SendTransaction(ctx, &ethTx)
	})
}

// sendL2 signs a type 0x71 transaction with the account signer and submits it.
func (w *Wallet) sendL2(ctx context.Context, op string, tx *zktypes.Transaction) (*Operation, error) {
	return w.send(ctx, op, tx, w.signer, w.l2, func(ctx context.Context, signed *zktypes.SignedTransaction) error {
		hash, err := w.l2.SendRawTransaction(ctx, signed.Raw)
		if err != nil {
			return err
		}
		if hash != signed.Hash {
			w.log.Warn("Node reported a different transaction hash", "expected", signed.Hash, "node", hash)
		}
		return nil
	})
}

// send walks an operation from built to submitted. The nonce reserved for it is
// released when signing fails or the node rejects the transaction. When the node never
// answered, the transaction may be pending, so the nonce stays reserved until the pending
// nonce passes it or the caller releases it through the NonceManager.
func (w *Wallet) send(ctx context.Context, op string, tx *zktypes.Transaction, signer accounts.TxSigner, chain client.EthClient, submit func(context.Context, *zktypes.SignedTransaction) error) (*Operation, error) {
	o := &Operation{
		Name:     op,
		Tx:       tx,
		receipts: chain,
		l2:       w.l2,
		poll:     w.cfg.pollInterval,
		log:      w.log,
		status:   StatusBuilt,
	}

	var explicit *uint64
	if tx.Nonce != nil {
		n := tx.Nonce.Uint64()
		explicit = &n
	}
	nonce, err := w.nonces.Reserve(ctx, chain, tx.ChainID, tx.From, explicit)
	if err != nil {
		return nil, stageErr(op, zktypes.StageBuild, err)
	}
	tx.Nonce = new(big.Int).SetUint64(nonce)
	o.Nonce = nonce

	signed, err := signer.SignTransaction(ctx, tx)
	if err != nil {
		w.nonces.Release(tx.ChainID, tx.From, nonce)
		return nil, stageErr(op, zktypes.StageSign, err)
	}
	o.Hash = signed.Hash
	o.status = StatusSigned

	if err := submit(ctx, signed); err != nil {
		rejected := rejectedByNode(err)
		if rejected {
			w.nonces.Release(tx.ChainID, tx.From, nonce)
		} else {
			w.log.Warn("Submission outcome unknown, keeping nonce reserved", "op", op, "hash", signed.Hash, "nonce", nonce, "err", err)
		}
		return nil, stageErr(op, zktypes.StageSubmit, &zktypes.SubmissionError{Hash: signed.Hash, Err: err, Unconfirmed: !rejected})
	}
	o.status = StatusSubmitted
	w.log.Info("Submitted transaction", "op", op, "hash", signed.Hash, "chain", tx.ChainID, "nonce", nonce)
	return o, nil
}

// rejectedByNode reports whether err is a JSON-RPC error answer, meaning the node refused
// the transaction. A pool that already holds it does not count.
func rejectedByNode(err error) bool {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	return !strings.Contains(rpcErr.Error(), txpool.ErrAlreadyKnown.Error())
}
