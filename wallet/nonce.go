package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/base-org/zkbridge/zktypes"
)

// NonceSource reports the next nonce the node expects from an account.
type NonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

type nonceKey struct {
	chainID string
	sender  common.Address
}

type accountNonces struct {
	// floor is the highest pending nonce observed; pending reads may arrive out of order.
	floor    uint64
	reserved map[uint64]struct{}
}

// NonceManager hands out nonces per (chain, sender) so that concurrent operations of
// one account never share a nonce. A nonce stays reserved until released after a
// failed attempt, or until the node's pending nonce moves past it.
type NonceManager struct {
	mu       sync.Mutex
	accounts map[nonceKey]*accountNonces
}

func NewNonceManager() *NonceManager {
	return &NonceManager{accounts: make(map[nonceKey]*accountNonces)}
}

// Reserve returns explicit if it is free, or else the next nonce: the larger of the
// pending nonce and one past the highest reservation.
func (m *NonceManager) Reserve(ctx context.Context, src NonceSource, chainID *big.Int, sender common.Address, explicit *uint64) (uint64, error) {
	key := nonceKey{chainID: chainID.String(), sender: sender}

	if explicit != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		acc := m.account(key)
		if _, ok := acc.reserved[*explicit]; ok {
			return 0, fmt.Errorf("%w: %d for %s", zktypes.ErrNonceConflict, *explicit, sender)
		}
		acc.reserved[*explicit] = struct{}{}
		return *explicit, nil
	}

	pending, err := src.PendingNonceAt(ctx, sender)
	if err != nil {
		return 0, fmt.Errorf("error querying nonce: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.account(key)
	if pending > acc.floor {
		acc.floor = pending
	}
	next := acc.floor
	for n := range acc.reserved {
		if n < acc.floor {
			delete(acc.reserved, n)
			continue
		}
		if n+1 > next {
			next = n + 1
		}
	}
	acc.reserved[next] = struct{}{}
	return next, nil
}

// Release frees a nonce whose transaction never reached the node.
func (m *NonceManager) Release(chainID *big.Int, sender common.Address, nonce uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := nonceKey{chainID: chainID.String(), sender: sender}
	if acc, ok := m.accounts[key]; ok {
		delete(acc.reserved, nonce)
	}
}

func (m *NonceManager) account(key nonceKey) *accountNonces {
	acc, ok := m.accounts[key]
	if !ok {
		acc = &accountNonces{reserved: make(map[uint64]struct{})}
		m.accounts[key] = acc
	}
	return acc
}
