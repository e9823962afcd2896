package bridge

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/base-org/zkbridge/zktypes"
)

// ContractSource discovers the bridge contract set, typically the L2 node.
type ContractSource interface {
	BridgeContracts(ctx context.Context) (*zktypes.BridgeContracts, error)
}

// Resolver caches the bridge contract set. Concurrent first lookups share one request;
// failures are not cached.
type Resolver struct {
	source ContractSource
	group  singleflight.Group

	mu     sync.RWMutex
	cached *zktypes.BridgeContracts
}

func NewResolver(source ContractSource) *Resolver {
	return &Resolver{source: source}
}

// StaticResolver serves an injected contract set without network lookups.
func StaticResolver(contracts zktypes.BridgeContracts) *Resolver {
	return &Resolver{cached: &contracts}
}

// Contracts returns a copy of the contract set.
func (r *Resolver) Contracts(ctx context.Context) (*zktypes.BridgeContracts, error) {
	r.mu.RLock()
	cached := r.cached
	r.mu.RUnlock()
	if cached != nil {
		c := *cached
		return &c, nil
	}

	v, err, _ := r.group.Do("contracts", func() (interface{}, error) {
		r.mu.RLock()
		cached := r.cached
		r.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}
		contracts, err := r.source.BridgeContracts(ctx)
		if err != nil {
			return nil, fmt.Errorf("error resolving bridge contracts: %w", err)
		}
		r.mu.Lock()
		r.cached = contracts
		r.mu.Unlock()
		return contracts, nil
	})
	if err != nil {
		return nil, err
	}
	c := *v.(*zktypes.BridgeContracts)
	return &c, nil
}
